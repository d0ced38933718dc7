package healthcheck

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisChecker pings the shared response cache. An outage is degraded
// because the in-process cache takes over.
type RedisChecker struct {
	client redis.UniversalClient
}

func NewRedisChecker(client redis.UniversalClient) *RedisChecker {
	return &RedisChecker{client: client}
}

func (c *RedisChecker) Check(ctx context.Context) Result {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return Result{Status: StatusDegraded, Message: "redis unreachable: " + err.Error()}
	}

	stats := c.client.PoolStats()
	return Result{
		Status: StatusHealthy,
		Details: Details{
			"pool_total": stats.TotalConns,
			"pool_idle":  stats.IdleConns,
			"timeouts":   stats.Timeouts,
		},
	}
}

// ExternalServiceChecker issues a GET against an HTTP dependency such as
// the recipe backend
type ExternalServiceChecker struct {
	url      string
	timeout  time.Duration
	client   *http.Client
	critical bool
}

// NewExternalServiceChecker probes url with its own timeout. Failures are
// degraded unless Critical is set.
func NewExternalServiceChecker(url string, timeout time.Duration) *ExternalServiceChecker {
	return &ExternalServiceChecker{
		url:     url,
		timeout: timeout,
		client:  &http.Client{Timeout: timeout},
	}
}

// Critical makes a failing service mark the report unhealthy
func (c *ExternalServiceChecker) Critical() *ExternalServiceChecker {
	c.critical = true
	return c
}

// WithClient swaps the HTTP client, e.g. for an instrumented transport
func (c *ExternalServiceChecker) WithClient(client *http.Client) *ExternalServiceChecker {
	if client != nil {
		c.client = client
	}
	return c
}

func (c *ExternalServiceChecker) down(msg string, details Details) Result {
	status := StatusDegraded
	if c.critical {
		status = StatusUnhealthy
	}
	return Result{Status: status, Message: msg, Details: details}
}

func (c *ExternalServiceChecker) Check(ctx context.Context) Result {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return Result{Status: StatusUnhealthy, Message: "bad probe url: " + err.Error()}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return c.down(err.Error(), Details{"url": c.url})
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	details := Details{"url": c.url, "status_code": resp.StatusCode}
	switch code := resp.StatusCode; {
	case code < 300:
		return Result{Status: StatusHealthy, Details: details}
	case code >= 500:
		return c.down(fmt.Sprintf("backend answered %d", code), details)
	default:
		return Result{Status: StatusDegraded, Message: fmt.Sprintf("backend answered %d", code), Details: details}
	}
}

// CheckFunc is a probe written as a plain function
type CheckFunc func(ctx context.Context) (Status, string, Details)

// CustomChecker adapts a CheckFunc to Checker
type CustomChecker struct {
	fn CheckFunc
}

func NewCustomChecker(fn CheckFunc) *CustomChecker {
	return &CustomChecker{fn: fn}
}

func (c *CustomChecker) Check(ctx context.Context) Result {
	status, msg, details := c.fn(ctx)
	return Result{Status: status, Message: msg, Details: details}
}
