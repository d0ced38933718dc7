package webserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/alchemorsel/kitchen/internal/domain/recipe"
	"github.com/alchemorsel/kitchen/internal/infrastructure/cache"
	"github.com/alchemorsel/kitchen/internal/infrastructure/config"
	"github.com/alchemorsel/kitchen/internal/infrastructure/monitoring"
	apperrors "github.com/alchemorsel/kitchen/pkg/errors"
	"go.uber.org/zap"
)

// Backend endpoints
const (
	EndpointAIRecipes       = "/api/ai-recipes"
	EndpointMedicalRecipes  = "/api/medical-recipes"
	EndpointGenerateMedical = "/api/medical-recipes/generate"
)

const (
	cacheKeyPrefix   = "api:"
	maxResponseBytes = 4 << 20
)

// APIClient handles communication with the recipe backend. GET responses
// are cached for api.cache_ttl; there is no retry.
type APIClient struct {
	baseURL    string
	httpClient *http.Client
	cache      cache.Cache
	cacheTTL   time.Duration
	metrics    *monitoring.MetricsCollector
	logger     *zap.Logger
}

// NewAPIClient creates a new API client instance. tracing may be nil.
func NewAPIClient(
	cfg *config.Config,
	store cache.Cache,
	metrics *monitoring.MetricsCollector,
	tracing *monitoring.OpenTelemetryProvider,
	logger *zap.Logger,
) *APIClient {
	var transport http.RoundTripper = http.DefaultTransport
	if tracing != nil {
		transport = tracing.InstrumentTransport(transport)
	}

	return &APIClient{
		baseURL: strings.TrimRight(cfg.API.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout:   cfg.API.Timeout,
			Transport: transport,
		},
		cache:    store,
		cacheTTL: cfg.API.CacheTTL,
		metrics:  metrics,
		logger:   logger,
	}
}

// BaseURL returns the backend root
func (c *APIClient) BaseURL() string {
	return c.baseURL
}

// GetAIRecipes fetches the AI recipe feed
func (c *APIClient) GetAIRecipes(ctx context.Context) (recipe.Feed, Source, error) {
	return c.getFeed(ctx, EndpointAIRecipes)
}

// GetMedicalRecipes fetches the medical recipe feed
func (c *APIClient) GetMedicalRecipes(ctx context.Context) (recipe.Feed, Source, error) {
	return c.getFeed(ctx, EndpointMedicalRecipes)
}

// GenerateMedicalRecipes asks the backend to generate recipes and drops the
// cached medical feed so the following GET sees them. A successful call
// that produced nothing returns recipe.ErrNoRecipesGenerated.
func (c *APIClient) GenerateMedicalRecipes(ctx context.Context, req recipe.GenerateRequest) ([]recipe.Recipe, error) {
	body, err := c.do(ctx, http.MethodPost, EndpointGenerateMedical, req)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Recipes recipe.List `json:"recipes"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, apperrors.NewBackendDecodeError(EndpointGenerateMedical, err)
	}

	c.invalidate(ctx, EndpointMedicalRecipes)

	if len(resp.Recipes) == 0 {
		return nil, recipe.ErrNoRecipesGenerated
	}
	return resp.Recipes, nil
}

// VerifyConnection checks that the backend answers the AI recipe feed
func (c *APIClient) VerifyConnection(ctx context.Context) bool {
	_, err := c.do(ctx, http.MethodGet, EndpointAIRecipes, nil)
	return err == nil
}

func (c *APIClient) getFeed(ctx context.Context, endpoint string) (recipe.Feed, Source, error) {
	key := cacheKeyPrefix + endpoint

	if data, err := c.cache.Get(ctx, key); err == nil {
		var feed recipe.Feed
		if err := json.Unmarshal(data, &feed); err == nil {
			c.metrics.CacheOperation("get", "hit")
			return feed, SourceCache, nil
		}
		c.metrics.CacheOperation("get", "corrupt")
	} else if errors.Is(err, cache.ErrKeyNotFound) {
		c.metrics.CacheOperation("get", "miss")
	} else {
		c.metrics.CacheOperation("get", "error")
		c.logger.Debug("Cache read failed", zap.String("key", key), zap.Error(err))
	}

	body, err := c.do(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return recipe.Feed{}, "", err
	}

	var feed recipe.Feed
	if err := json.Unmarshal(body, &feed); err != nil {
		return recipe.Feed{}, "", apperrors.NewBackendDecodeError(endpoint, err)
	}

	if c.cacheTTL > 0 {
		if err := c.cache.Set(ctx, key, body, c.cacheTTL); err != nil {
			c.metrics.CacheOperation("set", "error")
			c.logger.Debug("Cache write failed", zap.String("key", key), zap.Error(err))
		} else {
			c.metrics.CacheOperation("set", "ok")
		}
	}

	return feed, SourceBackend, nil
}

func (c *APIClient) invalidate(ctx context.Context, endpoint string) {
	if err := c.cache.InvalidatePattern(ctx, cacheKeyPrefix+endpoint+"*"); err != nil {
		c.metrics.CacheOperation("invalidate", "error")
		c.logger.Warn("Cache invalidation failed", zap.String("endpoint", endpoint), zap.Error(err))
		return
	}
	c.metrics.CacheOperation("invalidate", "ok")
}

func (c *APIClient) do(ctx context.Context, method, endpoint string, payload interface{}) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to marshal request")
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, body)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	monitoring.WithContext(ctx, c.logger).Debug("API request",
		zap.String("method", method),
		zap.String("endpoint", endpoint),
	)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		outcome := "error"
		if ctx.Err() != nil {
			outcome = "canceled"
		}
		c.metrics.BackendRequest(endpoint, outcome, time.Since(start))
		return nil, apperrors.NewBackendUnavailableError(endpoint, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		c.metrics.BackendRequest(endpoint, "error", time.Since(start))
		return nil, apperrors.NewBackendUnavailableError(endpoint, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.metrics.BackendRequest(endpoint, "status", time.Since(start))
		return nil, apperrors.NewBackendStatusError(endpoint, resp.StatusCode)
	}

	c.metrics.BackendRequest(endpoint, "success", time.Since(start))
	return data, nil
}
