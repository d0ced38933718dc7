// Package healthcheck runs dependency probes for the web frontend and
// serves the /health, /ready and /live endpoints.
//
// The frontend has few hard dependencies: pages render from bundled sample
// data when the recipe backend or Redis is away, so most probes report a
// failure as degraded. Only a probe that leaves the process unable to serve
// any page, such as the template set, should report unhealthy.
package healthcheck

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Status is the outcome of a probe or of the whole report
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

func (s Status) severity() int {
	switch s {
	case StatusHealthy:
		return 0
	case StatusDegraded:
		return 1
	default:
		return 2
	}
}

// Worse returns whichever of a and b is more severe. Unknown values count
// as unhealthy.
func Worse(a, b Status) Status {
	if b.severity() > a.severity() {
		return b
	}
	return a
}

// Millis is a duration encoded as fractional milliseconds
type Millis time.Duration

func (m Millis) MarshalJSON() ([]byte, error) {
	return json.Marshal(float64(time.Duration(m).Microseconds()) / 1000)
}

func (m *Millis) UnmarshalJSON(data []byte) error {
	var ms float64
	if err := json.Unmarshal(data, &ms); err != nil {
		return err
	}
	*m = Millis(ms * float64(time.Millisecond))
	return nil
}

// Details carries probe specific facts such as pool sizes or page counts
type Details map[string]any

// Result is what one probe observed
type Result struct {
	Name      string    `json:"name"`
	Status    Status    `json:"status"`
	Message   string    `json:"message,omitempty"`
	CheckedAt time.Time `json:"checked_at"`
	Took      Millis    `json:"duration_ms"`
	Details   Details   `json:"details,omitempty"`
}

// Report is the body of the /health endpoint
type Report struct {
	Status    Status    `json:"status"`
	Version   string    `json:"version"`
	Timestamp time.Time `json:"timestamp"`
	Uptime    Millis    `json:"uptime_ms"`
	Checks    []Result  `json:"checks"`
	Took      Millis    `json:"total_duration_ms"`
}

// Failing lists the names of the probes that did not report healthy
func (r Report) Failing() []string {
	var names []string
	for _, c := range r.Checks {
		if c.Status != StatusHealthy {
			names = append(names, c.Name)
		}
	}
	return names
}

// Checker probes one dependency
type Checker interface {
	Check(ctx context.Context) Result
}

type probe struct {
	name    string
	checker Checker
}

// HealthCheck owns the registered probes and caches the last report
type HealthCheck struct {
	version string
	started time.Time
	logger  *zap.Logger

	mu      sync.RWMutex
	probes  []probe
	last    *Report
	ttl     time.Duration
	timeout time.Duration

	// refresh lets one caller rerun the probes while the rest wait for it
	refresh sync.Mutex
}

// New returns an empty HealthCheck that caches reports for five seconds
func New(version string, logger *zap.Logger) *HealthCheck {
	return &HealthCheck{
		version: version,
		started: time.Now(),
		logger:  logger.Named("healthcheck"),
		ttl:     5 * time.Second,
		timeout: 10 * time.Second,
	}
}

// Register adds checker under name, replacing any probe already using it.
// Probes run in name order in the report.
func (h *HealthCheck) Register(name string, checker Checker) {
	h.mu.Lock()
	defer h.mu.Unlock()

	i, found := slices.BinarySearchFunc(h.probes, name, func(p probe, name string) int {
		return strings.Compare(p.name, name)
	})
	if found {
		h.probes[i].checker = checker
	} else {
		h.probes = slices.Insert(h.probes, i, probe{name: name, checker: checker})
	}
	h.last = nil
}

// SetCacheTTL changes how long a report is reused. Zero disables caching.
func (h *HealthCheck) SetCacheTTL(ttl time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ttl = ttl
}

// SetTimeout bounds a whole probe run
func (h *HealthCheck) SetTimeout(timeout time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.timeout = timeout
}

func (h *HealthCheck) cached() (Report, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.last == nil || time.Since(h.last.Timestamp) >= h.ttl {
		return Report{}, false
	}
	return *h.last, true
}

// Check returns the cached report or runs every probe concurrently
func (h *HealthCheck) Check(ctx context.Context) Report {
	if report, ok := h.cached(); ok {
		return report
	}

	h.refresh.Lock()
	defer h.refresh.Unlock()
	if report, ok := h.cached(); ok {
		return report
	}

	report := h.run(ctx)

	h.mu.Lock()
	h.last = &report
	h.mu.Unlock()
	return report
}

func (h *HealthCheck) run(ctx context.Context) Report {
	h.mu.RLock()
	probes := slices.Clone(h.probes)
	timeout := h.timeout
	h.mu.RUnlock()

	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	results := make([]Result, len(probes))
	var wg sync.WaitGroup
	for i, p := range probes {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = runProbe(ctx, p)
		}()
	}
	wg.Wait()

	report := Report{
		Status:    StatusHealthy,
		Version:   h.version,
		Timestamp: start,
		Uptime:    Millis(start.Sub(h.started)),
		Checks:    results,
		Took:      Millis(time.Since(start)),
	}
	for _, r := range results {
		report.Status = Worse(report.Status, r.Status)
	}

	if report.Status != StatusHealthy {
		h.logger.Warn("Dependencies not healthy",
			zap.String("status", string(report.Status)),
			zap.Strings("failing", report.Failing()),
		)
	}
	return report
}

// runProbe fills in the bookkeeping fields and turns a panic into an
// unhealthy result
func runProbe(ctx context.Context, p probe) (res Result) {
	start := time.Now()
	defer func() {
		if v := recover(); v != nil {
			res = Result{Status: StatusUnhealthy, Message: fmt.Sprintf("probe panicked: %v", v)}
		}
		res.Name = p.name
		if res.CheckedAt.IsZero() {
			res.CheckedAt = start
		}
		if res.Took == 0 {
			res.Took = Millis(time.Since(start))
		}
	}()
	return p.checker.Check(ctx)
}

// Handler serves the full report; 503 when unhealthy
func (h *HealthCheck) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report := h.Check(r.Context())
		code := http.StatusOK
		if report.Status == StatusUnhealthy {
			code = http.StatusServiceUnavailable
		}
		h.write(w, code, report)
	}
}

// LivenessHandler answers as long as the process can serve HTTP
func (h *HealthCheck) LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		h.write(w, http.StatusOK, map[string]any{
			"status":    "alive",
			"uptime_ms": Millis(time.Since(h.started)),
		})
	}
}

// ReadinessHandler reports ready unless a probe is unhealthy. Degraded
// dependencies still count as ready.
func (h *HealthCheck) ReadinessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report := h.Check(r.Context())
		if report.Status == StatusUnhealthy {
			h.write(w, http.StatusServiceUnavailable, map[string]any{
				"status":  "not_ready",
				"failing": report.Failing(),
			})
			return
		}
		h.write(w, http.StatusOK, map[string]any{
			"status":  "ready",
			"version": h.version,
		})
	}
}

func (h *HealthCheck) write(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Debug("Health response not written", zap.Error(err))
	}
}
