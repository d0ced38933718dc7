// Package middleware holds the chi and gin middleware shared by the page
// router and the /bff API.
package middleware

import (
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/alchemorsel/kitchen/internal/infrastructure/config"
	"github.com/felixge/httpsnoop"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Middleware carries the settings and per-client state the handlers share
type Middleware struct {
	config  *config.Config
	logger  *zap.Logger
	limiter *IPRateLimiter
	probes  map[string]bool
	headers http.Header
}

func New(cfg *config.Config, logger *zap.Logger) *Middleware {
	mon := cfg.Monitoring
	return &Middleware{
		config:  cfg,
		logger:  logger,
		limiter: NewIPRateLimiter(cfg.RateLimit.RequestsPerMin, cfg.RateLimit.BurstSize),
		probes: map[string]bool{
			mon.HealthCheckPath: true,
			mon.ReadinessPath:   true,
			mon.MetricsPath:     true,
			"/live":             true,
		},
		headers: securityHeaders(cfg.IsProduction()),
	}
}

// Limiter exposes the per-client limiter so its janitor can be scheduled
func (m *Middleware) Limiter() *IPRateLimiter {
	return m.limiter
}

func (m *Middleware) isProbe(path string) bool {
	return m.probes[path]
}

// statusLevel picks the log level for a finished request
func statusLevel(status int) (zapcore.Level, string) {
	switch {
	case status >= 500:
		return zapcore.ErrorLevel, "Server error"
	case status >= 400:
		return zapcore.WarnLevel, "Client error"
	default:
		return zapcore.InfoLevel, "Request completed"
	}
}

// RequestLogger writes one entry per request, skipping health and metrics
// probes
func (m *Middleware) RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.isProbe(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		level, msg := statusLevel(status)
		if ce := m.logger.Check(level, msg); ce != nil {
			fields := []zap.Field{
				zap.String("request_id", chimw.GetReqID(r.Context())),
				zap.String("method", r.Method),
				zap.String("path", r.URL.RequestURI()),
				zap.String("ip", ClientIP(r)),
				zap.Int("status", status),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("latency", time.Since(start)),
			}
			if IsHTMX(r) {
				fields = append(fields, zap.Bool("htmx", true), zap.String("hx_target", r.Header.Get("HX-Target")))
			}
			ce.Write(fields...)
		}
	})
}

// SecurityHeaders stamps the CSP and hardening headers on every response
func (m *Middleware) SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		for name, values := range m.headers {
			h[name] = append([]string(nil), values...)
		}
		next.ServeHTTP(w, r)
	})
}

// RateLimit answers 429 with Retry-After once a client exhausts its token
// bucket. denied, if set, writes the body after the status line.
func (m *Middleware) RateLimit(denied http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !m.config.RateLimit.Enable || m.isProbe(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			ip := ClientIP(r)
			ok, retry := m.limiter.Allow(ip)
			if ok {
				next.ServeHTTP(w, r)
				return
			}

			m.logger.Warn("Rate limit exceeded", zap.String("ip", ip), zap.String("path", r.URL.Path))
			w.Header().Set("Retry-After", strconv.Itoa(int(retry.Seconds())+1))
			w.WriteHeader(http.StatusTooManyRequests)
			if denied != nil {
				denied(w, r)
			}
		})
	}
}

// HTMX marks responses as varying on HX-Request: one URL serves both a
// full page and a fragment. The token is added when the header is written,
// after inner writers such as the compressor have set their own Vary.
func (m *Middleware) HTMX(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		written := false
		mark := func() {
			if !written {
				written = true
				addVary(w.Header(), "HX-Request")
			}
		}
		hooked := httpsnoop.Wrap(w, httpsnoop.Hooks{
			WriteHeader: func(next httpsnoop.WriteHeaderFunc) httpsnoop.WriteHeaderFunc {
				return func(code int) {
					mark()
					next(code)
				}
			},
			Write: func(next httpsnoop.WriteFunc) httpsnoop.WriteFunc {
				return func(b []byte) (int, error) {
					mark()
					return next(b)
				}
			},
			ReadFrom: func(next httpsnoop.ReadFromFunc) httpsnoop.ReadFromFunc {
				return func(src io.Reader) (int64, error) {
					mark()
					return next(src)
				}
			},
		})
		next.ServeHTTP(hooked, r)
	})
}

// addVary appends token to Vary unless it is already listed
func addVary(h http.Header, token string) {
	for _, v := range h.Values("Vary") {
		for _, field := range strings.Split(v, ",") {
			if f := strings.TrimSpace(field); f == "*" || strings.EqualFold(f, token) {
				return
			}
		}
	}
	h.Add("Vary", token)
}

// IsHTMX reports whether htmx issued the request
func IsHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// ClientIP strips the port from RemoteAddr, which chi's RealIP has already
// rewritten from proxy headers
func ClientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
