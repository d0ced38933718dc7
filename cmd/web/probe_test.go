package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alchemorsel/kitchen/pkg/healthcheck"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func healthServer(t *testing.T, status healthcheck.Status) *httptest.Server {
	t.Helper()
	hc := healthcheck.New("1.2.3", zap.NewNop())
	hc.Register("recipe_api", healthcheck.NewCustomChecker(
		func(context.Context) (healthcheck.Status, string, healthcheck.Details) {
			return status, "backend says " + string(status), nil
		}))

	srv := httptest.NewServer(hc.Handler())
	t.Cleanup(srv.Close)
	return srv
}

func probeOpts(url string) probeOptions {
	return probeOptions{
		URL:      url,
		Timeout:  2 * time.Second,
		Interval: 10 * time.Millisecond,
		Expect:   string(healthcheck.StatusHealthy),
		Format:   "text",
	}
}

func TestRunProbe(t *testing.T) {
	tests := []struct {
		name   string
		status healthcheck.Status
		expect healthcheck.Status
		code   int
	}{
		{"healthy", healthcheck.StatusHealthy, healthcheck.StatusHealthy, exitCodeSuccess},
		{"degraded when healthy is expected", healthcheck.StatusDegraded, healthcheck.StatusHealthy, exitCodeFailure},
		{"degraded accepted", healthcheck.StatusDegraded, healthcheck.StatusDegraded, exitCodeSuccess},
		{"unhealthy", healthcheck.StatusUnhealthy, healthcheck.StatusDegraded, exitCodeFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := healthServer(t, tt.status)
			opts := probeOpts(srv.URL)
			opts.Expect = string(tt.expect)
			opts.Verbose = true

			var out bytes.Buffer
			code := runProbe(context.Background(), srv.Client(), opts, &out)

			assert.Equal(t, tt.code, code)
			assert.Contains(t, out.String(), "Status: "+string(tt.status))
			assert.Contains(t, out.String(), "Version: 1.2.3")
			assert.Contains(t, out.String(), "recipe_api: "+string(tt.status))
		})
	}
}

func TestRunProbe_JSONFormat(t *testing.T) {
	srv := healthServer(t, healthcheck.StatusHealthy)
	opts := probeOpts(srv.URL)
	opts.Format = "json"

	var out bytes.Buffer
	assert.Equal(t, exitCodeSuccess, runProbe(context.Background(), srv.Client(), opts, &out))
	assert.Contains(t, out.String(), `"status": "healthy"`)
}

func TestRunProbe_Unreachable(t *testing.T) {
	srv := healthServer(t, healthcheck.StatusHealthy)
	url := srv.URL
	srv.Close()

	opts := probeOpts(url)
	opts.Retries = 2

	var out bytes.Buffer
	assert.Equal(t, exitCodeError, runProbe(context.Background(), http.DefaultClient, opts, &out))
	assert.Contains(t, out.String(), "Health check failed after 3 attempts")
}

func TestRunProbe_RetriesUntilAnswered(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "starting", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"status":"healthy","version":"1.2.3"}`))
	}))
	defer srv.Close()

	opts := probeOpts(srv.URL)
	opts.Retries = 3

	var out bytes.Buffer
	assert.Equal(t, exitCodeSuccess, runProbe(context.Background(), srv.Client(), opts, &out))
	assert.Equal(t, int32(3), calls.Load())
}

func TestExitCodeFor(t *testing.T) {
	assert.Equal(t, exitCodeSuccess, exitCodeFor(healthcheck.StatusHealthy, "bogus"))
	assert.Equal(t, exitCodeFailure, exitCodeFor(healthcheck.StatusDegraded, "bogus"))
	assert.Equal(t, exitCodeSuccess, exitCodeFor(healthcheck.StatusUnhealthy, healthcheck.StatusUnhealthy))
	assert.Equal(t, exitCodeFailure, exitCodeFor("starting", healthcheck.StatusDegraded))
}

func TestHealthCommandFlags(t *testing.T) {
	flags := newProbeCmd().Flags()

	tests := []struct {
		name string
		def  string
	}{
		{"url", ""},
		{"timeout", "5s"},
		{"retries", "0"},
		{"interval", "1s"},
		{"expect", "healthy"},
		{"format", "text"},
		{"verbose", "false"},
	}
	for _, tt := range tests {
		f := flags.Lookup(tt.name)
		if assert.NotNil(t, f, tt.name) {
			assert.Equal(t, tt.def, f.DefValue, tt.name)
		}
	}

	assert.Nil(t, flags.Lookup("retry"))
	assert.Nil(t, flags.Lookup("retry-delay"))
	assert.Equal(t, "v", flags.Lookup("verbose").Shorthand)
}
