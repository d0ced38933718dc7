package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/alchemorsel/kitchen/pkg/healthcheck"
	"github.com/spf13/cobra"
)

const (
	exitCodeSuccess = 0
	exitCodeFailure = 1
	exitCodeError   = 2
)

// probeOptions configure one health probe against a running server
type probeOptions struct {
	URL      string
	Timeout  time.Duration
	Retries  int
	Interval time.Duration
	Expect   string
	Format   string
	Verbose  bool
}

// newProbeCmd builds the "probe" command used by container health checks
func newProbeCmd() *cobra.Command {
	opts := probeOptions{}

	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Check the health endpoint of a running server",
		Long: `Probe requests the health endpoint and exits 0 when the reported status
is acceptable, 1 when it is not and 2 when the server could not be reached.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.URL == "" {
				opts.URL = defaultProbeURL()
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), opts.Timeout*time.Duration(opts.Retries+1)+opts.Interval*time.Duration(opts.Retries))
			defer cancel()

			if code := runProbe(ctx, &http.Client{Timeout: opts.Timeout}, opts, cmd.OutOrStdout()); code != exitCodeSuccess {
				os.Exit(code)
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.URL, "url", "", "health endpoint URL (default $HEALTH_CHECK_URL or http://localhost:8080/health)")
	flags.DurationVar(&opts.Timeout, "timeout", 5*time.Second, "request timeout")
	flags.IntVar(&opts.Retries, "retries", 0, "number of retries on failure")
	flags.DurationVar(&opts.Interval, "interval", time.Second, "delay between retries")
	flags.StringVar(&opts.Expect, "expect", string(healthcheck.StatusHealthy), "lowest acceptable status: healthy or degraded")
	flags.StringVar(&opts.Format, "format", "text", "output format: text, json")
	flags.BoolVarP(&opts.Verbose, "verbose", "v", false, "print every check")
	return cmd
}

func defaultProbeURL() string {
	if url := os.Getenv("HEALTH_CHECK_URL"); url != "" {
		return url
	}
	return "http://localhost:8080/health"
}

// runProbe performs the request, prints the result and returns the exit code
func runProbe(ctx context.Context, client *http.Client, opts probeOptions, out io.Writer) int {
	var lastErr error
	for attempt := 0; attempt <= opts.Retries; attempt++ {
		if attempt > 0 {
			if opts.Verbose {
				fmt.Fprintf(out, "Retrying in %v (attempt %d/%d)\n", opts.Interval, attempt, opts.Retries)
			}
			select {
			case <-time.After(opts.Interval):
			case <-ctx.Done():
				fmt.Fprintf(out, "Health check canceled: %v\n", ctx.Err())
				return exitCodeError
			}
		}

		resp, err := fetchHealth(ctx, client, opts.URL)
		if err != nil {
			lastErr = err
			if opts.Verbose {
				fmt.Fprintf(out, "Request failed: %v\n", err)
			}
			continue
		}

		printHealth(out, resp, opts)
		return exitCodeFor(resp.Status, healthcheck.Status(opts.Expect))
	}

	fmt.Fprintf(out, "Health check failed after %d attempts: %v\n", opts.Retries+1, lastErr)
	return exitCodeError
}

// healthBody is the subset of the health response the probe reads
type healthBody struct {
	Status    healthcheck.Status `json:"status"`
	Version   string             `json:"version"`
	Timestamp time.Time          `json:"timestamp"`
	Checks    []struct {
		Name     string             `json:"name"`
		Status   healthcheck.Status `json:"status"`
		Message  string             `json:"message"`
		Duration float64            `json:"duration_ms"`
	} `json:"checks"`
}

func fetchHealth(ctx context.Context, client *http.Client, url string) (healthBody, error) {
	var body healthBody

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return body, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return body, err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return body, fmt.Errorf("failed to decode response (status %d): %w", resp.StatusCode, err)
	}
	if body.Status == "" {
		return body, fmt.Errorf("response has no status (status %d)", resp.StatusCode)
	}
	return body, nil
}

// exitCodeFor accepts any status at least as good as expect
func exitCodeFor(status, expect healthcheck.Status) int {
	rank := map[healthcheck.Status]int{
		healthcheck.StatusHealthy:   2,
		healthcheck.StatusDegraded:  1,
		healthcheck.StatusUnhealthy: 0,
	}
	want, ok := rank[expect]
	if !ok {
		want = rank[healthcheck.StatusHealthy]
	}
	if rank[status] >= want {
		return exitCodeSuccess
	}
	return exitCodeFailure
}

func printHealth(out io.Writer, body healthBody, opts probeOptions) {
	if opts.Format == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		_ = enc.Encode(body)
		return
	}

	fmt.Fprintf(out, "Status: %s\n", body.Status)
	fmt.Fprintf(out, "Version: %s\n", body.Version)
	if opts.Verbose && len(body.Checks) > 0 {
		fmt.Fprintln(out, "\nChecks:")
		for _, check := range body.Checks {
			fmt.Fprintf(out, "  %s: %s", check.Name, check.Status)
			if check.Message != "" {
				fmt.Fprintf(out, " (%s)", check.Message)
			}
			fmt.Fprintf(out, " [%.0fms]\n", check.Duration)
		}
	}
}
