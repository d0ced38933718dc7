// Package harness boots the complete web frontend on a real listener for
// the end-to-end, security and performance suites. It lives outside
// testutils because the webserver package tests import testutils.
package harness

import (
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/alchemorsel/kitchen/internal/domain/content"
	"github.com/alchemorsel/kitchen/internal/infrastructure/cache"
	"github.com/alchemorsel/kitchen/internal/infrastructure/config"
	"github.com/alchemorsel/kitchen/internal/infrastructure/http/webserver"
	"github.com/alchemorsel/kitchen/internal/infrastructure/monitoring"
	"github.com/alchemorsel/kitchen/internal/platform/i18n"
	"github.com/alchemorsel/kitchen/pkg/healthcheck"
	"github.com/alchemorsel/kitchen/test/testutils"
	"go.uber.org/zap"
)

// Stack is a running frontend wired to a fake recipe backend
type Stack struct {
	Config  *config.Config
	API     *testutils.FakeRecipeAPI
	Server  *httptest.Server
	Web     *webserver.WebServer
	Metrics *monitoring.MetricsCollector

	// Client keeps cookies between requests and does not follow redirects
	Client *http.Client
}

// Start builds the stack with test defaults. configure runs before the
// server is constructed.
func Start(tb testing.TB, configure ...func(*config.Config)) *Stack {
	tb.Helper()
	api := testutils.NewFakeRecipeAPI(tb)

	cfg := config.Default()
	cfg.API.BaseURL = api.URL()
	cfg.API.Timeout = 2 * time.Second
	cfg.RateLimit.Enable = false
	for _, fn := range configure {
		fn(cfg)
	}

	logger := zap.NewNop()
	metrics := monitoring.NewMetricsCollector(logger)
	client := webserver.NewAPIClient(cfg, cache.NewLocalCache(cfg.Cache.MaxSize), metrics, nil, logger)

	bundle, err := i18n.LoadEmbedded(cfg.I18n.DefaultLanguage, cfg.I18n.Languages)
	if err != nil {
		tb.Fatalf("load translations: %v", err)
	}
	catalog, err := content.Load()
	if err != nil {
		tb.Fatalf("load catalog: %v", err)
	}

	web, err := webserver.NewWebServer(cfg, logger, client, webserver.NewSessionStore(cfg, logger),
		bundle, catalog, healthcheck.New(cfg.App.Version, logger), metrics, nil)
	if err != nil {
		tb.Fatalf("build web server: %v", err)
	}

	srv := httptest.NewServer(web.Handler())
	tb.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	if err != nil {
		tb.Fatalf("cookie jar: %v", err)
	}

	return &Stack{
		Config:  cfg,
		API:     api,
		Server:  srv,
		Web:     web,
		Metrics: metrics,
		Client: &http.Client{
			Jar:     jar,
			Timeout: 5 * time.Second,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

// URL resolves path against the server root
func (s *Stack) URL(path string) string {
	return s.Server.URL + path
}

// Get issues a plain browser navigation
func (s *Stack) Get(tb testing.TB, path string) *http.Response {
	tb.Helper()
	return s.Do(tb, http.MethodGet, path, nil, nil)
}

// HTMX issues a request the way htmx does, with the form url-encoded
func (s *Stack) HTMX(tb testing.TB, method, path string, form url.Values) *http.Response {
	tb.Helper()
	return s.Do(tb, method, path, form, http.Header{"HX-Request": {"true"}})
}

// PostForm submits form without htmx
func (s *Stack) PostForm(tb testing.TB, path string, form url.Values) *http.Response {
	tb.Helper()
	return s.Do(tb, http.MethodPost, path, form, nil)
}

// Do sends one request through the cookie-keeping client
func (s *Stack) Do(tb testing.TB, method, path string, form url.Values, header http.Header) *http.Response {
	tb.Helper()

	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequest(method, s.URL(path), body)
	if err != nil {
		tb.Fatalf("build request: %v", err)
	}
	for k, values := range header {
		for _, v := range values {
			req.Header.Add(k, v)
		}
	}
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := s.Client.Do(req)
	if err != nil {
		tb.Fatalf("%s %s: %v", method, path, err)
	}
	tb.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

// Document parses the response body as HTML
func Document(tb testing.TB, resp *http.Response) *goquery.Document {
	tb.Helper()
	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		tb.Fatalf("parse html: %v", err)
	}
	return doc
}

// Drain reads and discards the body so the connection is reused
func Drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
}
