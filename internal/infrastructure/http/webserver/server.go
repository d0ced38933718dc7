// Package webserver provides the web frontend HTTP server implementation
package webserver

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"

	"github.com/alchemorsel/kitchen/internal/domain/content"
	"github.com/alchemorsel/kitchen/internal/infrastructure/config"
	"github.com/alchemorsel/kitchen/internal/infrastructure/hotreload"
	mw "github.com/alchemorsel/kitchen/internal/infrastructure/http/middleware"
	"github.com/alchemorsel/kitchen/internal/infrastructure/monitoring"
	"github.com/alchemorsel/kitchen/internal/platform/i18n"
	"github.com/alchemorsel/kitchen/pkg/healthcheck"
	"github.com/andybalholm/brotli"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

// WebServer represents the web frontend HTTP server
type WebServer struct {
	config     *config.Config
	logger     *zap.Logger
	server     *http.Server
	router     *chi.Mux
	apiClient  *APIClient
	sessions   *SessionStore
	bundle     *i18n.Bundle
	catalog    *content.Catalog
	renderer   *Renderer
	health     *healthcheck.HealthCheck
	metrics    *monitoring.MetricsCollector
	tracing    *monitoring.OpenTelemetryProvider
	middleware *mw.Middleware
	assistant  *Assistant
	validate   *validator.Validate
	liveReload *hotreload.LiveReloadHub
}

// NewWebServer creates a new web frontend server instance. tracing may be nil.
func NewWebServer(
	cfg *config.Config,
	log *zap.Logger,
	apiClient *APIClient,
	sessions *SessionStore,
	bundle *i18n.Bundle,
	catalog *content.Catalog,
	health *healthcheck.HealthCheck,
	metrics *monitoring.MetricsCollector,
	tracing *monitoring.OpenTelemetryProvider,
) (*WebServer, error) {
	renderer, err := NewRenderer(templateSource(cfg))
	if err != nil {
		log.Error("Failed to parse templates", zap.Error(err))
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	log.Info("Templates parsed", zap.Int("pages", renderer.Pages()), zap.String("dir", cfg.Server.TemplateDir))

	s := &WebServer{
		config:     cfg,
		logger:     log,
		apiClient:  apiClient,
		sessions:   sessions,
		bundle:     bundle,
		catalog:    catalog,
		renderer:   renderer,
		health:     health,
		metrics:    metrics,
		tracing:    tracing,
		middleware: mw.New(cfg, log),
		assistant:  NewAssistant(apiClient, catalog, metrics, log),
		validate:   newValidator(),
	}

	if cfg.Server.TemplateDir != "" && !cfg.IsProduction() {
		s.liveReload = hotreload.NewLiveReloadHub(log)
	}

	s.router = s.setupRoutes()

	var handler http.Handler = s.router
	if tracing != nil {
		handler = tracing.InstrumentHTTPHandler(handler, "kitchen-web")
	}
	if cfg.Server.EnableH2C {
		handler = h2c.NewHandler(handler, &http2.Server{})
	}

	s.server = &http.Server{
		Addr:         cfg.Address(),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return s, nil
}

func templateSource(cfg *config.Config) fs.FS {
	if cfg.Server.TemplateDir != "" {
		return os.DirFS(cfg.Server.TemplateDir)
	}
	return EmbeddedTemplates()
}

// setupRoutes configures the web frontend routes
func (s *WebServer) setupRoutes() *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.middleware.RequestLogger)
	r.Use(middleware.Recoverer)
	r.Use(s.metrics.HTTPMiddleware)
	r.Use(s.middleware.SecurityHeaders)
	r.Use(s.middleware.HTMX)
	if s.config.Server.EnableCompression {
		compressor := middleware.NewCompressor(5, "text/html", "text/css", "text/plain", "application/javascript", "application/json")
		compressor.SetEncoder("br", func(w io.Writer, level int) io.Writer {
			return brotli.NewWriterLevel(w, level)
		})
		r.Use(compressor.Handler)
	}
	r.Use(s.middleware.RateLimit(s.handleRateLimited))

	r.NotFound(s.handleNotFound)

	static, _ := fs.Sub(staticFS, "static")
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(static))))

	r.Get(s.config.Monitoring.HealthCheckPath, s.health.Handler())
	r.Get(s.config.Monitoring.ReadinessPath, s.health.ReadinessHandler())
	r.Get("/live", s.health.LivenessHandler())
	if s.config.Monitoring.EnableMetrics {
		r.Handle(s.config.Monitoring.MetricsPath, s.metrics.Handler())
	}

	if s.config.Features.EnableBFF {
		r.Mount("/bff", s.bffEngine())
	}

	if s.liveReload != nil {
		r.Get("/dev/livereload", s.liveReload.Handler())
	}

	r.Group(func(r chi.Router) {
		r.Use(s.sessionMiddleware)

		r.Get("/", s.handleHome)
		r.Post("/lang", s.handleLanguage)

		r.Get("/assistant", s.handleAssistant)
		if s.config.Features.EnableAssistantWebSocket {
			r.Get("/ws/assistant", s.handleAssistantSocket)
		}

		r.Get("/recipes", s.handleRecipes)

		r.Get("/planner", s.handlePlanner)
		if s.config.Features.EnableExport {
			r.Get("/planner/shopping-list.txt", s.handleShoppingListExport)
			r.Get("/planner/shopping-list/print", s.handleShoppingListPrint)
		}

		r.Get("/medical", s.handleMedical)

		r.Get("/magazine", s.handleMagazine)
		r.Get("/magazine/{slug}", s.handleArticle)

		r.Get("/kids", s.handleKids)

		r.Route("/htmx", func(r chi.Router) {
			r.Get("/recipes", s.handleHTMXRecipes)
			r.Post("/assistant/messages", s.handleHTMXAssistantMessage)
			r.Post("/medical/generate", s.handleHTMXMedicalGenerate)
		})
	})

	return r
}

// Handler returns the root handler, for tests and embedding
func (s *WebServer) Handler() http.Handler {
	return s.server.Handler
}

// Renderer exposes the template set so a reloader can refresh it
func (s *WebServer) Renderer() *Renderer {
	return s.renderer
}

// LiveReload returns the browser reload hub, or nil outside template development
func (s *WebServer) LiveReload() *hotreload.LiveReloadHub {
	return s.liveReload
}

// Middleware exposes the shared middleware so its limiter janitor can be scheduled
func (s *WebServer) Middleware() *mw.Middleware {
	return s.middleware
}

// Start starts the web frontend HTTP server
func (s *WebServer) Start() error {
	s.logger.Info("Starting web frontend server",
		zap.String("address", s.server.Addr),
		zap.String("api_url", s.apiClient.BaseURL()),
		zap.Bool("h2c", s.config.Server.EnableH2C),
	)

	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the web server
func (s *WebServer) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down web frontend server...")
	if s.liveReload != nil {
		s.liveReload.Close()
	}
	return s.server.Shutdown(ctx)
}

type localizerKey struct{}

// sessionMiddleware loads the visitor's session and resolves the request
// language. A language picked through ?lang= is remembered.
func (s *WebServer) sessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session := s.sessions.Load(w, r)

		lang, fromQuery := s.bundle.Resolve(r, session.Lang())
		if fromQuery && lang != session.Lang() {
			session.SetLang(lang)
			i18n.SetLanguageCookie(w, lang, s.config.Server.SecureCookies)
		}

		ctx := withSession(r.Context(), session)
		ctx = context.WithValue(ctx, localizerKey{}, s.bundle.Localizer(lang))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// localizer returns the request's localizer. Requests that bypassed the
// session middleware resolve one from the request alone.
func (s *WebServer) localizer(r *http.Request) *i18n.Localizer {
	if l, ok := r.Context().Value(localizerKey{}).(*i18n.Localizer); ok {
		return l
	}
	lang, _ := s.bundle.Resolve(r, "")
	return s.bundle.Localizer(lang)
}

// render writes a full page through the layout
func (s *WebServer) render(w http.ResponseWriter, status int, page string, data interface{}) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	var buf bytes.Buffer
	if err := s.renderer.Page(&buf, page, data); err != nil {
		s.renderFailure(w, page, err)
		return
	}
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (s *WebServer) renderPartial(w http.ResponseWriter, status int, name string, data interface{}) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	var buf bytes.Buffer
	if err := s.renderer.Partial(&buf, name, data); err != nil {
		s.renderFailure(w, name, err)
		return
	}
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (s *WebServer) renderFailure(w http.ResponseWriter, name string, err error) {
	s.logger.Error("Failed to execute template", zap.String("template", name), zap.Error(err))
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

func (s *WebServer) renderError(w http.ResponseWriter, r *http.Request, status int, messageKey string) {
	page := s.newPage(r, "error.heading", "", errorView{
		L:       s.localizer(r),
		Status:  status,
		Message: s.localizer(r).T(messageKey),
	})
	s.render(w, status, "error", page)
}

func (s *WebServer) handleNotFound(w http.ResponseWriter, r *http.Request) {
	s.renderError(w, r, http.StatusNotFound, "error.not_found")
}

// handleRateLimited writes the body of a 429; the status is already set
func (s *WebServer) handleRateLimited(w http.ResponseWriter, r *http.Request) {
	l := s.localizer(r)
	if mw.IsHTMX(r) {
		_ = s.renderer.Partial(w, "alert", errorView{L: l, Status: http.StatusTooManyRequests, Message: l.T("error.rate_limited")})
		return
	}
	page := s.newPage(r, "error.heading", "", errorView{L: l, Status: http.StatusTooManyRequests, Message: l.T("error.rate_limited")})
	if err := s.renderer.Page(w, "error", page); err != nil {
		s.logger.Error("Failed to execute template", zap.String("template", "error"), zap.Error(err))
	}
}
