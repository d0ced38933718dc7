package main

import (
	"context"
	"time"

	"github.com/alchemorsel/kitchen/internal/domain/content"
	"github.com/alchemorsel/kitchen/internal/infrastructure/cache"
	"github.com/alchemorsel/kitchen/internal/infrastructure/config"
	"github.com/alchemorsel/kitchen/internal/infrastructure/http/webserver"
	"github.com/alchemorsel/kitchen/internal/infrastructure/monitoring"
	"github.com/alchemorsel/kitchen/internal/platform/i18n"
	"github.com/alchemorsel/kitchen/pkg/healthcheck"
	"github.com/alchemorsel/kitchen/pkg/logger"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const janitorInterval = time.Minute

func runServe(path string) error {
	app := fx.New(
		fx.NopLogger,

		// Configuration
		fx.Provide(func() (*config.Config, error) {
			return config.Load(path)
		}),

		// Logger
		fx.Provide(func(cfg *config.Config) (*zap.Logger, error) {
			return logger.New(logger.Config{
				Level:       cfg.App.LogLevel,
				Format:      cfg.App.LogFormat,
				Development: cfg.App.Debug,
				Service:     cfg.App.Name,
				Version:     cfg.App.Version,
				Environment: cfg.App.Environment,
			})
		}),

		// Backend response cache
		fx.Provide(func(cfg *config.Config, log *zap.Logger) (cache.Cache, error) {
			return cache.New(context.Background(), cfg, log)
		}),

		// Observability
		fx.Provide(monitoring.NewMetricsCollector),
		fx.Provide(monitoring.NewOpenTelemetryProvider),

		// Static content and translations
		fx.Provide(func(cfg *config.Config) (*i18n.Bundle, error) {
			return i18n.LoadEmbedded(cfg.I18n.DefaultLanguage, cfg.I18n.Languages)
		}),
		fx.Provide(content.Load),

		fx.Provide(webserver.NewAPIClient),
		fx.Provide(webserver.NewSessionStore),
		fx.Provide(newHealthCheck),
		fx.Provide(webserver.NewWebServer),

		fx.Invoke(registerTemplateCheck),
		fx.Invoke(registerLifecycleHooks),
	)

	if err := app.Err(); err != nil {
		return err
	}
	app.Run()
	return nil
}

// newHealthCheck registers the backend and cache checks. The recipe API is
// not critical: pages fall back to sample data while it is down.
func newHealthCheck(cfg *config.Config, log *zap.Logger, client *webserver.APIClient, store cache.Cache) *healthcheck.HealthCheck {
	hc := healthcheck.New(cfg.App.Version, log)
	hc.SetCacheTTL(cfg.Monitoring.HealthCheckTTL)

	hc.Register("recipe_api", healthcheck.NewExternalServiceChecker(
		client.BaseURL()+webserver.EndpointAIRecipes,
		cfg.API.Timeout,
	))

	if redisCache, ok := store.(*cache.RedisClient); ok {
		hc.Register("redis", healthcheck.NewRedisChecker(redisCache.Client()))
	}
	return hc
}

func registerTemplateCheck(hc *healthcheck.HealthCheck, server *webserver.WebServer) {
	hc.Register("templates", healthcheck.NewCustomChecker(
		func(context.Context) (healthcheck.Status, string, healthcheck.Details) {
			pages := server.Renderer().Pages()
			if pages == 0 {
				return healthcheck.StatusUnhealthy, "no page templates parsed", nil
			}
			return healthcheck.StatusHealthy, "", healthcheck.Details{"pages": pages}
		}))
}

func registerLifecycleHooks(
	lc fx.Lifecycle,
	shutdowner fx.Shutdowner,
	cfg *config.Config,
	log *zap.Logger,
	store cache.Cache,
	sessions *webserver.SessionStore,
	tracing *monitoring.OpenTelemetryProvider,
	server *webserver.WebServer,
) {
	background, cancel := context.WithCancel(context.Background())
	var reloader *webserver.TemplateReloader

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("Starting web frontend",
				zap.String("address", cfg.Address()),
				zap.String("environment", cfg.App.Environment),
				zap.String("api_url", cfg.API.BaseURL),
			)

			go sessions.Run(background, janitorInterval)
			if cfg.RateLimit.Enable {
				go server.Middleware().Limiter().Run(background, janitorInterval, cfg.RateLimit.IdleTTL)
			}
			if local, ok := store.(*cache.LocalCache); ok {
				local.AutoCleanup(background, janitorInterval)
			}

			if hub := server.LiveReload(); hub != nil {
				r, err := webserver.NewTemplateReloader(cfg.Server.TemplateDir, server.Renderer(), hub, log)
				if err != nil {
					log.Warn("Template live reload disabled", zap.Error(err))
				} else {
					reloader = r
					reloader.Start(background)
					log.Info("Watching templates", zap.String("dir", cfg.Server.TemplateDir))
				}
			}

			go func() {
				if err := server.Start(); err != nil {
					log.Error("Web server stopped", zap.Error(err))
					_ = shutdowner.Shutdown(fx.ExitCode(1))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			cancel()
			if reloader != nil {
				_ = reloader.Close()
			}

			err := server.Shutdown(ctx)
			if terr := tracing.Shutdown(ctx); terr != nil {
				log.Warn("Tracer shutdown failed", zap.Error(terr))
			}
			if cerr := store.Close(); cerr != nil {
				log.Warn("Cache close failed", zap.Error(cerr))
			}
			_ = log.Sync()
			return err
		},
	})
}
