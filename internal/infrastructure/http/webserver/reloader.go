package webserver

import (
	"context"

	"github.com/alchemorsel/kitchen/internal/infrastructure/hotreload"
	"go.uber.org/zap"
)

// TemplateReloader re-parses templates when files under the template
// directory change and tells open browsers to reload
type TemplateReloader struct {
	watcher  *hotreload.FileWatcher
	renderer *Renderer
	hub      *hotreload.LiveReloadHub
	logger   *zap.Logger
}

// NewTemplateReloader watches dir. hub may be nil.
func NewTemplateReloader(dir string, renderer *Renderer, hub *hotreload.LiveReloadHub, logger *zap.Logger) (*TemplateReloader, error) {
	tr := &TemplateReloader{renderer: renderer, hub: hub, logger: logger}

	watcher, err := hotreload.NewFileWatcher(logger, tr.onChange, ".html")
	if err != nil {
		return nil, err
	}
	if err := watcher.AddWatchPath(dir); err != nil {
		_ = watcher.Close()
		return nil, err
	}
	tr.watcher = watcher
	return tr, nil
}

// Start begins watching until ctx is done or Close is called
func (tr *TemplateReloader) Start(ctx context.Context) {
	tr.watcher.Start(ctx)
}

// Close stops watching
func (tr *TemplateReloader) Close() error {
	return tr.watcher.Close()
}

func (tr *TemplateReloader) onChange(paths []string) {
	if err := tr.renderer.Reload(); err != nil {
		// keep serving the last good set
		tr.logger.Error("Template reload failed", zap.Strings("paths", paths), zap.Error(err))
		return
	}
	tr.logger.Info("Templates reloaded", zap.Strings("paths", paths), zap.Int("pages", tr.renderer.Pages()))

	if tr.hub != nil {
		tr.hub.TriggerReload(paths)
	}
}
