// Package hotreload watches template and asset directories during
// development and tells connected browsers to reload.
package hotreload

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce groups the burst of events an editor emits on save
const DefaultDebounce = 150 * time.Millisecond

// ChangeFunc receives the distinct paths changed during one debounce window
type ChangeFunc func(paths []string)

// FileWatcher watches directory trees and reports debounced batches of
// changed files matching its extensions
type FileWatcher struct {
	watcher  *fsnotify.Watcher
	logger   *zap.Logger
	onChange ChangeFunc
	exts     map[string]bool

	debounceDelay time.Duration

	mu      sync.Mutex
	pending map[string]struct{}
	timer   *time.Timer
	done    chan struct{}
	once    sync.Once
}

// NewFileWatcher creates a watcher reporting changes to files with one of
// exts (".html", ".css"); an empty list matches every file
func NewFileWatcher(logger *zap.Logger, onChange ChangeFunc, exts ...string) (*FileWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	set := make(map[string]bool, len(exts))
	for _, ext := range exts {
		set[strings.ToLower(ext)] = true
	}

	return &FileWatcher{
		watcher:       watcher,
		logger:        logger,
		onChange:      onChange,
		exts:          set,
		debounceDelay: DefaultDebounce,
		pending:       make(map[string]struct{}),
		done:          make(chan struct{}),
	}, nil
}

// SetDebounce changes the debounce window; call before Start
func (fw *FileWatcher) SetDebounce(d time.Duration) {
	fw.debounceDelay = d
}

// AddWatchPath watches root and every directory below it
func (fw *FileWatcher) AddWatchPath(root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(info.Name(), ".") {
			return filepath.SkipDir
		}
		if err := fw.watcher.Add(path); err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
		fw.logger.Debug("Watching directory", zap.String("path", path))
		return nil
	})
}

// Start runs the event loop until ctx is done or Close is called
func (fw *FileWatcher) Start(ctx context.Context) {
	go fw.watchLoop(ctx)
}

// Close stops the watcher and drops pending events
func (fw *FileWatcher) Close() error {
	var err error
	fw.once.Do(func() {
		close(fw.done)
		fw.mu.Lock()
		if fw.timer != nil {
			fw.timer.Stop()
		}
		fw.mu.Unlock()
		err = fw.watcher.Close()
	})
	return err
}

func (fw *FileWatcher) watchLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			_ = fw.Close()
			return
		case <-fw.done:
			return
		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			fw.handleEvent(event)
		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			fw.logger.Warn("File watcher error", zap.Error(err))
		}
	}
}

func (fw *FileWatcher) handleEvent(event fsnotify.Event) {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}
	if !fw.matches(event.Name) {
		return
	}

	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := fw.AddWatchPath(event.Name); err != nil {
				fw.logger.Warn("Failed to watch new directory", zap.String("path", event.Name), zap.Error(err))
			}
			return
		}
	}

	fw.mu.Lock()
	defer fw.mu.Unlock()

	fw.pending[event.Name] = struct{}{}
	if fw.timer != nil {
		fw.timer.Stop()
	}
	fw.timer = time.AfterFunc(fw.debounceDelay, fw.flush)
}

func (fw *FileWatcher) flush() {
	fw.mu.Lock()
	paths := make([]string, 0, len(fw.pending))
	for p := range fw.pending {
		paths = append(paths, p)
	}
	fw.pending = make(map[string]struct{})
	fw.timer = nil
	fw.mu.Unlock()

	select {
	case <-fw.done:
		return
	default:
	}
	if len(paths) == 0 {
		return
	}

	sort.Strings(paths)
	fw.logger.Info("Files changed", zap.Strings("paths", paths))
	fw.onChange(paths)
}

func (fw *FileWatcher) matches(path string) bool {
	base := filepath.Base(path)
	if strings.HasSuffix(base, "~") || strings.HasSuffix(base, ".tmp") || strings.HasPrefix(base, ".") {
		return false
	}
	if len(fw.exts) == 0 {
		return true
	}
	// directories have no extension and must pass so new ones get watched
	ext := strings.ToLower(filepath.Ext(base))
	return ext == "" || fw.exts[ext]
}
