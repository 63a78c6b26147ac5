package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/GabrieleRisso/qvm-remote/internal/audit"
	"github.com/fsnotify/fsnotify"
)

// Watcher reloads a Config from disk whenever the file's mtime
// advances. It watches the containing directory rather than the file
// itself, since fsnotify loses the watch when an editor replaces the
// file via rename.
type Watcher struct {
	path    string
	watcher *fsnotify.Watcher
	audit   *audit.Logger

	mu       sync.RWMutex
	cfg      Config
	lastMod  time.Time
	onReload []func(Config)

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewWatcher loads path once and returns a Watcher ready to be
// started. a receives warnings about the config file (unrecognised
// keys, failed reloads); it may be nil.
func NewWatcher(path string, a *audit.Logger) (*Watcher, error) {
	cfg, err := Load(path, a)
	if err != nil {
		return nil, err
	}
	mod, _ := mtime(path)

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create config watcher: %w", err)
	}

	return &Watcher{path: path, watcher: fsw, audit: a, cfg: cfg, lastMod: mod}, nil
}

// Start begins watching the config directory in the background.
func (w *Watcher) Start(ctx context.Context) error {
	dir := filepath.Dir(w.path)
	if err := w.watcher.Add(dir); err != nil {
		return fmt.Errorf("watch config directory %s: %w", dir, err)
	}

	ctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.loop(ctx)
	}()
	return nil
}

// Stop halts the background watch and releases the inotify handle.
func (w *Watcher) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
	_ = w.watcher.Close()
	w.wg.Wait()
}

// Current returns the most recently loaded Config.
func (w *Watcher) Current() Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.cfg
}

// OnReload registers a callback invoked after a successful reload.
func (w *Watcher) OnReload(fn func(Config)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onReload = append(w.onReload, fn)
}

func (w *Watcher) loop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			w.maybeReload()
		case _, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
		}
	}
}

// maybeReload re-parses the config file, but only if its mtime has
// actually advanced — an fsnotify event that fires without content
// changing (e.g. a chmod) is a no-op.
func (w *Watcher) maybeReload() {
	mod, err := mtime(w.path)
	if err != nil {
		return
	}
	w.mu.RLock()
	unchanged := !mod.After(w.lastMod)
	w.mu.RUnlock()
	if unchanged {
		return
	}

	cfg, err := Load(w.path, w.audit)
	if err != nil {
		if w.audit != nil {
			w.audit.Log(audit.ErrorK, audit.F("reason", "config reload failed"), audit.F("path", w.path), audit.F("error", err.Error()))
		}
		return
	}

	w.mu.Lock()
	w.cfg = cfg
	w.lastMod = mod
	callbacks := make([]func(Config), len(w.onReload))
	copy(callbacks, w.onReload)
	w.mu.Unlock()

	for _, cb := range callbacks {
		cb(cfg)
	}
}

func mtime(path string) (time.Time, error) {
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}, err
	}
	return info.ModTime(), nil
}
