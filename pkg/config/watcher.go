package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/papercomputeco/reel/pkg/logger"
)

// DefaultDebounce is how long the watcher waits after the last write event
// before reloading. Editors and atomic-save tools emit bursts of events for
// one logical save.
const DefaultDebounce = 500 * time.Millisecond

// WatcherConfig holds configuration for the config watcher.
type WatcherConfig struct {
	// Debounce duration to avoid multiple rapid reloads. Zero means
	// DefaultDebounce.
	Debounce time.Duration

	// OnChange is called with the freshly parsed config after each reload.
	OnChange func(newConfig *Config) error

	// OnError is called when a reload or the underlying watcher fails.
	OnError func(error)

	// Logger defaults to a no-op logger when nil.
	Logger *slog.Logger
}

// Watcher monitors config.toml for changes and delivers validated reloads.
type Watcher struct {
	configPath string
	cfg        WatcherConfig
	watcher    *fsnotify.Watcher
	logger     *slog.Logger

	mu        sync.Mutex
	debouncer *time.Timer

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewWatcher creates a watcher for the config file at configPath.
func NewWatcher(configPath string, cfg WatcherConfig) (*Watcher, error) {
	absPath, err := filepath.Abs(configPath)
	if err != nil {
		return nil, fmt.Errorf("resolving config path: %w", err)
	}

	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	log := cfg.Logger
	if log == nil {
		log = logger.Nop()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating file watcher: %w", err)
	}

	w := &Watcher{
		configPath: absPath,
		cfg:        cfg,
		watcher:    fsw,
		logger:     log.With("component", "config-watcher"),
		stopCh:     make(chan struct{}),
	}

	if err := fsw.Add(absPath); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watching config file: %w", err)
	}

	// Watching the directory too catches atomic saves, where the editor
	// renames a temp file over the original.
	dir := filepath.Dir(absPath)
	if err := fsw.Add(dir); err != nil {
		w.logger.Warn("failed to watch config directory", "dir", dir, "error", err)
	}

	return w, nil
}

// Path returns the absolute path of the watched config file.
func (w *Watcher) Path() string {
	return w.configPath
}

// Start begins watching for configuration changes.
func (w *Watcher) Start() {
	w.wg.Add(1)
	go w.watchLoop()
	w.logger.Debug("config watcher started", "file", w.configPath)
}

// Stop stops the watcher. Any pending debounced reload is cancelled.
func (w *Watcher) Stop() error {
	close(w.stopCh)
	w.wg.Wait()

	w.mu.Lock()
	if w.debouncer != nil {
		w.debouncer.Stop()
	}
	w.mu.Unlock()

	return w.watcher.Close()
}

func (w *Watcher) watchLoop() {
	defer w.wg.Done()

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("file watcher error", "error", err)
			if w.cfg.OnError != nil {
				w.cfg.OnError(fmt.Errorf("watcher error: %w", err))
			}

		case <-w.stopCh:
			return
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Name != w.configPath {
		// Directory noise or a temp file.
		return
	}

	switch {
	case event.Op.Has(fsnotify.Write), event.Op.Has(fsnotify.Create):
		w.scheduleReload()

	case event.Op.Has(fsnotify.Remove):
		w.logger.Warn("config file removed", "file", event.Name)
		// Re-add so a recreated file is picked up again.
		_ = w.watcher.Add(event.Name)

	case event.Op.Has(fsnotify.Rename):
		// Atomic save: the watch followed the renamed-away inode.
		_ = w.watcher.Add(w.configPath)
		w.scheduleReload()
	}
}

// scheduleReload debounces reload requests.
func (w *Watcher) scheduleReload() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.debouncer != nil {
		w.debouncer.Stop()
	}

	w.debouncer = time.AfterFunc(w.cfg.Debounce, func() {
		if err := w.reload(); err != nil {
			w.logger.Error("config reload failed", "error", err)
			if w.cfg.OnError != nil {
				w.cfg.OnError(err)
			}
		}
	})
}

func (w *Watcher) reload() error {
	data, err := os.ReadFile(w.configPath)
	if err != nil {
		return fmt.Errorf("reading config: %w", err)
	}

	// ParseConfigTOML validates, so OnChange only ever sees usable configs.
	cfg, err := ParseConfigTOML(data)
	if err != nil {
		return err
	}

	if w.cfg.OnChange != nil {
		if err := w.cfg.OnChange(cfg); err != nil {
			return fmt.Errorf("applying config: %w", err)
		}
	}

	w.logger.Debug("config reloaded", "file", w.configPath)
	return nil
}
