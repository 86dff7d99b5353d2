package config

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/fumiya-kume/repaircoord/pkg/logger"
)

// DefaultDebounceDelay collapses bursts of write events into one reload
const DefaultDebounceDelay = 500 * time.Millisecond

// ChangeCallback is called after a changed file has been loaded and validated
type ChangeCallback func(oldConfig, newConfig *Config) error

// Watcher reloads a configuration file whenever it changes on disk. Invalid
// edits are logged and the previous configuration stays active.
type Watcher struct {
	mu        sync.RWMutex
	path      string
	current   *Config
	callbacks []ChangeCallback
	version   int
	debounce  time.Duration

	watcher *fsnotify.Watcher
	timer   *time.Timer
	done    chan struct{}
	wg      sync.WaitGroup
	logger  *logger.Logger
}

// NewWatcher creates a watcher for path, starting from initial
func NewWatcher(path string, initial *Config) *Watcher {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return &Watcher{
		path:     path,
		current:  initial,
		debounce: DefaultDebounceDelay,
		logger:   logger.GetLogger().WithPrefix("config"),
	}
}

// SetDebounce changes the quiet period before a reload
func (w *Watcher) SetDebounce(d time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if d > 0 {
		w.debounce = d
	}
}

// OnChange registers a callback for successful reloads
func (w *Watcher) OnChange(callback ChangeCallback) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callbacks = append(w.callbacks, callback)
}

// Current returns the active configuration
func (w *Watcher) Current() *Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// Version counts successful reloads
func (w *Watcher) Version() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.version
}

// Reload reads the file now, swaps the configuration in and notifies callbacks
func (w *Watcher) Reload() error {
	config, err := NewLoader(w.path).LoadConfig()
	if err != nil {
		return err
	}

	w.mu.Lock()
	old := w.current
	w.current = config
	w.version++
	version := w.version
	callbacks := append([]ChangeCallback(nil), w.callbacks...)
	w.mu.Unlock()

	for _, callback := range callbacks {
		if err := callback(old, config); err != nil {
			w.logger.Error("Configuration change callback failed (error: %v)", err)
		}
	}

	w.logger.Info("Configuration reloaded (file: %s, version: %d)", w.path, version)
	return nil
}

// Start begins watching. The directory is watched rather than the file so that
// editors that replace the file on save are still seen.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.watcher != nil {
		return fmt.Errorf("config watcher already started")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(w.path)); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("failed to watch configuration directory %s: %w", filepath.Dir(w.path), err)
	}

	w.watcher = watcher
	w.done = make(chan struct{})
	w.wg.Add(1)
	go w.watchConfigChanges(watcher, w.done)

	w.logger.Info("Configuration hot reload started (file: %s)", w.path)
	return nil
}

// Stop ends watching and cancels any pending reload
func (w *Watcher) Stop() error {
	w.mu.Lock()
	watcher := w.watcher
	w.watcher = nil
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	if w.done != nil {
		close(w.done)
		w.done = nil
	}
	w.mu.Unlock()

	if watcher == nil {
		return nil
	}
	err := watcher.Close()
	w.wg.Wait()

	w.logger.Info("Configuration hot reload stopped")
	return err
}

func (w *Watcher) watchConfigChanges(watcher *fsnotify.Watcher, done <-chan struct{}) {
	defer w.wg.Done()

	for {
		select {
		case <-done:
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			w.schedule()

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("Configuration watcher error (error: %v)", err)
		}
	}
}

func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.watcher == nil {
		return
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		w.logger.Info("Configuration file changed, reloading (file: %s)", w.path)
		if err := w.Reload(); err != nil {
			w.logger.Error("Failed to reload configuration, keeping previous (error: %v)", err)
		}
	})
}
