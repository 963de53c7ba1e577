package config

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
)

const reloadDebounce = 500 * time.Millisecond

// Watcher follows the .env file and reports LOG_LEVEL changes.
// Only the log level is reloadable; everything else needs a restart.
type Watcher struct {
	path     string
	logger   *slog.Logger
	watcher  *fsnotify.Watcher
	onChange func(level string)

	mu      sync.Mutex
	current string
	timer   *time.Timer

	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// NewWatcher starts watching the directory of envFile. Editors often replace
// files on save, so the directory is watched and events are filtered by name.
func NewWatcher(envFile, currentLevel string, onChange func(level string), logger *slog.Logger) (*Watcher, error) {
	abs, err := filepath.Abs(envFile)
	if err != nil {
		return nil, fmt.Errorf("resolve env file: %w", err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := fsw.Add(filepath.Dir(abs)); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", filepath.Dir(abs), err)
	}

	w := &Watcher{
		path:     abs,
		logger:   logger,
		watcher:  fsw,
		onChange: onChange,
		current:  strings.ToLower(currentLevel),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
	go w.loop()

	logger.Info("watching env file for log level changes", "path", abs)
	return w, nil
}

func (w *Watcher) loop() {
	defer close(w.doneCh)
	defer w.watcher.Close()

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.mu.Lock()
			if w.timer != nil {
				w.timer.Stop()
			}
			w.timer = time.AfterFunc(reloadDebounce, w.reload)
			w.mu.Unlock()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("env file watcher error", "error", err)

		case <-w.stopCh:
			return
		}
	}
}

func (w *Watcher) reload() {
	values, err := godotenv.Read(w.path)
	if err != nil {
		w.logger.Warn("failed to re-read env file", "path", w.path, "error", err)
		return
	}

	level := strings.ToLower(values["LOG_LEVEL"])
	if level == "" {
		return
	}
	if !ValidLogLevel(level) {
		w.logger.Warn("ignoring invalid LOG_LEVEL from env file", "level", level)
		return
	}

	w.mu.Lock()
	changed := level != w.current
	w.current = level
	w.mu.Unlock()

	if changed {
		w.logger.Info("log level changed", "level", level)
		w.onChange(level)
	}
}

// Shutdown stops the watcher and waits for its goroutine to exit.
func (w *Watcher) Shutdown() error {
	w.stopOnce.Do(func() {
		close(w.stopCh)
		w.mu.Lock()
		if w.timer != nil {
			w.timer.Stop()
		}
		w.mu.Unlock()
	})
	<-w.doneCh
	return nil
}
