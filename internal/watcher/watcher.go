// Package watcher reloads the configuration file into a store whenever it
// changes on disk. Events are debounced and checked against a content hash,
// since editors and atomic-rename writers emit several events per save.
package watcher

import (
	"context"
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/aias-labs/aias/internal/config"
)

// DebounceInterval is the delay after an fsnotify event before the file is
// re-read.
const DebounceInterval = 100 * time.Millisecond

// Watcher watches one configuration file and swaps valid reloads into the
// store. Invalid contents are logged and the previous snapshot kept.
type Watcher struct {
	path      string
	overrides config.Overrides
	store     *config.Store
	logger    *zap.Logger
	debounce  time.Duration
	lastHash  [sha256.Size]byte
}

// Option configures Watcher behaviour.
type Option func(*Watcher)

// WithDebounce overrides the debounce interval, primarily for tests.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithOverrides carries CLI flag overrides into every reload, so a flag
// such as --model keeps its precedence over file values after the first
// change.
func WithOverrides(overrides *config.Overrides) Option {
	return func(w *Watcher) {
		if overrides != nil {
			w.overrides = *overrides
		}
	}
}

// New creates a watcher for the configuration file at path.
func New(path string, store *config.Store, logger *zap.Logger, opts ...Option) *Watcher {
	w := &Watcher{
		path:     path,
		store:    store,
		logger:   logger,
		debounce: DebounceInterval,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run blocks watching the file until ctx is cancelled. The parent directory
// is watched rather than the file itself, because editors and atomic writers
// replace the file and a watch on the old inode would go stale.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer func() {
		_ = fw.Close()
	}()

	dir := filepath.Dir(w.path)
	if err := fw.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	if data, err := os.ReadFile(w.path); err == nil {
		w.lastHash = sha256.Sum256(data)
	}

	w.logger.Info("watching config file", zap.String("path", w.path))

	base := filepath.Base(w.path)
	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Base(ev.Name) != base {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				timerC = timer.C
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}

		case <-timerC:
			w.reload()

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", zap.Error(err))
		}
	}
}

// reload re-reads the file and swaps the snapshot when the content changed
// and still loads cleanly.
func (w *Watcher) reload() {
	data, err := os.ReadFile(w.path)
	if err != nil {
		w.logger.Warn("config file unreadable, keeping previous snapshot",
			zap.String("path", w.path), zap.Error(err))
		return
	}

	hash := sha256.Sum256(data)
	if hash == w.lastHash {
		return
	}
	w.lastHash = hash

	overrides := w.overrides
	overrides.ConfigFile = w.path
	cfg, err := config.Load(&overrides)
	if err != nil {
		w.logger.Warn("config change rejected, keeping previous snapshot",
			zap.String("path", w.path), zap.Error(err))
		return
	}

	w.store.Replace(cfg)
	w.logger.Info("config reloaded",
		zap.String("path", w.path),
		zap.String("model", cfg.Model))
}
