package phase

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/samber/oops"
)

// ConfigWatcher reloads a configuration file whenever it changes on disk
// and hands the result to a callback.
//
// The parent directory is watched rather than the file so that editors
// which replace the file on save keep triggering reloads. A file that
// fails to load is logged and the previous configuration stays live.
type ConfigWatcher struct {
	path     string
	onReload func(*Config)
	watcher  *fsnotify.Watcher
	log      *slog.Logger

	closeOnce sync.Once
}

// NewConfigWatcher creates a watcher for path.
func NewConfigWatcher(path string, onReload func(*Config), log *slog.Logger) (*ConfigWatcher, error) {
	if log == nil {
		log = slog.Default()
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, oops.Code(CodeConfigLoad).With("path", path).Wrap(err)
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, oops.Code(CodeConfigLoad).With("path", path).Wrapf(err, "phase: create watcher")
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		_ = w.Close()
		return nil, oops.Code(CodeConfigLoad).With("path", path).Wrapf(err, "phase: watch config dir")
	}
	return &ConfigWatcher{
		path:     abs,
		onReload: onReload,
		watcher:  w,
		log:      log,
	}, nil
}

// Start processes file events until ctx is done or the watcher is closed.
// It blocks.
func (c *ConfigWatcher) Start(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-c.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != c.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			c.reload()
		case err, ok := <-c.watcher.Errors:
			if !ok {
				return
			}
			c.log.Warn("phase: config watcher error", "path", c.path, "error", err)
		}
	}
}

func (c *ConfigWatcher) reload() {
	cfg, err := LoadConfig(c.path, nil)
	if err != nil {
		logError(c.log, "phase: config reload failed, keeping previous limits", err)
		return
	}
	c.log.Info("phase: config reloaded", "path", c.path)
	if c.onReload != nil {
		c.onReload(cfg)
	}
}

// Close stops the watcher. Start returns shortly after.
func (c *ConfigWatcher) Close() error {
	var err error
	c.closeOnce.Do(func() {
		err = c.watcher.Close()
	})
	return err
}
