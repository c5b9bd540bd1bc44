package params

import (
	"context"
	"path/filepath"

	"carprice/ml"
	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher calls OnChange with freshly loaded coefficients whenever the file
// behind a store is written, replaced or removed.
type Watcher struct {
	path     string
	store    ml.ParameterStore
	logger   *zap.Logger
	onChange func(ml.Coefficients)
	watcher  *fsnotify.Watcher
}

// NewWatcher watches the directory holding path, since Save replaces the file by rename.
func NewWatcher(path string, store ml.ParameterStore, logger *zap.Logger, onChange func(ml.Coefficients)) (*Watcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		fw.Close()
		return nil, err
	}
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		fw.Close()
		return nil, err
	}
	return &Watcher{
		path:     abs,
		store:    store,
		logger:   logger,
		onChange: onChange,
		watcher:  fw,
	}, nil
}

// Run blocks until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			c, err := w.store.Load()
			if err != nil {
				w.logger.Warn("reload parameters failed", zap.String("path", w.path), zap.Error(err))
				continue
			}
			w.logger.Debug("parameters reloaded", zap.Float64("theta0", c.Theta0), zap.Float64("theta1", c.Theta1))
			w.onChange(c)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("parameter watcher error", zap.Error(err))
		}
	}
}
