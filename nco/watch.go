package nco

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const defaultWatchDebounce = 500 * time.Millisecond

// WatchOptions configures WatchLookup.
type WatchOptions struct {
	Debounce time.Duration
	// OnReload is called after every rebuild attempt.
	OnReload func(idx *EmbeddingIndex, err error)
	Logger   *slog.Logger
}

// LookupWatcher rebuilds the service index when the lookup file changes.
type LookupWatcher struct {
	watcher  *fsnotify.Watcher
	path     string
	debounce time.Duration
	onReload func(*EmbeddingIndex, error)
	logger   *slog.Logger
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	once     sync.Once
}

// WatchLookup starts watching path. The parent directory is watched so that
// editors replacing the file by rename are noticed.
func WatchLookup(ctx context.Context, svc *Service, path string, opts WatchOptions) (*LookupWatcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = defaultWatchDebounce
	}
	ctx, cancel := context.WithCancel(ctx)
	w := &LookupWatcher{
		watcher:  watcher,
		path:     abs,
		debounce: debounce,
		onReload: opts.OnReload,
		logger:   logger.With("component", "lookup-watcher"),
		cancel:   cancel,
	}
	w.wg.Add(1)
	go w.run(ctx, svc)
	w.logger.Info("watching lookup table", "path", abs)
	return w, nil
}

func (w *LookupWatcher) run(ctx context.Context, svc *Service) {
	defer w.wg.Done()
	var (
		timer   *time.Timer
		timerCh <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			timerCh = timer.C
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch error", "error", err)
		case <-timerCh:
			timerCh = nil
			idx, err := svc.LoadLookupFile(ctx, w.path)
			if err != nil {
				w.logger.Error("lookup reload failed", "path", w.path, "error", err)
			} else {
				w.logger.Info("lookup reloaded", "path", w.path, "entries", idx.Len())
			}
			if w.onReload != nil {
				w.onReload(idx, err)
			}
		}
	}
}

// Close stops the watcher and waits for the goroutine to exit.
func (w *LookupWatcher) Close() error {
	var err error
	w.once.Do(func() {
		w.cancel()
		err = w.watcher.Close()
		w.wg.Wait()
	})
	return err
}
