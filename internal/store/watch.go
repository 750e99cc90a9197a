package store

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// ─── Change Watching ─────────────────────────────────────────────────────────
//
// Views over the journal re-poll instead of subscribing to live queries.
// Watch tells them when to: it fires after the database files in the data
// directory change, which also covers writes made by another process (for
// example `aipjc write` while the TUI is open).

const watchDebounce = 250 * time.Millisecond

// Watch returns a channel that receives a value, coalesced, whenever the
// database files change. The channel is closed when ctx is done.
func (s *Store) Watch(ctx context.Context) (<-chan struct{}, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(s.cfg.DataDir); err != nil {
		w.Close()
		return nil, err
	}

	changes := make(chan struct{}, 1)
	go s.watchLoop(ctx, w, changes)
	return changes, nil
}

func (s *Store) watchLoop(ctx context.Context, w *fsnotify.Watcher, changes chan<- struct{}) {
	defer close(changes)
	defer w.Close()

	var pending bool
	timer := time.NewTimer(watchDebounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.Events:
			if !ok {
				return
			}
			if !strings.HasPrefix(filepath.Base(event.Name), dbFileName) {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if !pending {
				pending = true
				timer.Reset(watchDebounce)
			}

		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			s.logger.Warn("watch error", zap.Error(err))

		case <-timer.C:
			pending = false
			select {
			case changes <- struct{}{}:
			default:
			}
		}
	}
}
