package hyprland

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ///////////////////////////////////////////////
// Watcher
// ///////////////////////////////////////////////

// Watcher reports when a Hyprland request socket disappears, which happens
// once the compositor has exited. It uses fsnotify on the instance directory
// with a polling fallback.
type Watcher struct {
	socket string
	// gone is closed once the socket no longer exists.
	gone     chan struct{}
	goneOnce sync.Once
	// done is closed by [Watcher.Close].
	done      chan struct{}
	closeOnce sync.Once

	// fsw is nil while polling.
	fsw          *fsnotify.Watcher
	polling      atomic.Bool
	pollInterval time.Duration
}

// NewWatcher starts watching socket. If the socket is already missing the
// returned watcher reports it as gone immediately.
func NewWatcher(socket string) (*Watcher, error) {
	w := &Watcher{
		socket:       socket,
		gone:         make(chan struct{}),
		done:         make(chan struct{}),
		pollInterval: 100 * time.Millisecond,
	}

	dir := filepath.Dir(socket)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		w.markGone()
		return w, nil
	}

	fsw, err := fsnotify.NewWatcher()
	if err == nil {
		if err = fsw.Add(dir); err != nil {
			fsw.Close()
		}
	}
	if err != nil {
		w.fallback("cannot watch instance directory", err)
		return w, nil
	}
	w.fsw = fsw

	// The socket may have vanished between the stat above and Add.
	if !w.exists() {
		w.markGone()
		return w, nil
	}

	go w.watch()
	return w, nil
}

// Gone returns a channel that is closed once the socket has disappeared.
func (w *Watcher) Gone() <-chan struct{} {
	return w.gone
}

// Polling reports whether the watcher is using polling instead of fsnotify.
func (w *Watcher) Polling() bool {
	return w.polling.Load()
}

// Close stops the watcher and releases resources.
func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.done)
		if w.fsw != nil {
			if closeErr := w.fsw.Close(); closeErr != nil {
				err = fmt.Errorf("closing fsnotify watcher: %w", closeErr)
			}
		}
	})
	return err
}

// watch loops over fsnotify events on the instance directory. A remove or
// rename of the socket, or of the directory itself, marks the socket gone.
// If fsnotify reports an error, watch switches to [Watcher.poll].
func (w *Watcher) watch() {
	dir := filepath.Dir(w.socket)
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			if event.Name == w.socket || event.Name == dir {
				w.markGone()
				return
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			// fsnotify's Close is idempotent, so Close may call it again.
			w.fsw.Close()
			w.fallback("fsnotify error", err)
			return
		}
	}
}

// fallback switches the watcher to stat-based polling.
func (w *Watcher) fallback(reason string, err error) {
	if err != nil {
		slog.Debug(reason+", polling for socket removal", "socket", w.socket, "error", err)
	}
	w.polling.Store(true)
	go w.poll()
}

// poll stats the socket periodically until it is gone or the watcher closes.
func (w *Watcher) poll() {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		if !w.exists() {
			w.markGone()
			return
		}
		select {
		case <-w.done:
			return
		case <-ticker.C:
		}
	}
}

// exists reports whether the socket path is still present.
func (w *Watcher) exists() bool {
	_, err := os.Lstat(w.socket)
	return !os.IsNotExist(err)
}

// markGone closes the gone channel once.
func (w *Watcher) markGone() {
	w.goneOnce.Do(func() { close(w.gone) })
}

// ///////////////////////////////////////////////
// WaitGone
// ///////////////////////////////////////////////

// WaitGone blocks until socket disappears, ctx is done, or timeout elapses.
// A timeout of zero or less waits only on ctx.
func WaitGone(ctx context.Context, socket string, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	w, err := NewWatcher(socket)
	if err != nil {
		return err
	}
	defer w.Close()

	select {
	case <-w.Gone():
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for %s to disappear: %w", socket, ctx.Err())
	}
}
