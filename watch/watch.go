// Package watch keeps an engine in sync with a document file, reopening it
// when the file is rewritten.
package watch

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/fsnotify/fsnotify"

	"github.com/wudi/pdfengine/engine"
	"github.com/wudi/pdfengine/observability"
)

type Options struct {
	// Debounce collapses bursts of write events. Default: 250ms.
	Debounce time.Duration
	// Attempts and Delay bound the retries of a reload while the file is
	// still being written. Defaults: 5 and 200ms.
	Attempts uint
	Delay    time.Duration
	Logger   observability.Logger
}

func (o Options) withDefaults() Options {
	if o.Debounce <= 0 {
		o.Debounce = 250 * time.Millisecond
	}
	if o.Attempts == 0 {
		o.Attempts = 5
	}
	if o.Delay <= 0 {
		o.Delay = 200 * time.Millisecond
	}
	if o.Logger == nil {
		o.Logger = observability.Default()
	}
	return o
}

// Reloader owns the current engine for a path. Engines returned by Engine
// are closed once a reload replaces them.
type Reloader struct {
	path string
	opts Options
	eng  []engine.Option

	mu        sync.RWMutex
	current   *engine.Engine
	callbacks []func(*engine.Engine)
}

// New opens path and returns a Reloader serving it.
func New(ctx context.Context, path string, opts Options, engineOpts ...engine.Option) (*Reloader, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("watch: %w", err)
	}
	e, err := engine.LoadFile(ctx, abs, engineOpts...)
	if err != nil {
		return nil, err
	}
	return &Reloader{path: abs, opts: opts.withDefaults(), eng: engineOpts, current: e}, nil
}

func (r *Reloader) Engine() *engine.Engine {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current
}

// OnReload registers a callback run after each successful reload.
func (r *Reloader) OnReload(fn func(*engine.Engine)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.callbacks = append(r.callbacks, fn)
}

// Reload reopens the file, retrying while it fails to parse. Password and
// cancellation errors are not retried. On failure the current engine stays.
func (r *Reloader) Reload(ctx context.Context) error {
	var next *engine.Engine
	err := retry.Do(
		func() error {
			e, err := engine.LoadFile(ctx, r.path, r.eng...)
			if err != nil {
				return err
			}
			next = e
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(r.opts.Attempts),
		retry.Delay(r.opts.Delay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(retryable),
		retry.OnRetry(func(n uint, err error) {
			r.opts.Logger.Debug("reload attempt failed",
				observability.String("file", r.path),
				observability.Int("attempt", int(n)+1),
				observability.Error("error", err))
		}),
	)
	if err != nil {
		r.opts.Logger.Warn("reload failed", observability.String("file", r.path), observability.Error("error", err))
		return err
	}

	r.mu.Lock()
	old := r.current
	r.current = next
	callbacks := make([]func(*engine.Engine), len(r.callbacks))
	copy(callbacks, r.callbacks)
	r.mu.Unlock()

	if old != nil {
		old.Close()
	}
	r.opts.Logger.Info("document reloaded",
		observability.String("file", r.path),
		observability.Int("pages", next.PageCount()))
	for _, fn := range callbacks {
		fn(next)
	}
	return nil
}

func retryable(err error) bool {
	switch {
	case errors.Is(err, engine.ErrAuthenticationFailed),
		errors.Is(err, engine.ErrAuthenticationCancelled),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return false
	}
	return true
}

// Run watches the file's directory until ctx is done. Editors often
// replace files instead of writing them, so create and rename events on
// the path count as changes too.
func (r *Reloader) Run(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	defer w.Close()
	if err := w.Add(filepath.Dir(r.path)); err != nil {
		return fmt.Errorf("watch: %s: %w", filepath.Dir(r.path), err)
	}

	timer := time.NewTimer(r.opts.Debounce)
	timer.Stop()
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != r.path || ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			timer.Reset(r.opts.Debounce)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			r.opts.Logger.Warn("file watcher error", observability.Error("error", err))
		case <-timer.C:
			r.Reload(ctx)
		}
	}
}

// Close closes the current engine.
func (r *Reloader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current == nil {
		return nil
	}
	err := r.current.Close()
	r.current = nil
	return err
}
