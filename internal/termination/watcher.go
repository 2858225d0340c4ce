package termination

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
)

// DefaultTimeout bounds all callbacks of one termination.
const DefaultTimeout = 30 * time.Second

// Callback is invoked once on termination.
type Callback func(ctx context.Context)

type entry struct {
	name string
	fn   Callback
}

// Watcher owns the signal subscription and the registered callbacks.
type Watcher struct {
	mu        sync.Mutex
	callbacks []entry
	fired     bool
	started   bool

	timeout time.Duration
	log     *slog.Logger
	exit    func(code int)

	sigCh    chan os.Signal
	stopCh   chan struct{}
	doneCh   chan struct{}
	startOne sync.Once
	stopOne  sync.Once
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithTimeout bounds the callbacks of one termination. Non-positive values
// keep DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.timeout = d
		}
	}
}

// WithExit replaces os.Exit.
func WithExit(exit func(code int)) Option {
	return func(w *Watcher) {
		if exit != nil {
			w.exit = exit
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(w *Watcher) {
		if l != nil {
			w.log = l
		}
	}
}

// New creates a stopped Watcher. Call Start to subscribe to signals.
func New(opts ...Option) *Watcher {
	w := &Watcher{
		timeout: DefaultTimeout,
		log:     slog.Default(),
		exit:    os.Exit,
		sigCh:   make(chan os.Signal, 1),
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Register adds a callback. Callbacks registered after termination started
// are ignored.
func (w *Watcher) Register(name string, fn func(ctx context.Context)) {
	if fn == nil {
		panic("k8sproject: termination callback must not be nil")
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.fired {
		w.log.Debug("termination in progress, ignoring callback", "callback", name)
		return
	}
	w.callbacks = append(w.callbacks, entry{name: name, fn: fn})
}

// Start subscribes to SIGINT and SIGTERM. It is idempotent.
func (w *Watcher) Start() {
	w.startOne.Do(func() {
		w.mu.Lock()
		w.started = true
		w.mu.Unlock()
		signal.Notify(w.sigCh, syscall.SIGINT, syscall.SIGTERM)
		go w.loop()
	})
}

// Stop unsubscribes from signals without running callbacks. It waits for an
// in-progress termination to finish.
func (w *Watcher) Stop() {
	w.stopOne.Do(func() {
		signal.Stop(w.sigCh)
		close(w.stopCh)
	})
	w.mu.Lock()
	started := w.started
	w.mu.Unlock()
	if started {
		<-w.doneCh
	}
}

func (w *Watcher) loop() {
	defer close(w.doneCh)
	select {
	case sig := <-w.sigCh:
		code := 1
		if s, ok := sig.(syscall.Signal); ok {
			code = 128 + int(s)
		}
		w.log.Info("received termination signal, running cleanup", "signal", sig.String())
		w.Fire()
		signal.Stop(w.sigCh)
		w.exit(code)
	case <-w.stopCh:
	}
}

// Fire runs every registered callback once, newest first. Later calls do
// nothing.
func (w *Watcher) Fire() {
	w.mu.Lock()
	if w.fired {
		w.mu.Unlock()
		return
	}
	w.fired = true
	callbacks := w.callbacks
	w.callbacks = nil
	w.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()

	for i := len(callbacks) - 1; i >= 0; i-- {
		cb := callbacks[i]
		done := make(chan struct{})
		go func() {
			defer close(done)
			defer func() {
				if r := recover(); r != nil {
					w.log.Error("termination callback panicked", "callback", cb.name, "panic", r)
				}
			}()
			cb.fn(ctx)
		}()
		select {
		case <-done:
			w.log.Debug("termination callback finished", "callback", cb.name)
		case <-ctx.Done():
			w.log.Warn("termination callbacks timed out", "callback", cb.name, "timeout", w.timeout)
			return
		}
	}
}
