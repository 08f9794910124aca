package shutdown

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
)

// Handler manages graceful shutdown. The first signal cancels the context
// and runs the cleanup functions; a second one exits immediately.
type Handler struct {
	ctx         context.Context
	cancel      context.CancelFunc
	cleanupFns  []func()
	mu          sync.Mutex
	once        sync.Once
	interrupted atomic.Bool

	// ForceExit is called on the second signal.
	ForceExit func()
}

// New creates a new shutdown handler
func New() *Handler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Handler{
		ctx:       ctx,
		cancel:    cancel,
		ForceExit: func() { os.Exit(130) },
	}
}

// Context returns the shutdown context
func (h *Handler) Context() context.Context {
	return h.ctx
}

// AddCleanup registers a cleanup function to be called on shutdown
func (h *Handler) AddCleanup(fn func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.cleanupFns = append(h.cleanupFns, fn)
}

// Interrupted reports whether a signal was received.
func (h *Handler) Interrupted() bool {
	return h.interrupted.Load()
}

// Listen starts listening for shutdown signals
func (h *Handler) Listen() {
	sigChan := make(chan os.Signal, 2)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		h.interrupted.Store(true)
		h.Shutdown()

		<-sigChan
		h.ForceExit()
	}()
}

// Shutdown cancels the context and runs the cleanup functions once
func (h *Handler) Shutdown() {
	h.once.Do(func() {
		h.cancel()

		h.mu.Lock()
		fns := h.cleanupFns
		h.mu.Unlock()

		for _, fn := range fns {
			fn()
		}
	})
}
