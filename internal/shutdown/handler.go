package shutdown

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// Handler cancels a context on SIGINT/SIGTERM and runs cleanup functions
// once, most recently added first. A second signal exits immediately.
type Handler struct {
	ctx        context.Context
	cancel     context.CancelFunc
	cleanupFns []func()
	mu         sync.Mutex
	once       sync.Once
	exit       func(code int)
}

// New creates a new shutdown handler
func New() *Handler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Handler{
		ctx:    ctx,
		cancel: cancel,
		exit:   os.Exit,
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

// Listen starts listening for shutdown signals
func (h *Handler) Listen() {
	sigChan := make(chan os.Signal, 2)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	h.watch(sigChan)
}

func (h *Handler) watch(sigChan <-chan os.Signal) {
	go func() {
		<-sigChan
		// the work loop sees the cancelled context and returns on its own
		h.cancel()

		<-sigChan
		h.Shutdown()
		h.exit(130)
	}()
}

// Shutdown cancels the context and runs the cleanup functions. Safe to call
// more than once; cleanups run only the first time.
func (h *Handler) Shutdown() {
	h.cancel()

	h.once.Do(func() {
		h.mu.Lock()
		fns := h.cleanupFns
		h.mu.Unlock()

		for i := len(fns) - 1; i >= 0; i-- {
			fns[i]()
		}
	})
}
