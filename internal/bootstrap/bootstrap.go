// Package bootstrap provides application lifecycle helpers and wires the study engine from configuration.
package bootstrap

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/at-ishikawa/conceptdeck/internal/logging"
)

// DefaultShutdownTimeout bounds the time shutdown hooks get after a signal.
const DefaultShutdownTimeout = 10 * time.Second

// App manages application lifecycle with graceful shutdown support.
type App struct {
	mu              sync.Mutex
	hooks           []func(ctx context.Context) error
	shutdownTimeout time.Duration
	logger          *zap.Logger
}

// New creates a new App.
func New(logger *zap.Logger) *App {
	return &App{
		shutdownTimeout: DefaultShutdownTimeout,
		logger:          logging.OrNop(logger),
	}
}

// AddShutdownHook registers a function to call during graceful shutdown.
// Hooks run in reverse order (LIFO). Thread-safe.
func (a *App) AddShutdownHook(fn func(ctx context.Context) error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.hooks = append(a.hooks, fn)
}

// Run sets up signal handling and executes the run function.
// On interrupt or SIGTERM, it calls registered shutdown hooks in LIFO order.
// If run returns before a signal, its error is returned and the hooks still run.
func (a *App) Run(ctx context.Context, run func(ctx context.Context) error) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		if err := run(ctx); err != nil {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutting down")
		return a.Shutdown()
	case err := <-errCh:
		return errors.Join(err, a.Shutdown())
	}
}

// Shutdown runs the registered hooks once; later calls are no-ops.
func (a *App) Shutdown() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
	defer cancel()

	var errs []error
	for i := len(a.hooks) - 1; i >= 0; i-- {
		if err := a.hooks[i](ctx); err != nil {
			a.logger.Warn("shutdown hook failed", zap.Error(err))
			errs = append(errs, err)
		}
	}
	a.hooks = nil
	return errors.Join(errs...)
}
