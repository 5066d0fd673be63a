package reconciler

import (
	"context"
	"sync"
	"time"

	"github.com/emberwick/storefront/internal/config"
	"github.com/emberwick/storefront/internal/logger"
	"github.com/emberwick/storefront/internal/service"
	"go.uber.org/fx"
)

const defaultInterval = 5 * time.Minute

// Worker periodically sweeps pending orders whose webhook never arrived
type Worker struct {
	cfg     config.ReconcilerConfig
	svc     service.ReconcileService
	logger  *logger.Logger
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	runOnce chan struct{}
}

func NewWorker(cfg *config.Configuration, svc service.ReconcileService, logger *logger.Logger) *Worker {
	return &Worker{
		cfg:     cfg.Reconciler,
		svc:     svc,
		logger:  logger,
		runOnce: make(chan struct{}, 1),
	}
}

// RegisterHooks ties the worker to the application lifecycle
func RegisterHooks(lc fx.Lifecycle, w *Worker) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			w.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return w.Stop(ctx)
		},
	})
}

func (w *Worker) interval() time.Duration {
	if w.cfg.Interval <= 0 {
		return defaultInterval
	}
	return w.cfg.Interval
}

// Start launches the sweep loop. It is a no-op when the reconciler is disabled.
func (w *Worker) Start() {
	if !w.cfg.Enabled {
		w.logger.Infow("stale order sweeper disabled")
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.run(ctx)
	}()
	w.logger.Infow("stale order sweeper started", "interval", w.interval())
}

// Stop cancels the loop and waits for an in-flight sweep to finish
func (w *Worker) Stop(ctx context.Context) error {
	if w.cancel == nil {
		return nil
	}
	w.cancel()

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		w.logger.Infow("stale order sweeper stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Trigger asks the loop for a sweep without waiting for the next tick
func (w *Worker) Trigger() {
	select {
	case w.runOnce <- struct{}{}:
	default:
	}
}

func (w *Worker) run(ctx context.Context) {
	ticker := time.NewTicker(w.interval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.sweep(ctx)
		case <-w.runOnce:
			w.sweep(ctx)
		}
	}
}

func (w *Worker) sweep(ctx context.Context) {
	result, err := w.svc.SweepStalePending(ctx)
	if err != nil {
		w.logger.Errorw("stale order sweep failed", "error", err)
		return
	}
	if result.Checked > 0 {
		w.logger.Debugw("stale order sweep complete",
			"checked", result.Checked,
			"applied", result.Applied,
		)
	}
}
