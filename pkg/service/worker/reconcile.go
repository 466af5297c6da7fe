package worker

import (
	"context"
	"time"

	"github.com/secmon-lab/bambooslack/pkg/utils/logging"
)

// DefaultInterval is the period between reconciliation ticks
const DefaultInterval = 600 * time.Second

// Reconciler runs one reconciliation tick over every organization
type Reconciler interface {
	Run(ctx context.Context) error
}

// ReconcileWorker drives Reconciler on a fixed interval
//
// Architecture assumptions:
// - Single server instance (no distributed locking)
// - Ticks run on one goroutine, so they never overlap; a tick that overruns
//   the interval delays the next one
type ReconcileWorker struct {
	reconciler Reconciler
	interval   time.Duration
	stopCh     chan struct{}
	doneCh     chan struct{}
}

// NewReconcileWorker creates a new worker. A non-positive interval means DefaultInterval.
func NewReconcileWorker(reconciler Reconciler, interval time.Duration) *ReconcileWorker {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &ReconcileWorker{
		reconciler: reconciler,
		interval:   interval,
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),
	}
}

// Start begins the background loop
// - The first tick runs immediately in the background goroutine
// - Does not block server startup
func (w *ReconcileWorker) Start(ctx context.Context) error {
	logging.Default().Info("Reconcile worker starting",
		"interval", w.interval.String())

	go w.run(ctx)

	return nil
}

// Stop signals the worker to stop and waits for the in-flight tick
func (w *ReconcileWorker) Stop() {
	logging.Default().Info("Reconcile worker stopping")
	close(w.stopCh)
	<-w.doneCh
	logging.Default().Info("Reconcile worker stopped")
}

// run is the main worker loop (runs in goroutine)
func (w *ReconcileWorker) run(ctx context.Context) {
	defer close(w.doneCh)

	w.tick(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.tick(ctx)

		case <-w.stopCh:
			logging.Default().Info("Reconcile worker received stop signal")
			return

		case <-ctx.Done():
			logging.Default().Info("Reconcile worker context cancelled")
			return
		}
	}
}

func (w *ReconcileWorker) tick(ctx context.Context) {
	startTime := time.Now()

	if err := w.reconciler.Run(ctx); err != nil {
		// Log error but continue worker
		logging.Default().Error("Reconciliation failed (will retry next interval)",
			"error", err.Error())
		return
	}

	logging.Default().Info("Reconciliation tick completed",
		"duration", time.Since(startTime).String())
}
