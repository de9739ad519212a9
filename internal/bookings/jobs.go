package bookings

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"eventhub/pkg/logger"
)

// JobProcessor runs the attended-events reconciliation in the background
type JobProcessor struct {
	service  Service
	interval time.Duration
	logger   *logger.Logger
	done     chan struct{}
	once     sync.Once
	wg       sync.WaitGroup
}

// NewJobProcessor creates a new job processor
func NewJobProcessor(service Service, interval time.Duration, l *logger.Logger) *JobProcessor {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	return &JobProcessor{
		service:  service,
		interval: interval,
		logger:   l,
		done:     make(chan struct{}),
	}
}

// Start runs one pass immediately and then one per interval
func (jp *JobProcessor) Start(ctx context.Context) {
	jp.logger.Info("Starting reconciliation job", slog.Duration("interval", jp.interval))

	jp.wg.Add(1)
	go func() {
		defer jp.wg.Done()
		jp.runReconciler(ctx)
	}()
}

// Stop stops the job and waits for the current pass to finish
func (jp *JobProcessor) Stop() {
	jp.once.Do(func() { close(jp.done) })
	jp.wg.Wait()
	jp.logger.Info("Reconciliation job stopped")
}

func (jp *JobProcessor) runReconciler(ctx context.Context) {
	ticker := time.NewTicker(jp.interval)
	defer ticker.Stop()

	jp.reconcile(ctx)

	for {
		select {
		case <-ticker.C:
			jp.reconcile(ctx)
		case <-jp.done:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (jp *JobProcessor) reconcile(ctx context.Context) {
	summary, err := jp.service.ReconcileAll(ctx)
	if err != nil {
		jp.logger.ErrorWithContext(ctx, "reconciliation pass failed", err, nil)
		return
	}

	if summary.Moved > 0 || summary.Failed > 0 {
		jp.logger.Info("Reconciliation pass finished",
			slog.Int("users", summary.Users),
			slog.Int("moved", summary.Moved),
			slog.Int("failed", summary.Failed),
		)
	}
}

// GetJobStatus returns the status of the background job
func (jp *JobProcessor) GetJobStatus() map[string]interface{} {
	status := "running"
	select {
	case <-jp.done:
		status = "stopped"
	default:
	}
	return map[string]interface{}{
		"reconcile_interval": jp.interval.String(),
		"status":             status,
	}
}
