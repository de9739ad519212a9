package notifications

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"eventhub/pkg/logger"
)

// Sink delivers a notification somewhere outside the booking core.
type Sink interface {
	Notify(ctx context.Context, notification *Notification) error
}

// LogSink writes notifications to the application log. Used when no broker
// is configured.
type LogSink struct {
	logger *logger.Logger
}

func NewLogSink(l *logger.Logger) *LogSink {
	return &LogSink{logger: l}
}

func (s *LogSink) Notify(ctx context.Context, n *Notification) error {
	s.logger.InfoContext(ctx, "Notification",
		slog.String("kind", string(n.Kind)),
		slog.String("recipient_user_id", n.RecipientUserID.String()),
		slog.String("event_id", n.RelatedEventID.String()),
		slog.String("booking_id", n.BookingID.String()),
		slog.String("message", n.Message),
	)
	return nil
}

// Dispatcher hands notifications to a sink on background goroutines. Sink
// errors and panics are logged and never reach the caller.
type Dispatcher struct {
	sink    Sink
	logger  *logger.Logger
	timeout time.Duration
	wg      sync.WaitGroup
}

func NewDispatcher(sink Sink, l *logger.Logger, timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Dispatcher{sink: sink, logger: l, timeout: timeout}
}

// Dispatch returns immediately; delivery happens in the background.
func (d *Dispatcher) Dispatch(n *Notification) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				d.logger.Error("notification sink panicked",
					slog.Any("panic", r),
					slog.String("notification_id", n.ID.String()),
					slog.String("stack", string(debug.Stack())),
				)
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()

		if err := d.sink.Notify(ctx, n); err != nil {
			d.logger.ErrorWithContext(ctx, "failed to deliver notification", err, map[string]interface{}{
				"notification_id": n.ID.String(),
				"kind":            string(n.Kind),
				"recipient":       n.RecipientUserID.String(),
			})
		}
	}()
}

// Wait blocks until every dispatched notification has been handled
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Close waits for in-flight deliveries and closes the sink when it supports it
func (d *Dispatcher) Close() error {
	d.Wait()
	if closer, ok := d.sink.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			return fmt.Errorf("failed to close notification sink: %w", err)
		}
	}
	return nil
}
