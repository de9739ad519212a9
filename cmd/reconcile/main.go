// Command reconcile runs one attended-events pass over every user and exits.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"time"

	"eventhub/internal/bookings"
	"eventhub/internal/notifications"
	"eventhub/internal/shared/config"
	"eventhub/internal/shared/database"
	"eventhub/internal/store"
	"eventhub/pkg/logger"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

func main() {
	userFlag := flag.String("user", "", "reconcile a single user id instead of everyone")
	timeout := flag.Duration("timeout", 10*time.Minute, "overall deadline for the pass")
	flag.Parse()

	_ = godotenv.Load()
	cfg := config.Load()
	// reconciliation never needs the cache or rate limiter
	cfg.Redis.Enabled = false

	l := logger.NewWithWriter(os.Stderr, cfg.LogLevel)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	db, err := database.InitDB(ctx, cfg, l)
	if err != nil {
		l.Error("failed to connect", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	s, err := store.Open(ctx, cfg, db)
	if err != nil {
		l.Error("failed to open store", slog.Any("error", err))
		os.Exit(1)
	}

	svc := bookings.NewService(s, notifications.NewDispatcher(notifications.NewLogSink(l), l, 0), l, bookings.Config{
		TxTimeout:          cfg.Booking.TxTimeout,
		MaxSeatsPerBooking: cfg.Booking.MaxSeatsPerBooking,
		UndatedAsEnded:     cfg.Reconcile.UndatedAsEnded,
		ReconcileBatchSize: cfg.Reconcile.BatchSize,
	})

	if *userFlag != "" {
		userID, err := uuid.Parse(*userFlag)
		if err != nil {
			l.Error("invalid user id", slog.String("user", *userFlag))
			os.Exit(2)
		}
		result, err := svc.ReconcileAttended(ctx, userID)
		if err != nil {
			l.Error("reconciliation failed", slog.Any("error", err))
			os.Exit(1)
		}
		l.Info("user reconciled", slog.String("user_id", userID.String()), slog.Int("moved", len(result.Moved)))
		return
	}

	summary, err := svc.ReconcileAll(ctx)
	if err != nil {
		l.Error("reconciliation failed", slog.Any("error", err))
		os.Exit(1)
	}
	l.Info("reconciliation finished",
		slog.Int("users", summary.Users),
		slog.Int("moved", summary.Moved),
		slog.Int("failed", summary.Failed),
	)
	if summary.Failed > 0 {
		os.Exit(1)
	}
}
