package bookings

import (
	"context"
	"errors"
	"log/slog"

	"eventhub/internal/shared/apperrors"
	"eventhub/internal/users"

	"github.com/google/uuid"
)

// ReconcileResult is the outcome of reconciling one user
type ReconcileResult struct {
	UserID     uuid.UUID                `json:"user_id"`
	Moved      []uuid.UUID              `json:"moved"`
	Projection *users.BookingProjection `json:"projection"`
}

// ReconcileSummary aggregates a full reconciliation pass
type ReconcileSummary struct {
	Users  int `json:"users"`
	Moved  int `json:"moved"`
	Failed int `json:"failed"`
}

// ReconcileAttended moves the user's concluded events from booked to
// attended. Running it again without new bookings changes nothing. Seat
// counts and booking records are never touched.
func (s *service) ReconcileAttended(ctx context.Context, userID uuid.UUID) (*ReconcileResult, error) {
	view := s.store.View()

	projection, err := view.Users().GetBookingProjection(ctx, userID)
	if err != nil {
		return nil, apperrors.Classify(err)
	}

	now := s.now()
	ended := make([]uuid.UUID, 0)
	for _, eventID := range projection.BookedEvents {
		event, err := view.Events().GetEvent(ctx, eventID)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				s.logger.WarnContext(ctx, "booked event no longer exists, leaving it in place",
					slog.String("user_id", userID.String()),
					slog.String("event_id", eventID.String()),
				)
				continue
			}
			return nil, apperrors.Classify(err)
		}

		concludedAt, dated := event.ConcludedAt()
		if !dated {
			if !s.config.UndatedAsEnded {
				continue
			}
			s.logger.WarnContext(ctx, "event has no start or end time, treating it as ended",
				slog.String("user_id", userID.String()),
				slog.String("event_id", eventID.String()),
			)
			ended = append(ended, eventID)
			continue
		}
		if concludedAt.Before(now) {
			ended = append(ended, eventID)
		}
	}

	if len(ended) > 0 {
		if err := view.Users().MarkAttended(ctx, userID, ended); err != nil {
			return nil, apperrors.Classify(err)
		}
		projection, err = view.Users().GetBookingProjection(ctx, userID)
		if err != nil {
			return nil, apperrors.Classify(err)
		}
	}

	s.logger.LogReconciled(ctx, userID.String(), len(ended), len(projection.BookedEvents))
	return &ReconcileResult{UserID: userID, Moved: ended, Projection: projection}, nil
}

// ReconcileAll reconciles every user holding booked events, page by page.
// A failing user is logged and counted; the pass continues.
func (s *service) ReconcileAll(ctx context.Context) (*ReconcileSummary, error) {
	summary := &ReconcileSummary{}
	after := uuid.Nil
	batch := s.config.ReconcileBatchSize

	for {
		ids, err := s.store.View().Users().ListUsersWithBookedEvents(ctx, after, batch)
		if err != nil {
			return summary, apperrors.Classify(err)
		}

		for _, userID := range ids {
			if err := ctx.Err(); err != nil {
				return summary, apperrors.Classify(err)
			}
			result, err := s.ReconcileAttended(ctx, userID)
			if err != nil {
				summary.Failed++
				s.logger.ErrorWithContext(ctx, "failed to reconcile attended events", err, map[string]interface{}{
					"user_id": userID.String(),
				})
				continue
			}
			summary.Users++
			summary.Moved += len(result.Moved)
		}

		if len(ids) < batch {
			return summary, nil
		}
		after = ids[len(ids)-1]
	}
}
