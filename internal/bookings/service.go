package bookings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"eventhub/internal/notifications"
	"eventhub/internal/shared/apperrors"
	"eventhub/internal/users"
	"eventhub/pkg/logger"

	"github.com/google/uuid"
)

// Stage is the step a booking request has reached.
type Stage string

const (
	StageReceived   Stage = "Received"
	StageValidating Stage = "Validating"
	StageReserving  Stage = "Reserving"
	StageReleasing  Stage = "Releasing"
	StageRecording  Stage = "Recording"
	StageCommitted  Stage = "Committed"
	StageRejected   Stage = "Rejected"
	StageAborted    Stage = "Aborted"
)

// Notifier accepts notifications for delivery after commit. Dispatch must
// not block on delivery.
type Notifier interface {
	Dispatch(n *notifications.Notification)
}

// AvailabilityCache drops cached capacity snapshots after seats change.
type AvailabilityCache interface {
	InvalidateAvailability(ctx context.Context, eventID uuid.UUID) error
}

// Config holds limits for the coordinator
type Config struct {
	// TxTimeout bounds each Book/Cancel transaction.
	TxTimeout time.Duration
	// MaxSeatsPerBooking caps one request; 0 means no cap.
	MaxSeatsPerBooking int
	// UndatedAsEnded makes reconciliation treat events without start and
	// end time as concluded.
	UndatedAsEnded     bool
	ReconcileBatchSize int
}

// Service is the booking transaction coordinator: the only component that
// changes the catalog, the ledger and the user projection together.
type Service interface {
	Book(ctx context.Context, userID, eventID uuid.UUID, seats int) (*Booking, error)
	Cancel(ctx context.Context, bookingID, userID uuid.UUID) (*Booking, error)

	GetBooking(ctx context.Context, bookingID, userID uuid.UUID) (*Booking, error)
	ListUserBookings(ctx context.Context, userID uuid.UUID) ([]Booking, error)
	ListEventBookings(ctx context.Context, eventID, requesterID uuid.UUID, isAdmin bool) ([]Booking, error)
	GetProjection(ctx context.Context, userID uuid.UUID) (*users.BookingProjection, error)

	ReconcileAttended(ctx context.Context, userID uuid.UUID) (*ReconcileResult, error)
	ReconcileAll(ctx context.Context) (*ReconcileSummary, error)
}

type service struct {
	store    Store
	notifier Notifier
	cache    AvailabilityCache
	logger   *logger.Logger
	config   Config
	now      func() time.Time
}

// Option customizes the coordinator
type Option func(*service)

// WithAvailabilityCache invalidates cached snapshots after each commit
func WithAvailabilityCache(cache AvailabilityCache) Option {
	return func(s *service) { s.cache = cache }
}

// WithClock replaces time.Now, used by reconciliation
func WithClock(now func() time.Time) Option {
	return func(s *service) { s.now = now }
}

// NewService creates the booking coordinator
func NewService(store Store, notifier Notifier, l *logger.Logger, cfg Config, opts ...Option) Service {
	if cfg.TxTimeout <= 0 {
		cfg.TxTimeout = 5 * time.Second
	}
	if cfg.ReconcileBatchSize <= 0 {
		cfg.ReconcileBatchSize = 100
	}
	if l == nil {
		l = logger.GetDefault()
	}
	if notifier == nil {
		notifier = notifications.NewDispatcher(notifications.NewLogSink(l), l, 0)
	}

	s := &service{
		store:    store,
		notifier: notifier,
		logger:   l,
		config:   cfg,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Book reserves seats for userID on eventID and records the booking in one
// transaction, then notifies the user.
func (s *service) Book(ctx context.Context, userID, eventID uuid.UUID, seats int) (*Booking, error) {
	stage := StageReceived
	fields := map[string]interface{}{
		"user_id":  userID.String(),
		"event_id": eventID.String(),
		"seats":    seats,
	}

	stage = StageValidating
	if err := s.validateBookRequest(userID, eventID, seats); err != nil {
		s.logFailure(ctx, "book", stage, err, fields)
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.config.TxTimeout)
	defer cancel()

	var booking *Booking
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		stage = StageValidating
		if _, err := tx.Events().GetEvent(ctx, eventID); err != nil {
			return err
		}

		active, err := tx.Bookings().HasActiveBooking(ctx, userID, eventID)
		if err != nil {
			return err
		}
		if active {
			return DuplicateActiveBooking(userID, eventID)
		}

		stage = StageReserving
		if err := tx.Events().ReserveSeats(ctx, eventID, seats); err != nil {
			return err
		}

		stage = StageRecording
		created, err := tx.Bookings().CreateBooking(ctx, userID, eventID, seats)
		if err != nil {
			return err
		}
		if err := tx.Users().AddBookedEvent(ctx, userID, eventID); err != nil {
			return err
		}

		booking = created
		return nil
	})
	if err != nil {
		err = apperrors.Classify(err)
		s.logFailure(ctx, "book", stage, err, fields)
		return nil, err
	}

	s.logger.LogBookingCreated(ctx, booking.ID.String(), eventID.String(), userID.String(), seats)
	s.afterCommit(ctx, eventID)
	s.notifier.Dispatch(notifications.NewReservation(userID, eventID, booking.ID, seats))

	return booking, nil
}

// Cancel cancels a booking owned by userID and gives its seats back in one
// transaction, then notifies the user.
func (s *service) Cancel(ctx context.Context, bookingID, userID uuid.UUID) (*Booking, error) {
	stage := StageReceived
	fields := map[string]interface{}{
		"booking_id": bookingID.String(),
		"user_id":    userID.String(),
	}

	stage = StageValidating
	if bookingID == uuid.Nil || userID == uuid.Nil {
		err := fmt.Errorf("booking id and user id are required: %w", apperrors.ErrInvalidArgument)
		s.logFailure(ctx, "cancel", stage, err, fields)
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.config.TxTimeout)
	defer cancel()

	var cancelled *Booking
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		stage = StageValidating
		b, err := tx.Bookings().CancelBooking(ctx, bookingID, userID)
		if err != nil {
			return err
		}

		stage = StageReleasing
		if err := tx.Events().ReleaseSeats(ctx, b.EventID, b.Seats); err != nil {
			return err
		}

		stage = StageRecording
		if err := tx.Users().RemoveBookedEvent(ctx, b.UserID, b.EventID); err != nil {
			return err
		}

		cancelled = b
		return nil
	})
	if err != nil {
		err = apperrors.Classify(err)
		if errors.Is(err, apperrors.ErrConsistency) {
			s.logger.ErrorWithContext(ctx, "seat release would exceed capacity", err, fields)
		}
		s.logFailure(ctx, "cancel", stage, err, fields)
		return nil, err
	}

	s.logger.LogBookingCancelled(ctx, cancelled.ID.String(), cancelled.EventID.String(), userID.String(), cancelled.Seats)
	s.afterCommit(ctx, cancelled.EventID)
	s.notifier.Dispatch(notifications.NewCancellation(userID, cancelled.EventID, cancelled.ID, cancelled.Seats))

	return cancelled, nil
}

func (s *service) validateBookRequest(userID, eventID uuid.UUID, seats int) error {
	if userID == uuid.Nil || eventID == uuid.Nil {
		return fmt.Errorf("user id and event id are required: %w", apperrors.ErrInvalidArgument)
	}
	if seats < 1 {
		return fmt.Errorf("seats must be at least 1, got %d: %w", seats, apperrors.ErrInvalidArgument)
	}
	if s.config.MaxSeatsPerBooking > 0 && seats > s.config.MaxSeatsPerBooking {
		return fmt.Errorf("at most %d seats per booking, got %d: %w",
			s.config.MaxSeatsPerBooking, seats, apperrors.ErrInvalidArgument)
	}
	return nil
}

// afterCommit drops the cached snapshot; a failure only costs staleness.
func (s *service) afterCommit(ctx context.Context, eventID uuid.UUID) {
	if s.cache == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
	defer cancel()
	if err := s.cache.InvalidateAvailability(ctx, eventID); err != nil {
		s.logger.ErrorWithContext(ctx, "failed to invalidate availability cache", err, map[string]interface{}{
			"event_id": eventID.String(),
		})
	}
}

// logFailure records where the request stopped. Failures before any write
// are rejections; the rest are aborted transactions.
func (s *service) logFailure(ctx context.Context, operation string, stage Stage, err error, fields map[string]interface{}) {
	outcome := StageAborted
	if stage == StageValidating && apperrors.IsDomain(err) {
		outcome = StageRejected
	}
	merged := make(map[string]interface{}, len(fields)+2)
	for k, v := range fields {
		merged[k] = v
	}
	merged["outcome"] = string(outcome)
	merged["kind"] = string(apperrors.KindOf(err))
	s.logger.LogBookingAborted(ctx, operation, string(stage), err, merged)
}

// GetBooking returns a booking to its owner
func (s *service) GetBooking(ctx context.Context, bookingID, userID uuid.UUID) (*Booking, error) {
	b, err := s.store.View().Bookings().GetBooking(ctx, bookingID)
	if err != nil {
		return nil, apperrors.Classify(err)
	}
	if b.UserID != userID {
		return nil, fmt.Errorf("booking %s: %w", bookingID, apperrors.ErrForbidden)
	}
	return b, nil
}

// ListUserBookings returns the user's confirmed bookings, newest first
func (s *service) ListUserBookings(ctx context.Context, userID uuid.UUID) ([]Booking, error) {
	list, err := s.store.View().Bookings().ListActiveForUser(ctx, userID)
	return list, apperrors.Classify(err)
}

// ListEventBookings returns the confirmed bookings of an event to its
// organizer or an admin
func (s *service) ListEventBookings(ctx context.Context, eventID, requesterID uuid.UUID, isAdmin bool) ([]Booking, error) {
	view := s.store.View()
	event, err := view.Events().GetEvent(ctx, eventID)
	if err != nil {
		return nil, apperrors.Classify(err)
	}
	if !isAdmin && event.OrganizerID != requesterID {
		return nil, fmt.Errorf("event %s is organized by another user: %w", eventID, apperrors.ErrForbidden)
	}
	list, err := view.Bookings().ListActiveForEvent(ctx, eventID)
	return list, apperrors.Classify(err)
}

// GetProjection returns the user's booked and attended event lists
func (s *service) GetProjection(ctx context.Context, userID uuid.UUID) (*users.BookingProjection, error) {
	p, err := s.store.View().Users().GetBookingProjection(ctx, userID)
	return p, apperrors.Classify(err)
}
