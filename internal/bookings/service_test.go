package bookings_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"eventhub/internal/bookings"
	"eventhub/internal/events"
	"eventhub/internal/notifications"
	"eventhub/internal/shared/apperrors"
	"eventhub/internal/store/memory"
	"eventhub/internal/users"
	"eventhub/pkg/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingNotifier struct {
	mu  sync.Mutex
	got []*notifications.Notification
}

func (r *recordingNotifier) Dispatch(n *notifications.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, n)
}

func (r *recordingNotifier) kinds() []notifications.Kind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]notifications.Kind, len(r.got))
	for i, n := range r.got {
		out[i] = n.Kind
	}
	return out
}

type recordingCache struct {
	mu          sync.Mutex
	invalidated []uuid.UUID
}

func (c *recordingCache) InvalidateAvailability(_ context.Context, eventID uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidated = append(c.invalidated, eventID)
	return nil
}

type fixture struct {
	store    bookings.Store
	service  bookings.Service
	notifier *recordingNotifier
}

func newFixture(t *testing.T, opts ...bookings.Option) *fixture {
	t.Helper()
	return newFixtureOn(t, memory.New(), opts...)
}

func newFixtureOn(t *testing.T, store bookings.Store, opts ...bookings.Option) *fixture {
	t.Helper()
	notifier := &recordingNotifier{}
	cfg := bookings.Config{
		TxTimeout:          10 * time.Second,
		MaxSeatsPerBooking: 20,
		UndatedAsEnded:     true,
		ReconcileBatchSize: 2,
	}
	return &fixture{
		store:    store,
		service:  bookings.NewService(store, notifier, logger.Discard(), cfg, opts...),
		notifier: notifier,
	}
}

func intPtr(v int) *int { return &v }

func (f *fixture) createEvent(t *testing.T, capacity *int) *events.Event {
	t.Helper()
	e := &events.Event{Name: "Go Meetup", OrganizerID: uuid.New(), Capacity: capacity}
	require.NoError(t, f.store.View().Events().CreateEvent(context.Background(), e))
	return e
}

func (f *fixture) available(t *testing.T, eventID uuid.UUID) int {
	t.Helper()
	snap, err := f.store.View().Events().GetCapacitySnapshot(context.Background(), eventID)
	require.NoError(t, err)
	return snap.AvailableSeats
}

func (f *fixture) projection(t *testing.T, userID uuid.UUID) *users.BookingProjection {
	t.Helper()
	p, err := f.store.View().Users().GetBookingProjection(context.Background(), userID)
	require.NoError(t, err)
	return p
}

func TestBookAndCancelSingleSeatEvent(t *testing.T) {
	forEachStore(t, testBookAndCancelSingleSeatEvent)
}

func testBookAndCancelSingleSeatEvent(t *testing.T, sf storeFactory) {
	ctx := context.Background()
	f := newFixtureOn(t, sf.open(t))
	event := f.createEvent(t, intPtr(1))
	alice, bob := uuid.New(), uuid.New()

	booking, err := f.service.Book(ctx, alice, event.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, bookings.StatusConfirmed, booking.Status)
	assert.Equal(t, 0, f.available(t, event.ID))
	assert.Equal(t, []uuid.UUID{event.ID}, f.projection(t, alice).BookedEvents)

	_, err = f.service.Book(ctx, bob, event.ID, 1)
	assert.ErrorIs(t, err, apperrors.ErrInsufficientCapacity)
	assert.Empty(t, f.projection(t, bob).BookedEvents)

	cancelled, err := f.service.Cancel(ctx, booking.ID, alice)
	require.NoError(t, err)
	assert.Equal(t, bookings.StatusCancelled, cancelled.Status)
	assert.NotNil(t, cancelled.CancelledAt)
	assert.Equal(t, 1, f.available(t, event.ID))
	assert.Empty(t, f.projection(t, alice).BookedEvents)

	_, err = f.service.Book(ctx, bob, event.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, f.available(t, event.ID))

	assert.Equal(t, []notifications.Kind{
		notifications.KindReservation,
		notifications.KindCancellation,
		notifications.KindReservation,
	}, f.notifier.kinds())
}

func TestBookUnlimitedEventNeverRejects(t *testing.T) {
	forEachStore(t, testBookUnlimitedEventNeverRejects)
}

func testBookUnlimitedEventNeverRejects(t *testing.T, sf storeFactory) {
	ctx := context.Background()
	f := newFixtureOn(t, sf.open(t))
	event := f.createEvent(t, nil)

	for i := 0; i < 5; i++ {
		_, err := f.service.Book(ctx, uuid.New(), event.ID, 20)
		require.NoError(t, err)
	}

	snap, err := f.store.View().Events().GetCapacitySnapshot(ctx, event.ID)
	require.NoError(t, err)
	assert.True(t, snap.Unlimited())
	assert.Equal(t, event.AvailableSeats, snap.AvailableSeats)

	list, err := f.service.ListEventBookings(ctx, event.ID, event.OrganizerID, false)
	require.NoError(t, err)
	assert.Len(t, list, 5)
}

func TestBookRejectsInvalidRequests(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	event := f.createEvent(t, intPtr(50))
	user := uuid.New()

	tests := []struct {
		name    string
		userID  uuid.UUID
		eventID uuid.UUID
		seats   int
		want    error
	}{
		{"zero seats", user, event.ID, 0, apperrors.ErrInvalidArgument},
		{"negative seats", user, event.ID, -3, apperrors.ErrInvalidArgument},
		{"above per-booking cap", user, event.ID, 21, apperrors.ErrInvalidArgument},
		{"missing user", uuid.Nil, event.ID, 1, apperrors.ErrInvalidArgument},
		{"unknown event", user, uuid.New(), 1, apperrors.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.service.Book(ctx, tt.userID, tt.eventID, tt.seats)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	assert.Equal(t, 50, f.available(t, event.ID))
	assert.Empty(t, f.projection(t, user).BookedEvents)
	assert.Empty(t, f.notifier.kinds())
}

func TestBookRejectsSecondActiveBooking(t *testing.T) {
	forEachStore(t, testBookRejectsSecondActiveBooking)
}

func testBookRejectsSecondActiveBooking(t *testing.T, sf storeFactory) {
	ctx := context.Background()
	f := newFixtureOn(t, sf.open(t))
	event := f.createEvent(t, intPtr(10))
	user := uuid.New()

	_, err := f.service.Book(ctx, user, event.ID, 2)
	require.NoError(t, err)

	_, err = f.service.Book(ctx, user, event.ID, 1)
	assert.ErrorIs(t, err, apperrors.ErrAlreadyBooked)
	assert.Equal(t, 8, f.available(t, event.ID))

	list, err := f.service.ListUserBookings(ctx, user)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestConcurrentDuplicateBookingsKeepOne(t *testing.T) {
	forEachStore(t, testConcurrentDuplicateBookingsKeepOne)
}

func testConcurrentDuplicateBookingsKeepOne(t *testing.T, sf storeFactory) {
	ctx := context.Background()
	f := newFixtureOn(t, sf.open(t))
	event := f.createEvent(t, intPtr(10))
	user := uuid.New()

	const attempts = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.service.Book(ctx, user, event.ID, 2)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, apperrors.ErrAlreadyBooked):
			case sf.optimistic && errors.Is(err, apperrors.ErrTransientFailure):
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 8, f.available(t, event.ID))
	list, err := f.service.ListUserBookings(ctx, user)
	require.NoError(t, err)
	assert.Len(t, list, 1)
	assert.Equal(t, []uuid.UUID{event.ID}, f.projection(t, user).BookedEvents)
}

func TestBookAgainAfterCancel(t *testing.T) {
	forEachStore(t, testBookAgainAfterCancel)
}

func testBookAgainAfterCancel(t *testing.T, sf storeFactory) {
	ctx := context.Background()
	f := newFixtureOn(t, sf.open(t))
	event := f.createEvent(t, intPtr(3))
	user := uuid.New()

	first, err := f.service.Book(ctx, user, event.ID, 2)
	require.NoError(t, err)
	_, err = f.service.Cancel(ctx, first.ID, user)
	require.NoError(t, err)

	second, err := f.service.Book(ctx, user, event.ID, 3)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, 0, f.available(t, event.ID))
}

func TestCancelByAnotherUserIsForbidden(t *testing.T) {
	forEachStore(t, testCancelByAnotherUserIsForbidden)
}

func testCancelByAnotherUserIsForbidden(t *testing.T, sf storeFactory) {
	ctx := context.Background()
	f := newFixtureOn(t, sf.open(t))
	event := f.createEvent(t, intPtr(5))
	owner, intruder := uuid.New(), uuid.New()

	booking, err := f.service.Book(ctx, owner, event.ID, 2)
	require.NoError(t, err)

	_, err = f.service.Cancel(ctx, booking.ID, intruder)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	stored, err := f.service.GetBooking(ctx, booking.ID, owner)
	require.NoError(t, err)
	assert.Equal(t, bookings.StatusConfirmed, stored.Status)
	assert.Equal(t, 3, f.available(t, event.ID))
	assert.Equal(t, []uuid.UUID{event.ID}, f.projection(t, owner).BookedEvents)

	_, err = f.service.GetBooking(ctx, booking.ID, intruder)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
}

func TestCancelTwiceReportsAlreadyCancelled(t *testing.T) {
	forEachStore(t, testCancelTwiceReportsAlreadyCancelled)
}

func testCancelTwiceReportsAlreadyCancelled(t *testing.T, sf storeFactory) {
	ctx := context.Background()
	f := newFixtureOn(t, sf.open(t))
	event := f.createEvent(t, intPtr(4))
	user := uuid.New()

	booking, err := f.service.Book(ctx, user, event.ID, 4)
	require.NoError(t, err)
	_, err = f.service.Cancel(ctx, booking.ID, user)
	require.NoError(t, err)

	_, err = f.service.Cancel(ctx, booking.ID, user)
	assert.ErrorIs(t, err, apperrors.ErrAlreadyCancelled)
	assert.Equal(t, 4, f.available(t, event.ID))

	_, err = f.service.Cancel(ctx, uuid.New(), user)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestCancelRefusesToOverfillEvent(t *testing.T) {
	forEachStore(t, testCancelRefusesToOverfillEvent)
}

func testCancelRefusesToOverfillEvent(t *testing.T, sf storeFactory) {
	ctx := context.Background()
	f := newFixtureOn(t, sf.open(t))
	event := f.createEvent(t, intPtr(3))
	user := uuid.New()

	booking, err := f.service.Book(ctx, user, event.ID, 2)
	require.NoError(t, err)

	// the counter drifts back to full outside the booking flow
	require.NoError(t, f.store.View().Events().ReleaseSeats(ctx, event.ID, 2))
	require.Equal(t, 3, f.available(t, event.ID))

	_, err = f.service.Cancel(ctx, booking.ID, user)
	assert.ErrorIs(t, err, apperrors.ErrConsistency)
	assert.Equal(t, apperrors.KindConsistency, apperrors.KindOf(err))

	stored, err := f.service.GetBooking(ctx, booking.ID, user)
	require.NoError(t, err)
	assert.Equal(t, bookings.StatusConfirmed, stored.Status)
	assert.Nil(t, stored.CancelledAt)
	assert.Equal(t, 3, f.available(t, event.ID))
	assert.Equal(t, []uuid.UUID{event.ID}, f.projection(t, user).BookedEvents)
	assert.Equal(t, []notifications.Kind{notifications.KindReservation}, f.notifier.kinds())
}

// faultyStore fails chosen writes inside the transaction after the seat
// reservation has already been applied.
type faultyStore struct {
	bookings.Store
	failLedger     bool
	failProjection bool
}

func (s *faultyStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx bookings.Tx) error) error {
	return s.Store.WithinTx(ctx, func(ctx context.Context, tx bookings.Tx) error {
		return fn(ctx, faultyTx{Tx: tx, store: s})
	})
}

type faultyTx struct {
	bookings.Tx
	store *faultyStore
}

func (t faultyTx) Bookings() bookings.Ledger {
	if t.store.failLedger {
		return failingLedger{t.Tx.Bookings()}
	}
	return t.Tx.Bookings()
}

func (t faultyTx) Users() users.Projection {
	if t.store.failProjection {
		return failingProjection{t.Tx.Users()}
	}
	return t.Tx.Users()
}

type failingLedger struct{ bookings.Ledger }

func (failingLedger) CreateBooking(context.Context, uuid.UUID, uuid.UUID, int) (*bookings.Booking, error) {
	return nil, errors.New("write conflict")
}

type failingProjection struct{ users.Projection }

func (failingProjection) AddBookedEvent(context.Context, uuid.UUID, uuid.UUID) error {
	return errors.New("connection reset by peer")
}

func TestBookIsAtomicWhenALaterWriteFails(t *testing.T) {
	forEachStore(t, testBookIsAtomicWhenALaterWriteFails)
}

func testBookIsAtomicWhenALaterWriteFails(t *testing.T, sf storeFactory) {
	base := sf.open(t)
	for _, tc := range []struct {
		name           string
		failLedger     bool
		failProjection bool
	}{
		{"ledger write fails", true, false},
		{"projection write fails", false, true},
	} {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			store := &faultyStore{Store: base, failLedger: tc.failLedger, failProjection: tc.failProjection}
			notifier := &recordingNotifier{}
			svc := bookings.NewService(store, notifier, logger.Discard(), bookings.Config{})

			event := &events.Event{Name: "Workshop", OrganizerID: uuid.New(), Capacity: intPtr(5)}
			require.NoError(t, base.View().Events().CreateEvent(ctx, event))
			user := uuid.New()

			_, err := svc.Book(ctx, user, event.ID, 3)
			assert.ErrorIs(t, err, apperrors.ErrTransientFailure)

			snap, err := base.View().Events().GetCapacitySnapshot(ctx, event.ID)
			require.NoError(t, err)
			assert.Equal(t, 5, snap.AvailableSeats)

			active, err := base.View().Bookings().HasActiveBooking(ctx, user, event.ID)
			require.NoError(t, err)
			assert.False(t, active)

			p, err := base.View().Users().GetBookingProjection(ctx, user)
			require.NoError(t, err)
			assert.Empty(t, p.BookedEvents)
			assert.Empty(t, notifier.kinds())
		})
	}
}

func TestConcurrentBookingsNeverExceedCapacity(t *testing.T) {
	forEachStore(t, testConcurrentBookingsNeverExceedCapacity)
}

func testConcurrentBookingsNeverExceedCapacity(t *testing.T, sf storeFactory) {
	ctx := context.Background()
	f := newFixtureOn(t, sf.open(t))
	event := f.createEvent(t, intPtr(10))

	const requests = 50
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		rejected  int
		gaveUp    int
	)
	for i := 0; i < requests; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.service.Book(ctx, uuid.New(), event.ID, 1)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, apperrors.ErrInsufficientCapacity):
				rejected++
			case sf.optimistic && errors.Is(err, apperrors.ErrTransientFailure):
				gaveUp++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, requests, succeeded+rejected+gaveUp)
	assert.LessOrEqual(t, succeeded, 10)
	if gaveUp == 0 {
		assert.Equal(t, 10, succeeded)
	}
	assert.Equal(t, 10-succeeded, f.available(t, event.ID))

	list, err := f.service.ListEventBookings(ctx, event.ID, uuid.Nil, true)
	require.NoError(t, err)
	assert.Len(t, list, succeeded)
}

func TestNotificationFailureDoesNotFailBooking(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	sink := failingSink{}
	dispatcher := notifications.NewDispatcher(sink, logger.Discard(), time.Second)
	svc := bookings.NewService(store, dispatcher, logger.Discard(), bookings.Config{})

	event := &events.Event{Name: "Concert", OrganizerID: uuid.New(), Capacity: intPtr(2)}
	require.NoError(t, store.View().Events().CreateEvent(ctx, event))
	user := uuid.New()

	booking, err := svc.Book(ctx, user, event.ID, 1)
	require.NoError(t, err)
	_, err = svc.Cancel(ctx, booking.ID, user)
	require.NoError(t, err)
	dispatcher.Wait()

	snap, err := store.View().Events().GetCapacitySnapshot(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, snap.AvailableSeats)
}

type failingSink struct{}

func (failingSink) Notify(context.Context, *notifications.Notification) error {
	return errors.New("smtp unavailable")
}

func TestExpiredContextIsTransient(t *testing.T) {
	f := newFixture(t)
	event := f.createEvent(t, intPtr(3))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.service.Book(ctx, uuid.New(), event.ID, 1)
	assert.ErrorIs(t, err, apperrors.ErrTransientFailure)
	assert.Equal(t, apperrors.KindTransientFailure, apperrors.KindOf(err))
	assert.Equal(t, 3, f.available(t, event.ID))
}

func TestListEventBookingsRequiresOrganizer(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	event := f.createEvent(t, intPtr(3))
	_, err := f.service.Book(ctx, uuid.New(), event.ID, 1)
	require.NoError(t, err)

	_, err = f.service.ListEventBookings(ctx, event.ID, uuid.New(), false)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	list, err := f.service.ListEventBookings(ctx, event.ID, event.OrganizerID, false)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestCommitInvalidatesAvailabilityCache(t *testing.T) {
	ctx := context.Background()
	cache := &recordingCache{}
	f := newFixture(t, bookings.WithAvailabilityCache(cache))
	event := f.createEvent(t, intPtr(3))
	user := uuid.New()

	booking, err := f.service.Book(ctx, user, event.ID, 1)
	require.NoError(t, err)
	_, err = f.service.Book(ctx, user, event.ID, 1)
	require.Error(t, err)
	_, err = f.service.Cancel(ctx, booking.ID, user)
	require.NoError(t, err)

	assert.Equal(t, []uuid.UUID{event.ID, event.ID}, cache.invalidated)
}
