// Package memory keeps events, bookings and user projections in process
// memory. Transactions are serialized on one mutex and applied to a copy of
// the state that replaces the live state only on commit.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"eventhub/internal/bookings"
	"eventhub/internal/events"
	"eventhub/internal/shared/apperrors"
	"eventhub/internal/users"

	"github.com/google/uuid"
)

type userRecord struct {
	booked    []uuid.UUID
	attended  []uuid.UUID
	createdAt time.Time
}

type state struct {
	events   map[uuid.UUID]events.Event
	bookings map[uuid.UUID]bookings.Booking
	users    map[uuid.UUID]*userRecord
}

func newState() *state {
	return &state{
		events:   make(map[uuid.UUID]events.Event),
		bookings: make(map[uuid.UUID]bookings.Booking),
		users:    make(map[uuid.UUID]*userRecord),
	}
}

func (s *state) clone() *state {
	c := &state{
		events:   make(map[uuid.UUID]events.Event, len(s.events)),
		bookings: make(map[uuid.UUID]bookings.Booking, len(s.bookings)),
		users:    make(map[uuid.UUID]*userRecord, len(s.users)),
	}
	for id, e := range s.events {
		c.events[id] = e
	}
	for id, b := range s.bookings {
		c.bookings[id] = b
	}
	for id, u := range s.users {
		c.users[id] = &userRecord{
			booked:    append([]uuid.UUID(nil), u.booked...),
			attended:  append([]uuid.UUID(nil), u.attended...),
			createdAt: u.createdAt,
		}
	}
	return c
}

// Store implements bookings.Store in memory
type Store struct {
	mu    sync.Mutex
	live  *state
	clock func() time.Time
}

// New returns an empty store
func New() *Store {
	return &Store{live: newState(), clock: time.Now}
}

// WithinTx runs fn against a private copy of the state and publishes the
// copy when fn succeeds.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx bookings.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return apperrors.Transient(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	working := s.live.clone()
	tx := &memTx{store: s, st: working}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return apperrors.Transient(err)
	}
	s.live = working
	return nil
}

// View returns collaborators that lock the store for each call
func (s *Store) View() bookings.Tx {
	return &memTx{store: s, locking: true}
}

// memTx serves the three collaborators over either a transaction's working
// state or, with locking set, the live state one call at a time.
type memTx struct {
	store   *Store
	st      *state
	locking bool
}

func (t *memTx) Events() events.Catalog    { return t }
func (t *memTx) Bookings() bookings.Ledger { return t }
func (t *memTx) Users() users.Projection   { return t }

// run executes op on the state this collaborator is bound to
func (t *memTx) run(ctx context.Context, op func(st *state) error) error {
	if err := ctx.Err(); err != nil {
		return apperrors.Transient(err)
	}
	if !t.locking {
		return op(t.st)
	}
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	return op(t.store.live)
}

func (t *memTx) now() time.Time {
	return t.store.clock().UTC()
}

// Catalog

func (t *memTx) CreateEvent(ctx context.Context, event *events.Event) error {
	if err := events.PrepareNew(event); err != nil {
		return err
	}
	return t.run(ctx, func(st *state) error {
		now := t.now()
		event.CreatedAt = now
		event.UpdatedAt = now
		st.events[event.ID] = *event
		return nil
	})
}

func (t *memTx) GetEvent(ctx context.Context, eventID uuid.UUID) (*events.Event, error) {
	var out events.Event
	err := t.run(ctx, func(st *state) error {
		e, ok := st.events[eventID]
		if !ok {
			return events.NotFound(eventID)
		}
		out = e
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (t *memTx) GetCapacitySnapshot(ctx context.Context, eventID uuid.UUID) (*events.CapacitySnapshot, error) {
	e, err := t.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	snap := e.Snapshot()
	return &snap, nil
}

func (t *memTx) ReserveSeats(ctx context.Context, eventID uuid.UUID, count int) error {
	if err := events.ValidateSeatCount(count); err != nil {
		return err
	}
	return t.run(ctx, func(st *state) error {
		e, ok := st.events[eventID]
		if !ok {
			return events.NotFound(eventID)
		}
		snap := e.Snapshot()
		if snap.Unlimited() {
			return nil
		}
		if !snap.HasRoom(count) {
			return events.InsufficientCapacity(eventID, snap.AvailableSeats, count)
		}
		e.AvailableSeats -= count
		e.UpdatedAt = t.now()
		st.events[eventID] = e
		return nil
	})
}

func (t *memTx) ReleaseSeats(ctx context.Context, eventID uuid.UUID, count int) error {
	if err := events.ValidateSeatCount(count); err != nil {
		return err
	}
	return t.run(ctx, func(st *state) error {
		e, ok := st.events[eventID]
		if !ok {
			return events.NotFound(eventID)
		}
		snap := e.Snapshot()
		if snap.Unlimited() {
			return nil
		}
		if snap.AvailableSeats+count > *snap.Capacity {
			return events.ReleaseOverflow(eventID, snap, count)
		}
		e.AvailableSeats += count
		e.UpdatedAt = t.now()
		st.events[eventID] = e
		return nil
	})
}

// Ledger

func (t *memTx) HasActiveBooking(ctx context.Context, userID, eventID uuid.UUID) (bool, error) {
	var found bool
	err := t.run(ctx, func(st *state) error {
		found = activeBooking(st, userID, eventID) != nil
		return nil
	})
	return found, err
}

func activeBooking(st *state, userID, eventID uuid.UUID) *bookings.Booking {
	for _, b := range st.bookings {
		if b.UserID == userID && b.EventID == eventID && b.IsConfirmed() {
			found := b
			return &found
		}
	}
	return nil
}

func (t *memTx) CreateBooking(ctx context.Context, userID, eventID uuid.UUID, seats int) (*bookings.Booking, error) {
	var out bookings.Booking
	err := t.run(ctx, func(st *state) error {
		if activeBooking(st, userID, eventID) != nil {
			return bookings.DuplicateActiveBooking(userID, eventID)
		}
		out = *bookings.NewBooking(userID, eventID, seats, t.now())
		st.bookings[out.ID] = out
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (t *memTx) CancelBooking(ctx context.Context, bookingID, requestingUserID uuid.UUID) (*bookings.Booking, error) {
	var out bookings.Booking
	err := t.run(ctx, func(st *state) error {
		b, ok := st.bookings[bookingID]
		if !ok {
			return bookings.BookingNotFound(bookingID)
		}
		if err := b.CheckCancellable(requestingUserID); err != nil {
			return err
		}
		b.Cancel(t.now())
		st.bookings[bookingID] = b
		out = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (t *memTx) GetBooking(ctx context.Context, bookingID uuid.UUID) (*bookings.Booking, error) {
	var out bookings.Booking
	err := t.run(ctx, func(st *state) error {
		b, ok := st.bookings[bookingID]
		if !ok {
			return bookings.BookingNotFound(bookingID)
		}
		out = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (t *memTx) ListActiveForUser(ctx context.Context, userID uuid.UUID) ([]bookings.Booking, error) {
	return t.listActive(ctx, func(b bookings.Booking) bool { return b.UserID == userID })
}

func (t *memTx) ListActiveForEvent(ctx context.Context, eventID uuid.UUID) ([]bookings.Booking, error) {
	return t.listActive(ctx, func(b bookings.Booking) bool { return b.EventID == eventID })
}

func (t *memTx) listActive(ctx context.Context, match func(bookings.Booking) bool) ([]bookings.Booking, error) {
	out := make([]bookings.Booking, 0)
	err := t.run(ctx, func(st *state) error {
		for _, b := range st.bookings {
			if b.IsConfirmed() && match(b) {
				out = append(out, b)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID.String() > out[j].ID.String()
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// Projection

func (t *memTx) AddBookedEvent(ctx context.Context, userID, eventID uuid.UUID) error {
	return t.run(ctx, func(st *state) error {
		u, ok := st.users[userID]
		if !ok {
			u = &userRecord{createdAt: t.now()}
			st.users[userID] = u
		}
		u.booked = addID(u.booked, eventID)
		return nil
	})
}

func (t *memTx) RemoveBookedEvent(ctx context.Context, userID, eventID uuid.UUID) error {
	return t.run(ctx, func(st *state) error {
		if u, ok := st.users[userID]; ok {
			u.booked = removeID(u.booked, eventID)
		}
		return nil
	})
}

func (t *memTx) GetBookingProjection(ctx context.Context, userID uuid.UUID) (*users.BookingProjection, error) {
	p := users.EmptyProjection(userID)
	err := t.run(ctx, func(st *state) error {
		if u, ok := st.users[userID]; ok {
			p.BookedEvents = append(p.BookedEvents, u.booked...)
			p.AttendedEvents = append(p.AttendedEvents, u.attended...)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// MarkAttended moves only ids still present in booked, so a cancellation
// that lands between read and write is not turned into attendance.
func (t *memTx) MarkAttended(ctx context.Context, userID uuid.UUID, eventIDs []uuid.UUID) error {
	return t.run(ctx, func(st *state) error {
		u, ok := st.users[userID]
		if !ok {
			return nil
		}
		for _, id := range eventIDs {
			if !containsID(u.booked, id) {
				continue
			}
			u.booked = removeID(u.booked, id)
			u.attended = addID(u.attended, id)
		}
		return nil
	})
}

func (t *memTx) ListUsersWithBookedEvents(ctx context.Context, after uuid.UUID, limit int) ([]uuid.UUID, error) {
	out := make([]uuid.UUID, 0)
	err := t.run(ctx, func(st *state) error {
		for id, u := range st.users {
			if len(u.booked) > 0 && id.String() > after.String() {
				out = append(out, id)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func containsID(ids []uuid.UUID, id uuid.UUID) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}

func addID(ids []uuid.UUID, id uuid.UUID) []uuid.UUID {
	if containsID(ids, id) {
		return ids
	}
	return append(ids, id)
}

func removeID(ids []uuid.UUID, id uuid.UUID) []uuid.UUID {
	out := ids[:0]
	for _, candidate := range ids {
		if candidate != id {
			out = append(out, candidate)
		}
	}
	return out
}
