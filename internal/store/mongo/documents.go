package mongo

import (
	"time"

	"eventhub/internal/bookings"
	"eventhub/internal/events"
	"eventhub/internal/users"

	"github.com/google/uuid"
)

// Collection names
const (
	EventsCollection   = "events"
	BookingsCollection = "bookings"
	UsersCollection    = "users"
)

type eventDoc struct {
	ID             string     `bson:"_id"`
	Name           string     `bson:"name"`
	Description    string     `bson:"description"`
	OrganizerID    string     `bson:"organizerId"`
	Capacity       *int       `bson:"capacity"`
	AvailableSeats int        `bson:"availableSeats"`
	StartsAt       *time.Time `bson:"startsAt,omitempty"`
	EndsAt         *time.Time `bson:"endsAt,omitempty"`
	CreatedAt      time.Time  `bson:"createdAt"`
	UpdatedAt      time.Time  `bson:"updatedAt"`
}

type bookingDoc struct {
	ID          string     `bson:"_id"`
	UserID      string     `bson:"userId"`
	EventID     string     `bson:"eventId"`
	Seats       int        `bson:"seats"`
	Status      string     `bson:"status"`
	CreatedAt   time.Time  `bson:"createdAt"`
	UpdatedAt   time.Time  `bson:"updatedAt"`
	CancelledAt *time.Time `bson:"cancelledAt,omitempty"`
}

type userDoc struct {
	ID             string    `bson:"_id"`
	BookedEvents   []string  `bson:"bookedEvents"`
	AttendedEvents []string  `bson:"attendedEvents"`
	CreatedAt      time.Time `bson:"createdAt"`
	UpdatedAt      time.Time `bson:"updatedAt"`
}

func parseID(s string) uuid.UUID {
	id, _ := uuid.Parse(s)
	return id
}

func toEventDoc(e *events.Event) eventDoc {
	return eventDoc{
		ID:             e.ID.String(),
		Name:           e.Name,
		Description:    e.Description,
		OrganizerID:    e.OrganizerID.String(),
		Capacity:       e.Capacity,
		AvailableSeats: e.AvailableSeats,
		StartsAt:       e.StartsAt,
		EndsAt:         e.EndsAt,
		CreatedAt:      e.CreatedAt,
		UpdatedAt:      e.UpdatedAt,
	}
}

func (d eventDoc) toModel() *events.Event {
	return &events.Event{
		ID:             parseID(d.ID),
		Name:           d.Name,
		Description:    d.Description,
		OrganizerID:    parseID(d.OrganizerID),
		Capacity:       d.Capacity,
		AvailableSeats: d.AvailableSeats,
		StartsAt:       d.StartsAt,
		EndsAt:         d.EndsAt,
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      d.UpdatedAt,
	}
}

func toBookingDoc(b *bookings.Booking) bookingDoc {
	return bookingDoc{
		ID:          b.ID.String(),
		UserID:      b.UserID.String(),
		EventID:     b.EventID.String(),
		Seats:       b.Seats,
		Status:      b.Status.String(),
		CreatedAt:   b.CreatedAt,
		UpdatedAt:   b.UpdatedAt,
		CancelledAt: b.CancelledAt,
	}
}

func (d bookingDoc) toModel() *bookings.Booking {
	return &bookings.Booking{
		ID:          parseID(d.ID),
		UserID:      parseID(d.UserID),
		EventID:     parseID(d.EventID),
		Seats:       d.Seats,
		Status:      bookings.Status(d.Status),
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
		CancelledAt: d.CancelledAt,
	}
}

func (d userDoc) toProjection() *users.BookingProjection {
	return &users.BookingProjection{
		UserID:         parseID(d.ID),
		BookedEvents:   users.ParseIDs(d.BookedEvents),
		AttendedEvents: users.ParseIDs(d.AttendedEvents),
	}
}
