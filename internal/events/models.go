package events

import (
	"time"

	"github.com/google/uuid"
)

type Event struct {
	ID          uuid.UUID `json:"id" gorm:"type:uuid;default:uuid_generate_v4();primaryKey"`
	Name        string    `json:"name" gorm:"not null;size:255"`
	Description string    `json:"description" gorm:"type:text"`
	OrganizerID uuid.UUID `json:"organizer_id" gorm:"type:uuid;index;not null"`

	// Capacity is nil for events without a seat limit.
	Capacity       *int `json:"capacity" gorm:"check:capacity IS NULL OR capacity > 0"`
	AvailableSeats int  `json:"available_seats" gorm:"not null;default:0;check:available_seats >= 0"`

	StartsAt *time.Time `json:"starts_at"`
	EndsAt   *time.Time `json:"ends_at"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName specifies the table name for GORM
func (Event) TableName() string {
	return "events"
}

// CapacitySnapshot is the capacity view the booking core reads.
type CapacitySnapshot struct {
	EventID        uuid.UUID `json:"event_id"`
	Capacity       *int      `json:"capacity"`
	AvailableSeats int       `json:"available_seats"`
}

// Snapshot returns the event's current capacity view
func (e *Event) Snapshot() CapacitySnapshot {
	return CapacitySnapshot{
		EventID:        e.ID,
		Capacity:       e.Capacity,
		AvailableSeats: e.AvailableSeats,
	}
}

// Unlimited reports whether the event has no seat limit
func (s CapacitySnapshot) Unlimited() bool {
	return s.Capacity == nil
}

// HasRoom reports whether count more seats fit
func (s CapacitySnapshot) HasRoom(count int) bool {
	return s.Unlimited() || s.AvailableSeats >= count
}

// BookedSeats is capacity minus available seats, 0 for unlimited events
func (s CapacitySnapshot) BookedSeats() int {
	if s.Unlimited() {
		return 0
	}
	return *s.Capacity - s.AvailableSeats
}

// ConcludedAt returns the instant after which the event counts as attended:
// the end time, else the start time. ok is false when neither is set.
func (e *Event) ConcludedAt() (t time.Time, ok bool) {
	switch {
	case e.EndsAt != nil:
		return *e.EndsAt, true
	case e.StartsAt != nil:
		return *e.StartsAt, true
	}
	return time.Time{}, false
}

type CreateEventRequest struct {
	Name        string     `json:"name" binding:"required,min=3,max=255"`
	Description string     `json:"description" binding:"max=2000"`
	Capacity    *int       `json:"capacity" binding:"omitempty,min=1,max=100000"`
	StartsAt    *time.Time `json:"starts_at"`
	EndsAt      *time.Time `json:"ends_at"`
}

type EventResponse struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	Description    string     `json:"description"`
	OrganizerID    string     `json:"organizer_id"`
	Capacity       *int       `json:"capacity"`
	AvailableSeats *int       `json:"available_seats"`
	StartsAt       *time.Time `json:"starts_at,omitempty"`
	EndsAt         *time.Time `json:"ends_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// ToResponse converts Event to EventResponse; available seats are omitted for
// unlimited events.
func (e *Event) ToResponse() EventResponse {
	resp := EventResponse{
		ID:          e.ID.String(),
		Name:        e.Name,
		Description: e.Description,
		OrganizerID: e.OrganizerID.String(),
		Capacity:    e.Capacity,
		StartsAt:    e.StartsAt,
		EndsAt:      e.EndsAt,
		CreatedAt:   e.CreatedAt,
	}
	if e.Capacity != nil {
		available := e.AvailableSeats
		resp.AvailableSeats = &available
	}
	return resp
}

// AvailabilityResponse is the public capacity view of an event
type AvailabilityResponse struct {
	EventID        string `json:"event_id"`
	Unlimited      bool   `json:"unlimited"`
	Capacity       *int   `json:"capacity"`
	AvailableSeats *int   `json:"available_seats"`
	BookedSeats    *int   `json:"booked_seats"`
}

// ToAvailability converts a snapshot; seat counts are omitted for unlimited
// events.
func (s CapacitySnapshot) ToAvailability() AvailabilityResponse {
	resp := AvailabilityResponse{
		EventID:   s.EventID.String(),
		Unlimited: s.Unlimited(),
		Capacity:  s.Capacity,
	}
	if !s.Unlimited() {
		available, booked := s.AvailableSeats, s.BookedSeats()
		resp.AvailableSeats = &available
		resp.BookedSeats = &booked
	}
	return resp
}

// ToEvent builds the event an organizer asked for
func (r CreateEventRequest) ToEvent(organizerID uuid.UUID) *Event {
	return &Event{
		Name:        r.Name,
		Description: r.Description,
		OrganizerID: organizerID,
		Capacity:    r.Capacity,
		StartsAt:    r.StartsAt,
		EndsAt:      r.EndsAt,
	}
}
