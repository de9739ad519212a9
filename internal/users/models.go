package users

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

type Role string

const (
	RoleUser      Role = "USER"
	RoleOrganizer Role = "ORGANIZER"
	RoleAdmin     Role = "ADMIN"
)

func IsValidRole(role string) bool {
	switch Role(role) {
	case RoleUser, RoleOrganizer, RoleAdmin:
		return true
	default:
		return false
	}
}

// User carries the denormalized booked/attended event lists. Identity data
// lives with the identity provider; the row is created on first booking.
type User struct {
	ID             uuid.UUID      `json:"id" gorm:"primaryKey;type:uuid"`
	BookedEvents   pq.StringArray `json:"booked_events" gorm:"type:text[];not null;default:'{}'"`
	AttendedEvents pq.StringArray `json:"attended_events" gorm:"type:text[];not null;default:'{}'"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (User) TableName() string {
	return "users"
}

// BookingProjection is the user's booked and attended event references.
type BookingProjection struct {
	UserID         uuid.UUID   `json:"user_id"`
	BookedEvents   []uuid.UUID `json:"booked_events"`
	AttendedEvents []uuid.UUID `json:"attended_events"`
}

// Projection returns the parsed projection; malformed ids are skipped.
func (u *User) Projection() *BookingProjection {
	return &BookingProjection{
		UserID:         u.ID,
		BookedEvents:   ParseIDs(u.BookedEvents),
		AttendedEvents: ParseIDs(u.AttendedEvents),
	}
}

// EmptyProjection is the projection of a user with no bookings yet
func EmptyProjection(userID uuid.UUID) *BookingProjection {
	return &BookingProjection{
		UserID:         userID,
		BookedEvents:   []uuid.UUID{},
		AttendedEvents: []uuid.UUID{},
	}
}

// HasBooked reports whether eventID is in the booked list
func (p *BookingProjection) HasBooked(eventID uuid.UUID) bool {
	return containsID(p.BookedEvents, eventID)
}

// HasAttended reports whether eventID is in the attended list
func (p *BookingProjection) HasAttended(eventID uuid.UUID) bool {
	return containsID(p.AttendedEvents, eventID)
}

func containsID(ids []uuid.UUID, id uuid.UUID) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}

// ParseIDs converts stored string ids into uuids
func ParseIDs(raw []string) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(raw))
	for _, s := range raw {
		if id, err := uuid.Parse(s); err == nil {
			out = append(out, id)
		}
	}
	return out
}

// FormatIDs converts uuids into their stored string form
func FormatIDs(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}
