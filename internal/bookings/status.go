package bookings

type Status string

const (
	StatusConfirmed Status = "CONFIRMED"
	StatusCancelled Status = "CANCELLED"
)

// String returns the string representation of Status
func (s Status) String() string {
	return string(s)
}

// IsActive checks if the booking still counts against capacity
func (s Status) IsActive() bool {
	return s == StatusConfirmed
}

// CanTransitionTo reports whether a booking may move from s to next.
// Cancelled bookings are final; rebooking creates a new record.
func (s Status) CanTransitionTo(next Status) bool {
	return s == StatusConfirmed && next == StatusCancelled
}
