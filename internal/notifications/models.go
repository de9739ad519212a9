package notifications

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Kind string

const (
	KindReservation  Kind = "RESERVATION"
	KindCancellation Kind = "CANCELLATION"
)

// Notification is what the booking core hands to a sink after commit.
type Notification struct {
	ID              uuid.UUID `json:"id"`
	RecipientUserID uuid.UUID `json:"recipient_user_id"`
	Kind            Kind      `json:"kind"`
	Message         string    `json:"message"`
	RelatedEventID  uuid.UUID `json:"related_event_id"`
	BookingID       uuid.UUID `json:"booking_id"`
	Seats           int       `json:"seats"`
	CreatedAt       time.Time `json:"created_at"`
}

// NewReservation builds the notification sent after a booking commits
func NewReservation(userID, eventID, bookingID uuid.UUID, seats int) *Notification {
	return &Notification{
		ID:              uuid.New(),
		RecipientUserID: userID,
		Kind:            KindReservation,
		Message:         fmt.Sprintf("Your booking of %d seat(s) is confirmed.", seats),
		RelatedEventID:  eventID,
		BookingID:       bookingID,
		Seats:           seats,
		CreatedAt:       time.Now().UTC(),
	}
}

// NewCancellation builds the notification sent after a cancellation commits
func NewCancellation(userID, eventID, bookingID uuid.UUID, seats int) *Notification {
	return &Notification{
		ID:              uuid.New(),
		RecipientUserID: userID,
		Kind:            KindCancellation,
		Message:         fmt.Sprintf("Your booking of %d seat(s) has been cancelled.", seats),
		RelatedEventID:  eventID,
		BookingID:       bookingID,
		Seats:           seats,
		CreatedAt:       time.Now().UTC(),
	}
}

// ToJSON serializes the notification for the wire
func (n *Notification) ToJSON() ([]byte, error) {
	return json.Marshal(n)
}

// FromJSON deserializes a notification
func FromJSON(data []byte) (*Notification, error) {
	var n Notification
	if err := json.Unmarshal(data, &n); err != nil {
		return nil, err
	}
	return &n, nil
}

// GetPartitionKey keeps one recipient's notifications on one partition
func (n *Notification) GetPartitionKey() string {
	return n.RecipientUserID.String()
}
