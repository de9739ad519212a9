package users

import (
	"testing"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestProjectionSkipsMalformedIDs(t *testing.T) {
	booked := uuid.New()
	attended := uuid.New()
	u := &User{
		ID:             uuid.New(),
		BookedEvents:   pq.StringArray{booked.String(), "legacy-slug"},
		AttendedEvents: pq.StringArray{attended.String()},
	}

	p := u.Projection()

	assert.Equal(t, []uuid.UUID{booked}, p.BookedEvents)
	assert.True(t, p.HasBooked(booked))
	assert.True(t, p.HasAttended(attended))
	assert.False(t, p.HasAttended(booked))
}

func TestFormatParseRoundTrip(t *testing.T) {
	ids := []uuid.UUID{uuid.New(), uuid.New()}
	assert.Equal(t, ids, ParseIDs(FormatIDs(ids)))
}

func TestIsValidRole(t *testing.T) {
	assert.True(t, IsValidRole("ORGANIZER"))
	assert.False(t, IsValidRole("organizer"))
}
