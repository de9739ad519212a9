package mongo

import (
	"testing"
	"time"

	"eventhub/internal/bookings"
	"eventhub/internal/events"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func TestEventDocKeepsNullCapacity(t *testing.T) {
	e := &events.Event{ID: uuid.New(), Name: "Open day", OrganizerID: uuid.New()}

	raw, err := bson.Marshal(toEventDoc(e))
	require.NoError(t, err)

	// reserve and release filters rely on capacity being stored as null
	value, err := bson.Raw(raw).LookupErr("capacity")
	require.NoError(t, err)
	assert.Equal(t, bson.TypeNull, value.Type)

	var decoded eventDoc
	require.NoError(t, bson.Unmarshal(raw, &decoded))
	got := decoded.toModel()
	assert.Equal(t, e.ID, got.ID)
	assert.Nil(t, got.Capacity)
}

func TestBookingDocMapping(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	b := bookings.NewBooking(uuid.New(), uuid.New(), 3, now)
	b.Cancel(now.Add(time.Hour))

	doc := toBookingDoc(b)
	assert.Equal(t, "CANCELLED", doc.Status)
	assert.Equal(t, b, doc.toModel())
}

func TestFiltersGuardUnlimitedEvents(t *testing.T) {
	id := uuid.New()

	reserve := reserveFilter(id, 2)
	assert.Equal(t, id.String(), reserve["_id"])
	assert.Equal(t, bson.M{"$ne": nil}, reserve["capacity"])
	assert.Equal(t, bson.M{"$gte": 2}, reserve["availableSeats"])

	release := releaseFilter(id, 2)
	assert.Equal(t, bson.M{"$ne": nil}, release["capacity"])
	assert.Contains(t, release, "$expr")
}

func TestMarkAttendedPipelineIsSingleStage(t *testing.T) {
	ids := []string{uuid.NewString()}
	p := markAttendedPipeline(ids, time.Now())

	require.Len(t, p, 1)
	stage := p[0]
	require.Len(t, stage, 1)
	assert.Equal(t, "$set", stage[0].Key)

	fields := stage[0].Value.(bson.D)
	keys := make([]string, len(fields))
	for i, f := range fields {
		keys[i] = f.Key
	}
	assert.Equal(t, []string{"attendedEvents", "bookedEvents", "updatedAt"}, keys)
}
