package notifications

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"eventhub/pkg/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	mu   sync.Mutex
	got  []*Notification
	err  error
	boom bool
}

func (s *recordingSink) Notify(_ context.Context, n *Notification) error {
	if s.boom {
		panic("sink exploded")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.got = append(s.got, n)
	return s.err
}

func (s *recordingSink) received() []*Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*Notification(nil), s.got...)
}

func TestDispatcherDeliversInBackground(t *testing.T) {
	sink := &recordingSink{}
	d := NewDispatcher(sink, logger.Discard(), time.Second)

	for i := 0; i < 5; i++ {
		d.Dispatch(NewReservation(uuid.New(), uuid.New(), uuid.New(), 1))
	}
	d.Wait()

	assert.Len(t, sink.received(), 5)
}

func TestDispatcherSwallowsSinkFailures(t *testing.T) {
	failing := &recordingSink{err: errors.New("broker down")}
	d := NewDispatcher(failing, logger.Discard(), time.Second)
	d.Dispatch(NewCancellation(uuid.New(), uuid.New(), uuid.New(), 1))
	d.Wait()
	assert.Len(t, failing.received(), 1)

	panicking := &recordingSink{boom: true}
	d = NewDispatcher(panicking, logger.Discard(), time.Second)
	assert.NotPanics(t, func() {
		d.Dispatch(NewCancellation(uuid.New(), uuid.New(), uuid.New(), 1))
		d.Wait()
	})
}

func TestLogSinkNeverFails(t *testing.T) {
	require.NoError(t, NewLogSink(logger.Discard()).Notify(context.Background(),
		NewReservation(uuid.New(), uuid.New(), uuid.New(), 1)))
}
