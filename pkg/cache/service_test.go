package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"eventhub/pkg/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func newTestService(t *testing.T) (Service, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewService(client, logger.Discard()), mr
}

func TestSetGetDelete(t *testing.T) {
	ctx := context.Background()
	svc, mr := newTestService(t)

	var got payload
	assert.ErrorIs(t, svc.Get(ctx, "k", &got), ErrCacheMiss)

	require.NoError(t, svc.Set(ctx, "k", payload{Name: "a", Count: 2}, time.Minute))
	require.NoError(t, svc.Get(ctx, "k", &got))
	assert.Equal(t, payload{Name: "a", Count: 2}, got)
	assert.True(t, svc.Exists(ctx, "k"))

	mr.FastForward(2 * time.Minute)
	assert.False(t, svc.Exists(ctx, "k"))

	require.NoError(t, svc.Set(ctx, "k", payload{}, time.Minute))
	require.NoError(t, svc.Delete(ctx, "k"))
	assert.False(t, svc.Exists(ctx, "k"))
}

func TestGetOrSetCallsFetcherOnce(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	calls := 0
	fetch := func() (interface{}, error) {
		calls++
		return payload{Name: "fresh", Count: calls}, nil
	}

	var first, second payload
	require.NoError(t, svc.GetOrSet(ctx, "k", time.Minute, fetch, &first))
	require.NoError(t, svc.GetOrSet(ctx, "k", time.Minute, fetch, &second))

	assert.Equal(t, 1, calls)
	assert.Equal(t, first, second)
}

func TestGetOrSetReturnsFetcherError(t *testing.T) {
	svc, _ := newTestService(t)
	boom := errors.New("not found")

	var dest payload
	err := svc.GetOrSet(context.Background(), "k", time.Minute, func() (interface{}, error) {
		return nil, boom
	}, &dest)
	assert.ErrorIs(t, err, boom)
	assert.False(t, svc.Exists(context.Background(), "k"))
}

func TestGetOrSetSurvivesRedisOutage(t *testing.T) {
	svc, mr := newTestService(t)
	mr.Close()

	var dest payload
	err := svc.GetOrSet(context.Background(), "k", time.Minute, func() (interface{}, error) {
		return payload{Name: "db"}, nil
	}, &dest)
	require.NoError(t, err)
	assert.Equal(t, "db", dest.Name)
}
