package events

import (
	"context"
	"fmt"
	"time"

	"eventhub/internal/shared/apperrors"
	"eventhub/internal/shared/constants"
	"eventhub/pkg/cache"
	"eventhub/pkg/logger"

	"github.com/google/uuid"
)

type Service interface {
	// SetCacheService enables Redis caching of event reads
	SetCacheService(cacheService cache.Service, availabilityTTL time.Duration)

	CreateEvent(ctx context.Context, organizerID uuid.UUID, req CreateEventRequest) (*EventResponse, error)
	GetEvent(ctx context.Context, id uuid.UUID) (*EventResponse, error)
	GetAvailability(ctx context.Context, id uuid.UUID) (*AvailabilityResponse, error)

	// InvalidateAvailability drops cached reads after seats change
	InvalidateAvailability(ctx context.Context, id uuid.UUID) error
}

type service struct {
	catalog         Catalog
	cacheService    cache.Service
	availabilityTTL time.Duration
	logger          *logger.Logger
}

func NewService(catalog Catalog, l *logger.Logger) Service {
	if l == nil {
		l = logger.GetDefault()
	}
	return &service{
		catalog:         catalog,
		availabilityTTL: constants.TTL_EVENT_AVAILABILITY,
		logger:          l,
	}
}

func (s *service) SetCacheService(cacheService cache.Service, availabilityTTL time.Duration) {
	s.cacheService = cacheService
	if availabilityTTL > 0 {
		s.availabilityTTL = availabilityTTL
	}
}

func (s *service) CreateEvent(ctx context.Context, organizerID uuid.UUID, req CreateEventRequest) (*EventResponse, error) {
	if organizerID == uuid.Nil {
		return nil, fmt.Errorf("organizer id is required: %w", apperrors.ErrInvalidArgument)
	}

	event := req.ToEvent(organizerID)
	if err := s.catalog.CreateEvent(ctx, event); err != nil {
		return nil, apperrors.Classify(err)
	}

	s.logger.LogEventCreated(ctx, event.ID.String(), organizerID.String())
	resp := event.ToResponse()
	return &resp, nil
}

func (s *service) GetEvent(ctx context.Context, id uuid.UUID) (*EventResponse, error) {
	return readThrough(ctx, s.cacheService, constants.BuildEventDetailKey(id.String()), constants.TTL_EVENT_DETAIL,
		func() (EventResponse, error) {
			event, err := s.catalog.GetEvent(ctx, id)
			if err != nil {
				return EventResponse{}, err
			}
			return event.ToResponse(), nil
		})
}

func (s *service) GetAvailability(ctx context.Context, id uuid.UUID) (*AvailabilityResponse, error) {
	return readThrough(ctx, s.cacheService, constants.BuildEventAvailabilityKey(id.String()), s.availabilityTTL,
		func() (AvailabilityResponse, error) {
			snap, err := s.catalog.GetCapacitySnapshot(ctx, id)
			if err != nil {
				return AvailabilityResponse{}, err
			}
			return snap.ToAvailability(), nil
		})
}

// readThrough serves from the cache when one is configured
func readThrough[T any](ctx context.Context, c cache.Service, key string, ttl time.Duration, fetch func() (T, error)) (*T, error) {
	var out T
	if c == nil {
		v, err := fetch()
		if err != nil {
			return nil, apperrors.Classify(err)
		}
		return &v, nil
	}

	err := c.GetOrSet(ctx, key, ttl, func() (interface{}, error) { return fetch() }, &out)
	if err != nil {
		return nil, apperrors.Classify(err)
	}
	return &out, nil
}

func (s *service) InvalidateAvailability(ctx context.Context, id uuid.UUID) error {
	if s.cacheService == nil {
		return nil
	}
	return s.cacheService.Delete(ctx,
		constants.BuildEventAvailabilityKey(id.String()),
		constants.BuildEventDetailKey(id.String()),
	)
}
