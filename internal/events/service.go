package events

import (
	"context"
	"errors"
	"math"
	"time"

	"boleto/internal/shared/constants"
	"boleto/internal/shared/errs"
	"boleto/pkg/cache"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Service interface {
	SetCacheService(cacheService cache.Service)
	CreateEvent(userID uuid.UUID, req CreateEventRequest) (*EventResponse, error)
	GetEventByID(ctx context.Context, id uuid.UUID) (*EventResponse, error)
	UpdateEvent(id uuid.UUID, req UpdateEventRequest) (*EventResponse, error)
	GetAllEvents(query EventListQuery) (*PaginatedEvents, error)

	// GetSellableEvent loads the raw event row and checks that purchases
	// against it are allowed. Used by the session and seat layers.
	GetSellableEvent(ctx context.Context, id uuid.UUID) (*Event, error)
}

type service struct {
	repo         Repository
	cacheService cache.Service
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

// SetCacheService injects the cache service dependency
func (s *service) SetCacheService(cacheService cache.Service) {
	s.cacheService = cacheService
}

func (s *service) invalidateEventCache(ctx context.Context) {
	if s.cacheService == nil {
		return
	}
	// Listings and details both go stale on any write
	_ = s.cacheService.DeletePattern(ctx, constants.EventsPattern())
}

func (s *service) CreateEvent(userID uuid.UUID, req CreateEventRequest) (*EventResponse, error) {
	if req.DateTime.Before(time.Now()) {
		return nil, errs.New(errs.KindValidation, "event date must be in the future")
	}

	event := &Event{
		Name:         req.Name,
		Description:  req.Description,
		Venue:        req.Venue,
		DateTime:     req.DateTime,
		TotalRows:    req.TotalRows,
		TotalColumns: req.TotalColumns,
		Price:        req.Price,
		Status:       StatusDraft,
		CreatedBy:    userID,
	}

	if err := s.repo.Create(event); err != nil {
		return nil, errs.Wrap(errs.KindInternal, err, "failed to create event")
	}

	s.invalidateEventCache(context.Background())

	resp := event.ToResponse()
	return &resp, nil
}

func (s *service) GetEventByID(ctx context.Context, id uuid.UUID) (*EventResponse, error) {
	if s.cacheService != nil {
		var cached EventResponse
		key := constants.EventDetailKey(id.String())
		if err := s.cacheService.Get(ctx, key, &cached); err == nil {
			return &cached, nil
		}
	}

	event, err := s.repo.GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.New(errs.KindNotFound, "event %s not found", id)
		}
		return nil, errs.Wrap(errs.KindInternal, err, "failed to load event")
	}

	resp := event.ToResponse()

	if s.cacheService != nil {
		key := constants.EventDetailKey(id.String())
		_ = s.cacheService.Set(ctx, key, resp, constants.TTL_SEMI_STATIC_MEDIUM)
	}

	return &resp, nil
}

func (s *service) UpdateEvent(id uuid.UUID, req UpdateEventRequest) (*EventResponse, error) {
	updates := make(map[string]interface{})
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Venue != nil {
		updates["venue"] = *req.Venue
	}
	if req.DateTime != nil {
		updates["date_time"] = *req.DateTime
	}
	if req.Price != nil {
		updates["price"] = *req.Price
	}
	if req.Status != nil {
		updates["status"] = *req.Status
	}

	if len(updates) == 0 {
		return nil, errs.New(errs.KindValidation, "no fields to update")
	}

	event, err := s.repo.Update(id, updates)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.New(errs.KindNotFound, "event %s not found", id)
		}
		return nil, errs.Wrap(errs.KindInternal, err, "failed to update event")
	}

	s.invalidateEventCache(context.Background())

	resp := event.ToResponse()
	return &resp, nil
}

func (s *service) GetAllEvents(query EventListQuery) (*PaginatedEvents, error) {
	if query.Page == 0 {
		query.Page = 1
	}
	if query.Limit == 0 {
		query.Limit = 20
	}

	events, totalCount, err := s.repo.GetAll(query)
	if err != nil {
		return nil, errs.Wrap(errs.KindInternal, err, "failed to list events")
	}

	responses := make([]EventResponse, 0, len(events))
	for i := range events {
		responses = append(responses, events[i].ToResponse())
	}

	return &PaginatedEvents{
		Events:     responses,
		TotalCount: totalCount,
		Page:       query.Page,
		Limit:      query.Limit,
		TotalPages: int(math.Ceil(float64(totalCount) / float64(query.Limit))),
	}, nil
}

func (s *service) GetSellableEvent(ctx context.Context, id uuid.UUID) (*Event, error) {
	event, err := s.repo.GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.New(errs.KindNotFound, "event %s not found", id)
		}
		return nil, errs.Wrap(errs.KindInternal, err, "failed to load event")
	}

	if event.Status != StatusPublished {
		return nil, errs.New(errs.KindValidation, "event %s is not open for purchase", id)
	}

	return event, nil
}
