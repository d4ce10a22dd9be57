package seats

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"boleto/internal/events"
	"boleto/internal/shared/constants"
	"boleto/internal/shared/errs"
	"boleto/pkg/cache"
	"boleto/pkg/clock"
)

type Service interface {
	GetSeatMatrix(ctx context.Context, eventID uuid.UUID) (*SeatMatrix, error)
	SetCacheService(cacheService cache.Service)
}

type service struct {
	repo         Repository
	locks        *LockTable
	eventRepo    events.Repository
	clock        clock.Clock
	cacheService cache.Service
}

func NewService(repo Repository, locks *LockTable, eventRepo events.Repository, clk clock.Clock) Service {
	return &service{
		repo:      repo,
		locks:     locks,
		eventRepo: eventRepo,
		clock:     clk,
	}
}

// SetCacheService injects the cache service dependency
func (s *service) SetCacheService(cacheService cache.Service) {
	s.cacheService = cacheService
}

// GetSeatMatrix builds a point-in-time snapshot of every seat in the event
// grid. Sold rows come from Postgres, locks from Redis. A seat that is both
// sold and still carries a stale lock reports as SOLD. Snapshots are cached
// for a short window; the lock table drops the entry on every mutation.
func (s *service) GetSeatMatrix(ctx context.Context, eventID uuid.UUID) (*SeatMatrix, error) {
	if s.cacheService != nil {
		key := constants.SeatMatrixKey(eventID.String())
		var cached SeatMatrix
		if err := s.cacheService.Get(ctx, key, &cached); err == nil {
			return &cached, nil
		}
	}

	event, err := s.eventRepo.GetByID(eventID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.New(errs.KindNotFound, "event %s not found", eventID)
		}
		return nil, errs.Wrap(errs.KindInternal, err, "failed to load event")
	}

	sold, err := s.repo.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, errs.Wrap(errs.KindInternal, err, "failed to load sold seats")
	}

	locked, err := s.locks.Snapshot(ctx, eventID.String())
	if err != nil {
		return nil, err
	}

	matrix := &SeatMatrix{
		EventID:   eventID.String(),
		Rows:      event.TotalRows,
		Columns:   event.TotalColumns,
		Seats:     make([][]SeatState, event.TotalRows),
		QueriedAt: s.clock.Now().UTC(),
	}

	for row := 0; row < event.TotalRows; row++ {
		matrix.Seats[row] = make([]SeatState, event.TotalColumns)
		for column := 0; column < event.TotalColumns; column++ {
			matrix.Seats[row][column] = StateAvailable
		}
	}

	for member := range locked {
		ref, err := ParseSeatRef(member)
		if err != nil || !event.SeatInBounds(ref.Row, ref.Column) {
			continue
		}
		matrix.Seats[ref.Row-1][ref.Column-1] = StateLocked
	}

	for i := range sold {
		ref := sold[i].Ref()
		if !event.SeatInBounds(ref.Row, ref.Column) {
			continue
		}
		matrix.Seats[ref.Row-1][ref.Column-1] = StateSold
	}

	for row := range matrix.Seats {
		for _, state := range matrix.Seats[row] {
			switch state {
			case StateAvailable:
				matrix.Available++
			case StateLocked:
				matrix.Locked++
			case StateSold:
				matrix.Sold++
			}
		}
	}

	if s.cacheService != nil {
		key := constants.SeatMatrixKey(eventID.String())
		_ = s.cacheService.Set(ctx, key, matrix, constants.TTL_REALTIME_SHORT)
	}

	return matrix, nil
}
