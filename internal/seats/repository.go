package seats

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Repository interface {
	ListByEvent(ctx context.Context, eventID uuid.UUID) ([]SoldSeat, error)
	ListByRefs(ctx context.Context, eventID uuid.UUID, refs []SeatRef) ([]SoldSeat, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) ListByEvent(ctx context.Context, eventID uuid.UUID) ([]SoldSeat, error) {
	var sold []SoldSeat
	err := r.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		Order("seat_row, seat_column").
		Find(&sold).Error
	if err != nil {
		return nil, err
	}
	return sold, nil
}

func (r *repository) ListByRefs(ctx context.Context, eventID uuid.UUID, refs []SeatRef) ([]SoldSeat, error) {
	if len(refs) == 0 {
		return nil, nil
	}

	// (seat_row, seat_column) IN ((r1,c1), (r2,c2), ...)
	pairs := make([][]interface{}, 0, len(refs))
	for _, ref := range refs {
		pairs = append(pairs, []interface{}{ref.Row, ref.Column})
	}

	var sold []SoldSeat
	err := r.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		Where("(seat_row, seat_column) IN ?", pairs).
		Find(&sold).Error
	if err != nil {
		return nil, err
	}
	return sold, nil
}
