package sales

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"boleto/internal/seats"
)

// ErrSeatAlreadySold surfaces the unique index on (event_id, seat_row,
// seat_column) firing during finalization.
var ErrSeatAlreadySold = errors.New("seat already sold")

var ErrSaleNotFound = errors.New("sale not found")

type Repository interface {
	// CreateSaleWithSeats persists the sale and its sold seats in a single
	// transaction. Either everything lands or nothing does.
	CreateSaleWithSeats(ctx context.Context, sale *Sale, sold []seats.SoldSeat) error

	GetBySessionID(ctx context.Context, sessionID uuid.UUID) (*Sale, []seats.SoldSeat, error)
	ListByBuyer(ctx context.Context, buyerID uuid.UUID) ([]Sale, map[uuid.UUID][]seats.SoldSeat, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) CreateSaleWithSeats(ctx context.Context, sale *Sale, sold []seats.SoldSeat) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(sale).Error; err != nil {
			return err
		}

		for i := range sold {
			sold[i].SaleID = sale.ID
		}
		if err := tx.Create(&sold).Error; err != nil {
			return err
		}

		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrSeatAlreadySold
		}
		return err
	}
	return nil
}

func (r *repository) GetBySessionID(ctx context.Context, sessionID uuid.UUID) (*Sale, []seats.SoldSeat, error) {
	var sale Sale
	err := r.db.WithContext(ctx).Where("session_id = ?", sessionID).First(&sale).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrSaleNotFound
		}
		return nil, nil, err
	}

	var sold []seats.SoldSeat
	err = r.db.WithContext(ctx).
		Where("sale_id = ?", sale.ID).
		Order("seat_row, seat_column").
		Find(&sold).Error
	if err != nil {
		return nil, nil, err
	}

	return &sale, sold, nil
}

func (r *repository) ListByBuyer(ctx context.Context, buyerID uuid.UUID) ([]Sale, map[uuid.UUID][]seats.SoldSeat, error) {
	var salesList []Sale
	err := r.db.WithContext(ctx).
		Where("buyer_id = ?", buyerID).
		Order("created_at DESC").
		Find(&salesList).Error
	if err != nil {
		return nil, nil, err
	}

	if len(salesList) == 0 {
		return salesList, map[uuid.UUID][]seats.SoldSeat{}, nil
	}

	saleIDs := make([]uuid.UUID, 0, len(salesList))
	for i := range salesList {
		saleIDs = append(saleIDs, salesList[i].ID)
	}

	var sold []seats.SoldSeat
	err = r.db.WithContext(ctx).
		Where("sale_id IN ?", saleIDs).
		Order("seat_row, seat_column").
		Find(&sold).Error
	if err != nil {
		return nil, nil, err
	}

	bySale := make(map[uuid.UUID][]seats.SoldSeat, len(salesList))
	for i := range sold {
		bySale[sold[i].SaleID] = append(bySale[sold[i].SaleID], sold[i])
	}

	return salesList, bySale, nil
}
