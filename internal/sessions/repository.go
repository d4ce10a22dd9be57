package sessions

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrSessionNotFound = errors.New("session not found")

type Repository interface {
	Create(ctx context.Context, session *Session) error
	GetByID(ctx context.Context, id uuid.UUID) (*Session, error)
	GetActiveByOwner(ctx context.Context, ownerID uuid.UUID) (*Session, error)
	Save(ctx context.Context, session *Session) error
	ReplaceSeats(ctx context.Context, session *Session, newSeats []SessionSeat) error
	UpdateSeatNames(ctx context.Context, session *Session) error
	ListExpired(ctx context.Context, now time.Time, limit int) ([]Session, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, session *Session) error {
	return r.db.WithContext(ctx).Create(session).Error
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Session, error) {
	var session Session
	err := r.db.WithContext(ctx).
		Preload("Seats").
		Where("id = ?", id).
		First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return &session, nil
}

func (r *repository) GetActiveByOwner(ctx context.Context, ownerID uuid.UUID) (*Session, error) {
	var session Session
	err := r.db.WithContext(ctx).
		Preload("Seats").
		Where("owner_id = ? AND state IN ?", ownerID, []State{StateSeatSelection, StateNameAssignment}).
		Order("created_at DESC").
		First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return &session, nil
}

func (r *repository) Save(ctx context.Context, session *Session) error {
	return r.db.WithContext(ctx).
		Omit("Seats").
		Save(session).Error
}

// ReplaceSeats swaps the session's seat rows for the new selection in one
// transaction and persists the session's updated fields alongside.
func (r *repository) ReplaceSeats(ctx context.Context, session *Session, newSeats []SessionSeat) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("session_id = ?", session.ID).Delete(&SessionSeat{}).Error; err != nil {
			return err
		}

		for i := range newSeats {
			newSeats[i].SessionID = session.ID
		}
		if len(newSeats) > 0 {
			if err := tx.Create(&newSeats).Error; err != nil {
				return err
			}
		}

		if err := tx.Omit("Seats").Save(session).Error; err != nil {
			return err
		}

		return nil
	})
}

// UpdateSeatNames persists the attendee names on the session's seat rows
// together with the session's updated fields.
func (r *repository) UpdateSeatNames(ctx context.Context, session *Session) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range session.Seats {
			err := tx.Model(&SessionSeat{}).
				Where("id = ?", session.Seats[i].ID).
				Update("attendee_name", session.Seats[i].AttendeeName).Error
			if err != nil {
				return err
			}
		}

		return tx.Omit("Seats").Save(session).Error
	})
}

func (r *repository) ListExpired(ctx context.Context, now time.Time, limit int) ([]Session, error) {
	var expired []Session
	err := r.db.WithContext(ctx).
		Preload("Seats").
		Where("state IN ? AND expires_at <= ?", []State{StateSeatSelection, StateNameAssignment}, now).
		Limit(limit).
		Find(&expired).Error
	if err != nil {
		return nil, err
	}
	return expired, nil
}
