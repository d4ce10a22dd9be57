package sales

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"boleto/internal/events"
	"boleto/internal/seats"
	"boleto/internal/sessions"
	"boleto/internal/shared/errs"
	"boleto/pkg/logger"
)

type Service interface {
	// Confirm finalizes the session's purchase: the selected seats become
	// sold, the session completes and its locks are released.
	Confirm(ctx context.Context, sessionID, ownerID uuid.UUID) (*SaleResponse, error)

	ListMySales(ctx context.Context, buyerID uuid.UUID) ([]SaleResponse, error)
	GetBySession(ctx context.Context, sessionID, ownerID uuid.UUID) (*SaleResponse, error)
}

type service struct {
	repo     Repository
	sessions sessions.Service
	producer Producer
	logger   *logger.Logger
}

func NewService(repo Repository, sessionService sessions.Service, producer Producer, log *logger.Logger) Service {
	return &service{
		repo:     repo,
		sessions: sessionService,
		producer: producer,
		logger:   log,
	}
}

func (s *service) Confirm(ctx context.Context, sessionID, ownerID uuid.UUID) (*SaleResponse, error) {
	var sale *Sale
	var sold []seats.SoldSeat

	_, _, err := s.sessions.Finalize(ctx, sessionID, ownerID, func(ctx context.Context, session *sessions.Session, event *events.Event) error {
		sale = &Sale{
			SessionID:  session.ID,
			EventID:    session.EventID,
			BuyerID:    session.OwnerID,
			TotalPrice: event.Price * float64(len(session.Seats)),
		}

		sold = make([]seats.SoldSeat, 0, len(session.Seats))
		for i := range session.Seats {
			sold = append(sold, seats.SoldSeat{
				EventID:      session.EventID,
				SeatRow:      session.Seats[i].SeatRow,
				SeatColumn:   session.Seats[i].SeatColumn,
				AttendeeName: session.Seats[i].AttendeeName,
			})
		}

		if err := s.repo.CreateSaleWithSeats(ctx, sale, sold); err != nil {
			if errors.Is(err, ErrSeatAlreadySold) {
				// The lock was verified held an instant ago, yet a sold
				// row exists. The lock table and the sold table disagree,
				// which is a fault in the coordinator, not buyer
				// contention.
				s.logger.LogConsistencyFailure(ctx, session.ID.String(), err)
				return errs.Wrap(errs.KindConsistency, err, "seat sold while its lock was held")
			}
			return errs.Wrap(errs.KindInternal, err, "failed to persist sale")
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.LogSaleConfirmed(ctx, sale.ID.String(), sessionID.String(), sale.EventID.String(), sale.TotalPrice)

	// Publishing is best effort, the sale already stands
	msg := &SaleConfirmedMessage{
		SaleID:     sale.ID.String(),
		SessionID:  sessionID.String(),
		EventID:    sale.EventID.String(),
		BuyerID:    sale.BuyerID.String(),
		SeatCount:  len(sold),
		TotalPrice: sale.TotalPrice,
		SoldAt:     sale.CreatedAt,
	}
	if pubErr := s.producer.PublishSaleConfirmed(ctx, msg); pubErr != nil {
		s.logger.WithError(pubErr).WarnContext(ctx, "Failed to publish sale confirmation",
			"sale_id", sale.ID.String())
	}

	resp := sale.ToResponse(sold)
	return &resp, nil
}

func (s *service) ListMySales(ctx context.Context, buyerID uuid.UUID) ([]SaleResponse, error) {
	salesList, bySale, err := s.repo.ListByBuyer(ctx, buyerID)
	if err != nil {
		return nil, errs.Wrap(errs.KindInternal, err, "failed to list sales")
	}

	responses := make([]SaleResponse, 0, len(salesList))
	for i := range salesList {
		responses = append(responses, salesList[i].ToResponse(bySale[salesList[i].ID]))
	}
	return responses, nil
}

func (s *service) GetBySession(ctx context.Context, sessionID, ownerID uuid.UUID) (*SaleResponse, error) {
	sale, sold, err := s.repo.GetBySessionID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, ErrSaleNotFound) {
			return nil, errs.New(errs.KindNotFound, "no sale for session %s", sessionID)
		}
		return nil, errs.Wrap(errs.KindInternal, err, "failed to load sale")
	}

	if sale.BuyerID != ownerID {
		return nil, errs.New(errs.KindNotFound, "no sale for session %s", sessionID)
	}

	resp := sale.ToResponse(sold)
	return &resp, nil
}
