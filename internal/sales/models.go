package sales

import (
	"time"

	"github.com/google/uuid"

	"boleto/internal/seats"
)

// Sale is the durable record of a finalized purchase. The actual seats
// live in sold_seats rows pointing back at the sale.
type Sale struct {
	ID         uuid.UUID `json:"id" gorm:"type:uuid;default:uuid_generate_v4();primaryKey"`
	SessionID  uuid.UUID `json:"session_id" gorm:"type:uuid;not null;uniqueIndex"`
	EventID    uuid.UUID `json:"event_id" gorm:"type:uuid;not null;index"`
	BuyerID    uuid.UUID `json:"buyer_id" gorm:"type:uuid;not null;index"`
	TotalPrice float64   `json:"total_price" gorm:"not null"`
	CreatedAt  time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// TableName specifies the table name for GORM
func (Sale) TableName() string {
	return "sales"
}

type SaleSeatResponse struct {
	Row          int    `json:"row"`
	Column       int    `json:"column"`
	AttendeeName string `json:"attendee_name"`
}

type SaleResponse struct {
	ID         string             `json:"id"`
	SessionID  string             `json:"session_id"`
	EventID    string             `json:"event_id"`
	Seats      []SaleSeatResponse `json:"seats"`
	TotalPrice float64            `json:"total_price"`
	CreatedAt  time.Time          `json:"created_at"`
}

// ToResponse renders the sale with its sold seats.
func (s *Sale) ToResponse(sold []seats.SoldSeat) SaleResponse {
	seatResponses := make([]SaleSeatResponse, 0, len(sold))
	for i := range sold {
		seatResponses = append(seatResponses, SaleSeatResponse{
			Row:          sold[i].SeatRow,
			Column:       sold[i].SeatColumn,
			AttendeeName: sold[i].AttendeeName,
		})
	}

	return SaleResponse{
		ID:         s.ID.String(),
		SessionID:  s.SessionID.String(),
		EventID:    s.EventID.String(),
		Seats:      seatResponses,
		TotalPrice: s.TotalPrice,
		CreatedAt:  s.CreatedAt,
	}
}

// SaleConfirmedMessage is the payload published to Kafka when a purchase
// finalizes.
type SaleConfirmedMessage struct {
	SaleID     string    `json:"sale_id"`
	SessionID  string    `json:"session_id"`
	EventID    string    `json:"event_id"`
	BuyerID    string    `json:"buyer_id"`
	SeatCount  int       `json:"seat_count"`
	TotalPrice float64   `json:"total_price"`
	SoldAt     time.Time `json:"sold_at"`
}
