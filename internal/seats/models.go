package seats

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"boleto/internal/shared/errs"
)

// SeatState is the observable state of a single seat in the matrix.
type SeatState string

const (
	StateAvailable SeatState = "AVAILABLE"
	StateLocked    SeatState = "LOCKED"
	StateSold      SeatState = "SOLD"
)

// SeatRef addresses one seat in an event grid. Rows and columns are 1-based.
type SeatRef struct {
	Row    int `json:"row"`
	Column int `json:"column"`
}

// Key renders the canonical "row-column" form used in lock keys,
// attendee name maps and API payloads.
func (r SeatRef) Key() string {
	return fmt.Sprintf("%d-%d", r.Row, r.Column)
}

// ParseSeatRef parses the "row-column" form back into a SeatRef.
func ParseSeatRef(key string) (SeatRef, error) {
	parts := strings.SplitN(key, "-", 2)
	if len(parts) != 2 {
		return SeatRef{}, errs.New(errs.KindValidation, "invalid seat reference %q, expected row-column", key)
	}

	row, err := strconv.Atoi(parts[0])
	if err != nil {
		return SeatRef{}, errs.New(errs.KindValidation, "invalid seat row in %q", key)
	}
	column, err := strconv.Atoi(parts[1])
	if err != nil {
		return SeatRef{}, errs.New(errs.KindValidation, "invalid seat column in %q", key)
	}

	return SeatRef{Row: row, Column: column}, nil
}

// SoldSeat is the durable record of a finalized seat. The unique index on
// (event_id, seat_row, seat_column) is what makes selling the same seat
// twice impossible, regardless of what the lock layer believes.
type SoldSeat struct {
	ID           uuid.UUID `json:"id" gorm:"type:uuid;default:uuid_generate_v4();primaryKey"`
	EventID      uuid.UUID `json:"event_id" gorm:"type:uuid;not null;index"`
	SaleID       uuid.UUID `json:"sale_id" gorm:"type:uuid;not null;index"`
	SeatRow      int       `json:"seat_row" gorm:"not null"`
	SeatColumn   int       `json:"seat_column" gorm:"not null"`
	AttendeeName string    `json:"attendee_name" gorm:"not null;size:255"`
	CreatedAt    time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// TableName specifies the table name for GORM
func (SoldSeat) TableName() string {
	return "sold_seats"
}

// Ref returns the grid position of the sold seat.
func (s *SoldSeat) Ref() SeatRef {
	return SeatRef{Row: s.SeatRow, Column: s.SeatColumn}
}

// SeatMatrix is the point-in-time snapshot of every seat state for an event.
// Seat coordinates are 1-based, so Seats[r][c] holds seat (r+1, c+1).
type SeatMatrix struct {
	EventID   string        `json:"event_id"`
	Rows      int           `json:"rows"`
	Columns   int           `json:"columns"`
	Seats     [][]SeatState `json:"seats"`
	Available int           `json:"available"`
	Locked    int           `json:"locked"`
	Sold      int           `json:"sold"`
	QueriedAt time.Time     `json:"queried_at"`
}
