package sessions

import (
	"time"

	"github.com/google/uuid"

	"boleto/internal/seats"
)

// State is the lifecycle phase of a purchase session.
type State string

const (
	StateSeatSelection  State = "SEAT_SELECTION"
	StateNameAssignment State = "NAME_ASSIGNMENT"
	StateCompleted      State = "COMPLETED"
	StateExpired        State = "EXPIRED"
	StateCancelled      State = "CANCELLED"
)

// IsActive reports whether the session can still be mutated.
func (s State) IsActive() bool {
	return s == StateSeatSelection || s == StateNameAssignment
}

// IsTerminal reports whether the session reached a final state.
func (s State) IsTerminal() bool {
	return s == StateCompleted || s == StateExpired || s == StateCancelled
}

// Session is one buyer's in-flight purchase attempt. A buyer has at most
// one active session at a time.
type Session struct {
	ID      uuid.UUID `json:"id" gorm:"type:uuid;default:uuid_generate_v4();primaryKey"`
	EventID uuid.UUID `json:"event_id" gorm:"type:uuid;not null;index"`
	OwnerID uuid.UUID `json:"owner_id" gorm:"type:uuid;not null"`
	State   State     `json:"state" gorm:"type:varchar(20);not null;default:'SEAT_SELECTION'"`

	Seats []SessionSeat `json:"seats" gorm:"foreignKey:SessionID;constraint:OnDelete:CASCADE"`

	// ExpiresAt is the moment the session becomes eligible for expiry.
	// While no seats are selected it tracks an idle timeout; once seats
	// are locked it tracks the seat lock TTL.
	ExpiresAt      time.Time `json:"expires_at" gorm:"not null;index"`
	LastActivityAt time.Time `json:"last_activity_at" gorm:"not null"`
	CreatedAt      time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt      time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName specifies the table name for GORM
func (Session) TableName() string {
	return "sessions"
}

// SeatRefs returns the grid positions of the selected seats.
func (s *Session) SeatRefs() []seats.SeatRef {
	refs := make([]seats.SeatRef, 0, len(s.Seats))
	for i := range s.Seats {
		refs = append(refs, s.Seats[i].Ref())
	}
	return refs
}

// SessionSeat is one selected seat within a session, with the attendee
// name once assigned.
type SessionSeat struct {
	ID           uuid.UUID `json:"-" gorm:"type:uuid;default:uuid_generate_v4();primaryKey"`
	SessionID    uuid.UUID `json:"-" gorm:"type:uuid;not null;index"`
	SeatRow      int       `json:"row" gorm:"not null"`
	SeatColumn   int       `json:"column" gorm:"not null"`
	AttendeeName string    `json:"attendee_name"`
}

// TableName specifies the table name for GORM
func (SessionSeat) TableName() string {
	return "session_seats"
}

// Ref returns the grid position of the selected seat.
func (s *SessionSeat) Ref() seats.SeatRef {
	return seats.SeatRef{Row: s.SeatRow, Column: s.SeatColumn}
}

type StartSessionRequest struct {
	EventID string `json:"event_id" binding:"required,uuid"`
}

type SelectSeatsRequest struct {
	Seats []seats.SeatRef `json:"seats" binding:"required"`
}

type AssignNamesRequest struct {
	// Names maps "row-column" seat references to attendee names.
	Names map[string]string `json:"names" binding:"required"`
}

type SessionSeatResponse struct {
	Row          int    `json:"row"`
	Column       int    `json:"column"`
	AttendeeName string `json:"attendee_name,omitempty"`
}

type SessionResponse struct {
	ID             string                `json:"id"`
	EventID        string                `json:"event_id"`
	State          State                 `json:"state"`
	Seats          []SessionSeatResponse `json:"seats"`
	TotalPrice     float64               `json:"total_price"`
	ExpiresAt      time.Time             `json:"expires_at"`
	LastActivityAt time.Time             `json:"last_activity_at"`
	CreatedAt      time.Time             `json:"created_at"`
}

// ToResponse renders the session with the given per-seat price.
func (s *Session) ToResponse(seatPrice float64) SessionResponse {
	seatResponses := make([]SessionSeatResponse, 0, len(s.Seats))
	for i := range s.Seats {
		seatResponses = append(seatResponses, SessionSeatResponse{
			Row:          s.Seats[i].SeatRow,
			Column:       s.Seats[i].SeatColumn,
			AttendeeName: s.Seats[i].AttendeeName,
		})
	}

	return SessionResponse{
		ID:             s.ID.String(),
		EventID:        s.EventID.String(),
		State:          s.State,
		Seats:          seatResponses,
		TotalPrice:     seatPrice * float64(len(s.Seats)),
		ExpiresAt:      s.ExpiresAt,
		LastActivityAt: s.LastActivityAt,
		CreatedAt:      s.CreatedAt,
	}
}
