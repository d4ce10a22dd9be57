package events

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusDraft     Status = "DRAFT"
	StatusPublished Status = "PUBLISHED"
	StatusClosed    Status = "CLOSED"
)

type Event struct {
	ID           uuid.UUID `json:"id" gorm:"type:uuid;default:uuid_generate_v4();primaryKey"`
	Name         string    `json:"name" gorm:"not null;size:255"`
	Description  string    `json:"description" gorm:"type:text"`
	Venue        string    `json:"venue" gorm:"not null;size:255"`
	DateTime     time.Time `json:"date_time" gorm:"not null"`
	TotalRows    int       `json:"total_rows" gorm:"not null;check:total_rows > 0"`
	TotalColumns int       `json:"total_columns" gorm:"not null;check:total_columns > 0"`
	Price        float64   `json:"price" gorm:"not null;check:price >= 0"`
	Status       Status    `json:"status" gorm:"type:varchar(20);default:'DRAFT'"`

	CreatedBy uuid.UUID `json:"created_by" gorm:"type:uuid;not null"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

type EventResponse struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	Venue        string    `json:"venue"`
	DateTime     time.Time `json:"date_time"`
	TotalRows    int       `json:"total_rows"`
	TotalColumns int       `json:"total_columns"`
	TotalSeats   int       `json:"total_seats"`
	Price        float64   `json:"price"`
	Status       Status    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type CreateEventRequest struct {
	Name         string    `json:"name" binding:"required,min=3,max=255"`
	Description  string    `json:"description" binding:"max=2000"`
	Venue        string    `json:"venue" binding:"required,min=3,max=255"`
	DateTime     time.Time `json:"date_time" binding:"required"`
	TotalRows    int       `json:"total_rows" binding:"required,min=1,max=500"`
	TotalColumns int       `json:"total_columns" binding:"required,min=1,max=500"`
	Price        float64   `json:"price" binding:"required,min=0"`
}

type UpdateEventRequest struct {
	Name        *string    `json:"name" binding:"omitempty,min=3,max=255"`
	Description *string    `json:"description" binding:"omitempty,max=2000"`
	Venue       *string    `json:"venue" binding:"omitempty,min=3,max=255"`
	DateTime    *time.Time `json:"date_time"`
	Price       *float64   `json:"price" binding:"omitempty,min=0"`
	Status      *string    `json:"status" binding:"omitempty,oneof=DRAFT PUBLISHED CLOSED"`
}

type EventListQuery struct {
	Page   int    `form:"page" binding:"omitempty,min=1"`
	Limit  int    `form:"limit" binding:"omitempty,min=1,max=100"`
	Search string `form:"search"`
	Status string `form:"status" binding:"omitempty,oneof=DRAFT PUBLISHED CLOSED"`
}

type PaginatedEvents struct {
	Events     []EventResponse `json:"events"`
	TotalCount int64           `json:"total_count"`
	Page       int             `json:"page"`
	Limit      int             `json:"limit"`
	TotalPages int             `json:"total_pages"`
}

// SeatInBounds reports whether the seat coordinates fall inside the event grid.
// Rows and columns are 1-based.
func (e *Event) SeatInBounds(row, column int) bool {
	return row >= 1 && row <= e.TotalRows && column >= 1 && column <= e.TotalColumns
}

func (e *Event) ToResponse() EventResponse {
	return EventResponse{
		ID:           e.ID.String(),
		Name:         e.Name,
		Description:  e.Description,
		Venue:        e.Venue,
		DateTime:     e.DateTime,
		TotalRows:    e.TotalRows,
		TotalColumns: e.TotalColumns,
		TotalSeats:   e.TotalRows * e.TotalColumns,
		Price:        e.Price,
		Status:       e.Status,
		CreatedAt:    e.CreatedAt,
		UpdatedAt:    e.UpdatedAt,
	}
}

// TableName specifies the table name for GORM
func (Event) TableName() string {
	return "events"
}
