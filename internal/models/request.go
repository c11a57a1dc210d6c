package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	RequestPending    = "pending"
	RequestInProgress = "in_progress"
	RequestDone       = "done"
	RequestRejected   = "rejected"
)

// ContentRequest is a submitted content-production request. Fields holds the
// free-form form payload, which varies by request type.
type ContentRequest struct {
	ID        uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID    uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	Title     string         `gorm:"not null" json:"title"`
	Type      string         `gorm:"not null" json:"type"`
	Status    string         `gorm:"not null;default:'pending'" json:"status"`
	Fields    datatypes.JSON `gorm:"type:jsonb;default:'{}'" json:"fields"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func ValidRequestStatus(s string) bool {
	switch s {
	case RequestPending, RequestInProgress, RequestDone, RequestRejected:
		return true
	}
	return false
}
