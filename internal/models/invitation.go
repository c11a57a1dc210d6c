package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	InvitationPending  = "pending"
	InvitationAccepted = "accepted"
	InvitationRevoked  = "revoked"
)

type Invitation struct {
	ID         uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Email      string         `gorm:"not null;index" json:"email"`
	FullName   string         `gorm:"not null" json:"full_name"`
	Role       string         `gorm:"not null;default:'user'" json:"role"`
	Status     string         `gorm:"not null;default:'pending'" json:"status"`
	Token      string         `gorm:"uniqueIndex;not null" json:"token"`
	InvitedBy  uuid.UUID      `gorm:"type:uuid" json:"invited_by"`
	ExpiresAt  time.Time      `json:"expires_at"`
	AcceptedAt *time.Time     `json:"accepted_at,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
}

func (i *Invitation) Expired() bool {
	return time.Now().After(i.ExpiresAt)
}
