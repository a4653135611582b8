package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// CompletionReceipt marks a caller-supplied completion id as processed.
type CompletionReceipt struct {
	ID           string `gorm:"primaryKey;type:uuid" json:"id"`
	UserID       string `gorm:"not null;uniqueIndex:idx_user_completion,priority:1" json:"user_id"`
	CompletionID string `gorm:"not null;uniqueIndex:idx_user_completion,priority:2" json:"completion_id"`

	IsVerified   bool           `gorm:"not null" json:"is_verified"`
	IsPerfectDay bool           `gorm:"not null" json:"is_perfect_day"`
	UnlockedIDs  datatypes.JSON `json:"unlocked_ids"` // e.g. ["habit_spark"]

	ProcessedAt time.Time `gorm:"not null" json:"processed_at"`
}

func (r *CompletionReceipt) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}
