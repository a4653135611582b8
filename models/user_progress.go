package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserProgress tracks streak and completion statistics for one user (one row per user).
type UserProgress struct {
	ID     string `gorm:"primaryKey;type:uuid" json:"id"`
	UserID string `gorm:"uniqueIndex;not null" json:"user_id"` // links to the auth provider's user id

	LastTaskCompletionDate *time.Time `json:"last_task_completion_date"`

	// Streaks
	CurrentStreak int `gorm:"not null" json:"current_streak"`
	LongestStreak int `gorm:"not null" json:"longest_streak"` // never below CurrentStreak

	// Activity counters, never decremented
	TotalTasksCompleted    int64 `gorm:"not null" json:"total_tasks_completed"`
	PerfectDaysCount       int64 `gorm:"not null" json:"perfect_days_count"`
	QuizzesPassedCount     int64 `gorm:"not null" json:"quizzes_passed_count"`
	TotalRoadmapsCompleted int64 `gorm:"not null" json:"total_roadmaps_completed"`

	// Version is bumped by every committed progress transaction.
	Version int64 `gorm:"not null" json:"-"`

	LastUpdated time.Time `json:"last_updated"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (p *UserProgress) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

// NewUserProgress returns the zeroed progress a user starts with.
func NewUserProgress(userID string, now time.Time) UserProgress {
	return UserProgress{
		UserID:      userID,
		LastUpdated: now,
	}
}
