package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CriteriaType names the progress metric an achievement is measured against.
type CriteriaType string

const (
	CriteriaStreakDays       CriteriaType = "streak_days"
	CriteriaTotalTasks       CriteriaType = "total_tasks"
	CriteriaPerfectDays      CriteriaType = "perfect_days"
	CriteriaQuizzesPassed    CriteriaType = "quizzes_passed"
	CriteriaRoadmapCompleted CriteriaType = "roadmap_completed"
)

func (c CriteriaType) Known() bool {
	switch c {
	case CriteriaStreakDays, CriteriaTotalTasks, CriteriaPerfectDays,
		CriteriaQuizzesPassed, CriteriaRoadmapCompleted:
		return true
	}
	return false
}

// AchievementDefinition is one static catalog entry.
type AchievementDefinition struct {
	ID            string       `yaml:"id" json:"id"`
	Name          string       `yaml:"name" json:"name"`
	Description   string       `yaml:"description" json:"description"`
	Icon          string       `yaml:"icon" json:"icon"`
	Category      string       `yaml:"category" json:"category"`
	CriteriaType  CriteriaType `yaml:"criteria_type" json:"criteria_type"`
	CriteriaValue int64        `yaml:"criteria_value" json:"criteria_value"`
	IsVerified    bool         `yaml:"is_verified" json:"is_verified"` // unlock needs a verified completion
}

// AchievementRecord is the per-user state of one catalog entry. Definition fields are
// denormalized so the full list can be rendered without the catalog.
type AchievementRecord struct {
	ID            string `gorm:"primaryKey;type:uuid" json:"id"`
	UserID        string `gorm:"not null;uniqueIndex:idx_user_achievement,priority:1" json:"user_id"`
	AchievementID string `gorm:"not null;uniqueIndex:idx_user_achievement,priority:2" json:"achievement_id"`

	Name          string       `gorm:"not null" json:"name"`
	Description   string       `json:"description"`
	Icon          string       `json:"icon"`
	Category      string       `gorm:"index" json:"category"`
	CriteriaType  CriteriaType `gorm:"type:varchar(32);not null" json:"criteria_type"`
	CriteriaValue int64        `gorm:"not null" json:"criteria_value"`
	IsVerified    bool         `gorm:"not null" json:"is_verified"`

	CurrentProgress int64      `gorm:"not null" json:"current_progress"`
	UnlockedAt      *time.Time `gorm:"index" json:"unlocked_at"` // nil = locked

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (r *AchievementRecord) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}

func (r AchievementRecord) Unlocked() bool {
	return r.UnlockedAt != nil
}

// NewLockedRecord builds the pre-created, locked record for a catalog entry.
func NewLockedRecord(userID string, def AchievementDefinition) AchievementRecord {
	return AchievementRecord{
		UserID:        userID,
		AchievementID: def.ID,
		Name:          def.Name,
		Description:   def.Description,
		Icon:          def.Icon,
		Category:      def.Category,
		CriteriaType:  def.CriteriaType,
		CriteriaValue: def.CriteriaValue,
		IsVerified:    def.IsVerified,
	}
}

// UnlockedAchievement is returned to callers for one-time unlock notifications.
type UnlockedAchievement struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Icon        string    `json:"icon"`
	Category    string    `json:"category"`
	UnlockedAt  time.Time `json:"unlocked_at"`
}
