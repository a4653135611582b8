package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"skill-tracker-progress/models"
	"skill-tracker-progress/utils"

	"github.com/jonboulle/clockwork"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DefaultMaxAttempts bounds RunProgressTransaction retries when none is configured.
const DefaultMaxAttempts = 5

// ProgressSnapshot is what a progress transaction sees: the user's progress row and
// every achievement record, keyed by achievement id.
type ProgressSnapshot struct {
	UserID   string
	Progress models.UserProgress
	Exists   bool // false when the progress row is missing
	Records  map[string]models.AchievementRecord

	// AlreadyApplied is set when WithCompletionID names a receipted completion.
	AlreadyApplied bool
}

// ProgressUpdate is the full set of writes produced by a transaction function.
type ProgressUpdate struct {
	Progress models.UserProgress
	Records  []models.AchievementRecord // upserted by (user_id, achievement_id)
	Receipt  *models.CompletionReceipt
}

// ProgressTxFunc computes the writes for one attempt. It must not touch the database
// and may run more than once. A nil update commits nothing.
type ProgressTxFunc func(snap *ProgressSnapshot) (*ProgressUpdate, error)

type txOptions struct {
	completionID string
}

type TxOption func(*txOptions)

// WithCompletionID makes the snapshot report whether completionID was already processed.
func WithCompletionID(id string) TxOption {
	return func(o *txOptions) { o.completionID = id }
}

// ProgressStore persists UserProgress and AchievementRecords with gorm. Updates use
// optimistic concurrency on UserProgress.Version.
type ProgressStore struct {
	DB          *gorm.DB
	Catalog     *Catalog
	Clock       clockwork.Clock
	MaxAttempts int

	afterRead func(userID string, attempt int)
}

func NewProgressStore(db *gorm.DB, catalog *Catalog, clock clockwork.Clock, maxAttempts int) *ProgressStore {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if maxAttempts < 1 {
		maxAttempts = DefaultMaxAttempts
	}
	return &ProgressStore{DB: db, Catalog: catalog, Clock: clock, MaxAttempts: maxAttempts}
}

// InitializeUserProgress creates zeroed progress and one locked record per catalog
// entry. It is a no-op for users that already have progress, including when two
// first logins race.
func (s *ProgressStore) InitializeUserProgress(ctx context.Context, userID string) error {
	if userID == "" {
		return errors.New("user id is required")
	}
	now := s.Clock.Now().UTC()

	created := false
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		prog := models.NewUserProgress(userID, now)
		prog.Version = 1
		res := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoNothing: true,
		}).Create(&prog)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		created = true

		records := s.lockedRecords(userID)
		if len(records) == 0 {
			return nil
		}
		return tx.Clauses(onRecordConflictDoNothing()).Create(&records).Error
	})
	if err != nil {
		return storeErr("initialize progress", err)
	}

	if created {
		utils.LogInfo("🆕 Progress initialized for %s (%d achievements)", userID, s.Catalog.Len())
	}
	return nil
}

// RunProgressTransaction runs fn against a fresh snapshot and commits its update
// atomically. If another transaction committed for the same user in between, the
// attempt is discarded and retried, up to MaxAttempts.
func (s *ProgressStore) RunProgressTransaction(ctx context.Context, userID string, fn ProgressTxFunc, opts ...TxOption) error {
	if userID == "" {
		return errors.New("user id is required")
	}
	var o txOptions
	for _, opt := range opts {
		opt(&o)
	}

	for attempt := 1; attempt <= s.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		snap, err := s.readSnapshot(ctx, userID, o)
		if err != nil {
			return err
		}
		if s.afterRead != nil {
			s.afterRead(userID, attempt)
		}

		update, err := fn(snap)
		if err != nil {
			return err
		}
		if update == nil {
			return nil
		}

		err = s.commit(ctx, snap, update)
		if errors.Is(err, ErrConflict) {
			utils.LogWarn("Progress conflict for %s (attempt %d/%d), retrying", userID, attempt, s.MaxAttempts)
			continue
		}
		if err == nil && attempt > 1 {
			utils.LogDebug("Progress for %s committed on attempt %d", userID, attempt)
		}
		return err
	}
	return fmt.Errorf("%w: gave up after %d attempts for %s", ErrConflict, s.MaxAttempts, userID)
}

// GetProgress returns the user's progress or ErrProgressNotFound.
func (s *ProgressStore) GetProgress(ctx context.Context, userID string) (*models.UserProgress, error) {
	var prog models.UserProgress
	err := s.DB.WithContext(ctx).Where("user_id = ?", userID).First(&prog).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrProgressNotFound
	}
	if err != nil {
		return nil, storeErr("load progress", err)
	}
	return &prog, nil
}

// ListAchievements returns every record of the user in catalog order. Records whose
// achievement left the catalog come last, by id.
func (s *ProgressStore) ListAchievements(ctx context.Context, userID string) ([]models.AchievementRecord, error) {
	var records []models.AchievementRecord
	if err := s.DB.WithContext(ctx).Where("user_id = ?", userID).Find(&records).Error; err != nil {
		return nil, storeErr("load achievements", err)
	}

	sort.SliceStable(records, func(i, j int) bool {
		pi, pj := s.Catalog.Position(records[i].AchievementID), s.Catalog.Position(records[j].AchievementID)
		switch {
		case pi >= 0 && pj >= 0:
			return pi < pj
		case pi >= 0:
			return true
		case pj >= 0:
			return false
		default:
			return records[i].AchievementID < records[j].AchievementID
		}
	})
	return records, nil
}

// UnlockedSince returns records the user unlocked strictly after since, oldest first.
func (s *ProgressStore) UnlockedSince(ctx context.Context, userID string, since time.Time) ([]models.AchievementRecord, error) {
	var records []models.AchievementRecord
	err := s.DB.WithContext(ctx).
		Where("user_id = ? AND unlocked_at IS NOT NULL AND unlocked_at > ?", userID, since).
		Order("unlocked_at ASC").
		Find(&records).Error
	if err != nil {
		return nil, storeErr("load unlocked achievements", err)
	}
	return records, nil
}

// BackfillAchievementRecords creates the missing locked records of every initialized
// user, e.g. after the catalog gained entries. Existing records are left untouched.
func (s *ProgressStore) BackfillAchievementRecords(ctx context.Context) (int64, error) {
	var userIDs []string
	if err := s.DB.WithContext(ctx).Model(&models.UserProgress{}).Pluck("user_id", &userIDs).Error; err != nil {
		return 0, storeErr("list users", err)
	}

	var created int64
	for _, userID := range userIDs {
		if err := ctx.Err(); err != nil {
			return created, err
		}
		records := s.lockedRecords(userID)
		if len(records) == 0 {
			break
		}
		res := s.DB.WithContext(ctx).Clauses(onRecordConflictDoNothing()).Create(&records)
		if res.Error != nil {
			return created, storeErr("backfill "+userID, res.Error)
		}
		created += res.RowsAffected
	}
	return created, nil
}

func (s *ProgressStore) readSnapshot(ctx context.Context, userID string, o txOptions) (*ProgressSnapshot, error) {
	db := s.DB.WithContext(ctx)
	snap := &ProgressSnapshot{
		UserID:  userID,
		Exists:  true,
		Records: make(map[string]models.AchievementRecord),
	}

	err := db.Where("user_id = ?", userID).First(&snap.Progress).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		snap.Exists = false
		snap.Progress = models.UserProgress{UserID: userID}
	} else if err != nil {
		return nil, storeErr("load progress", err)
	}

	var records []models.AchievementRecord
	if err := db.Where("user_id = ?", userID).Find(&records).Error; err != nil {
		return nil, storeErr("load achievements", err)
	}
	for _, r := range records {
		snap.Records[r.AchievementID] = r
	}

	if o.completionID != "" {
		var n int64
		err := db.Model(&models.CompletionReceipt{}).
			Where("user_id = ? AND completion_id = ?", userID, o.completionID).
			Count(&n).Error
		if err != nil {
			return nil, storeErr("load completion receipt", err)
		}
		snap.AlreadyApplied = n > 0
	}
	return snap, nil
}

func (s *ProgressStore) commit(ctx context.Context, snap *ProgressSnapshot, update *ProgressUpdate) error {
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		prog := update.Progress
		prog.UserID = snap.UserID

		if !snap.Exists {
			prog.ID = ""
			prog.Version = 1
			res := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "user_id"}},
				DoNothing: true,
			}).Create(&prog)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return ErrConflict
			}
		} else {
			res := tx.Model(&models.UserProgress{}).
				Where("user_id = ? AND version = ?", snap.UserID, snap.Progress.Version).
				Updates(map[string]interface{}{
					"last_task_completion_date": prog.LastTaskCompletionDate,
					"current_streak":            prog.CurrentStreak,
					"longest_streak":            prog.LongestStreak,
					"total_tasks_completed":     prog.TotalTasksCompleted,
					"perfect_days_count":        prog.PerfectDaysCount,
					"quizzes_passed_count":      prog.QuizzesPassedCount,
					"total_roadmaps_completed":  prog.TotalRoadmapsCompleted,
					"last_updated":              prog.LastUpdated,
					"version":                   snap.Progress.Version + 1,
				})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return ErrConflict
			}
		}

		for i := range update.Records {
			rec := update.Records[i]
			rec.UserID = snap.UserID
			// rows are matched on (user_id, achievement_id); existing ids are kept
			rec.ID = ""
			if err := tx.Clauses(onRecordConflictUpdate()).Create(&rec).Error; err != nil {
				return err
			}
		}

		if update.Receipt != nil {
			receipt := *update.Receipt
			receipt.UserID = snap.UserID
			if err := tx.Create(&receipt).Error; err != nil {
				return err
			}
		}
		return nil
	})

	if err == nil || errors.Is(err, ErrConflict) {
		return err
	}
	return storeErr("commit progress", err)
}

func (s *ProgressStore) lockedRecords(userID string) []models.AchievementRecord {
	defs := s.Catalog.Definitions()
	records := make([]models.AchievementRecord, 0, len(defs))
	for _, def := range defs {
		records = append(records, models.NewLockedRecord(userID, def))
	}
	return records
}

func onRecordConflictDoNothing() clause.OnConflict {
	return clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "achievement_id"}},
		DoNothing: true,
	}
}

func onRecordConflictUpdate() clause.OnConflict {
	return clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "achievement_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"name", "description", "icon", "category",
			"criteria_type", "criteria_value", "is_verified",
			"current_progress", "unlocked_at", "updated_at",
		}),
	}
}

func storeErr(op string, err error) error {
	if errors.Is(err, ErrStoreUnavailable) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %s: %v", ErrStoreUnavailable, op, err)
}
