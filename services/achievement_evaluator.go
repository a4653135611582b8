package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"skill-tracker-progress/models"
	"skill-tracker-progress/utils"

	"github.com/jonboulle/clockwork"
	"gorm.io/datatypes"
)

// CompletionEvent is one task marked done by a user.
type CompletionEvent struct {
	UserID       string
	CompletionID string // optional; replays of a processed id change nothing
	IsVerified   bool
	IsPerfectDay bool
}

// Evaluator updates progress metrics for completion events and unlocks achievements.
type Evaluator struct {
	Store    *ProgressStore
	Catalog  *Catalog
	Clock    clockwork.Clock
	Location *time.Location // calendar used for streak days
}

func NewEvaluator(store *ProgressStore, catalog *Catalog, clock clockwork.Clock, loc *time.Location) *Evaluator {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if loc == nil {
		loc = time.Local
	}
	return &Evaluator{Store: store, Catalog: catalog, Clock: clock, Location: loc}
}

// ProcessCompletion records one completion and returns the achievements it unlocked.
func (e *Evaluator) ProcessCompletion(ctx context.Context, userID string, isVerifiedCompletion, isPerfectDay bool) ([]models.UnlockedAchievement, error) {
	return e.Process(ctx, CompletionEvent{
		UserID:       userID,
		IsVerified:   isVerifiedCompletion,
		IsPerfectDay: isPerfectDay,
	})
}

// Process applies ev in a single progress transaction. On error nothing was written
// and the returned slice is nil.
func (e *Evaluator) Process(ctx context.Context, ev CompletionEvent) ([]models.UnlockedAchievement, error) {
	var unlocked []models.UnlockedAchievement

	var opts []TxOption
	if ev.CompletionID != "" {
		opts = append(opts, WithCompletionID(ev.CompletionID))
	}

	err := e.Store.RunProgressTransaction(ctx, ev.UserID, func(snap *ProgressSnapshot) (*ProgressUpdate, error) {
		unlocked = []models.UnlockedAchievement{}

		if snap.AlreadyApplied {
			utils.LogInfo("Completion %s for %s already processed, skipping", ev.CompletionID, ev.UserID)
			return nil, nil
		}
		if !snap.Exists {
			utils.LogWarn("Progress missing for %s, initializing in place", ev.UserID)
		}

		now := e.Clock.Now().UTC()
		prev := snap.Progress

		next := prev
		next.CurrentStreak = NextStreak(now, e.Location, prev.LastTaskCompletionDate, prev.CurrentStreak)
		next.LongestStreak = max(prev.LongestStreak, next.CurrentStreak)
		next.TotalTasksCompleted = prev.TotalTasksCompleted + 1
		if ev.IsPerfectDay {
			next.PerfectDaysCount = prev.PerfectDaysCount + 1
		}
		completedAt := now
		next.LastTaskCompletionDate = &completedAt
		next.LastUpdated = now

		update := &ProgressUpdate{Progress: next}

		for _, def := range e.Catalog.Definitions() {
			rec, ok := snap.Records[def.ID]
			if ok && rec.Unlocked() {
				continue
			}
			if !ok {
				rec = models.NewLockedRecord(ev.UserID, def)
			}

			metric, err := metricFor(def.CriteriaType, &next)
			if err != nil {
				utils.LogWarn("Skipping achievement %s: %v", def.ID, err)
				continue
			}

			rec.CurrentProgress = metric
			if qualifies(def, metric, ev) {
				unlockedAt := now
				rec.UnlockedAt = &unlockedAt
				rec.CurrentProgress = def.CriteriaValue
				unlocked = append(unlocked, models.UnlockedAchievement{
					ID:          def.ID,
					Name:        def.Name,
					Description: def.Description,
					Icon:        def.Icon,
					Category:    def.Category,
					UnlockedAt:  unlockedAt,
				})
			}
			rec.UpdatedAt = now
			update.Records = append(update.Records, rec)
		}

		if ev.CompletionID != "" {
			receipt, err := newReceipt(ev, unlocked, now)
			if err != nil {
				return nil, err
			}
			update.Receipt = receipt
		}
		return update, nil
	}, opts...)
	if err != nil {
		utils.LogError("Failed to process completion for %s: %v", ev.UserID, err)
		return nil, err
	}

	for _, a := range unlocked {
		utils.LogSuccess("🏆 Achievement unlocked: %s → %s", a.Name, ev.UserID)
	}
	return unlocked, nil
}

// qualifies reports whether a locked achievement unlocks on this event. Perfect-day
// achievements additionally need the event itself to complete a perfect day.
func qualifies(def models.AchievementDefinition, metric int64, ev CompletionEvent) bool {
	if metric < def.CriteriaValue {
		return false
	}
	if def.IsVerified && !ev.IsVerified {
		return false
	}
	if def.CriteriaType == models.CriteriaPerfectDays && !ev.IsPerfectDay {
		return false
	}
	return true
}

func metricFor(ct models.CriteriaType, p *models.UserProgress) (int64, error) {
	switch ct {
	case models.CriteriaStreakDays:
		return int64(p.CurrentStreak), nil
	case models.CriteriaTotalTasks:
		return p.TotalTasksCompleted, nil
	case models.CriteriaPerfectDays:
		return p.PerfectDaysCount, nil
	case models.CriteriaQuizzesPassed:
		return p.QuizzesPassedCount, nil
	case models.CriteriaRoadmapCompleted:
		return p.TotalRoadmapsCompleted, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownCriteriaType, ct)
	}
}

func newReceipt(ev CompletionEvent, unlocked []models.UnlockedAchievement, now time.Time) (*models.CompletionReceipt, error) {
	ids := make([]string, 0, len(unlocked))
	for _, a := range unlocked {
		ids = append(ids, a.ID)
	}
	raw, err := json.Marshal(ids)
	if err != nil {
		return nil, fmt.Errorf("encode receipt: %w", err)
	}
	return &models.CompletionReceipt{
		UserID:       ev.UserID,
		CompletionID: ev.CompletionID,
		IsVerified:   ev.IsVerified,
		IsPerfectDay: ev.IsPerfectDay,
		UnlockedIDs:  datatypes.JSON(raw),
		ProcessedAt:  now,
	}, nil
}
