package services

import (
	"context"

	"skill-tracker-progress/models"
	"skill-tracker-progress/utils"
)

// RecordQuizPassed adds one passed quiz to the user's progress.
func (e *Evaluator) RecordQuizPassed(ctx context.Context, userID string) (*models.UserProgress, error) {
	return e.bumpCounter(ctx, userID, models.CriteriaQuizzesPassed)
}

// RecordRoadmapCompleted adds one finished roadmap to the user's progress.
func (e *Evaluator) RecordRoadmapCompleted(ctx context.Context, userID string) (*models.UserProgress, error) {
	return e.bumpCounter(ctx, userID, models.CriteriaRoadmapCompleted)
}

// bumpCounter increments the counter behind ct and refreshes currentProgress on the
// matching locked records. It never unlocks; the next completion event does.
func (e *Evaluator) bumpCounter(ctx context.Context, userID string, ct models.CriteriaType) (*models.UserProgress, error) {
	var result models.UserProgress

	err := e.Store.RunProgressTransaction(ctx, userID, func(snap *ProgressSnapshot) (*ProgressUpdate, error) {
		now := e.Clock.Now().UTC()
		next := snap.Progress
		switch ct {
		case models.CriteriaQuizzesPassed:
			next.QuizzesPassedCount++
		case models.CriteriaRoadmapCompleted:
			next.TotalRoadmapsCompleted++
		}
		next.LastUpdated = now

		update := &ProgressUpdate{Progress: next}
		for _, def := range e.Catalog.Definitions() {
			if def.CriteriaType != ct {
				continue
			}
			rec, ok := snap.Records[def.ID]
			if ok && rec.Unlocked() {
				continue
			}
			if !ok {
				rec = models.NewLockedRecord(userID, def)
			}
			rec.CurrentProgress, _ = metricFor(ct, &next)
			rec.UpdatedAt = now
			update.Records = append(update.Records, rec)
		}

		result = next
		return update, nil
	})
	if err != nil {
		utils.LogError("Failed to record %s for %s: %v", ct, userID, err)
		return nil, err
	}
	return &result, nil
}
