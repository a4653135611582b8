package services

import (
	"path/filepath"
	"testing"
	"time"

	"skill-tracker-progress/database"
	"skill-tracker-progress/models"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// testStart is a Tuesday morning in UTC.
var testStart = time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)

type testEnv struct {
	db        *gorm.DB
	clock     *clockwork.FakeClock
	catalog   *Catalog
	store     *ProgressStore
	evaluator *Evaluator
}

// newTestDB opens a migrated sqlite database in the test's temp dir.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "progress.db"), nil)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() { _ = database.Close(db) })
	return db
}

// newTestEnv wires store and evaluator over a fresh database. With no defs the
// default catalog is used.
func newTestEnv(t *testing.T, defs ...models.AchievementDefinition) *testEnv {
	t.Helper()

	catalog := DefaultCatalog()
	if len(defs) > 0 {
		var err error
		catalog, err = NewCatalog(defs)
		require.NoError(t, err)
	}

	db := newTestDB(t)
	clock := clockwork.NewFakeClockAt(testStart)
	store := NewProgressStore(db, catalog, clock, DefaultMaxAttempts)
	return &testEnv{
		db:        db,
		clock:     clock,
		catalog:   catalog,
		store:     store,
		evaluator: NewEvaluator(store, catalog, clock, time.UTC),
	}
}

func (e *testEnv) progress(t *testing.T, userID string) *models.UserProgress {
	t.Helper()
	p, err := e.store.GetProgress(testContext(t), userID)
	require.NoError(t, err)
	return p
}

func (e *testEnv) record(t *testing.T, userID, achievementID string) models.AchievementRecord {
	t.Helper()
	var rec models.AchievementRecord
	err := e.db.Where("user_id = ? AND achievement_id = ?", userID, achievementID).First(&rec).Error
	require.NoError(t, err)
	return rec
}

func (e *testEnv) nextDay() {
	e.clock.Advance(24 * time.Hour)
}

func unlockedIDs(list []models.UnlockedAchievement) []string {
	ids := make([]string, 0, len(list))
	for _, a := range list {
		ids = append(ids, a.ID)
	}
	return ids
}

func def(id string, ct models.CriteriaType, value int64, verified bool) models.AchievementDefinition {
	return models.AchievementDefinition{
		ID:            id,
		Name:          id,
		Category:      "test",
		CriteriaType:  ct,
		CriteriaValue: value,
		IsVerified:    verified,
	}
}
