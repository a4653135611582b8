package handlers

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"skill-tracker-progress/database"
	"skill-tracker-progress/models"
	"skill-tracker-progress/services"

	"github.com/gofiber/fiber/v2"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type routesEnv struct {
	app   *fiber.App
	store *services.ProgressStore
}

func newRoutesEnv(t *testing.T) *routesEnv {
	t.Helper()
	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "progress.db"), nil)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() { _ = database.Close(db) })

	clock := clockwork.NewFakeClockAt(time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC))
	catalog := services.DefaultCatalog()
	store := services.NewProgressStore(db, catalog, clock, services.DefaultMaxAttempts)
	evaluator := services.NewEvaluator(store, catalog, clock, time.UTC)

	app := fiber.New()
	SetupProgressRoutes(app, store, evaluator, time.Second)
	SetupAdminRoutes(app, store)
	return &routesEnv{app: app, store: store}
}

func (e *routesEnv) do(t *testing.T, method, path, userID, body string) (int, []byte) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}
	if strings.HasPrefix(path, "/s/admin") {
		req.Header.Set("X-User-Roles", "admin")
	}
	resp, err := e.app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, out
}

func TestProgressRoutes_RequireUser(t *testing.T) {
	env := newRoutesEnv(t)
	status, _ := env.do(t, http.MethodGet, "/user/progress", "", "")
	assert.Equal(t, fiber.StatusUnauthorized, status)
}

func TestProgressRoutes_InitAndGetProgress(t *testing.T) {
	env := newRoutesEnv(t)

	status, _ := env.do(t, http.MethodGet, "/user/progress", "u1", "")
	assert.Equal(t, fiber.StatusNotFound, status)

	status, _ = env.do(t, http.MethodPost, "/user/progress/init", "u1", "")
	assert.Equal(t, fiber.StatusNoContent, status)

	status, body := env.do(t, http.MethodGet, "/user/progress", "u1", "")
	require.Equal(t, fiber.StatusOK, status)
	var prog models.UserProgress
	require.NoError(t, json.Unmarshal(body, &prog))
	assert.Equal(t, "u1", prog.UserID)
	assert.Zero(t, prog.TotalTasksCompleted)
	assert.NotContains(t, string(body), "version")
}

func TestProgressRoutes_CompleteTask(t *testing.T) {
	env := newRoutesEnv(t)

	status, body := env.do(t, http.MethodPost, "/user/tasks/complete", "u1",
		`{"completion_id":"task-1","is_verified":true}`)
	require.Equal(t, fiber.StatusOK, status)

	var resp struct {
		Unlocked []models.UnlockedAchievement `json:"unlocked"`
	}
	require.NoError(t, json.Unmarshal(body, &resp))
	require.Len(t, resp.Unlocked, 1)
	assert.Equal(t, "task_initiate", resp.Unlocked[0].ID)

	// replay of the same completion id
	status, body = env.do(t, http.MethodPost, "/user/tasks/complete", "u1",
		`{"completion_id":"task-1","is_verified":true}`)
	require.Equal(t, fiber.StatusOK, status)
	assert.JSONEq(t, `{"unlocked":[]}`, string(body))

	// no body at all is an unverified completion
	status, body = env.do(t, http.MethodPost, "/user/tasks/complete", "u1", "")
	require.Equal(t, fiber.StatusOK, status)
	assert.JSONEq(t, `{"unlocked":[]}`, string(body))

	prog, err := env.store.GetProgress(testContext(t), "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), prog.TotalTasksCompleted)
}

func TestProgressRoutes_CompleteTaskBadJSON(t *testing.T) {
	env := newRoutesEnv(t)
	status, _ := env.do(t, http.MethodPost, "/user/tasks/complete", "u1", `{"is_verified":`)
	assert.Equal(t, fiber.StatusBadRequest, status)
}

func TestProgressRoutes_Counters(t *testing.T) {
	env := newRoutesEnv(t)
	env.do(t, http.MethodPost, "/user/progress/init", "u1", "")

	status, body := env.do(t, http.MethodPost, "/user/quizzes/passed", "u1", "")
	require.Equal(t, fiber.StatusOK, status)
	var prog models.UserProgress
	require.NoError(t, json.Unmarshal(body, &prog))
	assert.Equal(t, int64(1), prog.QuizzesPassedCount)

	status, body = env.do(t, http.MethodPost, "/user/roadmaps/completed", "u1", "")
	require.Equal(t, fiber.StatusOK, status)
	require.NoError(t, json.Unmarshal(body, &prog))
	assert.Equal(t, int64(1), prog.TotalRoadmapsCompleted)
}

func TestProgressRoutes_ListAchievements(t *testing.T) {
	env := newRoutesEnv(t)
	env.do(t, http.MethodPost, "/user/progress/init", "u1", "")
	env.do(t, http.MethodPost, "/user/tasks/complete", "u1", `{"is_verified":true}`)

	status, body := env.do(t, http.MethodGet, "/user/achievements", "u1", "")
	require.Equal(t, fiber.StatusOK, status)

	var views []achievementView
	require.NoError(t, json.Unmarshal(body, &views))
	require.Len(t, views, len(models.DefaultAchievements))
	for i, v := range views {
		assert.Equal(t, models.DefaultAchievements[i].ID, v.ID)
		assert.Equal(t, v.ID == "task_initiate", v.Unlocked, v.ID)
		assert.False(t, v.Retired, v.ID)
	}
	assert.Equal(t, "Streak", views[0].CategoryLabel)
}

func TestProgressRoutes_ListAchievementsFlagsRetired(t *testing.T) {
	env := newRoutesEnv(t)
	env.do(t, http.MethodPost, "/user/progress/init", "u1", "")

	retired := models.NewLockedRecord("u1", models.AchievementDefinition{
		ID: "old_badge", Name: "Old Badge", CriteriaType: models.CriteriaTotalTasks, CriteriaValue: 3,
	})
	require.NoError(t, env.store.DB.Create(&retired).Error)

	status, body := env.do(t, http.MethodGet, "/user/achievements", "u1", "")
	require.Equal(t, fiber.StatusOK, status)
	var views []achievementView
	require.NoError(t, json.Unmarshal(body, &views))
	require.Len(t, views, len(models.DefaultAchievements)+1)

	last := views[len(views)-1]
	assert.Equal(t, "old_badge", last.ID)
	assert.True(t, last.Retired)
}

func TestAdminRoutes_Backfill(t *testing.T) {
	env := newRoutesEnv(t)
	env.do(t, http.MethodPost, "/user/progress/init", "u1", "")

	status, body := env.do(t, http.MethodPost, "/s/admin/catalog/backfill", "ops", "")
	require.Equal(t, fiber.StatusOK, status)
	assert.JSONEq(t, `{"created":0}`, string(body))
}

func TestAdminRoutes_RequireAdminRole(t *testing.T) {
	env := newRoutesEnv(t)
	req := httptest.NewRequest(http.MethodPost, "/s/admin/catalog/backfill", nil)
	req.Header.Set("X-User-ID", "u1")
	resp, err := env.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestRespondError_StatusMapping(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{services.ErrProgressNotFound, fiber.StatusNotFound},
		{fmt.Errorf("%w: gave up", services.ErrConflict), fiber.StatusConflict},
		{fmt.Errorf("%w: disk gone", services.ErrStoreUnavailable), fiber.StatusServiceUnavailable},
		{errors.New("boom"), fiber.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			app := fiber.New()
			app.Get("/", func(c *fiber.Ctx) error { return respondError(c, "failed", tt.err) })
			resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
			require.NoError(t, err)
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}

func TestCategoryLabel(t *testing.T) {
	assert.Equal(t, "Task Completion", categoryLabel("task_completion"))
	assert.Equal(t, "Quiz", categoryLabel("quiz"))
	assert.Equal(t, "", categoryLabel(""))
}

func TestWriteAchievementEvents(t *testing.T) {
	at := time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)
	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)

	err := writeAchievementEvents(w, []models.AchievementRecord{
		{AchievementID: "habit_spark", Name: "Habit Spark", UnlockedAt: &at},
		{AchievementID: "task_initiate", Name: "Task Initiate", UnlockedAt: &at},
	})
	require.NoError(t, err)

	out := buf.String()
	assert.Equal(t, 2, strings.Count(out, "event: achievement\n"))
	assert.Contains(t, out, `"id":"habit_spark"`)
	assert.True(t, strings.HasSuffix(out, "\n\n"))
}
