// handlers/progress_routes.go
package handlers

import (
	"errors"
	"strings"
	"time"

	"skill-tracker-progress/middleware"
	"skill-tracker-progress/models"
	"skill-tracker-progress/services"
	"skill-tracker-progress/utils"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

type completeTaskRequest struct {
	CompletionID string `json:"completion_id"`
	IsVerified   bool   `json:"is_verified"`
	IsPerfectDay bool   `json:"is_perfect_day"`
}

// achievementView is one row of the achievements screen.
type achievementView struct {
	ID              string              `json:"id"`
	Name            string              `json:"name"`
	Description     string              `json:"description"`
	Icon            string              `json:"icon"`
	Category        string              `json:"category"`
	CategoryLabel   string              `json:"category_label"`
	CriteriaType    models.CriteriaType `json:"criteria_type"`
	CriteriaValue   int64               `json:"criteria_value"`
	IsVerified      bool                `json:"is_verified"`
	CurrentProgress int64               `json:"current_progress"`
	Unlocked        bool                `json:"unlocked"`
	UnlockedAt      *time.Time          `json:"unlocked_at"`
	Retired         bool                `json:"retired"` // no longer in the catalog
}

// SetupProgressRoutes registers the per-user progress API. The gateway forwards
// paths like /api/v1/progress/user/progress -> /user/progress.
func SetupProgressRoutes(app *fiber.App, store *services.ProgressStore, evaluator *services.Evaluator, streamPoll time.Duration) {
	user := app.Group("/user", middleware.UserContextMiddleware())

	user.Post("/progress/init", func(c *fiber.Ctx) error {
		userID := c.Locals(middleware.LocalUserID).(string)
		if err := store.InitializeUserProgress(c.UserContext(), userID); err != nil {
			return respondError(c, "failed to initialize progress", err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	user.Post("/tasks/complete", func(c *fiber.Ctx) error {
		userID := c.Locals(middleware.LocalUserID).(string)

		var req completeTaskRequest
		if len(c.Body()) > 0 {
			if err := c.BodyParser(&req); err != nil {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "invalid JSON",
					"cause": err.Error(),
				})
			}
		}

		unlocked, err := evaluator.Process(c.UserContext(), services.CompletionEvent{
			UserID:       userID,
			CompletionID: strings.TrimSpace(req.CompletionID),
			IsVerified:   req.IsVerified,
			IsPerfectDay: req.IsPerfectDay,
		})
		if err != nil {
			return respondError(c, "failed to process completion", err)
		}
		return c.JSON(fiber.Map{"unlocked": unlocked})
	})

	user.Post("/quizzes/passed", func(c *fiber.Ctx) error {
		userID := c.Locals(middleware.LocalUserID).(string)
		prog, err := evaluator.RecordQuizPassed(c.UserContext(), userID)
		if err != nil {
			return respondError(c, "failed to record quiz", err)
		}
		return c.JSON(prog)
	})

	user.Post("/roadmaps/completed", func(c *fiber.Ctx) error {
		userID := c.Locals(middleware.LocalUserID).(string)
		prog, err := evaluator.RecordRoadmapCompleted(c.UserContext(), userID)
		if err != nil {
			return respondError(c, "failed to record roadmap", err)
		}
		return c.JSON(prog)
	})

	user.Get("/progress", func(c *fiber.Ctx) error {
		userID := c.Locals(middleware.LocalUserID).(string)
		prog, err := store.GetProgress(c.UserContext(), userID)
		if err != nil {
			return respondError(c, "failed to get progress", err)
		}
		return c.JSON(prog)
	})

	user.Get("/achievements", func(c *fiber.Ctx) error {
		userID := c.Locals(middleware.LocalUserID).(string)
		records, err := store.ListAchievements(c.UserContext(), userID)
		if err != nil {
			return respondError(c, "failed to get achievements", err)
		}

		response := make([]achievementView, 0, len(records))
		for _, r := range records {
			_, inCatalog := store.Catalog.Lookup(r.AchievementID)
			response = append(response, achievementView{
				ID:              r.AchievementID,
				Name:            r.Name,
				Description:     r.Description,
				Icon:            r.Icon,
				Category:        r.Category,
				CategoryLabel:   categoryLabel(r.Category),
				CriteriaType:    r.CriteriaType,
				CriteriaValue:   r.CriteriaValue,
				IsVerified:      r.IsVerified,
				CurrentProgress: r.CurrentProgress,
				Unlocked:        r.Unlocked(),
				UnlockedAt:      r.UnlockedAt,
				Retired:         !inCatalog,
			})
		}
		return c.JSON(response)
	})

	user.Get("/achievements/stream", StreamUnlockedAchievements(store, evaluator.Clock, streamPoll))
}

// SetupAdminRoutes registers operator endpoints under /s/admin.
func SetupAdminRoutes(app *fiber.App, store *services.ProgressStore) {
	admin := app.Group("/s/admin", middleware.UserContextMiddleware(), middleware.RequireRole("admin"))

	admin.Post("/catalog/backfill", func(c *fiber.Ctx) error {
		created, err := store.BackfillAchievementRecords(c.UserContext())
		if err != nil {
			return respondError(c, "catalog backfill failed", err)
		}
		utils.LogInfo("🧩 Admin backfill created %d achievement records", created)
		return c.JSON(fiber.Map{"created": created})
	})
}

// respondError maps service errors onto HTTP statuses.
func respondError(c *fiber.Ctx, msg string, err error) error {
	status := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrProgressNotFound):
		status = fiber.StatusNotFound
	case errors.Is(err, services.ErrConflict):
		status = fiber.StatusConflict
	case errors.Is(err, services.ErrStoreUnavailable):
		status = fiber.StatusServiceUnavailable
	}
	if status >= fiber.StatusInternalServerError {
		utils.LogError("%s %s: %s: %v", c.Method(), c.Path(), msg, err)
	}
	return c.Status(status).JSON(fiber.Map{
		"error": msg,
		"cause": err.Error(),
	})
}

// categoryLabel turns "task_completion" into "Task Completion".
func categoryLabel(category string) string {
	return cases.Title(language.English).String(strings.ReplaceAll(category, "_", " "))
}
