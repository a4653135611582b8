// handlers/achievement_stream.go
package handlers

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"skill-tracker-progress/middleware"
	"skill-tracker-progress/models"
	"skill-tracker-progress/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/jonboulle/clockwork"
)

// unlockFeed is the part of the progress store the stream polls.
type unlockFeed interface {
	UnlockedSince(ctx context.Context, userID string, since time.Time) ([]models.AchievementRecord, error)
}

// StreamUnlockedAchievements streams achievements the user unlocks after the stream
// opened as server-sent "achievement" events, polling the records table.
func StreamUnlockedAchievements(feed unlockFeed, clock clockwork.Clock, poll time.Duration) fiber.Handler {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if poll <= 0 {
		poll = 2 * time.Second
	}

	return func(c *fiber.Ctx) error {
		userID := c.Locals(middleware.LocalUserID).(string)
		ctx := c.Context()

		c.Set("Content-Type", "text/event-stream")
		c.Set("Cache-Control", "no-cache")
		c.Set("Connection", "keep-alive")
		c.Set("X-Accel-Buffering", "no") // nginx

		cursor := clock.Now().UTC()

		ctx.SetBodyStreamWriter(func(w *bufio.Writer) {
			pumpUnlocks(ctx, w, feed, clock, poll, userID, cursor)
		})

		return nil
	}
}

// pumpUnlocks polls feed every tick and writes new unlocks, or a keepalive comment
// when there are none. It returns once a flush fails (client gone) or ctx is done.
func pumpUnlocks(ctx context.Context, w *bufio.Writer, feed unlockFeed, clock clockwork.Clock, poll time.Duration, userID string, cursor time.Time) {
	ticker := clock.NewTicker(poll)
	defer ticker.Stop()

	if err := writeKeepalive(w); err != nil {
		return
	}

	for {
		select {
		case <-ticker.Chan():
			records, err := feed.UnlockedSince(ctx, userID, cursor)
			if err != nil {
				utils.LogWarn("SSE query error for user %s: %v", userID, err)
				records = nil
			}

			if len(records) == 0 {
				err = writeKeepalive(w)
			} else {
				cursor = *records[len(records)-1].UnlockedAt
				err = writeAchievementEvents(w, records)
			}
			if err != nil {
				utils.LogDebug("SSE stream for user %s closed: %v", userID, err)
				return
			}

		case <-ctx.Done():
			return
		}
	}
}

func writeKeepalive(w *bufio.Writer) error {
	if _, err := w.WriteString(":\n\n"); err != nil {
		return err
	}
	return w.Flush()
}

// writeAchievementEvents writes one SSE event per record and flushes.
func writeAchievementEvents(w *bufio.Writer, records []models.AchievementRecord) error {
	for _, r := range records {
		payload, err := json.Marshal(models.UnlockedAchievement{
			ID:          r.AchievementID,
			Name:        r.Name,
			Description: r.Description,
			Icon:        r.Icon,
			Category:    r.Category,
			UnlockedAt:  *r.UnlockedAt,
		})
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "event: achievement\ndata: %s\n\n", payload); err != nil {
			return err
		}
	}
	return w.Flush()
}
