package workers

import (
	"context"
	"fmt"
	"sync"
	"time"

	"skill-tracker-progress/utils"

	"github.com/go-co-op/gocron/v2"
	"github.com/jonboulle/clockwork"
)

// Backfiller creates missing achievement records for existing users.
type Backfiller interface {
	BackfillAchievementRecords(ctx context.Context) (int64, error)
}

// BackfillScheduler keeps every user's achievement list in step with the catalog.
type BackfillScheduler struct {
	store Backfiller
	sched gocron.Scheduler
	stop  sync.Once
}

func NewBackfillScheduler(store Backfiller) *BackfillScheduler {
	return &BackfillScheduler{store: store}
}

// RunOnce backfills all users a single time.
func (b *BackfillScheduler) RunOnce(ctx context.Context) (int64, error) {
	created, err := b.store.BackfillAchievementRecords(ctx)
	if err != nil {
		utils.LogError("[Backfill] failed after %d records: %v", created, err)
		return created, err
	}
	if created > 0 {
		utils.LogSuccess("[Backfill] created %d achievement records", created)
	}
	return created, nil
}

// Start runs the backfill now and then every interval until ctx is done or Stop is
// called. A zero interval disables scheduling.
func (b *BackfillScheduler) Start(ctx context.Context, interval time.Duration, clock clockwork.Clock) error {
	if interval <= 0 {
		utils.LogInfo("[Backfill] scheduling disabled")
		return nil
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	sched, err := gocron.NewScheduler(gocron.WithClock(clock))
	if err != nil {
		return fmt.Errorf("failed to create backfill scheduler: %w", err)
	}

	_, err = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			_, _ = b.RunOnce(ctx)
		}),
		gocron.WithName("achievement-backfill"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		_ = sched.Shutdown()
		return fmt.Errorf("failed to schedule backfill: %w", err)
	}

	b.sched = sched
	sched.Start()
	utils.LogInfo("⏱️  [Backfill] running every %s", interval)

	go func() {
		<-ctx.Done()
		b.Stop()
	}()
	return nil
}

// Stop shuts the scheduler down. It is safe to call more than once.
func (b *BackfillScheduler) Stop() {
	if b.sched == nil {
		return
	}
	b.stop.Do(func() {
		if err := b.sched.Shutdown(); err != nil {
			utils.LogWarn("[Backfill] scheduler shutdown: %v", err)
		}
	})
}
