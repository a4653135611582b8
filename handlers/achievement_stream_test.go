package handlers

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"skill-tracker-progress/models"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var streamStart = time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)

// clientConn collects what the stream writes until it is closed.
type clientConn struct {
	mu     sync.Mutex
	buf    bytes.Buffer
	closed atomic.Bool
}

func (c *clientConn) Write(p []byte) (int, error) {
	if c.closed.Load() {
		return 0, io.ErrClosedPipe
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buf.Write(p)
}

func (c *clientConn) String() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buf.String()
}

// scriptedFeed returns batches in order, then nothing.
type scriptedFeed struct {
	mu      sync.Mutex
	batches [][]models.AchievementRecord
	since   []time.Time
}

func (f *scriptedFeed) UnlockedSince(_ context.Context, _ string, since time.Time) ([]models.AchievementRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.since = append(f.since, since)
	if len(f.batches) == 0 {
		return nil, nil
	}
	next := f.batches[0]
	f.batches = f.batches[1:]
	return next, nil
}

func (f *scriptedFeed) calls() []time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]time.Time(nil), f.since...)
}

func startPump(t *testing.T, ctx context.Context, conn *clientConn, feed unlockFeed, clock *clockwork.FakeClock) <-chan struct{} {
	t.Helper()
	done := make(chan struct{})
	go func() {
		defer close(done)
		pumpUnlocks(ctx, bufio.NewWriter(conn), feed, clock, time.Second, "u1", streamStart)
	}()
	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	return done
}

func waitDone(t *testing.T, done <-chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("stream did not stop")
	}
}

func TestPumpUnlocks_StopsAfterClientDisconnects(t *testing.T) {
	ctx, cancel := context.WithCancel(testContext(t))
	defer cancel()
	clock := clockwork.NewFakeClockAt(streamStart)
	conn := &clientConn{}

	done := startPump(t, ctx, conn, &scriptedFeed{}, clock)

	clock.Advance(time.Second)
	assert.Eventually(t, func() bool {
		return strings.Count(conn.String(), ":\n\n") == 2
	}, 2*time.Second, 5*time.Millisecond, "keepalive on an idle tick")

	conn.closed.Store(true)
	clock.Advance(time.Second)
	waitDone(t, done)
}

func TestPumpUnlocks_WritesEventsAndMovesCursor(t *testing.T) {
	ctx, cancel := context.WithCancel(testContext(t))
	defer cancel()
	clock := clockwork.NewFakeClockAt(streamStart)
	conn := &clientConn{}

	unlockedAt := streamStart.Add(500 * time.Millisecond)
	feed := &scriptedFeed{batches: [][]models.AchievementRecord{{
		{AchievementID: "task_initiate", Name: "Task Initiate", UnlockedAt: &unlockedAt},
	}}}

	done := startPump(t, ctx, conn, feed, clock)

	clock.Advance(time.Second)
	assert.Eventually(t, func() bool {
		return strings.Contains(conn.String(), "event: achievement\n")
	}, 2*time.Second, 5*time.Millisecond)
	assert.Contains(t, conn.String(), `"id":"task_initiate"`)

	clock.Advance(time.Second)
	assert.Eventually(t, func() bool {
		return len(feed.calls()) == 2
	}, 2*time.Second, 5*time.Millisecond)
	calls := feed.calls()
	assert.True(t, calls[0].Equal(streamStart))
	assert.True(t, calls[1].Equal(unlockedAt))

	cancel()
	waitDone(t, done)
}

func TestPumpUnlocks_InitialWriteFailure(t *testing.T) {
	conn := &clientConn{}
	conn.closed.Store(true)

	done := make(chan struct{})
	go func() {
		defer close(done)
		pumpUnlocks(testContext(t), bufio.NewWriter(conn), &scriptedFeed{}, clockwork.NewFakeClock(), time.Second, "u1", streamStart)
	}()
	waitDone(t, done)
}
