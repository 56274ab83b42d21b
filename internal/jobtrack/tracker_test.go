package jobtrack

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

func newTracker() *Tracker {
	return New(&fakeClock{now: time.Date(2025, 11, 1, 9, 0, 0, 0, time.UTC)})
}

func TestTracker_Lifecycle(t *testing.T) {
	t.Parallel()
	tr := newTracker()
	require.Equal(t, StatusNotStarted, tr.Snapshot().Status)

	tr.Start("fetching sources")
	snap := tr.Snapshot()
	require.Equal(t, StatusInProgress, snap.Status)
	require.NotNil(t, snap.StartedAt)
	require.NotEmpty(t, snap.RunID)

	tr.Complete()
	snap = tr.Snapshot()
	require.Equal(t, StatusCompleted, snap.Status)
	require.Equal(t, 100, snap.ProgressPercent)
	require.NotNil(t, snap.FinishedAt)
}

func TestTracker_ProgressNeverRegresses(t *testing.T) {
	t.Parallel()
	tr := newTracker()
	tr.Start("start")

	tr.Advance("source 1", 30)
	tr.Advance("source 2", 60)
	tr.Advance("source 3", 45)
	require.Equal(t, 60, tr.Snapshot().ProgressPercent)

	tr.Advance("overflow", 250)
	require.Equal(t, 100, tr.Snapshot().ProgressPercent)
}

func TestTracker_EventsFoundCumulative(t *testing.T) {
	t.Parallel()
	tr := newTracker()
	tr.Start("start")

	tr.AddFound(3)
	tr.AddFound(2)
	tr.AddFound(-5)
	require.Equal(t, 5, tr.Snapshot().Counters.EventsFound)
}

func TestTracker_FailRecordsReason(t *testing.T) {
	t.Parallel()
	tr := newTracker()
	tr.Start("start")
	tr.Fail("cancelled")

	snap := tr.Snapshot()
	require.Equal(t, StatusFailed, snap.Status)
	require.Equal(t, "cancelled", snap.ErrorText)

	// Terminal states are sticky.
	tr.Complete()
	require.Equal(t, StatusFailed, tr.Snapshot().Status)
}

func TestTracker_LogIsBounded(t *testing.T) {
	t.Parallel()
	tr := newTracker()
	tr.Start("start")
	for i := 0; i < 50; i++ {
		tr.Log(fmt.Sprintf("entry %d", i))
	}

	entries := tr.Snapshot().LogEntries
	require.Len(t, entries, defaultLogCapacity)
	require.Equal(t, "entry 49", entries[len(entries)-1].Message)
	require.Equal(t, "entry 30", entries[0].Message)
}

func TestTracker_ConcurrentUpdates(t *testing.T) {
	t.Parallel()
	tr := newTracker()
	tr.Start("start")

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			tr.AddFound(1)
			tr.Advance("worker", n*10)
			tr.Log("worker update")
		}(i)
	}
	wg.Wait()

	snap := tr.Snapshot()
	require.Equal(t, 10, snap.Counters.EventsFound)
	require.Equal(t, 90, snap.ProgressPercent)
}

func TestRingLog_WrapOrder(t *testing.T) {
	t.Parallel()
	r := newRingLog(3)
	for i := 0; i < 5; i++ {
		r.append(LogEntry{Message: fmt.Sprintf("m%d", i)})
	}
	entries := r.entries()
	require.Len(t, entries, 3)
	require.Equal(t, "m2", entries[0].Message)
	require.Equal(t, "m4", entries[2].Message)
}
