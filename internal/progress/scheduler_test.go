// Copyright (c) 2026 The sigma-hub Authors. All rights reserved.
// Use of this source code is governed by the MIT License.
//
// VideoDownloader - yt-dlp 下载进度与取消管理工具

package progress

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type report struct {
	at        time.Time
	message   string
	increment float64
}

type recordingSink struct {
	mu      sync.Mutex
	clock   Clock
	reports []report
}

func (r *recordingSink) Report(message string, increment float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports = append(r.reports, report{at: r.clock.Now(), message: message, increment: increment})
}

func (r *recordingSink) all() []report {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]report(nil), r.reports...)
}

func newTestScheduler() (*Scheduler, *fakeClock, *recordingSink) {
	clock := newFakeClock()
	sink := &recordingSink{clock: clock}
	return NewScheduler(sink, 200*time.Millisecond, WithClock(clock)), clock, sink
}

func TestSchedulerCoalescesBurst(t *testing.T) {
	s, clock, sink := newTestScheduler()
	start := clock.Now()

	s.Push(Message{Text: "a", Increment: 1})
	clock.Advance(50 * time.Millisecond)
	s.Push(Message{Text: "b", Increment: 2})
	clock.Advance(30 * time.Millisecond)
	s.Push(Message{Text: "c", Increment: 3})

	assert.Empty(t, sink.all(), "nothing is emitted inside the first interval")

	clock.Advance(500 * time.Millisecond)

	reports := sink.all()
	require.Len(t, reports, 1)
	assert.Equal(t, "c", reports[0].message)
	assert.Equal(t, 3.0, reports[0].increment)
	assert.Equal(t, start.Add(200*time.Millisecond), reports[0].at)
}

func TestSchedulerEmitsImmediatelyAfterInterval(t *testing.T) {
	s, clock, sink := newTestScheduler()

	clock.Advance(250 * time.Millisecond)
	s.Push(Message{Text: "now"})

	reports := sink.all()
	require.Len(t, reports, 1)
	assert.Equal(t, "now", reports[0].message)
	assert.Zero(t, clock.pendingTimers())
}

func TestSchedulerDeferredDelayIsRemainderOfInterval(t *testing.T) {
	s, clock, sink := newTestScheduler()

	clock.Advance(200 * time.Millisecond)
	s.Push(Message{Text: "first"})
	emittedAt := clock.Now()

	clock.Advance(120 * time.Millisecond)
	s.Push(Message{Text: "second"})

	clock.Advance(79 * time.Millisecond)
	require.Len(t, sink.all(), 1)

	clock.Advance(1 * time.Millisecond)
	reports := sink.all()
	require.Len(t, reports, 2)
	assert.Equal(t, "second", reports[1].message)
	assert.Equal(t, emittedAt.Add(200*time.Millisecond), reports[1].at)
}

func TestSchedulerRateNeverExceedsInterval(t *testing.T) {
	s, clock, sink := newTestScheduler()

	for i := 0; i < 200; i++ {
		s.Push(Message{Text: "tick"})
		clock.Advance(7 * time.Millisecond)
	}
	clock.Advance(time.Second)

	reports := sink.all()
	require.NotEmpty(t, reports)
	for i := 1; i < len(reports); i++ {
		gap := reports[i].at.Sub(reports[i-1].at)
		assert.GreaterOrEqual(t, gap, 200*time.Millisecond)
	}
}

func TestSchedulerSuppressCancelsPendingAndBlocksPushes(t *testing.T) {
	s, clock, sink := newTestScheduler()

	s.Push(Message{Text: "stale"})
	s.Suppress()
	assert.True(t, s.Suppressed())
	assert.Zero(t, clock.pendingTimers())

	clock.Advance(time.Second)
	s.Push(Message{Text: "late"})
	s.Flush()
	s.Final("")
	clock.Advance(time.Second)

	assert.Empty(t, sink.all())
}

func TestSchedulerFlush(t *testing.T) {
	s, clock, sink := newTestScheduler()

	s.Flush()
	assert.Empty(t, sink.all(), "flush without pending is a no-op")

	s.Push(Message{Text: "pending", Increment: 4})
	s.Flush()

	reports := sink.all()
	require.Len(t, reports, 1)
	assert.Equal(t, "pending", reports[0].message)
	assert.Zero(t, clock.pendingTimers())

	clock.Advance(time.Second)
	assert.Len(t, sink.all(), 1, "flushed update is not emitted twice")
}

func TestSchedulerFinalCompletesRemainder(t *testing.T) {
	s, clock, sink := newTestScheduler()

	clock.Advance(time.Second)
	s.Push(Message{Text: "40%", Increment: 40})
	s.Push(Message{Text: "70%", Increment: 30})
	s.Final("")

	reports := sink.all()
	require.Len(t, reports, 2)
	assert.Equal(t, CompleteText, reports[1].message)
	assert.InDelta(t, 60.0, reports[1].increment, 1e-9)
	assert.InDelta(t, 100.0, s.Delivered(), 1e-9)
}

func TestSchedulerFinalNeverNegative(t *testing.T) {
	s, clock, sink := newTestScheduler()

	clock.Advance(time.Second)
	s.Push(Message{Text: "over", Increment: 120})
	s.Final("Done")

	reports := sink.all()
	require.Len(t, reports, 2)
	assert.Equal(t, "Done", reports[1].message)
	assert.Zero(t, reports[1].increment)
}

func TestSchedulerDefaultInterval(t *testing.T) {
	s := NewScheduler(nil, 0)
	assert.Equal(t, DefaultInterval, s.interval)
	s.Push(Message{Text: "no sink"})
	s.Suppress()
}

func TestSchedulerConcurrentPushAndSuppress(t *testing.T) {
	var mu sync.Mutex
	var afterSuppress int
	suppressed := false

	s := NewScheduler(SinkFunc(func(string, float64) {
		mu.Lock()
		if suppressed {
			afterSuppress++
		}
		mu.Unlock()
	}), time.Millisecond)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 500; j++ {
				s.Push(Message{Text: "x"})
			}
		}()
	}

	time.Sleep(2 * time.Millisecond)
	s.Suppress()
	mu.Lock()
	suppressed = true
	mu.Unlock()

	wg.Wait()
	time.Sleep(10 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Zero(t, afterSuppress)
}
