// Copyright (c) 2026 The sigma-hub Authors. All rights reserved.
// Use of this source code is governed by the MIT License.
//
// VideoDownloader - yt-dlp 下载进度与取消管理工具

package progress

import (
	"sync"
	"time"
)

// DefaultInterval is the minimum spacing between two sink calls
const DefaultInterval = 200 * time.Millisecond

// CompleteText is the message Final reports when none is given
const CompleteText = "Download complete"

// Sink receives rate-limited progress updates
type Sink interface {
	Report(message string, increment float64)
}

// SinkFunc adapts a function to Sink
type SinkFunc func(message string, increment float64)

func (f SinkFunc) Report(message string, increment float64) {
	f(message, increment)
}

// Option configures a Scheduler
type Option func(*Scheduler)

// WithClock replaces the wall clock (tests)
func WithClock(c Clock) Option {
	return func(s *Scheduler) {
		if c != nil {
			s.clock = c
		}
	}
}

// Scheduler rate-limits updates to a Sink. It holds at most one pending
// update; a newer push replaces it. Once suppressed it never emits again.
//
// The sink is called with the scheduler lock held, so it must not call back
// into the scheduler.
type Scheduler struct {
	sink     Sink
	interval time.Duration
	clock    Clock

	lock       sync.Mutex
	lastEmit   time.Time
	pending    *Message
	timer      Timer
	generation uint64
	suppressed bool
	delivered  float64
}

// NewScheduler creates a Scheduler. A non-positive interval means DefaultInterval.
func NewScheduler(sink Sink, interval time.Duration, opts ...Option) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	s := &Scheduler{
		sink:     sink,
		interval: interval,
		clock:    realClock{},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.lastEmit = s.clock.Now()
	return s
}

// Push offers an update. It is emitted now if the interval has elapsed since
// the last emission, otherwise it becomes the pending update.
func (s *Scheduler) Push(msg Message) {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.suppressed {
		return
	}

	now := s.clock.Now()
	elapsed := now.Sub(s.lastEmit)
	if elapsed >= s.interval {
		s.cancelPending()
		s.emit(msg, now)
		return
	}

	s.cancelPending()
	m := msg
	s.pending = &m
	s.generation++
	gen := s.generation
	s.timer = s.clock.AfterFunc(s.interval-elapsed, func() {
		s.fire(gen)
	})
}

// Flush emits the pending update immediately, if any
func (s *Scheduler) Flush() {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.suppressed || s.pending == nil {
		return
	}
	msg := *s.pending
	s.cancelPending()
	s.emit(msg, s.clock.Now())
}

// Final drops any pending update and immediately reports text with the
// increment still needed to reach 100.
func (s *Scheduler) Final(text string) {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.suppressed {
		return
	}
	if text == "" {
		text = CompleteText
	}
	s.cancelPending()
	remaining := 100 - s.delivered
	if remaining < 0 {
		remaining = 0
	}
	s.emit(Message{Text: text, Increment: remaining}, s.clock.Now())
}

// Suppress cancels any pending update and blocks all future emissions.
// When it returns no sink call is in flight.
func (s *Scheduler) Suppress() {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.suppressed = true
	s.cancelPending()
}

// Suppressed reports whether Suppress was called
func (s *Scheduler) Suppressed() bool {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.suppressed
}

// Delivered returns the sum of increments handed to the sink
func (s *Scheduler) Delivered() float64 {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.delivered
}

func (s *Scheduler) fire(gen uint64) {
	s.lock.Lock()
	defer s.lock.Unlock()

	// a replaced timer may still fire after Stop lost the race
	if s.suppressed || s.pending == nil || gen != s.generation {
		return
	}
	msg := *s.pending
	s.pending = nil
	s.timer = nil
	s.emit(msg, s.clock.Now())
}

func (s *Scheduler) cancelPending() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.pending = nil
	s.generation++
}

func (s *Scheduler) emit(msg Message, now time.Time) {
	s.lastEmit = now
	s.delivered += msg.Increment
	if s.sink != nil {
		s.sink.Report(msg.Text, msg.Increment)
	}
}
