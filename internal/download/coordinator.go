// Copyright (c) 2026 The sigma-hub Authors. All rights reserved.
// Use of this source code is governed by the MIT License.
//
// VideoDownloader - yt-dlp 下载进度与取消管理工具

package download

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sigma-hub/sfm-extension-video-downloader/internal/logger"
)

// DefaultTerminationTimeout bounds how long Cancel waits for the process to exit
const DefaultTerminationTimeout = 10 * time.Second

var errTerminationTimeout = errors.New("process did not exit in time")

// State of a run as seen by the Coordinator
type State string

const (
	StateRunning         State = "running"
	StateCancelRequested State = "cancel_requested"
	StateTerminating     State = "terminating"
	StateRecovered       State = "recovered"
	StateRecoveryFailed  State = "recovery_failed"
	StateCompleted       State = "completed"
	StateDone            State = "done"
)

// Terminator stops the owned process
type Terminator interface {
	Stop(wait bool) error
}

// Suppressor silences progress reporting
type Suppressor interface {
	Suppress()
}

// Recoverer reconciles partial files in dir and returns how many were recovered
type Recoverer interface {
	Reconcile(ctx context.Context, dir string) (int, error)
}

// CoordinatorConfig for a Coordinator. Recoverer and Dir are optional.
type CoordinatorConfig struct {
	Terminator         Terminator
	Suppressor         Suppressor
	Recoverer          Recoverer
	Dir                string
	TerminationTimeout time.Duration
	Logger             logger.Logger
	OnStateChange      func(from, to State)
}

// Coordinator turns a cancel request into: suppress progress, stop the
// process, reconcile partial files. It owns the one-way cancellation flag.
type Coordinator struct {
	terminator    Terminator
	suppressor    Suppressor
	recoverer     Recoverer
	dir           string
	timeout       time.Duration
	logger        logger.Logger
	onStateChange func(from, to State)

	lock        sync.Mutex
	state       State
	cancelled   bool
	recovered   int
	recoveryErr error
	done        chan struct{}
}

// NewCoordinator creates a Coordinator in the running state
func NewCoordinator(config CoordinatorConfig) *Coordinator {
	c := &Coordinator{
		terminator:    config.Terminator,
		suppressor:    config.Suppressor,
		recoverer:     config.Recoverer,
		dir:           config.Dir,
		timeout:       config.TerminationTimeout,
		logger:        config.Logger,
		onStateChange: config.OnStateChange,
		state:         StateRunning,
		done:          make(chan struct{}),
	}
	if c.timeout <= 0 {
		c.timeout = DefaultTerminationTimeout
	}
	if c.logger == nil {
		c.logger = logger.Nop()
	}
	return c
}

// State returns the current state
func (c *Coordinator) State() State {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.state
}

// Cancelled reports whether a cancel request was accepted
func (c *Coordinator) Cancelled() bool {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.cancelled
}

// Done is closed once the coordinator reached StateDone
func (c *Coordinator) Done() <-chan struct{} {
	return c.done
}

// Recovery returns the outcome of the recovery step
func (c *Coordinator) Recovery() (int, error) {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.recovered, c.recoveryErr
}

// Complete records a natural exit. It returns false if a cancellation got
// there first, in which case the caller should wait on Done.
func (c *Coordinator) Complete() bool {
	c.lock.Lock()
	if c.state != StateRunning {
		c.lock.Unlock()
		return false
	}
	c.state = StateCompleted
	c.lock.Unlock()
	c.notify(StateRunning, StateCompleted)

	c.finish(StateCompleted)
	return true
}

// Cancel requests cancellation. The first call drives the run to StateDone;
// later calls wait for that or for ctx. Termination and recovery failures
// are logged, never returned.
func (c *Coordinator) Cancel(ctx context.Context) error {
	c.lock.Lock()
	if c.state != StateRunning {
		cancelled := c.cancelled
		c.lock.Unlock()
		if cancelled {
			select {
			case <-c.done:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	}
	c.cancelled = true
	c.state = StateCancelRequested
	c.lock.Unlock()
	c.notify(StateRunning, StateCancelRequested)

	if c.suppressor != nil {
		c.suppressor.Suppress()
	}

	c.transition(StateCancelRequested, StateTerminating)
	if err := c.terminate(ctx); err != nil {
		c.logger.Error("terminating process: %v", err)
	}

	final := c.recover(ctx)
	c.transition(StateTerminating, final)
	c.finish(final)
	return nil
}

// terminate asks the process to stop and waits at most the termination timeout
func (c *Coordinator) terminate(ctx context.Context) error {
	if c.terminator == nil {
		return nil
	}

	stopped := make(chan error, 1)
	go func() {
		stopped <- c.terminator.Stop(true)
	}()

	timer := time.NewTimer(c.timeout)
	defer timer.Stop()

	select {
	case err := <-stopped:
		return err
	case <-timer.C:
		return errTerminationTimeout
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Coordinator) recover(ctx context.Context) State {
	if c.recoverer == nil || c.dir == "" {
		return StateRecovered
	}

	n, err := c.recoverer.Reconcile(ctx, c.dir)

	c.lock.Lock()
	c.recovered = n
	c.recoveryErr = err
	c.lock.Unlock()

	if err != nil {
		c.logger.Error("recovering %s: %v", c.dir, err)
		return StateRecoveryFailed
	}
	c.logger.Info("recovered %d file(s) in %s", n, c.dir)
	return StateRecovered
}

func (c *Coordinator) transition(from, to State) {
	c.lock.Lock()
	c.state = to
	c.lock.Unlock()
	c.notify(from, to)
}

func (c *Coordinator) finish(from State) {
	c.transition(from, StateDone)
	close(c.done)
}

func (c *Coordinator) notify(from, to State) {
	c.logger.Debug("state %s -> %s", from, to)
	if c.onStateChange != nil {
		c.onStateChange(from, to)
	}
}
