// Copyright (c) 2026 The sigma-hub Authors. All rights reserved.
// Use of this source code is governed by the MIT License.
//
// VideoDownloader - yt-dlp 下载进度与取消管理工具
//
// Package download runs yt-dlp, turns its output into rate-limited progress
// and coordinates cancellation.

package download

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/lithammer/shortuuid/v4"

	"github.com/sigma-hub/sfm-extension-video-downloader/internal/logger"
	"github.com/sigma-hub/sfm-extension-video-downloader/internal/process"
	"github.com/sigma-hub/sfm-extension-video-downloader/internal/progress"
	"github.com/sigma-hub/sfm-extension-video-downloader/internal/ytdlp/parse"
)

// RunnerConfig for a Runner. Only Binary is required.
type RunnerConfig struct {
	Binary             string
	Executor           Executor
	Recoverer          Recoverer
	UpdateInterval     time.Duration
	TerminationTimeout time.Duration
	Clock              progress.Clock
	Logger             logger.Logger
}

// Runner starts downloads
type Runner struct {
	binary    string
	executor  Executor
	recoverer Recoverer
	interval  time.Duration
	timeout   time.Duration
	clock     progress.Clock
	logger    logger.Logger
}

// NewRunner creates a Runner
func NewRunner(config RunnerConfig) (*Runner, error) {
	if config.Binary == "" {
		return nil, ErrNoBinary
	}

	r := &Runner{
		binary:    config.Binary,
		executor:  config.Executor,
		recoverer: config.Recoverer,
		interval:  config.UpdateInterval,
		timeout:   config.TerminationTimeout,
		clock:     config.Clock,
		logger:    config.Logger,
	}
	if r.logger == nil {
		r.logger = logger.Nop()
	}
	if r.executor == nil {
		r.executor = ProcessExecutor{Logger: r.logger}
	}
	return r, nil
}

// Job is one yt-dlp invocation. Dir is the working directory. OutputDir is
// where the output template puts its files and is reconciled after a
// cancellation; it defaults to Dir.
type Job struct {
	ID        string
	Args      []string
	Dir       string
	OutputDir string
}

// Callbacks of a run. All are optional.
type Callbacks struct {
	Sink             progress.Sink
	OnStreamDetected func()
	OnStateChange    func(from, to State)
}

// Result of a finished run
type Result struct {
	ID          string
	ExitCode    int
	Cancelled   bool
	Recovered   int
	RecoveryErr error
	IsLive      bool
	Delivered   float64
}

// Run is a running download
type Run struct {
	id     string
	ctx    context.Context
	logger logger.Logger

	handle   Handle
	launched chan struct{}

	aggregator *progress.Aggregator
	scheduler  *progress.Scheduler
	coord      *Coordinator
	cancelOnce sync.Once

	exited chan struct{}
	done   chan struct{}
	result Result
	err    error
}

// Run starts a job and waits for it
func (rn *Runner) Run(ctx context.Context, job Job, cb Callbacks) (Result, error) {
	r, err := rn.Start(ctx, job, cb)
	if err != nil {
		return Result{ID: job.ID}, err
	}
	return r.Wait()
}

// Start launches yt-dlp. Cancelling ctx cancels the run; so does Run.Cancel.
func (rn *Runner) Start(ctx context.Context, job Job, cb Callbacks) (*Run, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCancelled, err)
	}

	id := job.ID
	if id == "" {
		id = shortuuid.New()
	}

	sink := cb.Sink
	if sink == nil {
		sink = progress.SinkFunc(func(string, float64) {})
	}

	r := &Run{
		id:       id,
		ctx:      ctx,
		logger:   rn.logger.WithField("run", id),
		launched: make(chan struct{}),
		exited:   make(chan struct{}),
		done:     make(chan struct{}),
	}
	r.scheduler = progress.NewScheduler(sink, rn.interval, progress.WithClock(rn.clock))
	r.aggregator = progress.NewAggregator(cb.OnStreamDetected)
	outputDir := job.OutputDir
	if outputDir == "" {
		outputDir = job.Dir
	}
	r.coord = NewCoordinator(CoordinatorConfig{
		Terminator:         launchedHandle{r},
		Suppressor:         r.scheduler,
		Recoverer:          rn.recoverer,
		Dir:                outputDir,
		TerminationTimeout: rn.timeout,
		Logger:             r.logger,
		OnStateChange:      cb.OnStateChange,
	})

	handle, err := rn.executor.Start(ctx, Command{Binary: rn.binary, Args: job.Args, Dir: job.Dir}, r.handleLine)
	r.handle = handle
	close(r.launched)
	if err != nil {
		r.scheduler.Suppress()
		return nil, fmt.Errorf("start yt-dlp: %w", err)
	}

	r.logger.Info("started %s", rn.binary)

	go r.watch()
	go r.wait()

	return r, nil
}

// ID of the run
func (r *Run) ID() string { return r.id }

// State of the run's coordinator
func (r *Run) State() State { return r.coord.State() }

// Status of the underlying process
func (r *Run) Status() process.Status { return r.handle.Status() }

// Done is closed when Wait would no longer block
func (r *Run) Done() <-chan struct{} { return r.done }

// Cancel stops the run and reconciles partial files. It returns once the
// run reached its terminal state or ctx is done.
func (r *Run) Cancel(ctx context.Context) error {
	return r.coord.Cancel(ctx)
}

// Wait blocks until the process exited and cancellation, if any, finished.
// A non-zero exit without cancellation yields an *ExitError.
func (r *Run) Wait() (Result, error) {
	<-r.done
	return r.result, r.err
}

// handleLine runs on the process's dispatcher goroutine
func (r *Run) handleLine(line process.Line) {
	if r.coord.Cancelled() {
		return
	}
	if r.ctx.Err() != nil {
		r.cancelFromContext()
		return
	}

	out := r.aggregator.Apply(parse.Classify(line.Data))
	if out.StreamDetected {
		r.logger.Info("live stream detected")
	}
	if out.Message != nil {
		r.scheduler.Push(*out.Message)
	}
}

// cancelFromContext must not block: Cancel waits for the process to exit,
// which waits for the line dispatcher.
func (r *Run) cancelFromContext() {
	r.cancelOnce.Do(func() {
		r.logger.Info("context done, cancelling")
		go r.coord.Cancel(context.WithoutCancel(r.ctx))
	})
}

func (r *Run) watch() {
	select {
	case <-r.ctx.Done():
		r.cancelFromContext()
	case <-r.exited:
	}
}

func (r *Run) wait() {
	res := r.handle.Wait()
	close(r.exited)

	result := Result{ID: r.id, ExitCode: res.ExitCode}
	var err error

	if r.coord.Complete() {
		r.scheduler.Flush()
		if res.Success() {
			r.scheduler.Final(progress.CompleteText)
			r.logger.Info("finished")
		} else {
			r.scheduler.Suppress()
			err = &ExitError{Code: res.ExitCode, Output: res.Output}
			r.logger.Error("failed: %v", err)
		}
	} else {
		<-r.coord.Done()
		result.Cancelled = true
		result.Recovered, result.RecoveryErr = r.coord.Recovery()
		r.logger.Info("cancelled, state %s", r.coord.State())
	}

	result.IsLive = r.aggregator.IsLive()
	result.Delivered = r.scheduler.Delivered()

	r.result = result
	r.err = err
	close(r.done)
}

// launchedHandle lets the coordinator exist before the process does
type launchedHandle struct {
	r *Run
}

func (h launchedHandle) Stop(wait bool) error {
	<-h.r.launched
	if h.r.handle == nil {
		return nil
	}
	return h.r.handle.Stop(wait)
}
