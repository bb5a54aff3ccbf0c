// Copyright (c) 2026 The sigma-hub Authors. All rights reserved.
// Use of this source code is governed by the MIT License.
//
// VideoDownloader - yt-dlp 下载进度与取消管理工具

package task

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/lithammer/shortuuid/v4"
	"golang.org/x/sync/errgroup"

	"github.com/sigma-hub/sfm-extension-video-downloader/internal/download"
	"github.com/sigma-hub/sfm-extension-video-downloader/internal/logger"
	"github.com/sigma-hub/sfm-extension-video-downloader/internal/process"
	"github.com/sigma-hub/sfm-extension-video-downloader/internal/ytdlp"
)

// 任务终态
const (
	StateFinished  = "finished"
	StateFailed    = "failed"
	StateCancelled = "cancelled"
)

// Progress as last reported to the task
type Progress struct {
	Message string
	Percent float64
	Live    bool
}

// Task is a download task
type Task struct {
	ID        string
	Reference string
	Config    *Config
	Command   []string
	Dir       string
	CreatedAt int64

	created time.Time
	run     *download.Run
	done    chan struct{}

	mu        sync.RWMutex
	updatedAt int64
	progress  Progress
	state     download.State
	finished  bool
	result    download.Result
	err       error
}

// Report receives rate-limited progress of the task's run
func (t *Task) Report(message string, increment float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.progress.Message = message
	t.progress.Percent += increment
	if t.progress.Percent > 100 {
		t.progress.Percent = 100
	}
	t.updatedAt = time.Now().Unix()
}

func (t *Task) markLive() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.progress.Live = true
}

func (t *Task) setState(from, to download.State) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state = to
	t.updatedAt = time.Now().Unix()
}

// Progress returns the last reported progress
func (t *Task) Progress() Progress {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.progress
}

// State returns the coordinator state while the run is active, then one of
// StateFinished, StateFailed or StateCancelled.
func (t *Task) State() string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if !t.finished {
		if t.state == "" {
			return string(download.StateRunning)
		}
		return string(t.state)
	}
	switch {
	case t.result.Cancelled:
		return StateCancelled
	case t.err != nil:
		return StateFailed
	default:
		return StateFinished
	}
}

// UpdatedAt is the unix time of the last progress or state change
func (t *Task) UpdatedAt() int64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.updatedAt
}

// Finished reports whether the run has ended
func (t *Task) Finished() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.finished
}

// Result of the run. Only meaningful once Finished.
func (t *Task) Result() (download.Result, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.result, t.err
}

// ErrorMessage is the text to show for a failed task
func (t *Task) ErrorMessage() string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.err == nil {
		return ""
	}
	var exitErr *download.ExitError
	if errors.As(t.err, &exitErr) {
		return exitErr.Message()
	}
	return t.err.Error()
}

// Status of the yt-dlp process
func (t *Task) Status() process.Status {
	return t.run.Status()
}

// Wait blocks until the task finished
func (t *Task) Wait() {
	<-t.done
}

func (t *Task) wait(log logger.Logger) {
	res, err := t.run.Wait()

	t.mu.Lock()
	t.finished = true
	t.result = res
	t.err = err
	t.updatedAt = time.Now().Unix()
	t.mu.Unlock()

	if err != nil {
		log.Error("task %s failed: %v", t.ID, err)
	} else if res.Cancelled {
		log.Info("task %s cancelled, %d file(s) recovered", t.ID, res.Recovered)
	} else {
		log.Info("task %s finished", t.ID)
	}
	close(t.done)
}

// Store manages tasks in memory
type Store interface {
	Add(config *Config) (*Task, error)
	Get(id string) (*Task, error)
	List(ids []string, reference string) []*Task
	Cancel(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
	CancelAll(ctx context.Context) error
}

// StoreConfig for NewStore. Each task downloads into Dir/<task id>.
type StoreConfig struct {
	YTDLP  ytdlp.YTDLP
	Runner *download.Runner
	Dir    string
	Logger logger.Logger
}

type store struct {
	ytdlp  ytdlp.YTDLP
	runner *download.Runner
	dir    string
	logger logger.Logger
	tasks  map[string]*Task
	mu     sync.RWMutex
}

// NewStore creates a task store
func NewStore(config StoreConfig) Store {
	s := &store{
		ytdlp:  config.YTDLP,
		runner: config.Runner,
		dir:    config.Dir,
		logger: config.Logger,
		tasks:  make(map[string]*Task),
	}
	if s.logger == nil {
		s.logger = logger.Nop()
	}
	return s
}

// Add validates the config and starts the download
func (s *store) Add(config *Config) (*Task, error) {
	if len(config.ID) == 0 {
		config.ID = shortuuid.New()
	}
	config.normalize()
	if err := config.validate(); err != nil {
		return nil, err
	}

	args, err := s.ytdlp.Command(config.Options)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tasks[config.ID]; exists {
		return nil, ErrTaskExists
	}

	// one directory per task: recovery only sees the task's own files
	dir := filepath.Join(s.dir, config.ID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create task directory: %w", err)
	}

	now := time.Now()
	t := &Task{
		ID:        config.ID,
		Reference: config.Reference,
		Config:    config,
		Command:   args,
		Dir:       dir,
		CreatedAt: now.Unix(),
		created:   now,
		updatedAt: now.Unix(),
		done:      make(chan struct{}),
	}

	run, err := s.runner.Start(context.Background(), download.Job{
		ID:        config.ID,
		Args:      args,
		Dir:       dir,
		OutputDir: ytdlp.OutputDir(dir, config.Options.Output),
	}, download.Callbacks{
		Sink:             t,
		OnStreamDetected: t.markLive,
		OnStateChange:    t.setState,
	})
	if err != nil {
		return nil, err
	}
	t.run = run

	s.tasks[config.ID] = t
	go t.wait(s.logger.WithField("url", config.Options.URL))

	return t, nil
}

func (s *store) Get(id string) (*Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tasks[id]
	if !ok {
		return nil, ErrNotFound
	}
	return t, nil
}

// List returns tasks in creation order
func (s *store) List(ids []string, reference string) []*Task {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Task
	for _, t := range s.tasks {
		if len(reference) > 0 && t.Reference != reference {
			continue
		}
		if len(ids) > 0 {
			found := false
			for _, id := range ids {
				if t.ID == id {
					found = true
					break
				}
			}
			if !found {
				continue
			}
		}
		out = append(out, t)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].created.Equal(out[j].created) {
			return out[i].ID < out[j].ID
		}
		return out[i].created.Before(out[j].created)
	})
	return out
}

// Cancel cancels a running task. Cancelling a finished task does nothing.
func (s *store) Cancel(ctx context.Context, id string) error {
	t, err := s.Get(id)
	if err != nil {
		return err
	}
	return t.run.Cancel(ctx)
}

// Delete cancels the task if needed and forgets it
func (s *store) Delete(ctx context.Context, id string) error {
	t, err := s.Get(id)
	if err != nil {
		return err
	}
	if err := t.run.Cancel(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.tasks, id)
	s.mu.Unlock()
	return nil
}

// CancelAll cancels every task concurrently
func (s *store) CancelAll(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, t := range s.List(nil, "") {
		g.Go(func() error {
			return t.run.Cancel(ctx)
		})
	}
	return g.Wait()
}
