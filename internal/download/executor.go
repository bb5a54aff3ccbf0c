// Copyright (c) 2026 The sigma-hub Authors. All rights reserved.
// Use of this source code is governed by the MIT License.
//
// VideoDownloader - yt-dlp 下载进度与取消管理工具

package download

import (
	"context"
	"time"

	"github.com/sigma-hub/sfm-extension-video-downloader/internal/logger"
	"github.com/sigma-hub/sfm-extension-video-downloader/internal/process"
)

// Command to execute
type Command struct {
	Binary string
	Args   []string
	Dir    string
}

// Handle is a launched process. Wait returns after every output line has
// been passed to the line callback.
type Handle interface {
	Stop(wait bool) error
	Wait() process.Result
	Status() process.Status
}

// Executor launches commands. onLine is called from a single goroutine in
// arrival order.
type Executor interface {
	Start(ctx context.Context, cmd Command, onLine func(process.Line)) (Handle, error)
}

// ProcessExecutor runs commands with the process package
type ProcessExecutor struct {
	KillDelay time.Duration
	LogLines  int
	Sampling  bool
	Logger    logger.Logger
}

func (e ProcessExecutor) Start(ctx context.Context, cmd Command, onLine func(process.Line)) (Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sampler := process.NewNullSampler()
	if e.Sampling {
		sampler = process.NewSysSampler()
	}

	p, err := process.New(process.Config{
		Binary:    cmd.Binary,
		Args:      cmd.Args,
		Dir:       cmd.Dir,
		KillDelay: e.KillDelay,
		LogLines:  e.LogLines,
		OnLine:    onLine,
		Logger:    e.Logger,
		Sampler:   sampler,
	})
	if err != nil {
		return nil, err
	}
	if err := p.Start(); err != nil {
		return nil, err
	}
	return p, nil
}
