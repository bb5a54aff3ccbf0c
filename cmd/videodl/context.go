// Copyright (c) 2026 The sigma-hub Authors. All rights reserved.
// Use of this source code is governed by the MIT License.
//
// VideoDownloader - yt-dlp 下载进度与取消管理工具

package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/sigma-hub/sfm-extension-video-downloader/internal/config"
	"github.com/sigma-hub/sfm-extension-video-downloader/internal/download"
	"github.com/sigma-hub/sfm-extension-video-downloader/internal/logger"
	"github.com/sigma-hub/sfm-extension-video-downloader/internal/recovery"
	"github.com/sigma-hub/sfm-extension-video-downloader/internal/ytdlp"
)

type commandContext struct {
	configFlag *string
	ytdlpFlag  *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag, ytdlpFlag *string) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		ytdlpFlag:  ytdlpFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg := config.Default()
		if path := strings.TrimSpace(*c.configFlag); path != "" {
			var err error
			if cfg, err = config.Load(path); err != nil {
				c.configErr = fmt.Errorf("load config: %w", err)
				return
			}
		}
		if bin := strings.TrimSpace(*c.ytdlpFlag); bin != "" {
			cfg.YTDLP.Path = bin
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) newLogger(component string) logger.Logger {
	level := ""
	if c.config != nil {
		level = c.config.Log.Level
	}
	return logger.NewWithOutput(component, os.Stderr, level)
}

func (c *commandContext) newYTDLP(ctx context.Context, cfg *config.Config) (ytdlp.YTDLP, error) {
	validator, err := ytdlp.NewValidator(cfg.YTDLP.Allow, cfg.YTDLP.Block)
	if err != nil {
		return nil, err
	}
	return ytdlp.New(ctx, ytdlp.Config{
		Binary:    cfg.YTDLP.Path,
		Validator: validator,
	})
}

func (c *commandContext) newRunner(cfg *config.Config, y ytdlp.YTDLP, log logger.Logger) (*download.Runner, error) {
	return download.NewRunner(download.RunnerConfig{
		Binary: y.Binary(),
		Executor: download.ProcessExecutor{
			KillDelay: cfg.YTDLP.KillDelay(),
			Sampling:  true,
			Logger:    log.WithField("component", "process"),
		},
		Recoverer:          recovery.New(log.WithField("component", "recovery")),
		UpdateInterval:     cfg.YTDLP.UpdateInterval(),
		TerminationTimeout: cfg.YTDLP.TerminationTimeout(),
		Logger:             log,
	})
}
