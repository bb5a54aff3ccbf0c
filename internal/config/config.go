// Copyright (c) 2026 The sigma-hub Authors. All rights reserved.
// Use of this source code is governed by the MIT License.
//
// VideoDownloader - yt-dlp 下载进度与取消管理工具

package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultBind               = ":8080"
	defaultYTDLPPath          = "yt-dlp"
	defaultUpdateIntervalMs   = 200
	defaultTerminationTimeout = 10
	defaultKillDelay          = 5
	defaultLogLevel           = "info"
)

// Config 应用配置
type Config struct {
	Server ServerConfig `yaml:"server"`
	YTDLP  YTDLPConfig  `yaml:"ytdlp"`
	Log    LogConfig    `yaml:"log"`
}

// ServerConfig 服务配置
type ServerConfig struct {
	Bind string `yaml:"bind"`
}

// YTDLPConfig yt-dlp 配置
type YTDLPConfig struct {
	Path                      string   `yaml:"path"`
	DownloadDir               string   `yaml:"download_dir"`
	UpdateIntervalMs          int      `yaml:"update_interval_ms"`
	TerminationTimeoutSeconds int      `yaml:"termination_timeout_seconds"`
	KillDelaySeconds          int      `yaml:"kill_delay_seconds"`
	Allow                     []string `yaml:"allow"`
	Block                     []string `yaml:"block"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level string `yaml:"level"`
}

// UpdateInterval returns the progress emission interval
func (c YTDLPConfig) UpdateInterval() time.Duration {
	return time.Duration(c.UpdateIntervalMs) * time.Millisecond
}

// TerminationTimeout bounds how long a cancellation waits for the process to exit
func (c YTDLPConfig) TerminationTimeout() time.Duration {
	return time.Duration(c.TerminationTimeoutSeconds) * time.Second
}

// KillDelay is the grace period between interrupt and kill
func (c YTDLPConfig) KillDelay() time.Duration {
	return time.Duration(c.KillDelaySeconds) * time.Second
}

// Default 返回默认配置
func Default() *Config {
	return &Config{
		Server: ServerConfig{Bind: defaultBind},
		YTDLP: YTDLPConfig{
			Path:                      defaultYTDLPPath,
			UpdateIntervalMs:          defaultUpdateIntervalMs,
			TerminationTimeoutSeconds: defaultTerminationTimeout,
			KillDelaySeconds:          defaultKillDelay,
		},
		Log: LogConfig{Level: defaultLogLevel},
	}
}

// Load 从 YAML 文件加载配置
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	// 填充空值
	cfg.backfill()

	return cfg, nil
}

func (c *Config) backfill() {
	if c.Server.Bind == "" {
		c.Server.Bind = defaultBind
	}
	if c.YTDLP.Path == "" {
		c.YTDLP.Path = defaultYTDLPPath
	}
	if c.YTDLP.UpdateIntervalMs <= 0 {
		c.YTDLP.UpdateIntervalMs = defaultUpdateIntervalMs
	}
	if c.YTDLP.TerminationTimeoutSeconds <= 0 {
		c.YTDLP.TerminationTimeoutSeconds = defaultTerminationTimeout
	}
	if c.YTDLP.KillDelaySeconds <= 0 {
		c.YTDLP.KillDelaySeconds = defaultKillDelay
	}
	if c.Log.Level == "" {
		c.Log.Level = defaultLogLevel
	}
}
