// Copyright (c) 2026 The sigma-hub Authors. All rights reserved.
// Use of this source code is governed by the MIT License.
//
// VideoDownloader - yt-dlp 下载进度与取消管理工具
//
// Package ytdlp resolves the yt-dlp binary and builds its command lines.

package ytdlp

import (
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strings"
	"sync"
)

// YTDLP manages the yt-dlp binary
type YTDLP interface {
	Binary() string
	Version() string
	ReloadVersion(ctx context.Context) error
	ValidateURL(url string) bool
	Command(opts Options) ([]string, error)
}

// Config for YTDLP
type Config struct {
	Binary    string
	Validator Validator
}

type ytdlp struct {
	binary    string
	validator Validator

	version     string
	versionLock sync.RWMutex
}

// New resolves the binary and reads its version
func New(ctx context.Context, config Config) (YTDLP, error) {
	binary, err := exec.LookPath(config.Binary)
	if err != nil {
		return nil, fmt.Errorf("invalid yt-dlp binary: %w", err)
	}

	y := &ytdlp{
		binary:    binary,
		validator: config.Validator,
	}
	if y.validator == nil {
		y.validator, _ = NewValidator(nil, nil)
	}

	if err := y.ReloadVersion(ctx); err != nil {
		return nil, fmt.Errorf("invalid yt-dlp: %w", err)
	}

	return y, nil
}

func (y *ytdlp) Binary() string {
	return y.binary
}

func (y *ytdlp) Version() string {
	y.versionLock.RLock()
	defer y.versionLock.RUnlock()
	return y.version
}

func (y *ytdlp) ReloadVersion(ctx context.Context) error {
	cmd := exec.CommandContext(ctx, y.binary, "--version")
	out, err := cmd.Output()
	if err != nil {
		return fmt.Errorf("run %s --version: %w", y.binary, err)
	}

	version := parseVersion(out)
	if version == "" {
		return ErrNoVersion
	}

	y.versionLock.Lock()
	y.version = version
	y.versionLock.Unlock()
	return nil
}

func (y *ytdlp) ValidateURL(url string) bool {
	return y.validator.IsValid(url)
}

// Command validates opts and returns the arguments for the binary
func (y *ytdlp) Command(opts Options) ([]string, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if !y.ValidateURL(opts.URL) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidURL, opts.URL)
	}
	return opts.Args(), nil
}

var reVersion = regexp.MustCompile(`(?m)^\s*([0-9]{4}\.[0-9]{1,2}\.[0-9]{1,2}(?:\.[0-9]+)?)\s*$`)

// parseVersion accepts release (2024.08.06) and nightly (2024.08.06.232818) tags
func parseVersion(data []byte) string {
	if m := reVersion.FindSubmatch(data); m != nil {
		return strings.TrimSpace(string(m[1]))
	}
	return ""
}
