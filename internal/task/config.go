// Copyright (c) 2026 The sigma-hub Authors. All rights reserved.
// Use of this source code is governed by the MIT License.
//
// VideoDownloader - yt-dlp 下载进度与取消管理工具

package task

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/sigma-hub/sfm-extension-video-downloader/internal/ytdlp"
)

// DefaultOutput is the yt-dlp output template used when none is given
const DefaultOutput = "%(title)s [%(id)s].%(ext)s"

// Config for a download task
type Config struct {
	ID        string        `json:"id"`
	Reference string        `json:"reference"`
	Options   ytdlp.Options `json:"options"`
}

// normalize fills in the output template
func (c *Config) normalize() {
	if c.Options.Output == "" {
		c.Options.Output = DefaultOutput
	}
}

// validate keeps the task ID and the output template inside the task's
// directory.
func (c *Config) validate() error {
	if c.ID == "." || c.ID == ".." || strings.ContainsAny(c.ID, `/\`) {
		return fmt.Errorf("%w: id %q", ErrInvalidConfig, c.ID)
	}

	out := c.Options.Output
	if filepath.IsAbs(out) || strings.HasPrefix(out, "/") || strings.HasPrefix(out, `\`) || strings.HasPrefix(out, "~") {
		return fmt.Errorf("%w: output %q must be relative", ErrInvalidConfig, out)
	}
	for _, part := range strings.FieldsFunc(out, isSeparator) {
		if part == ".." {
			return fmt.Errorf("%w: output %q leaves the download directory", ErrInvalidConfig, out)
		}
	}
	return nil
}

func isSeparator(r rune) bool {
	return r == '/' || r == '\\'
}
