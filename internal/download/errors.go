// Copyright (c) 2026 The sigma-hub Authors. All rights reserved.
// Use of this source code is governed by the MIT License.
//
// VideoDownloader - yt-dlp 下载进度与取消管理工具

package download

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrCancelled = errors.New("download cancelled")
	ErrNoBinary  = errors.New("no yt-dlp binary configured")
)

// FallbackMessage is shown for a failed run without error output
const FallbackMessage = "yt-dlp exited with an error."

// ExitError is returned by Run.Wait when yt-dlp exits non-zero without
// having been cancelled. Output holds the tail of its stderr.
type ExitError struct {
	Code   int
	Output []string
}

func (e *ExitError) Error() string {
	if len(e.Output) == 0 {
		return fmt.Sprintf("yt-dlp exited with code %d", e.Code)
	}
	return fmt.Sprintf("yt-dlp exited with code %d: %s", e.Code, e.Output[len(e.Output)-1])
}

// Message is the text to show the user
func (e *ExitError) Message() string {
	text := strings.TrimSpace(strings.Join(e.Output, "\n"))
	if text == "" {
		return FallbackMessage
	}
	return text
}
