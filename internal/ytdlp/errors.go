// Copyright (c) 2026 The sigma-hub Authors. All rights reserved.
// Use of this source code is governed by the MIT License.
//
// VideoDownloader - yt-dlp 下载进度与取消管理工具

package ytdlp

import "errors"

var (
	ErrNoURL          = errors.New("no url given")
	ErrInvalidMode    = errors.New("invalid download mode")
	ErrInvalidQuality = errors.New("invalid quality")
	ErrInvalidURL     = errors.New("url rejected by validator")
	ErrNoVersion      = errors.New("can't parse yt-dlp version")
)
