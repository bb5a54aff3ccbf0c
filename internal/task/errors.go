// Copyright (c) 2026 The sigma-hub Authors. All rights reserved.
// Use of this source code is governed by the MIT License.
//
// VideoDownloader - yt-dlp 下载进度与取消管理工具

package task

import "errors"

var (
	ErrNotFound      = errors.New("task not found")
	ErrTaskExists    = errors.New("task already exists")
	ErrInvalidConfig = errors.New("invalid config")
)
