// Copyright (c) 2026 The sigma-hub Authors. All rights reserved.
// Use of this source code is governed by the MIT License.
//
// VideoDownloader - yt-dlp 下载进度与取消管理工具

package api

// DownloadRequest for Add
type DownloadRequest struct {
	ID           string `json:"id"`
	Reference    string `json:"reference"`
	URL          string `json:"url" binding:"required"`
	Mode         string `json:"mode"`
	VideoQuality string `json:"video_quality"`
	AudioQuality string `json:"audio_quality"`
	Output       string `json:"output"`
}

// Download represents a task in API responses
type Download struct {
	ID        string          `json:"id"`
	Reference string          `json:"reference"`
	CreatedAt int64           `json:"created_at"`
	UpdatedAt int64           `json:"updated_at"`
	Config    *DownloadConfig `json:"config,omitempty"`
	State     *DownloadState  `json:"state,omitempty"`
}

// DownloadConfig in API format
type DownloadConfig struct {
	URL          string   `json:"url"`
	Mode         string   `json:"mode"`
	VideoQuality string   `json:"video_quality"`
	AudioQuality string   `json:"audio_quality"`
	Output       string   `json:"output"`
	Dir          string   `json:"dir"`
	Command      []string `json:"command"`
}

// DownloadState for API
type DownloadState struct {
	State     string  `json:"state"`
	Message   string  `json:"message"`
	Percent   float64 `json:"percent"`
	Live      bool    `json:"live"`
	Runtime   int64   `json:"runtime_seconds"`
	PID       int     `json:"pid"`
	Memory    uint64  `json:"memory_bytes"`
	CPU       float64 `json:"cpu_usage"`
	Error     string  `json:"error,omitempty"`
	Recovered int     `json:"recovered_files"`
}

// YTDLPInfo describes the binary in use
type YTDLPInfo struct {
	Binary  string `json:"binary"`
	Version string `json:"version"`
}

// CommandRequest for cancel
type CommandRequest struct {
	Command string `json:"command" binding:"required"`
}

// ErrorResponse for API errors
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}
