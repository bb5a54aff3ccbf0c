// Copyright (c) 2026 The sigma-hub Authors. All rights reserved.
// Use of this source code is governed by the MIT License.
//
// VideoDownloader - yt-dlp 下载进度与取消管理工具

package ytdlp

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Mode 下载类型
type Mode string

const (
	ModeVideoAudio Mode = "video-audio"
	ModeVideoOnly  Mode = "video-only"
	ModeAudioOnly  Mode = "audio-only"
)

// 视频质量: best 或最大高度
var VideoQualities = []string{"best", "1080", "720", "480", "360"}

// 音频质量
var AudioQualities = []string{"best", "medium", "low"}

// Options 描述一次下载
type Options struct {
	URL          string `json:"url"`
	Mode         Mode   `json:"mode"`
	VideoQuality string `json:"video_quality"`
	AudioQuality string `json:"audio_quality"`
	Output       string `json:"output"`
}

// withDefaults 填充空字段
func (o Options) withDefaults() Options {
	if o.Mode == "" {
		o.Mode = ModeVideoAudio
	}
	if o.VideoQuality == "" {
		o.VideoQuality = "best"
	}
	if o.AudioQuality == "" {
		o.AudioQuality = "best"
	}
	return o
}

// Validate 校验 URL、模式与质量
func (o Options) Validate() error {
	o = o.withDefaults()

	if strings.TrimSpace(o.URL) == "" {
		return ErrNoURL
	}
	switch o.Mode {
	case ModeVideoAudio, ModeVideoOnly, ModeAudioOnly:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidMode, o.Mode)
	}
	if !contains(VideoQualities, o.VideoQuality) {
		return fmt.Errorf("%w: video %q", ErrInvalidQuality, o.VideoQuality)
	}
	if !contains(AudioQualities, o.AudioQuality) {
		return fmt.Errorf("%w: audio %q", ErrInvalidQuality, o.AudioQuality)
	}
	return nil
}

// FormatSelector returns the -f expression for the chosen mode and qualities
func (o Options) FormatSelector() string {
	o = o.withDefaults()

	switch o.Mode {
	case ModeAudioOnly:
		switch o.AudioQuality {
		case "low":
			return "worstaudio"
		case "medium":
			return "bestaudio[abr<=128]/bestaudio"
		}
		return "bestaudio"
	case ModeVideoOnly:
		if o.VideoQuality == "best" {
			return "bestvideo"
		}
		return "bestvideo[height<=" + o.VideoQuality + "]"
	}

	if o.VideoQuality == "best" {
		return "bestvideo+bestaudio/best"
	}
	return "bestvideo[height<=" + o.VideoQuality + "]+bestaudio/best"
}

// Args builds the yt-dlp command line. --newline keeps every progress
// update on its own line.
func (o Options) Args() []string {
	o = o.withDefaults()

	args := []string{"--no-playlist", "--newline", "-f", o.FormatSelector()}
	if o.Mode == ModeAudioOnly {
		args = append(args, "-x", "--audio-format", "mp3")
	}
	if o.Output != "" {
		args = append(args, "-o", o.Output)
	}
	return append(args, o.URL)
}

// OutputDir returns the directory yt-dlp writes to for an output template
// run from dir. A template field in a directory component cuts the path
// back to its deepest static parent.
func OutputDir(dir, output string) string {
	if output == "" {
		return dir
	}
	p := output
	if !filepath.IsAbs(p) {
		p = filepath.Join(dir, p)
	}
	p = filepath.Dir(p)
	if i := strings.Index(p, "%("); i >= 0 {
		p = filepath.Dir(p[:i])
	}
	return p
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
