// Copyright (c) 2026 The sigma-hub Authors. All rights reserved.
// Use of this source code is governed by the MIT License.
//
// VideoDownloader - yt-dlp 下载进度与取消管理工具

package ytdlp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatSelector(t *testing.T) {
	tests := []struct {
		mode  Mode
		video string
		audio string
		want  string
	}{
		{ModeVideoAudio, "best", "best", "bestvideo+bestaudio/best"},
		{ModeVideoAudio, "720", "low", "bestvideo[height<=720]+bestaudio/best"},
		{ModeVideoOnly, "best", "best", "bestvideo"},
		{ModeVideoOnly, "1080", "best", "bestvideo[height<=1080]"},
		{ModeAudioOnly, "480", "best", "bestaudio"},
		{ModeAudioOnly, "best", "medium", "bestaudio[abr<=128]/bestaudio"},
		{ModeAudioOnly, "best", "low", "worstaudio"},
		{"", "", "", "bestvideo+bestaudio/best"},
	}

	for _, tt := range tests {
		t.Run(string(tt.mode)+"/"+tt.video+"/"+tt.audio, func(t *testing.T) {
			o := Options{Mode: tt.mode, VideoQuality: tt.video, AudioQuality: tt.audio}
			assert.Equal(t, tt.want, o.FormatSelector())
		})
	}
}

func TestArgs(t *testing.T) {
	o := Options{URL: "https://example.com/v", Mode: ModeAudioOnly, Output: "/tmp/out.%(ext)s"}

	assert.Equal(t, []string{
		"--no-playlist", "--newline", "-f", "bestaudio",
		"-x", "--audio-format", "mp3",
		"-o", "/tmp/out.%(ext)s",
		"https://example.com/v",
	}, o.Args())
}

func TestArgsWithoutOutput(t *testing.T) {
	o := Options{URL: "https://example.com/v", VideoQuality: "360"}

	assert.Equal(t, []string{
		"--no-playlist", "--newline", "-f", "bestvideo[height<=360]+bestaudio/best",
		"https://example.com/v",
	}, o.Args())
}

func TestValidate(t *testing.T) {
	require.NoError(t, Options{URL: "https://example.com/v"}.Validate())

	assert.ErrorIs(t, Options{URL: "  "}.Validate(), ErrNoURL)
	assert.ErrorIs(t, Options{URL: "u", Mode: "playlist"}.Validate(), ErrInvalidMode)
	assert.ErrorIs(t, Options{URL: "u", VideoQuality: "4k"}.Validate(), ErrInvalidQuality)
	assert.ErrorIs(t, Options{URL: "u", AudioQuality: "lossless"}.Validate(), ErrInvalidQuality)
}

func TestOutputDir(t *testing.T) {
	tests := []struct {
		dir    string
		output string
		want   string
	}{
		{"/dl", "", "/dl"},
		{"/dl", "%(title)s.%(ext)s", "/dl"},
		{"/dl", "sub/%(title)s.%(ext)s", "/dl/sub"},
		{"/dl", "a/b/clip.mp4", "/dl/a/b"},
		{"/dl", "/elsewhere/x.mp4", "/elsewhere"},
		{"/dl", "%(uploader)s/%(title)s.%(ext)s", "/dl"},
		{"/dl", "music/%(uploader)s/%(title)s.%(ext)s", "/dl/music"},
		{"/dl", "pre-%(uploader)s/x.mp4", "/dl"},
		{"", "x.mp4", "."},
	}

	for _, tt := range tests {
		t.Run(tt.output, func(t *testing.T) {
			assert.Equal(t, tt.want, OutputDir(tt.dir, tt.output))
		})
	}
}
