// Copyright (c) 2026 The sigma-hub Authors. All rights reserved.
// Use of this source code is governed by the MIT License.
//
// VideoDownloader - yt-dlp 下载进度与取消管理工具

package progress

import (
	"fmt"
	"strings"

	"github.com/sigma-hub/sfm-extension-video-downloader/internal/ytdlp/parse"
)

const (
	separator       = " | "
	downloadingText = "Downloading..."
	processingText  = "Processing..."
	recordedLabel   = "Recorded: "
)

// Message is one display update for the caller's progress UI.
// Increment is the share of total progress (in percent points) it adds.
type Message struct {
	Text      string
	Increment float64
}

// Output is what one classified event produced. Message is nil when the
// event carries nothing to display.
type Output struct {
	Message        *Message
	StreamDetected bool
}

// State is the per-run aggregation state
type State struct {
	lastPercent    float64
	isLive         bool
	streamDetected bool
}

// advance moves lastPercent forward and returns the non-negative delta
func (s *State) advance(percent float64) float64 {
	if percent <= s.lastPercent {
		return 0
	}
	delta := percent - s.lastPercent
	s.lastPercent = percent
	return delta
}

// markStreamDetected latches the live flag. It reports true only on the
// first call.
func (s *State) markStreamDetected() bool {
	if s.streamDetected {
		return false
	}
	s.streamDetected = true
	s.isLive = true
	return true
}

// Aggregator folds classified events into display messages. It is not safe
// for concurrent use; lines must be applied in arrival order.
type Aggregator struct {
	state    State
	onStream func()
}

// NewAggregator creates an Aggregator. onStream, if set, fires at most once.
func NewAggregator(onStream func()) *Aggregator {
	return &Aggregator{onStream: onStream}
}

// LastPercent returns the highest percent seen so far
func (a *Aggregator) LastPercent() float64 {
	return a.state.lastPercent
}

// IsLive reports whether a live stream marker was seen
func (a *Aggregator) IsLive() bool {
	return a.state.isLive
}

// Apply consumes one event
func (a *Aggregator) Apply(ev parse.Event) Output {
	switch ev.Kind {
	case parse.KindStreamDetected:
		if !a.state.markStreamDetected() {
			return Output{}
		}
		if a.onStream != nil {
			a.onStream()
		}
		return Output{StreamDetected: true}

	case parse.KindDownload:
		if ev.Download == nil || ev.Download.Percent == nil {
			return statusOutput(ev.Text)
		}
		increment := a.state.advance(*ev.Download.Percent)
		return Output{Message: &Message{Text: formatDownload(ev.Download), Increment: increment}}

	case parse.KindTranscode:
		if ev.Transcode == nil {
			return Output{}
		}
		return Output{Message: &Message{Text: formatTranscode(ev.Transcode)}}

	case parse.KindStatus:
		return statusOutput(ev.Text)
	}

	return Output{}
}

func statusOutput(text string) Output {
	if text == "" {
		return Output{}
	}
	return Output{Message: &Message{Text: text}}
}

func formatDownload(p *parse.DownloadProgress) string {
	var parts []string
	if p.Percent != nil {
		parts = append(parts, fmt.Sprintf("%.1f%%", *p.Percent))
	}
	if p.Size != "" {
		parts = append(parts, p.Size)
	}
	if p.Speed != "" {
		parts = append(parts, p.Speed)
	}
	if p.ETA != "" {
		parts = append(parts, "ETA "+p.ETA)
	}
	if len(parts) == 0 {
		return downloadingText
	}
	return strings.Join(parts, separator)
}

// formatTranscode builds the same message for live and finite sources; the
// total duration is unknown for the former so no percent is ever claimed.
func formatTranscode(p *parse.TranscodeProgress) string {
	var parts []string
	if p.Time != "" {
		parts = append(parts, recordedLabel+stripFraction(p.Time))
	}
	if p.Size != "" {
		parts = append(parts, p.Size)
	}
	if p.Bitrate != "" {
		parts = append(parts, p.Bitrate)
	}
	if len(parts) == 0 {
		return processingText
	}
	return strings.Join(parts, separator)
}

func stripFraction(t string) string {
	if i := strings.IndexByte(t, '.'); i >= 0 {
		return t[:i]
	}
	return t
}
