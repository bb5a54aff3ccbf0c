// Copyright (c) 2026 The sigma-hub Authors. All rights reserved.
// Use of this source code is governed by the MIT License.
//
// VideoDownloader - yt-dlp 下载进度与取消管理工具

package parse

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Kind tags a classified line
type Kind int

const (
	KindIgnored Kind = iota
	KindDownload
	KindTranscode
	KindStreamDetected
	KindStatus
)

func (k Kind) String() string {
	switch k {
	case KindDownload:
		return "download"
	case KindTranscode:
		return "transcode"
	case KindStreamDetected:
		return "stream_detected"
	case KindStatus:
		return "status"
	default:
		return "ignored"
	}
}

// FinalizingText is reported for merge/extract/fixup stages
const FinalizingText = "Finalizing..."

// MaxStatusLength caps status text in runes, ellipsis included
const MaxStatusLength = 60

// DownloadProgress is a yt-dlp downloader progress line.
// Percent is nil when the line carries none; string fields are empty when absent.
type DownloadProgress struct {
	Percent *float64
	Size    string
	Speed   string
	ETA     string
}

// TranscodeProgress is an ffmpeg progress line relayed by yt-dlp
type TranscodeProgress struct {
	Size    string
	Time    string
	Bitrate string
	Speed   *float64
	Frame   *uint64
}

// Event is the result of classifying one output line
type Event struct {
	Kind      Kind
	Download  *DownloadProgress
	Transcode *TranscodeProgress
	Text      string
}

var re = struct {
	live       *regexp.Regexp
	bracket    *regexp.Regexp
	finalize   *regexp.Regexp
	download   *regexp.Regexp
	percent    *regexp.Regexp
	ofSize     *regexp.Regexp
	atSpeed    *regexp.Regexp
	eta        *regexp.Regexp
	etaShape   *regexp.Regexp
	lsize      *regexp.Regexp
	size       *regexp.Regexp
	time       *regexp.Regexp
	frame      *regexp.Regexp
	bitrate    *regexp.Regexp
	speedMulti *regexp.Regexp
}{
	live:       regexp.MustCompile(`(?i)\(live\)|duration:\s*n/a`),
	bracket:    regexp.MustCompile(`^\[[^\]]+\]\s*`),
	finalize:   regexp.MustCompile(`^\[(?:Merger|ExtractAudio|Fixup[A-Za-z0-9]*)\]`),
	download:   regexp.MustCompile(`^(?:\[download\]|[0-9]+(?:\.[0-9]+)?\s*%)`),
	percent:    regexp.MustCompile(`([0-9]+(?:\.[0-9]+)?)\s*%`),
	ofSize:     regexp.MustCompile(`\bof\s+~?\s*([0-9]+(?:\.[0-9]+)?\s*[KMGTP]?i?B)\b`),
	atSpeed:    regexp.MustCompile(`\bat\s+~?\s*([0-9]+(?:\.[0-9]+)?\s*[KMGTP]?i?B/s)`),
	eta:        regexp.MustCompile(`\bETA\s+(\S+)`),
	etaShape:   regexp.MustCompile(`^[0-9]+:[0-9]{2}(?::[0-9]{2})?$`),
	lsize:      regexp.MustCompile(`Lsize=\s*([0-9]+(?:\.[0-9]+)?\s*[A-Za-z]+)`),
	size:       regexp.MustCompile(`(?:^|[\s,])size=\s*([0-9]+(?:\.[0-9]+)?\s*[A-Za-z]+)`),
	time:       regexp.MustCompile(`time=\s*([0-9]{2,}:[0-9]{2}:[0-9]{2}(?:\.[0-9]+)?)`),
	frame:      regexp.MustCompile(`frame=\s*([0-9]+)`),
	bitrate:    regexp.MustCompile(`bitrate=\s*([0-9]+(?:\.[0-9]+)?\s*[A-Za-z]+/s)`),
	speedMulti: regexp.MustCompile(`speed=\s*([0-9]+(?:\.[0-9]+)?)x`),
}

// Classify maps one line of yt-dlp output to an Event. It has no state and
// never fails; unknown lines come back as KindIgnored.
func Classify(line string) Event {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return Event{Kind: KindIgnored}
	}

	if re.live.MatchString(trimmed) {
		return Event{Kind: KindStreamDetected}
	}

	if re.download.MatchString(trimmed) {
		if p, ok := parseDownload(trimmed); ok {
			return Event{Kind: KindDownload, Download: &p}
		}
		return status(trimmed)
	}

	if p, ok := parseTranscode(trimmed); ok {
		return Event{Kind: KindTranscode, Transcode: &p}
	}

	if re.finalize.MatchString(trimmed) {
		return Event{Kind: KindStatus, Text: FinalizingText}
	}

	if re.bracket.MatchString(trimmed) {
		return status(trimmed)
	}

	return Event{Kind: KindIgnored}
}

func parseDownload(line string) (DownloadProgress, bool) {
	var p DownloadProgress

	m := re.percent.FindStringSubmatch(line)
	if m == nil {
		return p, false
	}
	x, err := strconv.ParseFloat(m[1], 64)
	if err != nil || x < 0 || x > 100 {
		return p, false
	}
	p.Percent = &x

	if m := re.ofSize.FindStringSubmatch(line); m != nil {
		p.Size = compact(m[1])
	}
	if m := re.atSpeed.FindStringSubmatch(line); m != nil {
		p.Speed = compact(m[1])
	}
	if m := re.eta.FindStringSubmatch(line); m != nil && re.etaShape.MatchString(m[1]) {
		p.ETA = m[1]
	}
	return p, true
}

func parseTranscode(line string) (TranscodeProgress, bool) {
	var p TranscodeProgress
	found := false

	if m := re.lsize.FindStringSubmatch(line); m != nil {
		p.Size = compact(m[1])
		found = true
	} else if m := re.size.FindStringSubmatch(line); m != nil {
		p.Size = compact(m[1])
		found = true
	}
	if m := re.time.FindStringSubmatch(line); m != nil {
		p.Time = m[1]
		found = true
	}
	if m := re.frame.FindStringSubmatch(line); m != nil {
		if x, err := strconv.ParseUint(m[1], 10, 64); err == nil {
			p.Frame = &x
			found = true
		}
	}
	if !found {
		return TranscodeProgress{}, false
	}

	if m := re.bitrate.FindStringSubmatch(line); m != nil {
		p.Bitrate = compact(m[1])
	}
	if m := re.speedMulti.FindStringSubmatch(line); m != nil {
		if x, err := strconv.ParseFloat(m[1], 64); err == nil {
			p.Speed = &x
		}
	}
	return p, true
}

func status(line string) Event {
	text := StatusText(line)
	if text == "" {
		return Event{Kind: KindIgnored}
	}
	return Event{Kind: KindStatus, Text: text}
}

// StatusText trims the line, strips a leading [tag] and caps the result at
// MaxStatusLength runes.
func StatusText(line string) string {
	text := strings.TrimSpace(line)
	text = strings.TrimSpace(re.bracket.ReplaceAllString(text, ""))
	if utf8.RuneCountInString(text) <= MaxStatusLength {
		return text
	}
	runes := []rune(text)
	return strings.TrimSpace(string(runes[:MaxStatusLength-3])) + "..."
}

// compact drops the whitespace yt-dlp pads between value and unit
func compact(s string) string {
	return strings.Join(strings.Fields(s), "")
}
