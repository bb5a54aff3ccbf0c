// Copyright (c) 2026 The sigma-hub Authors. All rights reserved.
// Use of this source code is governed by the MIT License.
//
// VideoDownloader - yt-dlp 下载进度与取消管理工具

package process

import (
	"container/ring"
	"sync"
	"time"
)

// Stream identifies the pipe a line was read from
type Stream int

const (
	StreamStdout Stream = iota
	StreamStderr
)

func (s Stream) String() string {
	if s == StreamStderr {
		return "stderr"
	}
	return "stdout"
}

// Line is a timestamped output line
type Line struct {
	Timestamp time.Time
	Data      string
	Stream    Stream
}

// lineLog keeps the most recent lines in a ring
type lineLog struct {
	log  *ring.Ring
	size int
	lock sync.RWMutex
}

func newLineLog(size int) *lineLog {
	if size <= 0 {
		size = 100
	}
	return &lineLog{log: ring.New(size), size: size}
}

func (l *lineLog) add(line Line) {
	l.lock.Lock()
	defer l.lock.Unlock()
	l.log.Value = line
	l.log = l.log.Next()
}

func (l *lineLog) lines() []Line {
	var out []Line
	l.lock.RLock()
	l.log.Do(func(v interface{}) {
		if v != nil {
			out = append(out, v.(Line))
		}
	})
	l.lock.RUnlock()
	return out
}
