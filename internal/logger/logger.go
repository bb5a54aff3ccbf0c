// Copyright (c) 2026 The sigma-hub Authors. All rights reserved.
// Use of this source code is governed by the MIT License.
//
// VideoDownloader - yt-dlp 下载进度与取消管理工具

package logger

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Logger provides a simple logging interface
type Logger interface {
	Info(format string, args ...interface{})
	Error(format string, args ...interface{})
	Debug(format string, args ...interface{})
	WithField(key string, value interface{}) Logger
}

type logrusLogger struct {
	entry *logrus.Entry
}

// New creates a logger tagged with the given component name
func New(prefix string) Logger {
	return NewWithOutput(prefix, os.Stderr, "info")
}

// NewWithOutput creates a logger writing to w at the given level.
// Unknown levels fall back to info.
func NewWithOutput(prefix string, w io.Writer, level string) Logger {
	l := logrus.New()
	l.SetOutput(w)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05.000",
	})
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	l.SetLevel(lvl)

	entry := logrus.NewEntry(l)
	if prefix != "" {
		entry = entry.WithField("component", prefix)
	}
	return &logrusLogger{entry: entry}
}

func (l *logrusLogger) Info(format string, args ...interface{}) {
	l.entry.Infof(format, args...)
}

func (l *logrusLogger) Error(format string, args ...interface{}) {
	l.entry.Errorf(format, args...)
}

func (l *logrusLogger) Debug(format string, args ...interface{}) {
	l.entry.Debugf(format, args...)
}

func (l *logrusLogger) WithField(key string, value interface{}) Logger {
	return &logrusLogger{entry: l.entry.WithField(key, value)}
}

// Nop returns a logger that discards everything
func Nop() Logger {
	return nopLogger{}
}

type nopLogger struct{}

func (nopLogger) Info(format string, args ...interface{})          {}
func (nopLogger) Error(format string, args ...interface{})         {}
func (nopLogger) Debug(format string, args ...interface{})         {}
func (n nopLogger) WithField(key string, value interface{}) Logger { return n }
