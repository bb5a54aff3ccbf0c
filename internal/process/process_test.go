// Copyright (c) 2026 The sigma-hub Authors. All rights reserved.
// Use of this source code is governed by the MIT License.
//
// VideoDownloader - yt-dlp 下载进度与取消管理工具

package process

import (
	"os/exec"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScanLine(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		atEOF   bool
		advance int
		token   string
	}{
		{"newline", "abc\ndef", false, 4, "abc"},
		{"carriage return", "12.0%\r13.0%\r", false, 6, "12.0%"},
		{"leading separators skipped", "\r\n\nabc\n", false, 7, "abc"},
		{"partial line needs more data", "abc", false, 0, ""},
		{"partial line at EOF", "abc", true, 3, "abc"},
		{"only separators", "\r\n", false, 2, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			advance, token, err := scanLine([]byte(tt.data), tt.atEOF)
			require.NoError(t, err)
			assert.Equal(t, tt.advance, advance)
			assert.Equal(t, tt.token, string(token))
		})
	}
}

func TestNewRequiresBinary(t *testing.T) {
	_, err := New(Config{})
	assert.ErrorIs(t, err, ErrNoBinary)
}

func TestStopBeforeStartIsNoop(t *testing.T) {
	p, err := New(Config{Binary: "yt-dlp"})
	require.NoError(t, err)
	assert.NoError(t, p.Stop(true))
	assert.False(t, p.IsRunning())
	assert.Equal(t, "finished", p.Status().State)
}

func requireShell(t *testing.T) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
	sh, err := exec.LookPath("sh")
	if err != nil {
		t.Skip("sh not available")
	}
	return sh
}

type lineCollector struct {
	mu    sync.Mutex
	lines []Line
}

func (c *lineCollector) add(l Line) {
	c.mu.Lock()
	c.lines = append(c.lines, l)
	c.mu.Unlock()
}

func (c *lineCollector) data(stream Stream) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []string
	for _, l := range c.lines {
		if l.Stream == stream {
			out = append(out, l.Data)
		}
	}
	return out
}

func TestProcessDispatchesLines(t *testing.T) {
	sh := requireShell(t)
	var c lineCollector

	p, err := New(Config{
		Binary: sh,
		Args:   []string{"-c", `printf '10.0%%\r20.0%%\rdone\n'; echo warn 1>&2`},
		OnLine: c.add,
	})
	require.NoError(t, err)
	require.NoError(t, p.Start())

	res := p.Wait()

	assert.True(t, res.Success())
	assert.Equal(t, []string{"10.0%", "20.0%", "done"}, c.data(StreamStdout))
	assert.Equal(t, []string{"warn"}, c.data(StreamStderr))
	assert.Equal(t, []string{"warn"}, res.Output)
	assert.Len(t, p.Log(), 4)
	assert.ErrorIs(t, p.Start(), ErrAlreadyStarted)
}

func TestProcessNonZeroExitCapturesStderr(t *testing.T) {
	sh := requireShell(t)

	p, err := New(Config{
		Binary:   sh,
		Args:     []string{"-c", "echo one 1>&2; echo two 1>&2; exit 3"},
		LogLines: 1,
	})
	require.NoError(t, err)
	require.NoError(t, p.Start())

	res := p.Wait()

	assert.False(t, res.Success())
	assert.Equal(t, 3, res.ExitCode)
	assert.Equal(t, "failed", res.State)
	assert.Equal(t, []string{"two"}, res.Output, "only the stderr tail is kept")
}

func TestProcessStartFailure(t *testing.T) {
	p, err := New(Config{Binary: "/nonexistent/yt-dlp"})
	require.NoError(t, err)

	assert.Error(t, p.Start())
	res := p.Wait()
	assert.Equal(t, "failed", res.State)
	assert.Error(t, res.Err)
}

func TestProcessStopInterrupts(t *testing.T) {
	sh := requireShell(t)

	exited := make(chan Result, 1)
	p, err := New(Config{
		Binary: sh,
		Args:   []string{"-c", "exec sleep 30"},
		OnExit: func(r Result) { exited <- r },
	})
	require.NoError(t, err)
	require.NoError(t, p.Start())
	require.True(t, p.IsRunning())

	start := time.Now()
	require.NoError(t, p.Stop(true))
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.False(t, p.IsRunning())

	select {
	case r := <-exited:
		assert.Equal(t, "killed", r.State)
	case <-time.After(5 * time.Second):
		t.Fatal("OnExit was not called")
	}
}

func TestProcessKillAfterDelayWhenInterruptIgnored(t *testing.T) {
	sh := requireShell(t)

	p, err := New(Config{
		Binary:    sh,
		Args:      []string{"-c", `trap '' INT; exec sleep 30`},
		KillDelay: 100 * time.Millisecond,
	})
	require.NoError(t, err)
	require.NoError(t, p.Start())

	// give the shell time to install the trap
	time.Sleep(100 * time.Millisecond)

	start := time.Now()
	require.NoError(t, p.Stop(true))
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Equal(t, "killed", p.Wait().State)
}
