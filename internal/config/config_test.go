// Copyright (c) 2026 The sigma-hub Authors. All rights reserved.
// Use of this source code is governed by the MIT License.
//
// VideoDownloader - yt-dlp 下载进度与取消管理工具

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, ":8080", cfg.Server.Bind)
	assert.Equal(t, "yt-dlp", cfg.YTDLP.Path)
	assert.Equal(t, 200*time.Millisecond, cfg.YTDLP.UpdateInterval())
	assert.Equal(t, 10*time.Second, cfg.YTDLP.TerminationTimeout())
	assert.Equal(t, 5*time.Second, cfg.YTDLP.KillDelay())
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadOverridesAndBackfills(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
server:
  bind: "127.0.0.1:9000"
ytdlp:
  path: ""
  download_dir: /srv/media
  update_interval_ms: 500
  allow:
    - "^https://"
log:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Bind)
	assert.Equal(t, "yt-dlp", cfg.YTDLP.Path, "empty path is backfilled")
	assert.Equal(t, "/srv/media", cfg.YTDLP.DownloadDir)
	assert.Equal(t, 500*time.Millisecond, cfg.YTDLP.UpdateInterval())
	assert.Equal(t, 10*time.Second, cfg.YTDLP.TerminationTimeout())
	assert.Equal(t, []string{"^https://"}, cfg.YTDLP.Allow)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [unterminated"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}
