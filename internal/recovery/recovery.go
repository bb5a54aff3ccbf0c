// Copyright (c) 2026 The sigma-hub Authors. All rights reserved.
// Use of this source code is governed by the MIT License.
//
// VideoDownloader - yt-dlp 下载进度与取消管理工具
//
// Package recovery turns the leftovers of an interrupted yt-dlp download
// into files that can be played.

package recovery

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"github.com/sigma-hub/sfm-extension-video-downloader/internal/logger"
)

const (
	LockFile   = ".videodl.lock"
	partSuffix = ".part"
	ytdlSuffix = ".ytdl"
	fragMarker = ".part-Frag"

	lockRetryDelay = 50 * time.Millisecond
)

var ErrLocked = errors.New("directory is being reconciled by another process")

// Reconciler reconciles a download directory
type Reconciler struct {
	logger logger.Logger
}

// New creates a Reconciler. A nil logger discards output.
func New(log logger.Logger) *Reconciler {
	if log == nil {
		log = logger.Nop()
	}
	return &Reconciler{logger: log}
}

// Reconcile renames non-empty *.part files to their final name when that name
// is free, and removes empty part files, fragment files and .ytdl resume
// metadata. It returns the number of renamed files. Independent failures are
// joined; the walk does not stop at the first one. A directory that does not
// exist has nothing to recover.
//
// The lock file stays in dir. Unlinking it would let a later reconciler lock
// a fresh inode while another still holds the old one.
func (r *Reconciler) Reconcile(ctx context.Context, dir string) (int, error) {
	info, err := os.Stat(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("stat %s: %w", dir, err)
	}
	if !info.IsDir() {
		return 0, fmt.Errorf("%s: not a directory", dir)
	}

	lockPath := filepath.Join(dir, LockFile)
	lock := flock.New(lockPath)
	ok, err := lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return 0, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return 0, ErrLocked
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			r.logger.Error("release %s: %v", lockPath, err)
		}
	}()

	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", dir, err)
	}

	log := r.logger.WithField("dir", dir)
	recovered := 0
	var errs []error

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if !entry.Type().IsRegular() {
			continue
		}

		name := entry.Name()
		path := filepath.Join(dir, name)

		switch {
		case strings.Contains(name, fragMarker), strings.HasSuffix(name, ytdlSuffix):
			if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
				errs = append(errs, err)
				continue
			}
			log.Debug("removed %s", name)
		case strings.HasSuffix(name, partSuffix):
			renamed, err := recoverPart(path)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			if renamed {
				recovered++
				log.Info("recovered %s", strings.TrimSuffix(name, partSuffix))
			}
		}
	}

	return recovered, errors.Join(errs...)
}

func recoverPart(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		return false, err
	}
	if info.Size() == 0 {
		return false, os.Remove(path)
	}

	target := strings.TrimSuffix(path, partSuffix)
	if _, err := os.Stat(target); err == nil {
		// the finished file wins over the partial one
		return false, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return false, err
	}

	if err := os.Rename(path, target); err != nil {
		return false, fmt.Errorf("rename %s: %w", filepath.Base(path), err)
	}
	return true, nil
}
