// Copyright (c) 2026 The sigma-hub Authors. All rights reserved.
// Use of this source code is governed by the MIT License.
//
// VideoDownloader - yt-dlp 下载进度与取消管理工具

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
)

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}
