// Copyright (c) 2026 The sigma-hub Authors. All rights reserved.
// Use of this source code is governed by the MIT License.
//
// VideoDownloader - yt-dlp 下载进度与取消管理工具

package main

import (
	"github.com/spf13/cobra"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

func newRootCommand() *cobra.Command {
	var configFlag string
	var ytdlpFlag string

	ctx := newCommandContext(&configFlag, &ytdlpFlag)

	rootCmd := &cobra.Command{
		Use:           "videodl",
		Short:         "yt-dlp download manager with progress and cancellation",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Path to YAML config file")
	rootCmd.PersistentFlags().StringVar(&ytdlpFlag, "ytdlp", "", "yt-dlp binary path (overrides config)")

	rootCmd.AddCommand(newServeCommand(ctx))
	rootCmd.AddCommand(newGetCommand(ctx))
	rootCmd.AddCommand(newVersionCommand(ctx))

	return rootCmd
}
