// Copyright (c) 2026 The sigma-hub Authors. All rights reserved.
// Use of this source code is governed by the MIT License.
//
// VideoDownloader - yt-dlp 下载进度与取消管理工具

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newVersionCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the videodl and yt-dlp versions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "videodl %s\n", version)

			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			y, err := ctx.newYTDLP(cmd.Context(), cfg)
			if err != nil {
				fmt.Fprintf(out, "yt-dlp unavailable: %v\n", err)
				return nil
			}
			fmt.Fprintf(out, "yt-dlp %s (%s)\n", y.Version(), y.Binary())
			return nil
		},
	}
}
