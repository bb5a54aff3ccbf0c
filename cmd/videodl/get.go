// Copyright (c) 2026 The sigma-hub Authors. All rights reserved.
// Use of this source code is governed by the MIT License.
//
// VideoDownloader - yt-dlp 下载进度与取消管理工具

package main

import (
	"errors"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sigma-hub/sfm-extension-video-downloader/internal/download"
	"github.com/sigma-hub/sfm-extension-video-downloader/internal/task"
	"github.com/sigma-hub/sfm-extension-video-downloader/internal/ytdlp"
)

// progressPrinter writes one line per update with the running total
type progressPrinter struct {
	out     io.Writer
	percent float64
}

func (p *progressPrinter) Report(message string, increment float64) {
	p.percent += increment
	if p.percent > 100 {
		p.percent = 100
	}
	fmt.Fprintf(p.out, "[%5.1f%%] %s\n", p.percent, message)
}

func newGetCommand(ctx *commandContext) *cobra.Command {
	var opts ytdlp.Options
	var mode string
	var dir string

	cmd := &cobra.Command{
		Use:   "get <url>",
		Short: "Download a single URL, Ctrl-C cancels and keeps partial files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if dir == "" {
				dir = cfg.YTDLP.DownloadDir
			}

			opts.URL = args[0]
			opts.Mode = ytdlp.Mode(mode)
			if opts.Output == "" {
				opts.Output = task.DefaultOutput
			}

			signalCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			log := ctx.newLogger("videodl")

			y, err := ctx.newYTDLP(signalCtx, cfg)
			if err != nil {
				return err
			}
			command, err := y.Command(opts)
			if err != nil {
				return err
			}

			runner, err := ctx.newRunner(cfg, y, log)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			res, err := runner.Run(signalCtx, download.Job{
				Args:      command,
				Dir:       dir,
				OutputDir: ytdlp.OutputDir(dir, opts.Output),
			}, download.Callbacks{
				Sink: &progressPrinter{out: out},
				OnStreamDetected: func() {
					fmt.Fprintln(out, "Live stream detected, recording until cancelled")
				},
			})

			var exitErr *download.ExitError
			if errors.As(err, &exitErr) {
				fmt.Fprintln(cmd.ErrOrStderr(), "Download failed:")
				fmt.Fprintln(cmd.ErrOrStderr(), exitErr.Message())
				return fmt.Errorf("yt-dlp exited with code %d", exitErr.Code)
			}
			if err != nil {
				return err
			}

			if res.Cancelled {
				fmt.Fprintf(out, "Download cancelled, %d file(s) recovered\n", res.Recovered)
				if res.RecoveryErr != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "Recovery incomplete: %v\n", res.RecoveryErr)
				}
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&mode, "mode", "m", string(ytdlp.ModeVideoAudio), "Download type: video-audio, video-only or audio-only")
	flags.StringVar(&opts.VideoQuality, "video-quality", "best", "Video quality: best, 1080, 720, 480 or 360")
	flags.StringVar(&opts.AudioQuality, "audio-quality", "best", "Audio quality: best, medium or low")
	flags.StringVarP(&opts.Output, "output", "o", "", "yt-dlp output template, relative to the download directory or absolute")
	flags.StringVarP(&dir, "dir", "d", "", "Download directory (overrides config)")

	return cmd
}
