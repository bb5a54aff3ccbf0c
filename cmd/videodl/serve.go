// Copyright (c) 2026 The sigma-hub Authors. All rights reserved.
// Use of this source code is governed by the MIT License.
//
// VideoDownloader - yt-dlp 下载进度与取消管理工具

package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/sigma-hub/sfm-extension-video-downloader/internal/api"
	"github.com/sigma-hub/sfm-extension-video-downloader/internal/task"
)

const shutdownTimeout = 30 * time.Second

func newServeCommand(ctx *commandContext) *cobra.Command {
	var bind string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the download API server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if bind != "" {
				cfg.Server.Bind = bind
			}

			signalCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			log := ctx.newLogger("videodl")

			y, err := ctx.newYTDLP(signalCtx, cfg)
			if err != nil {
				return err
			}
			log.Info("using %s (%s)", y.Binary(), y.Version())

			runner, err := ctx.newRunner(cfg, y, log)
			if err != nil {
				return err
			}

			store := task.NewStore(task.StoreConfig{
				YTDLP:  y,
				Runner: runner,
				Dir:    cfg.YTDLP.DownloadDir,
				Logger: log.WithField("component", "task"),
			})
			handler := api.NewHandler(store, y)

			r := gin.Default()
			r.Use(cors.Default())
			handler.Register(r.Group("/api/v1"))

			srv := &http.Server{Addr: cfg.Server.Bind, Handler: r}
			serveErr := make(chan error, 1)
			go func() {
				serveErr <- srv.ListenAndServe()
			}()
			log.Info("listening on %s", cfg.Server.Bind)

			select {
			case err := <-serveErr:
				return err
			case <-signalCtx.Done():
			}

			log.Info("shutting down, cancelling downloads")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()

			if err := store.CancelAll(shutdownCtx); err != nil {
				log.Error("cancel downloads: %v", err)
			}
			if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&bind, "bind", "", "Bind address (overrides config)")
	return cmd
}
