// Copyright (c) 2026 The sigma-hub Authors. All rights reserved.
// Use of this source code is governed by the MIT License.
//
// VideoDownloader - yt-dlp 下载进度与取消管理工具

package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/sigma-hub/sfm-extension-video-downloader/internal/task"
	"github.com/sigma-hub/sfm-extension-video-downloader/internal/ytdlp"
)

// Handler holds dependencies
type Handler struct {
	store task.Store
	ytdlp ytdlp.YTDLP
}

// NewHandler creates API handler
func NewHandler(store task.Store, y ytdlp.YTDLP) *Handler {
	return &Handler{store: store, ytdlp: y}
}

// Register mounts the routes on g
func (h *Handler) Register(g gin.IRoutes) {
	g.GET("/ytdlp", h.About)
	g.POST("/ytdlp/reload", h.ReloadVersion)

	g.GET("/downloads", h.ListDownloads)
	g.POST("/downloads", h.AddDownload)
	g.GET("/downloads/:id", h.GetDownload)
	g.DELETE("/downloads/:id", h.DeleteDownload)
	g.PUT("/downloads/:id/command", h.Command)
}

func errResp(c *gin.Context, code int, msg, detail string) {
	c.JSON(code, ErrorResponse{Code: code, Message: msg, Detail: detail})
}

// AddDownload POST /api/v1/downloads
func (h *Handler) AddDownload(c *gin.Context) {
	var req DownloadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errResp(c, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}

	t, err := h.store.Add(&task.Config{
		ID:        req.ID,
		Reference: req.Reference,
		Options: ytdlp.Options{
			URL:          req.URL,
			Mode:         ytdlp.Mode(req.Mode),
			VideoQuality: req.VideoQuality,
			AudioQuality: req.AudioQuality,
			Output:       req.Output,
		},
	})
	if err != nil {
		switch {
		case errors.Is(err, task.ErrTaskExists):
			errResp(c, http.StatusConflict, "Download exists", err.Error())
		case errors.Is(err, ytdlp.ErrInvalidURL):
			errResp(c, http.StatusBadRequest, "URL not allowed", err.Error())
		case errors.Is(err, task.ErrInvalidConfig):
			errResp(c, http.StatusBadRequest, "Invalid config", err.Error())
		default:
			errResp(c, http.StatusInternalServerError, "Start failed", err.Error())
		}
		return
	}

	c.JSON(http.StatusOK, taskToDownload(t, ""))
}

// ListDownloads GET /api/v1/downloads
func (h *Handler) ListDownloads(c *gin.Context) {
	filter := c.DefaultQuery("filter", "")
	reference := c.DefaultQuery("reference", "")
	idStr := c.DefaultQuery("id", "")

	var ids []string
	if idStr != "" {
		ids = strings.FieldsFunc(idStr, func(r rune) bool { return r == ',' })
		for i := range ids {
			ids[i] = strings.TrimSpace(ids[i])
		}
	}

	tasks := h.store.List(ids, reference)
	downloads := make([]Download, 0, len(tasks))
	for _, t := range tasks {
		downloads = append(downloads, taskToDownload(t, filter))
	}

	c.JSON(http.StatusOK, downloads)
}

// GetDownload GET /api/v1/downloads/:id
func (h *Handler) GetDownload(c *gin.Context) {
	t, err := h.store.Get(c.Param("id"))
	if err != nil {
		errResp(c, http.StatusNotFound, "Unknown download ID", err.Error())
		return
	}

	c.JSON(http.StatusOK, taskToDownload(t, c.DefaultQuery("filter", "")))
}

// DeleteDownload DELETE /api/v1/downloads/:id
func (h *Handler) DeleteDownload(c *gin.Context) {
	if err := h.store.Delete(c.Request.Context(), c.Param("id")); err != nil {
		if errors.Is(err, task.ErrNotFound) {
			errResp(c, http.StatusNotFound, "Unknown download ID", err.Error())
			return
		}
		errResp(c, http.StatusInternalServerError, "Delete failed", err.Error())
		return
	}

	c.JSON(http.StatusOK, "OK")
}

// Command PUT /api/v1/downloads/:id/command
func (h *Handler) Command(c *gin.Context) {
	id := c.Param("id")

	var req CommandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errResp(c, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}

	var err error
	switch req.Command {
	case "cancel":
		err = h.store.Cancel(c.Request.Context(), id)
	default:
		errResp(c, http.StatusBadRequest, "Unknown command", "Known: cancel")
		return
	}

	if err != nil {
		if errors.Is(err, task.ErrNotFound) {
			errResp(c, http.StatusNotFound, "Unknown download ID", err.Error())
			return
		}
		errResp(c, http.StatusBadRequest, "Command failed", err.Error())
		return
	}

	c.JSON(http.StatusOK, "OK")
}

// About GET /api/v1/ytdlp
func (h *Handler) About(c *gin.Context) {
	c.JSON(http.StatusOK, YTDLPInfo{Binary: h.ytdlp.Binary(), Version: h.ytdlp.Version()})
}

// ReloadVersion POST /api/v1/ytdlp/reload
func (h *Handler) ReloadVersion(c *gin.Context) {
	if err := h.ytdlp.ReloadVersion(c.Request.Context()); err != nil {
		errResp(c, http.StatusInternalServerError, "Reload failed", err.Error())
		return
	}
	h.About(c)
}

func taskToDownload(t *task.Task, filter string) Download {
	d := Download{
		ID:        t.ID,
		Reference: t.Reference,
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt(),
	}

	includeAll := filter == ""

	if includeAll || strings.Contains(filter, "config") {
		opts := t.Config.Options
		d.Config = &DownloadConfig{
			URL:          opts.URL,
			Mode:         string(opts.Mode),
			VideoQuality: opts.VideoQuality,
			AudioQuality: opts.AudioQuality,
			Output:       opts.Output,
			Dir:          t.Dir,
			Command:      t.Command,
		}
	}

	if includeAll || strings.Contains(filter, "state") {
		status := t.Status()
		progress := t.Progress()
		res, _ := t.Result()
		d.State = &DownloadState{
			State:     t.State(),
			Message:   progress.Message,
			Percent:   progress.Percent,
			Live:      progress.Live,
			Runtime:   int64(status.Duration.Seconds()),
			PID:       status.PID,
			Memory:    status.Memory,
			CPU:       status.CPU,
			Error:     t.ErrorMessage(),
			Recovered: res.Recovered,
		}
	}

	return d
}
