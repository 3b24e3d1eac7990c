package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"moviemania/internal/apperr"
	"moviemania/internal/backup"
	"moviemania/pkg/models"
)

const recentLoginWindow = 7 * 24 * time.Hour

func (app *application) handleListNotifications(c *gin.Context) {
	entries, err := app.notes.List(c.Request.Context())
	if err != nil {
		app.serverErrorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

type deleteNotificationsRequest struct {
	// Indexes holds entry timestamps in unix milliseconds.
	Indexes []int64 `json:"indexes"`
}

func (app *application) handleDeleteNotifications(c *gin.Context) {
	var req deleteNotificationsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		app.badRequestResponse(c, "indexes must be a list of timestamps")
		return
	}
	removed, err := app.notes.DeleteByTimestamps(c.Request.Context(), req.Indexes)
	if err != nil {
		app.serverErrorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "removed": removed})
}

func (app *application) handleStats(c *gin.Context) {
	ctx := c.Request.Context()

	var (
		stats models.Stats
		err   error
	)
	if stats.TotalMovies, err = app.catalog.CountMovies(ctx); err != nil {
		app.serverErrorResponse(c, err)
		return
	}
	if stats.TotalSeries, err = app.catalog.CountSeries(ctx); err != nil {
		app.serverErrorResponse(c, err)
		return
	}
	if stats.TotalAdmins, err = app.admins.Count(ctx); err != nil {
		app.serverErrorResponse(c, err)
		return
	}
	if stats.RecentLogins, err = app.sessions.CountSince(ctx, app.now().Add(-recentLoginWindow)); err != nil {
		app.serverErrorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// handleBackup serves one collection file, or every file zipped when the
// type is "zip".
func (app *application) handleBackup(c *gin.Context) {
	ctx := c.Request.Context()
	kind := c.Param("type")

	if kind == "zip" {
		name := fmt.Sprintf("moviemania-backup-%s.zip", app.now().UTC().Format("20060102-150405"))
		c.Header("Content-Type", "application/zip")
		c.Header("Content-Disposition", "attachment; filename="+name)
		c.Status(http.StatusOK)
		if err := app.backups.WriteZip(ctx, c.Writer); err != nil {
			// headers are already sent
			app.logError(c, err)
		}
		return
	}

	data, err := app.backups.Export(ctx, kind)
	if err != nil {
		app.respondError(c, err)
		return
	}
	contentType := "application/json"
	if kind == backup.Notifications {
		contentType = "text/plain; charset=utf-8"
	}
	c.Header("Content-Disposition", "attachment; filename="+backup.Filename(kind))
	c.Data(http.StatusOK, contentType, data)
}

// handleUploadPoster stores the multipart "poster" file and answers
// "success:<public path>".
func (app *application) handleUploadPoster(c *gin.Context) {
	fh, err := c.FormFile("poster")
	if err != nil {
		c.String(http.StatusBadRequest, "Error: No file uploaded.")
		return
	}
	if fh.Size > app.cfg.Uploads.MaxBytes {
		c.String(http.StatusBadRequest, "Error: File too large.")
		return
	}
	f, err := fh.Open()
	if err != nil {
		app.logError(c, err)
		c.String(http.StatusInternalServerError, "Internal server error.")
		return
	}
	defer f.Close()

	path, err := app.posters.Save(c.Request.Context(), fh.Filename, f)
	if err != nil {
		status := apperr.HTTPStatus(err)
		if status >= http.StatusInternalServerError {
			app.logError(c, err)
			c.String(status, "Internal server error.")
			return
		}
		c.String(status, "Error: "+apperr.Message(err))
		return
	}
	c.String(http.StatusOK, "success:"+path)
}
