package main

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"moviemania/internal/auth"
	"moviemania/internal/metrics"
	"moviemania/internal/websocket"
)

func (app *application) routes() *gin.Engine {
	r := gin.New()
	r.Use(app.recoverPanic(), app.requestLogger(), metrics.Middleware(), app.corsMiddleware())
	r.MaxMultipartMemory = app.cfg.Uploads.MaxBytes

	r.NoRoute(func(c *gin.Context) {
		app.errorResponse(c, http.StatusNotFound, http.StatusText(http.StatusNotFound))
	})

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.Static("/images", app.posters.Dir())

	// PUBLIC CATALOG
	r.GET("/api/movies", app.handleListMovies)
	r.GET("/api/movies/:id", app.handleGetMovie)
	r.GET("/api/series", app.handleListSeries)
	r.GET("/api/series/:id", app.handleGetSeries)

	// AUTH
	login := r.Group("/api", app.rateLimitIP())
	login.POST("/admin/login", app.handleLogin)
	login.POST("/login", app.handleLogin)

	// LIVE NOTIFICATIONS: browsers cannot set headers on websocket requests.
	r.GET("/api/notifications/ws", auth.RequireJWT(app.issuer, true), websocket.HandleNotifications(app.hub))

	// PROTECTED
	authed := r.Group("/", auth.RequireJWT(app.issuer, app.cfg.Auth.AllowQueryToken))

	authed.POST("/api/movies", app.handleAddMovie)
	authed.PUT("/update/movie/:id", app.handleUpdateMovie)
	authed.DELETE("/api/delete/movie", app.handleDeleteMovie)
	authed.POST("/api/series", app.handleAddSeries)
	authed.DELETE("/api/delete/series", app.handleDeleteSeries)
	authed.POST("/upload-poster", app.handleUploadPoster)

	authed.GET("/api/profile", app.handleProfile)
	authed.GET("/api/admins", app.handleListAdmins)
	authed.POST("/api/admins", app.handleCreateAdmin)
	authed.PUT("/api/admins/:username", app.handleUpdateAdmin)
	authed.DELETE("/api/admins/:username", app.handleDeleteAdmin)
	authed.GET("/api/sessions", app.handleListSessions)

	authed.GET("/api/notifications", app.handleListNotifications)
	authed.DELETE("/api/notifications/delete", app.handleDeleteNotifications)
	authed.GET("/api/stats", app.handleStats)
	authed.GET("/api/backup/:type", app.handleBackup)

	return r
}

// identity returns the verified caller. RequireJWT guarantees it is set on
// every protected route.
func identity(c *gin.Context) auth.Identity {
	id, _ := auth.IdentityFrom(c)
	return id
}
