package main

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"moviemania/internal/admin"
	"moviemania/internal/apperr"
	"moviemania/internal/auth"
	"moviemania/internal/metrics"
	"moviemania/pkg/models"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// handleLogin verifies credentials, issues a token and records the session.
func (app *application) handleLogin(c *gin.Context) {
	ctx := c.Request.Context()

	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid request body"})
		return
	}

	a, err := app.admins.Authenticate(ctx, req.Username, req.Password)
	if errors.Is(err, apperr.ErrUnauthenticated) {
		metrics.Logins.WithLabelValues("failure").Inc()
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Invalid credentials"})
		return
	}
	if err != nil {
		metrics.Logins.WithLabelValues("error").Inc()
		app.logError(c, err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Internal server error"})
		return
	}

	token, expiresAt, err := app.issuer.Issue(auth.Identity{Username: a.Username, Role: a.Role})
	if err != nil {
		app.serverErrorResponse(c, err)
		return
	}
	if _, err := app.sessions.Record(ctx, a.Username, token, c.ClientIP()); err != nil {
		app.logError(c, err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Internal server error"})
		return
	}
	if err := app.admins.RecordLogin(ctx, a.Username, c.ClientIP()); err != nil {
		app.logger.Warn().Err(err).Str("username", a.Username).Msg("record last login")
	}
	metrics.Logins.WithLabelValues("success").Inc()

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"token":     token,
		"expiresAt": expiresAt,
		"user": gin.H{
			"username": a.Username,
			"role":     a.Role,
		},
	})
}

func (app *application) handleProfile(c *gin.Context) {
	a, err := app.admins.Get(c.Request.Context(), identity(c).Username)
	if errors.Is(err, apperr.ErrNotFound) {
		app.errorResponse(c, http.StatusNotFound, "User not found")
		return
	}
	if err != nil {
		app.serverErrorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, a.Profile())
}

func (app *application) handleListAdmins(c *gin.Context) {
	admins, err := app.admins.List(c.Request.Context())
	if err != nil {
		app.serverErrorResponse(c, err)
		return
	}
	profiles := make([]models.AdminProfile, 0, len(admins))
	for _, a := range admins {
		profiles = append(profiles, a.Profile())
	}
	c.JSON(http.StatusOK, profiles)
}

type createAdminRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

func (app *application) handleCreateAdmin(c *gin.Context) {
	var req createAdminRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		app.failResponse(c, apperr.Wrap(apperr.InvalidInput, err, "invalid request body"))
		return
	}
	if _, err := app.admins.Create(c.Request.Context(), req.Username, req.Password, req.Role, identity(c).Username); err != nil {
		if errors.Is(err, apperr.ErrConflict) {
			app.failResponse(c, apperr.Wrap(apperr.Conflict, err, "Username exists"))
			return
		}
		app.failResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (app *application) handleUpdateAdmin(c *gin.Context) {
	var patch admin.Patch
	if err := c.ShouldBindJSON(&patch); err != nil {
		app.failResponse(c, apperr.Wrap(apperr.InvalidInput, err, "invalid request body"))
		return
	}
	if _, err := app.admins.Update(c.Request.Context(), c.Param("username"), patch, identity(c).Username); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			app.failResponse(c, apperr.Wrap(apperr.NotFound, err, "Not found"))
			return
		}
		app.failResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (app *application) handleDeleteAdmin(c *gin.Context) {
	removed, err := app.admins.Delete(c.Request.Context(), c.Param("username"), identity(c).Username)
	if err != nil {
		app.failResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "deleted": removed})
}

func (app *application) handleListSessions(c *gin.Context) {
	sessions, err := app.sessions.List(c.Request.Context())
	if err != nil {
		app.serverErrorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, sessions)
}
