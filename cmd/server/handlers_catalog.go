package main

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"moviemania/internal/apperr"
	"moviemania/internal/catalog"
	"moviemania/pkg/models"
)

func (app *application) handleListMovies(c *gin.Context) {
	movies, err := app.catalog.ListMovies(c.Request.Context(), catalog.MovieFilter{
		Query:  c.Query("q"),
		Limit:  parseInt(c.Query("limit"), 0),
		Offset: parseInt(c.Query("offset"), 0),
	})
	if err != nil {
		app.serverErrorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, movies)
}

func (app *application) handleGetMovie(c *gin.Context) {
	m, err := app.catalog.GetMovie(c.Request.Context(), c.Param("id"))
	if err != nil {
		app.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}

func (app *application) handleAddMovie(c *gin.Context) {
	var m models.Movie
	if err := c.ShouldBindJSON(&m); err != nil {
		app.badRequestResponse(c, "invalid movie: "+err.Error())
		return
	}
	created, err := app.catalog.AddMovie(c.Request.Context(), m, identity(c).Username)
	if err != nil {
		app.respondConflictAware(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (app *application) handleUpdateMovie(c *gin.Context) {
	var patch map[string]any
	if err := c.ShouldBindJSON(&patch); err != nil {
		app.badRequestResponse(c, "invalid movie update: "+err.Error())
		return
	}
	updated, err := app.catalog.UpdateMovie(c.Request.Context(), c.Param("id"), patch, identity(c).Username)
	if err != nil {
		app.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "movie": updated})
}

// deleteRequest is the body of the catalog delete routes.
type deleteRequest struct {
	ID        string `json:"id"`
	DeletedBy string `json:"deletedBy"`
}

// bindDelete reads the body and returns the acting username. A deletedBy
// naming someone other than the token holder is rejected.
func (app *application) bindDelete(c *gin.Context) (deleteRequest, string, bool) {
	var req deleteRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.ID == "" {
		app.badRequestResponse(c, "id is required")
		return req, "", false
	}
	actor := identity(c).Username
	if req.DeletedBy != "" && req.DeletedBy != actor {
		app.errorResponse(c, http.StatusForbidden, "deletedBy does not match the authenticated user")
		return req, "", false
	}
	return req, actor, true
}

func (app *application) handleDeleteMovie(c *gin.Context) {
	req, actor, ok := app.bindDelete(c)
	if !ok {
		return
	}
	removed, err := app.catalog.DeleteMovie(c.Request.Context(), req.ID, actor)
	if err != nil {
		app.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "deleted": removed, "id": req.ID})
}

func (app *application) handleListSeries(c *gin.Context) {
	series, err := app.catalog.ListSeries(c.Request.Context())
	if err != nil {
		app.serverErrorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, series)
}

func (app *application) handleGetSeries(c *gin.Context) {
	sr, err := app.catalog.GetSeries(c.Request.Context(), c.Param("id"))
	if err != nil {
		app.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sr)
}

func (app *application) handleAddSeries(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		app.badRequestResponse(c, "unreadable body")
		return
	}
	sr, err := decodeSeriesBody(body)
	if err != nil {
		app.respondError(c, err)
		return
	}
	actor := identity(c).Username
	if sr.AddedBy == "" {
		sr.AddedBy = actor
	}
	created, err := app.catalog.AddSeries(c.Request.Context(), sr, actor)
	if err != nil {
		app.respondConflictAware(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

// decodeSeriesBody accepts a flat series record or the dashboard's
// {"<slug>": {...}} form.
func decodeSeriesBody(body []byte) (models.Series, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return models.Series{}, apperr.Wrap(apperr.InvalidInput, err, "series body must be a JSON object")
	}

	var sr models.Series
	if _, flat := fields["title"]; !flat && len(fields) == 1 {
		for slug, raw := range fields {
			if err := json.Unmarshal(raw, &sr); err != nil {
				return models.Series{}, apperr.Wrap(apperr.InvalidInput, err, "invalid series "+strconv.Quote(slug))
			}
			sr.ID = slug
		}
		return sr, nil
	}

	if err := json.Unmarshal(body, &sr); err != nil {
		return models.Series{}, apperr.Wrap(apperr.InvalidInput, err, "invalid series")
	}
	return sr, nil
}

func (app *application) handleDeleteSeries(c *gin.Context) {
	req, actor, ok := app.bindDelete(c)
	if !ok {
		return
	}
	removed, err := app.catalog.DeleteSeries(c.Request.Context(), req.ID, actor)
	if err != nil {
		app.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "deleted": removed, "id": req.ID})
}

// respondConflictAware answers duplicates in the {success:false, error}
// shape and everything else through respondError.
func (app *application) respondConflictAware(c *gin.Context, err error) {
	if errors.Is(err, apperr.ErrConflict) {
		app.failResponse(c, err)
		return
	}
	app.respondError(c, err)
}

func parseInt(s string, def int) int {
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return def
	}
	return v
}
