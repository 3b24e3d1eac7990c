package main

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"moviemania/internal/apperr"
)

func (app *application) logError(c *gin.Context, err error) {
	app.logger.Error().
		Err(err).
		Str("request_method", c.Request.Method).
		Str("request_url", c.Request.URL.String()).
		Msg("request failed")
}

// errorResponse sends {"error": message} and stops the handler chain.
func (app *application) errorResponse(c *gin.Context, status int, message any) {
	c.AbortWithStatusJSON(status, gin.H{"error": message})
}

func (app *application) serverErrorResponse(c *gin.Context, err error) {
	app.logError(c, err)
	app.errorResponse(c, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
}

func (app *application) badRequestResponse(c *gin.Context, message string) {
	app.errorResponse(c, http.StatusBadRequest, message)
}

func (app *application) rateLimitExceededResponse(c *gin.Context) {
	app.errorResponse(c, http.StatusTooManyRequests, http.StatusText(http.StatusTooManyRequests))
}

// failResponse answers in the {success:false, error} shape the admin
// dashboard expects from mutations.
func (app *application) failResponse(c *gin.Context, err error) {
	status := apperr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		app.logError(c, err)
	}
	c.AbortWithStatusJSON(status, gin.H{"success": false, "error": apperr.Message(err)})
}

// respondError maps err to its status code. Server-side failures are logged
// and answered with a generic message.
func (app *application) respondError(c *gin.Context, err error) {
	status := apperr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		app.serverErrorResponse(c, err)
		return
	}
	app.errorResponse(c, status, apperr.Message(err))
}
