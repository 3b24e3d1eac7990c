package main

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// requestLogger attaches a request-scoped zerolog logger to the request
// context and logs one line per request.
func (app *application) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		logger := app.logger.With().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Str("remote", c.ClientIP()).
			Logger()
		c.Request = c.Request.WithContext(logger.WithContext(c.Request.Context()))

		c.Next()

		status := c.Writer.Status()
		evt := logger.Info()
		if status >= http.StatusInternalServerError {
			evt = logger.Error()
		}
		evt.Int("status", status).
			Dur("duration", time.Since(start)).
			Int("bytes", c.Writer.Size()).
			Msg("request")
	}
}

// recoverPanic turns a handler panic into a JSON 500 and closes the
// connection.
func (app *application) recoverPanic() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				c.Header("Connection", "close")
				app.serverErrorResponse(c, fmt.Errorf("panic: %v", err))
			}
		}()
		c.Next()
	}
}

func (app *application) corsMiddleware() gin.HandlerFunc {
	cfg := cors.DefaultConfig()
	origins := app.cfg.Server.CORSOrigins
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	cfg.AddAllowHeaders("Authorization")
	cfg.AddExposeHeaders("Content-Disposition")
	return cors.New(cfg)
}

// rateLimitIP limits requests per client IP. Idle clients are forgotten
// after three minutes.
func (app *application) rateLimitIP() gin.HandlerFunc {
	type client struct {
		limiter  *rate.Limiter
		lastSeen time.Time
	}

	var (
		mu      sync.Mutex
		clients = make(map[string]*client)
		sweep   time.Time
	)
	limit := rate.Limit(app.cfg.Limiter.RPS)
	burst := app.cfg.Limiter.Burst

	return func(c *gin.Context) {
		if !app.cfg.Limiter.Enabled {
			c.Next()
			return
		}
		ip := c.ClientIP()
		now := app.now()

		mu.Lock()
		if now.Sub(sweep) > time.Minute {
			for addr, cl := range clients {
				if now.Sub(cl.lastSeen) > 3*time.Minute {
					delete(clients, addr)
				}
			}
			sweep = now
		}
		cl, found := clients[ip]
		if !found {
			cl = &client{limiter: rate.NewLimiter(limit, burst)}
			clients[ip] = cl
		}
		cl.lastSeen = now
		allowed := cl.limiter.AllowN(now, 1)
		mu.Unlock()

		if !allowed {
			app.rateLimitExceededResponse(c)
			return
		}
		c.Next()
	}
}
