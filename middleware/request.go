package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	// RequestIDHeader carries the request id in and out.
	RequestIDHeader = "X-Request-ID"

	requestIDKey    = "requestID"
	maxRequestIDLen = 128
)

// RequestID assigns every request an id, reusing a sane inbound X-Request-ID.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(RequestIDHeader))
		if id == "" || len(id) > maxRequestIDLen || strings.ContainsAny(id, "\r\n") {
			id = uuid.New().String()
		}

		c.Set(requestIDKey, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

// GetRequestID returns the id set by RequestID, or "".
func GetRequestID(c *gin.Context) string {
	v, exists := c.Get(requestIDKey)
	if !exists {
		return ""
	}
	if id, ok := v.(string); ok {
		return id
	}
	return ""
}

// Logger puts a request-scoped zerolog logger into the request context and
// writes one access log line per request, including requests whose
// connection was aborted mid-response.
func Logger(base zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		logger := base.With().Str("request_id", GetRequestID(c)).Logger()
		c.Request = c.Request.WithContext(logger.WithContext(c.Request.Context()))

		defer func() {
			rec := recover()
			accessLog(c, &logger, start, rec != nil)
			if rec != nil {
				panic(rec)
			}
		}()
		c.Next()
	}
}

func accessLog(c *gin.Context, logger *zerolog.Logger, start time.Time, aborted bool) {
	status := c.Writer.Status()
	var evt *zerolog.Event
	switch {
	case status >= http.StatusInternalServerError, aborted:
		evt = logger.Error()
	case status >= http.StatusBadRequest:
		evt = logger.Warn()
	default:
		evt = logger.Info()
	}
	if len(c.Errors) > 0 {
		evt = evt.Str("errors", c.Errors.String())
	}
	if aborted {
		evt = evt.Bool("aborted", true)
	}
	evt.Str("method", c.Request.Method).
		Str("path", c.Request.URL.Path).
		Int("status", status).
		Int("bytes", c.Writer.Size()).
		Dur("latency", time.Since(start)).
		Str("client_ip", c.ClientIP()).
		Msg("request")
}

// Recovery turns handler panics into a JSON 500. http.ErrAbortHandler is
// re-raised so net/http drops the connection.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}

			zerolog.Ctx(c.Request.Context()).Error().
				Interface("panic", rec).
				Str("path", c.Request.URL.Path).
				Msg("handler panic")
			if c.Writer.Written() {
				c.Abort()
				return
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		}()
		c.Next()
	}
}

// CORS allows browser uploads from any origin and exposes the download
// filename header.
func CORS() gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{http.MethodGet, http.MethodHead, http.MethodPost, http.MethodOptions},
		AllowHeaders:    []string{"Origin", "Content-Type", "Accept", RequestIDHeader},
		ExposeHeaders:   []string{"Content-Disposition", "Content-Length", RequestIDHeader},
		MaxAge:          10 * time.Minute,
	})
}
