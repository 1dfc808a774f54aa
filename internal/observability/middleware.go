package observability

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	RequestIDHeader = "X-Request-ID"
	requestIDKey    = "request_id"
	errorKindKey    = "cs2_error_kind"
)

// RequestID propagates an incoming X-Request-ID or assigns a new one.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

// RequestIDFrom returns the id assigned by RequestID, or "".
func RequestIDFrom(c *gin.Context) string {
	return c.GetString(requestIDKey)
}

// SetErrorKind records the conversion error kind of a failed request for
// RequestLogger.
func SetErrorKind(c *gin.Context, kind string) {
	c.Set(errorKindKey, kind)
}

// routeLabels returns the matched route and the schema named by its :tag param.
// Requests outside the conversion API carry schema "-".
func routeLabels(c *gin.Context) (path, schema string) {
	path = c.FullPath()
	if path == "" {
		path = "unmatched"
	}
	schema = c.Param("tag")
	if schema == "" {
		schema = "-"
	}
	return path, schema
}

// RequestLogger logs one line per request with the schema it addressed and, for
// failed conversions, the error kind.
func RequestLogger(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		path, schema := routeLabels(c)
		event := logger.Info()
		switch {
		case status >= 500:
			event = logger.Error()
		case status >= 400:
			event = logger.Warn()
		}
		if kind := c.GetString(errorKindKey); kind != "" {
			event = event.Str("error_kind", kind)
		}
		event.
			Str("request_id", RequestIDFrom(c)).
			Str("method", c.Request.Method).
			Str("path", path).
			Str("schema", schema).
			Int("status", status).
			Int64("in_bytes", c.Request.ContentLength).
			Int("out_bytes", c.Writer.Size()).
			Dur("duration", time.Since(start)).
			Msg("cs2d request")
	}
}

// RequestMetricsMiddleware records request counts and latency per route and schema.
func RequestMetricsMiddleware(service string) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		path, schema := routeLabels(c)
		RecordHTTPRequest(service, c.Request.Method, path, schema, c.Writer.Status(), time.Since(start))
	}
}
