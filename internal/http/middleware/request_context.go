package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/yungbote/slideforge-backend/internal/platform/ctxutil"
	"github.com/yungbote/slideforge-backend/internal/platform/logger"
)

const (
	headerTraceID   = "X-Trace-Id"
	headerRequestID = "X-Request-Id"

	sessionRoutePrefix = "/api/sessions/"
	streamRouteSuffix  = "/stream"
)

// RequestContext stores request, trace and session IDs on the request
// context and echoes the first two back as response headers. The trace ID
// prefers the caller's header, then an active otel span, then a fresh UUID.
func RequestContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		td := &ctxutil.TraceData{
			RequestID: strings.TrimSpace(c.GetHeader(headerRequestID)),
			TraceID:   strings.TrimSpace(c.GetHeader(headerTraceID)),
		}
		if td.RequestID == "" {
			td.RequestID = uuid.NewString()
		}
		if td.TraceID == "" {
			if sc := trace.SpanContextFromContext(c.Request.Context()); sc.HasTraceID() {
				td.TraceID = sc.TraceID().String()
			} else {
				td.TraceID = uuid.NewString()
			}
		}
		if strings.HasPrefix(c.FullPath(), sessionRoutePrefix) {
			td.SessionID = c.Param("id")
		}

		c.Request = c.Request.WithContext(ctxutil.WithTraceData(c.Request.Context(), td))
		c.Set("trace_id", td.TraceID)
		c.Set("request_id", td.RequestID)
		h := c.Writer.Header()
		h.Set(headerTraceID, td.TraceID)
		h.Set(headerRequestID, td.RequestID)
		c.Next()
	}
}

// AccessLog writes one line per request once it finishes. SSE streams also
// log when they open since they can stay connected for minutes.
func AccessLog(log *logger.Logger) gin.HandlerFunc {
	if log == nil {
		log = logger.Nop()
	}
	return func(c *gin.Context) {
		start := time.Now()
		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		stream := strings.HasSuffix(route, streamRouteSuffix)
		if stream {
			log.Debug("SSE stream opened", requestFields(c, route)...)
		}

		c.Next()

		status := c.Writer.Status()
		fields := append(requestFields(c, route),
			"status", status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		if len(c.Errors) > 0 {
			fields = append(fields, "errors", c.Errors.String())
		}
		switch {
		case status >= 500:
			log.Error("HTTP request", fields...)
		case status >= 400:
			log.Warn("HTTP request", fields...)
		case route == "/healthcheck":
			log.Debug("HTTP request", fields...)
		case stream:
			log.Info("SSE stream closed", fields...)
		default:
			log.Info("HTTP request", fields...)
		}
	}
}

func requestFields(c *gin.Context, route string) []interface{} {
	fields := []interface{}{"method", c.Request.Method, "route", route}
	td := ctxutil.GetTraceData(c.Request.Context())
	if td == nil {
		return fields
	}
	fields = append(fields, "request_id", td.RequestID, "trace_id", td.TraceID)
	if td.SessionID != "" {
		fields = append(fields, "session_id", td.SessionID)
	}
	return fields
}
