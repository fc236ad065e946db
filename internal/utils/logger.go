package utils

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	RequestIDKey = "request_id"
	loggerKey    = "logger"
)

// Logger is the structured logger passed to handlers.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	With(args ...any) Logger
	Slog() *slog.Logger
}

type slogLogger struct {
	l *slog.Logger
}

func NewSlogLogger(l *slog.Logger) Logger {
	return &slogLogger{l: l}
}

func (s *slogLogger) Debug(msg string, args ...any) { s.l.Debug(msg, args...) }
func (s *slogLogger) Info(msg string, args ...any)  { s.l.Info(msg, args...) }
func (s *slogLogger) Warn(msg string, args ...any)  { s.l.Warn(msg, args...) }
func (s *slogLogger) Error(msg string, args ...any) { s.l.Error(msg, args...) }

func (s *slogLogger) With(args ...any) Logger {
	return &slogLogger{l: s.l.With(args...)}
}

func (s *slogLogger) Slog() *slog.Logger {
	return s.l
}

// ContextLogger stores a logger tagged with the request id on the gin context.
// It must run after the request id middleware.
func ContextLogger(base Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(loggerKey, base.With(RequestIDKey, c.GetString(RequestIDKey)))
		c.Next()
	}
}

// LoggerFromContext returns the request logger, or fallback when none was set.
func LoggerFromContext(c *gin.Context, fallback Logger) Logger {
	if v, ok := c.Get(loggerKey); ok {
		if l, ok := v.(Logger); ok {
			return l
		}
	}
	return fallback
}

// LoggerMiddleware writes one line per request once the handler chain has finished.
func LoggerMiddleware(base Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		status := c.Writer.Status()
		args := []any{
			"method", c.Request.Method,
			"path", path,
			"status", status,
			"latency_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
		}
		if len(c.Errors) > 0 {
			args = append(args, "errors", c.Errors.String())
		}

		l := LoggerFromContext(c, base)
		switch {
		case status >= 500:
			l.Error("request completed", args...)
		case status >= 400:
			l.Warn("request completed", args...)
		default:
			l.Info("request completed", args...)
		}
	}
}
