package logger

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// Logger wraps slog.Logger with additional functionality
type Logger struct {
	*slog.Logger
}

// New creates a new logger instance
func New() *Logger {
	level := getLogLevel(os.Getenv("LOG_LEVEL"))

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}

	// Text handler for development, JSON for production
	var handler slog.Handler
	if gin.Mode() == gin.DebugMode {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return &Logger{
		Logger: slog.New(handler),
	}
}

// getLogLevel converts string to slog.Level
func getLogLevel(levelStr string) slog.Level {
	switch strings.ToLower(levelStr) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// WithSessionID adds a purchase-session ID to logger context
func (l *Logger) WithSessionID(sessionID string) *Logger {
	return &Logger{
		Logger: l.Logger.With(slog.String("session_id", sessionID)),
	}
}

// WithUserID adds user ID to logger context
func (l *Logger) WithUserID(userID string) *Logger {
	return &Logger{
		Logger: l.Logger.With(slog.String("user_id", userID)),
	}
}

// WithError adds error to logger context
func (l *Logger) WithError(err error) *Logger {
	return &Logger{
		Logger: l.Logger.With(slog.String("error", err.Error())),
	}
}

// HTTP logging methods

// LogHTTPRequest logs an HTTP request
func (l *Logger) LogHTTPRequest(c *gin.Context, duration time.Duration) {
	l.Logger.InfoContext(c.Request.Context(),
		"HTTP Request",
		slog.String("method", c.Request.Method),
		slog.String("path", c.Request.URL.Path),
		slog.String("query", c.Request.URL.RawQuery),
		slog.Int("status", c.Writer.Status()),
		slog.Duration("duration", duration),
		slog.String("ip", c.ClientIP()),
		slog.String("user_agent", c.Request.UserAgent()),
		slog.Int("size", c.Writer.Size()),
	)
}

// Purchase-flow logging methods

// LogSessionStarted logs the creation of a purchase session
func (l *Logger) LogSessionStarted(ctx context.Context, sessionID, eventID, userID string) {
	l.Logger.InfoContext(ctx,
		"Purchase Session Started",
		slog.String("session_id", sessionID),
		slog.String("event_id", eventID),
		slog.String("user_id", userID),
	)
}

// LogSeatsLocked logs a successful all-or-nothing seat acquisition
func (l *Logger) LogSeatsLocked(ctx context.Context, sessionID string, count int, ttl time.Duration) {
	l.Logger.InfoContext(ctx,
		"Seats Locked",
		slog.String("session_id", sessionID),
		slog.Int("seat_count", count),
		slog.Duration("ttl", ttl),
	)
}

// LogSaleConfirmed logs a finalized sale
func (l *Logger) LogSaleConfirmed(ctx context.Context, saleID, sessionID, eventID string, total float64) {
	l.Logger.InfoContext(ctx,
		"Sale Confirmed",
		slog.String("sale_id", saleID),
		slog.String("session_id", sessionID),
		slog.String("event_id", eventID),
		slog.Float64("total_price", total),
	)
}

// LogConsistencyFailure records a partial finalization for operator
// reconciliation. This must always be loud.
func (l *Logger) LogConsistencyFailure(ctx context.Context, sessionID string, err error) {
	l.Logger.ErrorContext(ctx,
		"Finalization Consistency Failure",
		slog.String("session_id", sessionID),
		slog.String("error", err.Error()),
	)
}

// LogSweep logs one pass of the expiry sweeper when it did work
func (l *Logger) LogSweep(ctx context.Context, expiredSessions, releasedSeats int) {
	l.Logger.InfoContext(ctx,
		"Expiry Sweep",
		slog.Int("expired_sessions", expiredSessions),
		slog.Int("released_seats", releasedSeats),
	)
}

// Global logger instance (can be replaced with dependency injection)
var defaultLogger = New()

// GetDefault returns the default logger instance
func GetDefault() *Logger {
	return defaultLogger
}

// SetDefault sets the default logger instance
func SetDefault(logger *Logger) {
	defaultLogger = logger
}
