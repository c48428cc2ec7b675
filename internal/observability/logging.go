// Package observability provides structured logging for the wordrace server.
package observability

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/cory-johannsen/wordrace/internal/config"
)

// Field names shared by every component so log queries line up.
const (
	FieldServer   = "server"
	FieldRoomCode = "room_code"
	FieldConnID   = "conn_id"
	FieldEvent    = "event"
)

// NewLogger builds the process logger. Every entry carries the server name.
//
// json is zap's production encoder without sampling; console is the
// development encoder with colored levels. Stack traces start at error.
//
// Precondition: cfg.Level must be one of "debug", "info", "warn", "error".
// Precondition: cfg.Format must be "json" or "console".
// Postcondition: Returns a configured zap.Logger or a non-nil error.
func NewLogger(cfg config.LoggingConfig, server string) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("parsing log level %q: %w", cfg.Level, err)
	}

	var zc zap.Config
	switch cfg.Format {
	case "json":
		zc = zap.NewProductionConfig()
		zc.Sampling = nil
	case "console":
		zc = zap.NewDevelopmentConfig()
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if server != "" {
		zc.InitialFields = map[string]any{FieldServer: server}
	}

	logger, err := zc.Build(zap.AddStacktrace(zapcore.ErrorLevel))
	if err != nil {
		return nil, fmt.Errorf("building %s logger: %w", cfg.Format, err)
	}
	return logger, nil
}

// Room returns the structured field for a room code.
func Room(code string) zap.Field { return zap.String(FieldRoomCode, code) }

// Conn returns the structured field for a connection ID.
func Conn(id string) zap.Field { return zap.String(FieldConnID, id) }

// Event returns the structured field for a protocol event name.
func Event(name string) zap.Field { return zap.String(FieldEvent, name) }
