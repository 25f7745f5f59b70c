package config

import (
	"io"
	"log/slog"

	"git.home.luguber.info/inful/contextfocus/internal/foundation/normalization"
)

// LogLevel is the logging.level setting.
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

var slogLevels = map[LogLevel]slog.Level{
	LogLevelDebug: slog.LevelDebug,
	LogLevelInfo:  slog.LevelInfo,
	LogLevelWarn:  slog.LevelWarn,
	LogLevelError: slog.LevelError,
}

var logLevels = normalization.NewNormalizer(map[string]LogLevel{
	"debug":   LogLevelDebug,
	"trace":   LogLevelDebug,
	"info":    LogLevelInfo,
	"warn":    LogLevelWarn,
	"warning": LogLevelWarn,
	"error":   LogLevelError,
}, LogLevelInfo)

// NormalizeLogLevel falls back to info.
func NormalizeLogLevel(raw string) LogLevel { return logLevels.Normalize(raw) }

func (l LogLevel) SlogLevel() slog.Level {
	if lv, ok := slogLevels[l]; ok {
		return lv
	}
	return slog.LevelInfo
}

// LogFormat is the logging.format setting.
type LogFormat string

const (
	LogFormatJSON LogFormat = "json"
	LogFormatText LogFormat = "text"
)

var logFormats = normalization.NewNormalizer(map[string]LogFormat{
	"json": LogFormatJSON,
	"text": LogFormatText,
}, LogFormatText)

// NormalizeLogFormat falls back to text.
func NormalizeLogFormat(raw string) LogFormat { return logFormats.Normalize(raw) }

// NewLogger returns a logger on w whose threshold follows level, so a reload
// can change verbosity without swapping loggers. The level is seeded from cfg.
func NewLogger(w io.Writer, cfg LoggingConfig, level *slog.LevelVar) *slog.Logger {
	level.Set(cfg.Level.SlogLevel())
	opts := &slog.HandlerOptions{Level: level}
	var h slog.Handler = slog.NewTextHandler(w, opts)
	if cfg.Format == LogFormatJSON {
		h = slog.NewJSONHandler(w, opts)
	}
	return slog.New(h)
}
