package config

import (
	"io"
	"log/slog"

	"git.home.luguber.info/inful/contented/internal/foundation/normalization"
)

// LogFormat enumerates supported log output formats.
type LogFormat string

const (
	LogFormatJSON LogFormat = "json"
	LogFormatText LogFormat = "text"
)

var logLevels = normalization.NewNormalizer(map[string]slog.Level{
	"debug":   slog.LevelDebug,
	"info":    slog.LevelInfo,
	"warn":    slog.LevelWarn,
	"warning": slog.LevelWarn,
	"error":   slog.LevelError,
}, slog.LevelInfo)

var logFormats = normalization.NewNormalizer(map[string]LogFormat{
	"json": LogFormatJSON,
	"text": LogFormatText,
}, LogFormatText)

// ParseLogLevel maps a logging.level value to a slog level.
func ParseLogLevel(raw string) (slog.Level, error) { return logLevels.Parse(raw) }

// ParseLogFormat maps a logging.format value to a LogFormat.
func ParseLogFormat(raw string) (LogFormat, error) { return logFormats.Parse(raw) }

// NewLogger builds the slog logger described by l. verbose forces debug.
// Unknown values fall back to info and text; Validate reports them earlier.
func (l LoggingConfig) NewLogger(w io.Writer, verbose bool) *slog.Logger {
	level := logLevels.Normalize(l.Level)
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if logFormats.Normalize(l.Format) == LogFormatJSON {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
