package cli

import (
	"io"
	"log/slog"

	"github.com/rs/zerolog"
	slogzerolog "github.com/samber/slog-zerolog/v2"
)

// NewLogger returns a slog logger backed by a zerolog console writer on w.
// Verbose lowers the level to debug so dropped descriptors and plan cache
// misses are reported.
func NewLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	zlevel := zerolog.WarnLevel
	if verbose {
		level = slog.LevelDebug
		zlevel = zerolog.DebugLevel
	}

	zl := zerolog.New(zerolog.ConsoleWriter{Out: w, NoColor: true}).
		Level(zlevel).
		With().
		Timestamp().
		Logger()

	return slog.New(slogzerolog.Option{Level: level, Logger: &zl}.NewZerologHandler())
}
