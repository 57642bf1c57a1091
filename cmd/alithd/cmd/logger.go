package cmd

import (
	"fmt"
	"io"
	"strings"

	"cosmossdk.io/log"
	"github.com/rs/zerolog"
)

// Log formats.
const (
	LogFormatPlain = "plain"
	LogFormatJSON  = "json"
)

// NewLogger returns a structured logger writing to out at the given level.
func NewLogger(out io.Writer, level, format string) (log.Logger, error) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	if lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	opts := []log.Option{log.LevelOption(lvl)}
	switch strings.ToLower(format) {
	case "", LogFormatPlain:
		opts = append(opts, log.ColorOption(false))
	case LogFormatJSON:
		opts = append(opts, log.OutputJSONOption())
	default:
		return nil, fmt.Errorf("invalid log format %q (want %s or %s)", format, LogFormatPlain, LogFormatJSON)
	}
	return log.NewLogger(out, opts...), nil
}
