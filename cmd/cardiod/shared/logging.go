package shared

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/datamonsterr/Cardio-sub000/internal/config"
)

// SetupLogger configures zerolog from the log block: an empty path gives
// pretty console output on stderr, a path gives structured JSON in that file.
// The returned closer is nil for console logging.
func SetupLogger(cfg *config.LogConfig) (zerolog.Logger, func() error, error) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}

	if cfg.Path == "" {
		logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
			Level(level).
			With().
			Timestamp().
			Logger()
		return logger, nil, nil
	}

	f, err := os.OpenFile(cfg.Path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("open log file: %w", err)
	}
	logger := zerolog.New(f).
		Level(level).
		With().
		Timestamp().
		Logger()
	return logger, f.Close, nil
}
