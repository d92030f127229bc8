package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Init initializes the global logger with configuration from environment variables.
// VEO3_LOG_LEVEL controls the log level: debug, info, warn, error (default: info)
// VEO3_LOG_FORMAT selects console (default) or json output on stderr.
func Init() {
	Configure(os.Getenv("VEO3_LOG_LEVEL"), os.Getenv("VEO3_LOG_FORMAT"), os.Stderr)
}

// Configure sets the global level and points the global logger at w.
func Configure(level, format string, w io.Writer) {
	zerolog.SetGlobalLevel(ParseLevel(level))

	if strings.EqualFold(format, "json") {
		log.Logger = zerolog.New(w).With().Timestamp().Logger()
		return
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: w})
}

// ParseLevel maps a level name onto zerolog, defaulting to info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
