package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Init configures the global logger from the environment:
//
//	LOG_LEVEL   debug, info, warn, error (default: info)
//	LOG_FORMAT  console or json (default: json inside Lambda, console elsewhere)
//	LOG_FILE    optional path; JSON lines are also written there with rotation
func Init() {
	zerolog.SetGlobalLevel(ParseLevel(os.Getenv("LOG_LEVEL")))
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs

	var out io.Writer = os.Stderr
	if useConsole() {
		out = zerolog.ConsoleWriter{Out: os.Stderr}
	}
	if path := os.Getenv("LOG_FILE"); path != "" {
		out = zerolog.MultiLevelWriter(out, &lumberjack.Logger{
			Filename:   path,
			MaxSize:    50, // MB
			MaxBackups: 5,
			MaxAge:     14, // days
			Compress:   true,
		})
	}
	log.Logger = zerolog.New(out).With().Timestamp().Logger()
}

// ParseLevel maps a LOG_LEVEL value to a zerolog level, defaulting to info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func useConsole() bool {
	switch os.Getenv("LOG_FORMAT") {
	case "json":
		return false
	case "console":
		return true
	}
	return os.Getenv("AWS_LAMBDA_FUNCTION_NAME") == ""
}
