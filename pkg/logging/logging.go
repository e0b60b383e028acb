package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

const (
	// KeyError is the key for errors in log attributes.
	KeyError = "err"

	// KeyDal is the key for the data access layer name.
	KeyDal = "dal"

	// KeyDomain is the key for the persisted document domain.
	KeyDomain = "domain"

	// KeyBackend is the key for the persistence backend name.
	KeyBackend = "backend"

	// KeyChannel is the key for a channel ID.
	KeyChannel = "channel_id"

	// KeyTicket is the key for a ticket ID.
	KeyTicket = "ticket_id"

	// KeyUser is the key for a user ID.
	KeyUser = "user_id"

	// KeyEffect is the key for the name of an outbound platform effect.
	KeyEffect = "effect"

	// KeyCommand is the key for a slash command or button name.
	KeyCommand = "command"

	// KeyApp is the key for the application name.
	KeyApp = "app"
)

// EnvLogLevel is the environment variable for the log level.
const EnvLogLevel = `LOG_LEVEL`

// Name is the name of the application that is logging.
type Name string

// Config is the configuration for the common logger.
type Config struct {
	// appName is the name of the application.
	appName Name

	// level is the minimum level that is logged.
	level slog.Level
}

// NewConfig creates a new logging configuration for the given application.
// The level is taken from LOG_LEVEL when set, otherwise info.
func NewConfig(name Name) *Config {
	c := &Config{
		appName: name,
		level:   slog.LevelInfo,
	}

	if lvl := os.Getenv(EnvLogLevel); lvl != "" {
		if l, err := ParseLevel(lvl); err == nil {
			c.level = l
		}
	}

	return c
}

// Level returns the configured level.
func (c *Config) Level() slog.Level {
	return c.level
}

// ParseLevel converts a textual level into a slog level.
func ParseLevel(lvl string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(lvl)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", lvl)
	}
}

// CommonLogger creates the JSON logger used by every component and sets it as the default.
func CommonLogger(c *Config) (*slog.Logger, error) {
	if c == nil {
		return nil, fmt.Errorf("logging config is nil")
	}

	h := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		AddSource: c.level == slog.LevelDebug,
		Level:     c.level,
	})

	l := slog.New(h).With(slog.String(KeyApp, string(c.appName)))
	slog.SetDefault(l)
	return l, nil
}

// Discard returns a logger that drops every record. Used by tests.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
