package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
)

const (
	// AppName is the name of the application.
	AppName = "supportbot"

	// EnvBotToken is the environment variable for the bot token.
	EnvBotToken = `BOT_TOKEN`

	// EnvApplicationId is the environment variable for the application ID.
	EnvApplicationId = `APPLICATION_ID`

	// EnvStoreDSN is the environment variable for the primary state store.
	EnvStoreDSN = `STORE_DSN`

	// EnvDataDir is the environment variable for the directory of the state files.
	EnvDataDir = `DATA_DIR`

	// EnvConfigPath is the environment variable for the bot configuration file.
	EnvConfigPath = `CONFIG_PATH`

	// EnvMonitoringPort is the environment variable for the monitoring port.
	EnvMonitoringPort = `MONITORING_PORT`
)

var (
	flagEnvFile        = pflag.String("env-file", ".env", "file to load environment variables from")
	flagConfigPath     = pflag.String("config", "", "path of the bot configuration file (overrides "+EnvConfigPath+")")
	flagDataDir        = pflag.String("data-dir", "", "directory of the state files (overrides "+EnvDataDir+")")
	flagStoreDSN       = pflag.String("store-dsn", "", "primary state store DSN (overrides "+EnvStoreDSN+")")
	flagMonitoringPort = pflag.String("monitoring-port", "", "port of the monitoring server (overrides "+EnvMonitoringPort+")")
)

// ErrIncompleteConfig is returned when a required environment variable is missing.
var ErrIncompleteConfig = errors.New("not all required environment variables have been provided")

// AppConfig is the process configuration.
type AppConfig struct {
	// BotToken is the token for the bot.
	BotToken string

	// ApplicationId is the ID of the application.
	ApplicationId string

	// StoreDSN selects the primary state store. Empty keeps state in files only.
	StoreDSN string

	// DataDir is the directory of the state files.
	DataDir string

	// ConfigPath is the path of the bot configuration file.
	ConfigPath string

	// MonitoringPort is the port for the monitoring server.
	MonitoringPort string
}

// loadEnvFile loads the .env file when there is one. Variables already set are kept.
func loadEnvFile() error {
	if *flagEnvFile == "" {
		return nil
	}
	if err := godotenv.Load(*flagEnvFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("error loading %s: %w", *flagEnvFile, err)
	}
	return nil
}

// parseConfig reads the process configuration from the environment. Flags take precedence.
func parseConfig(l *slog.Logger) (*AppConfig, error) {
	c := &AppConfig{
		BotToken:       os.Getenv(EnvBotToken),
		ApplicationId:  os.Getenv(EnvApplicationId),
		StoreDSN:       firstSet(*flagStoreDSN, os.Getenv(EnvStoreDSN)),
		DataDir:        firstSet(*flagDataDir, os.Getenv(EnvDataDir)),
		ConfigPath:     firstSet(*flagConfigPath, os.Getenv(EnvConfigPath)),
		MonitoringPort: firstSet(*flagMonitoringPort, os.Getenv(EnvMonitoringPort)),
	}

	if c.DataDir == "" {
		c.DataDir = "storage"
	}
	if c.ConfigPath == "" {
		c.ConfigPath = "config.json"
	}
	if c.MonitoringPort == "" {
		// Default to 8080 if not provided.
		c.MonitoringPort = "8080"
		l.Info("No monitoring port provided in environment, defaulting to 8080", slog.String("key", EnvMonitoringPort))
	}
	if c.StoreDSN == "" {
		l.Info("No store DSN provided, keeping state in files", slog.String("data_dir", c.DataDir))
	}

	if c.BotToken == "" || c.ApplicationId == "" {
		return nil, ErrIncompleteConfig
	}

	// All required environment variables have been provided.
	l.Debug("All required environment variables have been provided")
	return c, nil
}

func firstSet(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
