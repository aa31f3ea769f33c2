package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/smith3v/tg-word-keeper/pkg/logger"
)

const (
	DefaultDatabaseURL       = "vocabulary.db"
	DefaultGeminiModel       = "gemini-2.5-flash"
	DefaultBroadcastSchedule = "0 0,3,6,9,12,15 * * *"
	DefaultBroadcastPause    = 2 * time.Second
	DefaultPort              = 10000
)

type Config struct {
	Database  DatabaseConfig  `mapstructure:"database"`
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	Gemini    GeminiConfig    `mapstructure:"gemini"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Broadcast BroadcastConfig `mapstructure:"broadcast"`
	HTTP      HTTPConfig      `mapstructure:"http"`
}

type DatabaseConfig struct {
	// URL is either a postgres:// connection URL or a path to a SQLite file.
	URL      string `mapstructure:"url"`
	LogLevel string `mapstructure:"log_level"`
}

type TelegramConfig struct {
	Token      string `mapstructure:"token"`
	WebhookURL string `mapstructure:"webhook_url"`
}

type GeminiConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	File   string `mapstructure:"file"`
	Format string `mapstructure:"format"`
}

type BroadcastConfig struct {
	Schedule string        `mapstructure:"schedule"`
	Pause    time.Duration `mapstructure:"pause"`
}

type HTTPConfig struct {
	Port int `mapstructure:"port"`
}

// WebhookMode reports whether updates arrive over HTTP instead of long polling.
func (c Config) WebhookMode() bool {
	return strings.TrimSpace(c.Telegram.WebhookURL) != ""
}

var AppConfig Config

var envBindings = map[string]string{
	"database.url":         "DATABASE_URL",
	"database.log_level":   "GORM_LOG_LEVEL",
	"telegram.token":       "TELEGRAM_BOT_TOKEN",
	"telegram.webhook_url": "WEBHOOK_URL",
	"gemini.api_key":       "GEMINI_API_KEY",
	"gemini.model":         "GEMINI_MODEL",
	"logging.level":        "LOG_LEVEL",
	"logging.file":         "LOG_FILE",
	"logging.format":       "LOG_FORMAT",
	"broadcast.schedule":   "BROADCAST_SCHEDULE",
	"broadcast.pause":      "BROADCAST_PAUSE",
	"http.port":            "PORT",
}

func newViper() (*viper.Viper, error) {
	v := viper.New()
	v.SetConfigType("json")
	v.SetDefault("database.url", DefaultDatabaseURL)
	v.SetDefault("database.log_level", "warn")
	v.SetDefault("gemini.model", DefaultGeminiModel)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("broadcast.schedule", DefaultBroadcastSchedule)
	v.SetDefault("broadcast.pause", DefaultBroadcastPause)
	v.SetDefault("http.port", DefaultPort)
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, err
		}
	}
	return v, nil
}

// LoadConfig reads filename (optional when empty) and applies environment
// overrides on top of it.
func LoadConfig(filename string) error {
	v, err := newViper()
	if err != nil {
		return err
	}
	if filename != "" {
		v.SetConfigFile(filename)
		if err := v.ReadInConfig(); err != nil {
			logger.Error("failed to read config file", "file", filename, "error", err)
			return err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		logger.Error("failed to decode config", "error", err)
		return err
	}
	AppConfig = cfg
	return nil
}

// Validate reports every missing required value at once.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Telegram.Token) == "" {
		errs = append(errs, errors.New("telegram token is required (TELEGRAM_BOT_TOKEN)"))
	}
	if strings.TrimSpace(c.Gemini.APIKey) == "" {
		errs = append(errs, errors.New("gemini api key is required (GEMINI_API_KEY)"))
	}
	if c.WebhookMode() && !strings.HasPrefix(strings.TrimSpace(c.Telegram.WebhookURL), "https://") {
		errs = append(errs, fmt.Errorf("webhook url must use https, got %q", c.Telegram.WebhookURL))
	}
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid http port %d", c.HTTP.Port))
	}
	if c.Broadcast.Pause < 0 {
		errs = append(errs, fmt.Errorf("broadcast pause must not be negative, got %s", c.Broadcast.Pause))
	}
	return errors.Join(errs...)
}
