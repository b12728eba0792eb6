// Package config loads the configuration of the dialogue bot binary.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
)

// Config holds all configuration of the dialogue bot
type Config struct {
	Bot     BotConfig     `toml:"bot" envPrefix:"BOT_"`
	Polling PollingConfig `toml:"polling" envPrefix:"POLLING_"`
	Webhook WebhookConfig `toml:"webhook" envPrefix:"WEBHOOK_"`
	Storage StorageConfig `toml:"storage" envPrefix:"STORAGE_"`
	Logging LoggingConfig `toml:"logging" envPrefix:"LOGGING_"`
}

type BotConfig struct {
	Token  string `toml:"token" env:"TOKEN"`
	APIURL string `toml:"api_url" env:"API_URL"`

	// Mode is either "polling" or "webhook"
	Mode string `toml:"mode" env:"MODE"`
}

type PollingConfig struct {
	Timeout    time.Duration `toml:"timeout" env:"TIMEOUT"`
	Limit      int           `toml:"limit" env:"LIMIT"`
	ErrorDelay time.Duration `toml:"error_delay" env:"ERROR_DELAY"`
}

type WebhookConfig struct {
	URL         string `toml:"url" env:"URL"`
	Addr        string `toml:"addr" env:"ADDR"`
	Path        string `toml:"path" env:"PATH"`
	SecretToken string `toml:"secret_token" env:"SECRET_TOKEN"`
}

type StorageConfig struct {
	// Driver is either "memory" or "sqlite"
	Driver string `toml:"driver" env:"DRIVER"`
	Path   string `toml:"path" env:"PATH"`
}

type LoggingConfig struct {
	Level  string `toml:"level" env:"LEVEL"`
	Format string `toml:"format" env:"FORMAT"`
}

const (
	ModePolling = "polling"
	ModeWebhook = "webhook"

	DriverMemory = "memory"
	DriverSQLite = "sqlite"
)

// EnvPrefix is the prefix of all environment variables of the configuration
const EnvPrefix = "TGBOT_"

func defaults() Config {
	return Config{
		Bot: BotConfig{
			APIURL: "https://api.telegram.org",
			Mode:   ModePolling,
		},
		Polling: PollingConfig{
			Timeout:    10 * time.Second,
			ErrorDelay: time.Second,
		},
		Webhook: WebhookConfig{
			Addr: ":8443",
			Path: "/webhooks",
		},
		Storage: StorageConfig{
			Driver: DriverMemory,
			Path:   "dialogues.db",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads the configuration from the TOML file, if the path is not empty, and applies environment variable
// overrides. Environment variables always win.
func Load(path string) (Config, error) {
	config := defaults()

	if len(path) != 0 {
		_, err := toml.DecodeFile(path, &config)
		if err != nil {
			return Config{}, fmt.Errorf("unable to read the configuration file : %w", err)
		}
	}

	err := env.ParseWithOptions(&config, env.Options{Prefix: EnvPrefix})
	if err != nil {
		return Config{}, fmt.Errorf("unable to read the environment variables : %w", err)
	}

	err = config.Validate()
	if err != nil {
		return Config{}, fmt.Errorf("the configuration is not valid : %w", err)
	}
	return config, nil
}

// Validate normalizes the modes and checks that the fields they require are set
func (c *Config) Validate() error {
	if len(c.Bot.Token) == 0 {
		return errors.New("bot token must be specified")
	}

	c.Bot.Mode = strings.ToLower(strings.TrimSpace(c.Bot.Mode))
	switch c.Bot.Mode {
	case ModePolling:

	case ModeWebhook:
		if len(c.Webhook.URL) == 0 || len(c.Webhook.SecretToken) == 0 {
			return errors.New("webhook URL and secret token must be specified in the webhook mode")
		}

	default:
		return fmt.Errorf("unknown bot mode '%s'", c.Bot.Mode)
	}

	c.Storage.Driver = strings.ToLower(strings.TrimSpace(c.Storage.Driver))
	switch c.Storage.Driver {
	case DriverMemory:

	case DriverSQLite:
		if len(c.Storage.Path) == 0 {
			return errors.New("storage path must be specified for the sqlite driver")
		}

	default:
		return fmt.Errorf("unknown storage driver '%s'", c.Storage.Driver)
	}

	return nil
}
