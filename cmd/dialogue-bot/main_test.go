package main

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/pavelzagorodnyuk/tgbot/internal/config"
	"gotest.tools/v3/assert"
	"gotest.tools/v3/assert/cmp"
)

func TestNewBot(t *testing.T) {
	cfg := config.Config{
		Bot: config.BotConfig{
			Token:  "123456:token",
			APIURL: "https://api.telegram.org",
			Mode:   config.ModeWebhook,
		},
		Polling: config.PollingConfig{
			Timeout: 20 * time.Second,
		},
		Webhook: config.WebhookConfig{
			URL:         "https://bot.example.com/webhooks",
			Addr:        ":8443",
			SecretToken: "s3cr3t",
		},
	}

	bot, err := newBot(cfg)
	assert.NilError(t, err)

	botConfig := bot.Config()
	assert.Assert(t, botConfig.Webhook != nil)
	assert.Check(t, cmp.Equal(botConfig.Webhook.URL, "https://bot.example.com/webhooks"))
	assert.Check(t, cmp.Equal(botConfig.PollingOptions.Timeout, 20*time.Second))

	cfg.Bot.Mode = config.ModePolling
	bot, err = newBot(cfg)
	assert.NilError(t, err)
	assert.Check(t, bot.Config().Webhook == nil)
}

func TestOpenStorage(t *testing.T) {
	storage, closeStorage, err := openStorage(config.StorageConfig{Driver: config.DriverMemory})
	assert.NilError(t, err)
	assert.Check(t, storage != nil)
	closeStorage()

	path := filepath.Join(t.TempDir(), "dialogues.db")
	storage, closeStorage, err = openStorage(config.StorageConfig{Driver: config.DriverSQLite, Path: path})
	assert.NilError(t, err)
	assert.Check(t, storage != nil)
	closeStorage()
}

func TestRun_invalidConfiguration(t *testing.T) {
	t.Setenv("TGBOT_BOT_TOKEN", "")

	err := run("")
	assert.Check(t, cmp.ErrorContains(err, "bot token must be specified"))
}
