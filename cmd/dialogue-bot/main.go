// The dialogue-bot asks a Telegram user for the full name, the age and the location and then sums up the answers.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/pavelzagorodnyuk/tgbot"
	"github.com/pavelzagorodnyuk/tgbot/internal/config"
	"github.com/pavelzagorodnyuk/tgbot/internal/dialoguebot"
	"github.com/pavelzagorodnyuk/tgbot/internal/logging"
)

func main() {
	configPath := flag.String("config", os.Getenv("TGBOT_CONFIG"), "path to the TOML configuration file")
	flag.Parse()

	err := run(*configPath)
	if err != nil {
		slog.Error("the bot has stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger, err := logging.New(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	bot, err := newBot(cfg)
	if err != nil {
		return err
	}

	storage, closeStorage, err := openStorage(cfg.Storage)
	if err != nil {
		return err
	}
	defer closeStorage()

	dialogues := tgbot.NewDialogueDispatcher[tgbot.Message, dialoguebot.Dialogue](dialoguebot.NewHandler()).
		SetStorage(storage).
		SetInitialDialogue(dialoguebot.StartState{})

	dispatcher := tgbot.NewDispatcher(bot).MessagesHandler(dialogues)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	slog.InfoContext(ctx, "the bot is started", slog.String("mode", cfg.Bot.Mode),
		slog.String("storage", cfg.Storage.Driver))

	err = bot.ListenAndServe(ctx, dispatcher)
	if errors.Is(err, context.Canceled) {
		slog.InfoContext(context.Background(), "the bot is stopped")
		return nil
	}
	return err
}

func newBot(cfg config.Config) (tgbot.Bot, error) {
	builder := tgbot.New(cfg.Bot.Token).
		SetAPIURL(cfg.Bot.APIURL).
		SetPollingTimeout(cfg.Polling.Timeout).
		SetPollingLimit(cfg.Polling.Limit).
		SetPollingErrorDelay(cfg.Polling.ErrorDelay).
		SetAllowedUpdates(tgbot.KindMessage)

	if cfg.Bot.Mode == config.ModeWebhook {
		builder = builder.SetWebhook(tgbot.WebhookOptions{
			URL:         cfg.Webhook.URL,
			Addr:        cfg.Webhook.Addr,
			Path:        cfg.Webhook.Path,
			SecretToken: cfg.Webhook.SecretToken,
		})
	}

	return builder.Build()
}

func openStorage(cfg config.StorageConfig) (tgbot.Storage[dialoguebot.Dialogue], func(), error) {
	if cfg.Driver != config.DriverSQLite {
		return tgbot.NewInMemStorage[dialoguebot.Dialogue](), func() {}, nil
	}

	storage, err := tgbot.OpenSQLiteStorage[dialoguebot.Dialogue](cfg.Path, dialoguebot.Serializer{})
	if err != nil {
		return nil, nil, fmt.Errorf("unable to open the dialogue storage : %w", err)
	}

	closeStorage := func() {
		err := storage.Close()
		if err != nil {
			slog.Error("unable to close the dialogue storage", slog.Any("error", err))
		}
	}
	return storage, closeStorage, nil
}
