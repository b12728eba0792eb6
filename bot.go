package tgbot

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"slices"

	"golang.org/x/sync/errgroup"
)

// Bot is a configured connection to the Bot API. It is immutable and may be shared.
type Bot struct {
	client Client
	config Config
}

// Config is the configuration a bot has been built with
type Config struct {
	Token          string
	APIURL         string
	PollingOptions PollingOptions

	// Webhook is nil if the bot receives updates with long polling
	Webhook *WebhookOptions

	// ErrorHandler handles the errors of the update listener
	ErrorHandler ErrorHandler

	UpdateFilters []UpdateFilter
}

func (b Bot) Client() Client {
	return b.client
}

// Config returns a copy of the bot configuration
func (b Bot) Config() Config {
	config := b.config
	config.PollingOptions.AllowedUpdates = slices.Clone(config.PollingOptions.AllowedUpdates)
	config.UpdateFilters = slices.Clone(config.UpdateFilters)

	if config.Webhook != nil {
		webhook := *config.Webhook
		config.Webhook = &webhook
	}
	return config
}

// Polling creates a long polling update listener configured by the bot options
func (b Bot) Polling(ctx context.Context) iter.Seq2[Update, error] {
	return Polling(ctx, b.client, b.config.PollingOptions)
}

// ListenAndServe checks the token of the bot, then receives updates with the webhook if it is configured or with
// long polling otherwise and dispatches them until the context is done or the update listener fails. Errors of the
// update listener are passed to the error handler; updates which do not match the filters are skipped. An
// *IntegrityFaultError stops the bot and is returned after the handlers have finished.
func (b Bot) ListenAndServe(ctx context.Context, dispatcher *Dispatcher) error {
	err := b.authorize(ctx)
	if err != nil {
		return err
	}

	var faults faultRecorder

	if b.config.Webhook == nil {
		err = dispatcher.Dispatch(ctx, b.pipeline(ctx, faults.watch(b.Polling(ctx))))
		return faults.result(err)
	}

	listener := newWebhookListener(b.client, *b.config.Webhook, b.config.PollingOptions.AllowedUpdates)

	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		return listener.run(ctx)
	})

	group.Go(func() error {
		return dispatcher.Dispatch(ctx, b.pipeline(ctx, faults.watch(listener.updates(ctx))))
	})

	return faults.result(group.Wait())
}

// authorize makes sure the Bot API accepts the token before any update is requested
func (b Bot) authorize(ctx context.Context) error {
	me, apiErr, err := b.client.GetMe(ctx)
	if err != nil {
		return fmt.Errorf("unable to authorize the bot : %w", err)
	}
	if apiErr != nil {
		return fmt.Errorf("unable to authorize the bot : %w", apiErr)
	}

	slog.InfoContext(ctx, "the bot is authorized", slog.Int64("bot_id", me.Id), slog.String("username", me.Username))
	return nil
}

func (b Bot) pipeline(ctx context.Context, updates iter.Seq2[Update, error]) iter.Seq[Event] {
	return Project(FilterUpdates(DiscardErrors(ctx, Trace(updates), b.config.ErrorHandler), b.config.UpdateFilters...))
}

// faultRecorder remembers the integrity fault which has ended an update sequence. The error handler still gets the
// fault, but it must also stop the bot with an error.
type faultRecorder struct {
	fault error
}

func (r *faultRecorder) watch(updates iter.Seq2[Update, error]) iter.Seq2[Update, error] {
	return func(yield func(Update, error) bool) {
		for update, err := range updates {
			var faultErr *IntegrityFaultError
			if errors.As(err, &faultErr) {
				r.fault = err
			}

			if !yield(update, err) {
				return
			}
		}
	}
}

// result must be called only after the sequence is not ranged over anymore
func (r *faultRecorder) result(err error) error {
	if r.fault != nil {
		return fmt.Errorf("the update listener has stopped : %w", r.fault)
	}
	return err
}
