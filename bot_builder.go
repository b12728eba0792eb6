package tgbot

import (
	"errors"
	"fmt"
	"net/http"
	"slices"
	"time"

	"github.com/pavelzagorodnyuk/tgbot/internal/botapi/v1"
)

type BotBuilder struct {
	token          string
	apiURL         string
	httpClient     *http.Client
	client         Client
	pollingOptions PollingOptions
	webhook        *WebhookOptions
	errorHandler   ErrorHandler
	updateFilters  []UpdateFilter
}

// New starts building a bot with the token. The bot uses long polling with the DefaultPollingTimeout unless the
// webhook is set.
func New(token string) BotBuilder {
	return BotBuilder{
		token:  token,
		apiURL: botapi.DefaultAPIURL,
		pollingOptions: PollingOptions{
			Timeout:    DefaultPollingTimeout,
			ErrorDelay: defaultErrorDelay,
		},
	}
}

func (b BotBuilder) SetAPIURL(apiURL string) BotBuilder {
	b.apiURL = apiURL
	return b
}

func (b BotBuilder) SetHTTPClient(httpClient *http.Client) BotBuilder {
	b.httpClient = httpClient
	return b
}

// SetClient replaces the Bot API client. The token, the API URL and the HTTP client are ignored then.
func (b BotBuilder) SetClient(client Client) BotBuilder {
	b.client = client
	return b
}

func (b BotBuilder) SetPollingTimeout(timeout time.Duration) BotBuilder {
	b.pollingOptions.Timeout = timeout
	return b
}

func (b BotBuilder) SetPollingLimit(limit int) BotBuilder {
	b.pollingOptions.Limit = limit
	return b
}

func (b BotBuilder) SetPollingErrorDelay(delay time.Duration) BotBuilder {
	b.pollingOptions.ErrorDelay = delay
	return b
}

// SetAllowedUpdates sets the kinds of updates the bot receives, both with long polling and with the webhook
func (b BotBuilder) SetAllowedUpdates(kinds ...UpdateKind) BotBuilder {
	b.pollingOptions.AllowedUpdates = kinds
	return b
}

// SetWebhook makes the bot receive updates with the webhook instead of long polling
func (b BotBuilder) SetWebhook(options WebhookOptions) BotBuilder {
	b.webhook = &options
	return b
}

func (b BotBuilder) SetErrorHandler(errorHandler ErrorHandler) BotBuilder {
	b.errorHandler = errorHandler
	return b
}

func (b BotBuilder) SetUpdateFilters(filters ...UpdateFilter) BotBuilder {
	b.updateFilters = filters
	return b
}

func (b BotBuilder) Build() (Bot, error) {
	err := b.validateConfiguration()
	if err != nil {
		return Bot{}, fmt.Errorf("the bot configuration is not valid : %w", err)
	}

	client := b.client
	if client == nil {
		client = b.createClient()
	}

	errorHandler := b.errorHandler
	if errorHandler == nil {
		errorHandler = NewLoggingErrorHandler("an error from the update listener")
	}

	pollingOptions := b.pollingOptions
	pollingOptions.AllowedUpdates = slices.Clone(pollingOptions.AllowedUpdates)

	var webhook *WebhookOptions
	if b.webhook != nil {
		options := *b.webhook
		webhook = &options
	}

	return Bot{
		client: client,
		config: Config{
			Token:          b.token,
			APIURL:         b.apiURL,
			PollingOptions: pollingOptions,
			Webhook:        webhook,
			ErrorHandler:   errorHandler,
			UpdateFilters:  slices.Clone(b.updateFilters),
		},
	}, nil
}

func (b BotBuilder) validateConfiguration() error {
	if len(b.token) == 0 && b.client == nil {
		return errors.New("bot token must be specified")
	}

	if b.pollingOptions.Limit < 0 || b.pollingOptions.Limit > maxPollingLimit {
		return fmt.Errorf("polling limit must be between 0 and %d", maxPollingLimit)
	}

	if b.pollingOptions.Timeout < 0 {
		return errors.New("polling timeout must not be negative")
	}

	if b.webhook != nil {
		if len(b.webhook.URL) == 0 {
			return errors.New("webhook URL must be specified")
		}

		if len(b.webhook.Addr) == 0 {
			return errors.New("webhook address must be specified")
		}

		if len(b.webhook.SecretToken) == 0 {
			return errors.New("webhook secret token must be specified")
		}
	}

	return nil
}

func (b BotBuilder) createClient() Client {
	var clientOptions []botapi.Option

	if len(b.apiURL) != 0 {
		clientOptions = append(clientOptions, botapi.WithAPIURL(b.apiURL))
	}

	if b.httpClient != nil {
		clientOptions = append(clientOptions, botapi.WithHTTPClient(*b.httpClient))
	}

	return botapi.NewClient(b.token, clientOptions...)
}
