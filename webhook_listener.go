package tgbot

import (
	"context"
	"crypto/hmac"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"net/http"
	"time"

	"github.com/pavelzagorodnyuk/tgbot/internal/botapi/v1"
)

// WebhookOptions configures the webhook update listener
type WebhookOptions struct {
	// URL is the public HTTPS address the Bot API sends updates to. It must lead to Path on Addr.
	URL string

	// Addr is the TCP address the webhook server listens on
	Addr string

	// Path is the path of the webhook handler. It is "/webhooks" by default.
	Path string

	// SecretToken authenticates the requests of the Bot API
	SecretToken string

	// TLSConfig enables HTTPS on the webhook server. It must contain the certificates.
	TLSConfig *tls.Config

	// MaxConnections limits the number of simultaneous requests from the Bot API. Zero means the Bot API default.
	MaxConnections int

	// DropPendingUpdates drops the updates which were received before the webhook was registered
	DropPendingUpdates bool
}

const (
	defaultWebhookPath = "/webhooks"
	maxWebhookBodySize = 1 << 20
	deleteWebhookDelay = 5 * time.Second
)

// webhookListener receives updates from webhook requests and hands them over to the consumer of its sequence
type webhookListener struct {
	client         Client
	options        WebhookOptions
	allowedUpdates []UpdateKind
	incoming       chan webhookItem
	webhookServer  *http.Server
}

type webhookItem struct {
	update Update
	err    error
}

func newWebhookListener(client Client, options WebhookOptions, allowedUpdates []UpdateKind) *webhookListener {
	if len(options.Path) == 0 {
		options.Path = defaultWebhookPath
	}

	l := &webhookListener{
		client:         client,
		options:        options,
		allowedUpdates: allowedUpdates,
		incoming:       make(chan webhookItem),
	}

	mux := http.NewServeMux()
	mux.Handle("POST "+options.Path, webhookHandler{
		secretToken: options.SecretToken,
		incoming:    l.incoming,
	})

	l.webhookServer = &http.Server{
		Addr:      options.Addr,
		Handler:   mux,
		TLSConfig: options.TLSConfig,
	}

	return l
}

// register makes the Bot API send updates to the webhook
func (l *webhookListener) register(ctx context.Context) error {
	request := botapi.SetWebhookRequest{
		Url:                l.options.URL,
		MaxConnections:     l.options.MaxConnections,
		AllowedUpdates:     l.allowedUpdates,
		DropPendingUpdates: l.options.DropPendingUpdates,
		SecretToken:        l.options.SecretToken,
	}

	apiErr, err := l.client.SetWebhook(ctx, request)
	if err != nil {
		return fmt.Errorf("unable to register the webhook : %w", err)
	}
	if apiErr != nil {
		return fmt.Errorf("unable to register the webhook : %w", apiErr)
	}
	return nil
}

// run registers the webhook and serves its requests until the context is done. The webhook is deleted before
// returning.
func (l *webhookListener) run(ctx context.Context) error {
	err := l.register(ctx)
	if err != nil {
		return err
	}
	defer l.unregister(ctx)

	// schedule the server to close when the context is done
	context.AfterFunc(ctx, func() {
		_ = l.webhookServer.Close()
	})

	if l.options.TLSConfig != nil {
		err = l.webhookServer.ListenAndServeTLS("", "")
	} else {
		err = l.webhookServer.ListenAndServe()
	}

	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return fmt.Errorf("the webhook server has failed : %w", err)
}

func (l *webhookListener) unregister(ctx context.Context) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), deleteWebhookDelay)
	defer cancel()

	apiErr, err := l.client.DeleteWebhook(ctx, botapi.DeleteWebhookRequest{})
	if apiErr != nil {
		err = apiErr
	}
	if err != nil {
		slog.ErrorContext(ctx, "unable to delete the webhook", slog.Any("error", err))
	}
}

// updates returns the sequence of the received updates. It ends when the context is done.
func (l *webhookListener) updates(ctx context.Context) iter.Seq2[Update, error] {
	return func(yield func(Update, error) bool) {
		for {
			select {
			case item := <-l.incoming:
				if !yield(item.update, item.err) {
					return
				}

			case <-ctx.Done():
				return
			}
		}
	}
}

// webhookHandler is an HTTP handler which serves webhook requests. It answers a request only after its update has
// been taken by the consumer.
type webhookHandler struct {
	secretToken string
	incoming    chan<- webhookItem
}

func (h webhookHandler) ServeHTTP(response http.ResponseWriter, request *http.Request) {
	err := h.authenticate(request)
	if err != nil {
		response.WriteHeader(http.StatusUnauthorized)
		slog.Error("the request cannot be processed because its sender has not been authenticated",
			slog.Any("error", err))
		return
	}

	ctx := request.Context()

	body, err := io.ReadAll(http.MaxBytesReader(response, request.Body, maxWebhookBodySize))
	if err != nil {
		response.WriteHeader(http.StatusBadRequest)
		slog.ErrorContext(ctx, "unable to read the request body", slog.Any("error", err))
		return
	}

	entry := botapi.NewUpdateEntry(body)
	if entry.Malformed != nil {
		response.WriteHeader(http.StatusBadRequest)
		h.enqueue(ctx, webhookItem{err: entry.Malformed})
		return
	}

	isSuccessful := h.enqueue(ctx, webhookItem{update: entry.Update})
	if isSuccessful {
		response.WriteHeader(http.StatusOK)
	} else {
		response.WriteHeader(http.StatusTooManyRequests)
		slog.ErrorContext(ctx, "unable to hand over the update because the consumer is busy",
			slog.Int64("update_id", entry.Update.Id))
	}
}

func (h webhookHandler) authenticate(request *http.Request) error {
	providedToken := request.Header.Get(botapi.SecretTokenHeader)
	if len(providedToken) == 0 {
		return errors.New("the request does not include a secret token")
	}

	if !hmac.Equal([]byte(providedToken), []byte(h.secretToken)) {
		return errors.New("the provided secret token is wrong")
	}
	return nil
}

func (h webhookHandler) enqueue(ctx context.Context, item webhookItem) (isSuccessful bool) {
	select {
	case h.incoming <- item:
		return true

	case <-ctx.Done():
		return false
	}
}
