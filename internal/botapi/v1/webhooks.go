package botapi

import (
	"context"
	"errors"
)

// SecretTokenHeader is an HTTP header which contains the secret token of the webhook in every webhook request
const SecretTokenHeader = "X-Telegram-Bot-Api-Secret-Token"

type SetWebhookRequest struct {
	Url                string       `json:"url"`
	MaxConnections     int          `json:"max_connections,omitempty"`
	AllowedUpdates     []UpdateKind `json:"allowed_updates,omitempty"`
	DropPendingUpdates bool         `json:"drop_pending_updates,omitempty"`
	SecretToken        string       `json:"secret_token,omitempty"`
}

func (c *client) SetWebhook(ctx context.Context, request SetWebhookRequest) (*APIError, error) {
	if len(request.Url) == 0 {
		return nil, errors.New("the webhook URL is not specified")
	}
	return c.execute(ctx, "setWebhook", request, nil)
}

type DeleteWebhookRequest struct {
	DropPendingUpdates bool `json:"drop_pending_updates,omitempty"`
}

func (c *client) DeleteWebhook(ctx context.Context, request DeleteWebhookRequest) (*APIError, error) {
	return c.execute(ctx, "deleteWebhook", request, nil)
}
