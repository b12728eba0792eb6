package tgbot

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/pavelzagorodnyuk/tgbot/internal/botapi/v1"
	"github.com/pavelzagorodnyuk/tgbot/internal/botapi/v1/botapitest"
	"gotest.tools/v3/assert"
	"gotest.tools/v3/assert/cmp"
)

const testSecretToken = "s3cr3t-t0k3n"

func TestWebhookHandler_ServeHTTP(t *testing.T) {
	testCases := []struct {
		name        string
		secretToken string
		body        string
		hasConsumer bool
		statusCode  int
		updateId    int64
		isMalformed bool
		isDelivered bool
	}{
		{
			name:        "OK — the update is handed over",
			secretToken: testSecretToken,
			body:        `{"update_id": 10, "message": {"message_id": 1, "date": 1704283422, "chat": {"id": 42, "type": "private"}, "text": "hi"}}`,
			hasConsumer: true,
			statusCode:  http.StatusOK,
			updateId:    10,
			isDelivered: true,
		},
		{
			name:        "Error — the secret token is missing",
			body:        `{"update_id": 10}`,
			hasConsumer: true,
			statusCode:  http.StatusUnauthorized,
		},
		{
			name:        "Error — the secret token is wrong",
			secretToken: "guess",
			body:        `{"update_id": 10}`,
			hasConsumer: true,
			statusCode:  http.StatusUnauthorized,
		},
		{
			name:        "Error — the body is not an update",
			secretToken: testSecretToken,
			body:        `{"update_id": 11, "poll": {}}`,
			hasConsumer: true,
			statusCode:  http.StatusBadRequest,
			isMalformed: true,
			isDelivered: true,
		},
		{
			name:        "Error — the consumer does not take the update in time",
			secretToken: testSecretToken,
			body:        `{"update_id": 12, "message": {"message_id": 1, "date": 1704283422, "chat": {"id": 42, "type": "private"}, "text": "hi"}}`,
			statusCode:  http.StatusTooManyRequests,
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			incoming := make(chan webhookItem)
			handler := webhookHandler{
				secretToken: testSecretToken,
				incoming:    incoming,
			}

			delivered := make(chan webhookItem, 1)
			if testCase.hasConsumer {
				go func() {
					select {
					case item := <-incoming:
						delivered <- item
					case <-time.After(time.Second):
						close(delivered)
					}
				}()
			}

			ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
			defer cancel()

			request := httptest.NewRequestWithContext(ctx, http.MethodPost, "/webhooks", strings.NewReader(testCase.body))
			if len(testCase.secretToken) != 0 {
				request.Header.Set(botapi.SecretTokenHeader, testCase.secretToken)
			}
			response := httptest.NewRecorder()

			handler.ServeHTTP(response, request)

			assert.Check(t, cmp.Equal(response.Code, testCase.statusCode))

			if !testCase.isDelivered {
				return
			}

			item, isDelivered := <-delivered
			assert.Assert(t, isDelivered)

			if testCase.isMalformed {
				var malformedErr *MalformedUpdateError
				assert.Check(t, errors.As(item.err, &malformedErr))
				return
			}

			assert.NilError(t, item.err)
			assert.Check(t, cmp.Equal(item.update.Id, testCase.updateId))
			assert.Check(t, cmp.Equal(item.update.Message.Text, "hi"))
		})
	}
}

func TestWebhookListener_run(t *testing.T) {
	client := botapitest.NewClient()

	options := WebhookOptions{
		URL:                "https://bot.example.com/telegram",
		Addr:               "127.0.0.1:0",
		Path:               "/telegram",
		SecretToken:        testSecretToken,
		MaxConnections:     10,
		DropPendingUpdates: true,
	}
	listener := newWebhookListener(client, options, []UpdateKind{KindMessage})

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error)
	go func() {
		done <- listener.run(ctx)
	}()

	// the updates end together with the context
	updatesDone := make(chan struct{})
	go func() {
		for range listener.updates(ctx) {
		}
		close(updatesDone)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NilError(t, err)

	case <-time.After(5 * time.Second):
		t.Fatal("the webhook server has not stopped after the cancellation")
	}
	<-updatesDone

	expectedRequests := []botapi.SetWebhookRequest{
		{
			Url:                "https://bot.example.com/telegram",
			MaxConnections:     10,
			AllowedUpdates:     []UpdateKind{KindMessage},
			DropPendingUpdates: true,
			SecretToken:        testSecretToken,
		},
	}
	assert.DeepEqual(t, client.WebhookRequests(), expectedRequests)
	assert.Check(t, cmp.Equal(client.DeleteWebhookCalls(), 1))
}
