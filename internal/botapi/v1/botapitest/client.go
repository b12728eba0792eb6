// Package botapitest provides a scripted in-memory Bot API client for tests.
package botapitest

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/pavelzagorodnyuk/tgbot/internal/botapi/v1"
)

// Batch is a scripted answer to a single GetUpdates call
type Batch struct {
	Entries  []botapi.UpdateEntry
	APIError *botapi.APIError
	Err      error
}

// Client is an implementation of the botapi.Client interface which answers GetUpdates calls with scripted batches
// and records every request. Once the scripted batches run out, GetUpdates blocks like a long poll until its context
// is done.
type Client struct {
	mu                 sync.Mutex
	batches            []Batch
	getUpdatesRequests []botapi.GetUpdatesRequest
	sentMessages       []botapi.SendMessageRequest
	deletedMessages    []botapi.DeleteMessageRequest
	answeredQueries    []botapi.AnswerCallbackQueryRequest
	webhookRequests    []botapi.SetWebhookRequest
	deleteWebhookCalls int
	sendMessageErr     error
	getMeErr           *botapi.APIError
	nextMessageId      int64
}

var _ botapi.Client = (*Client)(nil)

// NewClient creates a new client which returns the batches one by one
func NewClient(batches ...Batch) *Client {
	return &Client{
		batches: batches,
	}
}

// FailSendMessage makes all subsequent SendMessage calls fail with the error. Passing nil restores normal behavior.
func (c *Client) FailSendMessage(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sendMessageErr = err
}

func (c *Client) GetUpdates(
	ctx context.Context,
	request botapi.GetUpdatesRequest,
) ([]botapi.UpdateEntry, *botapi.APIError, error) {
	c.mu.Lock()
	c.getUpdatesRequests = append(c.getUpdatesRequests, request)
	if len(c.batches) == 0 {
		c.mu.Unlock()
		<-ctx.Done()
		return nil, nil, ctx.Err()
	}

	batch := c.batches[0]
	c.batches = c.batches[1:]
	c.mu.Unlock()

	return batch.Entries, batch.APIError, batch.Err
}

func (c *Client) SendMessage(
	ctx context.Context,
	request botapi.SendMessageRequest,
) (*botapi.Message, *botapi.APIError, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sendMessageErr != nil {
		return nil, nil, c.sendMessageErr
	}

	c.sentMessages = append(c.sentMessages, request)
	c.nextMessageId++

	return &botapi.Message{
		MessageId: c.nextMessageId,
		Chat:      botapi.Chat{Id: request.ChatId},
		Text:      request.Text,
	}, nil, nil
}

func (c *Client) DeleteMessage(ctx context.Context, request botapi.DeleteMessageRequest) (*botapi.APIError, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deletedMessages = append(c.deletedMessages, request)
	return nil, nil
}

func (c *Client) AnswerCallbackQuery(
	ctx context.Context,
	request botapi.AnswerCallbackQueryRequest,
) (*botapi.APIError, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.answeredQueries = append(c.answeredQueries, request)
	return nil, nil
}

func (c *Client) SetWebhook(ctx context.Context, request botapi.SetWebhookRequest) (*botapi.APIError, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.webhookRequests = append(c.webhookRequests, request)
	return nil, nil
}

func (c *Client) DeleteWebhook(ctx context.Context, request botapi.DeleteWebhookRequest) (*botapi.APIError, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deleteWebhookCalls++
	return nil, nil
}

// FailGetMe makes all subsequent GetMe calls return the API error, as the Bot API does for a revoked token
func (c *Client) FailGetMe(apiErr *botapi.APIError) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.getMeErr = apiErr
}

func (c *Client) GetMe(ctx context.Context) (*botapi.User, *botapi.APIError, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getMeErr != nil {
		return nil, c.getMeErr, nil
	}
	return &botapi.User{Id: 1000, IsBot: true, FirstName: "Test bot", Username: "test_bot"}, nil, nil
}

// GetUpdatesRequests returns all received GetUpdates requests in order
func (c *Client) GetUpdatesRequests() []botapi.GetUpdatesRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]botapi.GetUpdatesRequest(nil), c.getUpdatesRequests...)
}

// SentMessages returns all successfully sent messages in order
func (c *Client) SentMessages() []botapi.SendMessageRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]botapi.SendMessageRequest(nil), c.sentMessages...)
}

// SentTexts returns the texts of all messages sent to the chat
func (c *Client) SentTexts(chatId int64) []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	var texts []string
	for _, message := range c.sentMessages {
		if message.ChatId == chatId {
			texts = append(texts, message.Text)
		}
	}
	return texts
}

// DeletedMessages returns all received DeleteMessage requests in order
func (c *Client) DeletedMessages() []botapi.DeleteMessageRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]botapi.DeleteMessageRequest(nil), c.deletedMessages...)
}

// AnsweredCallbackQueries returns all received AnswerCallbackQuery requests in order
func (c *Client) AnsweredCallbackQueries() []botapi.AnswerCallbackQueryRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]botapi.AnswerCallbackQueryRequest(nil), c.answeredQueries...)
}

// WebhookRequests returns all received SetWebhook requests in order
func (c *Client) WebhookRequests() []botapi.SetWebhookRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]botapi.SetWebhookRequest(nil), c.webhookRequests...)
}

// DeleteWebhookCalls returns the number of DeleteWebhook calls
func (c *Client) DeleteWebhookCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.deleteWebhookCalls
}

// RawEntry creates a batch entry from the raw JSON representation of an update
func RawEntry(raw string) botapi.UpdateEntry {
	return botapi.NewUpdateEntry(json.RawMessage(raw))
}

// TextMessageEntry creates a well-formed batch entry which contains a text message from a private chat
func TextMessageEntry(updateId, chatId int64, text string) botapi.UpdateEntry {
	return botapi.UpdateEntry{
		Update: TextMessageUpdate(updateId, chatId, text),
	}
}

// TextMessageUpdate creates an update which contains a text message from a private chat
func TextMessageUpdate(updateId, chatId int64, text string) botapi.Update {
	return botapi.Update{
		Id:      updateId,
		Message: TextMessage(updateId, chatId, text),
	}
}

// TextMessage creates a text message from a private chat
func TextMessage(messageId, chatId int64, text string) *botapi.Message {
	return &botapi.Message{
		MessageId: messageId,
		From:      &botapi.User{Id: chatId, FirstName: fmt.Sprintf("user%d", chatId)},
		Chat:      botapi.Chat{Id: chatId, Type: botapi.ChatTypePrivate},
		Text:      text,
	}
}

// CallbackQueryEntry creates a well-formed batch entry which contains a callback query
func CallbackQueryEntry(updateId, chatId int64, data string) botapi.UpdateEntry {
	return botapi.UpdateEntry{
		Update: botapi.Update{
			Id: updateId,
			CallbackQuery: &botapi.CallbackQuery{
				Id:           fmt.Sprintf("query%d", updateId),
				From:         botapi.User{Id: chatId},
				Message:      TextMessage(updateId, chatId, ""),
				ChatInstance: fmt.Sprintf("instance%d", chatId),
				Data:         data,
			},
		},
	}
}
