package tgbot

import (
	"context"
	"errors"
	"fmt"

	"github.com/pavelzagorodnyuk/tgbot/internal/botapi/v1"
)

// UpdateWithContext is an update payload delivered to a handler together with the client it may answer with
type UpdateWithContext[T any] struct {
	Client Client
	Kind   UpdateKind
	Update T

	// TraceId identifies the update in logs. It is assigned by the dispatcher.
	TraceId string
}

// ChatIdGetter is implemented by update payloads which may belong to a chat
type ChatIdGetter interface {
	ChatId() (int64, bool)
}

// ChatId returns the identifier of the chat the update belongs to
func (cx UpdateWithContext[T]) ChatId() (int64, bool) {
	getter, isGetter := any(cx.Update).(ChatIdGetter)
	if !isGetter {
		return 0, false
	}
	return getter.ChatId()
}

var errNoChat = errors.New("the update does not belong to any chat")

// Answer sends a text message to the chat the update belongs to
func (cx UpdateWithContext[T]) Answer(ctx context.Context, text string) (*Message, error) {
	return cx.AnswerWith(ctx, SendMessageRequest{Text: text})
}

// AnswerWith sends the message to the chat the update belongs to. The chat identifier of the request is overwritten.
func (cx UpdateWithContext[T]) AnswerWith(ctx context.Context, request SendMessageRequest) (*Message, error) {
	chatId, hasChat := cx.ChatId()
	if !hasChat {
		return nil, fmt.Errorf("unable to send the message : %w", errNoChat)
	}

	request.ChatId = chatId

	message, apiErr, err := cx.Client.SendMessage(ctx, request)
	if err != nil {
		return nil, fmt.Errorf("unable to send the message : %w", err)
	}
	if apiErr != nil {
		return nil, fmt.Errorf("unable to send the message : %w", apiErr)
	}
	return message, nil
}

// Reply sends a text message which replies to the message of the update. It works only for updates which are
// messages.
func (cx UpdateWithContext[T]) Reply(ctx context.Context, text string) (*Message, error) {
	message, isMessage := any(cx.Update).(Message)
	if !isMessage {
		return nil, errors.New("unable to reply : the update is not a message")
	}

	return cx.AnswerWith(ctx, SendMessageRequest{
		Text:             text,
		ReplyToMessageId: message.MessageId,
	})
}

// DeleteMessage deletes the message of the update
func (cx UpdateWithContext[T]) DeleteMessage(ctx context.Context) error {
	message, isMessage := any(cx.Update).(Message)
	if !isMessage {
		return errors.New("unable to delete the message : the update is not a message")
	}

	request := botapi.DeleteMessageRequest{
		ChatId:    message.Chat.Id,
		MessageId: message.MessageId,
	}

	apiErr, err := cx.Client.DeleteMessage(ctx, request)
	if err != nil {
		return fmt.Errorf("unable to delete the message : %w", err)
	}
	if apiErr != nil {
		return fmt.Errorf("unable to delete the message : %w", apiErr)
	}
	return nil
}

// AnswerCallbackQuery answers the callback query of the update with a notification text, which may be empty
func (cx UpdateWithContext[T]) AnswerCallbackQuery(ctx context.Context, text string) error {
	query, isQuery := any(cx.Update).(CallbackQuery)
	if !isQuery {
		return errors.New("unable to answer the callback query : the update is not a callback query")
	}

	request := botapi.AnswerCallbackQueryRequest{
		CallbackQueryId: query.Id,
		Text:            text,
	}

	apiErr, err := cx.Client.AnswerCallbackQuery(ctx, request)
	if err != nil {
		return fmt.Errorf("unable to answer the callback query : %w", err)
	}
	if apiErr != nil {
		return fmt.Errorf("unable to answer the callback query : %w", apiErr)
	}
	return nil
}
