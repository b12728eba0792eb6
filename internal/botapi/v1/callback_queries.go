package botapi

import (
	"context"
	"errors"
)

// CallbackQuery represents an incoming callback query from a callback button in an inline keyboard
type CallbackQuery struct {
	Id              string   `json:"id"`
	From            User     `json:"from"`
	Message         *Message `json:"message,omitempty"`
	InlineMessageId string   `json:"inline_message_id,omitempty"`
	ChatInstance    string   `json:"chat_instance"`
	Data            string   `json:"data,omitempty"`
	GameShortName   string   `json:"game_short_name,omitempty"`
}

// ChatId returns the identifier of the chat which contains the message with the callback button. Queries which
// originate from inline messages do not belong to any chat.
func (q CallbackQuery) ChatId() (int64, bool) {
	if q.Message == nil {
		return 0, false
	}
	return q.Message.Chat.Id, true
}

// InlineQuery represents an incoming inline query
type InlineQuery struct {
	Id     string `json:"id"`
	From   User   `json:"from"`
	Query  string `json:"query"`
	Offset string `json:"offset"`
}

type AnswerCallbackQueryRequest struct {
	CallbackQueryId string `json:"callback_query_id"`
	Text            string `json:"text,omitempty"`
	ShowAlert       bool   `json:"show_alert,omitempty"`
	Url             string `json:"url,omitempty"`
	CacheTime       int    `json:"cache_time,omitempty"`
}

func (c *client) AnswerCallbackQuery(ctx context.Context, request AnswerCallbackQueryRequest) (*APIError, error) {
	if len(request.CallbackQueryId) == 0 {
		return nil, errors.New("the callback query identifier is not specified")
	}
	return c.execute(ctx, "answerCallbackQuery", request, nil)
}
