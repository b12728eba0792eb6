package botapi

import (
	"context"
	"errors"
)

type Message struct {
	MessageId      int64                 `json:"message_id"`
	From           *User                 `json:"from,omitempty"`
	SenderChat     *Chat                 `json:"sender_chat,omitempty"`
	Date           int64                 `json:"date"`
	Chat           Chat                  `json:"chat"`
	ReplyToMessage *Message              `json:"reply_to_message,omitempty"`
	EditDate       int64                 `json:"edit_date,omitempty"`
	Text           string                `json:"text,omitempty"`
	Caption        string                `json:"caption,omitempty"`
	ReplyMarkup    *InlineKeyboardMarkup `json:"reply_markup,omitempty"`
}

// ChatId returns the identifier of the chat the message belongs to
func (m Message) ChatId() (int64, bool) {
	return m.Chat.Id, true
}

type Chat struct {
	Id        int64    `json:"id"`
	Type      ChatType `json:"type"`
	Title     string   `json:"title,omitempty"`
	Username  string   `json:"username,omitempty"`
	FirstName string   `json:"first_name,omitempty"`
	LastName  string   `json:"last_name,omitempty"`
}

type ChatType string

const (
	ChatTypePrivate    ChatType = "private"
	ChatTypeGroup      ChatType = "group"
	ChatTypeSupergroup ChatType = "supergroup"
	ChatTypeChannel    ChatType = "channel"
)

type ParseMode string

const (
	ParseModeMarkdownV2 ParseMode = "MarkdownV2"
	ParseModeHTML       ParseMode = "HTML"
)

type InlineKeyboardMarkup struct {
	InlineKeyboard [][]InlineKeyboardButton `json:"inline_keyboard"`
}

type InlineKeyboardButton struct {
	Text         string `json:"text"`
	Url          string `json:"url,omitempty"`
	CallbackData string `json:"callback_data,omitempty"`
}

type SendMessageRequest struct {
	ChatId                int64                 `json:"chat_id"`
	Text                  string                `json:"text"`
	ParseMode             ParseMode             `json:"parse_mode,omitempty"`
	DisableWebPagePreview bool                  `json:"disable_web_page_preview,omitempty"`
	DisableNotification   bool                  `json:"disable_notification,omitempty"`
	ReplyToMessageId      int64                 `json:"reply_to_message_id,omitempty"`
	ReplyMarkup           *InlineKeyboardMarkup `json:"reply_markup,omitempty"`
}

func (c *client) SendMessage(ctx context.Context, request SendMessageRequest) (*Message, *APIError, error) {
	if len(request.Text) == 0 {
		return nil, nil, errors.New("the message text is not specified")
	}

	response := new(Message)
	apiErr, err := c.execute(ctx, "sendMessage", request, response)
	if err != nil || apiErr != nil {
		return nil, apiErr, err
	}
	return response, nil, nil
}

type DeleteMessageRequest struct {
	ChatId    int64 `json:"chat_id"`
	MessageId int64 `json:"message_id"`
}

func (c *client) DeleteMessage(ctx context.Context, request DeleteMessageRequest) (*APIError, error) {
	return c.execute(ctx, "deleteMessage", request, nil)
}
