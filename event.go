package tgbot

import "github.com/pavelzagorodnyuk/tgbot/internal/botapi/v1"

// Event is an update stripped of its envelope: only the payload and its kind remain
type Event struct {
	// The kind of the update payload
	Kind UpdateKind

	// The update payload itself: a Message, an InlineQuery or a CallbackQuery
	Resource any
}

// newEvent projects the update to its payload
func newEvent(update Update) Event {
	return Event{
		Kind:     update.Kind(),
		Resource: update.Payload(),
	}
}

type (
	Client        = botapi.Client
	Update        = botapi.Update
	UpdateKind    = botapi.UpdateKind
	Message       = botapi.Message
	Chat          = botapi.Chat
	User          = botapi.User
	CallbackQuery = botapi.CallbackQuery
	InlineQuery   = botapi.InlineQuery
	APIError      = botapi.APIError

	SendMessageRequest = botapi.SendMessageRequest

	// MalformedUpdateError is an update which could not be parsed. Its identifier is still used to advance the
	// polling offset.
	MalformedUpdateError = botapi.MalformedUpdate
)

const (
	KindMessage           = botapi.KindMessage
	KindEditedMessage     = botapi.KindEditedMessage
	KindChannelPost       = botapi.KindChannelPost
	KindEditedChannelPost = botapi.KindEditedChannelPost
	KindInlineQuery       = botapi.KindInlineQuery
	KindCallbackQuery     = botapi.KindCallbackQuery
)

const (
	ParseModeMarkdownV2 = botapi.ParseModeMarkdownV2
	ParseModeHTML       = botapi.ParseModeHTML
)
