package botapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// UpdateKind is the kind of the payload an update carries. The same values are used to filter updates in
// GetUpdatesRequest.AllowedUpdates.
type UpdateKind string

const (
	KindMessage           UpdateKind = "message"
	KindEditedMessage     UpdateKind = "edited_message"
	KindChannelPost       UpdateKind = "channel_post"
	KindEditedChannelPost UpdateKind = "edited_channel_post"
	KindInlineQuery       UpdateKind = "inline_query"
	KindCallbackQuery     UpdateKind = "callback_query"
)

// Update represents an incoming update. At most one of the optional fields is present in any given update.
type Update struct {
	Id                int64          `json:"update_id"`
	Message           *Message       `json:"message,omitempty"`
	EditedMessage     *Message       `json:"edited_message,omitempty"`
	ChannelPost       *Message       `json:"channel_post,omitempty"`
	EditedChannelPost *Message       `json:"edited_channel_post,omitempty"`
	InlineQuery       *InlineQuery   `json:"inline_query,omitempty"`
	CallbackQuery     *CallbackQuery `json:"callback_query,omitempty"`
}

// Kind returns the kind of the update payload or an empty string if the update carries no known payload
func (u Update) Kind() UpdateKind {
	switch {
	case u.Message != nil:
		return KindMessage
	case u.EditedMessage != nil:
		return KindEditedMessage
	case u.ChannelPost != nil:
		return KindChannelPost
	case u.EditedChannelPost != nil:
		return KindEditedChannelPost
	case u.InlineQuery != nil:
		return KindInlineQuery
	case u.CallbackQuery != nil:
		return KindCallbackQuery
	default:
		return ""
	}
}

// Payload returns the update payload by value: a Message, an InlineQuery or a CallbackQuery. It returns nil if the
// update carries no known payload.
func (u Update) Payload() any {
	switch {
	case u.Message != nil:
		return *u.Message
	case u.EditedMessage != nil:
		return *u.EditedMessage
	case u.ChannelPost != nil:
		return *u.ChannelPost
	case u.EditedChannelPost != nil:
		return *u.EditedChannelPost
	case u.InlineQuery != nil:
		return *u.InlineQuery
	case u.CallbackQuery != nil:
		return *u.CallbackQuery
	default:
		return nil
	}
}

// UpdateEntry is a single element of a GetUpdates batch. If the element could not be parsed, Malformed is set and
// Update is empty.
type UpdateEntry struct {
	Update    Update
	Malformed *MalformedUpdate
}

// NewUpdateEntry parses the raw update. A parsing failure does not lose the raw data, so the update identifier can
// still be recovered from the entry.
func NewUpdateEntry(raw json.RawMessage) UpdateEntry {
	update, err := ParseUpdate(raw)
	if err != nil {
		return UpdateEntry{
			Malformed: &MalformedUpdate{
				Raw: raw,
				Err: err,
			},
		}
	}
	return UpdateEntry{Update: update}
}

// UpdateId returns the identifier of the entry, whether it is well-formed or not
func (e UpdateEntry) UpdateId() (int64, error) {
	if e.Malformed != nil {
		return e.Malformed.UpdateId()
	}
	return e.Update.Id, nil
}

// ParseUpdate decodes the raw update. An update without an identifier or with none of the known payloads is
// considered malformed.
func ParseUpdate(raw json.RawMessage) (Update, error) {
	_, err := rawUpdateId(raw)
	if err != nil {
		return Update{}, err
	}

	var update Update
	err = json.Unmarshal(raw, &update)
	if err != nil {
		return Update{}, fmt.Errorf("unable to decode the update : %w", err)
	}

	if update.Kind() == "" {
		return Update{}, errors.New("the update does not contain any known payload")
	}
	return update, nil
}

// MalformedUpdate is an update which could not be parsed into the Update structure
type MalformedUpdate struct {
	Raw json.RawMessage
	Err error
}

func (m *MalformedUpdate) Error() string {
	return fmt.Sprintf("malformed update %s : %v", m.Raw, m.Err)
}

func (m *MalformedUpdate) Unwrap() error {
	return m.Err
}

// UpdateId recovers the update identifier from the raw data
func (m *MalformedUpdate) UpdateId() (int64, error) {
	return rawUpdateId(m.Raw)
}

func rawUpdateId(raw json.RawMessage) (int64, error) {
	type updateWithId struct {
		Id *int64 `json:"update_id"`
	}

	update := new(updateWithId)
	err := json.Unmarshal(raw, update)
	if err != nil {
		return 0, fmt.Errorf("unable to decode the update identifier : %w", err)
	}

	if update.Id == nil {
		return 0, errors.New("the update does not contain an identifier")
	}
	return *update.Id, nil
}

type GetUpdatesRequest struct {
	Offset         int64        `json:"offset,omitempty"`
	Limit          int          `json:"limit,omitempty"`
	Timeout        int          `json:"timeout,omitempty"`
	AllowedUpdates []UpdateKind `json:"allowed_updates,omitempty"`
}

func (c *client) GetUpdates(ctx context.Context, request GetUpdatesRequest) ([]UpdateEntry, *APIError, error) {
	var rawUpdates []json.RawMessage
	apiErr, err := c.execute(ctx, "getUpdates", request, &rawUpdates)
	if err != nil || apiErr != nil {
		return nil, apiErr, err
	}

	entries := make([]UpdateEntry, 0, len(rawUpdates))
	for _, rawUpdate := range rawUpdates {
		entries = append(entries, NewUpdateEntry(rawUpdate))
	}
	return entries, nil, nil
}
