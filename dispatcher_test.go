package tgbot

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/pavelzagorodnyuk/tgbot/internal/botapi/v1/botapitest"
	"gotest.tools/v3/assert"
	"gotest.tools/v3/assert/cmp"
)

func newTestBot(t *testing.T, client Client) Bot {
	t.Helper()

	bot, err := New("").SetClient(client).Build()
	assert.NilError(t, err)
	return bot
}

func eventsOf(events ...Event) func(func(Event) bool) {
	return func(yield func(Event) bool) {
		for _, event := range events {
			if !yield(event) {
				return
			}
		}
	}
}

func messageEvent(chatId int64, text string) Event {
	return Event{Kind: KindMessage, Resource: *botapitest.TextMessage(1, chatId, text)}
}

// recorder is a handler which remembers the updates it has received
type recorder[T any] struct {
	mu      sync.Mutex
	updates []UpdateWithContext[T]
}

func (r *recorder[T]) Handle(ctx context.Context, updates <-chan UpdateWithContext[T]) {
	for cx := range updates {
		r.mu.Lock()
		r.updates = append(r.updates, cx)
		r.mu.Unlock()
	}
}

func (r *recorder[T]) received() []UpdateWithContext[T] {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.updates)
}

func TestDispatcher_Dispatch(t *testing.T) {
	client := botapitest.NewClient()

	messages := new(recorder[Message])
	editedMessages := new(recorder[Message])
	callbackQueries := new(recorder[CallbackQuery])

	dispatcher := NewDispatcher(newTestBot(t, client)).
		MessagesHandler(messages).
		EditedMessagesHandler(editedMessages).
		CallbackQueriesHandler(callbackQueries)

	callbackQuery := botapitest.CallbackQueryEntry(4, 42, "yes").Update.CallbackQuery

	events := eventsOf(
		messageEvent(42, "first"),
		Event{Kind: KindEditedMessage, Resource: *botapitest.TextMessage(2, 42, "edited")},
		messageEvent(43, "second"),
		Event{Kind: KindCallbackQuery, Resource: *callbackQuery},
		Event{Kind: KindInlineQuery, Resource: InlineQuery{Id: "unroutable"}},
	)

	err := dispatcher.Dispatch(context.Background(), events)
	assert.NilError(t, err)

	var texts []string
	for _, cx := range messages.received() {
		texts = append(texts, cx.Update.Text)
		assert.Check(t, cx.Client == Client(client))
		assert.Check(t, cmp.Equal(cx.Kind, KindMessage))
		assert.Check(t, len(cx.TraceId) != 0)
	}
	assert.DeepEqual(t, texts, []string{"first", "second"})

	assert.Check(t, cmp.Len(editedMessages.received(), 1))
	assert.Assert(t, cmp.Len(callbackQueries.received(), 1))
	assert.Check(t, cmp.Equal(callbackQueries.received()[0].Update.Data, "yes"))
}

func TestDispatcher_slowHandlerDoesNotBlockOthers(t *testing.T) {
	release := make(chan struct{})
	slowHandler := HandlerFunc[CallbackQuery](func(ctx context.Context, updates <-chan UpdateWithContext[CallbackQuery]) {
		<-release
		for range updates {
		}
	})

	messages := make(chan string)
	fastHandler := HandlerFunc[Message](func(ctx context.Context, updates <-chan UpdateWithContext[Message]) {
		for cx := range updates {
			messages <- cx.Update.Text
		}
		close(messages)
	})

	dispatcher := NewDispatcher(newTestBot(t, botapitest.NewClient())).
		MessagesHandler(fastHandler).
		CallbackQueriesHandler(slowHandler)

	callbackQuery := botapitest.CallbackQueryEntry(1, 42, "yes").Update.CallbackQuery

	done := make(chan error)
	go func() {
		done <- dispatcher.Dispatch(context.Background(), eventsOf(
			Event{Kind: KindCallbackQuery, Resource: *callbackQuery},
			Event{Kind: KindCallbackQuery, Resource: *callbackQuery},
			messageEvent(42, "through"),
		))
	}()

	select {
	case text := <-messages:
		assert.Check(t, cmp.Equal(text, "through"))

	case <-time.After(5 * time.Second):
		t.Fatal("the message has not been delivered while another handler is busy")
	}

	close(release)
	for range messages {
	}
	assert.NilError(t, <-done)
}

func TestDispatcher_cancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	blockingHandler := HandlerFunc[Message](func(ctx context.Context, updates <-chan UpdateWithContext[Message]) {
		<-ctx.Done()
	})

	dispatcher := NewDispatcher(newTestBot(t, botapitest.NewClient())).MessagesHandler(blockingHandler)

	infiniteEvents := func(yield func(Event) bool) {
		for {
			if !yield(messageEvent(42, "again")) {
				return
			}
			time.Sleep(time.Millisecond)
		}
	}

	done := make(chan error)
	go func() {
		done <- dispatcher.Dispatch(ctx, infiniteEvents)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.Check(t, errors.Is(err, context.Canceled))

	case <-time.After(5 * time.Second):
		t.Fatal("the dispatching has not stopped after the cancellation")
	}
}
