package tgbot

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// Handler consumes the updates of a single kind. The channel is closed once there are no more updates; Handle must
// return after that or when the context is done.
type Handler[T any] interface {
	Handle(ctx context.Context, updates <-chan UpdateWithContext[T])
}

// HandlerFunc allows to use ordinary functions as handlers
type HandlerFunc[T any] func(context.Context, <-chan UpdateWithContext[T])

func (f HandlerFunc[T]) Handle(ctx context.Context, updates <-chan UpdateWithContext[T]) {
	f(ctx, updates)
}

// Dispatcher routes events to the handlers registered for their kinds. Every handler gets its own queue, so a slow
// handler never blocks the others or the event source.
type Dispatcher struct {
	client Client
	sinks  map[UpdateKind]sink
}

// NewDispatcher creates a dispatcher whose handlers answer with the client of the bot
func NewDispatcher(bot Bot) *Dispatcher {
	return &Dispatcher{
		client: bot.Client(),
		sinks:  make(map[UpdateKind]sink),
	}
}

func (d *Dispatcher) MessagesHandler(handler Handler[Message]) *Dispatcher {
	return register(d, KindMessage, handler)
}

func (d *Dispatcher) EditedMessagesHandler(handler Handler[Message]) *Dispatcher {
	return register(d, KindEditedMessage, handler)
}

func (d *Dispatcher) ChannelPostsHandler(handler Handler[Message]) *Dispatcher {
	return register(d, KindChannelPost, handler)
}

func (d *Dispatcher) EditedChannelPostsHandler(handler Handler[Message]) *Dispatcher {
	return register(d, KindEditedChannelPost, handler)
}

func (d *Dispatcher) InlineQueriesHandler(handler Handler[InlineQuery]) *Dispatcher {
	return register(d, KindInlineQuery, handler)
}

func (d *Dispatcher) CallbackQueriesHandler(handler Handler[CallbackQuery]) *Dispatcher {
	return register(d, KindCallbackQuery, handler)
}

// register replaces the handler of the kind, if any
func register[T any](d *Dispatcher, kind UpdateKind, handler Handler[T]) *Dispatcher {
	d.sinks[kind] = &typedSink[T]{
		kind:    kind,
		handler: handler,
	}
	return d
}

// Dispatch forwards the events to the handlers until the sequence ends or the context is done. When the sequence
// ends, the handlers get the rest of the queued updates and Dispatch waits for all of them to return. Dispatch must
// not be called concurrently.
func (d *Dispatcher) Dispatch(ctx context.Context, events iter.Seq[Event]) error {
	parent := ctx
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	for _, s := range d.sinks {
		s.start(ctx, d.client, &wg)
	}

	for event := range events {
		if ctx.Err() != nil {
			break
		}
		d.forward(ctx, event)
	}

	for _, s := range d.sinks {
		s.close()
	}
	wg.Wait()

	return parent.Err()
}

func (d *Dispatcher) forward(ctx context.Context, event Event) {
	s, isRegistered := d.sinks[event.Kind]
	if !isRegistered {
		slog.WarnContext(ctx, "the update is dropped",
			slog.Any("error", &UnroutableUpdateError{Kind: event.Kind, Reason: "no handler is registered for it"}))
		return
	}

	traceId, err := uuid.NewRandom()
	if err != nil {
		slog.ErrorContext(ctx, "unable to generate a trace identifier for the update", slog.Any("error", err))
	}

	err = s.push(event, traceId.String())
	if err != nil {
		slog.ErrorContext(ctx, "the update is dropped", slog.Any("error", err))
	}
}

type sink interface {
	start(ctx context.Context, client Client, wg *sync.WaitGroup)
	push(event Event, traceId string) error
	close()
}

type typedSink[T any] struct {
	kind    UpdateKind
	handler Handler[T]
	client  Client
	queue   *unboundedQueue[UpdateWithContext[T]]
}

func (s *typedSink[T]) start(ctx context.Context, client Client, wg *sync.WaitGroup) {
	s.client = client
	s.queue = newUnboundedQueue[UpdateWithContext[T]](ctx, string(s.kind))

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer drain(s.queue.output())
		s.handler.Handle(ctx, s.queue.output())
	}()
}

func (s *typedSink[T]) push(event Event, traceId string) error {
	update, isExpected := event.Resource.(T)
	if !isExpected {
		return &UnroutableUpdateError{
			Kind:   event.Kind,
			Reason: fmt.Sprintf("the payload of the type %T does not match the handler", event.Resource),
		}
	}

	s.queue.push(UpdateWithContext[T]{
		Client:  s.client,
		Kind:    event.Kind,
		Update:  update,
		TraceId: traceId,
	})
	return nil
}

func (s *typedSink[T]) close() {
	s.queue.close()
}

// drain lets the queue finish if the handler has returned before its channel was closed
func drain[T any](updates <-chan T) {
	for range updates {
	}
}
