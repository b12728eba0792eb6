package tgbot

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
)

// DialogueDispatcher is a handler which keeps a dialogue per chat. The updates of the same chat are passed to the
// dialogue handler one by one in the order they were received, the updates of different chats are handled in
// parallel.
type DialogueDispatcher[U ChatIdGetter, D any] struct {
	handler         DialogueHandler[U, D]
	storage         Storage[D]
	initialDialogue D
	errorHandler    ErrorHandler
}

// NewDialogueDispatcher creates a dialogue dispatcher which keeps dialogues in memory, starts them from the zero
// value of D and logs out transition errors
func NewDialogueDispatcher[U ChatIdGetter, D any](handler DialogueHandler[U, D]) *DialogueDispatcher[U, D] {
	return &DialogueDispatcher[U, D]{
		handler:      handler,
		storage:      NewInMemStorage[D](),
		errorHandler: NewLoggingErrorHandler("an error from the dialogue dispatcher"),
	}
}

func (d *DialogueDispatcher[U, D]) SetStorage(storage Storage[D]) *DialogueDispatcher[U, D] {
	d.storage = storage
	return d
}

// SetInitialDialogue sets the dialogue which a chat without an active dialogue starts from. The dialogue is copied
// by value, so it must not contain anything shared between chats.
func (d *DialogueDispatcher[U, D]) SetInitialDialogue(dialogue D) *DialogueDispatcher[U, D] {
	d.initialDialogue = dialogue
	return d
}

func (d *DialogueDispatcher[U, D]) SetErrorHandler(errorHandler ErrorHandler) *DialogueDispatcher[U, D] {
	d.errorHandler = errorHandler
	return d
}

// Handle distributes the updates between the chats until the channel is closed or the context is done. It returns
// after every update received before has been handled.
func (d *DialogueDispatcher[U, D]) Handle(ctx context.Context, updates <-chan UpdateWithContext[U]) {
	controller := newDialogueController(d)
	controller.run(ctx, updates)
}

// transit makes a single dialogue transition. The stored dialogue is changed only if the handler succeeds.
func (d *DialogueDispatcher[U, D]) transit(ctx context.Context, chatId int64, cx UpdateWithContext[U]) (err error) {
	defer func() {
		if panicMessage := recover(); panicMessage != nil {
			err = fmt.Errorf("the dialogue handler is recovered from panic : %v", panicMessage)
		}
	}()

	dialogue, isFound, err := d.storage.Get(ctx, chatId)
	if err != nil {
		return fmt.Errorf("unable to get the dialogue : %w", err)
	}
	if !isFound {
		dialogue = d.initialDialogue
	}

	stage, err := d.handler.HandleDialogue(ctx, DialogueWithContext[U, D]{Cx: cx, Dialogue: dialogue})
	if err != nil {
		return err
	}

	nextDialogue, isActive := stage.Dialogue()
	if !isActive {
		err = d.storage.Remove(ctx, chatId)
		if err != nil {
			return fmt.Errorf("unable to remove the dialogue : %w", err)
		}
		return nil
	}

	err = d.storage.Update(ctx, chatId, nextDialogue)
	if err != nil {
		return fmt.Errorf("unable to update the dialogue : %w", err)
	}
	return nil
}

// dialogueController owns the workers of the active chats. Every chat with queued updates has a worker which handles
// them one by one; a worker which has run out of updates is stopped by the controller.
type dialogueController[U ChatIdGetter, D any] struct {
	dispatcher      *DialogueDispatcher[U, D]
	activeDialogues map[int64]*dialogueReferences[U]
	idleSignals     chan idleSignal
	stopped         chan struct{}
	workers         sync.WaitGroup
}

type dialogueReferences[U any] struct {
	queue *unboundedQueue[UpdateWithContext[U]]

	// the number of updates pushed into the queue
	pushed uint64
}

// idleSignal is sent by a worker which has no queued updates
type idleSignal struct {
	chatId int64

	// the number of updates the worker has handled
	processed uint64
}

func newDialogueController[U ChatIdGetter, D any](dispatcher *DialogueDispatcher[U, D]) *dialogueController[U, D] {
	return &dialogueController[U, D]{
		dispatcher:      dispatcher,
		activeDialogues: make(map[int64]*dialogueReferences[U]),
		idleSignals:     make(chan idleSignal),
		stopped:         make(chan struct{}),
	}
}

func (c *dialogueController[U, D]) run(ctx context.Context, updates <-chan UpdateWithContext[U]) {
	defer c.stopAllWorkers()

	for {
		select {
		case cx, isOpen := <-updates:
			if !isOpen {
				return
			}
			c.processUpdate(ctx, cx)

		case signal := <-c.idleSignals:
			c.processIdleSignal(signal)

		case <-ctx.Done():
			return
		}
	}
}

func (c *dialogueController[U, D]) processUpdate(ctx context.Context, cx UpdateWithContext[U]) {
	chatId, hasChat := cx.ChatId()
	if !hasChat {
		slog.WarnContext(ctx, "the update is dropped",
			slog.String("trace_id", cx.TraceId),
			slog.Any("error", &UnroutableUpdateError{Kind: cx.Kind, Reason: "the update does not belong to any chat"}))
		return
	}

	dialogue, isActive := c.activeDialogues[chatId]
	if !isActive {
		dialogue = c.startWorker(ctx, chatId)
	}

	dialogue.pushed++
	dialogue.queue.push(cx)
}

func (c *dialogueController[U, D]) startWorker(ctx context.Context, chatId int64) *dialogueReferences[U] {
	dialogue := &dialogueReferences[U]{
		queue: newUnboundedQueue[UpdateWithContext[U]](ctx, "dialogue "+strconv.FormatInt(chatId, 10)),
	}
	c.activeDialogues[chatId] = dialogue

	c.workers.Add(1)
	go c.workerRoutine(ctx, chatId, dialogue.queue.output())

	return dialogue
}

func (c *dialogueController[U, D]) workerRoutine(
	ctx context.Context,
	chatId int64,
	updates <-chan UpdateWithContext[U],
) {
	defer c.workers.Done()

	var processed uint64
	for {
		cx, isOpen, isReceived := tryReceive(updates)
		if !isReceived {
			select {
			case c.idleSignals <- idleSignal{chatId: chatId, processed: processed}:

			// the controller does not accept signals anymore, the queue is going to be closed
			case <-c.stopped:
			}

			cx, isOpen = <-updates
		}

		if !isOpen {
			return
		}

		err := c.dispatcher.transit(ctx, chatId, cx)
		if err != nil {
			c.dispatcher.errorHandler.HandleError(ctx, &TransitionError{
				ChatId:  chatId,
				TraceId: cx.TraceId,
				Err:     err,
			})
		}
		processed++
	}
}

func tryReceive[T any](updates <-chan T) (item T, isOpen, isReceived bool) {
	select {
	case item, isOpen = <-updates:
		return item, isOpen, true

	default:
		return item, false, false
	}
}

// processIdleSignal stops the worker if it has handled every update pushed to it. Otherwise the worker has new
// updates on the way and keeps running.
func (c *dialogueController[U, D]) processIdleSignal(signal idleSignal) {
	dialogue, isActive := c.activeDialogues[signal.chatId]
	if !isActive || dialogue.pushed != signal.processed {
		return
	}

	dialogue.queue.close()
	delete(c.activeDialogues, signal.chatId)
}

// stopAllWorkers lets the workers handle the queued updates and waits for them
func (c *dialogueController[U, D]) stopAllWorkers() {
	for chatId, dialogue := range c.activeDialogues {
		dialogue.queue.close()
		delete(c.activeDialogues, chatId)
	}
	close(c.stopped)

	c.workers.Wait()
}
