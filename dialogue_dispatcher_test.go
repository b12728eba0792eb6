package tgbot

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pavelzagorodnyuk/tgbot/internal/botapi/v1/botapitest"
	"gotest.tools/v3/assert"
	"gotest.tools/v3/assert/cmp"
)

func messageCx(chatId int64, text string) UpdateWithContext[Message] {
	return UpdateWithContext[Message]{
		Client:  botapitest.NewClient(),
		Kind:    KindMessage,
		Update:  *botapitest.TextMessage(1, chatId, text),
		TraceId: text,
	}
}

// handleAll passes the updates to the handler and waits until they are handled
func handleAll[T any](t *testing.T, handler Handler[T], updates ...UpdateWithContext[T]) {
	t.Helper()

	updateChan := make(chan UpdateWithContext[T], len(updates))
	for _, cx := range updates {
		updateChan <- cx
	}
	close(updateChan)

	done := make(chan struct{})
	go func() {
		handler.Handle(context.Background(), updateChan)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("the updates have not been handled in time")
	}
}

// errorCollector is an error handler which remembers the errors it has received
type errorCollector struct {
	mu   sync.Mutex
	errs []error
}

func (c *errorCollector) HandleError(_ context.Context, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errs = append(c.errs, err)
}

func (c *errorCollector) collected() []error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]error(nil), c.errs...)
}

func TestDialogueDispatcher_serializesChats(t *testing.T) {
	const (
		chatCount    = 20
		messageCount = 15
	)

	var (
		inFlight   sync.Map
		violations atomic.Int32
	)

	handler := DialogueHandlerFunc[Message, []string](
		func(ctx context.Context, dcx DialogueWithContext[Message, []string]) (DialogueStage[[]string], error) {
			chatId := dcx.Cx.Update.Chat.Id
			counter, _ := inFlight.LoadOrStore(chatId, new(atomic.Int32))
			if counter.(*atomic.Int32).Add(1) > 1 {
				violations.Add(1)
			}
			defer counter.(*atomic.Int32).Add(-1)

			time.Sleep(time.Duration(rand.IntN(300)) * time.Microsecond)

			return Next(append(dcx.Dialogue, dcx.Cx.Update.Text))
		})

	storage := NewInMemStorage[[]string]()
	dispatcher := NewDialogueDispatcher[Message, []string](handler).SetStorage(storage)

	var updates []UpdateWithContext[Message]
	for i := range messageCount {
		for chatId := int64(1); chatId <= chatCount; chatId++ {
			updates = append(updates, messageCx(chatId, strconv.Itoa(i)))
		}
	}

	handleAll(t, dispatcher, updates...)

	assert.Check(t, cmp.Equal(violations.Load(), int32(0)))

	var expected []string
	for i := range messageCount {
		expected = append(expected, strconv.Itoa(i))
	}

	for chatId := int64(1); chatId <= chatCount; chatId++ {
		dialogue, isFound, err := storage.Get(context.Background(), chatId)
		assert.NilError(t, err)
		assert.Assert(t, isFound)
		assert.DeepEqual(t, dialogue, expected)
	}
}

func TestDialogueDispatcher_chatsRunInParallel(t *testing.T) {
	started := make(chan int64, 2)
	release := make(chan struct{})

	handler := DialogueHandlerFunc[Message, int](
		func(ctx context.Context, dcx DialogueWithContext[Message, int]) (DialogueStage[int], error) {
			started <- dcx.Cx.Update.Chat.Id
			<-release
			return Next(dcx.Dialogue + 1)
		})

	dispatcher := NewDialogueDispatcher[Message, int](handler)

	updates := make(chan UpdateWithContext[Message], 2)
	updates <- messageCx(1, "a")
	updates <- messageCx(2, "b")
	close(updates)

	done := make(chan struct{})
	go func() {
		dispatcher.Handle(context.Background(), updates)
		close(done)
	}()

	for range 2 {
		select {
		case <-started:
		case <-time.After(5 * time.Second):
			t.Fatal("the chats are not handled in parallel")
		}
	}

	close(release)
	<-done
}

func TestDialogueDispatcher_transitions(t *testing.T) {
	// the dialogue counts the messages; "bye" ends it, "fail" and "panic" break the transition
	handler := DialogueHandlerFunc[Message, int](
		func(ctx context.Context, dcx DialogueWithContext[Message, int]) (DialogueStage[int], error) {
			switch dcx.Cx.Update.Text {
			case "bye":
				return Exit[int]()
			case "fail":
				return DialogueStage[int]{}, errors.New("the transition has failed")
			case "panic":
				panic("unexpected state")
			default:
				return Next(dcx.Dialogue + 1)
			}
		})

	testCases := []struct {
		name          string
		texts         []string
		dialogue      int
		isActive      bool
		failureTraces []string
	}{
		{
			name:     "OK — the dialogue starts from the initial state",
			texts:    []string{"a"},
			dialogue: 11,
			isActive: true,
		},
		{
			name:     "OK — the dialogue is removed on exit",
			texts:    []string{"a", "b", "bye"},
			isActive: false,
		},
		{
			name:     "OK — the dialogue restarts after exit",
			texts:    []string{"a", "bye", "a", "b"},
			dialogue: 12,
			isActive: true,
		},
		{
			name:          "Error — a failed transition keeps the state",
			texts:         []string{"a", "fail", "b"},
			dialogue:      12,
			isActive:      true,
			failureTraces: []string{"fail"},
		},
		{
			name:          "Error — a panic is recovered and keeps the state",
			texts:         []string{"a", "panic", "b", "panic"},
			dialogue:      12,
			isActive:      true,
			failureTraces: []string{"panic", "panic"},
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			const chatId = 42

			storage := NewInMemStorage[int]()
			errorHandler := new(errorCollector)

			dispatcher := NewDialogueDispatcher[Message, int](handler).
				SetStorage(storage).
				SetInitialDialogue(10).
				SetErrorHandler(errorHandler)

			var updates []UpdateWithContext[Message]
			for _, text := range testCase.texts {
				updates = append(updates, messageCx(chatId, text))
			}

			handleAll(t, dispatcher, updates...)

			dialogue, isFound, err := storage.Get(context.Background(), chatId)
			assert.NilError(t, err)
			assert.Check(t, cmp.Equal(isFound, testCase.isActive))
			assert.Check(t, cmp.Equal(dialogue, testCase.dialogue))

			var failureTraces []string
			for _, err := range errorHandler.collected() {
				var transitionErr *TransitionError
				assert.Assert(t, errors.As(err, &transitionErr))
				assert.Check(t, cmp.Equal(transitionErr.ChatId, int64(chatId)))
				failureTraces = append(failureTraces, transitionErr.TraceId)
			}
			assert.DeepEqual(t, failureTraces, testCase.failureTraces)
		})
	}
}

func TestDialogueDispatcher_updatesWithoutChat(t *testing.T) {
	var calls atomic.Int32
	handler := DialogueHandlerFunc[CallbackQuery, int](
		func(ctx context.Context, dcx DialogueWithContext[CallbackQuery, int]) (DialogueStage[int], error) {
			calls.Add(1)
			return Next(dcx.Dialogue)
		})

	dispatcher := NewDialogueDispatcher[CallbackQuery, int](handler)

	inlineQuery := UpdateWithContext[CallbackQuery]{
		Kind:   KindCallbackQuery,
		Update: CallbackQuery{Id: "inline", InlineMessageId: "inline-message"},
	}
	chatQuery := UpdateWithContext[CallbackQuery]{
		Kind:   KindCallbackQuery,
		Update: *botapitest.CallbackQueryEntry(1, 42, "yes").Update.CallbackQuery,
	}

	handleAll(t, dispatcher, inlineQuery, chatQuery)

	assert.Check(t, cmp.Equal(calls.Load(), int32(1)))
}

// failingStorage is a storage which is not available
type failingStorage struct{}

func (failingStorage) Get(context.Context, int64) (int, bool, error) {
	return 0, false, errors.New("the storage is not available")
}

func (failingStorage) Update(context.Context, int64, int) error {
	return errors.New("the storage is not available")
}

func (failingStorage) Remove(context.Context, int64) error {
	return errors.New("the storage is not available")
}

func TestDialogueDispatcher_storageFailure(t *testing.T) {
	var calls atomic.Int32
	handler := DialogueHandlerFunc[Message, int](
		func(ctx context.Context, dcx DialogueWithContext[Message, int]) (DialogueStage[int], error) {
			calls.Add(1)
			return Next(dcx.Dialogue + 1)
		})

	errorHandler := new(errorCollector)
	dispatcher := NewDialogueDispatcher[Message, int](handler).
		SetStorage(failingStorage{}).
		SetErrorHandler(errorHandler)

	handleAll(t, dispatcher, messageCx(1, "a"), messageCx(2, "b"))

	assert.Check(t, cmp.Equal(calls.Load(), int32(0)))

	errs := errorHandler.collected()
	assert.Assert(t, cmp.Len(errs, 2))
	for _, err := range errs {
		assert.Check(t, cmp.ErrorContains(err, "unable to get the dialogue"))
	}
}

func TestDialogueDispatcher_idleWorkersAreStopped(t *testing.T) {
	handler := DialogueHandlerFunc[Message, int](
		func(ctx context.Context, dcx DialogueWithContext[Message, int]) (DialogueStage[int], error) {
			return Next(dcx.Dialogue + 1)
		})

	dispatcher := NewDialogueDispatcher[Message, int](handler)
	controller := newDialogueController(dispatcher)

	updates := make(chan UpdateWithContext[Message])
	done := make(chan struct{})
	go func() {
		controller.run(context.Background(), updates)
		close(done)
	}()

	for i := range 5 {
		updates <- messageCx(int64(i), fmt.Sprint(i))
	}

	// the controller does not report the number of its workers, so the test waits until the idle workers are reaped
	// and then checks that a reaped chat is handled again
	time.Sleep(50 * time.Millisecond)
	updates <- messageCx(0, "again")

	close(updates)
	<-done

	dialogue, isFound, err := dispatcher.storage.Get(context.Background(), 0)
	assert.NilError(t, err)
	assert.Check(t, isFound)
	assert.Check(t, cmp.Equal(dialogue, 2))
	assert.Check(t, cmp.Len(controller.activeDialogues, 0))
}
