package tgbot

import (
	"context"
)

// DialogueStage is the result of a dialogue transition: either the next dialogue or the end of the dialogue
type DialogueStage[D any] struct {
	dialogue D
	exit     bool
}

// Next continues the dialogue with the new state
func Next[D any](dialogue D) (DialogueStage[D], error) {
	return DialogueStage[D]{dialogue: dialogue}, nil
}

// Exit ends the dialogue. The next update from the same chat starts the dialogue from the initial state.
func Exit[D any]() (DialogueStage[D], error) {
	return DialogueStage[D]{exit: true}, nil
}

// Dialogue returns the next dialogue state. It returns false if the dialogue has ended.
func (s DialogueStage[D]) Dialogue() (D, bool) {
	return s.dialogue, !s.exit
}

func (s DialogueStage[D]) IsExit() bool {
	return s.exit
}

// DialogueWithContext is an update together with the current state of the dialogue in its chat
type DialogueWithContext[U, D any] struct {
	Cx       UpdateWithContext[U]
	Dialogue D
}

// DialogueHandler makes a single dialogue transition for an update. Transitions of the same chat never run
// concurrently.
type DialogueHandler[U, D any] interface {
	HandleDialogue(ctx context.Context, dcx DialogueWithContext[U, D]) (DialogueStage[D], error)
}

// DialogueHandlerFunc allows to use ordinary functions as dialogue handlers
type DialogueHandlerFunc[U, D any] func(context.Context, DialogueWithContext[U, D]) (DialogueStage[D], error)

func (f DialogueHandlerFunc[U, D]) HandleDialogue(
	ctx context.Context,
	dcx DialogueWithContext[U, D],
) (DialogueStage[D], error) {
	return f(ctx, dcx)
}
