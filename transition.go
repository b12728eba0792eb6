package tgbot

import (
	"context"
	"fmt"
)

// TransitionIn is what a text dialogue transition receives from the chat
type TransitionIn = UpdateWithContext[Message]

// TransitionFunc makes a transition of the text dialogue D. The function usually switches over the type of the
// dialogue state; text is the text of the received message.
type TransitionFunc[D any] func(ctx context.Context, cx TransitionIn, dialogue D, text string) (DialogueStage[D], error)

// Upgradable is a dialogue state which turns into the next state N once the field F is received
type Upgradable[F, N any] interface {
	Up(field F) N
}

const sendMeTextMessage = "Send me a text message."

// NewTextTransitionHandler creates a dialogue handler which passes text messages to the transition function. A
// message without text is answered with a hint and does not change the dialogue.
func NewTextTransitionHandler[D any](transition TransitionFunc[D]) DialogueHandler[Message, D] {
	return DialogueHandlerFunc[Message, D](
		func(ctx context.Context, dcx DialogueWithContext[Message, D]) (DialogueStage[D], error) {
			text := dcx.Cx.Update.Text
			if len(text) == 0 {
				_, err := dcx.Cx.Answer(ctx, sendMeTextMessage)
				if err != nil {
					return DialogueStage[D]{}, fmt.Errorf("unable to ask for a text message : %w", err)
				}
				return Next(dcx.Dialogue)
			}

			return transition(ctx, dcx.Cx, dcx.Dialogue, text)
		})
}
