// Package dialoguebot is a bot which asks the user for the full name, the age and the location one by one and then
// sums up the answers.
package dialoguebot

import (
	"context"
	"fmt"
	"strconv"

	"github.com/pavelzagorodnyuk/tgbot"
)

// Dialogue is one of the states of the dialogue: StartState, ReceiveFullNameState, ReceiveAgeState or
// ReceiveLocationState
type Dialogue interface {
	stateName() string
}

type StartState struct{}

type ReceiveFullNameState struct{}

type ReceiveAgeState struct {
	FullName string `json:"full_name"`
}

type ReceiveLocationState struct {
	FullName string `json:"full_name"`
	Age      uint8  `json:"age"`
}

func (StartState) stateName() string           { return "start" }
func (ReceiveFullNameState) stateName() string { return "receive_full_name" }
func (ReceiveAgeState) stateName() string      { return "receive_age" }
func (ReceiveLocationState) stateName() string { return "receive_location" }

var (
	_ tgbot.Upgradable[string, ReceiveAgeState]     = ReceiveFullNameState{}
	_ tgbot.Upgradable[uint8, ReceiveLocationState] = ReceiveAgeState{}
)

func (s ReceiveFullNameState) Up(fullName string) ReceiveAgeState {
	return ReceiveAgeState{FullName: fullName}
}

func (s ReceiveAgeState) Up(age uint8) ReceiveLocationState {
	return ReceiveLocationState{FullName: s.FullName, Age: age}
}

// NewHandler creates a dialogue handler of the bot
func NewHandler() tgbot.DialogueHandler[tgbot.Message, Dialogue] {
	return tgbot.NewTextTransitionHandler[Dialogue](Transition)
}

// Transition makes a single transition of the dialogue. An unknown state starts the dialogue over.
func Transition(
	ctx context.Context,
	cx tgbot.TransitionIn,
	dialogue Dialogue,
	text string,
) (tgbot.DialogueStage[Dialogue], error) {
	switch state := dialogue.(type) {
	case ReceiveFullNameState:
		return receiveFullName(ctx, cx, state, text)

	case ReceiveAgeState:
		return receiveAge(ctx, cx, state, text)

	case ReceiveLocationState:
		return receiveLocation(ctx, cx, state, text)

	default:
		return start(ctx, cx)
	}
}

func start(ctx context.Context, cx tgbot.TransitionIn) (tgbot.DialogueStage[Dialogue], error) {
	_, err := cx.Answer(ctx, "Let's start! What's your full name?")
	if err != nil {
		return tgbot.DialogueStage[Dialogue]{}, err
	}
	return tgbot.Next[Dialogue](ReceiveFullNameState{})
}

func receiveFullName(
	ctx context.Context,
	cx tgbot.TransitionIn,
	state ReceiveFullNameState,
	fullName string,
) (tgbot.DialogueStage[Dialogue], error) {
	_, err := cx.Answer(ctx, "How old are you?")
	if err != nil {
		return tgbot.DialogueStage[Dialogue]{}, err
	}
	return tgbot.Next[Dialogue](state.Up(fullName))
}

func receiveAge(
	ctx context.Context,
	cx tgbot.TransitionIn,
	state ReceiveAgeState,
	text string,
) (tgbot.DialogueStage[Dialogue], error) {
	age, err := strconv.ParseUint(text, 10, 8)
	if err != nil {
		_, err = cx.Answer(ctx, "Send me a number.")
		if err != nil {
			return tgbot.DialogueStage[Dialogue]{}, err
		}
		return tgbot.Next[Dialogue](state)
	}

	_, err = cx.Answer(ctx, "What's your location?")
	if err != nil {
		return tgbot.DialogueStage[Dialogue]{}, err
	}
	return tgbot.Next[Dialogue](state.Up(uint8(age)))
}

func receiveLocation(
	ctx context.Context,
	cx tgbot.TransitionIn,
	state ReceiveLocationState,
	location string,
) (tgbot.DialogueStage[Dialogue], error) {
	summary := fmt.Sprintf("Full name: %s\nAge: %d\nLocation: %s", state.FullName, state.Age, location)

	_, err := cx.Answer(ctx, summary)
	if err != nil {
		return tgbot.DialogueStage[Dialogue]{}, err
	}
	return tgbot.Exit[Dialogue]()
}
