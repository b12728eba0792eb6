package tgbot

import (
	"encoding/json"
	"fmt"
)

// TransportError is a failed attempt to get updates. Polling repeats the attempt with the same offset, so no update
// is lost or duplicated because of it.
type TransportError struct {
	// The offset the failed request was made with
	Offset int64

	// Either a network failure or an *APIError
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("unable to get updates from the offset %d : %v", e.Offset, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IntegrityFaultError means that the identifier of an update could not be determined at all. Polling stops after
// reporting it because the correctness of the offset cannot be guaranteed anymore.
type IntegrityFaultError struct {
	Offset int64
	Raw    json.RawMessage
	Err    error
}

func (e *IntegrityFaultError) Error() string {
	return fmt.Sprintf("unable to determine the identifier of the update %s received from the offset %d : %v",
		e.Raw, e.Offset, e.Err)
}

func (e *IntegrityFaultError) Unwrap() error {
	return e.Err
}

// UnroutableUpdateError describes an update which was dropped because it could not be routed to any handler or
// dialogue
type UnroutableUpdateError struct {
	Kind   UpdateKind
	Reason string
}

func (e *UnroutableUpdateError) Error() string {
	return fmt.Sprintf("unable to route the %q update : %s", e.Kind, e.Reason)
}

// TransitionError is a failure of a dialogue transition. The stored dialogue is left unchanged and the update is
// considered handled.
type TransitionError struct {
	ChatId  int64
	TraceId string
	Err     error
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("the transition of the dialogue in the chat %d has failed : %v", e.ChatId, e.Err)
}

func (e *TransitionError) Unwrap() error {
	return e.Err
}
