package dialoguebot

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Serializer stores dialogues as JSON objects tagged with the name of the state
type Serializer struct{}

type taggedDialogue struct {
	State string          `json:"state"`
	Data  json.RawMessage `json:"data"`
}

func (Serializer) Serialize(dialogue Dialogue) ([]byte, error) {
	if dialogue == nil {
		return nil, errors.New("unable to serialize an empty dialogue")
	}

	data, err := json.Marshal(dialogue)
	if err != nil {
		return nil, err
	}

	return json.Marshal(taggedDialogue{
		State: dialogue.stateName(),
		Data:  data,
	})
}

func (Serializer) Deserialize(data []byte) (Dialogue, error) {
	var tagged taggedDialogue
	err := json.Unmarshal(data, &tagged)
	if err != nil {
		return nil, fmt.Errorf("unable to decode the dialogue : %w", err)
	}

	switch tagged.State {
	case StartState{}.stateName():
		return decodeState[StartState](tagged.Data)
	case ReceiveFullNameState{}.stateName():
		return decodeState[ReceiveFullNameState](tagged.Data)
	case ReceiveAgeState{}.stateName():
		return decodeState[ReceiveAgeState](tagged.Data)
	case ReceiveLocationState{}.stateName():
		return decodeState[ReceiveLocationState](tagged.Data)
	default:
		return nil, fmt.Errorf("unknown dialogue state '%s'", tagged.State)
	}
}

func decodeState[S Dialogue](data json.RawMessage) (Dialogue, error) {
	var state S
	err := json.Unmarshal(data, &state)
	if err != nil {
		return nil, fmt.Errorf("unable to decode the '%s' state : %w", state.stateName(), err)
	}
	return state, nil
}
