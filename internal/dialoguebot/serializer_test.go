package dialoguebot

import (
	"testing"

	"gotest.tools/v3/assert"
	"gotest.tools/v3/assert/cmp"
)

func TestSerializer(t *testing.T) {
	dialogues := []Dialogue{
		StartState{},
		ReceiveFullNameState{},
		ReceiveAgeState{FullName: "Alice Smith"},
		ReceiveLocationState{FullName: "Alice Smith", Age: 30},
	}

	for _, dialogue := range dialogues {
		data, err := Serializer{}.Serialize(dialogue)
		assert.NilError(t, err)

		restored, err := Serializer{}.Deserialize(data)
		assert.NilError(t, err)
		assert.Check(t, cmp.DeepEqual(restored, dialogue))
	}
}

func TestSerializer_format(t *testing.T) {
	data, err := Serializer{}.Serialize(ReceiveLocationState{FullName: "Alice Smith", Age: 30})
	assert.NilError(t, err)
	assert.Check(t, cmp.Equal(string(data),
		`{"state":"receive_location","data":{"full_name":"Alice Smith","age":30}}`))
}

func TestSerializer_errors(t *testing.T) {
	testCases := []struct {
		name        string
		data        string
		errContains string
	}{
		{
			name:        "Error — unknown state",
			data:        `{"state":"receive_email","data":{}}`,
			errContains: "unknown dialogue state 'receive_email'",
		},
		{
			name:        "Error — the state data is broken",
			data:        `{"state":"receive_location","data":{"age":"thirty"}}`,
			errContains: "unable to decode the 'receive_location' state",
		},
		{
			name:        "Error — not JSON",
			data:        `receive_age`,
			errContains: "unable to decode the dialogue",
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			_, err := Serializer{}.Deserialize([]byte(testCase.data))
			assert.Check(t, cmp.ErrorContains(err, testCase.errContains))
		})
	}

	_, err := Serializer{}.Serialize(nil)
	assert.Check(t, cmp.ErrorContains(err, "unable to serialize an empty dialogue"))
}
