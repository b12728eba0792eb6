package botapi

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// APIError represents an error from the Bot API
type APIError struct {
	StatusCode  int
	ErrorCode   int
	Description string
	Parameters  *ResponseParameters
}

// ResponseParameters describes why a request was unsuccessful and how it could be repeated
type ResponseParameters struct {
	// The group has been migrated to a supergroup with the specified identifier
	MigrateToChatId int64 `json:"migrate_to_chat_id,omitempty"`

	// The number of seconds left to wait before the request can be repeated
	RetryAfter int `json:"retry_after,omitempty"`
}

// Error returns a string representation of the error
func (e *APIError) Error() string {
	return fmt.Sprintf("status code: %d, error code: %d, description: '%s'", e.StatusCode, e.ErrorCode, e.Description)
}

func (e responseEnvelope) apiError(statusCode int) *APIError {
	return &APIError{
		StatusCode:  statusCode,
		ErrorCode:   e.ErrorCode,
		Description: e.Description,
		Parameters:  e.Parameters,
	}
}

// fetchAPIErrorFrom fetches a Bot API error from the HTTP response. Please note that this function does not close
// the response body after reading.
func fetchAPIErrorFrom(response *http.Response) (*APIError, error) {
	envelope := new(responseEnvelope)
	err := json.NewDecoder(response.Body).Decode(envelope)
	if err != nil {
		return nil, fmt.Errorf("unable to decode the response body : %w", err)
	}

	return envelope.apiError(response.StatusCode), nil
}
