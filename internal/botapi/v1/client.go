package botapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

// Client provides methods to interact with the Bot API
type Client interface {
	// GetUpdates receives incoming updates using long polling
	GetUpdates(ctx context.Context, request GetUpdatesRequest) ([]UpdateEntry, *APIError, error)

	// SendMessage sends a text message to a chat
	SendMessage(ctx context.Context, request SendMessageRequest) (*Message, *APIError, error)

	// DeleteMessage deletes a message, including service messages
	DeleteMessage(ctx context.Context, request DeleteMessageRequest) (*APIError, error)

	// AnswerCallbackQuery sends an answer to a callback query sent from an inline keyboard
	AnswerCallbackQuery(ctx context.Context, request AnswerCallbackQueryRequest) (*APIError, error)

	// SetWebhook specifies a URL which receives incoming updates instead of long polling
	SetWebhook(ctx context.Context, request SetWebhookRequest) (*APIError, error)

	// DeleteWebhook removes the webhook integration to switch back to long polling
	DeleteWebhook(ctx context.Context, request DeleteWebhookRequest) (*APIError, error)

	// GetMe gets basic information about the bot
	GetMe(ctx context.Context) (*User, *APIError, error)
}

// client is an implementation of the Client interface
type client struct {
	apiURL     string
	authToken  string
	httpClient http.Client
}

// DefaultAPIURL is used as the default URL to the Bot API
const DefaultAPIURL = "https://api.telegram.org"

// DefaultHTTPClient is used as the default HTTP client for making requests to the Bot API
var DefaultHTTPClient = http.Client{}

// NewClient creates a new instance of the Client with the specified bot token. It uses the DefaultAPIURL as a URL to
// the Bot API and the DefaultHTTPClient as an HTTP client for making requests to the API. If it is needed, these
// parameters could be redefined by options.
func NewClient(token string, options ...Option) Client {
	client := &client{
		apiURL:     DefaultAPIURL,
		authToken:  token,
		httpClient: DefaultHTTPClient,
	}

	for _, option := range options {
		option(client)
	}
	return client
}

// Option configures the Client behavior
type Option func(*client)

// WithHTTPClient creates an option which defines an HTTP client used by the Client
func WithHTTPClient(httpClient http.Client) Option {
	return func(c *client) {
		c.httpClient = httpClient
	}
}

// WithAPIURL creates an option which defines a Bot API URL used by the Client
func WithAPIURL(apiURL string) Option {
	return func(c *client) {
		c.apiURL = apiURL
	}
}

// responseEnvelope is the common shape of every Bot API response
type responseEnvelope struct {
	Ok          bool                `json:"ok"`
	Result      json.RawMessage     `json:"result,omitempty"`
	ErrorCode   int                 `json:"error_code,omitempty"`
	Description string              `json:"description,omitempty"`
	Parameters  *ResponseParameters `json:"parameters,omitempty"`
}

// execute calls the Bot API method and decodes its result into the result argument if it is not nil
func (c *client) execute(ctx context.Context, method string, request, result any) (*APIError, error) {
	httpRequest, err := c.newHTTPRequest(ctx, method, request)
	if err != nil {
		return nil, err
	}

	httpResponse, err := c.httpClient.Do(httpRequest)
	if err != nil {
		return nil, fmt.Errorf("the following error occurred during the request execution : %w", err)
	}
	defer httpResponse.Body.Close()

	if !isSuccessful(httpResponse) {
		return fetchAPIErrorFrom(httpResponse)
	}

	envelope := new(responseEnvelope)
	err = json.NewDecoder(httpResponse.Body).Decode(envelope)
	if err != nil {
		return nil, fmt.Errorf("unable to decode the response body : %w", err)
	}

	if !envelope.Ok {
		return envelope.apiError(httpResponse.StatusCode), nil
	}

	if result == nil {
		return nil, nil
	}

	err = json.Unmarshal(envelope.Result, result)
	if err != nil {
		return nil, fmt.Errorf("unable to decode the response result : %w", err)
	}
	return nil, nil
}

func (c *client) newHTTPRequest(ctx context.Context, method string, request any) (*http.Request, error) {
	encodedBody, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("unable to encode the request body in JSON format : %w", err)
	}
	bodyReader := bytes.NewReader(encodedBody)

	fullURL, err := url.JoinPath(c.apiURL, "/bot"+c.authToken, method)
	if err != nil {
		return nil, fmt.Errorf("unable to construct the request URL : %w", err)
	}

	httpRequest, err := http.NewRequestWithContext(ctx, http.MethodPost, fullURL, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("unable to create a new HTTP request : %w", err)
	}

	httpRequest.Header.Add("Content-Type", "application/json")

	return httpRequest, nil
}
