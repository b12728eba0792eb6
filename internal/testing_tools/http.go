package testing_tools

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"gotest.tools/v3/assert"
	"gotest.tools/v3/assert/cmp"
)

// Request represents an HTTP request intended for testing
type Request struct {
	Method string
	Path   string
	Header Header
	Body   []byte
}

// NewRequestFrom creates a new Request from the http.Request
func NewRequestFrom(request *http.Request) (Request, error) {
	body, err := io.ReadAll(request.Body)
	if err != nil {
		return Request{}, fmt.Errorf("unable to read the request body : %w", err)
	}

	return Request{
		Method: request.Method,
		Path:   request.RequestURI,
		Header: newHeaderFrom(request.Header),
		Body:   body,
	}, nil
}

// CompareRequests compares the actual request with the expected one and succeeds if they are equal. Only the headers
// listed in the expected request are compared.
func CompareRequests(actual, expected Request) cmp.Comparison {
	var comparisons []cmp.Comparison

	methodComparison := cmp.Equal(actual.Method, expected.Method)
	comparisons = append(comparisons, methodComparison)

	pathComparison := cmp.Equal(actual.Path, expected.Path)
	comparisons = append(comparisons, pathComparison)

	headerComparison := compareHeaders(actual.Header, expected.Header)
	comparisons = append(comparisons, headerComparison)

	bodyComparison := compareBodies(actual, expected)
	comparisons = append(comparisons, bodyComparison)

	return func() cmp.Result {
		return executeComparisons(comparisons)
	}
}

func compareHeaders(actual, expected Header) cmp.Comparison {
	return func() cmp.Result {
		for key, expectedValue := range expected {
			actualValue, found := actual[key]
			if !found {
				return cmp.ResultFailure(fmt.Sprintf("the header %q is missing", key))
			}
			if actualValue != expectedValue {
				return cmp.ResultFailure(fmt.Sprintf("the header %q is %q, expected %q", key, actualValue, expectedValue))
			}
		}
		return cmp.ResultSuccess
	}
}

func compareBodies(requestX, requestY Request) cmp.Comparison {
	contentTypeX := requestX.Header["Content-Type"]
	contentTypeY := requestY.Header["Content-Type"]

	const contentTypeJSON = "application/json"

	switch {
	case strings.Contains(contentTypeX, contentTypeJSON) && strings.Contains(contentTypeY, contentTypeJSON):
		return compareJSONContent(requestX.Body, requestY.Body)

	default:
		return cmp.DeepEqual(requestX.Body, requestY.Body)
	}
}

func compareJSONContent(bodyX, bodyY []byte) cmp.Comparison {
	return func() cmp.Result {
		minifiedBodyX, err := MinifyJSON(bodyX)
		if err != nil {
			return cmp.ResultFromError(err)
		}

		minifiedBodyY, err := MinifyJSON(bodyY)
		if err != nil {
			return cmp.ResultFromError(err)
		}

		return cmp.Equal(string(minifiedBodyX), string(minifiedBodyY))()
	}
}

func executeComparisons(comparisons []cmp.Comparison) cmp.Result {
	for _, comparisonFunc := range comparisons {
		result := comparisonFunc()
		if !result.Success() {
			return result
		}
	}
	return cmp.ResultSuccess
}

// MinifyJSON removes spaces from the JSON data and escapes some characters
func MinifyJSON(src []byte) ([]byte, error) {
	if len(src) == 0 {
		return []byte{}, nil
	}

	bufferForCompression := new(bytes.Buffer)
	err := json.Compact(bufferForCompression, src)
	if err != nil {
		return nil, fmt.Errorf("unable to compact JSON : %w", err)
	}

	bufferForEscape := new(bytes.Buffer)
	json.HTMLEscape(bufferForEscape, bufferForCompression.Bytes())

	return bufferForEscape.Bytes(), nil
}

// Header represents an HTTP header intended for testing
type Header map[string]string

// newHeaderFrom creates a new Header from the http.Header
func newHeaderFrom(httpHeader http.Header) Header {
	header := make(Header)
	for key := range httpHeader {
		value := httpHeader.Get(key)
		header[key] = value
	}
	return header
}

// Response represents an HTTP response intended for testing
type Response struct {
	StatusCode int
	Body       []byte
}

// WriteTo writes the HTTP response to the response writer
func (r *Response) WriteTo(responseWriter http.ResponseWriter) error {
	responseWriter.Header().Set("Content-Type", "application/json")
	responseWriter.WriteHeader(r.StatusCode)

	minifiedBody, err := MinifyJSON(r.Body)
	if err != nil {
		return err
	}
	_, err = responseWriter.Write(minifiedBody)
	return err
}

// NewAPIServer starts a mock Bot API server which checks that the incoming request equals the expected one and
// answers with the given response. The server is closed when the test ends.
func NewAPIServer(t *testing.T, expected Request, response Response) string {
	handler := http.HandlerFunc(func(responseWriter http.ResponseWriter, request *http.Request) {
		actual, err := NewRequestFrom(request)
		assert.Check(t, cmp.Nil(err))
		assert.Check(t, CompareRequests(actual, expected))

		err = response.WriteTo(responseWriter)
		assert.Check(t, cmp.Nil(err))
	})

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return server.URL
}
