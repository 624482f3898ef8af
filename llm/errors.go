package llm

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownProvider  = errors.New("unknown provider")
	ErrMissingAPIKey    = errors.New("an API key is required for the OpenAI-compatible provider")
	ErrMissingBaseURL   = errors.New("a base URL is required for the OpenAI-compatible provider")
	ErrEmptyTopic       = errors.New("topic must not be empty")
	ErrEmptyInstruction = errors.New("refine instruction must not be empty")
	ErrInvalidOutput    = errors.New("the model response was not valid output, please retry")
)

// APIError is a non-2xx response from an OpenAI-compatible endpoint.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (status %d): %s", e.StatusCode, e.Body)
}

// ErrorKind groups errors by how the UI reacts to them.
type ErrorKind int

const (
	KindOther ErrorKind = iota
	KindConfig
	KindTransport
	KindOutput
)

func (k ErrorKind) String() string {
	switch k {
	case KindConfig:
		return "configuration"
	case KindTransport:
		return "transport"
	case KindOutput:
		return "output"
	default:
		return "other"
	}
}

// Classify maps an error returned by this package to its kind.
func Classify(err error) ErrorKind {
	var apiErr *APIError
	var transportErr *TransportError
	switch {
	case err == nil:
		return KindOther
	case errors.Is(err, ErrUnknownProvider), errors.Is(err, ErrMissingAPIKey), errors.Is(err, ErrMissingBaseURL):
		return KindConfig
	case errors.As(err, &apiErr), errors.As(err, &transportErr):
		return KindTransport
	case errors.Is(err, ErrInvalidOutput):
		return KindOutput
	default:
		return KindOther
	}
}

// TransportError wraps a failure to reach the backend at all.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("error sending request: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
