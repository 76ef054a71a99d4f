package gemini

import (
	"context"
	"errors"
	"fmt"
)

// Service errors
var (
	ErrMissingAPIKey = errors.New("gemini api key is not configured")
	ErrNoContents    = errors.New("no contents to generate from")
	ErrUpstream      = errors.New("gemini upstream error")
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gemini-2.5-flash"

// Generation is the successful result of a generate call.
type Generation struct {
	Text  string
	Model string
}

// UpstreamError is returned when the Gemini API itself rejects a call, for
// example an invalid key, exhausted quota or rate limiting. Message is the
// API's own description and is safe to relay to clients.
type UpstreamError struct {
	Code    int
	Status  string
	Message string
}

func (e *UpstreamError) Error() string {
	if e == nil {
		return ErrUpstream.Error()
	}
	return fmt.Sprintf("gemini upstream error (code=%d status=%s): %s", e.Code, e.Status, e.Message)
}

// Unwrap enables errors.Is(err, ErrUpstream).
func (e *UpstreamError) Unwrap() error {
	return ErrUpstream
}

// Service generates text from one or more input strings.
//
// Implementations return either a Generation or an error; an *UpstreamError
// marks API-level failures, anything else is a transport or internal failure.
type Service interface {
	Generate(ctx context.Context, contents []string) (*Generation, error)
}

// unavailable fails every call with the error that prevented client construction.
type unavailable struct {
	err error
}

// Unavailable returns a Service whose calls all fail with err. It lets the server
// start without credentials and report the problem per request instead.
func Unavailable(err error) Service {
	if err == nil {
		err = ErrMissingAPIKey
	}
	return unavailable{err: err}
}

func (u unavailable) Generate(context.Context, []string) (*Generation, error) {
	return nil, u.err
}

// Compile-time interface check
var _ Service = unavailable{}
