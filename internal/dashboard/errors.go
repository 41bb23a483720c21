package dashboard

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrNotCached is returned by a Store when nothing has been cached for a kind yet.
var ErrNotCached = errors.New("no cached data for source")

// Reason classifies why a fetch failed.
type Reason string

const (
	ReasonTimeout    Reason = "timeout"
	ReasonNetwork    Reason = "network"
	ReasonHTTPStatus Reason = "http_status"
	ReasonMalformed  Reason = "malformed"
	ReasonNoAPIKey   Reason = "no_api_key"
)

// FetchError is the failure value returned by fetchers.
type FetchError struct {
	Kind   Kind
	Reason Reason
	Status int // HTTP status for ReasonHTTPStatus
	Err    error
}

func (e *FetchError) Error() string {
	switch e.Reason {
	case ReasonHTTPStatus:
		return fmt.Sprintf("%s: unexpected http status %d", e.Kind, e.Status)
	case ReasonNoAPIKey:
		return fmt.Sprintf("%s: api key is not configured", e.Kind)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Malformed builds a FetchError for an unusable payload.
func Malformed(kind Kind, format string, args ...any) *FetchError {
	return &FetchError{Kind: kind, Reason: ReasonMalformed, Err: fmt.Errorf(format, args...)}
}

// HTTPStatus builds a FetchError for a non-2xx response.
func HTTPStatus(kind Kind, status int) *FetchError {
	return &FetchError{Kind: kind, Reason: ReasonHTTPStatus, Status: status}
}

// NoAPIKey builds the FetchError returned before any request is attempted.
func NoAPIKey(kind Kind) *FetchError {
	return &FetchError{Kind: kind, Reason: ReasonNoAPIKey}
}

// AsFetchError converts any error into a *FetchError for kind.
func AsFetchError(kind Kind, err error) *FetchError {
	if err == nil {
		return nil
	}
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe
	}
	return &FetchError{Kind: kind, Reason: classify(err), Err: err}
}

// ReasonOf reports the failure reason of err.
func ReasonOf(err error) Reason {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Reason
	}
	return classify(err)
}

func classify(err error) Reason {
	if errors.Is(err, context.DeadlineExceeded) {
		return ReasonTimeout
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return ReasonTimeout
	}
	return ReasonNetwork
}
