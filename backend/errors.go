package backend

import "fmt"

// NetworkError is a transport-level failure: the request never produced
// an HTTP response. Upload retries these with backoff; everywhere else
// they are fatal for the operation.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %v", e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ServerError is an HTTP error response or an explicit error field in
// the body. Never retried automatically; Message is surfaced verbatim
// when the server provided one.
type ServerError struct {
	Status  int
	Message string
}

func (e *ServerError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("server error (HTTP %d)", e.Status)
}
