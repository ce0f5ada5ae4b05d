package serp

import "fmt"

// TransportError wraps a network-level failure while calling the provider.
// It is retried on the next scheduled cycle, never within one.
type TransportError struct {
	Keyword string
	Err     error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("serp transport failure for %q: %v", e.Keyword, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// StatusError reports a non-success HTTP status, an undecodable body, or a
// provider-level failure embedded in the response envelope or task.
type StatusError struct {
	Keyword    string
	HTTPStatus int
	// Code is the DataForSEO status code carried in the envelope or task.
	// Anything other than 20000 is a failure.
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("serp provider status %d for %q: %s", e.Code, e.Keyword, e.Message)
	}
	return fmt.Sprintf("serp provider HTTP %d for %q: %s", e.HTTPStatus, e.Keyword, e.Message)
}
