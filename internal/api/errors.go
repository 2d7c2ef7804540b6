package api

import (
	"errors"
	"fmt"
	"net/http"
)

// ValidationError reports a client-side precondition failure. It is returned
// before any network call is made.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// AuthError means the server rejected the credentials or session. Detail is
// the server-supplied reason when one was usable.
type AuthError struct {
	Detail string
}

func (e *AuthError) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	return "authentication failed"
}

// ServerError is a non-success HTTP response. Detail carries the optional
// "detail" string from the error body.
type ServerError struct {
	Status int
	Detail string
}

func (e *ServerError) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	return fmt.Sprintf("server returned status %d", e.Status)
}

// NetworkError is a transport-level failure: the request never completed or
// the response body could not be read as the expected shape.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// IsUnauthorized reports whether err is the server rejecting the session
// itself. Callers use it to tell an expired session apart from an ordinary
// failed operation.
func IsUnauthorized(err error) bool {
	var se *ServerError
	return errors.As(err, &se) && se.Status == http.StatusUnauthorized
}
