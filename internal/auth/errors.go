package auth

import (
	"fmt"
	"net/http"
)

// ConnectionError means a backing store could not be reached at startup
type ConnectionError struct {
	Store string
	Err   error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("could not connect to %s: %v", e.Store, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// NotFoundError answers a path no router serves
type NotFoundError struct {
	Method string
	Path   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("cannot %s %s", e.Method, e.Path)
}

// RequestError is a failed request with the status it should be answered with
type RequestError struct {
	Status  int
	Message string
	Err     error
}

func (e *RequestError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *RequestError) Unwrap() error { return e.Err }

func badRequest(message string, err error) *RequestError {
	return &RequestError{Status: http.StatusBadRequest, Message: message, Err: err}
}

func unauthorized(message string) *RequestError {
	return &RequestError{Status: http.StatusUnauthorized, Message: message}
}

func internal(message string, err error) *RequestError {
	return &RequestError{Status: http.StatusInternalServerError, Message: message, Err: err}
}
