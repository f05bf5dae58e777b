// Package apierr carries an HTTP status and machine-readable code alongside
// an error, so the question sync service can decide the response status (400
// for bad input, 404 for an unknown question) without the handler inspecting
// error strings. Pipeline failures use SyncFailure instead; apierr is only
// for errors that never touched the vector index.
package apierr

import "fmt"

type Error struct {
	Status int
	Code   string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}
