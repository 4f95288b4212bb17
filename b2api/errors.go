package b2api

import (
	"errors"
	"fmt"
)

// ErrUnauthorized is wrapped by every RequestError caused by a rejected or
// expired token.
var ErrUnauthorized = errors.New("b2: unauthorized")

// AuthError is returned by Authorize when no client could be built.
type AuthError struct {
	Err error
}

func (e *AuthError) Error() string {
	return "b2 authorize account: " + e.Err.Error()
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// RequestError describes a failed call against the B2 API. Op names the API
// call (e.g. "b2_list_file_names").
type RequestError struct {
	Op         string
	StatusCode int
	Code       string
	Message    string
	Err        error
}

func (e *RequestError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Code != "":
		return fmt.Sprintf("%s: status %d (%s): %s", e.Op, e.StatusCode, e.Code, e.Message)
	case e.StatusCode != 0:
		return fmt.Sprintf("%s: status %d", e.Op, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("%s: %s", e.Op, e.Err.Error())
	case e.Message != "":
		return e.Op + ": " + e.Message
	}
	return e.Op + ": request failed"
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// LocalIOError wraps failures reading or writing local files.
type LocalIOError struct {
	Op   string
	Path string
	Err  error
}

func (e *LocalIOError) Error() string {
	return fmt.Sprintf("%s %s: %s", e.Op, e.Path, e.Err.Error())
}

func (e *LocalIOError) Unwrap() error {
	return e.Err
}
