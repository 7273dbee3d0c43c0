package api

import (
	"errors"
	"fmt"
	"net/http"
)

// Error kinds. Every error returned by Client matches exactly one of these
// with errors.Is.
var (
	ErrNetwork    = errors.New("network error")
	ErrAuth       = errors.New("not authorized")
	ErrValidation = errors.New("rejected by server")
	ErrConflict   = errors.New("already exists")
	ErrNotFound   = errors.New("not found")
	ErrServer     = errors.New("server error")
)

// Error describes a failed API call.
type Error struct {
	Op      string // client operation, e.g. "login"
	Status  int    // HTTP status, 0 when the request never completed
	Message string // server supplied message, if any
	Kind    error  // one of the Err* kinds
	Err     error  // underlying transport or decode error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Status != 0 {
		if msg == "" {
			return fmt.Sprintf("%s: %v (%d)", e.Op, e.Kind, e.Status)
		}
		return fmt.Sprintf("%s: %v (%d): %s", e.Op, e.Kind, e.Status, msg)
	}
	if msg == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %s", e.Op, e.Kind, msg)
}

func (e *Error) Is(target error) bool {
	return target == e.Kind
}

func (e *Error) Unwrap() error {
	return e.Err
}

// kindForStatus maps a non-2xx status onto an error kind.
func kindForStatus(status int) error {
	switch status {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return ErrValidation
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrAuth
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusConflict:
		return ErrConflict
	default:
		return ErrServer
	}
}
