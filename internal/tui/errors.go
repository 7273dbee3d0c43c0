package tui

import (
	"errors"

	"github.com/pders01/snooze/internal/api"
)

// opError is a local failure (store, renderer) named by the step that
// failed, the same way api.Error names its operation.
type opError struct {
	op  string
	err error
}

func (e *opError) Error() string { return e.op + ": " + e.err.Error() }

func (e *opError) Unwrap() error { return e.err }

func wrapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &opError{op: op, err: err}
}

// describeErr turns err into status bar text. Server messages win over
// the generic wording for their kind.
func describeErr(err error) string {
	var apiErr *api.Error
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}

	var local *opError
	switch {
	case errors.Is(err, api.ErrNetwork):
		return "cannot reach the server"
	case errors.Is(err, api.ErrAuth):
		return "not authorized"
	case errors.As(err, &local):
		return local.Error()
	default:
		return err.Error()
	}
}
