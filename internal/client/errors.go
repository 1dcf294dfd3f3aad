package client

import "errors"

// Error kinds. Every *Error matches exactly one of these with errors.Is.
var (
	ErrConnection = errors.New("connection failure")
	ErrDecode     = errors.New("decode failure")
	ErrTransport  = errors.New("transport error")
	ErrEncode     = errors.New("encode failure")
)

// Error is what a Handler receives through OnError. Its message is the
// human-readable description shown to the user.
type Error struct {
	Kind error
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Msg
	}
	return e.Msg + ": " + e.Err.Error()
}

func (e *Error) Is(target error) bool { return target == e.Kind }

func (e *Error) Unwrap() error { return e.Err }

func newError(kind error, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}
