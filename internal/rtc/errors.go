package rtc

import (
	"errors"
	"fmt"
)

var (
	ErrClosed           = errors.New("orchestrator closed")
	ErrNoSession        = errors.New("no session for peer")
	ErrSignalingError   = errors.New("signaling transport error")
	ErrConnectionFailed = errors.New("connection failed")
)

// Error wraps a negotiation failure with the operation and the remote
// peer it belongs to. Failures are always scoped to one session.
type Error struct {
	Op   string
	Peer string
	Err  error
}

func (e *Error) Error() string {
	if e.Peer != "" {
		return fmt.Sprintf("%s (peer %s): %v", e.Op, e.Peer, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(op, peer string, err error) *Error {
	return &Error{Op: op, Peer: peer, Err: err}
}
