package common

import (
	"errors"
	"fmt"
)

var (
	ErrHandshakeTimeout = errors.New("handshake timeout")
	ErrHandshakeRefused = errors.New("handshake refused")
	ErrLivenessTimeout  = errors.New("liveness timeout")
	ErrShutdown         = errors.New("shutdown")
)

// TransportError is a socket level failure, fatal for the affected
// connection only.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport %s %s", e.Op, e.Err.Error())
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// DecodeError reports a malformed payload, the packet is dropped and
// processing continues.
type DecodeError struct {
	Size int
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %d bytes %s", e.Size, e.Err.Error())
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

func IsDecodeError(err error) bool {
	var de *DecodeError
	return errors.As(err, &de)
}
