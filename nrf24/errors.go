package nrf24

import (
	"errors"

	"gonrf/core"
)

// Driver errors.
var (
	// ErrInvalidAddressWidth indicates an address width outside 3-5 bytes.
	ErrInvalidAddressWidth = errors.New("invalid address width")

	// ErrInvalidP2P5Address indicates a pipe 2-5 address whose upper bytes
	// differ from pipe 1's.
	ErrInvalidP2P5Address = errors.New("pipe 2-5 address must share pipe 1 upper bytes")

	// ErrInvalidArgument indicates a nil handle or missing collaborator.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNotConfigured indicates an entry point was called before Configure.
	ErrNotConfigured = errors.New("device not configured")

	// ErrProtocolViolation indicates a transaction was started while another
	// was still outstanding.
	ErrProtocolViolation = errors.New("transaction already outstanding")

	// ErrPayloadTooLarge indicates a register payload wider than any register.
	ErrPayloadTooLarge = errors.New("register payload too large")
)

// PipeError reports a configuration failure on a specific pipe.
type PipeError struct {
	Pipe int
	Err  error
}

func (e *PipeError) Error() string {
	return "pipe " + core.Itoa(e.Pipe) + ": " + e.Err.Error()
}

func (e *PipeError) Unwrap() error {
	return e.Err
}
