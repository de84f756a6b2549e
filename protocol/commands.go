package protocol

import "errors"

// Bridge command IDs. Host-to-MCU commands are below 10, MCU-to-host
// responses and events from 10 up.
const (
	CmdIdentify     = 0 // no args
	CmdConfigurePin = 1 // pin
	CmdSetPin       = 2 // pin, value
	CmdTransfer     = 3 // bytes

	CmdIdentifyResponse = 10 // version string
	CmdTransferResponse = 11 // bytes
	CmdIRQ              = 12 // pin
	CmdError            = 13 // code, command
)

// Error codes carried by CmdError
const (
	ErrCodeUnknownCommand = 1
	ErrCodeMalformed      = 2
	ErrCodePin            = 3
	ErrCodeBus            = 4
)

// MaxTransferData is the largest SPI transfer one frame can carry
const MaxTransferData = MessagePayloadMax - 2

var (
	ErrUnknownCommand = errors.New("unknown command")
	ErrTransferTooBig = errors.New("transfer exceeds frame capacity")
)

// PinCommand is the argument of CmdConfigurePin, CmdSetPin and CmdIRQ
type PinCommand struct {
	Pin   uint32
	Value bool
}

// EncodeSetPin writes a CmdSetPin command
func EncodeSetPin(out OutputBuffer, pin uint32, value bool) {
	EncodeVLQUint(out, CmdSetPin)
	EncodeVLQUint(out, pin)
	EncodeVLQUint(out, boolArg(value))
}

// DecodeSetPin reads the arguments of CmdSetPin
func DecodeSetPin(args *[]byte) (PinCommand, error) {
	pin, err := DecodeVLQUint(args)
	if err != nil {
		return PinCommand{}, err
	}
	value, err := DecodeVLQUint(args)
	if err != nil {
		return PinCommand{}, err
	}
	return PinCommand{Pin: pin, Value: value != 0}, nil
}

// EncodePin writes a command whose only argument is a pin
func EncodePin(out OutputBuffer, cmdID uint16, pin uint32) {
	EncodeVLQUint(out, uint32(cmdID))
	EncodeVLQUint(out, pin)
}

// DecodePin reads a single pin argument
func DecodePin(args *[]byte) (uint32, error) {
	return DecodeVLQUint(args)
}

// EncodeTransfer writes a command carrying SPI data, CmdTransfer from the
// host or CmdTransferResponse from the MCU
func EncodeTransfer(out OutputBuffer, cmdID uint16, data []byte) error {
	if len(data) > MaxTransferData {
		return ErrTransferTooBig
	}
	EncodeVLQUint(out, uint32(cmdID))
	EncodeVLQBytes(out, data)
	return nil
}

// DecodeTransfer reads the data of a transfer command. The result aliases
// args.
func DecodeTransfer(args *[]byte) ([]byte, error) {
	return DecodeVLQBytes(args)
}

// EncodeError writes a CmdError event
func EncodeError(out OutputBuffer, code uint8, cmdID uint16) {
	EncodeVLQUint(out, CmdError)
	EncodeVLQUint(out, uint32(code))
	EncodeVLQUint(out, uint32(cmdID))
}

// DecodeError reads the arguments of CmdError
func DecodeError(args *[]byte) (code uint8, cmdID uint16, err error) {
	c, err := DecodeVLQUint(args)
	if err != nil {
		return 0, 0, err
	}
	id, err := DecodeVLQUint(args)
	if err != nil {
		return 0, 0, err
	}
	return uint8(c), uint16(id), nil
}

// ErrorCodeName returns a short label for a CmdError code
func ErrorCodeName(code uint8) string {
	switch code {
	case ErrCodeUnknownCommand:
		return "unknown command"
	case ErrCodeMalformed:
		return "malformed arguments"
	case ErrCodePin:
		return "pin error"
	case ErrCodeBus:
		return "bus error"
	default:
		return "unknown error"
	}
}

func boolArg(v bool) uint32 {
	if v {
		return 1
	}
	return 0
}
