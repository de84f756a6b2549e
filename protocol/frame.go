package protocol

import (
	"errors"
	"sync/atomic"
)

// ErrFrameTooLong is returned when a payload does not fit in one frame
var ErrFrameTooLong = errors.New("frame exceeds maximum length")

// EncodeFrame writes one frame with sequence byte seq. payload writes the
// frame contents. On error nothing is left in out.
func EncodeFrame(out OutputBuffer, seq byte, payload func(output OutputBuffer)) error {
	cursor := out.CurPosition()

	out.Output([]byte{0, seq})
	if payload != nil {
		payload(out)
	}

	length := len(out.DataSince(cursor)) + MessageTrailerSize
	if length > MessageLengthMax {
		if s, ok := out.(interface{ Truncate(int) }); ok {
			s.Truncate(cursor)
		}
		return ErrFrameTooLong
	}
	out.Update(cursor+MessagePositionLen, uint8(length))

	crc := CRC16(out.DataSince(cursor))
	out.Output([]byte{
		uint8(crc >> 8),
		uint8(crc & 0xFF),
		MessageValueSync,
	})
	return nil
}

// EncodeCommand writes a frame holding a single command
func EncodeCommand(out OutputBuffer, seq byte, cmdID uint16, args func(output OutputBuffer)) error {
	return EncodeFrame(out, seq, func(output OutputBuffer) {
		EncodeVLQUint(output, uint32(cmdID))
		if args != nil {
			args(output)
		}
	})
}

// CommandHandler is called once per command in a received frame. args is
// advanced past the arguments the handler consumes.
type CommandHandler func(cmdID uint16, args *[]byte) error

// DecoderStats counts link events. Fields may be read from any goroutine.
type DecoderStats struct {
	Frames      atomic.Uint32
	CRCErrors   atomic.Uint32
	Resyncs     atomic.Uint32
	SeqGaps     atomic.Uint32
	BadCommands atomic.Uint32
}

// Decoder extracts frames addressed to dest from a byte stream and
// dispatches their commands. After any framing error it discards input up to
// the next sync byte.
type Decoder struct {
	dest     byte
	handler  CommandHandler
	synced   bool
	haveSeq  bool
	expected byte

	Stats DecoderStats
}

// NewDecoder creates a decoder for frames whose seq high nibble is dest
func NewDecoder(dest byte, handler CommandHandler) *Decoder {
	return &Decoder{
		dest:    dest & MessageDestMask,
		handler: handler,
		synced:  true,
	}
}

// Receive consumes every complete frame in input. A trailing partial frame
// stays in input for the next call.
func (d *Decoder) Receive(input InputBuffer) {
	data := input.Data()

	for len(data) > 0 {
		if !d.synced {
			i := indexSync(data)
			if i < 0 {
				data = nil
				break
			}
			data = data[i+1:]
			d.synced = true
			d.Stats.Resyncs.Add(1)
			continue
		}

		if data[0] == MessageValueSync {
			data = data[1:]
			continue
		}
		if len(data) < MessageLengthMin {
			break
		}

		msgLen := int(data[MessagePositionLen])
		if msgLen < MessageLengthMin || msgLen > MessageLengthMax {
			d.synced = false
			continue
		}
		seq := data[MessagePositionSeq]
		if seq&MessageDestMask != d.dest {
			d.synced = false
			continue
		}
		if len(data) < msgLen {
			break
		}
		if data[msgLen-MessageTrailerSync] != MessageValueSync {
			d.synced = false
			continue
		}

		frameCRC := uint16(data[msgLen-MessageTrailerCRC])<<8 |
			uint16(data[msgLen-MessageTrailerCRC+1])
		if frameCRC != CRC16(data[:msgLen-MessageTrailerSize]) {
			d.Stats.CRCErrors.Add(1)
			d.synced = false
			continue
		}

		frame := data[MessageHeaderSize : msgLen-MessageTrailerSize]
		data = data[msgLen:]

		d.checkSequence(seq)
		d.Stats.Frames.Add(1)
		d.dispatch(frame)
	}

	consumed := input.Available() - len(data)
	if consumed > 0 {
		input.Pop(consumed)
	}
}

// Reset forgets sequence state and partial-frame sync
func (d *Decoder) Reset() {
	d.synced = true
	d.haveSeq = false
	d.expected = 0
}

func (d *Decoder) checkSequence(seq byte) {
	if d.haveSeq && seq != d.expected {
		d.Stats.SeqGaps.Add(1)
	}
	d.haveSeq = true
	d.expected = NextSequence(seq)
}

func (d *Decoder) dispatch(frame []byte) {
	for len(frame) > 0 {
		cmdID, err := DecodeVLQUint(&frame)
		if err != nil {
			d.Stats.BadCommands.Add(1)
			return
		}
		if d.handler == nil {
			return
		}
		if err := d.handler(uint16(cmdID), &frame); err != nil {
			// Arguments of an unknown command cannot be skipped
			d.Stats.BadCommands.Add(1)
			return
		}
	}
}

func indexSync(data []byte) int {
	for i, b := range data {
		if b == MessageValueSync {
			return i
		}
	}
	return -1
}
