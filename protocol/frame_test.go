package protocol

import (
	"bytes"
	"errors"
	"testing"
)

type received struct {
	cmdID uint16
	data  []byte
}

func collect(out *[]received) CommandHandler {
	return func(cmdID uint16, args *[]byte) error {
		switch cmdID {
		case CmdTransfer, CmdTransferResponse:
			data, err := DecodeTransfer(args)
			if err != nil {
				return err
			}
			*out = append(*out, received{cmdID, append([]byte(nil), data...)})
		case CmdSetPin:
			pc, err := DecodeSetPin(args)
			if err != nil {
				return err
			}
			*out = append(*out, received{cmdID, []byte{byte(pc.Pin), byte(boolArg(pc.Value))}})
		case CmdIdentify:
			*out = append(*out, received{cmdID, nil})
		default:
			return ErrUnknownCommand
		}
		return nil
	}
}

func encodeTransferFrame(t *testing.T, seq byte, data []byte) []byte {
	t.Helper()
	out := NewScratchOutput()
	var encErr error
	err := EncodeFrame(out, seq, func(o OutputBuffer) {
		encErr = EncodeTransfer(o, CmdTransfer, data)
	})
	if err != nil || encErr != nil {
		t.Fatalf("encode failed: %v %v", err, encErr)
	}
	return append([]byte(nil), out.Result()...)
}

func TestEncodeFrameLayout(t *testing.T) {
	out := NewScratchOutput()
	if err := EncodeCommand(out, DestMCU, CmdIdentify, nil); err != nil {
		t.Fatalf("EncodeCommand failed: %v", err)
	}
	frame := out.Result()

	if len(frame) != 6 || frame[0] != 6 || frame[1] != DestMCU || frame[2] != CmdIdentify {
		t.Fatalf("frame = % X", frame)
	}
	crc := CRC16(frame[:3])
	if frame[3] != byte(crc>>8) || frame[4] != byte(crc) || frame[5] != MessageValueSync {
		t.Errorf("trailer = % X, expected CRC %04X + 7E", frame[3:], crc)
	}
}

func TestEncodeFrameTooLong(t *testing.T) {
	out := NewScratchOutput()
	out.Output([]byte{0xAA})
	err := EncodeFrame(out, DestMCU, func(o OutputBuffer) {
		o.Output(make([]byte, MessagePayloadMax+1))
	})
	if !errors.Is(err, ErrFrameTooLong) {
		t.Fatalf("expected ErrFrameTooLong, got %v", err)
	}
	if !bytes.Equal(out.Result(), []byte{0xAA}) {
		t.Errorf("partial frame left behind: % X", out.Result())
	}

	if err := EncodeTransfer(NewScratchOutput(), CmdTransfer, make([]byte, MaxTransferData+1)); !errors.Is(err, ErrTransferTooBig) {
		t.Errorf("expected ErrTransferTooBig, got %v", err)
	}
	if err := encodeFrameErr(make([]byte, MaxTransferData)); err != nil {
		t.Errorf("largest transfer rejected: %v", err)
	}
}

func encodeFrameErr(data []byte) error {
	var encErr error
	err := EncodeFrame(NewScratchOutput(), DestMCU, func(o OutputBuffer) {
		encErr = EncodeTransfer(o, CmdTransfer, data)
	})
	if err != nil {
		return err
	}
	return encErr
}

func TestDecoderRoundTrip(t *testing.T) {
	var got []received
	d := NewDecoder(DestMCU, collect(&got))

	stream := encodeTransferFrame(t, DestMCU, []byte{0x20, 0x3B})
	stream = append(stream, encodeTransferFrame(t, NextSequence(DestMCU), []byte{0x17, 0xFF})...)
	d.Receive(NewSliceInputBuffer(stream))

	if len(got) != 2 {
		t.Fatalf("got %d commands, expected 2", len(got))
	}
	if !bytes.Equal(got[0].data, []byte{0x20, 0x3B}) || !bytes.Equal(got[1].data, []byte{0x17, 0xFF}) {
		t.Errorf("payloads = % X / % X", got[0].data, got[1].data)
	}
	if d.Stats.Frames.Load() != 2 || d.Stats.SeqGaps.Load() != 0 {
		t.Errorf("frames %d gaps %d", d.Stats.Frames.Load(), d.Stats.SeqGaps.Load())
	}
}

func TestDecoderMultipleCommandsPerFrame(t *testing.T) {
	out := NewScratchOutput()
	err := EncodeFrame(out, DestMCU, func(o OutputBuffer) {
		EncodeSetPin(o, 17, false)
		_ = EncodeTransfer(o, CmdTransfer, []byte{0xE1})
		EncodeSetPin(o, 17, true)
	})
	if err != nil {
		t.Fatalf("EncodeFrame failed: %v", err)
	}

	var got []received
	NewDecoder(DestMCU, collect(&got)).Receive(NewSliceInputBuffer(out.Result()))

	if len(got) != 3 || got[0].cmdID != CmdSetPin || got[1].cmdID != CmdTransfer || got[2].cmdID != CmdSetPin {
		t.Fatalf("commands = %+v", got)
	}
	if got[0].data[1] != 0 || got[2].data[1] != 1 {
		t.Errorf("pin values = %d, %d", got[0].data[1], got[2].data[1])
	}
}

func TestDecoderPartialFrame(t *testing.T) {
	var got []received
	d := NewDecoder(DestMCU, collect(&got))
	frame := encodeTransferFrame(t, DestMCU, []byte{1, 2, 3})

	q := NewByteQueue(128)
	for _, b := range frame {
		q.Write([]byte{b})
		d.Receive(q)
	}
	if len(got) != 1 || q.Available() != 0 {
		t.Errorf("got %d commands, %d bytes left", len(got), q.Available())
	}
}

func TestDecoderResyncAfterCorruption(t *testing.T) {
	var got []received
	d := NewDecoder(DestMCU, collect(&got))

	bad := encodeTransferFrame(t, DestMCU, []byte{0xAA})
	bad[3] ^= 0x01
	good := encodeTransferFrame(t, NextSequence(DestMCU), []byte{0xBB})

	stream := append([]byte{0x00, 0x13, 0x37, MessageValueSync}, bad...)
	stream = append(stream, good...)
	d.Receive(NewSliceInputBuffer(stream))

	if len(got) != 1 || got[0].data[0] != 0xBB {
		t.Fatalf("commands = %+v", got)
	}
	if d.Stats.CRCErrors.Load() != 1 {
		t.Errorf("CRC errors = %d, expected 1", d.Stats.CRCErrors.Load())
	}
	if d.Stats.Resyncs.Load() == 0 {
		t.Error("no resync recorded")
	}
}

func TestDecoderRejectsOtherDestination(t *testing.T) {
	var got []received
	d := NewDecoder(DestHost, collect(&got))
	d.Receive(NewSliceInputBuffer(encodeTransferFrame(t, DestMCU, []byte{1})))
	if len(got) != 0 {
		t.Errorf("decoded a frame for the other side: %+v", got)
	}
}

func TestDecoderSequenceGaps(t *testing.T) {
	var got []received
	d := NewDecoder(DestMCU, collect(&got))

	seq := byte(DestMCU | 0x0E)
	stream := encodeTransferFrame(t, seq, []byte{1})
	seq = NextSequence(seq) // 0x1F
	stream = append(stream, encodeTransferFrame(t, seq, []byte{2})...)
	seq = NextSequence(seq) // wraps to 0x10
	if seq != DestMCU {
		t.Fatalf("sequence did not wrap: 0x%02X", seq)
	}
	// skip one
	stream = append(stream, encodeTransferFrame(t, NextSequence(seq), []byte{3})...)
	d.Receive(NewSliceInputBuffer(stream))

	if len(got) != 3 {
		t.Fatalf("got %d commands", len(got))
	}
	if d.Stats.SeqGaps.Load() != 1 {
		t.Errorf("gaps = %d, expected 1", d.Stats.SeqGaps.Load())
	}
}

func TestDecoderUnknownCommand(t *testing.T) {
	out := NewScratchOutput()
	_ = EncodeCommand(out, DestMCU, 42, func(o OutputBuffer) { o.Output([]byte{1, 2}) })

	var got []received
	d := NewDecoder(DestMCU, collect(&got))
	d.Receive(NewSliceInputBuffer(out.Result()))
	if d.Stats.BadCommands.Load() != 1 || len(got) != 0 {
		t.Errorf("bad commands = %d, got %+v", d.Stats.BadCommands.Load(), got)
	}
}
