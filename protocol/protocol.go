// Package protocol implements the framed serial link between the host and a
// bridge MCU that owns the radio's SPI bus and control pins.
//
// Every frame is
//
//	[len][seq][payload...][crc16 hi][crc16 lo][0x7E]
//
// where len counts the whole frame, the high nibble of seq names the
// receiving side and the low nibble is a per-direction counter. The payload
// is a sequence of commands, each a VLQ command ID followed by its VLQ
// arguments.
package protocol

// Version is reported by the bridge firmware in its identify response
const Version = "0.1.0"

// Frame layout
const (
	MessageHeaderSize  = 2
	MessageTrailerSize = 3
	MessageLengthMin   = MessageHeaderSize + MessageTrailerSize
	MessageLengthMax   = 64
	MessagePayloadMax  = MessageLengthMax - MessageLengthMin
	MessagePositionLen = 0
	MessagePositionSeq = 1
	MessageTrailerCRC  = 3
	MessageTrailerSync = 1
	MessageValueSync   = 0x7E

	MessageSeqMask  = 0x0F
	MessageDestMask = 0xF0
)

// Destinations carried in the high nibble of seq
const (
	DestMCU  = 0x10 // host to MCU
	DestHost = 0x00 // MCU to host
)

// NextSequence returns the sequence byte that follows seq
func NextSequence(seq byte) byte {
	return (seq+1)&MessageSeqMask | seq&MessageDestMask
}
