package ch341

// CH341A stream commands
const (
	cmdSPIStream = 0xA8
	cmdI2CStream = 0xAA
	cmdUIOStream = 0xAB

	i2cStmSet = 0x60
	i2cStmEnd = 0x00
	uioStmOut = 0x80
	uioStmDir = 0x40
	uioStmEnd = 0x20

	// packetLength is the bulk endpoint packet size
	packetLength = 32
	// spiChunk is the SPI payload carried by one packet after the command byte
	spiChunk = packetLength - 1

	// uioMask covers D0-D5, the pins the UIO stream can drive
	uioMask = 0x3F
)

// reverseBits mirrors a byte. The CH341 shifts SPI data LSB first.
func reverseBits(b byte) byte {
	b = b>>4 | b<<4
	b = (b&0xCC)>>2 | (b&0x33)<<2
	b = (b&0xAA)>>1 | (b&0x55)<<1
	return b
}

// appendSPIPacket appends one SPI stream packet for chunk, which must hold
// at most spiChunk bytes
func appendSPIPacket(dst, chunk []byte) []byte {
	dst = append(dst, cmdSPIStream)
	for _, b := range chunk {
		dst = append(dst, reverseBits(b))
	}
	return dst
}

// uioPacket sets the D0-D5 output levels and directions
func uioPacket(levels, outputs byte) []byte {
	return []byte{
		cmdUIOStream,
		uioStmOut | levels&uioMask,
		uioStmDir | outputs&uioMask,
		uioStmEnd,
	}
}

// speedPacket selects the stream clock. speed is 0-3; SPI runs at the
// fastest rate with speed 3.
func speedPacket(speed byte) []byte {
	return []byte{cmdI2CStream, i2cStmSet | speed&0x03, i2cStmEnd}
}
