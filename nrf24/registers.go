package nrf24

// nRF24L01(+) register map and bit layouts
// Based on nRF24L01+ Product Specification v1.0, section 9

// SPI commands
const (
	CmdReadRegister    = 0x00 // R_REGISTER 000A AAAA
	CmdWriteRegister   = 0x20 // W_REGISTER 001A AAAA
	CmdReadRxPayload   = 0x61 // R_RX_PAYLOAD
	CmdWriteTxPayload  = 0xA0 // W_TX_PAYLOAD
	CmdWriteTxNoAck    = 0xB0 // W_TX_PAYLOAD_NOACK
	CmdFlushTx         = 0xE1 // FLUSH_TX
	CmdFlushRx         = 0xE2 // FLUSH_RX
	CmdReuseTxPayload  = 0xE3 // REUSE_TX_PL
	CmdNOP             = 0xFF // NOP, also used as read filler
	RegisterAddrMask   = 0x1F // register address field of R/W_REGISTER
	registerOpcodeMask = 0xE0
)

// Register addresses
const (
	RegConfig     = 0x00 // Configuration
	RegEnAA       = 0x01 // Enable auto acknowledgement
	RegEnRxAddr   = 0x02 // Enabled RX addresses
	RegSetupAW    = 0x03 // Address widths
	RegSetupRetr  = 0x04 // Automatic retransmission
	RegRFCh       = 0x05 // RF channel
	RegRFSetup    = 0x06 // RF setup
	RegStatus     = 0x07 // Status
	RegObserveTx  = 0x08 // Transmit observe
	RegRPD        = 0x09 // Received power detector
	RegRxAddrP0   = 0x0A // RX address pipe 0, 5 bytes LSByte first
	RegRxAddrP1   = 0x0B // RX address pipe 1, 5 bytes LSByte first
	RegRxAddrP2   = 0x0C // RX address pipe 2, LSByte only
	RegRxAddrP3   = 0x0D
	RegRxAddrP4   = 0x0E
	RegRxAddrP5   = 0x0F
	RegTxAddr     = 0x10 // Transmit address
	RegRxPwP0     = 0x11 // RX payload width pipe 0
	RegFIFOStatus = 0x17 // FIFO status
	RegDynPD      = 0x1C // Dynamic payload length
	RegFeature    = 0x1D // Feature
)

const (
	MaxPipes        = 6
	MaxAddressWidth = 5
	MinAddressWidth = 3

	// MaxRegisterPayload is the widest register value (an RX/TX address)
	MaxRegisterPayload = MaxAddressWidth

	// MaxTransferSize is one command byte plus the widest register value
	MaxTransferSize = 1 + MaxRegisterPayload
)

// CommandByte builds a register access command
func CommandByte(opcode, reg byte) byte {
	return opcode&registerOpcodeMask | reg&RegisterAddrMask
}

// RxAddrRegister returns the RX_ADDR_Pn register for pipe
func RxAddrRegister(pipe int) byte {
	return byte(RegRxAddrP0 + pipe)
}

func bit(v bool, mask byte) byte {
	if v {
		return mask
	}
	return 0
}

// CONFIG register bits
const (
	ConfigPrimRx    = 1 << 0 // RX/TX control 1: PRX, 0: PTX
	ConfigPwrUp     = 1 << 1 // 1: power up, 0: power down
	ConfigCRCO      = 1 << 2 // CRC encoding scheme 0: one byte, 1: two bytes
	ConfigEnCRC     = 1 << 3 // Enable CRC
	ConfigMaskMaxRT = 1 << 4 // Mask interrupt caused by MAX_RT
	ConfigMaskTxDS  = 1 << 5 // Mask interrupt caused by TX_DS
	ConfigMaskRxDR  = 1 << 6 // Mask interrupt caused by RX_DR
	configFields    = 0x7F
)

// ConfigReg is the decoded CONFIG register
type ConfigReg struct {
	PrimRx    bool
	PwrUp     bool
	CRCO      bool
	EnCRC     bool
	MaskMaxRT bool
	MaskTxDS  bool
	MaskRxDR  bool
}

// DecodeConfig decodes a raw CONFIG byte
func DecodeConfig(b byte) ConfigReg {
	return ConfigReg{
		PrimRx:    b&ConfigPrimRx != 0,
		PwrUp:     b&ConfigPwrUp != 0,
		CRCO:      b&ConfigCRCO != 0,
		EnCRC:     b&ConfigEnCRC != 0,
		MaskMaxRT: b&ConfigMaskMaxRT != 0,
		MaskTxDS:  b&ConfigMaskTxDS != 0,
		MaskRxDR:  b&ConfigMaskRxDR != 0,
	}
}

// Encode returns the field bits; reserved bit 7 is zero
func (c ConfigReg) Encode() byte {
	return bit(c.PrimRx, ConfigPrimRx) |
		bit(c.PwrUp, ConfigPwrUp) |
		bit(c.CRCO, ConfigCRCO) |
		bit(c.EnCRC, ConfigEnCRC) |
		bit(c.MaskMaxRT, ConfigMaskMaxRT) |
		bit(c.MaskTxDS, ConfigMaskTxDS) |
		bit(c.MaskRxDR, ConfigMaskRxDR)
}

// Apply merges the fields into raw, preserving reserved bits
func (c ConfigReg) Apply(raw byte) byte {
	return raw&^configFields | c.Encode()
}

// STATUS register bits
const (
	StatusTxFull    = 1 << 0
	StatusRxPNoMask = 0x0E // bits 3:1
	StatusMaxRT     = 1 << 4
	StatusTxDS      = 1 << 5
	StatusRxDR      = 1 << 6
	statusFields    = 0x7F

	// RxPipeEmpty is the RX_P_NO value reported when the RX FIFO is empty
	RxPipeEmpty = 7
)

// StatusReg is the decoded STATUS register
type StatusReg struct {
	TxFull bool
	RxPipe uint8 // 0-5 pipe, 6 unused, 7 RX FIFO empty
	MaxRT  bool
	TxDS   bool
	RxDR   bool
}

// DecodeStatus decodes a raw STATUS byte
func DecodeStatus(b byte) StatusReg {
	return StatusReg{
		TxFull: b&StatusTxFull != 0,
		RxPipe: (b & StatusRxPNoMask) >> 1,
		MaxRT:  b&StatusMaxRT != 0,
		TxDS:   b&StatusTxDS != 0,
		RxDR:   b&StatusRxDR != 0,
	}
}

// Encode returns the field bits; reserved bit 7 is zero
func (s StatusReg) Encode() byte {
	return bit(s.TxFull, StatusTxFull) |
		(s.RxPipe<<1)&StatusRxPNoMask |
		bit(s.MaxRT, StatusMaxRT) |
		bit(s.TxDS, StatusTxDS) |
		bit(s.RxDR, StatusRxDR)
}

// Apply merges the fields into raw, preserving reserved bits
func (s StatusReg) Apply(raw byte) byte {
	return raw&^statusFields | s.Encode()
}

// RxPending reports whether a payload is waiting in the RX FIFO
func (s StatusReg) RxPending() bool {
	return s.RxPipe < MaxPipes
}

// FIFO_STATUS register bits
const (
	FIFORxEmpty  = 1 << 0
	FIFORxFull   = 1 << 1
	FIFOTxEmpty  = 1 << 4
	FIFOTxFull   = 1 << 5
	FIFOTxReuse  = 1 << 6
	fifoFields   = 0x73
	setupAWField = 0x03
	pipeFields   = 0x3F
)

// FIFOStatusReg is the decoded FIFO_STATUS register
type FIFOStatusReg struct {
	RxEmpty bool
	RxFull  bool
	TxEmpty bool
	TxFull  bool
	TxReuse bool
}

// DecodeFIFOStatus decodes a raw FIFO_STATUS byte
func DecodeFIFOStatus(b byte) FIFOStatusReg {
	return FIFOStatusReg{
		RxEmpty: b&FIFORxEmpty != 0,
		RxFull:  b&FIFORxFull != 0,
		TxEmpty: b&FIFOTxEmpty != 0,
		TxFull:  b&FIFOTxFull != 0,
		TxReuse: b&FIFOTxReuse != 0,
	}
}

// Encode returns the field bits; reserved bits 3:2 and 7 are zero
func (f FIFOStatusReg) Encode() byte {
	return bit(f.RxEmpty, FIFORxEmpty) |
		bit(f.RxFull, FIFORxFull) |
		bit(f.TxEmpty, FIFOTxEmpty) |
		bit(f.TxFull, FIFOTxFull) |
		bit(f.TxReuse, FIFOTxReuse)
}

// Apply merges the fields into raw, preserving reserved bits
func (f FIFOStatusReg) Apply(raw byte) byte {
	return raw&^fifoFields | f.Encode()
}

// SetupAWReg is the decoded SETUP_AW register.
// Code 01: 3 bytes, 10: 4 bytes, 11: 5 bytes, 00 illegal.
type SetupAWReg struct {
	Code uint8
}

// SetupAWForWidth returns the SETUP_AW value for an address width in bytes
func SetupAWForWidth(width int) SetupAWReg {
	return SetupAWReg{Code: uint8(width-2) & setupAWField}
}

// DecodeSetupAW decodes a raw SETUP_AW byte
func DecodeSetupAW(b byte) SetupAWReg {
	return SetupAWReg{Code: b & setupAWField}
}

// Encode returns the field bits
func (a SetupAWReg) Encode() byte {
	return a.Code & setupAWField
}

// Apply merges the field into raw, preserving reserved bits
func (a SetupAWReg) Apply(raw byte) byte {
	return raw&^setupAWField | a.Encode()
}

// Width returns the address width in bytes, or 0 for the illegal code
func (a SetupAWReg) Width() int {
	if a.Code == 0 {
		return 0
	}
	return int(a.Code) + 2
}

// PipeMask is the layout shared by EN_AA and EN_RXADDR: bit n is pipe n
type PipeMask byte

// Pipe masks
const (
	P0 PipeMask = 1 << iota
	P1
	P2
	P3
	P4
	P5
	PAll = P0 | P1 | P2 | P3 | P4 | P5
)

// Has reports whether pipe is set
func (p PipeMask) Has(pipe int) bool {
	return pipe >= 0 && pipe < MaxPipes && p&(1<<pipe) != 0
}

// With returns p with pipe set
func (p PipeMask) With(pipe int) PipeMask {
	if pipe < 0 || pipe >= MaxPipes {
		return p
	}
	return p | 1<<pipe
}

// DecodePipeMask decodes a raw EN_AA or EN_RXADDR byte
func DecodePipeMask(b byte) PipeMask {
	return PipeMask(b & pipeFields)
}

// Encode returns the field bits
func (p PipeMask) Encode() byte {
	return byte(p) & pipeFields
}

// Apply merges the pipe bits into raw, preserving reserved bits
func (p PipeMask) Apply(raw byte) byte {
	return raw&^pipeFields | p.Encode()
}

// RegisterCache mirrors the device registers the driver programs or reads.
// Values are raw bytes; typed views decode them on demand so reserved bits
// are carried through untouched.
type RegisterCache struct {
	Config     byte
	EnAA       byte
	EnRxAddr   byte
	SetupAW    byte
	Status     byte
	FIFOStatus byte

	// Pipes 0 and 1 hold full addresses, MSByte first
	RxAddrP0 [MaxAddressWidth]byte
	RxAddrP1 [MaxAddressWidth]byte

	// Pipes 2-5 hold only the distinguishing low byte; the upper bytes are
	// shared with pipe 1
	RxAddrP2P5 [MaxPipes - 2]byte
}

// AddressWidth returns the configured address width in bytes
func (r *RegisterCache) AddressWidth() int {
	return DecodeSetupAW(r.SetupAW).Width()
}

// RxAddressPayload returns the register payload for RX_ADDR_Pn as it goes
// on the wire: LSByte first, width bytes for pipes 0-1, one byte otherwise.
// buf must hold MaxAddressWidth bytes.
func (r *RegisterCache) RxAddressPayload(pipe int, buf []byte) []byte {
	switch {
	case pipe == 0 || pipe == 1:
		addr := &r.RxAddrP0
		if pipe == 1 {
			addr = &r.RxAddrP1
		}
		width := r.AddressWidth()
		for i := 0; i < width; i++ {
			buf[i] = addr[width-1-i]
		}
		return buf[:width]
	case pipe >= 2 && pipe < MaxPipes:
		buf[0] = r.RxAddrP2P5[pipe-2]
		return buf[:1]
	default:
		return buf[:0]
	}
}
