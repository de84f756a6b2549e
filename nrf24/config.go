package nrf24

// ReceiveFunc is called with a payload received on pipe.
type ReceiveFunc func(pipe int, data []byte)

// PipeConfig is the user configuration of one RX pipe.
type PipeConfig struct {
	Enabled bool
	AutoAck bool

	// Address is MSByte first; only the first AddressWidth bytes are used.
	// For pipes 2-5 only the last used byte is programmed, the rest must
	// match pipe 1.
	Address [MaxAddressWidth]byte

	OnReceive ReceiveFunc
}

// InitData is the full driver configuration.
type InitData struct {
	AddressWidth int // bytes, 3-5
	Pipes        [MaxPipes]PipeConfig
}

// BuildRegisters validates init and returns the register cache it describes.
// On error the returned cache is zero.
func BuildRegisters(init *InitData) (RegisterCache, error) {
	var regs RegisterCache

	if init == nil {
		return RegisterCache{}, ErrInvalidArgument
	}
	width := init.AddressWidth
	if width < MinAddressWidth || width > MaxAddressWidth {
		return RegisterCache{}, ErrInvalidAddressWidth
	}
	regs.SetupAW = SetupAWForWidth(width).Apply(regs.SetupAW)

	var rxaddr, aa PipeMask
	p1 := &init.Pipes[1].Address
	for i := range init.Pipes {
		pipe := &init.Pipes[i]
		if !pipe.Enabled {
			continue
		}

		switch i {
		case 0:
			regs.RxAddrP0 = pipe.Address
		case 1:
			regs.RxAddrP1 = pipe.Address
		default:
			if !sameUpperBytes(&pipe.Address, p1, width) {
				return RegisterCache{}, &PipeError{Pipe: i, Err: ErrInvalidP2P5Address}
			}
			regs.RxAddrP2P5[i-2] = pipe.Address[width-1]
		}

		rxaddr = rxaddr.With(i)
		if pipe.AutoAck {
			aa = aa.With(i)
		}
	}

	regs.EnRxAddr = rxaddr.Apply(regs.EnRxAddr)
	regs.EnAA = aa.Apply(regs.EnAA)
	regs.Config |= ConfigEnCRC

	return regs, nil
}

// sameUpperBytes compares everything but the low byte of a width-byte address
func sameUpperBytes(a, b *[MaxAddressWidth]byte, width int) bool {
	for i := 0; i < width-1; i++ {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
