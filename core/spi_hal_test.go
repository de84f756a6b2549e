package core

import (
	"bytes"
	"errors"
	"testing"
	"time"
)

// mockSPI is a blocking drivers.SPI that answers with a fixed pattern
type mockSPI struct {
	reply []byte
	err   error
	sent  [][]byte
}

func (m *mockSPI) Tx(w, r []byte) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, append([]byte(nil), w...))
	copy(r, m.reply)
	return nil
}

func (m *mockSPI) Transfer(b byte) (byte, error) {
	return 0, m.err
}

func TestInlineSPI(t *testing.T) {
	bus := &mockSPI{reply: []byte{0x0E, 0x11}}
	spi := InlineSPI{Bus: bus}

	rx := make([]byte, 2)
	got := -1
	if err := spi.Transceive([]byte{0x17, 0xFF}, rx, func(n int) { got = n }); err != nil {
		t.Fatalf("Transceive failed: %v", err)
	}
	if got != 2 {
		t.Errorf("completion n = %d, expected 2", got)
	}
	if !bytes.Equal(rx, []byte{0x0E, 0x11}) {
		t.Errorf("rx = % X", rx)
	}

	if err := spi.Transceive([]byte{1, 2}, rx[:1], func(int) {}); !errors.Is(err, ErrLengthMismatch) {
		t.Errorf("expected ErrLengthMismatch, got %v", err)
	}

	bus.err = errors.New("spi fault")
	called := false
	if err := spi.Transceive([]byte{1}, rx[:1], func(int) { called = true }); err == nil {
		t.Error("expected the bus error")
	}
	if called {
		t.Error("completion ran for a rejected transfer")
	}
}

func waitCompletion(t *testing.T, ch <-chan int) int {
	t.Helper()
	select {
	case n := <-ch:
		return n
	case <-time.After(2 * time.Second):
		t.Fatal("completion never arrived")
		return 0
	}
}

func TestAsyncSPI(t *testing.T) {
	block := make(chan struct{})
	bus := &blockingSPI{release: block}
	spi := NewAsyncSPI(bus)
	defer spi.Close()

	done := make(chan int, 1)
	rx := make([]byte, 3)
	if err := spi.Transceive([]byte{0x61, 0xFF, 0xFF}, rx, func(n int) { done <- n }); err != nil {
		t.Fatalf("Transceive failed: %v", err)
	}
	if err := spi.Transceive([]byte{0xFF}, make([]byte, 1), func(int) {}); !errors.Is(err, ErrBusBusy) {
		t.Errorf("expected ErrBusBusy, got %v", err)
	}

	close(block)
	if n := waitCompletion(t, done); n != 3 {
		t.Errorf("completion n = %d, expected 3", n)
	}

	// Free again after completion
	if err := spi.Transceive([]byte{0xFF}, make([]byte, 1), func(n int) { done <- n }); err != nil {
		t.Errorf("Transceive after completion failed: %v", err)
	}
	waitCompletion(t, done)
}

func TestAsyncSPIFailureCompletesEmpty(t *testing.T) {
	bus := &mockSPI{err: errors.New("spi fault")}
	spi := NewAsyncSPI(bus)
	defer spi.Close()

	done := make(chan int, 1)
	if err := spi.Transceive([]byte{0xFF}, make([]byte, 1), func(n int) { done <- n }); err != nil {
		t.Fatalf("Transceive failed: %v", err)
	}
	if n := waitCompletion(t, done); n != 0 {
		t.Errorf("failed transfer completed with n = %d, expected 0", n)
	}
	if spi.Failures.Load() != 1 {
		t.Errorf("Failures = %d, expected 1", spi.Failures.Load())
	}
}

// blockingSPI holds every transfer until release is closed
type blockingSPI struct {
	release chan struct{}
}

func (b *blockingSPI) Tx(w, r []byte) error {
	<-b.release
	copy(r, w)
	return nil
}

func (b *blockingSPI) Transfer(v byte) (byte, error) {
	return v, nil
}

func TestAsyncSPIClose(t *testing.T) {
	spi := NewAsyncSPI(&mockSPI{})
	spi.Close()
	spi.Close()

	called := false
	err := spi.Transceive([]byte{0xFF}, make([]byte, 1), func(int) { called = true })
	if !errors.Is(err, ErrBusClosed) {
		t.Errorf("expected ErrBusClosed, got %v", err)
	}
	if called {
		t.Error("completion ran after Close")
	}
}
