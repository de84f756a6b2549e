package spidev

import (
	"errors"
	"testing"

	"periph.io/x/periph/conn/gpio"

	"gonrf/core"
)

func TestPinName(t *testing.T) {
	for pin, expected := range map[uint32]string{0: "GPIO0", 17: "GPIO17", 25: "GPIO25"} {
		if got := pinName(core.GPIOPin(pin)); got != expected {
			t.Errorf("pinName(%d) = %q, expected %q", pin, got, expected)
		}
	}
}

// Without host drivers the registry is empty, so every lookup fails cleanly
func TestUnknownPin(t *testing.T) {
	d := &Device{pins: make(map[core.GPIOPin]gpio.PinIO)}
	if err := d.SetPin(999, true); !errors.Is(err, ErrUnknownPin) {
		t.Errorf("expected ErrUnknownPin, got %v", err)
	}
	if err := d.ConfigureOutput(999); !errors.Is(err, ErrUnknownPin) {
		t.Errorf("expected ErrUnknownPin, got %v", err)
	}
}
