package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"gonrf/nrf24"
)

func TestParseAddress(t *testing.T) {
	testCases := []struct {
		in       string
		width    int
		expected [5]byte
		ok       bool
	}{
		{"E7E7E7E7E7", 5, [5]byte{0xE7, 0xE7, 0xE7, 0xE7, 0xE7}, true},
		{"c2:c2:c3", 3, [5]byte{0xC2, 0xC2, 0xC3}, true},
		{"01020304", 4, [5]byte{1, 2, 3, 4}, true},
		{"010203", 4, [5]byte{}, false},
		{"zz0102", 3, [5]byte{}, false},
		{"0102030405", 3, [5]byte{}, false},
	}
	for _, tc := range testCases {
		got, err := ParseAddress(tc.in, tc.width)
		if tc.ok != (err == nil) {
			t.Errorf("ParseAddress(%q, %d) error = %v", tc.in, tc.width, err)
			continue
		}
		if !tc.ok {
			if !errors.Is(err, ErrBadAddress) {
				t.Errorf("ParseAddress(%q): expected ErrBadAddress, got %v", tc.in, err)
			}
			continue
		}
		if got != tc.expected {
			t.Errorf("ParseAddress(%q) = % X", tc.in, got)
		}
		again, err := ParseAddress(FormatAddress(got, tc.width), tc.width)
		if err != nil || again != got {
			t.Errorf("FormatAddress(% X) does not parse back: %v", got, err)
		}
	}
	if s := FormatAddress([5]byte{0xC2, 0xC2, 0xC3}, 3); s != "C2C2C3" {
		t.Errorf("FormatAddress = %q", s)
	}
}

func TestDefaultConfigures(t *testing.T) {
	init, err := Default().InitData()
	if err != nil {
		t.Fatalf("InitData failed: %v", err)
	}
	regs, err := nrf24.BuildRegisters(init)
	if err != nil {
		t.Fatalf("BuildRegisters failed: %v", err)
	}
	if regs.EnRxAddr != 0x03 || regs.EnAA != 0x03 {
		t.Errorf("EN_RXADDR=0x%02X EN_AA=0x%02X", regs.EnRxAddr, regs.EnAA)
	}
	if regs.RxAddrP0 != [5]byte{0xE7, 0xE7, 0xE7, 0xE7, 0xE7} {
		t.Errorf("RX_ADDR_P0 = % X", regs.RxAddrP0)
	}
	pins := Default().ControlPins()
	if pins.CSN != 17 || pins.CE != 20 {
		t.Errorf("pins = %+v", pins)
	}
}

func TestInitDataErrors(t *testing.T) {
	testCases := []struct {
		name     string
		mutate   func(c *RadioConfig)
		expected error
	}{
		{"backend", func(c *RadioConfig) { c.Backend = "usbtiny" }, ErrUnknownBackend},
		{"pipe index", func(c *RadioConfig) { c.Pipes = append(c.Pipes, PipeSettings{Pipe: 6}) }, ErrBadPipe},
		{"missing address", func(c *RadioConfig) {
			c.Pipes = append(c.Pipes, PipeSettings{Pipe: 2, Enabled: true})
		}, ErrBadAddress},
		{"short address", func(c *RadioConfig) { c.Pipes[1].Address = "C2C2" }, ErrBadAddress},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c := Default()
			tc.mutate(c)
			if _, err := c.InitData(); !errors.Is(err, tc.expected) {
				t.Errorf("expected %v, got %v", tc.expected, err)
			}
		})
	}

	// A disabled pipe may omit its address
	c := Default()
	c.Pipes = append(c.Pipes, PipeSettings{Pipe: 3})
	if _, err := c.InitData(); err != nil {
		t.Errorf("disabled pipe without address: %v", err)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "radio.json")
	data := `{
  "backend": "ch341",
  "address_width": 3,
  "pins": {"csn": 0, "ce": 1},
  "pipes": [
    {"pipe": 1, "enabled": true, "address": "A1A2A3"},
    {"pipe": 2, "enabled": true, "address": "A1A2B3"}
  ]
}`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	c, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}
	if c.Backend != BackendCH341 || c.AddressWidth != 3 {
		t.Errorf("loaded %+v", c)
	}
	if c.Baud != 250000 || c.PollMillis != 1 {
		t.Errorf("defaults not applied: baud=%d poll=%d", c.Baud, c.PollMillis)
	}

	init, err := c.InitData()
	if err != nil {
		t.Fatalf("InitData failed: %v", err)
	}
	regs, err := nrf24.BuildRegisters(init)
	if err != nil {
		t.Fatalf("BuildRegisters failed: %v", err)
	}
	if regs.RxAddrP2P5[0] != 0xB3 {
		t.Errorf("RX_ADDR_P2 = 0x%02X", regs.RxAddrP2P5[0])
	}
}

func TestSaveLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "radio.json")
	want := Default()
	want.Backend = BackendSpidev
	want.Device = "/dev/spidev0.0"

	if err := SaveToFile(want, path); err != nil {
		t.Fatalf("SaveToFile failed: %v", err)
	}
	got, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}
	if got.Backend != want.Backend || got.Device != want.Device || len(got.Pipes) != 2 {
		t.Errorf("got %+v", got)
	}
}

func TestLoadFromFileErrors(t *testing.T) {
	if _, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("expected error for a missing file")
	}

	path := filepath.Join(t.TempDir(), "bad.json")
	_ = os.WriteFile(path, []byte(`{"backend": "nope"}`), 0644)
	if _, err := LoadFromFile(path); !errors.Is(err, ErrUnknownBackend) {
		t.Errorf("expected ErrUnknownBackend, got %v", err)
	}

	c, err := LoadFromFile("")
	if err != nil || c.Backend != BackendBridge {
		t.Errorf("empty path: %+v, %v", c, err)
	}
}
