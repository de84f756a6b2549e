package core

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestEventRing(t *testing.T) {
	ClearEventRing()
	defer ClearEventRing()

	clock := &ManualClock{}
	SetEventClock(clock)
	defer SetEventClock(nil)

	clock.Set(42)
	RecordEvent(EvtTransition, 0, 0, 1)
	RecordEvent(EvtTxBegin, 1, 0x20, 2)

	events := Events()
	if len(events) != 2 {
		t.Fatalf("got %d events, expected 2", len(events))
	}
	if events[0].Type != EvtTransition || events[0].Millis != 42 || events[0].Value2 != 1 {
		t.Errorf("first event = %+v", events[0])
	}
	if events[1].Type != EvtTxBegin || events[1].Value1 != 0x20 {
		t.Errorf("second event = %+v", events[1])
	}
}

func TestEventRingWraps(t *testing.T) {
	ClearEventRing()
	defer ClearEventRing()

	for i := 0; i < EventRingSize+5; i++ {
		RecordEvent(EvtStatus, 0, uint32(i), 0)
	}
	events := Events()
	if len(events) != EventRingSize {
		t.Fatalf("got %d events, expected %d", len(events), EventRingSize)
	}
	if events[0].Value1 != 5 || events[EventRingSize-1].Value1 != EventRingSize+4 {
		t.Errorf("oldest=%d newest=%d", events[0].Value1, events[EventRingSize-1].Value1)
	}
}

func TestDumpEventRing(t *testing.T) {
	ClearEventRing()
	defer ClearEventRing()

	var lines []string
	SetDebugWriter(func(s string) { lines = append(lines, s) })
	defer SetDebugWriter(func(string) {})

	RecordEvent(EvtProtocolViolation, 4, 0x17, 0xE1)
	DumpEventRing(nil)

	if len(lines) != 3 {
		t.Fatalf("got %d lines: %q", len(lines), lines)
	}
	if !strings.Contains(lines[1], "OVERLAP!") || !strings.Contains(lines[1], "v1=23") {
		t.Errorf("unexpected dump line %q", lines[1])
	}
}

func TestDebugPrintlnGated(t *testing.T) {
	var lines []string
	SetDebugWriter(func(s string) { lines = append(lines, s) })
	defer SetDebugWriter(func(string) {})
	defer SetDebugEnabled(false)

	SetDebugEnabled(false)
	DebugPrintln("hidden")
	SetDebugEnabled(true)
	DebugPrintln("shown")

	if len(lines) != 1 || lines[0] != "shown" {
		t.Errorf("lines = %q", lines)
	}
	if !IsDebugEnabled() {
		t.Error("IsDebugEnabled = false")
	}
}

func TestDumpEventRingToWriter(t *testing.T) {
	ClearEventRing()
	defer ClearEventRing()

	RecordEvent(EvtBusError, 0, 3, 0)
	var lines []string
	DumpEventRing(func(s string) { lines = append(lines, s) })
	if len(lines) != 3 || !strings.Contains(lines[1], "BUS_ERR!") {
		t.Errorf("lines = %q", lines)
	}
}

// A bus failure on the SPI worker reaches the debug writer through the
// async queue
func TestDebugAsyncDeliversBusErrors(t *testing.T) {
	got := make(chan string, 16)
	SetDebugWriter(func(s string) {
		select {
		case got <- s:
		default:
		}
	})
	defer SetDebugWriter(func(string) {})
	InitAsyncDebug()
	InitAsyncDebug()

	spi := NewAsyncSPI(&mockSPI{err: errors.New("sck stuck")})
	defer spi.Close()
	if err := spi.Transceive([]byte{0xFF}, make([]byte, 1), func(int) {}); err != nil {
		t.Fatalf("Transceive failed: %v", err)
	}

	deadline := time.After(2 * time.Second)
	for {
		select {
		case msg := <-got:
			if msg == "spi: sck stuck" {
				return
			}
		case <-deadline:
			t.Fatal("bus error never reached the debug writer")
		}
	}
}
