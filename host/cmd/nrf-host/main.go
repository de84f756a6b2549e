package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"gonrf/config"
	"gonrf/core"
	"gonrf/host/logging"
	"gonrf/nrf24"
)

var (
	configPath = flag.String("config", "", "Radio configuration file (JSON); defaults if empty")
	backendArg = flag.String("backend", "", "Override backend: bridge, ch341 or spidev")
	device     = flag.String("device", "", "Override serial device or SPI port")
	logLevel   = flag.String("log-level", "info", "Log level: debug, info, warn, error")
	logFormat  = flag.String("log-format", "text", "Log format: text or json")
	events     = flag.Bool("events", false, "Dump the driver event ring on exit")
)

func main() {
	flag.Parse()

	if err := setupLogging(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	cfg, err := config.LoadFromFile(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if *backendArg != "" {
		cfg.Backend = *backendArg
	}
	if *device != "" {
		cfg.Device = *device
	}

	if err := run(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func setupLogging() error {
	level, err := logging.ParseLevel(*logLevel)
	if err != nil {
		return err
	}
	format, err := logging.ParseFormat(*logFormat)
	if err != nil {
		return err
	}
	logging.SetLogFormat(os.Stderr, format)
	logging.SetLogLevel(level)

	// Route the driver's debug lines and event clock through the host
	core.SetDebugWriter(logging.DebugWriter(logging.ComponentRadio))
	core.SetDebugEnabled(level <= slog.LevelDebug)
	core.InitAsyncDebug()
	return nil
}

func run(cfg *config.RadioConfig) error {
	init, err := cfg.InitData()
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	hw, err := openBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer hw.Close()

	clock := core.NewMonotonicClock()
	core.SetEventClock(clock)

	dev, err := nrf24.New(nrf24.Hardware{
		Bus:   hw.bus,
		GPIO:  hw.gpio,
		Pins:  cfg.ControlPins(),
		Clock: clock,
	})
	if err != nil {
		return err
	}
	if err := dev.Configure(init); err != nil {
		return fmt.Errorf("configure radio: %w", err)
	}
	if err := core.ConfigureControlPins(hw.gpio, cfg.ControlPins()); err != nil {
		return fmt.Errorf("control pins: %w", err)
	}

	m := &monitor{dev: dev, hw: hw}
	dev.OnTransition(m.transition)
	hw.startIRQ(ctx, core.GPIOPin(cfg.Pins.IRQ), func() { _ = dev.NotifyInterrupt() })

	_ = dev.RequestPowerOn()
	_ = dev.RequestWake()

	lines := make(chan string)
	go readCommands(lines)

	runner := core.NewRunner(clock)
	runner.Every(cfg.PollMillis, dev.Drive)
	if hw.pollIRQ > 0 {
		// No IRQ line: sample STATUS periodically instead
		runner.Every(hw.pollIRQ, func() { _ = dev.NotifyInterrupt() })
	}

	fmt.Println("Enter commands (type 'help' for available commands, 'quit' to exit):")
	for {
		select {
		case <-ctx.Done():
			m.shutdown()
			return nil
		case line, ok := <-lines:
			if !ok || !m.command(line) {
				m.shutdown()
				return nil
			}
		default:
		}
		if runner.Step() == 0 {
			time.Sleep(core.MillisToDuration(cfg.PollMillis))
		}
	}
}

// readCommands forwards stdin lines so they are handled on the drive loop
func readCommands(lines chan<- string) {
	defer close(lines)
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		lines <- strings.TrimSpace(scanner.Text())
	}
}

// monitor owns the device on the drive goroutine
type monitor struct {
	dev *nrf24.Device
	hw  *backend
}

func (m *monitor) transition(from, to nrf24.State) {
	logging.LogInfo(logging.ComponentRadio, "transition", "from", from.String(), "to", to.String())
	if from == nrf24.StateStatusReading {
		m.logStatus()
	}
}

func (m *monitor) logStatus() {
	regs := m.dev.Registers()
	status := m.dev.Status()
	fifo := m.dev.FIFOStatus()
	logging.LogInfo(logging.ComponentRadio, "status",
		"status", fmt.Sprintf("0x%02X", regs.Status),
		"rx_dr", status.RxDR, "tx_ds", status.TxDS, "max_rt", status.MaxRT,
		"rx_pipe", status.RxPipe,
		"fifo_status", fmt.Sprintf("0x%02X", regs.FIFOStatus),
		"rx_empty", fifo.RxEmpty, "rx_full", fifo.RxFull)
}

// command runs one console command and reports whether to keep going
func (m *monitor) command(line string) bool {
	if line == "" {
		return true
	}
	parts := strings.Fields(line)
	var err error

	switch parts[0] {
	case "quit", "exit", "q":
		return false
	case "help", "?":
		printHelp()
	case "state":
		fmt.Printf("state: %v (transaction pending: %v)\n", m.dev.State(), m.dev.TransactionPending())
	case "status":
		m.logStatus()
	case "regs":
		printRegisters(m.dev.Registers())
	case "wake":
		err = m.dev.RequestWake()
	case "sleep":
		err = m.dev.RequestSleep()
	case "irq":
		err = m.dev.NotifyInterrupt()
	case "events":
		core.DumpEventRing(printLine)
	case "stats":
		m.hw.printStats()
	default:
		fmt.Printf("Unknown command: %s (type 'help' for available commands)\n", parts[0])
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	return true
}

func (m *monitor) shutdown() {
	logging.LogInfo(logging.ComponentRadio, "shutting down", "state", m.dev.State().String())
	if *events {
		core.DumpEventRing(printLine)
	}
}

func printHelp() {
	fmt.Println("\nAvailable commands:")
	fmt.Println("  state          - Show the driver state")
	fmt.Println("  status         - Show the last STATUS and FIFO_STATUS")
	fmt.Println("  regs           - Show the register cache")
	fmt.Println("  wake           - Request Sleep -> Idle")
	fmt.Println("  sleep          - Request Idle -> Sleep")
	fmt.Println("  irq            - Simulate an IRQ edge")
	fmt.Println("  events         - Dump the driver event ring")
	fmt.Println("  stats          - Show link counters")
	fmt.Println("  quit/exit/q    - Exit the program")
	fmt.Println()
}

func printRegisters(regs nrf24.RegisterCache) {
	width := regs.AddressWidth()
	fmt.Printf("CONFIG      0x%02X\n", regs.Config)
	fmt.Printf("EN_AA       0x%02X\n", regs.EnAA)
	fmt.Printf("EN_RXADDR   0x%02X\n", regs.EnRxAddr)
	fmt.Printf("SETUP_AW    0x%02X (%d bytes)\n", regs.SetupAW, width)
	fmt.Printf("RX_ADDR_P0  %s\n", config.FormatAddress(regs.RxAddrP0, width))
	fmt.Printf("RX_ADDR_P1  %s\n", config.FormatAddress(regs.RxAddrP1, width))
	for i, b := range regs.RxAddrP2P5 {
		fmt.Printf("RX_ADDR_P%d  0x%02X\n", i+2, b)
	}
}

func printLine(s string) {
	fmt.Println(s)
}
