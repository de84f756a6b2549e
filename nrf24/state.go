package nrf24

import "gonrf/core"

// State is the driver lifecycle state
type State uint8

// Driver states. Receive through PoweringOff are reserved for the payload
// path and do nothing yet.
const (
	StatePowerOff State = iota
	StateModuleStartup
	StateConfigure
	StateSleep
	StateIdle
	StateExternalInterrupt
	StateStatusReading
	StateReceive
	StateReceiving
	StateTransmit
	StateTransmitting
	StatePoweringOff

	numStates
)

var stateNames = [numStates]string{
	StatePowerOff:          "PowerOff",
	StateModuleStartup:     "ModuleStartup",
	StateConfigure:         "Configure",
	StateSleep:             "Sleep",
	StateIdle:              "Idle",
	StateExternalInterrupt: "ExternalInterrupt",
	StateStatusReading:     "StatusReading",
	StateReceive:           "Receive",
	StateReceiving:         "Receiving",
	StateTransmit:          "Transmit",
	StateTransmitting:      "Transmitting",
	StatePoweringOff:       "PoweringOff",
}

// Valid reports whether s names a state
func (s State) Valid() bool {
	return s < numStates
}

func (s State) String() string {
	if !s.Valid() {
		return "State(" + core.Itoa(int(s)) + ")"
	}
	return stateNames[s]
}
