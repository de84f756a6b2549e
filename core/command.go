package core

import (
	"errors"
	"sync"
)

// ErrUnknownCommand is returned by Dispatch for an unregistered ID
var ErrUnknownCommand = errors.New("unknown command")

// CommandHandler handles one command. It decodes its own arguments from
// data and advances data past them.
type CommandHandler func(data *[]byte) error

// Command is one entry of a CommandRegistry
type Command struct {
	ID      uint16
	Name    string
	Handler CommandHandler
}

// CommandRegistry maps command IDs to handlers. IDs are fixed by the wire
// protocol, not assigned at registration.
type CommandRegistry struct {
	mu       sync.RWMutex
	commands map[uint16]*Command
}

// NewCommandRegistry creates an empty registry
func NewCommandRegistry() *CommandRegistry {
	return &CommandRegistry{
		commands: make(map[uint16]*Command),
	}
}

// Register installs handler for id, replacing any previous entry
func (r *CommandRegistry) Register(id uint16, name string, handler CommandHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands[id] = &Command{ID: id, Name: name, Handler: handler}
}

// GetCommand retrieves a command by ID
func (r *CommandRegistry) GetCommand(id uint16) (*Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cmd, ok := r.commands[id]
	return cmd, ok
}

// Count returns the number of registered commands
func (r *CommandRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.commands)
}

// Dispatch calls the handler registered for cmdID
func (r *CommandRegistry) Dispatch(cmdID uint16, data *[]byte) error {
	cmd, ok := r.GetCommand(cmdID)
	if !ok || cmd.Handler == nil {
		return ErrUnknownCommand
	}
	return cmd.Handler(data)
}

// Name returns the registered name of id, or its number
func (r *CommandRegistry) Name(id uint16) string {
	if cmd, ok := r.GetCommand(id); ok {
		return cmd.Name
	}
	return "cmd" + Itoa(int(id))
}
