package tui

import (
	"errors"
	"strings"

	"github.com/salahayoub/bonsai/pkg/node"
)

// CommandType represents the type of command.
type CommandType int

const (
	CommandStart CommandType = iota
	CommandStop
	CommandRestart
	CommandConnect
	CommandDisconnect
	CommandBlock
	CommandClear
	CommandCopy
)

// String returns a human-readable representation of the CommandType.
func (c CommandType) String() string {
	switch c {
	case CommandStart:
		return "start"
	case CommandStop:
		return "stop"
	case CommandRestart:
		return "restart"
	case CommandConnect:
		return "connect"
	case CommandDisconnect:
		return "disconnect"
	case CommandBlock:
		return "block"
	case CommandClear:
		return "clear"
	case CommandCopy:
		return "copy"
	default:
		return "unknown"
	}
}

// Command is a parsed command line.
type Command struct {
	Type   CommandType
	Addr   string // connect, disconnect
	Height uint32 // block
}

// Common parsing errors.
var (
	ErrEmptyCommand    = errors.New("empty command")
	ErrUnknownCommand  = errors.New("unknown command: expected start, stop, restart, connect, disconnect, block, clear or copy")
	ErrMissingArgument = errors.New("missing argument")
	ErrExtraArgument   = errors.New("unexpected argument")
)

var commandNames = map[string]CommandType{
	"start":      CommandStart,
	"stop":       CommandStop,
	"shutdown":   CommandStop,
	"restart":    CommandRestart,
	"connect":    CommandConnect,
	"disconnect": CommandDisconnect,
	"block":      CommandBlock,
	"clear":      CommandClear,
	"copy":       CommandCopy,
}

// ParseCommand parses a command string and returns a structured Command.
// Supported syntax:
//   - "start", "stop", "restart", "clear", "copy"
//   - "connect host:port", "disconnect host:port"
//   - "block height"
//
// Names are case-insensitive. Addresses and heights are validated here so
// mistakes are reported without a round trip through the controller.
func ParseCommand(input string) (*Command, error) {
	parts := strings.Fields(input)
	if len(parts) == 0 {
		return nil, ErrEmptyCommand
	}

	typ, ok := commandNames[strings.ToLower(parts[0])]
	if !ok {
		return nil, ErrUnknownCommand
	}
	args := parts[1:]
	cmd := &Command{Type: typ}

	switch typ {
	case CommandConnect, CommandDisconnect:
		if len(args) == 0 {
			return nil, ErrMissingArgument
		}
		if len(args) > 1 {
			return nil, ErrExtraArgument
		}
		addr, err := node.ParsePeerAddress(args[0])
		if err != nil {
			return nil, err
		}
		cmd.Addr = addr

	case CommandBlock:
		if len(args) == 0 {
			return nil, ErrMissingArgument
		}
		if len(args) > 1 {
			return nil, ErrExtraArgument
		}
		h, err := node.ParseBlockHeight(args[0])
		if err != nil {
			return nil, err
		}
		cmd.Height = h

	default:
		if len(args) > 0 {
			return nil, ErrExtraArgument
		}
	}
	return cmd, nil
}

// Messages converts the command into the controller messages that carry it
// out, in the order they must be sent.
func (c *Command) Messages() []node.Message {
	switch c.Type {
	case CommandStart:
		return []node.Message{node.Start{}}
	case CommandStop:
		return []node.Message{node.Shutdown{}}
	case CommandRestart:
		return []node.Message{node.Restart{}}
	case CommandConnect:
		return []node.Message{node.AddPeerInputChanged{Input: c.Addr}, node.AddPeer{}}
	case CommandDisconnect:
		return []node.Message{node.DisconnectPeer{Addr: c.Addr}}
	case CommandBlock:
		return []node.Message{node.FetchBlock{Height: c.Height}}
	case CommandClear:
		return []node.Message{node.ClearLogs{}}
	case CommandCopy:
		return []node.Message{node.CopyAccumulatorData{}}
	}
	return nil
}
