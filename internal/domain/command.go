package domain

import (
	"errors"
	"fmt"
)

// ErrUnknownCommand is returned by ParseCommand for unrecognised names.
var ErrUnknownCommand = errors.New("unknown command")

// Command is an abstract player or timer input.
type Command uint8

const (
	MoveLeft Command = iota + 1
	MoveRight
	SoftDrop
	HardDrop
	RotateCW
	RotateCCW
	Hold
)

// CommandKind is the closed category a Command belongs to.
type CommandKind uint8

const (
	Horizontal CommandKind = iota + 1
	Vertical
	Spin
	Extra
)

// Commands lists every command.
var Commands = [...]Command{MoveLeft, MoveRight, SoftDrop, HardDrop, RotateCW, RotateCCW, Hold}

var commandNames = map[Command]string{
	MoveLeft:  "left",
	MoveRight: "right",
	SoftDrop:  "down",
	HardDrop:  "drop",
	RotateCW:  "rotate_cw",
	RotateCCW: "rotate_ccw",
	Hold:      "hold",
}

// Kind returns the category of c.
func (c Command) Kind() CommandKind {
	switch c {
	case MoveLeft, MoveRight:
		return Horizontal
	case SoftDrop, HardDrop:
		return Vertical
	case RotateCW, RotateCCW:
		return Spin
	case Hold:
		return Extra
	default:
		return 0
	}
}

func (c Command) String() string {
	if s, ok := commandNames[c]; ok {
		return s
	}
	return fmt.Sprintf("Command(%d)", uint8(c))
}

// ParseCommand maps a command name back to its Command.
func ParseCommand(s string) (Command, error) {
	for _, c := range Commands {
		if commandNames[c] == s {
			return c, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownCommand, s)
}
