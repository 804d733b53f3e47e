package domain

import (
	"fmt"
	"strings"
)

// Tetromino identifies one of the seven canonical shapes. The zero value,
// None, marks an empty board cell.
type Tetromino uint8

const (
	None Tetromino = iota
	O
	I
	S
	Z
	T
	L
	J
)

// Tetrominoes lists every playable shape in catalog order.
var Tetrominoes = [7]Tetromino{O, I, S, Z, T, L, J}

// bodies holds the spawn orientation of each shape as block offsets.
var bodies = [...][BlockCount]Position{
	O: {{0, 0}, {0, 1}, {1, 0}, {1, 1}},
	I: {{0, 0}, {0, 1}, {0, 2}, {0, 3}},
	S: {{0, 0}, {1, 0}, {1, 1}, {2, 1}},
	Z: {{0, 1}, {1, 1}, {1, 0}, {2, 0}},
	T: {{0, 0}, {1, 0}, {1, 1}, {2, 0}},
	L: {{0, 0}, {0, 1}, {0, 2}, {1, 0}},
	J: {{0, 0}, {1, 0}, {1, 1}, {1, 2}},
}

// Body returns the literal spawn offsets of t.
func (t Tetromino) Body() [BlockCount]Position { return bodies[t] }

// Valid reports whether t names a playable shape.
func (t Tetromino) Valid() bool { return t >= O && t <= J }

func (t Tetromino) String() string {
	switch t {
	case O:
		return "O"
	case I:
		return "I"
	case S:
		return "S"
	case Z:
		return "Z"
	case T:
		return "T"
	case L:
		return "L"
	case J:
		return "J"
	default:
		return "."
	}
}

// ParseTetromino maps a single-letter name back to its shape.
func ParseTetromino(s string) (Tetromino, error) {
	for _, t := range Tetrominoes {
		if strings.EqualFold(s, t.String()) {
			return t, nil
		}
	}
	return None, fmt.Errorf("unknown tetromino %q", s)
}
