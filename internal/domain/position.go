package domain

import "fmt"

// Position is an integer point on the board, or an offset relative to one.
// The y axis grows upwards: row 0 is the floor.
type Position struct {
	X int
	Y int
}

// Pos is shorthand for Position{X: x, Y: y}.
func Pos(x, y int) Position { return Position{X: x, Y: y} }

// Add returns p+q.
func (p Position) Add(q Position) Position { return Position{p.X + q.X, p.Y + q.Y} }

// Sub returns p-q.
func (p Position) Sub(q Position) Position { return Position{p.X - q.X, p.Y - q.Y} }

// Within reports whether p lies in [0,bounds.X) x [0,bounds.Y).
func (p Position) Within(bounds Position) bool {
	return p.X >= 0 && p.X < bounds.X && p.Y >= 0 && p.Y < bounds.Y
}

// Move returns p shifted one step in direction d.
func (p Position) Move(d Direction) Position { return p.Add(d.Delta()) }

// Less orders positions by x, then y.
func (p Position) Less(q Position) bool {
	if p.X != q.X {
		return p.X < q.X
	}
	return p.Y < q.Y
}

func (p Position) String() string { return fmt.Sprintf("(%d, %d)", p.X, p.Y) }

// Direction is one of the four board-aligned unit moves.
type Direction uint8

const (
	NoDirection Direction = iota
	Left
	Right
	Up
	Down
)

// Delta returns the unit offset for d.
func (d Direction) Delta() Position {
	switch d {
	case Left:
		return Position{-1, 0}
	case Right:
		return Position{1, 0}
	case Up:
		return Position{0, 1}
	case Down:
		return Position{0, -1}
	default:
		return Position{}
	}
}

// Opposite returns the reverse direction.
func (d Direction) Opposite() Direction {
	switch d {
	case Left:
		return Right
	case Right:
		return Left
	case Up:
		return Down
	case Down:
		return Up
	default:
		return d
	}
}

func (d Direction) String() string {
	switch d {
	case Left:
		return "Left"
	case Right:
		return "Right"
	case Up:
		return "Up"
	case Down:
		return "Down"
	default:
		return "None"
	}
}
