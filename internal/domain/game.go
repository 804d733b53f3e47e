package domain

import (
	"errors"
	"fmt"
	"time"
)

// ErrGameOver is returned for any command issued after the game ended.
var ErrGameOver = errors.New("game over")

// State is the lifecycle stage of a Game.
type State uint8

const (
	StateNotStarted State = iota
	StateActive
	StateOver
)

func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "not_started"
	case StateActive:
		return "active"
	case StateOver:
		return "over"
	default:
		return "unknown"
	}
}

// Game turns commands into board placements. It is not safe for concurrent
// use: every call must be sequenced by the caller.
type Game struct {
	board  *Board
	source Source
	events EventSink
	now    func() time.Time

	queueSize int
	queue     []Piece

	// The active piece is always staged on the board, never committed,
	// so Undo lifts it off before the next move is evaluated.
	current    Piece
	currentPos Position
	held       Piece
	moved      bool

	state     State
	score     int
	lines     int
	startTime time.Time
	clearTime time.Time
	endTime   time.Time
}

// NewGame returns a game on board fed by source. nextQueueSize is the number
// of upcoming pieces kept visible; events may be nil.
func NewGame(board *Board, source Source, events EventSink, nextQueueSize int) (*Game, error) {
	if source == nil {
		return nil, ErrNoPieceSource
	}
	if events == nil {
		events = discard{}
	}
	return &Game{
		board:     board,
		source:    source,
		events:    events,
		now:       time.Now,
		queueSize: max(nextQueueSize, 0),
	}, nil
}

// SetClock replaces the time source used for the game timers.
func (g *Game) SetClock(now func() time.Time) { g.now = now }

func (g *Game) Board() *Board      { return g.board }
func (g *Game) State() State       { return g.state }
func (g *Game) IsGameOver() bool   { return g.state == StateOver }
func (g *Game) NextQueueSize() int { return g.queueSize }

// Score is the number of pieces spawned so far.
func (g *Game) Score() int { return g.score }

// Lines is the total number of rows cleared.
func (g *Game) Lines() int { return g.lines }

// Current returns the falling piece and its board position.
func (g *Game) Current() (Piece, Position, bool) {
	return g.current, g.currentPos, !g.current.IsZero()
}

// Held returns the piece in the hold slot.
func (g *Game) Held() (Piece, bool) { return g.held, !g.held.IsZero() }

// Preview returns the upcoming pieces, next first.
func (g *Game) Preview() []Piece { return append([]Piece(nil), g.queue...) }

// ElapsedTime is the time since the first command, frozen at game over.
func (g *Game) ElapsedTime() time.Duration {
	switch g.state {
	case StateNotStarted:
		return 0
	case StateOver:
		return g.endTime.Sub(g.startTime)
	}
	return g.now().Sub(g.startTime)
}

// TimeSinceClear is the time since rows were last cleared, or since the
// start if none have been.
func (g *Game) TimeSinceClear() time.Duration {
	if g.state == StateNotStarted {
		return 0
	}
	return g.now().Sub(g.clearTime)
}

// Tick advances the game by one gravity step.
func (g *Game) Tick() error { return g.Command(SoftDrop) }

// Command applies cmd. A move that does not fit is silently rejected; a
// soft drop that does not fit right after another soft drop lands the piece.
func (g *Game) Command(cmd Command) error {
	if g.state == StateOver {
		return ErrGameOver
	}
	kind := cmd.Kind()
	if kind == 0 {
		return fmt.Errorf("%w: %d", ErrUnknownCommand, uint8(cmd))
	}
	g.start()
	if g.state == StateOver {
		return nil
	}
	if kind == Extra {
		g.hold()
		return nil
	}

	g.board.Undo()
	piece, pos := g.candidate(cmd)
	failed := !g.setCurrent(piece, pos)
	if failed {
		g.restore()
		if cmd == SoftDrop && !g.moved {
			g.land()
		}
	}
	g.moved = !failed && cmd != SoftDrop
	return nil
}

func (g *Game) start() {
	if g.state != StateNotStarted {
		return
	}
	g.state = StateActive
	g.startTime = g.now()
	g.clearTime = g.startTime
	g.spawn(g.draw())
}

func (g *Game) candidate(cmd Command) (Piece, Position) {
	piece, pos := g.current, g.currentPos
	switch cmd.Kind() {
	case Horizontal:
		if cmd == MoveLeft {
			pos = pos.Move(Left)
		} else {
			pos = pos.Move(Right)
		}
	case Vertical:
		if cmd == SoftDrop {
			pos = pos.Move(Down)
		} else {
			pos.Y = g.board.DropHeight(piece, pos.X)
		}
	case Spin:
		dir := CounterClockwise
		if cmd == RotateCW {
			dir = Clockwise
		}
		rotated := piece.Rotate(dir)
		// Keep the visual centre rather than the lower-left corner.
		d := piece.Size().Sub(rotated.Size())
		pos = pos.Add(Position{d.X / 2, d.Y / 2})
		piece = rotated
	}
	return piece, pos
}

// setCurrent stages piece at pos and adopts it as the active piece.
func (g *Game) setCurrent(piece Piece, pos Position) bool {
	if _, err := g.board.Place(piece, pos); err != nil {
		g.board.Undo()
		return false
	}
	g.current, g.currentPos = piece, pos
	return true
}

// restore puts the active piece back where it was before a rejected move.
func (g *Game) restore() {
	if g.current.IsZero() {
		return
	}
	if _, err := g.board.Place(g.current, g.currentPos); err != nil {
		panic(&SanityError{Msg: fmt.Sprintf("active piece %s no longer fits at %s: %v", g.current, g.currentPos, err)})
	}
}

func (g *Game) land() {
	g.board.Commit()
	g.current = Piece{}
	if n := g.board.ClearRows(); n > 0 {
		g.lines += n
		g.clearTime = g.now()
	}
	if g.board.HasOverflow() {
		g.gameOver()
		return
	}
	g.spawn(g.draw())
}

func (g *Game) hold() {
	g.board.Undo()
	if g.held.IsZero() {
		g.held = g.current
		g.spawn(g.draw())
	} else {
		next := g.held
		g.held = g.current
		g.spawn(next)
	}
	g.moved = false
}

// spawn makes piece the active one, centred horizontally at the top.
func (g *Game) spawn(piece Piece) {
	g.score++
	g.board.Commit()
	g.current = Piece{}
	d := g.board.Size().Sub(piece.Size())
	if !g.setCurrent(piece, Position{d.X / 2, d.Y}) {
		g.gameOver()
	}
}

// draw pops the next piece, topping the queue up to one more than the
// visible lookahead first.
func (g *Game) draw() Piece {
	for len(g.queue) < g.queueSize+1 {
		g.queue = append(g.queue, g.source.NextPiece())
	}
	p := g.queue[0]
	g.queue = g.queue[1:]
	return p
}

func (g *Game) gameOver() {
	g.state = StateOver
	g.endTime = g.now()
	g.events.Publish(EventGameOver)
}
