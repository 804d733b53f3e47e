package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Placement errors. Both leave the board untouched.
var (
	ErrOutOfBounds = errors.New("out of bounds")
	ErrOccupied    = errors.New("cell occupied")
)

// SanityError reports that the cached row/column counters disagree with
// the grid. It always indicates an engine bug.
type SanityError struct {
	Msg string
}

func (e *SanityError) Error() string { return "board insanity: " + e.Msg }

// boardState is everything a placement can change; staging copies it whole.
type boardState struct {
	cells     []Tetromino // row-major, index = y*width + x
	rowFill   []int       // occupied cells per row
	colHeight []int       // 1 + highest occupied row per column, 0 if empty
	maxHeight int
}

func newBoardState(w, h int) boardState {
	return boardState{
		cells:     make([]Tetromino, w*h),
		rowFill:   make([]int, h),
		colHeight: make([]int, w),
	}
}

func (s *boardState) clone() *boardState {
	return &boardState{
		cells:     append([]Tetromino(nil), s.cells...),
		rowFill:   append([]int(nil), s.rowFill...),
		colHeight: append([]int(nil), s.colHeight...),
		maxHeight: s.maxHeight,
	}
}

// Board is a width x height grid of tetromino markers with single-level
// transactional placement.
type Board struct {
	width    int
	height   int
	topSpace int
	debug    bool

	cur    boardState
	staged *boardState
}

// NewBoard returns an empty board. topSpace rows at the top are reserved:
// a stack reaching into them overflows.
func NewBoard(width, height, topSpace int) *Board {
	if width <= 0 || height <= 0 {
		panic(fmt.Sprintf("domain: invalid board size %dx%d", width, height))
	}
	return &Board{
		width:    width,
		height:   height,
		topSpace: topSpace,
		cur:      newBoardState(width, height),
	}
}

// SetDebug toggles the consistency check run after every mutation. A failed
// check panics with *SanityError.
func (b *Board) SetDebug(on bool) { b.debug = on }

func (b *Board) Width() int    { return b.width }
func (b *Board) Height() int   { return b.height }
func (b *Board) TopSpace() int { return b.topSpace }

// Size returns the board dimensions as a bounds position.
func (b *Board) Size() Position { return Position{b.width, b.height} }

func (b *Board) index(x, y int) int { return y*b.width + x }

// State returns the marker at (x, y); None if the cell is empty.
func (b *Board) State(x, y int) Tetromino { return b.cur.cells[b.index(x, y)] }

// IsFilled reports whether (x, y) is occupied.
func (b *Board) IsFilled(x, y int) bool { return b.State(x, y) != None }

// RowWidth returns the number of occupied cells in row y.
func (b *Board) RowWidth(y int) int { return b.cur.rowFill[y] }

// ColumnHeight returns one more than the highest occupied row of column x.
func (b *Board) ColumnHeight(x int) int { return b.cur.colHeight[x] }

// MaxHeight returns the highest column height.
func (b *Board) MaxHeight() int { return b.cur.maxHeight }

// IsEmpty reports whether no cell is occupied.
func (b *Board) IsEmpty() bool { return b.cur.maxHeight == 0 }

// HasOverflow reports whether the stack reaches into the reserved top rows.
func (b *Board) HasOverflow() bool { return b.cur.maxHeight > b.height-b.topSpace }

// IsCommitted reports whether there is no staged snapshot to undo to.
func (b *Board) IsCommitted() bool { return b.staged == nil }

// Place writes piece with its origin at pos. The placement is atomic: on
// ErrOutOfBounds or ErrOccupied nothing is written and nothing is staged.
// On success the previous state is staged (unless a snapshot is already
// pending) so Undo can revert it. rowFilled is true if any row became full.
func (b *Board) Place(piece Piece, pos Position) (rowFilled bool, err error) {
	cells, ok := piece.FixedBody(pos, b.Size())
	if !ok {
		return false, ErrOutOfBounds
	}
	for _, c := range cells {
		if b.IsFilled(c.X, c.Y) {
			return false, ErrOccupied
		}
	}
	if b.staged == nil {
		b.staged = b.cur.clone()
	}
	for _, c := range cells {
		b.cur.cells[b.index(c.X, c.Y)] = piece.Type()
		b.cur.rowFill[c.Y]++
		if c.Y+1 > b.cur.colHeight[c.X] {
			b.cur.colHeight[c.X] = c.Y + 1
			b.cur.maxHeight = max(b.cur.maxHeight, c.Y+1)
		}
		if b.cur.rowFill[c.Y] == b.width {
			rowFilled = true
		}
	}
	b.sanityCheck()
	return rowFilled, nil
}

// Undo restores the staged snapshot, if any, and discards it.
func (b *Board) Undo() {
	if b.staged == nil {
		return
	}
	b.cur = *b.staged
	b.staged = nil
	b.sanityCheck()
}

// Commit makes the current state permanent by discarding the snapshot.
func (b *Board) Commit() { b.staged = nil }

// ClearRows removes every full row, shifting the rows above down by the
// number of full rows beneath them. It returns the number of rows removed.
func (b *Board) ClearRows() int {
	filled := 0
	for y := 0; y < b.height; y++ {
		if b.cur.rowFill[y] == b.width {
			filled++
			continue
		}
		if filled > 0 {
			b.moveRow(y, y-filled)
		}
	}
	if filled == 0 {
		return 0
	}
	for y := b.height - filled; y < b.height; y++ {
		b.clearRow(y)
	}
	b.cur.maxHeight = 0
	for x := 0; x < b.width; x++ {
		b.cur.colHeight[x] = b.computeColumnHeight(x)
		b.cur.maxHeight = max(b.cur.maxHeight, b.cur.colHeight[x])
	}
	b.sanityCheck()
	return filled
}

func (b *Board) moveRow(src, dst int) {
	copy(b.cur.cells[b.index(0, dst):b.index(0, dst+1)], b.cur.cells[b.index(0, src):b.index(0, src+1)])
	b.cur.rowFill[dst] = b.cur.rowFill[src]
}

func (b *Board) clearRow(y int) {
	clear(b.cur.cells[b.index(0, y):b.index(0, y+1)])
	b.cur.rowFill[y] = 0
}

// DropHeight returns the landing row for piece with its left edge at x: the
// highest column among the ones it spans.
func (b *Board) DropHeight(piece Piece, x int) int {
	h := 0
	for i := x; i < x+piece.Width() && i < b.width; i++ {
		if i < 0 {
			continue
		}
		h = max(h, b.cur.colHeight[i])
	}
	return h
}

func (b *Board) computeColumnHeight(x int) int {
	for y := b.height - 1; y >= 0; y-- {
		if b.IsFilled(x, y) {
			return y + 1
		}
	}
	return 0
}

func (b *Board) sanityCheck() {
	if !b.debug {
		return
	}
	if err := b.Verify(); err != nil {
		panic(err)
	}
}

// Verify recomputes the row and column counters from the grid and returns
// a *SanityError on the first mismatch.
func (b *Board) Verify() error {
	if len(b.cur.colHeight) != b.width || len(b.cur.rowFill) != b.height {
		return &SanityError{Msg: "counter arrays have the wrong length"}
	}
	for y := 0; y < b.height; y++ {
		n := 0
		for x := 0; x < b.width; x++ {
			if b.IsFilled(x, y) {
				n++
			}
		}
		if n != b.cur.rowFill[y] {
			return &SanityError{Msg: fmt.Sprintf("row %d has [real, stored] width [%d, %d]", y, n, b.cur.rowFill[y])}
		}
	}
	maxHeight := 0
	for x := 0; x < b.width; x++ {
		h := b.computeColumnHeight(x)
		if h != b.cur.colHeight[x] {
			return &SanityError{Msg: fmt.Sprintf("column %d has [real, stored] height [%d, %d]", x, h, b.cur.colHeight[x])}
		}
		maxHeight = max(maxHeight, h)
	}
	if maxHeight != b.cur.maxHeight {
		return &SanityError{Msg: fmt.Sprintf("max height [real, stored] = [%d, %d]", maxHeight, b.cur.maxHeight)}
	}
	return nil
}

// String draws the grid top row first, one character per cell.
func (b *Board) String() string {
	var sb strings.Builder
	for y := b.height - 1; y >= 0; y-- {
		for x := 0; x < b.width; x++ {
			sb.WriteString(b.State(x, y).String())
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
