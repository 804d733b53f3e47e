package domain

import (
	"fmt"
	"slices"
)

const (
	// BlockCount is the number of blocks in every tetromino.
	BlockCount = 4
	// MaxOrientations bounds the rotation ring of any shape.
	MaxOrientations = 4
)

// Rotation is the direction of a quarter turn.
type Rotation uint8

const (
	Clockwise Rotation = iota
	CounterClockwise
)

// Inverse returns the opposite turn.
func (r Rotation) Inverse() Rotation {
	if r == Clockwise {
		return CounterClockwise
	}
	return Clockwise
}

// orientation is one precomputed rotational instance of a shape.
type orientation struct {
	body  [BlockCount]Position // sorted by x, then y
	skirt [BlockCount]int      // lowest block per column; first size.X entries valid
	size  Position
}

// ring holds every distinct orientation of one shape in counter-clockwise
// order. Index 0 is the spawn orientation.
type ring struct {
	orients [MaxOrientations]orientation
	n       int
}

var rings = buildRings()

func buildRings() [J + 1]ring {
	var out [J + 1]ring
	for _, t := range Tetrominoes {
		out[t] = buildRing(t.Body())
	}
	return out
}

func buildRing(body [BlockCount]Position) ring {
	var r ring
	first := newOrientation(body)
	r.orients[0] = first
	r.n = 1
	cur := first
	for r.n < MaxOrientations {
		next := newOrientation(turnCCW(cur))
		if next.body == first.body {
			break
		}
		r.orients[r.n] = next
		r.n++
		cur = next
	}
	return r
}

func newOrientation(body [BlockCount]Position) orientation {
	o := orientation{body: body}
	slices.SortFunc(o.body[:], func(a, b Position) int {
		switch {
		case a.Less(b):
			return -1
		case b.Less(a):
			return 1
		}
		return 0
	})
	minY, maxY := o.body[0].Y, o.body[0].Y
	columns := 0
	for _, p := range o.body {
		minY = min(minY, p.Y)
		maxY = max(maxY, p.Y)
		// Sorted: the first block seen in a column is its lowest.
		if columns-1 < p.X {
			o.skirt[columns] = p.Y
			columns++
		}
	}
	o.size = Position{
		X: 1 + o.body[BlockCount-1].X - o.body[0].X,
		Y: 1 + maxY - minY,
	}
	return o
}

// turnCCW maps (x, y) to (height-1-y, x).
func turnCCW(o orientation) [BlockCount]Position {
	var out [BlockCount]Position
	for i, p := range o.body {
		out[i] = Position{X: o.size.Y - 1 - p.Y, Y: p.X}
	}
	return out
}

// Piece is an immutable orientation of a tetromino. It is a small value:
// the geometry lives in a shared table built once at package init.
// The zero Piece is "no piece".
type Piece struct {
	kind   Tetromino
	orient uint8
}

// NewPiece returns t in its spawn orientation.
func NewPiece(t Tetromino) Piece {
	if !t.Valid() {
		panic(fmt.Sprintf("domain: invalid tetromino %d", t))
	}
	return Piece{kind: t}
}

func (p Piece) data() *orientation { return &rings[p.kind].orients[p.orient] }

// IsZero reports whether p is the zero Piece.
func (p Piece) IsZero() bool { return p.kind == None }

// Type returns the tetromino this piece is an orientation of.
func (p Piece) Type() Tetromino { return p.kind }

// Orientation returns the index of p within its rotation ring.
func (p Piece) Orientation() int { return int(p.orient) }

// MaxOrientation returns the number of distinct orientations of p's shape.
func (p Piece) MaxOrientation() int { return rings[p.kind].n }

// Body returns the block offsets, sorted by x then y.
func (p Piece) Body() [BlockCount]Position { return p.data().body }

// Skirt returns, per column, the lowest occupied row of the body.
func (p Piece) Skirt() []int {
	d := p.data()
	out := make([]int, d.size.X)
	copy(out, d.skirt[:d.size.X])
	return out
}

// Size returns the bounding box of the body.
func (p Piece) Size() Position { return p.data().size }

func (p Piece) Width() int  { return p.data().size.X }
func (p Piece) Height() int { return p.data().size.Y }

// Rotate returns the neighbouring orientation in direction r.
func (p Piece) Rotate(r Rotation) Piece {
	n := uint8(rings[p.kind].n)
	if r == CounterClockwise {
		p.orient = (p.orient + 1) % n
	} else {
		p.orient = (p.orient + n - 1) % n
	}
	return p
}

// Orientations lists the whole ring in counter-clockwise order, starting
// with p.
func (p Piece) Orientations() []Piece {
	out := make([]Piece, 0, p.MaxOrientation())
	cur := p
	for range p.MaxOrientation() {
		out = append(out, cur)
		cur = cur.Rotate(CounterClockwise)
	}
	return out
}

// FixedBody translates the body by origin. It returns false if any block
// falls outside [0,bounds) on either axis.
func (p Piece) FixedBody(origin, bounds Position) ([BlockCount]Position, bool) {
	var out [BlockCount]Position
	for i, b := range p.data().body {
		out[i] = b.Add(origin)
		if !out[i].Within(bounds) {
			return out, false
		}
	}
	return out, true
}

// Equal reports whether both pieces have the same sorted body.
func (p Piece) Equal(q Piece) bool {
	if p.IsZero() || q.IsZero() {
		return p == q
	}
	return p.data().body == q.data().body
}

func (p Piece) String() string {
	if p.IsZero() {
		return "<none>"
	}
	return fmt.Sprintf("%s/%d", p.kind, p.orient)
}
