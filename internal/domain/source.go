package domain

import (
	"errors"
	"math/rand/v2"
)

// ErrNoPieceSource is returned by NewGame when no source is supplied.
var ErrNoPieceSource = errors.New("no piece source")

// Source produces the pieces fed into a game's lookahead queue.
type Source interface {
	NextPiece() Piece
}

// SourceFunc adapts a function to Source.
type SourceFunc func() Piece

func (f SourceFunc) NextPiece() Piece { return f() }

// RandomSource picks each tetromino uniformly at random.
type RandomSource struct {
	rng *rand.Rand
}

// NewRandomSource returns a uniform source drawing from rng.
func NewRandomSource(rng *rand.Rand) *RandomSource {
	return &RandomSource{rng: rng}
}

func (s *RandomSource) NextPiece() Piece {
	return NewPiece(Tetrominoes[s.rng.IntN(len(Tetrominoes))])
}

// BagSource deals the seven tetrominoes in shuffled bags, so every shape
// appears once per seven draws.
type BagSource struct {
	rng *rand.Rand
	bag []Tetromino
}

// NewBagSource returns a 7-bag source drawing from rng.
func NewBagSource(rng *rand.Rand) *BagSource {
	return &BagSource{rng: rng}
}

func (s *BagSource) NextPiece() Piece {
	if len(s.bag) == 0 {
		s.bag = append(s.bag[:0], Tetrominoes[:]...)
		s.rng.Shuffle(len(s.bag), func(i, j int) {
			s.bag[i], s.bag[j] = s.bag[j], s.bag[i]
		})
	}
	t := s.bag[0]
	s.bag = s.bag[1:]
	return NewPiece(t)
}

// FixedSource always yields the same shape. Useful for debugging.
type FixedSource Tetromino

func (s FixedSource) NextPiece() Piece { return NewPiece(Tetromino(s)) }

// SequenceSource replays a fixed list of shapes, cycling when exhausted.
type SequenceSource struct {
	seq  []Tetromino
	next int
}

// NewSequenceSource returns a source cycling through seq.
func NewSequenceSource(seq ...Tetromino) *SequenceSource {
	if len(seq) == 0 {
		panic("domain: empty piece sequence")
	}
	return &SequenceSource{seq: seq}
}

func (s *SequenceSource) NextPiece() Piece {
	t := s.seq[s.next]
	s.next = (s.next + 1) % len(s.seq)
	return NewPiece(t)
}
