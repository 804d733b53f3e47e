package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRotationClosure(t *testing.T) {
	want := map[Tetromino]int{O: 1, I: 2, S: 2, Z: 2, T: 4, L: 4, J: 4}
	for _, kind := range Tetrominoes {
		t.Run(kind.String(), func(t *testing.T) {
			start := NewPiece(kind)
			require.Equal(t, want[kind], start.MaxOrientation())

			p := start
			for i := 0; i < start.MaxOrientation(); i++ {
				next := p.Rotate(CounterClockwise)
				assert.True(t, next.Rotate(Clockwise).Equal(p), "CW must undo CCW at step %d", i)
				if i < start.MaxOrientation()-1 {
					assert.False(t, next.Equal(start), "returned to start early at step %d", i)
				}
				p = next
			}
			assert.True(t, p.Equal(start))
			assert.Equal(t, start, p)
		})
	}
}

func TestPieceGeometry(t *testing.T) {
	tests := []struct {
		name  string
		piece Piece
		body  [BlockCount]Position
		size  Position
		skirt []int
	}{
		{"I spawn", NewPiece(I), [4]Position{{0, 0}, {0, 1}, {0, 2}, {0, 3}}, Pos(1, 4), []int{0}},
		{"I turned", NewPiece(I).Rotate(CounterClockwise), [4]Position{{0, 0}, {1, 0}, {2, 0}, {3, 0}}, Pos(4, 1), []int{0, 0, 0, 0}},
		{"O", NewPiece(O), [4]Position{{0, 0}, {0, 1}, {1, 0}, {1, 1}}, Pos(2, 2), []int{0, 0}},
		{"T spawn", NewPiece(T), [4]Position{{0, 0}, {1, 0}, {1, 1}, {2, 0}}, Pos(3, 2), []int{0, 0, 0}},
		{"T turned", NewPiece(T).Rotate(CounterClockwise), [4]Position{{0, 1}, {1, 0}, {1, 1}, {1, 2}}, Pos(2, 3), []int{1, 0}},
		{"Z spawn", NewPiece(Z), [4]Position{{0, 1}, {1, 0}, {1, 1}, {2, 0}}, Pos(3, 2), []int{1, 0, 0}},
		{"J spawn", NewPiece(J), [4]Position{{0, 0}, {1, 0}, {1, 1}, {1, 2}}, Pos(2, 3), []int{0, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.body, tt.piece.Body())
			assert.Equal(t, tt.size, tt.piece.Size())
			assert.Equal(t, tt.size.X, tt.piece.Width())
			assert.Equal(t, tt.size.Y, tt.piece.Height())
			assert.Equal(t, tt.skirt, tt.piece.Skirt())
		})
	}
}

func TestFixedBody(t *testing.T) {
	bounds := Pos(10, 20)
	p := NewPiece(T)

	cells, ok := p.FixedBody(Pos(3, 5), bounds)
	require.True(t, ok)
	assert.Equal(t, [4]Position{{3, 5}, {4, 5}, {4, 6}, {5, 5}}, cells)

	for _, origin := range []Position{{-1, 0}, {8, 0}, {0, -1}, {0, 19}} {
		_, ok := p.FixedBody(origin, bounds)
		assert.False(t, ok, "origin %v should not fit", origin)
	}
}

func TestOrientationsStartAtReceiver(t *testing.T) {
	p := NewPiece(L).Rotate(Clockwise)
	all := p.Orientations()
	require.Len(t, all, 4)
	assert.Equal(t, p, all[0])
	assert.Equal(t, p.Rotate(CounterClockwise), all[1])
	seen := map[[BlockCount]Position]bool{}
	for _, o := range all {
		seen[o.Body()] = true
	}
	assert.Len(t, seen, 4)
}

func TestPieceEqualityAndZero(t *testing.T) {
	assert.True(t, NewPiece(S).Equal(NewPiece(S)))
	assert.False(t, NewPiece(S).Equal(NewPiece(Z)))
	assert.True(t, Piece{}.IsZero())
	assert.False(t, Piece{}.Equal(NewPiece(O)))
	assert.Equal(t, "<none>", Piece{}.String())
	assert.Equal(t, "T/1", NewPiece(T).Rotate(CounterClockwise).String())
	assert.Panics(t, func() { NewPiece(None) })
}

func TestParseTetromino(t *testing.T) {
	for _, kind := range Tetrominoes {
		got, err := ParseTetromino(kind.String())
		require.NoError(t, err)
		assert.Equal(t, kind, got)
	}
	got, err := ParseTetromino("i")
	require.NoError(t, err)
	assert.Equal(t, I, got)
	_, err = ParseTetromino("Q")
	assert.Error(t, err)
}
