package game

import (
	"fmt"
	"math/bits"
)

// MaxBoardSize bounds boards so that cell indices and archive encodings stay small.
const MaxBoardSize = 64

// Walls is the set of barriered sides of one cell, one bit per Direction.
type Walls uint8

// Has reports whether side d is barriered.
func (w Walls) Has(d Direction) bool {
	return w&(1<<d) != 0
}

// Count returns the number of barriered sides.
func (w Walls) Count() int {
	return bits.OnesCount8(uint8(w & 0x0f))
}

func (w Walls) with(d Direction) Walls {
	return w | 1<<d
}

// Board is an N×N grid of cells. Outward-facing border sides are stored as
// barriered so that movement never leaves the grid.
//
// A Board is never modified after construction; WithBarrierAdded returns a
// new board.
type Board struct {
	size  int
	cells []Walls
}

// NewBoard returns an n×n board with no interior barriers.
func NewBoard(n int) (*Board, error) {
	if n <= 0 || n > MaxBoardSize {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSize, n)
	}
	b := &Board{size: n, cells: make([]Walls, n*n)}
	for i := 0; i < n; i++ {
		b.cells[b.index(Position{Row: 0, Col: i})] |= 1 << Up
		b.cells[b.index(Position{Row: n - 1, Col: i})] |= 1 << Down
		b.cells[b.index(Position{Row: i, Col: 0})] |= 1 << Left
		b.cells[b.index(Position{Row: i, Col: n - 1})] |= 1 << Right
	}
	return b, nil
}

// Size returns N.
func (b *Board) Size() int { return b.size }

// NumCells returns N².
func (b *Board) NumCells() int { return len(b.cells) }

// InBounds reports whether p is a cell of the board.
func (b *Board) InBounds(p Position) bool {
	return p.Row >= 0 && p.Row < b.size && p.Col >= 0 && p.Col < b.size
}

// Index maps an in-bounds position to its cell index (row-major).
func (b *Board) Index(p Position) int {
	if !b.InBounds(p) {
		panic(fmt.Sprintf("game: position %s out of bounds for size %d", p, b.size))
	}
	return b.index(p)
}

// PositionAt is the inverse of Index.
func (b *Board) PositionAt(idx int) Position {
	return Position{Row: idx / b.size, Col: idx % b.size}
}

func (b *Board) index(p Position) int {
	return p.Row*b.size + p.Col
}

// Walls returns the barrier set of p. Out-of-bounds positions read as fully walled.
func (b *Board) Walls(p Position) Walls {
	if !b.InBounds(p) {
		return 0x0f
	}
	return b.cells[b.index(p)]
}

// HasBarrier reports whether side d of p carries a barrier. Border sides
// facing off the board always do.
func (b *Board) HasBarrier(p Position, d Direction) bool {
	return b.Walls(p).Has(d)
}

// BarrierCount returns how many sides of p are barriered.
func (b *Board) BarrierCount(p Position) int {
	return b.Walls(p).Count()
}

// WithBarrierAdded returns a copy of b with a barrier on side d of p and the
// matching barrier on the neighbour's opposite side.
func (b *Board) WithBarrierAdded(p Position, d Direction) (*Board, error) {
	if !d.Valid() {
		return nil, fmt.Errorf("%w: direction %d", ErrInvalidBarrier, d)
	}
	if !b.InBounds(p) {
		return nil, fmt.Errorf("%w: %s out of bounds", ErrInvalidBarrier, p)
	}
	if b.HasBarrier(p, d) {
		// Covers outward border sides too: they are pre-set.
		return nil, fmt.Errorf("%w: %s already has barrier %s", ErrInvalidBarrier, p, d)
	}
	nb := b.Clone()
	nb.cells[nb.index(p)] = nb.cells[nb.index(p)].with(d)
	n := p.Step(d)
	nb.cells[nb.index(n)] = nb.cells[nb.index(n)].with(d.Opposite())
	return nb, nil
}

// Clone performs a deep copy of the board.
func (b *Board) Clone() *Board {
	if b == nil {
		return nil
	}
	out := &Board{size: b.size, cells: make([]Walls, len(b.cells))}
	copy(out.cells, b.cells)
	return out
}

// Equal reports whether both boards have the same size and barriers.
func (b *Board) Equal(o *Board) bool {
	if b == nil || o == nil {
		return b == o
	}
	if b.size != o.size {
		return false
	}
	for i := range b.cells {
		if b.cells[i] != o.cells[i] {
			return false
		}
	}
	return true
}

// Encode returns one byte per cell (row-major) holding the barrier bits.
func (b *Board) Encode() []byte {
	out := make([]byte, len(b.cells))
	for i, w := range b.cells {
		out[i] = byte(w)
	}
	return out
}

// DecodeBoard rebuilds a board produced by Encode, checking that border
// sides are set and that every interior barrier is paired.
func DecodeBoard(n int, data []byte) (*Board, error) {
	b, err := NewBoard(n)
	if err != nil {
		return nil, err
	}
	if len(data) != n*n {
		return nil, fmt.Errorf("%w: encoded board has %d cells, want %d", ErrInvalidState, len(data), n*n)
	}
	for i, raw := range data {
		w := Walls(raw)
		if w&^0x0f != 0 {
			return nil, fmt.Errorf("%w: cell %d has stray bits %#x", ErrInvalidState, i, raw)
		}
		if b.cells[i]&^w != 0 {
			return nil, fmt.Errorf("%w: cell %d missing border barrier", ErrInvalidState, i)
		}
		b.cells[i] = w
	}
	for i := range b.cells {
		p := b.PositionAt(i)
		for _, d := range Directions {
			nb := p.Step(d)
			if !b.InBounds(nb) {
				continue
			}
			if b.HasBarrier(p, d) != b.HasBarrier(nb, d.Opposite()) {
				return nil, fmt.Errorf("%w: unpaired barrier at %s side %s", ErrInvalidState, p, d)
			}
		}
	}
	return b, nil
}
