// setup.go implements starting-position generation for self-play.

package game

import (
	"encoding/binary"
	"fmt"

	"lukechampine.com/frand"
)

// Rand is the subset of a random source that setup needs.
type Rand interface {
	Intn(n int) int
}

// SetupSettings controls random starting positions.
type SetupSettings struct {
	// Barriers is the number of symmetric barrier pairs placed before play.
	// Zero means one pair per board row.
	Barriers int
}

// DefaultSetupSettings places one barrier pair per board row.
var DefaultSetupSettings = SetupSettings{}

// MaxStepFor returns the per-turn step budget for an n×n board.
func MaxStepFor(n int) int {
	return (n + 1) / 2
}

// Start is a generated starting position.
type Start struct {
	Board   *Board
	Players [2]Position
	MaxStep int
}

// NewRandomStart builds an n×n board with point-symmetric random barriers
// and the two players placed on mirrored cells.
func NewRandomStart(n int, rng Rand, settings SetupSettings) (Start, error) {
	if n < 2 {
		return Start{}, fmt.Errorf("%w: %d (need at least 2 for two players)", ErrInvalidSize, n)
	}
	b, err := NewBoard(n)
	if err != nil {
		return Start{}, err
	}

	mirror := func(p Position) Position {
		return Position{Row: n - 1 - p.Row, Col: n - 1 - p.Col}
	}

	want := settings.Barriers
	if want <= 0 {
		want = n
	}

	// Bounded so a dense request on a tiny board cannot spin forever.
	for placed, attempts := 0, 0; placed < want && attempts < want*64; attempts++ {
		p := Position{Row: rng.Intn(n), Col: rng.Intn(n)}
		d := Direction(rng.Intn(NumDirections))
		if b.HasBarrier(p, d) {
			continue
		}
		nb, err := b.WithBarrierAdded(p, d)
		if err != nil {
			continue
		}
		// The mirrored barrier of side d at p is side Opposite(d) at mirror(p).
		mp, md := mirror(p), d.Opposite()
		if !nb.HasBarrier(mp, md) {
			nb, err = nb.WithBarrierAdded(mp, md)
			if err != nil {
				continue
			}
		}
		b = nb
		placed++
	}

	var p0 Position
	for {
		p0 = Position{Row: rng.Intn(n), Col: rng.Intn(n)}
		if p0 != mirror(p0) {
			break
		}
	}

	return Start{Board: b, Players: [2]Position{p0, mirror(p0)}, MaxStep: MaxStepFor(n)}, nil
}

// NewRNG returns a reproducible random stream for the given seed.
func NewRNG(seed uint64) *frand.RNG {
	var key [32]byte
	for i := 0; i < 4; i++ {
		binary.LittleEndian.PutUint64(key[i*8:], deterministicU64Fast(seed, uint64(i)))
	}
	return frand.NewCustom(key[:], 1024, 12)
}

// deterministicU64Fast is a simple deterministic hasher for reproducibility.
func deterministicU64Fast(a, b uint64) uint64 {
	// Variant of splitmix64
	x := a + b*0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}
