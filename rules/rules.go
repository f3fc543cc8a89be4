package rules

import (
	"fmt"
	"sync"

	"github.com/brensch/colosseum/game"
)

// bfsScratch holds reusable search buffers. Enumerate runs once per rollout
// ply, so allocation here dominates search throughput.
type bfsScratch struct {
	visited []bool
	queue   []bfsEntry
}

type bfsEntry struct {
	pos  game.Position
	dist int
}

var scratchPool = sync.Pool{
	New: func() any { return &bfsScratch{} },
}

func getScratch(cells int) *bfsScratch {
	s := scratchPool.Get().(*bfsScratch)
	if cap(s.visited) < cells {
		s.visited = make([]bool, cells)
	} else {
		s.visited = s.visited[:cells]
		clear(s.visited)
	}
	s.queue = s.queue[:0]
	return s
}

func putScratch(s *bfsScratch) {
	scratchPool.Put(s)
}

// Enumerate returns every legal move for actor: each cell reachable within
// maxStep steps (including the start cell) paired with each of its sides
// that has no barrier yet. Paths never cross a barrier and never enter the
// blocker cell. Moves are ordered by BFS visit order, then by direction.
func Enumerate(b *game.Board, actor, blocker game.Position, maxStep int) []game.Move {
	return AppendMoves(nil, b, actor, blocker, maxStep)
}

// AppendMoves is Enumerate appending into dst, so hot loops can reuse a slice.
func AppendMoves(dst []game.Move, b *game.Board, actor, blocker game.Position, maxStep int) []game.Move {
	if !b.InBounds(actor) {
		return dst
	}
	s := getScratch(b.NumCells())
	defer putScratch(s)

	s.visited[b.Index(actor)] = true
	s.queue = append(s.queue, bfsEntry{pos: actor})

	for head := 0; head < len(s.queue); head++ {
		cur := s.queue[head]
		walls := b.Walls(cur.pos)

		for _, d := range game.Directions {
			if !walls.Has(d) {
				dst = append(dst, game.Move{To: cur.pos, Dir: d})
			}
		}

		if cur.dist >= maxStep {
			continue
		}
		for _, d := range game.Directions {
			if walls.Has(d) {
				continue
			}
			next := cur.pos.Step(d)
			if next == blocker {
				continue
			}
			idx := b.Index(next)
			if s.visited[idx] {
				continue
			}
			s.visited[idx] = true
			s.queue = append(s.queue, bfsEntry{pos: next, dist: cur.dist + 1})
		}
	}
	return dst
}

// CheckMove validates a single move independently of Enumerate: the
// destination must be on the board, its chosen side must be free, and a
// barrier-respecting path of at most maxStep steps avoiding blocker must
// lead there. The search stops as soon as the destination is reached.
func CheckMove(b *game.Board, actor, blocker game.Position, maxStep int, m game.Move) error {
	if !m.Dir.Valid() {
		return fmt.Errorf("%w: direction %d", game.ErrInvalidBarrier, m.Dir)
	}
	if !b.InBounds(m.To) {
		return fmt.Errorf("%w: destination %s out of bounds", game.ErrInvalidState, m.To)
	}
	if b.HasBarrier(m.To, m.Dir) {
		return fmt.Errorf("%w: %s already has barrier %s", game.ErrInvalidBarrier, m.To, m.Dir)
	}
	if m.To == blocker {
		return fmt.Errorf("%w: destination %s is occupied", game.ErrInvalidState, m.To)
	}
	if m.To == actor {
		return nil
	}

	s := getScratch(b.NumCells())
	defer putScratch(s)

	s.visited[b.Index(actor)] = true
	s.queue = append(s.queue, bfsEntry{pos: actor})
	for head := 0; head < len(s.queue); head++ {
		cur := s.queue[head]
		if cur.dist == maxStep {
			break
		}
		for _, d := range game.Directions {
			if b.HasBarrier(cur.pos, d) {
				continue
			}
			next := cur.pos.Step(d)
			if next == blocker || s.visited[b.Index(next)] {
				continue
			}
			if next == m.To {
				return nil
			}
			s.visited[b.Index(next)] = true
			s.queue = append(s.queue, bfsEntry{pos: next, dist: cur.dist + 1})
		}
	}
	return fmt.Errorf("%w: %s not reachable from %s within %d steps", game.ErrInvalidState, m.To, actor, maxStep)
}

// Apply returns the board after the move's barrier is placed.
func Apply(b *game.Board, m game.Move) (*game.Board, error) {
	return b.WithBarrierAdded(m.To, m.Dir)
}
