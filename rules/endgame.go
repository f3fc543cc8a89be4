package rules

import (
	"sync"

	"github.com/brensch/colosseum/game"
)

// Result is the evaluator's verdict for a position.
//
// MyArea and AdvArea are the sizes of the two players' regions. They are
// only filled in once the players are separated.
type Result struct {
	Ended   bool
	Outcome game.Outcome
	MyArea  int
	AdvArea int
}

// disjointSet is a union-find over cell indices with path compression and
// union by size.
type disjointSet struct {
	parent []int32
	size   []int32
}

var dsPool = sync.Pool{
	New: func() any { return &disjointSet{} },
}

func newDisjointSet(n int) *disjointSet {
	ds := dsPool.Get().(*disjointSet)
	if cap(ds.parent) < n {
		ds.parent = make([]int32, n)
		ds.size = make([]int32, n)
	}
	ds.parent = ds.parent[:n]
	ds.size = ds.size[:n]
	for i := range ds.parent {
		ds.parent[i] = int32(i)
		ds.size[i] = 1
	}
	return ds
}

func (ds *disjointSet) release() {
	dsPool.Put(ds)
}

func (ds *disjointSet) find(x int32) int32 {
	root := x
	for ds.parent[root] != root {
		root = ds.parent[root]
	}
	for ds.parent[x] != root {
		next := ds.parent[x]
		ds.parent[x] = root
		x = next
	}
	return root
}

func (ds *disjointSet) union(a, b int32) {
	ra, rb := ds.find(a), ds.find(b)
	if ra == rb {
		return
	}
	if ds.size[ra] < ds.size[rb] {
		ra, rb = rb, ra
	}
	ds.parent[rb] = ra
	ds.size[ra] += ds.size[rb]
}

// joinRegions unites every pair of cells separated by an open Right or Down
// side. Barriers are always paired, so this visits each undirected edge once.
func joinRegions(b *game.Board) *disjointSet {
	n := b.Size()
	ds := newDisjointSet(b.NumCells())
	for r := 0; r < n; r++ {
		for c := 0; c < n; c++ {
			walls := b.Walls(game.Position{Row: r, Col: c})
			idx := int32(r*n + c)
			if c+1 < n && !walls.Has(game.Right) {
				ds.union(idx, idx+1)
			}
			if r+1 < n && !walls.Has(game.Down) {
				ds.union(idx, idx+int32(n))
			}
		}
	}
	return ds
}

// Evaluate decides whether the game is over. The game continues while both players
// share a region, otherwise the larger region wins and equal sizes tie.
func Evaluate(b *game.Board, myPos, advPos game.Position) Result {
	ds := joinRegions(b)
	defer ds.release()

	myRoot := ds.find(int32(b.Index(myPos)))
	advRoot := ds.find(int32(b.Index(advPos)))
	if myRoot == advRoot {
		return Result{}
	}

	res := Result{
		Ended:   true,
		MyArea:  int(ds.size[myRoot]),
		AdvArea: int(ds.size[advRoot]),
	}
	switch {
	case res.MyArea > res.AdvArea:
		res.Outcome = game.MyWin
	case res.MyArea < res.AdvArea:
		res.Outcome = game.OpponentWin
	default:
		res.Outcome = game.Tie
	}
	return res
}
