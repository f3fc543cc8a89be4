package mcts

import (
	"github.com/brensch/colosseum/game"
	"github.com/brensch/colosseum/rules"
)

// Tally counts playout results from the root player's perspective.
type Tally struct {
	Wins   int `json:"wins"`
	Losses int `json:"losses"`
	Ties   int `json:"ties"`
}

// Add records n results of kind o.
func (t *Tally) Add(o game.Outcome, n int) {
	switch o {
	case game.MyWin:
		t.Wins += n
	case game.OpponentWin:
		t.Losses += n
	default:
		t.Ties += n
	}
}

// Merge adds every count of o into t.
func (t *Tally) Merge(o Tally) {
	t.Wins += o.Wins
	t.Losses += o.Losses
	t.Ties += o.Ties
}

// Total is the UCT denominator. It includes any prior penalty folded into
// the tally, so it can exceed the visit count.
func (t Tally) Total() int {
	return t.Wins + t.Losses + t.Ties
}

// WinRate is Wins/Total, or 0 for an empty tally.
func (t Tally) WinRate() float64 {
	if n := t.Total(); n > 0 {
		return float64(t.Wins) / float64(n)
	}
	return 0
}

// LossRate is Losses/Total, or 0 for an empty tally.
func (t Tally) LossRate() float64 {
	if n := t.Total(); n > 0 {
		return float64(t.Losses) / float64(n)
	}
	return 0
}

const noParent = -1

// node is one position in the search tree. Nodes live in the tree's arena
// and refer to each other by index; the parent link is non-owning.
//
// The player to move is "mover"; "other" is the player who just moved.
// rootToMove records whether the mover is the player the search is for.
type node struct {
	board      *game.Board
	mover      game.Position
	other      game.Position
	rootToMove bool

	parent   int32
	move     game.Move
	depth    int32
	children []int32
	untried  []game.Move

	visits   int
	tally    Tally
	terminal bool
	outcome  game.Outcome // valid when terminal, root perspective
}

// rootView returns (root player position, opponent position).
func (n *node) rootView() (game.Position, game.Position) {
	if n.rootToMove {
		return n.mover, n.other
	}
	return n.other, n.mover
}

func (n *node) fullyExpanded() bool {
	return len(n.untried) == 0
}

// tree is the arena of nodes for one search. Index 0 is the root.
type tree struct {
	nodes   []node
	maxStep int
	rng     game.Rand
}

func newTree(b *game.Board, me, adv game.Position, maxStep int, rng game.Rand) *tree {
	t := &tree{
		nodes:   make([]node, 0, 1024),
		maxStep: maxStep,
		rng:     rng,
	}
	root := t.addNode(b, me, adv, true, noParent, game.Move{}, 0)
	// The root always has to produce a move, even when the position is
	// already decided, so it is expanded regardless of the evaluator.
	r := &t.nodes[root]
	if r.terminal {
		r.terminal = false
		r.untried = t.untriedMoves(r.board, r.mover, r.other)
	}
	return t
}

// addNode appends a node and returns its index. Pointers into t.nodes are
// invalidated by this call.
func (t *tree) addNode(b *game.Board, mover, other game.Position, rootToMove bool, parent int32, m game.Move, depth int32) int32 {
	n := node{
		board:      b,
		mover:      mover,
		other:      other,
		rootToMove: rootToMove,
		parent:     parent,
		move:       m,
		depth:      depth,
	}
	me, adv := n.rootView()
	if res := rules.Evaluate(b, me, adv); res.Ended {
		n.terminal = true
		n.outcome = res.Outcome
	} else {
		n.untried = t.untriedMoves(b, mover, other)
	}
	t.nodes = append(t.nodes, n)
	return int32(len(t.nodes) - 1)
}

// untriedMoves enumerates and shuffles the mover's moves so that popping
// from the end expands them in random order.
func (t *tree) untriedMoves(b *game.Board, mover, other game.Position) []game.Move {
	moves := rules.Enumerate(b, mover, other, t.maxStep)
	for i := len(moves) - 1; i > 0; i-- {
		j := t.rng.Intn(i + 1)
		moves[i], moves[j] = moves[j], moves[i]
	}
	return moves
}

// stats returns the selection view of node idx.
func (t *tree) stats(idx int32) NodeStats {
	n := &t.nodes[idx]
	return NodeStats{Visits: n.visits, Tally: n.tally}
}
