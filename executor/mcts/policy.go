package mcts

import (
	"math"

	"github.com/brensch/colosseum/game"
)

// NodeStats is the part of a node a selection policy may look at.
type NodeStats struct {
	Visits int
	Tally  Tally
}

// SelectionPolicy scores children during the tree walk. rootChooses is true
// when the player picking among the children is the root player; tallies
// are always from the root player's perspective.
type SelectionPolicy interface {
	Score(parent, child NodeStats, rootChooses bool) float64
}

// RolloutPolicy picks the next move of a playout. moves is never empty.
type RolloutPolicy interface {
	Choose(rng game.Rand, b *game.Board, mover, other game.Position, moves []game.Move) game.Move
}

// ExpansionPrior returns a penalty for m, evaluated on the board after m.
// The penalty is added to the new child's Losses before its first playout,
// whichever player made the move.
type ExpansionPrior interface {
	Penalty(after *game.Board, m game.Move) int
}

// UCT is the UCB1-for-trees score
//
//	wins/n + C * sqrt(2 ln(N) / n)
//
// where N is the parent's tally total and n the child's. Tallies are read
// from the root player's side at every depth, whoever is choosing.
type UCT struct {
	C float64
}

func (u UCT) Score(parent, child NodeStats, _ bool) float64 {
	return ucb(parent, child, child.Tally.WinRate(), u.C)
}

// MinimaxUCT is UCT with the opponent's nodes scored by the root player's
// loss fraction, so the opponent picks the replies that hurt the root most.
type MinimaxUCT struct {
	C float64
}

func (u MinimaxUCT) Score(parent, child NodeStats, rootChooses bool) float64 {
	exploit := child.Tally.WinRate()
	if !rootChooses {
		exploit = child.Tally.LossRate()
	}
	return ucb(parent, child, exploit, u.C)
}

func ucb(parent, child NodeStats, exploit, c float64) float64 {
	n := float64(child.Tally.Total())
	if n == 0 {
		return math.Inf(1)
	}
	if c == 0 {
		return exploit
	}
	parentN := math.Max(1, float64(parent.Tally.Total()))
	return exploit + c*math.Sqrt(2*math.Log(parentN)/n)
}

// UniformRollout plays a uniformly random legal move.
type UniformRollout struct{}

func (UniformRollout) Choose(rng game.Rand, _ *game.Board, _, _ game.Position, moves []game.Move) game.Move {
	return moves[rng.Intn(len(moves))]
}

// TrapPenalty charges Amount losses to a move that stops on a cell with
// exactly three barriered sides, leaving a single way out.
type TrapPenalty struct {
	Amount int
}

func (p TrapPenalty) Penalty(after *game.Board, m game.Move) int {
	if after.BarrierCount(m.To) == 3 {
		return p.Amount
	}
	return 0
}

// NoPrior disables expansion shaping.
type NoPrior struct{}

func (NoPrior) Penalty(*game.Board, game.Move) int { return 0 }
