package agent

import (
	"context"
	"fmt"
	"sync"

	"lukechampine.com/frand"

	"github.com/brensch/colosseum/game"
	"github.com/brensch/colosseum/rules"
)

const RandomName = "random"

func init() {
	Register(RandomName, func(s Settings) (Agent, error) {
		return NewRandom(s.Seed), nil
	})
}

// RandomAgent plays a uniformly random legal move. It is the baseline the
// search is measured against, and the harness uses the same rule to replace
// rejected moves.
type RandomAgent struct {
	mu  sync.Mutex
	rng *frand.RNG
}

func NewRandom(seed uint64) *RandomAgent {
	rng := frand.New()
	if seed != 0 {
		rng = game.NewRNG(seed)
	}
	return &RandomAgent{rng: rng}
}

func (a *RandomAgent) Name() string { return RandomName }

func (a *RandomAgent) Step(_ context.Context, b *game.Board, me, adv game.Position, maxStep int) (game.Move, error) {
	moves := rules.Enumerate(b, me, adv, maxStep)
	if len(moves) == 0 {
		return game.Move{}, fmt.Errorf("%w: player at %s is enclosed", game.ErrNoLegalMove, me)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return moves[a.rng.Intn(len(moves))], nil
}
