package agent

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/brensch/colosseum/executor/mcts"
	"github.com/brensch/colosseum/game"
)

const MCTSName = "mcts"

func init() {
	Register(MCTSName, newMCTSAgent)
}

// MCTSAgent runs a fresh search every turn.
type MCTSAgent struct {
	engine *mcts.Engine
	budget time.Duration
	logger zerolog.Logger

	mu    sync.Mutex
	last  mcts.Stats
	tally mcts.Tally
	ok    bool
}

func newMCTSAgent(s Settings) (Agent, error) {
	cfg := s.Search
	if s.Seed != 0 {
		cfg.Seed = s.Seed
	}
	return &MCTSAgent{
		engine: mcts.New(cfg),
		budget: searchBudget(s.TurnBudget),
		logger: s.Logger.With().Str("agent", MCTSName).Logger(),
	}, nil
}

func (a *MCTSAgent) Name() string { return MCTSName }

func (a *MCTSAgent) Step(ctx context.Context, b *game.Board, me, adv game.Position, maxStep int) (game.Move, error) {
	res, err := a.engine.Search(ctx, b, me, adv, maxStep, a.budget)
	if err != nil {
		return game.Move{}, err
	}

	a.mu.Lock()
	a.last, a.tally, a.ok = res.Stats, res.Tally, true
	a.mu.Unlock()

	a.logger.Debug().
		Str("pos", me.String()).
		Str("move", res.Move.String()).
		Int("iterations", res.Stats.Iterations).
		Int("root_visits", res.Stats.RootVisits).
		Int("tree_size", res.Stats.TreeSize).
		Int("max_depth", res.Stats.MaxDepth).
		Float64("win_rate", res.Tally.WinRate()).
		Dur("elapsed", res.Stats.Elapsed).
		Msg("search-done")
	return res.Move, nil
}

func (a *MCTSAgent) LastSearch() (mcts.Stats, mcts.Tally, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.last, a.tally, a.ok
}
