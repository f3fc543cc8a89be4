// Package agent defines players that can take part in a game and a registry
// to look them up by name.
package agent

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/brensch/colosseum/executor/mcts"
	"github.com/brensch/colosseum/game"
)

var ErrUnknownAgent = errors.New("unknown agent")

// Agent picks a move for the player standing at me.
type Agent interface {
	Name() string
	Step(ctx context.Context, b *game.Board, me, adv game.Position, maxStep int) (game.Move, error)
}

// Searcher is implemented by agents that run a tree search and can report
// what their last Step did.
type Searcher interface {
	LastSearch() (mcts.Stats, mcts.Tally, bool)
}

// Settings is shared by all factories; each agent uses what it needs.
type Settings struct {
	Search mcts.Config
	// TurnBudget is the time an agent may spend on one Step.
	TurnBudget time.Duration
	// Seed drives the agent's own randomness; 0 means fresh entropy.
	Seed   uint64
	Logger zerolog.Logger
}

const DefaultTurnBudget = 2 * time.Second

// searchBudget keeps a tenth of the turn budget back for tree setup and the
// caller's bookkeeping.
func searchBudget(turn time.Duration) time.Duration {
	if turn <= 0 {
		turn = DefaultTurnBudget
	}
	return turn - turn/10
}

func DefaultSettings() Settings {
	return Settings{
		Search:     mcts.DefaultConfig(),
		TurnBudget: DefaultTurnBudget,
		Logger:     zerolog.Nop(),
	}
}

type Factory func(Settings) (Agent, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{}
)

// Register makes a factory available under name. Registering a name twice
// panics.
func Register(name string, f Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, ok := registry[name]; ok {
		panic(fmt.Sprintf("agent: %q registered twice", name))
	}
	registry[name] = f
}

func New(name string, s Settings) (Agent, error) {
	registryMu.RLock()
	f, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q (have %v)", ErrUnknownAgent, name, Names())
	}
	return f(s)
}

// Names lists registered agents in sorted order.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}
