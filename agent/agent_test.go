package agent

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/brensch/colosseum/executor/mcts"
	"github.com/brensch/colosseum/game"
	"github.com/brensch/colosseum/rules"
)

func pos(r, c int) game.Position { return game.Position{Row: r, Col: c} }

func TestNames(t *testing.T) {
	names := Names()
	require.Contains(t, names, MCTSName)
	require.Contains(t, names, RandomName)
	require.IsIncreasing(t, names)
}

func TestNew_Unknown(t *testing.T) {
	_, err := New("alphabeta", DefaultSettings())
	require.ErrorIs(t, err, ErrUnknownAgent)
}

func TestRegister_DuplicatePanics(t *testing.T) {
	require.Panics(t, func() {
		Register(RandomName, func(Settings) (Agent, error) { return NewRandom(1), nil })
	})
}

func TestRandomAgent(t *testing.T) {
	b, err := game.NewBoard(5)
	require.NoError(t, err)
	me, adv := pos(0, 0), pos(4, 4)

	a, err := New(RandomName, Settings{Seed: 3})
	require.NoError(t, err)
	require.Equal(t, RandomName, a.Name())

	for i := 0; i < 50; i++ {
		m, err := a.Step(context.Background(), b, me, adv, 2)
		require.NoError(t, err)
		require.NoError(t, rules.CheckMove(b, me, adv, 2, m))
	}

	same1, _ := NewRandom(9).Step(context.Background(), b, me, adv, 2)
	same2, _ := NewRandom(9).Step(context.Background(), b, me, adv, 2)
	require.Equal(t, same1, same2)
}

func TestRandomAgent_Enclosed(t *testing.T) {
	b, err := game.NewBoard(3)
	require.NoError(t, err)
	for _, d := range game.Directions {
		b, err = b.WithBarrierAdded(pos(1, 1), d)
		require.NoError(t, err)
	}
	_, err = NewRandom(1).Step(context.Background(), b, pos(1, 1), pos(0, 0), 1)
	require.ErrorIs(t, err, game.ErrNoLegalMove)
}

func TestMCTSAgent(t *testing.T) {
	b, err := game.NewBoard(6)
	require.NoError(t, err)
	me, adv := pos(0, 0), pos(5, 5)

	s := DefaultSettings()
	s.Search.Iterations = 100
	s.Seed = 17
	s.TurnBudget = time.Minute
	a, err := New(MCTSName, s)
	require.NoError(t, err)
	require.Equal(t, MCTSName, a.Name())

	searcher, ok := a.(Searcher)
	require.True(t, ok)
	_, _, ran := searcher.LastSearch()
	require.False(t, ran)

	m, err := a.Step(context.Background(), b, me, adv, 3)
	require.NoError(t, err)
	require.NoError(t, rules.CheckMove(b, me, adv, 3, m))

	stats, tally, ran := searcher.LastSearch()
	require.True(t, ran)
	require.Equal(t, 100, stats.Iterations)
	require.Positive(t, tally.Total())
}

func TestMCTSAgent_PropagatesErrors(t *testing.T) {
	b, err := game.NewBoard(4)
	require.NoError(t, err)
	a, err := New(MCTSName, DefaultSettings())
	require.NoError(t, err)

	_, err = a.Step(context.Background(), b, pos(1, 1), pos(1, 1), 2)
	require.ErrorIs(t, err, game.ErrInvalidState)
}

func TestMCTSAgent_SearchBudget(t *testing.T) {
	a, err := newMCTSAgent(Settings{Search: mcts.DefaultConfig(), TurnBudget: 2 * time.Second})
	require.NoError(t, err)
	require.Equal(t, 1800*time.Millisecond, a.(*MCTSAgent).budget)
}
