package selfplay

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/brensch/colosseum/agent"
	"github.com/brensch/colosseum/game"
	"github.com/brensch/colosseum/rules"
	"github.com/brensch/colosseum/store"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.BoardMin = 5
	cfg.BoardMax = 7
	cfg.TurnBudget = time.Minute
	return cfg
}

func randomPlayers() [2]agent.Agent {
	return [2]agent.Agent{agent.NewRandom(1), agent.NewRandom(2)}
}

// stuckAgent always answers with a move that can never be legal.
type stuckAgent struct{ err error }

func (stuckAgent) Name() string { return "stuck" }

func (a stuckAgent) Step(_ context.Context, b *game.Board, _, _ game.Position, _ int) (game.Move, error) {
	if a.err != nil {
		return game.Move{}, a.err
	}
	return game.Move{To: game.Position{Row: b.Size(), Col: 0}, Dir: game.Up}, nil
}

func requireConsistent(t *testing.T, out PlayGameOutcome) {
	t.Helper()
	require.True(t, out.Completed)
	res := out.Result
	require.Len(t, out.Rows, res.Turns)
	require.GreaterOrEqual(t, res.Size, 5)
	require.LessOrEqual(t, res.Size, 7)
	require.Equal(t, game.MaxStepFor(res.Size), res.MaxStep)

	end := rules.Evaluate(res.Final, res.Players[0], res.Players[1])
	require.True(t, end.Ended)
	require.Equal(t, res.Outcome, end.Outcome)
	require.Equal(t, end.MyArea, res.AreaA)
	require.Equal(t, end.AdvArea, res.AreaB)

	switch {
	case res.AreaA > res.AreaB:
		require.Equal(t, WinnerA, res.Winner())
	case res.AreaA < res.AreaB:
		require.Equal(t, WinnerB, res.Winner())
	default:
		require.Equal(t, WinnerTie, res.Winner())
	}

	for i, row := range out.Rows {
		require.Equal(t, int32(i%2), row.Player)
		want := float32(res.Outcome)
		if row.Player == 1 {
			want = -want
		}
		require.Equal(t, want, row.Value)
	}

	require.Equal(t, res.GameID, out.Game.GameID)
	require.Equal(t, int32(res.Turns), out.Game.Turns)
	require.Equal(t, res.Winner(), out.Game.Winner)

	if len(out.Rows) > 0 {
		final, players, err := Replay(out.Rows)
		require.NoError(t, err)
		require.True(t, final.Equal(res.Final))
		require.Equal(t, res.Players, players)
	}
}

func TestPlayGame_RandomVsRandom(t *testing.T) {
	for seed := uint64(1); seed <= 10; seed++ {
		out, err := PlayGame(context.Background(), testConfig(), randomPlayers(), PlayGameOptions{Seed: seed, Logger: zerolog.Nop()})
		require.NoError(t, err)
		requireConsistent(t, out)
		require.Zero(t, out.Result.Fallbacks)
	}
}

func TestPlayGame_Reproducible(t *testing.T) {
	a, err := PlayGame(context.Background(), testConfig(), randomPlayers(), PlayGameOptions{Seed: 5})
	require.NoError(t, err)
	b, err := PlayGame(context.Background(), testConfig(), randomPlayers(), PlayGameOptions{Seed: 5})
	require.NoError(t, err)

	require.Equal(t, a.Result.Size, b.Result.Size)
	require.Equal(t, a.Result.Turns, b.Result.Turns)
	require.True(t, a.Result.Final.Equal(b.Result.Final))
}

func TestPlayGame_MCTSRecordsSearch(t *testing.T) {
	s := agent.DefaultSettings()
	s.Search.Iterations = 30
	s.Seed = 4
	s.TurnBudget = time.Minute
	searcher, err := agent.New(agent.MCTSName, s)
	require.NoError(t, err)

	out, err := PlayGame(context.Background(), testConfig(),
		[2]agent.Agent{searcher, agent.NewRandom(8)},
		PlayGameOptions{Seed: 3})
	require.NoError(t, err)
	requireConsistent(t, out)

	for _, row := range out.Rows {
		if row.Player == 0 {
			require.Equal(t, agent.MCTSName, row.Agent)
			require.Equal(t, int32(30), row.Iterations)
			require.NotEmpty(t, row.SearchJSON)
		} else {
			require.Zero(t, row.Iterations)
			require.Empty(t, row.SearchJSON)
		}
	}
}

func TestPlayGame_InvalidMovesAreReplaced(t *testing.T) {
	tests := []struct {
		name  string
		agent agent.Agent
	}{
		{"illegal move", stuckAgent{}},
		{"agent error", stuckAgent{err: errors.New("no idea")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := PlayGame(context.Background(), testConfig(),
				[2]agent.Agent{tt.agent, agent.NewRandom(6)},
				PlayGameOptions{Seed: 11})
			require.NoError(t, err)
			requireConsistent(t, out)

			moved := 0
			for _, row := range out.Rows {
				if row.Player == 0 {
					moved++
					require.True(t, row.Fallback)
				} else {
					require.False(t, row.Fallback)
				}
			}
			require.Equal(t, moved, out.Result.Fallbacks)
			require.Equal(t, int32(moved), out.Game.Fallbacks)
		})
	}
}

func TestPlayGame_Callbacks(t *testing.T) {
	var steps int
	var turns []store.TurnRow
	out, err := PlayGame(context.Background(), testConfig(), randomPlayers(), PlayGameOptions{
		Seed:   2,
		OnStep: func() { steps++ },
		OnTurn: func(r store.TurnRow) { turns = append(turns, r) },
	})
	require.NoError(t, err)
	require.Equal(t, out.Result.Turns, steps)
	require.Len(t, turns, out.Result.Turns)
	for i := range turns {
		require.Equal(t, out.Rows[i].Turn, turns[i].Turn)
	}
}

func TestPlayGame_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	out, err := PlayGame(ctx, testConfig(), randomPlayers(), PlayGameOptions{Seed: 1})
	require.ErrorIs(t, err, context.Canceled)
	require.False(t, out.Completed)
}

func TestPlayGame_TurnLimit(t *testing.T) {
	cfg := testConfig()
	cfg.MaxTurns = 1
	cfg.BoardMin, cfg.BoardMax = 12, 12
	cfg.Setup = game.SetupSettings{Barriers: 1}

	out, err := PlayGame(context.Background(), cfg, randomPlayers(), PlayGameOptions{Seed: 1})
	require.NoError(t, err)
	if !out.Completed {
		require.Len(t, out.Rows, 1)
		require.Zero(t, out.Rows[0].Value)
	}
}

func TestPlayGame_BadSizes(t *testing.T) {
	cfg := testConfig()
	cfg.BoardMin, cfg.BoardMax = 8, 6
	_, err := PlayGame(context.Background(), cfg, randomPlayers(), PlayGameOptions{})
	require.ErrorIs(t, err, game.ErrInvalidSize)
}

func TestWriteGame(t *testing.T) {
	out, err := PlayGame(context.Background(), testConfig(), randomPlayers(), PlayGameOptions{Seed: 7})
	require.NoError(t, err)

	dir := t.TempDir()
	archived, err := WriteGame(dir, out)
	require.NoError(t, err)

	rows, err := store.ReadTurns(archived.TurnsPath)
	require.NoError(t, err)
	require.Len(t, rows, out.Result.Turns)
	if len(rows) > 0 {
		final, _, err := Replay(rows)
		require.NoError(t, err)
		require.True(t, final.Equal(out.Result.Final))
	}

	games, err := store.ReadGames(archived.GamesPath)
	require.NoError(t, err)
	require.Equal(t, []store.GameRow{out.Game}, games)

	_, err = WriteGame(dir, PlayGameOutcome{})
	require.Error(t, err)
}

func TestReplay_RejectsTampering(t *testing.T) {
	out, err := PlayGame(context.Background(), testConfig(), randomPlayers(), PlayGameOptions{Seed: 9})
	require.NoError(t, err)
	if len(out.Rows) < 2 {
		t.Skip("game ended before two moves")
	}

	rows := append([]store.TurnRow(nil), out.Rows...)
	rows[1].Turn = 5
	_, _, err = Replay(rows)
	require.Error(t, err)

	_, _, err = Replay(nil)
	require.Error(t, err)
}

func TestRenderBoard(t *testing.T) {
	b, err := game.NewBoard(3)
	require.NoError(t, err)
	b, err = b.WithBarrierAdded(game.Position{Row: 0, Col: 0}, game.Right)
	require.NoError(t, err)
	b, err = b.WithBarrierAdded(game.Position{Row: 1, Col: 2}, game.Down)
	require.NoError(t, err)

	got := RenderBoard(b, [2]game.Position{{Row: 0, Col: 0}, {Row: 2, Col: 2}})
	want := strings.Join([]string{
		"+-----+",
		"|A|. .|",
		"|     |",
		"|. . .|",
		"|    -|",
		"|. . B|",
		"+-----+",
		"",
	}, "\n")
	require.Equal(t, want, got)
}

func TestSummary(t *testing.T) {
	s := Summary(GameResult{GameID: "g", Size: 6, Turns: 9, Outcome: game.OpponentWin, AreaA: 10, AreaB: 26})
	require.Equal(t, "g 6x6 winner=B turns=9 area=10:26 fallbacks=0", s)
}
