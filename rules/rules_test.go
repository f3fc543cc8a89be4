package rules

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/brensch/colosseum/game"
)

type wall struct {
	p game.Position
	d game.Direction
}

func pos(r, c int) game.Position { return game.Position{Row: r, Col: c} }

func buildBoard(t testing.TB, n int, walls ...wall) *game.Board {
	t.Helper()
	b, err := game.NewBoard(n)
	require.NoError(t, err)
	for _, w := range walls {
		b, err = b.WithBarrierAdded(w.p, w.d)
		require.NoError(t, err, "wall %s %s", w.p, w.d)
	}
	return b
}

// dumpBoard is a test helper to visualize a board. Barriers are drawn as
// '|' and '-' between cells; A and B mark the players.
func dumpBoard(b *game.Board, a, o game.Position) string {
	var sb strings.Builder
	n := b.Size()
	for r := 0; r < n; r++ {
		for c := 0; c < n; c++ {
			p := pos(r, c)
			switch p {
			case a:
				sb.WriteByte('A')
			case o:
				sb.WriteByte('B')
			default:
				sb.WriteByte('.')
			}
			if c+1 < n {
				if b.HasBarrier(p, game.Right) {
					sb.WriteByte('|')
				} else {
					sb.WriteByte(' ')
				}
			}
		}
		sb.WriteByte('\n')
		if r+1 < n {
			for c := 0; c < n; c++ {
				if b.HasBarrier(pos(r, c), game.Down) {
					sb.WriteByte('-')
				} else {
					sb.WriteByte(' ')
				}
				if c+1 < n {
					sb.WriteByte(' ')
				}
			}
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

func destinations(moves []game.Move) map[game.Position]int {
	out := make(map[game.Position]int)
	for _, m := range moves {
		out[m.To]++
	}
	return out
}

func TestEnumerate_OpenBoard(t *testing.T) {
	b := buildBoard(t, 3)
	moves := Enumerate(b, pos(0, 0), pos(2, 2), 2)
	t.Logf("\n%s", dumpBoard(b, pos(0, 0), pos(2, 2)))

	got := destinations(moves)
	want := map[game.Position]int{
		pos(0, 0): 2,
		pos(0, 1): 3,
		pos(1, 0): 3,
		pos(0, 2): 2,
		pos(1, 1): 4,
		pos(2, 0): 2,
	}
	require.Equal(t, want, got)
	require.Len(t, moves, 16)

	// BFS order: the start cell comes first.
	require.Equal(t, pos(0, 0), moves[0].To)
}

func TestEnumerate_BlockerIsNotTraversable(t *testing.T) {
	b := buildBoard(t, 3)
	moves := Enumerate(b, pos(0, 0), pos(0, 1), 2)
	got := destinations(moves)

	require.NotContains(t, got, pos(0, 1))
	require.NotContains(t, got, pos(0, 2))
	require.Contains(t, got, pos(1, 0))
	require.Contains(t, got, pos(1, 1))
	require.Contains(t, got, pos(2, 0))
	require.Len(t, got, 4)
}

func TestEnumerate_BarrierBlocksPath(t *testing.T) {
	b := buildBoard(t, 3, wall{pos(0, 0), game.Right})
	moves := Enumerate(b, pos(0, 0), pos(2, 2), 1)
	got := destinations(moves)

	require.NotContains(t, got, pos(0, 1))
	require.Equal(t, map[game.Position]int{pos(0, 0): 1, pos(1, 0): 3}, got)
}

func TestEnumerate_ZeroStepsStaysPut(t *testing.T) {
	b := buildBoard(t, 4)
	moves := Enumerate(b, pos(1, 1), pos(3, 3), 0)
	require.Len(t, moves, 4)
	for _, m := range moves {
		require.Equal(t, pos(1, 1), m.To)
	}
}

func TestEnumerate_AllFrontierCellsIncluded(t *testing.T) {
	// Every cell at exactly maxStep must be a stopping point, not just the
	// first one dequeued.
	b := buildBoard(t, 5)
	got := destinations(Enumerate(b, pos(2, 2), pos(0, 0), 1))
	require.Len(t, got, 5)
	for _, p := range []game.Position{pos(1, 2), pos(3, 2), pos(2, 1), pos(2, 3)} {
		require.Contains(t, got, p)
	}
}

func TestEnumerate_NoExistingBarrierSides(t *testing.T) {
	b := buildBoard(t, 4, wall{pos(1, 1), game.Up}, wall{pos(1, 1), game.Left})
	for _, m := range Enumerate(b, pos(1, 1), pos(3, 3), 2) {
		require.False(t, b.HasBarrier(m.To, m.Dir), "move %s lands on an existing barrier", m)
	}
}

func TestEnumerate_EnclosedActorKeepsOwnCellOnly(t *testing.T) {
	b := buildBoard(t, 3,
		wall{pos(1, 1), game.Up},
		wall{pos(1, 1), game.Right},
		wall{pos(1, 1), game.Down},
	)
	// The only open side leads onto the opponent.
	moves := Enumerate(b, pos(1, 1), pos(1, 0), 3)
	require.Equal(t, []game.Move{{To: pos(1, 1), Dir: game.Left}}, moves)

	b, err := b.WithBarrierAdded(pos(1, 1), game.Left)
	require.NoError(t, err)
	require.Empty(t, Enumerate(b, pos(1, 1), pos(1, 0), 3))
}

// randomBoard returns a seeded random board with extra barriers on top of
// the symmetric setup so corridors and dead ends appear.
func randomBoard(t testing.TB, seed uint64) game.Start {
	t.Helper()
	rng := game.NewRNG(seed)
	n := 4 + rng.Intn(6)
	start, err := game.NewRandomStart(n, rng, game.SetupSettings{Barriers: n * 2})
	require.NoError(t, err)
	return start
}

func TestEnumerate_AgreesWithCheckMove(t *testing.T) {
	for seed := uint64(1); seed <= 40; seed++ {
		start := randomBoard(t, seed)
		b := start.Board
		me, adv := start.Players[0], start.Players[1]

		moves := Enumerate(b, me, adv, start.MaxStep)
		legal := make(map[game.Move]bool, len(moves))
		for _, m := range moves {
			require.False(t, legal[m], "seed=%d duplicate move %s", seed, m)
			legal[m] = true
			require.NoError(t, CheckMove(b, me, adv, start.MaxStep, m), "seed=%d move=%s\n%s", seed, m, dumpBoard(b, me, adv))
		}

		// Completeness: anything CheckMove accepts was enumerated.
		for i := 0; i < b.NumCells(); i++ {
			p := b.PositionAt(i)
			for _, d := range game.Directions {
				m := game.Move{To: p, Dir: d}
				if CheckMove(b, me, adv, start.MaxStep, m) == nil {
					require.True(t, legal[m], "seed=%d move %s accepted but not enumerated", seed, m)
				}
			}
		}
	}
}

func TestEnumerate_DestinationsWithinReach(t *testing.T) {
	for seed := uint64(100); seed < 120; seed++ {
		start := randomBoard(t, seed)
		me, adv := start.Players[0], start.Players[1]
		reach := reachable(start.Board, me, adv, start.MaxStep)
		for _, m := range Enumerate(start.Board, me, adv, start.MaxStep) {
			dist, ok := reach[m.To]
			require.True(t, ok, "seed=%d %s not reachable", seed, m.To)
			require.LessOrEqual(t, dist, start.MaxStep)
			require.NotEqual(t, adv, m.To)
		}
	}
}

func TestCheckMove(t *testing.T) {
	b := buildBoard(t, 4, wall{pos(0, 1), game.Down})

	tests := []struct {
		name    string
		move    game.Move
		wantErr error
	}{
		{"stay", game.Move{To: pos(0, 0), Dir: game.Right}, nil},
		{"one step", game.Move{To: pos(0, 1), Dir: game.Right}, nil},
		{"border side", game.Move{To: pos(0, 0), Dir: game.Up}, game.ErrInvalidBarrier},
		{"existing barrier", game.Move{To: pos(0, 1), Dir: game.Down}, game.ErrInvalidBarrier},
		{"too far", game.Move{To: pos(3, 3), Dir: game.Up}, game.ErrInvalidState},
		{"onto opponent", game.Move{To: pos(1, 0), Dir: game.Right}, game.ErrInvalidState},
		{"off board", game.Move{To: pos(4, 0), Dir: game.Up}, game.ErrInvalidState},
		{"bad dir", game.Move{To: pos(0, 0), Dir: game.Direction(9)}, game.ErrInvalidBarrier},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckMove(b, pos(0, 0), pos(1, 0), 2, tt.move)
			if tt.wantErr == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestApply(t *testing.T) {
	b := buildBoard(t, 3)
	nb, err := Apply(b, game.Move{To: pos(1, 1), Dir: game.Up})
	require.NoError(t, err)
	require.True(t, nb.HasBarrier(pos(0, 1), game.Down))
	require.False(t, b.HasBarrier(pos(1, 1), game.Up))
}

func BenchmarkEnumerate(b *testing.B) {
	start := randomBoard(b, 7)
	me, adv := start.Players[0], start.Players[1]
	buf := make([]game.Move, 0, 256)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		buf = AppendMoves(buf[:0], start.Board, me, adv, start.MaxStep)
	}
	benchSink = len(buf)
}

var benchSink int

// reachable is a plain BFS kept apart from the pooled one in rules.go, so
// tests can reconstruct paths without trusting Enumerate.
func reachable(b *game.Board, actor, blocker game.Position, maxStep int) map[game.Position]int {
	out := map[game.Position]int{actor: 0}
	queue := []game.Position{actor}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if out[cur] >= maxStep {
			continue
		}
		for _, d := range game.Directions {
			next := cur.Step(d)
			if b.HasBarrier(cur, d) || next == blocker {
				continue
			}
			if _, seen := out[next]; seen {
				continue
			}
			out[next] = out[cur] + 1
			queue = append(queue, next)
		}
	}
	return out
}
