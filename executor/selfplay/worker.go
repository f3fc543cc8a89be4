package selfplay

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/brensch/colosseum/agent"
	"github.com/brensch/colosseum/game"
	"github.com/brensch/colosseum/rules"
	"github.com/brensch/colosseum/store"
)

// Config controls how games are generated and refereed.
type Config struct {
	// Board sizes are drawn uniformly from [BoardMin, BoardMax].
	BoardMin int
	BoardMax int
	// TurnBudget is the time each agent is given per move. Slower moves are
	// still played but logged.
	TurnBudget time.Duration
	// MaxTurns aborts a game after this many moves; 0 means no limit.
	MaxTurns int
	Setup    game.SetupSettings
}

func DefaultConfig() Config {
	return Config{
		BoardMin:   6,
		BoardMax:   12,
		TurnBudget: agent.DefaultTurnBudget,
		Setup:      game.DefaultSetupSettings,
	}
}

const (
	WinnerA   = "A"
	WinnerB   = "B"
	WinnerTie = "tie"
)

type GameResult struct {
	GameID  string
	Size    int
	MaxStep int
	Turns   int
	// Outcome is from player A's point of view.
	Outcome   game.Outcome
	AreaA     int
	AreaB     int
	Fallbacks int
	Final     *game.Board
	Players   [2]game.Position
}

func (r GameResult) Winner() string {
	switch r.Outcome {
	case game.MyWin:
		return WinnerA
	case game.OpponentWin:
		return WinnerB
	default:
		return WinnerTie
	}
}

type PlayGameOutcome struct {
	// Completed is false when the game was cancelled or hit MaxTurns. Rows
	// of incomplete games carry no values and are not meant for the archive.
	Completed bool
	Result    GameResult
	Rows      []store.TurnRow
	Game      store.GameRow
}

type PlayGameOptions struct {
	WorkerID int
	// Seed fixes the board and the harness's fallback moves; 0 means random.
	Seed   uint64
	Logger zerolog.Logger
	// Trace logs the board before every move at debug level.
	Trace  bool
	OnStep func()
	// OnTurn receives each move's row as soon as it is played. Value is
	// not known yet.
	OnTurn func(store.TurnRow)
}

// PlayGame referees one game between players[0] (A, moves first) and
// players[1] (B). Every returned move is checked; an error or an illegal move
// is replaced by a uniformly random legal move. The game ends as soon as the
// two players are separated.
func PlayGame(ctx context.Context, cfg Config, players [2]agent.Agent, opts PlayGameOptions) (PlayGameOutcome, error) {
	if cfg.BoardMin < 2 || cfg.BoardMax < cfg.BoardMin {
		return PlayGameOutcome{}, fmt.Errorf("%w: board sizes %d..%d", game.ErrInvalidSize, cfg.BoardMin, cfg.BoardMax)
	}

	seed := opts.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano()) + uint64(opts.WorkerID)*1000003
	}
	rng := game.NewRNG(seed)

	size := cfg.BoardMin + rng.Intn(cfg.BoardMax-cfg.BoardMin+1)
	start, err := game.NewRandomStart(size, rng, cfg.Setup)
	if err != nil {
		return PlayGameOutcome{}, fmt.Errorf("create start: %w", err)
	}

	gameID := fmt.Sprintf("selfplay_%d_%d", time.Now().UnixNano(), opts.WorkerID)
	logger := opts.Logger.With().Str("game_id", gameID).Int("size", size).Logger()
	logger.Debug().
		Str("a", players[0].Name()).
		Str("b", players[1].Name()).
		Int("max_step", start.MaxStep).
		Msg("game-start")

	b := start.Board
	pos := start.Players
	res := GameResult{GameID: gameID, Size: size, MaxStep: start.MaxStep}
	rows := make([]store.TurnRow, 0, 2*size*size)

	incomplete := func() PlayGameOutcome {
		res.Final, res.Players = b, pos
		return PlayGameOutcome{Result: res, Rows: rows}
	}

	for turn := 0; ; turn++ {
		if err := ctx.Err(); err != nil {
			return incomplete(), err
		}
		end := rules.Evaluate(b, pos[0], pos[1])
		if end.Ended {
			res.Outcome = end.Outcome
			res.AreaA, res.AreaB = end.MyArea, end.AdvArea
			break
		}
		if cfg.MaxTurns > 0 && turn >= cfg.MaxTurns {
			logger.Warn().Int("turns", turn).Msg("turn limit reached")
			return incomplete(), nil
		}

		mover := turn % 2
		me, adv := pos[mover], pos[1-mover]
		if opts.Trace {
			logger.Debug().Int("turn", turn).Msg("board\n" + RenderBoard(b, pos))
		}

		began := time.Now()
		m, stepErr := players[mover].Step(ctx, b, me, adv, start.MaxStep)
		elapsed := time.Since(began)

		if ctx.Err() != nil {
			return incomplete(), ctx.Err()
		}
		if cfg.TurnBudget > 0 && elapsed > cfg.TurnBudget {
			logger.Warn().
				Str("agent", players[mover].Name()).
				Dur("elapsed", elapsed).
				Dur("budget", cfg.TurnBudget).
				Msg("agent exceeded turn budget")
		}

		fallback := false
		if stepErr == nil {
			stepErr = rules.CheckMove(b, me, adv, start.MaxStep, m)
		}
		if stepErr != nil {
			legal := rules.Enumerate(b, me, adv, start.MaxStep)
			if len(legal) == 0 {
				// An ongoing position always leaves the mover a free side.
				return incomplete(), fmt.Errorf("%w: player at %s has no move on turn %d", game.ErrNoLegalMove, me, turn)
			}
			replacement := legal[rng.Intn(len(legal))]
			logger.Warn().
				Err(stepErr).
				Str("agent", players[mover].Name()).
				Str("wanted", m.String()).
				Str("played", replacement.String()).
				Int("turn", turn).
				Msg("invalid move replaced")
			m = replacement
			fallback = true
			res.Fallbacks++
		}

		row := store.TurnRow{
			GameID:    gameID,
			Turn:      int32(turn),
			BoardSize: int32(size),
			MaxStep:   int32(start.MaxStep),
			Player:    int32(mover),
			Agent:     players[mover].Name(),
			PosRow:    int32(me.Row),
			PosCol:    int32(me.Col),
			AdvRow:    int32(adv.Row),
			AdvCol:    int32(adv.Col),
			ToRow:     int32(m.To.Row),
			ToCol:     int32(m.To.Col),
			Dir:       m.Dir.String(),
			Fallback:  fallback,
			Board:     b.Encode(),
			ElapsedMs: float32(elapsed.Seconds() * 1000),
		}
		if s, ok := players[mover].(agent.Searcher); ok && !fallback {
			if stats, tally, ran := s.LastSearch(); ran {
				row.Iterations = int32(stats.Iterations)
				row.WinRate = float32(tally.WinRate())
				if js, err := json.Marshal(stats.Children); err == nil {
					row.SearchJSON = js
				}
			}
		}
		rows = append(rows, row)

		b, err = rules.Apply(b, m)
		if err != nil {
			return incomplete(), fmt.Errorf("apply checked move %s: %w", m, err)
		}
		pos[mover] = m.To
		res.Turns++

		if opts.OnStep != nil {
			opts.OnStep()
		}
		if opts.OnTurn != nil {
			opts.OnTurn(row)
		}
	}

	res.Final, res.Players = b, pos
	for i := range rows {
		o := res.Outcome
		if rows[i].Player == 1 {
			o = o.Flip()
		}
		rows[i].Value = float32(o)
	}

	logger.Info().
		Str("winner", res.Winner()).
		Int("turns", res.Turns).
		Int("area_a", res.AreaA).
		Int("area_b", res.AreaB).
		Int("fallbacks", res.Fallbacks).
		Msg("game-over")
	if opts.Trace {
		logger.Debug().Msg("final board\n" + RenderBoard(b, pos))
	}

	return PlayGameOutcome{
		Completed: true,
		Result:    res,
		Rows:      rows,
		Game: store.GameRow{
			GameID:    gameID,
			CreatedNs: time.Now().UnixNano(),
			Seed:      int64(seed),
			BoardSize: int32(size),
			MaxStep:   int32(start.MaxStep),
			Turns:     int32(res.Turns),
			AgentA:    players[0].Name(),
			AgentB:    players[1].Name(),
			Winner:    res.Winner(),
			AreaA:     int32(res.AreaA),
			AreaB:     int32(res.AreaB),
			Fallbacks: int32(res.Fallbacks),
		},
	}, nil
}
