package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/brensch/colosseum/agent"
	"github.com/brensch/colosseum/config"
	"github.com/brensch/colosseum/executor/mcts"
	"github.com/brensch/colosseum/executor/selfplay"
	"github.com/brensch/colosseum/logging"
	"github.com/brensch/colosseum/store"
)

func main() {
	outDir := flag.String("out-dir", config.String("OUT_DIR", filepath.Join("debug_games")), "Output directory for the traced game")
	agentA := flag.String("agent-a", agent.MCTSName, "First agent")
	agentB := flag.String("agent-b", agent.RandomName, "Second agent")
	size := flag.Int("size", 0, "Board size (0 = random between 6 and 12)")
	turnBudget := flag.Duration("turn-budget", agent.DefaultTurnBudget, "Time per move")
	iterations := flag.Int("iterations", 0, "If > 0, cap playouts per search")
	seed := flag.Uint64("seed", config.Uint64("SEED", 0), "Seed for the board and agents (0 = random)")
	logLevel := flag.String("log-level", config.String("LOG_LEVEL", "debug"), "Log level")
	logFormat := flag.String("log-format", config.String("LOG_FORMAT", logging.FormatConsole), "Log format: console, json or pretty")
	flag.Parse()

	logger, err := logging.New(logging.Options{Level: *logLevel, Format: *logFormat})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logging: %v\n", err)
		os.Exit(1)
	}

	search := mcts.DefaultConfig()
	search.Iterations = *iterations

	var players [2]agent.Agent
	for i, name := range []string{*agentA, *agentB} {
		s := agent.Settings{Search: search, TurnBudget: *turnBudget, Logger: logger}
		if *seed != 0 {
			s.Seed = *seed*2 + uint64(i)
		}
		if players[i], err = agent.New(name, s); err != nil {
			logger.Fatal().Err(err).Msg("agent")
		}
	}

	cfg := selfplay.DefaultConfig()
	cfg.TurnBudget = *turnBudget
	if *size > 0 {
		cfg.BoardMin, cfg.BoardMax = *size, *size
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	logger.Info().Str("a", *agentA).Str("b", *agentB).Dur("turn_budget", *turnBudget).Msg("generating debug game")

	onTurn := func(r store.TurnRow) {
		who := "A"
		if r.Player == 1 {
			who = "B"
		}
		note := ""
		if r.Fallback {
			note = " (fallback)"
		}
		fmt.Printf("  Turn %3d | %s %-6s (%d,%d) -> (%d,%d) %s | iters=%d win=%.3f%s\n",
			r.Turn, who, r.Agent, r.PosRow, r.PosCol, r.ToRow, r.ToCol, r.Dir, r.Iterations, r.WinRate, note)
	}

	out, err := selfplay.PlayGame(ctx, cfg, players, selfplay.PlayGameOptions{
		Seed:   *seed,
		Logger: logger,
		Trace:  true,
		OnTurn: onTurn,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("play game")
	}
	if !out.Completed {
		logger.Fatal().Msg("game did not complete")
	}

	fmt.Println()
	fmt.Print(selfplay.RenderBoard(out.Result.Final, out.Result.Players))
	fmt.Println(selfplay.Summary(out.Result))

	archived, err := selfplay.WriteGame(*outDir, out)
	if err != nil {
		logger.Fatal().Err(err).Msg("write debug game")
	}

	fmt.Println()
	fmt.Println("═══════════════════════════════════════════════════════════════")
	fmt.Printf("  Turns: %s\n", archived.TurnsPath)
	fmt.Printf("  Game:  %s\n", archived.GamesPath)
	fmt.Println("═══════════════════════════════════════════════════════════════")
	fmt.Println()
}
