package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"sync/atomic"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/brensch/colosseum/agent"
	"github.com/brensch/colosseum/config"
	"github.com/brensch/colosseum/executor/mcts"
	"github.com/brensch/colosseum/executor/selfplay"
	"github.com/brensch/colosseum/logging"
	"github.com/brensch/colosseum/store"
)

var (
	totalMoves     atomic.Int64
	totalGames     atomic.Int64
	totalFallbacks atomic.Int64
)

// GameUpdate is sent to the dashboard after every finished game.
type GameUpdate struct {
	WorkerID int
	Agents   [2]string
	Result   selfplay.GameResult
}

type gameWriteRequest struct {
	rows []store.TurnRow
	game store.GameRow
}

func main() {
	outDir := flag.String("out-dir", config.String("OUT_DIR", "data/selfplay"), "Directory for archived game batches")
	archiveLogPath := flag.String("archive-log", config.String("ARCHIVE_LOG", ""), "Append-only index of archived game IDs (default <out-dir>/archived.log)")
	workers := flag.Int("workers", config.Int("WORKERS", max(1, runtime.NumCPU()/2)), "Number of concurrent games")
	gamesPerFlush := flag.Int("games-per-flush", config.Int("GAMES_PER_FLUSH", 50), "Games per parquet batch")
	maxGames := flag.Int64("max-games", int64(config.Int("MAX_GAMES", 0)), "If > 0, stop after this many games")
	agentA := flag.String("agent-a", config.String("AGENT_A", agent.MCTSName), "First agent")
	agentB := flag.String("agent-b", config.String("AGENT_B", agent.RandomName), "Second agent")
	turnBudget := flag.Duration("turn-budget", config.Duration("TURN_BUDGET", agent.DefaultTurnBudget), "Time per move")
	searchWorkers := flag.Int("search-workers", config.Int("SEARCH_WORKERS", 1), "Root-parallel trees per search")
	exploration := flag.Float64("exploration", config.Float("EXPLORATION", mcts.DefaultExploration), "UCT exploration constant")
	trapPenalty := flag.Int("trap-penalty", config.Int("TRAP_PENALTY", mcts.DefaultTrapPenalty), "Losses charged for stopping in a dead end (0 disables)")
	iterations := flag.Int("iterations", config.Int("ITERATIONS", 0), "If > 0, cap playouts per search")
	boardMin := flag.Int("board-min", config.Int("BOARD_MIN", selfplay.DefaultConfig().BoardMin), "Smallest board size")
	boardMax := flag.Int("board-max", config.Int("BOARD_MAX", selfplay.DefaultConfig().BoardMax), "Largest board size")
	seed := flag.Uint64("seed", config.Uint64("SEED", 0), "Base seed for reproducible runs (0 = random)")
	logLevel := flag.String("log-level", config.String("LOG_LEVEL", "info"), "Log level")
	logFormat := flag.String("log-format", config.String("LOG_FORMAT", logging.FormatConsole), "Log format: console, json or pretty")
	useTUI := flag.Bool("tui", config.Bool("TUI", false), "Show a live dashboard; logs go to <out-dir>/selfplay.log")
	trace := flag.Bool("trace", config.Bool("TRACE", false), "Log every board of worker 0 at debug level")
	flag.Parse()

	logOut := os.Stderr
	if *useTUI {
		if err := os.MkdirAll(*outDir, 0o755); err != nil {
			fmt.Fprintf(os.Stderr, "create output dir: %v\n", err)
			os.Exit(1)
		}
		f, err := os.OpenFile(filepath.Join(*outDir, "selfplay.log"), os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "open log file: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		logOut = f
	}
	logger, err := logging.New(logging.Options{Level: *logLevel, Format: *logFormat, Out: logOut})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logging: %v\n", err)
		os.Exit(1)
	}

	if *archiveLogPath == "" {
		*archiveLogPath = filepath.Join(*outDir, "archived.log")
	}
	archived, err := store.OpenArchiveLog(*archiveLogPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("open archive log")
	}
	defer archived.Close()

	searchCfg := mcts.DefaultConfig()
	searchCfg.Exploration = *exploration
	searchCfg.TrapPenalty = *trapPenalty
	searchCfg.Workers = *searchWorkers
	searchCfg.Iterations = *iterations

	gameCfg := selfplay.DefaultConfig()
	gameCfg.BoardMin = *boardMin
	gameCfg.BoardMax = *boardMax
	gameCfg.TurnBudget = *turnBudget

	names := [2]string{*agentA, *agentB}
	for _, n := range names {
		if _, err := agent.New(n, agent.DefaultSettings()); err != nil {
			logger.Fatal().Err(err).Msg("agent")
		}
	}

	logger.Info().
		Str("out_dir", *outDir).
		Int("already_archived", archived.Count()).
		Int("workers", *workers).
		Strs("agents", names[:]).
		Dur("turn_budget", *turnBudget).
		Int("search_workers", *searchWorkers).
		Uint64("seed", *seed).
		Msg("starting self-play")

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(sigCtx)
	defer cancel()

	updates := make(chan GameUpdate, *workers)
	writeReqs := make(chan gameWriteRequest, (*workers)*4)

	writerDone := make(chan struct{})
	go func() {
		parquetWriterLoop(logger, *outDir, *gamesPerFlush, archived, writeReqs)
		close(writerDone)
	}()

	var gameCounter atomic.Uint64
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < *workers; i++ {
		workerID := i
		g.Go(func() error {
			wlog := logger.With().Int("worker", workerID).Logger()
			wlog.Debug().Msg("worker started")
			for gctx.Err() == nil {
				n := gameCounter.Add(1)
				var gameSeed uint64
				if *seed != 0 {
					gameSeed = *seed + n
				}
				// Swap sides every other game so both agents move first equally often.
				order := names
				if n%2 == 0 {
					order[0], order[1] = order[1], order[0]
				}

				players, err := newPlayers(order, searchCfg, *turnBudget, gameSeed, wlog)
				if err != nil {
					return err
				}
				out, err := selfplay.PlayGame(gctx, gameCfg, players, selfplay.PlayGameOptions{
					WorkerID: workerID,
					Seed:     gameSeed,
					Logger:   wlog,
					Trace:    *trace && workerID == 0,
					OnStep:   func() { totalMoves.Add(1) },
				})
				if err != nil {
					if errors.Is(err, context.Canceled) {
						return nil
					}
					return fmt.Errorf("worker %d: %w", workerID, err)
				}
				if !out.Completed {
					continue
				}

				totalFallbacks.Add(int64(out.Result.Fallbacks))
				writeReqs <- gameWriteRequest{rows: out.Rows, game: out.Game}
				total := totalGames.Add(1)
				if *maxGames > 0 && total >= *maxGames {
					cancel()
				}

				// Avoid blocking shutdown if the dashboard stops consuming.
				select {
				case updates <- GameUpdate{WorkerID: workerID, Agents: order, Result: out.Result}:
				default:
				}
			}
			return nil
		})
	}

	workersDone := make(chan error, 1)
	go func() {
		workersDone <- g.Wait()
		close(writeReqs)
		cancel()
	}()

	if *useTUI {
		p := tea.NewProgram(initialModel(updates, names), tea.WithAltScreen())
		go func() {
			<-ctx.Done()
			p.Quit()
		}()
		if _, err := p.Run(); err != nil {
			logger.Error().Err(err).Msg("dashboard")
		}
		cancel()
	} else {
		reportLoop(ctx, logger, updates)
	}

	logger.Info().Msg("shutdown requested; abandoning games in progress")
	if err := <-workersDone; err != nil {
		logger.Error().Err(err).Msg("worker failed")
	}
	<-writerDone
	logger.Info().Int64("games", totalGames.Load()).Msg("shutdown complete")
}

func newPlayers(names [2]string, search mcts.Config, budget time.Duration, seed uint64, logger zerolog.Logger) ([2]agent.Agent, error) {
	var players [2]agent.Agent
	for i, name := range names {
		s := agent.Settings{Search: search, TurnBudget: budget, Logger: logger}
		if seed != 0 {
			s.Seed = seed*2 + uint64(i)
		}
		a, err := agent.New(name, s)
		if err != nil {
			return players, err
		}
		players[i] = a
	}
	return players, nil
}

// reportLoop logs finished games and throughput until ctx is done.
func reportLoop(ctx context.Context, logger zerolog.Logger, updates <-chan GameUpdate) {
	start := time.Now()
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	wins := map[string]int{}
	for {
		select {
		case <-ctx.Done():
			return
		case u := <-updates:
			switch u.Result.Winner() {
			case selfplay.WinnerA:
				wins[u.Agents[0]]++
			case selfplay.WinnerB:
				wins[u.Agents[1]]++
			default:
				wins[selfplay.WinnerTie]++
			}
			logger.Debug().Int("worker", u.WorkerID).Msg(selfplay.Summary(u.Result))
		case <-ticker.C:
			secs := time.Since(start).Seconds()
			logger.Info().
				Int64("games", totalGames.Load()).
				Int64("moves", totalMoves.Load()).
				Int64("fallbacks", totalFallbacks.Load()).
				Float64("moves_per_sec", float64(totalMoves.Load())/secs).
				Interface("wins", wins).
				Msg("progress")
		}
	}
}

func parquetWriterLoop(logger zerolog.Logger, outDir string, gamesPerFlush int, archived *store.ArchiveLog, in <-chan gameWriteRequest) {
	if gamesPerFlush <= 0 {
		gamesPerFlush = 50
	}

	var w *store.BatchWriter
	flush := func(reason string) {
		if w == nil {
			return
		}
		batch, err := w.Finalize()
		w = nil
		if err != nil {
			logger.Error().Err(err).Str("reason", reason).Msg("parquet flush failed")
			return
		}
		if batch.TurnsPath == "" {
			return
		}
		if err := archived.Record(batch); err != nil {
			logger.Error().Err(err).Msg("archive log")
		}
		logger.Info().
			Str("path", batch.TurnsPath).
			Int("games", len(batch.GameIDs)).
			Int("rows", batch.Rows).
			Str("reason", reason).
			Msg("parquet flush ok")
	}

	for req := range in {
		if w == nil {
			var err error
			if w, err = store.NewBatchWriter(outDir); err != nil {
				logger.Error().Err(err).Msg("open batch writer; dropping game")
				continue
			}
		}
		if err := w.WriteGame(req.rows, req.game); err != nil {
			logger.Error().Err(err).Str("game_id", req.game.GameID).Msg("write game")
			continue
		}
		if w.BufferedGames() >= gamesPerFlush {
			flush("count")
		}
	}
	flush("final")
}
