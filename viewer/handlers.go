package main

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"runtime"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/brensch/colosseum/executor/mcts"
	"github.com/brensch/colosseum/executor/selfplay"
	"github.com/brensch/colosseum/game"
)

const (
	defaultSearchBudget = 500 * time.Millisecond
	maxSearchBudget     = 10 * time.Second
	defaultBucketNs     = 5 * 60 * 1_000_000_000
)

// Server holds shared state for HTTP handlers.
type Server struct {
	debugDir string
	dbCache  *DBCache
	search   mcts.Config
	logger   zerolog.Logger
}

func NewServer(roots []string, debugDir string, search mcts.Config, logger zerolog.Logger) *Server {
	return &Server{
		debugDir: debugDir,
		dbCache:  NewDBCache(roots, 30*time.Second, logger),
		search:   search,
		logger:   logger,
	}
}

func (s *Server) Close() error { return s.dbCache.Close() }

// RegisterRoutes sets up all API routes on the given mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/games", s.handleGames)
	mux.HandleFunc("/api/games/", s.handleGameTurns)
	mux.HandleFunc("/api/stats", s.handleStats)
	mux.HandleFunc("/api/search", s.handleSearch)
	mux.HandleFunc("/api/debug_games", s.handleDebugGamesList)
	mux.HandleFunc("/api/debug_games/", s.handleDebugGame)
}

// preflight writes CORS headers and reports whether the handler should go on.
func preflight(w http.ResponseWriter, r *http.Request, method string) bool {
	withCORS(w, r)
	if r.Method == http.MethodOptions {
		return false
	}
	if r.Method != method {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	return true
}

func (s *Server) handleGames(w http.ResponseWriter, r *http.Request) {
	if !preflight(w, r, http.MethodGet) {
		return
	}

	// Force DB refresh to ensure we see the latest batches on disk.
	if err := s.dbCache.Refresh(); err != nil {
		http.Error(w, fmt.Sprintf("failed to refresh db: %v", err), http.StatusInternalServerError)
		return
	}
	index, err := s.dbCache.GetGamesIndex(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	limit := parseIntQuery(r, "limit", 1000)
	offset := parseIntQuery(r, "offset", 0)
	games, total := queryGamesFromIndex(index, limit, offset, r.URL.Query().Get("sort"), r.URL.Query().Get("dir"))
	writeJSON(w, GamesResponse{Total: total, Games: games})
}

func (s *Server) handleGameTurns(w http.ResponseWriter, r *http.Request) {
	if !preflight(w, r, http.MethodGet) {
		return
	}

	// /api/games/{id}/turns
	rest := strings.TrimPrefix(r.URL.Path, "/api/games/")
	parts := strings.Split(rest, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] != "turns" {
		http.NotFound(w, r)
		return
	}
	gameID, err := url.PathUnescape(parts[0])
	if err != nil {
		http.Error(w, "bad game id", http.StatusBadRequest)
		return
	}

	db, err := s.dbCache.Get()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	turns, err := queryTurns(r.Context(), db, gameID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			http.NotFound(w, r)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, turns)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if !preflight(w, r, http.MethodGet) {
		return
	}

	fromNs := parseInt64Query(r, "from_ns", 0)
	toNs := parseInt64Query(r, "to_ns", 0)
	bucketNs := parseInt64Query(r, "bucket_ns", defaultBucketNs)
	if bucketNs <= 0 {
		bucketNs = defaultBucketNs
	}

	db, err := s.dbCache.Get()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	points, err := queryStats(r.Context(), db, fromNs, toNs, bucketNs)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	agents, err := queryAgentStats(r.Context(), db, fromNs, toNs)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, StatsResponse{FromNs: fromNs, ToNs: toNs, BucketNs: bucketNs, Points: points, Agents: agents})
}

// handleSearch runs one search on a posted position, so a single decision
// from an archived game can be re-examined with different settings.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if !preflight(w, r, http.MethodPost) {
		return
	}

	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	b, err := game.DecodeBoard(req.Size, req.Board)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.MaxStep <= 0 {
		req.MaxStep = game.MaxStepFor(req.Size)
	}
	budget := time.Duration(req.BudgetMs) * time.Millisecond
	if budget <= 0 {
		budget = defaultSearchBudget
	}
	budget = min(budget, maxSearchBudget)

	cfg := s.search
	cfg.Seed = req.Seed
	if req.Iterations > 0 {
		cfg.Iterations = req.Iterations
	}
	if req.Workers > 0 {
		// Each worker owns a goroutine and a tree arena.
		cfg.Workers = min(req.Workers, runtime.NumCPU())
	}

	me, adv := toPosition(req.Me), toPosition(req.Adv)
	res, err := mcts.New(cfg).Search(r.Context(), b, me, adv, req.MaxStep, budget)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, game.ErrInvalidState) || errors.Is(err, game.ErrNoLegalMove) {
			status = http.StatusUnprocessableEntity
		}
		http.Error(w, err.Error(), status)
		return
	}

	s.logger.Debug().
		Str("move", res.Move.String()).
		Int("iterations", res.Stats.Iterations).
		Dur("elapsed", res.Stats.Elapsed).
		Msg("search")

	writeJSON(w, SearchResponse{
		To:      Point{Row: int32(res.Move.To.Row), Col: int32(res.Move.To.Col)},
		Dir:     res.Move.Dir.String(),
		WinRate: res.Tally.WinRate(),
		Stats:   res.Stats,
		Board:   selfplay.RenderBoard(b, [2]game.Position{me, adv}),
	})
}

func (s *Server) handleDebugGamesList(w http.ResponseWriter, r *http.Request) {
	if !preflight(w, r, http.MethodGet) {
		return
	}
	games, err := listDebugGames(s.debugDir)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, games)
}

func (s *Server) handleDebugGame(w http.ResponseWriter, r *http.Request) {
	if !preflight(w, r, http.MethodGet) {
		return
	}
	gameID, err := url.PathUnescape(strings.TrimPrefix(r.URL.Path, "/api/debug_games/"))
	if err != nil || gameID == "" || strings.Contains(gameID, "/") {
		http.Error(w, "bad game id", http.StatusBadRequest)
		return
	}
	g, err := loadDebugGame(s.debugDir, gameID)
	if err != nil {
		if errors.Is(err, errDebugGameNotFound) {
			http.NotFound(w, r)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, g)
}
