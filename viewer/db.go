package main

import (
	"context"
	"database/sql"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/rs/zerolog"

	"github.com/brensch/colosseum/store"
)

// DBCache maintains a cached DuckDB connection that refreshes periodically.
// New batches only become visible after a refresh, since the views are built
// from the files that existed when the connection was opened.
type DBCache struct {
	roots       []string
	refreshRate time.Duration
	logger      zerolog.Logger

	mu          sync.RWMutex
	db          *sql.DB
	lastRefresh time.Time

	// Cached games index for fast pagination
	gamesIndex []GameSummary
}

func NewDBCache(roots []string, refreshRate time.Duration, logger zerolog.Logger) *DBCache {
	return &DBCache{
		roots:       roots,
		refreshRate: refreshRate,
		logger:      logger,
	}
}

// Get returns the cached DB connection, refreshing if needed.
func (c *DBCache) Get() (*sql.DB, error) {
	c.mu.RLock()
	if c.db != nil && time.Since(c.lastRefresh) < c.refreshRate {
		db := c.db
		c.mu.RUnlock()
		return db, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	// Double-check after acquiring write lock
	if c.db != nil && time.Since(c.lastRefresh) < c.refreshRate {
		return c.db, nil
	}
	return c.refreshLocked()
}

// Refresh forces a refresh of the cached DB connection.
func (c *DBCache) Refresh() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := c.refreshLocked()
	return err
}

func (c *DBCache) refreshLocked() (*sql.DB, error) {
	start := time.Now()

	newDB, err := openArchiveDB(c.roots)
	if err != nil {
		return nil, err
	}
	if c.db != nil {
		_ = c.db.Close()
	}

	c.db = newDB
	c.lastRefresh = time.Now()
	c.gamesIndex = nil

	c.logger.Debug().Dur("took", time.Since(start)).Msg("db refreshed")
	return c.db, nil
}

// GetGamesIndex returns every archived game, newest first. The index is only
// rebuilt after the connection is refreshed.
func (c *DBCache) GetGamesIndex(ctx context.Context) ([]GameSummary, error) {
	c.mu.RLock()
	if c.gamesIndex != nil && c.db != nil {
		idx := c.gamesIndex
		c.mu.RUnlock()
		return idx, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.gamesIndex != nil && c.db != nil {
		return c.gamesIndex, nil
	}
	if c.db == nil {
		if _, err := c.refreshLocked(); err != nil {
			return nil, err
		}
	}

	start := time.Now()
	games, err := queryAllGames(ctx, c.db)
	if err != nil {
		return nil, err
	}
	c.gamesIndex = games
	c.logger.Debug().Int("games", len(games)).Dur("took", time.Since(start)).Msg("games index rebuilt")
	return c.gamesIndex, nil
}

func (c *DBCache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.db != nil {
		err := c.db.Close()
		c.db = nil
		return err
	}
	return nil
}

const emptyTurnsView = `CREATE OR REPLACE VIEW turns AS
	SELECT * FROM (
		SELECT
			NULL::VARCHAR AS game_id,
			NULL::INTEGER AS turn,
			NULL::INTEGER AS board_size,
			NULL::INTEGER AS max_step,
			NULL::INTEGER AS player,
			NULL::VARCHAR AS agent,
			NULL::INTEGER AS pos_row,
			NULL::INTEGER AS pos_col,
			NULL::INTEGER AS adv_row,
			NULL::INTEGER AS adv_col,
			NULL::INTEGER AS to_row,
			NULL::INTEGER AS to_col,
			NULL::VARCHAR AS dir,
			NULL::BOOLEAN AS fallback,
			NULL::BLOB AS board,
			NULL::INTEGER AS iterations,
			NULL::FLOAT AS win_rate,
			NULL::FLOAT AS elapsed_ms,
			NULL::FLOAT AS value,
			NULL::BLOB AS search_json,
			NULL::VARCHAR AS filename
	) WHERE 1=0`

const emptyGamesView = `CREATE OR REPLACE VIEW games AS
	SELECT * FROM (
		SELECT
			NULL::VARCHAR AS game_id,
			NULL::BIGINT AS created_ns,
			NULL::BIGINT AS seed,
			NULL::INTEGER AS board_size,
			NULL::INTEGER AS max_step,
			NULL::INTEGER AS turns,
			NULL::VARCHAR AS agent_a,
			NULL::VARCHAR AS agent_b,
			NULL::VARCHAR AS winner,
			NULL::INTEGER AS area_a,
			NULL::INTEGER AS area_b,
			NULL::INTEGER AS fallbacks,
			NULL::VARCHAR AS filename
	) WHERE 1=0`

// openArchiveDB opens an in-memory DuckDB with a turns and a games view over
// the batches in roots. Files still being written live under tmp/ and are
// never matched.
func openArchiveDB(roots []string) (*sql.DB, error) {
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, err
	}
	// Basic pragmas; ignore errors for compatibility across versions.
	_, _ = db.Exec("PRAGMA threads=4")

	views := []struct {
		name, prefix, empty string
	}{
		{"turns", "turns", emptyTurnsView},
		{"games", "games", emptyGamesView},
	}
	for _, v := range views {
		globs := archiveGlobs(roots, v.prefix)
		sqlText := v.empty
		if len(globs) > 0 {
			sqlText = `CREATE OR REPLACE VIEW ` + v.name + ` AS
				SELECT * FROM read_parquet([` + strings.Join(globs, ",") + `], filename=true, union_by_name=true)`
		}
		if _, err := db.Exec(sqlText); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return db, nil
}

// archiveGlobs returns quoted glob patterns for the roots that hold at least
// one batch with the given prefix. read_parquet fails on a glob that matches
// nothing, so empty roots are left out.
func archiveGlobs(roots []string, prefix string) []string {
	globs := make([]string, 0, len(roots))
	for _, root := range roots {
		root = strings.TrimSpace(root)
		if root == "" {
			continue
		}
		glob := filepath.Join(root, prefix+"_*.parquet")
		if matches, err := filepath.Glob(glob); err != nil || len(matches) == 0 {
			continue
		}
		globs = append(globs, "'"+escapeSQLString(glob)+"'")
	}
	return globs
}

func escapeSQLString(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

func queryAllGames(ctx context.Context, db *sql.DB) ([]GameSummary, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT game_id, created_ns, seed, board_size, max_step, turns,
			agent_a, agent_b, winner, area_a, area_b, fallbacks, filename
		FROM games
		ORDER BY created_ns DESC, game_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	games := make([]GameSummary, 0)
	for rows.Next() {
		var g GameSummary
		if err := rows.Scan(&g.GameID, &g.CreatedNs, &g.Seed, &g.BoardSize, &g.MaxStep, &g.Turns,
			&g.AgentA, &g.AgentB, &g.Winner, &g.AreaA, &g.AreaB, &g.Fallbacks, &g.File); err != nil {
			return nil, err
		}
		g.File = filepath.Base(g.File)
		games = append(games, g)
	}
	return games, rows.Err()
}

// queryTurns returns the turns of one game in order, or sql.ErrNoRows when
// the game is not archived.
func queryTurns(ctx context.Context, db *sql.DB, gameID string) ([]Turn, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT turn, board_size, max_step, player, agent, pos_row, pos_col, adv_row, adv_col,
			to_row, to_col, dir, fallback, board, iterations, win_rate, elapsed_ms, value, search_json
		FROM turns
		WHERE game_id = ?
		ORDER BY turn`, gameID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	turns := make([]Turn, 0)
	for rows.Next() {
		r := store.TurnRow{GameID: gameID}
		if err := rows.Scan(&r.Turn, &r.BoardSize, &r.MaxStep, &r.Player, &r.Agent, &r.PosRow, &r.PosCol,
			&r.AdvRow, &r.AdvCol, &r.ToRow, &r.ToCol, &r.Dir, &r.Fallback, &r.Board,
			&r.Iterations, &r.WinRate, &r.ElapsedMs, &r.Value, &r.SearchJSON); err != nil {
			return nil, err
		}
		turns = append(turns, turnFromRow(r))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(turns) == 0 {
		return nil, sql.ErrNoRows
	}
	return turns, nil
}

func queryStats(ctx context.Context, db *sql.DB, fromNs, toNs, bucketNs int64) ([]StatsPoint, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT
			created_ns - (created_ns % ?) AS t,
			COUNT(*),
			CAST(COALESCE(SUM(turns), 0) AS BIGINT),
			COUNT_IF(winner <> 'tie'),
			COUNT_IF(winner = 'tie'),
			CAST(COALESCE(SUM(fallbacks), 0) AS BIGINT)
		FROM games
		WHERE created_ns >= ? AND (? = 0 OR created_ns < ?)
		GROUP BY t
		ORDER BY t`, bucketNs, fromNs, toNs, toNs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	points := make([]StatsPoint, 0)
	for rows.Next() {
		var p StatsPoint
		if err := rows.Scan(&p.TNs, &p.Games, &p.Turns, &p.Decided, &p.Ties, &p.Fallbacks); err != nil {
			return nil, err
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

func queryAgentStats(ctx context.Context, db *sql.DB, fromNs, toNs int64) ([]AgentStats, error) {
	rows, err := db.QueryContext(ctx, `
		WITH sides AS (
			SELECT created_ns, agent_a AS agent, winner = 'A' AS won, winner = 'B' AS lost, area_a AS area FROM games
			UNION ALL
			SELECT created_ns, agent_b, winner = 'B', winner = 'A', area_b FROM games
		)
		SELECT agent, COUNT(*), COUNT_IF(won), COUNT_IF(lost), COUNT_IF(NOT won AND NOT lost), AVG(area)
		FROM sides
		WHERE created_ns >= ? AND (? = 0 OR created_ns < ?)
		GROUP BY agent
		ORDER BY agent`, fromNs, toNs, toNs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]AgentStats, 0)
	for rows.Next() {
		var a AgentStats
		if err := rows.Scan(&a.Agent, &a.Games, &a.Wins, &a.Losses, &a.Ties, &a.AvgArea); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func normalizeSort(sortKey string, sortDir string) (string, string) {
	sk := strings.ToLower(strings.TrimSpace(sortKey))
	sd := strings.ToLower(strings.TrimSpace(sortDir))
	if sd != "asc" && sd != "desc" {
		sd = "desc"
	}
	switch sk {
	case "created", "turns", "size", "fallbacks", "game_id":
	default:
		sk = "created"
	}
	return sk, sd
}

// queryGamesFromIndex sorts and pages the cached index without touching the
// database. The index itself is never reordered.
func queryGamesFromIndex(index []GameSummary, limit, offset int, sortKey, sortDir string) ([]GameSummary, int64) {
	sk, sd := normalizeSort(sortKey, sortDir)
	total := int64(len(index))

	games := make([]GameSummary, len(index))
	copy(games, index)

	less := func(a, b GameSummary) bool {
		switch sk {
		case "turns":
			return a.Turns < b.Turns
		case "size":
			return a.BoardSize < b.BoardSize
		case "fallbacks":
			return a.Fallbacks < b.Fallbacks
		case "game_id":
			return a.GameID < b.GameID
		default:
			return a.CreatedNs < b.CreatedNs
		}
	}
	sort.SliceStable(games, func(i, j int) bool {
		if sd == "asc" {
			return less(games[i], games[j])
		}
		return less(games[j], games[i])
	})

	if offset >= len(games) {
		return []GameSummary{}, total
	}
	games = games[offset:]
	if limit > 0 && limit < len(games) {
		games = games[:limit]
	}
	return games, total
}
