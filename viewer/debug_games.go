package main

import (
	"errors"
	"os"
	"path/filepath"
	"sort"

	"github.com/brensch/colosseum/executor/selfplay"
	"github.com/brensch/colosseum/store"
)

var errDebugGameNotFound = errors.New("debug game not found")

// listDebugGames reads the game summaries written by cmd/debuggame. The
// directory is small, so the files are read directly instead of through
// DuckDB.
func listDebugGames(dir string) ([]GameSummary, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "games_*.parquet"))
	if err != nil {
		return nil, err
	}

	games := make([]GameSummary, 0, len(paths))
	for _, p := range paths {
		rows, err := store.ReadGames(p)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return nil, err
		}
		for _, g := range rows {
			games = append(games, summaryFromRow(g, filepath.Base(p)))
		}
	}
	sort.SliceStable(games, func(i, j int) bool { return games[i].CreatedNs > games[j].CreatedNs })
	return games, nil
}

// loadDebugGame returns one debug game with its turns and whether the
// recorded moves replay cleanly.
func loadDebugGame(dir, gameID string) (DebugGame, error) {
	games, err := listDebugGames(dir)
	if err != nil {
		return DebugGame{}, err
	}
	var out DebugGame
	found := false
	for _, g := range games {
		if g.GameID == gameID {
			out.Game = g
			found = true
			break
		}
	}
	if !found {
		return DebugGame{}, errDebugGameNotFound
	}

	paths, err := filepath.Glob(filepath.Join(dir, "turns_*.parquet"))
	if err != nil {
		return DebugGame{}, err
	}
	var rows []store.TurnRow
	for _, p := range paths {
		all, err := store.ReadTurns(p)
		if err != nil {
			return DebugGame{}, err
		}
		for _, r := range all {
			if r.GameID == gameID {
				rows = append(rows, r)
			}
		}
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Turn < rows[j].Turn })

	out.Turns = make([]Turn, 0, len(rows))
	for _, r := range rows {
		out.Turns = append(out.Turns, turnFromRow(r))
	}
	if _, _, err := selfplay.Replay(rows); err != nil {
		out.ReplayError = err.Error()
	} else {
		out.ReplayOK = true
	}
	return out, nil
}
