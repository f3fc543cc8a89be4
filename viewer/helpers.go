package main

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/brensch/colosseum/executor/selfplay"
	"github.com/brensch/colosseum/game"
	"github.com/brensch/colosseum/store"
)

func withCORS(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	_ = enc.Encode(v)
}

func parseIntQuery(r *http.Request, key string, def int) int {
	v := strings.TrimSpace(r.URL.Query().Get(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	if n < 0 {
		return def
	}
	return n
}

func parseInt64Query(r *http.Request, key string, def int64) int64 {
	v := strings.TrimSpace(r.URL.Query().Get(key))
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return def
	}
	return n
}

func parseDataRoots(s string) []string {
	parts := strings.Split(s, ",")
	roots := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			roots = append(roots, p)
		}
	}
	return roots
}

func toPosition(p Point) game.Position {
	return game.Position{Row: int(p.Row), Col: int(p.Col)}
}

// turnFromRow converts an archived row for the browser. A board that does
// not decode is served without a rendering rather than failing the request.
func turnFromRow(r store.TurnRow) Turn {
	t := Turn{
		Turn:       r.Turn,
		Player:     r.Player,
		Agent:      r.Agent,
		Pos:        Point{Row: r.PosRow, Col: r.PosCol},
		Adv:        Point{Row: r.AdvRow, Col: r.AdvCol},
		To:         Point{Row: r.ToRow, Col: r.ToCol},
		Dir:        r.Dir,
		Fallback:   r.Fallback,
		Iterations: r.Iterations,
		WinRate:    r.WinRate,
		ElapsedMs:  r.ElapsedMs,
		Value:      r.Value,
	}
	if len(r.SearchJSON) > 0 && json.Valid(r.SearchJSON) {
		t.Search = json.RawMessage(r.SearchJSON)
	}
	if b, err := game.DecodeBoard(int(r.BoardSize), r.Board); err == nil {
		var players [2]game.Position
		players[r.Player&1] = toPosition(t.Pos)
		players[1-r.Player&1] = toPosition(t.Adv)
		t.Board = selfplay.RenderBoard(b, players)
	}
	return t
}

func summaryFromRow(g store.GameRow, file string) GameSummary {
	return GameSummary{
		GameID:    g.GameID,
		CreatedNs: g.CreatedNs,
		Seed:      g.Seed,
		BoardSize: g.BoardSize,
		MaxStep:   g.MaxStep,
		Turns:     g.Turns,
		AgentA:    g.AgentA,
		AgentB:    g.AgentB,
		Winner:    g.Winner,
		AreaA:     g.AreaA,
		AreaB:     g.AreaB,
		Fallbacks: g.Fallbacks,
		File:      file,
	}
}
