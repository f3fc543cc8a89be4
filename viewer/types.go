package main

import (
	"encoding/json"

	"github.com/brensch/colosseum/executor/mcts"
)

type GameSummary struct {
	GameID    string `json:"game_id"`
	CreatedNs int64  `json:"created_ns"`
	Seed      int64  `json:"seed"`
	BoardSize int32  `json:"board_size"`
	MaxStep   int32  `json:"max_step"`
	Turns     int32  `json:"turns"`
	AgentA    string `json:"agent_a"`
	AgentB    string `json:"agent_b"`
	Winner    string `json:"winner"`
	AreaA     int32  `json:"area_a"`
	AreaB     int32  `json:"area_b"`
	Fallbacks int32  `json:"fallbacks"`
	File      string `json:"file"`
}

type GamesResponse struct {
	Total int64         `json:"total"`
	Games []GameSummary `json:"games"`
}

type Point struct {
	Row int32 `json:"row"`
	Col int32 `json:"col"`
}

// Turn is one archived move as served to the browser. Board is the position
// before the move, rendered as text.
type Turn struct {
	Turn       int32           `json:"turn"`
	Player     int32           `json:"player"`
	Agent      string          `json:"agent"`
	Pos        Point           `json:"pos"`
	Adv        Point           `json:"adv"`
	To         Point           `json:"to"`
	Dir        string          `json:"dir"`
	Fallback   bool            `json:"fallback"`
	Iterations int32           `json:"iterations"`
	WinRate    float32         `json:"win_rate"`
	ElapsedMs  float32         `json:"elapsed_ms"`
	Value      float32         `json:"value"`
	Board      string          `json:"board"`
	Search     json.RawMessage `json:"search,omitempty"`
}

type StatsPoint struct {
	TNs       int64 `json:"t_ns"`
	Games     int64 `json:"games"`
	Turns     int64 `json:"turns"`
	Decided   int64 `json:"decided"`
	Ties      int64 `json:"ties"`
	Fallbacks int64 `json:"fallbacks"`
}

// AgentStats counts results per agent over every game it played, on either
// side.
type AgentStats struct {
	Agent   string  `json:"agent"`
	Games   int64   `json:"games"`
	Wins    int64   `json:"wins"`
	Losses  int64   `json:"losses"`
	Ties    int64   `json:"ties"`
	AvgArea float64 `json:"avg_area"`
}

type StatsResponse struct {
	FromNs   int64        `json:"from_ns"`
	ToNs     int64        `json:"to_ns"`
	BucketNs int64        `json:"bucket_ns"`
	Points   []StatsPoint `json:"points"`
	Agents   []AgentStats `json:"agents"`
}

// SearchRequest asks the server to run a search on an arbitrary position.
// Board is game.Board.Encode output (base64 in JSON).
type SearchRequest struct {
	Size       int    `json:"size"`
	Board      []byte `json:"board"`
	Me         Point  `json:"me"`
	Adv        Point  `json:"adv"`
	MaxStep    int    `json:"max_step"`
	BudgetMs   int    `json:"budget_ms"`
	Iterations int    `json:"iterations"`
	Workers    int    `json:"workers"`
	Seed       uint64 `json:"seed"`
}

type SearchResponse struct {
	To      Point      `json:"to"`
	Dir     string     `json:"dir"`
	WinRate float64    `json:"win_rate"`
	Stats   mcts.Stats `json:"stats"`
	Board   string     `json:"board"`
}

type DebugGame struct {
	Game     GameSummary `json:"game"`
	Turns    []Turn      `json:"turns"`
	ReplayOK bool        `json:"replay_ok"`
	// ReplayError explains why the recorded moves did not replay.
	ReplayError string `json:"replay_error,omitempty"`
}
