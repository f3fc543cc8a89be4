package store

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress/zstd"
)

const (
	TurnSchema = "colosseum_turn_v1"
	GameSchema = "colosseum_game_v1"
)

// TurnRow is one move of a finished game.
//
// Board is the position before the move in game.Board.Encode form (one byte
// per cell, bit d set when side d has a barrier). Value is the final result
// from the moving player's perspective: 1 win, 0 tie, -1 loss.
type TurnRow struct {
	GameID    string `parquet:"game_id,dict"`
	Turn      int32  `parquet:"turn"`
	BoardSize int32  `parquet:"board_size"`
	MaxStep   int32  `parquet:"max_step"`

	// Player is 0 for the first mover and 1 for the second.
	Player int32  `parquet:"player"`
	Agent  string `parquet:"agent,dict"`

	PosRow int32 `parquet:"pos_row"`
	PosCol int32 `parquet:"pos_col"`
	AdvRow int32 `parquet:"adv_row"`
	AdvCol int32 `parquet:"adv_col"`

	ToRow int32  `parquet:"to_row"`
	ToCol int32  `parquet:"to_col"`
	Dir   string `parquet:"dir,dict"`

	// Fallback is set when the agent's own move was rejected or it failed to
	// answer, and a random legal move was played instead.
	Fallback bool `parquet:"fallback"`

	Board []byte `parquet:"board"`

	Iterations int32   `parquet:"iterations"`
	WinRate    float32 `parquet:"win_rate"`
	ElapsedMs  float32 `parquet:"elapsed_ms"`
	Value      float32 `parquet:"value"`

	// SearchJSON is the root child summary of the search that chose this
	// move, when the agent ran one.
	SearchJSON []byte `parquet:"search_json,optional,zstd"`
}

// GameRow summarises one finished game.
type GameRow struct {
	GameID    string `parquet:"game_id,dict"`
	CreatedNs int64  `parquet:"created_ns"`
	Seed      int64  `parquet:"seed"`
	BoardSize int32  `parquet:"board_size"`
	MaxStep   int32  `parquet:"max_step"`
	Turns     int32  `parquet:"turns"`
	AgentA    string `parquet:"agent_a,dict"`
	AgentB    string `parquet:"agent_b,dict"`
	// Winner is "A", "B" or "tie".
	Winner string `parquet:"winner,dict"`
	AreaA  int32  `parquet:"area_a"`
	AreaB  int32  `parquet:"area_b"`
	// Fallbacks counts moves replaced by the harness.
	Fallbacks int32 `parquet:"fallbacks"`
}

// WriteTurnsBatchAtomic writes rows to outDir/tmp and then renames the file
// into outDir, so readers never observe a partially written batch.
func WriteTurnsBatchAtomic(outDir string, rows []TurnRow) (string, error) {
	return writeBatchAtomic(outDir, "turns", rows,
		parquet.SkipPageBounds("board"),
		parquet.KeyValueMetadata("schema", TurnSchema),
	)
}

// WriteGamesBatchAtomic is WriteTurnsBatchAtomic for game summaries.
func WriteGamesBatchAtomic(outDir string, rows []GameRow) (string, error) {
	return writeBatchAtomic(outDir, "games", rows,
		parquet.KeyValueMetadata("schema", GameSchema),
	)
}

func writeBatchAtomic[T any](outDir, prefix string, rows []T, opts ...parquet.WriterOption) (string, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	tmpDir := filepath.Join(outDir, "tmp")
	if err := os.MkdirAll(tmpDir, 0o755); err != nil {
		return "", fmt.Errorf("create tmp dir: %w", err)
	}

	name := fmt.Sprintf("%s_%d.parquet", prefix, time.Now().UnixNano())
	finalPath := filepath.Join(outDir, name)
	tmpPath := filepath.Join(tmpDir, name+".tmp")
	_ = os.Remove(tmpPath)

	opts = append([]parquet.WriterOption{
		parquet.Compression(&zstd.Codec{Level: zstd.SpeedBetterCompression}),
	}, opts...)
	if err := parquet.WriteFile(tmpPath, rows, opts...); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("write parquet: %w", err)
	}

	if err := os.Rename(tmpPath, finalPath); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("rename parquet: %w", err)
	}
	return finalPath, nil
}

func ReadTurns(path string) ([]TurnRow, error) {
	rows, err := parquet.ReadFile[TurnRow](path)
	if err != nil {
		return nil, fmt.Errorf("read turns %s: %w", path, err)
	}
	return rows, nil
}

func ReadGames(path string) ([]GameRow, error) {
	rows, err := parquet.ReadFile[GameRow](path)
	if err != nil {
		return nil, fmt.Errorf("read games %s: %w", path, err)
	}
	return rows, nil
}
