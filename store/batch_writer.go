package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress/zstd"
)

// BatchWriter streams the turns of many games into one parquet file under
// outDir/tmp. Game summaries are buffered and written next to it when the
// batch is finalized.
type BatchWriter struct {
	outDir string
	tmpDir string

	name    string
	tmpPath string
	outPath string

	file   *os.File
	writer *parquet.GenericWriter[TurnRow]

	games        []GameRow
	bufferedRows int
}

func NewBatchWriter(outDir string) (*BatchWriter, error) {
	if outDir == "" {
		return nil, fmt.Errorf("outDir is required")
	}

	absOut, err := filepath.Abs(outDir)
	if err != nil {
		absOut = outDir
	}
	tmpDir := filepath.Join(absOut, "tmp")
	if err := os.MkdirAll(tmpDir, 0o755); err != nil {
		return nil, fmt.Errorf("create tmp dir: %w", err)
	}

	name := fmt.Sprintf("turns_%d.parquet", time.Now().UnixNano())
	tmpPath := filepath.Join(tmpDir, name)
	outPath := filepath.Join(absOut, name)

	f, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open tmp parquet: %w", err)
	}

	w := parquet.NewGenericWriter[TurnRow](
		f,
		parquet.Compression(&zstd.Codec{Level: zstd.SpeedBetterCompression}),
		parquet.SkipPageBounds("board"),
	)
	w.SetKeyValueMetadata("schema", TurnSchema)

	return &BatchWriter{
		outDir:  absOut,
		tmpDir:  tmpDir,
		name:    name,
		tmpPath: tmpPath,
		outPath: outPath,
		file:    f,
		writer:  w,
	}, nil
}

func (b *BatchWriter) TmpPath() string    { return b.tmpPath }
func (b *BatchWriter) OutPath() string    { return b.outPath }
func (b *BatchWriter) BufferedGames() int { return len(b.games) }
func (b *BatchWriter) BufferedRows() int  { return b.bufferedRows }

// WriteGame appends one finished game.
func (b *BatchWriter) WriteGame(turns []TurnRow, game GameRow) error {
	if b.writer == nil || b.file == nil {
		return fmt.Errorf("batch writer is closed")
	}
	if len(turns) > 0 {
		if _, err := b.writer.Write(turns); err != nil {
			return fmt.Errorf("write turns: %w", err)
		}
	}
	b.bufferedRows += len(turns)
	b.games = append(b.games, game)
	return nil
}

// Batch is what a finalized BatchWriter produced.
type Batch struct {
	TurnsPath string
	GamesPath string
	Rows      int
	GameIDs   []string
}

// Finalize closes the parquet writer, moves the turns file from tmp/ to
// outDir and writes the game summaries beside it. With no games buffered the
// tmp file is removed and an empty Batch is returned.
func (b *BatchWriter) Finalize() (Batch, error) {
	if b.writer == nil && b.file == nil {
		return Batch{}, nil
	}

	var closeErr error
	if b.writer != nil {
		closeErr = b.writer.Close()
		b.writer = nil
	}
	var fileErr error
	if b.file != nil {
		_ = b.file.Sync()
		fileErr = b.file.Close()
		b.file = nil
	}
	if closeErr != nil {
		return Batch{}, fmt.Errorf("close parquet writer: %w", closeErr)
	}
	if fileErr != nil {
		return Batch{}, fmt.Errorf("close parquet file: %w", fileErr)
	}

	if len(b.games) == 0 {
		_ = os.Remove(b.tmpPath)
		return Batch{}, nil
	}
	if err := os.Rename(b.tmpPath, b.outPath); err != nil {
		return Batch{}, fmt.Errorf("rename parquet: %w", err)
	}

	gamesName := "games_" + strings.TrimPrefix(b.name, "turns_")
	gamesTmp := filepath.Join(b.tmpDir, gamesName+".tmp")
	gamesPath := filepath.Join(b.outDir, gamesName)
	if err := parquet.WriteFile(gamesTmp, b.games,
		parquet.Compression(&zstd.Codec{Level: zstd.SpeedBetterCompression}),
		parquet.KeyValueMetadata("schema", GameSchema),
	); err != nil {
		_ = os.Remove(gamesTmp)
		return Batch{}, fmt.Errorf("write games parquet: %w", err)
	}
	if err := os.Rename(gamesTmp, gamesPath); err != nil {
		_ = os.Remove(gamesTmp)
		return Batch{}, fmt.Errorf("rename games parquet: %w", err)
	}

	ids := make([]string, len(b.games))
	for i, g := range b.games {
		ids[i] = g.GameID
	}
	return Batch{TurnsPath: b.outPath, GamesPath: gamesPath, Rows: b.bufferedRows, GameIDs: ids}, nil
}
