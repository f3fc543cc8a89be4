package main

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/brensch/colosseum/agent"
	"github.com/brensch/colosseum/executor/mcts"
	"github.com/brensch/colosseum/store"
)

func TestParquetWriterLoop(t *testing.T) {
	dir := t.TempDir()
	archived, err := store.OpenArchiveLog(filepath.Join(dir, "archived.log"))
	require.NoError(t, err)
	defer archived.Close()

	in := make(chan gameWriteRequest, 3)
	for i := 0; i < 3; i++ {
		id := fmt.Sprintf("g%d", i)
		in <- gameWriteRequest{
			rows: []store.TurnRow{{GameID: id, BoardSize: 2, Board: make([]byte, 4), Dir: "u"}},
			game: store.GameRow{GameID: id, Turns: 1, Winner: "tie"},
		}
	}
	close(in)

	parquetWriterLoop(zerolog.Nop(), dir, 2, archived, in)

	require.Equal(t, 3, archived.Count())
	first, ok := archived.Lookup("g0")
	require.True(t, ok)
	last, ok := archived.Lookup("g2")
	require.True(t, ok)
	require.NotEqual(t, first, last)

	turns, err := filepath.Glob(filepath.Join(dir, "turns_*.parquet"))
	require.NoError(t, err)
	require.Len(t, turns, 2)
	games, err := filepath.Glob(filepath.Join(dir, "games_*.parquet"))
	require.NoError(t, err)
	require.Len(t, games, 2)
}

func TestNewPlayers(t *testing.T) {
	players, err := newPlayers([2]string{agent.MCTSName, agent.RandomName}, mcts.DefaultConfig(), time.Second, 5, zerolog.Nop())
	require.NoError(t, err)
	require.Equal(t, agent.MCTSName, players[0].Name())
	require.Equal(t, agent.RandomName, players[1].Name())

	_, err = newPlayers([2]string{"nope", agent.RandomName}, mcts.DefaultConfig(), time.Second, 0, zerolog.Nop())
	require.ErrorIs(t, err, agent.ErrUnknownAgent)
}
