package selfplay

import (
	"errors"
	"fmt"

	"github.com/brensch/colosseum/game"
	"github.com/brensch/colosseum/rules"
	"github.com/brensch/colosseum/store"
)

// ArchivedGame is where WriteGame put a single game.
type ArchivedGame struct {
	TurnsPath string
	GamesPath string
}

// WriteGame archives one completed game as its own pair of parquet files.
// Long-running tools batch games with store.BatchWriter instead.
func WriteGame(outDir string, out PlayGameOutcome) (ArchivedGame, error) {
	if !out.Completed {
		return ArchivedGame{}, errors.New("game did not complete")
	}
	turns, err := store.WriteTurnsBatchAtomic(outDir, out.Rows)
	if err != nil {
		return ArchivedGame{}, fmt.Errorf("write turns: %w", err)
	}
	games, err := store.WriteGamesBatchAtomic(outDir, []store.GameRow{out.Game})
	if err != nil {
		return ArchivedGame{}, fmt.Errorf("write game: %w", err)
	}
	return ArchivedGame{TurnsPath: turns, GamesPath: games}, nil
}

// Replay rebuilds the positions of an archived game from its rows and checks
// every recorded move against the rules. It returns the final board and
// player positions.
func Replay(rows []store.TurnRow) (*game.Board, [2]game.Position, error) {
	var players [2]game.Position
	if len(rows) == 0 {
		return nil, players, errors.New("no turns to replay")
	}

	var b *game.Board
	for i, row := range rows {
		if int(row.Turn) != i {
			return nil, players, fmt.Errorf("turn %d recorded at index %d", row.Turn, i)
		}
		recorded, err := game.DecodeBoard(int(row.BoardSize), row.Board)
		if err != nil {
			return nil, players, fmt.Errorf("turn %d: %w", i, err)
		}
		if b == nil {
			b = recorded
			players[row.Player] = game.Position{Row: int(row.PosRow), Col: int(row.PosCol)}
			players[1-row.Player] = game.Position{Row: int(row.AdvRow), Col: int(row.AdvCol)}
		} else if !b.Equal(recorded) {
			return nil, players, fmt.Errorf("turn %d: recorded board differs from replay", i)
		}

		me := players[row.Player]
		adv := players[1-row.Player]
		if me.Row != int(row.PosRow) || me.Col != int(row.PosCol) {
			return nil, players, fmt.Errorf("turn %d: player %d at %s, recorded (%d,%d)", i, row.Player, me, row.PosRow, row.PosCol)
		}

		dir, err := game.ParseDirection(row.Dir)
		if err != nil {
			return nil, players, fmt.Errorf("turn %d: %w", i, err)
		}
		m := game.Move{To: game.Position{Row: int(row.ToRow), Col: int(row.ToCol)}, Dir: dir}
		if err := rules.CheckMove(b, me, adv, int(row.MaxStep), m); err != nil {
			return nil, players, fmt.Errorf("turn %d: %w", i, err)
		}
		if b, err = rules.Apply(b, m); err != nil {
			return nil, players, fmt.Errorf("turn %d: %w", i, err)
		}
		players[row.Player] = m.To
	}
	return b, players, nil
}
