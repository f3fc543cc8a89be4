package main

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"

	"github.com/brensch/colosseum/executor/selfplay"
	"github.com/brensch/colosseum/game"
)

func TestModel_RecordsGames(t *testing.T) {
	updates := make(chan GameUpdate, 1)
	m := initialModel(updates, [2]string{"mcts", "random"})

	b, err := game.NewBoard(4)
	require.NoError(t, err)
	res := selfplay.GameResult{GameID: "g1", Size: 4, Turns: 7, Outcome: game.MyWin, AreaA: 10, AreaB: 6, Final: b,
		Players: [2]game.Position{{Row: 0, Col: 0}, {Row: 3, Col: 3}}}

	next, cmd := m.Update(GameUpdate{WorkerID: 1, Agents: [2]string{"random", "mcts"}, Result: res})
	require.NotNil(t, cmd)
	m = next.(model)

	require.Equal(t, 1, m.gamesPlayed)
	require.Equal(t, 1, m.wins["random"])
	require.Zero(t, m.wins["mcts"])
	require.Len(t, m.recentGames, 1)
	require.Contains(t, m.recentGames[0], "winner=A")
	require.Contains(t, m.lastBoard, "A")

	view := m.View()
	require.Contains(t, view, "Games played")
	require.Contains(t, view, "Last final board")
}

func TestModel_RecentGamesBounded(t *testing.T) {
	m := initialModel(make(chan GameUpdate), [2]string{"a", "b"})
	for i := 0; i < recentGames+5; i++ {
		m = m.record(GameUpdate{Agents: [2]string{"a", "b"}, Result: selfplay.GameResult{Outcome: game.Tie}})
	}
	require.Len(t, m.recentGames, recentGames)
	require.Equal(t, recentGames+5, m.wins[selfplay.WinnerTie])
}

func TestModel_Quit(t *testing.T) {
	m := initialModel(make(chan GameUpdate), [2]string{"a", "b"})
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.NotNil(t, cmd)
	require.IsType(t, tea.QuitMsg{}, cmd())
}

func TestModel_WinBarWidth(t *testing.T) {
	m := initialModel(make(chan GameUpdate), [2]string{"a", "b"})
	m.wins = map[string]int{"a": 3, "b": 1, selfplay.WinnerTie: 2}
	require.NotEmpty(t, m.winBar())
}
