package main

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/brensch/colosseum/executor/selfplay"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Width(16)
	boardStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	barAStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	barBStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	barTStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
)

const (
	recentGames = 10
	barWidth    = 40
)

type model struct {
	agents      [2]string
	wins        map[string]int
	gamesPlayed int
	moves       int64
	fallbacks   int64
	startTime   time.Time
	recentGames []string
	lastBoard   string
	updates     chan GameUpdate
}

func initialModel(updates chan GameUpdate, agents [2]string) model {
	return model{
		agents:    agents,
		wins:      map[string]int{},
		startTime: time.Now(),
		updates:   updates,
	}
}

type TickMsg time.Time

func tickCmd() tea.Cmd {
	return tea.Tick(time.Millisecond*100, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

func (m model) Init() tea.Cmd {
	return tea.Batch(waitForUpdate(m.updates), tickCmd())
}

func waitForUpdate(updates chan GameUpdate) tea.Cmd {
	return func() tea.Msg {
		return <-updates
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "q" || msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
	case TickMsg:
		m.moves = totalMoves.Load()
		m.fallbacks = totalFallbacks.Load()
		return m, tickCmd()
	case GameUpdate:
		m = m.record(msg)
		return m, waitForUpdate(m.updates)
	}
	return m, nil
}

func (m model) record(u GameUpdate) model {
	m.gamesPlayed++
	switch u.Result.Winner() {
	case selfplay.WinnerA:
		m.wins[u.Agents[0]]++
	case selfplay.WinnerB:
		m.wins[u.Agents[1]]++
	default:
		m.wins[selfplay.WinnerTie]++
	}

	line := fmt.Sprintf("w%-2d %s vs %s: %s", u.WorkerID, u.Agents[0], u.Agents[1], selfplay.Summary(u.Result))
	m.recentGames = append([]string{line}, m.recentGames...)
	if len(m.recentGames) > recentGames {
		m.recentGames = m.recentGames[:recentGames]
	}
	if u.Result.Final != nil {
		m.lastBoard = selfplay.RenderBoard(u.Result.Final, u.Result.Players)
	}
	return m
}

// winBar splits barWidth cells between the first agent's wins, ties and the
// second agent's wins.
func (m model) winBar() string {
	a, b, t := m.wins[m.agents[0]], m.wins[m.agents[1]], m.wins[selfplay.WinnerTie]
	if m.agents[0] == m.agents[1] {
		b = 0
	}
	total := a + b + t
	if total == 0 {
		return barTStyle.Render(strings.Repeat("·", barWidth))
	}
	na := a * barWidth / total
	nb := b * barWidth / total
	nt := barWidth - na - nb
	return barAStyle.Render(strings.Repeat("█", na)) +
		barTStyle.Render(strings.Repeat("░", nt)) +
		barBStyle.Render(strings.Repeat("█", nb))
}

func (m model) View() string {
	duration := time.Since(m.startTime)
	gamesPerSec, movesPerSec := 0.0, 0.0
	if duration.Seconds() >= 1 {
		gamesPerSec = float64(m.gamesPlayed) / duration.Seconds()
		movesPerSec = float64(m.moves) / duration.Seconds()
	}

	var sb strings.Builder
	sb.WriteString(titleStyle.Render(fmt.Sprintf("Colosseum self-play: %s vs %s", m.agents[0], m.agents[1])))
	sb.WriteString("\n\n")

	stat := func(label string, value any) {
		sb.WriteString(labelStyle.Render(label))
		sb.WriteString(fmt.Sprint(value))
		sb.WriteString("\n")
	}
	stat("Games played", m.gamesPlayed)
	stat("Moves", m.moves)
	stat("Fallbacks", m.fallbacks)
	stat("Duration", duration.Round(time.Second))
	stat("Games/sec", fmt.Sprintf("%.2f", gamesPerSec))
	stat("Moves/sec", fmt.Sprintf("%.2f", movesPerSec))
	stat("Wins", fmt.Sprintf("%s %d | tie %d | %s %d",
		m.agents[0], m.wins[m.agents[0]], m.wins[selfplay.WinnerTie], m.agents[1], m.wins[m.agents[1]]))
	sb.WriteString("\n")
	sb.WriteString(m.winBar())
	sb.WriteString("\n\n")

	sb.WriteString("Recent games:\n")
	for _, g := range m.recentGames {
		sb.WriteString(g + "\n")
	}

	if m.lastBoard != "" {
		sb.WriteString("\nLast final board:\n")
		sb.WriteString(boardStyle.Render(strings.TrimRight(m.lastBoard, "\n")))
		sb.WriteString("\n")
	}

	sb.WriteString("\nPress q to quit.\n")
	return sb.String()
}
