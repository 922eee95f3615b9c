// Package statusui renders the bridge's state as an interactive
// terminal panel: connectivity, polling state, cycle phase, the last
// captured output, and a short tail of diagnostic log records. The
// panel surfaces a single intent, the polling toggle, and disables it
// while the dispatcher is unreachable.
package statusui

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/scriptbridge/scriptbridge/internal/bridge"
)

// logTailSize bounds the number of records kept in the panel tail.
const logTailSize = 6

// Controller is the slice of the bridge the panel drives.
type Controller interface {
	TogglePolling()
	Snapshot() bridge.Status
	Updates() <-chan bridge.Status
}

// statusMsg carries a fresh bridge snapshot into the model.
type statusMsg struct {
	status bridge.Status
}

// statusFeedClosedMsg signals that the bridge has been torn down.
type statusFeedClosedMsg struct{}

type logLine struct {
	summary string
	level   slog.Level
}

// Model is the bubbletea model for the bridge status panel.
type Model struct {
	controller Controller
	theme      Theme
	keys       KeyMap

	status  bridge.Status
	updates <-chan bridge.Status
	tail    []logLine
	width   int
}

// NewModel creates a panel connected to the given bridge controller.
func NewModel(controller Controller) Model {
	return Model{
		controller: controller,
		theme:      DefaultTheme,
		keys:       DefaultKeyMap,
		status:     controller.Snapshot(),
		updates:    controller.Updates(),
	}
}

// Init implements tea.Model. Starts listening for bridge snapshots.
func (m Model) Init() tea.Cmd {
	return listenForStatus(m.updates)
}

// listenForStatus returns a tea.Cmd that blocks until the next status
// snapshot, then delivers it as a statusMsg.
func listenForStatus(updates <-chan bridge.Status) tea.Cmd {
	return func() tea.Msg {
		status, ok := <-updates
		if !ok {
			return statusFeedClosedMsg{}
		}
		return statusMsg{status: status}
	}
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case statusMsg:
		m.status = msg.status
		return m, listenForStatus(m.updates)

	case statusFeedClosedMsg:
		return m, tea.Quit

	case logRecordMsg:
		m.tail = append(m.tail, logLine{summary: msg.Summary, level: msg.Level})
		if len(m.tail) > logTailSize {
			m.tail = m.tail[len(m.tail)-logTailSize:]
		}
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Toggle):
			// Disabled while the dispatcher is away; starting would be
			// rejected anyway, so don't pretend the key does anything.
			if m.status.Connectivity == bridge.Reachable {
				m.controller.TogglePolling()
			}
			return m, nil
		}
	}
	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	header := lipgloss.NewStyle().Bold(true).Foreground(m.theme.HeaderForeground)
	label := lipgloss.NewStyle().Foreground(m.theme.FaintText).Width(14)
	normal := lipgloss.NewStyle().Foreground(m.theme.NormalText)

	var b strings.Builder
	b.WriteString(header.Render("scriptbridge"))
	b.WriteString("\n")
	b.WriteString(m.rule())
	b.WriteString("\n\n")

	b.WriteString(label.Render("Dispatcher"))
	b.WriteString(m.connectivityStyle().Render(string(m.status.Connectivity)))
	b.WriteString("\n")

	b.WriteString(label.Render("Polling"))
	b.WriteString(m.pollingStyle().Render(string(m.status.Polling)))
	b.WriteString("\n")

	b.WriteString(label.Render("Phase"))
	b.WriteString(normal.Render(string(m.status.Phase)))
	b.WriteString("\n")

	b.WriteString(label.Render("Cycles"))
	counters := fmt.Sprintf("%d", m.status.CyclesCompleted)
	if m.status.ProbeFailures > 0 {
		counters += fmt.Sprintf("   probe failures %d", m.status.ProbeFailures)
	}
	b.WriteString(normal.Render(counters))
	b.WriteString("\n")

	if m.status.LastOutput != "" {
		b.WriteString("\n")
		b.WriteString(label.Render("Last output"))
		b.WriteString("\n")
		output := lipgloss.NewStyle().Foreground(m.theme.NormalText).PaddingLeft(2)
		b.WriteString(output.Render(strings.TrimRight(m.status.LastOutput, "\n")))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.helpLine())
	b.WriteString("\n")

	if len(m.tail) > 0 {
		b.WriteString("\n")
		b.WriteString(m.rule())
		b.WriteString("\n")
		for _, line := range m.tail {
			b.WriteString(m.levelStyle(line.level).Render(line.summary))
			b.WriteString("\n")
		}
	}

	return b.String()
}

// rule renders a horizontal separator sized to the terminal, with a
// fallback width before the first WindowSizeMsg arrives.
func (m Model) rule() string {
	width := m.width
	if width <= 0 {
		width = 40
	}
	style := lipgloss.NewStyle().Foreground(m.theme.BorderColor)
	return style.Render(strings.Repeat("─", width))
}

func (m Model) helpLine() string {
	help := lipgloss.NewStyle().Foreground(m.theme.HelpText)
	toggle := m.keys.Toggle.Help()
	quit := m.keys.Quit.Help()

	toggleText := fmt.Sprintf("[%s] %s", toggle.Key, toggle.Desc)
	if m.status.Connectivity == bridge.Unreachable {
		toggleText += " (unavailable)"
	}
	return help.Render(fmt.Sprintf("%s   [%s] %s", toggleText, quit.Key, quit.Desc))
}

func (m Model) connectivityStyle() lipgloss.Style {
	if m.status.Connectivity == bridge.Reachable {
		return lipgloss.NewStyle().Foreground(m.theme.Reachable)
	}
	return lipgloss.NewStyle().Foreground(m.theme.Unreachable)
}

func (m Model) pollingStyle() lipgloss.Style {
	if m.status.Polling == bridge.Active {
		return lipgloss.NewStyle().Foreground(m.theme.Active)
	}
	return lipgloss.NewStyle().Foreground(m.theme.Idle)
}

func (m Model) levelStyle(level slog.Level) lipgloss.Style {
	switch {
	case level >= slog.LevelError:
		return lipgloss.NewStyle().Foreground(m.theme.LogError)
	case level >= slog.LevelWarn:
		return lipgloss.NewStyle().Foreground(m.theme.LogWarn)
	default:
		return lipgloss.NewStyle().Foreground(m.theme.FaintText)
	}
}
