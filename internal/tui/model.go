// Package tui implements the monitor dashboard: a read-only, live-updating
// list of every client currently registered with the daemon, polled over
// the control surface.
package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/cwel/gsmd/internal/ctlclient"
	"github.com/cwel/gsmd/internal/ctlproto"
)

const refreshInterval = time.Second

// Model is the bubbletea model for the monitor dashboard.
type Model struct {
	client *ctlclient.Client

	clients []ctlproto.ClientSummary
	cursor  int

	width  int
	height int
	err    error

	quitting bool
}

// New creates a monitor Model polling the daemon through client.
func New(client *ctlclient.Client) Model {
	return Model{client: client}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.refresh, tick())
}

type clientsMsg []ctlproto.ClientSummary
type errMsg struct{ err error }
type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) refresh() tea.Msg {
	clients, err := m.client.ListClients()
	if err != nil {
		return errMsg{err}
	}
	return clientsMsg(clients)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.clients)-1 {
				m.cursor++
			}
		case "r":
			return m, m.refresh
		}
		return m, nil

	case tickMsg:
		return m, tea.Batch(m.refresh, tick())

	case clientsMsg:
		m.err = nil
		m.clients = msg
		if m.cursor >= len(m.clients) {
			m.cursor = len(m.clients) - 1
		}
		if m.cursor < 0 {
			m.cursor = 0
		}
		return m, nil

	case errMsg:
		m.err = msg.err
		return m, nil
	}
	return m, nil
}
