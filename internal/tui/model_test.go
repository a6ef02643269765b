package tui

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/cwel/gsmd/internal/ctlclient"
	"github.com/cwel/gsmd/internal/ctlproto"
)

func TestModelNavigation(t *testing.T) {
	m := New(ctlclient.New("/nonexistent.sock"))
	m.width, m.height = 80, 24
	m.clients = []ctlproto.ClientSummary{
		{ObjectPath: "/a", StartupID: "1"},
		{ObjectPath: "/b", StartupID: "2"},
		{ObjectPath: "/c", StartupID: "3"},
	}

	if m.cursor != 0 {
		t.Fatalf("cursor = %d, want 0", m.cursor)
	}

	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("j")})
	m = updated.(Model)
	if m.cursor != 1 {
		t.Errorf("cursor after j = %d, want 1", m.cursor)
	}

	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("j")})
	m = updated.(Model)
	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("j")})
	m = updated.(Model)
	if m.cursor != 2 {
		t.Errorf("cursor at boundary = %d, want 2", m.cursor)
	}

	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("k")})
	m = updated.(Model)
	if m.cursor != 1 {
		t.Errorf("cursor after k = %d, want 1", m.cursor)
	}
}

func TestModelClientsMsgClampsCursor(t *testing.T) {
	m := New(ctlclient.New("/nonexistent.sock"))
	m.cursor = 2
	m.clients = []ctlproto.ClientSummary{{ObjectPath: "/a"}, {ObjectPath: "/b"}, {ObjectPath: "/c"}}

	updated, _ := m.Update(clientsMsg{{ObjectPath: "/a"}})
	m = updated.(Model)
	if m.cursor != 0 {
		t.Errorf("cursor after shrink = %d, want 0", m.cursor)
	}
}

func TestModelQuit(t *testing.T) {
	m := New(ctlclient.New("/nonexistent.sock"))
	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	m = updated.(Model)
	if !m.quitting {
		t.Error("quitting = false, want true")
	}
	if cmd == nil {
		t.Error("expected tea.Quit command")
	}
}
