package ui

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// searchState holds the asset table search.
type searchState struct {
	active bool
	query  string
	input  textinput.Model
}

func newSearchState() searchState {
	ti := textinput.New()
	ti.Placeholder = "name or tag"
	ti.Prompt = "/"
	ti.CharLimit = 100
	return searchState{input: ti}
}

func (m *Model) openSearch() {
	m.search.active = true
	m.search.input.SetValue(m.search.query)
	m.search.input.CursorEnd()
	m.search.input.Focus()
}

func (m *Model) clearSearch() {
	focused := m.focusedID()
	m.search.query = ""
	m.search.input.SetValue("")
	m.restoreSelection(focused)
	m.updateDetailViewport()
}

// handleSearchInput filters the table as the user types. Enter keeps the
// query, esc drops it.
func (m Model) handleSearchInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Confirm):
		m.search.active = false
		m.search.input.Blur()
		return m, nil

	case key.Matches(msg, m.keys.Escape):
		m.search.active = false
		m.search.input.Blur()
		m.clearSearch()
		return m, nil
	}

	var cmd tea.Cmd
	m.search.input, cmd = m.search.input.Update(msg)
	if m.search.input.Value() != m.search.query {
		focused := m.focusedID()
		m.search.query = m.search.input.Value()
		m.restoreSelection(focused)
		m.updateDetailViewport()
	}
	return m, cmd
}
