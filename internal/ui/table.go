package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/matdeck/internal/actions"
	"github.com/five82/matdeck/internal/asset"
)

// visibleAssets returns the snapshot filtered by mode and search, in cache
// order (newest first).
func (m Model) visibleAssets() []asset.Asset {
	query := strings.ToLower(strings.TrimSpace(m.search.query))
	out := make([]asset.Asset, 0, len(m.snapshot.Assets))
	for _, a := range m.snapshot.Assets {
		switch m.filterMode {
		case FilterNoParameters:
			if a.HasParameters {
				continue
			}
		case FilterNoThumbnail:
			if a.HasThumbnail {
				continue
			}
		case FilterSelected:
			if !m.snapshot.IsSelected(a.ID) {
				continue
			}
		}
		if query != "" && !matchesQuery(a, query) {
			continue
		}
		out = append(out, a)
	}
	return out
}

// matchesQuery reports whether a lower-cased query hits the name, id or a tag.
func matchesQuery(a asset.Asset, query string) bool {
	if strings.Contains(strings.ToLower(a.Name), query) || strings.Contains(strings.ToLower(a.ID), query) {
		return true
	}
	for _, tag := range a.Tags {
		if strings.Contains(strings.ToLower(tag), query) {
			return true
		}
	}
	return false
}

// focusedAsset returns the asset under the cursor.
func (m Model) focusedAsset() (asset.Asset, bool) {
	items := m.visibleAssets()
	if m.selectedRow < 0 || m.selectedRow >= len(items) {
		return asset.Asset{}, false
	}
	return items[m.selectedRow], true
}

func (m Model) focusedID() string {
	if a, ok := m.focusedAsset(); ok {
		return a.ID
	}
	return ""
}

// targetIDs is what an action applies to: the multi-select set when it is
// non-empty, otherwise the focused asset.
func (m Model) targetIDs() []string {
	if len(m.snapshot.SelectedAssetIDs) > 0 {
		return append([]string(nil), m.snapshot.SelectedAssetIDs...)
	}
	if id := m.focusedID(); id != "" {
		return []string{id}
	}
	return nil
}

// restoreSelection keeps the cursor on id when it is still visible.
func (m *Model) restoreSelection(id string) {
	if id != "" {
		for i, a := range m.visibleAssets() {
			if a.ID == id {
				m.selectedRow = i
				return
			}
		}
	}
	m.clampSelection()
}

func (m *Model) clampSelection() {
	n := len(m.visibleAssets())
	if m.selectedRow >= n {
		m.selectedRow = n - 1
	}
	if m.selectedRow < 0 {
		m.selectedRow = 0
	}
}

// moveCursor moves the row cursor and mirrors it into the cache cursor.
func (m *Model) moveCursor(row int) {
	n := len(m.visibleAssets())
	if n == 0 {
		m.selectedRow = 0
		return
	}
	m.selectedRow = min(max(row, 0), n-1)
	if m.store != nil {
		m.store.SelectAsset(m.focusedID())
	}
	m.updateDetailViewport()
}

// cycleFilter cycles through the table filter modes.
func (m *Model) cycleFilter() {
	focused := m.focusedID()
	switch m.filterMode {
	case FilterAll:
		m.filterMode = FilterNoParameters
	case FilterNoParameters:
		m.filterMode = FilterNoThumbnail
	case FilterNoThumbnail:
		m.filterMode = FilterSelected
	default:
		m.filterMode = FilterAll
	}
	m.restoreSelection(focused)
	m.updateDetailViewport()
}

// filterLabel returns the display label for the current filter mode.
func (m Model) filterLabel() string {
	switch m.filterMode {
	case FilterNoParameters:
		return "No params"
	case FilterNoThumbnail:
		return "No thumb"
	case FilterSelected:
		return "Selected"
	default:
		return "All"
	}
}

// handleAssetKey processes keyboard input for the asset view.
func (m Model) handleAssetKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.focusedPane == 1 {
		if model, cmd, ok := m.handleDetailKey(msg); ok {
			return model, cmd
		}
	}

	page := max(m.contentHeight()-3, 1)
	switch {
	case key.Matches(msg, m.keys.Tab):
		m.focusedPane = 1 - m.focusedPane
	case key.Matches(msg, m.keys.Escape):
		if m.search.query != "" {
			m.clearSearch()
		} else {
			m.focusedPane = 0
		}
	case key.Matches(msg, m.keys.Down):
		m.moveCursor(m.selectedRow + 1)
	case key.Matches(msg, m.keys.Up):
		m.moveCursor(m.selectedRow - 1)
	case key.Matches(msg, m.keys.Top):
		m.moveCursor(0)
	case key.Matches(msg, m.keys.Bottom):
		m.moveCursor(len(m.visibleAssets()) - 1)
	case key.Matches(msg, m.keys.PageDown):
		m.moveCursor(m.selectedRow + page)
	case key.Matches(msg, m.keys.PageUp):
		m.moveCursor(m.selectedRow - page)
	case key.Matches(msg, m.keys.HalfPageDown):
		m.moveCursor(m.selectedRow + page/2)
	case key.Matches(msg, m.keys.HalfPageUp):
		m.moveCursor(m.selectedRow - page/2)

	case key.Matches(msg, m.keys.ToggleSelect):
		if id := m.focusedID(); id != "" && m.store != nil {
			m.store.ToggleSelectAsset(id)
			m.refreshSnapshot()
		}
	case key.Matches(msg, m.keys.SelectAll):
		if m.store != nil {
			m.store.SelectAllAssets()
			m.refreshSnapshot()
		}
	case key.Matches(msg, m.keys.ClearSelection):
		if m.store != nil {
			m.store.ClearSelection()
			m.refreshSnapshot()
		}
	case key.Matches(msg, m.keys.CycleFilter):
		m.cycleFilter()
	case key.Matches(msg, m.keys.Search):
		m.openSearch()

	case key.Matches(msg, m.keys.Upload):
		m.modal = newUploadModal(m.actions)
	case key.Matches(msg, m.keys.Extract):
		return m, m.extractTargets()
	case key.Matches(msg, m.keys.Thumbnail):
		return m, m.thumbnailTargets()
	case key.Matches(msg, m.keys.Delete):
		m.confirmDelete()
	case key.Matches(msg, m.keys.CopyID):
		return m, m.copyFocusedID()
	}
	return m, nil
}

func (m *Model) extractTargets() tea.Cmd {
	ids := m.targetIDs()
	if len(ids) == 0 || m.actions == nil {
		return nil
	}
	svc := m.actions
	if len(m.snapshot.SelectedAssetIDs) == 0 {
		id := ids[0]
		return m.startAction(actionRequest{label: "extract", run: func(ctx context.Context) {
			_ = svc.ExtractParameters(ctx, id)
		}})
	}
	return m.startAction(actionRequest{label: "batch extract", run: func(ctx context.Context) {
		svc.BatchExtract(ctx, ids)
	}})
}

func (m *Model) thumbnailTargets() tea.Cmd {
	ids := m.targetIDs()
	if len(ids) == 0 || m.actions == nil {
		return nil
	}
	svc, res := m.actions, m.resolution
	if len(m.snapshot.SelectedAssetIDs) == 0 {
		id := ids[0]
		return m.startAction(actionRequest{label: "thumbnail", run: func(ctx context.Context) {
			_ = svc.GenerateThumbnail(ctx, id, res)
		}})
	}
	return m.startAction(actionRequest{label: "batch thumbnail", run: func(ctx context.Context) {
		svc.BatchGenerateThumbnails(ctx, ids, res)
	}})
}

// confirmDelete opens the confirmation dialog for the current targets.
func (m *Model) confirmDelete() {
	ids := m.targetIDs()
	if len(ids) == 0 || m.actions == nil {
		return
	}
	svc := m.actions
	var (
		body string
		req  actionRequest
	)
	if len(m.snapshot.SelectedAssetIDs) == 0 {
		id := ids[0]
		name := id
		if a, ok := m.snapshot.Find(id); ok {
			name = a.Name
		}
		body = fmt.Sprintf("Delete %q? This cannot be undone.", name)
		req = actionRequest{label: "delete", run: func(ctx context.Context) {
			_ = svc.Delete(ctx, id)
		}}
	} else {
		body = fmt.Sprintf("Delete %s? This cannot be undone.", plural(len(ids), "selected asset"))
		req = actionRequest{label: "batch delete", run: func(ctx context.Context) {
			svc.BatchDelete(ctx, ids)
		}}
	}
	m.modal = newConfirmModal("Delete assets", body, req)
}

func (m *Model) copyFocusedID() tea.Cmd {
	id := m.focusedID()
	if id == "" {
		return nil
	}
	copyFn := m.clipboard
	return func() tea.Msg {
		if err := copyFn(id); err != nil {
			return toastMsg{Level: actions.LevelWarning, Message: "Clipboard unavailable: " + err.Error(), At: time.Now()}
		}
		return toastMsg{Level: actions.LevelInfo, Message: "Copied " + id, At: time.Now()}
	}
}

// renderAssets renders the split layout: table on the left, detail on the
// right.
func (m Model) renderAssets() string {
	styles := m.theme.Styles()
	height := m.contentHeight()

	if len(m.snapshot.Assets) == 0 {
		msg := "No assets yet. Press u to upload."
		if m.snapshot.IsLoading {
			msg = "Loading assets..."
		}
		return lipgloss.Place(m.width, height, lipgloss.Center, lipgloss.Center, styles.MutedText.Render(msg))
	}

	tableWidth, detailWidth := m.paneWidths()

	tableFocused := m.focusedPane == 0
	tableBg := m.theme.SurfaceAlt
	if tableFocused {
		tableBg = m.theme.FocusBg
	}
	table := m.renderAssetTable(tableWidth-2, height-2, tableBg)
	tablePane := m.renderTitledBox(m.tableTitle(), table, tableWidth, height, tableFocused)

	detailFocused := m.focusedPane == 1
	detailPane := m.renderTitledBox("Details", m.detailViewport.View(), detailWidth, height, detailFocused)

	return lipgloss.JoinHorizontal(lipgloss.Top, tablePane, detailPane)
}

func (m Model) paneWidths() (table, detail int) {
	if m.width >= LayoutExtraWideWidth {
		table = m.width * 35 / 100
	} else {
		table = m.width * 45 / 100
	}
	return table, m.width - table
}

// renderAssetTable renders rows, scrolled so the cursor stays visible.
func (m Model) renderAssetTable(width, height int, bgColor string) string {
	items := m.visibleAssets()
	if len(items) == 0 {
		return NewBgStyle(bgColor).Render("No matching assets", m.theme.Styles().MutedText)
	}
	start := 0
	if height > 0 && m.selectedRow >= height {
		start = m.selectedRow - height + 1
	}
	end := len(items)
	if height > 0 {
		end = min(start+height, len(items))
	}

	lines := make([]string, 0, end-start)
	for i := start; i < end; i++ {
		rowBg := bgColor
		cursor := i == m.selectedRow
		if cursor {
			rowBg = m.theme.SelectionBg
		}
		content := m.formatAssetRow(items[i], width, rowBg, cursor)
		lines = append(lines, lipgloss.NewStyle().Background(lipgloss.Color(rowBg)).Width(width).Render(content))
	}
	return strings.Join(lines, "\n")
}

// formatAssetRow formats "[x] Name · SBSAR P T B".
func (m Model) formatAssetRow(a asset.Asset, width int, bgColor string, cursor bool) string {
	bg := NewBgStyle(bgColor)
	styles := m.theme.Styles()

	check := "[ ]"
	if m.snapshot.IsSelected(a.ID) {
		check = "[x]"
	}
	kind := a.FileType.Label()
	flags := []struct {
		label string
		on    bool
		badge string
	}{
		{"P", a.HasParameters, badgeParameters},
		{"T", a.HasThumbnail, badgeThumbnail},
		{"B", a.HasBakedTextures, badgeBaked},
	}

	nameWidth := max(width-len(check)-len(kind)-len(" · ")-6-3, 8)

	var checkStyle, nameStyle, sepStyle, kindStyle lipgloss.Style
	if cursor {
		sel := lipgloss.NewStyle().Foreground(lipgloss.Color(m.theme.SelectionText))
		checkStyle, nameStyle, sepStyle, kindStyle = sel, sel.Bold(true), sel, sel
	} else {
		checkStyle = styles.AccentText
		nameStyle = styles.Text
		sepStyle = styles.FaintText
		kindStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(styles.BadgeColor(string(a.FileType))))
	}

	parts := []string{
		bg.Render(check, checkStyle),
		bg.Render(truncate(a.Name, nameWidth), nameStyle),
	}
	row := bg.Join(parts, " ") + bg.Render(" · ", sepStyle) + bg.Render(kind, kindStyle)

	for _, f := range flags {
		style := styles.FaintText
		label := strings.ToLower(f.label)
		if f.on {
			style = lipgloss.NewStyle().Foreground(lipgloss.Color(styles.BadgeColor(f.badge))).Bold(true)
			label = f.label
		}
		row += bg.Space() + bg.Render(label, style)
	}
	return row
}

// tableTitle returns the table pane title with filter and search indicators.
func (m Model) tableTitle() string {
	total := len(m.snapshot.Assets)
	visible := len(m.visibleAssets())
	title := fmt.Sprintf("Assets (%d)", total)
	if m.filterMode != FilterAll || m.search.query != "" {
		title = fmt.Sprintf("Assets (%d/%d)", visible, total)
	}
	if m.filterMode != FilterAll {
		title += " " + m.filterLabel()
	}
	if n := len(m.snapshot.SelectedAssetIDs); n > 0 {
		title += fmt.Sprintf(" [%d sel]", n)
	}
	return title
}
