package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/matdeck/internal/asset"
)

// updateDetailViewport re-renders the detail pane for the focused asset.
func (m *Model) updateDetailViewport() {
	if !m.ready {
		return
	}
	_, detailWidth := m.paneWidths()
	width := max(detailWidth-4, 10)
	height := max(m.contentHeight()-2, 1)
	if m.detailViewport.Width == 0 {
		m.detailViewport = viewport.New(width, height)
	}
	m.detailViewport.Width = width
	m.detailViewport.Height = height

	bgColor := m.theme.SurfaceAlt
	if m.focusedPane == 1 {
		bgColor = m.theme.FocusBg
	}
	m.detailViewport.Style = lipgloss.NewStyle().Background(lipgloss.Color(bgColor))

	a, ok := m.focusedAsset()
	if !ok {
		m.detailFor = ""
		m.detailViewport.SetContent(NewBgStyle(bgColor).Render("Select an asset", m.theme.Styles().MutedText))
		return
	}
	m.detailViewport.SetContent(m.renderDetailContent(a, width, bgColor))
	if a.ID != m.detailFor {
		m.detailViewport.GotoTop()
		m.detailFor = a.ID
	}
}

// handleDetailKey scrolls the detail pane when it has focus. ok is false for
// keys the pane does not use.
func (m Model) handleDetailKey(msg tea.KeyMsg) (tea.Model, tea.Cmd, bool) {
	switch {
	case key.Matches(msg, m.keys.Down):
		m.detailViewport.ScrollDown(1)
	case key.Matches(msg, m.keys.Up):
		m.detailViewport.ScrollUp(1)
	case key.Matches(msg, m.keys.Top):
		m.detailViewport.GotoTop()
	case key.Matches(msg, m.keys.Bottom):
		m.detailViewport.GotoBottom()
	case key.Matches(msg, m.keys.HalfPageDown):
		m.detailViewport.HalfPageDown()
	case key.Matches(msg, m.keys.HalfPageUp):
		m.detailViewport.HalfPageUp()
	case key.Matches(msg, m.keys.PageDown):
		m.detailViewport.PageDown()
	case key.Matches(msg, m.keys.PageUp):
		m.detailViewport.PageUp()
	default:
		return m, nil, false
	}
	return m, nil, true
}

// renderDetailContent renders one asset: summary, progress, textures and the
// metadata tree.
func (m Model) renderDetailContent(a asset.Asset, width int, bgColor string) string {
	styles := m.theme.Styles()
	bg := NewBgStyle(bgColor)
	labelWidth := 12

	var b strings.Builder
	field := func(label, value string, style lipgloss.Style) {
		if strings.TrimSpace(value) == "" {
			return
		}
		b.WriteString(bg.Render(padRight(label, labelWidth), styles.MutedText))
		b.WriteString(bg.Render(truncateMiddle(value, max(width-labelWidth, 8)), style))
		b.WriteString("\n")
	}

	b.WriteString(bg.Render(truncate(a.Name, width-10), styles.Text.Bold(true)))
	b.WriteString(bg.Space())
	b.WriteString(styles.BadgeStyle(string(a.FileType)).Render(a.FileType.Label()))
	b.WriteString("\n")
	if a.Description != "" {
		b.WriteString(bg.Render(truncate(a.Description, width), styles.MutedText))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	field("ID", a.ID, styles.AccentText)
	field("Source", a.SourceFile, styles.Text)
	field("Source URL", a.SourceFileURL, styles.FaintText)
	thumb := a.ThumbnailURL
	if !a.HasThumbnail && thumb != "" {
		thumb += " (placeholder)"
	}
	field("Thumbnail", thumb, styles.FaintText)
	if len(a.Tags) > 0 {
		field("Tags", strings.Join(a.Tags, ", "), styles.InfoText)
	}
	field("Created", formatDetailTime(a.CreatedAt), styles.Text)
	field("Updated", formatDetailTime(a.UpdatedAt), styles.Text)

	b.WriteString("\n")
	b.WriteString(bg.Render("Progress", styles.AccentText.Bold(true)))
	b.WriteString("\n")
	for _, step := range []struct {
		label string
		done  bool
		badge string
	}{
		{"Parameters extracted", a.HasParameters, badgeParameters},
		{"Thumbnail generated", a.HasThumbnail, badgeThumbnail},
		{"Textures baked", a.HasBakedTextures, badgeBaked},
	} {
		mark, style := "○", styles.FaintText
		if step.done {
			mark = "●"
			style = lipgloss.NewStyle().Foreground(lipgloss.Color(styles.BadgeColor(step.badge)))
		}
		b.WriteString(bg.Render("  "+mark+" "+step.label, style))
		b.WriteString("\n")
	}

	if len(a.Textures) > 0 {
		b.WriteString("\n")
		b.WriteString(bg.Render(fmt.Sprintf("Textures (%d)", len(a.Textures)), styles.AccentText.Bold(true)))
		b.WriteString("\n")
		for _, tex := range a.Textures {
			b.WriteString(bg.Render("  "+formatTexture(tex), styles.Text))
			b.WriteString("\n")
		}
	}

	if len(a.Metadata) > 0 {
		b.WriteString("\n")
		b.WriteString(bg.Render("Metadata", styles.AccentText.Bold(true)))
		b.WriteString("\n")
		for _, line := range renderTree(a.Metadata, 1) {
			b.WriteString(bg.Render(truncate(line.text, width), treeStyle(line, styles)))
			b.WriteString("\n")
		}
	}

	return strings.TrimRight(b.String(), "\n")
}

// formatTexture renders "baseColor  1024x1024 png  wood_basecolor.png".
func formatTexture(t asset.Texture) string {
	parts := []string{padRight(titleCase(t.Channel), 14)}
	if t.Resolution.Width > 0 && t.Resolution.Height > 0 {
		parts = append(parts, fmt.Sprintf("%dx%d", t.Resolution.Width, t.Resolution.Height))
	}
	if t.Format != "" {
		parts = append(parts, strings.ToLower(t.Format))
	}
	if t.Filename != "" {
		parts = append(parts, t.Filename)
	}
	return strings.Join(parts, "  ")
}

func formatDetailTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.In(time.Local).Format("2006-01-02 15:04:05")
}
