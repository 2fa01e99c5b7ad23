package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/five82/matdeck/internal/actions"
	"github.com/five82/matdeck/internal/satapi"
)

// renderHeader renders the status bar: logo, connection, counts and activity.
func (m Model) renderHeader() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)
	sep := bg.Spaces(2)
	compact := m.width < LayoutCompactWidth

	parts := []string{bg.Render("matdeck", styles.Logo)}

	switch {
	case m.snapshot.IsOffline():
		parts = append(parts, bg.Render("● "+classifyLoadError(m.snapshot.LastError), styles.DangerText))
	case m.snapshot.Error != "":
		parts = append(parts, bg.Render("● ERROR", styles.DangerText))
	case m.snapshot.LastUpdated.IsZero():
		parts = append(parts, bg.Render("● CONNECTING", styles.WarningText.Bold(true)))
	default:
		parts = append(parts, bg.Render("● ONLINE", styles.SuccessText))
	}

	total := len(m.snapshot.Assets)
	params, thumbs := 0, 0
	for _, a := range m.snapshot.Assets {
		if a.HasParameters {
			params++
		}
		if a.HasThumbnail {
			thumbs++
		}
	}
	parts = append(parts, bg.Render("Assets:", styles.MutedText)+bg.Space()+bg.Render(fmt.Sprintf("%d", total), styles.Text))
	if n := len(m.snapshot.SelectedAssetIDs); n > 0 {
		parts = append(parts, bg.Render("Selected:", styles.MutedText)+bg.Space()+bg.Render(fmt.Sprintf("%d", n), styles.AccentText))
	}
	if !compact {
		parts = append(parts,
			bg.Render("Params:", styles.MutedText)+bg.Space()+bg.Render(fmt.Sprintf("%d/%d", params, total), styles.Text),
			bg.Render("Thumbs:", styles.MutedText)+bg.Space()+bg.Render(fmt.Sprintf("%d/%d", thumbs, total), styles.Text),
		)
	}

	if m.snapshot.IsLoading || m.busy > 0 {
		label := "working"
		if m.busy > 1 {
			label = fmt.Sprintf("working (%d)", m.busy)
		}
		parts = append(parts, bg.Render(m.spinner.View(), styles.AccentText)+bg.Space()+bg.Render(label, styles.MutedText))
	}

	if !m.snapshot.LastUpdated.IsZero() && !compact {
		parts = append(parts, bg.Render(m.snapshot.LastUpdated.Format("15:04:05"), styles.FaintText))
	}
	if m.snapshot.Error != "" && !compact {
		parts = append(parts, bg.Render(truncate(m.snapshot.Error, max(m.width/2, 20)), styles.WarningText))
	}

	return styles.Header.Width(m.width).MaxHeight(1).Render(strings.Join(parts, sep))
}

// classifyLoadError turns the last load error into a short banner.
func classifyLoadError(err error) string {
	if err == nil {
		return "OFFLINE"
	}
	if satapi.IsUnauthorized(err) {
		return "UNAUTHORIZED"
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "connection refused"):
		return "OFFLINE"
	case strings.Contains(msg, "no such host"):
		return "HOST NOT FOUND"
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "deadline exceeded"):
		return "TIMEOUT"
	case satapi.IsTransport(err):
		return "OFFLINE"
	default:
		return "ERROR"
	}
}

// renderCommandBar renders the key hints for the current view.
func (m Model) renderCommandBar() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)

	type cmd struct{ key, desc string }
	var commands []cmd

	switch {
	case m.search.active:
		commands = []cmd{{"enter", "Keep"}, {"esc", "Clear"}}
	case m.currentView == ViewLogs:
		followLabel := "Pause"
		if !m.logState.follow {
			followLabel = "Follow"
		}
		commands = []cmd{
			{"Space", followLabel},
			{"/", "Search"},
			{"n/N", "Next/Prev"},
			{"q", "Assets"},
			{"?", "More"},
		}
	default:
		commands = []cmd{
			{"f", m.filterLabel()},
			{"Space", "Select"},
			{"u", "Upload"},
			{"x", "Extract"},
			{"t", "Thumb"},
			{"d", "Delete"},
			{"/", "Search"},
			{"l", "Logs"},
			{"?", "More"},
		}
	}

	colon := bg.Sep(":")
	segments := make([]string, 0, len(commands)+2)
	for _, c := range commands {
		segments = append(segments, bg.Render(c.key, styles.AccentText)+colon+bg.Render(c.desc, styles.MutedText))
	}

	if m.search.active {
		segments = append(segments, m.search.input.View())
	} else if m.currentView == ViewAssets && m.search.query != "" {
		segments = append(segments, bg.Render("/"+truncate(m.search.query, 18), styles.AccentText))
	}
	if m.currentView == ViewLogs {
		if m.logState.searchActive {
			segments = append(segments, m.logState.searchInput.View())
		} else if m.logState.searchQuery != "" {
			segments = append(segments, bg.Render("/"+truncate(m.logState.searchQuery, 18), styles.AccentText))
		}
	}

	segments = append(segments, bg.Render("T", styles.AccentText)+colon+bg.Render(m.theme.Name, styles.FaintText))
	return styles.Header.Width(m.width).MaxHeight(1).Render(strings.Join(segments, bg.Spaces(2)))
}

// renderToastLine shows the newest unexpired notification.
func (m Model) renderToastLine() string {
	styles := m.theme.Styles().WithBackground(m.theme.Background)
	line := lipgloss.NewStyle().Background(lipgloss.Color(m.theme.Background)).Width(m.width).MaxHeight(1)
	if len(m.toasts) == 0 {
		return line.Render("")
	}
	t := m.toasts[len(m.toasts)-1]
	var style lipgloss.Style
	switch t.level {
	case actions.LevelSuccess:
		style = styles.SuccessText
	case actions.LevelWarning:
		style = styles.WarningText
	case actions.LevelError:
		style = styles.DangerText
	default:
		style = styles.InfoText
	}
	text := t.message
	if extra := len(m.toasts) - 1; extra > 0 {
		text = fmt.Sprintf("%s (+%d)", text, extra)
	}
	return line.Render(" " + style.Render(truncate(text, max(m.width-2, 10))))
}
