package ui

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/matdeck/internal/actions"
)

// uploadModal collects file paths and tags for an upload.
type uploadModal struct {
	svc    Actions
	inputs [2]textinput.Model // paths, tags
	focus  int
	err    string
}

func newUploadModal(svc Actions) *uploadModal {
	paths := textinput.New()
	paths.Placeholder = "~/materials/wood.sbsar, ~/materials/metal.sbs"
	paths.Prompt = "Files: "
	paths.CharLimit = 2048
	paths.Focus()

	tags := textinput.New()
	tags.Placeholder = "wood, pbr"
	tags.Prompt = "Tags:  "
	tags.CharLimit = 256

	return &uploadModal{svc: svc, inputs: [2]textinput.Model{paths, tags}}
}

func (u *uploadModal) Update(msg tea.Msg, keys keyMap) (Modal, tea.Cmd, bool) {
	kmsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return u, nil, false
	}
	switch {
	case key.Matches(kmsg, keys.Escape):
		return u, nil, true

	case key.Matches(kmsg, keys.Next):
		u.inputs[u.focus].Blur()
		u.focus = (u.focus + 1) % len(u.inputs)
		u.inputs[u.focus].Focus()
		return u, nil, false

	case key.Matches(kmsg, keys.Confirm):
		paths := expandPaths(splitList(u.inputs[0].Value()))
		if len(paths) == 0 {
			u.err = "Enter at least one .sbs or .sbsar file"
			return u, nil, false
		}
		if u.svc == nil {
			return u, nil, true
		}
		svc := u.svc
		opts := actions.UploadOptions{Tags: splitList(u.inputs[1].Value())}
		req := actionRequest{label: "upload", run: func(ctx context.Context) {
			svc.Upload(ctx, paths, opts)
		}}
		return u, requestCmd(req), true
	}

	var cmd tea.Cmd
	u.inputs[u.focus], cmd = u.inputs[u.focus].Update(kmsg)
	u.err = ""
	return u, cmd, false
}

func (u *uploadModal) View(theme Theme, width, height int) string {
	styles := theme.Styles()
	var b strings.Builder
	b.WriteString(styles.Text.Bold(true).Render("Upload materials"))
	b.WriteString("\n")
	b.WriteString(styles.FaintText.Render("Comma separated. Files are checked before anything is sent."))
	b.WriteString("\n\n")
	for _, in := range u.inputs {
		b.WriteString(in.View())
		b.WriteString("\n")
	}
	if u.err != "" {
		b.WriteString("\n")
		b.WriteString(styles.DangerText.Render(u.err))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(styles.AccentText.Render("enter") + styles.MutedText.Render(" upload   ") +
		styles.AccentText.Render("tab") + styles.MutedText.Render(" next field   ") +
		styles.AccentText.Render("esc") + styles.MutedText.Render(" cancel"))
	return overlayFrame(theme, width, height, b.String(), 70)
}

// expandPaths resolves a leading ~ against the home directory.
func expandPaths(paths []string) []string {
	home, _ := os.UserHomeDir()
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if home != "" && (p == "~" || strings.HasPrefix(p, "~/")) {
			p = filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
		out = append(out, p)
	}
	return out
}

// overlayFrame draws a rounded frame centered on the screen.
func overlayFrame(theme Theme, width, height int, content string, frameWidth int) string {
	frameWidth = min(frameWidth, max(width-4, 20))
	frame := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(theme.Accent)).
		Padding(1, 2).
		Width(frameWidth).
		Render(content)
	return placeCenter(theme, width, height, frame)
}
