package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v3"

	"github.com/five82/matdeck/internal/actions"
	"github.com/five82/matdeck/internal/asset"
)

// Terminal colors so output follows the user's palette.
var (
	styleSuccess = lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true)
	styleError   = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
	styleWarning = lipgloss.NewStyle().Foreground(lipgloss.Color("3")).Bold(true)
	styleInfo    = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	styleMuted   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	styleHeader  = lipgloss.NewStyle().Foreground(lipgloss.Color("5")).Bold(true)
	styleBold    = lipgloss.NewStyle().Bold(true)
)

func formatSuccess(msg string) string { return styleSuccess.Render("✔ " + msg) }
func formatError(msg string) string   { return styleError.Render("✘ " + msg) }
func formatWarning(msg string) string { return styleWarning.Render("⚠ " + msg) }
func formatInfo(msg string) string    { return styleInfo.Render("ℹ " + msg) }

func formatNotification(n actions.Notification) string {
	switch n.Level {
	case actions.LevelSuccess:
		return formatSuccess(n.Message)
	case actions.LevelWarning:
		return formatWarning(n.Message)
	case actions.LevelError:
		return formatError(n.Message)
	default:
		return formatInfo(n.Message)
	}
}

// Output formats accepted by --output.
const (
	outputTable = "table"
	outputJSON  = "json"
	outputYAML  = "yaml"
)

func validOutput(format string) error {
	switch format {
	case outputTable, outputJSON, outputYAML:
		return nil
	}
	return fmt.Errorf("unknown output format %q (want table, json or yaml)", format)
}

// assetView is the machine-readable shape of an asset.
type assetView struct {
	ID               string         `json:"id" yaml:"id"`
	Name             string         `json:"name" yaml:"name"`
	Description      string         `json:"description,omitempty" yaml:"description,omitempty"`
	FileType         string         `json:"fileType" yaml:"fileType"`
	SourceFile       string         `json:"sourceFile,omitempty" yaml:"sourceFile,omitempty"`
	ThumbnailURL     string         `json:"thumbnailUrl,omitempty" yaml:"thumbnailUrl,omitempty"`
	Tags             []string       `json:"tags" yaml:"tags"`
	HasParameters    bool           `json:"hasParameters" yaml:"hasParameters"`
	HasThumbnail     bool           `json:"hasThumbnail" yaml:"hasThumbnail"`
	HasBakedTextures bool           `json:"hasBakedTextures" yaml:"hasBakedTextures"`
	Textures         int            `json:"textures" yaml:"textures"`
	CreatedAt        string         `json:"createdAt,omitempty" yaml:"createdAt,omitempty"`
	UpdatedAt        string         `json:"updatedAt,omitempty" yaml:"updatedAt,omitempty"`
	Metadata         map[string]any `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

func newAssetView(a asset.Asset, withMetadata bool) assetView {
	v := assetView{
		ID:               a.ID,
		Name:             a.Name,
		Description:      a.Description,
		FileType:         string(a.FileType),
		SourceFile:       a.SourceFile,
		ThumbnailURL:     a.ThumbnailURL,
		Tags:             a.Tags,
		HasParameters:    a.HasParameters,
		HasThumbnail:     a.HasThumbnail,
		HasBakedTextures: a.HasBakedTextures,
		Textures:         len(a.Textures),
		CreatedAt:        formatTime(a.CreatedAt),
		UpdatedAt:        formatTime(a.UpdatedAt),
	}
	if v.Tags == nil {
		v.Tags = []string{}
	}
	if withMetadata {
		v.Metadata = a.Metadata
	}
	return v
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// writeStructured encodes v as JSON or YAML.
func writeStructured(w io.Writer, format string, v any) error {
	switch format {
	case outputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case outputYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	}
	return fmt.Errorf("unsupported format %q", format)
}

// writeAssets prints a list in the requested format.
func writeAssets(w io.Writer, format string, items []asset.Asset) error {
	if format != outputTable {
		views := make([]assetView, 0, len(items))
		for _, a := range items {
			views = append(views, newAssetView(a, false))
		}
		return writeStructured(w, format, views)
	}

	if len(items) == 0 {
		_, err := fmt.Fprintln(w, formatWarning("No assets found"))
		return err
	}
	rows := make([][]string, 0, len(items))
	for _, a := range items {
		rows = append(rows, []string{
			a.ID,
			a.Name,
			a.FileType.Label(),
			flags(a),
			strings.Join(a.Tags, ", "),
			a.CreatedAt.Local().Format("2006-01-02"),
		})
	}
	if _, err := fmt.Fprint(w, renderTable([]string{"ID", "NAME", "TYPE", "P T B", "TAGS", "CREATED"}, rows)); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w, styleMuted.Render(fmt.Sprintf("\n%d asset(s)", len(items))))
	return err
}

// flags renders "P T B" with a dash for each missing stage.
func flags(a asset.Asset) string {
	mark := func(on bool, label string) string {
		if on {
			return label
		}
		return "-"
	}
	return mark(a.HasParameters, "P") + " " + mark(a.HasThumbnail, "T") + " " + mark(a.HasBakedTextures, "B")
}

// renderTable lays out columns sized to the widest cell.
func renderTable(headers []string, rows [][]string) string {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) {
				widths[i] = max(widths[i], lipgloss.Width(cell))
			}
		}
	}

	pad := func(s string, w int) string {
		return s + strings.Repeat(" ", max(w-lipgloss.Width(s), 0))
	}

	var b strings.Builder
	head := make([]string, len(headers))
	sep := make([]string, len(headers))
	for i, h := range headers {
		head[i] = pad(h, widths[i])
		sep[i] = strings.Repeat("─", widths[i])
	}
	b.WriteString(styleHeader.Render(strings.TrimRight(strings.Join(head, "  "), " ")))
	b.WriteString("\n")
	b.WriteString(styleMuted.Render(strings.Join(sep, "  ")))
	b.WriteString("\n")
	for _, row := range rows {
		cells := make([]string, len(headers))
		for i := range headers {
			if i < len(row) {
				cells[i] = pad(row[i], widths[i])
			} else {
				cells[i] = pad("", widths[i])
			}
		}
		b.WriteString(strings.TrimRight(strings.Join(cells, "  "), " "))
		b.WriteString("\n")
	}
	return b.String()
}

// writeAssetDetail prints one asset. Table mode shows a field list followed
// by the metadata as YAML.
func writeAssetDetail(w io.Writer, format string, a asset.Asset) error {
	if format != outputTable {
		return writeStructured(w, format, newAssetView(a, true))
	}

	fields := [][2]string{
		{"ID", a.ID},
		{"Name", a.Name},
		{"Type", a.FileType.Label()},
		{"Source", a.SourceFile},
		{"Description", a.Description},
		{"Tags", strings.Join(a.Tags, ", ")},
		{"Stages", flags(a)},
		{"Thumbnail", a.ThumbnailURL},
		{"Created", formatTime(a.CreatedAt)},
		{"Updated", formatTime(a.UpdatedAt)},
	}
	for _, f := range fields {
		if f[1] == "" {
			continue
		}
		if _, err := fmt.Fprintf(w, "%s %s\n", styleBold.Render(fmt.Sprintf("%-12s", f[0])), f[1]); err != nil {
			return err
		}
	}

	if len(a.Textures) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, styleHeader.Render("Textures"))
		textures := append([]asset.Texture(nil), a.Textures...)
		sort.SliceStable(textures, func(i, j int) bool { return textures[i].Channel < textures[j].Channel })
		for _, t := range textures {
			fmt.Fprintf(w, "  %-14s %dx%d  %s\n", t.Channel, t.Resolution.Width, t.Resolution.Height, t.File)
		}
	}

	if len(a.Metadata) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, styleHeader.Render("Metadata"))
		out, err := yaml.Marshal(a.Metadata)
		if err != nil {
			return fmt.Errorf("encode metadata: %w", err)
		}
		for _, line := range strings.Split(strings.TrimRight(string(out), "\n"), "\n") {
			fmt.Fprintln(w, "  "+line)
		}
	}
	return nil
}
