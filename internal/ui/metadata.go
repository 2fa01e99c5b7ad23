package ui

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// treeLine is one row of a rendered metadata tree.
type treeLine struct {
	depth int
	text  string
	leaf  bool
}

// renderTree flattens an arbitrary JSON-like value into indented lines. Map
// keys are sorted; slices of scalars stay on one line.
func renderTree(v any, depth int) []treeLine {
	var out []treeLine
	switch typed := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(typed))
		for k := range typed {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			out = append(out, treeEntry(k, typed[k], depth)...)
		}
	case []any:
		for i, item := range typed {
			out = append(out, treeEntry("["+strconv.Itoa(i)+"]", item, depth)...)
		}
	default:
		out = append(out, treeLine{depth: depth, text: indent(depth) + formatScalar(v), leaf: true})
	}
	return out
}

func treeEntry(label string, v any, depth int) []treeLine {
	prefix := indent(depth) + label
	switch typed := v.(type) {
	case map[string]any:
		if len(typed) == 0 {
			return []treeLine{{depth: depth, text: prefix + ": {}", leaf: true}}
		}
		return append([]treeLine{{depth: depth, text: prefix + ":"}}, renderTree(typed, depth+1)...)
	case []any:
		if len(typed) == 0 {
			return []treeLine{{depth: depth, text: prefix + ": []", leaf: true}}
		}
		if allScalars(typed) {
			parts := make([]string, len(typed))
			for i, item := range typed {
				parts[i] = formatScalar(item)
			}
			return []treeLine{{depth: depth, text: prefix + ": " + strings.Join(parts, ", "), leaf: true}}
		}
		return append([]treeLine{{depth: depth, text: prefix + ":"}}, renderTree(typed, depth+1)...)
	default:
		return []treeLine{{depth: depth, text: prefix + ": " + formatScalar(v), leaf: true}}
	}
}

func allScalars(items []any) bool {
	for _, item := range items {
		switch item.(type) {
		case map[string]any, []any:
			return false
		}
	}
	return true
}

func formatScalar(v any) string {
	switch typed := v.(type) {
	case nil:
		return "null"
	case string:
		return typed
	case float64:
		return strconv.FormatFloat(typed, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(typed)
	default:
		return fmt.Sprint(typed)
	}
}

func indent(depth int) string {
	return strings.Repeat("  ", depth)
}

func treeStyle(line treeLine, styles Styles) lipgloss.Style {
	if line.leaf {
		return styles.Text
	}
	return styles.MutedText
}
