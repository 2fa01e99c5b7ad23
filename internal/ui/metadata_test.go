package ui

import (
	"reflect"
	"testing"
)

func treeText(lines []treeLine) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = l.text
	}
	return out
}

func TestRenderTree(t *testing.T) {
	meta := map[string]any{
		"parameters": map[string]any{
			"count":  float64(12),
			"inputs": []any{"roughness", "tint"},
		},
		"author":   "studio",
		"outputs":  []any{map[string]any{"name": "basecolor"}},
		"extras":   map[string]any{},
		"revision": nil,
	}
	want := []string{
		"author: studio",
		"extras: {}",
		"outputs:",
		"  [0]:",
		"    name: basecolor",
		"parameters:",
		"  count: 12",
		"  inputs: roughness, tint",
		"revision: null",
	}
	if got := treeText(renderTree(meta, 0)); !reflect.DeepEqual(got, want) {
		t.Fatalf("renderTree =\n%q\nwant\n%q", got, want)
	}
}

func TestRenderTree_LeafFlags(t *testing.T) {
	lines := renderTree(map[string]any{"a": map[string]any{"b": true}}, 0)
	if len(lines) != 2 || lines[0].leaf || !lines[1].leaf {
		t.Fatalf("lines = %+v", lines)
	}
	if lines[1].depth != 1 {
		t.Fatalf("depth = %d, want 1", lines[1].depth)
	}
}

func TestFormatScalar(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{float64(0.5), "0.5"},
		{float64(2048), "2048"},
		{true, "true"},
		{nil, "null"},
		{"x", "x"},
		{7, "7"},
	}
	for _, tt := range tests {
		if got := formatScalar(tt.in); got != tt.want {
			t.Errorf("formatScalar(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
