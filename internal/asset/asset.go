package asset

import (
	"path/filepath"
	"strings"
	"time"
)

// FileType is the closed set of Substance formats the service accepts.
type FileType string

const (
	FileTypeSBS   FileType = "sbs"
	FileTypeSBSAR FileType = "sbsar"
)

// Label returns the upper-case extension used in badges and placeholders.
func (f FileType) Label() string {
	return strings.ToUpper(string(f))
}

// FileTypeFromPath maps a file extension onto a FileType.
func FileTypeFromPath(path string) (FileType, bool) {
	switch strings.ToLower(strings.TrimPrefix(filepath.Ext(path), ".")) {
	case string(FileTypeSBS):
		return FileTypeSBS, true
	case string(FileTypeSBSAR):
		return FileTypeSBSAR, true
	default:
		return "", false
	}
}

// Resolution is a texture's pixel size.
type Resolution struct {
	Width  int
	Height int
}

// Texture is one baked output channel.
type Texture struct {
	ID         string
	Channel    string
	Filename   string
	File       string // resolved, servable URL
	Format     string
	Resolution Resolution
}

// Asset is the canonical in-memory record. Values returned from the cache are
// deep copies; mutate them only through state.Store.
type Asset struct {
	ID               string
	Name             string
	Description      string
	SourceFile       string
	SourceFileURL    string
	FileType         FileType
	ThumbnailURL     string
	Tags             []string
	HasParameters    bool
	HasThumbnail     bool
	HasBakedTextures bool
	Metadata         map[string]any
	CreatedAt        time.Time
	UpdatedAt        time.Time
	Textures         []Texture
}

// Parameters returns the extraction summary stored under metadata.parameters.
func (a Asset) Parameters() (map[string]any, bool) {
	params, ok := a.Metadata["parameters"].(map[string]any)
	return params, ok
}

// HasTag reports whether tag is present, ignoring case.
func (a Asset) HasTag(tag string) bool {
	for _, t := range a.Tags {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of a.
func (a Asset) Clone() Asset {
	out := a
	if a.Tags != nil {
		out.Tags = make([]string, len(a.Tags))
		copy(out.Tags, a.Tags)
	}
	if a.Textures != nil {
		out.Textures = make([]Texture, len(a.Textures))
		copy(out.Textures, a.Textures)
	}
	if a.Metadata != nil {
		out.Metadata = cloneMap(a.Metadata)
	}
	return out
}

func cloneMap(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch typed := v.(type) {
	case map[string]any:
		return cloneMap(typed)
	case []any:
		out := make([]any, len(typed))
		for i, item := range typed {
			out[i] = cloneValue(item)
		}
		return out
	case []string:
		return append([]string(nil), typed...)
	default:
		return v
	}
}

// NormalizeTags trims, drops empties, and removes duplicates while keeping the
// first occurrence's position.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}
