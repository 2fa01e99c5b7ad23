package asset

import (
	"errors"
	"fmt"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/five82/matdeck/internal/satapi"
)

// DefaultPlaceholderBase is the display-only thumbnail used when the service
// has not rendered one yet. The upper-case file type is appended.
const DefaultPlaceholderBase = "https://via.placeholder.com/128/6366f1/ffffff?text="

const naiveTimestampLayout = "2006-01-02T15:04:05.999999999"

// DecodeError reports a backend payload that does not match the asset
// contract. No partially defaulted record is produced alongside it.
type DecodeError struct {
	ID     string
	Field  string
	Reason string
}

func (e *DecodeError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("decode asset %s: %s %s", e.ID, e.Field, e.Reason)
	}
	return fmt.Sprintf("decode asset: %s %s", e.Field, e.Reason)
}

// Normalizer maps raw service payloads onto Asset. The zero value resolves
// relative URLs against the site root and uses DefaultPlaceholderBase.
type Normalizer struct {
	// BaseURL prefixes relative thumbnail, source and texture URLs.
	BaseURL string
	// PlaceholderBase overrides DefaultPlaceholderBase.
	PlaceholderBase string

	validate *validator.Validate
}

// NewNormalizer builds a Normalizer for the given static base URL.
func NewNormalizer(baseURL, placeholderBase string) *Normalizer {
	return &Normalizer{
		BaseURL:         strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		PlaceholderBase: strings.TrimSpace(placeholderBase),
		validate:        newValidator(),
	}
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return field.Name
		}
		return name
	})
	return v
}

// Normalize validates raw and fills documented defaults.
func (n *Normalizer) Normalize(raw satapi.RawAsset) (Asset, error) {
	raw.ID = strings.TrimSpace(raw.ID)
	raw.FileType = strings.ToLower(strings.TrimSpace(raw.FileType))
	if err := n.checker().Struct(raw); err != nil {
		return Asset{}, toDecodeError(raw.ID, err)
	}

	a := Asset{
		ID:               raw.ID,
		Name:             strings.TrimSpace(raw.Name),
		Description:      raw.Description,
		SourceFile:       raw.SourceFile,
		FileType:         FileType(raw.FileType),
		Tags:             NormalizeTags(raw.Tags),
		HasParameters:    raw.HasParameters,
		HasBakedTextures: raw.HasBakedTextures,
		CreatedAt:        parseTime(raw.CreatedAt),
		UpdatedAt:        parseTime(raw.UpdatedAt),
		Metadata:         map[string]any{},
		Textures:         []Texture{},
	}
	if a.Name == "" {
		a.Name = defaultName(raw)
	}
	if raw.SourceFileURL != "" {
		a.SourceFileURL = n.ResolveURL(raw.SourceFileURL)
	}
	if raw.ThumbnailURL != "" {
		a.ThumbnailURL = n.ResolveURL(raw.ThumbnailURL)
		a.HasThumbnail = raw.HasThumbnail
	} else {
		a.ThumbnailURL = n.Placeholder(a.FileType)
	}
	if raw.Metadata != nil {
		a.Metadata = cloneMap(raw.Metadata)
	}
	for _, tex := range raw.Textures {
		a.Textures = append(a.Textures, Texture{
			ID:       tex.ID,
			Channel:  tex.Channel,
			Filename: tex.Filename,
			File:     n.ResolveURL(tex.URL),
			Format:   tex.Format,
			Resolution: Resolution{
				Width:  tex.Resolution.Width,
				Height: tex.Resolution.Height,
			},
		})
	}
	return a, nil
}

// NormalizeAll normalizes every payload and fails on the first bad one.
func (n *Normalizer) NormalizeAll(raws []satapi.RawAsset) ([]Asset, error) {
	out := make([]Asset, 0, len(raws))
	for i, raw := range raws {
		a, err := n.Normalize(raw)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		out = append(out, a)
	}
	return out, nil
}

// ResolveURL turns a service-relative path into a servable URL. Absolute
// http(s) and data: URLs pass through unchanged.
func (n *Normalizer) ResolveURL(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	lower := strings.ToLower(value)
	for _, prefix := range []string{"http://", "https://", "data:"} {
		if strings.HasPrefix(lower, prefix) {
			return value
		}
	}
	base := ""
	if n != nil {
		base = strings.TrimRight(n.BaseURL, "/")
	}
	return base + "/" + strings.TrimLeft(value, "/")
}

// Placeholder returns the display-only thumbnail for a file type.
func (n *Normalizer) Placeholder(ft FileType) string {
	base := DefaultPlaceholderBase
	if n != nil && n.PlaceholderBase != "" {
		base = n.PlaceholderBase
	}
	return base + ft.Label()
}

// IsPlaceholder reports whether url is a synthesized placeholder.
func (n *Normalizer) IsPlaceholder(url string) bool {
	base := DefaultPlaceholderBase
	if n != nil && n.PlaceholderBase != "" {
		base = n.PlaceholderBase
	}
	return strings.HasPrefix(url, base)
}

// Denormalize converts a canonical asset back into its wire shape.
func Denormalize(a Asset) satapi.RawAsset {
	raw := satapi.RawAsset{
		ID:               a.ID,
		Name:             a.Name,
		Description:      a.Description,
		SourceFile:       a.SourceFile,
		SourceFileURL:    a.SourceFileURL,
		FileType:         string(a.FileType),
		ThumbnailURL:     a.ThumbnailURL,
		Tags:             append([]string{}, a.Tags...),
		Metadata:         cloneMap(a.Metadata),
		HasParameters:    a.HasParameters,
		HasThumbnail:     a.HasThumbnail,
		HasBakedTextures: a.HasBakedTextures,
		CreatedAt:        formatTime(a.CreatedAt),
		UpdatedAt:        formatTime(a.UpdatedAt),
	}
	for _, tex := range a.Textures {
		raw.Textures = append(raw.Textures, satapi.RawTexture{
			ID:       tex.ID,
			AssetID:  a.ID,
			Channel:  tex.Channel,
			Filename: tex.Filename,
			URL:      tex.File,
			Format:   tex.Format,
			Resolution: satapi.RawResolution{
				Width:  tex.Resolution.Width,
				Height: tex.Resolution.Height,
			},
		})
	}
	return raw
}

func (n *Normalizer) checker() *validator.Validate {
	if n == nil || n.validate == nil {
		return sharedValidator
	}
	return n.validate
}

var sharedValidator = newValidator()

func toDecodeError(id string, err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		reason := "is invalid"
		switch fe.Tag() {
		case "required":
			reason = "is required"
		case "oneof":
			reason = fmt.Sprintf("must be one of [%s], got %q", fe.Param(), fe.Value())
		}
		return &DecodeError{ID: id, Field: fe.Field(), Reason: reason}
	}
	return &DecodeError{ID: id, Field: "payload", Reason: err.Error()}
}

func defaultName(raw satapi.RawAsset) string {
	if src := strings.TrimSpace(raw.SourceFile); src != "" {
		base := filepath.Base(src)
		if stem := strings.TrimSuffix(base, filepath.Ext(base)); stem != "" {
			return stem
		}
	}
	return raw.ID
}

// parseTime accepts RFC 3339 and the service's naive ISO timestamps, which
// are UTC. Unparseable values yield the zero time.
func parseTime(value string) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339} {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC()
		}
	}
	for _, layout := range []string{naiveTimestampLayout, "2006-01-02 15:04:05"} {
		if t, err := time.ParseInLocation(layout, value, time.UTC); err == nil {
			return t
		}
	}
	return time.Time{}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}
