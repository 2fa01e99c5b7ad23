package asset

import "time"

// Patch is a partial update merged into an existing Asset. Nil fields are left
// untouched.
//
// Progress flags only move forward: a true flag sets the field, a false flag
// is ignored. HasThumbnail is only set by a patch that also carries a
// ThumbnailURL. Metadata keys are merged one level deep.
type Patch struct {
	Name             *string
	Description      *string
	Tags             *[]string
	ThumbnailURL     *string
	HasParameters    *bool
	HasThumbnail     *bool
	HasBakedTextures *bool
	Metadata         map[string]any
	Textures         *[]Texture
	UpdatedAt        *time.Time
}

// Apply returns a copy of a with p merged in. The ID never changes.
func (p Patch) Apply(a Asset) Asset {
	out := a.Clone()
	if p.Name != nil {
		out.Name = *p.Name
	}
	if p.Description != nil {
		out.Description = *p.Description
	}
	if p.Tags != nil {
		out.Tags = NormalizeTags(*p.Tags)
	}
	patchURL := p.ThumbnailURL != nil && *p.ThumbnailURL != ""
	if patchURL {
		out.ThumbnailURL = *p.ThumbnailURL
	}
	if p.HasParameters != nil && *p.HasParameters {
		out.HasParameters = true
	}
	// The cached URL may be the display placeholder; only a URL delivered
	// with the flag counts.
	if p.HasThumbnail != nil && *p.HasThumbnail && patchURL {
		out.HasThumbnail = true
	}
	if p.HasBakedTextures != nil && *p.HasBakedTextures {
		out.HasBakedTextures = true
	}
	if len(p.Metadata) > 0 {
		if out.Metadata == nil {
			out.Metadata = make(map[string]any, len(p.Metadata))
		}
		for k, v := range p.Metadata {
			out.Metadata[k] = cloneValue(v)
		}
	}
	if p.Textures != nil {
		out.Textures = append([]Texture{}, (*p.Textures)...)
	}
	if p.UpdatedAt != nil {
		out.UpdatedAt = p.UpdatedAt.UTC()
	}
	return out
}

// Empty reports whether the patch would change nothing.
func (p Patch) Empty() bool {
	return p.Name == nil && p.Description == nil && p.Tags == nil &&
		p.ThumbnailURL == nil && p.HasParameters == nil && p.HasThumbnail == nil &&
		p.HasBakedTextures == nil && len(p.Metadata) == 0 && p.Textures == nil &&
		p.UpdatedAt == nil
}

// PatchFrom builds a patch carrying every server-owned field of a freshly
// normalized record. Used when an action response includes the full asset.
func PatchFrom(a Asset) Patch {
	name := a.Name
	desc := a.Description
	tags := append([]string{}, a.Tags...)
	thumb := a.ThumbnailURL
	hasParams := a.HasParameters
	hasThumb := a.HasThumbnail
	hasBaked := a.HasBakedTextures
	textures := append([]Texture{}, a.Textures...)
	p := Patch{
		Name:             &name,
		Description:      &desc,
		Tags:             &tags,
		HasParameters:    &hasParams,
		HasThumbnail:     &hasThumb,
		HasBakedTextures: &hasBaked,
		Metadata:         a.Metadata,
		Textures:         &textures,
	}
	if hasThumb {
		p.ThumbnailURL = &thumb
	}
	if !a.UpdatedAt.IsZero() {
		updated := a.UpdatedAt
		p.UpdatedAt = &updated
	}
	return p
}

// Bool returns a pointer to v, for building patches.
func Bool(v bool) *bool { return &v }

// String returns a pointer to v, for building patches.
func String(v string) *string { return &v }
