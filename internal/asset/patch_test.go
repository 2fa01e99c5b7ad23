package asset

import (
	"reflect"
	"testing"
	"time"
)

func sampleAsset() Asset {
	return Asset{
		ID:           "a1",
		Name:         "Wood",
		FileType:     FileTypeSBS,
		ThumbnailURL: DefaultPlaceholderBase + "SBS",
		Tags:         []string{"wood"},
		Metadata:     map[string]any{"origin": "scan"},
		Textures:     []Texture{},
	}
}

func TestPatchApply_ChangesOnlyNamedField(t *testing.T) {
	before := sampleAsset()
	after := Patch{HasParameters: Bool(true)}.Apply(before)

	if !after.HasParameters {
		t.Fatalf("HasParameters not set")
	}
	after.HasParameters = false
	if !reflect.DeepEqual(before, after) {
		t.Fatalf("patch touched other fields:\nbefore: %+v\nafter:  %+v", before, after)
	}
}

func TestPatchApply_FlagsNeverRegress(t *testing.T) {
	a := sampleAsset()
	a.HasParameters = true
	a.HasThumbnail = true
	a.ThumbnailURL = "http://host/t.png"
	a.HasBakedTextures = true

	got := Patch{
		HasParameters:    Bool(false),
		HasThumbnail:     Bool(false),
		HasBakedTextures: Bool(false),
		ThumbnailURL:     String(""),
	}.Apply(a)
	if !got.HasParameters || !got.HasThumbnail || !got.HasBakedTextures {
		t.Fatalf("flags regressed: %+v", got)
	}
	if got.ThumbnailURL != "http://host/t.png" {
		t.Fatalf("thumbnail cleared: %q", got.ThumbnailURL)
	}
}

func TestPatchApply_HasThumbnailNeedsURL(t *testing.T) {
	a := sampleAsset()
	a.ThumbnailURL = ""
	got := Patch{HasThumbnail: Bool(true)}.Apply(a)
	if got.HasThumbnail {
		t.Fatalf("HasThumbnail set without URL")
	}
	got = Patch{HasThumbnail: Bool(true), ThumbnailURL: String("http://host/t.png")}.Apply(a)
	if !got.HasThumbnail || got.ThumbnailURL != "http://host/t.png" {
		t.Fatalf("thumbnail patch = %+v", got)
	}
}

func TestPatchApply_HasThumbnailIgnoresPlaceholder(t *testing.T) {
	a := sampleAsset()
	got := Patch{HasThumbnail: Bool(true)}.Apply(a)
	if got.HasThumbnail {
		t.Fatalf("HasThumbnail set while only the placeholder %q is cached", got.ThumbnailURL)
	}
	if got.ThumbnailURL != a.ThumbnailURL {
		t.Fatalf("ThumbnailURL = %q, want placeholder kept", got.ThumbnailURL)
	}
}

func TestPatchApply_MergesMetadataAndDoesNotAlias(t *testing.T) {
	a := sampleAsset()
	params := map[string]any{"count": 2}
	got := Patch{Metadata: map[string]any{"parameters": params}}.Apply(a)

	if got.Metadata["origin"] != "scan" {
		t.Fatalf("existing metadata lost: %v", got.Metadata)
	}
	params["count"] = 99
	if got.Metadata["parameters"].(map[string]any)["count"] != 2 {
		t.Fatalf("patch metadata aliased caller map")
	}
	if _, ok := a.Metadata["parameters"]; ok {
		t.Fatalf("Apply mutated the input asset")
	}
}

func TestPatchApply_TagsAreDeduped(t *testing.T) {
	tags := []string{"pbr", "wood", "pbr", ""}
	got := Patch{Tags: &tags}.Apply(sampleAsset())
	if !reflect.DeepEqual(got.Tags, []string{"pbr", "wood"}) {
		t.Fatalf("tags = %v", got.Tags)
	}
}

func TestPatchFrom_RoundTripsServerRecord(t *testing.T) {
	updated := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	server := sampleAsset()
	server.Name = "Oak"
	server.HasParameters = true
	server.UpdatedAt = updated

	got := PatchFrom(server).Apply(sampleAsset())
	if got.Name != "Oak" || !got.HasParameters || !got.UpdatedAt.Equal(updated) {
		t.Fatalf("patched = %+v", got)
	}
	if (Patch{}).Empty() != true || PatchFrom(server).Empty() {
		t.Fatalf("Empty reported incorrectly")
	}
}

func TestClone_IsDeep(t *testing.T) {
	a := sampleAsset()
	a.Metadata["nested"] = map[string]any{"list": []any{"x"}}
	c := a.Clone()
	c.Tags[0] = "changed"
	c.Metadata["nested"].(map[string]any)["list"].([]any)[0] = "y"
	if a.Tags[0] != "wood" {
		t.Fatalf("tags aliased")
	}
	if a.Metadata["nested"].(map[string]any)["list"].([]any)[0] != "x" {
		t.Fatalf("metadata aliased")
	}
}

func TestFileTypeFromPath(t *testing.T) {
	tests := map[string]FileType{"a.sbs": FileTypeSBS, "B.SBSAR": FileTypeSBSAR}
	for path, want := range tests {
		got, ok := FileTypeFromPath(path)
		if !ok || got != want {
			t.Fatalf("FileTypeFromPath(%q) = %q,%v", path, got, ok)
		}
	}
	if _, ok := FileTypeFromPath("c.png"); ok {
		t.Fatalf("png accepted")
	}
}
