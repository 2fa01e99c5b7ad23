package satapi

// RawAsset mirrors the asset payload returned by the service. Fields are
// loosely typed on the wire; asset.Normalizer validates them using the
// validate tags below before anything reaches the cache.
type RawAsset struct {
	ID               string         `json:"id" validate:"required"`
	AssetID          string         `json:"assetId,omitempty"`
	Name             string         `json:"name"`
	Description      string         `json:"description"`
	SourceFile       string         `json:"sourceFile"`
	SourceFileURL    string         `json:"sourceFileUrl"`
	FileType         string         `json:"fileType" validate:"required,oneof=sbs sbsar"`
	StoragePath      string         `json:"storagePath,omitempty"`
	ThumbnailURL     string         `json:"thumbnailUrl"`
	Tags             []string       `json:"tags"`
	CreatedAt        string         `json:"createdAt"`
	UpdatedAt        string         `json:"updatedAt"`
	Metadata         map[string]any `json:"metadata"`
	HasParameters    bool           `json:"hasParameters"`
	HasThumbnail     bool           `json:"hasThumbnail"`
	HasBakedTextures bool           `json:"hasBakedTextures"`
	Textures         []RawTexture   `json:"textures"`
}

// RawTexture describes one baked output channel.
type RawTexture struct {
	ID         string        `json:"id"`
	AssetID    string        `json:"assetId"`
	Channel    string        `json:"channel"`
	Filename   string        `json:"filename"`
	URL        string        `json:"url"`
	Format     string        `json:"format"`
	Resolution RawResolution `json:"resolution"`
}

// RawResolution is a texture's pixel size.
type RawResolution struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// AssetList mirrors GET /api/assets.
type AssetList struct {
	Items      []RawAsset `json:"items"`
	Total      int        `json:"total"`
	Page       int        `json:"page"`
	PageSize   int        `json:"pageSize"`
	TotalPages int        `json:"totalPages"`
}

// UploadResponse mirrors POST /api/assets/upload. The asset summary is
// flattened into the top level next to the autoProcess block.
type UploadResponse struct {
	RawAsset
	AutoProcess *AutoProcess `json:"autoProcess,omitempty"`
}

// AutoProcess reports the server-side processing stages run after upload.
// Each stage succeeds or fails independently.
type AutoProcess struct {
	Parameters StageResult `json:"parameters"`
	Thumbnail  StageResult `json:"thumbnail"`
}

// StageResult is a single auto-process stage outcome.
type StageResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	URL     string `json:"url,omitempty"`
}

// ExtractResult mirrors POST /api/assets/:id/extract-parameters.
type ExtractResult struct {
	Success    bool           `json:"success"`
	Parameters map[string]any `json:"parameters"`
	Asset      *RawAsset      `json:"asset,omitempty"`
}

// ThumbnailResult mirrors POST /api/assets/:id/generate-thumbnail.
type ThumbnailResult struct {
	Success      bool      `json:"success"`
	ThumbnailURL string    `json:"thumbnailUrl"`
	Asset        *RawAsset `json:"asset,omitempty"`
}

// AssetUpdate is a partial update body for PUT /api/assets/:id. Nil fields
// are left untouched by the server.
type AssetUpdate struct {
	Name        *string   `json:"name,omitempty"`
	Description *string   `json:"description,omitempty"`
	Tags        *[]string `json:"tags,omitempty"`
}

// HealthResponse mirrors GET /api/health.
type HealthResponse struct {
	Status string `json:"status"`
}
