package actions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/five82/matdeck/internal/asset"
	"github.com/five82/matdeck/internal/satapi"
	"github.com/five82/matdeck/internal/state"
)

// API is the subset of the service client the actions need.
type API interface {
	ListAllAssets(ctx context.Context, query satapi.ListQuery) ([]satapi.RawAsset, error)
	GetAsset(ctx context.Context, id string) (satapi.RawAsset, error)
	UploadAsset(ctx context.Context, req satapi.UploadRequest) (satapi.UploadResponse, error)
	UpdateAsset(ctx context.Context, id string, update satapi.AssetUpdate) (satapi.RawAsset, error)
	DeleteAsset(ctx context.Context, id string) error
	ExtractParameters(ctx context.Context, id string) (satapi.ExtractResult, error)
	GenerateThumbnail(ctx context.Context, id string, resolution int) (satapi.ThumbnailResult, error)
}

var _ API = (*satapi.Client)(nil)

// Ensure Service can back the cache's bulk reload.
var _ state.Fetcher = (*Service)(nil)

const (
	defaultWorkers    = 4
	defaultMaxUpload  = 500 << 20
	defaultResolution = 256
)

// Options tunes a Service. Zero values pick defaults.
type Options struct {
	Workers             int
	MaxUploadBytes      int64
	ThumbnailResolution int
	Notifier            Notifier
	Logger              *zap.Logger
}

// Service performs network I/O, normalizes responses, and applies results to
// the cache. Failures never touch the cache.
type Service struct {
	api        API
	store      *state.Store
	norm       *asset.Normalizer
	notify     Notifier
	log        *zap.Logger
	workers    int
	maxUpload  int64
	resolution int
}

// New wires a Service. store may be nil for callers that only need FetchAssets.
func New(api API, store *state.Store, norm *asset.Normalizer, opts Options) *Service {
	s := &Service{
		api:        api,
		store:      store,
		norm:       norm,
		notify:     opts.Notifier,
		log:        opts.Logger,
		workers:    opts.Workers,
		maxUpload:  opts.MaxUploadBytes,
		resolution: opts.ThumbnailResolution,
	}
	if s.norm == nil {
		s.norm = asset.NewNormalizer("", "")
	}
	if s.notify == nil {
		s.notify = discard{}
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	if s.workers <= 0 {
		s.workers = defaultWorkers
	}
	if s.maxUpload <= 0 {
		s.maxUpload = defaultMaxUpload
	}
	if s.resolution <= 0 {
		s.resolution = defaultResolution
	}
	return s
}

// Store returns the cache the service applies results to.
func (s *Service) Store() *state.Store {
	return s.store
}

// Normalizer returns the normalizer used for every response.
func (s *Service) Normalizer() *asset.Normalizer {
	return s.norm
}

// FetchAssets lists and normalizes the full collection. A single payload that
// fails to decode rejects the whole load.
func (s *Service) FetchAssets(ctx context.Context) ([]asset.Asset, error) {
	return s.List(ctx, satapi.ListQuery{})
}

// List fetches every page matching query.
func (s *Service) List(ctx context.Context, query satapi.ListQuery) ([]asset.Asset, error) {
	raws, err := s.api.ListAllAssets(ctx, query)
	if err != nil {
		return nil, err
	}
	items, err := s.norm.NormalizeAll(raws)
	if err != nil {
		s.log.Error("asset payload rejected", zap.Error(err))
		return nil, fmt.Errorf("normalize assets: %w", err)
	}
	return items, nil
}

// Get fetches one asset. A cached copy is refreshed with the result.
func (s *Service) Get(ctx context.Context, id string) (asset.Asset, error) {
	raw, err := s.api.GetAsset(ctx, id)
	if err != nil {
		return asset.Asset{}, err
	}
	a, err := s.norm.Normalize(raw)
	if err != nil {
		return asset.Asset{}, err
	}
	if s.store != nil {
		s.store.UpdateAsset(a.ID, asset.PatchFrom(a))
	}
	return a, nil
}

// ExtractParameters runs parameter extraction for id and records the summary
// under metadata.parameters.
func (s *Service) ExtractParameters(ctx context.Context, id string) error {
	name := s.displayName(id)
	if err := s.extract(ctx, id); err != nil {
		s.fail(fmt.Sprintf("Parameter extraction failed for %s", name), err)
		return err
	}
	s.emit(LevelSuccess, fmt.Sprintf("Extracted parameters for %s", name))
	return nil
}

func (s *Service) extract(ctx context.Context, id string) error {
	res, err := s.api.ExtractParameters(ctx, id)
	if err != nil {
		return err
	}
	if !res.Success {
		return errors.New("the service reported extraction as unsuccessful")
	}
	patch := asset.Patch{}
	if res.Asset != nil {
		if full, err := s.norm.Normalize(*res.Asset); err == nil {
			patch = asset.PatchFrom(full)
		} else {
			s.log.Warn("extract response asset rejected", zap.String("asset_id", id), zap.Error(err))
		}
	}
	patch.HasParameters = asset.Bool(true)
	if res.Parameters != nil {
		meta := make(map[string]any, len(patch.Metadata)+1)
		for k, v := range patch.Metadata {
			meta[k] = v
		}
		meta["parameters"] = res.Parameters
		patch.Metadata = meta
	}
	s.apply(id, patch)
	return nil
}

// GenerateThumbnail renders a preview for id. resolution <= 0 uses the
// configured default.
func (s *Service) GenerateThumbnail(ctx context.Context, id string, resolution int) error {
	name := s.displayName(id)
	if err := s.thumbnail(ctx, id, resolution); err != nil {
		s.fail(fmt.Sprintf("Thumbnail generation failed for %s", name), err)
		return err
	}
	s.emit(LevelSuccess, fmt.Sprintf("Generated thumbnail for %s", name))
	return nil
}

func (s *Service) thumbnail(ctx context.Context, id string, resolution int) error {
	if resolution <= 0 {
		resolution = s.resolution
	}
	res, err := s.api.GenerateThumbnail(ctx, id, resolution)
	if err != nil {
		return err
	}
	if !res.Success {
		return errors.New("the service reported thumbnail generation as unsuccessful")
	}
	patch := asset.Patch{}
	if res.Asset != nil {
		if full, err := s.norm.Normalize(*res.Asset); err == nil {
			patch = asset.PatchFrom(full)
		} else {
			s.log.Warn("thumbnail response asset rejected", zap.String("asset_id", id), zap.Error(err))
		}
	}
	if url := s.norm.ResolveURL(res.ThumbnailURL); url != "" {
		patch.ThumbnailURL = asset.String(url)
	}
	if patch.ThumbnailURL == nil {
		return errors.New("the service returned no thumbnail URL")
	}
	patch.HasThumbnail = asset.Bool(true)
	s.apply(id, patch)
	return nil
}

// Delete removes id on the service, then from the cache.
func (s *Service) Delete(ctx context.Context, id string) error {
	name := s.displayName(id)
	if err := s.api.DeleteAsset(ctx, id); err != nil {
		s.fail(fmt.Sprintf("Delete failed for %s", name), err)
		return err
	}
	if s.store != nil {
		s.store.RemoveAsset(id)
	}
	s.log.Info("asset deleted", zap.String("asset_id", id))
	s.emit(LevelSuccess, fmt.Sprintf("Deleted %s", name))
	return nil
}

// DetailsUpdate carries editable asset fields. Nil fields are unchanged.
type DetailsUpdate struct {
	Name        *string
	Description *string
	Tags        *[]string
}

// UpdateDetails saves edited fields and merges the stored record.
func (s *Service) UpdateDetails(ctx context.Context, id string, upd DetailsUpdate) (asset.Asset, error) {
	body := satapi.AssetUpdate{Name: upd.Name, Description: upd.Description}
	if upd.Tags != nil {
		tags := asset.NormalizeTags(*upd.Tags)
		body.Tags = &tags
	}
	raw, err := s.api.UpdateAsset(ctx, id, body)
	if err != nil {
		s.fail("Saving changes failed", err)
		return asset.Asset{}, err
	}
	a, err := s.norm.Normalize(raw)
	if err != nil {
		s.fail("Saving changes failed", err)
		return asset.Asset{}, err
	}
	s.apply(id, asset.PatchFrom(a))
	s.emit(LevelSuccess, fmt.Sprintf("Saved %s", a.Name))
	return a, nil
}

func (s *Service) apply(id string, patch asset.Patch) {
	if s.store == nil {
		return
	}
	if !s.store.UpdateAsset(id, patch) {
		s.log.Debug("update for uncached asset ignored", zap.String("asset_id", id))
	}
}

func (s *Service) displayName(id string) string {
	if s.store != nil {
		if a, ok := s.store.GetAssetByID(id); ok && a.Name != "" {
			return a.Name
		}
	}
	return id
}

func (s *Service) emit(level Level, msg string) {
	s.notify.Notify(Notification{Level: level, Message: msg, At: time.Now()})
}

func (s *Service) fail(prefix string, err error) {
	s.log.Warn(prefix, zap.Error(err), zap.Int("status", satapi.StatusOf(err)))
	s.emit(LevelError, prefix+": "+UserMessage(err))
}
