package actions

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/five82/matdeck/internal/asset"
	"github.com/five82/matdeck/internal/satapi"
)

// UploadOptions are applied to every file in an upload. Name is only used
// when exactly one file is accepted.
type UploadOptions struct {
	Name        string
	Description string
	Tags        []string
}

// UploadResult reports what happened to each path.
type UploadResult struct {
	Uploaded []asset.Asset
	Rejected []*ValidationError
	Failed   []ItemError
}

// ValidateUpload checks a candidate file without touching the network.
func (s *Service) ValidateUpload(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &ValidationError{Path: path, Reason: "file not found"}
		}
		return &ValidationError{Path: path, Reason: err.Error()}
	}
	if !info.Mode().IsRegular() {
		return &ValidationError{Path: path, Reason: "not a regular file"}
	}
	if _, ok := asset.FileTypeFromPath(path); !ok {
		return &ValidationError{Path: path, Reason: "Only SBS and SBSAR files are allowed"}
	}
	if info.Size() == 0 {
		return &ValidationError{Path: path, Reason: "file is empty"}
	}
	if info.Size() > s.maxUpload {
		return &ValidationError{
			Path:   path,
			Reason: fmt.Sprintf("file is %s, larger than the %s limit", humanBytes(info.Size()), humanBytes(s.maxUpload)),
		}
	}
	return nil
}

// Upload validates every path, then uploads the accepted ones through the
// worker pool. Each uploaded asset is added to the front of the cache.
func (s *Service) Upload(ctx context.Context, paths []string, opts UploadOptions) UploadResult {
	var result UploadResult
	var accepted []string
	for _, path := range paths {
		if err := s.ValidateUpload(path); err != nil {
			var verr *ValidationError
			errors.As(err, &verr)
			result.Rejected = append(result.Rejected, verr)
			s.emit(LevelWarning, "Rejected "+verr.Error())
			continue
		}
		accepted = append(accepted, path)
	}
	if len(accepted) != 1 {
		opts.Name = ""
	}

	uploaded := make([]*asset.Asset, len(accepted))
	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(s.workers)
	for i, path := range accepted {
		g.Go(func() error {
			a, err := s.uploadOne(ctx, path, opts)
			if err != nil {
				mu.Lock()
				result.Failed = append(result.Failed, ItemError{ID: path, Err: err})
				mu.Unlock()
				s.fail("Upload failed for "+filepath.Base(path), err)
				return nil
			}
			uploaded[i] = &a
			return nil
		})
	}
	_ = g.Wait()

	for _, a := range uploaded {
		if a != nil {
			result.Uploaded = append(result.Uploaded, *a)
		}
	}
	return result
}

func (s *Service) uploadOne(ctx context.Context, path string, opts UploadOptions) (asset.Asset, error) {
	f, err := os.Open(path)
	if err != nil {
		return asset.Asset{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	resp, err := s.api.UploadAsset(ctx, satapi.UploadRequest{
		FileName:    filepath.Base(path),
		Content:     f,
		Name:        opts.Name,
		Description: opts.Description,
		Tags:        asset.NormalizeTags(opts.Tags),
	})
	if err != nil {
		return asset.Asset{}, err
	}
	a, err := s.norm.Normalize(resp.RawAsset)
	if err != nil {
		return asset.Asset{}, err
	}

	// The upload summary omits tags, metadata and timestamps.
	if raw, err := s.api.GetAsset(ctx, a.ID); err == nil {
		if full, err := s.norm.Normalize(raw); err == nil {
			a = full
		}
	} else {
		s.log.Debug("fetch uploaded asset failed", zap.String("asset_id", a.ID), zap.Error(err))
	}
	a = s.applyAutoProcess(a, resp.AutoProcess)

	if s.store != nil {
		s.store.AddAsset(a)
	}
	s.log.Info("asset uploaded",
		zap.String("asset_id", a.ID),
		zap.String("path", path),
		zap.String("file_type", string(a.FileType)),
	)
	s.emit(LevelSuccess, fmt.Sprintf("Uploaded %s", a.Name))
	s.reportAutoProcess(a.Name, resp.AutoProcess)
	return a, nil
}

// applyAutoProcess folds stage results into a in case the follow-up GET was
// unavailable or stale.
func (s *Service) applyAutoProcess(a asset.Asset, ap *satapi.AutoProcess) asset.Asset {
	if ap == nil {
		return a
	}
	patch := asset.Patch{}
	if ap.Parameters.Success {
		patch.HasParameters = asset.Bool(true)
	}
	if ap.Thumbnail.Success {
		if url := s.norm.ResolveURL(ap.Thumbnail.URL); url != "" {
			patch.ThumbnailURL = asset.String(url)
			patch.HasThumbnail = asset.Bool(true)
		}
	}
	return patch.Apply(a)
}

func (s *Service) reportAutoProcess(name string, ap *satapi.AutoProcess) {
	if ap == nil {
		return
	}
	stages := []struct {
		label  string
		result satapi.StageResult
	}{
		{"Parameter extraction", ap.Parameters},
		{"Thumbnail generation", ap.Thumbnail},
	}
	for _, stage := range stages {
		switch {
		case stage.result.Success:
			s.emit(LevelInfo, fmt.Sprintf("%s finished for %s", stage.label, name))
		case stage.result.Error != "":
			s.emit(LevelWarning, fmt.Sprintf("%s failed for %s: %s", stage.label, name, stage.result.Error))
		}
	}
}

func humanBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}
