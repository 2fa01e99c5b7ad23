package actions

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// BatchResult aggregates a multi-asset operation. Succeeded keeps input order.
type BatchResult struct {
	Op        string
	Total     int
	Succeeded []string
	Failed    []ItemError
}

// Summary renders the aggregate outcome.
func (r BatchResult) Summary() string {
	switch {
	case r.Total == 0:
		return fmt.Sprintf("%s: nothing selected", r.Op)
	case len(r.Failed) == 0:
		return fmt.Sprintf("%s: %d of %d succeeded", r.Op, len(r.Succeeded), r.Total)
	default:
		return fmt.Sprintf("%s: %d of %d succeeded, %d failed", r.Op, len(r.Succeeded), r.Total, len(r.Failed))
	}
}

// BatchDelete deletes every id. The cache drops the successful ones in a
// single RemoveAssets call, which also clears the selection set. When no
// delete succeeds the cache is left alone.
func (s *Service) BatchDelete(ctx context.Context, ids []string) BatchResult {
	res := s.runBatch(ctx, "Delete", ids, s.api.DeleteAsset)
	if len(res.Succeeded) > 0 && s.store != nil {
		s.store.RemoveAssets(res.Succeeded)
	}
	s.report(res)
	return res
}

// BatchExtract runs parameter extraction for every id.
func (s *Service) BatchExtract(ctx context.Context, ids []string) BatchResult {
	res := s.runBatch(ctx, "Extract parameters", ids, s.extract)
	s.report(res)
	return res
}

// BatchGenerateThumbnails renders a thumbnail for every id at the configured
// resolution.
func (s *Service) BatchGenerateThumbnails(ctx context.Context, ids []string, resolution int) BatchResult {
	res := s.runBatch(ctx, "Generate thumbnails", ids, func(ctx context.Context, id string) error {
		return s.thumbnail(ctx, id, resolution)
	})
	s.report(res)
	return res
}

// runBatch attempts every id through a bounded pool. One failure never stops
// the others.
func (s *Service) runBatch(ctx context.Context, op string, ids []string, fn func(context.Context, string) error) BatchResult {
	errs := make([]error, len(ids))
	var g errgroup.Group
	g.SetLimit(s.workers)
	for i, id := range ids {
		g.Go(func() error {
			errs[i] = fn(ctx, id)
			return nil
		})
	}
	_ = g.Wait()

	res := BatchResult{Op: op, Total: len(ids)}
	for i, id := range ids {
		if errs[i] != nil {
			res.Failed = append(res.Failed, ItemError{ID: id, Err: errs[i]})
			s.log.Warn("batch item failed",
				zap.String("op", op),
				zap.String("asset_id", id),
				zap.Error(errs[i]),
			)
			continue
		}
		res.Succeeded = append(res.Succeeded, id)
	}
	s.log.Info("batch complete",
		zap.String("op", op),
		zap.Int("total", res.Total),
		zap.Int("succeeded", len(res.Succeeded)),
		zap.Int("failed", len(res.Failed)),
	)
	return res
}

func (s *Service) report(res BatchResult) {
	level := LevelSuccess
	switch {
	case res.Total == 0:
		level = LevelInfo
	case len(res.Succeeded) == 0:
		level = LevelError
	case len(res.Failed) > 0:
		level = LevelWarning
	}
	s.emit(level, res.Summary())
}
