// Package assets resolves visual references to local media files. It owns the
// on-disk cache, deduplicates concurrent downloads of the same identifier, and
// retries transient failures before reporting an asset as unavailable.
package assets

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"golang.org/x/sync/singleflight"

	"storyreel/config"
	"storyreel/types"
)

// Store is the asset store. Safe for concurrent use; at most one download is
// in flight per identifier at any time.
type Store struct {
	cacheDir string
	index    *Index
	retry    RetryPolicy
	fetch    fetcher
	group    singleflight.Group
}

// New opens the cache index and builds a production store.
func New(ctx context.Context, cfg config.AssetsConfig) (*Store, error) {
	index, err := OpenIndex(cfg.CacheDir)
	if err != nil {
		return nil, err
	}
	return &Store{
		cacheDir: cfg.CacheDir,
		index:    index,
		retry: RetryPolicy{
			MaxAttempts:    cfg.MaxAttempts,
			BaseDelay:      time.Duration(cfg.RetryBaseSec * float64(time.Second)),
			AttemptTimeout: time.Duration(cfg.DownloadTimeoutSec * float64(time.Second)),
		},
		fetch: newMediaFetcher(ctx, cfg.ImageWidth, cfg.ImageHeight),
	}, nil
}

// newStoreWithFetcher wires a custom fetcher; tests use it to avoid the network.
func newStoreWithFetcher(cacheDir string, retry RetryPolicy, f fetcher) (*Store, error) {
	index, err := OpenIndex(cacheDir)
	if err != nil {
		return nil, err
	}
	return &Store{cacheDir: cacheDir, index: index, retry: retry, fetch: f}, nil
}

// Close releases the cache index.
func (s *Store) Close() error {
	return s.index.Close()
}

// Resolve turns a scene's visual hint into a local asset. Cache hits return
// without touching the network; misses download through the retry policy, and
// concurrent callers for the same identifier share one underlying fetch.
// Exhausted retries surface as ErrAssetUnavailable.
func (s *Store) Resolve(ctx context.Context, scene types.Scene) (types.Asset, error) {
	ref, err := classify(scene.VisualHint, scene.Index)
	if err != nil {
		return types.Asset{}, fmt.Errorf("%w: %v", types.ErrAssetUnavailable, err)
	}

	// Local clips are used in place; the store never copies them into the cache.
	if ref.kind == types.SourceLocalClip {
		return s.resolveLocal(ctx, ref)
	}

	id := ref.identifier()

	if asset, ok, err := s.index.Lookup(id); err != nil {
		return types.Asset{}, err
	} else if ok {
		log.Printf("[assets] Scene %d: cache hit %s (%s)", scene.Index, id, ref.kind)
		return asset, nil
	}

	v, err, _ := s.group.Do(id, func() (interface{}, error) {
		// A concurrent caller may have finished while we waited for the flight.
		if asset, ok, err := s.index.Lookup(id); err != nil {
			return nil, err
		} else if ok {
			return asset, nil
		}

		dest := filepath.Join(s.cacheDir, id+ref.ext())
		var asset types.Asset
		fetchErr := s.retry.Do(ctx, ref.raw, func(ctx context.Context) error {
			var err error
			asset, err = s.fetch.fetch(ctx, ref, dest)
			return err
		})
		if fetchErr != nil {
			return nil, fmt.Errorf("%w: %s: %v", types.ErrAssetUnavailable, ref.raw, fetchErr)
		}

		asset.Identifier = id
		if err := s.index.Put(asset, ref.raw); err != nil {
			return nil, err
		}
		log.Printf("[assets] Scene %d: downloaded %s → %s", scene.Index, ref.raw, dest)
		return asset, nil
	})
	if err != nil {
		return types.Asset{}, err
	}
	return v.(types.Asset), nil
}

// ResolveFallback loads the configured fallback asset for substitution when a
// scene's own asset is permanently unavailable.
func (s *Store) ResolveFallback(ctx context.Context, path string) (types.Asset, error) {
	if path == "" {
		return types.Asset{}, fmt.Errorf("%w: no fallback asset configured", types.ErrAssetUnavailable)
	}
	ref, err := classify(path, -1)
	if err != nil {
		return types.Asset{}, fmt.Errorf("%w: fallback: %v", types.ErrAssetUnavailable, err)
	}
	if ref.kind != types.SourceLocalClip {
		return types.Asset{}, fmt.Errorf("%w: fallback asset %q is not a local file", types.ErrAssetUnavailable, path)
	}
	return s.resolveLocal(ctx, ref)
}

func (s *Store) resolveLocal(ctx context.Context, ref reference) (types.Asset, error) {
	dur, w, h, err := probeMedia(ctx, ref.path)
	if err != nil {
		return types.Asset{}, fmt.Errorf("%w: %v", types.ErrAssetUnavailable, err)
	}
	kind := ref.kind
	if isStillImage(ref.path) {
		kind = types.SourceGeneratedImage
		dur = 0
	}
	return types.Asset{
		Kind:           kind,
		Identifier:     ref.identifier(),
		LocalPath:      ref.path,
		NativeDuration: dur,
		Width:          w,
		Height:         h,
	}, nil
}

func isStillImage(path string) bool {
	switch filepath.Ext(path) {
	case ".jpg", ".jpeg", ".png", ".webp", ".bmp":
		return true
	}
	return false
}
