// Package assembler orchestrates one render: allocate the timeline, resolve
// assets concurrently, plan effects and overlays inline, then hand the
// compositor a complete job.
package assembler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"storyreel/config"
	"storyreel/effects"
	"storyreel/overlays"
	"storyreel/timeline"
	"storyreel/types"
)

// AssetResolver is the slice of the asset store the engine needs.
type AssetResolver interface {
	Resolve(ctx context.Context, scene types.Scene) (types.Asset, error)
	ResolveFallback(ctx context.Context, path string) (types.Asset, error)
}

// Renderer is the compositor's contract.
type Renderer interface {
	Render(ctx context.Context, job types.RenderJob) (string, error)
}

// Engine drives one script through the full pipeline. Safe to reuse across
// renders; each Run call is independent.
type Engine struct {
	cfg      *config.Config
	store    AssetResolver
	effects  *effects.Planner
	overlays *overlays.Planner
	renderer Renderer
	profile  types.OutputProfile
	workers  int
}

func New(cfg *config.Config, store AssetResolver, ep *effects.Planner, op *overlays.Planner, r Renderer, profile types.OutputProfile, workers int) *Engine {
	if workers < 1 {
		workers = 1
	}
	return &Engine{
		cfg:      cfg,
		store:    store,
		effects:  ep,
		overlays: op,
		renderer: r,
		profile:  profile,
		workers:  workers,
	}
}

// Run renders one script against its narration track. The timeline is
// validated before any asset work; a scene whose asset cannot be resolved
// even through the fallback aborts the whole run before rendering starts.
func (e *Engine) Run(ctx context.Context, script *types.Script, audioPath string, audioDuration time.Duration, outputPath string) (*types.RenderMetadata, error) {
	runID := uuid.NewString()[:8]

	windows, err := timeline.Allocate(script.Scenes, audioDuration)
	if err != nil {
		return nil, err
	}
	log.Printf("[assembler] Run %s: %d scenes over %v", runID, len(windows), audioDuration)

	assets, records, err := e.resolveAll(ctx, script.Scenes)
	if err != nil {
		return nil, err
	}

	segments := make([]types.Segment, len(script.Scenes))
	for i, scene := range script.Scenes {
		lastScene := i == len(script.Scenes)-1
		segments[i] = types.Segment{
			Window:   windows[i],
			Asset:    assets[i],
			Effect:   e.effects.Plan(assets[i], scene.Index, windows[i]),
			Overlays: e.overlays.Plan(script.Title, scene, windows[i], lastScene),
		}
	}

	job := types.RenderJob{
		ID:            runID,
		Segments:      segments,
		AudioPath:     audioPath,
		AudioDuration: audioDuration,
		Profile:       e.profile,
		OutputPath:    outputPath,
	}
	rendered, err := e.renderer.Render(ctx, job)
	if err != nil {
		return nil, err
	}

	return &types.RenderMetadata{
		RunID:       runID,
		OutputPath:  rendered,
		DurationSec: audioDuration.Seconds(),
		Profile:     e.profile.Name,
		SceneAssets: records,
	}, nil
}

// resolveAll fetches every scene's asset through a bounded worker pool. A
// scene that permanently fails falls back to the configured substitute asset;
// when no substitute is available either, the whole run fails.
func (e *Engine) resolveAll(ctx context.Context, scenes []types.Scene) ([]types.Asset, []types.SceneAssetRecord, error) {
	assets := make([]types.Asset, len(scenes))
	records := make([]types.SceneAssetRecord, len(scenes))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i, scene := range scenes {
		i, scene := i, scene
		g.Go(func() error {
			asset, err := e.store.Resolve(ctx, scene)
			if errors.Is(err, types.ErrAssetUnavailable) {
				log.Printf("[assembler] Scene %d: asset unavailable, substituting fallback: %v", scene.Index, err)
				asset, err = e.store.ResolveFallback(ctx, e.cfg.Assets.FallbackAsset)
				if err != nil {
					return fmt.Errorf("scene %d: %w", scene.Index, err)
				}
				assets[i] = asset
				records[i] = types.SceneAssetRecord{SceneIndex: scene.Index, Identifier: asset.Identifier, Fallback: true}
				return nil
			}
			if err != nil {
				return fmt.Errorf("scene %d: %w", scene.Index, err)
			}
			assets[i] = asset
			records[i] = types.SceneAssetRecord{SceneIndex: scene.Index, Identifier: asset.Identifier}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return assets, records, nil
}
