package assembler

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"storyreel/config"
	"storyreel/effects"
	"storyreel/overlays"
	"storyreel/types"
)

// fakeStore resolves scenes from a canned map and counts calls.
type fakeStore struct {
	failScenes   map[int]bool // scenes whose assets are permanently unavailable
	failFallback bool
	resolves     atomic.Int64
}

func (s *fakeStore) Resolve(_ context.Context, scene types.Scene) (types.Asset, error) {
	s.resolves.Add(1)
	if s.failScenes[scene.Index] {
		return types.Asset{}, fmt.Errorf("%w: scene %d", types.ErrAssetUnavailable, scene.Index)
	}
	return types.Asset{
		Kind:       types.SourceGeneratedImage,
		Identifier: fmt.Sprintf("asset-%d", scene.Index),
		LocalPath:  fmt.Sprintf("/cache/asset-%d.jpg", scene.Index),
	}, nil
}

func (s *fakeStore) ResolveFallback(context.Context, string) (types.Asset, error) {
	if s.failFallback {
		return types.Asset{}, fmt.Errorf("%w: no fallback", types.ErrAssetUnavailable)
	}
	return types.Asset{
		Kind:       types.SourceGeneratedImage,
		Identifier: "fallback",
		LocalPath:  "/cache/fallback.jpg",
	}, nil
}

// fakeRenderer records the job instead of invoking ffmpeg.
type fakeRenderer struct {
	job    *types.RenderJob
	called int
}

func (r *fakeRenderer) Render(_ context.Context, job types.RenderJob) (string, error) {
	r.called++
	r.job = &job
	return job.OutputPath, nil
}

func threeSceneScript() *types.Script {
	return &types.Script{
		Title:     "The Silent Harbor",
		Narration: "one two three. four five six. seven eight nine.",
		Scenes: []types.Scene{
			{Index: 0, Narration: "one two three.", VisualHint: "a harbor at dusk"},
			{Index: 1, Narration: "four five six.", VisualHint: "an empty pier"},
			{Index: 2, Narration: "seven eight nine.", VisualHint: "fog over the water"},
		},
	}
}

func newTestEngine(t *testing.T, store AssetResolver, r Renderer) *Engine {
	t.Helper()
	cfg := config.Default()
	cfg.Assets.FallbackAsset = "/cache/fallback.jpg"

	op, err := overlays.NewPlanner(cfg.Overlays, t.TempDir())
	if err != nil {
		t.Fatalf("overlay planner: %v", err)
	}
	profile := types.OutputProfile{Name: "longform_1080p30", Width: 1920, Height: 1080, FPS: 30}
	return New(cfg, store, effects.NewPlanner(cfg.Effects), op, r, profile, 4)
}

func TestRunProducesContiguousSegments(t *testing.T) {
	store := &fakeStore{}
	renderer := &fakeRenderer{}
	e := newTestEngine(t, store, renderer)

	meta, err := e.Run(context.Background(), threeSceneScript(), "narration.mp3", 30*time.Second, "out.mp4")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if renderer.called != 1 {
		t.Fatalf("renderer called %d times, want 1", renderer.called)
	}

	// Equal word counts over 30s: three exact 10s windows.
	segs := renderer.job.Segments
	if len(segs) != 3 {
		t.Fatalf("got %d segments, want 3", len(segs))
	}
	for i, seg := range segs {
		wantStart := time.Duration(i) * 10 * time.Second
		if seg.Window.Start != wantStart || seg.Window.End != wantStart+10*time.Second {
			t.Errorf("segment %d window = [%v, %v), want [%v, %v)",
				i, seg.Window.Start, seg.Window.End, wantStart, wantStart+10*time.Second)
		}
	}

	if meta.Profile != "longform_1080p30" || meta.DurationSec != 30 {
		t.Errorf("unexpected metadata: %+v", meta)
	}
	for _, rec := range meta.SceneAssets {
		if rec.Fallback {
			t.Errorf("scene %d recorded as fallback with no failures", rec.SceneIndex)
		}
	}
}

func TestRunSubstitutesFallbackAndRecordsIt(t *testing.T) {
	store := &fakeStore{failScenes: map[int]bool{1: true}}
	renderer := &fakeRenderer{}
	e := newTestEngine(t, store, renderer)

	meta, err := e.Run(context.Background(), threeSceneScript(), "narration.mp3", 30*time.Second, "out.mp4")
	if err != nil {
		t.Fatalf("Run failed despite available fallback: %v", err)
	}

	var subbed *types.SceneAssetRecord
	for i := range meta.SceneAssets {
		if meta.SceneAssets[i].SceneIndex == 1 {
			subbed = &meta.SceneAssets[i]
		}
	}
	if subbed == nil || !subbed.Fallback || subbed.Identifier != "fallback" {
		t.Fatalf("substitution not recorded: %+v", meta.SceneAssets)
	}
	if got := renderer.job.Segments[1].Asset.Identifier; got != "fallback" {
		t.Errorf("segment 1 rendered with %q, want the fallback asset", got)
	}
}

func TestRunFailsFastWhenFallbackUnavailable(t *testing.T) {
	store := &fakeStore{failScenes: map[int]bool{2: true}, failFallback: true}
	renderer := &fakeRenderer{}
	e := newTestEngine(t, store, renderer)

	_, err := e.Run(context.Background(), threeSceneScript(), "narration.mp3", 30*time.Second, "out.mp4")
	if !errors.Is(err, types.ErrAssetUnavailable) {
		t.Fatalf("expected ErrAssetUnavailable, got %v", err)
	}
	if renderer.called != 0 {
		t.Error("renderer ran despite an unresolvable scene")
	}
}

func TestRunRejectsZeroDurationBeforeAssetWork(t *testing.T) {
	store := &fakeStore{}
	renderer := &fakeRenderer{}
	e := newTestEngine(t, store, renderer)

	_, err := e.Run(context.Background(), threeSceneScript(), "narration.mp3", 0, "out.mp4")
	if !errors.Is(err, types.ErrInvalidDuration) {
		t.Fatalf("expected ErrInvalidDuration, got %v", err)
	}
	if n := store.resolves.Load(); n != 0 {
		t.Errorf("%d assets resolved for an invalid timeline, want 0", n)
	}
	if renderer.called != 0 {
		t.Error("renderer ran for an invalid timeline")
	}
}

func TestRunPlansEffectsAndOverlays(t *testing.T) {
	store := &fakeStore{}
	renderer := &fakeRenderer{}
	e := newTestEngine(t, store, renderer)

	if _, err := e.Run(context.Background(), threeSceneScript(), "narration.mp3", 30*time.Second, "out.mp4"); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	segs := renderer.job.Segments
	if segs[0].Effect.Kind != types.EffectPanZoom {
		t.Errorf("still-image scene got effect %s, want pan_zoom", segs[0].Effect.Kind)
	}
	if segs[0].Effect.CrossfadeIn != 0 {
		t.Errorf("first scene has crossfade %v, want none", segs[0].Effect.CrossfadeIn)
	}
	if segs[1].Effect.CrossfadeIn == 0 {
		t.Error("second scene missing its crossfade")
	}

	found := false
	for _, spec := range segs[0].Overlays {
		if spec.Style == "title_card" && spec.Text == "The Silent Harbor" {
			found = true
		}
	}
	if !found {
		t.Errorf("first scene missing title card, overlays: %+v", segs[0].Overlays)
	}
}
