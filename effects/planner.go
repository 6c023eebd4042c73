// Package effects chooses the visual treatment for each scene: Ken Burns
// motion for stills, trim/stretch/loop handling for clips, and crossfade
// lengths for transitions.
package effects

import (
	"math"
	"math/rand"
	"time"

	"storyreel/config"
	"storyreel/types"
)

// maxCrossfade caps transitions regardless of configuration.
const maxCrossfade = time.Second

// Planner is stateless apart from its configuration; Plan is pure and safe to
// call from multiple goroutines.
type Planner struct {
	seed        int64
	minCoverage float64
	crossfade   time.Duration
	maxStretch  float64
}

func NewPlanner(cfg config.EffectsConfig) *Planner {
	return &Planner{
		seed:        cfg.Seed,
		minCoverage: cfg.MinCropCoverage,
		crossfade:   time.Duration(cfg.CrossfadeSec * float64(time.Second)),
		maxStretch:  cfg.MaxStretchFactor,
	}
}

// Plan parameterizes the effect for one scene. The same (seed, scene) pair
// always yields the same plan, so repeated renders of a script are
// reproducible.
func (p *Planner) Plan(asset types.Asset, sceneIndex int, window types.TimelineWindow) types.EffectPlan {
	var plan types.EffectPlan
	if asset.Kind.IsClip() {
		plan = p.planClip(asset, window)
	} else {
		plan = p.planPanZoom(sceneIndex)
	}

	if sceneIndex > 0 {
		fade := p.crossfade
		if fade > maxCrossfade {
			fade = maxCrossfade
		}
		if d := window.Duration(); fade > d {
			fade = d
		}
		plan.CrossfadeIn = fade
	}
	return plan
}

// planPanZoom builds a Ken Burns move between two crops that each cover at
// least the configured fraction of the frame. Direction alternates with scene
// parity so back-to-back stills never zoom the same way.
func (p *Planner) planPanZoom(sceneIndex int) types.EffectPlan {
	rng := rand.New(rand.NewSource(p.seed + int64(sceneIndex)*1_000_003))

	wide := types.CropRect{X: 0, Y: 0, W: 1, H: 1}
	tight := p.randomCrop(rng)

	zoomIn := sceneIndex%2 == 0
	start, end := wide, tight
	if !zoomIn {
		start, end = tight, wide
	}
	return types.EffectPlan{
		Kind:      types.EffectPanZoom,
		StartCrop: start,
		EndCrop:   end,
		ZoomIn:    zoomIn,
		Easing:    "linear",
	}
}

// randomCrop picks a uniformly-placed crop whose side keeps the crop area at
// or above the coverage floor.
func (p *Planner) randomCrop(rng *rand.Rand) types.CropRect {
	minSide := math.Sqrt(p.minCoverage)
	side := minSide + rng.Float64()*(0.96-minSide)
	return types.CropRect{
		X: rng.Float64() * (1 - side),
		Y: rng.Float64() * (1 - side),
		W: side,
		H: side,
	}
}

// planClip fits a clip's native duration to the window. Long clips are trimmed
// around their midpoint; short ones are slowed down when a bounded stretch
// covers the gap, looped otherwise. Clips carry their own motion, so no
// synthetic pan/zoom is added.
func (p *Planner) planClip(asset types.Asset, window types.TimelineWindow) types.EffectPlan {
	need := window.Duration().Seconds()
	native := asset.NativeDuration

	plan := types.EffectPlan{Kind: types.EffectStatic, StretchFactor: 1.0}

	switch {
	case native <= 0:
		// Unknown length; loop so the window never runs out of frames.
		plan.LoopClip = true
	case native >= need:
		offset := native/2 - need/2
		if offset < 0 {
			offset = 0
		}
		plan.ClipOffset = offset
	case native*p.maxStretch >= need:
		plan.StretchFactor = need / native
	default:
		plan.LoopClip = true
	}
	return plan
}
