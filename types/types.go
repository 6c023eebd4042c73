package types

import "time"

// Script is the strict, validated form of an AI-generated script.
// It is immutable once handed to the engine.
type Script struct {
	Title     string  `json:"title"`
	Narration string  `json:"narration"`
	Scenes    []Scene `json:"scenes"`
}

// Scene is one narrative unit: a narration fragment plus a visual hint.
type Scene struct {
	Index      int      `json:"index"`
	Narration  string   `json:"narration"`
	VisualHint string   `json:"visual_hint"`
	Timestamp  *float64 `json:"timestamp,omitempty"` // seconds offset; nil when the script has none
}

// SourceKind tells the store how an asset is obtained.
type SourceKind string

const (
	SourceRemoteClip     SourceKind = "remote_clip"
	SourceLocalClip      SourceKind = "local_clip"
	SourceGeneratedImage SourceKind = "generated_image"
)

// IsClip reports whether the asset carries its own motion.
func (k SourceKind) IsClip() bool {
	return k == SourceRemoteClip || k == SourceLocalClip
}

// Asset is a resolved visual source backing one scene.
type Asset struct {
	Kind           SourceKind `json:"kind"`
	Identifier     string     `json:"identifier"`
	LocalPath      string     `json:"local_path"`
	NativeDuration float64    `json:"native_duration,omitempty"` // seconds, clips only
	Width          int        `json:"width,omitempty"`
	Height         int        `json:"height,omitempty"`
}

// TimelineWindow is the half-open interval [Start, End) allocated to one scene.
// Windows produced by the allocator form an exact partition of the audio track.
type TimelineWindow struct {
	SceneIndex int           `json:"scene_index"`
	Start      time.Duration `json:"start"`
	End        time.Duration `json:"end"`
}

// Duration returns the window length.
func (w TimelineWindow) Duration() time.Duration {
	return w.End - w.Start
}

// EffectKind names the fixed effect vocabulary. Crossfades are not a kind of
// their own; every plan carries its own CrossfadeIn length.
type EffectKind string

const (
	EffectPanZoom EffectKind = "pan_zoom"
	EffectStatic  EffectKind = "static"
)

// CropRect is a crop window expressed as fractions of the asset frame.
type CropRect struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Area returns the fraction of the frame the crop covers.
func (c CropRect) Area() float64 {
	return c.W * c.H
}

// EffectPlan parameterizes the visual treatment of one scene.
type EffectPlan struct {
	Kind      EffectKind `json:"kind"`
	StartCrop CropRect   `json:"start_crop,omitempty"`
	EndCrop   CropRect   `json:"end_crop,omitempty"`
	ZoomIn    bool       `json:"zoom_in,omitempty"`
	Easing    string     `json:"easing,omitempty"`

	// Clip handling.
	ClipOffset    float64 `json:"clip_offset,omitempty"`    // seconds into the source clip
	LoopClip      bool    `json:"loop_clip,omitempty"`      // loop a short clip to fill the window
	StretchFactor float64 `json:"stretch_factor,omitempty"` // 1.0 = none, bounded by the planner

	// CrossfadeIn is the overlap with the previous segment; zero for the first scene.
	CrossfadeIn time.Duration `json:"crossfade_in,omitempty"`
}

// OverlaySpec is one timed text or graphic overlay inside a scene window.
type OverlaySpec struct {
	Text      string        `json:"text,omitempty"`
	ImagePath string        `json:"image_path,omitempty"`
	Start     time.Duration `json:"start"`
	Duration  time.Duration `json:"duration"`
	Style     string        `json:"style"` // title_card | lower_third | end_card
}

// Segment bundles everything the compositor needs for one scene.
type Segment struct {
	Window   TimelineWindow `json:"window"`
	Asset    Asset          `json:"asset"`
	Effect   EffectPlan     `json:"effect"`
	Overlays []OverlaySpec  `json:"overlays,omitempty"`
}

// RenderJob is the full input of one render call. It is never persisted.
type RenderJob struct {
	ID            string        `json:"id"`
	Segments      []Segment     `json:"segments"`
	AudioPath     string        `json:"audio_path"`
	AudioDuration time.Duration `json:"audio_duration"`
	Profile       OutputProfile `json:"profile"`
	OutputPath    string        `json:"output_path"`
}

// OutputProfile fixes resolution, frame rate and codecs for one render.
type OutputProfile struct {
	Name         string `json:"name"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	FPS          int    `json:"fps"`
	VideoCodec   string `json:"video_codec"`
	AudioCodec   string `json:"audio_codec"`
	VideoBitrate string `json:"video_bitrate"`
	AudioBitrate string `json:"audio_bitrate"`
}

// FrameInterval is the duration of a single frame under this profile.
func (p OutputProfile) FrameInterval() time.Duration {
	if p.FPS <= 0 {
		return 0
	}
	return time.Second / time.Duration(p.FPS)
}

// SceneAssetRecord records which asset ended up backing a scene.
type SceneAssetRecord struct {
	SceneIndex int    `json:"scene_index"`
	Identifier string `json:"identifier"`
	Fallback   bool   `json:"fallback"`
}

// RenderMetadata is returned to the caller after a successful render.
// It is diagnostic only and not required for correctness.
type RenderMetadata struct {
	RunID       string             `json:"run_id"`
	OutputPath  string             `json:"output_path"`
	DurationSec float64            `json:"duration_sec"`
	Profile     string             `json:"profile"`
	SceneAssets []SceneAssetRecord `json:"scene_assets"`
}
