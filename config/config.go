package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Assets   AssetsConfig   `yaml:"assets"`
	Timeline TimelineConfig `yaml:"timeline"`
	Effects  EffectsConfig  `yaml:"effects"`
	Overlays OverlaysConfig `yaml:"overlays"`
	Render   RenderConfig   `yaml:"render"`
	Paths    PathsConfig    `yaml:"paths"`
}

type AssetsConfig struct {
	CacheDir           string  `yaml:"cache_dir"`
	FallbackAsset      string  `yaml:"fallback_asset"`       // local image/clip used when a scene's asset cannot be resolved
	MaxAttempts        int     `yaml:"max_attempts"`         // download attempts per asset
	RetryBaseSec       float64 `yaml:"retry_base_sec"`       // first backoff delay; doubles each attempt
	DownloadTimeoutSec float64 `yaml:"download_timeout_sec"` // per attempt
	ImageWidth         int     `yaml:"image_width"`
	ImageHeight        int     `yaml:"image_height"`
}

type TimelineConfig struct {
	WordsPerMinute int `yaml:"words_per_minute"` // informational; proportional mode only needs relative weights
}

type EffectsConfig struct {
	Seed             int64   `yaml:"seed"`               // base seed for pan/zoom randomization
	MinCropCoverage  float64 `yaml:"min_crop_coverage"`  // fraction of frame a crop must cover
	CrossfadeSec     float64 `yaml:"crossfade_sec"`      // default transition length
	MaxStretchFactor float64 `yaml:"max_stretch_factor"` // bound for slowing short clips
}

type OverlaysConfig struct {
	MarginSec       float64 `yaml:"margin_sec"`        // inset from scene cuts
	TitleCardMaxSec float64 `yaml:"title_card_max_sec"`
	EndCardURL      string  `yaml:"end_card_url"` // when set, the last scene gets a QR end card
}

type RenderConfig struct {
	Profile string `yaml:"profile"` // longform_1080p30 | shorts_1080x1920x30
	Encoder string `yaml:"encoder"` // "auto" probes the host; "" uses the profile codec; otherwise an ffmpeg encoder name
	CRF     int    `yaml:"crf"`
	Workers int    `yaml:"workers"` // 0 = size from host CPU/memory
}

type PathsConfig struct {
	Output string `yaml:"output"`
	Temp   string `yaml:"temp"`
}

// Load reads a YAML config file and fills unset fields with defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns a complete working configuration.
func Default() *Config {
	return &Config{
		Assets: AssetsConfig{
			CacheDir:           "cache/assets",
			MaxAttempts:        3,
			RetryBaseSec:       2.0,
			DownloadTimeoutSec: 60.0,
			ImageWidth:         1920,
			ImageHeight:        1080,
		},
		Timeline: TimelineConfig{
			WordsPerMinute: 150,
		},
		Effects: EffectsConfig{
			Seed:             1042,
			MinCropCoverage:  0.70,
			CrossfadeSec:     0.4,
			MaxStretchFactor: 1.3,
		},
		Overlays: OverlaysConfig{
			MarginSec:       0.3,
			TitleCardMaxSec: 3.0,
		},
		Render: RenderConfig{
			Profile: "longform_1080p30",
			Encoder: "auto",
			CRF:     22,
		},
		Paths: PathsConfig{
			Output: "output",
			Temp:   "",
		},
	}
}

// Validate rejects configurations the engine cannot run with.
func (c *Config) Validate() error {
	if c.Assets.MaxAttempts < 1 {
		return fmt.Errorf("assets.max_attempts must be >= 1, got %d", c.Assets.MaxAttempts)
	}
	if c.Effects.MinCropCoverage <= 0 || c.Effects.MinCropCoverage > 1 {
		return fmt.Errorf("effects.min_crop_coverage must be in (0, 1], got %.2f", c.Effects.MinCropCoverage)
	}
	if c.Effects.MaxStretchFactor < 1 {
		return fmt.Errorf("effects.max_stretch_factor must be >= 1, got %.2f", c.Effects.MaxStretchFactor)
	}
	if c.Overlays.MarginSec < 0 {
		return fmt.Errorf("overlays.margin_sec must be >= 0, got %.2f", c.Overlays.MarginSec)
	}
	return nil
}
