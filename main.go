package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"storyreel/assembler"
	"storyreel/assets"
	"storyreel/config"
	"storyreel/effects"
	"storyreel/overlays"
	"storyreel/render"
	"storyreel/script"
	"storyreel/system"
)

func main() {
	// Load .env (local dev only — CI uses injected secrets)
	_ = godotenv.Load()

	scriptPath := flag.String("script", "", "Path to the script JSON")
	audioPath := flag.String("audio", "", "Path to the narration audio track")
	outPath := flag.String("out", "", "Output video path (default: <output dir>/<run id>.mp4)")
	profileName := flag.String("profile", "", "Render profile (overrides config)")
	configPath := flag.String("config", "config.yaml", "Path to the YAML config")
	flag.Parse()

	if *scriptPath == "" || *audioPath == "" {
		log.Fatal("Usage: storyreel -script script.json -audio narration.mp3 [-out video.mp4]")
	}

	cfg, err := config.Load(*configPath)
	if os.IsNotExist(err) {
		log.Printf("No config at %s, using defaults", *configPath)
		cfg = config.Default()
	} else if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *profileName != "" {
		cfg.Render.Profile = *profileName
	}

	profile, err := render.Profile(cfg.Render.Profile)
	if err != nil {
		log.Fatalf("Failed to resolve profile: %v", err)
	}

	raw, err := os.ReadFile(*scriptPath)
	if err != nil {
		log.Fatalf("Failed to read script: %v", err)
	}
	scr, err := script.Parse(raw)
	if err != nil {
		log.Fatalf("Failed to parse script: %v", err)
	}

	ctx := context.Background()

	audioDuration, err := system.AudioDuration(ctx, *audioPath)
	if err != nil {
		log.Fatalf("Failed to probe narration: %v", err)
	}

	output := *outPath
	if output == "" {
		if err := os.MkdirAll(cfg.Paths.Output, 0755); err != nil {
			log.Fatalf("Failed to create output dir: %v", err)
		}
		output = filepath.Join(cfg.Paths.Output, uuid.NewString()[:8]+".mp4")
	}

	log.Printf("🎬 Storyreel starting — %q, %d scenes, %v of narration", scr.Title, len(scr.Scenes), audioDuration)

	store, err := assets.New(ctx, cfg.Assets)
	if err != nil {
		log.Fatalf("Failed to open asset store: %v", err)
	}
	defer store.Close()

	overlayPlanner, err := overlays.NewPlanner(cfg.Overlays, workTempDir(cfg))
	if err != nil {
		log.Fatalf("Failed to build overlay planner: %v", err)
	}

	compositor, err := render.New(ctx, cfg.Render, workTempDir(cfg))
	if err != nil {
		log.Fatalf("Failed to build compositor: %v", err)
	}

	workers := cfg.Render.Workers
	if workers <= 0 {
		workers = system.Workers()
	}

	engine := assembler.New(cfg, store, effects.NewPlanner(cfg.Effects), overlayPlanner, compositor, profile, workers)
	meta, err := engine.Run(ctx, scr, *audioPath, audioDuration, output)
	if err != nil {
		log.Fatalf("❌ Render failed: %v", err)
	}

	summary, _ := json.MarshalIndent(meta, "", "  ")
	log.Printf("✅ Render complete! %s\n%s", meta.OutputPath, summary)
}

func workTempDir(cfg *config.Config) string {
	if cfg.Paths.Temp != "" {
		return cfg.Paths.Temp
	}
	return filepath.Join(os.TempDir(), "storyreel")
}
