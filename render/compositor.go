// Package render is the compositor: it turns an ordered list of planned
// segments plus the narration track into one output file via ffmpeg.
package render

import (
	"context"
	"fmt"
	"log"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"storyreel/config"
	"storyreel/system"
	"storyreel/types"
)

// Compositor renders jobs sequentially. A single instance may serve multiple
// jobs, but each Render call is single-threaded by design: crossfades need
// every segment on disk before the final chain runs.
type Compositor struct {
	encoder  string
	crf      int
	tempRoot string
}

// New resolves the encoder ("auto" probes the host; empty defers to each
// job's profile codec) and prepares the temp root for intermediate segment
// files.
func New(ctx context.Context, cfg config.RenderConfig, tempRoot string) (*Compositor, error) {
	if tempRoot == "" {
		tempRoot = os.TempDir()
	}
	if err := os.MkdirAll(tempRoot, 0755); err != nil {
		return nil, fmt.Errorf("temp root: %w", err)
	}

	encoder := cfg.Encoder
	if encoder == "auto" {
		encoder = system.DetectEncoder(ctx)
		log.Printf("[render] Using %s encoder", encoder)
	}
	return &Compositor{encoder: encoder, crf: cfg.CRF, tempRoot: tempRoot}, nil
}

// encoderFor returns the configured encoder, or the profile's codec when the
// configuration leaves the choice to the profile.
func (c *Compositor) encoderFor(profile types.OutputProfile) string {
	if c.encoder != "" {
		return c.encoder
	}
	return profile.VideoCodec
}

// Render produces the output file for one job. Any failure is fatal: the
// partial output is removed and the error wraps ErrRenderFailure.
func (c *Compositor) Render(ctx context.Context, job types.RenderJob) (string, error) {
	if len(job.Segments) == 0 {
		return "", fmt.Errorf("%w: job %s has no segments", types.ErrRenderFailure, job.ID)
	}

	workDir := filepath.Join(c.tempRoot, "render-"+job.ID)
	if err := os.MkdirAll(workDir, 0755); err != nil {
		return "", fmt.Errorf("%w: %v", types.ErrRenderFailure, err)
	}
	defer os.RemoveAll(workDir)

	if err := os.MkdirAll(filepath.Dir(job.OutputPath), 0755); err != nil {
		return "", fmt.Errorf("%w: %v", types.ErrRenderFailure, err)
	}

	segPaths := make([]string, len(job.Segments))
	for i := range job.Segments {
		path := filepath.Join(workDir, fmt.Sprintf("seg_%03d.mp4", i))
		if err := c.renderSegment(ctx, job, i, path); err != nil {
			return "", fmt.Errorf("%w: segment %d: %v", types.ErrRenderFailure, i, err)
		}
		segPaths[i] = path
		log.Printf("[render] Job %s: segment %d/%d done", job.ID, i+1, len(job.Segments))
	}

	if err := c.assemble(ctx, job, segPaths); err != nil {
		os.Remove(job.OutputPath)
		return "", fmt.Errorf("%w: %v", types.ErrRenderFailure, err)
	}

	if err := c.verifyDuration(ctx, job); err != nil {
		os.Remove(job.OutputPath)
		return "", fmt.Errorf("%w: %v", types.ErrRenderFailure, err)
	}
	return job.OutputPath, nil
}

// segmentSeconds is the encode length for segment i: its own window plus the
// tail the next crossfade will consume.
func segmentSeconds(job types.RenderJob, i int) float64 {
	seconds := job.Segments[i].Window.Duration().Seconds()
	if i+1 < len(job.Segments) {
		seconds += job.Segments[i+1].Effect.CrossfadeIn.Seconds()
	}
	return seconds
}

// renderSegment encodes one scene's visuals to a silent fixed-length file at
// the target resolution.
func (c *Compositor) renderSegment(ctx context.Context, job types.RenderJob, i int, dest string) error {
	seg := job.Segments[i]
	seconds := segmentSeconds(job, i)
	graph, hasImageOverlay := segmentFilterGraph(seg, job.Profile, seconds)

	args := []string{"-y", "-v", "error"}
	switch {
	case seg.Effect.Kind == types.EffectPanZoom:
		args = append(args, "-loop", "1", "-t", formatSeconds(seconds), "-i", seg.Asset.LocalPath)
	case seg.Effect.LoopClip:
		args = append(args, "-stream_loop", "-1", "-i", seg.Asset.LocalPath)
	default:
		if seg.Effect.ClipOffset > 0 {
			args = append(args, "-ss", formatSeconds(seg.Effect.ClipOffset))
		}
		args = append(args, "-i", seg.Asset.LocalPath)
	}
	if hasImageOverlay {
		args = append(args, "-i", imageOverlayPath(seg))
	}

	args = append(args,
		"-filter_complex", graph,
		"-map", "[v]",
		"-an",
		"-t", formatSeconds(seconds),
		"-c:v", c.encoderFor(job.Profile),
		"-b:v", job.Profile.VideoBitrate,
		"-crf", strconv.Itoa(c.crf),
		"-pix_fmt", "yuv420p",
		dest,
	)

	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("ffmpeg: %v: %s", err, lastLine(out))
	}
	return nil
}

// assemble chains the segments (crossfaded or plain-concatenated) and muxes
// the narration track.
func (c *Compositor) assemble(ctx context.Context, job types.RenderJob, segPaths []string) error {
	hasFades := false
	for _, seg := range job.Segments[1:] {
		if seg.Effect.CrossfadeIn > 0 {
			hasFades = true
			break
		}
	}
	if len(segPaths) > 1 && hasFades {
		return c.assembleXfade(ctx, job, segPaths)
	}
	return c.assembleConcat(ctx, job, segPaths)
}

func (c *Compositor) assembleXfade(ctx context.Context, job types.RenderJob, segPaths []string) error {
	args := []string{"-y", "-v", "error"}
	for _, p := range segPaths {
		args = append(args, "-i", p)
	}
	audioIndex := len(segPaths)
	args = append(args, "-i", job.AudioPath)

	graph, lastLabel := xfadeGraph(job.Segments)
	args = append(args,
		"-filter_complex", graph,
		"-map", lastLabel,
		"-map", fmt.Sprintf("%d:a", audioIndex),
	)
	args = append(args, c.muxArgs(job)...)
	args = append(args, job.OutputPath)

	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("ffmpeg xfade: %v: %s", err, lastLine(out))
	}
	return nil
}

// assembleConcat is the no-transition path: a concat list file and a single
// re-encode pass for the audio mux.
func (c *Compositor) assembleConcat(ctx context.Context, job types.RenderJob, segPaths []string) error {
	listPath := filepath.Join(filepath.Dir(segPaths[0]), "concat.txt")
	var b strings.Builder
	for _, p := range segPaths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return err
		}
		fmt.Fprintf(&b, "file '%s'\n", abs)
	}
	if err := os.WriteFile(listPath, []byte(b.String()), 0644); err != nil {
		return err
	}

	args := []string{"-y", "-v", "error",
		"-f", "concat", "-safe", "0", "-i", listPath,
		"-i", job.AudioPath,
		"-map", "0:v", "-map", "1:a",
	}
	args = append(args, c.muxArgs(job)...)
	args = append(args, job.OutputPath)

	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("ffmpeg concat: %v: %s", err, lastLine(out))
	}
	return nil
}

// muxArgs are the shared output options for the final mux.
func (c *Compositor) muxArgs(job types.RenderJob) []string {
	return []string{
		"-c:v", c.encoderFor(job.Profile),
		"-b:v", job.Profile.VideoBitrate,
		"-crf", strconv.Itoa(c.crf),
		"-c:a", job.Profile.AudioCodec,
		"-b:a", job.Profile.AudioBitrate,
		"-r", strconv.Itoa(job.Profile.FPS),
		"-pix_fmt", "yuv420p",
		"-t", formatSeconds(job.AudioDuration.Seconds()),
		"-shortest",
		"-movflags", "+faststart",
	}
}

// verifyDuration checks the output length against the narration track. The
// tolerance is one frame interval.
func (c *Compositor) verifyDuration(ctx context.Context, job types.RenderJob) error {
	got, err := system.AudioDuration(ctx, job.OutputPath)
	if err != nil {
		return err
	}
	if !durationWithinFrame(got, job.AudioDuration, job.Profile) {
		return fmt.Errorf("output runs %v, narration runs %v (tolerance %v)",
			got, job.AudioDuration, job.Profile.FrameInterval())
	}
	return nil
}

// durationWithinFrame reports whether two durations differ by at most one
// frame interval of the profile.
func durationWithinFrame(got, want time.Duration, profile types.OutputProfile) bool {
	diff := got - want
	if diff < 0 {
		diff = -diff
	}
	return diff <= profile.FrameInterval()
}

func imageOverlayPath(seg types.Segment) string {
	for _, spec := range seg.Overlays {
		if spec.ImagePath != "" {
			return spec.ImagePath
		}
	}
	return ""
}

func formatSeconds(s float64) string {
	return strconv.FormatFloat(math.Round(s*1000)/1000, 'f', -1, 64)
}

func lastLine(out []byte) string {
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	return lines[len(lines)-1]
}
