// Package system probes the host: CPU/memory for worker sizing, available
// ffmpeg encoders, and media durations via ffprobe.
package system

import (
	"context"
	"fmt"
	"log"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// Workers sizes the asset-resolution pool from host CPU and memory, clamped
// to the 4–8 band. Downloads are I/O-bound, so the count may exceed cores on
// small hosts, but memory pressure still caps it.
func Workers() int {
	workers := 4

	if counts, err := cpu.Counts(true); err == nil && counts > 4 {
		workers = counts
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		// Roughly one worker per GiB of available memory.
		byMem := int(vm.Available / (1 << 30))
		if byMem > 0 && byMem < workers {
			workers = byMem
		}
	}

	if workers < 4 {
		workers = 4
	}
	if workers > 8 {
		workers = 8
	}
	return workers
}

// hardware encoders in preference order, then the software fallback
var encoderPreference = []string{"h264_nvenc", "h264_qsv", "h264_videotoolbox", "h264_vaapi", "libx264"}

// DetectEncoder picks the best available H.264 encoder on this host by asking
// ffmpeg for its encoder list. Falls back to libx264 when nothing better is
// found or ffmpeg cannot be queried.
func DetectEncoder(ctx context.Context) string {
	out, err := exec.CommandContext(ctx, "ffmpeg", "-hide_banner", "-encoders").Output()
	if err != nil {
		log.Printf("[system] ffmpeg encoder query failed, using libx264: %v", err)
		return "libx264"
	}
	listing := string(out)
	for _, enc := range encoderPreference {
		if strings.Contains(listing, " "+enc+" ") {
			return enc
		}
	}
	return "libx264"
}

// AudioDuration reads a media file's duration with ffprobe.
func AudioDuration(ctx context.Context, path string) (time.Duration, error) {
	out, err := exec.CommandContext(ctx, "ffprobe",
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "csv=p=0",
		path,
	).Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe %s: %w", path, err)
	}
	seconds, err := strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
	if err != nil {
		return 0, fmt.Errorf("ffprobe %s: unparseable duration %q", path, strings.TrimSpace(string(out)))
	}
	return time.Duration(seconds * float64(time.Second)), nil
}
