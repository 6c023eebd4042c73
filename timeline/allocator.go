// Package timeline converts an ordered scene list plus a known narration
// length into a gap-free partition of the master timeline.
package timeline

import (
	"fmt"
	"log"
	"strings"
	"time"

	"storyreel/types"
)

// Allocate produces one TimelineWindow per scene. Windows are contiguous,
// non-overlapping and cover [0, total) exactly.
//
// Two modes are tried in order: explicit timestamps when every scene carries
// one and they form a valid increasing sequence starting at zero, otherwise
// durations proportional to each fragment's word count. AI-generated scripts
// rarely carry reliable timestamps, so proportional is the common path.
func Allocate(scenes []types.Scene, total time.Duration) ([]types.TimelineWindow, error) {
	if total <= 0 {
		return nil, fmt.Errorf("%w: total audio duration %v", types.ErrInvalidDuration, total)
	}
	if len(scenes) == 0 {
		return nil, fmt.Errorf("no scenes to allocate")
	}

	if windows, ok := allocateExplicit(scenes, total); ok {
		log.Printf("[timeline] Allocated %d windows from explicit timestamps", len(windows))
		return windows, nil
	}

	windows := allocateProportional(scenes, total)
	log.Printf("[timeline] Allocated %d windows proportionally over %v", len(windows), total)
	return windows, nil
}

// allocateExplicit derives windows from consecutive scene timestamps.
// It applies only when ALL scenes are timestamped, the sequence is strictly
// increasing, starts at zero, and stays inside the audio track. Partially
// timestamped scripts fall through to proportional mode.
func allocateExplicit(scenes []types.Scene, total time.Duration) ([]types.TimelineWindow, bool) {
	stamps := make([]time.Duration, len(scenes))
	for i, s := range scenes {
		if s.Timestamp == nil {
			return nil, false
		}
		stamps[i] = time.Duration(*s.Timestamp * float64(time.Second))
	}

	if stamps[0] != 0 {
		return nil, false
	}
	for i := 1; i < len(stamps); i++ {
		if stamps[i] <= stamps[i-1] {
			return nil, false
		}
	}
	if stamps[len(stamps)-1] >= total {
		return nil, false
	}

	windows := make([]types.TimelineWindow, len(scenes))
	for i := range scenes {
		end := total
		if i < len(scenes)-1 {
			end = stamps[i+1]
		}
		windows[i] = types.TimelineWindow{
			SceneIndex: scenes[i].Index,
			Start:      stamps[i],
			End:        end,
		}
	}
	return windows, true
}

// allocateProportional sizes each window by its fragment's word count, a cheap
// proxy for spoken duration at a fixed speaking rate. Floor values in whole
// milliseconds are allocated first; the remainder is handed out one millisecond
// per scene in order, so the partition is exact with no floating-point drift.
func allocateProportional(scenes []types.Scene, total time.Duration) []types.TimelineWindow {
	weights := make([]int64, len(scenes))
	var sum int64
	for i, s := range scenes {
		w := int64(len(strings.Fields(s.Narration)))
		if w < 1 {
			w = 1
		}
		weights[i] = w
		sum += w
	}

	totalMs := total.Milliseconds()
	durations := make([]int64, len(scenes))
	var allocated int64
	for i, w := range weights {
		durations[i] = totalMs * w / sum
		allocated += durations[i]
	}

	remainder := totalMs - allocated
	for i := 0; remainder > 0; i = (i + 1) % len(durations) {
		durations[i]++
		remainder--
	}

	windows := make([]types.TimelineWindow, len(scenes))
	var cursor int64
	for i := range scenes {
		windows[i] = types.TimelineWindow{
			SceneIndex: scenes[i].Index,
			Start:      time.Duration(cursor) * time.Millisecond,
			End:        time.Duration(cursor+durations[i]) * time.Millisecond,
		}
		cursor += durations[i]
	}
	// Absorb sub-millisecond audio tails into the last window so the
	// partition ends exactly at the audio duration.
	windows[len(windows)-1].End = total
	return windows
}
