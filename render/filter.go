package render

import (
	"fmt"
	"strings"

	"storyreel/types"
)

// fitFilter letterboxes any source into the target frame. Stills are fitted
// at double resolution first so zoompan has pixels to move through without
// visible stair-stepping.
func fitFilter(width, height, scale int) string {
	w, h := width*scale, height*scale
	return fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2", w, h, w, h)
}

// zoompanFilter renders a Ken Burns move as a zoompan whose zoom and crop
// position interpolate linearly from the start crop to the end crop over the
// segment's frames.
func zoompanFilter(plan types.EffectPlan, profile types.OutputProfile, seconds float64) string {
	frames := int(seconds * float64(profile.FPS))
	if frames < 2 {
		frames = 2
	}
	steps := frames - 1

	z0 := 1.0 / plan.StartCrop.W
	z1 := 1.0 / plan.EndCrop.W

	return fmt.Sprintf(
		"zoompan=z='%.4f+(%.4f)*on/%d'"+
			":x='(%.4f+(%.4f)*on/%d)*iw'"+
			":y='(%.4f+(%.4f)*on/%d)*ih'"+
			":d=%d:s=%dx%d:fps=%d",
		z0, z1-z0, steps,
		plan.StartCrop.X, plan.EndCrop.X-plan.StartCrop.X, steps,
		plan.StartCrop.Y, plan.EndCrop.Y-plan.StartCrop.Y, steps,
		frames, profile.Width, profile.Height, profile.FPS,
	)
}

// escapeDrawtext quotes the characters the drawtext filter treats specially.
func escapeDrawtext(s string) string {
	r := strings.NewReplacer(
		`\`, `\\`,
		`'`, `\'`,
		`:`, `\:`,
		`%`, `\%`,
	)
	return r.Replace(s)
}

// drawtextFilter places one text overlay. Title cards sit centered in the
// upper third; lower thirds sit in a band above the bottom edge.
func drawtextFilter(spec types.OverlaySpec, profile types.OutputProfile) string {
	var y string
	size := profile.Height / 12
	switch spec.Style {
	case "title_card":
		y = "(h-text_h)/3"
		size = profile.Height / 9
	default: // lower_third
		y = "h-text_h-h/8"
	}

	start := spec.Start.Seconds()
	end := (spec.Start + spec.Duration).Seconds()
	return fmt.Sprintf(
		"drawtext=text='%s':font=Sans:fontsize=%d:fontcolor=white:borderw=3:bordercolor=black:x=(w-text_w)/2:y=%s:enable='between(t,%.3f,%.3f)'",
		escapeDrawtext(spec.Text), size, y, start, end,
	)
}

// overlayImageFilter composites a graphic overlay (the QR end card) from a
// secondary input, bottom-right with a small inset.
func overlayImageFilter(spec types.OverlaySpec, inputIndex int, profile types.OutputProfile) string {
	side := profile.Height / 5
	start := spec.Start.Seconds()
	end := (spec.Start + spec.Duration).Seconds()
	return fmt.Sprintf(
		"[%d:v]scale=%d:%d[qr];[base][qr]overlay=W-w-%d:H-h-%d:enable='between(t,%.3f,%.3f)'",
		inputIndex, side, side, side/4, side/4, start, end,
	)
}

// segmentFilterGraph assembles the full -filter_complex for one segment:
// effect, letterboxing, frame rate, then overlays. hasImageOverlay reports
// whether the command needs the graphic overlay as a second input.
func segmentFilterGraph(seg types.Segment, profile types.OutputProfile, seconds float64) (graph string, hasImageOverlay bool) {
	var chain []string

	if seg.Effect.Kind == types.EffectPanZoom {
		chain = append(chain, fitFilter(profile.Width, profile.Height, 2))
		chain = append(chain, zoompanFilter(seg.Effect, profile, seconds))
	} else {
		if seg.Effect.StretchFactor > 1 {
			chain = append(chain, fmt.Sprintf("setpts=%.4f*PTS", seg.Effect.StretchFactor))
		}
		chain = append(chain, fitFilter(profile.Width, profile.Height, 1))
		chain = append(chain, fmt.Sprintf("fps=%d", profile.FPS))
		// Clip material is fitted to the window, but the encode runs long by
		// the next crossfade's tail. Clone the last frame through that tail so
		// the stream always reaches the xfade junction.
		if tail := seconds - seg.Window.Duration().Seconds(); tail > 0.0005 {
			chain = append(chain, fmt.Sprintf("tpad=stop_mode=clone:stop_duration=%.3f", tail))
		}
	}
	chain = append(chain, "format=yuv420p")

	var imageOverlay *types.OverlaySpec
	for i := range seg.Overlays {
		spec := seg.Overlays[i]
		if spec.ImagePath != "" {
			imageOverlay = &seg.Overlays[i]
			continue
		}
		chain = append(chain, drawtextFilter(spec, profile))
	}

	graph = "[0:v]" + strings.Join(chain, ",")
	if imageOverlay != nil {
		graph += "[base];" + overlayImageFilter(*imageOverlay, 1, profile)
		hasImageOverlay = true
	}
	graph += "[v]"
	return graph, hasImageOverlay
}

// xfadeGraph chains segment files with crossfades. Each junction's offset is
// the accumulated window time, so fades consume the extra tail each segment
// carries and the total duration stays the sum of the windows.
func xfadeGraph(segments []types.Segment) (graph, lastLabel string) {
	lastLabel = "[0:v]"
	var b strings.Builder
	for i := 1; i < len(segments); i++ {
		fade := segments[i].Effect.CrossfadeIn.Seconds()
		out := fmt.Sprintf("[v%d]", i)
		fmt.Fprintf(&b, "%s[%d:v]xfade=transition=fade:duration=%.3f:offset=%.3f%s;",
			lastLabel, i, fade, segments[i].Window.Start.Seconds(), out)
		lastLabel = out
	}
	return strings.TrimSuffix(b.String(), ";"), lastLabel
}
