// Package overlays derives the timed text and graphic overlays for each
// scene: the opening title card, lower-third callouts for numeric claims, and
// an optional QR end card on the closing scene.
package overlays

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	qrcode "github.com/skip2/go-qrcode"

	"storyreel/config"
	"storyreel/types"
)

// claimPattern matches the statistic shapes worth calling out on screen:
// percentages, rankings, and large rounded quantities.
var claimPattern = regexp.MustCompile(
	`(?i)\d+(?:\.\d+)?\s*(?:%|percent)` +
		`|#\d+` +
		`|\bnumber\s+\d+\b` +
		`|\b\d+(?:st|nd|rd|th)\b` +
		`|\b\d[\d,]*(?:\.\d+)?\s*(?:thousand|million|billion|trillion)\b`,
)

// Planner derives overlays. Plan is pure; the QR end card, when configured,
// is rendered once at construction time.
type Planner struct {
	margin   time.Duration
	titleMax time.Duration
	qrPath   string // empty when no end card is configured
}

// NewPlanner builds a planner, writing the end-card QR image under workDir if
// an end-card URL is configured.
func NewPlanner(cfg config.OverlaysConfig, workDir string) (*Planner, error) {
	p := &Planner{
		margin:   time.Duration(cfg.MarginSec * float64(time.Second)),
		titleMax: time.Duration(cfg.TitleCardMaxSec * float64(time.Second)),
	}
	if cfg.EndCardURL != "" {
		if err := os.MkdirAll(workDir, 0755); err != nil {
			return nil, fmt.Errorf("overlay work dir: %w", err)
		}
		path := filepath.Join(workDir, "end_card_qr.png")
		if err := qrcode.WriteFile(cfg.EndCardURL, qrcode.Medium, 512, path); err != nil {
			return nil, fmt.Errorf("render end-card QR: %w", err)
		}
		p.qrPath = path
	}
	return p, nil
}

// Plan emits the overlays for one scene. Start offsets are relative to the
// scene's own window. Scenes too short to hold the cut margins get nothing.
func (p *Planner) Plan(title string, scene types.Scene, window types.TimelineWindow, lastScene bool) []types.OverlaySpec {
	usable := window.Duration() - 2*p.margin
	if usable <= 0 {
		return nil
	}

	var specs []types.OverlaySpec

	if scene.Index == 0 && title != "" {
		dur := p.titleMax
		if dur > usable {
			dur = usable
		}
		specs = append(specs, types.OverlaySpec{
			Text:     title,
			Start:    p.margin,
			Duration: dur,
			Style:    "title_card",
		})
	}

	if claim := findClaim(scene); claim != "" {
		specs = append(specs, types.OverlaySpec{
			Text:     claim,
			Start:    p.margin,
			Duration: usable,
			Style:    "lower_third",
		})
	}

	if lastScene && p.qrPath != "" {
		specs = append(specs, types.OverlaySpec{
			ImagePath: p.qrPath,
			Start:     p.margin,
			Duration:  usable,
			Style:     "end_card",
		})
	}
	return specs
}

// findClaim returns the first statistic-like phrase in the scene's text, the
// narration taking priority over the visual hint.
func findClaim(scene types.Scene) string {
	if m := claimPattern.FindString(scene.Narration); m != "" {
		return m
	}
	return claimPattern.FindString(scene.VisualHint)
}
