package overlays

import (
	"os"
	"testing"
	"time"

	"storyreel/config"
	"storyreel/types"
)

func newTestPlanner(t *testing.T, endCardURL string) *Planner {
	t.Helper()
	cfg := config.Default().Overlays
	cfg.EndCardURL = endCardURL
	p, err := NewPlanner(cfg, t.TempDir())
	if err != nil {
		t.Fatalf("NewPlanner failed: %v", err)
	}
	return p
}

func window(start, end time.Duration) types.TimelineWindow {
	return types.TimelineWindow{Start: start, End: end}
}

func TestFirstSceneGetsTitleCard(t *testing.T) {
	p := newTestPlanner(t, "")
	scene := types.Scene{Index: 0, Narration: "It began on a quiet morning."}

	specs := p.Plan("The Vanishing Train", scene, window(0, 10*time.Second), false)
	if len(specs) != 1 {
		t.Fatalf("got %d overlays, want 1 title card", len(specs))
	}
	card := specs[0]
	if card.Style != "title_card" || card.Text != "The Vanishing Train" {
		t.Errorf("unexpected title card: %+v", card)
	}
	if card.Duration != 3*time.Second {
		t.Errorf("title card duration = %v, want 3s", card.Duration)
	}
}

func TestTitleCardShrinksToShortScenes(t *testing.T) {
	p := newTestPlanner(t, "")
	specs := p.Plan("Title", types.Scene{Index: 0, Narration: "Brief."}, window(0, 2*time.Second), false)
	if len(specs) != 1 {
		t.Fatalf("got %d overlays, want 1", len(specs))
	}
	// 2s window minus 0.3s margin on each side leaves 1.4s.
	if specs[0].Duration != 1400*time.Millisecond {
		t.Errorf("title card duration = %v, want 1.4s", specs[0].Duration)
	}
}

func TestNumericClaimsGetLowerThirds(t *testing.T) {
	p := newTestPlanner(t, "")
	tests := []struct {
		narration string
		want      bool
	}{
		{"Over 90% of the passengers never boarded.", true},
		{"It was ranked #3 in the country.", true},
		{"The 2nd attempt succeeded.", true},
		{"Nearly 4 million viewers tuned in.", true},
		{"The fog rolled in from the harbor.", false},
	}
	for _, tt := range tests {
		scene := types.Scene{Index: 1, Narration: tt.narration}
		specs := p.Plan("", scene, window(0, 10*time.Second), false)
		got := len(specs) == 1 && specs[0].Style == "lower_third"
		if got != tt.want {
			t.Errorf("narration %q: lower third emitted = %v, want %v", tt.narration, got, tt.want)
		}
	}
}

func TestOverlaysRespectCutMargins(t *testing.T) {
	p := newTestPlanner(t, "https://example.com/subscribe")
	win := window(20*time.Second, 29*time.Second)
	scene := types.Scene{Index: 4, Narration: "A full 75% were recovered."}

	for _, spec := range p.Plan("Title", scene, win, true) {
		if spec.Start < 300*time.Millisecond {
			t.Errorf("%s starts %v into the window, inside the 0.3s margin", spec.Style, spec.Start)
		}
		if end := spec.Start + spec.Duration; end > win.Duration()-300*time.Millisecond {
			t.Errorf("%s ends %v into a %v window, inside the end margin", spec.Style, end, win.Duration())
		}
	}
}

func TestShortScenesGetNoOverlays(t *testing.T) {
	p := newTestPlanner(t, "https://example.com")
	scene := types.Scene{Index: 0, Narration: "100% true."}

	// 0.5s window cannot hold two 0.3s margins.
	if specs := p.Plan("Title", scene, window(0, 500*time.Millisecond), true); len(specs) != 0 {
		t.Errorf("overlays emitted for a sub-margin scene: %+v", specs)
	}
}

func TestLastSceneGetsQREndCard(t *testing.T) {
	p := newTestPlanner(t, "https://example.com/subscribe")
	scene := types.Scene{Index: 7, Narration: "And that is where the trail ends."}

	specs := p.Plan("", scene, window(0, 8*time.Second), true)
	if len(specs) != 1 || specs[0].Style != "end_card" {
		t.Fatalf("expected a single end card, got %+v", specs)
	}
	if _, err := os.Stat(specs[0].ImagePath); err != nil {
		t.Errorf("end card image missing: %v", err)
	}
}

func TestNoEndCardWithoutURL(t *testing.T) {
	p := newTestPlanner(t, "")
	specs := p.Plan("", types.Scene{Index: 3, Narration: "The end."}, window(0, 8*time.Second), true)
	if len(specs) != 0 {
		t.Errorf("end card emitted with no URL configured: %+v", specs)
	}
}
