package timeline

import (
	"errors"
	"strings"
	"testing"
	"time"

	"storyreel/types"
)

func makeScenes(fragments ...string) []types.Scene {
	scenes := make([]types.Scene, len(fragments))
	for i, f := range fragments {
		scenes[i] = types.Scene{Index: i, Narration: f}
	}
	return scenes
}

func checkPartition(t *testing.T, windows []types.TimelineWindow, total time.Duration) {
	t.Helper()
	if windows[0].Start != 0 {
		t.Errorf("first window starts at %v, want 0", windows[0].Start)
	}
	if windows[len(windows)-1].End != total {
		t.Errorf("last window ends at %v, want %v", windows[len(windows)-1].End, total)
	}
	for i := 1; i < len(windows); i++ {
		if windows[i].Start != windows[i-1].End {
			t.Errorf("window %d starts at %v but previous ends at %v", i, windows[i].Start, windows[i-1].End)
		}
		if windows[i].End <= windows[i].Start {
			t.Errorf("window %d is empty or inverted: [%v, %v)", i, windows[i].Start, windows[i].End)
		}
	}
}

func TestAllocateEqualScenes(t *testing.T) {
	// Three equal-length fragments over 30s must yield [0,10), [10,20), [20,30).
	scenes := makeScenes(
		"one two three four five",
		"six seven eight nine ten",
		"alpha beta gamma delta epsilon",
	)

	windows, err := Allocate(scenes, 30*time.Second)
	if err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}
	if len(windows) != 3 {
		t.Fatalf("expected 3 windows, got %d", len(windows))
	}
	checkPartition(t, windows, 30*time.Second)

	want := []time.Duration{10 * time.Second, 20 * time.Second, 30 * time.Second}
	for i, w := range windows {
		if w.End != want[i] {
			t.Errorf("window %d ends at %v, want %v", i, w.End, want[i])
		}
	}
}

func TestAllocateZeroDuration(t *testing.T) {
	_, err := Allocate(makeScenes("hello"), 0)
	if !errors.Is(err, types.ErrInvalidDuration) {
		t.Fatalf("expected ErrInvalidDuration, got %v", err)
	}
	_, err = Allocate(makeScenes("hello"), -time.Second)
	if !errors.Is(err, types.ErrInvalidDuration) {
		t.Fatalf("expected ErrInvalidDuration for negative total, got %v", err)
	}
}

func TestAllocateSingleScene(t *testing.T) {
	windows, err := Allocate(makeScenes("only one scene here"), 42*time.Second)
	if err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}
	if len(windows) != 1 {
		t.Fatalf("expected 1 window, got %d", len(windows))
	}
	if windows[0].Start != 0 || windows[0].End != 42*time.Second {
		t.Errorf("window = [%v, %v), want [0, 42s)", windows[0].Start, windows[0].End)
	}
}

func TestAllocateNoDriftWithAwkwardCounts(t *testing.T) {
	// 7 scenes with prime-ish word counts against a total that does not divide
	// evenly: the partition must still be exact.
	fragments := []string{
		"a b c", "d e f g h", "i j", "k l m n o p q", "r", "s t u v", "w x y z a b",
	}
	total := 37*time.Second + 123*time.Millisecond

	windows, err := Allocate(makeScenes(fragments...), total)
	if err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}
	if len(windows) != len(fragments) {
		t.Fatalf("expected %d windows, got %d", len(fragments), len(windows))
	}
	checkPartition(t, windows, total)
}

func TestAllocateWordCountMonotonicity(t *testing.T) {
	// Doubling one scene's word count must strictly grow its share.
	base := makeScenes("one two three four", "five six seven eight", "nine ten eleven twelve")
	windows1, err := Allocate(base, time.Minute)
	if err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}

	doubled := makeScenes(
		"one two three four",
		strings.Repeat("word ", 8),
		"nine ten eleven twelve",
	)
	windows2, err := Allocate(doubled, time.Minute)
	if err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}

	if windows2[1].Duration() <= windows1[1].Duration() {
		t.Errorf("doubled scene did not grow: %v -> %v", windows1[1].Duration(), windows2[1].Duration())
	}
}

func ts(v float64) *float64 { return &v }

func TestAllocateExplicitMode(t *testing.T) {
	scenes := []types.Scene{
		{Index: 0, Narration: "a", Timestamp: ts(0)},
		{Index: 1, Narration: "b", Timestamp: ts(8)},
		{Index: 2, Narration: "c", Timestamp: ts(21)},
	}

	windows, err := Allocate(scenes, 30*time.Second)
	if err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}
	checkPartition(t, windows, 30*time.Second)

	if windows[0].End != 8*time.Second {
		t.Errorf("window 0 ends at %v, want 8s", windows[0].End)
	}
	if windows[1].End != 21*time.Second {
		t.Errorf("window 1 ends at %v, want 21s", windows[1].End)
	}
	if windows[2].End != 30*time.Second {
		t.Errorf("final window not clamped to total: %v", windows[2].End)
	}
}

func TestAllocatePartialTimestampsFallBack(t *testing.T) {
	// One missing timestamp disables explicit mode entirely.
	scenes := []types.Scene{
		{Index: 0, Narration: "aa bb", Timestamp: ts(0)},
		{Index: 1, Narration: "cc dd"},
		{Index: 2, Narration: "ee ff", Timestamp: ts(20)},
	}

	windows, err := Allocate(scenes, 30*time.Second)
	if err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}
	checkPartition(t, windows, 30*time.Second)

	// Equal word counts → proportional mode gives equal thirds, which the
	// explicit stamps (0, -, 20) would not.
	if windows[0].End != 10*time.Second {
		t.Errorf("expected proportional fallback, window 0 ends at %v", windows[0].End)
	}
}

func TestAllocateBadExplicitSequencesFallBack(t *testing.T) {
	tests := []struct {
		name   string
		stamps []float64
	}{
		{"not increasing", []float64{0, 12, 12}},
		{"first not zero", []float64{2, 10, 20}},
		{"beyond total", []float64{0, 10, 40}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scenes := make([]types.Scene, len(tt.stamps))
			for i, v := range tt.stamps {
				scenes[i] = types.Scene{Index: i, Narration: "x y z", Timestamp: ts(v)}
			}
			windows, err := Allocate(scenes, 30*time.Second)
			if err != nil {
				t.Fatalf("Allocate failed: %v", err)
			}
			checkPartition(t, windows, 30*time.Second)
			// Proportional fallback: equal word counts give equal windows.
			if windows[0].Duration() != 10*time.Second {
				t.Errorf("expected proportional fallback, got first window %v", windows[0].Duration())
			}
		})
	}
}
