package system

import "testing"

func TestWorkersStaysInBand(t *testing.T) {
	w := Workers()
	if w < 4 || w > 8 {
		t.Errorf("Workers() = %d, want between 4 and 8", w)
	}
}
