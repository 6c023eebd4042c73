// Package script validates and coerces loose AI-generated script payloads
// into the strict shape the assembly engine consumes. Malformed payloads are
// rejected here, before any timeline or asset work starts.
package script

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"storyreel/types"
)

// loosePayload mirrors what the script generator actually emits: field names
// drift between versions and timestamps arrive as "m:ss" strings or numbers.
type loosePayload struct {
	Title     string       `json:"title"`
	Script    string       `json:"script"`
	Narration string       `json:"narration"`
	Scenes    []looseScene `json:"scenes"`
}

type looseScene struct {
	Timestamp        json.RawMessage `json:"timestamp"`
	Narration        string          `json:"narration"`
	VisualSuggestion string          `json:"visual_suggestion"`
	VisualHint       string          `json:"visual_hint"`
}

// Parse coerces a raw script payload into a validated Script.
func Parse(data []byte) (*types.Script, error) {
	var raw loosePayload
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("malformed script payload: %w", err)
	}

	if len(raw.Scenes) == 0 {
		return nil, fmt.Errorf("script has no scenes")
	}

	narration := strings.TrimSpace(raw.Narration)
	if narration == "" {
		narration = strings.TrimSpace(raw.Script)
	}

	scenes := make([]types.Scene, 0, len(raw.Scenes))
	var fragments []string
	for i, rs := range raw.Scenes {
		frag := strings.TrimSpace(rs.Narration)
		if frag == "" {
			return nil, fmt.Errorf("scene %d has empty narration", i)
		}
		fragments = append(fragments, frag)

		hint := strings.TrimSpace(rs.VisualHint)
		if hint == "" {
			hint = strings.TrimSpace(rs.VisualSuggestion)
		}

		ts, err := parseTimestamp(rs.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("scene %d: %w", i, err)
		}

		scenes = append(scenes, types.Scene{
			Index:      i,
			Narration:  frag,
			VisualHint: hint,
			Timestamp:  ts,
		})
	}

	// The full narration should reconstruct from the fragments; when the
	// generator omitted it, rebuild it best-effort.
	if narration == "" {
		narration = strings.Join(fragments, " ")
	}

	return &types.Script{
		Title:     strings.TrimSpace(raw.Title),
		Narration: narration,
		Scenes:    scenes,
	}, nil
}

// parseTimestamp accepts "m:ss", "h:mm:ss", bare numbers, numeric strings,
// or nothing. A missing or empty timestamp is valid and returns nil.
func parseTimestamp(raw json.RawMessage) (*float64, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	// Numeric form.
	var num float64
	if err := json.Unmarshal(raw, &num); err == nil {
		if num < 0 {
			return nil, fmt.Errorf("negative timestamp %.2f", num)
		}
		return &num, nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("unreadable timestamp %s", string(raw))
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}

	parts := strings.Split(s, ":")
	var secs float64
	switch len(parts) {
	case 1:
		v, err := strconv.ParseFloat(parts[0], 64)
		if err != nil {
			return nil, fmt.Errorf("unreadable timestamp %q", s)
		}
		secs = v
	case 2:
		m, err1 := strconv.ParseFloat(parts[0], 64)
		sec, err2 := strconv.ParseFloat(parts[1], 64)
		if err1 != nil || err2 != nil {
			return nil, fmt.Errorf("unreadable timestamp %q", s)
		}
		secs = m*60 + sec
	case 3:
		h, err1 := strconv.ParseFloat(parts[0], 64)
		m, err2 := strconv.ParseFloat(parts[1], 64)
		sec, err3 := strconv.ParseFloat(parts[2], 64)
		if err1 != nil || err2 != nil || err3 != nil {
			return nil, fmt.Errorf("unreadable timestamp %q", s)
		}
		secs = h*3600 + m*60 + sec
	default:
		return nil, fmt.Errorf("unreadable timestamp %q", s)
	}

	if secs < 0 {
		return nil, fmt.Errorf("negative timestamp %q", s)
	}
	return &secs, nil
}
