package render

import (
	"fmt"
	"sort"
	"strings"

	"storyreel/types"
)

// The profile set is fixed; output parameters are never negotiated per call.
var profiles = map[string]types.OutputProfile{
	"longform_1080p30": {
		Name:         "longform_1080p30",
		Width:        1920,
		Height:       1080,
		FPS:          30,
		VideoCodec:   "libx264",
		AudioCodec:   "aac",
		VideoBitrate: "5000k",
		AudioBitrate: "192k",
	},
	"shorts_1080x1920x30": {
		Name:         "shorts_1080x1920x30",
		Width:        1080,
		Height:       1920,
		FPS:          30,
		VideoCodec:   "libx264",
		AudioCodec:   "aac",
		VideoBitrate: "8000k",
		AudioBitrate: "192k",
	},
}

// Profile looks up an output profile by name.
func Profile(name string) (types.OutputProfile, error) {
	p, ok := profiles[name]
	if !ok {
		return types.OutputProfile{}, fmt.Errorf("unknown render profile %q (have: %s)", name, strings.Join(ProfileNames(), ", "))
	}
	return p, nil
}

// ProfileNames lists the known profiles, sorted.
func ProfileNames() []string {
	names := make([]string, 0, len(profiles))
	for name := range profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
