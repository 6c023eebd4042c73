package assets

import (
	"crypto/md5"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"storyreel/types"
)

// reference is the classified form of a scene's visual hint.
type reference struct {
	kind    types.SourceKind
	raw     string // normalized form, also the cache-key input
	videoID string
	start   float64 // clip section start, seconds
	length  float64 // clip section length, seconds; 0 = whole video
	prompt  string  // image generation prompt
	seed    int     // deterministic image seed
	path    string  // local clip path
}

// classify maps a visual hint onto a source kind:
//
//	yt:<id> / yt:<id>@<start>-<dur> / a youtube URL  → remote clip
//	an existing file path                            → local clip
//	any other free text                              → generated image
//
// The image seed is derived from the scene index so repeated runs of the same
// script fetch the same frames.
func classify(hint string, sceneIndex int) (reference, error) {
	hint = strings.TrimSpace(hint)
	if hint == "" {
		return reference{}, fmt.Errorf("scene %d has an empty visual hint", sceneIndex)
	}

	if strings.HasPrefix(hint, "yt:") {
		return parseYouTubeRef(strings.TrimPrefix(hint, "yt:"))
	}
	if strings.HasPrefix(hint, "http://") || strings.HasPrefix(hint, "https://") {
		if id := youtubeIDFromURL(hint); id != "" {
			return reference{
				kind:    types.SourceRemoteClip,
				raw:     "yt:" + id,
				videoID: id,
			}, nil
		}
		return reference{}, fmt.Errorf("unsupported clip URL %q", hint)
	}
	if fi, err := os.Stat(hint); err == nil && !fi.IsDir() {
		return reference{
			kind: types.SourceLocalClip,
			raw:  "file:" + hint,
			path: hint,
		}, nil
	}

	seed := sceneIndex*42 + 7
	return reference{
		kind:   types.SourceGeneratedImage,
		raw:    fmt.Sprintf("img:%s#%d", strings.ToLower(hint), seed),
		prompt: hint,
		seed:   seed,
	}, nil
}

// parseYouTubeRef parses "<id>" or "<id>@<start>-<dur>" (seconds).
func parseYouTubeRef(ref string) (reference, error) {
	id := ref
	var start, length float64

	if at := strings.IndexByte(ref, '@'); at >= 0 {
		id = ref[:at]
		rangePart := ref[at+1:]
		dash := strings.IndexByte(rangePart, '-')
		if dash < 0 {
			return reference{}, fmt.Errorf("bad clip range %q, want start-duration", rangePart)
		}
		var err1, err2 error
		start, err1 = strconv.ParseFloat(rangePart[:dash], 64)
		length, err2 = strconv.ParseFloat(rangePart[dash+1:], 64)
		if err1 != nil || err2 != nil || start < 0 || length <= 0 {
			return reference{}, fmt.Errorf("bad clip range %q", rangePart)
		}
	}
	if id == "" {
		return reference{}, fmt.Errorf("empty video id in clip reference")
	}

	raw := "yt:" + id
	if length > 0 {
		raw = fmt.Sprintf("yt:%s@%g-%g", id, start, length)
	}
	return reference{
		kind:    types.SourceRemoteClip,
		raw:     raw,
		videoID: id,
		start:   start,
		length:  length,
	}, nil
}

func youtubeIDFromURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	host := strings.TrimPrefix(u.Host, "www.")
	switch host {
	case "youtube.com", "m.youtube.com":
		return u.Query().Get("v")
	case "youtu.be":
		return strings.Trim(u.Path, "/")
	}
	return ""
}

// identifier derives the stable cache key for a reference.
func (r reference) identifier() string {
	sum := md5.Sum([]byte(r.raw))
	return fmt.Sprintf("%x", sum)[:12]
}

// ext is the payload file extension under the cache root.
func (r reference) ext() string {
	if r.kind == types.SourceGeneratedImage {
		return ".jpg"
	}
	return ".mp4"
}
