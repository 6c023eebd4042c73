package assets

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"google.golang.org/api/option"
	youtube "google.golang.org/api/youtube/v3"

	"storyreel/types"
)

// fetcher downloads one reference to a destination path and reports the
// resulting asset's media properties.
type fetcher interface {
	fetch(ctx context.Context, ref reference, dest string) (types.Asset, error)
}

// mediaFetcher is the production fetcher: yt-dlp for remote clips, the
// Pollinations image API for generated stills, with an optional YouTube Data
// API lookup for clip metadata when an API key is configured.
type mediaFetcher struct {
	httpClient *http.Client
	imageW     int
	imageH     int
	yt         *youtube.Service // nil when no API key is configured
}

func newMediaFetcher(ctx context.Context, imageW, imageH int) *mediaFetcher {
	f := &mediaFetcher{
		httpClient: &http.Client{Timeout: 60 * time.Second},
		imageW:     imageW,
		imageH:     imageH,
	}

	if key := os.Getenv("YOUTUBE_API_KEY"); key != "" {
		svc, err := youtube.NewService(ctx, option.WithAPIKey(key))
		if err != nil {
			log.Printf("[assets] Warning: YouTube API unavailable, downloading blind: %v", err)
		} else {
			f.yt = svc
		}
	}
	return f
}

func (f *mediaFetcher) fetch(ctx context.Context, ref reference, dest string) (types.Asset, error) {
	switch ref.kind {
	case types.SourceRemoteClip:
		return f.fetchClip(ctx, ref, dest)
	case types.SourceGeneratedImage:
		return f.fetchImage(ctx, ref, dest)
	default:
		return types.Asset{}, fmt.Errorf("fetcher cannot handle %s references", ref.kind)
	}
}

// fetchClip downloads a YouTube clip (optionally a section of it) via yt-dlp.
func (f *mediaFetcher) fetchClip(ctx context.Context, ref reference, dest string) (types.Asset, error) {
	if f.yt != nil {
		if err := f.checkVideo(ctx, ref.videoID); err != nil {
			return types.Asset{}, err
		}
	}

	args := []string{
		"-f", "best[height<=1080][ext=mp4]/best[height<=1080]/best",
		"-o", dest,
		"--no-playlist",
		"--quiet",
	}
	if ref.length > 0 {
		section := fmt.Sprintf("*%g-%g", ref.start, ref.start+ref.length)
		args = append(args, "--download-sections", section, "--force-keyframes-at-cuts")
	}
	args = append(args, "https://www.youtube.com/watch?v="+ref.videoID)

	cmd := exec.CommandContext(ctx, "yt-dlp", args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return types.Asset{}, fmt.Errorf("yt-dlp %s: %v: %s", ref.videoID, err, firstLine(out))
	}

	dur, w, h, err := probeMedia(ctx, dest)
	if err != nil {
		return types.Asset{}, fmt.Errorf("probe downloaded clip: %w", err)
	}
	return types.Asset{
		Kind:           ref.kind,
		LocalPath:      dest,
		NativeDuration: dur,
		Width:          w,
		Height:         h,
	}, nil
}

// checkVideo verifies the video exists and is embeddable before spending a
// download on it. Failures here are permanent, not transient.
func (f *mediaFetcher) checkVideo(ctx context.Context, videoID string) error {
	resp, err := f.yt.Videos.List([]string{"contentDetails"}).Id(videoID).Context(ctx).Do()
	if err != nil {
		// API hiccups must not block the download path.
		log.Printf("[assets] Warning: YouTube lookup for %s failed: %v", videoID, err)
		return nil
	}
	if len(resp.Items) == 0 {
		return fmt.Errorf("youtube video %s not found", videoID)
	}
	return nil
}

// fetchImage generates a still via Pollinations and saves it locally.
// The seed is baked into the reference, so re-fetching is reproducible.
func (f *mediaFetcher) fetchImage(ctx context.Context, ref reference, dest string) (types.Asset, error) {
	imageURL := fmt.Sprintf(
		"https://image.pollinations.ai/prompt/%s?width=%d&height=%d&nologo=true&model=flux&seed=%d",
		url.PathEscape(ref.prompt), f.imageW, f.imageH, ref.seed,
	)

	req, err := http.NewRequestWithContext(ctx, "GET", imageURL, nil)
	if err != nil {
		return types.Asset{}, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; Storyreel/1.0)")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return types.Asset{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return types.Asset{}, fmt.Errorf("HTTP %d from image API", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return types.Asset{}, err
	}
	// An error page is not an image.
	if len(data) < 100 {
		return types.Asset{}, fmt.Errorf("image response too small (%d bytes)", len(data))
	}

	if err := os.WriteFile(dest, data, 0644); err != nil {
		return types.Asset{}, err
	}
	return types.Asset{
		Kind:      ref.kind,
		LocalPath: dest,
		Width:     f.imageW,
		Height:    f.imageH,
	}, nil
}

// probeMedia reads duration and frame size with ffprobe.
func probeMedia(ctx context.Context, path string) (duration float64, width, height int, err error) {
	out, err := exec.CommandContext(ctx, "ffprobe",
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height",
		"-show_entries", "format=duration",
		"-of", "csv=p=0",
		path,
	).Output()
	if err != nil {
		return 0, 0, 0, fmt.Errorf("ffprobe %s: %w", path, err)
	}

	// Two CSV lines: "width,height" then "duration".
	for _, line := range strings.Split(strings.TrimSpace(string(out)), "\n") {
		fields := strings.Split(strings.TrimSpace(line), ",")
		if len(fields) == 2 {
			width, _ = strconv.Atoi(fields[0])
			height, _ = strconv.Atoi(fields[1])
		} else if len(fields) == 1 && fields[0] != "" {
			duration, _ = strconv.ParseFloat(fields[0], 64)
		}
	}
	if width == 0 || height == 0 {
		return 0, 0, 0, fmt.Errorf("ffprobe %s: no video stream dimensions", path)
	}
	return duration, width, height, nil
}

func firstLine(out []byte) string {
	s := strings.TrimSpace(string(out))
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return s
}
