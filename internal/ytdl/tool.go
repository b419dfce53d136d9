package ytdl

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/lrstanley/go-ytdlp"
	"github.com/rs/zerolog"

	"github.com/wapuda/mediagrab/internal/logx"
)

// Tool invokes yt-dlp via go-ytdlp with process-wide network options.
// It implements both Prober (metadata mode) and Downloader (download mode).
type Tool struct {
	Proxy      string
	ForceIPv4  bool
	UserAgent  string
	CookieFile string
}

// Install makes sure a yt-dlp binary is available, downloading one when the
// host has none. Called once at startup.
func Install(ctx context.Context) error {
	_, err := ytdlp.Install(ctx, &ytdlp.InstallOptions{})
	return err
}

func (t *Tool) base(s Strategy) *ytdlp.Command {
	dl := ytdlp.New().
		NoPlaylist().
		ExtractorArgs(s.ExtractorArgs())

	ua := s.UserAgent
	if ua == "" {
		ua = t.UserAgent
	}
	if ua != "" {
		dl = dl.UserAgent(ua)
	}
	if t.Proxy != "" {
		dl = dl.Proxy(t.Proxy)
	}
	if t.ForceIPv4 {
		dl = dl.ForceIPv4()
	}
	// A half-refreshed or missing cookie file degrades to no-cookie mode.
	if t.CookieFile != "" {
		if st, err := os.Stat(t.CookieFile); err == nil && st.Size() > 0 {
			dl = dl.Cookies(t.CookieFile)
		}
	}
	return dl
}

// Probe runs metadata-only extraction and returns the raw json dump.
func (t *Tool) Probe(ctx context.Context, url string, s Strategy) ([]byte, error) {
	dl := t.base(s).
		SkipDownload().
		DumpSingleJSON()

	r, err := dl.Run(ctx, url)
	if err != nil {
		return nil, probeErr(err, r)
	}
	return []byte(r.Stdout), nil
}

func probeErr(err error, r *ytdlp.Result) error {
	if r != nil && r.Stderr != "" {
		return fmt.Errorf("probe: %w: %s", err, lastLine(r.Stderr))
	}
	return fmt.Errorf("probe: %w", err)
}

// Download runs one download attempt under the given strategy, forwarding
// raw tool progress to fn. Returns the local artifact path.
func (t *Tool) Download(ctx context.Context, job Job, s Strategy, fn func(ProgressEvent)) (string, error) {
	dl := t.base(s).
		Format(job.Selector).
		Output(job.OutputTemplate)

	if job.ExtractAudio {
		dl = dl.ExtractAudio().
			AudioFormat(job.AudioCodec).
			AudioQuality(job.AudioQuality)
	}

	dl = dl.ProgressFunc(500*time.Millisecond, func(up ytdlp.ProgressUpdate) {
		fn(translateUpdate(up))
	})

	r, err := dl.Run(ctx, job.URL)
	if r != nil && r.Stderr != "" {
		lw := logx.NewLineWriter(map[string]string{"tool": "yt-dlp", "run": job.RunID}, zerolog.DebugLevel)
		lw.Pipe(strings.NewReader(r.Stderr))
	}
	if err != nil {
		if r != nil && r.Stderr != "" {
			return "", fmt.Errorf("%w: %s", err, lastLine(r.Stderr))
		}
		return "", err
	}

	return findArtifact(job.OutputTemplate)
}

func translateUpdate(up ytdlp.ProgressUpdate) ProgressEvent {
	ev := ProgressEvent{
		Status:          StatusDownloading,
		DownloadedBytes: int64(up.DownloadedBytes),
		TotalBytes:      int64(up.TotalBytes),
	}
	switch up.Status {
	case ytdlp.ProgressStatusFinished, ytdlp.ProgressStatusPostProcessing:
		ev.Status = StatusFinished
	}
	if !up.Started.IsZero() {
		if elapsed := time.Since(up.Started); elapsed > 0 {
			ev.Speed = float64(ev.DownloadedBytes) / elapsed.Seconds()
		}
	}
	return ev
}

// findArtifact resolves the template's extension placeholder against what
// actually landed on disk. Partial files are skipped; with several matches
// the newest wins.
func findArtifact(template string) (string, error) {
	pattern := strings.Replace(template, "%(ext)s", "*", 1)
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return "", err
	}
	var files []string
	for _, m := range matches {
		if strings.HasSuffix(m, ".part") || strings.HasSuffix(m, ".ytdl") {
			continue
		}
		files = append(files, m)
	}
	if len(files) == 0 {
		return "", fmt.Errorf("no artifact matching %s", pattern)
	}
	sort.Slice(files, func(i, j int) bool {
		fi, errI := os.Stat(files[i])
		fj, errJ := os.Stat(files[j])
		if errI != nil || errJ != nil {
			return files[i] < files[j]
		}
		return fi.ModTime().After(fj.ModTime())
	})
	return files[0], nil
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}
