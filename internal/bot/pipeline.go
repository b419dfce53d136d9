package bot

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hibiken/asynq"
	"github.com/oklog/ulid/v2"

	"github.com/wapuda/mediagrab/internal/jobs"
	"github.com/wapuda/mediagrab/internal/logx"
	"github.com/wapuda/mediagrab/internal/session"
	"github.com/wapuda/mediagrab/internal/upload"
	"github.com/wapuda/mediagrab/internal/ytdl"
)

// HandleDownloadTask adapts the pipeline to asynq. Job failures are user
// outcomes, not queue failures, so the handler never returns an error that
// would trigger a queue-level retry on top of the runner's own.
func (c *Controller) HandleDownloadTask(ctx context.Context, t *asynq.Task) error {
	var p jobs.DownloadPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("download payload: %w", err)
	}
	c.process(ctx, p)
	return nil
}

func newRunID() string {
	t := time.Now()
	entropy := ulid.Monotonic(rand.New(rand.NewSource(t.UnixNano())), 0)
	return ulid.MustNew(ulid.Timestamp(t), entropy).String()
}

// process runs one full job: refresh cookies, negotiate, download with live
// progress, upload, tear the session down. Exactly one terminal message
// lands in the progress slot on failure.
func (c *Controller) process(ctx context.Context, p jobs.DownloadPayload) {
	runID := newRunID()
	ctx = logx.WithRun(ctx, runID, p.UserID)
	log := logx.FromCtx(ctx)
	log.Info().Str("url", p.URL).Str("kind", p.Kind).Str("quality", p.Quality).Msg("job started")

	if c.d.Cookies != nil {
		c.d.Cookies.Refresh(ctx, c.cfg.CookieFileRef)
	}

	res, err := c.d.Neg.Negotiate(ctx, p.URL)
	if err != nil {
		log.Warn().Err(err).Msg("negotiation failed")
		c.fail(p, err)
		return
	}

	c.d.Store.Update(p.UserID, func(s *session.Session) { s.State = session.StateDownloading })
	c.announceDownload(ctx, p, res.Title)

	kind := ytdl.KindVideo
	if p.Kind == string(session.KindAudio) {
		kind = ytdl.KindAudio
	}
	selector := ytdl.BuildSelector(kind, p.Quality, res.Audio, res.Video, ytdl.SelectorOptions{
		Tolerance:  c.cfg.QualityTolerance,
		MaxClauses: c.cfg.SelectorMaxClause,
	})

	template := filepath.Join(c.cfg.DownloadDir,
		fmt.Sprintf("%d_%d.%%(ext)s", p.UserID, time.Now().Unix()))
	job := ytdl.Job{
		URL:            p.URL,
		OutputTemplate: template,
		Selector:       selector,
		ExtractAudio:   kind == ytdl.KindAudio && !p.OriginalAudio,
		AudioCodec:     "mp3",
		AudioQuality:   "192K",
		StrategyName:   res.Strategy,
		RunID:          runID,
	}

	path, err := c.runWithProgress(ctx, p, job)
	if err != nil {
		log.Warn().Err(err).Msg("download failed")
		removeLeftovers(template)
		c.fail(p, err)
		return
	}

	c.d.Store.Update(p.UserID, func(s *session.Session) { s.State = session.StateUploading })

	display := sanitizeTitle(res.Title)
	if display == "" {
		display = fmt.Sprintf("video_%d", p.UserID)
	}
	display += filepath.Ext(path)

	err = c.d.Gate.Upload(ctx, p.ChatID, p.ProgressMessageID, path, display, upload.Result{
		Format:  outputLabel(p),
		Quality: qualityLabel(p),
	})
	if err != nil {
		log.Warn().Err(err).Msg("upload failed")
		c.fail(p, err)
		return
	}

	if err := c.d.Quota.Charge(ctx, p.UserID); err != nil {
		log.Warn().Err(err).Msg("quota charge failed")
	}
	c.d.Store.Clear(p.UserID)
	log.Info().Msg("job done")
}

// runWithProgress bridges the runner's callback into a channel drained by a
// separate goroutine, so tool callbacks never call the transport directly.
func (c *Controller) runWithProgress(ctx context.Context, p jobs.DownloadPayload, job ytdl.Job) (string, error) {
	events := make(chan ytdl.ProgressEvent, 16)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for ev := range events {
			c.d.Reporter.Report(p.UserID, p.ChatID, ev)
		}
	}()

	path, err := c.d.Runner.Run(ctx, job, func(ev ytdl.ProgressEvent) {
		// Keep the latest snapshot; when the drain lags, the oldest queued
		// event gives way.
		select {
		case events <- ev:
		default:
			select {
			case <-events:
			default:
			}
			select {
			case events <- ev:
			default:
			}
		}
	})
	close(events)
	<-done
	return path, err
}

func (c *Controller) announceDownload(ctx context.Context, p jobs.DownloadPayload, title string) {
	text := fmt.Sprintf("⏬ Starting download...\n\n📹 Title: %s\n🎯 Format: %s\n📺 Quality: %s",
		title, outputLabel(p), qualityLabel(p))
	if err := c.d.TG.EditMessageText(p.ChatID, p.ProgressMessageID, text); err != nil {
		l := logx.FromCtx(ctx)
		l.Debug().Err(err).Msg("start notice edit failed")
	}
}

// fail shows the class-specific message in the progress slot and resets the
// session. The session never outlives its job.
func (c *Controller) fail(p jobs.DownloadPayload, err error) {
	_ = c.d.TG.EditMessageText(p.ChatID, p.ProgressMessageID, failureMessage(err))
	c.d.Store.Clear(p.UserID)
}

// removeLeftovers clears partial files a failed run left behind.
func removeLeftovers(template string) {
	pattern := strings.Replace(template, "%(ext)s", "*", 1)
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return
	}
	for _, m := range matches {
		_ = os.Remove(m)
	}
}

func outputLabel(p jobs.DownloadPayload) string {
	if p.Kind == string(session.KindAudio) {
		if p.OriginalAudio {
			return "Original audio"
		}
		return "MP3"
	}
	return "MP4"
}

func qualityLabel(p jobs.DownloadPayload) string {
	if p.Kind != string(session.KindVideo) || p.Quality == "" {
		return "N/A"
	}
	return p.Quality
}
