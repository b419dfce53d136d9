package ytdl

import (
	"context"
	"time"

	"github.com/wapuda/mediagrab/internal/logx"
)

// ProgressEvent is one raw snapshot from the tool, forwarded to the
// reporter unthrottled; gating happens there.
type ProgressEvent struct {
	Status          EventStatus
	DownloadedBytes int64
	TotalBytes      int64 // 0 when unknown
	Speed           float64
}

type EventStatus string

const (
	StatusDownloading EventStatus = "downloading"
	StatusFinished    EventStatus = "finished"
)

// Job describes one download execution. Owned by the runner for the
// duration of one run.
type Job struct {
	URL            string
	OutputTemplate string // contains the %(ext)s placeholder
	Selector       string
	ExtractAudio   bool
	AudioCodec     string // "mp3" when ExtractAudio
	AudioQuality   string // e.g. "192K"
	StrategyName   string // strategy that won negotiation
	RunID          string
}

// Downloader runs a single download attempt.
type Downloader interface {
	Download(ctx context.Context, job Job, s Strategy, fn func(ProgressEvent)) (string, error)
}

// RunnerOptions bound the retry loop.
type RunnerOptions struct {
	Retries    int // additional attempts after the first
	BackoffMin time.Duration
	BackoffMax time.Duration
	Rotation   []string // strategy names tried on retry, in order
	Strategies []Strategy
}

// Runner executes one job with bounded retries, rotating the simulated
// client between attempts.
type Runner struct {
	tool Downloader
	opts RunnerOptions
}

func NewRunner(tool Downloader, opts RunnerOptions) *Runner {
	if len(opts.Strategies) == 0 {
		opts.Strategies = DefaultStrategies()
	}
	return &Runner{tool: tool, opts: opts}
}

// Run downloads the job, reporting progress through fn. On exhausted
// retries the last underlying error is surfaced, classified.
func (r *Runner) Run(ctx context.Context, job Job, fn func(ProgressEvent)) (string, error) {
	log := logx.FromCtx(ctx)
	order := r.attemptOrder(job.StrategyName)

	var lastErr error
	attempts := r.opts.Retries + 1
	for i := 0; i < attempts; i++ {
		if i > 0 {
			if err := sleepCtx(ctx, randBetween(r.opts.BackoffMin, r.opts.BackoffMax)); err != nil {
				return "", Classify(err, "")
			}
		}

		strat := StrategyByName(r.opts.Strategies, order[min(i, len(order)-1)])
		path, err := r.tool.Download(ctx, job, strat, fn)
		if err == nil {
			return path, nil
		}
		lastErr = err
		log.Warn().Err(err).
			Str("strategy", strat.Name).
			Int("attempt", i+1).
			Msg("download attempt failed")

		if ctx.Err() != nil {
			break
		}
	}
	return "", Classify(lastErr, "")
}

// attemptOrder starts with the strategy negotiation settled on, then walks
// the configured rotation, skipping entries equal to the previous attempt.
func (r *Runner) attemptOrder(winner string) []string {
	order := []string{winner}
	for _, name := range r.opts.Rotation {
		if name != order[len(order)-1] {
			order = append(order, name)
		}
	}
	return order
}
