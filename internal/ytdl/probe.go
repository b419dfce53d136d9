package ytdl

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/wapuda/mediagrab/internal/logx"
)

// Prober runs one metadata probe under a given strategy and returns the
// tool's raw single-json dump.
type Prober interface {
	Probe(ctx context.Context, url string, s Strategy) ([]byte, error)
}

// NegotiateResult is what a successful probe phase yields. Strategy names
// the posture that saw the formats; the download is biased to the same
// client since other clients may not see them at all.
type NegotiateResult struct {
	Title    string
	Audio    []FormatDescriptor
	Video    []FormatDescriptor
	Strategy string
}

// Negotiator walks the strategy table until one posture yields usable
// formats.
type Negotiator struct {
	prober     Prober
	strategies []Strategy
	backoffMin time.Duration
	backoffMax time.Duration
}

func NewNegotiator(p Prober, strategies []Strategy, backoffMin, backoffMax time.Duration) *Negotiator {
	if len(strategies) == 0 {
		strategies = DefaultStrategies()
	}
	return &Negotiator{
		prober:     p,
		strategies: strategies,
		backoffMin: backoffMin,
		backoffMax: backoffMax,
	}
}

// Negotiate probes url with each strategy in order, retrying each up to its
// own bound with randomized backoff. Returns on the first strategy whose
// format list is non-empty. Exhausting the table yields ErrNoFormats, or
// ErrNetworkUnreachable when the failures looked like connectivity.
func (n *Negotiator) Negotiate(ctx context.Context, url string) (*NegotiateResult, error) {
	log := logx.FromCtx(ctx)
	sawNetwork := false

	for _, strat := range n.strategies {
		attempts := strat.Retries
		if attempts < 1 {
			attempts = 1
		}
		for attempt := 1; attempt <= attempts; attempt++ {
			if attempt > 1 {
				if err := sleepCtx(ctx, randBetween(n.backoffMin, n.backoffMax)); err != nil {
					return nil, err
				}
			}

			raw, err := n.prober.Probe(ctx, url, strat)
			if err != nil {
				if IsNetworkText(err) {
					sawNetwork = true
				}
				log.Warn().Err(err).
					Str("strategy", strat.Name).
					Int("attempt", attempt).
					Msg("probe failed")
				continue
			}

			info, err := parseProbeJSON(raw)
			if err != nil {
				log.Warn().Err(err).Str("strategy", strat.Name).Msg("probe output unparsable")
				continue
			}

			audio, video := splitFormats(info.Formats)
			if len(audio) == 0 && len(video) == 0 {
				log.Info().Str("strategy", strat.Name).Msg("probe saw no media formats")
				continue
			}

			log.Info().
				Str("strategy", strat.Name).
				Int("audio", len(audio)).
				Int("video", len(video)).
				Msg("negotiation succeeded")
			return &NegotiateResult{
				Title:    info.Title,
				Audio:    audio,
				Video:    video,
				Strategy: strat.Name,
			}, nil
		}
	}

	if sawNetwork {
		return nil, fmt.Errorf("negotiate %s: %w", url, ErrNetworkUnreachable)
	}
	return nil, fmt.Errorf("negotiate %s: %w", url, ErrNoFormats)
}

func randBetween(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(rand.Int63n(int64(max-min)))
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
