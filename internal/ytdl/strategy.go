package ytdl

import (
	"fmt"
	"strings"
)

// Strategy is one named probe/download posture: a simulated player client
// plus feature toggles. Different clients see different format lists, so
// the winning strategy is carried into the actual download.
type Strategy struct {
	Name          string
	PlayerClient  string
	SkipManifests []string // manifest kinds to skip, e.g. "hls", "dash"
	Retries       int      // attempts per strategy before moving on
	UserAgent     string
}

// ExtractorArgs renders the strategy as a yt-dlp extractor-args value.
func (s Strategy) ExtractorArgs() string {
	parts := []string{"player_client=" + s.PlayerClient}
	if len(s.SkipManifests) > 0 {
		parts = append(parts, "skip="+strings.Join(s.SkipManifests, ","))
	}
	return fmt.Sprintf("youtube:%s", strings.Join(parts, ";"))
}

// DefaultStrategies is the probe order. Android tends to expose the widest
// format list; ios is the usual fallback when android gets challenged; web
// without adaptive manifests is the last resort.
func DefaultStrategies() []Strategy {
	return []Strategy{
		{Name: "android", PlayerClient: "android", Retries: 2},
		{Name: "ios", PlayerClient: "ios", Retries: 2},
		{Name: "web-nomanifest", PlayerClient: "web", SkipManifests: []string{"hls", "dash"}, Retries: 1},
	}
}

// StrategyByName returns the strategy with the given name, or the first one.
func StrategyByName(list []Strategy, name string) Strategy {
	for _, s := range list {
		if s.Name == name {
			return s
		}
	}
	return list[0]
}
