package ytdl

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// SelectorOptions are the selector tunables. Tolerance is the height window
// around the quality target; MaxClauses caps the fallback chain so the
// expression cannot grow without bound.
type SelectorOptions struct {
	Tolerance  int
	MaxClauses int
}

func DefaultSelectorOptions() SelectorOptions {
	return SelectorOptions{Tolerance: 100, MaxClauses: 8}
}

// Audio containers we hand to the tool by explicit format ID, in preference
// order, before falling back to generic selectors.
var preferredAudioContainers = []string{"m4a", "mp3", "aac"}

// Kind of output the user asked for.
type Kind string

const (
	KindAudio Kind = "audio"
	KindVideo Kind = "video"
)

// BuildSelector produces the ordered fallback chain handed to the tool as
// its format expression. quality is a height string ("144".."1080") or
// "best"; it is ignored for audio.
func BuildSelector(kind Kind, quality string, audio, video []FormatDescriptor, opts SelectorOptions) string {
	var clauses []string
	if kind == KindAudio {
		clauses = audioClauses(audio)
	} else if quality == "best" {
		clauses = bestVideoClauses(video)
	} else {
		target, err := strconv.Atoi(quality)
		if err != nil {
			clauses = bestVideoClauses(video)
		} else {
			clauses = videoClauses(target, video, opts.Tolerance)
		}
	}
	if len(clauses) > opts.MaxClauses {
		clauses = clauses[:opts.MaxClauses]
	}
	return strings.Join(clauses, "/")
}

func audioClauses(audio []FormatDescriptor) []string {
	var clauses []string
	for _, container := range preferredAudioContainers {
		for _, f := range audio {
			if f.Container == container {
				clauses = append(clauses, f.ID)
			}
		}
	}
	// Generic best audio, then muxed video as an audio source of last resort.
	clauses = append(clauses, "bestaudio", "best")
	return clauses
}

func videoClauses(target int, video []FormatDescriptor, tolerance int) []string {
	heights := closeHeights(target, video, tolerance)

	var clauses []string
	for _, h := range heights {
		clauses = append(clauses, fmt.Sprintf("bestvideo[height=%d]+bestaudio", h))
	}
	clauses = append(clauses,
		fmt.Sprintf("bestvideo[height<=%d]+bestaudio", target),
		fmt.Sprintf("best[height<=%d]", target),
		fmt.Sprintf("best[height>=%d]", target/2),
		"best",
	)
	return clauses
}

func bestVideoClauses(video []FormatDescriptor) []string {
	heights := uniqueHeights(video)
	sort.Sort(sort.Reverse(sort.IntSlice(heights)))

	var clauses []string
	for _, h := range heights {
		clauses = append(clauses, fmt.Sprintf("bestvideo[height=%d]+bestaudio", h))
	}
	clauses = append(clauses, "bestvideo+bestaudio", "best")
	return clauses
}

// closeHeights returns discovered heights within the tolerance window of
// target, closest first; ties resolve toward the lower height.
func closeHeights(target int, video []FormatDescriptor, tolerance int) []int {
	heights := uniqueHeights(video)
	var close []int
	for _, h := range heights {
		if abs(h-target) <= tolerance {
			close = append(close, h)
		}
	}
	sort.Slice(close, func(i, j int) bool {
		di, dj := abs(close[i]-target), abs(close[j]-target)
		if di != dj {
			return di < dj
		}
		return close[i] < close[j]
	})
	return close
}

func uniqueHeights(video []FormatDescriptor) []int {
	seen := make(map[int]bool)
	var heights []int
	for _, f := range video {
		if f.Height > 0 && !seen[f.Height] {
			seen[f.Height] = true
			heights = append(heights, f.Height)
		}
	}
	return heights
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
