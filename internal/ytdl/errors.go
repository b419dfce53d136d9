package ytdl

import (
	"errors"
	"fmt"
	"strings"
)

// Negotiation failures. Network trouble gets its own cause so the user can
// be told to retry later instead of blaming the link.
var (
	ErrNoFormats          = errors.New("no downloadable formats found")
	ErrNetworkUnreachable = errors.New("extraction host unreachable")
)

// DownloadClass buckets a failed download for user messaging.
type DownloadClass string

const (
	ClassBlocked              DownloadClass = "blocked"
	ClassFormatUnavailable    DownloadClass = "format_unavailable"
	ClassTranscodeUnavailable DownloadClass = "transcode_unavailable"
	ClassNetworkError         DownloadClass = "network_error"
	ClassUnknown              DownloadClass = "unknown"
)

// DownloadError wraps the last underlying tool error after retries are
// exhausted, tagged with its class.
type DownloadError struct {
	Class DownloadClass
	Err   error
}

func (e *DownloadError) Error() string {
	return fmt.Sprintf("download failed (%s): %v", e.Class, e.Err)
}

func (e *DownloadError) Unwrap() error { return e.Err }

// Substrings yt-dlp emits for each failure family. Matched against the
// combined error text and stderr, lowercased.
var classPatterns = []struct {
	class    DownloadClass
	patterns []string
}{
	{ClassBlocked, []string{
		"sign in to confirm",
		"confirm you're not a bot",
		"http error 403",
		"access denied",
		"this video is not available in your country",
	}},
	{ClassTranscodeUnavailable, []string{
		"ffprobe and ffmpeg not found",
		"ffmpeg not found",
		"postprocessing: ",
	}},
	{ClassFormatUnavailable, []string{
		"requested format is not available",
		"no video formats found",
		"format is not available",
	}},
	{ClassNetworkError, []string{
		"unable to download webpage",
		"network is unreachable",
		"temporary failure in name resolution",
		"connection reset",
		"connection refused",
		"timed out",
		"getaddrinfo failed",
	}},
}

// Classify maps a raw tool failure onto a DownloadError. Order matters:
// blocked and transcode signatures are more specific than the generic
// network ones.
func Classify(err error, stderr string) *DownloadError {
	text := strings.ToLower(err.Error() + "\n" + stderr)
	for _, c := range classPatterns {
		for _, p := range c.patterns {
			if strings.Contains(text, p) {
				return &DownloadError{Class: c.class, Err: err}
			}
		}
	}
	return &DownloadError{Class: ClassUnknown, Err: err}
}

// IsNetworkText reports whether raw probe output looks like an unreachable
// network rather than a missing video.
func IsNetworkText(err error) bool {
	if err == nil {
		return false
	}
	text := strings.ToLower(err.Error())
	for _, c := range classPatterns {
		if c.class != ClassNetworkError {
			continue
		}
		for _, p := range c.patterns {
			if strings.Contains(text, p) {
				return true
			}
		}
	}
	return false
}
