package session

import "time"

// JobState tracks where a user's conversation/job currently is.
type JobState string

const (
	StateIdle            JobState = "idle"
	StateAwaitingFormat  JobState = "awaiting_format"
	StateAwaitingQuality JobState = "awaiting_quality"
	StateNegotiating     JobState = "negotiating"
	StateDownloading     JobState = "downloading"
	StateUploading       JobState = "uploading"
	StateDone            JobState = "done"
	StateFailed          JobState = "failed"
)

// Busy reports whether a job is running for the session. While busy, new
// URLs and stray callbacks are rejected instead of mutating state.
func (s JobState) Busy() bool {
	return s == StateNegotiating || s == StateDownloading || s == StateUploading
}

// Kind is the user's chosen output flavor.
type Kind string

const (
	KindUnset Kind = ""
	KindAudio Kind = "audio"
	KindVideo Kind = "video"
)

// Session holds one user's conversation state. Quality is only meaningful
// for video; ProgressMessageID is set iff the state is Busy.
type Session struct {
	SourceURL         string
	Kind              Kind
	Quality           string // "144".."1080" or "best"
	ProgressMessageID int
	LastPercent       float64
	LastReportedAt    time.Time
	TerminalShown     bool // the one-shot "finished, processing" edit went out
	State             JobState

	// OriginalAudio marks the "continue with original audio format" path
	// taken when the transcoder is unavailable.
	OriginalAudio bool
}
