package progress

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/wapuda/mediagrab/internal/session"
	"github.com/wapuda/mediagrab/internal/telegram"
	"github.com/wapuda/mediagrab/internal/ytdl"
)

const barSegments = 20

// Editor is the one transport call the reporter needs.
type Editor interface {
	EditMessageText(chatID int64, messageID int, text string) error
}

// Reporter throttles raw download events into edit-message calls. Both
// gates must open before an edit goes out: enough wall time since the last
// edit and enough percentage movement. The terminal finished event bypasses
// the gates and fires exactly once.
type Reporter struct {
	store       *session.Store
	editor      Editor
	minInterval time.Duration
	minDelta    float64
	now         func() time.Time
}

func NewReporter(store *session.Store, editor Editor, minInterval time.Duration, minDelta float64) *Reporter {
	return &Reporter{
		store:       store,
		editor:      editor,
		minInterval: minInterval,
		minDelta:    minDelta,
		now:         time.Now,
	}
}

// Report applies one event for the user's session. Edit failures are
// cosmetic and never escalate.
func (r *Reporter) Report(userID, chatID int64, ev ytdl.ProgressEvent) {
	sess := r.store.Get(userID)
	if sess.ProgressMessageID == 0 {
		return
	}

	if ev.Status == ytdl.StatusFinished {
		fired := false
		r.store.Update(userID, func(s *session.Session) {
			if !s.TerminalShown {
				s.TerminalShown = true
				fired = true
			}
		})
		if fired {
			r.edit(chatID, sess.ProgressMessageID, "✅ Download finished, processing...")
		}
		return
	}

	// Without a total there is no meaningful percentage; skip the event.
	if ev.TotalBytes <= 0 {
		return
	}
	percent := round1(float64(ev.DownloadedBytes) / float64(ev.TotalBytes) * 100)

	now := r.now()
	passed := false
	r.store.Update(userID, func(s *session.Session) {
		if !s.LastReportedAt.IsZero() && now.Sub(s.LastReportedAt) < r.minInterval {
			return
		}
		if percent-s.LastPercent < r.minDelta {
			return
		}
		s.LastPercent = percent
		s.LastReportedAt = now
		passed = true
	})
	if !passed {
		return
	}

	r.edit(chatID, sess.ProgressMessageID, render(percent, ev))
}

func (r *Reporter) edit(chatID int64, messageID int, text string) {
	err := telegram.ClassifyEditError(r.editor.EditMessageText(chatID, messageID, text))
	switch err {
	case nil, telegram.ErrEditNotModified:
	default:
		log.Warn().Err(err).Int64("chat_id", chatID).Msg("progress edit failed")
	}
}

func render(percent float64, ev ytdl.ProgressEvent) string {
	filled := int(float64(barSegments) * percent / 100)
	if filled > barSegments {
		filled = barSegments
	}
	bar := strings.Repeat("⬢", filled) + strings.Repeat("⬡", barSegments-filled)

	downMB := float64(ev.DownloadedBytes) / (1024 * 1024)
	totalMB := float64(ev.TotalBytes) / (1024 * 1024)
	speedMB := ev.Speed / (1024 * 1024)

	return fmt.Sprintf("⏬ Downloading...\n\n%s %.1f%%\n\n📊 %.1fMB / %.1fMB\n⚡ %.1f MB/s",
		bar, percent, downMB, totalMB, speedMB)
}

func round1(x float64) float64 {
	return math.Round(x*10) / 10
}
