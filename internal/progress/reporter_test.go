package progress

import (
	"errors"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/wapuda/mediagrab/internal/session"
	"github.com/wapuda/mediagrab/internal/ytdl"
)

type fakeEditor struct {
	texts []string
	err   error
}

func (f *fakeEditor) EditMessageText(_ int64, _ int, text string) error {
	f.texts = append(f.texts, text)
	return f.err
}

func newTestReporter(ed *fakeEditor) (*Reporter, *session.Store, *time.Time) {
	store := session.NewStore()
	store.Update(1, func(s *session.Session) {
		s.State = session.StateDownloading
		s.ProgressMessageID = 55
	})
	r := NewReporter(store, ed, time.Second, 1.0)
	now := time.Unix(1000, 0)
	r.now = func() time.Time { return now }
	return r, store, &now
}

func downloading(downloaded, total int64) ytdl.ProgressEvent {
	return ytdl.ProgressEvent{Status: ytdl.StatusDownloading, DownloadedBytes: downloaded, TotalBytes: total}
}

func TestReport_TimeGateHoldsLatestValue(t *testing.T) {
	ed := &fakeEditor{}
	r, _, now := newTestReporter(ed)

	r.Report(1, 1, downloading(10, 100)) // 10%, first edit goes out
	*now = now.Add(300 * time.Millisecond)
	r.Report(1, 1, downloading(12, 100)) // 2pt delta but only 0.3s elapsed

	if len(ed.texts) != 1 {
		t.Fatalf("edits = %d, expected time gate to hold the second event", len(ed.texts))
	}

	*now = now.Add(time.Second)
	r.Report(1, 1, downloading(14, 100))
	if len(ed.texts) != 2 {
		t.Fatalf("edits = %d, expected gate to open after 1s", len(ed.texts))
	}
	if !strings.Contains(ed.texts[1], "14.0%") {
		t.Errorf("second edit %q should carry the latest percent", ed.texts[1])
	}
}

func TestReport_DeltaGate(t *testing.T) {
	ed := &fakeEditor{}
	r, _, now := newTestReporter(ed)

	r.Report(1, 1, downloading(100, 1000))
	*now = now.Add(5 * time.Second)
	r.Report(1, 1, downloading(105, 1000)) // +0.5pt, plenty of time

	if len(ed.texts) != 1 {
		t.Errorf("edits = %d, sub-point delta should be gated regardless of time", len(ed.texts))
	}
}

func TestReport_PercentagesNonDecreasing(t *testing.T) {
	ed := &fakeEditor{}
	r, _, now := newTestReporter(ed)

	steps := []int64{5, 20, 18, 40, 40, 90} // one regression snapshot in the middle
	for _, d := range steps {
		r.Report(1, 1, downloading(d, 100))
		*now = now.Add(2 * time.Second)
	}

	last := -1.0
	for _, text := range ed.texts {
		pct, ok := renderedPercent(text)
		if !ok {
			t.Fatalf("no percent in %q", text)
		}
		if pct < last {
			t.Errorf("rendered percent regressed: %v then %v", last, pct)
		}
		last = pct
	}
}

func TestReport_UnknownTotalSkipsEdit(t *testing.T) {
	ed := &fakeEditor{}
	r, _, _ := newTestReporter(ed)

	r.Report(1, 1, downloading(500, 0))
	if len(ed.texts) != 0 {
		t.Errorf("edits = %d, unknown total must not render", len(ed.texts))
	}
}

func TestReport_TerminalFiresOnceAndBypassesGates(t *testing.T) {
	ed := &fakeEditor{}
	r, _, _ := newTestReporter(ed)

	r.Report(1, 1, downloading(99, 100))
	fin := ytdl.ProgressEvent{Status: ytdl.StatusFinished, DownloadedBytes: 100, TotalBytes: 100}
	r.Report(1, 1, fin) // immediately after an edit; gates must not apply
	r.Report(1, 1, fin) // repeated terminal from postprocessing

	terminal := 0
	for _, text := range ed.texts {
		if strings.Contains(text, "processing") {
			terminal++
		}
	}
	if terminal != 1 {
		t.Errorf("terminal edits = %d, expected exactly one", terminal)
	}
}

func TestReport_NoProgressMessageNoEdit(t *testing.T) {
	ed := &fakeEditor{}
	store := session.NewStore()
	r := NewReporter(store, ed, time.Second, 1.0)

	r.Report(9, 9, downloading(10, 100))
	if len(ed.texts) != 0 {
		t.Errorf("edits = %d, session without a progress slot must be ignored", len(ed.texts))
	}
}

func TestReport_EditErrorsSwallowed(t *testing.T) {
	ed := &fakeEditor{err: errors.New("Bad Request: message is not modified")}
	r, store, now := newTestReporter(ed)

	r.Report(1, 1, downloading(10, 100))
	*now = now.Add(2 * time.Second)
	r.Report(1, 1, downloading(20, 100))

	if len(ed.texts) != 2 {
		t.Errorf("edits = %d, failures must not stop reporting", len(ed.texts))
	}
	if got := store.Get(1).LastPercent; got != 20 {
		t.Errorf("LastPercent = %v", got)
	}
}

// renderedPercent pulls the "N.N%" token out of a rendered progress text.
func renderedPercent(text string) (float64, bool) {
	i := strings.Index(text, "%")
	if i < 0 {
		return 0, false
	}
	start := strings.LastIndexAny(text[:i], " ") + 1
	v, err := strconv.ParseFloat(text[start:i], 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
