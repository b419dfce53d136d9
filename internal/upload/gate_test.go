package upload

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type fakeTransport struct {
	docs     []string // display names sent
	msgs     []string
	deleted  []int
	sendErr  error
	sendSeen func()
}

func (f *fakeTransport) SendMessage(_ int64, text string, _ *tgbotapi.InlineKeyboardMarkup) (int, error) {
	f.msgs = append(f.msgs, text)
	return 1, nil
}

func (f *fakeTransport) EditMessageText(int64, int, string) error { return nil }

func (f *fakeTransport) DeleteMessage(_ int64, messageID int) error {
	f.deleted = append(f.deleted, messageID)
	return nil
}

func (f *fakeTransport) SendDocument(_ context.Context, _ int64, _, filename string) error {
	if f.sendSeen != nil {
		f.sendSeen()
	}
	if f.sendErr != nil {
		return f.sendErr
	}
	f.docs = append(f.docs, filename)
	return nil
}

func (f *fakeTransport) GetChatMember(string, int64) (string, error) { return "member", nil }
func (f *fakeTransport) AnswerCallback(string, string) error         { return nil }

func artifact(t *testing.T, size int64) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "7_1700000000.mp4")
	if err := os.WriteFile(path, make([]byte, size), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestUpload_Success(t *testing.T) {
	tr := &fakeTransport{}
	g := NewGate(tr, 50*1024*1024, time.Minute)
	path := artifact(t, 1024)

	err := g.Upload(context.Background(), 7, 55, path, "clip.mp4", Result{Format: "MP4", Quality: "720"})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if len(tr.docs) != 1 || tr.docs[0] != "clip.mp4" {
		t.Errorf("docs = %v", tr.docs)
	}
	if len(tr.msgs) != 1 {
		t.Fatalf("confirmation msgs = %v", tr.msgs)
	}
	if len(tr.deleted) != 1 || tr.deleted[0] != 55 {
		t.Errorf("deleted = %v, expected the progress slot", tr.deleted)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("artifact should be removed after success")
	}
}

func TestUpload_ExactCeilingAccepted(t *testing.T) {
	limit := int64(50 * 1024 * 1024)
	tr := &fakeTransport{}
	g := NewGate(tr, limit, time.Minute)
	path := artifact(t, limit)

	if err := g.Upload(context.Background(), 7, 0, path, "clip.mp4", Result{}); err != nil {
		t.Errorf("exactly 50 MiB must be accepted, got %v", err)
	}
}

func TestUpload_OneByteOverRejectedWithoutSend(t *testing.T) {
	limit := int64(50 * 1024 * 1024)
	sent := false
	tr := &fakeTransport{sendSeen: func() { sent = true }}
	g := NewGate(tr, limit, time.Minute)
	path := artifact(t, limit+1)

	err := g.Upload(context.Background(), 7, 0, path, "clip.mp4", Result{})
	if !errors.Is(err, ErrFileTooLarge) {
		t.Errorf("err = %v, expected ErrFileTooLarge", err)
	}
	if sent {
		t.Error("no send attempt may be made for an oversize artifact")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("artifact should be removed on the oversize path too")
	}
}

func TestUpload_TransportFailureStillCleansUp(t *testing.T) {
	tr := &fakeTransport{sendErr: errors.New("tg is down")}
	g := NewGate(tr, 50*1024*1024, time.Minute)
	path := artifact(t, 10)

	err := g.Upload(context.Background(), 7, 0, path, "clip.mp4", Result{})
	if !errors.Is(err, ErrTransport) {
		t.Errorf("err = %v, expected ErrTransport", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("artifact should be removed after transport failure")
	}
}

func TestUpload_TimeoutClass(t *testing.T) {
	tr := &fakeTransport{sendErr: context.DeadlineExceeded}
	g := NewGate(tr, 50*1024*1024, time.Minute)
	path := artifact(t, 10)

	err := g.Upload(context.Background(), 7, 0, path, "clip.mp4", Result{})
	if !errors.Is(err, ErrTimeout) {
		t.Errorf("err = %v, expected ErrTimeout", err)
	}
}
