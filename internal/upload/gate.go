package upload

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/wapuda/mediagrab/internal/telegram"
)

var (
	// ErrFileTooLarge fails fast before any transmission is attempted.
	ErrFileTooLarge = errors.New("artifact exceeds upload ceiling")
	ErrTimeout      = errors.New("upload timed out")
	ErrTransport    = errors.New("upload transport failure")
)

// Gate validates and ships a finished artifact. Whatever happens, the
// artifact file is removed exactly once before Upload returns.
type Gate struct {
	tg      telegram.API
	limit   int64
	timeout time.Duration
}

func NewGate(tg telegram.API, limit int64, timeout time.Duration) *Gate {
	return &Gate{tg: tg, limit: limit, timeout: timeout}
}

// Result summarizes a delivered artifact for the confirmation message.
type Result struct {
	Format  string // "MP3" / "MP4"
	Quality string // height or "N/A"
	Bytes   int64
}

// Upload sends the artifact as a document, confirms, and retires the
// progress message. progressMessageID may be 0 when no slot exists.
func (g *Gate) Upload(ctx context.Context, chatID int64, progressMessageID int, artifactPath, displayName string, res Result) error {
	defer func() {
		if err := os.Remove(artifactPath); err != nil && !os.IsNotExist(err) {
			log.Warn().Err(err).Str("path", artifactPath).Msg("artifact cleanup failed")
		}
	}()

	st, err := os.Stat(artifactPath)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	if st.Size() > g.limit {
		return fmt.Errorf("%w: %d bytes", ErrFileTooLarge, st.Size())
	}
	res.Bytes = st.Size()

	sendCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	if err := g.tg.SendDocument(sendCtx, chatID, artifactPath, displayName); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}

	summary := fmt.Sprintf("✅ Downloaded! Format: %s, Quality: %s, Size: %.1fMB",
		res.Format, res.Quality, float64(res.Bytes)/(1024*1024))
	if _, err := g.tg.SendMessage(chatID, summary, nil); err != nil {
		log.Warn().Err(err).Int64("chat_id", chatID).Msg("confirmation send failed")
	}

	// The progress message is stale once the document landed.
	if progressMessageID != 0 {
		if err := g.tg.DeleteMessage(chatID, progressMessageID); err != nil {
			log.Debug().Err(err).Msg("progress message delete failed")
		}
	}
	return nil
}
