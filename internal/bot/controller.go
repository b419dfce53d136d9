package bot

import (
	"context"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"

	"github.com/wapuda/mediagrab/internal/config"
	"github.com/wapuda/mediagrab/internal/jobs"
	"github.com/wapuda/mediagrab/internal/progress"
	"github.com/wapuda/mediagrab/internal/session"
	"github.com/wapuda/mediagrab/internal/telegram"
	"github.com/wapuda/mediagrab/internal/upload"
	"github.com/wapuda/mediagrab/internal/ytdl"
)

// Pipeline collaborators, narrowed for testing.
type negotiator interface {
	Negotiate(ctx context.Context, url string) (*ytdl.NegotiateResult, error)
}

type runner interface {
	Run(ctx context.Context, job ytdl.Job, fn func(ytdl.ProgressEvent)) (string, error)
}

type uploader interface {
	Upload(ctx context.Context, chatID int64, progressMessageID int, path, name string, res upload.Result) error
}

type refresher interface {
	Refresh(ctx context.Context, ref string)
}

type limiter interface {
	Allow(ctx context.Context, userID int64) (int, bool)
	Charge(ctx context.Context, userID int64) error
}

// Enqueuer hands a download payload to the background job queue.
type Enqueuer func(ctx context.Context, p jobs.DownloadPayload) error

// Deps wires the controller to everything downstream.
type Deps struct {
	TG       telegram.API
	Store    *session.Store
	Neg      negotiator
	Runner   runner
	Reporter *progress.Reporter
	Gate     uploader
	Cookies  refresher
	Quota    limiter
	Enqueue  Enqueuer
	FFmpegOK bool
}

// Controller owns the conversational state machine: it maps incoming chat
// events onto session transitions and hands ready jobs to the queue.
type Controller struct {
	cfg config.Config
	d   Deps
}

func New(cfg config.Config, d Deps) *Controller {
	return &Controller{cfg: cfg, d: d}
}

var qualityTokens = map[string]bool{
	"144": true, "240": true, "360": true, "480": true,
	"720": true, "1080": true, "best": true,
}

// HandleUpdate is the single dispatch entry for the update loop.
func (c *Controller) HandleUpdate(upd tgbotapi.Update) {
	switch {
	case upd.Message != nil:
		c.onMessage(upd.Message)
	case upd.CallbackQuery != nil:
		c.onCallback(upd.CallbackQuery)
	}
}

func (c *Controller) onMessage(m *tgbotapi.Message) {
	log.Info().
		Int64("chat_id", m.Chat.ID).
		Int64("user_id", m.From.ID).
		Msg("message received")

	if m.IsCommand() {
		switch m.Command() {
		case "start":
			c.onStart(m)
		case "cancel":
			c.onCancelCommand(m.From.ID, m.Chat.ID)
		default:
			_, _ = c.d.TG.SendMessage(m.Chat.ID, "Unknown command. Send a video link to start.", nil)
		}
		return
	}

	text := strings.TrimSpace(m.Text)
	if !strings.HasPrefix(text, "http://") && !strings.HasPrefix(text, "https://") {
		_, _ = c.d.TG.SendMessage(m.Chat.ID, "Send me a video link (starting with http).", nil)
		return
	}
	c.onURL(m.From.ID, m.Chat.ID, text)
}

// onStart gates on group membership when configured. A failed check is
// non-fatal and degrades to the join prompt.
func (c *Controller) onStart(m *tgbotapi.Message) {
	if c.cfg.RequiredGroup != "" {
		status, err := c.d.TG.GetChatMember(c.cfg.RequiredGroup, m.From.ID)
		member := err == nil && (status == "member" || status == "administrator" || status == "creator")
		if !member {
			if err != nil {
				log.Warn().Err(err).Msg("membership check failed")
			}
			kb := joinKeyboard(c.cfg.RequiredGroup)
			_, _ = c.d.TG.SendMessage(m.Chat.ID, msgMustJoin, &kb)
			return
		}
	}
	c.d.Store.Clear(m.From.ID)
	_, _ = c.d.TG.SendMessage(m.Chat.ID, msgWelcome, nil)
}

func (c *Controller) onCancelCommand(userID, chatID int64) {
	if c.d.Store.Get(userID).State.Busy() {
		_, _ = c.d.TG.SendMessage(chatID, msgBusy, nil)
		return
	}
	c.d.Store.Clear(userID)
	_, _ = c.d.TG.SendMessage(chatID, msgCanceled, nil)
}

func (c *Controller) onURL(userID, chatID int64, url string) {
	sess := c.d.Store.Get(userID)
	if sess.State.Busy() {
		_, _ = c.d.TG.SendMessage(chatID, msgBusy, nil)
		return
	}
	c.d.Store.Update(userID, func(s *session.Session) {
		*s = session.Session{SourceURL: url, State: session.StateAwaitingFormat}
	})
	kb := formatKeyboard()
	_, _ = c.d.TG.SendMessage(chatID, msgChooseFormat, &kb)
}

func (c *Controller) onCallback(cq *tgbotapi.CallbackQuery) {
	_ = c.d.TG.AnswerCallback(cq.ID, "")
	if cq.Message == nil {
		return
	}
	userID := cq.From.ID
	chatID := cq.Message.Chat.ID
	data := cq.Data

	log.Info().
		Int64("user_id", userID).
		Str("data", data).
		Msg("callback received")

	switch {
	case data == "mp3":
		c.onFormatAudio(userID, chatID, cq.Message.MessageID, false)
	case data == "audio_original":
		c.onFormatAudio(userID, chatID, cq.Message.MessageID, true)
	case data == "mp4":
		c.onFormatVideo(userID, chatID, cq.Message.MessageID)
	case qualityTokens[data]:
		c.onQuality(userID, chatID, cq.Message.MessageID, data)
	case data == "cancel":
		c.onCancelButton(userID, chatID, cq.Message.MessageID)
	}
}

func (c *Controller) onFormatAudio(userID, chatID int64, messageID int, original bool) {
	sess := c.d.Store.Get(userID)
	if sess.State != session.StateAwaitingFormat || sess.SourceURL == "" {
		c.rejectStartOver(chatID)
		return
	}
	if !c.d.FFmpegOK && !original {
		// No transcoder on the host; offer the original-audio path instead
		// of failing the job later.
		kb := audioFallbackKeyboard()
		_, _ = c.d.TG.SendMessage(chatID, msgNoFFmpeg, &kb)
		return
	}
	c.startJob(userID, chatID, messageID, session.KindAudio, "", original)
}

func (c *Controller) onFormatVideo(userID, chatID int64, messageID int) {
	sess := c.d.Store.Get(userID)
	if sess.State != session.StateAwaitingFormat || sess.SourceURL == "" {
		c.rejectStartOver(chatID)
		return
	}
	c.d.Store.Update(userID, func(s *session.Session) {
		s.Kind = session.KindVideo
		s.State = session.StateAwaitingQuality
	})
	if err := c.d.TG.EditMessageText(chatID, messageID, msgChooseQuality); err != nil {
		log.Debug().Err(err).Msg("quality prompt edit failed")
	}
	kb := qualityKeyboard()
	_, _ = c.d.TG.SendMessage(chatID, msgChooseQuality, &kb)
}

func (c *Controller) onQuality(userID, chatID int64, messageID int, quality string) {
	sess := c.d.Store.Get(userID)
	if sess.State != session.StateAwaitingQuality || sess.SourceURL == "" {
		c.rejectStartOver(chatID)
		return
	}
	c.startJob(userID, chatID, messageID, session.KindVideo, quality, false)
}

func (c *Controller) onCancelButton(userID, chatID int64, messageID int) {
	sess := c.d.Store.Get(userID)
	if sess.State != session.StateAwaitingFormat && sess.State != session.StateAwaitingQuality {
		c.rejectStartOver(chatID)
		return
	}
	c.d.Store.Clear(userID)
	if err := c.d.TG.EditMessageText(chatID, messageID, msgCanceled); err != nil {
		_, _ = c.d.TG.SendMessage(chatID, msgCanceled, nil)
	}
}

// startJob flips the session into Negotiating, claims the tapped message as
// the progress slot, and enqueues the pipeline.
func (c *Controller) startJob(userID, chatID int64, messageID int, kind session.Kind, quality string, original bool) {
	if _, ok := c.d.Quota.Allow(context.Background(), userID); !ok {
		c.d.Store.Clear(userID)
		_, _ = c.d.TG.SendMessage(chatID, msgQuotaExceeded, nil)
		return
	}

	if err := c.d.TG.EditMessageText(chatID, messageID, msgProbing); err != nil {
		log.Debug().Err(err).Msg("probe notice edit failed")
	}

	sess := c.d.Store.Update(userID, func(s *session.Session) {
		s.Kind = kind
		s.Quality = quality
		s.OriginalAudio = original
		s.State = session.StateNegotiating
		s.ProgressMessageID = messageID
		s.LastPercent = 0
		s.LastReportedAt = time.Time{}
		s.TerminalShown = false
	})

	payload := jobs.DownloadPayload{
		UserID:            userID,
		ChatID:            chatID,
		URL:               sess.SourceURL,
		Kind:              string(kind),
		Quality:           quality,
		OriginalAudio:     original,
		ProgressMessageID: messageID,
	}
	if err := c.d.Enqueue(context.Background(), payload); err != nil {
		log.Error().Err(err).Msg("enqueue download failed")
		c.d.Store.Clear(userID)
		_ = c.d.TG.EditMessageText(chatID, messageID, msgUnknown)
	}
}

func (c *Controller) rejectStartOver(chatID int64) {
	_, _ = c.d.TG.SendMessage(chatID, msgStartOver, nil)
}

// --- Keyboards ---

func formatKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🎵 MP3", "mp3"),
			tgbotapi.NewInlineKeyboardButtonData("🎥 MP4", "mp4"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("❌ Cancel", "cancel"),
		),
	)
}

func qualityKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("144p", "144"),
			tgbotapi.NewInlineKeyboardButtonData("240p", "240"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("360p", "360"),
			tgbotapi.NewInlineKeyboardButtonData("480p", "480"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("720p", "720"),
			tgbotapi.NewInlineKeyboardButtonData("1080p", "1080"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Best Available", "best"),
			tgbotapi.NewInlineKeyboardButtonData("❌ Cancel", "cancel"),
		),
	)
}

func audioFallbackKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🎧 Original audio", "audio_original"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("❌ Cancel", "cancel"),
		),
	)
}

func joinKeyboard(group string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL("🔗 Join Group", "https://t.me/"+strings.TrimPrefix(group, "@")),
		),
	)
}
