package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/exec"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/wapuda/mediagrab/internal/bot"
	"github.com/wapuda/mediagrab/internal/config"
	"github.com/wapuda/mediagrab/internal/cookies"
	"github.com/wapuda/mediagrab/internal/jobs"
	"github.com/wapuda/mediagrab/internal/logx"
	"github.com/wapuda/mediagrab/internal/progress"
	"github.com/wapuda/mediagrab/internal/quota"
	"github.com/wapuda/mediagrab/internal/session"
	"github.com/wapuda/mediagrab/internal/telegram"
	"github.com/wapuda/mediagrab/internal/upload"
	"github.com/wapuda/mediagrab/internal/ytdl"
)

func main() {
	_ = godotenv.Load()

	logx.Setup(logx.FromEnv("bot"))
	log.Info().Msg("bot starting")

	cfg, err := config.Load()
	if err != nil {
		log.Error().Err(err).Msg("configuration")
		os.Exit(1)
	}

	if err := os.MkdirAll(cfg.DownloadDir, 0o755); err != nil {
		log.Error().Err(err).Msg("download dir")
		os.Exit(1)
	}

	if err := ytdl.Install(context.Background()); err != nil {
		log.Error().Err(err).Msg("yt-dlp unavailable")
		os.Exit(1)
	}

	ffmpegOK := true
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		ffmpegOK = false
		log.Warn().Msg("ffmpeg not found; audio transcode disabled")
	}

	// health endpoint
	go func() {
		http.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte(`{"ok":true}`)) })
		log.Info().Msg("bot health on :8080/health")
		log.Error().Err(http.ListenAndServe(":8080", nil)).Msg("health endpoint stopped")
	}()

	botAPI, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		log.Error().Err(err).Msg("telegram auth")
		os.Exit(1)
	}
	botAPI.Debug = false
	log.Info().Str("username", botAPI.Self.UserName).Msg("bot authorized")

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	asClient := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer asClient.Close()

	tg := telegram.NewClient(botAPI)
	store := session.NewStore()

	tool := &ytdl.Tool{
		Proxy:      cfg.ProxyURL,
		ForceIPv4:  cfg.ForceIPv4,
		UserAgent:  cfg.UserAgent,
		CookieFile: cfg.CookieFilePath,
	}
	strategies := ytdl.DefaultStrategies()
	for i := range strategies {
		if strategies[i].Retries > cfg.ProbeRetries {
			strategies[i].Retries = cfg.ProbeRetries
		}
	}

	ctrl := bot.New(cfg, bot.Deps{
		TG:       tg,
		Store:    store,
		Neg:      ytdl.NewNegotiator(tool, strategies, cfg.ProbeBackoffMin, cfg.ProbeBackoffMax),
		Runner: ytdl.NewRunner(tool, ytdl.RunnerOptions{
			Retries:    cfg.JobRetries,
			BackoffMin: cfg.JobBackoffMin,
			BackoffMax: cfg.JobBackoffMax,
			Rotation:   cfg.ClientRotation,
			Strategies: strategies,
		}),
		Reporter: progress.NewReporter(store, tg, cfg.ProgressMinInterval, cfg.ProgressMinDelta),
		Gate:     upload.NewGate(tg, cfg.UploadLimitBytes, cfg.SendTimeout),
		Cookies:  cookies.NewFetcher(cfg.CredStoreURL, cfg.CredStoreToken, cfg.CookieFilePath),
		Quota:    quota.New(rdb, cfg.DailyMax),
		Enqueue: func(ctx context.Context, p jobs.DownloadPayload) error {
			b, err := json.Marshal(p)
			if err != nil {
				return err
			}
			_, err = asClient.EnqueueContext(ctx, asynq.NewTask(jobs.TaskDownload, b),
				asynq.MaxRetry(0), asynq.Timeout(cfg.DownloadTimeout))
			return err
		},
		FFmpegOK: ffmpegOK,
	})

	// In-process worker: the pipeline runs here so one user's download
	// never blocks the update loop.
	srv := asynq.NewServer(asynq.RedisClientOpt{Addr: cfg.RedisAddr}, asynq.Config{
		Concurrency: cfg.Concurrency,
	})
	mux := asynq.NewServeMux()
	mux.HandleFunc(jobs.TaskDownload, ctrl.HandleDownloadTask)
	go func() {
		if err := srv.Run(mux); err != nil {
			log.Error().Err(err).Msg("worker stopped")
			os.Exit(1)
		}
	}()

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	for upd := range botAPI.GetUpdatesChan(u) {
		ctrl.HandleUpdate(upd)
	}
}
