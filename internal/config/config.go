package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// ErrNoToken is fatal at startup; everything else has a default.
var ErrNoToken = errors.New("BOT_TOKEN is required")

type Config struct {
	BotToken string

	RedisAddr   string
	Concurrency int

	DownloadDir string
	ProxyURL    string
	ForceIPv4   bool
	UserAgent   string

	// Credential store (cookie refresh). Empty ref disables the refresh.
	CredStoreURL   string
	CredStoreToken string
	CookieFileRef  string
	CookieFilePath string

	// Membership gating. Empty group disables the check.
	RequiredGroup string

	// Negotiation / selector tunables. The tolerance window and clause cap
	// are deliberate knobs, not derived values.
	QualityTolerance  int
	SelectorMaxClause int
	ProbeRetries      int
	ProbeBackoffMin   time.Duration
	ProbeBackoffMax   time.Duration

	// Download retry policy.
	JobRetries      int
	JobBackoffMin   time.Duration
	JobBackoffMax   time.Duration
	ClientRotation  []string
	DownloadTimeout time.Duration

	// Progress gating.
	ProgressMinInterval time.Duration
	ProgressMinDelta    float64

	// Upload policy.
	UploadLimitBytes int64
	SendTimeout      time.Duration

	// Daily quota (outputs per user per day). 0 disables.
	DailyMax int
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func mustInt(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func mustFloat(k string, def float64) float64 {
	if v := os.Getenv(k); v != "" {
		if x, err := strconv.ParseFloat(v, 64); err == nil {
			return x
		}
	}
	return def
}

func mustBool(k string, def bool) bool {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v == "1" || strings.EqualFold(v, "true") || strings.EqualFold(v, "yes")
	}
	return def
}

func mustSeconds(k string, def int) time.Duration {
	return time.Duration(mustInt(k, def)) * time.Second
}

func mustList(k string, def []string) []string {
	if s := os.Getenv(k); s != "" {
		var out []string
		for _, p := range strings.Split(s, ",") {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return def
}

// Load reads configuration from the environment. Only the bot token is
// required; the rest falls back to defaults matching production behavior.
func Load() (Config, error) {
	c := Config{
		BotToken: os.Getenv("BOT_TOKEN"),

		RedisAddr:   getenv("REDIS_ADDR", "localhost:6379"),
		Concurrency: mustInt("CONCURRENCY", 4),

		DownloadDir: getenv("DOWNLOAD_DIR", "downloads"),
		ProxyURL:    os.Getenv("PROXY_URL"),
		ForceIPv4:   mustBool("FORCE_IPV4", false),
		UserAgent:   os.Getenv("USER_AGENT"),

		CredStoreURL:   os.Getenv("CRED_STORE_URL"),
		CredStoreToken: os.Getenv("CRED_STORE_TOKEN"),
		CookieFileRef:  os.Getenv("COOKIE_FILE_REF"),
		CookieFilePath: getenv("COOKIE_FILE", "cookies.txt"),

		RequiredGroup: os.Getenv("REQUIRED_GROUP"),

		QualityTolerance:  mustInt("QUALITY_TOLERANCE", 100),
		SelectorMaxClause: mustInt("SELECTOR_MAX_CLAUSES", 8),
		ProbeRetries:      mustInt("PROBE_RETRIES", 2),
		ProbeBackoffMin:   mustSeconds("PROBE_BACKOFF_MIN", 1),
		ProbeBackoffMax:   mustSeconds("PROBE_BACKOFF_MAX", 3),

		JobRetries:      mustInt("JOB_RETRIES", 2),
		JobBackoffMin:   mustSeconds("JOB_BACKOFF_MIN", 2),
		JobBackoffMax:   mustSeconds("JOB_BACKOFF_MAX", 5),
		ClientRotation:  mustList("CLIENT_ROTATION", []string{"android", "ios", "web"}),
		DownloadTimeout: mustSeconds("DOWNLOAD_TIMEOUT", 600),

		ProgressMinInterval: mustSeconds("PROGRESS_MIN_INTERVAL", 1),
		ProgressMinDelta:    mustFloat("PROGRESS_MIN_DELTA", 1.0),

		UploadLimitBytes: int64(mustInt("UPLOAD_LIMIT_MB", 50)) * 1024 * 1024,
		SendTimeout:      mustSeconds("SEND_TIMEOUT", 60),

		DailyMax: mustInt("DAILY_MAX", 0),
	}
	if c.BotToken == "" {
		return Config{}, ErrNoToken
	}
	return c, nil
}
