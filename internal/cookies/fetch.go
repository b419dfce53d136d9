package cookies

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
)

var (
	ErrNotFound = errors.New("credential file not found")
	ErrAuth     = errors.New("credential store rejected token")
)

// Fetcher pulls the yt-dlp cookie file from a remote config store. Every
// failure here is non-fatal: the tool falls back to no-cookie operation.
type Fetcher struct {
	baseURL   string
	token     string
	localPath string
	client    *http.Client
}

func NewFetcher(baseURL, token, localPath string) *Fetcher {
	return &Fetcher{
		baseURL:   baseURL,
		token:     token,
		localPath: localPath,
		client:    &http.Client{Timeout: 15 * time.Second},
	}
}

// FetchFile downloads one remote ref as raw bytes.
func (f *Fetcher) FetchFile(ctx context.Context, ref string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.baseURL+"/"+ref, nil)
	if err != nil {
		return nil, err
	}
	if f.token != "" {
		req.Header.Set("Authorization", "Bearer "+f.token)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("credential fetch: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNotFound
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, ErrAuth
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("credential fetch: status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// Refresh re-downloads the cookie file before a job. Best effort; concurrent
// refreshes may race, so the write goes through a temp file and rename to
// keep the target either whole or absent.
func (f *Fetcher) Refresh(ctx context.Context, ref string) {
	if f.baseURL == "" || ref == "" {
		return
	}
	data, err := f.FetchFile(ctx, ref)
	if err != nil {
		log.Warn().Err(err).Msg("cookie refresh failed; continuing without")
		return
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.localPath), ".cookies-*")
	if err != nil {
		log.Warn().Err(err).Msg("cookie temp file failed")
		return
	}
	name := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(name)
		log.Warn().Err(err).Msg("cookie write failed")
		return
	}
	tmp.Close()
	if err := os.Rename(name, f.localPath); err != nil {
		os.Remove(name)
		log.Warn().Err(err).Msg("cookie rename failed")
	}
}
