package bot

import (
	"errors"
	"strings"

	"github.com/wapuda/mediagrab/internal/upload"
	"github.com/wapuda/mediagrab/internal/ytdl"
)

// One fixed user-facing message per failure class, edited into the progress
// slot. Guidance is class-specific: retry later for blocks, different
// quality for missing formats.
const (
	msgWelcome = "👋 Welcome!\n\n" +
		"Send me any video URL (YouTube, etc.) and I will help you download it.\n" +
		"You can choose to download it as MP3 (audio) or MP4 (video).\n\n" +
		"Just send me the link to get started!"
	msgMustJoin      = "🚫 You must join our group to use this bot.\nClick below to join and then send /start again."
	msgStartOver     = "❌ Missing information. Please send the link again to start over."
	msgBusy          = "⏳ A download is already running for you. Wait for it to finish."
	msgCanceled      = "Canceled. Send a link to start again."
	msgQuotaExceeded = "🚫 Daily download limit reached. Try again tomorrow."
	msgChooseFormat  = "Choose the format:"
	msgChooseQuality = "Choose video quality:"
	msgProbing       = "🔍 Getting video info..."
	msgNoFFmpeg      = "⚠️ Audio conversion is unavailable right now.\nI can send the audio in its original format instead."

	msgNoFormats   = "❌ Content Not Available.\nThe link may be broken, private, or unsupported."
	msgNetProbe    = "❌ Can't reach the video host right now. Please try again in a few minutes."
	msgBlocked     = "❌ The video host blocked automated access. Please try again later."
	msgNoSuchFmt   = "❌ Requested format is not available. Try a different quality."
	msgNoTranscode = "❌ Audio conversion tool is unavailable on the server."
	msgNetDownload = "❌ Network error during download. Please try again."
	msgUnknown     = "❌ Download failed. Please check the URL and try again."
	msgTooLarge    = "❌ File too large (>50MB). Try with a shorter video or different quality."
	msgSendTimeout = "⚠️ Upload timeout: the file may still arrive, but the status update failed due to a slow connection."
	msgSendFailed  = "❌ Error sending the file. Please try again."
)

// failureMessage maps any pipeline error onto its fixed user message.
func failureMessage(err error) string {
	switch {
	case errors.Is(err, ytdl.ErrNetworkUnreachable):
		return msgNetProbe
	case errors.Is(err, ytdl.ErrNoFormats):
		return msgNoFormats
	case errors.Is(err, upload.ErrFileTooLarge):
		return msgTooLarge
	case errors.Is(err, upload.ErrTimeout):
		return msgSendTimeout
	case errors.Is(err, upload.ErrTransport):
		return msgSendFailed
	}

	var de *ytdl.DownloadError
	if errors.As(err, &de) {
		switch de.Class {
		case ytdl.ClassBlocked:
			return msgBlocked
		case ytdl.ClassFormatUnavailable:
			return msgNoSuchFmt
		case ytdl.ClassTranscodeUnavailable:
			return msgNoTranscode
		case ytdl.ClassNetworkError:
			return msgNetDownload
		}
	}
	return msgUnknown
}

// sanitizeTitle makes a probe title safe as a filename.
func sanitizeTitle(title string) string {
	var b strings.Builder
	for _, r := range title {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_' || r == '.':
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}
