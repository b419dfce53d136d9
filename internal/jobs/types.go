package jobs

// TaskDownload runs one user's negotiate → download → upload pipeline.
const TaskDownload = "download:run"

type DownloadPayload struct {
	UserID            int64  `json:"user_id"`
	ChatID            int64  `json:"chat_id"`
	URL               string `json:"url"`
	Kind              string `json:"kind"`    // "audio" or "video"
	Quality           string `json:"quality"` // height or "best"; empty for audio
	OriginalAudio     bool   `json:"original_audio"` // skip the mp3 transcode
	ProgressMessageID int    `json:"progress_message_id"`
}
