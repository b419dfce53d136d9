package ytdl

import "encoding/json"

// MediaKind classifies one discovered format.
type MediaKind string

const (
	MediaMuxed     MediaKind = "muxed" // video with audio
	MediaVideoOnly MediaKind = "video"
	MediaAudioOnly MediaKind = "audio"
)

// FormatDescriptor is one downloadable variant of the source. Ephemeral;
// lives only for the duration of a negotiation.
type FormatDescriptor struct {
	ID        string
	Kind      MediaKind
	Height    int // 0 when not applicable (audio)
	Container string
}

// probeInfo mirrors the slice of yt-dlp's single-json dump we care about.
type probeInfo struct {
	Title   string      `json:"title"`
	Formats []rawFormat `json:"formats"`
}

type rawFormat struct {
	FormatID string  `json:"format_id"`
	Ext      string  `json:"ext"`
	Vcodec   string  `json:"vcodec"`
	Acodec   string  `json:"acodec"`
	Height   float64 `json:"height"`
}

func parseProbeJSON(data []byte) (*probeInfo, error) {
	var info probeInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// classifyFormat buckets a raw entry by codec presence. Storyboard and
// image pseudo-formats carry no codecs at all and are rejected.
func classifyFormat(f rawFormat) (FormatDescriptor, bool) {
	hasVideo := f.Vcodec != "" && f.Vcodec != "none"
	hasAudio := f.Acodec != "" && f.Acodec != "none"

	if !hasVideo && !hasAudio {
		return FormatDescriptor{}, false
	}
	if f.Ext == "mhtml" {
		return FormatDescriptor{}, false
	}

	d := FormatDescriptor{
		ID:        f.FormatID,
		Height:    int(f.Height),
		Container: f.Ext,
	}
	switch {
	case hasVideo && hasAudio:
		d.Kind = MediaMuxed
	case hasVideo:
		d.Kind = MediaVideoOnly
	default:
		d.Kind = MediaAudioOnly
	}
	return d, true
}

// splitFormats classifies every raw entry and splits audio from video.
// Muxed formats count as video but are also usable as an audio source.
func splitFormats(raw []rawFormat) (audio, video []FormatDescriptor) {
	for _, f := range raw {
		d, ok := classifyFormat(f)
		if !ok {
			continue
		}
		if d.Kind == MediaAudioOnly {
			audio = append(audio, d)
		} else {
			video = append(video, d)
		}
	}
	return audio, video
}
