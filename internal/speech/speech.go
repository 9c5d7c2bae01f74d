// Package speech converts spoken answers to text and questions to audio.
package speech

import (
	"context"
	"errors"
	"strings"
)

// ErrEmptyAudio is returned when there is nothing to transcribe.
var ErrEmptyAudio = errors.New("speech: empty audio")

// Transcriber turns recorded audio into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error)
}

// Synthesizer turns text into audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) (*Audio, error)
}

// Audio is synthesized speech.
type Audio struct {
	Data     []byte
	MimeType string
}

// fileExt maps a MIME type to the file extension backends use to detect the
// container format.
func fileExt(mimeType string) string {
	m := strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.IndexByte(m, ';'); i >= 0 {
		m = m[:i]
	}
	switch {
	case strings.Contains(m, "webm"):
		return ".webm"
	case strings.Contains(m, "wav"):
		return ".wav"
	case strings.Contains(m, "mpeg"), strings.Contains(m, "mp3"):
		return ".mp3"
	case strings.Contains(m, "ogg"), strings.Contains(m, "opus"):
		return ".ogg"
	case strings.Contains(m, "mp4"), strings.Contains(m, "m4a"), strings.Contains(m, "aac"):
		return ".m4a"
	case strings.Contains(m, "flac"):
		return ".flac"
	default:
		return ".webm"
	}
}
