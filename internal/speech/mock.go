package speech

import (
	"context"
	"sync"
)

// MockTranscriber returns Text, or the audio bytes as text when Text is
// empty.
type MockTranscriber struct {
	Text string
	Err  error

	mu    sync.Mutex
	calls int
}

func (m *MockTranscriber) Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", err
	}
	if m.Err != nil {
		return "", m.Err
	}
	if len(audio) == 0 {
		return "", ErrEmptyAudio
	}
	if m.Text != "" {
		return m.Text, nil
	}
	return string(audio), nil
}

// Calls returns the number of Transcribe calls.
func (m *MockTranscriber) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// MockSynthesizer returns the text bytes as "audio".
type MockSynthesizer struct {
	Err error
}

func (m *MockSynthesizer) Synthesize(ctx context.Context, text string) (*Audio, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return &Audio{Data: []byte(text), MimeType: "text/plain"}, nil
}
