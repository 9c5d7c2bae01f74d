package speech

import (
	"context"
	"fmt"
	"time"

	"github.com/abhisek/viva/internal/logger"
)

// Config selects the speech backends.
type Config struct {
	// STT is one of "openai", "gcp", "mock" or "none".
	STT string `koanf:"stt"`

	// TTS is one of "openai", "mock" or "none".
	TTS string `koanf:"tts"`

	OpenAI OpenAIConfig `koanf:"openai"`
	GCP    GCPConfig    `koanf:"gcp"`

	TranscribeTimeout time.Duration `koanf:"transcribe_timeout"`
	SynthesizeTimeout time.Duration `koanf:"synthesize_timeout"`
}

type OpenAIConfig struct {
	APIKey          string  `koanf:"api_key"`
	BaseURL         string  `koanf:"base_url"`
	TranscribeModel string  `koanf:"transcribe_model"`
	TTSModel        string  `koanf:"tts_model"`
	Voice           string  `koanf:"voice"`
	Speed           float64 `koanf:"speed"`
}

type GCPConfig struct {
	CredentialsFile string `koanf:"credentials_file"`
	LanguageCode    string `koanf:"language_code"`
	Model           string `koanf:"model"`
}

// DefaultConfig disables speech and sets the standard timeouts.
func DefaultConfig() Config {
	return Config{
		STT: "none",
		TTS: "none",
		OpenAI: OpenAIConfig{
			TranscribeModel: "whisper-1",
			TTSModel:        "tts-1",
			Voice:           "alloy",
			Speed:           1.0,
		},
		GCP: GCPConfig{
			LanguageCode: "en-US",
		},
		TranscribeTimeout: 3 * time.Minute,
		SynthesizeTimeout: 30 * time.Second,
	}
}

// Validate checks that the selected backends are configured.
func (c Config) Validate() error {
	switch c.STT {
	case "", "none", "mock", "gcp":
	case "openai":
		if c.OpenAI.APIKey == "" {
			return fmt.Errorf("speech.openai.api_key is required for stt=openai")
		}
	default:
		return fmt.Errorf("unknown speech.stt %q", c.STT)
	}
	switch c.TTS {
	case "", "none", "mock":
	case "openai":
		if c.OpenAI.APIKey == "" {
			return fmt.Errorf("speech.openai.api_key is required for tts=openai")
		}
	default:
		return fmt.Errorf("unknown speech.tts %q", c.TTS)
	}
	return nil
}

// NewTranscriber builds the configured Transcriber, or nil for "none".
func NewTranscriber(ctx context.Context, cfg Config, log *logger.Logger) (Transcriber, error) {
	switch cfg.STT {
	case "", "none":
		return nil, nil
	case "mock":
		return &MockTranscriber{}, nil
	case "openai":
		return NewOpenAITranscriber(cfg.OpenAI)
	case "gcp":
		return NewGCPTranscriber(ctx, cfg.GCP, log)
	default:
		return nil, fmt.Errorf("unknown speech-to-text backend %q", cfg.STT)
	}
}

// NewSynthesizer builds the configured Synthesizer, or nil for "none".
func NewSynthesizer(cfg Config) (Synthesizer, error) {
	switch cfg.TTS {
	case "", "none":
		return nil, nil
	case "mock":
		return &MockSynthesizer{}, nil
	case "openai":
		return NewOpenAISynthesizer(cfg.OpenAI)
	default:
		return nil, fmt.Errorf("unknown text-to-speech backend %q", cfg.TTS)
	}
}
