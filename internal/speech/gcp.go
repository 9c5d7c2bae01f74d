package speech

import (
	"context"
	"fmt"
	"strings"

	gspeech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"google.golang.org/api/option"

	"github.com/abhisek/viva/internal/logger"
)

// GCPTranscriber uses Google Cloud Speech-to-Text.
type GCPTranscriber struct {
	client *gspeech.Client
	cfg    GCPConfig
	log    *logger.Logger
}

// NewGCPTranscriber dials the Speech API. Without a credentials file the
// client uses application default credentials.
func NewGCPTranscriber(ctx context.Context, cfg GCPConfig, log *logger.Logger) (*GCPTranscriber, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	c, err := gspeech.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("speech client: %w", err)
	}
	return &GCPTranscriber{
		client: c,
		cfg:    cfg,
		log:    logger.OrNop(log).With("service", "gcp.Speech"),
	}, nil
}

func (t *GCPTranscriber) Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error) {
	if len(audio) == 0 {
		return "", ErrEmptyAudio
	}

	req := &speechpb.LongRunningRecognizeRequest{
		Config: recognitionConfig(mimeType, t.cfg),
		Audio:  &speechpb.RecognitionAudio{AudioSource: &speechpb.RecognitionAudio_Content{Content: audio}},
	}
	op, err := t.client.LongRunningRecognize(ctx, req)
	if err != nil {
		return "", fmt.Errorf("speech longrunningrecognize: %w", err)
	}
	resp, err := op.Wait(ctx)
	if err != nil {
		return "", fmt.Errorf("speech wait: %w", err)
	}

	text := joinTranscript(resp.GetResults())
	t.log.Debug("transcribed answer", "bytes", len(audio), "chars", len(text))
	return text, nil
}

// Close releases the client connection.
func (t *GCPTranscriber) Close() error {
	return t.client.Close()
}

func recognitionConfig(mimeType string, cfg GCPConfig) *speechpb.RecognitionConfig {
	lang := cfg.LanguageCode
	if lang == "" {
		lang = "en-US"
	}
	return &speechpb.RecognitionConfig{
		LanguageCode:               lang,
		Model:                      cfg.Model,
		EnableAutomaticPunctuation: true,
		Encoding:                   encodingFor(mimeType),
	}
}

func encodingFor(mimeType string) speechpb.RecognitionConfig_AudioEncoding {
	switch fileExt(mimeType) {
	case ".wav":
		return speechpb.RecognitionConfig_LINEAR16
	case ".flac":
		return speechpb.RecognitionConfig_FLAC
	case ".mp3":
		return speechpb.RecognitionConfig_MP3
	case ".ogg":
		return speechpb.RecognitionConfig_OGG_OPUS
	case ".webm":
		return speechpb.RecognitionConfig_WEBM_OPUS
	default:
		return speechpb.RecognitionConfig_ENCODING_UNSPECIFIED
	}
}

func joinTranscript(results []*speechpb.SpeechRecognitionResult) string {
	var b strings.Builder
	for _, r := range results {
		if r == nil || len(r.Alternatives) == 0 || r.Alternatives[0] == nil {
			continue
		}
		text := strings.TrimSpace(r.Alternatives[0].Transcript)
		if text == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(text)
	}
	return b.String()
}
