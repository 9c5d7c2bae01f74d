package speech

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"cloud.google.com/go/speech/apiv1/speechpb"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) string {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server.URL + "/v1"
}

func TestOpenAITranscriber(t *testing.T) {
	var gotPath, gotFile, gotModel string
	var gotAudio []byte
	url := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		gotModel = r.FormValue("model")
		f, hdr, err := r.FormFile("file")
		if err == nil {
			gotFile = hdr.Filename
			gotAudio, _ = io.ReadAll(f)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"text": "  I would check the consent form. "})
	})

	tr, err := NewOpenAITranscriber(OpenAIConfig{APIKey: "k", BaseURL: url})
	if err != nil {
		t.Fatal(err)
	}
	text, err := tr.Transcribe(context.Background(), []byte("RIFFdata"), "audio/wav")
	if err != nil {
		t.Fatal(err)
	}
	if text != "I would check the consent form." {
		t.Errorf("text = %q", text)
	}
	if gotPath != "/v1/audio/transcriptions" || gotModel != "whisper-1" {
		t.Errorf("path=%s model=%s", gotPath, gotModel)
	}
	if !strings.HasSuffix(gotFile, ".wav") || string(gotAudio) != "RIFFdata" {
		t.Errorf("file=%s audio=%q", gotFile, gotAudio)
	}

	if _, err := tr.Transcribe(context.Background(), nil, "audio/wav"); !errors.Is(err, ErrEmptyAudio) {
		t.Errorf("empty audio err = %v", err)
	}
}

func TestOpenAISynthesizer(t *testing.T) {
	var gotBody map[string]any
	url := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/audio/speech" {
			t.Errorf("path = %s", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "audio/mpeg")
		w.Write([]byte("ID3mp3bytes"))
	})

	s, err := NewOpenAISynthesizer(OpenAIConfig{APIKey: "k", BaseURL: url, Voice: "nova"})
	if err != nil {
		t.Fatal(err)
	}
	audio, err := s.Synthesize(context.Background(), "Tell me about port placement.")
	if err != nil {
		t.Fatal(err)
	}
	if string(audio.Data) != "ID3mp3bytes" || audio.MimeType != "audio/mpeg" {
		t.Errorf("audio = %+v", audio)
	}
	if gotBody["voice"] != "nova" || gotBody["input"] != "Tell me about port placement." || gotBody["model"] != "tts-1" {
		t.Errorf("request body = %v", gotBody)
	}
}

func TestOpenAIRequiresKey(t *testing.T) {
	if _, err := NewOpenAITranscriber(OpenAIConfig{}); err == nil {
		t.Error("expected error without API key")
	}
	if _, err := NewOpenAISynthesizer(OpenAIConfig{}); err == nil {
		t.Error("expected error without API key")
	}
}

func TestFileExtAndEncoding(t *testing.T) {
	tests := []struct {
		mime string
		ext  string
		enc  speechpb.RecognitionConfig_AudioEncoding
	}{
		{"audio/webm;codecs=opus", ".webm", speechpb.RecognitionConfig_WEBM_OPUS},
		{"audio/wav", ".wav", speechpb.RecognitionConfig_LINEAR16},
		{"audio/x-wav", ".wav", speechpb.RecognitionConfig_LINEAR16},
		{"audio/mpeg", ".mp3", speechpb.RecognitionConfig_MP3},
		{"audio/ogg", ".ogg", speechpb.RecognitionConfig_OGG_OPUS},
		{"audio/flac", ".flac", speechpb.RecognitionConfig_FLAC},
		{"audio/mp4", ".m4a", speechpb.RecognitionConfig_ENCODING_UNSPECIFIED},
		{"", ".webm", speechpb.RecognitionConfig_WEBM_OPUS},
	}
	for _, tt := range tests {
		if got := fileExt(tt.mime); got != tt.ext {
			t.Errorf("fileExt(%q) = %s, want %s", tt.mime, got, tt.ext)
		}
		if got := encodingFor(tt.mime); got != tt.enc {
			t.Errorf("encodingFor(%q) = %v, want %v", tt.mime, got, tt.enc)
		}
	}
}

func TestJoinTranscript(t *testing.T) {
	results := []*speechpb.SpeechRecognitionResult{
		{Alternatives: []*speechpb.SpeechRecognitionAlternative{{Transcript: " first part "}}},
		nil,
		{Alternatives: nil},
		{Alternatives: []*speechpb.SpeechRecognitionAlternative{{Transcript: "second part"}, {Transcript: "ignored"}}},
	}
	if got := joinTranscript(results); got != "first part second part" {
		t.Errorf("joinTranscript = %q", got)
	}
}

func TestFactories(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultConfig()

	tr, err := NewTranscriber(ctx, cfg, nil)
	if err != nil || tr != nil {
		t.Errorf("stt=none: %v %v", tr, err)
	}

	cfg.STT, cfg.TTS = "mock", "mock"
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	tr, err = NewTranscriber(ctx, cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	if text, _ := tr.Transcribe(ctx, []byte("spoken words"), "audio/webm"); text != "spoken words" {
		t.Errorf("mock transcript = %q", text)
	}
	syn, err := NewSynthesizer(cfg)
	if err != nil || syn == nil {
		t.Fatalf("mock synthesizer: %v", err)
	}

	cfg.STT = "openai"
	if err := cfg.Validate(); err == nil {
		t.Error("stt=openai without key should fail validation")
	}
	cfg.STT = "carrier-pigeon"
	if err := cfg.Validate(); err == nil {
		t.Error("unknown stt should fail validation")
	}
}
