package llm

import (
	"testing"

	"google.golang.org/genai"
)

func TestGeminiModelMapping(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"gemini-flash", "gemini-2.0-flash"},
		{"gemini-pro", "gemini-2.5-pro"},
		{"gemini-2.5-flash", "gemini-2.5-flash"},
	}
	for _, tt := range tests {
		if got := resolveModel(tt.input, geminiModels); got != tt.expected {
			t.Errorf("resolveModel(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestGeminiSchemaConversion(t *testing.T) {
	s := geminiSchema(testScoreSchema().Definition)

	if s.Type != genai.TypeObject {
		t.Fatalf("type = %v, want object", s.Type)
	}
	score := s.Properties["score"]
	if score == nil || score.Type != genai.TypeInteger {
		t.Fatalf("score property = %+v", score)
	}
	if score.Minimum == nil || *score.Minimum != 1 || score.Maximum == nil || *score.Maximum != 10 {
		t.Errorf("score bounds not carried over: %+v", score)
	}
	if len(s.Required) != 2 {
		t.Errorf("required = %v", s.Required)
	}
}

func TestStringList(t *testing.T) {
	if got := stringList([]any{"a", 1, "b"}); len(got) != 2 {
		t.Errorf("stringList([]any) = %v", got)
	}
	if got := stringList([]string{"x"}); len(got) != 1 {
		t.Errorf("stringList([]string) = %v", got)
	}
	if got := stringList(nil); got != nil {
		t.Errorf("stringList(nil) = %v", got)
	}
}
