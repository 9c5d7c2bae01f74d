package llm

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestValidateResponse(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr bool
	}{
		{"valid", `{"score":7,"feedback":"Good"}`, false},
		{"missing required", `{"score":7}`, true},
		{"wrong type", `{"score":"seven","feedback":"x"}`, true},
		{"out of range", `{"score":0,"feedback":"x"}`, true},
		{"extra property", `{"score":7,"feedback":"x","bonus":1}`, true},
		{"not json", `score: 7`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateResponse(testScoreSchema(), json.RawMessage(tt.raw))
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				var inv *ErrInvalidResponse
				if !errors.As(err, &inv) {
					t.Fatalf("expected ErrInvalidResponse, got %T", err)
				}
			}
		})
	}
}

func TestValidateResponse_NilSchema(t *testing.T) {
	if err := validateResponse(nil, json.RawMessage(`anything`)); err != nil {
		t.Fatalf("nil schema should pass, got %v", err)
	}
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain object", `{"a":1}`, `{"a":1}`},
		{"whitespace", "  {\"a\":1}\n", `{"a":1}`},
		{"fenced", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"prose around", "Here you go: {\"a\":[1,2]} hope it helps", `{"a":[1,2]}`},
		{"array", "result:\n[1,2,3]", `[1,2,3]`},
		{"no json", "no json here", "no json here"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := string(ExtractJSON([]byte(tt.in))); got != tt.want {
				t.Errorf("ExtractJSON(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestDecode(t *testing.T) {
	var v struct {
		Score int `json:"score"`
	}
	if err := Decode(&Response{Content: json.RawMessage("```\n{\"score\":4}\n```")}, &v); err != nil {
		t.Fatal(err)
	}
	if v.Score != 4 {
		t.Fatalf("score = %d", v.Score)
	}

	err := Decode(&Response{Content: json.RawMessage(`nope`)}, &v)
	var inv *ErrInvalidResponse
	if !errors.As(err, &inv) {
		t.Fatalf("expected ErrInvalidResponse, got %T", err)
	}
	if err := Decode(nil, &v); err == nil {
		t.Fatal("expected error for nil response")
	}
}
