package llm

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func testScoreSchema() *Schema {
	return &Schema{
		Name:        "test-score",
		Description: "A scored answer",
		Definition: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"score":    map[string]any{"type": "integer", "minimum": 1.0, "maximum": 10.0},
				"feedback": map[string]any{"type": "string"},
			},
			"required":             []any{"score", "feedback"},
			"additionalProperties": false,
		},
	}
}

func TestMockProvider_ServesQueueInOrder(t *testing.T) {
	mock := NewMockProvider(
		MockResponse{Content: json.RawMessage(`{"a":1}`), Usage: Usage{InputTokens: 10, OutputTokens: 5, TotalTokens: 15}},
		MockResponse{Content: json.RawMessage(`{"b":2}`)},
	)

	resp1, err := mock.Generate(context.Background(), Request{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(resp1.Content) != `{"a":1}` || resp1.Usage.InputTokens != 10 {
		t.Fatalf("first response = %s %+v", resp1.Content, resp1.Usage)
	}

	resp2, err := mock.Generate(context.Background(), Request{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(resp2.Content) != `{"b":2}` {
		t.Fatalf("second response = %s", resp2.Content)
	}

	_, err = mock.Generate(context.Background(), Request{})
	var unavail *ErrProviderUnavailable
	if !errors.As(err, &unavail) {
		t.Fatalf("expected ErrProviderUnavailable once drained, got: %T", err)
	}
	if mock.CallCount() != 3 {
		t.Fatalf("call count = %d, want 3", mock.CallCount())
	}
}

func TestMockProvider_HandlerAfterQueue(t *testing.T) {
	mock := NewMockProvider(MockResponse{Content: json.RawMessage(`{"queued":true}`)}).
		WithHandler(func(_ context.Context, req Request) MockResponse {
			return MockResponse{Content: json.RawMessage(`{"handled":"` + req.Messages[0].Content + `"}`)}
		})

	req := Request{Messages: []Message{{Role: RoleUser, Content: "x"}}}
	first, _ := mock.Generate(context.Background(), req)
	second, err := mock.Generate(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if string(first.Content) != `{"queued":true}` {
		t.Errorf("first = %s", first.Content)
	}
	if string(second.Content) != `{"handled":"x"}` {
		t.Errorf("second = %s", second.Content)
	}
}

func TestMockProvider_ValidatesSchema(t *testing.T) {
	mock := NewMockProvider(MockResponse{Content: json.RawMessage(`{"score":11,"feedback":"x"}`)})
	_, err := mock.Generate(context.Background(), Request{Schema: testScoreSchema()})
	var inv *ErrInvalidResponse
	if !errors.As(err, &inv) {
		t.Fatalf("expected ErrInvalidResponse, got: %T (%v)", err, err)
	}
}

func TestMockProvider_DelayHonorsContext(t *testing.T) {
	mock := NewMockProvider(MockResponse{Content: json.RawMessage(`{}`)}).WithDelay(time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := mock.Generate(ctx, Request{})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got: %v", err)
	}
	if time.Since(start) > 500*time.Millisecond {
		t.Fatal("delay did not stop at the context deadline")
	}
}

func TestMockProvider_CallsFor(t *testing.T) {
	mock := NewMockProvider().WithHandler(func(context.Context, Request) MockResponse {
		return MockResponse{Content: json.RawMessage(`{"score":5,"feedback":"f"}`)}
	})
	mock.Generate(context.Background(), Request{Schema: testScoreSchema()})
	mock.Generate(context.Background(), Request{})

	if got := len(mock.CallsFor("test-score")); got != 1 {
		t.Fatalf("CallsFor = %d, want 1", got)
	}
}

func TestPurposeContext(t *testing.T) {
	if got := PurposeFrom(context.Background()); got != "unknown" {
		t.Errorf("default purpose = %q", got)
	}
	ctx := WithPurpose(context.Background(), PurposeResponseScore)
	if got := PurposeFrom(ctx); got != PurposeResponseScore {
		t.Errorf("purpose = %q", got)
	}
}
