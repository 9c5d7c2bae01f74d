package llm

import (
	"context"
	"encoding/json"
)

// Provider generates text or schema-constrained JSON. Question batches,
// response scoring, coverage refinement and scenario generation all go
// through this one method.
type Provider interface {
	// Generate runs one completion. When req.Schema is set the returned
	// Content has already been validated against it.
	Generate(ctx context.Context, req Request) (*Response, error)

	// ModelID names the model the provider sends requests to.
	ModelID() string
}

// Request is a single completion request.
type Request struct {
	System   string
	Messages []Message

	// Schema, when set, switches the provider into its native structured
	// output mode. Without it Content holds the raw text.
	Schema *Schema

	MaxTokens int

	// Temperature in [0, 1]. Zero leaves the provider default.
	Temperature float64
}

// Message is one turn of the prompt conversation.
type Message struct {
	Role    Role
	Content string
}

// Role is the message sender role.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Schema is a named JSON Schema the response must satisfy.
type Schema struct {
	// Name is kebab-case, e.g. "question-batch". It doubles as the tool or
	// schema name on the wire and as the compiled-schema cache key.
	Name        string
	Description string
	Definition  map[string]any
}

// Response is the provider output.
type Response struct {
	Content json.RawMessage
	Usage   Usage
	Model   string

	// StopReason is normalized to "end", "max_tokens" or "error".
	StopReason string
}

// Usage is the token accounting for one request.
type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}

// finalize validates schema-constrained content and assembles the
// Response. A reply cut off at MaxTokens that fails validation is reported
// as *ErrMaxTokensExceeded rather than as a schema violation.
func finalize(req Request, content json.RawMessage, usage Usage, model, stop string) (*Response, error) {
	if req.Schema != nil {
		content = ExtractJSON(content)
		if err := validateResponse(req.Schema, content); err != nil {
			if stop == "max_tokens" {
				return nil, &ErrMaxTokensExceeded{Content: content}
			}
			return nil, err
		}
	}
	return &Response{
		Content:    content,
		Usage:      usage,
		Model:      model,
		StopReason: stop,
	}, nil
}
