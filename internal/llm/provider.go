package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// CompletionRequest is one generation call, streaming or not.
type CompletionRequest struct {
	Model       string
	System      string
	Prompt      string
	Temperature float64
	MaxTokens   int
	// Schema, when set, constrains the response to the given JSON schema
	// (response_format json_schema). Ignored by Stream.
	Schema     json.RawMessage
	SchemaName string
}

type CompletionResponse struct {
	Content string
}

// StreamChunk is one increment of a streaming completion. A chunk with Err
// set means the upstream stream dropped before its terminal sentinel; the
// channel is closed right after. A clean close without an Err chunk means the
// upstream finished normally.
type StreamChunk struct {
	Delta string
	Err   error
}

// Provider is an LLM backend. Stream honors ctx cancellation by releasing
// the upstream connection.
type Provider interface {
	Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error)
	Stream(ctx context.Context, req CompletionRequest) (<-chan StreamChunk, error)
}

type Config struct {
	BaseURL string
	APIKey  string
}

func NewProvider(cfg Config) Provider {
	client := &http.Client{Timeout: 120 * time.Second}
	return NewOpenAIProvider(client, cfg.BaseURL, cfg.APIKey)
}
