package scoring

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"alfapte/internal/domain"
	"alfapte/internal/llm"
)

const (
	streamTemperature = 0.3
	streamMaxTokens   = 2000
)

// Producer opens one streaming evaluation per request and relays upstream
// increments as stream events, in arrival order, with no buffering.
type Producer struct {
	provider llm.Provider
	model    string
	logger   *slog.Logger
}

func NewProducer(provider llm.Provider, model string, logger *slog.Logger) *Producer {
	return &Producer{provider: provider, model: model, logger: logger}
}

// Produce validates the request, opens the upstream streaming call, and
// returns the event sequence. Every Text event precedes the single Done
// event; a channel close without Done means the upstream dropped mid-stream.
// Cancelling ctx releases the upstream connection.
func (p *Producer) Produce(ctx context.Context, req domain.ScoreRequest) (<-chan domain.StreamEvent, error) {
	if strings.TrimSpace(req.Transcript) == "" || strings.TrimSpace(req.ReferenceText) == "" {
		return nil, fmt.Errorf("%w: transcript and question text are required", domain.ErrInvalidRequest)
	}

	chunks, err := p.provider.Stream(ctx, llm.CompletionRequest{
		Model:       p.model,
		System:      streamSystemPrompt,
		Prompt:      streamUserPrompt(req.ReferenceText, req.Transcript),
		Temperature: streamTemperature,
		MaxTokens:   streamMaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUpstreamUnavailable, err)
	}

	events := make(chan domain.StreamEvent)
	go func() {
		defer close(events)
		for chunk := range chunks {
			if chunk.Err != nil {
				p.logger.Warn("scoring stream dropped mid-flight",
					"user_id", req.RequesterID, "error", chunk.Err)
				return
			}
			select {
			case events <- domain.StreamEvent{Kind: domain.EventText, Text: chunk.Delta}:
			case <-ctx.Done():
				return
			}
		}
		select {
		case events <- domain.StreamEvent{Kind: domain.EventDone}:
		case <-ctx.Done():
		}
	}()
	return events, nil
}
