package scoring

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"alfapte/internal/domain"
	"alfapte/internal/llm"
)

// SpeakingScoreRequest is the one-shot speaking evaluation input.
type SpeakingScoreRequest struct {
	Transcript    string
	ReferenceText string
	DurationMs    int
}

// WritingScoreRequest is the one-shot writing evaluation input.
type WritingScoreRequest struct {
	UserResponse string
	QuestionText string
	TimeTaken    int
}

// StructuredScorer performs the non-streaming evaluation using
// schema-constrained generation: one request, one fully-formed rubric.
type StructuredScorer struct {
	provider llm.Provider
	model    string
	logger   *slog.Logger
}

func NewStructuredScorer(provider llm.Provider, model string, logger *slog.Logger) *StructuredScorer {
	return &StructuredScorer{provider: provider, model: model, logger: logger}
}

func (s *StructuredScorer) ScoreSpeaking(ctx context.Context, req SpeakingScoreRequest) (domain.SpeakingScores, error) {
	if strings.TrimSpace(req.Transcript) == "" || strings.TrimSpace(req.ReferenceText) == "" {
		return domain.SpeakingScores{}, fmt.Errorf("%w: transcript and question text are required", domain.ErrInvalidRequest)
	}

	wordCount := len(strings.Fields(req.Transcript))
	resp, err := s.provider.Complete(ctx, llm.CompletionRequest{
		Model:      s.model,
		Prompt:     speakingScoringPrompt(req.ReferenceText, req.Transcript, req.DurationMs, wordCount),
		Schema:     speakingSchema,
		SchemaName: "speaking_scores",
	})
	if err != nil {
		return domain.SpeakingScores{}, fmt.Errorf("%w: %v", domain.ErrUpstreamUnavailable, err)
	}

	var scores domain.SpeakingScores
	if err := json.Unmarshal([]byte(resp.Content), &scores); err != nil {
		return domain.SpeakingScores{}, fmt.Errorf("%w: malformed scoring response: %v", domain.ErrUpstreamUnavailable, err)
	}
	s.logger.Info("speaking scoring complete",
		"overall", scores.OverallScore, "words", wordCount)
	return scores, nil
}

func (s *StructuredScorer) ScoreWriting(ctx context.Context, req WritingScoreRequest) (domain.WritingScores, error) {
	if strings.TrimSpace(req.UserResponse) == "" || strings.TrimSpace(req.QuestionText) == "" {
		return domain.WritingScores{}, fmt.Errorf("%w: response and question text are required", domain.ErrInvalidRequest)
	}

	resp, err := s.provider.Complete(ctx, llm.CompletionRequest{
		Model:      s.model,
		Prompt:     writingScoringPrompt(req.QuestionText, req.UserResponse, req.TimeTaken),
		Schema:     writingSchema,
		SchemaName: "writing_scores",
	})
	if err != nil {
		return domain.WritingScores{}, fmt.Errorf("%w: %v", domain.ErrUpstreamUnavailable, err)
	}

	var scores domain.WritingScores
	if err := json.Unmarshal([]byte(resp.Content), &scores); err != nil {
		return domain.WritingScores{}, fmt.Errorf("%w: malformed scoring response: %v", domain.ErrUpstreamUnavailable, err)
	}
	s.logger.Info("writing scoring complete", "overall", scores.OverallScore)
	return scores, nil
}
