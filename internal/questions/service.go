// Package questions serves practice questions with a built-in fallback: the
// read path never surfaces a store outage, it degrades to the sample set.
package questions

import (
	"context"
	"log/slog"

	"alfapte/internal/domain"
)

const (
	SourceDatabase = "database"
	SourceMock     = "mock"
)

type Store interface {
	ListActiveSpeakingQuestions(ctx context.Context) ([]domain.Question, error)
	CreateSpeakingQuestion(ctx context.Context, in domain.NewQuestion) (domain.Question, error)
	ListActiveWritingQuestions(ctx context.Context) ([]domain.Question, error)
	CreateWritingQuestion(ctx context.Context, in domain.NewQuestion) (domain.Question, error)
}

type Service struct {
	store  Store
	logger *slog.Logger
}

func NewService(store Store, logger *slog.Logger) *Service {
	return &Service{store: store, logger: logger}
}

// ListSpeaking returns active speaking questions and where they came from.
// Store errors and an empty table both fall back to the sample set.
func (s *Service) ListSpeaking(ctx context.Context) ([]domain.Question, string) {
	qs, err := s.store.ListActiveSpeakingQuestions(ctx)
	if err != nil {
		s.logger.Warn("speaking questions unavailable, serving samples", "error", err)
		return MockSpeakingQuestions(), SourceMock
	}
	if len(qs) == 0 {
		return MockSpeakingQuestions(), SourceMock
	}
	return qs, SourceDatabase
}

func (s *Service) CreateSpeaking(ctx context.Context, in domain.NewQuestion) (domain.Question, error) {
	return s.store.CreateSpeakingQuestion(ctx, in)
}

// ListWriting mirrors ListSpeaking for writing tasks.
func (s *Service) ListWriting(ctx context.Context) ([]domain.Question, string) {
	qs, err := s.store.ListActiveWritingQuestions(ctx)
	if err != nil {
		s.logger.Warn("writing questions unavailable, serving samples", "error", err)
		return MockWritingQuestions(), SourceMock
	}
	if len(qs) == 0 {
		return MockWritingQuestions(), SourceMock
	}
	return qs, SourceDatabase
}

func (s *Service) CreateWriting(ctx context.Context, in domain.NewQuestion) (domain.Question, error) {
	return s.store.CreateWritingQuestion(ctx, in)
}
