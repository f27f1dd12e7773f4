// Package httpapi exposes the scoring, questions, and transcription
// endpoints consumed by the practice UI.
package httpapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"alfapte/internal/domain"
	"alfapte/internal/questions"
	"alfapte/internal/ratelimit"
	"alfapte/internal/scoring"
	"alfapte/internal/transcribe"
)

// StreamProducer opens one scoring stream per request.
type StreamProducer interface {
	Produce(ctx context.Context, req domain.ScoreRequest) (<-chan domain.StreamEvent, error)
}

// Scorer performs the one-shot structured evaluations.
type Scorer interface {
	ScoreSpeaking(ctx context.Context, req scoring.SpeakingScoreRequest) (domain.SpeakingScores, error)
	ScoreWriting(ctx context.Context, req scoring.WritingScoreRequest) (domain.WritingScores, error)
}

// AttemptStore persists scored attempts.
type AttemptStore interface {
	InsertSpeakingAttempt(ctx context.Context, a domain.SpeakingAttempt) (string, error)
	InsertWritingAttempt(ctx context.Context, a domain.WritingAttempt) (string, error)
}

// Limiter is the per-requester call counter.
type Limiter interface {
	Allow(ctx context.Context, key string, limit int64, window time.Duration) ratelimit.Result
}

type Config struct {
	SpeakingRateLimit int64
	WritingRateLimit  int64
	RateLimitWindow   time.Duration
	StreamIdleTimeout time.Duration
}

type Server struct {
	cfg         Config
	producer    StreamProducer
	scorer      Scorer
	attempts    AttemptStore
	questions   *questions.Service
	limiter     Limiter
	transcriber transcribe.Transcriber
	dbPing      func(ctx context.Context) error
	redisPing   func(ctx context.Context) error
	logger      *slog.Logger
}

type Deps struct {
	Producer    StreamProducer
	Scorer      Scorer
	Attempts    AttemptStore
	Questions   *questions.Service
	Limiter     Limiter
	Transcriber transcribe.Transcriber
	DBPing      func(ctx context.Context) error
	RedisPing   func(ctx context.Context) error
	Logger      *slog.Logger
}

func NewServer(cfg Config, deps Deps) *Server {
	return &Server{
		cfg:         cfg,
		producer:    deps.Producer,
		scorer:      deps.Scorer,
		attempts:    deps.Attempts,
		questions:   deps.Questions,
		limiter:     deps.Limiter,
		transcriber: deps.Transcriber,
		dbPing:      deps.DBPing,
		redisPing:   deps.RedisPing,
		logger:      deps.Logger,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Post("/scoring/speaking/stream", s.handleSpeakingStream)
		r.Post("/scoring/speaking", s.handleScoreSpeaking)
		r.Post("/scoring/writing", s.handleScoreWriting)
		r.Get("/questions/speaking", s.handleListSpeakingQuestions)
		r.Post("/questions/speaking", s.handleCreateSpeakingQuestion)
		r.Get("/questions/writing", s.handleListWritingQuestions)
		r.Post("/questions/writing", s.handleCreateWritingQuestion)
		r.Post("/transcribe", s.handleTranscribe)
	})
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, req *http.Request) {
	checks := map[string]string{}
	if s.dbPing != nil {
		checks["database"] = checkResult(s.dbPing(req.Context()))
	}
	if s.redisPing != nil {
		checks["redis"] = checkResult(s.redisPing(req.Context()))
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "checks": checks})
}

func checkResult(err error) string {
	if err != nil {
		return "unavailable"
	}
	return "ok"
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
