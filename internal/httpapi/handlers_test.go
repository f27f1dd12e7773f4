package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"alfapte/internal/domain"
	"alfapte/internal/questions"
	"alfapte/internal/ratelimit"
	"alfapte/internal/scoring"
	"alfapte/internal/transcribe"
)

type fakeProducer struct {
	events []domain.StreamEvent
	err    error
}

func (f *fakeProducer) Produce(ctx context.Context, req domain.ScoreRequest) (<-chan domain.StreamEvent, error) {
	if f.err != nil {
		return nil, f.err
	}
	ch := make(chan domain.StreamEvent, len(f.events))
	for _, ev := range f.events {
		ch <- ev
	}
	close(ch)
	return ch, nil
}

type fakeScorer struct {
	speaking domain.SpeakingScores
	writing  domain.WritingScores
	err      error
}

func (f *fakeScorer) ScoreSpeaking(ctx context.Context, req scoring.SpeakingScoreRequest) (domain.SpeakingScores, error) {
	return f.speaking, f.err
}

func (f *fakeScorer) ScoreWriting(ctx context.Context, req scoring.WritingScoreRequest) (domain.WritingScores, error) {
	return f.writing, f.err
}

type fakeAttempts struct {
	insertErr error
	speaking  []domain.SpeakingAttempt
	writing   []domain.WritingAttempt
}

func (f *fakeAttempts) InsertSpeakingAttempt(ctx context.Context, a domain.SpeakingAttempt) (string, error) {
	if f.insertErr != nil {
		return "", f.insertErr
	}
	f.speaking = append(f.speaking, a)
	return "attempt-1", nil
}

func (f *fakeAttempts) InsertWritingAttempt(ctx context.Context, a domain.WritingAttempt) (string, error) {
	if f.insertErr != nil {
		return "", f.insertErr
	}
	f.writing = append(f.writing, a)
	return "attempt-2", nil
}

type fakeLimiter struct {
	allowed   bool
	remaining int64
	lastKey   string
}

func (f *fakeLimiter) Allow(ctx context.Context, key string, limit int64, window time.Duration) ratelimit.Result {
	f.lastKey = key
	return ratelimit.Result{Allowed: f.allowed, Remaining: f.remaining}
}

type downStore struct{}

func (downStore) ListActiveSpeakingQuestions(ctx context.Context) ([]domain.Question, error) {
	return nil, fmt.Errorf("dial tcp: connection refused")
}

func (downStore) CreateSpeakingQuestion(ctx context.Context, in domain.NewQuestion) (domain.Question, error) {
	return domain.Question{}, fmt.Errorf("dial tcp: connection refused")
}

func (downStore) ListActiveWritingQuestions(ctx context.Context) ([]domain.Question, error) {
	return nil, fmt.Errorf("dial tcp: connection refused")
}

func (downStore) CreateWritingQuestion(ctx context.Context, in domain.NewQuestion) (domain.Question, error) {
	return domain.Question{}, fmt.Errorf("dial tcp: connection refused")
}

type deps struct {
	producer *fakeProducer
	scorer   *fakeScorer
	attempts *fakeAttempts
	limiter  *fakeLimiter
}

func newTestServer(d deps) *Server {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if d.producer == nil {
		d.producer = &fakeProducer{}
	}
	if d.scorer == nil {
		d.scorer = &fakeScorer{}
	}
	if d.attempts == nil {
		d.attempts = &fakeAttempts{}
	}
	if d.limiter == nil {
		d.limiter = &fakeLimiter{allowed: true, remaining: 49}
	}
	return NewServer(Config{
		SpeakingRateLimit: 50,
		WritingRateLimit:  30,
		RateLimitWindow:   time.Hour,
	}, Deps{
		Producer:    d.producer,
		Scorer:      d.scorer,
		Attempts:    d.attempts,
		Questions:   questions.NewService(downStore{}, logger),
		Limiter:     d.limiter,
		Transcriber: transcribe.NewMock(),
		Logger:      logger,
	})
}

func postJSON(t *testing.T, handler http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestQuestionsFallBackToMockOnStoreOutage(t *testing.T) {
	srv := newTestServer(deps{})
	req := httptest.NewRequest(http.MethodGet, "/api/questions/speaking", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 even with the store down", rec.Code)
	}
	var resp struct {
		Questions []domain.Question `json:"questions"`
		Source    string            `json:"source"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Source != "mock" {
		t.Fatalf("source = %q, want mock", resp.Source)
	}
	if len(resp.Questions) == 0 {
		t.Fatal("mock question list must be non-empty")
	}
}

func TestScoreSpeakingPersistenceFailureDowngradesToWarning(t *testing.T) {
	scorer := &fakeScorer{speaking: domain.SpeakingScores{OverallScore: 81, Content: 80, Fluency: 82, Pronunciation: 81}}
	attempts := &fakeAttempts{insertErr: fmt.Errorf("relation does not exist")}
	srv := newTestServer(deps{scorer: scorer, attempts: attempts})

	rec := postJSON(t, srv.Router(), "/api/scoring/speaking", map[string]any{
		"userId":       "u1",
		"questionId":   "q1",
		"transcript":   "He said hello",
		"questionText": "Say hello",
		"durationMs":   4000,
	})

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: a computed score is never lost", rec.Code)
	}
	var resp struct {
		Scores    *domain.SpeakingScores `json:"scores"`
		Warning   string                 `json:"warning"`
		AttemptID string                 `json:"attemptId"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Scores == nil || resp.Scores.OverallScore != 81 {
		t.Fatalf("scores = %+v", resp.Scores)
	}
	if resp.Warning == "" {
		t.Fatal("expected a warning field")
	}
	if resp.AttemptID != "" {
		t.Fatal("no attempt id should be returned when the write failed")
	}
}

func TestScoreSpeakingSuccess(t *testing.T) {
	scorer := &fakeScorer{speaking: domain.SpeakingScores{OverallScore: 75}}
	attempts := &fakeAttempts{}
	srv := newTestServer(deps{scorer: scorer, attempts: attempts})

	rec := postJSON(t, srv.Router(), "/api/scoring/speaking", map[string]any{
		"userId":       "u1",
		"questionId":   "q1",
		"transcript":   "He said hello",
		"questionText": "Say hello",
	})

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		AttemptID string `json:"attemptId"`
	}
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.AttemptID != "attempt-1" {
		t.Fatalf("attemptId = %q", resp.AttemptID)
	}
	if len(attempts.speaking) != 1 || attempts.speaking[0].UserID != "u1" {
		t.Fatalf("attempts = %+v", attempts.speaking)
	}
}

func TestScoreSpeakingMissingFields(t *testing.T) {
	srv := newTestServer(deps{})
	rec := postJSON(t, srv.Router(), "/api/scoring/speaking", map[string]any{
		"userId":     "u1",
		"transcript": "no question text",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestScoreSpeakingRateLimited(t *testing.T) {
	limiter := &fakeLimiter{allowed: false, remaining: 0}
	srv := newTestServer(deps{limiter: limiter})

	rec := postJSON(t, srv.Router(), "/api/scoring/speaking", map[string]any{
		"userId":       "u1",
		"transcript":   "a",
		"questionText": "b",
	})

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
	var resp struct {
		Error     string `json:"error"`
		Remaining int64  `json:"remaining"`
	}
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Error == "" || resp.Remaining != 0 {
		t.Fatalf("resp = %+v", resp)
	}
	if limiter.lastKey != "speaking:u1" {
		t.Fatalf("limiter key = %q", limiter.lastKey)
	}
}

func TestScoreWritingUsesWritingQuota(t *testing.T) {
	limiter := &fakeLimiter{allowed: true, remaining: 29}
	scorer := &fakeScorer{writing: domain.WritingScores{OverallScore: 66}}
	srv := newTestServer(deps{limiter: limiter, scorer: scorer})

	rec := postJSON(t, srv.Router(), "/api/scoring/writing", map[string]any{
		"userId":       "u2",
		"userResponse": "essay text",
		"questionText": "prompt",
	})

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if limiter.lastKey != "writing:u2" {
		t.Fatalf("limiter key = %q", limiter.lastKey)
	}
}

func TestSpeakingStreamRelaysEventsAndSentinel(t *testing.T) {
	producer := &fakeProducer{events: []domain.StreamEvent{
		{Kind: domain.EventText, Text: "He"},
		{Kind: domain.EventText, Text: " said"},
		{Kind: domain.EventDone},
	}}
	srv := newTestServer(deps{producer: producer})

	rec := postJSON(t, srv.Router(), "/api/scoring/speaking/stream", map[string]any{
		"userId":       "u1",
		"transcript":   "He said",
		"questionText": "Say it",
	})

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content-type = %q", ct)
	}
	body := rec.Body.String()
	want := "data: {\"text\":\"He\"}\n\ndata: {\"text\":\" said\"}\n\ndata: [DONE]\n\n"
	if body != want {
		t.Fatalf("body = %q, want %q", body, want)
	}
}

func TestSpeakingStreamDropOmitsSentinel(t *testing.T) {
	producer := &fakeProducer{events: []domain.StreamEvent{
		{Kind: domain.EventText, Text: "partial"},
	}}
	srv := newTestServer(deps{producer: producer})

	rec := postJSON(t, srv.Router(), "/api/scoring/speaking/stream", map[string]any{
		"transcript":   "a",
		"questionText": "b",
	})

	body := rec.Body.String()
	if !strings.Contains(body, "partial") {
		t.Fatalf("body = %q, partial text should be relayed", body)
	}
	if strings.Contains(body, "[DONE]") {
		t.Fatal("a dropped stream must not carry the sentinel")
	}
}

type silentProducer struct{}

func (silentProducer) Produce(ctx context.Context, req domain.ScoreRequest) (<-chan domain.StreamEvent, error) {
	return make(chan domain.StreamEvent), nil
}

func TestSpeakingStreamIdleTimeoutEndsRelay(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := NewServer(Config{
		SpeakingRateLimit: 50,
		WritingRateLimit:  30,
		RateLimitWindow:   time.Hour,
		StreamIdleTimeout: 20 * time.Millisecond,
	}, Deps{
		Producer:    silentProducer{},
		Questions:   questions.NewService(downStore{}, logger),
		Limiter:     &fakeLimiter{allowed: true, remaining: 49},
		Transcriber: transcribe.NewMock(),
		Logger:      logger,
	})

	start := time.Now()
	rec := postJSON(t, srv.Router(), "/api/scoring/speaking/stream", map[string]any{
		"transcript":   "a",
		"questionText": "b",
	})
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("relay held open for %v despite a silent upstream", elapsed)
	}
	if strings.Contains(rec.Body.String(), "[DONE]") {
		t.Fatal("a timed-out stream must not carry the sentinel")
	}
}

func TestSpeakingStreamMissingFields(t *testing.T) {
	srv := newTestServer(deps{})
	rec := postJSON(t, srv.Router(), "/api/scoring/speaking/stream", map[string]any{
		"transcript": "no question",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("error path content-type = %q", ct)
	}
}

func TestSpeakingStreamUpstreamFailure(t *testing.T) {
	producer := &fakeProducer{err: fmt.Errorf("%w: gateway not configured", domain.ErrUpstreamUnavailable)}
	srv := newTestServer(deps{producer: producer})

	rec := postJSON(t, srv.Router(), "/api/scoring/speaking/stream", map[string]any{
		"transcript":   "a",
		"questionText": "b",
	})
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	var resp struct {
		Error string `json:"error"`
	}
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Error == "" {
		t.Fatal("expected an error envelope instead of a stream")
	}
}

func TestTranscribeReturnsMockTranscript(t *testing.T) {
	srv := newTestServer(deps{})

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("audio", "attempt.webm")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write([]byte("fake-audio-bytes")); err != nil {
		t.Fatalf("write: %v", err)
	}
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/transcribe", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp domain.TranscriptionResult
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Transcript != transcribe.MockTranscript || resp.Confidence != 0.95 {
		t.Fatalf("result = %+v", resp)
	}
}

func TestTranscribeMissingFile(t *testing.T) {
	srv := newTestServer(deps{})

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	_ = mw.WriteField("notes", "no audio here")
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/transcribe", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestCreateQuestionStoreFailure(t *testing.T) {
	srv := newTestServer(deps{})
	rec := postJSON(t, srv.Router(), "/api/questions/speaking", map[string]any{
		"title":      "New question",
		"type":       "read_aloud",
		"promptText": "Read this aloud.",
	})
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500 on write-path store failure", rec.Code)
	}
}
