package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"alfapte/internal/domain"
	"alfapte/internal/scoring"
	"alfapte/internal/sse"
)

const maxUploadBytes = 25 << 20

func limiterKey(kind, userID string) string {
	if strings.TrimSpace(userID) == "" {
		userID = "anonymous"
	}
	return kind + ":" + userID
}

func (s *Server) handleSpeakingStream(w http.ResponseWriter, req *http.Request) {
	var body domain.ScoreRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(body.Transcript) == "" || strings.TrimSpace(body.ReferenceText) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "Missing required fields"})
		return
	}

	rl := s.limiter.Allow(req.Context(), limiterKey("speaking", body.RequesterID), s.cfg.SpeakingRateLimit, s.cfg.RateLimitWindow)
	if !rl.Allowed {
		writeJSON(w, http.StatusTooManyRequests, map[string]any{
			"error":     "Rate limit exceeded. Please try again later.",
			"remaining": rl.Remaining,
		})
		return
	}

	events, err := s.producer.Produce(req.Context(), body)
	if err != nil {
		s.logger.Error("scoring stream failed to open", "error", err)
		if errors.Is(err, domain.ErrInvalidRequest) {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "Missing required fields"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "Scoring failed"})
		return
	}

	sw, err := sse.NewWriter(w)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "Scoring failed"})
		return
	}

	idle := s.cfg.StreamIdleTimeout
	if idle <= 0 {
		idle = scoring.DefaultIdleTimeout
	}
	timer := time.NewTimer(idle)
	defer timer.Stop()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				// Producer closed without Done: the upstream dropped
				// mid-stream. The connection closes without the
				// sentinel so the client can tell.
				return
			}
			if !timer.Stop() {
				<-timer.C
			}
			timer.Reset(idle)

			switch ev.Kind {
			case domain.EventText:
				if err := sw.WriteText(ev.Text); err != nil {
					// Client went away; ctx cancellation tears
					// down the upstream call.
					return
				}
			case domain.EventDone:
				_ = sw.WriteDone()
				return
			}
		case <-timer.C:
			s.logger.Warn("scoring stream went silent, closing relay")
			return
		}
	}
}

type speakingScoreBody struct {
	UserID       string `json:"userId"`
	QuestionID   string `json:"questionId"`
	QuestionText string `json:"questionText"`
	Transcript   string `json:"transcript"`
	AudioURL     string `json:"audioUrl"`
	DurationMs   int    `json:"durationMs"`
}

func (s *Server) handleScoreSpeaking(w http.ResponseWriter, req *http.Request) {
	var body speakingScoreBody
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(body.Transcript) == "" || strings.TrimSpace(body.QuestionText) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "Missing required fields"})
		return
	}

	rl := s.limiter.Allow(req.Context(), limiterKey("speaking", body.UserID), s.cfg.SpeakingRateLimit, s.cfg.RateLimitWindow)
	if !rl.Allowed {
		writeJSON(w, http.StatusTooManyRequests, map[string]any{
			"error":     "Rate limit exceeded. Please try again later.",
			"remaining": rl.Remaining,
		})
		return
	}

	scores, err := s.scorer.ScoreSpeaking(req.Context(), scoring.SpeakingScoreRequest{
		Transcript:    body.Transcript,
		ReferenceText: body.QuestionText,
		DurationMs:    body.DurationMs,
	})
	if err != nil {
		s.writeScoringError(w, err)
		return
	}

	attemptID, err := s.attempts.InsertSpeakingAttempt(req.Context(), domain.SpeakingAttempt{
		UserID:     body.UserID,
		QuestionID: body.QuestionID,
		AudioURL:   body.AudioURL,
		Transcript: body.Transcript,
		DurationMs: body.DurationMs,
		Scores:     scores,
	})
	if err != nil {
		// A computed score is never lost to a storage failure.
		s.logger.Warn("speaking attempt not saved", "user_id", body.UserID, "error", err)
		writeJSON(w, http.StatusOK, map[string]any{
			"scores":    scores,
			"remaining": rl.Remaining,
			"warning":   "Scores generated but not saved to database",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"scores":    scores,
		"attemptId": attemptID,
		"remaining": rl.Remaining,
	})
}

type writingScoreBody struct {
	UserID       string `json:"userId"`
	QuestionID   string `json:"questionId"`
	QuestionText string `json:"questionText"`
	UserResponse string `json:"userResponse"`
	TimeTaken    int    `json:"timeTaken"`
}

func (s *Server) handleScoreWriting(w http.ResponseWriter, req *http.Request) {
	var body writingScoreBody
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(body.UserResponse) == "" || strings.TrimSpace(body.QuestionText) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "Missing required fields"})
		return
	}

	rl := s.limiter.Allow(req.Context(), limiterKey("writing", body.UserID), s.cfg.WritingRateLimit, s.cfg.RateLimitWindow)
	if !rl.Allowed {
		writeJSON(w, http.StatusTooManyRequests, map[string]any{
			"error":     "Rate limit exceeded. Please try again later.",
			"remaining": rl.Remaining,
		})
		return
	}

	scores, err := s.scorer.ScoreWriting(req.Context(), scoring.WritingScoreRequest{
		UserResponse: body.UserResponse,
		QuestionText: body.QuestionText,
		TimeTaken:    body.TimeTaken,
	})
	if err != nil {
		s.writeScoringError(w, err)
		return
	}

	attemptID, err := s.attempts.InsertWritingAttempt(req.Context(), domain.WritingAttempt{
		UserID:       body.UserID,
		QuestionID:   body.QuestionID,
		UserResponse: body.UserResponse,
		TimeTaken:    body.TimeTaken,
		Scores:       scores,
	})
	if err != nil {
		s.logger.Warn("writing attempt not saved", "user_id", body.UserID, "error", err)
		writeJSON(w, http.StatusOK, map[string]any{
			"scores":    scores,
			"remaining": rl.Remaining,
			"warning":   "Scores generated but not saved to database",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"scores":    scores,
		"attemptId": attemptID,
		"remaining": rl.Remaining,
	})
}

func (s *Server) writeScoringError(w http.ResponseWriter, err error) {
	s.logger.Error("scoring failed", "error", err)
	switch {
	case errors.Is(err, domain.ErrInvalidRequest):
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
	default:
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"error":   "Failed to score attempt",
			"message": err.Error(),
		})
	}
}

func (s *Server) handleListSpeakingQuestions(w http.ResponseWriter, req *http.Request) {
	qs, source := s.questions.ListSpeaking(req.Context())
	resp := map[string]any{"questions": qs, "source": source}
	if source == "mock" {
		resp["message"] = "Using sample questions - database not available"
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCreateSpeakingQuestion(w http.ResponseWriter, req *http.Request) {
	in, ok := decodeNewQuestion(w, req)
	if !ok {
		return
	}
	q, err := s.questions.CreateSpeaking(req.Context(), in)
	if err != nil {
		s.logger.Error("create speaking question failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "Failed to create question"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"question": q})
}

func (s *Server) handleListWritingQuestions(w http.ResponseWriter, req *http.Request) {
	qs, source := s.questions.ListWriting(req.Context())
	resp := map[string]any{"questions": qs, "source": source}
	if source == "mock" {
		resp["message"] = "Using sample questions - database not available"
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCreateWritingQuestion(w http.ResponseWriter, req *http.Request) {
	in, ok := decodeNewQuestion(w, req)
	if !ok {
		return
	}
	q, err := s.questions.CreateWriting(req.Context(), in)
	if err != nil {
		s.logger.Error("create writing question failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "Failed to create question"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"question": q})
}

func decodeNewQuestion(w http.ResponseWriter, req *http.Request) (domain.NewQuestion, bool) {
	var in domain.NewQuestion
	if err := json.NewDecoder(req.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid json"})
		return domain.NewQuestion{}, false
	}
	if strings.TrimSpace(in.Title) == "" || strings.TrimSpace(in.Type) == "" || strings.TrimSpace(in.PromptText) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "title, type and promptText are required"})
		return domain.NewQuestion{}, false
	}
	return in, true
}

func (s *Server) handleTranscribe(w http.ResponseWriter, req *http.Request) {
	if err := req.ParseMultipartForm(maxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid multipart form"})
		return
	}
	file, header, err := req.FormFile("audio")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "No audio file provided"})
		return
	}
	defer file.Close()

	s.logger.Info("received audio file",
		"name", header.Filename,
		"type", header.Header.Get("Content-Type"),
		"size", header.Size,
	)

	result, err := s.transcriber.Transcribe(req.Context(), file, header.Filename, header.Header.Get("Content-Type"))
	if err != nil {
		s.logger.Error("transcription failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"error":   "Failed to transcribe audio",
			"message": err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, result)
}
