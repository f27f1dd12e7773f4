package db

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"alfapte/internal/domain"
)

type Store struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) Migrate(ctx context.Context) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS speaking_questions (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			type TEXT NOT NULL,
			prompt_text TEXT NOT NULL,
			prompt_media_url TEXT,
			difficulty TEXT NOT NULL DEFAULT 'medium',
			tags JSONB,
			metadata JSONB,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			preparation_seconds INT NOT NULL DEFAULT 35,
			response_seconds INT NOT NULL DEFAULT 35,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`,
		`CREATE TABLE IF NOT EXISTS writing_questions (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			type TEXT NOT NULL,
			prompt_text TEXT NOT NULL,
			difficulty TEXT NOT NULL DEFAULT 'medium',
			tags JSONB,
			metadata JSONB,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`,
		`CREATE TABLE IF NOT EXISTS speaking_attempts (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			question_id TEXT NOT NULL,
			audio_url TEXT,
			transcript TEXT,
			duration_ms INT,
			overall_score INT,
			content_score INT,
			fluency_score INT,
			pronunciation_score INT,
			words_per_minute NUMERIC,
			filler_rate NUMERIC,
			scores JSONB,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`,
		`CREATE TABLE IF NOT EXISTS writing_attempts (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			question_id TEXT NOT NULL,
			user_response TEXT NOT NULL,
			word_count INT,
			time_taken INT,
			overall_score INT,
			content_score INT,
			grammar_score INT,
			vocabulary_score INT,
			coherence_score INT,
			scores JSONB,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`,
		`CREATE INDEX IF NOT EXISTS idx_speaking_attempts_user ON speaking_attempts(user_id, created_at DESC);`,
		`CREATE INDEX IF NOT EXISTS idx_writing_attempts_user ON writing_attempts(user_id, created_at DESC);`,
	}
	for _, q := range queries {
		if _, err := s.pool.Exec(ctx, q); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) ListActiveSpeakingQuestions(ctx context.Context) ([]domain.Question, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, title, type, prompt_text, COALESCE(prompt_media_url, ''), difficulty,
		       COALESCE(tags, 'null'::jsonb), COALESCE(metadata, 'null'::jsonb),
		       is_active, preparation_seconds, response_seconds, created_at, updated_at
		FROM speaking_questions
		WHERE is_active
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Question
	for rows.Next() {
		var q domain.Question
		var tagsRaw, metaRaw []byte
		if err := rows.Scan(&q.ID, &q.Title, &q.Type, &q.PromptText, &q.PromptMediaURL, &q.Difficulty,
			&tagsRaw, &metaRaw, &q.IsActive, &q.PreparationSeconds, &q.ResponseSeconds,
			&q.CreatedAt, &q.UpdatedAt); err != nil {
			return nil, err
		}
		_ = json.Unmarshal(tagsRaw, &q.Tags)
		if string(metaRaw) != "null" {
			q.Metadata = json.RawMessage(metaRaw)
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

func (s *Store) CreateSpeakingQuestion(ctx context.Context, in domain.NewQuestion) (domain.Question, error) {
	id := uuid.NewString()
	difficulty := in.Difficulty
	if difficulty == "" {
		difficulty = "medium"
	}
	tagsJSON, err := json.Marshal(in.Tags)
	if err != nil {
		return domain.Question{}, err
	}

	var q domain.Question
	var tagsRaw, metaRaw []byte
	err = s.pool.QueryRow(ctx, `
		INSERT INTO speaking_questions(id, title, type, prompt_text, prompt_media_url, difficulty, tags, metadata)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7::jsonb, $8::jsonb)
		RETURNING id, title, type, prompt_text, COALESCE(prompt_media_url, ''), difficulty,
		          COALESCE(tags, 'null'::jsonb), COALESCE(metadata, 'null'::jsonb),
		          is_active, preparation_seconds, response_seconds, created_at, updated_at
	`, id, in.Title, in.Type, in.PromptText, in.PromptMediaURL, difficulty,
		string(tagsJSON), rawOrNull(in.Metadata)).Scan(
		&q.ID, &q.Title, &q.Type, &q.PromptText, &q.PromptMediaURL, &q.Difficulty,
		&tagsRaw, &metaRaw, &q.IsActive, &q.PreparationSeconds, &q.ResponseSeconds,
		&q.CreatedAt, &q.UpdatedAt)
	if err != nil {
		return domain.Question{}, err
	}
	_ = json.Unmarshal(tagsRaw, &q.Tags)
	if string(metaRaw) != "null" {
		q.Metadata = json.RawMessage(metaRaw)
	}
	return q, nil
}

func (s *Store) ListActiveWritingQuestions(ctx context.Context) ([]domain.Question, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, title, type, prompt_text, difficulty,
		       COALESCE(tags, 'null'::jsonb), COALESCE(metadata, 'null'::jsonb),
		       is_active, created_at, updated_at
		FROM writing_questions
		WHERE is_active
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Question
	for rows.Next() {
		var q domain.Question
		var tagsRaw, metaRaw []byte
		if err := rows.Scan(&q.ID, &q.Title, &q.Type, &q.PromptText, &q.Difficulty,
			&tagsRaw, &metaRaw, &q.IsActive, &q.CreatedAt, &q.UpdatedAt); err != nil {
			return nil, err
		}
		_ = json.Unmarshal(tagsRaw, &q.Tags)
		if string(metaRaw) != "null" {
			q.Metadata = json.RawMessage(metaRaw)
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

func (s *Store) CreateWritingQuestion(ctx context.Context, in domain.NewQuestion) (domain.Question, error) {
	id := uuid.NewString()
	difficulty := in.Difficulty
	if difficulty == "" {
		difficulty = "medium"
	}
	tagsJSON, err := json.Marshal(in.Tags)
	if err != nil {
		return domain.Question{}, err
	}

	var q domain.Question
	var tagsRaw, metaRaw []byte
	err = s.pool.QueryRow(ctx, `
		INSERT INTO writing_questions(id, title, type, prompt_text, difficulty, tags, metadata)
		VALUES ($1, $2, $3, $4, $5, $6::jsonb, $7::jsonb)
		RETURNING id, title, type, prompt_text, difficulty,
		          COALESCE(tags, 'null'::jsonb), COALESCE(metadata, 'null'::jsonb),
		          is_active, created_at, updated_at
	`, id, in.Title, in.Type, in.PromptText, difficulty, string(tagsJSON), rawOrNull(in.Metadata)).Scan(
		&q.ID, &q.Title, &q.Type, &q.PromptText, &q.Difficulty,
		&tagsRaw, &metaRaw, &q.IsActive, &q.CreatedAt, &q.UpdatedAt)
	if err != nil {
		return domain.Question{}, err
	}
	_ = json.Unmarshal(tagsRaw, &q.Tags)
	if string(metaRaw) != "null" {
		q.Metadata = json.RawMessage(metaRaw)
	}
	return q, nil
}

// InsertSpeakingAttempt persists one scored submission and returns the
// attempt id. Rate metrics go in as fixed-point text so NUMERIC keeps them
// exact.
func (s *Store) InsertSpeakingAttempt(ctx context.Context, a domain.SpeakingAttempt) (string, error) {
	id := uuid.NewString()
	scoresJSON, err := json.Marshal(a.Scores)
	if err != nil {
		return "", err
	}

	var fillerRate float64
	if words := len(strings.Fields(a.Transcript)); words > 0 {
		fillerRate = float64(a.Scores.FillerWordCount) / float64(words)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO speaking_attempts(id, user_id, question_id, audio_url, transcript, duration_ms,
			overall_score, content_score, fluency_score, pronunciation_score,
			words_per_minute, filler_rate, scores)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7, $8, $9, $10, $11::numeric, $12::numeric, $13::jsonb)
	`, id, a.UserID, a.QuestionID, a.AudioURL, a.Transcript, a.DurationMs,
		int(a.Scores.OverallScore), int(a.Scores.Content), int(a.Scores.Fluency), int(a.Scores.Pronunciation),
		formatFixed(a.Scores.WordsPerMinute), formatFixed(fillerRate), string(scoresJSON))
	if err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) InsertWritingAttempt(ctx context.Context, a domain.WritingAttempt) (string, error) {
	id := uuid.NewString()
	scoresJSON, err := json.Marshal(a.Scores)
	if err != nil {
		return "", err
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO writing_attempts(id, user_id, question_id, user_response, word_count, time_taken,
			overall_score, content_score, grammar_score, vocabulary_score, coherence_score, scores)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12::jsonb)
	`, id, a.UserID, a.QuestionID, a.UserResponse, a.Scores.WordCount, a.TimeTaken,
		int(a.Scores.OverallScore), int(a.Scores.Content), int(a.Scores.Grammar),
		int(a.Scores.Vocabulary), int(a.Scores.Coherence), string(scoresJSON))
	if err != nil {
		return "", err
	}
	return id, nil
}

func rawOrNull(raw json.RawMessage) string {
	if len(raw) == 0 {
		return "null"
	}
	return string(raw)
}

func formatFixed(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}
