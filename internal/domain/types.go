package domain

import (
	"encoding/json"
	"time"
)

// ScoreRequest is the immutable input to one streaming scoring session.
type ScoreRequest struct {
	Transcript    string `json:"transcript"`
	ReferenceText string `json:"questionText"`
	RequesterID   string `json:"userId"`
}

// EventKind discriminates the two wire units of a scoring stream.
type EventKind int

const (
	// EventText carries one incremental reasoning fragment.
	EventText EventKind = iota
	// EventDone is the terminal sentinel; no events follow it.
	EventDone
)

// StreamEvent is one unit of a scoring stream. Within a session all Text
// events strictly precede the single Done event.
type StreamEvent struct {
	Kind EventKind
	Text string
}

// ScorePayload is the numeric rubric extracted from the terminal block of a
// streamed evaluation. All values are on the 0-90 PTE scale.
type ScorePayload struct {
	OverallScore  float64 `json:"overallScore"`
	Content       float64 `json:"content"`
	Fluency       float64 `json:"fluency"`
	Pronunciation float64 `json:"pronunciation"`
}

// Feedback is the qualitative portion of a structured scoring result.
type Feedback struct {
	Strengths    []string `json:"strengths"`
	Improvements []string `json:"improvements"`
	Suggestions  []string `json:"suggestions"`
}

// SpeakingReasoning records how the examiner arrived at each dimension.
type SpeakingReasoning struct {
	ContentAnalysis       string `json:"contentAnalysis"`
	FluencyAnalysis       string `json:"fluencyAnalysis"`
	PronunciationAnalysis string `json:"pronunciationAnalysis"`
	ScoringRationale      string `json:"scoringRationale"`
}

// SpeakingScores is the full one-shot speaking evaluation.
type SpeakingScores struct {
	OverallScore    float64           `json:"overallScore"`
	Content         float64           `json:"content"`
	Fluency         float64           `json:"fluency"`
	Pronunciation   float64           `json:"pronunciation"`
	WordsPerMinute  float64           `json:"wordsPerMinute"`
	FillerWordCount int               `json:"fillerWordCount"`
	Feedback        Feedback          `json:"feedback"`
	Reasoning       SpeakingReasoning `json:"reasoning"`
}

// WritingReasoning records how the examiner arrived at each writing dimension.
type WritingReasoning struct {
	ContentReasoning    string `json:"contentReasoning"`
	GrammarReasoning    string `json:"grammarReasoning"`
	VocabularyReasoning string `json:"vocabularyReasoning"`
	CoherenceReasoning  string `json:"coherenceReasoning"`
}

// WritingAnalysis is the detailed breakdown of a writing evaluation.
type WritingAnalysis struct {
	TaskResponse         string   `json:"taskResponse"`
	GrammarIssues        []string `json:"grammarIssues"`
	VocabularyHighlights []string `json:"vocabularyHighlights"`
	CoherenceNotes       string   `json:"coherenceNotes"`
}

// WritingScores is the full one-shot writing evaluation.
type WritingScores struct {
	OverallScore     float64          `json:"overallScore"`
	Content          float64          `json:"content"`
	Grammar          float64          `json:"grammar"`
	Vocabulary       float64          `json:"vocabulary"`
	Coherence        float64          `json:"coherence"`
	WordCount        int              `json:"wordCount"`
	Feedback         Feedback         `json:"feedback"`
	DetailedAnalysis WritingAnalysis  `json:"detailedAnalysis"`
	Reasoning        WritingReasoning `json:"reasoning"`
}

// Question is one practice question, speaking or writing.
type Question struct {
	ID                 string          `json:"id"`
	Title              string          `json:"title"`
	Type               string          `json:"type"`
	PromptText         string          `json:"promptText"`
	PromptMediaURL     string          `json:"promptMediaUrl,omitempty"`
	Difficulty         string          `json:"difficulty"`
	Tags               []string        `json:"tags,omitempty"`
	Metadata           json.RawMessage `json:"metadata,omitempty"`
	IsActive           bool            `json:"isActive"`
	PreparationSeconds int             `json:"preparationSeconds,omitempty"`
	ResponseSeconds    int             `json:"responseSeconds,omitempty"`
	CreatedAt          time.Time       `json:"createdAt"`
	UpdatedAt          time.Time       `json:"updatedAt"`
}

// NewQuestion is the insert form of a question.
type NewQuestion struct {
	Title          string          `json:"title"`
	Type           string          `json:"type"`
	PromptText     string          `json:"promptText"`
	PromptMediaURL string          `json:"promptMediaUrl,omitempty"`
	Difficulty     string          `json:"difficulty,omitempty"`
	Tags           []string        `json:"tags,omitempty"`
	Metadata       json.RawMessage `json:"metadata,omitempty"`
}

// SpeakingAttempt is one persisted speaking submission with its scores.
type SpeakingAttempt struct {
	UserID     string
	QuestionID string
	AudioURL   string
	Transcript string
	DurationMs int
	Scores     SpeakingScores
}

// WritingAttempt is one persisted writing submission with its scores.
type WritingAttempt struct {
	UserID       string
	QuestionID   string
	UserResponse string
	TimeTaken    int
	Scores       WritingScores
}

// TranscriptionResult is what the speech-to-text adapter returns.
type TranscriptionResult struct {
	Transcript string  `json:"transcript"`
	DurationMs int64   `json:"duration"`
	Confidence float64 `json:"confidence"`
}
