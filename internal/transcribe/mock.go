package transcribe

import (
	"context"
	"io"

	"alfapte/internal/domain"
)

// MockTranscript matches the "Road bicycle racing" sample question so a
// mock-transcribed attempt scores plausibly against it.
const MockTranscript = "Road bicycle racing is the cycle sports discipline of road cycling, held on paved roads. " +
	"Road racing is the most popular professional form of bicycle racing in terms of numbers of competitors, " +
	"event, and spectators. The two most common competition formats are mass start events, where riders start " +
	"simultaneously and race to set finish point; and time trials, where individual riders or teams race a " +
	"course alone against the clock."

// Mock drains the upload and returns the fixed transcript.
type Mock struct{}

func NewMock() *Mock {
	return &Mock{}
}

func (m *Mock) Transcribe(ctx context.Context, audio io.Reader, filename, contentType string) (domain.TranscriptionResult, error) {
	if _, err := io.Copy(io.Discard, audio); err != nil {
		return domain.TranscriptionResult{}, err
	}
	return domain.TranscriptionResult{
		Transcript: MockTranscript,
		DurationMs: 35000,
		Confidence: 0.95,
	}, nil
}
