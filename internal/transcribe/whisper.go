package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"alfapte/internal/domain"
)

// Whisper posts the audio file to an OpenAI-compatible transcription
// endpoint.
type Whisper struct {
	client  *http.Client
	baseURL string
	apiKey  string
	model   string
}

func NewWhisper(client *http.Client, baseURL, apiKey, model string) *Whisper {
	return &Whisper{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
	}
}

func (w *Whisper) Transcribe(ctx context.Context, audio io.Reader, filename, contentType string) (domain.TranscriptionResult, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return domain.TranscriptionResult{}, err
	}
	if _, err := io.Copy(part, audio); err != nil {
		return domain.TranscriptionResult{}, err
	}
	if err := mw.WriteField("model", w.model); err != nil {
		return domain.TranscriptionResult{}, err
	}
	// verbose_json carries the clip duration alongside the text.
	if err := mw.WriteField("response_format", "verbose_json"); err != nil {
		return domain.TranscriptionResult{}, err
	}
	if err := mw.Close(); err != nil {
		return domain.TranscriptionResult{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.baseURL+"/audio/transcriptions", &body)
	if err != nil {
		return domain.TranscriptionResult{}, err
	}
	req.Header.Set("Authorization", "Bearer "+w.apiKey)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := w.client.Do(req)
	if err != nil {
		return domain.TranscriptionResult{}, err
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 300 {
		return domain.TranscriptionResult{}, fmt.Errorf("transcription status %d: %s", resp.StatusCode, string(raw))
	}

	var parsed struct {
		Text     string  `json:"text"`
		Duration float64 `json:"duration"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return domain.TranscriptionResult{}, err
	}
	return domain.TranscriptionResult{
		Transcript: parsed.Text,
		DurationMs: int64(parsed.Duration * 1000),
		Confidence: 1.0,
	}, nil
}
