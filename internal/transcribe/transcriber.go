// Package transcribe converts recorded audio to text. The real speech API
// sits behind the Transcriber interface; the mock adapter is the default
// until audio format compatibility with the hosted API is confirmed.
package transcribe

import (
	"context"
	"io"

	"alfapte/internal/domain"
)

type Transcriber interface {
	Transcribe(ctx context.Context, audio io.Reader, filename, contentType string) (domain.TranscriptionResult, error)
}
