// Package sse implements the scoring stream wire format: a sequence of
// `data: {"text": ...}` records terminated by a literal `data: [DONE]`.
package sse

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"alfapte/internal/domain"
)

// DoneSentinel terminates every well-formed scoring stream.
const DoneSentinel = "[DONE]"

type textRecord struct {
	Text string `json:"text"`
}

// Writer emits scoring stream events over an HTTP response, flushing after
// every record so the browser sees fragments as they arrive.
type Writer struct {
	w http.ResponseWriter
	f http.Flusher
}

func NewWriter(w http.ResponseWriter) (*Writer, error) {
	f, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("response writer does not support flushing")
	}
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	return &Writer{w: w, f: f}, nil
}

func (w *Writer) WriteText(text string) error {
	data, err := json.Marshal(textRecord{Text: text})
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w.w, "data: %s\n\n", data); err != nil {
		return err
	}
	w.f.Flush()
	return nil
}

func (w *Writer) WriteDone() error {
	if _, err := fmt.Fprintf(w.w, "data: %s\n\n", DoneSentinel); err != nil {
		return err
	}
	w.f.Flush()
	return nil
}

// Reader decodes a scoring stream from a response body.
type Reader struct {
	r *bufio.Reader
}

func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReader(r)}
}

// Next returns the next stream event. io.EOF before the sentinel means the
// channel closed prematurely.
func (r *Reader) Next() (domain.StreamEvent, error) {
	for {
		line, err := r.r.ReadString('\n')
		if line != "" && strings.HasPrefix(line, "data:") {
			data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			if data == DoneSentinel {
				return domain.StreamEvent{Kind: domain.EventDone}, nil
			}
			var rec textRecord
			if jerr := json.Unmarshal([]byte(data), &rec); jerr == nil {
				return domain.StreamEvent{Kind: domain.EventText, Text: rec.Text}, nil
			}
		}
		if err != nil {
			return domain.StreamEvent{}, err
		}
	}
}

// Events drains the reader into an event channel. The channel closes after
// the Done event, on read error, or when ctx is cancelled; a close without a
// preceding Done event is the premature-drop signal consumers watch for.
func (r *Reader) Events(ctx context.Context) <-chan domain.StreamEvent {
	out := make(chan domain.StreamEvent)
	go func() {
		defer close(out)
		for {
			ev, err := r.Next()
			if err != nil {
				return
			}
			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
			if ev.Kind == domain.EventDone {
				return
			}
		}
	}()
	return out
}
