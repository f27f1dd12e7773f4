package scoring

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"alfapte/internal/domain"
	"alfapte/internal/llm"
)

type fakeProvider struct {
	chunks    []llm.StreamChunk
	streamErr error
	opened    chan struct{}
}

func (f *fakeProvider) Complete(ctx context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
	return llm.CompletionResponse{}, fmt.Errorf("not used")
}

func (f *fakeProvider) Stream(ctx context.Context, req llm.CompletionRequest) (<-chan llm.StreamChunk, error) {
	if f.streamErr != nil {
		return nil, f.streamErr
	}
	if f.opened != nil {
		close(f.opened)
	}
	out := make(chan llm.StreamChunk)
	go func() {
		defer close(out)
		for _, c := range f.chunks {
			select {
			case out <- c:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func collect(events <-chan domain.StreamEvent) []domain.StreamEvent {
	var out []domain.StreamEvent
	for ev := range events {
		out = append(out, ev)
	}
	return out
}

func TestProduceRejectsEmptyInput(t *testing.T) {
	p := NewProducer(&fakeProvider{}, "test-model", testLogger())

	_, err := p.Produce(context.Background(), domain.ScoreRequest{Transcript: "", ReferenceText: "x"})
	if !errors.Is(err, domain.ErrInvalidRequest) {
		t.Fatalf("err = %v, want ErrInvalidRequest", err)
	}
	_, err = p.Produce(context.Background(), domain.ScoreRequest{Transcript: "x", ReferenceText: "  "})
	if !errors.Is(err, domain.ErrInvalidRequest) {
		t.Fatalf("err = %v, want ErrInvalidRequest", err)
	}
}

func TestProduceUpstreamUnavailable(t *testing.T) {
	p := NewProducer(&fakeProvider{streamErr: fmt.Errorf("connection refused")}, "test-model", testLogger())

	_, err := p.Produce(context.Background(), domain.ScoreRequest{Transcript: "a", ReferenceText: "b"})
	if !errors.Is(err, domain.ErrUpstreamUnavailable) {
		t.Fatalf("err = %v, want ErrUpstreamUnavailable", err)
	}
}

func TestProduceRelaysInOrderWithSingleTerminalDone(t *testing.T) {
	provider := &fakeProvider{chunks: []llm.StreamChunk{
		{Delta: "He"}, {Delta: " said"}, {Delta: " hello"},
	}}
	p := NewProducer(provider, "test-model", testLogger())

	events, err := p.Produce(context.Background(), domain.ScoreRequest{Transcript: "a", ReferenceText: "b"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := collect(events)
	if len(got) != 4 {
		t.Fatalf("got %d events, want 4", len(got))
	}
	for i, want := range []string{"He", " said", " hello"} {
		if got[i].Kind != domain.EventText || got[i].Text != want {
			t.Fatalf("event[%d] = %+v, want text %q", i, got[i], want)
		}
	}
	if got[3].Kind != domain.EventDone {
		t.Fatalf("last event = %+v, want Done", got[3])
	}
}

func TestProduceMidStreamDropClosesWithoutDone(t *testing.T) {
	provider := &fakeProvider{chunks: []llm.StreamChunk{
		{Delta: "partial"},
		{Err: fmt.Errorf("connection reset")},
	}}
	p := NewProducer(provider, "test-model", testLogger())

	events, err := p.Produce(context.Background(), domain.ScoreRequest{Transcript: "a", ReferenceText: "b"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := collect(events)
	if len(got) != 1 || got[0].Text != "partial" {
		t.Fatalf("events = %+v, want only the partial text", got)
	}
	for _, ev := range got {
		if ev.Kind == domain.EventDone {
			t.Fatal("Done must not be emitted after a mid-stream drop")
		}
	}
}

func TestProduceCancellationClosesStream(t *testing.T) {
	provider := &fakeProvider{
		chunks: []llm.StreamChunk{{Delta: "a"}, {Delta: "b"}, {Delta: "c"}},
		opened: make(chan struct{}),
	}
	p := NewProducer(provider, "test-model", testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	events, err := p.Produce(ctx, domain.ScoreRequest{Transcript: "a", ReferenceText: "b"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	<-provider.opened
	<-events
	cancel()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-events:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("event channel not closed after cancellation")
		}
	}
}
