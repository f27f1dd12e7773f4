package scoring

import (
	"context"
	"strings"
	"time"

	"alfapte/internal/domain"
)

// Status is the lifecycle of one streaming session.
type Status int

const (
	StatusConnecting Status = iota
	StatusStreaming
	StatusCompleted
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusConnecting:
		return "connecting"
	case StatusStreaming:
		return "streaming"
	case StatusCompleted:
		return "completed"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Session is the terminal state of one consumed stream. FinalPayload is set
// only when the session completed and the terminal score block parsed; a
// completed session without a payload still carries usable reasoning text.
type Session struct {
	Status          Status
	AccumulatedText string
	FinalPayload    *domain.ScorePayload
}

// DefaultIdleTimeout bounds how long a session may sit with no event before
// it is declared failed. A stream that goes silent would otherwise hang the
// caller forever.
const DefaultIdleTimeout = 45 * time.Second

// Consumer drives the session state machine over one event sequence.
// Consumption is single-goroutine; progress notifications are synchronous
// with event arrival.
type Consumer struct {
	// IdleTimeout overrides DefaultIdleTimeout when positive.
	IdleTimeout time.Duration
	// OnProgress, when set, observes the accumulated text after every
	// Text event.
	OnProgress func(accumulated string)
}

// Consume processes events until a terminal state is reached:
//   - Done: extract the terminal score block, Completed (payload nil on
//     extraction failure). Extraction runs exactly once even if Done is
//     delivered again.
//   - channel close without Done, ctx cancellation, or idle timeout: Failed,
//     partial text retained.
func (c *Consumer) Consume(ctx context.Context, events <-chan domain.StreamEvent) *Session {
	idle := c.IdleTimeout
	if idle <= 0 {
		idle = DefaultIdleTimeout
	}

	sess := &Session{Status: StatusConnecting}
	var buf strings.Builder
	extracted := false

	timer := time.NewTimer(idle)
	defer timer.Stop()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				sess.AccumulatedText = buf.String()
				if sess.Status != StatusCompleted {
					sess.Status = StatusFailed
				}
				return sess
			}
			if !timer.Stop() {
				<-timer.C
			}
			timer.Reset(idle)

			if sess.Status == StatusConnecting {
				sess.Status = StatusStreaming
			}
			switch ev.Kind {
			case domain.EventText:
				if sess.Status != StatusStreaming {
					continue
				}
				buf.WriteString(ev.Text)
				if c.OnProgress != nil {
					c.OnProgress(buf.String())
				}
			case domain.EventDone:
				if extracted {
					continue
				}
				extracted = true
				sess.AccumulatedText = buf.String()
				payload, err := ExtractScores(sess.AccumulatedText)
				if err == nil {
					sess.FinalPayload = payload
				}
				sess.Status = StatusCompleted
			}

		case <-timer.C:
			if sess.Status != StatusCompleted {
				sess.Status = StatusFailed
			}
			sess.AccumulatedText = buf.String()
			return sess

		case <-ctx.Done():
			if sess.Status != StatusCompleted {
				sess.Status = StatusFailed
			}
			sess.AccumulatedText = buf.String()
			return sess
		}
	}
}
