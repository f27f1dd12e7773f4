// scoring-client streams one scoring session from a running alfapte server
// and drives the consumer state machine against it, printing reasoning as it
// arrives and the extracted payload at the end. Ctrl-C abandons the session,
// which releases the server's upstream call.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"alfapte/internal/scoring"
	"alfapte/internal/sse"
	"alfapte/internal/transcribe"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	serverURL := flag.String("server", "http://localhost:8080", "alfapte server base URL")
	transcript := flag.String("transcript", transcribe.MockTranscript, "transcribed speech to score")
	question := flag.String("question", transcribe.MockTranscript, "reference question text")
	userID := flag.String("user", "demo-user", "requester id")
	idleTimeout := flag.Duration("idle-timeout", scoring.DefaultIdleTimeout, "max silence before the session fails")
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("abandoning session")
		cancel()
	}()

	printed := 0
	consumer := &scoring.Consumer{
		IdleTimeout: *idleTimeout,
		OnProgress: func(accumulated string) {
			// Print only the newly arrived tail.
			fmt.Print(accumulated[printed:])
			printed = len(accumulated)
		},
	}
	// Sessions are admitted per question slot: starting another run against
	// the same question displaces the one in flight instead of interleaving.
	runner := scoring.NewRunner(consumer)

	sess, err := run(ctx, runner, *serverURL, *transcript, *question, *userID)
	if err != nil {
		logger.Error("stream failed", "error", err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Printf("session: %s\n", sess.Status)
	switch {
	case sess.FinalPayload != nil:
		fmt.Printf("overall=%.0f content=%.0f fluency=%.0f pronunciation=%.0f\n",
			sess.FinalPayload.OverallScore, sess.FinalPayload.Content,
			sess.FinalPayload.Fluency, sess.FinalPayload.Pronunciation)
	case sess.Status == scoring.StatusCompleted:
		fmt.Println("score unavailable; reasoning shown above")
	default:
		fmt.Println("stream dropped; partial reasoning shown above")
	}
}

func run(ctx context.Context, runner *scoring.Runner, serverURL, transcript, question, userID string) (*scoring.Session, error) {
	body, err := json.Marshal(map[string]string{
		"transcript":   transcript,
		"questionText": question,
		"userId":       userID,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		serverURL+"/api/scoring/speaking/stream", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server status %d: %s", resp.StatusCode, raw)
	}

	events := sse.NewReader(resp.Body).Events(ctx)
	return runner.Start(ctx, question, events), nil
}
