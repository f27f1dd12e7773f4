package domain

import "errors"

var (
	// ErrInvalidRequest marks bad or missing caller input.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrRateLimited marks a requester that exhausted its window quota.
	ErrRateLimited = errors.New("rate limit exceeded")
	// ErrUpstreamUnavailable marks a generation or transcription service
	// that is unreachable or misconfigured.
	ErrUpstreamUnavailable = errors.New("upstream service unavailable")
	// ErrNoScoreBlock marks streamed text that carries no terminal
	// SCORES block; the reasoning text is still usable.
	ErrNoScoreBlock = errors.New("no score block in streamed text")
)
