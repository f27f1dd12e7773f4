package scoring

import (
	"encoding/json"
	"fmt"
	"strings"

	"alfapte/internal/domain"
)

// ScoreMarker introduces the terminal structured block of a streamed
// evaluation. The prompt demands it; its absence is a definite parse
// failure, not an invitation to scan the text for stray JSON.
const ScoreMarker = "SCORES:"

type rawPayload struct {
	OverallScore  *float64 `json:"overallScore"`
	Content       *float64 `json:"content"`
	Fluency       *float64 `json:"fluency"`
	Pronunciation *float64 `json:"pronunciation"`
}

// ExtractScores parses the score block following the last ScoreMarker in
// text. All four fields must be present and within [0, 90].
func ExtractScores(text string) (*domain.ScorePayload, error) {
	idx := strings.LastIndex(text, ScoreMarker)
	if idx < 0 {
		return nil, domain.ErrNoScoreBlock
	}

	rest := text[idx+len(ScoreMarker):]
	dec := json.NewDecoder(strings.NewReader(rest))
	var raw rawPayload
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("malformed score block: %w", err)
	}
	if raw.OverallScore == nil || raw.Content == nil || raw.Fluency == nil || raw.Pronunciation == nil {
		return nil, fmt.Errorf("score block missing required fields")
	}

	payload := &domain.ScorePayload{
		OverallScore:  *raw.OverallScore,
		Content:       *raw.Content,
		Fluency:       *raw.Fluency,
		Pronunciation: *raw.Pronunciation,
	}
	for _, v := range []float64{payload.OverallScore, payload.Content, payload.Fluency, payload.Pronunciation} {
		if v < 0 || v > 90 {
			return nil, fmt.Errorf("score %v outside the 0-90 scale", v)
		}
	}
	return payload, nil
}
