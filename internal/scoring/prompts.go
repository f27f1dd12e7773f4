package scoring

import (
	"encoding/json"
	"fmt"
)

// The streaming examiner reasons in the open and finishes with one terminal
// SCORES line; the consumer's extractor depends on that framing.
const streamSystemPrompt = `You are an expert PTE (Pearson Test of English) speaking examiner with an agent-based evaluation system.

Your task is to think through the response step-by-step and explain your reasoning:
1. CONTENT EVALUATION: Analyze what was said and how well it answers the question
2. FLUENCY ASSESSMENT: Listen to pacing, smoothness, hesitations, filler words
3. PRONUNCIATION CHECK: Evaluate clarity, accent, word stress
4. SCORING RATIONALE: Explain how scores were determined based on observations

Stream your reasoning as plain text. When you are finished, emit exactly one
final line of the form:
SCORES: {"overallScore": <0-90>, "content": <0-90>, "fluency": <0-90>, "pronunciation": <0-90>}
Nothing may follow that line.`

func streamUserPrompt(referenceText, transcript string) string {
	return fmt.Sprintf(`You are evaluating a PTE Read Aloud response. Think through this carefully and share your reasoning.

Original Text: %q

User's Transcribed Speech: %q

Walk me through your evaluation process:
1. Content: How accurate and complete is the response?
2. Fluency: How smooth and natural is the speech?
3. Pronunciation: How clear and correct are the sounds?

Be transparent in your thinking - the user should understand exactly how you
evaluated their response. End with the single SCORES line.`, referenceText, transcript)
}

func speakingScoringPrompt(referenceText, transcript string, durationMs, wordCount int) string {
	return fmt.Sprintf(`You are an expert PTE/IELTS speaking examiner with a detailed scoring agent.

TASK: Analyze this speaking response step by step and provide comprehensive scoring.

ORIGINAL QUESTION: %s
USER'S TRANSCRIPT: %s
DURATION: %dms
WORDS SPOKEN: %d

EVALUATION PROCESS:
1. First, analyze the CONTENT: Is the response relevant, complete, and accurate?
2. Then, analyze FLUENCY: Is the speech smooth, with natural pacing and minimal hesitations?
3. Finally, analyze PRONUNCIATION: Are words pronounced clearly and correctly?

SCORING CRITERIA (0-90):
- Content: Relevance to question, completeness, accuracy of information
- Fluency: Smoothness, natural pacing, minimal filler words/hesitations
- Pronunciation: Clarity, accent, word stress, ease of understanding

Also calculate:
- Words per minute (normal range: 120-150)
- Count of filler words (um, uh, like, you know, er, etc)

Provide your complete reasoning as you evaluate, then final scores.`, referenceText, transcript, durationMs, wordCount)
}

func writingScoringPrompt(questionText, userResponse string, timeTaken int) string {
	return fmt.Sprintf(`You are an expert PTE/IELTS writing examiner with agent-based evaluation.

WRITING TASK: %s
USER'S RESPONSE: %s
TIME TAKEN: %d seconds

EVALUATION PROCESS:
1. CONTENT: Is the response addressing the task? Is it relevant, complete, and well-developed?
2. GRAMMAR: Are there any grammatical errors? Is a range of structures used accurately?
3. VOCABULARY: What is the range of vocabulary? Are words used precisely and appropriately?
4. COHERENCE: Is the writing organized logically? Are ideas connected smoothly?

For each dimension:
- Explain what you observe in detail
- Provide specific examples from the response
- Give a score (0-90)
- Suggest improvements

Then provide overall feedback and scoring.`, questionText, userResponse, timeTaken)
}

var scoreRange = json.RawMessage(`{"type":"number","minimum":0,"maximum":90}`)

func schemaObject(props map[string]json.RawMessage, required []string) json.RawMessage {
	obj := map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties":           props,
		"required":             required,
	}
	raw, err := json.Marshal(obj)
	if err != nil {
		panic(err)
	}
	return raw
}

var stringList = json.RawMessage(`{"type":"array","items":{"type":"string"}}`)

var feedbackSchema = schemaObject(map[string]json.RawMessage{
	"strengths":    stringList,
	"improvements": stringList,
	"suggestions":  stringList,
}, []string{"strengths", "improvements", "suggestions"})

var speakingSchema = schemaObject(map[string]json.RawMessage{
	"overallScore":    scoreRange,
	"content":         scoreRange,
	"fluency":         scoreRange,
	"pronunciation":   scoreRange,
	"wordsPerMinute":  json.RawMessage(`{"type":"number"}`),
	"fillerWordCount": json.RawMessage(`{"type":"integer"}`),
	"feedback":        feedbackSchema,
	"reasoning": schemaObject(map[string]json.RawMessage{
		"contentAnalysis":       json.RawMessage(`{"type":"string"}`),
		"fluencyAnalysis":       json.RawMessage(`{"type":"string"}`),
		"pronunciationAnalysis": json.RawMessage(`{"type":"string"}`),
		"scoringRationale":      json.RawMessage(`{"type":"string"}`),
	}, []string{"contentAnalysis", "fluencyAnalysis", "pronunciationAnalysis", "scoringRationale"}),
}, []string{"overallScore", "content", "fluency", "pronunciation", "wordsPerMinute", "fillerWordCount", "feedback", "reasoning"})

var writingSchema = schemaObject(map[string]json.RawMessage{
	"overallScore": scoreRange,
	"content":      scoreRange,
	"grammar":      scoreRange,
	"vocabulary":   scoreRange,
	"coherence":    scoreRange,
	"wordCount":    json.RawMessage(`{"type":"integer"}`),
	"feedback":     feedbackSchema,
	"detailedAnalysis": schemaObject(map[string]json.RawMessage{
		"taskResponse":         json.RawMessage(`{"type":"string"}`),
		"grammarIssues":        stringList,
		"vocabularyHighlights": stringList,
		"coherenceNotes":       json.RawMessage(`{"type":"string"}`),
	}, []string{"taskResponse", "grammarIssues", "vocabularyHighlights", "coherenceNotes"}),
	"reasoning": schemaObject(map[string]json.RawMessage{
		"contentReasoning":    json.RawMessage(`{"type":"string"}`),
		"grammarReasoning":    json.RawMessage(`{"type":"string"}`),
		"vocabularyReasoning": json.RawMessage(`{"type":"string"}`),
		"coherenceReasoning":  json.RawMessage(`{"type":"string"}`),
	}, []string{"contentReasoning", "grammarReasoning", "vocabularyReasoning", "coherenceReasoning"}),
}, []string{"overallScore", "content", "grammar", "vocabulary", "coherence", "wordCount", "feedback", "detailedAnalysis", "reasoning"})
