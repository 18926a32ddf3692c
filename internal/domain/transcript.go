package domain

import "strings"

// Speaker identifies who produced a transcript entry. The values double as
// the labels rendered into the evaluator prompt.
type Speaker string

const (
	SpeakerCandidate Speaker = "Candidate"
	SpeakerEvaluator Speaker = "AI Assistant"
)

// TranscriptEntry is one turn of the conversation.
type TranscriptEntry struct {
	Speaker Speaker `json:"speaker"`
	Text    string  `json:"text"`
}

// Transcript is the ordered, append-only conversation log for one session.
// It lives only in memory and is never persisted.
type Transcript []TranscriptEntry

// Render joins the transcript into the newline-delimited log supplied to the
// evaluator. An empty transcript renders as an explicit placeholder so the
// evaluator can tell the first turn apart from a blank answer.
func (t Transcript) Render() string {
	if len(t) == 0 {
		return "No history yet."
	}
	lines := make([]string, 0, len(t))
	for _, e := range t {
		lines = append(lines, string(e.Speaker)+": "+e.Text)
	}
	return strings.Join(lines, "\n")
}
