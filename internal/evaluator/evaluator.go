// Package evaluator defines the external text-generation capability that
// drives screening interviews.
package evaluator

import "context"

// Evaluator produces one free-form response per call: either a follow-up
// question for the candidate or a final verdict object. It has no memory of
// its own; the caller supplies the full context every call.
type Evaluator interface {
	Generate(ctx context.Context, vacancyText, resumeText, transcriptText string) (string, error)
}
