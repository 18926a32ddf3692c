// Package session implements the per-connection interview engine: it owns
// one conversation's transcript, drives the evaluator, classifies its output,
// and persists the final verdict exactly once.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ansarzeinulla/prescreen/internal/domain"
	"github.com/ansarzeinulla/prescreen/internal/evaluator"
	"github.com/ansarzeinulla/prescreen/internal/store"
)

// State is the explicit lifecycle state of a session.
type State int

const (
	// StateAwaiting means the session accepts further turns.
	StateAwaiting State = iota
	// StateTerminated means the session is closed; no further evaluator
	// calls or writes happen on it.
	StateTerminated
)

// Terminal error conditions. All of them close the session.
var (
	ErrMissingIdentifiers   = errors.New("vacancy or resume id is missing")
	ErrRecordNotFound       = errors.New("vacancy or resume record not found")
	ErrEvaluatorUnavailable = errors.New("evaluator is not configured")
	ErrEvaluatorCallFailed  = errors.New("evaluator call failed")
)

// Outbound envelope messages. Terminal messages stay generic; details go to
// the log, not the candidate.
const (
	msgMissingIDs       = "Vacancy or Resume ID is missing."
	msgRecordsNotFound  = "Could not find vacancy or resume details."
	msgEvaluatorOffline = "Server configuration error: AI service is unavailable."
	msgEvaluatorFailed  = "The screening service is temporarily unavailable. Please try again later."
)

// startSentinel marks the widget's opening message: it carries no candidate
// utterance and is never appended to the transcript.
const startSentinel = "start"

// Envelope is the outbound message produced by one turn. When
// FinishConversation is set the connection closes after sending it.
type Envelope struct {
	Message            string `json:"message"`
	FinishConversation bool   `json:"finish_conversation"`
}

// Session is the in-memory state of one screening conversation. It is owned
// by exactly one connection and processed strictly sequentially, so it needs
// no locking.
type Session struct {
	VacancyID  int64
	ResumeID   int64
	transcript domain.Transcript
	state      State
}

// New creates a session for one (vacancy, resume) pair.
func New(vacancyID, resumeID int64) *Session {
	return &Session{VacancyID: vacancyID, ResumeID: resumeID}
}

// State returns the session's lifecycle state.
func (s *Session) State() State {
	return s.state
}

// Transcript returns a copy of the conversation so far.
func (s *Session) Transcript() domain.Transcript {
	out := make(domain.Transcript, len(s.transcript))
	copy(out, s.transcript)
	return out
}

// Engine advances sessions. One engine serves all connections; per-session
// state lives in Session.
type Engine struct {
	repo    store.Repository
	eval    evaluator.Evaluator
	timeout time.Duration
}

// NewEngine creates an engine. eval may be nil when no evaluator credential
// is configured; every turn then terminates with ErrEvaluatorUnavailable.
// timeout bounds each evaluator call; zero means no bound.
func NewEngine(repo store.Repository, eval evaluator.Evaluator, timeout time.Duration) *Engine {
	return &Engine{repo: repo, eval: eval, timeout: timeout}
}

// Advance runs one turn: append the candidate's utterance, consult the
// evaluator, and classify its output as a follow-up question or a final
// verdict. The returned envelope is always sendable; a non-nil error
// classifies why the session terminated.
func (e *Engine) Advance(ctx context.Context, s *Session, inbound string) (Envelope, error) {
	if s.state == StateTerminated {
		return Envelope{Message: msgEvaluatorFailed, FinishConversation: true},
			errors.New("advance on terminated session")
	}

	if s.VacancyID == 0 || s.ResumeID == 0 {
		s.state = StateTerminated
		return Envelope{Message: msgMissingIDs, FinishConversation: true}, ErrMissingIdentifiers
	}

	if e.eval == nil {
		s.state = StateTerminated
		return Envelope{Message: msgEvaluatorOffline, FinishConversation: true}, ErrEvaluatorUnavailable
	}

	if text := strings.TrimSpace(inbound); text != "" && !strings.EqualFold(text, startSentinel) {
		s.transcript = append(s.transcript, domain.TranscriptEntry{
			Speaker: domain.SpeakerCandidate,
			Text:    text,
		})
	}

	// Fetched fresh every turn; records may be edited while a session runs.
	vacancy, err := e.repo.GetVacancy(ctx, s.VacancyID)
	if err != nil || vacancy == nil {
		s.state = StateTerminated
		if err != nil {
			return Envelope{Message: msgRecordsNotFound, FinishConversation: true},
				fmt.Errorf("fetch vacancy %d: %w", s.VacancyID, err)
		}
		return Envelope{Message: msgRecordsNotFound, FinishConversation: true},
			fmt.Errorf("vacancy %d: %w", s.VacancyID, ErrRecordNotFound)
	}

	resume, err := e.repo.GetResume(ctx, s.ResumeID)
	if err != nil || resume == nil {
		s.state = StateTerminated
		if err != nil {
			return Envelope{Message: msgRecordsNotFound, FinishConversation: true},
				fmt.Errorf("fetch resume %d: %w", s.ResumeID, err)
		}
		return Envelope{Message: msgRecordsNotFound, FinishConversation: true},
			fmt.Errorf("resume %d: %w", s.ResumeID, ErrRecordNotFound)
	}

	callCtx := ctx
	if e.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	raw, err := e.eval.Generate(callCtx, formatRecord(vacancy), formatRecord(resume), s.transcript.Render())
	if err != nil {
		s.state = StateTerminated
		return Envelope{Message: msgEvaluatorFailed, FinishConversation: true},
			fmt.Errorf("%w: %v", ErrEvaluatorCallFailed, err)
	}

	if verdict, ok := ParseVerdict(raw); ok {
		s.state = StateTerminated
		if err := e.repo.UpsertResult(ctx, s.VacancyID, s.ResumeID, verdict); err != nil {
			// The conversational outcome already happened; the candidate
			// still gets the completion message.
			slog.Error("failed to persist verdict",
				"vacancy_id", s.VacancyID,
				"resume_id", s.ResumeID,
				"error", err)
		}
		message := fmt.Sprintf("Analysis complete. Candidate suitability: %d%%. %s",
			verdict.Score, verdict.Summary)
		return Envelope{Message: message, FinishConversation: true}, nil
	}

	question := strings.TrimSpace(raw)
	s.transcript = append(s.transcript, domain.TranscriptEntry{
		Speaker: domain.SpeakerEvaluator,
		Text:    question,
	})
	return Envelope{Message: question, FinishConversation: false}, nil
}

// formatRecord renders an opaque record for the evaluator prompt.
func formatRecord(rec domain.Record) string {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", rec)
	}
	return string(data)
}
