// Package chat serves the candidate-facing interview endpoint over a
// persistent WebSocket connection. One session per connection; turns are
// processed strictly sequentially because each evaluator call depends on
// the transcript mutated by the previous turn.
package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/ansarzeinulla/prescreen/internal/audit"
	"github.com/ansarzeinulla/prescreen/internal/session"
	"github.com/coder/websocket"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

// Engine advances one interview session per turn. Satisfied by
// *session.Engine.
type Engine interface {
	Advance(ctx context.Context, s *session.Session, inbound string) (session.Envelope, error)
}

// inboundMessage is the per-turn envelope sent by the widget.
type inboundMessage struct {
	Text      string `json:"text"`
	VacancyID int64  `json:"vacancy_id"`
	ResumeID  int64  `json:"resume_id"`
}

// Handler upgrades /ws requests and runs the interview loop.
type Handler struct {
	engine        Engine
	aiEnabled     bool
	allowedOrigin string
	isDev         bool
	audit         *audit.Logger
}

// NewHandler creates a WebSocket interview handler. aiEnabled is false when
// no evaluator credential was configured; connections then receive an
// unavailability envelope immediately.
func NewHandler(engine Engine, aiEnabled bool, allowedOrigin string, isDev bool, auditLog *audit.Logger) *Handler {
	return &Handler{
		engine:        engine,
		aiEnabled:     aiEnabled,
		allowedOrigin: allowedOrigin,
		isDev:         isDev,
		audit:         auditLog,
	}
}

// ServeHTTP implements http.Handler for the WebSocket upgrade.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sessionID := chiMiddleware.GetReqID(r.Context())
	if sessionID == "" {
		sessionID = fmt.Sprintf("conn-%d", time.Now().UnixNano())
	}
	slog.Info("Interview connection request", "session_id", sessionID, "ip", r.RemoteAddr)

	if !h.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("Failed to accept WebSocket", "error", err, "session_id", sessionID)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "session ended"); closeErr != nil {
			slog.Debug("Failed to close websocket", "error", closeErr, "session_id", sessionID)
		}
	}()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	if !h.aiEnabled {
		h.send(ctx, ws, session.Envelope{
			Message:            "Server configuration error: AI service is unavailable.",
			FinishConversation: true,
		})
		return
	}

	h.runSession(ctx, ws, sessionID)
	slog.Info("Interview session ended", "session_id", sessionID)
}

// runSession is the sequential turn loop: read an envelope, advance the
// session, write the reply. No pipelining within a session; other sessions
// run independently on their own connections.
func (h *Handler) runSession(ctx context.Context, ws *websocket.Conn, sessionID string) {
	var sess *session.Session

	for {
		_, data, err := ws.Read(ctx)
		if err != nil {
			// Dropped connection aborts the session; the transcript is
			// in-memory only, nothing to clean up.
			slog.Info("Client disconnected", "session_id", sessionID, "error", err)
			return
		}

		var in inboundMessage
		if err := json.Unmarshal(data, &in); err != nil {
			h.send(ctx, ws, session.Envelope{Message: "Invalid data format.", FinishConversation: true})
			return
		}

		if in.VacancyID == 0 || in.ResumeID == 0 {
			h.send(ctx, ws, session.Envelope{Message: "Vacancy or Resume ID is missing.", FinishConversation: true})
			return
		}

		if sess == nil {
			sess = session.New(in.VacancyID, in.ResumeID)
		} else if sess.VacancyID != in.VacancyID || sess.ResumeID != in.ResumeID {
			h.send(ctx, ws, session.Envelope{Message: "Vacancy or Resume ID changed mid-session.", FinishConversation: true})
			return
		}

		h.audit.Log(audit.Event{
			SessionID: sessionID,
			VacancyID: in.VacancyID,
			ResumeID:  in.ResumeID,
			Direction: "inbound",
			EventType: "candidate_message",
			Text:      in.Text,
		})

		env, err := h.engine.Advance(ctx, sess, in.Text)
		if err != nil {
			slog.Warn("Session turn failed",
				"session_id", sessionID,
				"vacancy_id", in.VacancyID,
				"resume_id", in.ResumeID,
				"error", err)
		}

		h.audit.Log(audit.Event{
			SessionID: sessionID,
			VacancyID: in.VacancyID,
			ResumeID:  in.ResumeID,
			Direction: "outbound",
			EventType: "evaluator_message",
			Text:      env.Message,
			Final:     env.FinishConversation,
		})

		if !h.send(ctx, ws, env) {
			return
		}
		if env.FinishConversation {
			return
		}
	}
}

// send writes one envelope; returns false when the connection is gone.
func (h *Handler) send(ctx context.Context, ws *websocket.Conn, env session.Envelope) bool {
	data, err := json.Marshal(env)
	if err != nil {
		slog.Error("Failed to marshal envelope", "error", err)
		return false
	}
	if err := ws.Write(ctx, websocket.MessageText, data); err != nil {
		slog.Debug("WebSocket write error", "error", err)
		return false
	}
	return true
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	if h.isDev {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" || h.allowedOrigin == "*" {
		return true
	}
	if origin == h.allowedOrigin {
		return true
	}
	slog.Warn("WebSocket origin rejected", "origin", origin, "allowed", h.allowedOrigin)
	return false
}
