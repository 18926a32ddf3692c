// Package results serves the employer-facing retrieval surface: all
// persisted verdicts for a vacancy, best candidates first.
package results

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/ansarzeinulla/prescreen/internal/api"
	"github.com/ansarzeinulla/prescreen/internal/store"
	"github.com/go-chi/chi/v5"
)

// Handler handles verdict listing requests.
type Handler struct {
	repo store.Repository
}

// NewHandler creates a results handler.
func NewHandler(repo store.Repository) *Handler {
	return &Handler{repo: repo}
}

// RegisterRoutes registers the retrieval route.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/api/retrieve", h.HandleRetrieve)
}

// resultView is one listing entry. Output carries the stored verdict JSON
// decoded when possible, or the raw text when a historical row is malformed.
type resultView struct {
	ID        int64     `json:"id"`
	VacancyID int64     `json:"vacancy_id"`
	ResumeID  int64     `json:"resume_id"`
	Score     int       `json:"score"`
	Summary   string    `json:"summary"`
	Output    any       `json:"output"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HandleRetrieve handles POST /api/retrieve requests.
func (h *Handler) HandleRetrieve(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	raw, ok := body["vacancy_id"]
	if !ok {
		api.Error(w, http.StatusBadRequest, "vacancy_id is required")
		return
	}
	vacancyID, ok := coerceID(raw)
	if !ok {
		api.Error(w, http.StatusBadRequest, "Invalid vacancy_id provided. It must be a number.")
		return
	}

	records, err := h.repo.ListResultsByVacancy(r.Context(), vacancyID)
	if err != nil {
		slog.Error("Failed to list results", "vacancy_id", vacancyID, "error", err)
		api.Error(w, http.StatusInternalServerError, "An internal server error occurred.")
		return
	}

	views := make([]resultView, 0, len(records))
	for _, rec := range records {
		views = append(views, resultView{
			ID:        rec.ID,
			VacancyID: rec.VacancyID,
			ResumeID:  rec.ResumeID,
			Score:     rec.Score,
			Summary:   rec.Summary,
			Output:    decodeStoredOutput(rec.RawOutput),
			CreatedAt: rec.CreatedAt,
			UpdatedAt: rec.UpdatedAt,
		})
	}

	slog.Info("Retrieved results", "vacancy_id", vacancyID, "count", len(views))
	api.JSON(w, http.StatusOK, views)
}

// coerceID accepts the id as a JSON number or a numeric string.
func coerceID(v any) (int64, bool) {
	switch val := v.(type) {
	case float64:
		id := int64(val)
		if float64(id) != val || id <= 0 {
			return 0, false
		}
		return id, true
	case string:
		id, err := strconv.ParseInt(val, 10, 64)
		if err != nil || id <= 0 {
			return 0, false
		}
		return id, true
	default:
		return 0, false
	}
}
