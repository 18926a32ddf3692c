//nolint:revive // "api" package name is intentionally concise for this layer.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ansarzeinulla/prescreen/internal/domain"
)

func TestJSON(t *testing.T) {
	w := httptest.NewRecorder()
	data := map[string]string{"foo": "bar"}

	JSON(w, http.StatusOK, data)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}

	var got map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if got["foo"] != "bar" {
		t.Errorf("Expected foo=bar, got %v", got["foo"])
	}
}

type pingRepo struct {
	pingErr error
}

func (r *pingRepo) GetVacancy(context.Context, int64) (domain.Record, error) { return nil, nil }
func (r *pingRepo) GetResume(context.Context, int64) (domain.Record, error)  { return nil, nil }
func (r *pingRepo) UpsertResult(context.Context, int64, int64, domain.Verdict) error {
	return nil
}

func (r *pingRepo) ListResultsByVacancy(context.Context, int64) ([]domain.ResultRecord, error) {
	return nil, nil
}
func (r *pingRepo) Ping(context.Context) error { return r.pingErr }
func (r *pingRepo) Close() error               { return nil }

func TestHealthOK(t *testing.T) {
	h := NewHealthHandler(&pingRepo{}, time.Second)
	w := httptest.NewRecorder()

	h.Health(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var status map[string]any
	if err := json.NewDecoder(w.Body).Decode(&status); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if status["status"] != "healthy" {
		t.Errorf("expected healthy, got %v", status["status"])
	}
}

func TestHealthDegradedWhenStoreUnreachable(t *testing.T) {
	h := NewHealthHandler(&pingRepo{pingErr: errors.New("no db")}, time.Second)
	w := httptest.NewRecorder()

	h.Health(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
}
