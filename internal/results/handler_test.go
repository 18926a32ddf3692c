package results

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ansarzeinulla/prescreen/internal/domain"
)

type fakeRepo struct {
	records []domain.ResultRecord
	listErr error
}

func (r *fakeRepo) GetVacancy(context.Context, int64) (domain.Record, error) { return nil, nil }
func (r *fakeRepo) GetResume(context.Context, int64) (domain.Record, error)  { return nil, nil }
func (r *fakeRepo) UpsertResult(context.Context, int64, int64, domain.Verdict) error {
	return nil
}

func (r *fakeRepo) ListResultsByVacancy(context.Context, int64) ([]domain.ResultRecord, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	return r.records, nil
}

func (r *fakeRepo) Ping(context.Context) error { return nil }
func (r *fakeRepo) Close() error               { return nil }

func doRetrieve(t *testing.T, h *Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/retrieve", strings.NewReader(body))
	w := httptest.NewRecorder()
	h.HandleRetrieve(w, req)
	return w
}

func TestHandleRetrieveListsResults(t *testing.T) {
	now := time.Now()
	repo := &fakeRepo{records: []domain.ResultRecord{
		{ID: 2, VacancyID: 1, ResumeID: 5, Score: 90, Summary: "high",
			RawOutput: `{"final_score":90,"summary":"high"}`, CreatedAt: now, UpdatedAt: now},
		{ID: 1, VacancyID: 1, ResumeID: 4, Score: 30, Summary: "low",
			RawOutput: `{"final_score":30,"summary":"low"}`, CreatedAt: now, UpdatedAt: now},
	}}
	h := NewHandler(repo)

	w := doRetrieve(t, h, `{"vacancy_id": 1}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var views []map[string]any
	if err := json.NewDecoder(w.Body).Decode(&views); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(views) != 2 {
		t.Fatalf("expected 2 results, got %d", len(views))
	}
	// Store order (score descending) is preserved.
	if views[0]["score"].(float64) != 90 || views[1]["score"].(float64) != 30 {
		t.Errorf("unexpected order: %v", views)
	}
	output, ok := views[0]["output"].(map[string]any)
	if !ok {
		t.Fatalf("expected decoded output object, got %T", views[0]["output"])
	}
	if output["summary"] != "high" {
		t.Errorf("unexpected output: %v", output)
	}
}

func TestHandleRetrieveEmptyListing(t *testing.T) {
	h := NewHandler(&fakeRepo{})

	w := doRetrieve(t, h, `{"vacancy_id": 42}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if body := strings.TrimSpace(w.Body.String()); body != "[]" {
		t.Errorf("expected empty JSON array, got %q", body)
	}
}

func TestHandleRetrieveMalformedRowDegradesToRaw(t *testing.T) {
	now := time.Now()
	repo := &fakeRepo{records: []domain.ResultRecord{
		{ID: 1, VacancyID: 9, ResumeID: 1, Score: 80, Summary: "fine",
			RawOutput: `{"final_score":80,"summary":"fine"}`, CreatedAt: now, UpdatedAt: now},
		{ID: 2, VacancyID: 9, ResumeID: 2, Score: 50, Summary: "legacy",
			RawOutput: "{not json", CreatedAt: now, UpdatedAt: now},
	}}
	h := NewHandler(repo)

	w := doRetrieve(t, h, `{"vacancy_id": 9}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var views []map[string]any
	if err := json.NewDecoder(w.Body).Decode(&views); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(views) != 2 {
		t.Fatalf("one malformed row must not hide the rest, got %d results", len(views))
	}
	if views[1]["output"] != "{not json" {
		t.Errorf("expected raw passthrough for malformed row, got %v", views[1]["output"])
	}
}

func TestHandleRetrieveValidation(t *testing.T) {
	h := NewHandler(&fakeRepo{})

	cases := map[string]string{
		"missing id":     `{}`,
		"non-numeric":    `{"vacancy_id": "abc"}`,
		"boolean id":     `{"vacancy_id": true}`,
		"fractional id":  `{"vacancy_id": 1.5}`,
		"zero id":        `{"vacancy_id": 0}`,
		"malformed body": `{`,
	}
	for name, body := range cases {
		if w := doRetrieve(t, h, body); w.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", name, w.Code)
		}
	}
}

func TestHandleRetrieveStoreFailure(t *testing.T) {
	h := NewHandler(&fakeRepo{listErr: errors.New("db down")})

	w := doRetrieve(t, h, `{"vacancy_id": 1}`)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
}

func TestDecodeStoredOutput(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want any
	}{
		{"empty", "", nil},
		{"plain object", `{"a":1}`, map[string]any{"a": float64(1)}},
		{"double encoded", `"{\"final_score\":70,\"summary\":\"ok\"}"`,
			map[string]any{"final_score": float64(70), "summary": "ok"}},
		{"garbage", "{broken", "{broken"},
		{"string that is not json", `"hello"`, "hello"},
	}

	for _, tc := range cases {
		got := decodeStoredOutput(tc.raw)
		gotJSON, _ := json.Marshal(got)
		wantJSON, _ := json.Marshal(tc.want)
		if string(gotJSON) != string(wantJSON) {
			t.Errorf("%s: decodeStoredOutput(%q) = %s, want %s", tc.name, tc.raw, gotJSON, wantJSON)
		}
	}
}
