// Package domain contains core domain types for the screening application.
package domain

import (
	"time"
)

// Record is an opaque row fetched from one of the read-only collections
// (vacancies, resumes). Keys are column names; values are whatever the
// driver returned. The evaluator receives the whole record, so the server
// makes no assumptions about the schema.
type Record map[string]any

// Verdict is the evaluator's final assessment of a candidate for a vacancy.
type Verdict struct {
	Score   int    `json:"final_score"`
	Summary string `json:"summary"`
	Reasons any    `json:"reasons,omitempty"`
}

// ResultRecord is a persisted verdict, unique per (vacancy_id, resume_id).
type ResultRecord struct {
	ID        int64     `json:"id"`
	VacancyID int64     `json:"vacancy_id"`
	ResumeID  int64     `json:"resume_id"`
	Score     int       `json:"score"`
	Summary   string    `json:"summary"`
	RawOutput string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
