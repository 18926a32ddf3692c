// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"

	"github.com/ansarzeinulla/prescreen/internal/domain"
)

// Repository defines the interface for the screening data store.
type Repository interface {
	// GetVacancy retrieves a vacancy as an opaque record, or nil when absent.
	GetVacancy(ctx context.Context, id int64) (domain.Record, error)

	// GetResume retrieves a resume as an opaque record, or nil when absent.
	GetResume(ctx context.Context, id int64) (domain.Record, error)

	// UpsertResult creates or overwrites the verdict for a (vacancy, resume)
	// pair. Repeated calls replace, never duplicate.
	UpsertResult(ctx context.Context, vacancyID, resumeID int64, verdict domain.Verdict) error

	// ListResultsByVacancy returns all verdicts for a vacancy, ordered by
	// score descending. Returns an empty slice, not an error, when none exist.
	ListResultsByVacancy(ctx context.Context, vacancyID int64) ([]domain.ResultRecord, error)

	// Ping verifies database connectivity and returns an error if the database is unreachable.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
