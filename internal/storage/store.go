// Package storage persists risk records. The pipeline treats the store as an
// opaque collaborator: Save a record per cycle, write back the sent-alert
// flag once, and serve the latest record to the read path.
package storage

import (
	"context"

	"github.com/couchcryptid/flood-risk-service/internal/domain"
)

// Store is the persistence contract for risk records. Implementations must
// be safe for concurrent use by the cycle runner and the HTTP read path.
type Store interface {
	// Init creates the schema if needed. A failure here is the one
	// process-fatal error in the service.
	Init(ctx context.Context) error
	Close() error

	// Save persists one record and returns its assigned id.
	Save(ctx context.Context, rec domain.RiskRecord) (int64, error)

	// UpdateSentAlert writes back the single mutable field of a persisted
	// record.
	UpdateSentAlert(ctx context.Context, id int64, sent bool) error

	// Latest returns the most recently saved record, or nil when the store
	// is empty.
	Latest(ctx context.Context) (*domain.RiskRecord, error)
}
