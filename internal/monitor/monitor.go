package monitor

import (
	"context"
	"database/sql"
	"errors"
	"strings"
)

// ErrNotFound is returned by content updates that target an id no longer in
// the store.
var ErrNotFound = errors.New("monitor not found")

// Record is the unit of work and persistence: one registered (URL, selector)
// pair tracked for content change.
//
// LastContent is NULL until the first successful check; after that it always
// holds the exact fragment text of the most recent successful check.
// LastCheckedAt is written in the same statement as LastContent, so the pair
// is always mutually consistent.
type Record struct {
	ID            int64
	URL           string
	Selector      string
	OwnerEmail    string
	OwnerKey      string
	LastContent   sql.NullString
	LastCheckedAt sql.NullTime
}

// PreviousContent returns the stored fragment text, with NULL mapped to "".
func (r Record) PreviousContent() string {
	if r.LastContent.Valid {
		return r.LastContent.String
	}
	return ""
}

// Virgin reports whether the record has never captured a non-blank snapshot.
// Trim-emptiness of the stored value is the discriminator between
// first-snapshot and compare, regardless of what the new check extracts.
func (r Record) Virgin() bool {
	return strings.TrimSpace(r.PreviousContent()) == ""
}

// Store is the persistence contract for monitor records. Implementations
// acquire the connection per operation; no transaction spans a batch.
type Store interface {
	EnsureSchema(ctx context.Context) error
	// ListAll returns every record, for the cycle runner.
	ListAll(ctx context.Context) ([]Record, error)
	// ListByOwner returns the records visible to one owner key, newest first.
	ListByOwner(ctx context.Context, ownerKey string) ([]Record, error)
	// Insert stores a new record with NULL last_content and returns its id.
	Insert(ctx context.Context, rec Record) (int64, error)
	// Delete removes id if ownerKey matches. A mismatched key and a
	// nonexistent id are indistinguishable: both return false, nil.
	Delete(ctx context.Context, id int64, ownerKey string) (bool, error)
	// UpdateContent writes last_content and last_checked_at together.
	// Returns ErrNotFound when id is gone.
	UpdateContent(ctx context.Context, id int64, text string) error
	Close() error
}
