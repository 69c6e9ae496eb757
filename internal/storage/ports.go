// Package storage defines the persistence ports the ledger service and
// export worker depend on. Backends live in the subpackages.
package storage

import (
	"context"
	"time"

	"tally/internal/core"
)

// Filter narrows List results. Zero-value fields are ignored; From and To
// are inclusive day bounds.
type Filter struct {
	From     time.Time
	To       time.Time
	Category string
	Type     core.TxType
}

func (f Filter) Matches(t core.Transaction) bool {
	if !f.From.IsZero() && t.Date.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && t.Date.After(f.To.Add(24*time.Hour-time.Nanosecond)) {
		return false
	}
	if f.Category != "" && t.Category != f.Category {
		return false
	}
	if f.Type != "" && t.Type != f.Type {
		return false
	}
	return true
}

// Store is the transaction repository. Implementations return rows
// newest first and must return core.ErrNotFound for unknown ids.
type Store interface {
	Insert(ctx context.Context, tx core.Transaction) error
	Get(ctx context.Context, id string) (core.Transaction, error)
	List(ctx context.Context, f Filter) ([]core.Transaction, error)
	UpdateCategory(ctx context.Context, id, category string) (core.Transaction, error)
	UpdateType(ctx context.Context, id string, typ core.TxType) (core.Transaction, error)
}

// VendorStore persists vendor-to-category mappings keyed by normalized
// vendor string.
type VendorStore interface {
	SetMapping(ctx context.Context, vendor, category string) error
	Mappings(ctx context.Context) (map[string]string, error)
}

// ExportQueue tracks which transactions still need to reach the external
// sheet. Backends keep it alongside the transaction rows so a crash
// between insert and export loses nothing.
type ExportQueue interface {
	ListUnexported(ctx context.Context, limit int) ([]core.Transaction, error)
	MarkExported(ctx context.Context, id string) error
	MarkExportError(ctx context.Context, id string, reason string) error
}
