// Package export defines the outbound sheet port the worker writes
// through. The Google implementation lives in the google subpackage.
package export

import (
	"context"

	"tally/internal/core"
)

// RowWriter appends one ledger row to an external sheet and returns a
// backend-specific reference for the written row.
type RowWriter interface {
	AppendTransaction(ctx context.Context, tx core.Transaction) (string, error)
}
