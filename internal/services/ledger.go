// Package services wires the domain packages into the operations the
// HTTP layer exposes.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"tally/internal/aggregate"
	"tally/internal/categorize"
	"tally/internal/core"
	"tally/internal/storage"
)

// EventPublisher emits a recorded event after a successful write. A nil
// publisher disables eventing.
type EventPublisher interface {
	PublishTransactionRecorded(ctx context.Context, id string) error
}

type Ledger struct {
	store       storage.Store
	categorizer *categorize.Categorizer
	publisher   EventPublisher
}

func NewLedger(store storage.Store, categorizer *categorize.Categorizer, publisher EventPublisher) *Ledger {
	return &Ledger{
		store:       store,
		categorizer: categorizer,
		publisher:   publisher,
	}
}

// RecordInput is a record request before normalization. Amount is the
// client's decimal; its sign, the Type field, or the description decide
// the direction, in that order.
type RecordInput struct {
	Date          time.Time
	Amount        decimal.Decimal
	Type          core.TxType
	Description   string
	Category      string
	Bank          string
	StatementType string
}

// Record normalizes, categorizes, and persists one transaction. The
// recorded event is published best-effort: a broker outage never fails
// the write, the export queue covers recovery.
func (l *Ledger) Record(ctx context.Context, in RecordInput) (core.Transaction, error) {
	cents, err := core.CentsFromDecimal(in.Amount)
	if err != nil {
		return core.Transaction{}, err
	}

	typ := in.Type
	if typ != "" && !typ.Valid() {
		return core.Transaction{}, &core.ValidationError{Field: "transaction_type", Reason: "must be Debit or Credit"}
	}
	if typ == "" {
		if cents < 0 {
			typ = core.Debit
		} else {
			typ = categorize.ClassifyType(in.Description)
		}
	}

	category := strings.TrimSpace(in.Category)
	if category == "" {
		category, err = l.categorizer.Categorize(ctx, in.Description)
		if err != nil {
			return core.Transaction{}, fmt.Errorf("categorize: %w", err)
		}
	}

	statementType := in.StatementType
	if statementType == "" {
		statementType = core.StatementManual
	}

	tx := core.Transaction{
		ID:            uuid.NewString(),
		Date:          in.Date,
		Amount:        core.Money{Cents: core.SignedCents(cents, typ)},
		Type:          typ,
		Description:   strings.TrimSpace(in.Description),
		Category:      category,
		Bank:          strings.TrimSpace(in.Bank),
		StatementType: statementType,
	}
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}

	if err := l.store.Insert(ctx, tx); err != nil {
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}

	if l.publisher != nil {
		if err := l.publisher.PublishTransactionRecorded(ctx, tx.ID); err != nil {
			slog.WarnContext(ctx, "Failed to publish recorded event, export will rely on backfill",
				"id", tx.ID, "error", err)
		}
	}

	return tx, nil
}

func (l *Ledger) Get(ctx context.Context, id string) (core.Transaction, error) {
	return l.store.Get(ctx, id)
}

func (l *Ledger) List(ctx context.Context, f storage.Filter) ([]core.Transaction, error) {
	return l.store.List(ctx, f)
}

// UpdateCategory reassigns a transaction to a category chosen by the
// user. Arbitrary labels are allowed, empty ones are not.
func (l *Ledger) UpdateCategory(ctx context.Context, id, category string) (core.Transaction, error) {
	category = strings.TrimSpace(category)
	if category == "" {
		return core.Transaction{}, &core.ValidationError{Field: "category", Reason: "must not be empty"}
	}
	return l.store.UpdateCategory(ctx, id, category)
}

// SwitchType changes a transaction's direction. The store flips the sign
// with the type so the two always agree.
func (l *Ledger) SwitchType(ctx context.Context, id string, typ core.TxType) (core.Transaction, error) {
	if !typ.Valid() {
		return core.Transaction{}, &core.ValidationError{Field: "transaction_type", Reason: "must be Debit or Credit"}
	}
	return l.store.UpdateType(ctx, id, typ)
}

// RecategorizeResult reports a bulk recategorization pass.
type RecategorizeResult struct {
	Total   int
	Updated int
}

// RecategorizeAll re-runs the vendor lookup over the whole ledger. Only
// rows whose lookup now yields a different, non-fallback category are
// touched; manual assignments are otherwise left alone.
func (l *Ledger) RecategorizeAll(ctx context.Context) (RecategorizeResult, error) {
	txs, err := l.store.List(ctx, storage.Filter{})
	if err != nil {
		return RecategorizeResult{}, fmt.Errorf("list transactions: %w", err)
	}

	result := RecategorizeResult{Total: len(txs)}
	for _, tx := range txs {
		category, err := l.categorizer.Categorize(ctx, tx.Description)
		if err != nil {
			return result, fmt.Errorf("categorize %s: %w", tx.ID, err)
		}
		if category == tx.Category || category == core.CategoryUncategorized {
			continue
		}
		if _, err := l.store.UpdateCategory(ctx, tx.ID, category); err != nil {
			return result, fmt.Errorf("update category for %s: %w", tx.ID, err)
		}
		result.Updated++
	}

	slog.InfoContext(ctx, "Recategorization pass completed",
		"total", result.Total,
		"updated", result.Updated)
	return result, nil
}

// SetVendorMapping upserts a vendor rule for future records and
// recategorization passes.
func (l *Ledger) SetVendorMapping(ctx context.Context, vendor, category string) error {
	return l.categorizer.SetMapping(ctx, vendor, category)
}

func (l *Ledger) VendorMappings(ctx context.Context) (map[string]string, error) {
	return l.categorizer.Mappings(ctx)
}

func (l *Ledger) Summary(ctx context.Context) (aggregate.Summary, error) {
	txs, err := l.store.List(ctx, storage.Filter{})
	if err != nil {
		return aggregate.Summary{}, fmt.Errorf("list transactions: %w", err)
	}
	return aggregate.Summarize(txs), nil
}

func (l *Ledger) ListDaily(ctx context.Context, mode aggregate.Mode) ([]aggregate.DateGroup, error) {
	txs, err := l.store.List(ctx, storage.Filter{})
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return aggregate.FilterByDirection(aggregate.GroupByDay(txs), mode), nil
}

func (l *Ledger) ListMonthly(ctx context.Context, mode aggregate.Mode) ([]aggregate.DateGroup, error) {
	txs, err := l.store.List(ctx, storage.Filter{})
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return aggregate.FilterByDirection(aggregate.GroupByMonth(txs), mode), nil
}

func (l *Ledger) RollupByCategory(ctx context.Context) ([]aggregate.Rollup, error) {
	return l.rollup(ctx, aggregate.ByCategory)
}

func (l *Ledger) RollupByMerchant(ctx context.Context) ([]aggregate.Rollup, error) {
	return l.rollup(ctx, aggregate.ByMerchant)
}

func (l *Ledger) rollup(ctx context.Context, dim aggregate.Dimension) ([]aggregate.Rollup, error) {
	txs, err := l.store.List(ctx, storage.Filter{})
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return aggregate.Rollups(txs, dim), nil
}
