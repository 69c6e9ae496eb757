// Package postgres is the shared-database backend for deployments where
// several instances serve one ledger.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"tally/internal/core"
	"tally/internal/storage"

	_ "github.com/lib/pq"
)

const schema = `
CREATE TABLE IF NOT EXISTS transactions (
    id TEXT PRIMARY KEY,
    date TIMESTAMPTZ NOT NULL,
    amount_cents BIGINT NOT NULL CHECK (amount_cents != 0),
    transaction_type TEXT NOT NULL CHECK (transaction_type IN ('Debit', 'Credit')),
    details TEXT NOT NULL,
    category TEXT NOT NULL,
    bank TEXT NOT NULL DEFAULT '',
    statement_type TEXT NOT NULL DEFAULT 'manual',
    exported_at TIMESTAMPTZ,
    export_error TEXT,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_transactions_date ON transactions (date DESC);
CREATE INDEX IF NOT EXISTS idx_transactions_category ON transactions (category);
CREATE TABLE IF NOT EXISTS vendor_mappings (
    vendor TEXT PRIMARY KEY,
    category TEXT NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);`

type Store struct {
	db *sql.DB
}

func NewStore(dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Insert(ctx context.Context, tx core.Transaction) error {
	if err := tx.Validate(); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO transactions (id, date, amount_cents, transaction_type, details, category, bank, statement_type)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		tx.ID, tx.Date.UTC(), tx.Amount.Cents, string(tx.Type),
		tx.Description, tx.Category, tx.Bank, tx.StatementType,
	)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, id string) (core.Transaction, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, date, amount_cents, transaction_type, details, category, bank, statement_type
		FROM transactions WHERE id = $1`, id)
	return scanTransaction(row)
}

func (s *Store) List(ctx context.Context, f storage.Filter) ([]core.Transaction, error) {
	query := `
		SELECT id, date, amount_cents, transaction_type, details, category, bank, statement_type
		FROM transactions WHERE true`
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if !f.From.IsZero() {
		query += " AND date >= " + arg(f.From.UTC())
	}
	if !f.To.IsZero() {
		query += " AND date < " + arg(f.To.UTC().Add(24*time.Hour))
	}
	if f.Category != "" {
		query += " AND category = " + arg(f.Category)
	}
	if f.Type != "" {
		query += " AND transaction_type = " + arg(string(f.Type))
	}
	query += " ORDER BY date DESC, created_at ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()
	return scanTransactions(rows)
}

func (s *Store) UpdateCategory(ctx context.Context, id, category string) (core.Transaction, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE transactions SET category = $1 WHERE id = $2`, category, id)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update category: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.Transaction{}, core.ErrNotFound
	}
	return s.Get(ctx, id)
}

func (s *Store) UpdateType(ctx context.Context, id string, typ core.TxType) (core.Transaction, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE transactions
		SET transaction_type = $1,
		    amount_cents = CASE WHEN $1 = 'Debit' THEN -ABS(amount_cents) ELSE ABS(amount_cents) END
		WHERE id = $2`,
		string(typ), id)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update type: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.Transaction{}, core.ErrNotFound
	}
	return s.Get(ctx, id)
}

func (s *Store) SetMapping(ctx context.Context, vendor, category string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO vendor_mappings (vendor, category) VALUES ($1, $2)
		ON CONFLICT (vendor) DO UPDATE SET category = EXCLUDED.category, updated_at = now()`,
		vendor, category)
	if err != nil {
		return fmt.Errorf("set vendor mapping: %w", err)
	}
	return nil
}

func (s *Store) Mappings(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT vendor, category FROM vendor_mappings`)
	if err != nil {
		return nil, fmt.Errorf("load vendor mappings: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var vendor, category string
		if err := rows.Scan(&vendor, &category); err != nil {
			return nil, fmt.Errorf("scan vendor mapping: %w", err)
		}
		out[vendor] = category
	}
	return out, rows.Err()
}

func (s *Store) ListUnexported(ctx context.Context, limit int) ([]core.Transaction, error) {
	query := `
		SELECT id, date, amount_cents, transaction_type, details, category, bank, statement_type
		FROM transactions WHERE exported_at IS NULL ORDER BY date ASC, created_at ASC`
	var args []any
	if limit > 0 {
		args = append(args, limit)
		query += " LIMIT $1"
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list unexported: %w", err)
	}
	defer rows.Close()
	return scanTransactions(rows)
}

func (s *Store) MarkExported(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE transactions SET exported_at = now(), export_error = NULL WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("mark exported: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (s *Store) MarkExportError(ctx context.Context, id string, reason string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE transactions SET export_error = $1 WHERE id = $2`, reason, id)
	if err != nil {
		return fmt.Errorf("mark export error: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (core.Transaction, error) {
	var tx core.Transaction
	var typ string
	err := row.Scan(&tx.ID, &tx.Date, &tx.Amount.Cents, &typ,
		&tx.Description, &tx.Category, &tx.Bank, &tx.StatementType)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, core.ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("scan transaction: %w", err)
	}
	tx.Type = core.TxType(typ)
	return tx, nil
}

func scanTransactions(rows *sql.Rows) ([]core.Transaction, error) {
	out := []core.Transaction{}
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	return out, rows.Err()
}
