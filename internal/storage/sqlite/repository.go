// Package sqlite is the embedded single-file backend, the default for
// local deployments.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"tally/internal/core"
	"tally/internal/storage"

	_ "modernc.org/sqlite"
)

const dateLayout = time.RFC3339

type Repository struct {
	db *sql.DB
}

func NewRepository(dbPath string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := runMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *Repository) Insert(ctx context.Context, tx core.Transaction) error {
	if err := tx.Validate(); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO transactions (id, date, amount_cents, transaction_type, details, category, bank, statement_type)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		tx.ID, tx.Date.UTC().Format(dateLayout), tx.Amount.Cents, string(tx.Type),
		tx.Description, tx.Category, tx.Bank, tx.StatementType,
	)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

func (r *Repository) Get(ctx context.Context, id string) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, date, amount_cents, transaction_type, details, category, bank, statement_type
		FROM transactions WHERE id = ?`, id)
	return scanTransaction(row)
}

func (r *Repository) List(ctx context.Context, f storage.Filter) ([]core.Transaction, error) {
	query := `
		SELECT id, date, amount_cents, transaction_type, details, category, bank, statement_type
		FROM transactions WHERE 1=1`
	var args []any
	if !f.From.IsZero() {
		query += " AND date >= ?"
		args = append(args, f.From.UTC().Format(dateLayout))
	}
	if !f.To.IsZero() {
		query += " AND date < ?"
		args = append(args, f.To.UTC().Add(24*time.Hour).Format(dateLayout))
	}
	if f.Category != "" {
		query += " AND category = ?"
		args = append(args, f.Category)
	}
	if f.Type != "" {
		query += " AND transaction_type = ?"
		args = append(args, string(f.Type))
	}
	query += " ORDER BY date DESC, rowid ASC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()
	return scanTransactions(rows)
}

func (r *Repository) UpdateCategory(ctx context.Context, id, category string) (core.Transaction, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET category = ? WHERE id = ?`, category, id)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update category: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.Transaction{}, core.ErrNotFound
	}
	return r.Get(ctx, id)
}

// UpdateType rewrites the sign in the same statement so amount and type
// can never disagree, even if the process dies mid-update.
func (r *Repository) UpdateType(ctx context.Context, id string, typ core.TxType) (core.Transaction, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE transactions
		SET transaction_type = ?,
		    amount_cents = CASE WHEN ? = 'Debit' THEN -ABS(amount_cents) ELSE ABS(amount_cents) END
		WHERE id = ?`,
		string(typ), string(typ), id)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update type: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.Transaction{}, core.ErrNotFound
	}
	return r.Get(ctx, id)
}

func (r *Repository) SetMapping(ctx context.Context, vendor, category string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO vendor_mappings (vendor, category) VALUES (?, ?)
		ON CONFLICT(vendor) DO UPDATE SET category = excluded.category, updated_at = datetime('now')`,
		vendor, category)
	if err != nil {
		return fmt.Errorf("set vendor mapping: %w", err)
	}
	return nil
}

func (r *Repository) Mappings(ctx context.Context) (map[string]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT vendor, category FROM vendor_mappings`)
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

func (r *Repository) ListUnexported(ctx context.Context, limit int) ([]core.Transaction, error) {
	query := `
		SELECT id, date, amount_cents, transaction_type, details, category, bank, statement_type
		FROM transactions WHERE exported_at IS NULL ORDER BY date ASC, rowid ASC`
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list unexported: %w", err)
	}
	defer rows.Close()
	return scanTransactions(rows)
}

func (r *Repository) MarkExported(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE transactions SET exported_at = datetime('now'), export_error = NULL WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("mark exported: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (r *Repository) MarkExportError(ctx context.Context, id string, reason string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET export_error = ? WHERE id = ?`, reason, id)
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
	var date, typ string
	err := row.Scan(&tx.ID, &date, &tx.Amount.Cents, &typ,
		&tx.Description, &tx.Category, &tx.Bank, &tx.StatementType)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, core.ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("scan transaction: %w", err)
	}
	tx.Type = core.TxType(typ)
	tx.Date, err = time.Parse(dateLayout, date)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("parse stored date %q: %w", date, err)
	}
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
