package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// TxType is the direction of a transaction as the mobile client sees it.
type TxType string

const (
	Debit  TxType = "Debit"
	Credit TxType = "Credit"
)

// Category labels. The set is open: vendor mappings may introduce new
// labels, but these are the ones the client renders natively.
const (
	CategoryTransfers      = "Transfers"
	CategoryFood           = "Food"
	CategoryTransportation = "Transportation"
	CategoryShopping       = "Shopping"
	CategoryBills          = "Bills"
	CategoryEntertainment  = "Entertainment"
	CategoryHealth         = "Health"
	CategoryIncome         = "Income"
	CategoryUncategorized  = "Uncategorized"
)

// Statement provenance tags.
const (
	StatementImported = "imported"
	StatementManual   = "manual"
)

type (
	// Money is a signed amount in minor units. Negative means money left
	// the account (a debit), positive means money came in (a credit).
	Money struct {
		Cents int64
	}

	// Transaction is the atomic ledger record. Amount carries the signed
	// convention; Type is kept alongside for the wire contract and must
	// agree with the sign.
	Transaction struct {
		ID            string
		Date          time.Time
		Amount        Money
		Type          TxType
		Description   string
		Category      string
		Bank          string
		StatementType string
	}
)

// ErrNotFound reports an unknown transaction id on get/update.
var ErrNotFound = errors.New("transaction not found")

// ValidationError reports a malformed input record. Such records are
// rejected at the boundary, never coerced.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func Categories() []string {
	return []string{
		CategoryTransfers,
		CategoryFood,
		CategoryTransportation,
		CategoryShopping,
		CategoryBills,
		CategoryEntertainment,
		CategoryHealth,
		CategoryIncome,
		CategoryUncategorized,
	}
}

func (t TxType) Valid() bool {
	return t == Debit || t == Credit
}

// SignedCents applies the direction to a magnitude: debits are negative,
// credits positive.
func SignedCents(magnitude int64, typ TxType) int64 {
	if magnitude < 0 {
		magnitude = -magnitude
	}
	if typ == Debit {
		return -magnitude
	}
	return magnitude
}

// TypeFromSigned derives the direction implied by a signed amount.
func TypeFromSigned(cents int64) TxType {
	if cents < 0 {
		return Debit
	}
	return Credit
}

func (m Money) Abs() Money {
	if m.Cents < 0 {
		return Money{Cents: -m.Cents}
	}
	return m
}

// Float returns the major-unit value for display and wire serialization.
// Use cents for arithmetic.
func (m Money) Float() float64 {
	return float64(m.Cents) / 100.0
}

// DayKey is the locale-independent grouping key at day granularity.
func (t Transaction) DayKey() string {
	return t.Date.UTC().Format("2006-01-02")
}

// MonthKey is the grouping key at month granularity.
func (t Transaction) MonthKey() string {
	return t.Date.UTC().Format("2006-01")
}

// Magnitude returns the unsigned amount the client displays next to the
// Debit/Credit tag.
func (t Transaction) Magnitude() Money {
	return t.Amount.Abs()
}

func (t Transaction) Validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return &ValidationError{Field: "id", Reason: "must not be empty"}
	}
	if t.Date.IsZero() {
		return &ValidationError{Field: "date", Reason: "must not be zero"}
	}
	if t.Amount.Cents == 0 {
		return &ValidationError{Field: "amount", Reason: "must be non-zero"}
	}
	if !t.Type.Valid() {
		return &ValidationError{Field: "transaction_type", Reason: "must be Debit or Credit"}
	}
	if t.Type == Debit && t.Amount.Cents > 0 {
		return &ValidationError{Field: "amount", Reason: "debit amount must be negative"}
	}
	if t.Type == Credit && t.Amount.Cents < 0 {
		return &ValidationError{Field: "amount", Reason: "credit amount must be positive"}
	}
	desc := strings.TrimSpace(t.Description)
	if desc == "" {
		return &ValidationError{Field: "details", Reason: "must not be empty"}
	}
	if len(t.Description) > 200 {
		return &ValidationError{Field: "details", Reason: "too long (max 200 characters)"}
	}
	if strings.TrimSpace(t.Category) == "" {
		return &ValidationError{Field: "category", Reason: "must not be empty"}
	}
	return nil
}
