// Package categorize assigns categories to transactions from a persistent
// vendor-to-category mapping table. Every classification table carries a
// mandatory default entry: lookups are total and fall back to
// Uncategorized rather than failing.
package categorize

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"unicode"

	"tally/internal/core"
)

// VendorStore persists the vendor map. The Categorizer is its only
// writer; keys are stored in normalized form.
type VendorStore interface {
	SetMapping(ctx context.Context, vendor, category string) error
	Mappings(ctx context.Context) (map[string]string, error)
}

type Categorizer struct {
	store    VendorStore
	fallback string
}

func New(store VendorStore) *Categorizer {
	return &Categorizer{store: store, fallback: core.CategoryUncategorized}
}

// Normalize lowercases and collapses runs of whitespace. Lookups and
// stored vendor keys go through the same normalization.
func Normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// Categorize resolves a description to a category label. It only errors
// when the vendor store itself fails; a miss returns the fallback.
func (c *Categorizer) Categorize(ctx context.Context, description string) (string, error) {
	vendors, err := c.store.Mappings(ctx)
	if err != nil {
		return "", fmt.Errorf("load vendor mappings: %w", err)
	}
	return Match(description, vendors, c.fallback), nil
}

// SetMapping upserts a vendor key. Idempotent; a repeated set with a new
// category overwrites the old one.
func (c *Categorizer) SetMapping(ctx context.Context, vendor, category string) error {
	key := Normalize(vendor)
	if key == "" {
		return &core.ValidationError{Field: "vendor", Reason: "must not be empty"}
	}
	if strings.TrimSpace(category) == "" {
		return &core.ValidationError{Field: "category", Reason: "must not be empty"}
	}
	if err := c.store.SetMapping(ctx, key, strings.TrimSpace(category)); err != nil {
		return fmt.Errorf("save vendor mapping: %w", err)
	}
	return nil
}

// Mappings returns the current vendor table, keyed by normalized vendor.
func (c *Categorizer) Mappings(ctx context.Context) (map[string]string, error) {
	vendors, err := c.store.Mappings(ctx)
	if err != nil {
		return nil, fmt.Errorf("load vendor mappings: %w", err)
	}
	return vendors, nil
}

// Match is the pure lookup over a vendor table. Tiers, in order: exact
// match on the normalized description, vendor key contained in the
// description, vendor words all present in the description. Vendor keys
// are visited in sorted order so results do not depend on map iteration.
func Match(description string, vendors map[string]string, fallback string) string {
	desc := Normalize(description)
	if desc == "" || len(vendors) == 0 {
		return fallback
	}

	keys := make([]string, 0, len(vendors))
	for k := range vendors {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if k == desc {
			return vendors[k]
		}
	}
	for _, k := range keys {
		if strings.Contains(desc, k) {
			return vendors[k]
		}
	}
	descWords := wordSet(desc)
	for _, k := range keys {
		if containsAll(descWords, wordSet(k)) {
			return vendors[k]
		}
	}
	return fallback
}

// ClassifyType infers a direction from statement wording when a record
// arrives with neither a sign nor an explicit type.
func ClassifyType(description string) core.TxType {
	text := strings.ToLower(description)
	for _, k := range []string{"rewards", "rebate", "refund"} {
		if strings.Contains(text, k) {
			return core.Credit
		}
	}
	debitKeywords := []string{
		"retail", "debit", "purchase", "fulfill request",
		"bill", "charge", "petro", "service", "withdrawal",
	}
	for _, k := range debitKeywords {
		if strings.Contains(text, k) {
			return core.Debit
		}
	}
	return core.Credit
}

func wordSet(s string) map[string]struct{} {
	words := strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
	})
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

func containsAll(have, want map[string]struct{}) bool {
	if len(want) == 0 {
		return false
	}
	for w := range want {
		if _, ok := have[w]; !ok {
			return false
		}
	}
	return true
}
