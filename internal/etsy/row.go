// Package etsy turns marketplace CSV exports into loosely-typed rows and
// provides the locale-tolerant field and number handling the exports
// require. Etsy varies column names by account locale and export
// version ("Order ID" vs. "Bestellnummer"), so all column access goes
// through ResolveField and all amounts through ParseAmount.
package etsy

import (
	"strconv"
	"strings"
)

// RawRow is one parsed CSV row: column name to raw cell value. Keys keep
// the column order of the source file so that lookups are deterministic.
type RawRow struct {
	keys   []string
	values map[string]string
}

// NewRawRow creates an empty row.
func NewRawRow() *RawRow {
	return &RawRow{values: make(map[string]string)}
}

// Set stores a cell under its original column name. Setting an existing
// key overwrites the value but keeps the key's position.
func (r *RawRow) Set(key, value string) {
	if _, ok := r.values[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.values[key] = value
}

// Keys returns the column names in source order.
func (r *RawRow) Keys() []string {
	return r.keys
}

// Get returns the raw value for an exact key.
func (r *RawRow) Get(key string) (string, bool) {
	v, ok := r.values[key]
	return v, ok
}

// ResolveField returns the first non-empty cell whose normalized column
// name (trimmed, lowercased) matches any of the candidate names.
//
// Matching walks the row's columns in source order, not the candidate
// list: callers must treat every candidate as equally acceptable,
// because the first structurally present match wins. Returns ok=false
// when no candidate matches or every match is empty after trimming.
func (r *RawRow) ResolveField(candidates ...string) (string, bool) {
	normalized := make([]string, len(candidates))
	for i, c := range candidates {
		normalized[i] = strings.ToLower(strings.TrimSpace(c))
	}

	for _, key := range r.keys {
		nk := strings.ToLower(strings.TrimSpace(key))
		for _, c := range normalized {
			if nk != c {
				continue
			}
			value := strings.TrimSpace(r.values[key])
			if value == "" {
				break // empty cell, keep scanning later columns
			}
			return value, true
		}
	}
	return "", false
}

// ParseAmount parses a locale-ambiguous decimal string into a float.
//
// German exports write "1.234,56", English ones "1,234.56" or "1234.56".
// The last separator decides: when a comma occurs after the last dot,
// every dot is a thousands separator and is removed; remaining commas
// become decimal points.
//
// Empty input and malformed cells both return 0. This is a deliberate
// fail-soft: a bad cell becomes a zero amount instead of aborting the
// whole batch, at the cost of silently absorbing data-quality defects.
func ParseAmount(value string) float64 {
	cleaned := strings.TrimSpace(value)
	if cleaned == "" {
		return 0
	}
	cleaned = strings.ReplaceAll(cleaned, " ", "")

	lastDot := strings.LastIndex(cleaned, ".")
	lastComma := strings.LastIndex(cleaned, ",")
	if lastComma > lastDot {
		// German form: dots separate thousands, the comma is decimal.
		cleaned = strings.ReplaceAll(cleaned, ".", "")
		cleaned = strings.ReplaceAll(cleaned, ",", ".")
	} else {
		// English form: commas separate thousands, the dot is decimal.
		cleaned = strings.ReplaceAll(cleaned, ",", "")
	}

	amount, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0
	}
	return amount
}

// ParseQuantity parses an item count. Invalid or non-positive values
// default to 1, matching how the exports treat a missing count.
func ParseQuantity(value string) int {
	qty := int(ParseAmount(value))
	if qty <= 0 {
		return 1
	}
	return qty
}
