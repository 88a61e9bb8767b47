// =============================================================================
// DIAN Invoice Consolidator - Rule Store
// =============================================================================
//
// The rule store maps a supplier name to the conversion that re-expresses its
// line items in the unit used by the report (for example a crate of 30 eggs
// becomes 30 eggs). A Table is built once per run and is read-only after
// that, so it can be shared by any number of goroutines.
//
// SUPPLIER MATCHING:
//   By default both rule keys and queried supplier names are folded before
//   comparison: Unicode NFKC, surrounding whitespace trimmed, internal runs of
//   whitespace collapsed to one space, and Unicode case folding. Issuer
//   software writes "GRANJA SAN PEDRO S.A.S" or "Granja  San Pedro S.A.S",
//   and both must find the same rule. WithExactMatch restores byte-for-byte
//   key comparison.
//
// =============================================================================

package rules

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// =============================================================================
// RULE AND TABLE
// =============================================================================

// Rule is the conversion applied to every line item of one supplier.
type Rule struct {
	// Supplier is the rule key as written in the rule source.
	Supplier string

	// Factor multiplies the quantity and divides the unit price. Always > 0.
	Factor decimal.Decimal

	// TargetType replaces the line's type. Empty keeps the line's own type.
	TargetType string
}

// Table is an immutable supplier -> Rule lookup.
type Table struct {
	rules map[string]Rule
	exact bool
}

// Option configures how a Table matches supplier names.
type Option func(*options)

type options struct {
	exact bool
}

// WithExactMatch makes lookups compare supplier names byte for byte.
func WithExactMatch() Option {
	return func(o *options) { o.exact = true }
}

// NewTable validates rules and builds a Table from them.
//
// PARAMETERS:
//   - source: Names the origin of the rules in error messages.
//   - entries: The rules, in source order.
//   - opts: Matching options.
//
// RETURNS:
//   - The table.
//   - A *ConfigError when a rule has an empty supplier, a non-positive
//     factor, or a key that collides with an earlier one after folding.
func NewTable(source string, entries []Rule, opts ...Option) (*Table, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	t := &Table{rules: make(map[string]Rule, len(entries)), exact: o.exact}
	for _, r := range entries {
		if strings.TrimSpace(r.Supplier) == "" {
			return nil, &ConfigError{Source: source, Reason: "empty supplier name"}
		}
		if !r.Factor.IsPositive() {
			return nil, &ConfigError{Source: source, Supplier: r.Supplier, Reason: "factor must be greater than zero, got " + r.Factor.String()}
		}

		key := t.key(r.Supplier)
		if prev, dup := t.rules[key]; dup {
			return nil, &ConfigError{Source: source, Supplier: r.Supplier, Reason: "duplicates supplier " + quote(prev.Supplier)}
		}
		r.TargetType = strings.TrimSpace(r.TargetType)
		t.rules[key] = r
	}

	return t, nil
}

// Empty returns a table with no rules: every supplier passes through.
func Empty() *Table {
	return &Table{rules: map[string]Rule{}}
}

// Lookup returns the rule for supplier. The second result is false when no
// rule applies, which is not an error. Lookup on a nil Table finds nothing.
func (t *Table) Lookup(supplier string) (Rule, bool) {
	if t == nil {
		return Rule{}, false
	}
	r, ok := t.rules[t.key(supplier)]
	return r, ok
}

// Len returns the number of rules.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.rules)
}

// Suppliers returns the rule keys as written in the source, sorted.
func (t *Table) Suppliers() []string {
	if t == nil {
		return nil
	}
	names := make([]string, 0, len(t.rules))
	for _, r := range t.rules {
		names = append(names, r.Supplier)
	}
	sort.Strings(names)
	return names
}

func (t *Table) key(supplier string) string {
	if t.exact {
		return supplier
	}
	return FoldSupplier(supplier)
}

// FoldSupplier returns the comparison form of a supplier name used by
// tables that are not in exact-match mode.
func FoldSupplier(name string) string {
	s := norm.NFKC.String(name)
	s = strings.Join(strings.Fields(s), " ")
	// A Caser keeps state, so each call gets its own.
	return cases.Fold().String(s)
}

func quote(s string) string {
	return "\"" + s + "\""
}
