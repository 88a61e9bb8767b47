// =============================================================================
// DIAN Invoice Consolidator - Amount Normalization
// =============================================================================
//
// Issuer software writes quantities and prices with either "." or "," as the
// decimal separator, sometimes with grouping separators as well. This package
// turns every accepted spelling into one exact decimal value.
//
// SEPARATOR POLICY:
//   1. Spaces (including non-breaking spaces) are removed.
//   2. If both "." and "," appear, the right-most one is the decimal
//      separator and the other one is a grouping separator.
//      "1.234,56" -> 1234.56      "1,234.56" -> 1234.56
//   3. If only one kind of separator appears exactly once, it is the decimal
//      separator.
//      "15000.00" -> 15000        "2,5" -> 2.5        "1,234" -> 1.234
//   4. If one kind of separator appears more than once, it is a grouping
//      separator and the number has no fractional part.
//      "1.234.567" -> 1234567
//   5. Grouped integer parts must use groups of exactly three digits after
//      the leading group.
//
// Rule 3 means "1,234" reads as one-point-two-three-four. UBL amounts are
// xsd:decimal values, so a lone separator is never used for grouping there.
//
// =============================================================================

package amount

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrInvalid is returned (wrapped) for any value that is not a number under
// the separator policy.
var ErrInvalid = errors.New("invalid amount")

// Parse normalizes s according to the separator policy and returns its exact
// decimal value.
func Parse(s string) (decimal.Decimal, error) {
	clean := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\n', '\r', '\u00a0', '\u202f':
			return -1
		}
		return r
	}, s)

	if clean == "" {
		return decimal.Zero, fmt.Errorf("%w: empty value", ErrInvalid)
	}

	sign := ""
	switch clean[0] {
	case '-':
		sign = "-"
		clean = clean[1:]
	case '+':
		clean = clean[1:]
	}

	for _, r := range clean {
		if (r < '0' || r > '9') && r != '.' && r != ',' {
			return decimal.Zero, fmt.Errorf("%w %q: unexpected character %q", ErrInvalid, s, r)
		}
	}

	intPart, fracPart, err := split(clean)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w %q: %s", ErrInvalid, s, err.Error())
	}

	if intPart == "" && fracPart == "" {
		return decimal.Zero, fmt.Errorf("%w %q: no digits", ErrInvalid, s)
	}
	if intPart == "" {
		intPart = "0"
	}

	canonical := sign + intPart
	if fracPart != "" {
		canonical += "." + fracPart
	}

	d, err := decimal.NewFromString(canonical)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w %q: %v", ErrInvalid, s, err)
	}
	return d, nil
}

// MustParse is like Parse but panics on error. Intended for tests and
// constants.
func MustParse(s string) decimal.Decimal {
	d, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return d
}

// split separates the integer digits from the fractional digits, removing
// grouping separators.
func split(s string) (string, string, error) {
	dots := strings.Count(s, ".")
	commas := strings.Count(s, ",")

	switch {
	case dots == 0 && commas == 0:
		return s, "", nil

	case dots > 0 && commas > 0:
		decSep, groupSep := ".", ","
		if strings.LastIndex(s, ",") > strings.LastIndex(s, ".") {
			decSep, groupSep = ",", "."
		}
		if strings.Count(s, decSep) != 1 {
			return "", "", errors.New("decimal separator appears more than once")
		}
		idx := strings.LastIndex(s, decSep)
		intPart, fracPart := s[:idx], s[idx+1:]
		if strings.Contains(fracPart, groupSep) {
			return "", "", errors.New("grouping separator after decimal separator")
		}
		digits, err := ungroup(intPart, groupSep)
		if err != nil {
			return "", "", err
		}
		return digits, fracPart, nil

	case dots == 1 || commas == 1:
		sep := "."
		if commas == 1 {
			sep = ","
		}
		idx := strings.Index(s, sep)
		return s[:idx], s[idx+1:], nil

	default:
		sep := "."
		if commas > 0 {
			sep = ","
		}
		digits, err := ungroup(s, sep)
		if err != nil {
			return "", "", err
		}
		return digits, "", nil
	}
}

// ungroup removes grouping separators from an integer part after checking
// that the groups are well formed ("1.234.567", not "12.34.567").
func ungroup(s, sep string) (string, error) {
	if !strings.Contains(s, sep) {
		return s, nil
	}
	groups := strings.Split(s, sep)
	for i, g := range groups {
		if i == 0 {
			if len(g) == 0 || len(g) > 3 {
				return "", fmt.Errorf("malformed leading digit group %q", g)
			}
			continue
		}
		if len(g) != 3 {
			return "", fmt.Errorf("malformed digit group %q", g)
		}
	}
	return strings.Join(groups, ""), nil
}
