// =============================================================================
// DIAN Invoice Consolidator - Normalizer
// =============================================================================
//
// This module turns a parsed invoice line into a report record, applying the
// supplier's conversion rule when one exists.
//
// CONVERSION:
//   With a rule (factor f, target type T):
//     quantity'   = quantity * f
//     unit_price' = unit_price / f
//     type'       = T (or the line's own type when T is empty)
//   The monetary value of the line is unchanged:
//     quantity * unit_price == quantity' * unit_price'
//   Without a rule, type, quantity and unit price pass through untouched.
//
//   Example: "Granja San Pedro" -> {factor: 30, tipo_objetivo: "Huevo"}
//     2 Cubeta @ 15000  ->  60 Huevo @ 500      (2*15000 == 60*500 == 30000)
//
// Zero-quantity lines are kept; filtering them is a reporting decision.
//
// =============================================================================

package normalizer

import (
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/dian-invoice-consolidator/internal/invoice"
	"github.com/ginjaninja78/dian-invoice-consolidator/internal/rules"
	"github.com/ginjaninja78/dian-invoice-consolidator/internal/types"
)

// Normalize builds the report record for one line of one invoice.
//
// PARAMETERS:
//   - header: The invoice header the line belongs to.
//   - line: The parsed line.
//   - table: The conversion rules. A nil or empty table converts nothing.
//
// RETURNS:
//   - The record. Normalize is deterministic and has no side effects.
func Normalize(header invoice.Header, line invoice.Line, table *rules.Table) types.Record {
	return Apply(FromLine(header, line), table)
}

// FromLine builds the unconverted record for a line.
func FromLine(header invoice.Header, line invoice.Line) types.Record {
	day := ""
	if !header.IssueDate.IsZero() {
		day = strconv.Itoa(header.IssueDate.Day())
	}

	return types.Record{
		Supplier:      header.Supplier,
		SupplierID:    header.SupplierID,
		Day:           day,
		IssueDate:     header.IssueDate,
		InvoiceNumber: header.InvoiceNumber,
		Type:          line.Description,
		Quantity:      line.Quantity,
		UnitPrice:     line.UnitPrice,
	}
}

// Apply converts rec with the rule for rec.Supplier, if the table has one.
// Without a matching rule rec is returned unchanged.
func Apply(rec types.Record, table *rules.Table) types.Record {
	rule, ok := table.Lookup(rec.Supplier)
	if !ok {
		return rec
	}

	rec.Quantity = rec.Quantity.Mul(rule.Factor)
	rec.UnitPrice = rec.UnitPrice.DivRound(rule.Factor, divisionPlaces(rec.UnitPrice, rule.Factor))
	if rule.TargetType != "" {
		rec.Type = rule.TargetType
	}
	rec.Converted = true
	return rec
}

// divisionPlaces returns enough decimal places for price/factor to keep 16
// significant digits, however small the price is.
func divisionPlaces(price, factor decimal.Decimal) int32 {
	places := int32(16) - price.Exponent() + int32(len(factor.Coefficient().String()))
	if places < 16 {
		return 16
	}
	return places
}
