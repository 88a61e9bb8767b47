// =============================================================================
// DIAN Invoice Consolidator - Shared Types
// =============================================================================
//
// This package contains shared types used across multiple modules to avoid
// import cycles. Types defined here are used by:
//   - normalizer (produces Records)
//   - batch      (accumulates Records and Failures)
//   - report     (renders Records and Failures)
//
// =============================================================================

package types

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// REPORT RECORD
// =============================================================================

// Record is one invoice line item after conversion. It is the unit emitted
// to the consolidated report: one Record per line item, one row per Record.
type Record struct {
	// Supplier is the invoice issuer's registration name, as it appears in
	// the document.
	Supplier string

	// SupplierID is the issuer's tax identifier (NIT). May be empty.
	SupplierID string

	// Day is the day of month of the issue date ("1".."31").
	Day string

	// IssueDate is the full issue date of the invoice.
	IssueDate time.Time

	// InvoiceNumber is the invoice identifier (e.g. "SETP990000002").
	InvoiceNumber string

	// Type is the product type after conversion. When no conversion rule
	// applies this is the line's own description.
	Type string

	// Quantity is the converted quantity.
	Quantity decimal.Decimal

	// UnitPrice is the converted price per converted unit.
	UnitPrice decimal.Decimal

	// Converted is true when a supplier conversion rule was applied.
	Converted bool

	// Source identifies the document the record came from.
	Source string
}

// Total returns Quantity * UnitPrice, the monetary value of the line.
func (r Record) Total() decimal.Decimal {
	return r.Quantity.Mul(r.UnitPrice)
}

// =============================================================================
// DOCUMENT FAILURE
// =============================================================================

// Failure records a document that could not be turned into Records.
type Failure struct {
	// DocumentID identifies the failed document (file or archive entry).
	DocumentID string

	// Err is the reason the document was skipped.
	Err error
}

// Error implements the error interface.
func (f Failure) Error() string {
	return fmt.Sprintf("%s: %v", f.DocumentID, f.Err)
}

// Unwrap returns the underlying reason.
func (f Failure) Unwrap() error {
	return f.Err
}
