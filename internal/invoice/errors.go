package invoice

import "strings"

// MalformedInvoiceError reports a document that cannot be turned into an
// invoice: broken bytes, an unexpected document shape, a missing required
// field or a number that does not parse. It is recovered per document by
// the batch processor.
type MalformedInvoiceError struct {
	// Field is the element path the problem was found at, if any
	// (e.g. "InvoiceLine[2]/InvoicedQuantity").
	Field string

	// Reason is a human-readable description of the problem.
	Reason string

	// Err is the underlying decode error, if any.
	Err error
}

// Error implements the error interface.
func (e *MalformedInvoiceError) Error() string {
	parts := []string{"malformed invoice"}
	if e.Field != "" {
		parts = append(parts, e.Field)
	}
	if e.Reason != "" {
		parts = append(parts, e.Reason)
	}
	if e.Err != nil {
		parts = append(parts, e.Err.Error())
	}
	return strings.Join(parts, ": ")
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *MalformedInvoiceError) Unwrap() error {
	return e.Err
}

func malformed(field, reason string, err error) *MalformedInvoiceError {
	return &MalformedInvoiceError{Field: field, Reason: reason, Err: err}
}
