// =============================================================================
// DIAN Invoice Consolidator - Invoice Parser
// =============================================================================
//
// This module extracts the header and line items of one DIAN electronic
// invoice (UBL 2.1). It is a pure function over the document bytes.
//
// DOCUMENT SHAPES:
//   - <Invoice>           : the UBL invoice itself.
//   - <AttachedDocument>  : the DIAN container delivered in the ZIP files;
//                           the invoice travels as text (usually CDATA) in
//                           Attachment/ExternalReference/Description and is
//                           unwrapped and parsed.
//   Anything else is rejected as malformed.
//
// FIELDS:
//   | Field          | Location (local names)                         | Required |
//   |----------------|------------------------------------------------|----------|
//   | Invoice number | Invoice/ID                                     | yes      |
//   | Issue date     | Invoice/IssueDate (YYYY-MM-DD)                 | yes      |
//   | Supplier       | AccountingSupplierParty//RegistrationName      | yes      |
//   |                |   (fallback PartyName/Name)                    |          |
//   | Supplier NIT   | AccountingSupplierParty//CompanyID             | no       |
//   | Currency       | Invoice/DocumentCurrencyCode                   | no       |
//   | Lines          | Invoice/InvoiceLine (at least one)             | yes      |
//   |  - quantity    | InvoiceLine/InvoicedQuantity (@unitCode)       | yes      |
//   |  - unit price  | InvoiceLine/Price/PriceAmount                  | yes      |
//   |  - description | InvoiceLine/Item/Description (fallback Name)   | no       |
//
// Numbers go through the amount package, so "15000.00" and "15000,00" are
// the same value. A line with a missing or unparsable number fails the whole
// document; lines are never dropped silently.
//
// =============================================================================

package invoice

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/dian-invoice-consolidator/internal/amount"
)

// =============================================================================
// PARSED TYPES
// =============================================================================

// Header holds the invoice-level fields.
type Header struct {
	// Supplier is the issuer's registration name.
	Supplier string

	// SupplierID is the issuer's NIT. Empty when absent.
	SupplierID string

	// InvoiceNumber is the invoice identifier, including its prefix.
	InvoiceNumber string

	// IssueDate is the issue date (no time of day).
	IssueDate time.Time

	// Currency is the document currency code (e.g. "COP"). Empty when absent.
	Currency string
}

// Line is one billed entry of the invoice, before any conversion.
type Line struct {
	// Number is the line's own ID. Empty when absent.
	Number string

	// Description is the item description; it becomes the line's type.
	Description string

	// UnitCode is the UN/ECE unit code of the quantity (e.g. "94"). May be empty.
	UnitCode string

	Quantity  decimal.Decimal
	UnitPrice decimal.Decimal
}

// =============================================================================
// REQUIRED FIELD SCHEMA
// =============================================================================

// rawInvoice and rawLine hold the extracted text before conversion. The
// required-field rules live in their tags and are checked once, here at the
// parse boundary.
type rawInvoice struct {
	InvoiceNumber string `ubl:"ID" validate:"required"`
	IssueDate     string `ubl:"IssueDate" validate:"required"`
	Supplier      string `ubl:"AccountingSupplierParty/RegistrationName" validate:"required"`
	LineCount     int    `ubl:"InvoiceLine" validate:"min=1"`
}

type rawLine struct {
	Quantity string `ubl:"InvoicedQuantity" validate:"required"`
	Price    string `ubl:"Price/PriceAmount" validate:"required"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return f.Tag.Get("ubl")
	})
	return v
}

// =============================================================================
// PARSE
// =============================================================================

// Parse extracts the header and line items of one invoice document.
//
// RETURNS:
//   - The header and the lines, in document order.
//   - A *MalformedInvoiceError when the bytes are not XML, the document is
//     not an invoice, a required field is missing, or a number or the issue
//     date does not parse.
func Parse(data []byte) (Header, []Line, error) {
	return parse(data, false)
}

func parse(data []byte, embedded bool) (Header, []Line, error) {
	root, err := parseTree(data)
	if err != nil {
		return Header{}, nil, malformed("", "cannot decode XML", err)
	}

	switch root.name {
	case "Invoice":
		return extract(root)

	case "AttachedDocument":
		if embedded {
			return Header{}, nil, malformed("AttachedDocument", "nested attached document", nil)
		}
		inner := root.find("Attachment").path("ExternalReference", "Description").value()
		if inner == "" {
			return Header{}, nil, malformed("AttachedDocument/Attachment/ExternalReference/Description", "no embedded invoice", nil)
		}
		return parse([]byte(stripDeclaration(inner)), true)

	default:
		return Header{}, nil, malformed("", fmt.Sprintf("unsupported document type %q", root.name), nil)
	}
}

// stripDeclaration drops a leading <?xml ...?> declaration. The embedded
// invoice has already been decoded to UTF-8 by the outer document, so its
// declared encoding no longer applies.
func stripDeclaration(s string) string {
	if !strings.HasPrefix(s, "<?xml") {
		return s
	}
	if end := strings.Index(s, "?>"); end >= 0 {
		return s[end+2:]
	}
	return s
}

func extract(root *element) (Header, []Line, error) {
	supplierParty := root.child("AccountingSupplierParty")
	supplier := supplierParty.find("RegistrationName").value()
	if supplier == "" {
		supplier = supplierParty.find("PartyName").child("Name").value()
	}

	lineElements := root.all("InvoiceLine")

	raw := rawInvoice{
		InvoiceNumber: root.child("ID").value(),
		IssueDate:     root.child("IssueDate").value(),
		Supplier:      supplier,
		LineCount:     len(lineElements),
	}
	if err := checkRequired(raw, ""); err != nil {
		return Header{}, nil, err
	}

	issued, err := parseIssueDate(raw.IssueDate)
	if err != nil {
		return Header{}, nil, malformed("IssueDate", fmt.Sprintf("invalid date %q", raw.IssueDate), err)
	}

	header := Header{
		Supplier:      raw.Supplier,
		SupplierID:    supplierParty.find("CompanyID").value(),
		InvoiceNumber: raw.InvoiceNumber,
		IssueDate:     issued,
		Currency:      root.child("DocumentCurrencyCode").value(),
	}

	lines := make([]Line, 0, len(lineElements))
	for i, el := range lineElements {
		line, err := extractLine(el, fmt.Sprintf("InvoiceLine[%d]", i+1))
		if err != nil {
			return Header{}, nil, err
		}
		lines = append(lines, line)
	}

	return header, lines, nil
}

func extractLine(el *element, field string) (Line, error) {
	qty := el.child("InvoicedQuantity")
	raw := rawLine{
		Quantity: qty.value(),
		Price:    el.path("Price", "PriceAmount").value(),
	}
	if err := checkRequired(raw, field); err != nil {
		return Line{}, err
	}

	quantity, err := amount.Parse(raw.Quantity)
	if err != nil {
		return Line{}, malformed(field+"/InvoicedQuantity", "not a number", err)
	}
	price, err := amount.Parse(raw.Price)
	if err != nil {
		return Line{}, malformed(field+"/Price/PriceAmount", "not a number", err)
	}

	return Line{
		Number:      el.child("ID").value(),
		Description: description(el),
		UnitCode:    qty.attr("unitCode"),
		Quantity:    quantity,
		UnitPrice:   price,
	}, nil
}

// description prefers Item/Description, then Item/Name, then any
// Description under the line.
func description(line *element) string {
	item := line.child("Item")
	for _, candidate := range []*element{item.child("Description"), item.child("Name"), line.find("Description")} {
		if v := candidate.value(); v != "" {
			return v
		}
	}
	return ""
}

// checkRequired runs the struct's validation tags and converts failures
// into a MalformedInvoiceError naming every missing field.
func checkRequired(raw interface{}, prefix string) error {
	err := validate.Struct(raw)
	if err == nil {
		return nil
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return malformed(prefix, "cannot validate", err)
	}

	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		name := fe.Field()
		if prefix != "" {
			name = prefix + "/" + name
		}
		fields = append(fields, name)
	}

	reason := "required field missing"
	if len(verrs) == 1 && verrs[0].Tag() == "min" {
		reason = "no invoice lines"
	} else if len(verrs) > 1 {
		reason = "required fields missing"
	}
	return malformed(strings.Join(fields, ", "), reason, nil)
}

// parseIssueDate accepts "2006-01-02", optionally followed by a time part
// or an xsd:date zone ("Z", "-05:00").
func parseIssueDate(s string) (time.Time, error) {
	if len(s) > 10 && strings.IndexByte("T Z+-", s[10]) >= 0 {
		s = s[:10]
	}
	return time.Parse("2006-01-02", s)
}
