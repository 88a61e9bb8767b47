// Package invoicetest builds synthetic DIAN invoice documents for tests.
package invoicetest

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"
)

const (
	nsInvoice = "urn:oasis:names:specification:ubl:schema:xsd:Invoice-2"
	nsCAC     = "urn:oasis:names:specification:ubl:schema:xsd:CommonAggregateComponents-2"
	nsCBC     = "urn:oasis:names:specification:ubl:schema:xsd:CommonBasicComponents-2"
	nsExt     = "urn:oasis:names:specification:ubl:schema:xsd:CommonExtensionComponents-2"
	nsSts     = "dian:gov:co:facturaelectronica:Structures-2-1"
)

// Line is one line item as text, so tests control the exact spelling of
// numbers ("15000.00" vs "15000,00"). Empty Quantity or Price omits the
// element.
type Line struct {
	Description string
	Quantity    string
	UnitCode    string
	Price       string
}

// Invoice describes a document to build. Empty header fields are omitted
// from the output.
type Invoice struct {
	Number     string
	IssueDate  string
	Supplier   string
	SupplierID string
	Currency   string
	Lines      []Line

	// CACPrefix and CBCPrefix override the "cac"/"cbc" namespace prefixes.
	// "-" declares the namespace as default and writes unprefixed names.
	CACPrefix string
	CBCPrefix string

	// Encoding, when set, is written in the XML declaration and the body is
	// encoded as ISO-8859-1 (only "ISO-8859-1" is supported).
	Encoding string
}

// Bytes renders the invoice as a UBL document.
func (inv Invoice) Bytes() []byte {
	cac, cbc := prefix(inv.CACPrefix, "cac"), prefix(inv.CBCPrefix, "cbc")

	var b strings.Builder
	enc := "UTF-8"
	if inv.Encoding != "" {
		enc = inv.Encoding
	}
	fmt.Fprintf(&b, `<?xml version="1.0" encoding="%s" standalone="no"?>`+"\n", enc)
	fmt.Fprintf(&b, `<Invoice xmlns="%s" %s %s xmlns:ext="%s" xmlns:sts="%s">`+"\n",
		nsInvoice, nsDecl(inv.CACPrefix, "cac", nsCAC), nsDecl(inv.CBCPrefix, "cbc", nsCBC), nsExt, nsSts)

	b.WriteString(`<ext:UBLExtensions><ext:UBLExtension><ext:ExtensionContent><sts:DianExtensions>`)
	b.WriteString(`<sts:InvoiceControl><sts:InvoiceAuthorization>18760000001</sts:InvoiceAuthorization></sts:InvoiceControl>`)
	b.WriteString(`</sts:DianExtensions></ext:ExtensionContent></ext:UBLExtension></ext:UBLExtensions>` + "\n")

	leaf(&b, cbc, "UBLVersionID", "UBL 2.1", "")
	leaf(&b, cbc, "ID", inv.Number, "")
	leaf(&b, cbc, "IssueDate", inv.IssueDate, "")
	leaf(&b, cbc, "DocumentCurrencyCode", inv.Currency, "")

	fmt.Fprintf(&b, "<%sAccountingSupplierParty><%sParty>", cac, cac)
	fmt.Fprintf(&b, "<%sPartyTaxScheme>", cac)
	leaf(&b, cbc, "RegistrationName", inv.Supplier, "")
	leaf(&b, cbc, "CompanyID", inv.SupplierID, ` schemeAgencyID="195" schemeName="31"`)
	fmt.Fprintf(&b, "</%sPartyTaxScheme>", cac)
	fmt.Fprintf(&b, "</%sParty></%sAccountingSupplierParty>\n", cac, cac)

	for i, l := range inv.Lines {
		fmt.Fprintf(&b, "<%sInvoiceLine>", cac)
		leaf(&b, cbc, "ID", fmt.Sprint(i+1), "")
		unit := l.UnitCode
		if unit == "" {
			unit = "94"
		}
		leaf(&b, cbc, "InvoicedQuantity", l.Quantity, fmt.Sprintf(` unitCode="%s"`, unit))
		fmt.Fprintf(&b, "<%sItem>", cac)
		leaf(&b, cbc, "Description", l.Description, "")
		fmt.Fprintf(&b, "</%sItem>", cac)
		if l.Price != "" {
			fmt.Fprintf(&b, "<%sPrice>", cac)
			leaf(&b, cbc, "PriceAmount", l.Price, ` currencyID="COP"`)
			fmt.Fprintf(&b, "</%sPrice>", cac)
		}
		fmt.Fprintf(&b, "</%sInvoiceLine>\n", cac)
	}

	b.WriteString("</Invoice>\n")

	if strings.EqualFold(inv.Encoding, "ISO-8859-1") {
		return latin1(b.String())
	}
	return []byte(b.String())
}

// Attached wraps the invoice in a DIAN AttachedDocument container, with the
// invoice carried as CDATA.
func (inv Invoice) Attached() []byte {
	inner := inv
	inner.Encoding = ""

	var b bytes.Buffer
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	fmt.Fprintf(&b, `<AttachedDocument xmlns="urn:oasis:names:specification:ubl:schema:xsd:AttachedDocument-2" xmlns:cac="%s" xmlns:cbc="%s">`, nsCAC, nsCBC)
	b.WriteString(`<cbc:ID>ATT-1</cbc:ID><cac:SenderParty><cac:PartyTaxScheme><cbc:RegistrationName>Sender</cbc:RegistrationName></cac:PartyTaxScheme></cac:SenderParty>`)
	b.WriteString(`<cac:Attachment><cac:ExternalReference><cbc:MimeCode>text/xml</cbc:MimeCode><cbc:EncodingCode>UTF-8</cbc:EncodingCode><cbc:Description><![CDATA[`)
	b.Write(inner.Bytes())
	b.WriteString(`]]></cbc:Description></cac:ExternalReference></cac:Attachment>`)
	b.WriteString(`</AttachedDocument>`)
	return b.Bytes()
}

func prefix(p, def string) string {
	switch p {
	case "":
		return def + ":"
	case "-":
		return ""
	default:
		return p + ":"
	}
}

func nsDecl(p, def, uri string) string {
	switch p {
	case "":
		return fmt.Sprintf(`xmlns:%s="%s"`, def, uri)
	case "-":
		// Unprefixed elements fall into the document's default namespace.
		return ""
	default:
		return fmt.Sprintf(`xmlns:%s="%s"`, p, uri)
	}
}

func leaf(b *strings.Builder, pfx, name, value, attrs string) {
	if value == "" {
		return
	}
	fmt.Fprintf(b, "<%s%s%s>", pfx, name, attrs)
	xml.EscapeText(b, []byte(value))
	fmt.Fprintf(b, "</%s%s>", pfx, name)
}

func latin1(s string) []byte {
	out := make([]byte, 0, len(s))
	for _, r := range s {
		if r > 0xff {
			r = '?'
		}
		out = append(out, byte(r))
	}
	return out
}
