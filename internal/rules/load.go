package rules

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/ginjaninja78/dian-invoice-consolidator/internal/amount"
	"github.com/ginjaninja78/dian-invoice-consolidator/internal/csvparser"
	"github.com/ginjaninja78/dian-invoice-consolidator/internal/xlsxparser"
)

// =============================================================================
// RULE SOURCE FORMAT
// =============================================================================
//
//   {
//     "Granja San Pedro": { "factor": 30, "tipo_objetivo": "Huevo" },
//     "Avícola El Sol":   { "factor": 360, "tipo_objetivo": "Huevo" }
//   }
//
// The same structure may be written as YAML. JSON is read through the YAML
// decoder, which accepts it as a subset.

const (
	fieldFactor     = "factor"
	fieldTargetType = "tipo_objetivo"
)

// Load decodes a rule table from r.
//
// PARAMETERS:
//   - r: The JSON or YAML document.
//   - source: Names the document in error messages (usually the file path).
//   - opts: Matching options.
//
// RETURNS:
//   - The table. An empty or null document yields an empty table.
//   - A *ConfigError when the document is not a mapping of supplier name to
//     {factor, tipo_objetivo}, a field is unknown or has the wrong type, or a
//     factor is not positive.
func Load(r io.Reader, source string, opts ...Option) (*Table, error) {
	var doc yaml.Node
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return NewTable(source, nil, opts...)
		}
		return nil, &ConfigError{Source: source, Reason: "cannot decode document", Err: err}
	}

	root := &doc
	if root.Kind == yaml.DocumentNode {
		if len(root.Content) == 0 {
			return NewTable(source, nil, opts...)
		}
		root = root.Content[0]
	}
	if root.Kind == yaml.ScalarNode && root.Tag == "!!null" {
		return NewTable(source, nil, opts...)
	}
	if root.Kind != yaml.MappingNode {
		return nil, &ConfigError{Source: source, Reason: fmt.Sprintf("line %d: expected a mapping of supplier name to rule", root.Line)}
	}

	entries := make([]Rule, 0, len(root.Content)/2)
	for i := 0; i+1 < len(root.Content); i += 2 {
		rule, err := decodeEntry(source, root.Content[i], root.Content[i+1])
		if err != nil {
			return nil, err
		}
		entries = append(entries, rule)
	}

	return NewTable(source, entries, opts...)
}

// decodeEntry validates one `"supplier": {factor, tipo_objetivo}` pair.
func decodeEntry(source string, key, value *yaml.Node) (Rule, error) {
	if key.Kind != yaml.ScalarNode || key.Tag != "!!str" {
		return Rule{}, &ConfigError{Source: source, Reason: fmt.Sprintf("line %d: supplier name must be a string", key.Line)}
	}
	supplier := key.Value

	if value.Kind != yaml.MappingNode {
		return Rule{}, &ConfigError{Source: source, Supplier: supplier, Reason: fmt.Sprintf("line %d: rule must be an object with %q and %q", value.Line, fieldFactor, fieldTargetType)}
	}

	rule := Rule{Supplier: supplier}
	var haveFactor bool
	for i := 0; i+1 < len(value.Content); i += 2 {
		field, v := value.Content[i], value.Content[i+1]
		switch field.Value {
		case fieldFactor:
			if v.Kind != yaml.ScalarNode || (v.Tag != "!!int" && v.Tag != "!!float") {
				return Rule{}, &ConfigError{Source: source, Supplier: supplier, Reason: fmt.Sprintf("line %d: factor must be a number", v.Line)}
			}
			f, err := decimal.NewFromString(v.Value)
			if err != nil {
				return Rule{}, &ConfigError{Source: source, Supplier: supplier, Reason: fmt.Sprintf("line %d: invalid factor", v.Line), Err: err}
			}
			rule.Factor = f
			haveFactor = true
		case fieldTargetType:
			if v.Kind != yaml.ScalarNode || v.Tag != "!!str" {
				return Rule{}, &ConfigError{Source: source, Supplier: supplier, Reason: fmt.Sprintf("line %d: %s must be a string", v.Line, fieldTargetType)}
			}
			rule.TargetType = v.Value
		default:
			return Rule{}, &ConfigError{Source: source, Supplier: supplier, Reason: fmt.Sprintf("line %d: unknown field %q", field.Line, field.Value)}
		}
	}

	if !haveFactor {
		return Rule{}, &ConfigError{Source: source, Supplier: supplier, Reason: "missing factor"}
	}
	return rule, nil
}

// LoadFile loads a rule table from path. The format is chosen by extension:
// ".xlsx" is read as a rule sheet, ".csv" as a delimited table with a header
// row, anything else as JSON/YAML.
//
// A missing file is not an error: it yields an empty table, meaning no
// supplier is converted. Callers that need to warn about it should check for
// the file themselves.
func LoadFile(path string, opts ...Option) (*Table, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return NewTable(path, nil, opts...)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return loadSheet(path, opts...)
	case ".csv":
		return loadCSV(path, opts...)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, &ConfigError{Source: path, Reason: "cannot open rule file", Err: err}
	}
	defer f.Close()

	return Load(f, path, opts...)
}

func loadSheet(path string, opts ...Option) (*Table, error) {
	rows, err := xlsxparser.Parse(path)
	if err != nil {
		return nil, &ConfigError{Source: path, Reason: "cannot read rule sheet", Err: err}
	}

	entries := make([]Rule, 0, len(rows))
	for _, row := range rows {
		factor, err := parseSheetFactor(row.Factor)
		if err != nil {
			return nil, &ConfigError{Source: path, Supplier: row.Supplier, Reason: fmt.Sprintf("row %d: invalid factor", row.Row), Err: err}
		}
		entries = append(entries, Rule{Supplier: row.Supplier, Factor: factor, TargetType: row.TargetType})
	}

	return NewTable(path, entries, opts...)
}

// loadCSV reads a table whose header names the supplier, factor and target
// type columns. Header matching ignores case; the target column is optional.
// Blank rows are skipped; a row with cells but no supplier is an error.
func loadCSV(path string, opts ...Option) (*Table, error) {
	data, err := csvparser.Parse(path, csvparser.Settings{})
	if err != nil {
		return nil, &ConfigError{Source: path, Reason: "cannot read rule table", Err: err}
	}

	supplierCol := data.FindHeader("proveedor", "supplier")
	factorCol := data.FindHeader(fieldFactor)
	targetCol := data.FindHeader(fieldTargetType, "target_type")
	if supplierCol == "" || factorCol == "" {
		return nil, &ConfigError{Source: path, Reason: fmt.Sprintf("header must name %q and %q columns", "proveedor", fieldFactor)}
	}

	entries := make([]Rule, 0, len(data.Rows))
	for i, row := range data.Rows {
		supplier := row[supplierCol]
		if supplier == "" {
			return nil, &ConfigError{Source: path, Reason: fmt.Sprintf("line %d: empty supplier name", data.RowNumbers[i])}
		}
		factor, err := parseSheetFactor(row[factorCol])
		if err != nil {
			return nil, &ConfigError{Source: path, Supplier: supplier, Reason: fmt.Sprintf("line %d: invalid factor", data.RowNumbers[i]), Err: err}
		}
		rule := Rule{Supplier: supplier, Factor: factor}
		if targetCol != "" {
			rule.TargetType = row[targetCol]
		}
		entries = append(entries, rule)
	}

	return NewTable(path, entries, opts...)
}

func parseSheetFactor(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, errors.New("missing factor")
	}
	return amount.Parse(s)
}
