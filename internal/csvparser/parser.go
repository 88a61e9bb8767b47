// =============================================================================
// DIAN Invoice Consolidator - CSV Parser Module
// =============================================================================
//
// This module reads small tabular CSV files, such as a supplier conversion
// table exported from a spreadsheet. It handles the variations spreadsheet
// exports produce:
//   - Different delimiters (comma, semicolon, tab, pipe), detected from the
//     header line when not configured
//   - UTF-8 with or without a byte order mark
//   - Windows-1252 / ISO-8859-1 files (Excel "CSV" on Windows)
//   - Quoted fields and rows with missing trailing cells
//
// =============================================================================

package csvparser

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

// =============================================================================
// SETTINGS AND DATA STRUCTURES
// =============================================================================

// Settings controls how a file is read.
type Settings struct {
	// Delimiter is ",", ";", "|" or "tab". Empty detects it from the
	// header line.
	Delimiter string

	// Encoding is "UTF-8", "windows-1252" or "ISO-8859-1". Empty reads UTF-8
	// and falls back to windows-1252 when the file is not valid UTF-8.
	Encoding string
}

// CSVData represents a parsed file.
type CSVData struct {
	// Headers contains the cleaned column headers of the first row.
	Headers []string

	// Rows contains the data rows as maps of header -> trimmed value.
	// Empty rows are skipped.
	Rows []map[string]string

	// RowNumbers holds the 1-based file line of each entry in Rows, for
	// error messages.
	RowNumbers []int

	// SourceFile is the path the data was read from.
	SourceFile string
}

// =============================================================================
// PARSER FUNCTIONS
// =============================================================================

// Parse reads a CSV file.
//
// PARAMETERS:
//   - filePath: The path to the CSV file.
//   - settings: Delimiter and encoding. The zero value detects both.
//
// RETURNS:
//   - The parsed data.
//   - An error if the file cannot be read, decoded or has no header row.
func Parse(filePath string, settings Settings) (*CSVData, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	data, err := ParseReader(file, settings)
	if err != nil {
		return nil, err
	}
	data.SourceFile = filePath
	return data, nil
}

// ParseReader reads CSV data from r.
func ParseReader(r io.Reader, settings Settings) (*CSVData, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}

	text, err := decode(raw, settings.Encoding)
	if err != nil {
		return nil, err
	}

	reader := csv.NewReader(strings.NewReader(text))
	configureReader(reader, settings.Delimiter, firstLine(text))

	headerRow, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("CSV file is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	headers := cleanHeaders(headerRow)
	data := &CSVData{Headers: headers}

	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV: %w", err)
		}
		if isRowEmpty(row) {
			continue
		}
		line, _ := reader.FieldPos(0)

		rowMap := make(map[string]string, len(headers))
		for col, header := range headers {
			if col < len(row) {
				rowMap[header] = strings.TrimSpace(row[col])
			} else {
				rowMap[header] = ""
			}
		}
		data.Rows = append(data.Rows, rowMap)
		data.RowNumbers = append(data.RowNumbers, line)
	}

	return data, nil
}

// decode converts raw bytes to UTF-8 text without a byte order mark.
func decode(raw []byte, enc string) (string, error) {
	raw = bytes.TrimPrefix(raw, []byte("\xef\xbb\xbf"))

	var decoder *encoding.Decoder
	switch strings.ToUpper(strings.TrimSpace(enc)) {
	case "", "AUTO":
		if utf8.Valid(raw) {
			return string(raw), nil
		}
		decoder = charmap.Windows1252.NewDecoder()
	case "UTF-8", "UTF8":
		if !utf8.Valid(raw) {
			return "", fmt.Errorf("CSV file is not valid UTF-8")
		}
		return string(raw), nil
	case "WINDOWS-1252", "CP1252":
		decoder = charmap.Windows1252.NewDecoder()
	case "ISO-8859-1", "LATIN1":
		decoder = charmap.ISO8859_1.NewDecoder()
	default:
		return "", fmt.Errorf("unsupported CSV encoding %q", enc)
	}

	out, err := decoder.Bytes(raw)
	if err != nil {
		return "", fmt.Errorf("failed to decode CSV: %w", err)
	}
	return string(out), nil
}

// configureReader sets the delimiter and relaxes field-count and quote
// checks, which spreadsheet exports routinely violate.
func configureReader(reader *csv.Reader, delimiter, header string) {
	switch delimiter {
	case "\\t", "tab", "TAB":
		reader.Comma = '\t'
	case "|", "pipe", "PIPE":
		reader.Comma = '|'
	case ";", "semicolon":
		reader.Comma = ';'
	case ",", "comma":
		reader.Comma = ','
	case "":
		reader.Comma = detectDelimiter(header)
	default:
		r, _ := utf8.DecodeRuneInString(delimiter)
		reader.Comma = r
	}

	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
}

// detectDelimiter picks the candidate that occurs most often in the header
// line. Ties and headers without any candidate fall back to comma.
func detectDelimiter(header string) rune {
	best, bestCount := ',', strings.Count(header, ",")
	for _, c := range []rune{';', '\t', '|'} {
		if n := strings.Count(header, string(c)); n > bestCount {
			best, bestCount = c, n
		}
	}
	return best
}

func firstLine(text string) string {
	if i := strings.IndexAny(text, "\r\n"); i >= 0 {
		return text[:i]
	}
	return text
}

// cleanHeaders trims headers and names empty ones after their position.
func cleanHeaders(headers []string) []string {
	cleaned := make([]string, len(headers))
	for i, header := range headers {
		header = strings.TrimSpace(header)
		if header == "" {
			header = fmt.Sprintf("Column_%d", i+1)
		}
		cleaned[i] = header
	}
	return cleaned
}

// isRowEmpty checks if a row contains only empty values.
func isRowEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// FindHeader returns the first header equal to one of names, ignoring case
// and surrounding spaces, or "" when none matches.
func (d *CSVData) FindHeader(names ...string) string {
	for _, name := range names {
		for _, h := range d.Headers {
			if strings.EqualFold(strings.TrimSpace(h), strings.TrimSpace(name)) {
				return h
			}
		}
	}
	return ""
}
