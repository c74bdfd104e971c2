package core

// csv.go normalizes an uploaded CSV stream into rows.
//
// Decoding goes through golang.org/x/text: the declared charset is resolved
// with the WHATWG label table, a leading BOM overrides it, and invalid byte
// sequences become U+FFFD instead of failing the whole file.

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// DefaultCharset is assumed when the upload declares none.
const DefaultCharset = "utf-8"

// ParsedCSV is the normalized content of one upload.
type ParsedCSV struct {
	Headers []string
	Rows    []Row
}

// ResolveEncoding maps a charset label such as "windows-1251" or "latin1" to
// its decoder. An empty label means UTF-8.
func ResolveEncoding(label string) (encoding.Encoding, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		label = DefaultCharset
	}
	enc, err := htmlindex.Get(label)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedEncoding, label)
	}
	return enc, nil
}

// NewDecodingReader wraps r so it yields UTF-8 text.
func NewDecodingReader(r io.Reader, charset string) (io.Reader, error) {
	enc, err := ResolveEncoding(charset)
	if err != nil {
		return nil, err
	}
	return transform.NewReader(r, unicode.BOMOverride(enc.NewDecoder())), nil
}

// ParseRows reads a header line followed by data lines.
//
// Header names are trimmed and lowercased; blank ones become "_<index>".
// Cell values are trimmed. Short lines lack the trailing keys, and cells past
// the header are keyed "_<index>". Blank lines are skipped.
func ParseRows(r io.Reader, charset string) (*ParsedCSV, error) {
	decoded, err := NewDecodingReader(r, charset)
	if err != nil {
		return nil, err
	}

	reader := csv.NewReader(decoded)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return &ParsedCSV{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: header: %w", ErrParseFailed, err)
	}

	headers := make([]string, len(header))
	for i, h := range header {
		headers[i] = normalizeHeader(h, i)
	}

	parsed := &ParsedCSV{Headers: headers}
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrParseFailed, err)
		}

		row := make(Row, len(record))
		for i, cell := range record {
			key := "_" + strconv.Itoa(i)
			if i < len(headers) {
				key = headers[i]
			}
			row[key] = strings.TrimSpace(cell)
		}
		parsed.Rows = append(parsed.Rows, row)
	}

	return parsed, nil
}

func normalizeHeader(h string, index int) string {
	h = strings.ToLower(strings.TrimSpace(h))
	if h == "" {
		return "_" + strconv.Itoa(index)
	}
	return h
}

// MissingColumns lists required fields that have no matching header.
func MissingColumns(headers []string) []string {
	present := make(map[string]bool, len(headers))
	for _, h := range headers {
		present[h] = true
	}
	var missing []string
	for _, field := range RequiredFields {
		if !present[strings.ToLower(field)] {
			missing = append(missing, field)
		}
	}
	return missing
}
