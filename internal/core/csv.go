package core

// csv.go turns delimited sources into Rows and writes reports back out.
//
// Sources are small enough to read whole. Before parsing, the UTF-8 BOM that
// Windows tools prepend is dropped and invalid UTF-8 is replaced, so a stray
// byte costs one cell rather than the whole file.

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ReadRows reads a header-first delimited source.
// An empty source yields no header and no rows.
func ReadRows(r io.Reader) ([]string, []Row, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, fmt.Errorf("read source: %w", err)
	}

	data = bytes.TrimPrefix(data, utf8BOM)
	data = sanitizeUTF8(data)

	cr := csv.NewReader(bytes.NewReader(data))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	first, err := cr.Read()
	if err == io.EOF {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("invalid csv header: %w", err)
	}

	header := make([]string, len(first))
	for i, h := range first {
		header[i] = CleanHeader(h)
	}

	var rows []Row
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("invalid csv: %w", err)
		}
		if isEmptyRow(record) {
			continue
		}
		line, _ := cr.FieldPos(0)
		rows = append(rows, makeRow(header, record, line))
	}

	return header, rows, nil
}

func makeRow(header, record []string, line int) Row {
	row := Row{
		Line:   line,
		Width:  len(header),
		Fields: make(map[string]string, len(header)),
		Raw:    record,
	}
	for i, cell := range record {
		if i < len(header) {
			row.Fields[header[i]] = cell
			continue
		}
		row.Extra = append(row.Extra, cell)
	}
	return row
}

// CleanHeader removes common spreadsheet artifacts from a header cell:
// surrounding whitespace, an Excel formula wrapper (="...") and quotes.
func CleanHeader(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "=\"") && strings.HasSuffix(s, "\"") {
		s = s[2 : len(s)-1]
	} else if strings.HasPrefix(s, "=") {
		s = s[1:]
	}

	return strings.Trim(s, `"'`)
}

// isEmptyRow reports whether every cell is blank.
func isEmptyRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func sanitizeUTF8(data []byte) []byte {
	if utf8.Valid(data) {
		return data
	}

	var buf bytes.Buffer
	buf.Grow(len(data))

	for len(data) > 0 {
		r, size := utf8.DecodeRune(data)
		if r == utf8.RuneError && size == 1 {
			buf.WriteRune('\uFFFD')
			data = data[1:]
		} else {
			buf.WriteRune(r)
			data = data[size:]
		}
	}

	return buf.Bytes()
}

// writeCSV writes header then records and flushes.
func writeCSV(w io.Writer, header []string, records [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if err := cw.WriteAll(records); err != nil {
		return fmt.Errorf("write rows: %w", err)
	}
	return nil
}

// FormatAverage renders an average the way the reports expect: shortest
// round-trip digits, always with a decimal point ("105.0", "42.5").
// Large values are written out in full; exponent form is never used.
func FormatAverage(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".NI") {
		s += ".0"
	}
	return s
}
