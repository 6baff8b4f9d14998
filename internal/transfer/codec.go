package transfer

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"renovo/internal/core"
)

var (
	ErrMissingHeader = errors.New("csv header row is missing")
	ErrNotArray      = errors.New("json payload must be an array of objects")
)

// EncodeCSV writes a header and one row per expense.
func EncodeCSV(expenses []core.Expense) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(ExportColumns); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	for _, e := range expenses {
		if err := w.Write(exportRow(e)); err != nil {
			return nil, fmt.Errorf("write csv row for expense %d: %w", e.ID, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeCSV reads a header row followed by data rows. Short rows are padded.
func DecodeCSV(data []byte) ([]Record, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err == io.EOF {
		return nil, ErrMissingHeader
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	for i, h := range header {
		header[i] = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
	}

	var records []Record
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv row %d: %w", len(records)+1, err)
		}
		rec := Record{Row: len(records) + 1, Fields: make(map[string]string, len(header))}
		for i, col := range header {
			if i < len(row) {
				rec.Fields[col] = row[i]
			}
		}
		records = append(records, rec)
	}
	return records, nil
}

// EncodeJSON writes the expenses as an indented JSON array.
func EncodeJSON(expenses []core.Expense) ([]byte, error) {
	if expenses == nil {
		expenses = []core.Expense{}
	}
	out, err := json.MarshalIndent(expenses, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode json export: %w", err)
	}
	return out, nil
}

// DecodeJSON reads an array of objects. Scalars become their text form,
// arrays are joined with TagSeparator and null becomes empty.
func DecodeJSON(data []byte) ([]Record, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var rows []map[string]any
	if err := dec.Decode(&rows); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return nil, ErrNotArray
		}
		return nil, fmt.Errorf("decode json import: %w", err)
	}

	records := make([]Record, 0, len(rows))
	for i, row := range rows {
		rec := Record{Row: i + 1, Fields: make(map[string]string, len(row))}
		for k, v := range row {
			rec.Fields[strings.ToLower(k)] = textOf(v)
		}
		records = append(records, rec)
	}
	return records, nil
}

func textOf(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	case bool:
		if v {
			return "true"
		}
		return "false"
	case []any:
		parts := make([]string, 0, len(v))
		for _, p := range v {
			parts = append(parts, textOf(p))
		}
		return strings.Join(parts, TagSeparator)
	}
	b, _ := json.Marshal(v)
	return string(b)
}
