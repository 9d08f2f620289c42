package census

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"census/internal/models"
)

// DecodeTable parses the API's JSON array-of-arrays body. Row 0 is the header,
// every following row must have exactly as many cells. JSON null cells become
// empty strings and numbers keep their literal text.
func DecodeTable(body []byte) (*models.Table, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var raw [][]any
	if err := dec.Decode(&raw); err != nil {
		return nil, malformed("decode body: %v (%s)", err, snippet(body))
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, malformed("trailing data after JSON array")
	}
	if len(raw) == 0 {
		return nil, malformed("missing header row")
	}

	header := make([]string, len(raw[0]))
	for j, cell := range raw[0] {
		name, ok := cell.(string)
		if !ok || name == "" {
			return nil, malformed("header cell %d is not a column name", j)
		}
		header[j] = name
	}

	rows := raw[1:]
	cells := make([][]string, len(header))
	for j := range cells {
		cells[j] = make([]string, len(rows))
	}
	for i, row := range rows {
		if len(row) != len(header) {
			return nil, malformed("row %d has %d cells, header has %d", i+1, len(row), len(header))
		}
		for j, cell := range row {
			s, err := cellString(cell)
			if err != nil {
				return nil, malformed("row %d column %q: %v", i+1, header[j], err)
			}
			cells[j][i] = s
		}
	}

	table := models.NewTable(len(rows))
	for j, name := range header {
		if err := table.AddColumn(models.NewStringColumn(name, cells[j])); err != nil {
			return nil, malformed("%v", err)
		}
	}
	return table, nil
}

func cellString(cell any) (string, error) {
	switch v := cell.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case json.Number:
		return v.String(), nil
	case bool:
		return fmt.Sprint(v), nil
	default:
		return "", fmt.Errorf("unexpected cell type %T", cell)
	}
}

func snippet(body []byte) string {
	const limit = 120
	if len(body) > limit {
		return string(body[:limit]) + "..."
	}
	return string(body)
}
