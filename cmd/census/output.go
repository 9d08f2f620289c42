package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"census/internal/models"
)

// writeTable prints a table as indented JSON or as CSV with a header row
func writeTable(w io.Writer, table *models.Table, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(table)
	case "csv":
		cw := csv.NewWriter(w)
		if err := cw.Write(table.Names()); err != nil {
			return err
		}
		record := make([]string, table.NumColumns())
		for i := 0; i < table.NumRows(); i++ {
			for j, v := range table.Row(i) {
				record[j] = formatCell(v)
			}
			if err := cw.Write(record); err != nil {
				return err
			}
		}
		cw.Flush()
		return cw.Error()
	default:
		return fmt.Errorf("unknown format %q: use json or csv", format)
	}
}

func formatCell(v any) string {
	switch x := v.(type) {
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(x, 10)
	case string:
		return x
	default:
		return fmt.Sprint(x)
	}
}
