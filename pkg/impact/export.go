package impact

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/beetlebugorg/reefimpact/internal/geom"
)

// ExportCSV writes the named fields of every feature in src to a delimited
// text file: a header row of field names, then one row per feature in
// feature order. An existing file is overwritten. Returns the number of
// data rows written.
func ExportCSV(src geom.Source, fields []string, path string, delim rune) (int, error) {
	if len(fields) == 0 {
		return 0, &geom.ErrInvalidParameter{Name: "fields", Reason: "at least one field is required"}
	}
	if err := geom.RequireFields(src, fields...); err != nil {
		return 0, err
	}

	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	w.Comma = delim
	if err := w.Write(fields); err != nil {
		return 0, fmt.Errorf("write header: %w", err)
	}

	record := make([]string, len(fields))
	rows := src.Rows()
	for _, feature := range rows {
		for i, name := range fields {
			record[i] = formatValue(feature.Attributes[name])
		}
		if err := w.Write(record); err != nil {
			return 0, fmt.Errorf("write row %d: %w", feature.ID, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return 0, fmt.Errorf("flush %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return 0, fmt.Errorf("close %s: %w", path, err)
	}
	return len(rows), nil
}

// formatValue renders an attribute value as a CSV cell. Nulls are empty.
func formatValue(v interface{}) string {
	switch n := v.(type) {
	case nil:
		return ""
	case string:
		return n
	case float64:
		return strconv.FormatFloat(n, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(n), 'f', -1, 32)
	case int64:
		return strconv.FormatInt(n, 10)
	case int:
		return strconv.Itoa(n)
	case bool:
		return strconv.FormatBool(n)
	default:
		return fmt.Sprint(n)
	}
}
