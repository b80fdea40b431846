package snapshot

import (
	"encoding/csv"
	"fmt"
	"io/fs"
	"strings"
)

// table is one parsed pipe-delimited CSV file with header-name column
// access, tolerating added, reordered, and trailing empty columns.
type table struct {
	cols map[string]int
	rows [][]string
}

func readTable(fsys fs.FS, name string) (*table, error) {
	f, err := fsys.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close() //nolint:errcheck // read-only file

	r := csv.NewReader(f)
	r.Comma = '|'
	// Card text contains unescaped quotes (e.g. 6" range), allow them.
	r.LazyQuotes = true
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %s", ErrBadSnapshot, name, err)
	}
	t := &table{cols: make(map[string]int)}
	if len(records) == 0 {
		return t, nil
	}
	for i, h := range records[0] {
		h = strings.TrimPrefix(h, "\ufeff") // exports may carry a BOM
		h = strings.ToLower(strings.TrimSpace(h))
		if h != "" {
			t.cols[h] = i
		}
	}
	t.rows = records[1:]
	return t, nil
}

// get returns the named column of row, empty when the column is absent.
func (t *table) get(row []string, col string) string {
	i, ok := t.cols[col]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// pairs reads a two-column table into a map, keyCol -> valCol. Rows with an
// empty key or value are dropped.
func (t *table) pairs(keyCol, valCol string) map[string]string {
	out := make(map[string]string, len(t.rows))
	for _, row := range t.rows {
		k, v := t.get(row, keyCol), t.get(row, valCol)
		if k == "" || v == "" {
			continue
		}
		out[k] = v
	}
	return out
}
