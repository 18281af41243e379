// Package tabular decodes the row-shaped inputs of the styling engine: the
// layer configuration table and icon lookup tables.
package tabular

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"path"
	"strings"

	"gopkg.in/yaml.v3"
)

// Row maps column name to cell text. Blank cells are absent.
type Row map[string]string

// Has reports whether the row carries a non-blank value for key.
func (r Row) Has(key string) bool {
	_, ok := r[key]
	return ok
}

// Table is an ordered set of rows sharing a header.
type Table struct {
	Columns []string
	Rows    []Row
}

// Len returns the number of rows; a nil table is empty.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// RemoveBlanks trims every cell and drops the ones left empty.
func RemoveBlanks(r Row) Row {
	out := make(Row, len(r))
	for k, v := range r {
		k = strings.TrimSpace(k)
		v = strings.TrimSpace(v)
		if k == "" || v == "" {
			continue
		}
		out[k] = v
	}
	return out
}

// ParseCSV reads a header row followed by data rows.
func ParseCSV(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return &Table{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading csv header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	t := &Table{}
	for _, h := range header {
		h = strings.TrimSpace(h)
		if h != "" {
			t.Columns = append(t.Columns, h)
		}
	}

	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading csv row %d: %w", len(t.Rows)+1, err)
		}
		row := make(Row, len(header))
		for i, cell := range rec {
			if i >= len(header) {
				break
			}
			row[header[i]] = cell
		}
		row = RemoveBlanks(row)
		if len(row) == 0 {
			continue
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

// ParseYAML reads a sequence of flat mappings. Column order follows the
// first appearance of each key.
func ParseYAML(data []byte) (*Table, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing yaml: %w", err)
	}
	t := &Table{}
	if len(doc.Content) == 0 {
		return t, nil
	}
	seq := doc.Content[0]
	if seq.Kind != yaml.SequenceNode {
		return nil, fmt.Errorf("yaml table: expected a list of rows at line %d", seq.Line)
	}

	seen := map[string]bool{}
	for _, item := range seq.Content {
		if item.Kind != yaml.MappingNode {
			return nil, fmt.Errorf("yaml table: row at line %d is not a mapping", item.Line)
		}
		row := make(Row, len(item.Content)/2)
		for i := 0; i+1 < len(item.Content); i += 2 {
			key, val := item.Content[i], item.Content[i+1]
			if val.Kind != yaml.ScalarNode {
				return nil, fmt.Errorf("yaml table: %q at line %d is not a scalar", key.Value, val.Line)
			}
			row[key.Value] = val.Value
			if name := strings.TrimSpace(key.Value); name != "" && !seen[name] {
				seen[name] = true
				t.Columns = append(t.Columns, name)
			}
		}
		row = RemoveBlanks(row)
		if len(row) == 0 {
			continue
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

// Decode picks the parser from the resource name's extension. Anything that
// is not YAML is read as CSV.
func Decode(name string, data []byte) (*Table, error) {
	if i := strings.IndexAny(name, "?#"); i >= 0 {
		name = name[:i]
	}
	switch strings.ToLower(path.Ext(name)) {
	case ".yaml", ".yml":
		return ParseYAML(data)
	default:
		return ParseCSV(bytes.NewReader(data))
	}
}
