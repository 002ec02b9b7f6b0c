package esm

import (
	"bytes"
	"encoding/csv"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"gopkg.in/yaml.v3"
)

// Format selects the text rendering of a Collection.
type Format int

const (
	// FormatTable draws a bordered text table.
	FormatTable Format = iota
	// FormatCSV writes a header line followed by one line per record.
	FormatCSV
	// FormatYAML writes a YAML sequence of mappings.
	FormatYAML
)

// Placeholder is printed in table cells for fields a record lacks.
const Placeholder = "-"

// NestedColumn heads the single column used when a collection holds nested
// collections but no record fields.
const NestedColumn = "items"

// TextOptions controls Text.
type TextOptions struct {
	Format Format
	// Fields selects and orders columns. Empty means the sorted union of
	// all record keys.
	Fields []string
	// MaxColumnWidth truncates table cells; zero disables truncation.
	MaxColumnWidth int
}

// Text renders the collection. Fields missing from a record render as
// Placeholder in tables and as empty cells in CSV. Nested collections render
// recursively with the same options.
func (c *Collection) Text(opts TextOptions) (string, error) {
	fields := opts.Fields
	if len(fields) == 0 {
		fields = c.Keys()
	}
	if len(fields) == 0 && c.hasNested() {
		fields = []string{NestedColumn}
	}

	switch opts.Format {
	case FormatCSV:
		return c.csvText(fields, opts)
	case FormatYAML:
		return c.yamlText(fields)
	case FormatTable:
		return c.tableText(fields, opts)
	default:
		return "", configErr("format", "unknown format %d", opts.Format)
	}
}

func (c *Collection) tableText(fields []string, opts TextOptions) (string, error) {
	rows := make([][]string, 0, c.Len())
	for _, item := range c.items {
		if nested, ok := item.(*Collection); ok {
			text, err := nested.Text(TextOptions{Format: FormatTable, MaxColumnWidth: opts.MaxColumnWidth})
			if err != nil {
				return "", err
			}
			row := make([]string, len(fields))
			if len(row) > 0 {
				row[0] = text
			}
			rows = append(rows, row)
			continue
		}

		r := item.(*Record)
		row := make([]string, len(fields))
		for i, f := range fields {
			cell, err := cellText(r, f, Placeholder, opts)
			if err != nil {
				return "", err
			}
			row[i] = truncate(cell, opts.MaxColumnWidth)
		}
		rows = append(rows, row)
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(fields...).
		Rows(rows...)
	return t.String(), nil
}

func (c *Collection) csvText(fields []string, opts TextOptions) (string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(fields); err != nil {
		return "", err
	}
	for _, item := range c.items {
		row := make([]string, len(fields))
		if nested, ok := item.(*Collection); ok {
			text, err := nested.Text(TextOptions{Format: FormatCSV, MaxColumnWidth: opts.MaxColumnWidth})
			if err != nil {
				return "", err
			}
			row[0] = strings.TrimSuffix(text, "\n")
			if err := w.Write(row); err != nil {
				return "", err
			}
			continue
		}

		r := item.(*Record)
		for i, f := range fields {
			cell, err := cellText(r, f, "", TextOptions{Format: FormatCSV, MaxColumnWidth: opts.MaxColumnWidth})
			if err != nil {
				return "", err
			}
			row[i] = cell
		}
		if err := w.Write(row); err != nil {
			return "", err
		}
	}
	w.Flush()
	return buf.String(), w.Error()
}

func (c *Collection) yamlText(fields []string) (string, error) {
	out := make([]any, 0, c.Len())
	for _, item := range c.items {
		if nested, ok := item.(*Collection); ok {
			out = append(out, yamlValue(plainValue(nested)))
			continue
		}

		r := item.(*Record)
		m := make(map[string]any, len(fields))
		for _, f := range fields {
			if v, ok := r.Get(f); ok {
				m[f] = yamlValue(plainValue(v))
			}
		}
		out = append(out, m)
	}
	data, err := yaml.Marshal(out)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// yamlValue converts json.Number leaves to strings yaml.v3 prints plainly.
func yamlValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, inner := range t {
			out[k] = yamlValue(inner)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, inner := range t {
			out[i] = yamlValue(inner)
		}
		return out
	case interface{ String() string }:
		return t.String()
	default:
		return v
	}
}

func cellText(r *Record, field, placeholder string, opts TextOptions) (string, error) {
	v, ok := r.Get(field)
	if !ok {
		return placeholder, nil
	}
	if nested, ok := v.(*Collection); ok {
		return nested.Text(TextOptions{Format: opts.Format, MaxColumnWidth: opts.MaxColumnWidth})
	}
	return formatValue(v), nil
}

func truncate(s string, width int) string {
	if width <= 0 {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		runes := []rune(line)
		if len(runes) > width {
			if width == 1 {
				lines[i] = "…"
				continue
			}
			lines[i] = string(runes[:width-1]) + "…"
		}
	}
	return strings.Join(lines, "\n")
}

func (c *Collection) hasNested() bool {
	for _, item := range c.items {
		if _, ok := item.(*Collection); ok {
			return true
		}
	}
	return false
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
