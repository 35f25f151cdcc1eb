package output

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/alecthomas/chroma/v2/quick"
)

// JSON writes v as indented JSON, syntax highlighted when colour is enabled.
func (p *Printer) JSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding output: %w", err)
	}
	return writeJSON(p.out, string(data), p.useColors)
}

func writeJSON(w io.Writer, src string, highlight bool) error {
	if highlight {
		if err := quick.Highlight(w, src+"\n", "json", "terminal256", "monokai"); err == nil {
			return nil
		}
	}
	_, err := io.WriteString(w, src+"\n")
	return err
}

// Document renders a decoded JSON object as a two column table of its top level keys.
// Nested values are shown as compact JSON.
func (p *Printer) Document(doc map[string]any) error {
	keys := make([]string, 0, len(doc))
	for k := range doc {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	t := NewTable(p.out, []string{"Field", "Value"})
	for _, k := range keys {
		t.AddRow(humanize(k), FormatValue(doc[k]))
	}
	return t.Render()
}

// FormatValue renders a JSON value for a table cell.
func FormatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "-"
	case string:
		return val
	case bool:
		if val {
			return "yes"
		}
		return "no"
	case float64:
		if val == float64(int64(val)) {
			return fmt.Sprintf("%d", int64(val))
		}
		return fmt.Sprintf("%.2f", val)
	default:
		data, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(data)
	}
}

func humanize(key string) string {
	return strings.ReplaceAll(key, "_", " ")
}
