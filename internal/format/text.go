package format

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"todo-cli/internal/model"
)

// WriteText writes a line-oriented rendering for humans. A {"data": ...}
// envelope is unwrapped first.
func WriteText(w io.Writer, v any) error {
	if m, ok := v.(map[string]any); ok {
		if data, ok := m["data"]; ok {
			v = data
		}
	}
	var b strings.Builder
	switch t := v.(type) {
	case []model.Todo:
		if len(t) == 0 {
			b.WriteString("(no todos)\n")
		}
		for _, td := range t {
			b.WriteString(td.String())
			b.WriteByte('\n')
		}
	case model.Todo:
		b.WriteString(t.String())
		b.WriteByte('\n')
	case fmt.Stringer:
		b.WriteString(t.String())
		b.WriteByte('\n')
	case string:
		b.WriteString(t)
		if !strings.HasSuffix(t, "\n") {
			b.WriteByte('\n')
		}
	default:
		x, err := generic(v)
		if err != nil {
			return err
		}
		writePlain(&b, x, "")
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func writePlain(b *strings.Builder, v any, prefix string) {
	switch t := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			switch t[k].(type) {
			case map[string]any, []any:
				fmt.Fprintf(b, "%s%s:\n", prefix, k)
				writePlain(b, t[k], prefix+"  ")
			default:
				fmt.Fprintf(b, "%s%s: %s\n", prefix, k, scalar(t[k]))
			}
		}
	case []any:
		for _, it := range t {
			switch it.(type) {
			case map[string]any, []any:
				fmt.Fprintf(b, "%s-\n", prefix)
				writePlain(b, it, prefix+"  ")
			default:
				fmt.Fprintf(b, "%s- %s\n", prefix, scalar(it))
			}
		}
	default:
		fmt.Fprintf(b, "%s%s\n", prefix, scalar(v))
	}
}

func scalar(v any) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprint(v)
}
