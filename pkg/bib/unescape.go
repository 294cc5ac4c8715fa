package bib

import "strings"

// UnescapeText undoes backslash-escaping artifacts introduced by the
// upstream formatter: every backslash not followed by another backslash is
// dropped. This is a best-effort heuristic — a doubled escape sequence
// loses its trailing backslash ("\\\\" becomes "\\"), matching the
// upstream behavior rather than fixing it.
func UnescapeText(text string) string {
	if !strings.ContainsRune(text, '\\') {
		return text
	}
	var builder strings.Builder
	builder.Grow(len(text))
	for i := 0; i < len(text); i++ {
		if text[i] == '\\' && (i+1 >= len(text) || text[i+1] != '\\') {
			continue
		}
		builder.WriteByte(text[i])
	}
	return builder.String()
}

// UnescapeRecord applies UnescapeText to every string field of the record,
// recursing through nested maps and lists. Returns a new record; the input
// is not modified.
func UnescapeRecord(record Record) Record {
	cleaned, _ := unescapeValue(map[string]any(record)).(map[string]any)
	return Record(cleaned)
}

func unescapeValue(v any) any {
	switch value := v.(type) {
	case string:
		return UnescapeText(value)
	case map[string]any:
		out := make(map[string]any, len(value))
		for key, item := range value {
			out[key] = unescapeValue(item)
		}
		return out
	case []any:
		out := make([]any, len(value))
		for i, item := range value {
			out[i] = unescapeValue(item)
		}
		return out
	default:
		return v
	}
}
