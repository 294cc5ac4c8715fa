package transform

import (
	"fmt"
	"strings"
)

// citationKeySafe reports whether b is valid inside a citation key.
// Citation-key grammars accept alphanumerics and most URL punctuation, but
// not characters like '=', ',', ';' or parentheses.
func citationKeySafe(b byte) bool {
	switch {
	case b >= 'a' && b <= 'z', b >= 'A' && b <= 'Z', b >= '0' && b <= '9':
		return true
	}
	return strings.IndexByte("_.:#$%&+?<>~/-", b) >= 0
}

// EscapeURL derives a citation key from a URL. With escaping enabled,
// bytes outside the citation-key-safe set are percent-encoded; with it
// disabled, the URL is used verbatim.
func EscapeURL(url string, escape bool) string {
	if !escape {
		return url
	}
	var builder strings.Builder
	builder.Grow(len(url))
	for i := 0; i < len(url); i++ {
		if citationKeySafe(url[i]) {
			builder.WriteByte(url[i])
			continue
		}
		builder.WriteString(fmt.Sprintf("%%%02X", url[i]))
	}
	return builder.String()
}

// IsURL reports whether a citation id or link target is itself a URL.
// Relative and internal targets are not URLs and are never converted.
func IsURL(target string) bool {
	return strings.HasPrefix(target, "http://") || strings.HasPrefix(target, "https://")
}
