package ast

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Metadata value tags.
const (
	TagMetaMap     = "MetaMap"
	TagMetaList    = "MetaList"
	TagMetaBool    = "MetaBool"
	TagMetaString  = "MetaString"
	TagMetaInlines = "MetaInlines"
	TagMetaBlocks  = "MetaBlocks"
)

// Stringify flattens a metadata value or inline sequence to plain text.
// Str content is concatenated; Space and SoftBreak become single spaces;
// everything else contributes only its children.
func Stringify(v any) string {
	var builder strings.Builder
	stringifyInto(v, &builder)
	return builder.String()
}

func stringifyInto(v any, builder *strings.Builder) {
	switch node := v.(type) {
	case string:
		builder.WriteString(node)
	case []any:
		for _, item := range node {
			stringifyInto(item, builder)
		}
	case map[string]any:
		tag, content, isElement := Decompose(node)
		if !isElement {
			return
		}
		switch tag {
		case TagStr, TagMetaString:
			stringifyInto(content, builder)
		case TagSpace, TagSoftBreak:
			builder.WriteByte(' ')
		default:
			stringifyInto(content, builder)
		}
	}
}

// MetaString reads a metadata key as text. MetaString, MetaInlines and
// MetaBool values are all accepted; absent or other-typed keys report
// ok=false.
func MetaString(meta map[string]any, key string) (string, bool) {
	value, exists := meta[key]
	if !exists {
		return "", false
	}
	tag, content, isElement := Decompose(value)
	if !isElement {
		return "", false
	}
	switch tag {
	case TagMetaString:
		text, ok := content.(string)
		return text, ok
	case TagMetaInlines:
		return Stringify(content), true
	case TagMetaBool:
		boolValue, ok := content.(bool)
		if !ok {
			return "", false
		}
		return strconv.FormatBool(boolValue), true
	default:
		return "", false
	}
}

// MetaBool reads a metadata key as a boolean. MetaBool values are read
// directly; textual "true"/"false" from MetaString/MetaInlines also count.
func MetaBool(meta map[string]any, key string) (bool, bool) {
	value, exists := meta[key]
	if !exists {
		return false, false
	}
	if tag, content, isElement := Decompose(value); isElement && tag == TagMetaBool {
		boolValue, ok := content.(bool)
		return boolValue, ok
	}
	text, ok := MetaString(meta, key)
	if !ok {
		return false, false
	}
	parsed, err := strconv.ParseBool(strings.TrimSpace(text))
	if err != nil {
		return false, false
	}
	return parsed, true
}

// MetaFromValue wraps a plain JSON value in tagged metadata form so it can
// be stored in document metadata. Map keys are wrapped in sorted order for
// deterministic output.
func MetaFromValue(v any) any {
	switch value := v.(type) {
	case nil:
		return Elt(TagMetaString, "")
	case string:
		return Elt(TagMetaString, value)
	case bool:
		return Elt(TagMetaBool, value)
	case float64:
		return Elt(TagMetaString, strconv.FormatFloat(value, 'f', -1, 64))
	case []any:
		items := make([]any, len(value))
		for i, item := range value {
			items[i] = MetaFromValue(item)
		}
		return Elt(TagMetaList, items)
	case map[string]any:
		wrapped := make(map[string]any, len(value))
		keys := make([]string, 0, len(value))
		for key := range value {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			wrapped[key] = MetaFromValue(value[key])
		}
		return Elt(TagMetaMap, wrapped)
	default:
		return Elt(TagMetaString, fmt.Sprintf("%v", value))
	}
}

// MetaListItems returns the items of a MetaList metadata key, or nil if the
// key is absent or not a list.
func MetaListItems(meta map[string]any, key string) []any {
	value, exists := meta[key]
	if !exists {
		return nil
	}
	tag, content, isElement := Decompose(value)
	if !isElement || tag != TagMetaList {
		return nil
	}
	items, _ := content.([]any)
	return items
}
