// Package ast provides the document AST boundary: a tagged-union view over
// a pandoc-style JSON document tree, a generic splice-walk for rewrite
// passes, and typed accessors for the node kinds the citation engine cares
// about (paragraphs, code blocks, citations, links, text runs, metadata).
//
// The tree is externally owned. The engine receives it already parsed,
// mutates matched subtrees by replacement, and hands it back; node kinds it
// does not recognize round-trip untouched.
package ast

import (
	"encoding/json"
	"fmt"
)

// Node tags handled by the engine. Every other tag passes through unchanged.
const (
	TagPara        = "Para"
	TagPlain       = "Plain"
	TagCodeBlock   = "CodeBlock"
	TagCite        = "Cite"
	TagLink        = "Link"
	TagStr         = "Str"
	TagSpace       = "Space"
	TagSoftBreak   = "SoftBreak"
	TagSuperscript = "Superscript"
)

// Doc is a decoded pandoc-style JSON document: version triple, metadata
// mapping, and top-level block list. Blocks and Meta hold generically
// decoded JSON (map[string]any / []any / string / float64 / bool / nil).
type Doc struct {
	APIVersion json.RawMessage `json:"pandoc-api-version"`
	Meta       map[string]any  `json:"meta"`
	Blocks     []any           `json:"blocks"`
}

// DecodeDoc parses a JSON document as produced by the host pipeline.
func DecodeDoc(data []byte) (*Doc, error) {
	var doc Doc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode document JSON: %w", err)
	}
	if doc.Meta == nil {
		doc.Meta = make(map[string]any)
	}
	if doc.Blocks == nil {
		doc.Blocks = []any{}
	}
	return &doc, nil
}

// Encode serializes the document back to JSON for the host pipeline.
// Output is compact (single line), matching the filter convention.
func (doc *Doc) Encode() ([]byte, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to encode document JSON: %w", err)
	}
	return data, nil
}

// Elt builds a tagged element. A nil content produces a content-free
// element (e.g. Space, SoftBreak).
func Elt(tag string, content any) map[string]any {
	if content == nil {
		return map[string]any{"t": tag}
	}
	return map[string]any{"t": tag, "c": content}
}

// Decompose splits a value into element tag and content. Returns ok=false
// for anything that is not a tagged element map.
func Decompose(v any) (tag string, content any, ok bool) {
	element, isMap := v.(map[string]any)
	if !isMap {
		return "", nil, false
	}
	tag, hasTag := element["t"].(string)
	if !hasTag {
		return "", nil, false
	}
	return tag, element["c"], true
}

// Tag returns the element tag of v, or "" if v is not a tagged element.
func Tag(v any) string {
	tag, _, _ := Decompose(v)
	return tag
}
