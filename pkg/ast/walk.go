package ast

// Transform inspects one tagged element during a walk. The element's
// content has already been walked (post-order). Returning ok=true splices
// the replacement sequence in place of the element — an empty replacement
// deletes it. Returning ok=false keeps the element with its walked content.
//
// Replacements are spliced verbatim, never re-visited: a transform that
// emits the node kind it matches on (link conversion emitting a link) does
// not loop.
type Transform func(tag string, content any) (replacement []any, ok bool)

// Walk rewrites a generic JSON tree bottom-up. Tagged elements inside
// slices are offered to fn; plain maps and scalars are traversed
// structurally. The input is not modified; the rewritten tree is returned.
func Walk(v any, fn Transform) any {
	switch node := v.(type) {
	case []any:
		out := make([]any, 0, len(node))
		for _, item := range node {
			tag, content, isElement := Decompose(item)
			if !isElement {
				out = append(out, Walk(item, fn))
				continue
			}
			walkedContent := Walk(content, fn)
			if replacement, replaced := fn(tag, walkedContent); replaced {
				out = append(out, replacement...)
				continue
			}
			out = append(out, Elt(tag, walkedContent))
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(node))
		for key, value := range node {
			out[key] = Walk(value, fn)
		}
		return out
	default:
		return v
	}
}

// WalkBlocks applies fn to the document's block list and stores the result.
func (doc *Doc) WalkBlocks(fn Transform) {
	doc.Blocks = Walk(doc.Blocks, fn).([]any)
}
