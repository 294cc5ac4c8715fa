package ast

// Attr is the pandoc attribute triple: identifier, class list, key-value
// pairs. Wire form: [id, [classes...], [[key, value]...]].
type Attr struct {
	ID      string
	Classes []string
	KeyVals [][2]string
}

// ParseAttr decodes a wire-form attribute triple.
func ParseAttr(v any) (Attr, bool) {
	parts, isList := v.([]any)
	if !isList || len(parts) != 3 {
		return Attr{}, false
	}
	id, idOK := parts[0].(string)
	rawClasses, classesOK := parts[1].([]any)
	rawKeyVals, keyValsOK := parts[2].([]any)
	if !idOK || !classesOK || !keyValsOK {
		return Attr{}, false
	}

	attr := Attr{ID: id}
	for _, rawClass := range rawClasses {
		class, ok := rawClass.(string)
		if !ok {
			return Attr{}, false
		}
		attr.Classes = append(attr.Classes, class)
	}
	for _, rawPair := range rawKeyVals {
		pair, ok := rawPair.([]any)
		if !ok || len(pair) != 2 {
			return Attr{}, false
		}
		key, keyOK := pair[0].(string)
		value, valueOK := pair[1].(string)
		if !keyOK || !valueOK {
			return Attr{}, false
		}
		attr.KeyVals = append(attr.KeyVals, [2]string{key, value})
	}
	return attr, true
}

// Value re-encodes the attribute into wire form.
func (attr Attr) Value() []any {
	classes := make([]any, len(attr.Classes))
	for i, class := range attr.Classes {
		classes[i] = class
	}
	keyVals := make([]any, len(attr.KeyVals))
	for i, pair := range attr.KeyVals {
		keyVals[i] = []any{pair[0], pair[1]}
	}
	return []any{attr.ID, classes, keyVals}
}

// HasClass reports whether the attribute carries the given class token.
func (attr Attr) HasClass(name string) bool {
	for _, class := range attr.Classes {
		if class == name {
			return true
		}
	}
	return false
}

// Get looks up a key-value attribute entry.
func (attr Attr) Get(key string) (string, bool) {
	for _, pair := range attr.KeyVals {
		if pair[0] == key {
			return pair[1], true
		}
	}
	return "", false
}

// Set adds or replaces a key-value attribute entry.
func (attr *Attr) Set(key, value string) {
	for i, pair := range attr.KeyVals {
		if pair[0] == key {
			attr.KeyVals[i][1] = value
			return
		}
	}
	attr.KeyVals = append(attr.KeyVals, [2]string{key, value})
}

// Citation is one reference inside a Cite element.
// Wire form: {citationId, citationPrefix, citationSuffix, citationMode,
// citationNoteNum, citationHash}.
type Citation struct {
	ID      string
	Prefix  []any
	Suffix  []any
	Mode    string
	NoteNum int
	Hash    int
}

// NormalCitation is the default citation mode tag.
const NormalCitation = "NormalCitation"

// NewCitation builds a bare citation with empty prefix/suffix and normal mode.
func NewCitation(id string) Citation {
	return Citation{ID: id, Mode: NormalCitation}
}

// ParseCitation decodes a single wire-form citation map.
func ParseCitation(v any) (Citation, bool) {
	raw, isMap := v.(map[string]any)
	if !isMap {
		return Citation{}, false
	}
	id, idOK := raw["citationId"].(string)
	if !idOK {
		return Citation{}, false
	}
	citation := Citation{ID: id, Mode: NormalCitation}
	if prefix, ok := raw["citationPrefix"].([]any); ok {
		citation.Prefix = prefix
	}
	if suffix, ok := raw["citationSuffix"].([]any); ok {
		citation.Suffix = suffix
	}
	if mode, ok := raw["citationMode"]; ok {
		if tag, _, isElement := Decompose(mode); isElement {
			citation.Mode = tag
		}
	}
	if noteNum, ok := raw["citationNoteNum"].(float64); ok {
		citation.NoteNum = int(noteNum)
	}
	if hash, ok := raw["citationHash"].(float64); ok {
		citation.Hash = int(hash)
	}
	return citation, true
}

// Value re-encodes the citation into wire form.
func (citation Citation) Value() map[string]any {
	prefix := citation.Prefix
	if prefix == nil {
		prefix = []any{}
	}
	suffix := citation.Suffix
	if suffix == nil {
		suffix = []any{}
	}
	return map[string]any{
		"citationId":      citation.ID,
		"citationPrefix":  prefix,
		"citationSuffix":  suffix,
		"citationMode":    Elt(citation.Mode, nil),
		"citationNoteNum": float64(citation.NoteNum),
		"citationHash":    float64(citation.Hash),
	}
}

// ParseCite decodes Cite element content: [[citations...], [inlines...]].
func ParseCite(content any) (citations []Citation, inlines []any, ok bool) {
	parts, isList := content.([]any)
	if !isList || len(parts) != 2 {
		return nil, nil, false
	}
	rawCitations, citationsOK := parts[0].([]any)
	innerInlines, inlinesOK := parts[1].([]any)
	if !citationsOK || !inlinesOK {
		return nil, nil, false
	}
	for _, rawCitation := range rawCitations {
		citation, parsed := ParseCitation(rawCitation)
		if !parsed {
			return nil, nil, false
		}
		citations = append(citations, citation)
	}
	return citations, innerInlines, true
}

// MakeCite builds a Cite element from citations and visible inlines.
func MakeCite(citations []Citation, inlines []any) map[string]any {
	rawCitations := make([]any, len(citations))
	for i, citation := range citations {
		rawCitations[i] = citation.Value()
	}
	if inlines == nil {
		inlines = []any{}
	}
	return Elt(TagCite, []any{rawCitations, inlines})
}

// Link is a decoded Link element.
// Wire form: [attr, [inlines...], [target, title]].
type Link struct {
	Attr    Attr
	Inlines []any
	Target  string
	Title   string
}

// ParseLink decodes Link element content.
func ParseLink(content any) (Link, bool) {
	parts, isList := content.([]any)
	if !isList || len(parts) != 3 {
		return Link{}, false
	}
	attr, attrOK := ParseAttr(parts[0])
	inlines, inlinesOK := parts[1].([]any)
	targetParts, targetOK := parts[2].([]any)
	if !attrOK || !inlinesOK || !targetOK || len(targetParts) != 2 {
		return Link{}, false
	}
	target, urlOK := targetParts[0].(string)
	title, titleOK := targetParts[1].(string)
	if !urlOK || !titleOK {
		return Link{}, false
	}
	return Link{Attr: attr, Inlines: inlines, Target: target, Title: title}, true
}

// Elt re-encodes the link into a Link element.
func (link Link) Elt() map[string]any {
	inlines := link.Inlines
	if inlines == nil {
		inlines = []any{}
	}
	return Elt(TagLink, []any{link.Attr.Value(), inlines, []any{link.Target, link.Title}})
}

// ParseCodeBlock decodes CodeBlock element content: [attr, text].
func ParseCodeBlock(content any) (Attr, string, bool) {
	parts, isList := content.([]any)
	if !isList || len(parts) != 2 {
		return Attr{}, "", false
	}
	attr, attrOK := ParseAttr(parts[0])
	text, textOK := parts[1].(string)
	if !attrOK || !textOK {
		return Attr{}, "", false
	}
	return attr, text, true
}

// Str builds a text run element.
func Str(text string) map[string]any {
	return Elt(TagStr, text)
}

// Space builds a word-separator element.
func Space() map[string]any {
	return Elt(TagSpace, nil)
}

// Superscript wraps inlines in a superscript element.
func Superscript(inlines []any) map[string]any {
	return Elt(TagSuperscript, inlines)
}
