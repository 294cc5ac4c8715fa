package citekey

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/coolbeans/urlcite/pkg/ast"
)

// MalformedReferenceError reports an unexpected token after the colon of a
// pseudo-reference definition, where a plain URL string was required.
type MalformedReferenceError struct {
	Key string
	Got string
}

func (refErr *MalformedReferenceError) Error() string {
	return fmt.Sprintf("malformed reference definition for key %q: expected a plain URL string after the colon, got %s", refErr.Key, refErr.Got)
}

// Extractor walks paragraph prose for paragraph-initial patterns of the
// form [@key]: http://... — a single-target citation, a colon token, an
// optional space or soft break, and the URL. Matches populate the key
// table and are stripped from the paragraph; a paragraph may define
// several keys in sequence.
type Extractor struct {
	table  *Table
	logger *zap.Logger
}

// NewExtractor creates an extractor feeding the given table.
func NewExtractor(table *Table, logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{table: table, logger: logger}
}

// Run applies the extractor to every paragraph in the document. Plain
// blocks are scanned too, since tight list items carry their prose as
// Plain rather than Para. A block fully consumed by definitions is
// removed from the tree.
func (extractor *Extractor) Run(doc *ast.Doc) error {
	var matchErr error
	doc.WalkBlocks(func(tag string, content any) ([]any, bool) {
		if matchErr != nil || (tag != ast.TagPara && tag != ast.TagPlain) {
			return nil, false
		}
		inlines, isList := content.([]any)
		if !isList {
			return nil, false
		}

		remaining, modified, err := extractor.consumeDefinitions(inlines)
		if err != nil {
			matchErr = err
			return nil, false
		}
		if !modified {
			return nil, false
		}
		if len(remaining) == 0 {
			return []any{}, true
		}
		return []any{ast.Elt(tag, remaining)}, true
	})
	return matchErr
}

// consumeDefinitions repeatedly matches a definition at the start of the
// inline sequence, recording each and re-scanning from the new start.
func (extractor *Extractor) consumeDefinitions(inlines []any) (remaining []any, modified bool, err error) {
	remaining = inlines
	for {
		key, url, consumed, matchErr := matchDefinition(remaining)
		if matchErr != nil {
			return nil, false, matchErr
		}
		if consumed == 0 {
			return remaining, modified, nil
		}
		extractor.logger.Debug("extracted citation key definition",
			zap.String("key", key), zap.String("url", url))
		extractor.table.Define(key, url)

		// Strip the matched span plus a single trailing soft break.
		if consumed < len(remaining) && ast.Tag(remaining[consumed]) == ast.TagSoftBreak {
			consumed++
		}
		remaining = remaining[consumed:]
		modified = true
	}
}

// States of the definition matcher.
type matchState int

const (
	seekingCitation matchState = iota
	seekingColon
	seekingSpaceOrValue
	seekingValue
)

// matchDefinition runs the prefix state machine over the inline sequence.
// consumed is 0 when the sequence does not start with a definition. An
// unrecognized token after the colon is a MalformedReferenceError.
func matchDefinition(inlines []any) (key, url string, consumed int, err error) {
	state := seekingCitation
	for position, inline := range inlines {
		tag, content, isElement := ast.Decompose(inline)
		if !isElement {
			return "", "", 0, nil
		}

		switch state {
		case seekingCitation:
			if tag != ast.TagCite {
				return "", "", 0, nil
			}
			citations, _, ok := ast.ParseCite(content)
			if !ok || len(citations) != 1 {
				return "", "", 0, nil
			}
			key = citations[0].ID
			state = seekingColon

		case seekingColon:
			text, isStr := content.(string)
			if tag != ast.TagStr || !isStr || len(text) == 0 || text[0] != ':' {
				return "", "", 0, nil
			}
			if len(text) > 1 {
				// URL glued directly to the colon, no separator token.
				return key, text[1:], position + 1, nil
			}
			state = seekingSpaceOrValue

		case seekingSpaceOrValue:
			if tag == ast.TagSpace || tag == ast.TagSoftBreak {
				state = seekingValue
				continue
			}
			fallthrough

		case seekingValue:
			text, isStr := content.(string)
			if tag != ast.TagStr || !isStr {
				return "", "", 0, &MalformedReferenceError{Key: key, Got: tag}
			}
			return key, text, position + 1, nil
		}
	}
	// Ran out of tokens mid-pattern: nothing (or nothing usable) after the
	// colon. Not an error; the paragraph passes through unchanged.
	return "", "", 0, nil
}
