package transform

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/coolbeans/urlcite/pkg/ast"
	"github.com/coolbeans/urlcite/pkg/bib"
	"github.com/coolbeans/urlcite/pkg/cache"
)

// fakeParser returns canned records for any input.
type fakeParser struct {
	records []bib.Record
	err     error
	calls   int
}

func (parser *fakeParser) ParseRecords(bibtex string) ([]bib.Record, error) {
	parser.calls++
	return parser.records, parser.err
}

func bibBlock(text string) map[string]any {
	attr := ast.Attr{Classes: []string{BibliographyClass}}
	return ast.Elt(ast.TagCodeBlock, []any{attr.Value(), text})
}

func TestBibliographyPassIngestsAndRemovesBlock(t *testing.T) {
	cachePath := filepath.Join(t.TempDir(), "cache.json")
	citationCache := cache.Load(cachePath, nil)
	parser := &fakeParser{records: []bib.Record{
		{"id": "http://a.example", "title": "A"},
		{"id": "http://b.example", "title": "B"},
	}}

	doc := &ast.Doc{Meta: map[string]any{}, Blocks: []any{
		bibBlock("@misc{a}\n@misc{b}"),
		ast.Elt(ast.TagPara, []any{ast.Str("prose")}),
	}}

	if err := NewBibliographyPass(citationCache, parser, nil).Run(doc); err != nil {
		t.Fatalf("pass: %v", err)
	}

	if len(doc.Blocks) != 1 || ast.Tag(doc.Blocks[0]) != ast.TagPara {
		t.Errorf("bibliography block not removed: %v", doc.Blocks)
	}
	if !citationCache.Has("http://a.example") || !citationCache.Has("http://b.example") {
		t.Error("records not cached")
	}
	entry, _ := citationCache.Get("http://a.example")
	if len(entry.RawText) != 0 {
		t.Errorf("embedded record should carry no raw text, got %v", entry.RawText)
	}
	if _, err := os.Stat(cachePath); err != nil {
		t.Error("cache not persisted after ingest")
	}
}

func TestBibliographyPassIdempotentRerun(t *testing.T) {
	cachePath := filepath.Join(t.TempDir(), "cache.json")
	citationCache := cache.Load(cachePath, nil)
	record := bib.Record{"id": "http://a.example", "title": "A"}
	parser := &fakeParser{records: []bib.Record{record}}

	run := func() {
		doc := &ast.Doc{Meta: map[string]any{}, Blocks: []any{bibBlock("@misc{a}")}}
		if err := NewBibliographyPass(citationCache, parser, nil).Run(doc); err != nil {
			t.Fatalf("pass: %v", err)
		}
	}

	run()
	first, err := os.ReadFile(cachePath)
	if err != nil {
		t.Fatal(err)
	}

	run()
	second, err := os.ReadFile(cachePath)
	if err != nil {
		t.Fatal(err)
	}
	if string(first) != string(second) {
		t.Error("re-ingesting identical records churned the cache")
	}
}

func TestBibliographyPassRemovesBlockWithoutNewEntries(t *testing.T) {
	citationCache := cache.Load(filepath.Join(t.TempDir(), "cache.json"), nil)
	citationCache.Put("http://a.example", cache.Entry{Record: bib.Record{"id": "http://a.example", "title": "A"}})
	parser := &fakeParser{records: []bib.Record{{"id": "http://a.example", "title": "A"}}}

	doc := &ast.Doc{Meta: map[string]any{}, Blocks: []any{bibBlock("@misc{a}")}}
	if err := NewBibliographyPass(citationCache, parser, nil).Run(doc); err != nil {
		t.Fatalf("pass: %v", err)
	}

	if len(doc.Blocks) != 0 {
		t.Error("block must be removed even when every record was cached")
	}
}

func TestBibliographyPassIgnoresUnmarkedCodeBlocks(t *testing.T) {
	citationCache := cache.Load(filepath.Join(t.TempDir(), "cache.json"), nil)
	parser := &fakeParser{}

	plainAttr := ast.Attr{Classes: []string{"go"}}
	doc := &ast.Doc{Meta: map[string]any{}, Blocks: []any{
		ast.Elt(ast.TagCodeBlock, []any{plainAttr.Value(), "func main() {}"}),
	}}

	if err := NewBibliographyPass(citationCache, parser, nil).Run(doc); err != nil {
		t.Fatalf("pass: %v", err)
	}

	if parser.calls != 0 {
		t.Error("unmarked code block was parsed")
	}
	if len(doc.Blocks) != 1 {
		t.Error("unmarked code block was removed")
	}
}

func TestBibliographyPassPropagatesConversionError(t *testing.T) {
	citationCache := cache.Load(filepath.Join(t.TempDir(), "cache.json"), nil)
	parser := &fakeParser{err: &bib.ConversionError{Direction: bib.BibToCSL, Input: "@bad", Reason: "boom"}}

	doc := &ast.Doc{Meta: map[string]any{}, Blocks: []any{bibBlock("@bad")}}
	err := NewBibliographyPass(citationCache, parser, nil).Run(doc)

	var convErr *bib.ConversionError
	if !errors.As(err, &convErr) {
		t.Fatalf("expected ConversionError, got %v", err)
	}
}
