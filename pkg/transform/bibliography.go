package transform

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/coolbeans/urlcite/pkg/ast"
	"github.com/coolbeans/urlcite/pkg/bib"
	"github.com/coolbeans/urlcite/pkg/cache"
)

// BibliographyClass marks code blocks holding a manually supplied BibTeX
// bibliography to be merged into the cache.
const BibliographyClass = "url2cite-bibtex"

// RecordParser turns BibTeX text into a batch of records. Satisfied by
// *bib.Converter.
type RecordParser interface {
	ParseRecords(bibtex string) ([]bib.Record, error)
}

// BibliographyPass ingests marked bibliography code blocks: the block text
// is parsed as a batch of entries, new records are merged into the cache
// keyed by record id, and the block is removed from the tree.
type BibliographyPass struct {
	cache  *cache.Cache
	parser RecordParser
	logger *zap.Logger
}

// NewBibliographyPass creates the pass around the given cache and parser.
func NewBibliographyPass(citationCache *cache.Cache, parser RecordParser, logger *zap.Logger) *BibliographyPass {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BibliographyPass{cache: citationCache, parser: parser, logger: logger}
}

// Run applies the pass to every marked code block in the document.
func (pass *BibliographyPass) Run(doc *ast.Doc) error {
	var passErr error
	doc.WalkBlocks(func(tag string, content any) ([]any, bool) {
		if passErr != nil || tag != ast.TagCodeBlock {
			return nil, false
		}
		attr, text, ok := ast.ParseCodeBlock(content)
		if !ok || !attr.HasClass(BibliographyClass) {
			return nil, false
		}
		if err := pass.ingest(text); err != nil {
			passErr = err
			return nil, false
		}
		// The block is consumed whether or not any entries were new.
		return []any{}, true
	})
	return passErr
}

// ingest merges one bibliography block into the cache. Records already
// cached with byte-identical content are skipped so re-runs do not churn
// the cache file.
func (pass *BibliographyPass) ingest(text string) error {
	records, err := pass.parser.ParseRecords(text)
	if err != nil {
		return err
	}

	added := 0
	for _, record := range records {
		id := record.ID()
		if id == "" {
			pass.logger.Warn("skipping embedded bibliography record without id")
			continue
		}
		if existing, exists := pass.cache.Get(id); exists {
			if recordsEqual(existing.Record, record) {
				continue
			}
		}
		// No upstream fetch happened for this entry, so it carries no raw
		// text.
		pass.cache.Put(id, cache.Entry{FetchedAt: time.Now().UTC(), Record: record})
		added++
	}

	if added > 0 {
		pass.logger.Info("merged embedded bibliography", zap.Int("records", added))
		if err := pass.cache.Persist(); err != nil {
			return fmt.Errorf("failed to persist cache after embedded bibliography: %w", err)
		}
	}
	return nil
}

// recordsEqual compares two records by their serialized form.
func recordsEqual(a, b bib.Record) bool {
	serializedA, errA := json.Marshal(a)
	serializedB, errB := json.Marshal(b)
	if errA != nil || errB != nil {
		return false
	}
	return bytes.Equal(serializedA, serializedB)
}
