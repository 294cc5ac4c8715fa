// Package pipeline orchestrates a full document transform: configuration
// resolution, cache loading, the three rewrite passes in fixed order,
// reference-metadata assembly and cache/bibliography persistence.
package pipeline

import (
	"fmt"
	"os"
	"sort"

	"go.uber.org/zap"

	"github.com/coolbeans/urlcite/pkg/ast"
	"github.com/coolbeans/urlcite/pkg/bib"
	"github.com/coolbeans/urlcite/pkg/cache"
	"github.com/coolbeans/urlcite/pkg/citekey"
	"github.com/coolbeans/urlcite/pkg/transform"
)

// Config carries the host-side collaborators and overrides for one run.
type Config struct {
	// Overrides is a flat option mapping merged over document metadata
	// (CLI flags, defaults file). Keys are the url2cite-* option names.
	Overrides map[string]string

	// TargetFormat is the host's output format name; it drives the
	// link-output default.
	TargetFormat string

	// Fetcher resolves URLs to records. If nil, a bib.Client with default
	// configuration is used.
	Fetcher transform.Fetcher

	// Converter translates bibliographic encodings for embedded
	// bibliographies and the output bibliography file. If nil, a converter
	// around the default command is used.
	Converter *bib.Converter

	// Logger receives run diagnostics. If nil, logging is disabled.
	Logger *zap.Logger
}

// Run transforms the document in place: extract citation key definitions,
// ingest embedded bibliographies, resolve citations and links, then merge
// every cached record into the document's reference metadata. The cache is
// persisted at the end of the run (and after every addition during it).
func Run(doc *ast.Doc, config Config) error {
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	converter := config.Converter
	if converter == nil {
		converter = bib.NewConverter("")
	}
	fetcher := config.Fetcher
	if fetcher == nil {
		clientConfig := bib.DefaultConfig()
		clientConfig.Converter = converter
		clientConfig.Logger = logger
		fetcher = bib.NewClient(clientConfig)
	}

	options, err := transform.ResolveOptions(doc.Meta, config.Overrides, config.TargetFormat)
	if err != nil {
		return err
	}
	logger.Debug("resolved options",
		zap.String("mode", string(options.Mode)),
		zap.String("link-output", string(options.LinkOutput)),
		zap.String("cache", options.CachePath))

	citationCache := cache.Load(options.CachePath, logger)
	table := citekey.NewTable(logger)

	if err := citekey.NewExtractor(table, logger).Run(doc); err != nil {
		return err
	}
	if err := transform.NewBibliographyPass(citationCache, converter, logger).Run(doc); err != nil {
		return err
	}
	if err := transform.NewResolver(options, citationCache, table, fetcher, logger).Run(doc); err != nil {
		return err
	}

	mergeReferences(doc, citationCache, options)

	if options.OutputBib != "" {
		if err := writeBibliography(options.OutputBib, citationCache, converter); err != nil {
			return err
		}
	}

	if err := citationCache.Persist(); err != nil {
		return err
	}
	logger.Info("document transformed",
		zap.Int("cached-urls", citationCache.Len()),
		zap.Int("citation-keys", table.Len()))
	return nil
}

// cachedRecords returns every cached record with its id re-derived from
// the cache key under the current escaping setting, sorted by key for
// deterministic output.
func cachedRecords(citationCache *cache.Cache, options transform.Options) []bib.Record {
	urls := make([]string, 0, citationCache.Len())
	for url := range citationCache.URLs() {
		urls = append(urls, url)
	}
	sort.Strings(urls)

	records := make([]bib.Record, 0, len(urls))
	for _, url := range urls {
		entry, _ := citationCache.Get(url)
		records = append(records, entry.Record.WithID(transform.EscapeURL(url, options.EscapeIDs)))
	}
	return records
}

// mergeReferences writes every cached record into the document's
// reference-list metadata. Newly resolved records come first; a
// pre-existing reference list is appended after them, preserved and not
// deduplicated.
func mergeReferences(doc *ast.Doc, citationCache *cache.Cache, options transform.Options) {
	records := cachedRecords(citationCache, options)
	if len(records) == 0 {
		return
	}

	items := make([]any, 0, len(records))
	for _, record := range records {
		items = append(items, ast.MetaFromValue(map[string]any(record)))
	}
	items = append(items, ast.MetaListItems(doc.Meta, "references")...)
	doc.Meta["references"] = ast.Elt(ast.TagMetaList, items)
}

// writeBibliography serializes every cached record through the reverse
// conversion and writes the standalone bibliography file.
func writeBibliography(path string, citationCache *cache.Cache, converter *bib.Converter) error {
	records := make([]bib.Record, 0, citationCache.Len())
	for _, entry := range citationCache.URLs() {
		records = append(records, entry.Record)
	}
	text, err := converter.RenderRecords(records)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return fmt.Errorf("failed to write bibliography %s: %w", path, err)
	}
	return nil
}
