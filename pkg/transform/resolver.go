package transform

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/coolbeans/urlcite/pkg/ast"
	"github.com/coolbeans/urlcite/pkg/bib"
	"github.com/coolbeans/urlcite/pkg/cache"
	"github.com/coolbeans/urlcite/pkg/citekey"
)

// Per-link override marker tokens, accepted as a class or as a whole word
// in the link title.
const (
	MarkerEnable  = "url2cite"
	MarkerDisable = "no-url2cite"
)

// RecordAttr is the link attribute under which the normal output shape
// stashes the resolved record for downstream consumers.
const RecordAttr = "url2cite-record"

// UnresolvedCitationError reports a citation id with no resolvable URL
// while dangling citations are disallowed.
type UnresolvedCitationError struct {
	ID string
}

func (citeErr *UnresolvedCitationError) Error() string {
	return fmt.Sprintf("citation @%s has no URL: it is neither a URL itself nor a defined citation key; set %s to keep it as-is", citeErr.ID, KeyAllowDangling)
}

// Fetcher resolves a URL to a bibliographic record plus the raw fetched
// text. Satisfied by *bib.Client.
type Fetcher interface {
	FetchRecord(url string) (bib.Record, []string, error)
}

// Resolver is the central rewrite pass: citation nodes get their ids
// resolved to cached URL-keyed records, link nodes are converted into
// citation-bearing shapes. Each node is processed to completion, fetch and
// cache persist included, before the next node is visited, so every URL is
// fetched at most once per run.
type Resolver struct {
	options Options
	cache   *cache.Cache
	table   *citekey.Table
	fetcher Fetcher
	logger  *zap.Logger
}

// NewResolver creates the pass around the given stores and fetch adapter.
func NewResolver(options Options, citationCache *cache.Cache, table *citekey.Table, fetcher Fetcher, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		options: options,
		cache:   citationCache,
		table:   table,
		fetcher: fetcher,
		logger:  logger,
	}
}

// Run rewrites every citation and link node in the document. Node kinds
// outside the two handled ones pass through unchanged.
func (resolver *Resolver) Run(doc *ast.Doc) error {
	var passErr error
	doc.WalkBlocks(func(tag string, content any) ([]any, bool) {
		if passErr != nil {
			return nil, false
		}
		var (
			replacement []any
			replaced    bool
			err         error
		)
		switch tag {
		case ast.TagCite:
			replacement, replaced, err = resolver.transformCite(content)
		case ast.TagLink:
			replacement, replaced, err = resolver.transformLink(content)
		default:
			return nil, false
		}
		if err != nil {
			passErr = err
			return nil, false
		}
		return replacement, replaced
	})
	return passErr
}

// transformCite resolves each inner reference of a citation node to a URL
// and rewrites its id to the escaped URL form.
func (resolver *Resolver) transformCite(content any) ([]any, bool, error) {
	citations, inlines, ok := ast.ParseCite(content)
	if !ok {
		return nil, false, nil
	}

	changed := false
	for i, citation := range citations {
		url, found := resolver.resolveURL(citation.ID)
		if !found {
			if resolver.options.AllowDangling {
				continue
			}
			return nil, false, &UnresolvedCitationError{ID: citation.ID}
		}
		if _, err := resolver.ensureCached(url); err != nil {
			return nil, false, err
		}
		citations[i].ID = EscapeURL(url, resolver.options.EscapeIDs)
		changed = true
	}
	if !changed {
		return nil, false, nil
	}
	return []any{ast.MakeCite(citations, inlines)}, true, nil
}

// resolveURL maps a citation id to a URL: directly when the id is itself a
// URL, otherwise through the key table.
func (resolver *Resolver) resolveURL(id string) (string, bool) {
	if IsURL(id) {
		return id, true
	}
	return resolver.table.Resolve(id)
}

// transformLink converts a link node into its configured citation-bearing
// shape, honoring per-link override markers.
func (resolver *Resolver) transformLink(content any) ([]any, bool, error) {
	link, ok := ast.ParseLink(content)
	if !ok {
		return nil, false, nil
	}

	// An explicit disable always wins, even over an enable marker.
	if link.Attr.HasClass(MarkerDisable) || titleHasToken(link.Title, MarkerDisable) {
		return nil, false, nil
	}
	enabled := resolver.options.Mode == ModeAllLinks ||
		link.Attr.HasClass(MarkerEnable) || titleHasToken(link.Title, MarkerEnable)
	if !enabled || !IsURL(link.Target) {
		return nil, false, nil
	}

	entry, err := resolver.ensureCached(link.Target)
	if err != nil {
		return nil, false, err
	}

	escapedID := EscapeURL(link.Target, resolver.options.EscapeIDs)
	citationElt := ast.MakeCite(
		[]ast.Citation{ast.NewCitation(escapedID)},
		[]any{ast.Str("[@" + escapedID + "]")},
	)
	link.Title = stripTitleTokens(link.Title)

	switch resolver.options.LinkOutput {
	case OutputCiteOnly:
		return []any{citationElt}, true, nil

	case OutputSup:
		return []any{link.Elt(), ast.Superscript([]any{citationElt})}, true, nil

	case OutputNormal:
		serialized, err := json.Marshal(entry.Record)
		if err != nil {
			return nil, false, fmt.Errorf("failed to serialize record for %s: %w", link.Target, err)
		}
		link.Attr.Set(RecordAttr, string(serialized))
		link.Inlines = append(link.Inlines, ast.Space(), citationElt)
		return []any{link.Elt()}, true, nil

	default:
		return nil, false, &UnknownOutputFormatError{Value: string(resolver.options.LinkOutput)}
	}
}

// ensureCached returns the cache entry for url, fetching and persisting it
// first on a miss. The cache is consulted before and updated after the
// fetch synchronously, which keeps fetches at most-once per URL.
func (resolver *Resolver) ensureCached(url string) (cache.Entry, error) {
	if entry, exists := resolver.cache.Get(url); exists {
		return entry, nil
	}

	record, rawLines, err := resolver.fetcher.FetchRecord(url)
	if err != nil {
		return cache.Entry{}, err
	}

	entry := cache.Entry{
		FetchedAt: time.Now().UTC(),
		RawText:   rawLines,
		Record:    record.WithID(EscapeURL(url, resolver.options.EscapeIDs)),
	}
	resolver.cache.Put(url, entry)
	if err := resolver.cache.Persist(); err != nil {
		return cache.Entry{}, fmt.Errorf("failed to persist cache after fetching %s: %w", url, err)
	}
	resolver.logger.Debug("cached bibliography", zap.String("url", url))

	entry, _ = resolver.cache.Get(url)
	return entry, nil
}

// titleHasToken reports whether the title contains the token as a whole
// whitespace-separated word.
func titleHasToken(title, token string) bool {
	for _, field := range strings.Fields(title) {
		if field == token {
			return true
		}
	}
	return false
}

// stripTitleTokens removes override marker tokens from a link title so
// they never leak into rendered output.
func stripTitleTokens(title string) string {
	fields := strings.Fields(title)
	kept := fields[:0]
	for _, field := range fields {
		if field == MarkerEnable || field == MarkerDisable {
			continue
		}
		kept = append(kept, field)
	}
	if len(kept) == len(fields) {
		return title
	}
	return strings.Join(kept, " ")
}
