// Package cache provides the persistent citation cache: a single JSON file
// mapping URLs to fetched bibliographic records. The cache is the source of
// truth for "have we already resolved this URL" — it is consulted before
// every fetch and persisted after every addition, so a URL is fetched at
// most once per run and a crash loses at most the in-flight fetch.
package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/coolbeans/urlcite/pkg/bib"
)

// Info is the self-describing header written into fresh cache files.
const Info = "Cache of bibliography data fetched by urlcite, keyed by URL. Delete an entry (or this file) to force a re-fetch."

// Entry is one cached resolution: when it was fetched, the raw fetched
// text as lines, and the parsed record. Entries added from embedded
// bibliographies carry no raw text.
type Entry struct {
	FetchedAt time.Time  `json:"fetched"`
	RawText   []string   `json:"raw"`
	Record    bib.Record `json:"record"`
}

// fileShape is the on-disk layout of the cache file.
type fileShape struct {
	Info string           `json:"info"`
	URLs map[string]Entry `json:"urls"`
}

// Cache is a URL-keyed record store backed by a single JSON file.
type Cache struct {
	path   string
	info   string
	urls   map[string]Entry
	logger *zap.Logger
}

// Load reads the cache file at path. A missing or malformed file is not an
// error: the run starts from an empty cache (first-run bootstrap).
func Load(path string, logger *zap.Logger) *Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	citationCache := &Cache{
		path:   path,
		info:   Info,
		urls:   make(map[string]Entry),
		logger: logger,
	}

	data, err := os.ReadFile(path)
	if err != nil {
		logger.Info("starting with empty citation cache", zap.String("path", path))
		return citationCache
	}

	var onDisk fileShape
	if err := json.Unmarshal(data, &onDisk); err != nil {
		logger.Info("citation cache unreadable, starting empty",
			zap.String("path", path), zap.Error(err))
		return citationCache
	}

	if onDisk.Info != "" {
		citationCache.info = onDisk.Info
	}
	if onDisk.URLs != nil {
		citationCache.urls = onDisk.URLs
	}
	logger.Debug("loaded citation cache", zap.String("path", path), zap.Int("entries", len(citationCache.urls)))
	return citationCache
}

// Has reports whether the cache holds an entry for the given URL.
func (citationCache *Cache) Has(url string) bool {
	_, exists := citationCache.urls[url]
	return exists
}

// Get retrieves the cached entry for the given URL.
func (citationCache *Cache) Get(url string) (Entry, bool) {
	entry, exists := citationCache.urls[url]
	return entry, exists
}

// Put adds or replaces the entry for the given URL. Raw text lines have
// tabs expanded to spaces so the persisted file stays diffable.
func (citationCache *Cache) Put(url string, entry Entry) {
	if len(entry.RawText) > 0 {
		expanded := make([]string, len(entry.RawText))
		for i, line := range entry.RawText {
			expanded[i] = strings.ReplaceAll(line, "\t", "    ")
		}
		entry.RawText = expanded
	}
	citationCache.urls[url] = entry
}

// Len returns the number of cached URLs.
func (citationCache *Cache) Len() int {
	return len(citationCache.urls)
}

// URLs returns the set of cached URLs. The returned map is shared; callers
// must not modify the entries.
func (citationCache *Cache) URLs() map[string]Entry {
	return citationCache.urls
}

// Persist writes the whole cache to its file as tab-indented JSON. Called
// synchronously after every fetch-backed Put and at end of run.
func (citationCache *Cache) Persist() error {
	onDisk := fileShape{Info: citationCache.info, URLs: citationCache.urls}
	data, err := json.MarshalIndent(onDisk, "", "\t")
	if err != nil {
		return fmt.Errorf("failed to marshal citation cache: %w", err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(citationCache.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write citation cache %s: %w", citationCache.path, err)
	}
	return nil
}
