// Package citekey maintains the mapping from short citation keys to URLs
// and the extractor pass that discovers pseudo-reference-definition
// paragraphs ("[@key]: http://...") in document prose.
package citekey

import "go.uber.org/zap"

// Table maps citation keys to URLs. Keys are unique; a duplicate
// definition is reported but not fatal, and the later definition wins.
type Table struct {
	urls   map[string]string
	logger *zap.Logger
}

// NewTable creates an empty key table.
func NewTable(logger *zap.Logger) *Table {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Table{urls: make(map[string]string), logger: logger}
}

// Define records key -> url. A redefinition is logged and overwrites the
// earlier entry.
func (table *Table) Define(key, url string) {
	if existing, exists := table.urls[key]; exists && existing != url {
		table.logger.Warn("citation key redefined, later definition wins",
			zap.String("key", key), zap.String("previous", existing), zap.String("url", url))
	}
	table.urls[key] = url
}

// Resolve looks up the URL for a citation key.
func (table *Table) Resolve(key string) (string, bool) {
	url, exists := table.urls[key]
	return url, exists
}

// Len returns the number of defined keys.
func (table *Table) Len() int {
	return len(table.urls)
}
