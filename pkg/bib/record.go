// Package bib provides the bibliographic metadata adapter: structurally
// opaque CSL-like records, an HTTP client for the URL-to-bibliography
// lookup service, and a subprocess wrapper around the external converter
// that translates between the BibTeX and CSL JSON encodings.
package bib

// Record is a CSL-like bibliographic record. The engine treats it as
// opaque apart from the "id" field, which holds the citation key.
type Record map[string]any

// ID returns the record's citation key, or "" if unset.
func (record Record) ID() string {
	id, _ := record["id"].(string)
	return id
}

// WithID returns a shallow copy of the record with the citation key
// replaced. The original record is not modified.
func (record Record) WithID(id string) Record {
	rekeyed := make(Record, len(record))
	for key, value := range record {
		rekeyed[key] = value
	}
	rekeyed["id"] = id
	return rekeyed
}
