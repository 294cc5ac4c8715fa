// Package transform implements the citation-resolution rewrite passes: the
// embedded-bibliography ingest pass and the central citation/link
// transformer that rewrites citation and link nodes into citation-bearing
// nodes, fetching and caching bibliographic metadata on demand.
package transform

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/coolbeans/urlcite/pkg/ast"
)

// Mode selects which links are converted to citations.
type Mode string

const (
	// ModeAllLinks converts every URL link unless a no-url2cite marker
	// disables it.
	ModeAllLinks Mode = "all-links"
	// ModeCitationOnly converts only links carrying an explicit url2cite
	// marker.
	ModeCitationOnly Mode = "citation-only"
)

// LinkOutput selects the output shape for a converted link.
type LinkOutput string

const (
	// OutputCiteOnly replaces the link with just the citation.
	OutputCiteOnly LinkOutput = "cite-only"
	// OutputSup keeps the link and appends a superscripted citation sibling.
	OutputSup LinkOutput = "sup"
	// OutputNormal keeps the link and appends the citation to its visible
	// text, stashing the resolved record in a link attribute.
	OutputNormal LinkOutput = "normal"
)

// Configuration keys, read from document metadata and overridable by the
// host.
const (
	KeyMode          = "url2cite"
	KeyLinkOutput    = "url2cite-link-output"
	KeyCachePath     = "url2cite-cache"
	KeyAllowDangling = "url2cite-allow-dangling-citations"
	KeyOutputBib     = "url2cite-output-bib"
	KeyEscapeIDs     = "url2cite-escape-ids"
)

// DefaultCachePath is the cache file used when none is configured.
const DefaultCachePath = "citation-cache.json"

// UnknownOutputFormatError reports an invalid url2cite-link-output value.
type UnknownOutputFormatError struct {
	Value string
}

func (formatErr *UnknownOutputFormatError) Error() string {
	return fmt.Sprintf("unknown %s value %q (want %q, %q or %q)",
		KeyLinkOutput, formatErr.Value, OutputCiteOnly, OutputSup, OutputNormal)
}

// Options is the resolved, run-immutable configuration for a transform run.
type Options struct {
	Mode          Mode
	LinkOutput    LinkOutput
	CachePath     string
	AllowDangling bool
	OutputBib     string
	EscapeIDs     bool
}

// ResolveOptions reads configuration from document metadata, applies the
// host's flat overrides on top, and fills in defaults. targetFormat is the
// host's output format name and drives the link-output default: compact
// superscript form for markup targets with inline superscript support,
// the richer normal form otherwise.
func ResolveOptions(meta map[string]any, overrides map[string]string, targetFormat string) (Options, error) {
	options := Options{
		Mode:      ModeCitationOnly,
		CachePath: DefaultCachePath,
		EscapeIDs: true,
	}

	lookup := func(key string) (string, bool) {
		if value, exists := overrides[key]; exists {
			return value, true
		}
		return ast.MetaString(meta, key)
	}
	lookupBool := func(key string) (bool, bool, error) {
		if value, exists := overrides[key]; exists {
			parsed, err := strconv.ParseBool(strings.TrimSpace(value))
			if err != nil {
				return false, true, fmt.Errorf("invalid %s value %q (want true or false)", key, value)
			}
			return parsed, true, nil
		}
		value, exists := ast.MetaBool(meta, key)
		return value, exists, nil
	}

	if value, exists := lookup(KeyMode); exists {
		switch Mode(value) {
		case ModeAllLinks, ModeCitationOnly:
			options.Mode = Mode(value)
		default:
			return Options{}, fmt.Errorf("unknown %s value %q (want %q or %q)",
				KeyMode, value, ModeAllLinks, ModeCitationOnly)
		}
	}

	if value, exists := lookup(KeyLinkOutput); exists {
		switch LinkOutput(value) {
		case OutputCiteOnly, OutputSup, OutputNormal:
			options.LinkOutput = LinkOutput(value)
		default:
			return Options{}, &UnknownOutputFormatError{Value: value}
		}
	} else if supportsSuperscript(targetFormat) {
		options.LinkOutput = OutputSup
	} else {
		options.LinkOutput = OutputNormal
	}

	if value, exists := lookup(KeyCachePath); exists && value != "" {
		options.CachePath = value
	}
	if value, exists, err := lookupBool(KeyAllowDangling); err != nil {
		return Options{}, err
	} else if exists {
		options.AllowDangling = value
	}
	if value, exists := lookup(KeyOutputBib); exists {
		options.OutputBib = value
	}
	if value, exists, err := lookupBool(KeyEscapeIDs); err != nil {
		return Options{}, err
	} else if exists {
		options.EscapeIDs = value
	}

	return options, nil
}

// supportsSuperscript reports whether the named output format renders
// inline superscripts, making the compact sup shape a sensible default.
func supportsSuperscript(format string) bool {
	for _, prefix := range []string{"html", "markdown", "commonmark", "gfm", "latex", "epub", "org"} {
		if strings.HasPrefix(format, prefix) {
			return true
		}
	}
	return false
}
