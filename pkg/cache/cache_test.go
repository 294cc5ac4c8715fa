package cache

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/coolbeans/urlcite/pkg/bib"
)

func testEntry(id string) Entry {
	return Entry{
		FetchedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		RawText:   []string{"@misc{" + id + ",", "}"},
		Record:    bib.Record{"id": id, "title": "Title " + id},
	}
}

func TestLoadMissingFileStartsEmpty(t *testing.T) {
	citationCache := Load(filepath.Join(t.TempDir(), "nope.json"), nil)
	if citationCache.Len() != 0 {
		t.Errorf("expected empty cache, got %d entries", citationCache.Len())
	}
}

func TestLoadCorruptFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	citationCache := Load(path, nil)
	if citationCache.Len() != 0 {
		t.Errorf("expected empty cache, got %d entries", citationCache.Len())
	}
}

func TestPersistAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")

	citationCache := Load(path, nil)
	citationCache.Put("http://example.com", testEntry("http://example.com"))
	if err := citationCache.Persist(); err != nil {
		t.Fatalf("Persist: %v", err)
	}

	reloaded := Load(path, nil)
	if !reloaded.Has("http://example.com") {
		t.Fatal("entry lost across persist/reload")
	}
	entry, _ := reloaded.Get("http://example.com")
	if entry.Record.ID() != "http://example.com" {
		t.Errorf("record id: got %q", entry.Record.ID())
	}
	if len(entry.RawText) != 2 {
		t.Errorf("raw text: got %d lines, want 2", len(entry.RawText))
	}
}

func TestPersistIsTabIndented(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")

	citationCache := Load(path, nil)
	citationCache.Put("http://a", testEntry("http://a"))
	if err := citationCache.Persist(); err != nil {
		t.Fatalf("Persist: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "\n\t\"urls\"") {
		t.Errorf("cache file not tab-indented:\n%s", data)
	}
	if !strings.Contains(string(data), Info) {
		t.Error("cache file missing info header")
	}
}

func TestPutExpandsTabsInRawText(t *testing.T) {
	citationCache := Load(filepath.Join(t.TempDir(), "cache.json"), nil)

	entry := testEntry("x")
	entry.RawText = []string{"\ttitle = {T},"}
	citationCache.Put("http://x", entry)

	stored, _ := citationCache.Get("http://x")
	if strings.ContainsRune(stored.RawText[0], '\t') {
		t.Errorf("tabs not expanded: %q", stored.RawText[0])
	}
}

func TestPersistIsDeterministic(t *testing.T) {
	// Two persists of the same content must be byte-identical, regardless
	// of insertion order.
	dir := t.TempDir()
	pathA := filepath.Join(dir, "a.json")
	pathB := filepath.Join(dir, "b.json")

	cacheA := Load(pathA, nil)
	cacheA.Put("http://one", testEntry("http://one"))
	cacheA.Put("http://two", testEntry("http://two"))
	if err := cacheA.Persist(); err != nil {
		t.Fatal(err)
	}

	cacheB := Load(pathB, nil)
	cacheB.Put("http://two", testEntry("http://two"))
	cacheB.Put("http://one", testEntry("http://one"))
	if err := cacheB.Persist(); err != nil {
		t.Fatal(err)
	}

	dataA, _ := os.ReadFile(pathA)
	dataB, _ := os.ReadFile(pathB)
	if string(dataA) != string(dataB) {
		t.Error("persisted cache content depends on insertion order")
	}
}

func TestReloadedCachePersistsIdentically(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")

	citationCache := Load(path, nil)
	citationCache.Put("http://example.com", testEntry("http://example.com"))
	if err := citationCache.Persist(); err != nil {
		t.Fatal(err)
	}
	first, _ := os.ReadFile(path)

	reloaded := Load(path, nil)
	if err := reloaded.Persist(); err != nil {
		t.Fatal(err)
	}
	second, _ := os.ReadFile(path)

	if string(first) != string(second) {
		t.Error("load/persist cycle churned the cache file")
	}
}
