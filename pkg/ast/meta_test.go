package ast

import "testing"

func TestStringify(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  string
	}{
		{"plain string", "hello", "hello"},
		{"inline run", []any{Str("two"), Space(), Str("words")}, "two words"},
		{"soft break", []any{Str("a"), Elt(TagSoftBreak, nil), Str("b")}, "a b"},
		{"nested emphasis", []any{Elt("Emph", []any{Str("em")})}, "em"},
		{"meta string", Elt(TagMetaString, "text"), "text"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := Stringify(test.value); got != test.want {
				t.Errorf("Stringify: got %q, want %q", got, test.want)
			}
		})
	}
}

func TestMetaString(t *testing.T) {
	meta := map[string]any{
		"plain":   Elt(TagMetaString, "value"),
		"inlines": Elt(TagMetaInlines, []any{Str("a"), Space(), Str("b")}),
		"flag":    Elt(TagMetaBool, true),
	}

	if got, ok := MetaString(meta, "plain"); !ok || got != "value" {
		t.Errorf("plain: got %q/%v", got, ok)
	}
	if got, ok := MetaString(meta, "inlines"); !ok || got != "a b" {
		t.Errorf("inlines: got %q/%v", got, ok)
	}
	if got, ok := MetaString(meta, "flag"); !ok || got != "true" {
		t.Errorf("flag: got %q/%v", got, ok)
	}
	if _, ok := MetaString(meta, "absent"); ok {
		t.Error("absent key reported present")
	}
}

func TestMetaBool(t *testing.T) {
	meta := map[string]any{
		"real":    Elt(TagMetaBool, false),
		"textual": Elt(TagMetaString, "true"),
		"inlines": Elt(TagMetaInlines, []any{Str("false")}),
		"junk":    Elt(TagMetaString, "maybe"),
	}

	if got, ok := MetaBool(meta, "real"); !ok || got != false {
		t.Errorf("real: got %v/%v", got, ok)
	}
	if got, ok := MetaBool(meta, "textual"); !ok || got != true {
		t.Errorf("textual: got %v/%v", got, ok)
	}
	if got, ok := MetaBool(meta, "inlines"); !ok || got != false {
		t.Errorf("inlines: got %v/%v", got, ok)
	}
	if _, ok := MetaBool(meta, "junk"); ok {
		t.Error("junk parsed as bool")
	}
	if _, ok := MetaBool(meta, "absent"); ok {
		t.Error("absent key reported present")
	}
}

func TestMetaFromValue(t *testing.T) {
	value := map[string]any{
		"id":     "key1",
		"title":  "A Title",
		"author": []any{map[string]any{"family": "Doe"}},
		"draft":  true,
	}

	wrapped := MetaFromValue(value)
	tag, content, ok := Decompose(wrapped)
	if !ok || tag != TagMetaMap {
		t.Fatalf("top level: got %v", wrapped)
	}
	fields := content.(map[string]any)
	if Tag(fields["id"]) != TagMetaString {
		t.Errorf("id wrapped as %s", Tag(fields["id"]))
	}
	if Tag(fields["draft"]) != TagMetaBool {
		t.Errorf("draft wrapped as %s", Tag(fields["draft"]))
	}
	if Tag(fields["author"]) != TagMetaList {
		t.Errorf("list wrapped as %s", Tag(fields["author"]))
	}
}

func TestMetaListItems(t *testing.T) {
	meta := map[string]any{
		"references": Elt(TagMetaList, []any{Elt(TagMetaString, "a")}),
		"title":      Elt(TagMetaString, "x"),
	}

	if items := MetaListItems(meta, "references"); len(items) != 1 {
		t.Errorf("references: got %d items, want 1", len(items))
	}
	if items := MetaListItems(meta, "title"); items != nil {
		t.Errorf("non-list key returned items: %v", items)
	}
	if items := MetaListItems(meta, "absent"); items != nil {
		t.Errorf("absent key returned items: %v", items)
	}
}
