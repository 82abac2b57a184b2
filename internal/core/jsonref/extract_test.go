package jsonref

import (
	"testing"
)

func refStrings(doc string) []string {
	refs := ExtractRefs([]byte(doc))
	out := make([]string, 0, len(refs))
	for _, r := range refs {
		out = append(out, r.String())
	}
	return out
}

func TestExtractRefs_NestedInDocumentOrder(t *testing.T) {
	t.Parallel()

	doc := `{
		"count": 3,
		"items": [
			{"$ref": "http://sports.example.com/v2/venues/1"},
			{"nested": {"deeper": {"$ref": "http://sports.example.com/v2/venues/2"}}},
			{"list": [[{"$ref": "http://sports.example.com/v2/venues/3"}]]}
		]
	}`
	got := refStrings(doc)
	want := []string{
		"http://sports.example.com/v2/venues/1",
		"http://sports.example.com/v2/venues/2",
		"http://sports.example.com/v2/venues/3",
	}
	if len(got) != len(want) {
		t.Fatalf("got %d refs, want %d: %v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("refs[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestExtractRefs_SkipsUnusableRefs(t *testing.T) {
	t.Parallel()

	doc := `{
		"a": {"$ref": "not a url at all %%"},
		"b": {"$ref": "relative/path/only"},
		"c": {"$ref": 42},
		"d": {"$ref": "http://sports.example.com/ok"}
	}`
	got := refStrings(doc)
	if len(got) != 1 || got[0] != "http://sports.example.com/ok" {
		t.Fatalf("ExtractRefs = %v, want only the absolute url", got)
	}
}

func TestExtractRefs_NonJSONYieldsNil(t *testing.T) {
	t.Parallel()

	if got := ExtractRefs([]byte("<html>nope</html>")); got != nil {
		t.Fatalf("ExtractRefs on non-json = %v, want nil", got)
	}
}

func TestExtractRefs_NoDedup(t *testing.T) {
	t.Parallel()

	doc := `[{"$ref": "http://h.example.com/x"}, {"$ref": "http://h.example.com/x"}]`
	if got := refStrings(doc); len(got) != 2 {
		t.Fatalf("got %d refs, want duplicates preserved", len(got))
	}
}

func TestExtractRefs_MarkerOnlyAsObjectKey(t *testing.T) {
	t.Parallel()

	// "$ref" as a plain string value is data, not a reference
	doc := `{"label": "$ref", "inner": {"$ref": "http://h.example.com/y"}}`
	got := refStrings(doc)
	if len(got) != 1 || got[0] != "http://h.example.com/y" {
		t.Fatalf("ExtractRefs = %v, want one ref", got)
	}
}
