package hashing

import (
	"strings"
	"testing"
)

// sha256 of the empty string, uppercased
const emptyDigest = "E3B0C44298FC1C149AFBF4C8996FB92427AE41E4649B934CA495991B7852B855"

func TestHashText_KeyOrderAndWhitespaceInsensitive(t *testing.T) {
	t.Parallel()

	inputs := []string{
		`{"id":99,"name":"LSU"}`,
		`{"name":"LSU","id":99}`,
		"{\n  \"name\": \"LSU\",\n  \"id\": 99\n}",
		"\t {\"id\" :99, \"name\":\"LSU\"} \n",
	}
	want := HashText(inputs[0])
	for _, in := range inputs[1:] {
		if got := HashText(in); got != want {
			t.Fatalf("HashText(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestHashText_ValueChangeChangesDigest(t *testing.T) {
	t.Parallel()

	a := HashText(`{"id":99,"name":"LSU"}`)
	b := HashText(`{"id":100,"name":"LSU"}`)
	if a == b {
		t.Fatalf("digests for different values collide: %s", a)
	}
}

func TestHashText_EmptyVariantsShareOneDigest(t *testing.T) {
	t.Parallel()

	for _, in := range []string{"", "   ", "\n\t", "\uFEFF", "\uFEFF  \n"} {
		if got := HashText(in); got != emptyDigest {
			t.Fatalf("HashText(%q) = %s, want empty-input digest", in, got)
		}
	}
}

func TestHashText_UppercaseHex(t *testing.T) {
	t.Parallel()

	got := HashText(`{"a":1}`)
	if got != strings.ToUpper(got) {
		t.Fatalf("digest not uppercase: %s", got)
	}
	if len(got) != 64 {
		t.Fatalf("digest length = %d, want 64", len(got))
	}
}

func TestNormalize_NonJSONPassesThroughTrimmed(t *testing.T) {
	t.Parallel()

	if got := Normalize("  not json at all  "); got != "not json at all" {
		t.Fatalf("Normalize = %q, want trimmed raw text", got)
	}
}

func TestNormalize_TrailingContentIsNotOneDocument(t *testing.T) {
	t.Parallel()

	in := `{"a":1} {"b":2}`
	if got := Normalize(in); got != in {
		t.Fatalf("Normalize(%q) = %q, want raw text back", in, got)
	}
}

func TestNormalize_CanonicalForm(t *testing.T) {
	t.Parallel()

	cases := []struct{ in, want string }{
		{`{"b": 2, "a": 1}`, `{"a":1,"b":2}`},
		{`[1, 2, {"z": true, "a": null}]`, `[1,2,{"a":null,"z":true}]`},
		{`{"n": 1.50}`, `{"n":1.50}`}, // numeric literal kept verbatim
		{`"plain string"`, `"plain string"`},
	}
	for _, c := range cases {
		if got := Normalize(c.in); got != c.want {
			t.Fatalf("Normalize(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
