// Package hashing produces stable content digests over semi-structured text.
// The digest doubles as a document identity key (over source URLs) and a
// change-detection signal (over payloads); it carries no security weight.
package hashing

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strings"
)

// HashText normalizes text and returns the SHA-256 of the normalized form,
// rendered as uppercase hex. Two JSON documents differing only in key order
// or insignificant whitespace hash identically.
func HashText(text string) string {
	sum := sha256.Sum256([]byte(Normalize(text)))
	return strings.ToUpper(hex.EncodeToString(sum[:]))
}

// Normalize returns the canonical form of text: JSON re-serialized with
// object keys sorted and whitespace removed when the input parses as a single
// JSON value, the trimmed raw text otherwise. Empty, whitespace-only, and
// BOM-only inputs all normalize to the empty string so they share one digest.
func Normalize(text string) string {
	s := strings.TrimSpace(strings.TrimPrefix(text, "\uFEFF"))
	if s == "" {
		return ""
	}

	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber() // keep numeric literals byte-identical
	var v any
	if err := dec.Decode(&v); err != nil {
		return s
	}
	if dec.More() {
		// trailing content after the first value: not a single JSON document
		return s
	}

	var b strings.Builder
	writeCanonical(&b, v)
	return b.String()
}

// writeCanonical renders v with sorted object keys and no whitespace.
// encoding/json handles the scalar escaping so output matches Marshal byte
// for byte on leaves.
func writeCanonical(b *strings.Builder, v any) {
	switch t := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				b.WriteByte(',')
			}
			kb, _ := json.Marshal(k)
			b.Write(kb)
			b.WriteByte(':')
			writeCanonical(b, t[k])
		}
		b.WriteByte('}')
	case []any:
		b.WriteByte('[')
		for i, e := range t {
			if i > 0 {
				b.WriteByte(',')
			}
			writeCanonical(b, e)
		}
		b.WriteByte(']')
	case json.Number:
		b.WriteString(t.String())
	default:
		eb, _ := json.Marshal(t)
		b.Write(eb)
	}
}
