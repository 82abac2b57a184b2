// Package jsonref walks JSON documents and collects embedded cross-reference
// URIs, the sourcing hints a provider leaves inside its payloads.
package jsonref

import (
	"bytes"
	"encoding/json"
	"net/url"
)

// Marker is the property name that carries a cross-reference URI
const Marker = "$ref"

// ExtractRefs returns every valid reference URI found anywhere in doc, in
// document order, without deduplication. Malformed reference strings are
// skipped: references are a best-effort sourcing hint, not a format contract.
// A doc that is not valid JSON yields nil.
//
// The walk uses the token stream rather than a decoded map so document order
// survives; nesting depth is limited only by the decoder itself.
func ExtractRefs(doc []byte) []*url.URL {
	dec := json.NewDecoder(bytes.NewReader(doc))
	w := walker{dec: dec}
	if err := w.value(); err != nil {
		return nil
	}
	return w.refs
}

type walker struct {
	dec  *json.Decoder
	refs []*url.URL
}

// value consumes exactly one JSON value from the stream
func (w *walker) value() error {
	t, err := w.dec.Token()
	if err != nil {
		return err
	}
	return w.after(t)
}

// after continues from an already-read leading token
func (w *walker) after(t json.Token) error {
	if d, ok := t.(json.Delim); ok {
		switch d {
		case '{':
			return w.object()
		case '[':
			return w.array()
		}
	}
	return nil // scalar
}

func (w *walker) object() error {
	for w.dec.More() {
		kt, err := w.dec.Token()
		if err != nil {
			return err
		}
		key, _ := kt.(string)

		vt, err := w.dec.Token()
		if err != nil {
			return err
		}
		if key == Marker {
			if s, ok := vt.(string); ok {
				w.addRef(s)
				continue
			}
		}
		if err := w.after(vt); err != nil {
			return err
		}
	}
	_, err := w.dec.Token() // consume '}'
	return err
}

func (w *walker) array() error {
	for w.dec.More() {
		if err := w.value(); err != nil {
			return err
		}
	}
	_, err := w.dec.Token() // consume ']'
	return err
}

func (w *walker) addRef(s string) {
	u, err := url.Parse(s)
	// the scheme/host check is about fetchability, not URI validity: a
	// relative ref parses fine but has no base here to resolve against,
	// so the sourcer could never fetch it
	if err != nil || u.Scheme == "" || u.Host == "" {
		return
	}
	w.refs = append(w.refs, u)
}
