package policy

import (
	"bytes"
	"fmt"
	"slices"
	"strings"
)

// Rule is the input form of a single policy entry.
type Rule struct {
	Extension  string
	MIMETypes  []string
	MaxSize    int64
	Signatures [][]byte
}

// Entry is the read-only policy for one extension.
type Entry struct {
	extension  string
	mimeTypes  []string
	maxSize    int64
	signatures [][]byte
}

func (e *Entry) Extension() string {
	return e.extension
}

func (e *Entry) MaxSize() int64 {
	return e.maxSize
}

// AcceptsMIME reports whether contentType is one of the entry's MIME types.
// The comparison ignores case and surrounding whitespace.
func (e *Entry) AcceptsMIME(contentType string) bool {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	return slices.Contains(e.mimeTypes, ct)
}

func (e *Entry) MIMETypes() []string {
	return slices.Clone(e.mimeTypes)
}

func (e *Entry) HasSignatures() bool {
	return len(e.signatures) > 0
}

// Signatures returns copies of the magic-byte alternatives.
func (e *Entry) Signatures() [][]byte {
	out := make([][]byte, len(e.signatures))
	for i, sig := range e.signatures {
		out[i] = bytes.Clone(sig)
	}
	return out
}

// Table maps extensions to their upload policy and holds the destination
// allow-list. A Table has no mutation methods; build it once and share it.
type Table struct {
	entries      map[string]*Entry
	extensions   []string
	destinations []string
	window       int
}

func New(rules []Rule, destinations []string) (*Table, error) {
	if len(rules) == 0 {
		return nil, fmt.Errorf("policy table needs at least one rule")
	}
	if len(destinations) == 0 {
		return nil, fmt.Errorf("policy table needs at least one destination")
	}

	t := &Table{
		entries: make(map[string]*Entry, len(rules)),
	}

	for _, r := range rules {
		ext := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(r.Extension), "."))
		if ext == "" {
			return nil, fmt.Errorf("policy rule has empty extension")
		}
		if _, dup := t.entries[ext]; dup {
			return nil, fmt.Errorf("duplicate policy rule for %q", ext)
		}
		if len(r.MIMETypes) == 0 {
			return nil, fmt.Errorf("policy rule %q has no MIME types", ext)
		}
		if r.MaxSize <= 0 {
			return nil, fmt.Errorf("policy rule %q has non-positive max size %d", ext, r.MaxSize)
		}

		entry := &Entry{
			extension: ext,
			maxSize:   r.MaxSize,
		}
		for _, m := range r.MIMETypes {
			entry.mimeTypes = append(entry.mimeTypes, strings.ToLower(strings.TrimSpace(m)))
		}
		for _, sig := range r.Signatures {
			if len(sig) == 0 {
				return nil, fmt.Errorf("policy rule %q has an empty signature", ext)
			}
			entry.signatures = append(entry.signatures, bytes.Clone(sig))
			t.window = max(t.window, len(sig))
		}

		t.entries[ext] = entry
		t.extensions = append(t.extensions, ext)
	}

	for _, d := range destinations {
		d = strings.TrimSpace(d)
		if d == "" {
			return nil, fmt.Errorf("policy destination must not be empty")
		}
		if !slices.Contains(t.destinations, d) {
			t.destinations = append(t.destinations, d)
		}
	}

	return t, nil
}

func MustNew(rules []Rule, destinations []string) *Table {
	t, err := New(rules, destinations)
	if err != nil {
		panic(err)
	}
	return t
}

// Lookup returns the entry for a lowercase extension without the leading dot.
func (t *Table) Lookup(ext string) (*Entry, bool) {
	e, ok := t.entries[ext]
	return e, ok
}

// Extensions lists the allowed extensions in declaration order.
func (t *Table) Extensions() []string {
	return slices.Clone(t.extensions)
}

func (t *Table) AllowsDestination(dest string) bool {
	return slices.Contains(t.destinations, dest)
}

func (t *Table) Destinations() []string {
	return slices.Clone(t.destinations)
}

// DefaultDestination is the first allow-listed destination.
func (t *Table) DefaultDestination() string {
	return t.destinations[0]
}

// SignatureWindow is the length of the longest configured signature.
func (t *Table) SignatureWindow() int {
	return t.window
}
