// Package bibtex converts citation records to and from the BibTeX text
// interchange format.
//
// The parser is a best-effort block scanner, not a full BibTeX grammar:
// malformed blocks are silently skipped, and round-tripping through
// Parse∘Serialize is field-content-preserving only for the fields the codec
// knows about.
package bibtex

// Entry is the transient form produced during import/export. It is created
// by the codec, consumed immediately and never persisted.
type Entry struct {
	Type   string
	Key    string
	Fields map[string]string
}

// DefaultTitle is used when a parsed entry carries no title field.
const DefaultTitle = "Untitled Reference"
