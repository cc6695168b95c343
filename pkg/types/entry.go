// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the bibfetch pipeline.
package types

import "strings"

// Entry is one parsed citation record. Entries are produced by the BibTeX
// parser and treated as read-only by the acquisition pipeline.
type Entry struct {
	// Key is the citation key (e.g. "2019ApJ...880...12J" or "smith2020").
	Key string `json:"key" yaml:"key"`

	// Type is the BibTeX entry type, lower-cased (e.g. "article").
	Type string `json:"type,omitempty" yaml:"type,omitempty"`

	// Authors lists author surnames in source order.
	Authors []string `json:"authors" yaml:"authors"`

	// Year is the publication year, or 0 when the entry has none.
	Year int `json:"year" yaml:"year"`

	// Fields holds the raw field values keyed by lower-cased field name.
	Fields map[string]string `json:"fields,omitempty" yaml:"fields,omitempty"`
}

// FirstAuthor returns the first author surname, or "" when the entry has no authors.
func (e Entry) FirstAuthor() string {
	if len(e.Authors) == 0 {
		return ""
	}
	return e.Authors[0]
}

// Field returns the raw value of a field by case-insensitive name.
func (e Entry) Field(name string) string {
	return e.Fields[strings.ToLower(name)]
}

// IdentifierPair holds the stable identifiers derived from an Entry.
// An empty string means the identifier is absent.
type IdentifierPair struct {
	DOI     string `json:"doi,omitempty" yaml:"doi,omitempty"`
	ArxivID string `json:"arxiv_id,omitempty" yaml:"arxiv_id,omitempty"`

	// Bibcode is an ADS bibcode found in the entry. It is only used as a
	// lookup fallback when neither DOI nor arXiv ID is present.
	Bibcode string `json:"bibcode,omitempty" yaml:"bibcode,omitempty"`
}

// IsEmpty reports whether neither a DOI nor an arXiv ID was found.
func (p IdentifierPair) IsEmpty() bool {
	return p.DOI == "" && p.ArxivID == ""
}

// SourceKind tags where a candidate document lives. Lower values are tried first.
type SourceKind int

const (
	SourceHostedPDF SourceKind = iota
	SourceArxiv
	SourcePublisher
)

func (k SourceKind) String() string {
	switch k {
	case SourceHostedPDF:
		return "ads"
	case SourceArxiv:
		return "arxiv"
	case SourcePublisher:
		return "publisher"
	default:
		return "unknown"
	}
}

// MarshalYAML renders the kind by name in reports.
func (k SourceKind) MarshalYAML() (any, error) {
	return k.String(), nil
}

// Candidate is one retrievable document location for an entry.
type Candidate struct {
	Kind SourceKind `json:"kind" yaml:"kind"`
	URL  string     `json:"url" yaml:"url"`
}
