// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package identifier

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pdiddy/bibfetch/pkg/types"
)

func TestMatchDOI(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		want   string
		wantOK bool
	}{
		{"bare", "10.1145/1234567.1234568", "10.1145/1234567.1234568", true},
		{"nature", "10.1038/s41586-024-07487-w", "10.1038/s41586-024-07487-w", true},
		{"doi prefix", "doi:10.3847/1538-4357/ab2a7c", "10.3847/1538-4357/ab2a7c", true},
		{"resolver url", "https://doi.org/10.1093/mnras/stz1234", "10.1093/mnras/stz1234", true},
		{"url encoded", "https://doi.org/10.1002%2Fasna.201913637", "10.1002/asna.201913637", true},
		{"trailing period", "see 10.1103/PhysRevD.100.123456.", "10.1103/PhysRevD.100.123456", true},
		{"whitespace", "  10.1051/0004-6361/201935447  ", "10.1051/0004-6361/201935447", true},
		{"registrant too short", "10.1/xyz", "", false},
		{"no slash", "10.12345", "", false},
		{"plain text", "not a doi", "", false},
		{"empty", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := MatchDOI(tt.input)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMatchArxiv(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		want   string
		wantOK bool
	}{
		{"new style", "2301.07041", "2301.07041", true},
		{"new style five digit", "2301.12345", "2301.12345", true},
		{"new style versioned", "2301.07041v2", "2301.07041v2", true},
		{"prefixed", "arXiv:1905.01234", "1905.01234", true},
		{"abs url", "https://arxiv.org/abs/2103.00020v1", "2103.00020v1", true},
		{"old style", "astro-ph/0601001", "astro-ph/0601001", true},
		{"old style subject class", "math.GT/0309136", "math.GT/0309136", true},
		{"old style versioned", "hep-th/9901001v3", "hep-th/9901001v3", true},
		{"old style url", "http://arxiv.org/abs/gr-qc/0507068", "gr-qc/0507068", true},
		{"too many digits", "2301.123456", "", false},
		{"too few digits", "2301.123", "", false},
		{"old style short number", "astro-ph/06010", "", false},
		{"plain text", "forthcoming", "", false},
		{"empty", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := MatchArxiv(tt.input)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMatchBibcode(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		want   string
		wantOK bool
	}{
		{"ui abs url", "https://ui.adsabs.harvard.edu/abs/2019ApJ...880...12J", "2019ApJ...880...12J", true},
		{"legacy url", "http://adsabs.harvard.edu/abs/1998AJ....116.1009R", "1998AJ....116.1009R", true},
		{"abstract suffix", "https://ui.adsabs.harvard.edu/abs/2019ApJ...880...12J/abstract", "2019ApJ...880...12J", true},
		{"encoded ampersand", "https://ui.adsabs.harvard.edu/abs/2020A%26A...633A..12S", "2020A&A...633A..12S", true},
		{"bare", "2016PhRvL.116f1102A", "2016PhRvL.116f1102A", true},
		{"citation key", "smith2020", "", false},
		{"empty", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := MatchBibcode(tt.input)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtract(t *testing.T) {
	tests := []struct {
		name   string
		fields map[string]string
		want   types.IdentifierPair
	}{
		{
			name:   "doi and eprint",
			fields: map[string]string{"doi": "10.3847/1538-4357/ab2a7c", "eprint": "1906.01234"},
			want:   types.IdentifierPair{DOI: "10.3847/1538-4357/ab2a7c", ArxivID: "1906.01234"},
		},
		{
			name:   "doi only",
			fields: map[string]string{"doi": "10.1093/mnras/stz1234"},
			want:   types.IdentifierPair{DOI: "10.1093/mnras/stz1234"},
		},
		{
			name:   "old style eprint",
			fields: map[string]string{"eprint": "astro-ph/0601001", "archiveprefix": "arXiv"},
			want:   types.IdentifierPair{ArxivID: "astro-ph/0601001"},
		},
		{
			name:   "arxiv url",
			fields: map[string]string{"url": "https://arxiv.org/abs/2103.00020"},
			want:   types.IdentifierPair{ArxivID: "2103.00020"},
		},
		{
			name:   "doi from url",
			fields: map[string]string{"url": "https://doi.org/10.1103/PhysRevLett.116.061102"},
			want:   types.IdentifierPair{DOI: "10.1103/PhysRevLett.116.061102"},
		},
		{
			name:   "non-arxiv url ignored for arxiv",
			fields: map[string]string{"url": "https://example.org/papers/2103.00020.pdf"},
			want:   types.IdentifierPair{},
		},
		{
			name: "adsurl bibcode",
			fields: map[string]string{
				"adsurl": "https://ui.adsabs.harvard.edu/abs/1998AJ....116.1009R",
			},
			want: types.IdentifierPair{Bibcode: "1998AJ....116.1009R"},
		},
		{
			name:   "doi field wins over url",
			fields: map[string]string{"doi": "10.1051/0004-6361/201935447", "url": "https://doi.org/10.9999/other"},
			want:   types.IdentifierPair{DOI: "10.1051/0004-6361/201935447"},
		},
		{
			name:   "no identifiers",
			fields: map[string]string{"title": "A Study", "journal": "ApJ"},
			want:   types.IdentifierPair{},
		},
		{
			name:   "short registrant doi field taken verbatim",
			fields: map[string]string{"doi": " doi:10.1/xyz "},
			want:   types.IdentifierPair{DOI: "10.1/xyz"},
		},
		{
			name:   "short registrant outside doi field ignored",
			fields: map[string]string{"note": "10.1/xyz"},
			want:   types.IdentifierPair{},
		},
		{
			name:   "unmatched strings",
			fields: map[string]string{"doi": "pending", "eprint": "unknown"},
			want:   types.IdentifierPair{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Extract(types.Entry{Key: "k", Fields: tt.fields})
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIdentifierPairIsEmpty(t *testing.T) {
	assert.True(t, types.IdentifierPair{}.IsEmpty())
	assert.True(t, types.IdentifierPair{Bibcode: "2016PhRvL.116f1102A"}.IsEmpty())
	assert.False(t, types.IdentifierPair{DOI: "10.1234/x"}.IsEmpty())
	assert.False(t, types.IdentifierPair{ArxivID: "2301.07041"}.IsEmpty())
}
