// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package identifier derives DOIs, arXiv IDs, and ADS bibcodes from the raw
// fields of a citation entry.
package identifier

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/pdiddy/bibfetch/pkg/types"
)

// doiPattern matches DOIs anywhere in a string: "10.1145/1234567.1234568".
var doiPattern = regexp.MustCompile(`10\.\d{4,9}/\S+`)

// arxivPattern matches new-style IDs ("2301.07041", "2301.07041v2") and
// old-style IDs ("astro-ph/0601001", "math.GT/0309136v1").
var arxivPattern = regexp.MustCompile(`(?:^|[^\d.])(\d{4}\.\d{4,5}(?:v\d+)?)(?:$|[^\d])|(?:^|[^\w-])([a-z]+(?:-[a-z]+)*(?:\.[A-Z]{2})?/\d{7}(?:v\d+)?)`)

// bibcodePattern matches the 19-character ADS bibcode inside an ADS abstract URL.
var bibcodePattern = regexp.MustCompile(`/abs/(\d{4}[A-Za-z&.][^/\s?#]{14})`)

// bareBibcodePattern matches a string that is itself a bibcode.
var bareBibcodePattern = regexp.MustCompile(`^\d{4}[A-Za-z&][A-Za-z&.\d]{14}$`)

// Fields inspected for each identifier, in priority order.
var (
	doiFields   = []string{"doi", "url", "adsurl", "note"}
	arxivFields = []string{"eprint", "arxivid", "arxiv", "url", "note"}
)

// Extract derives the DOI, arXiv ID, and ADS bibcode from an entry's raw
// fields. It never contacts the network; absent identifiers are left empty.
func Extract(entry types.Entry) types.IdentifierPair {
	var ids types.IdentifierPair
	for _, f := range doiFields {
		if doi, ok := MatchDOI(entry.Field(f)); ok {
			ids.DOI = doi
			break
		}
	}
	if ids.DOI == "" {
		ids.DOI = rawDOI(entry.Field("doi"))
	}
	for _, f := range arxivFields {
		v := entry.Field(f)
		// Only trust arXiv-shaped substrings of generic fields when they
		// point at arXiv.
		if (f == "url" || f == "note") && !strings.Contains(strings.ToLower(v), "arxiv") {
			continue
		}
		if id, ok := MatchArxiv(v); ok {
			ids.ArxivID = id
			break
		}
	}
	if bib, ok := MatchBibcode(entry.Field("adsurl")); ok {
		ids.Bibcode = bib
	}
	return ids
}

// rawDOI takes an explicit doi field verbatim when the pattern rejects it,
// provided it still looks like prefix/suffix.
func rawDOI(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 4 && strings.EqualFold(s[:4], "doi:") {
		s = strings.TrimSpace(s[4:])
	}
	if s == "" || strings.ContainsAny(s, " \t\r\n") || !strings.Contains(s, "/") {
		return ""
	}
	return s
}

// MatchDOI returns the first DOI-shaped substring of s. URL-encoded DOIs
// (as found in doi.org links) are decoded and trailing punctuation is trimmed.
func MatchDOI(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	if dec, err := url.PathUnescape(s); err == nil {
		s = dec
	}
	m := doiPattern.FindString(s)
	if m == "" {
		return "", false
	}
	m = strings.TrimRight(m, ".,;:)}]\"'")
	if !doiPattern.MatchString(m) {
		return "", false
	}
	return m, true
}

// MatchArxiv returns the first arXiv identifier in s, stripped of any
// "arXiv:" prefix or URL.
func MatchArxiv(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	m := arxivPattern.FindStringSubmatch(s)
	if m == nil {
		return "", false
	}
	if m[1] != "" {
		return m[1], true
	}
	return m[2], true
}

// MatchBibcode returns the ADS bibcode from an ADS abstract URL, or s itself
// when it is a bare bibcode.
func MatchBibcode(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	if dec, err := url.PathUnescape(s); err == nil {
		s = dec
	}
	if m := bibcodePattern.FindStringSubmatch(s); m != nil {
		return m[1], true
	}
	if bareBibcodePattern.MatchString(s) {
		return s, true
	}
	return "", false
}
