// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package acquire

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// suffixes are appended in allocation order. The first entry for a key is
// unsuffixed, so lettering starts at "b".
var suffixes = []string{"", "b", "c", "d", "e"}

// MaxNamesPerKey is the number of entries that can share a first author and year.
var MaxNamesPerKey = len(suffixes)

const pdfExt = ".pdf"

type nameKey struct {
	surname string
	year    int
}

// RunState tracks how many names have been handed out per (surname, year)
// during one run. It is not safe for concurrent use.
type RunState struct {
	counts map[nameKey]int
}

// NewRunState returns an empty RunState.
func NewRunState() *RunState {
	return &RunState{counts: make(map[nameKey]int)}
}

// Allocate returns the next output filename for surname and year and
// consumes the slot. The sixth request for the same key fails with
// ErrNameCollisionOverflow and does not consume anything.
func (s *RunState) Allocate(surname string, year int) (string, error) {
	name, err := s.Peek(surname, year)
	if err != nil {
		return "", err
	}
	s.counts[nameKey{NormalizeSurname(surname), year}]++
	return name, nil
}

// Peek returns the name Allocate would return without consuming it.
func (s *RunState) Peek(surname string, year int) (string, error) {
	k := nameKey{NormalizeSurname(surname), year}
	return OutputName(k.surname, year, s.counts[k])
}

// OutputName formats the filename for the ordinal-th (zero-based) entry
// sharing surname and year: "Smith_2020.pdf", "Smith_2020b.pdf", ...
func OutputName(surname string, year, ordinal int) (string, error) {
	if ordinal < 0 || ordinal >= len(suffixes) {
		return "", fmt.Errorf("%w: %s %s already has %d files", ErrNameCollisionOverflow,
			surnameOrDefault(NormalizeSurname(surname)), yearLabel(year), len(suffixes))
	}
	return surnameOrDefault(NormalizeSurname(surname)) + "_" + yearLabel(year) + suffixes[ordinal] + pdfExt, nil
}

func surnameOrDefault(s string) string {
	if s == "" {
		return "Anonymous"
	}
	return s
}

// yearLabel renders a missing year as "nd" (no date).
func yearLabel(year int) string {
	if year <= 0 {
		return "nd"
	}
	return strconv.Itoa(year)
}

// NormalizeSurname turns a BibTeX surname into a filename-safe token. It
// drops braces and LaTeX accent commands ("{\"O}zel" → "Ozel"), keeps only
// the part before a comma, and removes spaces and path separators.
func NormalizeSurname(s string) string {
	if name, _, ok := strings.Cut(s, ","); ok {
		s = name
	}
	var b strings.Builder
	runes := []rune(s)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case r == '\\':
			// Skip the command: either one accent symbol or a run of letters.
			if i+1 < len(runes) && strings.ContainsRune("\"'`^~=.", runes[i+1]) {
				i++
				continue
			}
			j := i + 1
			for j < len(runes) && unicode.IsLetter(runes[j]) {
				j++
			}
			cmd := string(runes[i+1 : j])
			if repl, ok := latexLetters[cmd]; ok {
				b.WriteString(repl)
			}
			i = j - 1
		case r == '{' || r == '}' || r == '~' || unicode.IsSpace(r):
		case strings.ContainsRune(`/:*?"<>|`, r):
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// latexLetters maps LaTeX letter commands onto plain text.
var latexLetters = map[string]string{
	"o": "o", "O": "O", "l": "l", "L": "L", "ss": "ss",
	"ae": "ae", "AE": "AE", "oe": "oe", "OE": "OE",
	"aa": "a", "AA": "A", "i": "i", "j": "j",
}
