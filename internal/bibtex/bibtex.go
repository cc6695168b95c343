// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package bibtex parses .bib files into citation entries.
//
// The parser understands the subset of BibTeX that reference managers and
// ADS exports produce: @type{key, name = {value} | "value" | macro, ...}
// with nested braces, # concatenation, and @string macros. @comment and
// @preamble blocks are skipped.
package bibtex

import (
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/pdiddy/bibfetch/pkg/types"
)

// monthMacros are predefined by every BibTeX style.
var monthMacros = map[string]string{
	"jan": "January", "feb": "February", "mar": "March", "apr": "April",
	"may": "May", "jun": "June", "jul": "July", "aug": "August",
	"sep": "September", "oct": "October", "nov": "November", "dec": "December",
}

var yearPattern = regexp.MustCompile(`\d{4}`)

// SyntaxError reports malformed input with its line number.
type SyntaxError struct {
	Line int
	Msg  string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("bibtex: line %d: %s", e.Line, e.Msg)
}

// ParseFile reads and parses the .bib file at path.
func ParseFile(path string) ([]types.Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()
	entries, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return entries, nil
}

// Parse reads BibTeX from r and returns entries in file order.
func Parse(r io.Reader) ([]types.Entry, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading input: %w", err)
	}
	p := &parser{src: []rune(string(data)), macros: map[string]string{}}
	return p.parse()
}

type parser struct {
	src    []rune
	pos    int
	macros map[string]string
}

func (p *parser) parse() ([]types.Entry, error) {
	var entries []types.Entry
	for {
		// Text outside entries is a comment.
		for p.pos < len(p.src) && p.src[p.pos] != '@' {
			p.pos++
		}
		if p.pos >= len(p.src) {
			return entries, nil
		}
		p.pos++ // '@'

		typ := strings.ToLower(p.ident())
		p.skipSpace()
		if p.pos >= len(p.src) || (p.src[p.pos] != '{' && p.src[p.pos] != '(') {
			return nil, p.errorf("expected '{' or '(' after @%s", typ)
		}
		open := p.src[p.pos]
		closer := '}'
		if open == '(' {
			closer = ')'
		}

		switch typ {
		case "comment", "preamble":
			if _, err := p.braced(open, closer); err != nil {
				return nil, err
			}
			continue
		case "string":
			p.pos++
			if err := p.stringMacro(closer); err != nil {
				return nil, err
			}
			continue
		}

		p.pos++
		e, err := p.entry(typ, closer)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
}

// entry parses "key, name = value, ... }" after the opening delimiter.
func (p *parser) entry(typ string, closer rune) (types.Entry, error) {
	p.skipSpace()
	start := p.pos
	for p.pos < len(p.src) && p.src[p.pos] != ',' && p.src[p.pos] != closer && !unicode.IsSpace(p.src[p.pos]) {
		p.pos++
	}
	key := string(p.src[start:p.pos])
	if key == "" {
		return types.Entry{}, p.errorf("@%s entry has no citation key", typ)
	}

	raw := map[string]string{}
	for {
		p.skipSpace()
		if p.pos >= len(p.src) {
			return types.Entry{}, p.errorf("unterminated entry %q", key)
		}
		switch p.src[p.pos] {
		case closer:
			p.pos++
			return buildEntry(typ, key, raw), nil
		case ',':
			p.pos++
			continue
		}

		name := strings.ToLower(p.ident())
		if name == "" {
			return types.Entry{}, p.errorf("expected field name in entry %q", key)
		}
		p.skipSpace()
		if p.pos >= len(p.src) || p.src[p.pos] != '=' {
			return types.Entry{}, p.errorf("expected '=' after field %q in entry %q", name, key)
		}
		p.pos++
		val, err := p.value(closer)
		if err != nil {
			return types.Entry{}, err
		}
		raw[name] = val
	}
}

// stringMacro parses "name = value }" and records the macro.
func (p *parser) stringMacro(closer rune) error {
	p.skipSpace()
	name := strings.ToLower(p.ident())
	p.skipSpace()
	if name == "" || p.pos >= len(p.src) || p.src[p.pos] != '=' {
		return p.errorf("malformed @string")
	}
	p.pos++
	val, err := p.value(closer)
	if err != nil {
		return err
	}
	p.skipSpace()
	if p.pos >= len(p.src) || p.src[p.pos] != closer {
		return p.errorf("unterminated @string %q", name)
	}
	p.pos++
	p.macros[name] = val
	return nil
}

// value parses one or more '#'-joined parts. Braces inside the value are
// kept so author names can still be split correctly.
func (p *parser) value(closer rune) (string, error) {
	var b strings.Builder
	for {
		p.skipSpace()
		if p.pos >= len(p.src) {
			return "", p.errorf("unexpected end of input in field value")
		}
		switch c := p.src[p.pos]; {
		case c == '{':
			s, err := p.braced('{', '}')
			if err != nil {
				return "", err
			}
			b.WriteString(s[1 : len(s)-1])
		case c == '"':
			s, err := p.quoted()
			if err != nil {
				return "", err
			}
			b.WriteString(s)
		default:
			word := p.ident()
			if word == "" {
				return "", p.errorf("unexpected %q in field value", c)
			}
			if _, err := strconv.Atoi(word); err == nil {
				b.WriteString(word)
			} else if m, ok := p.macros[strings.ToLower(word)]; ok {
				b.WriteString(m)
			} else if m, ok := monthMacros[strings.ToLower(word)]; ok {
				b.WriteString(m)
			} else {
				b.WriteString(word)
			}
		}
		p.skipSpace()
		if p.pos < len(p.src) && p.src[p.pos] == '#' {
			p.pos++
			continue
		}
		if p.pos < len(p.src) && (p.src[p.pos] == ',' || p.src[p.pos] == closer) {
			return b.String(), nil
		}
		return "", p.errorf("expected ',' or end of entry after field value")
	}
}

// braced consumes a balanced group starting at the current open delimiter
// and returns it including the delimiters.
func (p *parser) braced(open, closer rune) (string, error) {
	start, line := p.pos, p.line()
	depth := 0
	for ; p.pos < len(p.src); p.pos++ {
		switch p.src[p.pos] {
		case open:
			depth++
		case closer:
			depth--
			if depth == 0 {
				p.pos++
				return string(p.src[start:p.pos]), nil
			}
		}
	}
	return "", &SyntaxError{Line: line, Msg: "unbalanced braces"}
}

// quoted consumes a "..." value; quotes inside braces do not terminate it.
func (p *parser) quoted() (string, error) {
	line := p.line()
	p.pos++
	start := p.pos
	depth := 0
	for ; p.pos < len(p.src); p.pos++ {
		switch p.src[p.pos] {
		case '{':
			depth++
		case '}':
			depth--
		case '"':
			if depth == 0 {
				s := string(p.src[start:p.pos])
				p.pos++
				return s, nil
			}
		}
	}
	return "", &SyntaxError{Line: line, Msg: "unterminated quoted value"}
}

// ident reads a BibTeX identifier: anything up to whitespace or a delimiter.
func (p *parser) ident() string {
	start := p.pos
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		if unicode.IsSpace(c) || strings.ContainsRune(`{}(),="#@`, c) {
			break
		}
		p.pos++
	}
	return string(p.src[start:p.pos])
}

func (p *parser) skipSpace() {
	for p.pos < len(p.src) && unicode.IsSpace(p.src[p.pos]) {
		p.pos++
	}
}

func (p *parser) line() int {
	n := 1
	for _, c := range p.src[:min(p.pos, len(p.src))] {
		if c == '\n' {
			n++
		}
	}
	return n
}

func (p *parser) errorf(format string, args ...any) error {
	return &SyntaxError{Line: p.line(), Msg: fmt.Sprintf(format, args...)}
}

// buildEntry converts raw field values into an Entry. Field values are
// stripped of grouping braces and collapsed to single spaces.
func buildEntry(typ, key string, raw map[string]string) types.Entry {
	e := types.Entry{Key: key, Type: typ, Fields: make(map[string]string, len(raw))}
	for k, v := range raw {
		e.Fields[k] = cleanValue(v)
	}
	authors := raw["author"]
	if strings.TrimSpace(authors) == "" {
		authors = raw["editor"]
	}
	e.Authors = SplitAuthors(authors)
	if y := yearPattern.FindString(raw["year"]); y != "" {
		e.Year, _ = strconv.Atoi(y)
	}
	return e
}

func cleanValue(v string) string {
	v = strings.NewReplacer("{", "", "}", "").Replace(v)
	return strings.Join(strings.Fields(v), " ")
}

// SplitAuthors splits a BibTeX name list on top-level "and" and returns
// each author's surname in order. "others" is dropped.
func SplitAuthors(s string) []string {
	var surnames []string
	for _, name := range splitTopLevel(s) {
		name = strings.TrimSpace(name)
		if name == "" || strings.EqualFold(name, "others") {
			continue
		}
		if sn := surname(name); sn != "" {
			surnames = append(surnames, sn)
		}
	}
	return surnames
}

// splitTopLevel splits on the word "and" outside braces.
func splitTopLevel(s string) []string {
	var parts []string
	words := topLevelWords(s)
	var cur []string
	for _, w := range words {
		if strings.EqualFold(w, "and") {
			parts = append(parts, strings.Join(cur, " "))
			cur = nil
			continue
		}
		cur = append(cur, w)
	}
	if len(cur) > 0 {
		parts = append(parts, strings.Join(cur, " "))
	}
	return parts
}

// topLevelWords splits s on whitespace outside braces, so "{van der Berg}"
// stays one word.
func topLevelWords(s string) []string {
	var words []string
	var b strings.Builder
	depth := 0
	for _, c := range s {
		switch {
		case c == '{':
			depth++
		case c == '}':
			if depth > 0 {
				depth--
			}
		case unicode.IsSpace(c) && depth == 0:
			if b.Len() > 0 {
				words = append(words, b.String())
				b.Reset()
			}
			continue
		}
		b.WriteRune(c)
	}
	if b.Len() > 0 {
		words = append(words, b.String())
	}
	return words
}

// surname extracts the last name from "von Last, Jr, First", "Last, First",
// or "First von Last".
func surname(name string) string {
	depth := 0
	for i, c := range name {
		switch c {
		case '{':
			depth++
		case '}':
			depth--
		case ',':
			if depth == 0 {
				return trimGroup(strings.TrimSpace(name[:i]))
			}
		}
	}
	words := topLevelWords(name)
	if len(words) == 0 {
		return ""
	}
	return trimGroup(words[len(words)-1])
}

// trimGroup removes one pair of braces that wraps the whole string.
func trimGroup(s string) string {
	if len(s) < 2 || s[0] != '{' || s[len(s)-1] != '}' {
		return s
	}
	depth := 0
	for i, c := range s {
		switch c {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 && i != len(s)-1 {
				return s
			}
		}
	}
	return s[1 : len(s)-1]
}
