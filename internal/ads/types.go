// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ads

import (
	"strconv"
	"strings"
)

// searchResponse is the envelope returned by /search/query.
type searchResponse struct {
	Response struct {
		NumFound int   `json:"numFound"`
		Docs     []doc `json:"docs"`
	} `json:"response"`
	Error any `json:"error,omitempty"`
}

// doc captures the fields requested through searchFields.
type doc struct {
	Bibcode    string   `json:"bibcode"`
	Identifier []string `json:"identifier"`
	ESources   []string `json:"esources"`
	Property   []string `json:"property"`
	Author     []string `json:"author"`
	Year       string   `json:"year"`
	DOI        []string `json:"doi"`
}

// ADS esource codes that map onto candidate kinds.
const (
	esourceADSPDF    = "ADS_PDF"
	esourceADSScan   = "ADS_SCAN"
	esourceEprintPDF = "EPRINT_PDF"
	esourcePubPDF    = "PUB_PDF"
	esourcePubHTML   = "PUB_HTML"
)

func (d doc) hasESource(codes ...string) bool {
	for _, have := range d.ESources {
		for _, want := range codes {
			if strings.EqualFold(have, want) {
				return true
			}
		}
	}
	return false
}

// firstAuthorSurname returns the surname of the first listed author
// ("Holden, B." → "Holden").
func (d doc) firstAuthorSurname() string {
	if len(d.Author) == 0 {
		return ""
	}
	name, _, _ := strings.Cut(d.Author[0], ",")
	return strings.TrimSpace(name)
}

func (d doc) year() int {
	y, err := strconv.Atoi(strings.TrimSpace(d.Year))
	if err != nil {
		return 0
	}
	return y
}

// errorMessage extracts the "error" member of an ADS error body, which is
// either a string or an object with a "msg" key.
func (r searchResponse) errorMessage() string {
	switch v := r.Error.(type) {
	case string:
		return v
	case map[string]any:
		if msg, ok := v["msg"].(string); ok {
			return msg
		}
	}
	return ""
}
