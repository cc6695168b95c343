// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ads looks up citation records in the NASA ADS search API and
// turns the record's full-text sources into ordered download candidates.
package ads

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strings"

	"github.com/pdiddy/bibfetch/internal/httputil"
	"github.com/pdiddy/bibfetch/internal/identifier"
	"github.com/pdiddy/bibfetch/pkg/types"
)

// Default endpoints. Tests substitute httptest servers through ADSConfig.
const (
	DefaultAPIBase      = "https://api.adsabs.harvard.edu/v1"
	DefaultGatewayBase  = "https://ui.adsabs.harvard.edu/link_gateway"
	DefaultArxivPDFBase = "https://arxiv.org/pdf/"
)

const searchFields = "bibcode,identifier,esources,property,author,year,doi"

// Getter is the transport the resolver issues lookups through.
type Getter interface {
	Get(ctx context.Context, rawURL, token string, header http.Header) (*httputil.Response, error)
}

// Resolution is the outcome of one lookup. Failures are reported in Err,
// never returned, so a caller can record them and move on.
type Resolution struct {
	// Query is the ADS query string that was sent.
	Query string

	// Found reports whether ADS matched a record.
	Found bool

	Bibcode     string
	FirstAuthor string
	Year        int

	// Candidates are ordered HostedPDF, Arxiv, Publisher with absent kinds omitted.
	Candidates []types.Candidate

	// Err explains an empty candidate list.
	Err error
}

// Resolver queries ADS for candidate document locations.
type Resolver struct {
	client Getter
	cfg    types.ADSConfig
}

// NewResolver returns a Resolver using client for HTTP and cfg for endpoints.
// Empty endpoints fall back to the public ADS and arXiv URLs.
func NewResolver(client Getter, cfg types.ADSConfig) *Resolver {
	if cfg.APIBase == "" {
		cfg.APIBase = DefaultAPIBase
	}
	if cfg.GatewayBase == "" {
		cfg.GatewayBase = DefaultGatewayBase
	}
	if cfg.ArxivPDFBase == "" {
		cfg.ArxivPDFBase = DefaultArxivPDFBase
	}
	cfg.APIBase = strings.TrimRight(cfg.APIBase, "/")
	cfg.GatewayBase = strings.TrimRight(cfg.GatewayBase, "/")
	return &Resolver{client: client, cfg: cfg}
}

// TokenHosts returns the hosts that may receive the ADS token: the API and
// the link gateway. Download hosts outside this list are fetched without it.
func (r *Resolver) TokenHosts() []string {
	var hosts []string
	for _, base := range []string{r.cfg.APIBase, r.cfg.GatewayBase} {
		u, err := url.Parse(base)
		if err != nil || u.Host == "" || slices.Contains(hosts, u.Host) {
			continue
		}
		hosts = append(hosts, u.Host)
	}
	return hosts
}

// Resolve looks up the record for ids. The DOI is preferred, then the arXiv
// ID, then a bibcode found in the entry.
func (r *Resolver) Resolve(ctx context.Context, ids types.IdentifierPair, token string) Resolution {
	q := BuildQuery(ids)
	if q == "" {
		return Resolution{Err: ErrNoIdentifier}
	}
	return r.lookup(ctx, q, ids.ArxivID, token)
}

// ResolveKey looks up a record by the entry's citation key. Keys exported
// from ADS are bibcodes; others are tried as generic identifiers.
func (r *Resolver) ResolveKey(ctx context.Context, key, token string) Resolution {
	key = strings.TrimSpace(key)
	if key == "" {
		return Resolution{Err: ErrNoIdentifier}
	}
	q := fmt.Sprintf("identifier:%q", key)
	if bib, ok := identifier.MatchBibcode(key); ok {
		q = fmt.Sprintf("bibcode:%q", bib)
	}
	return r.lookup(ctx, q, "", token)
}

// BuildQuery returns the ADS query for ids, or "" when ids holds nothing
// searchable.
func BuildQuery(ids types.IdentifierPair) string {
	switch {
	case ids.DOI != "":
		return fmt.Sprintf("doi:%q", ids.DOI)
	case ids.ArxivID != "":
		return fmt.Sprintf("identifier:%q", "arXiv:"+ids.ArxivID)
	case ids.Bibcode != "":
		return fmt.Sprintf("bibcode:%q", ids.Bibcode)
	default:
		return ""
	}
}

func (r *Resolver) lookup(ctx context.Context, q, arxivID, token string) Resolution {
	res := Resolution{Query: q}

	d, err := r.search(ctx, q, token)
	if err != nil {
		res.Err = err
		return res
	}
	res.Found = true
	res.Bibcode = d.Bibcode
	res.FirstAuthor = d.firstAuthorSurname()
	res.Year = d.year()
	res.Candidates = r.candidates(d, arxivID)
	if len(res.Candidates) == 0 {
		res.Err = fmt.Errorf("%w (bibcode %s)", ErrNoLinks, d.Bibcode)
	}
	return res
}

// search runs q against /search/query and returns the first document.
func (r *Resolver) search(ctx context.Context, q, token string) (doc, error) {
	apiURL, err := httputil.WithQuery(r.cfg.APIBase+"/search/query", url.Values{
		"q":    {q},
		"fl":   {searchFields},
		"rows": {"1"},
	})
	if err != nil {
		return doc{}, err
	}

	resp, err := r.client.Get(ctx, apiURL, token, http.Header{"Accept": {"application/json"}})
	if err != nil {
		return doc{}, fmt.Errorf("ADS API request: %w", err)
	}

	var sr searchResponse
	decodeErr := json.Unmarshal(resp.Body, &sr)

	if !resp.OK() {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if decodeErr == nil {
			apiErr.Message = sr.errorMessage()
		}
		return doc{}, apiErr
	}
	if decodeErr != nil {
		return doc{}, fmt.Errorf("%w: %v", ErrInvalidResponse, decodeErr)
	}
	if sr.Response.NumFound == 0 || len(sr.Response.Docs) == 0 {
		return doc{}, fmt.Errorf("%w for %s", ErrNotFound, q)
	}
	d := sr.Response.Docs[0]
	if d.Bibcode == "" {
		return doc{}, fmt.Errorf("%w: record has no bibcode", ErrInvalidResponse)
	}
	return d, nil
}

// candidates builds the ordered candidate list for d. A known arXiv ID
// points straight at arxiv.org; otherwise the ADS gateway redirects to the
// e-print.
func (r *Resolver) candidates(d doc, arxivID string) []types.Candidate {
	var out []types.Candidate

	if d.hasESource(esourceADSPDF, esourceADSScan) {
		out = append(out, types.Candidate{Kind: types.SourceHostedPDF, URL: r.gateway(d.Bibcode, esourceADSPDF)})
	}

	if arxivID == "" {
		arxivID = arxivFromIdentifiers(d.Identifier)
	}
	switch {
	case arxivID != "":
		out = append(out, types.Candidate{Kind: types.SourceArxiv, URL: r.cfg.ArxivPDFBase + arxivID})
	case d.hasESource(esourceEprintPDF):
		out = append(out, types.Candidate{Kind: types.SourceArxiv, URL: r.gateway(d.Bibcode, esourceEprintPDF)})
	}

	if d.hasESource(esourcePubPDF, esourcePubHTML) {
		out = append(out, types.Candidate{Kind: types.SourcePublisher, URL: r.gateway(d.Bibcode, esourcePubPDF)})
	}
	return out
}

func (r *Resolver) gateway(bibcode, esource string) string {
	return r.cfg.GatewayBase + "/" + url.PathEscape(bibcode) + "/" + esource
}

// arxivFromIdentifiers finds an "arXiv:NNNN.NNNNN" style entry in an ADS
// identifier list. arXiv bibcodes ("2019arXiv190112345S") are ignored.
func arxivFromIdentifiers(ids []string) string {
	for _, s := range ids {
		if !strings.HasPrefix(strings.ToLower(s), "arxiv:") {
			continue
		}
		if id, ok := identifier.MatchArxiv(s); ok {
			return id
		}
	}
	return ""
}
