// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package acquire

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/pdiddy/bibfetch/internal/httputil"
	"github.com/pdiddy/bibfetch/pkg/types"
)

// Per-candidate failure reasons.
var (
	ErrLoginRedirect = errors.New("redirected to a login page")
	ErrEmptyBody     = errors.New("empty response body")
	ErrNotDocument   = errors.New("response is not a PDF document")
)

// Getter is the transport used for downloads.
type Getter interface {
	Get(ctx context.Context, rawURL, token string, header http.Header) (*httputil.Response, error)
}

// FetchResult is the payload of the first candidate that succeeded.
type FetchResult struct {
	Candidate   types.Candidate
	Body        []byte
	ContentType string

	// Failures lists the candidates tried before the successful one.
	Failures []CandidateFailure
}

// CandidateFailure records why one candidate could not be used.
type CandidateFailure struct {
	Candidate types.Candidate
	Reason    error
}

func (f CandidateFailure) Error() string {
	return fmt.Sprintf("%s (%s): %v", f.Candidate.Kind, f.Candidate.URL, f.Reason)
}

func (f CandidateFailure) Unwrap() error { return f.Reason }

// FetchError is returned when no candidate produced a document. It matches
// ErrAllCandidatesFailed and every individual reason under errors.Is.
type FetchError struct {
	Failures []CandidateFailure
}

func (e *FetchError) Error() string {
	if len(e.Failures) == 0 {
		return ErrAllCandidatesFailed.Error() + ": no candidates"
	}
	parts := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		parts[i] = f.Error()
	}
	return ErrAllCandidatesFailed.Error() + ": " + strings.Join(parts, "; ")
}

func (e *FetchError) Unwrap() []error {
	errs := []error{ErrAllCandidatesFailed}
	for _, f := range e.Failures {
		errs = append(errs, f)
	}
	return errs
}

// Fetcher downloads the first viable candidate.
type Fetcher struct {
	client Getter

	// tokenHosts are the hosts (host:port as in the URL) that receive the
	// API token. Every other host is fetched anonymously.
	tokenHosts map[string]bool

	// OnFailure, when set, is called after each failed candidate.
	OnFailure func(CandidateFailure)
}

// NewFetcher returns a Fetcher that downloads through client. The token is
// only sent to tokenHosts, typically the ADS API and link gateway hosts.
func NewFetcher(client Getter, tokenHosts ...string) *Fetcher {
	f := &Fetcher{client: client, tokenHosts: make(map[string]bool, len(tokenHosts))}
	for _, h := range tokenHosts {
		if h != "" {
			f.tokenHosts[strings.ToLower(h)] = true
		}
	}
	return f
}

// Fetch tries candidates in order and stops at the first one that returns a
// non-empty PDF. Each candidate is attempted exactly once. When all fail, the
// returned *FetchError lists every failure.
func (f *Fetcher) Fetch(ctx context.Context, candidates []types.Candidate, token string) (*FetchResult, error) {
	return f.fetch(ctx, candidates, token, nil)
}

// fetch is Fetch with an extra per-call failure hook, run after OnFailure.
func (f *Fetcher) fetch(ctx context.Context, candidates []types.Candidate, token string, onFailure func(CandidateFailure)) (*FetchResult, error) {
	var failures []CandidateFailure
	for _, c := range candidates {
		if err := ctx.Err(); err != nil {
			failures = append(failures, CandidateFailure{Candidate: c, Reason: err})
			break
		}
		resp, err := f.client.Get(ctx, c.URL, f.tokenFor(c.URL, token), http.Header{"Accept": {"application/pdf"}})
		if err == nil {
			err = checkDocument(c.URL, resp)
		}
		if err != nil {
			cf := CandidateFailure{Candidate: c, Reason: err}
			failures = append(failures, cf)
			if f.OnFailure != nil {
				f.OnFailure(cf)
			}
			if onFailure != nil {
				onFailure(cf)
			}
			continue
		}
		return &FetchResult{
			Candidate:   c,
			Body:        resp.Body,
			ContentType: resp.ContentType,
			Failures:    failures,
		}, nil
	}
	return nil, &FetchError{Failures: failures}
}

// tokenFor returns token when rawURL points at a token host, else "".
func (f *Fetcher) tokenFor(rawURL, token string) string {
	if token == "" {
		return ""
	}
	u, err := url.Parse(rawURL)
	if err != nil || !f.tokenHosts[strings.ToLower(u.Host)] {
		return ""
	}
	return token
}

// checkDocument classifies a response as a usable document or a failure.
func checkDocument(requested string, resp *httputil.Response) error {
	if resp.FinalURL != requested && looksLikeLogin(resp.FinalURL) {
		return fmt.Errorf("%w: %s", ErrLoginRedirect, resp.FinalURL)
	}
	if !resp.OK() {
		return fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	if len(resp.Body) == 0 {
		return ErrEmptyBody
	}
	if !isDocument(resp.ContentType, resp.Body) {
		ct := resp.ContentType
		if ct == "" {
			ct = "no content type"
		}
		return fmt.Errorf("%w (%s)", ErrNotDocument, ct)
	}
	return nil
}

// isDocument accepts PDF content types. Generic binary types are accepted
// when the payload sniffs as PDF.
func isDocument(contentType string, body []byte) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mt = ""
	}
	switch strings.ToLower(mt) {
	case "application/pdf", "application/x-pdf", "application/acrobat":
		return true
	case "", "application/octet-stream", "binary/octet-stream",
		"application/download", "application/force-download", "application/x-download":
		return mimetype.Detect(body).Is("application/pdf")
	default:
		return false
	}
}

var loginMarkers = []string{"login", "signin", "sign-in", "sign_in", "sso", "shibboleth", "/idp/", "wayf", "authenticate"}

// looksLikeLogin reports whether a redirect target is an authentication page.
func looksLikeLogin(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	s := strings.ToLower(u.Host + u.Path)
	for _, m := range loginMarkers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}
