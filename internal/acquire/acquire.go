// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package acquire drives citation entries through identifier extraction,
// ADS resolution, naming, download, and persistence.
package acquire

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/pdiddy/bibfetch/internal/ads"
	"github.com/pdiddy/bibfetch/internal/identifier"
	"github.com/pdiddy/bibfetch/pkg/types"
)

// Resolver finds candidate document locations for an entry.
type Resolver interface {
	Resolve(ctx context.Context, ids types.IdentifierPair, token string) ads.Resolution
	ResolveKey(ctx context.Context, key, token string) ads.Resolution
}

// Recorder receives the terminal status of every entry.
type Recorder interface {
	Record(ctx context.Context, st types.Status) error
}

// Options controls a single run.
type Options struct {
	Token     string
	OutputDir string
	Overwrite bool
	Verbose   bool

	// Delay is the pause between consecutive entries.
	Delay time.Duration

	// Only, when set, selects the entries to process. Other entries still
	// reserve their file name, so suffixes match a full run, but they are
	// not fetched and produce no status.
	Only func(key string) bool
}

// RunResult holds the outcome of a run.
type RunResult struct {
	Written  int
	Skipped  int
	Failed   int
	Statuses []types.Status
}

// Total returns the number of entries processed.
func (r RunResult) Total() int {
	return r.Written + r.Skipped + r.Failed
}

// HasFailures reports whether any entry failed.
func (r RunResult) HasFailures() bool {
	return r.Failed > 0
}

// Pipeline processes entries one at a time in input order.
type Pipeline struct {
	Resolver Resolver
	Fetcher  *Fetcher

	// Recorder is optional.
	Recorder Recorder

	// Out receives status lines. Failures and skips are always reported;
	// successful downloads and per-candidate failures only when verbose.
	Out io.Writer
}

// Run processes entries sequentially with a fresh RunState. A failed entry
// never stops the run. Cancelling ctx stops after the current entry.
func (p *Pipeline) Run(ctx context.Context, entries []types.Entry, opts Options) RunResult {
	w := p.Out
	if w == nil {
		w = io.Discard
	}
	if opts.OutputDir == "" {
		opts.OutputDir = "."
	}

	var onFailure func(CandidateFailure)
	if opts.Verbose {
		onFailure = func(cf CandidateFailure) {
			fmt.Fprintf(w, "  %s failed: %v\n", cf.Candidate.Kind, cf.Reason)
		}
	}

	state := NewRunState()
	var (
		result         RunResult
		processed      int
		warnedAuth     bool
		warnedThrottle bool
	)
	for _, e := range entries {
		if opts.Only != nil && !opts.Only(e.Key) {
			p.reserveName(ctx, state, e, opts.Token)
			continue
		}
		if processed > 0 && opts.Delay > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(opts.Delay):
			}
		}
		if ctx.Err() != nil {
			fmt.Fprintf(w, "stopped: %v (%d entries processed)\n", ctx.Err(), processed)
			break
		}
		processed++

		st := p.processEntry(ctx, state, e, opts, onFailure)
		switch st.State {
		case types.StateWritten:
			result.Written++
			if opts.Verbose {
				fmt.Fprintf(w, "written: %s from %s (%s)\n", filepath.Base(st.Path), st.Source, st.URL)
			}
		case types.StateSkipped:
			result.Skipped++
			fmt.Fprintf(w, "skipped: %s (already exists)\n", filepath.Base(st.Path))
		default:
			result.Failed++
			switch {
			case !warnedAuth && ads.IsAuthError(st.Err):
				warnedAuth = true
				fmt.Fprintln(w, "warning: ADS rejected the API token; check ADS_API_TOKEN or --token")
			case !warnedThrottle && ads.IsRateLimited(st.Err):
				warnedThrottle = true
				fmt.Fprintln(w, "warning: ADS rate limit reached; later lookups may fail until it resets")
			}
			fmt.Fprintf(w, "failed:  %s (%s)\n", st.Key, st.Reason)
		}
		result.Statuses = append(result.Statuses, st)

		if p.Recorder != nil {
			if err := p.Recorder.Record(ctx, st); err != nil {
				fmt.Fprintf(w, "  warning: recording status for %s: %v\n", st.Key, err)
			}
		}
	}
	return result
}

// resolve looks the entry up by its identifiers, or by citation key when it
// has none.
func (p *Pipeline) resolve(ctx context.Context, e types.Entry, ids types.IdentifierPair, token string) ads.Resolution {
	if ids.IsEmpty() && ids.Bibcode == "" {
		return p.Resolver.ResolveKey(ctx, e.Key, token)
	}
	return p.Resolver.Resolve(ctx, ids, token)
}

// nameParts returns the surname and year used for naming, falling back to
// the ADS record when the entry lacks them.
func nameParts(e types.Entry, res ads.Resolution) (string, int) {
	surname, year := e.FirstAuthor(), e.Year
	if NormalizeSurname(surname) == "" {
		surname = res.FirstAuthor
	}
	if year <= 0 {
		year = res.Year
	}
	return surname, year
}

// reserveName takes the name slot e would get in a full run. ADS is only
// consulted when the entry itself lacks an author or year.
func (p *Pipeline) reserveName(ctx context.Context, state *RunState, e types.Entry, token string) {
	var res ads.Resolution
	if NormalizeSurname(e.FirstAuthor()) == "" || e.Year <= 0 {
		res = p.resolve(ctx, e, identifier.Extract(e), token)
		if len(res.Candidates) == 0 {
			return
		}
	}
	surname, year := nameParts(e, res)
	_, _ = state.Allocate(surname, year)
}

// processEntry walks one entry through the state machine and returns its
// terminal status.
func (p *Pipeline) processEntry(ctx context.Context, state *RunState, e types.Entry, opts Options, onFailure func(CandidateFailure)) types.Status {
	st := types.Status{Key: e.Key, State: types.StateStart}

	ids := identifier.Extract(e)
	st.State = types.StateExtracted

	res := p.resolve(ctx, e, ids, opts.Token)
	if ids.IsEmpty() && !res.Found {
		return fail(st, ErrUnresolvable, res.Err)
	}
	st.State = types.StateResolved
	if len(res.Candidates) == 0 {
		return fail(st, ErrNoCandidates, res.Err)
	}

	name, err := state.Allocate(nameParts(e, res))
	if err != nil {
		return fail(st, err, nil)
	}
	st.State = types.StateNamed
	st.Path = filepath.Join(opts.OutputDir, name)

	if !opts.Overwrite {
		if _, err := os.Stat(st.Path); err == nil {
			st.State = types.StateSkipped
			return st
		}
	}

	fr, err := p.Fetcher.fetch(ctx, res.Candidates, opts.Token, onFailure)
	if err != nil {
		return fail(st, err, nil)
	}
	st.State = types.StateFetched

	if err := writeFile(st.Path, fr.Body); err != nil {
		return fail(st, ErrWrite, err)
	}
	st.State = types.StateWritten
	st.Source = fr.Candidate.Kind
	st.URL = fr.Candidate.URL
	return st
}

// fail marks st failed. kind is matched by errors.Is; cause adds detail.
func fail(st types.Status, kind, cause error) types.Status {
	st.State = types.StateFailed
	switch {
	case cause == nil:
		st.Err = kind
	case errors.Is(cause, kind):
		st.Err = cause
	default:
		st.Err = fmt.Errorf("%w: %w", kind, cause)
	}
	st.Reason = st.Err.Error()
	return st
}

// writeFile writes data to destPath through a temporary file in the same
// directory, so an interrupted run never leaves a partial PDF behind.
func writeFile(destPath string, data []byte) error {
	dir := filepath.Dir(destPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating directory %s: %w", dir, err)
	}

	tmpFile, err := os.CreateTemp(dir, ".bibfetch-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	_, writeErr := tmpFile.Write(data)
	closeErr := tmpFile.Close()
	if writeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("writing download: %w", writeErr)
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", closeErr)
	}

	if err := os.Chmod(tmpPath, 0o644); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("setting permissions: %w", err)
	}
	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}
