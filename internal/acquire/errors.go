// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package acquire

import "errors"

// Entry-scoped failure kinds. Every failed Status wraps exactly one of these.
var (
	// ErrUnresolvable means the entry has no DOI or arXiv ID and ADS matched
	// nothing for its bibcode or citation key.
	ErrUnresolvable = errors.New("unresolvable entry")

	// ErrNoCandidates means ADS returned no document links for the entry.
	ErrNoCandidates = errors.New("no candidate sources")

	// ErrAllCandidatesFailed means every candidate download attempt failed.
	ErrAllCandidatesFailed = errors.New("all candidate sources failed")

	// ErrNameCollisionOverflow means a sixth entry shares a first author and year.
	ErrNameCollisionOverflow = errors.New("too many entries with the same first author and year")

	// ErrWrite means the downloaded document could not be written to disk.
	ErrWrite = errors.New("writing output file")
)
