// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// State is a step in the per-entry acquisition state machine.
type State int

const (
	StateStart State = iota
	StateExtracted
	StateResolved
	StateNamed
	StateFetched
	StateWritten
	StateSkipped
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateStart:
		return "start"
	case StateExtracted:
		return "extracted"
	case StateResolved:
		return "resolved"
	case StateNamed:
		return "named"
	case StateFetched:
		return "fetched"
	case StateWritten:
		return "written"
	case StateSkipped:
		return "skipped"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// MarshalYAML renders the state by name in reports.
func (s State) MarshalYAML() (any, error) {
	return s.String(), nil
}

// Terminal reports whether the state ends an entry's processing.
func (s State) Terminal() bool {
	return s == StateWritten || s == StateSkipped || s == StateFailed
}

// Status is the outcome record for one entry.
type Status struct {
	// Key is the citation key of the entry.
	Key string `json:"key" yaml:"key"`

	// State is the terminal state: written, skipped, or failed.
	State State `json:"state" yaml:"state"`

	// Source is the kind of candidate that produced the file. Only
	// meaningful when State is StateWritten.
	Source SourceKind `json:"-" yaml:"-"`

	// URL is the candidate location the file was downloaded from.
	URL string `json:"url,omitempty" yaml:"url,omitempty"`

	// Path is the output file path (set for written and skipped entries).
	Path string `json:"path,omitempty" yaml:"path,omitempty"`

	// Reason is a human-readable failure description.
	Reason string `json:"reason,omitempty" yaml:"reason,omitempty"`

	// Err is the underlying error for failed entries.
	Err error `json:"-" yaml:"-"`
}
