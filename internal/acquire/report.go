// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package acquire

import (
	"fmt"
	"os"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/bibfetch/pkg/types"
)

// Report is the on-disk record of a run, written with --report.
type Report struct {
	Source    string        `yaml:"source,omitempty"`
	OutputDir string        `yaml:"output_dir"`
	Overwrite bool          `yaml:"overwrite"`
	Entries   []ReportEntry `yaml:"entries"`
	Summary   ReportSummary `yaml:"summary"`
}

// ReportEntry is one entry's status in serializable form.
type ReportEntry struct {
	Key    string `yaml:"key"`
	State  string `yaml:"state"`
	Source string `yaml:"source,omitempty"`
	URL    string `yaml:"url,omitempty"`
	Path   string `yaml:"path,omitempty"`
	Reason string `yaml:"reason,omitempty"`
}

// ReportSummary stores the counts and completion time.
type ReportSummary struct {
	Written   int       `yaml:"written"`
	Skipped   int       `yaml:"skipped"`
	Failed    int       `yaml:"failed"`
	Total     int       `yaml:"total"`
	Timestamp time.Time `yaml:"timestamp"`
}

// NewReport converts a RunResult into a Report.
func NewReport(source string, opts Options, result RunResult) Report {
	r := Report{
		Source:    source,
		OutputDir: opts.OutputDir,
		Overwrite: opts.Overwrite,
		Summary: ReportSummary{
			Written:   result.Written,
			Skipped:   result.Skipped,
			Failed:    result.Failed,
			Total:     result.Total(),
			Timestamp: time.Now().UTC(),
		},
	}
	for _, st := range result.Statuses {
		e := ReportEntry{
			Key:    st.Key,
			State:  st.State.String(),
			Path:   st.Path,
			Reason: st.Reason,
		}
		if st.State == types.StateWritten {
			e.Source = st.Source.String()
			e.URL = st.URL
		}
		r.Entries = append(r.Entries, e)
	}
	return r
}

// WriteReport saves r to path as YAML.
func WriteReport(path string, r Report) error {
	data, err := yaml.Marshal(&r)
	if err != nil {
		return fmt.Errorf("marshaling report: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadReport loads a report written by WriteReport.
func ReadReport(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading report: %w", err)
	}
	var r Report
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parsing report: %w", err)
	}
	return &r, nil
}
