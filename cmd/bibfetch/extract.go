// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/bibfetch/internal/acquire"
	"github.com/pdiddy/bibfetch/internal/bibtex"
	"github.com/pdiddy/bibfetch/internal/identifier"
	"github.com/pdiddy/bibfetch/pkg/types"
)

var extractCmd = &cobra.Command{
	Use:   "extract <file.bib>",
	Short: "Show the identifiers found in each entry without downloading",
	Long: `Extract parses a BibTeX file and prints, for each entry, the DOI, arXiv
ID, and bibcode that fetch would use, along with the base file name the
entry would get. No network requests are made.`,
	Args: cobra.ExactArgs(1),
	RunE: runExtract,
}

func init() {
	extractCmd.Flags().Bool("missing", false, "only list entries with no DOI or arXiv ID")

	rootCmd.AddCommand(extractCmd)
}

// extractRow is one entry in extract output.
type extractRow struct {
	Key     string `yaml:"key"`
	Author  string `yaml:"author,omitempty"`
	Year    int    `yaml:"year,omitempty"`
	DOI     string `yaml:"doi,omitempty"`
	Arxiv   string `yaml:"arxiv,omitempty"`
	Bibcode string `yaml:"bibcode,omitempty"`
	Name    string `yaml:"name,omitempty"`
}

func runExtract(cmd *cobra.Command, args []string) error {
	entries, err := bibtex.ParseFile(args[0])
	if err != nil {
		return err
	}
	missing, _ := cmd.Flags().GetBool("missing")
	return writeExtract(os.Stdout, entries, missing)
}

// writeExtract renders entries as a YAML list. Names are allocated from a
// fresh RunState so they match what a fetch run would assign, ignoring
// entries that would fail resolution.
func writeExtract(w io.Writer, entries []types.Entry, missingOnly bool) error {
	state := acquire.NewRunState()
	var rows []extractRow
	for _, e := range entries {
		ids := identifier.Extract(e)
		row := extractRow{
			Key:     e.Key,
			Author:  e.FirstAuthor(),
			Year:    e.Year,
			DOI:     ids.DOI,
			Arxiv:   ids.ArxivID,
			Bibcode: ids.Bibcode,
		}
		if name, err := state.Allocate(e.FirstAuthor(), e.Year); err == nil {
			row.Name = name
		}
		if missingOnly && !ids.IsEmpty() {
			continue
		}
		rows = append(rows, row)
	}

	data, err := yaml.Marshal(rows)
	if err != nil {
		return fmt.Errorf("marshaling identifiers: %w", err)
	}
	_, err = w.Write(data)
	return err
}
