// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/bibfetch/internal/acquire"
	"github.com/pdiddy/bibfetch/internal/ads"
	"github.com/pdiddy/bibfetch/internal/bibtex"
	"github.com/pdiddy/bibfetch/internal/httputil"
	"github.com/pdiddy/bibfetch/internal/ledger"
	"github.com/pdiddy/bibfetch/internal/secrets"
	"github.com/pdiddy/bibfetch/pkg/types"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch <file.bib>",
	Short: "Download a PDF for every entry in a BibTeX file",
	Long: `Fetch processes the entries of a BibTeX file in order. Each entry is
resolved through ADS; candidates are tried once each (ADS-hosted PDF, arXiv,
publisher) and the first real PDF is saved. A failing entry never stops the
run. The command exits non-zero if any entry failed.

Outcomes are recorded in a SQLite ledger (default <output-dir>/.bibfetch/ledger.db)
unless --no-ledger; use --retry-failed to process only entries whose last
recorded outcome was a failure.`,
	Args: cobra.ExactArgs(1),
	RunE: runFetch,
}

func init() {
	fetchCmd.Flags().StringP("output-dir", "o", ".", "directory PDFs are written to")
	fetchCmd.Flags().Bool("overwrite", false, "re-download entries whose file already exists")
	fetchCmd.Flags().BoolP("verbose", "v", false, "report every download and candidate failure")
	fetchCmd.Flags().String("token", "", "ADS API token (overrides ADS_API_TOKEN and .secrets/ads-api-token)")
	fetchCmd.Flags().Duration("timeout", defaultTimeout, "HTTP request timeout")
	fetchCmd.Flags().Duration("delay", defaultDelay, "delay between consecutive entries")
	fetchCmd.Flags().Float64("rate-limit", 0, "maximum HTTP requests per second (0 for unlimited)")
	fetchCmd.Flags().String("report", "", "write a YAML run report to this path")
	fetchCmd.Flags().String("ledger", "", "ledger database path (default <output-dir>/.bibfetch/ledger.db)")
	fetchCmd.Flags().Bool("no-ledger", false, "do not record outcomes")
	fetchCmd.Flags().Bool("retry-failed", false, "only process entries whose last recorded outcome failed")

	rootCmd.AddCommand(fetchCmd)
}

// fetchConfig merges flags, config file, and environment.
func fetchConfig(cmd *cobra.Command) types.AcquisitionConfig {
	cfg := types.AcquisitionConfig{
		HTTPConfig: types.HTTPConfig{
			Timeout:   durationSetting(cmd, "timeout", "timeout"),
			UserAgent: viper.GetString("user_agent"),
			RateLimit: floatSetting(cmd, "rate-limit", "rate_limit"),
		},
		ADS: types.ADSConfig{
			APIBase:      viper.GetString("ads.api_base"),
			GatewayBase:  viper.GetString("ads.gateway_base"),
			ArxivPDFBase: viper.GetString("ads.arxiv_pdf_base"),
		},
		OutputDir:     stringSetting(cmd, "output-dir", "output_dir"),
		Overwrite:     boolSetting(cmd, "overwrite", "overwrite"),
		Verbose:       boolSetting(cmd, "verbose", "verbose"),
		DownloadDelay: durationSetting(cmd, "delay", "delay"),
		LedgerPath:    ledgerPath(cmd),
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = "."
	}
	return cfg
}

// ledgerPath returns the configured ledger location, or "" when disabled.
func ledgerPath(cmd *cobra.Command) string {
	if off, _ := cmd.Flags().GetBool("no-ledger"); off {
		return ""
	}
	if p := stringSetting(cmd, "ledger", "ledger"); p != "" {
		return p
	}
	return filepath.Join(stringSetting(cmd, "output-dir", "output_dir"), ledger.DefaultPath)
}

func runFetch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	bibPath := args[0]
	cfg := fetchConfig(cmd)

	entries, err := bibtex.ParseFile(bibPath)
	if err != nil {
		return err
	}

	flagToken, _ := cmd.Flags().GetString("token")
	token, src := secrets.Token(flagToken, loadedSecrets)
	if src == secrets.SourceNone {
		fmt.Fprintf(os.Stderr, "warning: no ADS API token; set %s or .secrets/%s\n", secrets.TokenEnv, secrets.TokenFile)
	}

	var store *ledger.Store
	if cfg.LedgerPath != "" {
		store, err = ledger.Open(cfg.LedgerPath)
		if err != nil {
			return err
		}
		defer store.Close()
	}

	// A retry still walks the whole file so file name suffixes match the
	// run that recorded the failures.
	var only func(string) bool
	if retry, _ := cmd.Flags().GetBool("retry-failed"); retry {
		if store == nil {
			return fmt.Errorf("--retry-failed needs the ledger")
		}
		var n int
		only, n, err = failedFilter(ctx, store, entries)
		if err != nil {
			return err
		}
		if n == 0 {
			entries = nil
		}
	}
	if len(entries) == 0 {
		fmt.Println("Nothing to fetch.")
		return nil
	}

	client := httputil.NewClient(nil, cfg.HTTPConfig)
	resolver := ads.NewResolver(client, cfg.ADS)
	p := &acquire.Pipeline{
		Resolver: resolver,
		Fetcher:  acquire.NewFetcher(client, resolver.TokenHosts()...),
		Out:      os.Stdout,
	}

	var run *ledger.Run
	if store != nil {
		run, err = store.BeginRun(ctx, ledger.RunInfo{Source: bibPath, OutputDir: cfg.OutputDir, Overwrite: cfg.Overwrite})
		if err != nil {
			return err
		}
		p.Recorder = run
	}

	opts := acquire.Options{
		Token:     token,
		OutputDir: cfg.OutputDir,
		Overwrite: cfg.Overwrite,
		Verbose:   cfg.Verbose,
		Delay:     cfg.DownloadDelay,
		Only:      only,
	}
	result := p.Run(ctx, entries, opts)

	if run != nil {
		// The run context may already be cancelled; still close out the row.
		if err := run.Finish(context.WithoutCancel(ctx), result.Written, result.Skipped, result.Failed); err != nil {
			fmt.Fprintf(os.Stderr, "warning: %v\n", err)
		}
	}

	if reportPath, _ := cmd.Flags().GetString("report"); reportPath != "" {
		if err := acquire.WriteReport(reportPath, acquire.NewReport(bibPath, opts, result)); err != nil {
			return err
		}
	}

	printSummary(os.Stdout, result)
	if result.HasFailures() {
		return fmt.Errorf("%d entr%s failed", result.Failed, plural(result.Failed, "y", "ies"))
	}
	return ctx.Err()
}

// failedFilter selects the keys whose latest ledger outcome is a failure and
// reports how many of entries it selects.
func failedFilter(ctx context.Context, store *ledger.Store, entries []types.Entry) (func(string) bool, int, error) {
	keys, err := store.FailedKeys(ctx)
	if err != nil {
		return nil, 0, err
	}
	failed := make(map[string]bool, len(keys))
	for _, k := range keys {
		failed[k] = true
	}
	n := 0
	for _, e := range entries {
		if failed[e.Key] {
			n++
		}
	}
	return func(key string) bool { return failed[key] }, n, nil
}

func printSummary(w io.Writer, r acquire.RunResult) {
	fmt.Fprintf(w, "\nDone: %d written, %d skipped, %d failed (%d total)\n",
		r.Written, r.Skipped, r.Failed, r.Total())
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
