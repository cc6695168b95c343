// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by every network call.
type HTTPConfig struct {
	// Timeout bounds each individual HTTP request.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "bibfetch/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`

	// RateLimit is the maximum number of requests per second across all
	// hosts. Zero disables pacing.
	RateLimit float64 `json:"rate_limit" yaml:"rate_limit"`

	// MaxBodyBytes caps how much of a response body is read (default 200 MiB).
	MaxBodyBytes int64 `json:"max_body_bytes" yaml:"max_body_bytes"`
}

// ADSConfig holds the endpoints of the ADS metadata service.
type ADSConfig struct {
	// APIBase is the ADS API root (default "https://api.adsabs.harvard.edu/v1").
	APIBase string `json:"api_base" yaml:"api_base"`

	// GatewayBase is the ADS link gateway root
	// (default "https://ui.adsabs.harvard.edu/link_gateway").
	GatewayBase string `json:"gateway_base" yaml:"gateway_base"`

	// ArxivPDFBase is the arXiv PDF endpoint (default "https://arxiv.org/pdf/").
	ArxivPDFBase string `json:"arxiv_pdf_base" yaml:"arxiv_pdf_base"`
}

// AcquisitionConfig holds settings for a fetch run.
type AcquisitionConfig struct {
	HTTPConfig `yaml:",inline"`
	ADS        ADSConfig `json:"ads" yaml:"ads"`

	// OutputDir is the directory PDFs are written to.
	OutputDir string `json:"output_dir" yaml:"output_dir"`

	// Overwrite re-downloads entries whose output file already exists.
	Overwrite bool `json:"overwrite" yaml:"overwrite"`

	// Verbose prints a status line for every entry.
	Verbose bool `json:"verbose" yaml:"verbose"`

	// DownloadDelay is the pause between consecutive entries.
	DownloadDelay time.Duration `json:"download_delay" yaml:"download_delay"`

	// LedgerPath is the SQLite run history database. Empty disables the ledger.
	LedgerPath string `json:"ledger_path,omitempty" yaml:"ledger_path,omitempty"`
}
