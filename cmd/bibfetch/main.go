// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the bibfetch CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/bibfetch/internal/ads"
	"github.com/pdiddy/bibfetch/internal/secrets"
)

// version is set at build time via ldflags.
var version = "dev"

const (
	defaultTimeout   = 60 * time.Second
	defaultDelay     = 1 * time.Second
	defaultUserAgent = "bibfetch/0.1"
	secretsDir       = ".secrets/"
)

// loadedSecrets holds credentials loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// rootCmd is the base command for the bibfetch CLI.
var rootCmd = &cobra.Command{
	Use:   "bibfetch",
	Short: "Download the papers cited in a BibTeX file",
	Long: `bibfetch reads a BibTeX file, resolves each entry through the NASA ADS
search API, and downloads a PDF for it from the ADS-hosted scan, arXiv, or
the publisher, in that order. Files are named Surname_Year.pdf with b-e
suffixes for collisions; existing files are skipped unless --overwrite.

The ADS API token is read from --token, ADS_API_TOKEN (a .env file is
honoured), or .secrets/ads-api-token.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		secrets.LoadDotEnv()
		s, err := secrets.Load(secretsDir)
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 && viper.GetBool("verbose") {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", keys)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./bibfetch.yaml or ~/.config/bibfetch/config.yaml)")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("bibfetch")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "bibfetch"))
		}
	}

	viper.SetDefault("output_dir", ".")
	viper.SetDefault("timeout", defaultTimeout)
	viper.SetDefault("delay", defaultDelay)
	viper.SetDefault("rate_limit", 0.0)
	viper.SetDefault("user_agent", defaultUserAgent)
	viper.SetDefault("ads.api_base", ads.DefaultAPIBase)
	viper.SetDefault("ads.gateway_base", ads.DefaultGatewayBase)
	viper.SetDefault("ads.arxiv_pdf_base", ads.DefaultArxivPDFBase)

	viper.SetEnvPrefix("BIBFETCH")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// The helpers below give an explicitly set flag precedence over the config
// file and BIBFETCH_* environment, which in turn override flag defaults.

func stringSetting(cmd *cobra.Command, flag, key string) string {
	if f := cmd.Flags().Lookup(flag); f != nil && f.Changed {
		v, _ := cmd.Flags().GetString(flag)
		return v
	}
	return viper.GetString(key)
}

func boolSetting(cmd *cobra.Command, flag, key string) bool {
	if f := cmd.Flags().Lookup(flag); f != nil && f.Changed {
		v, _ := cmd.Flags().GetBool(flag)
		return v
	}
	return viper.GetBool(key)
}

func durationSetting(cmd *cobra.Command, flag, key string) time.Duration {
	if f := cmd.Flags().Lookup(flag); f != nil && f.Changed {
		v, _ := cmd.Flags().GetDuration(flag)
		return v
	}
	return viper.GetDuration(key)
}

func floatSetting(cmd *cobra.Command, flag, key string) float64 {
	if f := cmd.Flags().Lookup(flag); f != nil && f.Changed {
		v, _ := cmd.Flags().GetFloat64(flag)
		return v
	}
	return viper.GetFloat64(key)
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
