// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads API credentials from a directory of plain-text files
// and the environment. Each file in the directory represents one secret: the
// filename is the key name and the file contents (trimmed) are the value.
//
// Supported key files: ads-api-token.
package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

const (
	// TokenFile is the secrets-directory file holding the ADS API token.
	TokenFile = "ads-api-token"

	// TokenEnv is the environment variable holding the ADS API token.
	TokenEnv = "ADS_API_TOKEN"
)

// TokenSource names where a token came from.
type TokenSource string

const (
	SourceFlag    TokenSource = "flag"
	SourceEnv     TokenSource = "environment"
	SourceSecrets TokenSource = "secrets"
	SourceNone    TokenSource = "none"
)

// Load reads all files in dir and returns a map of filename to trimmed contents.
// A missing directory or missing files are not errors; Load returns an empty map.
// Unreadable files produce a warning on stderr but do not abort.
func Load(dir string) (map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	secrets := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		name := entry.Name()

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: could not read secret %s: %v\n", name, err)
			continue
		}
		if value := strings.TrimSpace(string(data)); value != "" {
			secrets[name] = value
		}
	}
	return secrets, nil
}

// LoadDotEnv loads variables from the given .env files (or ./.env when none
// are given) without overriding variables already set. A missing file is
// not an error.
func LoadDotEnv(files ...string) {
	_ = godotenv.Load(files...)
}

// Token picks the ADS token by precedence: the explicit flag value, then
// ADS_API_TOKEN, then the ads-api-token secret file. An empty token is
// allowed; ADS then rejects the request and entries fail individually.
func Token(flag string, secrets map[string]string) (string, TokenSource) {
	if v := strings.TrimSpace(flag); v != "" {
		return v, SourceFlag
	}
	if v := strings.TrimSpace(os.Getenv(TokenEnv)); v != "" {
		return v, SourceEnv
	}
	if v := secrets[TokenFile]; v != "" {
		return v, SourceSecrets
	}
	return "", SourceNone
}
