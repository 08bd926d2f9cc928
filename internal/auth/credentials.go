package auth

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
)

// Options selects the Google credentials to authenticate with.
type Options struct {
	// ServiceAccountPath is used when the file exists.
	ServiceAccountPath string
	// Subject is the user a service account impersonates, if any.
	Subject string
	// CredentialsPath holds OAuth client credentials for the browser flow.
	CredentialsPath string
	// Store persists the OAuth token.
	Store TokenStore
}

// NewHTTPClient returns an authenticated client, preferring a service
// account key over OAuth client credentials.
func NewHTTPClient(ctx context.Context, opts Options) (*http.Client, error) {
	if opts.ServiceAccountPath != "" && fileExists(opts.ServiceAccountPath) {
		slog.Debug("using service account credentials", "path", opts.ServiceAccountPath)
		return GetServiceAccountClient(ctx, opts.ServiceAccountPath, opts.Subject)
	}

	if opts.CredentialsPath == "" || !fileExists(opts.CredentialsPath) {
		return nil, fmt.Errorf("no credentials configured (need %s or %s)", opts.ServiceAccountPath, opts.CredentialsPath)
	}
	if opts.Store == nil {
		return nil, errors.New("no token store configured")
	}

	config, err := LoadConfig(opts.CredentialsPath)
	if err != nil {
		return nil, err
	}
	slog.Debug("using OAuth client credentials", "path", opts.CredentialsPath)
	return GetClient(ctx, config, opts.Store)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return !errors.Is(err, fs.ErrNotExist)
}
