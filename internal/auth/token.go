package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"golang.org/x/oauth2"
)

const (
	tokenFilePermMode = 0o600
	tokenDirPermMode  = 0o700
)

// ErrTokenNotFound is returned (wrapped) by a TokenStore holding no token.
var ErrTokenNotFound = errors.New("token not found")

// TokenStore persists the OAuth token between runs.
type TokenStore interface {
	LoadToken() (*oauth2.Token, error)
	SaveToken(token *oauth2.Token) error
}

// FileTokenStore keeps the token as JSON in a single file.
type FileTokenStore struct {
	Path string
}

// LoadToken loads the OAuth token from the store's file
func (s FileTokenStore) LoadToken() (*oauth2.Token, error) {
	return LoadToken(s.Path)
}

// SaveToken writes the OAuth token to the store's file
func (s FileTokenStore) SaveToken(token *oauth2.Token) error {
	return SaveToken(s.Path, token)
}

// LoadToken loads an OAuth token from the specified file path
func LoadToken(tokenPath string) (*oauth2.Token, error) {
	f, err := os.Open(tokenPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrTokenNotFound, tokenPath)
		}
		return nil, fmt.Errorf("unable to open token file: %w", err)
	}
	defer f.Close()

	tok := &oauth2.Token{}
	if err := json.NewDecoder(f).Decode(tok); err != nil {
		return nil, fmt.Errorf("unable to decode token: %w", err)
	}

	return tok, nil
}

// SaveToken saves an OAuth token to the specified file path with restricted permissions
func SaveToken(tokenPath string, token *oauth2.Token) error {
	if err := os.MkdirAll(filepath.Dir(tokenPath), tokenDirPermMode); err != nil {
		return fmt.Errorf("unable to create token directory: %w", err)
	}

	f, err := os.OpenFile(tokenPath, os.O_RDWR|os.O_CREATE|os.O_TRUNC, tokenFilePermMode)
	if err != nil {
		return fmt.Errorf("unable to create token file: %w", err)
	}
	defer f.Close()

	if err := json.NewEncoder(f).Encode(token); err != nil {
		return fmt.Errorf("unable to encode token: %w", err)
	}

	return nil
}
