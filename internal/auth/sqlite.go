package auth

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
	"golang.org/x/oauth2"
)

// SQLiteTokenStore keeps tokens in a SQLite database, one row per account.
type SQLiteTokenStore struct {
	db      *sql.DB
	account string
}

// OpenSQLiteTokenStore opens (creating if needed) the token database at path.
// Tokens are read and written under account.
func OpenSQLiteTokenStore(path, account string) (*SQLiteTokenStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), tokenDirPermMode); err != nil {
		return nil, fmt.Errorf("unable to create token database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("unable to open token database: %w", err)
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS tokens (
		account_name TEXT PRIMARY KEY,
		token TEXT)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("unable to create tokens table: %w", err)
	}

	return &SQLiteTokenStore{db: db, account: account}, nil
}

// LoadToken returns the token stored for the store's account.
func (s *SQLiteTokenStore) LoadToken() (*oauth2.Token, error) {
	var tokenJSON []byte
	err := s.db.QueryRow("SELECT token FROM tokens WHERE account_name = ?", s.account).Scan(&tokenJSON)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: account %s", ErrTokenNotFound, s.account)
		}
		return nil, fmt.Errorf("unable to read token: %w", err)
	}

	tok := &oauth2.Token{}
	if err := json.Unmarshal(tokenJSON, tok); err != nil {
		return nil, fmt.Errorf("unable to decode token: %w", err)
	}
	return tok, nil
}

// SaveToken stores token for the store's account, replacing any previous one.
func (s *SQLiteTokenStore) SaveToken(token *oauth2.Token) error {
	tokenJSON, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("unable to encode token: %w", err)
	}

	if _, err := s.db.Exec("INSERT OR REPLACE INTO tokens (account_name, token) VALUES (?, ?)", s.account, string(tokenJSON)); err != nil {
		return fmt.Errorf("unable to save token: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *SQLiteTokenStore) Close() error {
	return s.db.Close()
}
