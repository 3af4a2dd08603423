// Package vipps fetches settled MobilePay transactions from the Vipps
// report API and feeds them into the payment ledger.
package vipps

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Tokens is the mutable credential state shared with the payment
// provider. The access token and cursor rotate at runtime, so they live
// in their own file instead of the service configuration.
type Tokens struct {
	ClientID           string `json:"client_id"`
	ClientSecret       string `json:"client_secret"`
	AccessToken        string `json:"access_token,omitempty"`
	AccessTokenTimeout string `json:"access_token_timeout,omitempty"`
	LedgerID           int64  `json:"ledger_id,omitempty"`
	Cursor             string `json:"cursor,omitempty"`
}

// TokenStore persists Tokens to disk with a backup fallback. Writes are
// atomic so a crash mid-save never corrupts the credentials.
type TokenStore struct {
	mu         sync.Mutex
	path       string
	backupPath string
}

// NewTokenStore creates a store over the given file path. The backup
// lives next to it with a .bak suffix.
func NewTokenStore(path string) *TokenStore {
	return &TokenStore{path: path, backupPath: path + ".bak"}
}

// Load reads the tokens, falling back to the backup file when the
// primary is missing or unreadable.
func (s *TokenStore) Load() (*Tokens, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tokens, err := readTokenFile(s.path)
	if err == nil {
		return tokens, nil
	}
	backup, backupErr := readTokenFile(s.backupPath)
	if backupErr != nil {
		return nil, fmt.Errorf("read tokens: %w", err)
	}
	return backup, nil
}

// Save writes the tokens, keeping the previous contents as the backup.
func (s *TokenStore) Save(tokens *Tokens) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if tokens == nil {
		return fmt.Errorf("save tokens: nil tokens")
	}
	data, err := json.MarshalIndent(tokens, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal tokens: %w", err)
	}

	if prev, err := os.ReadFile(s.path); err == nil {
		if err := os.WriteFile(s.backupPath, prev, 0o600); err != nil {
			return fmt.Errorf("write token backup: %w", err)
		}
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".tokens-*")
	if err != nil {
		return fmt.Errorf("create temp token file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write tokens: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close token file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace token file: %w", err)
	}
	return nil
}

func readTokenFile(path string) (*Tokens, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var tokens Tokens
	if err := json.Unmarshal(data, &tokens); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &tokens, nil
}
