package theme

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"stregsystem/internal/core/tx"
)

type fileMonthDay struct {
	Month int `json:"month"`
	Day   int `json:"day"`
}

// fileTheme mirrors one entry of themes.json.
type fileTheme struct {
	Name  string       `json:"name"`
	HTML  string       `json:"html"`
	CSS   string       `json:"css"`
	JS    string       `json:"js"`
	Begin fileMonthDay `json:"begin"`
	End   fileMonthDay `json:"end"`
}

// ParseFile reads a themes.json file into validated themes.
func ParseFile(path string) ([]*Theme, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read themes file: %w", err)
	}
	var entries []fileTheme
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("parse themes file %s: %w", path, err)
	}

	themes := make([]*Theme, 0, len(entries))
	for _, e := range entries {
		t := &Theme{
			Name:       e.Name,
			HTML:       e.HTML,
			CSS:        e.CSS,
			JS:         e.JS,
			BeginMonth: e.Begin.Month,
			BeginDay:   e.Begin.Day,
			EndMonth:   e.End.Month,
			EndDay:     e.End.Day,
			Override:   OverrideNone,
		}
		if err := t.Validate(); err != nil {
			return nil, fmt.Errorf("theme %q: %w", e.Name, err)
		}
		themes = append(themes, t)
	}
	return themes, nil
}

// Loader replaces the stored themes from a themes.json file.
type Loader struct {
	repo      Repository
	txManager tx.Manager
}

// NewLoader creates a theme loader.
func NewLoader(repo Repository, txManager tx.Manager) *Loader {
	return &Loader{repo: repo, txManager: txManager}
}

// LoadFile parses the file and swaps the stored theme set for its
// contents in one transaction.
func (l *Loader) LoadFile(ctx context.Context, path string) (int, error) {
	themes, err := ParseFile(path)
	if err != nil {
		return 0, err
	}
	err = l.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		return l.repo.ReplaceAll(ctx, themes)
	})
	if err != nil {
		return 0, err
	}
	return len(themes), nil
}
