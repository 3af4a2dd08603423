// Package theme_repo persists seasonal themes in PostgreSQL.
package theme_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"stregsystem/internal/domain/theme"
	"stregsystem/internal/infrastructure/storage/postgres"
)

const themesTable = "themes"

var themeColumns = []string{
	"id", "name", "html", "css", "js",
	"begin_month", "begin_day", "end_month", "end_day", "override",
}

// Compile-time check.
var _ theme.Repository = (*ThemeRepo)(nil)

// ThemeRepo implements theme.Repository.
type ThemeRepo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
}

// NewThemeRepo creates a new theme repository.
func NewThemeRepo(txManager *postgres.TxManager) *ThemeRepo {
	return &ThemeRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// ListThemes returns every theme ordered by name.
func (r *ThemeRepo) ListThemes(ctx context.Context) ([]*theme.Theme, error) {
	sql, args, err := r.builder.Select(themeColumns...).
		From(themesTable).
		OrderBy("name").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	var themes []*theme.Theme
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &themes, sql, args...); err != nil {
		return nil, fmt.Errorf("list themes: %w", err)
	}
	return themes, nil
}

// ReplaceAll swaps the full theme table for the given set. The caller
// wraps this in a transaction so a failed load never empties the table.
func (r *ThemeRepo) ReplaceAll(ctx context.Context, themes []*theme.Theme) error {
	querier := r.txManager.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, "DELETE FROM "+themesTable); err != nil {
		return fmt.Errorf("clear themes: %w", err)
	}
	if len(themes) == 0 {
		return nil
	}

	q := r.builder.Insert(themesTable).Columns(themeColumns[1:]...)
	for _, t := range themes {
		q = q.Values(t.Name, t.HTML, t.CSS, t.JS,
			t.BeginMonth, t.BeginDay, t.EndMonth, t.EndDay, t.Override)
	}
	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert themes: %w", err)
	}
	return nil
}
