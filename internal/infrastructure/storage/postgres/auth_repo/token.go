package auth_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"stregsystem/internal/core/apperror"
	"stregsystem/internal/domain/auth"
	"stregsystem/internal/infrastructure/storage/postgres"
)

const tokensTable = "refresh_tokens"

var tokenColumns = []string{
	"id", "user_id", "token_hash", "expires_at", "created_at",
	"revoked_at", "revoked_reason",
}

// Compile-time check.
var _ auth.TokenRepository = (*TokenRepo)(nil)

// TokenRepo implements auth.TokenRepository. Only token hashes are
// stored; the raw token never touches the database.
type TokenRepo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
	now       func() time.Time
}

// NewTokenRepo creates a new refresh token repository.
func NewTokenRepo(txManager *postgres.TxManager) *TokenRepo {
	return &TokenRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		now:       time.Now,
	}
}

// SaveRefreshToken inserts the token and backfills its id.
func (r *TokenRepo) SaveRefreshToken(ctx context.Context, token *auth.RefreshToken) error {
	q := r.builder.Insert(tokensTable).
		Columns("user_id", "token_hash", "expires_at", "created_at", "revoked_at", "revoked_reason").
		Values(token.UserID, token.TokenHash, token.ExpiresAt, token.CreatedAt,
			token.RevokedAt, token.RevokedReason).
		Suffix("RETURNING id")

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if err := r.txManager.GetQuerier(ctx).QueryRow(ctx, sql, args...).Scan(&token.ID); err != nil {
		return fmt.Errorf("insert refresh token: %w", err)
	}
	return nil
}

// GetRefreshToken looks a token up by its hash.
func (r *TokenRepo) GetRefreshToken(ctx context.Context, tokenHash string) (*auth.RefreshToken, error) {
	sql, args, err := r.builder.Select(tokenColumns...).
		From(tokensTable).
		Where(squirrel.Eq{"token_hash": tokenHash}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	token := &auth.RefreshToken{}
	if err := pgxscan.Get(ctx, r.txManager.GetQuerier(ctx), token, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("refresh token", tokenHash)
		}
		return nil, fmt.Errorf("get refresh token: %w", err)
	}
	return token, nil
}

// RevokeRefreshToken marks a single token revoked.
func (r *TokenRepo) RevokeRefreshToken(ctx context.Context, id int64, reason string) error {
	q := r.builder.Update(tokensTable).
		Set("revoked_at", r.now()).
		Set("revoked_reason", reason).
		Where(squirrel.Eq{"id": id}).
		Where("revoked_at IS NULL")

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}
	result, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewNotFound("refresh token", id)
	}
	return nil
}

// RevokeAllUserTokens revokes every live token of the user.
func (r *TokenRepo) RevokeAllUserTokens(ctx context.Context, userID int64, reason string) error {
	q := r.builder.Update(tokensTable).
		Set("revoked_at", r.now()).
		Set("revoked_reason", reason).
		Where(squirrel.Eq{"user_id": userID}).
		Where("revoked_at IS NULL")

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}
	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("revoke user tokens: %w", err)
	}
	return nil
}

// DeleteExpired removes tokens past their expiry and reports the count.
func (r *TokenRepo) DeleteExpired(ctx context.Context) (int64, error) {
	q := r.builder.Delete(tokensTable).
		Where(squirrel.Lt{"expires_at": r.now()})

	sql, args, err := q.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build delete: %w", err)
	}
	result, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return 0, fmt.Errorf("delete expired tokens: %w", err)
	}
	return result.RowsAffected(), nil
}
