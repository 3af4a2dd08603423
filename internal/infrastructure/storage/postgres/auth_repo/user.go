// Package auth_repo persists admin accounts and refresh tokens in
// PostgreSQL.
package auth_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"stregsystem/internal/core/apperror"
	"stregsystem/internal/domain/auth"
	"stregsystem/internal/infrastructure/storage/postgres"
)

const (
	usersTable        = "admin_users"
	capabilitiesTable = "admin_user_capabilities"
)

var userColumns = []string{
	"id", "username", "password_hash", "is_active", "is_superuser",
	"last_login_at", "failed_login_attempts", "locked_until", "created_at",
}

// Compile-time check.
var _ auth.UserRepository = (*UserRepo)(nil)

// UserRepo implements auth.UserRepository.
type UserRepo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
}

// NewUserRepo creates a new admin user repository.
func NewUserRepo(txManager *postgres.TxManager) *UserRepo {
	return &UserRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Create inserts an admin account and backfills its id.
func (r *UserRepo) Create(ctx context.Context, user *auth.AdminUser) error {
	q := r.builder.Insert(usersTable).
		Columns("username", "password_hash", "is_active", "is_superuser",
			"last_login_at", "failed_login_attempts", "locked_until", "created_at").
		Values(user.Username, user.PasswordHash, user.IsActive, user.IsSuperuser,
			user.LastLoginAt, user.FailedLoginAttempts, user.LockedUntil, user.CreatedAt).
		Suffix("RETURNING id")

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if err := r.txManager.GetQuerier(ctx).QueryRow(ctx, sql, args...).Scan(&user.ID); err != nil {
		return fmt.Errorf("insert admin user: %w", err)
	}
	return nil
}

// GetByID retrieves an admin account with its capabilities.
func (r *UserRepo) GetByID(ctx context.Context, id int64) (*auth.AdminUser, error) {
	return r.getOne(ctx, r.baseSelect().Where(squirrel.Eq{"id": id}), id)
}

// GetByUsername matches exactly; admin usernames are case-sensitive.
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*auth.AdminUser, error) {
	return r.getOne(ctx, r.baseSelect().Where(squirrel.Eq{"username": username}), username)
}

// Update persists account state changes.
func (r *UserRepo) Update(ctx context.Context, user *auth.AdminUser) error {
	q := r.builder.Update(usersTable).
		Set("password_hash", user.PasswordHash).
		Set("is_active", user.IsActive).
		Set("is_superuser", user.IsSuperuser).
		Set("last_login_at", user.LastLoginAt).
		Set("failed_login_attempts", user.FailedLoginAttempts).
		Set("locked_until", user.LockedUntil).
		Where(squirrel.Eq{"id": user.ID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}
	result, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update admin user: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewNotFound("admin user", user.ID)
	}
	return nil
}

// Exists reports whether the username is taken.
func (r *UserRepo) Exists(ctx context.Context, username string) (bool, error) {
	sql := fmt.Sprintf("SELECT EXISTS (SELECT 1 FROM %s WHERE username = $1)", usersTable)
	var exists bool
	if err := r.txManager.GetQuerier(ctx).QueryRow(ctx, sql, username).Scan(&exists); err != nil {
		return false, fmt.Errorf("check username: %w", err)
	}
	return exists, nil
}

// SetCapabilities replaces the account's capability grants.
func (r *UserRepo) SetCapabilities(ctx context.Context, userID int64, caps []auth.Capability) error {
	querier := r.txManager.GetQuerier(ctx)
	sql, args, err := r.builder.Delete(capabilitiesTable).
		Where(squirrel.Eq{"user_id": userID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("clear capabilities: %w", err)
	}
	if len(caps) == 0 {
		return nil
	}

	q := r.builder.Insert(capabilitiesTable).Columns("user_id", "capability")
	for _, c := range caps {
		q = q.Values(userID, c)
	}
	sql, args, err = q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert capabilities: %w", err)
	}
	return nil
}

func (r *UserRepo) baseSelect() squirrel.SelectBuilder {
	return r.builder.Select(userColumns...).From(usersTable)
}

func (r *UserRepo) getOne(ctx context.Context, q squirrel.SelectBuilder, ident any) (*auth.AdminUser, error) {
	sql, args, err := q.Limit(1).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	user := &auth.AdminUser{}
	if err := pgxscan.Get(ctx, r.txManager.GetQuerier(ctx), user, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("admin user", ident)
		}
		return nil, fmt.Errorf("get admin user: %w", err)
	}
	if err := r.loadCapabilities(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (r *UserRepo) loadCapabilities(ctx context.Context, user *auth.AdminUser) error {
	sql, args, err := r.builder.Select("capability").
		From(capabilitiesTable).
		Where(squirrel.Eq{"user_id": user.ID}).
		OrderBy("capability").
		ToSql()
	if err != nil {
		return fmt.Errorf("build capability query: %w", err)
	}
	var caps []auth.Capability
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &caps, sql, args...); err != nil {
		return fmt.Errorf("load capabilities: %w", err)
	}
	user.Capabilities = caps
	return nil
}
