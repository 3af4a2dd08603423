package member_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"

	"stregsystem/internal/core/apperror"
	"stregsystem/internal/domain/member"
	"stregsystem/internal/infrastructure/storage/postgres"
)

const signupsTable = "pending_signups"

var signupColumns = []string{"id", "member_id", "due", "status", "token"}

// Compile-time check.
var _ member.SignupRepository = (*SignupRepo)(nil)

// SignupRepo implements member.SignupRepository.
type SignupRepo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
}

// NewSignupRepo creates a new pending-signup repository.
func NewSignupRepo(txManager *postgres.TxManager) *SignupRepo {
	return &SignupRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func (r *SignupRepo) baseSelect() squirrel.SelectBuilder {
	return r.builder.Select(signupColumns...).From(signupsTable)
}

// Create inserts a pending signup and backfills its id.
func (r *SignupRepo) Create(ctx context.Context, s *member.PendingSignup) error {
	q := r.builder.Insert(signupsTable).
		Columns("member_id", "due", "status", "token").
		Values(s.MemberID, s.Due, s.Status, s.Token).
		Suffix("RETURNING id")

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if err := r.txManager.GetQuerier(ctx).QueryRow(ctx, sql, args...).Scan(&s.ID); err != nil {
		return fmt.Errorf("insert signup: %w", err)
	}
	return nil
}

// GetByID retrieves a signup by id.
func (r *SignupRepo) GetByID(ctx context.Context, id int64) (*member.PendingSignup, error) {
	return r.getOne(ctx, r.baseSelect().Where(squirrel.Eq{"id": id}), id)
}

// GetByToken retrieves a signup by its signup token.
func (r *SignupRepo) GetByToken(ctx context.Context, token uuid.UUID) (*member.PendingSignup, error) {
	return r.getOne(ctx, r.baseSelect().Where(squirrel.Eq{"token": token}), token)
}

// GetByMember retrieves the signup owing on a member.
func (r *SignupRepo) GetByMember(ctx context.Context, memberID int64) (*member.PendingSignup, error) {
	return r.getOne(ctx, r.baseSelect().Where(squirrel.Eq{"member_id": memberID}), memberID)
}

// GetForUpdate locks the signup row inside the current transaction.
func (r *SignupRepo) GetForUpdate(ctx context.Context, id int64) (*member.PendingSignup, error) {
	q := r.baseSelect().
		Where(squirrel.Eq{"id": id}).
		Suffix("FOR UPDATE")
	return r.getOne(ctx, q, id)
}

// Update persists the due and status of a signup.
func (r *SignupRepo) Update(ctx context.Context, s *member.PendingSignup) error {
	q := r.builder.Update(signupsTable).
		Set("due", s.Due).
		Set("status", s.Status).
		Where(squirrel.Eq{"id": s.ID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}
	result, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update signup: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewNotFound("pending signup", s.ID)
	}
	return nil
}

// Delete removes a completed signup.
func (r *SignupRepo) Delete(ctx context.Context, id int64) error {
	sql, args, err := r.builder.Delete(signupsTable).Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}
	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("delete signup: %w", err)
	}
	return nil
}

// ListUnprocessed returns signups still in the Unset state.
func (r *SignupRepo) ListUnprocessed(ctx context.Context) ([]*member.PendingSignup, error) {
	q := r.baseSelect().
		Where(squirrel.Eq{"status": "U"}).
		OrderBy("id")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	var signups []*member.PendingSignup
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &signups, sql, args...); err != nil {
		return nil, fmt.Errorf("list unprocessed signups: %w", err)
	}
	return signups, nil
}

func (r *SignupRepo) getOne(ctx context.Context, q squirrel.SelectBuilder, key any) (*member.PendingSignup, error) {
	sql, args, err := q.Limit(1).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	s := &member.PendingSignup{}
	if err := pgxscan.Get(ctx, r.txManager.GetQuerier(ctx), s, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("pending signup", key)
		}
		return nil, fmt.Errorf("get signup: %w", err)
	}
	return s, nil
}
