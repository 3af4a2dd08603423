// Package member_repo provides the PostgreSQL implementation of the
// member and pending-signup repositories.
package member_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"stregsystem/internal/core/apperror"
	"stregsystem/internal/core/kroner"
	"stregsystem/internal/domain/member"
	"stregsystem/internal/infrastructure/storage/postgres"
)

const membersTable = "members"

var memberColumns = []string{
	"id", "username", "firstname", "lastname", "email", "year", "gender",
	"balance", "active", "want_spam", "signup_due_paid", "undo_count", "notes",
}

// Compile-time check.
var _ member.Repository = (*MemberRepo)(nil)

// MemberRepo implements member.Repository.
type MemberRepo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
}

// NewMemberRepo creates a new member repository.
func NewMemberRepo(txManager *postgres.TxManager) *MemberRepo {
	return &MemberRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func (r *MemberRepo) baseSelect() squirrel.SelectBuilder {
	return r.builder.Select(memberColumns...).From(membersTable)
}

// Create inserts a new member and backfills its id.
func (r *MemberRepo) Create(ctx context.Context, m *member.Member) error {
	q := r.builder.Insert(membersTable).
		Columns(memberColumns[1:]...).
		Values(m.Username, m.Firstname, m.Lastname, m.Email, m.Year, m.Gender,
			m.Balance, m.Active, m.WantSpam, m.SignupDuePaid, m.UndoCount, m.Notes).
		Suffix("RETURNING id")

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	querier := r.txManager.GetQuerier(ctx)
	if err := querier.QueryRow(ctx, sql, args...).Scan(&m.ID); err != nil {
		return fmt.Errorf("insert member: %w", err)
	}
	return nil
}

// GetByID retrieves a member by id.
func (r *MemberRepo) GetByID(ctx context.Context, id int64) (*member.Member, error) {
	return r.getOne(ctx, r.baseSelect().Where(squirrel.Eq{"id": id}), id)
}

// GetByUsername retrieves an active member, matched case-insensitively.
func (r *MemberRepo) GetByUsername(ctx context.Context, username string) (*member.Member, error) {
	q := r.baseSelect().
		Where(squirrel.Expr("lower(username) = lower(?)", username)).
		Where(squirrel.Eq{"active": true})
	return r.getOne(ctx, q, username)
}

// ListActiveByExactUsername returns active members matching byte-for-byte.
func (r *MemberRepo) ListActiveByExactUsername(ctx context.Context, username string) ([]*member.Member, error) {
	q := r.baseSelect().
		Where(squirrel.Eq{"username": username}).
		Where(squirrel.Eq{"active": true})

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	var members []*member.Member
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &members, sql, args...); err != nil {
		return nil, fmt.Errorf("list members by username: %w", err)
	}
	return members, nil
}

// GetForUpdate locks the member row for the current transaction.
func (r *MemberRepo) GetForUpdate(ctx context.Context, id int64) (*member.Member, error) {
	q := r.baseSelect().
		Where(squirrel.Eq{"id": id}).
		Suffix("FOR UPDATE")
	return r.getOne(ctx, q, id)
}

// UpdateBalance persists a new balance for a locked member row.
func (r *MemberRepo) UpdateBalance(ctx context.Context, id int64, balance kroner.Oere) error {
	q := r.builder.Update(membersTable).
		Set("balance", balance).
		Where(squirrel.Eq{"id": id})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}
	result, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update balance: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewNotFound("member", id)
	}
	return nil
}

// Update persists mutable member fields.
func (r *MemberRepo) Update(ctx context.Context, m *member.Member) error {
	q := r.builder.Update(membersTable).
		Set("username", m.Username).
		Set("firstname", m.Firstname).
		Set("lastname", m.Lastname).
		Set("email", m.Email).
		Set("year", m.Year).
		Set("gender", m.Gender).
		Set("balance", m.Balance).
		Set("active", m.Active).
		Set("want_spam", m.WantSpam).
		Set("signup_due_paid", m.SignupDuePaid).
		Set("undo_count", m.UndoCount).
		Set("notes", m.Notes).
		Where(squirrel.Eq{"id": m.ID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}
	result, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update member: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewNotFound("member", m.ID)
	}
	return nil
}

// UsernameTaken reports whether any member holds the username.
func (r *MemberRepo) UsernameTaken(ctx context.Context, username string) (bool, error) {
	sql := "SELECT EXISTS (SELECT 1 FROM members WHERE lower(username) = lower($1))"
	var taken bool
	if err := r.txManager.GetQuerier(ctx).QueryRow(ctx, sql, username).Scan(&taken); err != nil {
		return false, fmt.Errorf("check username: %w", err)
	}
	return taken, nil
}

func (r *MemberRepo) getOne(ctx context.Context, q squirrel.SelectBuilder, key any) (*member.Member, error) {
	sql, args, err := q.Limit(1).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	m := &member.Member{}
	if err := pgxscan.Get(ctx, r.txManager.GetQuerier(ctx), m, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("member", key)
		}
		return nil, fmt.Errorf("get member: %w", err)
	}
	return m, nil
}
