// Package razzia_repo persists razzias and check-in entries in
// PostgreSQL.
package razzia_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"stregsystem/internal/core/apperror"
	"stregsystem/internal/domain/razzia"
	"stregsystem/internal/infrastructure/storage/postgres"
)

const (
	razziasTable = "razzias"
	entriesTable = "razzia_entries"
)

// razziaRow flattens the turn interval to seconds for storage.
type razziaRow struct {
	ID               int64     `db:"id"`
	Name             string    `db:"name"`
	TurnsPerMember   int       `db:"turns_per_member"`
	TurnIntervalSecs *int64    `db:"turn_interval_secs"`
	StartDate        time.Time `db:"start_date"`
}

func (r razziaRow) toDomain() *razzia.Razzia {
	rz := &razzia.Razzia{
		ID:             r.ID,
		Name:           r.Name,
		TurnsPerMember: r.TurnsPerMember,
		StartDate:      r.StartDate,
	}
	if r.TurnIntervalSecs != nil {
		d := time.Duration(*r.TurnIntervalSecs) * time.Second
		rz.TurnInterval = &d
	}
	return rz
}

func intervalSecs(d *time.Duration) *int64 {
	if d == nil {
		return nil
	}
	s := int64(*d / time.Second)
	return &s
}

// Compile-time check.
var _ razzia.Repository = (*RazziaRepo)(nil)

// RazziaRepo implements razzia.Repository.
type RazziaRepo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
}

// NewRazziaRepo creates a new razzia repository.
func NewRazziaRepo(txManager *postgres.TxManager) *RazziaRepo {
	return &RazziaRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Create inserts a razzia and backfills its id.
func (r *RazziaRepo) Create(ctx context.Context, rz *razzia.Razzia) error {
	q := r.builder.Insert(razziasTable).
		Columns("name", "turns_per_member", "turn_interval_secs", "start_date").
		Values(rz.Name, rz.TurnsPerMember, intervalSecs(rz.TurnInterval), rz.StartDate).
		Suffix("RETURNING id")

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if err := r.txManager.GetQuerier(ctx).QueryRow(ctx, sql, args...).Scan(&rz.ID); err != nil {
		return fmt.Errorf("insert razzia: %w", err)
	}
	return nil
}

// GetByID retrieves a razzia by id.
func (r *RazziaRepo) GetByID(ctx context.Context, id int64) (*razzia.Razzia, error) {
	sql, args, err := r.baseSelect().Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	var row razziaRow
	if err := pgxscan.Get(ctx, r.txManager.GetQuerier(ctx), &row, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("razzia", id)
		}
		return nil, fmt.Errorf("get razzia: %w", err)
	}
	return row.toDomain(), nil
}

// Update persists name, turn limit and interval changes.
func (r *RazziaRepo) Update(ctx context.Context, rz *razzia.Razzia) error {
	q := r.builder.Update(razziasTable).
		Set("name", rz.Name).
		Set("turns_per_member", rz.TurnsPerMember).
		Set("turn_interval_secs", intervalSecs(rz.TurnInterval)).
		Where(squirrel.Eq{"id": rz.ID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}
	result, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update razzia: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewNotFound("razzia", rz.ID)
	}
	return nil
}

// ListRecent returns the newest razzias first.
func (r *RazziaRepo) ListRecent(ctx context.Context, limit int) ([]*razzia.Razzia, error) {
	q := r.baseSelect().OrderBy("start_date DESC", "id DESC")
	if limit > 0 {
		q = q.Limit(uint64(limit))
	}
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	var rows []razziaRow
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("list razzias: %w", err)
	}
	razzias := make([]*razzia.Razzia, len(rows))
	for i, row := range rows {
		razzias[i] = row.toDomain()
	}
	return razzias, nil
}

// CreateEntry inserts a check-in entry and backfills its id.
func (r *RazziaRepo) CreateEntry(ctx context.Context, e *razzia.Entry) error {
	q := r.builder.Insert(entriesTable).
		Columns("razzia_id", "member_id", "time").
		Values(e.RazziaID, e.MemberID, e.Time).
		Suffix("RETURNING id")

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if err := r.txManager.GetQuerier(ctx).QueryRow(ctx, sql, args...).Scan(&e.ID); err != nil {
		return fmt.Errorf("insert entry: %w", err)
	}
	return nil
}

// ListEntries returns the member's entries for the razzia, newest first.
func (r *RazziaRepo) ListEntries(ctx context.Context, razziaID, memberID int64) ([]*razzia.Entry, error) {
	q := r.builder.Select("id", "razzia_id", "member_id", "time").
		From(entriesTable).
		Where(squirrel.Eq{"razzia_id": razziaID, "member_id": memberID}).
		OrderBy("time DESC", "id DESC")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	var entries []*razzia.Entry
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &entries, sql, args...); err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	return entries, nil
}

// MemberCounts aggregates distinct members with their entry counts.
func (r *RazziaRepo) MemberCounts(ctx context.Context, razziaID int64) ([]*razzia.MemberCount, error) {
	sql := fmt.Sprintf(`SELECT e.member_id, m.username, count(*) AS entries
FROM %s e
JOIN members m ON m.id = e.member_id
WHERE e.razzia_id = $1
GROUP BY e.member_id, m.username
ORDER BY m.username`, entriesTable)

	var counts []*razzia.MemberCount
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &counts, sql, razziaID); err != nil {
		return nil, fmt.Errorf("member counts: %w", err)
	}
	return counts, nil
}

func (r *RazziaRepo) baseSelect() squirrel.SelectBuilder {
	return r.builder.
		Select("id", "name", "turns_per_member", "turn_interval_secs", "start_date").
		From(razziasTable)
}
