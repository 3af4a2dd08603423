// Package achievement_repo persists achievement definitions and
// completions in PostgreSQL.
package achievement_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"stregsystem/internal/core/apperror"
	"stregsystem/internal/domain/achievement"
	"stregsystem/internal/infrastructure/storage/postgres"
)

const (
	achievementsTable = "achievements"
	constraintsTable  = "achievement_constraints"
	tasksTable        = "achievement_tasks"
	completionsTable  = "achievement_completions"
)

// achievementRow flattens the duration to seconds for storage.
type achievementRow struct {
	ID                 int64      `db:"id"`
	Title              string     `db:"title"`
	Description        string     `db:"description"`
	Icon               string     `db:"icon"`
	ActiveFrom         *time.Time `db:"active_from"`
	ActiveDurationSecs *int64     `db:"active_duration_secs"`
}

func (r achievementRow) toDomain() *achievement.Achievement {
	a := &achievement.Achievement{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description,
		Icon:        r.Icon,
		ActiveFrom:  r.ActiveFrom,
	}
	if r.ActiveDurationSecs != nil {
		d := time.Duration(*r.ActiveDurationSecs) * time.Second
		a.ActiveDuration = &d
	}
	return a
}

func durationSecs(d *time.Duration) *int64 {
	if d == nil {
		return nil
	}
	s := int64(*d / time.Second)
	return &s
}

// constraintRow stores the time-of-day endpoints as minutes past midnight.
type constraintRow struct {
	ID            int64 `db:"id"`
	AchievementID int64 `db:"achievement_id"`
	MonthStart    *int  `db:"month_start"`
	MonthEnd      *int  `db:"month_end"`
	DayStart      *int  `db:"day_start"`
	DayEnd        *int  `db:"day_end"`
	TimeStart     *int  `db:"time_start"`
	TimeEnd       *int  `db:"time_end"`
	Weekday       *int  `db:"weekday"`
}

func (r constraintRow) toDomain() achievement.Constraint {
	return achievement.Constraint{
		ID:            r.ID,
		AchievementID: r.AchievementID,
		MonthStart:    r.MonthStart,
		MonthEnd:      r.MonthEnd,
		DayStart:      r.DayStart,
		DayEnd:        r.DayEnd,
		TimeStart:     minutesToTime(r.TimeStart),
		TimeEnd:       minutesToTime(r.TimeEnd),
		Weekday:       r.Weekday,
	}
}

func minutesToTime(m *int) *achievement.TimeOfDay {
	if m == nil {
		return nil
	}
	return &achievement.TimeOfDay{Hour: *m / 60, Minute: *m % 60}
}

func timeToMinutes(t *achievement.TimeOfDay) *int {
	if t == nil {
		return nil
	}
	m := t.Hour*60 + t.Minute
	return &m
}

// Compile-time check.
var _ achievement.Repository = (*AchievementRepo)(nil)

// AchievementRepo implements achievement.Repository.
type AchievementRepo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
}

// NewAchievementRepo creates a new achievement repository.
func NewAchievementRepo(txManager *postgres.TxManager) *AchievementRepo {
	return &AchievementRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Create inserts the achievement with its constraints and tasks. Runs in
// the caller's transaction so a partial definition never lands.
func (r *AchievementRepo) Create(ctx context.Context, a *achievement.Achievement) error {
	q := r.builder.Insert(achievementsTable).
		Columns("title", "description", "icon", "active_from", "active_duration_secs").
		Values(a.Title, a.Description, a.Icon, a.ActiveFrom, durationSecs(a.ActiveDuration)).
		Suffix("RETURNING id")

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if err := r.txManager.GetQuerier(ctx).QueryRow(ctx, sql, args...).Scan(&a.ID); err != nil {
		return fmt.Errorf("insert achievement: %w", err)
	}

	for i := range a.Constraints {
		c := &a.Constraints[i]
		c.AchievementID = a.ID
		cq := r.builder.Insert(constraintsTable).
			Columns("achievement_id", "month_start", "month_end", "day_start", "day_end",
				"time_start", "time_end", "weekday").
			Values(c.AchievementID, c.MonthStart, c.MonthEnd, c.DayStart, c.DayEnd,
				timeToMinutes(c.TimeStart), timeToMinutes(c.TimeEnd), c.Weekday).
			Suffix("RETURNING id")
		sql, args, err := cq.ToSql()
		if err != nil {
			return fmt.Errorf("build constraint insert: %w", err)
		}
		if err := r.txManager.GetQuerier(ctx).QueryRow(ctx, sql, args...).Scan(&c.ID); err != nil {
			return fmt.Errorf("insert constraint: %w", err)
		}
	}

	for i := range a.Tasks {
		t := &a.Tasks[i]
		t.AchievementID = a.ID
		tq := r.builder.Insert(tasksTable).
			Columns("achievement_id", "task_type", "product_id", "category_id", "goal_value").
			Values(t.AchievementID, t.TaskType, t.ProductID, t.CategoryID, t.GoalValue).
			Suffix("RETURNING id")
		sql, args, err := tq.ToSql()
		if err != nil {
			return fmt.Errorf("build task insert: %w", err)
		}
		if err := r.txManager.GetQuerier(ctx).QueryRow(ctx, sql, args...).Scan(&t.ID); err != nil {
			return fmt.Errorf("insert task: %w", err)
		}
	}
	return nil
}

// GetByID retrieves an achievement with constraints and tasks loaded.
func (r *AchievementRepo) GetByID(ctx context.Context, id int64) (*achievement.Achievement, error) {
	sql, args, err := r.baseSelect().Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	var row achievementRow
	if err := pgxscan.Get(ctx, r.txManager.GetQuerier(ctx), &row, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("achievement", id)
		}
		return nil, fmt.Errorf("get achievement: %w", err)
	}
	a := row.toDomain()
	if err := r.loadChildren(ctx, []*achievement.Achievement{a}); err != nil {
		return nil, err
	}
	return a, nil
}

// ListIncomplete returns achievements the member has not completed yet.
func (r *AchievementRepo) ListIncomplete(ctx context.Context, memberID int64) ([]*achievement.Achievement, error) {
	q := r.baseSelect().
		Where(fmt.Sprintf(
			"NOT EXISTS (SELECT 1 FROM %s c WHERE c.achievement_id = %s.id AND c.member_id = ?)",
			completionsTable, achievementsTable), memberID).
		OrderBy("id")
	return r.listWithChildren(ctx, q)
}

// ListAll returns every achievement with constraints and tasks loaded.
func (r *AchievementRepo) ListAll(ctx context.Context) ([]*achievement.Achievement, error) {
	return r.listWithChildren(ctx, r.baseSelect().OrderBy("id"))
}

// CreateCompletions bulk-inserts, skipping rows a member already earned.
func (r *AchievementRepo) CreateCompletions(ctx context.Context, completions []*achievement.Completion) error {
	if len(completions) == 0 {
		return nil
	}
	q := r.builder.Insert(completionsTable).
		Columns("member_id", "achievement_id", "completed_at").
		Suffix("ON CONFLICT (member_id, achievement_id) DO NOTHING")
	for _, c := range completions {
		q = q.Values(c.MemberID, c.AchievementID, c.CompletedAt)
	}
	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert completions: %w", err)
	}
	return nil
}

// ListCompletions returns the member's completions, newest first.
func (r *AchievementRepo) ListCompletions(ctx context.Context, memberID int64) ([]*achievement.Completion, error) {
	q := r.builder.Select("id", "member_id", "achievement_id", "completed_at").
		From(completionsTable).
		Where(squirrel.Eq{"member_id": memberID}).
		OrderBy("completed_at DESC")
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	var completions []*achievement.Completion
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &completions, sql, args...); err != nil {
		return nil, fmt.Errorf("list completions: %w", err)
	}
	return completions, nil
}

// CountCompletions counts how many members earned the achievement.
func (r *AchievementRepo) CountCompletions(ctx context.Context, achievementID int64) (int64, error) {
	sql := fmt.Sprintf("SELECT count(*) FROM %s WHERE achievement_id = $1", completionsTable)
	var n int64
	if err := r.txManager.GetQuerier(ctx).QueryRow(ctx, sql, achievementID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count completions: %w", err)
	}
	return n, nil
}

// CountCompletingMembers counts members with at least one completion.
func (r *AchievementRepo) CountCompletingMembers(ctx context.Context) (int64, error) {
	sql := fmt.Sprintf("SELECT count(DISTINCT member_id) FROM %s", completionsTable)
	var n int64
	if err := r.txManager.GetQuerier(ctx).QueryRow(ctx, sql).Scan(&n); err != nil {
		return 0, fmt.Errorf("count completing members: %w", err)
	}
	return n, nil
}

// LeaderboardTotals returns per-member completion totals.
func (r *AchievementRepo) LeaderboardTotals(ctx context.Context) ([]achievement.LeaderboardRow, error) {
	sql := fmt.Sprintf(
		"SELECT member_id, count(*) AS total FROM %s GROUP BY member_id ORDER BY total DESC, member_id",
		completionsTable)
	var rows []achievement.LeaderboardRow
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &rows, sql); err != nil {
		return nil, fmt.Errorf("leaderboard totals: %w", err)
	}
	return rows, nil
}

func (r *AchievementRepo) baseSelect() squirrel.SelectBuilder {
	return r.builder.
		Select("id", "title", "description", "icon", "active_from", "active_duration_secs").
		From(achievementsTable)
}

func (r *AchievementRepo) listWithChildren(ctx context.Context, q squirrel.SelectBuilder) ([]*achievement.Achievement, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	var rows []achievementRow
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("list achievements: %w", err)
	}
	achievements := make([]*achievement.Achievement, len(rows))
	for i, row := range rows {
		achievements[i] = row.toDomain()
	}
	if err := r.loadChildren(ctx, achievements); err != nil {
		return nil, err
	}
	return achievements, nil
}

// loadChildren attaches constraints and tasks to the given achievements.
func (r *AchievementRepo) loadChildren(ctx context.Context, achievements []*achievement.Achievement) error {
	if len(achievements) == 0 {
		return nil
	}
	byID := make(map[int64]*achievement.Achievement, len(achievements))
	ids := make([]int64, len(achievements))
	for i, a := range achievements {
		byID[a.ID] = a
		ids[i] = a.ID
	}

	cq := r.builder.Select("id", "achievement_id", "month_start", "month_end",
		"day_start", "day_end", "time_start", "time_end", "weekday").
		From(constraintsTable).
		Where(squirrel.Eq{"achievement_id": ids}).
		OrderBy("id")
	sql, args, err := cq.ToSql()
	if err != nil {
		return fmt.Errorf("build constraint query: %w", err)
	}
	var constraints []constraintRow
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &constraints, sql, args...); err != nil {
		return fmt.Errorf("load constraints: %w", err)
	}
	for _, row := range constraints {
		a := byID[row.AchievementID]
		a.Constraints = append(a.Constraints, row.toDomain())
	}

	tq := r.builder.Select("id", "achievement_id", "task_type", "product_id", "category_id", "goal_value").
		From(tasksTable).
		Where(squirrel.Eq{"achievement_id": ids}).
		OrderBy("id")
	sql, args, err = tq.ToSql()
	if err != nil {
		return fmt.Errorf("build task query: %w", err)
	}
	var tasks []achievement.Task
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &tasks, sql, args...); err != nil {
		return fmt.Errorf("load tasks: %w", err)
	}
	for _, t := range tasks {
		a := byID[t.AchievementID]
		a.Tasks = append(a.Tasks, t)
	}
	return nil
}
