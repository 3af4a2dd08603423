package achievement

import (
	"context"

	"stregsystem/internal/core/kroner"
)

// LeaderboardRow is one member's completion total.
type LeaderboardRow struct {
	MemberID int64 `db:"member_id"`
	Total    int64 `db:"total"`
}

// Repository persists achievement definitions and completions.
type Repository interface {
	Create(ctx context.Context, a *Achievement) error
	GetByID(ctx context.Context, id int64) (*Achievement, error)
	// ListIncomplete returns achievements the member has not completed,
	// with constraints and tasks loaded.
	ListIncomplete(ctx context.Context, memberID int64) ([]*Achievement, error)
	ListAll(ctx context.Context) ([]*Achievement, error)

	// CreateCompletions bulk-inserts, silently skipping rows that violate
	// the (member, achievement) uniqueness.
	CreateCompletions(ctx context.Context, completions []*Completion) error
	ListCompletions(ctx context.Context, memberID int64) ([]*Completion, error)

	// CountCompletions counts how many members earned the achievement.
	CountCompletions(ctx context.Context, achievementID int64) (int64, error)
	// CountCompletingMembers counts members with at least one completion.
	CountCompletingMembers(ctx context.Context) (int64, error)
	// LeaderboardTotals returns per-member completion totals ordered by
	// total desc, member id asc.
	LeaderboardTotals(ctx context.Context) ([]LeaderboardRow, error)
}

// SaleCounter executes composed sale queries against the sale history.
type SaleCounter interface {
	CountSales(ctx context.Context, q SaleQuery) (int64, error)
	SumSales(ctx context.Context, q SaleQuery) (kroner.Oere, error)
}
