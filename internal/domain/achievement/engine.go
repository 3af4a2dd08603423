package achievement

import (
	"context"
	"time"

	"stregsystem/internal/domain/catalog"
	"stregsystem/internal/domain/events"
	"stregsystem/internal/domain/member"
	"stregsystem/internal/domain/physiology"
	"stregsystem/pkg/logger"
)

// Engine evaluates achievements for a member after every committed sale.
type Engine struct {
	repo    Repository
	sales   SaleCounter
	members member.Repository
	catalog catalog.Repository
	physio  *physiology.Service
	now     func() time.Time
}

// NewEngine creates the evaluator.
func NewEngine(repo Repository, sales SaleCounter, members member.Repository, cat catalog.Repository, physio *physiology.Service) *Engine {
	return &Engine{
		repo:    repo,
		sales:   sales,
		members: members,
		catalog: cat,
		physio:  physio,
		now:     time.Now,
	}
}

// Register subscribes the engine to the sale event stream.
func (e *Engine) Register(bus *events.Bus) {
	bus.Subscribe(events.SalesCommitted{}.EventName(), func(ctx context.Context, ev events.Event) {
		sc := ev.(events.SalesCommitted)
		if _, err := e.Evaluate(ctx, sc.MemberID, sc.ProductIDs); err != nil {
			logger.Error(ctx, "achievement evaluation failed", "member_id", sc.MemberID, "error", err)
		}
	})
}

// Evaluate runs the full pipeline for one purchase and returns the newly
// completed achievements. Completions are bulk-inserted; the uniqueness
// constraint makes re-evaluation idempotent.
func (e *Engine) Evaluate(ctx context.Context, memberID int64, productIDs []int64) ([]*Achievement, error) {
	now := e.now()

	purchase, err := e.describePurchase(ctx, productIDs)
	if err != nil {
		return nil, err
	}

	candidates, err := e.repo.ListIncomplete(ctx, memberID)
	if err != nil {
		return nil, err
	}

	m, err := e.members.GetByID(ctx, memberID)
	if err != nil {
		return nil, err
	}

	var completed []*Achievement
	var rows []*Completion
	for _, a := range candidates {
		if !a.ActiveAt(now) || !a.RelevantTo(purchase) {
			continue
		}
		met, err := e.allTasksMet(ctx, m, a, now)
		if err != nil {
			return nil, err
		}
		if met {
			completed = append(completed, a)
			rows = append(rows, &Completion{MemberID: memberID, AchievementID: a.ID, CompletedAt: now})
		}
	}

	if len(rows) > 0 {
		if err := e.repo.CreateCompletions(ctx, rows); err != nil {
			return nil, err
		}
		logger.Info(ctx, "achievements completed", "member_id", memberID, "count", len(rows))
	}
	return completed, nil
}

func (e *Engine) describePurchase(ctx context.Context, productIDs []int64) (Purchase, error) {
	p := Purchase{}
	seen := make(map[int64]bool)
	for _, id := range productIDs {
		if seen[id] {
			continue
		}
		seen[id] = true
		prod, err := e.catalog.GetProduct(ctx, id)
		if err != nil {
			return p, err
		}
		p.ProductIDs = append(p.ProductIDs, id)
		p.CategoryIDs = append(p.CategoryIDs, prod.CategoryIDs...)
		if prod.AlcoholContentML > 0 {
			p.HasAlcohol = true
		}
		if prod.CaffeineContentMG > 0 {
			p.HasCaffeine = true
		}
	}
	return p, nil
}

func (e *Engine) allTasksMet(ctx context.Context, m *member.Member, a *Achievement, now time.Time) (bool, error) {
	for i := range a.Tasks {
		t := &a.Tasks[i]
		met, err := e.taskMet(ctx, m, a, t, now)
		if err != nil {
			return false, err
		}
		if !met {
			return false, nil
		}
	}
	return true, nil
}

func (e *Engine) taskMet(ctx context.Context, m *member.Member, a *Achievement, t *Task, now time.Time) (bool, error) {
	switch t.TaskType {
	case TaskProduct, TaskCategory, TaskAnyPurchase:
		count, err := e.sales.CountSales(ctx, TaskQuery(m.ID, a, t, now))
		if err != nil {
			return false, err
		}
		return count >= t.GoalValue, nil

	case TaskUsedFunds:
		sum, err := e.sales.SumSales(ctx, TaskQuery(m.ID, a, t, now))
		if err != nil {
			return false, err
		}
		return int64(sum) >= t.GoalValue, nil

	case TaskRemainingFunds:
		return int64(m.Balance) >= t.GoalValue, nil

	case TaskAlcoholContent:
		promille, err := e.physio.Promille(ctx, m)
		if err != nil {
			return false, err
		}
		return promille >= float64(t.GoalValue)/100, nil

	case TaskCaffeineContent:
		mg, _, err := e.physio.Caffeine(ctx, m.ID)
		if err != nil {
			return false, err
		}
		return mg >= float64(t.GoalValue)/100, nil
	}
	return false, nil
}

// Rarity returns the share of completing members that earned the
// achievement, in percent. Zero completing members yields zero.
func (e *Engine) Rarity(ctx context.Context, achievementID int64) (float64, error) {
	completions, err := e.repo.CountCompletions(ctx, achievementID)
	if err != nil {
		return 0, err
	}
	members, err := e.repo.CountCompletingMembers(ctx)
	if err != nil {
		return 0, err
	}
	if members == 0 {
		return 0, nil
	}
	return 100 * float64(completions) / float64(members), nil
}

// LeaderboardPosition dense-ranks members by completion totals and returns
// the member's rank over the number of distinct ranks. A member without
// completions is at 1.0.
func (e *Engine) LeaderboardPosition(ctx context.Context, memberID int64) (float64, error) {
	rows, err := e.repo.LeaderboardTotals(ctx)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 1.0, nil
	}

	rank, memberRank := 0, 0
	var prevTotal int64 = -1
	for _, row := range rows {
		if row.Total != prevTotal {
			rank++
			prevTotal = row.Total
		}
		if row.MemberID == memberID {
			memberRank = rank
		}
	}
	if memberRank == 0 {
		return 1.0, nil
	}
	return float64(memberRank) / float64(rank), nil
}

// Missing lists achievements the member has not yet earned.
func (e *Engine) Missing(ctx context.Context, memberID int64) ([]*Achievement, error) {
	return e.repo.ListIncomplete(ctx, memberID)
}

// Earned lists the member's completions.
func (e *Engine) Earned(ctx context.Context, memberID int64) ([]*Completion, error) {
	return e.repo.ListCompletions(ctx, memberID)
}
