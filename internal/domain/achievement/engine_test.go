package achievement

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stregsystem/internal/core/apperror"
	"stregsystem/internal/core/kroner"
	"stregsystem/internal/domain/catalog"
	"stregsystem/internal/domain/member"
	"stregsystem/internal/domain/physiology"
)

type saleRow struct {
	ts          time.Time
	productID   int64
	categoryIDs []int64
	price       kroner.Oere
}

type fakeRepo struct {
	achievements []*Achievement
	completions  []*Completion
}

func (r *fakeRepo) Create(ctx context.Context, a *Achievement) error { return nil }

func (r *fakeRepo) GetByID(ctx context.Context, id int64) (*Achievement, error) {
	for _, a := range r.achievements {
		if a.ID == id {
			return a, nil
		}
	}
	return nil, apperror.NewNotFound("achievement", id)
}

func (r *fakeRepo) ListIncomplete(ctx context.Context, memberID int64) ([]*Achievement, error) {
	done := make(map[int64]bool)
	for _, c := range r.completions {
		if c.MemberID == memberID {
			done[c.AchievementID] = true
		}
	}
	var out []*Achievement
	for _, a := range r.achievements {
		if !done[a.ID] {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *fakeRepo) ListAll(ctx context.Context) ([]*Achievement, error) {
	return r.achievements, nil
}

func (r *fakeRepo) CreateCompletions(ctx context.Context, completions []*Completion) error {
	for _, c := range completions {
		dup := false
		for _, have := range r.completions {
			if have.MemberID == c.MemberID && have.AchievementID == c.AchievementID {
				dup = true
				break
			}
		}
		if !dup {
			r.completions = append(r.completions, c)
		}
	}
	return nil
}

func (r *fakeRepo) ListCompletions(ctx context.Context, memberID int64) ([]*Completion, error) {
	var out []*Completion
	for _, c := range r.completions {
		if c.MemberID == memberID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *fakeRepo) CountCompletions(ctx context.Context, achievementID int64) (int64, error) {
	var n int64
	for _, c := range r.completions {
		if c.AchievementID == achievementID {
			n++
		}
	}
	return n, nil
}

func (r *fakeRepo) CountCompletingMembers(ctx context.Context) (int64, error) {
	seen := make(map[int64]bool)
	for _, c := range r.completions {
		seen[c.MemberID] = true
	}
	return int64(len(seen)), nil
}

func (r *fakeRepo) LeaderboardTotals(ctx context.Context) ([]LeaderboardRow, error) {
	totals := make(map[int64]int64)
	for _, c := range r.completions {
		totals[c.MemberID]++
	}
	var rows []LeaderboardRow
	for id, total := range totals {
		rows = append(rows, LeaderboardRow{MemberID: id, Total: total})
	}
	for i := 0; i < len(rows); i++ {
		for j := i + 1; j < len(rows); j++ {
			if rows[j].Total > rows[i].Total ||
				(rows[j].Total == rows[i].Total && rows[j].MemberID < rows[i].MemberID) {
				rows[i], rows[j] = rows[j], rows[i]
			}
		}
	}
	return rows, nil
}

// fakeSales answers composed queries with the reference MatchesSale
// semantics over an in-memory sale list.
type fakeSales struct {
	rows []saleRow
}

func (r *fakeSales) CountSales(ctx context.Context, q SaleQuery) (int64, error) {
	var n int64
	for _, row := range r.rows {
		if q.MatchesSale(row.ts, row.productID, row.categoryIDs) {
			n++
		}
	}
	return n, nil
}

func (r *fakeSales) SumSales(ctx context.Context, q SaleQuery) (kroner.Oere, error) {
	var sum kroner.Oere
	for _, row := range r.rows {
		if q.MatchesSale(row.ts, row.productID, row.categoryIDs) {
			sum += row.price
		}
	}
	return sum, nil
}

type fakeMembers struct {
	byID map[int64]*member.Member
}

func (r *fakeMembers) Create(ctx context.Context, m *member.Member) error { return nil }

func (r *fakeMembers) GetByID(ctx context.Context, id int64) (*member.Member, error) {
	m, ok := r.byID[id]
	if !ok {
		return nil, apperror.NewNotFound("member", id)
	}
	return m, nil
}

func (r *fakeMembers) GetByUsername(ctx context.Context, username string) (*member.Member, error) {
	return nil, apperror.NewNotFound("member", username)
}

func (r *fakeMembers) ListActiveByExactUsername(ctx context.Context, username string) ([]*member.Member, error) {
	return nil, nil
}

func (r *fakeMembers) GetForUpdate(ctx context.Context, id int64) (*member.Member, error) {
	return r.GetByID(ctx, id)
}

func (r *fakeMembers) UpdateBalance(ctx context.Context, id int64, balance kroner.Oere) error {
	return nil
}

func (r *fakeMembers) Update(ctx context.Context, m *member.Member) error { return nil }

func (r *fakeMembers) UsernameTaken(ctx context.Context, username string) (bool, error) {
	return false, nil
}

type fakeCatalog struct {
	products map[int64]*catalog.Product
}

func (r *fakeCatalog) CreateProduct(ctx context.Context, p *catalog.Product) error { return nil }

func (r *fakeCatalog) GetProduct(ctx context.Context, id int64) (*catalog.Product, error) {
	p, ok := r.products[id]
	if !ok {
		return nil, apperror.NewNotFound("product", id)
	}
	return p, nil
}

func (r *fakeCatalog) UpdateProduct(ctx context.Context, p *catalog.Product) error { return nil }

func (r *fakeCatalog) ListActiveProducts(ctx context.Context, roomID int64, now time.Time) ([]*catalog.Product, error) {
	return nil, nil
}

func (r *fakeCatalog) CountSalesSince(ctx context.Context, productID int64, since time.Time) (int64, error) {
	return 0, nil
}

func (r *fakeCatalog) AppendOldPrice(ctx context.Context, op *catalog.OldPrice) error { return nil }

func (r *fakeCatalog) ListOldPrices(ctx context.Context, productID int64) ([]*catalog.OldPrice, error) {
	return nil, nil
}

func (r *fakeCatalog) GetRoom(ctx context.Context, id int64) (*catalog.Room, error) {
	return nil, apperror.NewNotFound("room", id)
}

func (r *fakeCatalog) ListRooms(ctx context.Context) ([]*catalog.Room, error) { return nil, nil }

func (r *fakeCatalog) GetCategory(ctx context.Context, id int64) (*catalog.Category, error) {
	return nil, apperror.NewNotFound("category", id)
}

func (r *fakeCatalog) ListCategories(ctx context.Context) ([]*catalog.Category, error) {
	return nil, nil
}

func (r *fakeCatalog) CreateNamedProduct(ctx context.Context, n *catalog.NamedProduct) error {
	return nil
}

func (r *fakeCatalog) GetNamedProduct(ctx context.Context, name string) (*catalog.NamedProduct, error) {
	return nil, apperror.NewNotFound("named product", name)
}

func (r *fakeCatalog) ListNamedProducts(ctx context.Context) ([]*catalog.NamedProduct, error) {
	return nil, nil
}

func (r *fakeCatalog) ListActiveNotes(ctx context.Context, roomID int64, now time.Time) ([]*catalog.ProductNote, error) {
	return nil, nil
}

type fakeTimelines struct{}

func (fakeTimelines) DrinkTimeline(ctx context.Context, memberID int64, after time.Time) ([]physiology.DrinkEvent, error) {
	return nil, nil
}

func (fakeTimelines) CaffeineIntakes(ctx context.Context, memberID int64, after time.Time) ([]physiology.Intake, error) {
	// the physiology service clocks with real time; a fresh intake keeps
	// the decay at zero regardless of when the test runs
	return []physiology.Intake{{Timestamp: time.Now(), MG: 140}}, nil
}

var engineNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

type engineFixture struct {
	engine  *Engine
	repo    *fakeRepo
	sales   *fakeSales
	members *fakeMembers
	catalog *fakeCatalog
}

func newEngineFixture(t *testing.T) *engineFixture {
	t.Helper()
	f := &engineFixture{
		repo:    &fakeRepo{},
		sales:   &fakeSales{},
		members: &fakeMembers{byID: make(map[int64]*member.Member)},
		catalog: &fakeCatalog{products: make(map[int64]*catalog.Product)},
	}
	physio := physiology.NewService(fakeTimelines{}, physiology.DefaultConfig())
	f.engine = NewEngine(f.repo, f.sales, f.members, f.catalog, physio)
	f.engine.now = func() time.Time { return engineNow }

	f.members.byID[1] = &member.Member{ID: 1, Username: "jokke", Active: true, Balance: 10000}
	f.catalog.products[14] = &catalog.Product{ID: 14, Name: "Øl", Price: 600, CategoryIDs: []int64{2}, AlcoholContentML: 16}
	f.catalog.products[7] = &catalog.Product{ID: 7, Name: "Kaffe", Price: 200, CaffeineContentMG: 70}
	return f
}

func TestEvaluateCompletesCountTask(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	f.repo.achievements = []*Achievement{{
		ID: 1, Title: "Tre øl",
		Tasks: []Task{{ID: 1, AchievementID: 1, TaskType: TaskProduct, ProductID: i64p(14), GoalValue: 3}},
	}}
	for i := 0; i < 3; i++ {
		f.sales.rows = append(f.sales.rows, saleRow{
			ts: engineNow.Add(-time.Duration(i) * time.Hour), productID: 14, categoryIDs: []int64{2}, price: 600,
		})
	}

	done, err := f.engine.Evaluate(ctx, 1, []int64{14})
	require.NoError(t, err)
	require.Len(t, done, 1)
	assert.Equal(t, "Tre øl", done[0].Title)
	require.Len(t, f.repo.completions, 1)

	// idempotent: re-evaluation finds nothing new
	done, err = f.engine.Evaluate(ctx, 1, []int64{14})
	require.NoError(t, err)
	assert.Empty(t, done)
	assert.Len(t, f.repo.completions, 1)
}

func TestEvaluateGoalNotReached(t *testing.T) {
	f := newEngineFixture(t)
	f.repo.achievements = []*Achievement{{
		ID: 1, Title: "Tre øl",
		Tasks: []Task{{TaskType: TaskProduct, ProductID: i64p(14), GoalValue: 3}},
	}}
	f.sales.rows = []saleRow{{ts: engineNow, productID: 14, price: 600}}

	done, err := f.engine.Evaluate(context.Background(), 1, []int64{14})
	require.NoError(t, err)
	assert.Empty(t, done)
}

func TestEvaluateSkipsIrrelevant(t *testing.T) {
	f := newEngineFixture(t)
	f.repo.achievements = []*Achievement{{
		ID: 1, Title: "Kaffemester",
		Tasks: []Task{{TaskType: TaskProduct, ProductID: i64p(7), GoalValue: 1}},
	}}
	// plenty of coffee history, but this purchase is beer only
	f.sales.rows = []saleRow{{ts: engineNow, productID: 7, price: 200}}

	done, err := f.engine.Evaluate(context.Background(), 1, []int64{14})
	require.NoError(t, err)
	assert.Empty(t, done)
}

func TestEvaluateInactiveConstraint(t *testing.T) {
	f := newEngineFixture(t)
	// only active in December; now is March
	f.repo.achievements = []*Achievement{{
		ID: 1, Title: "Julebryg",
		Constraints: []Constraint{{MonthStart: ip(12), MonthEnd: ip(12)}},
		Tasks:       []Task{{TaskType: TaskAnyPurchase, GoalValue: 1}},
	}}
	f.sales.rows = []saleRow{{ts: engineNow, productID: 14, price: 600}}

	done, err := f.engine.Evaluate(context.Background(), 1, []int64{14})
	require.NoError(t, err)
	assert.Empty(t, done)
}

func TestEvaluateSlidingWindow(t *testing.T) {
	f := newEngineFixture(t)
	dur := 24 * time.Hour
	f.repo.achievements = []*Achievement{{
		ID: 1, Title: "To øl på en dag", ActiveDuration: &dur,
		Tasks: []Task{{TaskType: TaskProduct, ProductID: i64p(14), GoalValue: 2}},
	}}
	f.sales.rows = []saleRow{
		{ts: engineNow.Add(-48 * time.Hour), productID: 14, price: 600}, // outside window
		{ts: engineNow.Add(-1 * time.Hour), productID: 14, price: 600},
	}

	done, err := f.engine.Evaluate(context.Background(), 1, []int64{14})
	require.NoError(t, err)
	assert.Empty(t, done)

	f.sales.rows = append(f.sales.rows, saleRow{ts: engineNow, productID: 14, price: 600})
	done, err = f.engine.Evaluate(context.Background(), 1, []int64{14})
	require.NoError(t, err)
	assert.Len(t, done, 1)
}

func TestEvaluateMultiTaskAllMustHold(t *testing.T) {
	f := newEngineFixture(t)
	f.repo.achievements = []*Achievement{{
		ID: 1, Title: "Velhavende øldrikker",
		Tasks: []Task{
			{TaskType: TaskProduct, ProductID: i64p(14), GoalValue: 1},
			{TaskType: TaskRemainingFunds, GoalValue: 50000},
		},
	}}
	f.sales.rows = []saleRow{{ts: engineNow, productID: 14, price: 600}}

	done, err := f.engine.Evaluate(context.Background(), 1, []int64{14})
	require.NoError(t, err)
	assert.Empty(t, done)

	f.members.byID[1].Balance = 50000
	done, err = f.engine.Evaluate(context.Background(), 1, []int64{14})
	require.NoError(t, err)
	assert.Len(t, done, 1)
}

func TestEvaluateUsedFunds(t *testing.T) {
	f := newEngineFixture(t)
	f.repo.achievements = []*Achievement{{
		ID: 1, Title: "Storforbruger",
		Tasks: []Task{{TaskType: TaskUsedFunds, GoalValue: 1000}},
	}}
	f.sales.rows = []saleRow{
		{ts: engineNow, productID: 14, price: 600},
		{ts: engineNow.Add(-time.Hour), productID: 14, price: 600},
	}

	done, err := f.engine.Evaluate(context.Background(), 1, []int64{14})
	require.NoError(t, err)
	assert.Len(t, done, 1)
}

func TestEvaluateCaffeineTask(t *testing.T) {
	f := newEngineFixture(t)
	// fake timeline holds 140 mg right now; goal is in centi-units
	f.repo.achievements = []*Achievement{{
		ID: 1, Title: "Koffeinchok",
		Tasks: []Task{{TaskType: TaskCaffeineContent, GoalValue: 10000}},
	}}

	done, err := f.engine.Evaluate(context.Background(), 1, []int64{7})
	require.NoError(t, err)
	assert.Len(t, done, 1)
}

func TestRarity(t *testing.T) {
	f := newEngineFixture(t)
	f.repo.completions = []*Completion{
		{MemberID: 1, AchievementID: 1},
		{MemberID: 2, AchievementID: 1},
		{MemberID: 2, AchievementID: 2},
		{MemberID: 3, AchievementID: 2},
		{MemberID: 4, AchievementID: 3},
	}

	r, err := f.engine.Rarity(context.Background(), 1)
	require.NoError(t, err)
	assert.InDelta(t, 50.0, r, 1e-9)
}

func TestLeaderboardPosition(t *testing.T) {
	f := newEngineFixture(t)
	f.repo.completions = []*Completion{
		{MemberID: 1, AchievementID: 1},
		{MemberID: 2, AchievementID: 1},
		{MemberID: 2, AchievementID: 2},
		{MemberID: 3, AchievementID: 3},
	}

	// totals: member 2 -> 2 (rank 1); members 1 and 3 -> 1 (rank 2)
	pos, err := f.engine.LeaderboardPosition(context.Background(), 2)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, pos, 1e-9)

	pos, err = f.engine.LeaderboardPosition(context.Background(), 1)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, pos, 1e-9)

	pos, err = f.engine.LeaderboardPosition(context.Background(), 99)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, pos, 1e-9)
}
