package order

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stregsystem/internal/core/apperror"
	"stregsystem/internal/core/kroner"
	"stregsystem/internal/domain/catalog"
	"stregsystem/internal/domain/events"
	"stregsystem/internal/domain/member"
)

type fakeTxManager struct{}

func (fakeTxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
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
	cp := *m
	return &cp, nil
}

func (r *fakeMembers) GetByUsername(ctx context.Context, username string) (*member.Member, error) {
	for _, m := range r.byID {
		if m.Username == username && m.Active {
			cp := *m
			return &cp, nil
		}
	}
	return nil, apperror.NewNotFound("member", username)
}

func (r *fakeMembers) ListActiveByExactUsername(ctx context.Context, username string) ([]*member.Member, error) {
	var out []*member.Member
	for _, m := range r.byID {
		if m.Username == username && m.Active {
			cp := *m
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeMembers) GetForUpdate(ctx context.Context, id int64) (*member.Member, error) {
	return r.GetByID(ctx, id)
}

func (r *fakeMembers) UpdateBalance(ctx context.Context, id int64, balance kroner.Oere) error {
	r.byID[id].Balance = balance
	return nil
}

func (r *fakeMembers) Update(ctx context.Context, m *member.Member) error { return nil }

func (r *fakeMembers) UsernameTaken(ctx context.Context, username string) (bool, error) {
	return false, nil
}

type fakeCatalog struct {
	products map[int64]*catalog.Product
	aliases  map[string]int64
	sold     map[int64]int64
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
	return r.sold[productID], nil
}

func (r *fakeCatalog) AppendOldPrice(ctx context.Context, op *catalog.OldPrice) error { return nil }

func (r *fakeCatalog) ListOldPrices(ctx context.Context, productID int64) ([]*catalog.OldPrice, error) {
	return nil, nil
}

func (r *fakeCatalog) GetRoom(ctx context.Context, id int64) (*catalog.Room, error) {
	return &catalog.Room{ID: id}, nil
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
	id, ok := r.aliases[name]
	if !ok {
		return nil, apperror.NewNotFound("named product", name)
	}
	return &catalog.NamedProduct{Name: name, ProductID: id}, nil
}

func (r *fakeCatalog) ListNamedProducts(ctx context.Context) ([]*catalog.NamedProduct, error) {
	return nil, nil
}

func (r *fakeCatalog) ListActiveNotes(ctx context.Context, roomID int64, now time.Time) ([]*catalog.ProductNote, error) {
	return nil, nil
}

type fakeSales struct {
	rows   []*Sale
	nextID int64
}

func (r *fakeSales) CreateBulk(ctx context.Context, sales []*Sale) error {
	for _, s := range sales {
		r.nextID++
		s.ID = r.nextID
		r.rows = append(r.rows, s)
	}
	return nil
}

func (r *fakeSales) GetByID(ctx context.Context, id int64) (*Sale, error) {
	for _, s := range r.rows {
		if s.ID == id {
			return s, nil
		}
	}
	return nil, apperror.NewNotFound("sale", id)
}

func (r *fakeSales) Delete(ctx context.Context, id int64) error { return nil }

func (r *fakeSales) ListRecent(ctx context.Context, memberID int64, after time.Time) ([]*Sale, error) {
	var out []*Sale
	for _, s := range r.rows {
		if s.MemberID == memberID && s.Timestamp.After(after) {
			out = append(out, s)
		}
	}
	return out, nil
}

type fixture struct {
	svc     *Service
	members *fakeMembers
	catalog *fakeCatalog
	sales   *fakeSales
	bus     *events.Bus
	now     time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		members: &fakeMembers{byID: make(map[int64]*member.Member)},
		catalog: &fakeCatalog{
			products: make(map[int64]*catalog.Product),
			aliases:  make(map[string]int64),
			sold:     make(map[int64]int64),
		},
		sales: &fakeSales{},
		bus:   events.NewBus(),
		now:   time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC),
	}
	f.svc = NewService(f.sales, f.members, f.catalog, fakeTxManager{}, f.bus, time.UTC)
	f.svc.now = func() time.Time { return f.now }

	f.members.byID[1] = &member.Member{
		ID: 1, Username: "jokke", Active: true, SignupDuePaid: true, Balance: 10000,
	}
	f.catalog.products[14] = &catalog.Product{ID: 14, Name: "Øl", Price: 600, Active: true}
	f.catalog.products[7] = &catalog.Product{ID: 7, Name: "Sodavand", Price: 400, Active: true}
	f.catalog.aliases["øl"] = 14
	return f
}

func TestExecuteDebitsAndAppendsSales(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var got events.SalesCommitted
	f.bus.Subscribe(events.SalesCommitted{}.EventName(), func(ctx context.Context, e events.Event) {
		got = e.(events.SalesCommitted)
	})

	m, _ := f.members.GetByID(ctx, 1)
	o := FromProducts(m, 1, []*catalog.Product{f.catalog.products[14], f.catalog.products[14], f.catalog.products[7]})

	sales, err := f.svc.Execute(ctx, o)
	require.NoError(t, err)
	require.Len(t, sales, 3)

	assert.Equal(t, kroner.Oere(10000-1600), f.members.byID[1].Balance)
	assert.Equal(t, kroner.Oere(10000-1600), m.Balance)
	for _, s := range sales {
		assert.Equal(t, f.now, s.Timestamp)
	}
	assert.Equal(t, kroner.Oere(600), sales[0].Price)
	assert.Equal(t, kroner.Oere(400), sales[2].Price)

	assert.Equal(t, int64(1), got.MemberID)
	assert.Equal(t, []int64{14, 14, 7}, got.ProductIDs)
	assert.Equal(t, kroner.Oere(1600), got.Total)
}

func TestExecuteInventoryExhausted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	f.catalog.products[14].StartDate = &start
	f.catalog.products[14].Quantity = 3
	f.catalog.sold[14] = 2

	m, _ := f.members.GetByID(ctx, 1)
	o := FromProducts(m, 1, []*catalog.Product{f.catalog.products[14], f.catalog.products[14]})

	_, err := f.svc.Execute(ctx, o)
	require.Error(t, err)
	assert.True(t, apperror.IsNoMoreInventory(err))
	assert.Equal(t, kroner.Oere(10000), f.members.byID[1].Balance)
	assert.Empty(t, f.sales.rows)
}

func TestExecuteLastUnitSells(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	f.catalog.products[14].StartDate = &start
	f.catalog.products[14].Quantity = 3
	f.catalog.sold[14] = 2

	m, _ := f.members.GetByID(ctx, 1)
	o := FromProducts(m, 1, []*catalog.Product{f.catalog.products[14]})

	_, err := f.svc.Execute(ctx, o)
	require.NoError(t, err)
}

func TestExecuteStregforbud(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.members.byID[1].Balance = 500

	m, _ := f.members.GetByID(ctx, 1)
	o := FromProducts(m, 1, []*catalog.Product{f.catalog.products[14]})

	_, err := f.svc.Execute(ctx, o)
	require.Error(t, err)
	assert.True(t, apperror.IsStregforbud(err))
	assert.Empty(t, f.sales.rows)

	o.OverrideStregforbud = true
	_, err = f.svc.Execute(ctx, o)
	require.NoError(t, err)
	assert.Equal(t, kroner.Oere(-100), f.members.byID[1].Balance)
}

func TestQuickBuyFullLine(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.svc.QuickBuy(ctx, 1, "jokke øl:2 7")
	require.NoError(t, err)
	require.NotNil(t, res.Order)
	assert.Len(t, res.Sales, 3)
	assert.Equal(t, kroner.Oere(10000-1600), res.Member.Balance)
}

func TestQuickBuyUsernameOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.svc.QuickBuy(ctx, 1, "jokke")
	require.NoError(t, err)
	assert.Nil(t, res.Order)
	assert.Equal(t, "jokke", res.Member.Username)
	assert.Empty(t, f.sales.rows)
}

func TestQuickBuyEmptyLine(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.QuickBuy(context.Background(), 1, "   ")
	require.Error(t, err)
}

func TestQuickBuySignupDueUnpaid(t *testing.T) {
	f := newFixture(t)
	f.members.byID[1].SignupDuePaid = false

	_, err := f.svc.QuickBuy(context.Background(), 1, "jokke 14")
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeSignupDueUnpaid))
}

func TestQuickBuyUnknownProduct(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.QuickBuy(context.Background(), 1, "jokke 999")
	require.Error(t, err)
	assert.True(t, apperror.IsNotFound(err))
}

func TestMultibuyHint(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// two separate purchases inside the window, one product repeated
	t1 := f.now.Add(-30 * time.Second)
	t2 := f.now.Add(-10 * time.Second)
	f.sales.rows = []*Sale{
		{ID: 1, MemberID: 1, ProductID: 14, Timestamp: t1, Price: 600},
		{ID: 2, MemberID: 1, ProductID: 14, Timestamp: t2, Price: 600},
		{ID: 3, MemberID: 1, ProductID: 7, Timestamp: t2, Price: 400},
	}

	give, hint, err := f.svc.MultibuyHint(ctx, f.members.byID[1])
	require.NoError(t, err)
	assert.True(t, give)
	assert.Equal(t, "jokke 7 14:2", hint)
}

func TestMultibuyHintSinglePurchase(t *testing.T) {
	f := newFixture(t)
	f.sales.rows = []*Sale{
		{ID: 1, MemberID: 1, ProductID: 14, Timestamp: f.now.Add(-5 * time.Second), Price: 600},
	}
	give, _, err := f.svc.MultibuyHint(context.Background(), f.members.byID[1])
	require.NoError(t, err)
	assert.False(t, give)
}

func TestMultibuyHintAllDistinct(t *testing.T) {
	f := newFixture(t)
	f.sales.rows = []*Sale{
		{ID: 1, MemberID: 1, ProductID: 14, Timestamp: f.now.Add(-30 * time.Second), Price: 600},
		{ID: 2, MemberID: 1, ProductID: 7, Timestamp: f.now.Add(-10 * time.Second), Price: 400},
	}
	give, _, err := f.svc.MultibuyHint(context.Background(), f.members.byID[1])
	require.NoError(t, err)
	assert.False(t, give)
}
