package razzia

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stregsystem/internal/core/apperror"
	"stregsystem/internal/core/kroner"
	"stregsystem/internal/domain/member"
)

type fakeRepo struct {
	razzias map[int64]*Razzia
	entries []*Entry
	nextID  int64
}

func (r *fakeRepo) Create(ctx context.Context, rz *Razzia) error {
	r.nextID++
	rz.ID = r.nextID
	r.razzias[rz.ID] = rz
	return nil
}

func (r *fakeRepo) GetByID(ctx context.Context, id int64) (*Razzia, error) {
	rz, ok := r.razzias[id]
	if !ok {
		return nil, apperror.NewNotFound("razzia", id)
	}
	return rz, nil
}

func (r *fakeRepo) Update(ctx context.Context, rz *Razzia) error { return nil }

func (r *fakeRepo) ListRecent(ctx context.Context, limit int) ([]*Razzia, error) { return nil, nil }

func (r *fakeRepo) CreateEntry(ctx context.Context, e *Entry) error {
	r.entries = append(r.entries, e)
	return nil
}

func (r *fakeRepo) ListEntries(ctx context.Context, razziaID, memberID int64) ([]*Entry, error) {
	var out []*Entry
	for _, e := range r.entries {
		if e.RazziaID == razziaID && e.MemberID == memberID {
			out = append(out, e)
		}
	}
	// newest first
	for i := 0; i < len(out)/2; i++ {
		out[i], out[len(out)-1-i] = out[len(out)-1-i], out[i]
	}
	return out, nil
}

func (r *fakeRepo) MemberCounts(ctx context.Context, razziaID int64) ([]*MemberCount, error) {
	counts := make(map[int64]int)
	for _, e := range r.entries {
		if e.RazziaID == razziaID {
			counts[e.MemberID]++
		}
	}
	var out []*MemberCount
	for id, n := range counts {
		out = append(out, &MemberCount{MemberID: id, Entries: n})
	}
	return out, nil
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
	for _, m := range r.byID {
		if strings.EqualFold(m.Username, username) && m.Active {
			return m, nil
		}
	}
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

func newService(t *testing.T) (*Service, *fakeRepo, func(time.Time)) {
	t.Helper()
	repo := &fakeRepo{razzias: make(map[int64]*Razzia)}
	members := &fakeMembers{byID: map[int64]*member.Member{
		1: {ID: 1, Username: "jokke", Active: true},
	}}
	svc := NewService(repo, members)
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }
	return svc, repo, func(t time.Time) { now = t; svc.now = func() time.Time { return t } }
}

func TestIntervalCheckIn(t *testing.T) {
	svc, repo, setNow := newService(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	interval := 30 * time.Minute
	rz := &Razzia{Name: "Foobar", TurnInterval: &interval}
	require.NoError(t, repo.Create(ctx, rz))

	_, res, err := svc.CheckIn(ctx, rz.ID, "jokke")
	require.NoError(t, err)
	assert.True(t, res.Accepted)
	assert.Equal(t, 1, res.Turns)

	// still locked out one microsecond before the boundary
	setNow(base.Add(30*time.Minute - time.Microsecond))
	_, res, err = svc.CheckIn(ctx, rz.ID, "jokke")
	require.NoError(t, err)
	assert.False(t, res.Accepted)
	assert.Greater(t, res.Remaining, time.Duration(0))

	// exactly at the boundary the attempt accepts
	setNow(base.Add(30 * time.Minute))
	_, res, err = svc.CheckIn(ctx, rz.ID, "jokke")
	require.NoError(t, err)
	assert.True(t, res.Accepted)
	assert.Equal(t, 2, res.Turns)
}

func TestIntervalRemainingBreakdown(t *testing.T) {
	svc, repo, setNow := newService(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	interval := 30 * time.Minute
	rz := &Razzia{Name: "Fnugfald", TurnInterval: &interval}
	require.NoError(t, repo.Create(ctx, rz))

	_, _, err := svc.CheckIn(ctx, rz.ID, "jokke")
	require.NoError(t, err)

	setNow(base.Add(10*time.Minute + 15*time.Second))
	_, res, err := svc.CheckIn(ctx, rz.ID, "jokke")
	require.NoError(t, err)
	assert.False(t, res.Accepted)
	assert.Equal(t, 19, res.RemainingMinutes())
	assert.Equal(t, 45, res.RemainingSeconds())
}

func TestBreadRazziaOnceOnly(t *testing.T) {
	svc, repo, setNow := newService(t)
	ctx := context.Background()

	rz := &Razzia{Name: "Bread"}
	require.NoError(t, repo.Create(ctx, rz))

	_, res, err := svc.CheckIn(ctx, rz.ID, "jokke")
	require.NoError(t, err)
	assert.True(t, res.Accepted)

	// a year of waiting changes nothing
	setNow(time.Date(2027, 3, 10, 12, 0, 0, 0, time.UTC))
	_, res, err = svc.CheckIn(ctx, rz.ID, "jokke")
	require.NoError(t, err)
	assert.False(t, res.Accepted)
	assert.True(t, res.AlreadyCheckedIn)
	assert.Len(t, repo.entries, 1)
}

func TestCheckInUnknownMember(t *testing.T) {
	svc, repo, _ := newService(t)
	ctx := context.Background()

	rz := &Razzia{Name: "Foobar"}
	require.NoError(t, repo.Create(ctx, rz))

	_, _, err := svc.CheckIn(ctx, rz.ID, "ukendt")
	require.Error(t, err)
	assert.True(t, apperror.IsNotFound(err))
}

func TestMemberCounts(t *testing.T) {
	svc, repo, _ := newService(t)
	ctx := context.Background()

	repo.entries = []*Entry{
		{RazziaID: 1, MemberID: 1},
		{RazziaID: 1, MemberID: 1},
		{RazziaID: 1, MemberID: 2},
		{RazziaID: 2, MemberID: 3},
	}

	counts, err := svc.Members(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, counts, 2)
}
