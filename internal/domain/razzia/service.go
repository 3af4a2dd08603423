package razzia

import (
	"context"
	"time"

	"stregsystem/internal/domain/member"
	"stregsystem/pkg/logger"
)

// Service runs razzia check-ins.
type Service struct {
	repo    Repository
	members member.Repository
	now     func() time.Time
}

// NewService creates a razzia service.
func NewService(repo Repository, members member.Repository) *Service {
	return &Service{repo: repo, members: members, now: time.Now}
}

// New creates a fresh interval razzia with the default lockout.
func (s *Service) New(ctx context.Context, name string) (*Razzia, error) {
	interval := DefaultTurnInterval
	r := &Razzia{Name: name, TurnInterval: &interval, StartDate: s.now()}
	if err := s.repo.Create(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

// CheckIn attempts a check-in by username. An attempt at exactly
// last + turn_interval is accepted; any earlier attempt is rejected with
// the remaining lockout.
func (s *Service) CheckIn(ctx context.Context, razziaID int64, username string) (*member.Member, CheckInResult, error) {
	r, err := s.repo.GetByID(ctx, razziaID)
	if err != nil {
		return nil, CheckInResult{}, err
	}
	m, err := s.members.GetByUsername(ctx, username)
	if err != nil {
		return nil, CheckInResult{}, err
	}

	entries, err := s.repo.ListEntries(ctx, r.ID, m.ID)
	if err != nil {
		return nil, CheckInResult{}, err
	}

	if len(entries) > 0 {
		if r.OnceOnly() {
			return m, CheckInResult{AlreadyCheckedIn: true, Turns: len(entries)}, nil
		}
		now := s.now()
		readyAt := entries[0].Time.Add(*r.TurnInterval)
		if now.Before(readyAt) {
			return m, CheckInResult{Remaining: readyAt.Sub(now), Turns: len(entries)}, nil
		}
	}

	e := &Entry{RazziaID: r.ID, MemberID: m.ID, Time: s.now()}
	if err := s.repo.CreateEntry(ctx, e); err != nil {
		return nil, CheckInResult{}, err
	}
	logger.Info(ctx, "razzia check-in", "razzia_id", r.ID, "member_id", m.ID)
	return m, CheckInResult{Accepted: true, Turns: len(entries) + 1}, nil
}

// Members lists distinct checked-in members with their counts.
func (s *Service) Members(ctx context.Context, razziaID int64) ([]*MemberCount, error) {
	return s.repo.MemberCounts(ctx, razziaID)
}

// Recent returns the newest razzias for the menu.
func (s *Service) Recent(ctx context.Context, limit int) ([]*Razzia, error) {
	return s.repo.ListRecent(ctx, limit)
}
