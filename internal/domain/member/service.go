package member

import (
	"context"
	"fmt"

	"stregsystem/internal/core/apperror"
	"stregsystem/internal/core/tx"
	"stregsystem/internal/domain/events"
	"stregsystem/pkg/logger"
)

// Service provides business operations on members.
type Service struct {
	repo      Repository
	signups   SignupRepository
	txManager tx.Manager
	bus       *events.Bus
}

// NewService creates a new member service.
func NewService(repo Repository, signups SignupRepository, txManager tx.Manager, bus *events.Bus) *Service {
	return &Service{
		repo:      repo,
		signups:   signups,
		txManager: txManager,
		bus:       bus,
	}
}

// Signup creates a member with an unpaid due and its pending signup record.
// The member stays unable to buy until the due is paid down by mobile
// payments (see the payment package).
func (s *Service) Signup(ctx context.Context, m *Member) (*PendingSignup, error) {
	if err := m.Validate(ctx); err != nil {
		return nil, err
	}

	taken, err := s.repo.UsernameTaken(ctx, m.Username)
	if err != nil {
		return nil, fmt.Errorf("check username: %w", err)
	}
	if taken {
		return nil, apperror.NewDuplicate("member", "username", m.Username)
	}

	m.Active = true
	m.SignupDuePaid = false

	var signup *PendingSignup
	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, m); err != nil {
			return fmt.Errorf("create member: %w", err)
		}
		signup = NewPendingSignup(m.ID)
		if err := s.signups.Create(ctx, signup); err != nil {
			return fmt.Errorf("create pending signup: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.bus.Publish(ctx, events.MemberCreated{MemberID: m.ID, Username: m.Username})
	logger.Info(ctx, "member signed up", "member_id", m.ID, "username", m.Username)
	return signup, nil
}

// GetByID retrieves a member.
func (s *Service) GetByID(ctx context.Context, id int64) (*Member, error) {
	return s.repo.GetByID(ctx, id)
}

// GetByUsername retrieves an active member by exact username.
func (s *Service) GetByUsername(ctx context.Context, username string) (*Member, error) {
	return s.repo.GetByUsername(ctx, username)
}

// SignupStatus retrieves a pending signup for the status page.
func (s *Service) SignupStatus(ctx context.Context, signupID int64) (*PendingSignup, *Member, error) {
	signup, err := s.signups.GetByID(ctx, signupID)
	if err != nil {
		return nil, nil, err
	}
	m, err := s.repo.GetByID(ctx, signup.MemberID)
	if err != nil {
		return nil, nil, err
	}
	return signup, m, nil
}
