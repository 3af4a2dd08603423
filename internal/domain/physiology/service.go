package physiology

import (
	"context"
	"time"

	"stregsystem/internal/domain/member"
)

// TimelineRepository loads a member's recent intake timelines from the sale
// history, ordered oldest first.
type TimelineRepository interface {
	// DrinkTimeline returns one event per sale of an alcohol-containing
	// product after the given instant.
	DrinkTimeline(ctx context.Context, memberID int64, after time.Time) ([]DrinkEvent, error)

	// CaffeineIntakes returns one intake per sale of a caffeinated
	// product after the given instant.
	CaffeineIntakes(ctx context.Context, memberID int64, after time.Time) ([]Intake, error)
}

// Service computes the display figures for a member.
type Service struct {
	repo TimelineRepository
	cfg  Config
	now  func() time.Time
}

// NewService creates a physiology service.
func NewService(repo TimelineRepository, cfg Config) *Service {
	return &Service{repo: repo, cfg: cfg, now: time.Now}
}

// Promille returns the member's current blood alcohol content.
func (s *Service) Promille(ctx context.Context, m *member.Member) (float64, error) {
	now := s.now()
	timeline, err := s.repo.DrinkTimeline(ctx, m.ID, now.Add(-BACWindow))
	if err != nil {
		return 0, err
	}
	return s.cfg.BACTimeline(m.ID, m.Gender, now, timeline), nil
}

// Caffeine returns the member's current caffeine content and the nominal
// coffee count it corresponds to.
func (s *Service) Caffeine(ctx context.Context, memberID int64) (float64, int, error) {
	now := s.now()
	intakes, err := s.repo.CaffeineIntakes(ctx, memberID, now.Add(-CaffeineWindow))
	if err != nil {
		return 0, 0, err
	}
	mg := CaffeineInBody(now, intakes)
	return mg, CaffeineMGToCups(mg), nil
}
