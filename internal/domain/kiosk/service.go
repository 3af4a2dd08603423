package kiosk

import (
	"context"
	"math/rand"
	"time"

	"stregsystem/internal/core/apperror"
)

// Repository loads the rotation.
type Repository interface {
	// ListShown returns the active items whose window covers now,
	// ordered by ordering then id.
	ListShown(ctx context.Context, now time.Time) ([]*Item, error)
}

// Service picks the media the kiosk screen shows next.
type Service struct {
	repo Repository
	now  func() time.Time
	pick func(n int) int
}

// NewService creates a kiosk rotation service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now, pick: rand.Intn}
}

// Random returns an arbitrary currently-shown item.
func (s *Service) Random(ctx context.Context) (*Item, error) {
	items, err := s.repo.ListShown(ctx, s.now())
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, apperror.NewNotFound("kiosk item", "active")
	}
	return items[s.pick(len(items))], nil
}

// Next returns the item following the given one in rotation order,
// wrapping to the first item past the end. The current item does not
// need to be shown itself; the walk only compares its position.
func (s *Service) Next(ctx context.Context, afterID int64) (*Item, error) {
	items, err := s.repo.ListShown(ctx, s.now())
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, apperror.NewNotFound("kiosk item", "active")
	}
	for i, item := range items {
		if item.ID == afterID {
			return items[(i+1)%len(items)], nil
		}
	}
	// Unknown or retired item: restart the rotation.
	return items[0], nil
}
