package theme

import (
	"context"
	"sync"
	"time"

	"stregsystem/pkg/logger"
)

// cacheTTL bounds how often the selector hits the database; the kiosk
// front page renders on every keypress-free reload and a stale theme
// list for a few seconds is harmless.
const cacheTTL = 30 * time.Second

// Repository is the persistence port for themes.
type Repository interface {
	ListThemes(ctx context.Context) ([]*Theme, error)
	// ReplaceAll swaps the full theme table for the given set atomically.
	ReplaceAll(ctx context.Context, themes []*Theme) error
}

// Paths holds the asset paths of the currently active themes, relative
// to the theme asset root.
type Paths struct {
	Styles  []string
	Scripts []string
	Content []string
}

// Selector resolves the active theme assets with a short-lived
// process-local cache.
type Selector struct {
	repo Repository
	ttl  time.Duration
	now  func() time.Time

	mu       sync.Mutex
	cachedAt time.Time
	paths    Paths
}

// NewSelector creates a selector with the default cache TTL.
func NewSelector(repo Repository) *Selector {
	return &Selector{repo: repo, ttl: cacheTTL, now: time.Now}
}

// Paths returns the asset paths of the themes active right now. On a
// lookup failure the previous result is served and the error logged;
// theming never takes the front page down.
func (s *Selector) Paths(ctx context.Context) Paths {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if !s.cachedAt.IsZero() && now.Sub(s.cachedAt) < s.ttl {
		return s.paths
	}

	themes, err := s.repo.ListThemes(ctx)
	if err != nil {
		logger.FromContext(ctx).Errorw("loading themes", "error", err)
		return s.paths
	}

	month, day := int(now.Month()), now.Day()
	var paths Paths
	for _, t := range themes {
		if !t.ActiveOn(month, day) {
			continue
		}
		if t.CSS != "" {
			paths.Styles = append(paths.Styles, t.Name+"/"+t.CSS)
		}
		if t.JS != "" {
			paths.Scripts = append(paths.Scripts, t.Name+"/"+t.JS)
		}
		if t.HTML != "" {
			paths.Content = append(paths.Content, t.Name+"/"+t.HTML)
		}
	}
	s.paths = paths
	s.cachedAt = now
	return s.paths
}
