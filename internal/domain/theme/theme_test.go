package theme

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func window(beginMonth, beginDay, endMonth, endDay int) *Theme {
	return &Theme{
		Name:       "test",
		BeginMonth: beginMonth,
		BeginDay:   beginDay,
		EndMonth:   endMonth,
		EndDay:     endDay,
		Override:   OverrideNone,
	}
}

func TestActiveOn(t *testing.T) {
	cases := []struct {
		name   string
		theme  *Theme
		month  int
		day    int
		active bool
	}{
		{"inside plain range", window(4, 20, 8, 20), 6, 1, true},
		{"before plain range", window(4, 20, 8, 20), 3, 31, false},
		{"after plain range", window(4, 20, 8, 20), 9, 1, false},
		{"begin month before begin day", window(4, 20, 8, 20), 4, 19, false},
		{"begin month on begin day", window(4, 20, 8, 20), 4, 20, true},
		{"end month on end day", window(4, 20, 8, 20), 8, 20, true},
		{"end month after end day", window(4, 20, 8, 20), 8, 21, false},
		{"wrapped range in january", window(11, 20, 2, 20), 1, 15, true},
		{"wrapped range in december", window(11, 20, 2, 20), 12, 24, true},
		{"wrapped range outside", window(11, 20, 2, 20), 3, 1, false},
		{"wrapped range before begin day", window(11, 20, 2, 20), 11, 19, false},
		{"wrapped range after end day", window(11, 20, 2, 20), 2, 21, false},
		{"single day", window(12, 24, 12, 24), 12, 24, true},
		{"single day miss", window(12, 24, 12, 24), 12, 25, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.active, tc.theme.ActiveOn(tc.month, tc.day))
		})
	}
}

func TestOverrides(t *testing.T) {
	outside := window(4, 1, 4, 30)
	outside.Override = OverrideShow
	assert.True(t, outside.ActiveOn(12, 24))

	inside := window(4, 1, 4, 30)
	inside.Override = OverrideHide
	assert.False(t, inside.ActiveOn(4, 15))
}

func TestValidate(t *testing.T) {
	good := window(11, 20, 2, 20)
	require.NoError(t, good.Validate())

	noName := window(1, 1, 12, 31)
	noName.Name = ""
	assert.Error(t, noName.Validate())

	badMonth := window(0, 1, 12, 31)
	assert.Error(t, badMonth.Validate())

	badDay := window(1, 0, 12, 31)
	assert.Error(t, badDay.Validate())

	badOverride := window(1, 1, 12, 31)
	badOverride.Override = "X"
	assert.Error(t, badOverride.Validate())
}

type fakeRepo struct {
	themes   []*Theme
	listErr  error
	calls    int
	replaced []*Theme
}

func (f *fakeRepo) ListThemes(_ context.Context) ([]*Theme, error) {
	f.calls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.themes, nil
}

func (f *fakeRepo) ReplaceAll(_ context.Context, themes []*Theme) error {
	f.replaced = themes
	return nil
}

func TestSelectorPaths(t *testing.T) {
	repo := &fakeRepo{themes: []*Theme{
		{Name: "christmas", CSS: "style.css", JS: "snow.js", HTML: "content.html",
			BeginMonth: 12, BeginDay: 1, EndMonth: 12, EndDay: 31, Override: OverrideNone},
		{Name: "easter", CSS: "style.css",
			BeginMonth: 3, BeginDay: 20, EndMonth: 4, EndDay: 20, Override: OverrideNone},
		{Name: "debug", JS: "debug.js",
			BeginMonth: 1, BeginDay: 1, EndMonth: 1, EndDay: 1, Override: OverrideShow},
	}}
	sel := NewSelector(repo)
	sel.now = func() time.Time { return time.Date(2026, time.December, 24, 12, 0, 0, 0, time.UTC) }

	paths := sel.Paths(context.Background())
	assert.Equal(t, []string{"christmas/style.css"}, paths.Styles)
	assert.Equal(t, []string{"christmas/snow.js", "debug/debug.js"}, paths.Scripts)
	assert.Equal(t, []string{"christmas/content.html"}, paths.Content)
}

func TestSelectorCachesWithinTTL(t *testing.T) {
	repo := &fakeRepo{}
	sel := NewSelector(repo)

	at := time.Date(2026, time.June, 1, 12, 0, 0, 0, time.UTC)
	sel.now = func() time.Time { return at }

	sel.Paths(context.Background())
	at = at.Add(10 * time.Second)
	sel.Paths(context.Background())
	assert.Equal(t, 1, repo.calls)

	at = at.Add(cacheTTL)
	sel.Paths(context.Background())
	assert.Equal(t, 2, repo.calls)
}

func TestSelectorServesStaleOnError(t *testing.T) {
	repo := &fakeRepo{themes: []*Theme{
		{Name: "always", CSS: "style.css",
			BeginMonth: 1, BeginDay: 1, EndMonth: 12, EndDay: 31, Override: OverrideNone},
	}}
	sel := NewSelector(repo)

	at := time.Date(2026, time.June, 1, 12, 0, 0, 0, time.UTC)
	sel.now = func() time.Time { return at }

	fresh := sel.Paths(context.Background())
	require.Equal(t, []string{"always/style.css"}, fresh.Styles)

	repo.listErr = errors.New("connection refused")
	at = at.Add(cacheTTL + time.Second)
	stale := sel.Paths(context.Background())
	assert.Equal(t, fresh, stale)
}

type fakeTxManager struct{}

func (fakeTxManager) RunInTransaction(ctx context.Context, fn func(context.Context) error) error {
	return fn(ctx)
}

const themesJSON = `[
  {
    "name": "christmas",
    "html": "content.html",
    "css": "style.css",
    "js": "snow.js",
    "begin": {"month": 12, "day": 1},
    "end": {"month": 12, "day": 31}
  },
  {
    "name": "newyear",
    "js": "newyear.js",
    "begin": {"month": 12, "day": 31},
    "end": {"month": 1, "day": 1}
  }
]`

func writeThemesFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "themes.json")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestParseFile(t *testing.T) {
	themes, err := ParseFile(writeThemesFile(t, themesJSON))
	require.NoError(t, err)
	require.Len(t, themes, 2)

	assert.Equal(t, "christmas", themes[0].Name)
	assert.Equal(t, "content.html", themes[0].HTML)
	assert.Equal(t, 12, themes[0].BeginMonth)
	assert.Equal(t, OverrideNone, themes[0].Override)

	assert.Equal(t, "newyear", themes[1].Name)
	assert.Empty(t, themes[1].CSS)
	assert.Equal(t, 12, themes[1].BeginMonth)
	assert.Equal(t, 1, themes[1].EndMonth)
}

func TestParseFileRejectsBadWindow(t *testing.T) {
	_, err := ParseFile(writeThemesFile(t, `[{"name":"broken","begin":{"month":0,"day":1},"end":{"month":1,"day":1}}]`))
	assert.Error(t, err)
}

func TestLoaderReplacesThemes(t *testing.T) {
	repo := &fakeRepo{}
	loader := NewLoader(repo, fakeTxManager{})

	n, err := loader.LoadFile(context.Background(), writeThemesFile(t, themesJSON))
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.Len(t, repo.replaced, 2)
	assert.Equal(t, "newyear", repo.replaced[1].Name)
}
