package vipps

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stregsystem/internal/core/apperror"
	"stregsystem/internal/domain/member"
	"stregsystem/internal/domain/payment"
)

func newStoreWithTokens(t *testing.T, tokens *Tokens) *TokenStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), "vipps-tokens.json")
	store := NewTokenStore(path)
	require.NoError(t, store.Save(tokens))
	return store
}

func TestTokenStoreRoundTrip(t *testing.T) {
	store := newStoreWithTokens(t, &Tokens{
		ClientID:     "id",
		ClientSecret: "secret",
		Cursor:       "abc",
	})

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "id", loaded.ClientID)
	assert.Equal(t, "abc", loaded.Cursor)
}

func TestTokenStoreFallsBackToBackup(t *testing.T) {
	store := newStoreWithTokens(t, &Tokens{ClientID: "first"})
	// second save moves the first contents to the backup
	require.NoError(t, store.Save(&Tokens{ClientID: "second"}))

	require.NoError(t, os.WriteFile(store.path, []byte("{broken"), 0o600))

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "first", loaded.ClientID)
}

// apiServer fakes the token, settlement and report endpoints.
type apiServer struct {
	t          *testing.T
	tokenCalls int
	feedPages  []feedPage
	feedCalls  int
	historic   map[string][]Transaction
}

func (s *apiServer) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/miami/v1/token", func(w http.ResponseWriter, r *http.Request) {
		s.tokenCalls++
		user, pass, ok := r.BasicAuth()
		require.True(s.t, ok)
		assert.Equal(s.t, "client", user)
		assert.Equal(s.t, "hunter2", pass)
		json.NewEncoder(w).Encode(map[string]any{
			"access_token": "token-1",
			"expires_in":   3600,
		})
	})
	mux.HandleFunc("/settlement/v1/ledgers", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(s.t, "DK:90601", r.URL.Query().Get("settlesForRecipientHandles"))
		json.NewEncoder(w).Encode(map[string]any{
			"items": []map[string]any{{"ledgerId": "424242"}},
		})
	})
	mux.HandleFunc("/report/v2/ledgers/424242/funds/feed", func(w http.ResponseWriter, r *http.Request) {
		require.Less(s.t, s.feedCalls, len(s.feedPages))
		page := s.feedPages[s.feedCalls]
		s.feedCalls++
		json.NewEncoder(w).Encode(page)
	})
	mux.HandleFunc("/report/v2/ledgers/424242/funds/dates/", func(w http.ResponseWriter, r *http.Request) {
		date := strings.TrimPrefix(r.URL.Path, "/report/v2/ledgers/424242/funds/dates/")
		json.NewEncoder(w).Encode(map[string]any{
			"items": s.historic[date],
		})
	})
	return mux
}

func TestClientRefreshesTokenAndLedger(t *testing.T) {
	api := &apiServer{t: t, feedPages: []feedPage{{Cursor: "c1", TryLater: "false"}}}
	srv := httptest.NewServer(api.handler())
	defer srv.Close()

	store := newStoreWithTokens(t, &Tokens{ClientID: "client", ClientSecret: "hunter2"})
	client := NewClient(store, WithEndpoint(srv.URL))

	_, err := client.FeedTransactions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, api.tokenCalls)

	saved, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "token-1", saved.AccessToken)
	assert.EqualValues(t, 424242, saved.LedgerID)
	assert.NotEmpty(t, saved.AccessTokenTimeout)
	assert.Equal(t, "c1", saved.Cursor)
}

func TestClientReusesLiveToken(t *testing.T) {
	api := &apiServer{t: t, feedPages: []feedPage{{Cursor: "c1", TryLater: "true"}}}
	srv := httptest.NewServer(api.handler())
	defer srv.Close()

	store := newStoreWithTokens(t, &Tokens{
		ClientID:           "client",
		ClientSecret:       "hunter2",
		AccessToken:        "live",
		AccessTokenTimeout: time.Now().Add(time.Hour).Format(timeoutLayout),
		LedgerID:           424242,
	})
	client := NewClient(store, WithEndpoint(srv.URL))

	_, err := client.FeedTransactions(context.Background())
	require.NoError(t, err)
	assert.Zero(t, api.tokenCalls)
}

func TestFeedDrainsUntilEmpty(t *testing.T) {
	tx := func(id string) Transaction {
		return Transaction{PSPReference: id, EntryType: "capture", Currency: "DKK", Amount: 5000, Time: time.Now()}
	}
	api := &apiServer{t: t, feedPages: []feedPage{
		{Items: []Transaction{tx("1"), tx("2")}, Cursor: "c1", TryLater: "false"},
		{Items: []Transaction{tx("3")}, Cursor: "c2", TryLater: "false"},
		{Items: nil, Cursor: "c3", TryLater: "false"},
	}}
	srv := httptest.NewServer(api.handler())
	defer srv.Close()

	store := newStoreWithTokens(t, &Tokens{
		ClientID:           "client",
		ClientSecret:       "hunter2",
		AccessToken:        "live",
		AccessTokenTimeout: time.Now().Add(time.Hour).Format(timeoutLayout),
		LedgerID:           424242,
	})
	client := NewClient(store, WithEndpoint(srv.URL))

	transactions, err := client.FeedTransactions(context.Background())
	require.NoError(t, err)
	assert.Len(t, transactions, 3)
	assert.Equal(t, 3, api.feedCalls)

	saved, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "c3", saved.Cursor)
}

func TestFeedStopsOnTryLater(t *testing.T) {
	api := &apiServer{t: t, feedPages: []feedPage{
		{Items: []Transaction{{PSPReference: "1"}}, Cursor: "c1", TryLater: "true"},
	}}
	srv := httptest.NewServer(api.handler())
	defer srv.Close()

	store := newStoreWithTokens(t, &Tokens{
		ClientID:           "client",
		ClientSecret:       "hunter2",
		AccessToken:        "live",
		AccessTokenTimeout: time.Now().Add(time.Hour).Format(timeoutLayout),
		LedgerID:           424242,
		Cursor:             "c0",
	})
	client := NewClient(store, WithEndpoint(srv.URL))

	transactions, err := client.FeedTransactions(context.Background())
	require.NoError(t, err)
	assert.Len(t, transactions, 1)
	assert.Equal(t, 1, api.feedCalls)

	// tryLater keeps the cursor where it was
	saved, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "c0", saved.Cursor)
}

type fakeMobileRepo struct {
	payment.MobilePaymentRepository
	existing map[string]bool
	created  []*payment.MobilePayment
}

func (f *fakeMobileRepo) ExistsTransactionID(_ context.Context, id string) (bool, error) {
	return f.existing[id], nil
}

func (f *fakeMobileRepo) Create(_ context.Context, mp *payment.MobilePayment) error {
	mp.ID = int64(len(f.created) + 1)
	f.existing[mp.TransactionID] = true
	f.created = append(f.created, mp)
	return nil
}

type fakeMemberRepo struct {
	member.Repository
}

func (f *fakeMemberRepo) GetByUsername(_ context.Context, username string) (*member.Member, error) {
	return nil, apperror.NewNotFound("member", username)
}

func TestImporterFiltersAndIngests(t *testing.T) {
	now := time.Now().UTC()
	today := now.Format("2006-01-02")
	api := &apiServer{
		t:         t,
		feedPages: []feedPage{{Cursor: "c1", TryLater: "true"}},
		historic: map[string][]Transaction{
			today: {
				{PSPReference: "keep", EntryType: "capture", Currency: "DKK", Amount: 20000, Time: now, Name: "Jane", Message: "jane"},
				{PSPReference: "refund", EntryType: "refund", Currency: "DKK", Amount: 100, Time: now},
				{PSPReference: "sek", EntryType: "capture", Currency: "SEK", Amount: 100, Time: now},
				{PSPReference: "old", EntryType: "capture", Currency: "DKK", Amount: 100, Time: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
				{PSPReference: "dup", EntryType: "capture", Currency: "DKK", Amount: 100, Time: now},
			},
		},
	}
	srv := httptest.NewServer(api.handler())
	defer srv.Close()

	store := newStoreWithTokens(t, &Tokens{
		ClientID:           "client",
		ClientSecret:       "hunter2",
		AccessToken:        "live",
		AccessTokenTimeout: time.Now().Add(time.Hour).Format(timeoutLayout),
		LedgerID:           424242,
	})
	client := NewClient(store, WithEndpoint(srv.URL))

	mobile := &fakeMobileRepo{existing: map[string]bool{"dup": true}}
	payments := payment.NewService(nil, mobile, &fakeMemberRepo{}, nil, nil, nil, nil, nil, nil)
	importer := NewImporter(client, payments)

	imported, err := importer.Run(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 1, imported)
	require.Len(t, mobile.created, 1)
	assert.Equal(t, "keep", mobile.created[0].TransactionID)
	assert.Equal(t, payment.StatusUnset, mobile.created[0].Status)
}
