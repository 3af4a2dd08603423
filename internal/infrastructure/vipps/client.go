package vipps

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"stregsystem/pkg/logger"
)

const (
	defaultEndpoint = "https://api.vipps.no"

	// MyShopNumber is the recipient handle of the canteen's MobilePay box.
	MyShopNumber = 90601

	// timeoutLayout is the wall-clock format of access_token_timeout.
	timeoutLayout = "2006-01-02T15:04:05.000Z07:00"
)

// Transaction is one ledger entry from the report API. Amount is
// already in øre.
type Transaction struct {
	PSPReference string    `json:"pspReference"`
	Time         time.Time `json:"time"`
	EntryType    string    `json:"entryType"`
	Currency     string    `json:"currency"`
	Amount       int64     `json:"amount"`
	Name         string    `json:"name"`
	Message      string    `json:"message"`
}

// Client talks to the Vipps accounting endpoints. Access token and
// ledger id refresh happens transparently before each call.
type Client struct {
	endpoint   string
	shopNumber int
	store      *TokenStore
	httpClient *http.Client
	now        func() time.Time
}

// ClientOption mutates a Client during construction.
type ClientOption func(*Client)

// WithEndpoint overrides the API endpoint, for tests.
func WithEndpoint(endpoint string) ClientOption {
	return func(c *Client) { c.endpoint = strings.TrimRight(endpoint, "/") }
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates a client over the given token store.
func NewClient(store *TokenStore, opts ...ClientOption) *Client {
	c := &Client{
		endpoint:   defaultEndpoint,
		shopNumber: MyShopNumber,
		store:      store,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ensureFreshTokens loads the credentials and refreshes whatever is
// stale: the access token near its timeout, the ledger id when absent.
// The refreshed state is written back before returning.
func (c *Client) ensureFreshTokens(ctx context.Context) (*Tokens, error) {
	tokens, err := c.store.Load()
	if err != nil {
		return nil, err
	}

	refresh := tokens.AccessTokenTimeout == ""
	if !refresh {
		expiry, err := time.Parse(timeoutLayout, tokens.AccessTokenTimeout)
		if err != nil || !c.now().Before(expiry) {
			refresh = true
		}
	}
	if refresh {
		if err := c.refreshAccessToken(ctx, tokens); err != nil {
			return nil, err
		}
	}
	if tokens.LedgerID == 0 {
		id, err := c.fetchLedgerID(ctx, tokens)
		if err != nil {
			return nil, err
		}
		tokens.LedgerID = id
	}
	if err := c.store.Save(tokens); err != nil {
		return nil, err
	}
	return tokens, nil
}

func (c *Client) refreshAccessToken(ctx context.Context, tokens *Tokens) error {
	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.endpoint+"/miami/v1/token", strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(tokens.ClientID, tokens.ClientSecret)

	var body struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := c.do(req, &body); err != nil {
		return fmt.Errorf("refresh access token: %w", err)
	}

	// expire one second early so a token never dies mid-request
	expiry := c.now().Add(time.Duration(body.ExpiresIn-1) * time.Second)
	tokens.AccessToken = body.AccessToken
	tokens.AccessTokenTimeout = expiry.Format(timeoutLayout)
	return nil
}

func (c *Client) fetchLedgerID(ctx context.Context, tokens *Tokens) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.endpoint+"/settlement/v1/ledgers", nil)
	if err != nil {
		return 0, fmt.Errorf("build ledger request: %w", err)
	}
	q := req.URL.Query()
	q.Set("settlesForRecipientHandles", fmt.Sprintf("DK:%d", c.shopNumber))
	req.URL.RawQuery = q.Encode()
	req.Header.Set("Authorization", "Bearer "+tokens.AccessToken)

	var body struct {
		Items []struct {
			LedgerID string `json:"ledgerId"`
		} `json:"items"`
	}
	if err := c.do(req, &body); err != nil {
		return 0, fmt.Errorf("fetch ledger id: %w", err)
	}
	if len(body.Items) == 0 {
		return 0, fmt.Errorf("no ledger settles for DK:%d", c.shopNumber)
	}
	id, err := strconv.ParseInt(body.Items[0].LedgerID, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse ledger id %q: %w", body.Items[0].LedgerID, err)
	}
	return id, nil
}

// HistoricTransactions fetches the settled entries of one complete day.
func (c *Client) HistoricTransactions(ctx context.Context, day time.Time) ([]Transaction, error) {
	tokens, err := c.ensureFreshTokens(ctx)
	if err != nil {
		return nil, err
	}

	reqURL := fmt.Sprintf("%s/report/v2/ledgers/%d/funds/dates/%s",
		c.endpoint, tokens.LedgerID, day.Format("2006-01-02"))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build report request: %w", err)
	}
	q := req.URL.Query()
	q.Set("includeGDPRSensitiveData", "true")
	req.URL.RawQuery = q.Encode()
	req.Header.Set("Authorization", "Bearer "+tokens.AccessToken)

	var body struct {
		Items []Transaction `json:"items"`
	}
	if err := c.do(req, &body); err != nil {
		return nil, fmt.Errorf("fetch transactions for %s: %w", day.Format("2006-01-02"), err)
	}
	return body.Items, nil
}

// FeedTransactions drains the report feed from the stored cursor and
// persists the new cursor position. Used for the not-yet-settled entries
// of the current day.
func (c *Client) FeedTransactions(ctx context.Context) ([]Transaction, error) {
	tokens, err := c.ensureFreshTokens(ctx)
	if err != nil {
		return nil, err
	}

	var transactions []Transaction
	cursor := tokens.Cursor
	for {
		page, err := c.fetchFeedPage(ctx, tokens, cursor)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, page.Items...)
		if page.TryLater == "true" {
			break
		}
		cursor = page.Cursor
		if len(page.Items) == 0 {
			break
		}
	}

	tokens.Cursor = cursor
	if err := c.store.Save(tokens); err != nil {
		return nil, err
	}
	logger.Info(ctx, "drained vipps feed", "transactions", len(transactions))
	return transactions, nil
}

type feedPage struct {
	Items    []Transaction `json:"items"`
	Cursor   string        `json:"cursor"`
	TryLater string        `json:"tryLater"`
}

func (c *Client) fetchFeedPage(ctx context.Context, tokens *Tokens, cursor string) (*feedPage, error) {
	reqURL := fmt.Sprintf("%s/report/v2/ledgers/%d/funds/feed", c.endpoint, tokens.LedgerID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build feed request: %w", err)
	}
	q := req.URL.Query()
	q.Set("includeGDPRSensitiveData", "true")
	q.Set("cursor", cursor)
	req.URL.RawQuery = q.Encode()
	req.Header.Set("Authorization", "Bearer "+tokens.AccessToken)

	var page feedPage
	if err := c.do(req, &page); err != nil {
		return nil, fmt.Errorf("fetch feed page: %w", err)
	}
	return &page, nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%s %s: status %d: %s", req.Method, req.URL.Path, resp.StatusCode, body)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
