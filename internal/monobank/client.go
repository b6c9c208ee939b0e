package monobank

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"monotrack/internal/core"
	"monotrack/internal/ledger"
)

const (
	DefaultBaseURL = "https://api.monobank.ua"

	personalInfoPath = "/personal/client-info"
	statementPath    = "/personal/statement"

	accountMaskLen = 4
)

// TokenSource supplies the opaque API token. Absence short-circuits any
// request with ErrAuthRequired.
type TokenSource interface {
	Token() (string, bool)
}

// Client talks to the personal statement API. Statement responses come
// newest first; the client does not reorder them.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenSource
}

// Ensure interface conformance
var _ ledger.StatementSource = (*Client)(nil)

// NewClient creates an API client. An empty baseURL falls back to the
// production endpoint.
func NewClient(baseURL string, tokens TokenSource) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		tokens:     tokens,
	}
}

// Account is one bank account visible to the token, with a short
// display name derived from the masked card number or IBAN.
type Account struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Name string `json:"name"`
}

type personalInfo struct {
	ClientID string `json:"clientId"`
	Name     string `json:"name"`
	Accounts []struct {
		ID        string   `json:"id"`
		Type      string   `json:"type"`
		IBAN      string   `json:"iban"`
		MaskedPan []string `json:"maskedPan"`
	} `json:"accounts"`
}

// FetchStatement implements ledger.StatementSource over the range
// endpoint. From and to are truncated to whole epoch seconds.
func (c *Client) FetchStatement(ctx context.Context, accountID string, from, to time.Time) ([]core.LedgerEntry, error) {
	path := fmt.Sprintf("%s/%s/%d/%d", statementPath, accountID, from.Unix(), to.Unix())

	var entries []core.LedgerEntry
	if err := c.fetchJSON(ctx, path, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// FetchAccounts lists the accounts available to the configured token.
func (c *Client) FetchAccounts(ctx context.Context) ([]Account, error) {
	var info personalInfo
	if err := c.fetchJSON(ctx, personalInfoPath, &info); err != nil {
		return nil, err
	}

	accounts := make([]Account, len(info.Accounts))
	for i, a := range info.Accounts {
		name := a.IBAN
		if len(a.MaskedPan) > 0 && a.MaskedPan[0] != "" {
			name = a.MaskedPan[0]
		}
		if len(name) > accountMaskLen {
			name = name[len(name)-accountMaskLen:]
		}
		accounts[i] = Account{ID: a.ID, Type: a.Type, Name: name}
	}
	return accounts, nil
}

func (c *Client) fetchJSON(ctx context.Context, path string, out any) error {
	token, ok := c.tokens.Token()
	if !ok {
		return fmt.Errorf("%w: no token configured", ledger.ErrAuthRequired)
	}

	url := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("%w: build request: %v", ledger.ErrSource, err)
	}
	req.Header.Set("X-Token", token)

	slog.DebugContext(ctx, "monobank request", "path", path)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ledger.ErrSource, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: %s rejected the token (%d)", ledger.ErrAuthRequired, path, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: %s returned %d: %s", ledger.ErrSource, path, resp.StatusCode, body)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode response: %v", ledger.ErrSource, err)
	}
	return nil
}
