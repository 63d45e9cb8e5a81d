package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// HTTPFeed talks to a JSON bank-data gateway:
//
//	GET {base}/accounts/{provider_account_id}/transactions -> {"transactions": [...]}
//	GET {base}/accounts/{provider_account_id}/balance      -> {"balance_cents": .., "balance_date": ..}
type HTTPFeed struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

func NewHTTPFeed(baseURL, apiKey string, timeout time.Duration) *HTTPFeed {
	return &HTTPFeed{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		Client:  &http.Client{Timeout: timeout},
	}
}

type transactionsResponse struct {
	Transactions []RawTransaction `json:"transactions"`
}

func (f *HTTPFeed) FetchTransactions(ctx context.Context, acct Account) ([]RawTransaction, error) {
	var body transactionsResponse
	if err := f.get(ctx, acct, "transactions", &body); err != nil {
		return nil, err
	}
	for i := range body.Transactions {
		if body.Transactions[i].Currency == "" {
			body.Transactions[i].Currency = currencyOr(acct.Currency)
		}
	}
	return body.Transactions, nil
}

func (f *HTTPFeed) FetchBalance(ctx context.Context, acct Account) (Balance, error) {
	var b Balance
	if err := f.get(ctx, acct, "balance", &b); err != nil {
		return Balance{}, err
	}
	return b, nil
}

func (f *HTTPFeed) get(ctx context.Context, acct Account, resource string, out interface{}) error {
	if acct.ProviderAccountID == "" {
		return fmt.Errorf("account %s has no provider account id", acct.ID)
	}
	u := fmt.Sprintf("%s/accounts/%s/%s", f.BaseURL, url.PathEscape(acct.ProviderAccountID), resource)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if f.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+f.APIKey)
	}

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", resource, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("fetch %s: status %d: %s", resource, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", resource, err)
	}
	return nil
}
