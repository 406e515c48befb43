// Package polymarket implements REST clients for the public Polymarket
// Data API, which serves per-user trade history and market metadata.
package polymarket

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
)

// DataClient is the REST client for the Polymarket Data API. It is a pure
// I/O boundary: pagination parameters in, decoded payload objects out.
type DataClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewDataClient creates a new Data API client.
//
// baseURL is the API root, e.g. "https://data-api.polymarket.com".
func NewDataClient(baseURL string) *DataClient {
	return &DataClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// TradesPage fetches one page of a user's trades, newest first.
func (c *DataClient) TradesPage(ctx context.Context, user string, limit, offset int, takerOnly bool) ([]map[string]any, error) {
	params := url.Values{}
	params.Set("user", user)
	params.Set("limit", strconv.Itoa(limit))
	params.Set("offset", strconv.Itoa(offset))
	params.Set("takerOnly", strconv.FormatBool(takerOnly))

	body, err := c.doGet(ctx, "/trades?"+params.Encode())
	if err != nil {
		return nil, fmt.Errorf("polymarket/data: get trades: %w", err)
	}
	return extractObjectList(body, "data", "trades", "results", "items"), nil
}

// HeadTrade fetches the single most recent trade for a user, or nil when the
// user has no trades upstream.
func (c *DataClient) HeadTrade(ctx context.Context, user string) (map[string]any, error) {
	page, err := c.TradesPage(ctx, user, 1, 0, false)
	if err != nil {
		return nil, err
	}
	if len(page) == 0 {
		return nil, nil
	}
	return page[0], nil
}

// MarketsByIDs fetches metadata for the given market ids in one request.
func (c *DataClient) MarketsByIDs(ctx context.Context, ids []string) ([]map[string]any, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	params := url.Values{}
	params.Set("ids", strings.Join(ids, ","))

	body, err := c.doGet(ctx, "/markets?"+params.Encode())
	if err != nil {
		return nil, fmt.Errorf("polymarket/data: get markets: %w", err)
	}
	return extractObjectList(body, "data", "markets", "results", "items"), nil
}

// Positions fetches the user's current open positions.
func (c *DataClient) Positions(ctx context.Context, user string) ([]map[string]any, error) {
	params := url.Values{}
	params.Set("user", user)

	body, err := c.doGet(ctx, "/positions?"+params.Encode())
	if err != nil {
		return nil, fmt.Errorf("polymarket/data: get positions: %w", err)
	}
	return extractObjectList(body, "data", "positions", "results", "items"), nil
}

// PortfolioValue fetches the user's current portfolio valuation in USD. A
// user with no holdings values at zero.
func (c *DataClient) PortfolioValue(ctx context.Context, user string) (float64, error) {
	params := url.Values{}
	params.Set("user", user)

	body, err := c.doGet(ctx, "/value?"+params.Encode())
	if err != nil {
		return 0, fmt.Errorf("polymarket/data: get value: %w", err)
	}

	for _, item := range extractObjectList(body, "data", "results", "items") {
		if v, ok := item["value"].(float64); ok {
			return v, nil
		}
	}
	return 0, nil
}

// extractObjectList decodes a payload that is either a bare JSON array or an
// object wrapping the array under one of the given keys. Any other shape
// degrades to an empty page rather than an error; the upstream response
// shape is not contractually fixed.
func extractObjectList(body []byte, keys ...string) []map[string]any {
	var payload any
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil
	}

	list, ok := payload.([]any)
	if !ok {
		obj, isObj := payload.(map[string]any)
		if !isObj {
			return nil
		}
		for _, k := range keys {
			if inner, isList := obj[k].([]any); isList {
				list = inner
				ok = true
				break
			}
		}
		if !ok {
			return nil
		}
	}

	out := make([]map[string]any, 0, len(list))
	for _, item := range list {
		if m, isObj := item.(map[string]any); isObj {
			out = append(out, m)
		}
	}
	return out
}

// doGet sends an unauthenticated GET request to the Data API.
func (c *DataClient) doGet(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := strings.TrimSpace(string(body))
		if len(msg) > 200 {
			msg = msg[:200]
		}
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, msg)
	}

	return body, nil
}
