package polymarket

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
)

// ClobClient is the read-only REST client for the Polymarket CLOB (Central
// Limit Order Book) API.
type ClobClient struct {
	rest restClient
}

// NewClobClient creates a new CLOB REST client.
//
// baseURL is the CLOB API root, e.g. "https://clob.polymarket.com".
func NewClobClient(baseURL string, opts ...ClientOption) *ClobClient {
	return &ClobClient{rest: newRESTClient("clob", baseURL, opts...)}
}

// GetBook returns the current order book for a token.
func (c *ClobClient) GetBook(ctx context.Context, tokenID string) (APIBook, error) {
	body, err := c.rest.getWithRetry(ctx, "/book", url.Values{"token_id": {tokenID}})
	if err != nil {
		return APIBook{}, fmt.Errorf("polymarket/clob: get book %s: %w", tokenID, err)
	}

	var book APIBook
	if err := json.Unmarshal(body, &book); err != nil {
		return APIBook{}, fmt.Errorf("polymarket/clob: decode book %s: %w", tokenID, err)
	}
	return book, nil
}

// GetMidpoint returns the venue-published midpoint for a token.
func (c *ClobClient) GetMidpoint(ctx context.Context, tokenID string) (float64, error) {
	body, err := c.rest.getWithRetry(ctx, "/midpoint", url.Values{"token_id": {tokenID}})
	if err != nil {
		return 0, fmt.Errorf("polymarket/clob: get midpoint %s: %w", tokenID, err)
	}

	var mid APIMidpoint
	if err := json.Unmarshal(body, &mid); err != nil {
		return 0, fmt.Errorf("polymarket/clob: decode midpoint %s: %w", tokenID, err)
	}
	return float64(mid.Mid), nil
}
