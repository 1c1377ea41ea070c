package polymarket

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/alanyoungcy/polyanalytics/internal/domain"
)

// maxListLimit caps a single Gamma /markets page.
const maxListLimit = 500

// GammaClient is the REST client for the Polymarket Gamma API, which
// provides market discovery and metadata.
type GammaClient struct {
	rest restClient
}

// NewGammaClient creates a new Gamma API client.
//
// baseURL is the Gamma API root, e.g. "https://gamma-api.polymarket.com".
func NewGammaClient(baseURL string, opts ...ClientOption) *GammaClient {
	return &GammaClient{rest: newRESTClient("gamma", baseURL, opts...)}
}

// GetMarket returns a single market. Ids starting with 0x are treated as
// condition ids, anything else as a Gamma market id.
func (g *GammaClient) GetMarket(ctx context.Context, id string) (domain.Market, error) {
	if strings.HasPrefix(id, "0x") {
		markets, err := g.listMarkets(ctx, url.Values{"condition_ids": {id}})
		if err != nil {
			return domain.Market{}, fmt.Errorf("polymarket/gamma: get market %s: %w", id, err)
		}
		if len(markets) == 0 {
			return domain.Market{}, fmt.Errorf("polymarket/gamma: %w: condition_id=%s", domain.ErrNotFound, id)
		}
		return markets[0], nil
	}

	body, err := g.rest.getWithRetry(ctx, "/markets/"+url.PathEscape(id), nil)
	if err != nil {
		return domain.Market{}, fmt.Errorf("polymarket/gamma: get market %s: %w", id, err)
	}

	var apiMarket APIMarket
	if err := json.Unmarshal(body, &apiMarket); err != nil {
		return domain.Market{}, fmt.Errorf("polymarket/gamma: decode market: %w", err)
	}
	return apiMarket.ToDomainMarket(), nil
}

// GetMarketByToken returns the market that lists tokenID as one of its CLOB
// tokens.
func (g *GammaClient) GetMarketByToken(ctx context.Context, tokenID string) (domain.Market, error) {
	markets, err := g.listMarkets(ctx, url.Values{"clob_token_ids": {tokenID}})
	if err != nil {
		return domain.Market{}, fmt.Errorf("polymarket/gamma: get market by token %s: %w", tokenID, err)
	}
	for _, m := range markets {
		if _, ok := m.Token(tokenID); ok {
			return m, nil
		}
	}
	return domain.Market{}, fmt.Errorf("polymarket/gamma: %w: token_id=%s", domain.ErrNotFound, tokenID)
}

// ListActiveMarkets returns open markets ordered by volume, highest first,
// dropping those below minVolume or without two CLOB tokens.
func (g *GammaClient) ListActiveMarkets(ctx context.Context, limit int, minVolume float64) ([]domain.Market, error) {
	if limit <= 0 || limit > maxListLimit {
		limit = maxListLimit
	}
	params := url.Values{}
	params.Set("active", "true")
	params.Set("closed", "false")
	params.Set("order", "volumeNum")
	params.Set("ascending", "false")
	params.Set("limit", strconv.Itoa(limit))

	markets, err := g.listMarkets(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("polymarket/gamma: list active markets: %w", err)
	}

	out := markets[:0]
	for _, m := range markets {
		if !m.HasTokens() || m.Volume < minVolume {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

func (g *GammaClient) listMarkets(ctx context.Context, params url.Values) ([]domain.Market, error) {
	body, err := g.rest.getWithRetry(ctx, "/markets", params)
	if err != nil {
		return nil, err
	}

	var apiMarkets []APIMarket
	if err := json.Unmarshal(body, &apiMarkets); err != nil {
		return nil, fmt.Errorf("decode markets: %w", err)
	}

	markets := make([]domain.Market, 0, len(apiMarkets))
	for i := range apiMarkets {
		markets = append(markets, apiMarkets[i].ToDomainMarket())
	}
	return markets, nil
}
