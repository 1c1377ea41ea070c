package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/polyanalytics/internal/domain"
)

// BookCache implements domain.BookCache. Each snapshot is stored as JSON under
// book:{assetID}:snap and expires after the configured TTL.
type BookCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewBookCache creates a BookCache with the given TTL.
func NewBookCache(c *Client, ttl time.Duration) *BookCache {
	return &BookCache{rdb: c.Underlying(), ttl: ttl}
}

func bookSnapKey(assetID string) string { return "book:" + assetID + ":snap" }

type cachedLevel struct {
	P float64 `json:"p"`
	S float64 `json:"s"`
}

type cachedBook struct {
	AssetID  string        `json:"asset_id"`
	MarketID string        `json:"market_id,omitempty"`
	Bids     []cachedLevel `json:"bids"`
	Asks     []cachedLevel `json:"asks"`
	TS       int64         `json:"ts"`
}

func toCached(levels []domain.PriceLevel) []cachedLevel {
	out := make([]cachedLevel, len(levels))
	for i, l := range levels {
		out[i] = cachedLevel{P: l.Price, S: l.Size}
	}
	return out
}

func fromCached(levels []cachedLevel) []domain.PriceLevel {
	out := make([]domain.PriceLevel, len(levels))
	for i, l := range levels {
		out[i] = domain.PriceLevel{Price: l.P, Size: l.S}
	}
	return out
}

// SetSnapshot stores snap, replacing any previous snapshot for the asset.
func (bc *BookCache) SetSnapshot(ctx context.Context, snap domain.OrderbookSnapshot) error {
	data, err := json.Marshal(cachedBook{
		AssetID:  snap.AssetID,
		MarketID: snap.MarketID,
		Bids:     toCached(snap.Bids),
		Asks:     toCached(snap.Asks),
		TS:       snap.Timestamp.UnixMilli(),
	})
	if err != nil {
		return fmt.Errorf("redis: encode book %s: %w", snap.AssetID, err)
	}
	if err := bc.rdb.Set(ctx, bookSnapKey(snap.AssetID), data, bc.ttl).Err(); err != nil {
		return fmt.Errorf("redis: set book %s: %w", snap.AssetID, err)
	}
	return nil
}

// GetSnapshot returns the cached snapshot or domain.ErrNotFound.
func (bc *BookCache) GetSnapshot(ctx context.Context, assetID string) (domain.OrderbookSnapshot, error) {
	data, err := bc.rdb.Get(ctx, bookSnapKey(assetID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.OrderbookSnapshot{}, domain.ErrNotFound
		}
		return domain.OrderbookSnapshot{}, fmt.Errorf("redis: get book %s: %w", assetID, err)
	}

	var cb cachedBook
	if err := json.Unmarshal(data, &cb); err != nil {
		return domain.OrderbookSnapshot{}, fmt.Errorf("redis: decode book %s: %w", assetID, err)
	}
	return domain.OrderbookSnapshot{
		AssetID:   cb.AssetID,
		MarketID:  cb.MarketID,
		Bids:      fromCached(cb.Bids),
		Asks:      fromCached(cb.Asks),
		Timestamp: time.UnixMilli(cb.TS).UTC(),
	}, nil
}

var _ domain.BookCache = (*BookCache)(nil)
