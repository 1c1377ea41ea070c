package polymarket

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/alanyoungcy/polyanalytics/internal/domain"
)

// flexBool unmarshals from JSON bool or string ("true"/"false") so Gamma API
// responses work whether "active" is sent as bool or string.
type flexBool bool

func (f *flexBool) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*f = flexBool(b)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*f = flexBool(strings.EqualFold(s, "true") || s == "1")
	return nil
}

// flexFloat accepts a JSON number, a numeric string, an empty string or null.
// Unparseable strings decode as 0.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = 0
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil || !finite(v) {
			*f = 0
			return nil
		}
		*f = flexFloat(v)
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*f = flexFloat(v)
	return nil
}

// flexStrings accepts a JSON array or a string holding a JSON-encoded array,
// which is how Gamma ships outcomes, outcomePrices and clobTokenIds.
// Numeric elements are kept in their textual form.
type flexStrings []string

func (f *flexStrings) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = nil
		return nil
	}
	if data[0] == '"' {
		var inner string
		if err := json.Unmarshal(data, &inner); err != nil {
			return err
		}
		inner = strings.TrimSpace(inner)
		if inner == "" {
			*f = nil
			return nil
		}
		data = []byte(inner)
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		var s string
		if err := json.Unmarshal(r, &s); err == nil {
			out = append(out, s)
			continue
		}
		out = append(out, string(bytes.TrimSpace(r)))
	}
	*f = out
	return nil
}

// --------------------------------------------------------------------------
// CLOB API DTOs
// --------------------------------------------------------------------------

// APIBookLevel is one level of a CLOB /book response. Prices and sizes are
// usually strings but numbers are accepted.
type APIBookLevel struct {
	Price flexFloat `json:"price"`
	Size  flexFloat `json:"size"`
}

// APIBook is the CLOB /book response.
type APIBook struct {
	Market    string         `json:"market"`
	AssetID   string         `json:"asset_id"`
	Timestamp flexFloat      `json:"timestamp"` // unix millis
	Hash      string         `json:"hash"`
	Bids      []APIBookLevel `json:"bids"`
	Asks      []APIBookLevel `json:"asks"`
	TickSize  flexFloat      `json:"tick_size"`
}

// APIMidpoint is the CLOB /midpoint response.
type APIMidpoint struct {
	Mid flexFloat `json:"mid"`
}

// ToDomain converts the book into a snapshot for tokenID. Level order is kept
// as published; the merger re-sorts.
func (b *APIBook) ToDomain(tokenID string) domain.OrderbookSnapshot {
	snap := domain.OrderbookSnapshot{
		AssetID:  b.AssetID,
		MarketID: b.Market,
		Bids:     toLevels(b.Bids),
		Asks:     toLevels(b.Asks),
	}
	if snap.AssetID == "" {
		snap.AssetID = tokenID
	}
	if ms := int64(b.Timestamp); ms > 0 {
		snap.Timestamp = time.UnixMilli(ms).UTC()
	} else {
		snap.Timestamp = time.Now().UTC()
	}
	return snap
}

func toLevels(levels []APIBookLevel) []domain.PriceLevel {
	out := make([]domain.PriceLevel, len(levels))
	for i, l := range levels {
		out[i] = domain.PriceLevel{Price: float64(l.Price), Size: float64(l.Size)}
	}
	return out
}

// --------------------------------------------------------------------------
// Gamma API DTOs
// --------------------------------------------------------------------------

// APIMarket represents a market as returned by the Polymarket Gamma API.
// Gamma mixes camelCase and snake_case keys depending on endpoint and era, so
// both spellings of the fields we need are declared.
type APIMarket struct {
	ID                string      `json:"id"`
	Question          string      `json:"question"`
	Slug              string      `json:"slug"`
	ConditionID       string      `json:"conditionId"`
	ConditionIDSnake  string      `json:"condition_id"`
	Active            flexBool    `json:"active"`
	Closed            flexBool    `json:"closed"`
	Outcomes          flexStrings `json:"outcomes"`
	OutcomePrices     flexStrings `json:"outcomePrices"`
	ClobTokenIDs      flexStrings `json:"clobTokenIds"`
	ClobTokenIDsSnake flexStrings `json:"clob_token_ids"`
	Tokens            []Token     `json:"tokens"`
	Volume            flexFloat   `json:"volume"`
	VolumeNum         flexFloat   `json:"volumeNum"`
	Liquidity         flexFloat   `json:"liquidity"`
	LiquidityNum      flexFloat   `json:"liquidityNum"`
	EndDate           string      `json:"endDate"`
	EndDateISO        string      `json:"end_date_iso"`
	EnableOrderBook   flexBool    `json:"enableOrderBook"`
}

// Token represents a token entry inside the Gamma API market response.
type Token struct {
	TokenID string    `json:"token_id"`
	Outcome string    `json:"outcome"`
	Price   flexFloat `json:"price"`
}

// ToDomainMarket converts an APIMarket to a domain.Market. Token ids come
// from clobTokenIds when present, otherwise from the tokens array.
func (m *APIMarket) ToDomainMarket() domain.Market {
	dm := domain.Market{
		ID:          m.ID,
		Question:    m.Question,
		Slug:        m.Slug,
		ConditionID: firstNonEmpty(m.ConditionID, m.ConditionIDSnake),
		Volume:      firstPositive(float64(m.VolumeNum), float64(m.Volume)),
		Liquidity:   firstPositive(float64(m.LiquidityNum), float64(m.Liquidity)),
	}

	switch {
	case bool(m.Closed):
		dm.Status = domain.MarketStatusClosed
	case bool(m.Active):
		dm.Status = domain.MarketStatusActive
	default:
		dm.Status = domain.MarketStatusSettled
	}

	ids := []string(m.ClobTokenIDs)
	if len(ids) < 2 {
		ids = m.ClobTokenIDsSnake
	}
	outcomes := []string(m.Outcomes)
	prices := []string(m.OutcomePrices)
	if len(ids) < 2 && len(m.Tokens) >= 2 {
		ids = []string{m.Tokens[0].TokenID, m.Tokens[1].TokenID}
		if len(outcomes) < 2 {
			outcomes = []string{m.Tokens[0].Outcome, m.Tokens[1].Outcome}
		}
		if len(prices) < 2 {
			for i := 0; i < 2; i++ {
				dm.OutcomePrices[i] = float64(m.Tokens[i].Price)
			}
		}
	}

	for i := 0; i < 2; i++ {
		if i < len(ids) {
			dm.TokenIDs[i] = ids[i]
		}
		if i < len(outcomes) {
			dm.Outcomes[i] = outcomes[i]
		}
		if i < len(prices) {
			if p, err := strconv.ParseFloat(strings.TrimSpace(prices[i]), 64); err == nil && finite(p) {
				dm.OutcomePrices[i] = p
			}
		}
	}

	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, firstNonEmpty(m.EndDate, m.EndDateISO)); err == nil {
			t = t.UTC()
			dm.EndDate = &t
			break
		}
	}

	return dm
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstPositive(vals ...float64) float64 {
	for _, v := range vals {
		if v > 0 {
			return v
		}
	}
	return 0
}
