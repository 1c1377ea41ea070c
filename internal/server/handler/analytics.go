package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/polyanalytics/internal/analytics"
	"github.com/alanyoungcy/polyanalytics/internal/domain"
	"github.com/alanyoungcy/polyanalytics/internal/service"
)

// AnalyticsService defines the single-market operations the analytics
// handler requires.
type AnalyticsService interface {
	OrderBook(ctx context.Context, q service.TokenQuery) (domain.MergedBookView, error)
	Liquidity(ctx context.Context, q service.TokenQuery, windowPct float64) (domain.LiquidityReport, error)
	Slippage(ctx context.Context, q service.TokenQuery, amountUSD float64) (domain.SlippageResult, error)
	Efficiency(ctx context.Context, q service.TokenQuery) (domain.EfficiencyReport, error)
}

// AnalyticsHandler serves merged-book, liquidity, slippage and efficiency
// queries for a single market.
type AnalyticsHandler struct {
	svc    AnalyticsService
	logger *slog.Logger
}

// NewAnalyticsHandler creates an AnalyticsHandler.
func NewAnalyticsHandler(svc AnalyticsService, logger *slog.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{svc: svc, logger: logHandler(logger, "analytics")}
}

func tokenQuery(r *http.Request) service.TokenQuery {
	return service.TokenQuery{
		TokenID:  queryParam(r, "token_id", "tokenId"),
		MarketID: queryParam(r, "market_id", "marketId", "condition_id"),
	}
}

// OrderBook returns the merged ladder for a token.
// GET /api/orderbook?token_id=...&market_id=...
func (h *AnalyticsHandler) OrderBook(w http.ResponseWriter, r *http.Request) {
	view, err := h.svc.OrderBook(r.Context(), tokenQuery(r))
	if err != nil {
		writeServiceError(w, r, h.logger, "get order book", err)
		return
	}
	writeJSON(w, http.StatusOK, analytics.PresentBookView(view))
}

// Liquidity returns the liquidity report for a token.
// GET /api/liquidity?token_id=...&window_pct=0.02
func (h *AnalyticsHandler) Liquidity(w http.ResponseWriter, r *http.Request) {
	window, _, ok := queryFloat(r, "window_pct", "windowPct")
	if !ok || window < 0 || window >= 1 {
		writeError(w, http.StatusBadRequest, "window_pct must be a fraction in [0,1)")
		return
	}

	rep, err := h.svc.Liquidity(r.Context(), tokenQuery(r), window)
	if err != nil {
		writeServiceError(w, r, h.logger, "analyse liquidity", err)
		return
	}
	writeJSON(w, http.StatusOK, analytics.PresentLiquidity(rep))
}

// Slippage simulates a market sell of a USD notional.
// GET /api/slippage?token_id=...&amount=1000
func (h *AnalyticsHandler) Slippage(w http.ResponseWriter, r *http.Request) {
	amount, present, ok := queryFloat(r, "amount", "amount_usd", "amountUsd")
	if !present {
		writeError(w, http.StatusBadRequest, "amount is required")
		return
	}
	if !ok {
		writeError(w, http.StatusBadRequest, "amount must be a positive number")
		return
	}

	res, err := h.svc.Slippage(r.Context(), tokenQuery(r), amount)
	if err != nil {
		writeServiceError(w, r, h.logger, "simulate slippage", err)
		return
	}
	writeJSON(w, http.StatusOK, analytics.PresentSlippage(res))
}

// Efficiency returns the vig report for a market.
// GET /api/efficiency?market_id=...
func (h *AnalyticsHandler) Efficiency(w http.ResponseWriter, r *http.Request) {
	rep, err := h.svc.Efficiency(r.Context(), tokenQuery(r))
	if err != nil {
		writeServiceError(w, r, h.logger, "score efficiency", err)
		return
	}
	writeJSON(w, http.StatusOK, analytics.PresentEfficiency(rep))
}
