package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/alanyoungcy/polyanalytics/internal/analytics"
	"github.com/alanyoungcy/polyanalytics/internal/domain"
	"github.com/alanyoungcy/polyanalytics/internal/service"
)

// maxScanMarkets caps an explicit market list in one scan request.
const maxScanMarkets = 500

// ScanService defines the methods that the arbitrage handler requires.
type ScanService interface {
	Run(ctx context.Context, req service.ScanRequest) (domain.ScanReport, error)
	RecentOpportunities(ctx context.Context, limit int) ([]domain.ArbitrageOpportunity, error)
	RecentScans(ctx context.Context, limit int) ([]domain.ScanReport, error)
	Scan(ctx context.Context, scanID string) (domain.ScanReport, error)
}

// ArbHandler serves arbitrage scan endpoints.
type ArbHandler struct {
	scans  ScanService
	logger *slog.Logger
}

// NewArbHandler creates an ArbHandler with the given service and logger.
func NewArbHandler(scans ScanService, logger *slog.Logger) *ArbHandler {
	return &ArbHandler{scans: scans, logger: logHandler(logger, "arbitrage")}
}

// scanRequest is the optional JSON body of a scan trigger.
type scanRequest struct {
	MarketIDs []string `json:"market_ids"`
	Limit     int      `json:"limit"`
	MinVolume float64  `json:"min_volume"`
}

// RunScan triggers a scan and returns the ranked report. With no body the
// most active markets are scanned; ?market_ids=a,b is accepted as well.
// POST /api/arbitrage/scan
func (h *ArbHandler) RunScan(w http.ResponseWriter, r *http.Request) {
	var body scanRequest
	if r.Body != nil {
		dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
		if err := dec.Decode(&body); err != nil && !errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
	}
	if ids := queryParam(r, "market_ids", "marketIds"); ids != "" && len(body.MarketIDs) == 0 {
		body.MarketIDs = strings.Split(ids, ",")
	}
	if len(body.MarketIDs) > maxScanMarkets {
		writeError(w, http.StatusBadRequest, "too many market_ids")
		return
	}
	if body.Limit < 0 || body.MinVolume < 0 {
		writeError(w, http.StatusBadRequest, "limit and min_volume must not be negative")
		return
	}
	if body.Limit > maxScanMarkets {
		body.Limit = maxScanMarkets
	}

	report, err := h.scans.Run(r.Context(), service.ScanRequest{
		MarketIDs: body.MarketIDs,
		Limit:     body.Limit,
		MinVolume: body.MinVolume,
	})
	if err != nil {
		writeServiceError(w, r, h.logger, "run scan", err)
		return
	}

	h.logger.InfoContext(r.Context(), "scan completed",
		slog.String("scan_id", report.ID),
		slog.Int("scanned", report.Scanned),
		slog.Int("failed", report.Failed),
		slog.Int("opportunities", len(report.Opportunities)),
		slog.Bool("partial", report.Partial),
	)
	writeJSON(w, http.StatusOK, analytics.PresentScan(report))
}

// listArbResponse wraps the list arbitrage opportunities response.
type listArbResponse struct {
	Opportunities []domain.ArbitrageOpportunity `json:"opportunities"`
}

// ListRecent returns the most recent arbitrage opportunities.
// GET /api/arbitrage/recent?limit=20
func (h *ArbHandler) ListRecent(w http.ResponseWriter, r *http.Request) {
	opps, err := h.scans.RecentOpportunities(r.Context(), parseLimit(r, 20, 200))
	if err != nil {
		writeServiceError(w, r, h.logger, "list arbitrage opportunities", err)
		return
	}

	out := make([]domain.ArbitrageOpportunity, len(opps))
	for i, o := range opps {
		out[i] = analytics.PresentOpportunity(o)
	}
	writeJSON(w, http.StatusOK, listArbResponse{Opportunities: out})
}

type listScansResponse struct {
	Scans []domain.ScanEvent `json:"scans"`
}

// ListScans returns summaries of recent scans.
// GET /api/arbitrage/scans?limit=20
func (h *ArbHandler) ListScans(w http.ResponseWriter, r *http.Request) {
	scans, err := h.scans.RecentScans(r.Context(), parseLimit(r, 20, 100))
	if err != nil {
		writeServiceError(w, r, h.logger, "list scans", err)
		return
	}

	out := make([]domain.ScanEvent, len(scans))
	for i, s := range scans {
		out[i] = service.SummaryEvent(s)
	}
	writeJSON(w, http.StatusOK, listScansResponse{Scans: out})
}

// GetScan returns one full scan report.
// GET /api/arbitrage/scans/{id}
func (h *ArbHandler) GetScan(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing scan id")
		return
	}
	report, err := h.scans.Scan(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "scan not found")
			return
		}
		writeServiceError(w, r, h.logger, "get scan", err)
		return
	}
	writeJSON(w, http.StatusOK, analytics.PresentScan(report))
}
