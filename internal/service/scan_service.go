package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/alanyoungcy/polyanalytics/internal/domain"
	"github.com/alanyoungcy/polyanalytics/internal/notify"
)

// scanLockKey guards scheduled scans across replicas.
const scanLockKey = "arb_scan"

// postScanTimeout bounds recording work after a scan, which runs even when
// the scan itself was cancelled.
const postScanTimeout = 30 * time.Second

// Scanner runs one arbitrage scan over a market list.
type Scanner interface {
	Scan(ctx context.Context, markets []domain.Market) domain.ScanReport
}

// Alerter sends operator notifications filtered by event type.
type Alerter interface {
	Notify(ctx context.Context, event, title, message string) error
}

// ScanConfig tunes market discovery and scheduled scans.
type ScanConfig struct {
	MarketLimit int
	MinVolume   float64
	LockTTL     time.Duration
	KeepRecent  int // reports held in memory when no store is configured
}

// ScanDeps are the optional collaborators of a ScanService. Nil fields are
// skipped.
type ScanDeps struct {
	Bus     domain.SignalBus
	Store   domain.ScanStore
	Archive domain.ScanArchive
	Alerter Alerter
	Locks   domain.LockManager
}

// ScanService discovers markets, runs the scanner and fans the report out to
// the bus, the history store, the archive and the alerter.
type ScanService struct {
	lister  domain.MarketLister
	scanner Scanner
	deps    ScanDeps
	cfg     ScanConfig
	logger  *slog.Logger

	mu     sync.RWMutex
	recent []domain.ScanReport // newest first
}

// NewScanService creates a ScanService.
func NewScanService(lister domain.MarketLister, scanner Scanner, deps ScanDeps, cfg ScanConfig, logger *slog.Logger) *ScanService {
	if cfg.MarketLimit <= 0 {
		cfg.MarketLimit = 100
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 5 * time.Minute
	}
	if cfg.KeepRecent <= 0 {
		cfg.KeepRecent = 20
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ScanService{
		lister:  lister,
		scanner: scanner,
		deps:    deps,
		cfg:     cfg,
		logger:  logger.With(slog.String("component", "scan_service")),
	}
}

// ScanRequest selects the markets of one scan. When MarketIDs is empty the
// most active markets are discovered from the lister.
type ScanRequest struct {
	MarketIDs []string
	Limit     int
	MinVolume float64
}

// Run performs one scan and records it. A cancelled ctx yields a partial
// report, not an error; only market discovery failures are returned.
func (s *ScanService) Run(ctx context.Context, req ScanRequest) (domain.ScanReport, error) {
	markets, err := s.candidates(ctx, req)
	if err != nil {
		return domain.ScanReport{}, err
	}

	report := s.scanner.Scan(ctx, markets)
	s.remember(report)

	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), postScanTimeout)
	defer cancel()
	s.publish(pctx, report)
	s.record(pctx, report)
	s.alert(pctx, report)

	return report, nil
}

// RunScheduled runs a scan with discovery defaults under the distributed scan
// lock. It reports false when another replica holds the lock.
func (s *ScanService) RunScheduled(ctx context.Context) (domain.ScanReport, bool, error) {
	if s.deps.Locks != nil {
		release, err := s.deps.Locks.Acquire(ctx, scanLockKey, s.cfg.LockTTL)
		if errors.Is(err, domain.ErrLockHeld) {
			s.logger.DebugContext(ctx, "scan lock held elsewhere, skipping")
			return domain.ScanReport{}, false, nil
		}
		if err != nil {
			return domain.ScanReport{}, false, fmt.Errorf("scan_service: acquire lock: %w", err)
		}
		defer release()
	}

	report, err := s.Run(ctx, ScanRequest{})
	if err != nil {
		return domain.ScanReport{}, false, err
	}
	return report, true, nil
}

func (s *ScanService) candidates(ctx context.Context, req ScanRequest) ([]domain.Market, error) {
	if len(req.MarketIDs) > 0 {
		seen := make(map[string]bool, len(req.MarketIDs))
		markets := make([]domain.Market, 0, len(req.MarketIDs))
		for _, id := range req.MarketIDs {
			id = strings.TrimSpace(id)
			if id == "" || seen[id] {
				continue
			}
			seen[id] = true
			markets = append(markets, domain.Market{ID: id})
		}
		if len(markets) == 0 {
			return nil, domain.ErrMissingIdentifier
		}
		return markets, nil
	}

	limit := req.Limit
	if limit <= 0 {
		limit = s.cfg.MarketLimit
	}
	minVolume := req.MinVolume
	if minVolume <= 0 {
		minVolume = s.cfg.MinVolume
	}
	markets, err := s.lister.ListActiveMarkets(ctx, limit, minVolume)
	if err != nil {
		return nil, fmt.Errorf("scan_service: discover markets: %w", err)
	}
	if len(markets) > limit {
		markets = markets[:limit]
	}
	return markets, nil
}

// publish emits one arb event per opportunity and a scan summary on the
// bus, and appends the summary to the scan stream.
func (s *ScanService) publish(ctx context.Context, report domain.ScanReport) {
	if s.deps.Bus == nil {
		return
	}

	for _, opp := range report.Opportunities {
		payload, err := json.Marshal(domain.ArbEvent{Event: domain.EventArb, Opportunity: opp})
		if err != nil {
			continue
		}
		if err := s.deps.Bus.Publish(ctx, domain.ChannelArb, payload); err != nil {
			s.logger.WarnContext(ctx, "publish arb event failed",
				slog.String("opportunity_id", opp.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	payload, err := json.Marshal(SummaryEvent(report))
	if err != nil {
		return
	}
	if err := s.deps.Bus.Publish(ctx, domain.ChannelScan, payload); err != nil {
		s.logger.WarnContext(ctx, "publish scan event failed",
			slog.String("scan_id", report.ID),
			slog.String("error", err.Error()),
		)
	}
	if err := s.deps.Bus.StreamAppend(ctx, domain.StreamScans, payload); err != nil {
		s.logger.WarnContext(ctx, "append scan stream failed",
			slog.String("scan_id", report.ID),
			slog.String("error", err.Error()),
		)
	}
}

func (s *ScanService) record(ctx context.Context, report domain.ScanReport) {
	if s.deps.Store != nil {
		if err := s.deps.Store.InsertScan(ctx, report); err != nil {
			s.logger.ErrorContext(ctx, "record scan failed",
				slog.String("scan_id", report.ID),
				slog.String("error", err.Error()),
			)
		}
	}
	if s.deps.Archive != nil {
		path, err := s.deps.Archive.ArchiveScan(ctx, report)
		if err != nil {
			s.logger.ErrorContext(ctx, "archive scan failed",
				slog.String("scan_id", report.ID),
				slog.String("error", err.Error()),
			)
			return
		}
		s.logger.DebugContext(ctx, "scan archived",
			slog.String("scan_id", report.ID),
			slog.String("path", path),
		)
	}
}

func (s *ScanService) alert(ctx context.Context, report domain.ScanReport) {
	if s.deps.Alerter == nil {
		return
	}
	title, message, ok := notify.ScanAlert(report)
	if !ok {
		return
	}
	if err := s.deps.Alerter.Notify(ctx, notify.EventArbDetected, title, message); err != nil {
		s.logger.WarnContext(ctx, "arb alert failed",
			slog.String("scan_id", report.ID),
			slog.String("error", err.Error()),
		)
	}
}

func (s *ScanService) remember(report domain.ScanReport) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recent = append([]domain.ScanReport{report}, s.recent...)
	if len(s.recent) > s.cfg.KeepRecent {
		s.recent = s.recent[:s.cfg.KeepRecent]
	}
}

// LastReport returns the most recent scan run by this process.
func (s *ScanService) LastReport() (domain.ScanReport, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.recent) == 0 {
		return domain.ScanReport{}, false
	}
	return s.recent[0], true
}

// RecentOpportunities returns the newest opportunities, from the history
// store when configured and from this process's recent scans otherwise.
func (s *ScanService) RecentOpportunities(ctx context.Context, limit int) ([]domain.ArbitrageOpportunity, error) {
	if limit <= 0 {
		limit = 50
	}
	if s.deps.Store != nil {
		opps, err := s.deps.Store.ListRecentOpportunities(ctx, limit)
		if err != nil {
			return nil, fmt.Errorf("scan_service: recent opportunities: %w", err)
		}
		return opps, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []domain.ArbitrageOpportunity{}
	for _, r := range s.recent {
		for _, o := range r.Opportunities {
			if len(out) == limit {
				return out, nil
			}
			out = append(out, o)
		}
	}
	return out, nil
}

// RecentScans returns scan summaries, newest first.
func (s *ScanService) RecentScans(ctx context.Context, limit int) ([]domain.ScanReport, error) {
	if limit <= 0 {
		limit = 20
	}
	if s.deps.Store != nil {
		scans, err := s.deps.Store.ListRecentScans(ctx, limit)
		if err != nil {
			return nil, fmt.Errorf("scan_service: recent scans: %w", err)
		}
		return scans, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	n := min(limit, len(s.recent))
	out := make([]domain.ScanReport, n)
	copy(out, s.recent[:n])
	return out, nil
}

// Scan returns a full report by id from memory or the archive.
func (s *ScanService) Scan(ctx context.Context, scanID string) (domain.ScanReport, error) {
	s.mu.RLock()
	for _, r := range s.recent {
		if r.ID == scanID {
			s.mu.RUnlock()
			return r, nil
		}
	}
	s.mu.RUnlock()

	if s.deps.Archive == nil {
		return domain.ScanReport{}, fmt.Errorf("scan_service: scan %s: %w", scanID, domain.ErrNotFound)
	}
	report, err := s.deps.Archive.LoadScan(ctx, scanID)
	if err != nil {
		return domain.ScanReport{}, fmt.Errorf("scan_service: scan %s: %w", scanID, err)
	}
	return report, nil
}

// ReplayEvents reads up to count scan summaries recorded after the stream id
// afterID ("" reads from the start), oldest first. It returns nil when no bus
// is configured.
func (s *ScanService) ReplayEvents(ctx context.Context, afterID string, count int) ([]domain.ScanEvent, error) {
	if s.deps.Bus == nil {
		return nil, nil
	}
	if afterID == "" {
		afterID = "0"
	}
	msgs, err := s.deps.Bus.StreamRead(ctx, domain.StreamScans, afterID, count)
	if err != nil {
		return nil, fmt.Errorf("scan_service: replay events: %w", err)
	}
	events := make([]domain.ScanEvent, 0, len(msgs))
	for _, m := range msgs {
		var ev domain.ScanEvent
		if err := json.Unmarshal(m.Payload, &ev); err != nil {
			continue
		}
		ev.StreamID = m.ID
		events = append(events, ev)
	}
	return events, nil
}

// SummaryEvent builds the bus envelope for a completed scan.
func SummaryEvent(report domain.ScanReport) domain.ScanEvent {
	ev := domain.ScanEvent{
		Event:            domain.EventScanDone,
		ScanID:           report.ID,
		Scanned:          report.Scanned,
		Failed:           report.Failed,
		Partial:          report.Partial,
		Opportunities:    len(report.Opportunities),
		SpreadCandidates: len(report.SpreadCandidates),
		Timestamp:        report.CompletedAt,
	}
	if len(report.Opportunities) > 0 {
		ev.BestEdge = report.Opportunities[0].Edge
	}
	return ev
}
