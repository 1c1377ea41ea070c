package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alanyoungcy/polyanalytics/internal/domain"
)

func sampleReport(id string, opps int) domain.ScanReport {
	r := domain.ScanReport{
		ID:          id,
		StartedAt:   time.Now().Add(-time.Second),
		CompletedAt: time.Now(),
		Scanned:     3,
	}
	for i := range opps {
		r.Opportunities = append(r.Opportunities, domain.ArbitrageOpportunity{
			ID:        id + "-" + string(rune('a'+i)),
			ScanID:    id,
			MarketID:  "m" + string(rune('1'+i)),
			BuyYesAt:  0.48,
			BuyNoAt:   0.49,
			TotalCost: 0.97,
			Edge:      0.03,
			EdgeBps:   300,
		})
	}
	return r
}

func TestScanRunDiscoversWithDefaults(t *testing.T) {
	lister := &fakeLister{markets: []domain.Market{{ID: "a"}, {ID: "b"}, {ID: "c"}}}
	scanner := &fakeScanner{report: sampleReport("s1", 0)}
	svc := NewScanService(lister, scanner, ScanDeps{}, ScanConfig{MarketLimit: 2, MinVolume: 500}, nil)

	report, err := svc.Run(context.Background(), ScanRequest{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if lister.limit != 2 || lister.minVolume != 500 {
		t.Errorf("lister called with limit=%d minVolume=%v", lister.limit, lister.minVolume)
	}
	if len(scanner.got) != 2 || report.Requested != 2 {
		t.Errorf("scanned %d markets, report.Requested=%d", len(scanner.got), report.Requested)
	}

	if _, err := svc.Run(context.Background(), ScanRequest{Limit: 10, MinVolume: 1}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if lister.limit != 10 || lister.minVolume != 1 {
		t.Errorf("request overrides ignored: limit=%d minVolume=%v", lister.limit, lister.minVolume)
	}
}

func TestScanRunExplicitMarkets(t *testing.T) {
	lister := &fakeLister{}
	scanner := &fakeScanner{}
	svc := NewScanService(lister, scanner, ScanDeps{}, ScanConfig{}, nil)

	if _, err := svc.Run(context.Background(), ScanRequest{MarketIDs: []string{"x", " x ", "y", ""}}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(scanner.got) != 2 || scanner.got[0].ID != "x" || scanner.got[1].ID != "y" {
		t.Errorf("scanned %+v", scanner.got)
	}
	if lister.limit != 0 {
		t.Error("lister consulted for an explicit market list")
	}

	_, err := svc.Run(context.Background(), ScanRequest{MarketIDs: []string{" ", ""}})
	if !errors.Is(err, domain.ErrMissingIdentifier) {
		t.Errorf("blank ids err = %v", err)
	}
	if scanner.calls != 1 {
		t.Errorf("scanner calls = %d, want 1", scanner.calls)
	}
}

func TestScanRunListerError(t *testing.T) {
	lister := &fakeLister{err: domain.ErrProviderFetch}
	scanner := &fakeScanner{}
	svc := NewScanService(lister, scanner, ScanDeps{}, ScanConfig{}, nil)

	if _, err := svc.Run(context.Background(), ScanRequest{}); !errors.Is(err, domain.ErrProviderFetch) {
		t.Errorf("err = %v", err)
	}
	if scanner.calls != 0 {
		t.Error("scanner ran after discovery failed")
	}
}

func TestScanRunFansOut(t *testing.T) {
	tests := []struct {
		name      string
		opps      int
		wantArb   int
		wantAlert int
	}{
		{"no opportunities", 0, 0, 0},
		{"two opportunities", 2, 2, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bus := newFakeBus()
			store := &fakeStore{}
			archive := &fakeArchive{reports: map[string]domain.ScanReport{}}
			alerter := &fakeAlerter{}
			scanner := &fakeScanner{report: sampleReport("s1", tt.opps)}
			svc := NewScanService(&fakeLister{}, scanner, ScanDeps{
				Bus: bus, Store: store, Archive: archive, Alerter: alerter,
			}, ScanConfig{}, nil)

			if _, err := svc.Run(context.Background(), ScanRequest{MarketIDs: []string{"m1"}}); err != nil {
				t.Fatalf("Run: %v", err)
			}
			if got := len(bus.published[domain.ChannelArb]); got != tt.wantArb {
				t.Errorf("arb events = %d, want %d", got, tt.wantArb)
			}
			if got := len(bus.published[domain.ChannelScan]); got != 1 {
				t.Errorf("scan events = %d, want 1", got)
			}
			if len(bus.stream) != 1 {
				t.Errorf("stream entries = %d, want 1", len(bus.stream))
			}
			if len(store.inserted) != 1 {
				t.Errorf("store inserts = %d", len(store.inserted))
			}
			if _, ok := archive.reports["s1"]; !ok {
				t.Error("report not archived")
			}
			if len(alerter.events) != tt.wantAlert {
				t.Errorf("alerts = %d, want %d", len(alerter.events), tt.wantAlert)
			}
		})
	}
}

func TestScanRunCancelledStillRecords(t *testing.T) {
	store := &fakeStore{}
	scanner := &fakeScanner{report: sampleReport("s1", 1)}
	svc := NewScanService(&fakeLister{}, scanner, ScanDeps{Store: store}, ScanConfig{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := svc.Run(ctx, ScanRequest{MarketIDs: []string{"m1"}})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !report.Partial {
		t.Error("cancelled scan not marked partial")
	}
	if len(store.inserted) != 1 || store.ctxErr != nil {
		t.Errorf("inserts=%d ctxErr=%v", len(store.inserted), store.ctxErr)
	}
}

func TestScanRunScheduled(t *testing.T) {
	t.Run("lock held elsewhere", func(t *testing.T) {
		locks := &fakeLocks{held: true}
		scanner := &fakeScanner{}
		svc := NewScanService(&fakeLister{}, scanner, ScanDeps{Locks: locks}, ScanConfig{}, nil)

		_, ran, err := svc.RunScheduled(context.Background())
		if err != nil || ran {
			t.Errorf("ran=%v err=%v", ran, err)
		}
		if scanner.calls != 0 {
			t.Error("scanner ran without the lock")
		}
	})

	t.Run("lock acquired", func(t *testing.T) {
		locks := &fakeLocks{}
		scanner := &fakeScanner{report: sampleReport("s2", 0)}
		lister := &fakeLister{markets: []domain.Market{{ID: "a"}}}
		svc := NewScanService(lister, scanner, ScanDeps{Locks: locks}, ScanConfig{}, nil)

		report, ran, err := svc.RunScheduled(context.Background())
		if err != nil || !ran {
			t.Fatalf("ran=%v err=%v", ran, err)
		}
		if report.ID != "s2" || locks.released != 1 {
			t.Errorf("report=%q released=%d", report.ID, locks.released)
		}
		if lister.limit != 100 {
			t.Errorf("default market limit = %d", lister.limit)
		}
	})
}

func TestScanReaders(t *testing.T) {
	archive := &fakeArchive{reports: map[string]domain.ScanReport{
		"old": sampleReport("old", 1),
	}}
	svc := NewScanService(&fakeLister{}, &fakeScanner{report: sampleReport("new", 3)}, ScanDeps{Archive: archive}, ScanConfig{}, nil)
	ctx := context.Background()

	if _, ok := svc.LastReport(); ok {
		t.Error("LastReport before any scan")
	}
	if _, err := svc.Run(ctx, ScanRequest{MarketIDs: []string{"m1"}}); err != nil {
		t.Fatalf("Run: %v", err)
	}

	last, ok := svc.LastReport()
	if !ok || last.ID != "new" {
		t.Errorf("LastReport = %q, %v", last.ID, ok)
	}

	opps, err := svc.RecentOpportunities(ctx, 2)
	if err != nil || len(opps) != 2 {
		t.Errorf("RecentOpportunities = %d, %v", len(opps), err)
	}

	scans, err := svc.RecentScans(ctx, 0)
	if err != nil || len(scans) != 1 {
		t.Errorf("RecentScans = %d, %v", len(scans), err)
	}

	if r, err := svc.Scan(ctx, "new"); err != nil || len(r.Opportunities) != 3 {
		t.Errorf("Scan(new) = %+v, %v", r, err)
	}
	if r, err := svc.Scan(ctx, "old"); err != nil || r.ID != "old" {
		t.Errorf("Scan(old) = %+v, %v", r, err)
	}
	if _, err := svc.Scan(ctx, "nope"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Scan(nope) err = %v", err)
	}
}

func TestScanReplayEvents(t *testing.T) {
	bus := newFakeBus()
	svc := NewScanService(&fakeLister{}, &fakeScanner{report: sampleReport("s1", 1)}, ScanDeps{Bus: bus}, ScanConfig{}, nil)
	ctx := context.Background()

	if _, err := svc.Run(ctx, ScanRequest{MarketIDs: []string{"m1"}}); err != nil {
		t.Fatalf("Run: %v", err)
	}

	events, err := svc.ReplayEvents(ctx, "", 10)
	if err != nil {
		t.Fatalf("ReplayEvents: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("events = %d, want 1", len(events))
	}
	ev := events[0]
	if ev.ScanID != "s1" || ev.Event != domain.EventScanDone || ev.Opportunities != 1 {
		t.Errorf("event = %+v", ev)
	}
	if ev.StreamID == "" || ev.StreamID != bus.stream[0].ID {
		t.Errorf("stream id = %q", ev.StreamID)
	}
	if ev.BestEdge != 0.03 {
		t.Errorf("best edge = %v", ev.BestEdge)
	}

	none, err := NewScanService(&fakeLister{}, &fakeScanner{}, ScanDeps{}, ScanConfig{}, nil).ReplayEvents(ctx, "", 10)
	if err != nil || none != nil {
		t.Errorf("replay without bus = %v, %v", none, err)
	}
}
