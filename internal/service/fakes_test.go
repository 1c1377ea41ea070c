package service

import (
	"context"
	"sync"
	"time"

	"github.com/alanyoungcy/polyanalytics/internal/domain"
)

type fakeProvider struct {
	mu       sync.Mutex
	books    map[string]domain.OrderbookSnapshot
	markets  map[string]domain.Market
	refs     map[string]float64
	failBook map[string]error
	calls    map[string]int
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		books:    map[string]domain.OrderbookSnapshot{},
		markets:  map[string]domain.Market{},
		refs:     map[string]float64{},
		failBook: map[string]error{},
		calls:    map[string]int{},
	}
}

func (p *fakeProvider) FetchOrderBook(_ context.Context, tokenID string) (domain.OrderbookSnapshot, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls["book:"+tokenID]++
	if err := p.failBook[tokenID]; err != nil {
		return domain.OrderbookSnapshot{}, err
	}
	snap, ok := p.books[tokenID]
	if !ok {
		return domain.OrderbookSnapshot{AssetID: tokenID, Timestamp: time.Now()}, nil
	}
	return snap, nil
}

func (p *fakeProvider) FetchMarketTokens(_ context.Context, marketID string) (domain.Market, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	m, ok := p.markets[marketID]
	if !ok {
		return domain.Market{}, domain.ErrNotFound
	}
	return m, nil
}

func (p *fakeProvider) FetchReferencePrice(_ context.Context, tokenID string) (float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	ref, ok := p.refs[tokenID]
	if !ok {
		return 0, domain.ErrNotFound
	}
	return ref, nil
}

type fakeResolver struct {
	markets map[string]domain.Market
}

func (r fakeResolver) ResolveMarketByToken(_ context.Context, tokenID string) (domain.Market, error) {
	m, ok := r.markets[tokenID]
	if !ok {
		return domain.Market{}, domain.ErrNotFound
	}
	return m, nil
}

func snapshot(id string, bids, asks [][2]float64) domain.OrderbookSnapshot {
	s := domain.OrderbookSnapshot{AssetID: id, Timestamp: time.Now()}
	for _, b := range bids {
		s.Bids = append(s.Bids, domain.PriceLevel{Price: b[0], Size: b[1]})
	}
	for _, a := range asks {
		s.Asks = append(s.Asks, domain.PriceLevel{Price: a[0], Size: a[1]})
	}
	return s
}

// ---------------------------------------------------------------------------
// scan collaborators
// ---------------------------------------------------------------------------

type fakeScanner struct {
	report domain.ScanReport
	got    []domain.Market
	calls  int
}

func (f *fakeScanner) Scan(ctx context.Context, markets []domain.Market) domain.ScanReport {
	f.calls++
	f.got = markets
	r := f.report
	r.Requested = len(markets)
	r.Partial = ctx.Err() != nil
	return r
}

type fakeLister struct {
	markets   []domain.Market
	err       error
	limit     int
	minVolume float64
}

func (l *fakeLister) ListActiveMarkets(_ context.Context, limit int, minVolume float64) ([]domain.Market, error) {
	l.limit, l.minVolume = limit, minVolume
	return l.markets, l.err
}

type fakeBus struct {
	mu        sync.Mutex
	published map[string][][]byte
	stream    []domain.StreamMessage
}

func newFakeBus() *fakeBus {
	return &fakeBus{published: map[string][][]byte{}}
}

func (b *fakeBus) Publish(_ context.Context, channel string, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published[channel] = append(b.published[channel], payload)
	return nil
}

func (b *fakeBus) Subscribe(context.Context, string) (<-chan []byte, error) {
	return make(chan []byte), nil
}

func (b *fakeBus) StreamAppend(_ context.Context, _ string, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := time.Now().Format("150405.000000000")
	b.stream = append(b.stream, domain.StreamMessage{ID: id, Payload: payload})
	return nil
}

func (b *fakeBus) StreamRead(_ context.Context, _ string, _ string, count int) ([]domain.StreamMessage, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := min(count, len(b.stream))
	return append([]domain.StreamMessage(nil), b.stream[:n]...), nil
}

type fakeStore struct {
	inserted []domain.ScanReport
	ctxErr   error
}

func (s *fakeStore) InsertScan(ctx context.Context, r domain.ScanReport) error {
	s.ctxErr = ctx.Err()
	s.inserted = append(s.inserted, r)
	return nil
}

func (s *fakeStore) ListRecentOpportunities(_ context.Context, limit int) ([]domain.ArbitrageOpportunity, error) {
	var out []domain.ArbitrageOpportunity
	for _, r := range s.inserted {
		out = append(out, r.Opportunities...)
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *fakeStore) ListRecentScans(_ context.Context, limit int) ([]domain.ScanReport, error) {
	if len(s.inserted) > limit {
		return s.inserted[:limit], nil
	}
	return s.inserted, nil
}

type fakeArchive struct {
	reports map[string]domain.ScanReport
}

func (a *fakeArchive) ArchiveScan(_ context.Context, r domain.ScanReport) (string, error) {
	a.reports[r.ID] = r
	return "scans/" + r.ID + ".json", nil
}

func (a *fakeArchive) LoadScan(_ context.Context, id string) (domain.ScanReport, error) {
	r, ok := a.reports[id]
	if !ok {
		return domain.ScanReport{}, domain.ErrNotFound
	}
	return r, nil
}

type fakeAlerter struct {
	events []string
	titles []string
}

func (a *fakeAlerter) Notify(_ context.Context, event, title, _ string) error {
	a.events = append(a.events, event)
	a.titles = append(a.titles, title)
	return nil
}

type fakeLocks struct {
	held     bool
	released int
}

func (l *fakeLocks) Acquire(context.Context, string, time.Duration) (func(), error) {
	if l.held {
		return nil, domain.ErrLockHeld
	}
	return func() { l.released++ }, nil
}
