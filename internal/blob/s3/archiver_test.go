package s3blob

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/alanyoungcy/polyanalytics/internal/domain"
)

type memBlobs struct {
	objects    map[string][]byte
	types      map[string]string
	multiparts int
}

func newMemBlobs() *memBlobs {
	return &memBlobs{objects: map[string][]byte{}, types: map[string]string{}}
}

func (m *memBlobs) Put(_ context.Context, path string, data io.Reader, contentType string) error {
	b, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	m.objects[path] = b
	m.types[path] = contentType
	return nil
}

func (m *memBlobs) PutMultipart(ctx context.Context, path string, data io.Reader, _ int64) error {
	m.multiparts++
	return m.Put(ctx, path, data, "application/json")
}

func (m *memBlobs) Get(_ context.Context, path string) (io.ReadCloser, error) {
	b, ok := m.objects[path]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

func TestScanArchiverRoundTrip(t *testing.T) {
	blobs := newMemBlobs()
	a := NewScanArchiver(blobs, blobs, "/history/")

	report := domain.ScanReport{
		ID:        "scan-1",
		StartedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Requested: 2,
		Scanned:   2,
		Markets: []domain.MarketScan{
			{MarketID: "m1", BestAskA: 0.48, BestAskB: 0.50, TotalCost: 0.98, SpreadA: 0.01},
		},
		Opportunities: []domain.ArbitrageOpportunity{
			{ID: "o1", MarketID: "m1", TotalCost: 0.98, Edge: 0.02},
		},
	}

	path, err := a.ArchiveScan(context.Background(), report)
	if err != nil {
		t.Fatalf("ArchiveScan: %v", err)
	}
	if path != "history/scan-1.json" {
		t.Errorf("path = %q", path)
	}
	if blobs.types[path] != "application/json" {
		t.Errorf("content type = %q", blobs.types[path])
	}

	got, err := a.LoadScan(context.Background(), "scan-1")
	if err != nil {
		t.Fatalf("LoadScan: %v", err)
	}
	if got.ID != report.ID || len(got.Markets) != 1 || len(got.Opportunities) != 1 {
		t.Errorf("LoadScan = %+v", got)
	}
	if !got.StartedAt.Equal(report.StartedAt) {
		t.Errorf("StartedAt = %v", got.StartedAt)
	}
}

func TestScanArchiverMissing(t *testing.T) {
	blobs := newMemBlobs()
	a := NewScanArchiver(blobs, blobs, "")

	if _, err := a.LoadScan(context.Background(), "nope"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
	if _, err := a.ArchiveScan(context.Background(), domain.ScanReport{}); !errors.Is(err, domain.ErrMissingIdentifier) {
		t.Errorf("err = %v, want ErrMissingIdentifier", err)
	}
	if got := a.ScanPath("x"); got != "scans/x.json" {
		t.Errorf("ScanPath = %q", got)
	}
}

func TestNormaliseEndpoint(t *testing.T) {
	tests := []struct {
		in     string
		useSSL bool
		want   string
	}{
		{"https://s3.example.com", false, "https://s3.example.com"},
		{"minio:9000", false, "http://minio:9000"},
		{"r2.example.com", true, "https://r2.example.com"},
	}
	for _, tt := range tests {
		if got := normaliseEndpoint(tt.in, tt.useSSL); got != tt.want {
			t.Errorf("normaliseEndpoint(%q, %v) = %q, want %q", tt.in, tt.useSSL, got, tt.want)
		}
	}
}
