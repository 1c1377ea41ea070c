package domain

import "context"

// ScanStore persists scan summaries and the opportunities they found.
type ScanStore interface {
	InsertScan(ctx context.Context, report ScanReport) error
	ListRecentOpportunities(ctx context.Context, limit int) ([]ArbitrageOpportunity, error)
	ListRecentScans(ctx context.Context, limit int) ([]ScanReport, error)
}
