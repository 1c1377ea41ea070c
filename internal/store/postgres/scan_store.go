package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/polyanalytics/internal/domain"
)

// ScanStore implements domain.ScanStore using PostgreSQL.
type ScanStore struct {
	pool *pgxpool.Pool
}

// NewScanStore creates a new ScanStore backed by the given connection pool.
func NewScanStore(pool *pgxpool.Pool) *ScanStore {
	return &ScanStore{pool: pool}
}

const opportunitySelectCols = `id, scan_id, market_id, question, yes_token_id, no_token_id,
	buy_yes_at, buy_no_at, total_cost, edge, edge_bps, detected_at`

// InsertScan stores the scan summary and its opportunities in one
// transaction. Per-market rows are not persisted.
func (s *ScanStore) InsertScan(ctx context.Context, report domain.ScanReport) error {
	candidates, err := json.Marshal(nonNilCandidates(report.SpreadCandidates))
	if err != nil {
		return fmt.Errorf("postgres: encode spread candidates %s: %w", report.ID, err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		INSERT INTO scan_runs (
			id, started_at, completed_at, requested, scanned, failed, partial,
			arb_threshold, spread_threshold, opportunity_count, spread_candidates
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		report.ID, report.StartedAt, report.CompletedAt,
		report.Requested, report.Scanned, report.Failed, report.Partial,
		report.ArbThreshold, report.SpreadThreshold, len(report.Opportunities), candidates,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert scan_run %s: %w", report.ID, err)
	}

	if len(report.Opportunities) > 0 {
		batch := &pgx.Batch{}
		const query = `
			INSERT INTO arb_opportunities (
				id, scan_id, market_id, question, yes_token_id, no_token_id,
				buy_yes_at, buy_no_at, total_cost, edge, edge_bps, detected_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
			ON CONFLICT (id) DO NOTHING`
		for _, o := range report.Opportunities {
			batch.Queue(query,
				o.ID, report.ID, o.MarketID, o.Question, o.YesTokenID, o.NoTokenID,
				o.BuyYesAt, o.BuyNoAt, o.TotalCost, o.Edge, o.EdgeBps, o.DetectedAt,
			)
		}

		br := tx.SendBatch(ctx, batch)
		for i := range report.Opportunities {
			if _, err := br.Exec(); err != nil {
				_ = br.Close()
				return fmt.Errorf("postgres: insert opportunity batch item %d: %w", i, err)
			}
		}
		if err := br.Close(); err != nil {
			return fmt.Errorf("postgres: close opportunity batch: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit scan %s: %w", report.ID, err)
	}
	return nil
}

// ListRecentOpportunities returns opportunities ordered by detection time,
// newest first.
func (s *ScanStore) ListRecentOpportunities(ctx context.Context, limit int) ([]domain.ArbitrageOpportunity, error) {
	query := `SELECT ` + opportunitySelectCols + ` FROM arb_opportunities ORDER BY detected_at DESC, edge DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT $1"
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list recent opportunities: %w", err)
	}
	defer rows.Close()

	return collectOpportunities(rows)
}

func collectOpportunities(rows pgx.Rows) ([]domain.ArbitrageOpportunity, error) {
	opps := []domain.ArbitrageOpportunity{}
	for rows.Next() {
		var o domain.ArbitrageOpportunity
		if err := rows.Scan(
			&o.ID, &o.ScanID, &o.MarketID, &o.Question, &o.YesTokenID, &o.NoTokenID,
			&o.BuyYesAt, &o.BuyNoAt, &o.TotalCost, &o.Edge, &o.EdgeBps, &o.DetectedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan opportunity: %w", err)
		}
		opps = append(opps, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: opportunity rows: %w", err)
	}
	return opps, nil
}

// ListRecentScans returns scan summaries, newest first, with their
// opportunities and spread candidates. Per-market rows are not restored.
func (s *ScanStore) ListRecentScans(ctx context.Context, limit int) ([]domain.ScanReport, error) {
	query := `
		SELECT id, started_at, completed_at, requested, scanned, failed, partial,
			arb_threshold, spread_threshold, spread_candidates
		FROM scan_runs ORDER BY started_at DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT $1"
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list recent scans: %w", err)
	}
	defer rows.Close()

	scans := []domain.ScanReport{}
	for rows.Next() {
		var r domain.ScanReport
		var candidates []byte
		if err := rows.Scan(
			&r.ID, &r.StartedAt, &r.CompletedAt, &r.Requested, &r.Scanned, &r.Failed, &r.Partial,
			&r.ArbThreshold, &r.SpreadThreshold, &candidates,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan scan_run: %w", err)
		}
		if len(candidates) > 0 {
			if err := json.Unmarshal(candidates, &r.SpreadCandidates); err != nil {
				return nil, fmt.Errorf("postgres: decode spread candidates %s: %w", r.ID, err)
			}
		}
		scans = append(scans, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list recent scans rows: %w", err)
	}
	rows.Close()

	if len(scans) == 0 {
		return scans, nil
	}
	ids := make([]string, len(scans))
	index := make(map[string]int, len(scans))
	for i, r := range scans {
		ids[i] = r.ID
		index[r.ID] = i
	}

	oppRows, err := s.pool.Query(ctx,
		`SELECT `+opportunitySelectCols+` FROM arb_opportunities
		WHERE scan_id = ANY($1) ORDER BY edge DESC`, ids)
	if err != nil {
		return nil, fmt.Errorf("postgres: list scan opportunities: %w", err)
	}
	defer oppRows.Close()
	opps, err := collectOpportunities(oppRows)
	if err != nil {
		return nil, err
	}
	for _, o := range opps {
		i := index[o.ScanID]
		scans[i].Opportunities = append(scans[i].Opportunities, o)
	}
	return scans, nil
}

func nonNilCandidates(c []domain.SpreadCandidate) []domain.SpreadCandidate {
	if c == nil {
		return []domain.SpreadCandidate{}
	}
	return c
}

var _ domain.ScanStore = (*ScanStore)(nil)
