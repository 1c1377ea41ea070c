package domain

import "time"

// Signal bus channels and streams.
const (
	ChannelArb    = "arb"
	ChannelScan   = "scan"
	StreamScans   = "arb_scans"
	EventArb      = "arb_detected"
	EventScanDone = "scan_completed"
)

// ScanEvent is the JSON envelope published for every completed scan.
type ScanEvent struct {
	Event            string    `json:"event"`
	ScanID           string    `json:"scan_id"`
	Scanned          int       `json:"scanned"`
	Failed           int       `json:"failed"`
	Partial          bool      `json:"partial"`
	Opportunities    int       `json:"opportunities"`
	SpreadCandidates int       `json:"spread_candidates"`
	BestEdge         float64   `json:"best_edge,omitempty"`
	Timestamp        time.Time `json:"timestamp"`
	StreamID         string    `json:"stream_id,omitempty"` // set on replay
}

// ArbEvent is published once per detected opportunity.
type ArbEvent struct {
	Event       string               `json:"event"`
	Opportunity ArbitrageOpportunity `json:"opportunity"`
}
