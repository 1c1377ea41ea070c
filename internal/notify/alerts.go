package notify

import (
	"fmt"
	"strings"

	"github.com/alanyoungcy/polyanalytics/internal/domain"
)

// Event types understood by the notification filter.
const (
	EventArbDetected   = domain.EventArb
	EventScanCompleted = domain.EventScanDone
)

// maxAlertRows caps how many opportunities one scan alert lists.
const maxAlertRows = 5

// ScanAlert renders the opportunities of a finished scan. ok is false when
// there is nothing to report.
func ScanAlert(report domain.ScanReport) (title, message string, ok bool) {
	if len(report.Opportunities) == 0 {
		return "", "", false
	}

	title = fmt.Sprintf("%d arbitrage opportunit%s", len(report.Opportunities), plural(len(report.Opportunities)))

	var b strings.Builder
	for i, o := range report.Opportunities {
		if i == maxAlertRows {
			fmt.Fprintf(&b, "... and %d more\n", len(report.Opportunities)-maxAlertRows)
			break
		}
		name := o.Question
		if name == "" {
			name = o.MarketID
		}
		fmt.Fprintf(&b, "%s: yes %.3f + no %.3f = %.4f (edge %.0f bps)\n",
			name, o.BuyYesAt, o.BuyNoAt, o.TotalCost, o.EdgeBps)
	}
	fmt.Fprintf(&b, "scan %s: %d/%d markets, %d failed", report.ID, report.Scanned, report.Requested, report.Failed)
	if report.Partial {
		b.WriteString(" (partial)")
	}
	return title, b.String(), true
}

func plural(n int) string {
	if n == 1 {
		return "y"
	}
	return "ies"
}
