package notify

import (
	"fmt"
	"strings"
	"time"

	"github.com/dgnsrekt/intraday-dashboard/internal/batch"
	"github.com/dgnsrekt/intraday-dashboard/internal/dashboard"
)

// FormatBreakoutMessage creates a breakout alert body.
func FormatBreakoutMessage(snap *dashboard.Snapshot, loc *time.Location) string {
	var sb strings.Builder
	s := snap.Summary
	if loc == nil {
		loc = time.UTC
	}

	sb.WriteString(fmt.Sprintf("%s\n", s.BreakoutText()))
	sb.WriteString(fmt.Sprintf("Trend: %s\n", s.Trend.Label()))
	sb.WriteString(fmt.Sprintf("Pivot: %.2f (H %.2f / L %.2f / PC %.2f)\n", s.Pivot, s.DayHigh, s.DayLow, s.PriorClose))
	if rsi := snap.Frame.LatestRSI(); rsi.Valid {
		sb.WriteString(fmt.Sprintf("RSI: %.2f\n", rsi.Float64))
	}
	if vwap := snap.Frame.LatestVWAP(); vwap.Valid {
		sb.WriteString(fmt.Sprintf("VWAP: %.2f\n", vwap.Float64))
	}
	if last, ok := snap.Frame.Series.Last(); ok {
		sb.WriteString(fmt.Sprintf("Last: %.2f\n", last.Close))
	}
	sb.WriteString(fmt.Sprintf("As of: %s", s.LastTimestamp.In(loc).Format("2006-01-02 15:04")))

	return sb.String()
}

// FormatBatchMessage creates a batch run summary body.
func FormatBatchMessage(result *batch.Result, duration time.Duration) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Total: %d symbols\n", result.Total))
	sb.WriteString(fmt.Sprintf("Success: %d\n", result.Success))
	sb.WriteString(fmt.Sprintf("Not Found: %d\n", result.NotFound))
	sb.WriteString(fmt.Sprintf("Failed: %d\n", result.Failed))
	if len(result.Breakouts) > 0 {
		sb.WriteString(fmt.Sprintf("Breakouts: %s\n", strings.Join(result.Breakouts, ", ")))
	}
	sb.WriteString(fmt.Sprintf("Duration: %s", duration.Round(time.Second)))

	// Include first 3 error messages if available
	if len(result.Errors) > 0 {
		sb.WriteString("\n\nErrors:\n")
		limit := 3
		if len(result.Errors) < limit {
			limit = len(result.Errors)
		}
		for i := 0; i < limit; i++ {
			sb.WriteString(fmt.Sprintf("- %s\n", result.Errors[i]))
		}
		if len(result.Errors) > 3 {
			sb.WriteString(fmt.Sprintf("... and %d more errors", len(result.Errors)-3))
		}
	}

	return sb.String()
}
