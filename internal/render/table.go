package render

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/dgnsrekt/intraday-dashboard/internal/dashboard"
	"github.com/dgnsrekt/intraday-dashboard/internal/indicator"
	"github.com/dgnsrekt/intraday-dashboard/internal/options"
)

func newTable(w io.Writer, title string) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	if title != "" {
		t.SetTitle(title)
	}
	return t
}

func price(v float64) string { return fmt.Sprintf("%.2f", v) }

func value(v indicator.Value, format string) string {
	if !v.Valid {
		return "-"
	}
	return fmt.Sprintf(format, v.Float64)
}

// SummaryTable writes the sidebar summary for a snapshot
func SummaryTable(w io.Writer, snap *dashboard.Snapshot, loc *time.Location) {
	if loc == nil {
		loc = time.UTC
	}
	t := newTable(w, snap.Symbol+" Market Summary")
	t.SetColumnConfigs([]table.ColumnConfig{{Number: 2, Align: text.AlignRight}})

	if s := snap.Summary; s != nil {
		t.AppendRows([]table.Row{
			{"Last Updated", s.LastTimestamp.In(loc).Format("2006-01-02 15:04:05")},
			{"Prior Close", price(s.PriorClose)},
			{"Day High", price(s.DayHigh)},
			{"Day Low", price(s.DayLow)},
			{"Pivot", price(s.Pivot)},
			{"Trend", s.Trend.Label()},
			{"Breakout", s.BreakoutText()},
		})
	}
	t.AppendRows([]table.Row{
		{"RSI", value(snap.Frame.LatestRSI(), "%.2f")},
		{"VWAP", value(snap.Frame.LatestVWAP(), "%.2f")},
		{"Slope", value(snap.Frame.LatestSlope(), "%.4f")},
	})
	if snap.Session != nil {
		t.AppendRow(table.Row{"Session", snap.Session.Date})
	}
	if len(snap.Warnings) > 0 {
		msgs := make([]string, len(snap.Warnings))
		for i, warn := range snap.Warnings {
			msgs[i] = warn.Message
		}
		t.SetCaption("%s", strings.Join(msgs, "\n"))
	}
	t.Render()
}

// OptionsTable writes the strike x type matrix with a totals footer
func OptionsTable(w io.Writer, symbol string, m options.Matrix) {
	t := newTable(w, fmt.Sprintf("%s Options %s by Strike", symbol, metricLabel(m.Metric)))
	t.AppendHeader(table.Row{"Strike", "Call", "Put"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight},
		{Number: 2, Align: text.AlignRight},
		{Number: 3, Align: text.AlignRight},
	})

	if m.Empty() {
		t.SetCaption("no options data available")
		t.Render()
		return
	}
	for _, r := range m.Rows {
		t.AppendRow(table.Row{price(r.Strike), count(r.Call), count(r.Put)})
	}
	tot := m.Totals()
	t.AppendFooter(table.Row{"Total", count(tot.Call), count(tot.Put)})
	t.SetCaption("put/call %s", value(tot.PutCall, "%.3f"))
	t.Render()
}

// FrameTable writes the last n rows of the indicator frame
func FrameTable(w io.Writer, frame indicator.Frame, n int, loc *time.Location) {
	if loc == nil {
		loc = time.UTC
	}
	t := newTable(w, "")
	t.AppendHeader(table.Row{"Time", "Open", "High", "Low", "Close", "Volume", "VWAP", "RSI", "Slope"})

	tail := frame.Tail(n)
	for i, b := range tail.Series {
		t.AppendRow(table.Row{
			b.Timestamp.In(loc).Format("01-02 15:04"),
			price(b.Open), price(b.High), price(b.Low), price(b.Close),
			count(b.Volume),
			value(tail.VWAP[i], "%.2f"),
			value(tail.RSI[i], "%.2f"),
			value(tail.Slope[i], "%.4f"),
		})
	}
	t.Render()
}

func count(v float64) string {
	return fmt.Sprintf("%.0f", v)
}

func metricLabel(m options.Metric) string {
	if m == options.OpenInterest {
		return "Open Interest"
	}
	return "Volume"
}
