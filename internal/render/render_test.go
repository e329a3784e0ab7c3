package render

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/dgnsrekt/intraday-dashboard/internal/dashboard"
	"github.com/dgnsrekt/intraday-dashboard/internal/indicator"
	"github.com/dgnsrekt/intraday-dashboard/internal/market"
	"github.com/dgnsrekt/intraday-dashboard/internal/options"
	"github.com/dgnsrekt/intraday-dashboard/internal/summary"
)

func testSnapshot(t *testing.T) *dashboard.Snapshot {
	t.Helper()
	base := time.Date(2024, 1, 2, 14, 30, 0, 0, time.UTC)
	s := make(market.Series, 30)
	for i := range s {
		c := 100 + 0.5*float64(i)
		s[i] = market.Bar{Timestamp: base.Add(time.Duration(i) * 5 * time.Minute), Open: c, High: c + 0.1, Low: c - 0.1, Close: c, Volume: 100}
	}
	frame := indicator.Compute(s, indicator.Params{})
	sum, err := summary.Assemble(frame, frame.Series)
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}

	vol := func(v float64) *float64 { return &v }
	m := options.Aggregate([]options.SnapshotEntry{
		{Symbol: "O:SPY240119C00430000", Strike: 430, Expiration: "2024-01-19", Volume: vol(800)},
		{Symbol: "O:SPY240119P00430000", Strike: 430, Expiration: "2024-01-19", Volume: vol(100)},
	})

	return &dashboard.Snapshot{
		Symbol:   "SPY",
		Summary:  &sum,
		Frame:    frame,
		Options:  m,
		Warnings: []dashboard.Warning{{Kind: dashboard.WarnNoPriorSession, Message: "no prior session"}},
	}
}

func TestWriteChart(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteChart(&buf, testSnapshot(t), ChartOptions{}); err != nil {
		t.Fatalf("WriteChart failed: %v", err)
	}
	html := buf.String()
	for _, want := range []string{"SPY Price with VWAP", "RSI", "Pivot", "echarts"} {
		if !strings.Contains(html, want) {
			t.Errorf("chart HTML missing %q", want)
		}
	}
}

func TestLineData_Gaps(t *testing.T) {
	data := lineData([]indicator.Value{indicator.Undefined, indicator.Defined(50)})
	if data[0].Value != "-" {
		t.Errorf("expected gap marker, got %v", data[0].Value)
	}
	if data[1].Value != 50.0 {
		t.Errorf("expected 50, got %v", data[1].Value)
	}
}

func TestSummaryTable(t *testing.T) {
	var buf bytes.Buffer
	SummaryTable(&buf, testSnapshot(t), time.UTC)
	out := buf.String()
	for _, want := range []string{"SPY Market Summary", "Prior Close", "100.00", "Strong Uptrend", "Breakout > ", "no prior session"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary table missing %q:\n%s", want, out)
		}
	}
}

func TestOptionsTable(t *testing.T) {
	var buf bytes.Buffer
	snap := testSnapshot(t)
	OptionsTable(&buf, snap.Symbol, snap.Options)
	out := buf.String()
	for _, want := range []string{"430.00", "800", "100", "put/call 0.125"} {
		if !strings.Contains(out, want) {
			t.Errorf("options table missing %q:\n%s", want, out)
		}
	}

	buf.Reset()
	OptionsTable(&buf, "SPY", options.Matrix{})
	if !strings.Contains(buf.String(), "no options data available") {
		t.Errorf("empty matrix should say so:\n%s", buf.String())
	}
}

func TestFrameTable(t *testing.T) {
	var buf bytes.Buffer
	FrameTable(&buf, testSnapshot(t).Frame, 3, time.UTC)
	out := buf.String()
	if !strings.Contains(out, "01-02 16:55") {
		t.Errorf("expected last bar time in table:\n%s", out)
	}
	if strings.Contains(out, "01-02 14:30") {
		t.Errorf("table should hold only the tail:\n%s", out)
	}
}
