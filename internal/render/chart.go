package render

import (
	"fmt"
	"io"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"

	"github.com/dgnsrekt/intraday-dashboard/internal/dashboard"
	"github.com/dgnsrekt/intraday-dashboard/internal/indicator"
)

// ChartOptions controls chart appearance
type ChartOptions struct {
	Theme    string
	Width    string
	Height   string
	Location *time.Location
}

func (o ChartOptions) withDefaults() ChartOptions {
	if o.Theme == "" {
		o.Theme = types.ThemeWesteros
	}
	if o.Width == "" {
		o.Width = "1200px"
	}
	if o.Height == "" {
		o.Height = "600px"
	}
	if o.Location == nil {
		o.Location = time.UTC
	}
	return o
}

// Chart builds the price chart: close and VWAP on the price axis, RSI on a
// secondary 0-100 axis. Pivot and breakout reference levels are drawn as
// mark lines when a summary exists.
func Chart(snap *dashboard.Snapshot, o ChartOptions) *charts.Line {
	o = o.withDefaults()
	frame := snap.Frame

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: snap.Symbol + " intraday",
			Theme:     o.Theme,
			Width:     o.Width,
			Height:    o.Height,
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    fmt.Sprintf("%s Price with VWAP & RSI", snap.Symbol),
			Subtitle: subtitle(snap, o.Location),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Top: "bottom"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Price", Scale: opts.Bool(true)}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "inside", Start: 0, End: 100}),
	)
	line.ExtendYAxis(opts.YAxis{Name: "RSI", Min: 0, Max: 100, Position: "right"})

	labels := make([]string, frame.Len())
	closes := make([]opts.LineData, frame.Len())
	for i, b := range frame.Series {
		labels[i] = b.Timestamp.In(o.Location).Format("01-02 15:04")
		closes[i] = opts.LineData{Value: b.Close}
	}

	closeOpts := []charts.SeriesOpts{
		charts.WithLineStyleOpts(opts.LineStyle{Width: 2}),
		charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}),
	}
	if s := snap.Summary; s != nil {
		closeOpts = append(closeOpts,
			charts.WithMarkLineNameYAxisItemOpts(
				opts.MarkLineNameYAxisItem{Name: "Pivot", YAxis: s.Pivot},
				opts.MarkLineNameYAxisItem{Name: "Breakout ref", YAxis: s.BreakoutLevel},
			),
		)
	}

	line.SetXAxis(labels).
		AddSeries("Close", closes, closeOpts...).
		AddSeries(vwapName(frame.Params.VWAPMode), lineData(frame.VWAP),
			charts.WithLineStyleOpts(opts.LineStyle{Color: "orange", Type: "dashed"}),
			charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}),
		).
		AddSeries("RSI", lineData(frame.RSI),
			charts.WithLineStyleOpts(opts.LineStyle{Color: "purple", Type: "dotted"}),
			charts.WithLineChartOpts(opts.LineChart{YAxisIndex: 1, ShowSymbol: opts.Bool(false)}),
		)

	return line
}

// WriteChart renders the chart page as HTML to w
func WriteChart(w io.Writer, snap *dashboard.Snapshot, o ChartOptions) error {
	return Chart(snap, o).Render(w)
}

// lineData maps undefined values to "-", which echarts draws as a gap
func lineData(values []indicator.Value) []opts.LineData {
	out := make([]opts.LineData, len(values))
	for i, v := range values {
		if !v.Valid {
			out[i] = opts.LineData{Value: "-"}
			continue
		}
		out[i] = opts.LineData{Value: v.Float64}
	}
	return out
}

func vwapName(mode indicator.VWAPMode) string {
	if mode == indicator.VWAPCumulative {
		return "VWAP"
	}
	return "VWAP (typical price)"
}

func subtitle(snap *dashboard.Snapshot, loc *time.Location) string {
	if snap.Summary == nil {
		return "signals unavailable"
	}
	s := snap.Summary
	return fmt.Sprintf("Last %s | %s | %s",
		s.LastTimestamp.In(loc).Format("2006-01-02 15:04"), s.Trend.Label(), s.BreakoutText())
}
