package options

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/dgnsrekt/intraday-dashboard/internal/indicator"
)

// Metric selects which contract count is summed into the matrix
type Metric string

const (
	Volume       Metric = "volume"
	OpenInterest Metric = "open_interest"
)

// ParseMetric parses a metric name
func ParseMetric(s string) (Metric, error) {
	switch Metric(s) {
	case Volume, "":
		return Volume, nil
	case OpenInterest, "oi", "open-interest":
		return OpenInterest, nil
	default:
		return "", fmt.Errorf("unknown options metric %q", s)
	}
}

// Row is one strike of the matrix
type Row struct {
	Strike float64 `json:"strike"`
	Call   float64 `json:"call"`
	Put    float64 `json:"put"`
}

// Matrix holds summed counts per strike, ascending by strike
type Matrix struct {
	Metric Metric `json:"metric"`
	Rows   []Row  `json:"rows"`
}

// Totals summarizes a matrix
type Totals struct {
	Call    float64         `json:"call"`
	Put     float64         `json:"put"`
	PutCall indicator.Value `json:"put_call_ratio"`
	Strikes int             `json:"strikes"`
}

// Contracts validates entries, dropping malformed ones. It returns the valid
// contracts and the number dropped.
func Contracts(entries []SnapshotEntry) ([]Contract, int) {
	out := make([]Contract, 0, len(entries))
	dropped := 0
	for _, e := range entries {
		c, err := e.Contract()
		if err != nil {
			dropped++
			continue
		}
		out = append(out, c)
	}
	return out, dropped
}

// Aggregate sums contract volume per (strike, type)
func Aggregate(entries []SnapshotEntry) Matrix {
	return AggregateBy(entries, Volume)
}

// AggregateBy sums the chosen metric per (strike, type). Malformed entries are
// skipped; an empty snapshot yields an empty matrix.
func AggregateBy(entries []SnapshotEntry, metric Metric) Matrix {
	contracts, _ := Contracts(entries)
	return AggregateContracts(contracts, metric)
}

// AggregateContracts is AggregateBy for already validated contracts
func AggregateContracts(contracts []Contract, metric Metric) Matrix {
	if metric == "" {
		metric = Volume
	}

	// strikes are keyed at 4 decimal places so float noise from different
	// encodings lands in one row
	rows := make(map[string]*Row)
	for _, c := range contracts {
		strike := decimal.NewFromFloat(c.Strike).Round(4)
		key := strike.String()
		row, ok := rows[key]
		if !ok {
			row = &Row{Strike: strike.InexactFloat64()}
			rows[key] = row
		}

		n := c.Volume
		if metric == OpenInterest {
			n = c.OpenInterest
		}
		switch c.Type {
		case Call:
			row.Call += n
		case Put:
			row.Put += n
		}
	}

	m := Matrix{Metric: metric, Rows: make([]Row, 0, len(rows))}
	for _, r := range rows {
		m.Rows = append(m.Rows, *r)
	}
	sort.Slice(m.Rows, func(i, j int) bool { return m.Rows[i].Strike < m.Rows[j].Strike })
	return m
}

// Empty reports whether the matrix has no rows
func (m Matrix) Empty() bool { return len(m.Rows) == 0 }

// Row returns the row for a strike
func (m Matrix) Row(strike float64) (Row, bool) {
	i := sort.Search(len(m.Rows), func(i int) bool { return m.Rows[i].Strike >= strike })
	if i < len(m.Rows) && m.Rows[i].Strike == strike {
		return m.Rows[i], true
	}
	return Row{}, false
}

// Totals sums both columns. The put/call ratio is undefined when there is
// no call activity.
func (m Matrix) Totals() Totals {
	t := Totals{Strikes: len(m.Rows)}
	for _, r := range m.Rows {
		t.Call += r.Call
		t.Put += r.Put
	}
	if t.Call > 0 {
		t.PutCall = indicator.Defined(t.Put / t.Call)
	}
	return t
}
