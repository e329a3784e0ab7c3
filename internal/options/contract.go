package options

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"
)

// Type is the option right
type Type string

const (
	Call Type = "call"
	Put  Type = "put"
)

// SnapshotEntry is one loosely typed contract from an options snapshot.
// Type, OpenInterest and Volume are optional.
type SnapshotEntry struct {
	Symbol       string   `json:"symbol"`
	Strike       float64  `json:"strike"`
	Expiration   string   `json:"expiration"`
	Type         string   `json:"type,omitempty"`
	OpenInterest *float64 `json:"open_interest,omitempty"`
	Volume       *float64 `json:"volume,omitempty"`
}

// Contract is a validated option contract
type Contract struct {
	Symbol       string    `json:"symbol"`
	Type         Type      `json:"type"`
	Strike       float64   `json:"strike"`
	Expiration   time.Time `json:"expiration"`
	OpenInterest float64   `json:"open_interest"`
	Volume       float64   `json:"volume"`
}

// OCC option symbol: optional "O:" prefix, root, YYMMDD, C/P, strike * 1000
var occSymbol = regexp.MustCompile(`^(?:O:)?([A-Z0-9.]{1,6})(\d{6})([CP])(\d{8})$`)

// ParseType parses an explicit contract type field
func ParseType(s string) (Type, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "call", "c":
		return Call, true
	case "put", "p":
		return Put, true
	default:
		return "", false
	}
}

// TypeFromSymbol derives the type from an OCC-format symbol such as
// O:SPY240119C00430000. Symbols that are not OCC formatted yield false.
func TypeFromSymbol(symbol string) (Type, bool) {
	m := occSymbol.FindStringSubmatch(strings.ToUpper(strings.TrimSpace(symbol)))
	if m == nil {
		return "", false
	}
	if m[3] == "C" {
		return Call, true
	}
	return Put, true
}

// Contract validates the entry. The explicit Type field wins; the symbol is
// parsed only when Type is empty.
func (e SnapshotEntry) Contract() (Contract, error) {
	if strings.TrimSpace(e.Symbol) == "" {
		return Contract{}, fmt.Errorf("missing symbol")
	}
	if e.Strike <= 0 || math.IsNaN(e.Strike) || math.IsInf(e.Strike, 0) {
		return Contract{}, fmt.Errorf("invalid strike %v", e.Strike)
	}
	if strings.TrimSpace(e.Expiration) == "" {
		return Contract{}, fmt.Errorf("missing expiration")
	}
	exp, err := time.Parse(time.DateOnly, strings.TrimSpace(e.Expiration))
	if err != nil {
		return Contract{}, fmt.Errorf("invalid expiration %q: %w", e.Expiration, err)
	}

	var typ Type
	var ok bool
	if e.Type != "" {
		typ, ok = ParseType(e.Type)
	} else {
		typ, ok = TypeFromSymbol(e.Symbol)
	}
	if !ok {
		return Contract{}, fmt.Errorf("cannot derive contract type for %q", e.Symbol)
	}

	oi, err := count(e.OpenInterest)
	if err != nil {
		return Contract{}, fmt.Errorf("open interest: %w", err)
	}
	vol, err := count(e.Volume)
	if err != nil {
		return Contract{}, fmt.Errorf("volume: %w", err)
	}

	return Contract{
		Symbol:       e.Symbol,
		Type:         typ,
		Strike:       e.Strike,
		Expiration:   exp,
		OpenInterest: oi,
		Volume:       vol,
	}, nil
}

// missing counts are zero
func count(v *float64) (float64, error) {
	if v == nil {
		return 0, nil
	}
	if math.IsNaN(*v) || math.IsInf(*v, 0) || *v < 0 {
		return 0, fmt.Errorf("invalid count %v", *v)
	}
	return *v, nil
}
