package data

import (
	"errors"
	"path/filepath"
	"strings"
)

var (
	ErrNotFound = errors.New("data not found")
)

const (
	barsFile    = "bars"
	optionsFile = "options"
)

// DataKey is the directory a symbol's files live under
func DataKey(dir, symbol string) string {
	return filepath.Join(dir, strings.ToUpper(symbol))
}
