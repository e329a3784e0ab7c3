package data

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/dgnsrekt/intraday-dashboard/internal/market"
	"github.com/dgnsrekt/intraday-dashboard/internal/options"
)

// FileSource serves bars and options snapshots saved on disk, laid out as
// {dir}/{SYMBOL}/bars.jsonl and {dir}/{SYMBOL}/options.jsonl. A .json file
// holding an array is accepted in place of either. Files are re-read on every
// fetch so replacing them takes effect immediately.
type FileSource struct {
	dir    string
	logger *zap.Logger
}

func NewFileSource(dir string, logger *zap.Logger) (*FileSource, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("data directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("data directory %s is not a directory", dir)
	}
	return &FileSource{dir: dir, logger: logger}, nil
}

func (f *FileSource) FetchBars(ctx context.Context, symbol string) ([]market.RawBar, error) {
	path, err := f.find(symbol, barsFile)
	if err != nil {
		return nil, err
	}
	bars, err := readRecords[market.RawBar](path)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	f.logger.Debug("loaded bars", zap.String("path", path), zap.Int("count", len(bars)))
	return bars, nil
}

func (f *FileSource) FetchOptionsSnapshot(ctx context.Context, underlying string) ([]options.SnapshotEntry, error) {
	path, err := f.find(underlying, optionsFile)
	if err != nil {
		return nil, err
	}
	entries, err := readRecords[options.SnapshotEntry](path)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	f.logger.Debug("loaded options snapshot", zap.String("path", path), zap.Int("count", len(entries)))
	return entries, nil
}

// Symbols lists the symbol directories present
func (f *FileSource) Symbols() ([]string, error) {
	dirents, err := os.ReadDir(f.dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, d := range dirents {
		if d.IsDir() {
			out = append(out, d.Name())
		}
	}
	return out, nil
}

func (f *FileSource) find(symbol, name string) (string, error) {
	base := DataKey(f.dir, symbol)
	for _, ext := range []string{".jsonl", ".json"} {
		path := filepath.Join(base, name+ext)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		} else if !errors.Is(err, fs.ErrNotExist) {
			return "", err
		}
	}
	return "", fmt.Errorf("%s/%s: %w", symbol, name, ErrNotFound)
}

// readRecords decodes a JSON array (.json) or one object per line (.jsonl).
// Numbers are kept as json.Number.
func readRecords[T any](path string) ([]T, error) {
	if filepath.Ext(path) == ".json" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		var out []T
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()
		if err := dec.Decode(&out); err != nil {
			return nil, err
		}
		return out, nil
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var out []T
	scanner := bufio.NewScanner(file)

	// Increase buffer size for large lines
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var rec T
		dec := json.NewDecoder(bytes.NewReader(line))
		dec.UseNumber()
		if err := dec.Decode(&rec); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNum, err)
		}
		out = append(out, rec)
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
