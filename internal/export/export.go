package export

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// Manager writes run artifacts into a staging tree and moves them into the
// final directory on commit, so readers never see a half-written run.
type Manager struct {
	baseDir     string
	stagingRoot string
}

func NewManager(baseDir string) *Manager {
	return &Manager{
		baseDir:     baseDir,
		stagingRoot: filepath.Join(baseDir, ".staging"),
	}
}

func (m *Manager) FinalDir() string {
	return m.baseDir
}

func (m *Manager) StagingDir(run string) string {
	return filepath.Join(m.stagingRoot, run)
}

// Stage writes one artifact of a run. relPath is relative to the run
// directory; a ".zst" suffix compresses the content with zstd.
func (m *Manager) Stage(run, relPath string, write func(io.Writer) error) (int64, error) {
	return WriteFile(filepath.Join(m.StagingDir(run), relPath), write)
}

// StageJSON stages v as indented JSON
func (m *Manager) StageJSON(run, relPath string, v any) (int64, error) {
	return m.Stage(run, relPath, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	})
}

// Commit moves every staged file of run under {baseDir}/{run}, replacing
// files of the same name.
func (m *Manager) Commit(run string) (int, error) {
	stagingDir := m.StagingDir(run)
	finalDir := filepath.Join(m.baseDir, run)
	if _, err := os.Stat(stagingDir); os.IsNotExist(err) {
		return 0, nil
	}

	moved := 0
	err := filepath.Walk(stagingDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}

		relPath, err := filepath.Rel(stagingDir, path)
		if err != nil {
			return err
		}

		destPath := filepath.Join(finalDir, relPath)
		if err := os.MkdirAll(filepath.Dir(destPath), 0750); err != nil {
			return err
		}
		if err := os.Rename(path, destPath); err != nil {
			return err
		}
		moved++
		return nil
	})
	if err != nil {
		return moved, fmt.Errorf("committing %s: %w", run, err)
	}
	return moved, m.Cleanup(run)
}

func (m *Manager) Cleanup(run string) error {
	return os.RemoveAll(m.StagingDir(run))
}

// WriteFile writes destPath atomically through a temp file and rename. The
// returned size is the number of uncompressed bytes written.
func WriteFile(destPath string, write func(io.Writer) error) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(destPath), 0750); err != nil {
		return 0, fmt.Errorf("creating directories: %w", err)
	}

	tmpPath := destPath + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return 0, fmt.Errorf("creating temp file: %w", err)
	}

	size, err := writeTo(f, strings.HasSuffix(destPath, ".zst"), write)
	if closeErr := f.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(tmpPath)
		return 0, fmt.Errorf("writing %s: %w", filepath.Base(destPath), err)
	}

	// Atomic rename
	if err := os.Rename(tmpPath, destPath); err != nil {
		_ = os.Remove(tmpPath)
		return 0, fmt.Errorf("renaming temp file: %w", err)
	}
	return size, nil
}

func writeTo(f *os.File, compress bool, write func(io.Writer) error) (int64, error) {
	if !compress {
		cw := &countingWriter{w: f}
		err := write(cw)
		return cw.n, err
	}

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return 0, err
	}
	cw := &countingWriter{w: enc}
	if err := write(cw); err != nil {
		_ = enc.Close()
		return cw.n, err
	}
	return cw.n, enc.Close()
}

// Open returns a reader for an artifact, decompressing ".zst" files
func Open(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	if !strings.HasSuffix(path, ".zst") {
		return f, nil
	}
	dec, err := zstd.NewReader(f)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return &zstdReadCloser{dec: dec, f: f}, nil
}

type zstdReadCloser struct {
	dec *zstd.Decoder
	f   *os.File
}

func (z *zstdReadCloser) Read(p []byte) (int, error) { return z.dec.Read(p) }

func (z *zstdReadCloser) Close() error {
	z.dec.Close()
	return z.f.Close()
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
