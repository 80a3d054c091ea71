// Package csvfile persists the ledger as a flat CSV file.
//
// The file is rewritten in full on every save. A missing file is not an
// error: it is recreated with only the header row.
package csvfile

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"fintrack/internal/core"
	"fintrack/internal/sheets"
)

type Store struct {
	mu   sync.Mutex
	path string
}

// Open returns a store backed by path, creating a header-only file (and any
// missing parent directories) when the file does not exist yet.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("csv path is required")
	}
	s := &Store{path: path}
	if err := s.ensureExists(); err != nil {
		return nil, err
	}
	return s, nil
}

// Path returns the file the store writes to.
func (s *Store) Path() string { return s.path }

// Load reads the whole file.
func (s *Store) Load(ctx context.Context) (core.Ledger, error) {
	if err := ctx.Err(); err != nil {
		return core.Ledger{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureExists(); err != nil {
		return core.Ledger{}, err
	}
	f, err := os.Open(s.path)
	if err != nil {
		return core.Ledger{}, fmt.Errorf("open ledger file: %w", err)
	}
	defer f.Close()

	l, err := Decode(f)
	if err != nil {
		return core.Ledger{}, fmt.Errorf("read %s: %w", s.path, err)
	}
	return l, nil
}

// Save rewrites the file with the full snapshot. The data is written to a
// temporary file in the same directory and renamed over the target.
func (s *Store) Save(ctx context.Context, l core.Ledger) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeAll(l)
}

func (s *Store) ensureExists() error {
	_, err := os.Stat(s.path)
	if err == nil {
		return nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("stat ledger file: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create ledger directory: %w", err)
	}
	if err := s.writeAll(core.Ledger{}); err != nil {
		return err
	}
	slog.Info("Ledger file not found, created empty ledger", "path", s.path)
	return nil
}

func (s *Store) writeAll(l core.Ledger) error {
	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if err := Encode(tmp, l); err != nil {
		tmp.Close()
		return fmt.Errorf("write ledger: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync ledger: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close ledger: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace ledger file: %w", err)
	}
	return nil
}

// Encode writes the ledger as CSV with the canonical header.
func Encode(w io.Writer, l core.Ledger) error {
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(sheets.EncodeLedger(l)); err != nil {
		return err
	}
	return cw.Error()
}

// Decode reads a CSV ledger in any of the supported header layouts. A row
// that fails to decode is reported by the file line it starts on.
func Decode(r io.Reader) (core.Ledger, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	var (
		rows  [][]string
		lines []int
	)
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return core.Ledger{}, err
		}
		line, _ := cr.FieldPos(0)
		rows = append(rows, rec)
		lines = append(lines, line)
	}

	l, err := sheets.DecodeRecords(rows)
	var rowErr *sheets.RowError
	if errors.As(err, &rowErr) {
		return core.Ledger{}, fmt.Errorf("line %d: %w", lines[rowErr.Row-1], rowErr.Err)
	}
	return l, err
}
