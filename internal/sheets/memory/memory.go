package memory

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"fintrack/internal/core"
)

// DefaultCategories are offered when no seed file is present.
var DefaultCategories = []string{"Food", "Transport", "Entertainment", "Utilities", "Other"}

// Store keeps the ledger for the lifetime of the process only.
type Store struct {
	mu     sync.Mutex
	ledger core.Ledger
}

func New(entries ...core.Entry) *Store {
	return &Store{ledger: core.NewLedger(entries...)}
}

// Load returns the current snapshot.
func (s *Store) Load(_ context.Context) (core.Ledger, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger, nil
}

// Save replaces the snapshot.
func (s *Store) Save(_ context.Context, l core.Ledger) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ledger = l
	return nil
}

// Taxonomy is a fixed list of category suggestions.
type Taxonomy struct {
	cats []string
}

func NewTaxonomy(cats []string) *Taxonomy {
	return &Taxonomy{cats: dedupe(cats)}
}

// NewTaxonomyFromFiles seeds categories from base/seed_categories.txt, one per
// line, falling back to DefaultCategories.
func NewTaxonomyFromFiles(base string) *Taxonomy {
	cats := readLines(filepath.Join(base, "seed_categories.txt"))
	if len(cats) == 0 {
		cats = DefaultCategories
	}
	return NewTaxonomy(cats)
}

// Categories returns the suggestions in seed order.
func (t *Taxonomy) Categories(_ context.Context) ([]string, error) {
	return append([]string(nil), t.cats...), nil
}

func readLines(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return dedupe(out)
}

func dedupe(in []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
