package memory

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"fintrack/internal/core"

	"github.com/shopspring/decimal"
)

func TestMemoryStoreSaveAndLoad(t *testing.T) {
	ctx := context.Background()
	s := New()
	l, err := s.Load(ctx)
	if err != nil || !l.IsEmpty() {
		t.Fatalf("expected empty ledger, got len=%d err=%v", l.Len(), err)
	}

	next, err := l.Append(core.Entry{
		Date:     core.NewDate(2024, 1, 1),
		Kind:     core.Expense,
		Amount:   decimal.NewFromInt(3),
		Category: "Food",
	})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := s.Save(ctx, next); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, _ := s.Load(ctx)
	if !got.Equal(next) {
		t.Fatalf("loaded ledger differs from saved one")
	}
}

func TestNewTaxonomyFromFilesSeedsAndDedupe(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	// No file -> defaults
	cats, _ := NewTaxonomyFromFiles(dir).Categories(ctx)
	if len(cats) != len(DefaultCategories) || cats[0] != "Food" {
		t.Fatalf("expected defaults when file missing, got %v", cats)
	}

	if err := os.WriteFile(filepath.Join(dir, "seed_categories.txt"), []byte("# header\nRent\nGroceries\nRent\n\n"), 0o644); err != nil {
		t.Fatalf("write seed: %v", err)
	}
	cats, _ = NewTaxonomyFromFiles(dir).Categories(ctx)
	if len(cats) != 2 || cats[0] != "Rent" || cats[1] != "Groceries" {
		t.Fatalf("unexpected cats: %v", cats)
	}
}

func TestCategoriesReturnsCopy(t *testing.T) {
	tax := NewTaxonomy([]string{"A", "B"})
	cats, _ := tax.Categories(context.Background())
	cats[0] = "mutated"
	again, _ := tax.Categories(context.Background())
	if again[0] != "A" {
		t.Fatalf("taxonomy leaked its slice: %v", again)
	}
}
