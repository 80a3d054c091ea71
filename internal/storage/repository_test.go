package storage

import (
	"context"
	"database/sql"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"fintrack/internal/core"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "db", "fintrack.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func entry(day int, kind core.Kind, amount, category string) core.Entry {
	return core.Entry{
		Date:     core.NewDate(2024, 4, day),
		Kind:     kind,
		Amount:   decimal.RequireFromString(amount),
		Category: category,
	}
}

func TestSaveAppendsOnlyNewEntries(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	l := core.NewLedger(entry(1, core.Income, "1000", "Salary"))
	require.NoError(t, repo.Save(ctx, l))

	l, err := l.Append(entry(2, core.Expense, "12.345678", "Food, drinks"))
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, l))
	// Saving the same snapshot twice must not duplicate rows.
	require.NoError(t, repo.Save(ctx, l))

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	loaded, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.True(t, l.Equal(loaded))
	assert.Equal(t, "12.345678", loaded.At(1).Amount.String())
}

func TestSaveRejectsShorterSnapshot(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	require.NoError(t, repo.Save(ctx, core.NewLedger(
		entry(1, core.Expense, "1", "A"),
		entry(2, core.Expense, "2", "B"),
	)))

	err := repo.Save(ctx, core.NewLedger(entry(1, core.Expense, "1", "A")))
	assert.ErrorIs(t, err, ErrLedgerDiverged)
}

func TestLoadEmpty(t *testing.T) {
	repo := newTestRepo(t)
	l, err := repo.Load(context.Background())
	require.NoError(t, err)
	assert.True(t, l.IsEmpty())
}

func TestMirrorBookkeeping(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	require.NoError(t, repo.Save(ctx, core.NewLedger(
		entry(1, core.Expense, "1", "A"),
		entry(2, core.Expense, "2", "B"),
		entry(3, core.Income, "3", "C"),
	)))

	pending, err := repo.PendingMirror(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 3)
	assert.Equal(t, int64(1), pending[0].Seq)
	assert.Equal(t, "B", pending[1].Entry.Category)

	require.NoError(t, repo.ClaimMirror(ctx, 1))
	require.NoError(t, repo.MarkMirrored(ctx, 1, "Ledger!A2:E2"))
	assert.ErrorIs(t, repo.ClaimMirror(ctx, 1), ErrMirrorTaken)
	assert.ErrorIs(t, repo.ClaimMirror(ctx, 99), sql.ErrNoRows)

	pending, err = repo.PendingMirror(ctx, 1)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, int64(2), pending[0].Seq)

	for i := 0; i < maxMirrorAttempts; i++ {
		require.NoError(t, repo.ClaimMirror(ctx, 2))
		require.NoError(t, repo.MarkMirrorError(ctx, 2))
	}
	pending, err = repo.PendingMirror(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, int64(3), pending[0].Seq)
}

func TestClaimMirrorIsExclusive(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	require.NoError(t, repo.Save(ctx, core.NewLedger(entry(1, core.Expense, "1", "A"))))

	const claimers = 8
	var (
		wg  sync.WaitGroup
		won atomic.Int32
	)
	for i := 0; i < claimers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := repo.ClaimMirror(ctx, 1)
			if err == nil {
				won.Add(1)
				return
			}
			assert.ErrorIs(t, err, ErrMirrorTaken)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), won.Load())

	// A live claim hides the row from the sweep until it is released.
	pending, err := repo.PendingMirror(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)

	require.NoError(t, repo.MarkMirrorError(ctx, 1))
	pending, err = repo.PendingMirror(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, pending, 1)
	assert.NoError(t, repo.ClaimMirror(ctx, 1))
}

func TestExpiredClaimCanBeTakenOver(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	require.NoError(t, repo.Save(ctx, core.NewLedger(entry(1, core.Expense, "1", "A"))))
	require.NoError(t, repo.ClaimMirror(ctx, 1))

	stale := time.Now().Add(-2 * mirrorClaimTTL).Unix()
	_, err := repo.db.ExecContext(ctx, `UPDATE entries SET mirror_claimed_at = ? WHERE seq = 1`, stale)
	require.NoError(t, err)

	assert.NoError(t, repo.ClaimMirror(ctx, 1))
}

func TestReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "fintrack.db")
	repo, err := NewSQLiteRepository(path)
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, core.NewLedger(entry(9, core.Expense, "9.99", "Other"))))
	require.NoError(t, repo.Close())

	repo, err = NewSQLiteRepository(path)
	require.NoError(t, err)
	defer repo.Close()
	l, err := repo.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, l.Len())
	assert.NoError(t, repo.Ping(ctx))
}
