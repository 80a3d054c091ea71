package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/sheets"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"
)

const (
	// maxMirrorAttempts stops the sweep from retrying a row forever.
	maxMirrorAttempts = 5

	// mirrorClaimTTL is how long a claim holds before another worker may
	// take the row over, e.g. after a crash mid-append.
	mirrorClaimTTL = 5 * time.Minute

	busyTimeoutMs = "5000"
)

var (
	// ErrLedgerDiverged is returned by Save when the snapshot is shorter than
	// the stored log, which would require deleting rows.
	ErrLedgerDiverged = errors.New("ledger snapshot is behind the stored log")

	// ErrMirrorTaken is returned by ClaimMirror for a row that is already
	// mirrored or currently claimed by someone else.
	ErrMirrorTaken = errors.New("entry is already mirrored or claimed")
)

var _ sheets.LedgerStore = (*SQLiteRepository)(nil)

// SQLiteRepository stores the ledger as an append-only table. Rows are never
// updated except for mirror bookkeeping.
type SQLiteRepository struct {
	db *sql.DB
}

// PendingEntry is a stored entry not yet copied to the mirror.
type PendingEntry struct {
	Seq   int64
	Entry core.Entry
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	// A waiting writer retries for the busy timeout instead of failing with
	// SQLITE_BUSY when the worker and the server share the file.
	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout("+busyTimeoutMs+")")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping checks the database connection.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Load reads all entries in insertion order.
func (r *SQLiteRepository) Load(ctx context.Context) (core.Ledger, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT seq, entry_date, kind, amount, category, description FROM entries ORDER BY seq`)
	if err != nil {
		return core.Ledger{}, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	var entries []core.Entry
	for rows.Next() {
		p, err := scanEntry(rows)
		if err != nil {
			return core.Ledger{}, err
		}
		entries = append(entries, p.Entry)
	}
	if err := rows.Err(); err != nil {
		return core.Ledger{}, fmt.Errorf("iterate entries: %w", err)
	}
	return core.NewLedger(entries...), nil
}

// Save appends the entries of l that are not stored yet. Since the ledger
// only grows, the stored rows are always a prefix of any later snapshot.
func (r *SQLiteRepository) Save(ctx context.Context, l core.Ledger) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var stored int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM entries`).Scan(&stored); err != nil {
		return fmt.Errorf("count entries: %w", err)
	}
	if l.Len() < stored {
		return fmt.Errorf("%w: snapshot has %d entries, store has %d", ErrLedgerDiverged, l.Len(), stored)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO entries (entry_date, kind, amount, category, description) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	added := l.Since(stored)
	for _, e := range added {
		if _, err := stmt.ExecContext(ctx, e.Date.String(), e.Kind.String(), e.Amount.String(), e.Category, e.Description); err != nil {
			return fmt.Errorf("insert entry: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit entries: %w", err)
	}
	if len(added) > 0 {
		slog.DebugContext(ctx, "Entries saved to SQLite", "added", len(added), "total", l.Len())
	}
	return nil
}

// Count returns the number of stored entries.
func (r *SQLiteRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM entries`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count entries: %w", err)
	}
	return n, nil
}

// PendingMirror returns up to limit entries not yet mirrored, oldest first.
func (r *SQLiteRepository) PendingMirror(ctx context.Context, limit int) ([]PendingEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT seq, entry_date, kind, amount, category, description FROM entries
		 WHERE mirrored_at IS NULL AND mirror_attempts < ?
		   AND (mirror_claimed_at IS NULL OR mirror_claimed_at < ?)
		 ORDER BY seq LIMIT ?`, maxMirrorAttempts, claimCutoff(), limit)
	if err != nil {
		return nil, fmt.Errorf("query pending entries: %w", err)
	}
	defer rows.Close()

	var out []PendingEntry
	for rows.Next() {
		p, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ClaimMirror reserves the row with seq for one mirror attempt. It returns
// ErrMirrorTaken when the row is mirrored or held by a live claim, and an
// error wrapping sql.ErrNoRows for an unknown seq. The claim is a single
// UPDATE, so concurrent callers cannot both win it.
func (r *SQLiteRepository) ClaimMirror(ctx context.Context, seq int64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE entries SET mirror_claimed_at = ?
		 WHERE seq = ? AND mirrored_at IS NULL
		   AND (mirror_claimed_at IS NULL OR mirror_claimed_at < ?)`,
		time.Now().Unix(), seq, claimCutoff())
	if err != nil {
		return fmt.Errorf("claim entry %d: %w", seq, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("claim entry %d: %w", seq, err)
	}
	if n == 1 {
		return nil
	}

	var one int
	if err := r.db.QueryRowContext(ctx, `SELECT 1 FROM entries WHERE seq = ?`, seq).Scan(&one); err != nil {
		return fmt.Errorf("claim entry %d: %w", seq, err)
	}
	return ErrMirrorTaken
}

// MarkMirrored records that the entry with seq was copied to the mirror.
func (r *SQLiteRepository) MarkMirrored(ctx context.Context, seq int64, ref string) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE entries SET mirrored_at = CURRENT_TIMESTAMP, mirror_ref = ?, mirror_claimed_at = NULL
		 WHERE seq = ?`, ref, seq); err != nil {
		return fmt.Errorf("mark entry mirrored: %w", err)
	}
	slog.InfoContext(ctx, "Entry marked as mirrored", "seq", seq, "ref", ref)
	return nil
}

// MarkMirrorError counts a failed mirror attempt for seq and releases its
// claim so the sweep can retry it.
func (r *SQLiteRepository) MarkMirrorError(ctx context.Context, seq int64) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE entries SET mirror_attempts = mirror_attempts + 1, mirror_claimed_at = NULL
		 WHERE seq = ?`, seq); err != nil {
		return fmt.Errorf("mark entry mirror error: %w", err)
	}
	return nil
}

func claimCutoff() int64 {
	return time.Now().Add(-mirrorClaimTTL).Unix()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner) (PendingEntry, error) {
	var seq int64
	var date, kind, amount, category, descr string
	if err := s.Scan(&seq, &date, &kind, &amount, &category, &descr); err != nil {
		return PendingEntry{}, fmt.Errorf("scan entry: %w", err)
	}
	d, err := core.ParseDate(date)
	if err != nil {
		return PendingEntry{}, fmt.Errorf("entry %d: %w", seq, err)
	}
	k, err := core.ParseKind(kind)
	if err != nil {
		return PendingEntry{}, fmt.Errorf("entry %d: %w", seq, err)
	}
	a, err := decimal.NewFromString(amount)
	if err != nil {
		return PendingEntry{}, fmt.Errorf("entry %d: amount %q: %w", seq, amount, err)
	}
	return PendingEntry{
		Seq:   seq,
		Entry: core.Entry{Date: d, Kind: k, Amount: a, Category: category, Description: descr},
	}, nil
}
