package worker

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"fintrack/internal/amqp"
	"fintrack/internal/sheets"
	"fintrack/internal/storage"
)

// MirrorQueue is the bookkeeping side of the mirror: which stored entries
// still have to be copied.
type MirrorQueue interface {
	PendingMirror(ctx context.Context, limit int) ([]storage.PendingEntry, error)
	ClaimMirror(ctx context.Context, seq int64) error
	MarkMirrored(ctx context.Context, seq int64, ref string) error
	MarkMirrorError(ctx context.Context, seq int64) error
}

// MirrorRecorder counts mirror outcomes.
type MirrorRecorder interface {
	Mirrored(ok bool)
}

// MirrorWorker copies appended entries to the secondary mirror, either as
// they are announced on the broker or by sweeping the local store.
type MirrorWorker struct {
	mirror    sheets.EntryMirror
	queue     MirrorQueue
	metrics   MirrorRecorder
	batchSize int
}

// NewMirrorWorker creates a worker. queue may be nil when the worker has no
// access to the local store; messages are then mirrored as received.
func NewMirrorWorker(mirror sheets.EntryMirror, queue MirrorQueue, metrics MirrorRecorder, batchSize int) *MirrorWorker {
	if batchSize <= 0 {
		batchSize = 10
	}
	return &MirrorWorker{
		mirror:    mirror,
		queue:     queue,
		metrics:   metrics,
		batchSize: batchSize,
	}
}

// HandleEntryAppended processes a single EntryAppended message from AMQP
func (w *MirrorWorker) HandleEntryAppended(ctx context.Context, msg *amqp.EntryAppendedMessage) error {
	slog.InfoContext(ctx, "Processing entry appended message",
		"id", msg.ID,
		"seq", msg.Seq)

	e, err := msg.Entry()
	if err != nil {
		// A malformed message will never succeed; drop it instead of requeueing.
		slog.ErrorContext(ctx, "Discarding invalid entry message", "id", msg.ID, "error", err)
		return nil
	}

	p := storage.PendingEntry{Seq: msg.Seq, Entry: e}
	if w.queue == nil {
		return w.mirrorEntry(ctx, p)
	}

	err = w.queue.ClaimMirror(ctx, msg.Seq)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		// Not tracked locally, so redelivery is the only retry path.
		slog.WarnContext(ctx, "Entry not found in local store, mirroring message as is",
			"seq", msg.Seq)
		return w.mirrorEntry(ctx, p)
	case errors.Is(err, storage.ErrMirrorTaken):
		slog.InfoContext(ctx, "Entry already mirrored or in progress, skipping", "seq", msg.Seq)
		return nil
	case err != nil:
		return fmt.Errorf("claim entry: %w", err)
	}

	if err := w.mirrorEntry(ctx, p); err != nil {
		// The row stays pending and the sweep retries it until it runs out
		// of attempts.
		slog.WarnContext(ctx, "Mirror failed, leaving entry to the sweep", "seq", msg.Seq, "error", err)
	}
	return nil
}

// ProcessPending mirrors up to one batch of entries that haven't been copied
// yet. This is a backup mechanism in case AMQP messages are lost.
func (w *MirrorWorker) ProcessPending(ctx context.Context) (int, error) {
	if w.queue == nil {
		return 0, nil
	}
	pending, err := w.queue.PendingMirror(ctx, w.batchSize)
	if err != nil {
		return 0, fmt.Errorf("get pending entries: %w", err)
	}
	if len(pending) == 0 {
		return 0, nil
	}

	slog.InfoContext(ctx, "Processing pending entries", "count", len(pending))

	mirrored := 0
	for _, p := range pending {
		if ctx.Err() != nil {
			return mirrored, ctx.Err()
		}
		if err := w.queue.ClaimMirror(ctx, p.Seq); err != nil {
			if !errors.Is(err, storage.ErrMirrorTaken) {
				slog.ErrorContext(ctx, "Failed to claim entry", "seq", p.Seq, "error", err)
			}
			continue
		}
		if err := w.mirrorEntry(ctx, p); err != nil {
			slog.ErrorContext(ctx, "Failed to mirror entry", "seq", p.Seq, "error", err)
			continue
		}
		mirrored++
	}
	return mirrored, nil
}

func (w *MirrorWorker) mirrorEntry(ctx context.Context, p storage.PendingEntry) error {
	ref, err := w.mirror.Append(ctx, p.Entry)
	if err != nil {
		w.record(false)
		if w.queue != nil {
			if markErr := w.queue.MarkMirrorError(ctx, p.Seq); markErr != nil {
				slog.ErrorContext(ctx, "Failed to mark mirror error", "seq", p.Seq, "error", markErr)
			}
		}
		return fmt.Errorf("append to mirror: %w", err)
	}
	w.record(true)

	if w.queue != nil {
		if err := w.queue.MarkMirrored(ctx, p.Seq, ref); err != nil {
			// The row is in the mirror; only the bookkeeping failed.
			slog.ErrorContext(ctx, "Failed to mark as mirrored", "seq", p.Seq, "error", err)
		}
	}

	slog.InfoContext(ctx, "Successfully mirrored entry",
		"seq", p.Seq,
		"mirror_ref", ref,
		"category", p.Entry.Category,
		"amount", p.Entry.Amount.String())
	return nil
}

func (w *MirrorWorker) record(ok bool) {
	if w.metrics != nil {
		w.metrics.Mirrored(ok)
	}
}
