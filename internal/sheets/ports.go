package sheets

import (
	"context"

	"fintrack/internal/core"
)

// Ports for outbound adapters.
type (
	// LedgerLoader reads the whole persisted ledger.
	LedgerLoader interface {
		Load(ctx context.Context) (core.Ledger, error)
	}

	// LedgerSaver persists a full ledger snapshot. Implementations may write
	// only what changed, but must leave the store equal to the snapshot.
	LedgerSaver interface {
		Save(ctx context.Context, l core.Ledger) error
	}

	LedgerStore interface {
		LedgerLoader
		LedgerSaver
	}

	// EntryMirror receives single entries for a secondary copy of the ledger.
	EntryMirror interface {
		Append(ctx context.Context, e core.Entry) (rowRef string, err error)
	}

	// CategoryReader lists the category labels offered as suggestions.
	CategoryReader interface {
		Categories(ctx context.Context) ([]string, error)
	}
)
