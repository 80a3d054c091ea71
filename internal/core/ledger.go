package core

// Ledger is an append-only, ordered collection of entries. The zero value is
// an empty ledger. A Ledger is a value: Append returns a new ledger and never
// modifies the receiver or any entry already in it.
type Ledger struct {
	entries []Entry
}

// NewLedger builds a ledger from already accepted entries, such as those read
// back from a store. Entries are copied and are not re-validated.
func NewLedger(entries ...Entry) Ledger {
	if len(entries) == 0 {
		return Ledger{}
	}
	cp := make([]Entry, len(entries))
	copy(cp, entries)
	return Ledger{entries: cp}
}

// Append returns a ledger with e added at the end. When e is not a valid entry
// the receiver is returned unchanged together with an error wrapping
// ErrInvalidEntry.
func (l Ledger) Append(e Entry) (Ledger, error) {
	if err := e.Validate(); err != nil {
		return l, err
	}
	n := len(l.entries)
	// Capping capacity forces a fresh backing array, so ledgers that share a
	// prefix never observe each other's appends.
	return Ledger{entries: append(l.entries[:n:n], e)}, nil
}

// Len returns the number of entries.
func (l Ledger) Len() int { return len(l.entries) }

// IsEmpty reports whether the ledger has no entries.
func (l Ledger) IsEmpty() bool { return len(l.entries) == 0 }

// Revision identifies this snapshot of the ledger. Since entries are only ever
// appended, two snapshots of the same session with equal revisions hold the
// same entries.
func (l Ledger) Revision() int { return len(l.entries) }

// At returns the i-th entry in insertion order.
func (l Ledger) At(i int) Entry { return l.entries[i] }

// Entries returns a copy of the entries in insertion order.
func (l Ledger) Entries() []Entry {
	cp := make([]Entry, len(l.entries))
	copy(cp, l.entries)
	return cp
}

// Since returns a copy of the entries appended after the first n.
func (l Ledger) Since(n int) []Entry {
	if n < 0 {
		n = 0
	}
	if n >= len(l.entries) {
		return nil
	}
	cp := make([]Entry, len(l.entries)-n)
	copy(cp, l.entries[n:])
	return cp
}

// Equal reports whether both ledgers hold equal entries in the same order.
func (l Ledger) Equal(o Ledger) bool {
	if len(l.entries) != len(o.entries) {
		return false
	}
	for i := range l.entries {
		if !l.entries[i].Equal(o.entries[i]) {
			return false
		}
	}
	return true
}
