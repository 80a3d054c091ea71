package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"fintrack/internal/core"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EntryAppendedMessage announces one entry accepted into the ledger. It
// carries the full entry so consumers need no access to the primary store.
type EntryAppendedMessage struct {
	ID          string    `json:"id"`
	Seq         int64     `json:"seq"` // 1-based position in the ledger
	Date        string    `json:"date"`
	Kind        string    `json:"kind"`
	Amount      string    `json:"amount"`
	Category    string    `json:"category"`
	Description string    `json:"description,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// NewEntryAppendedMessage builds the event for the entry at position seq.
func NewEntryAppendedMessage(seq int64, e core.Entry) *EntryAppendedMessage {
	return &EntryAppendedMessage{
		ID:          uuid.NewString(),
		Seq:         seq,
		Date:        e.Date.String(),
		Kind:        e.Kind.String(),
		Amount:      e.Amount.String(),
		Category:    e.Category,
		Description: e.Description,
		Timestamp:   time.Now().UTC(),
	}
}

// Entry decodes the carried entry and validates it.
func (m *EntryAppendedMessage) Entry() (core.Entry, error) {
	date, err := core.ParseDate(m.Date)
	if err != nil {
		return core.Entry{}, err
	}
	kind, err := core.ParseKind(m.Kind)
	if err != nil {
		return core.Entry{}, err
	}
	amount, err := decimal.NewFromString(m.Amount)
	if err != nil {
		return core.Entry{}, fmt.Errorf("amount %q: %w", m.Amount, err)
	}
	e := core.Entry{Date: date, Kind: kind, Amount: amount, Category: m.Category, Description: m.Description}
	if err := e.Validate(); err != nil {
		return core.Entry{}, err
	}
	return e, nil
}

// ToJSON converts the message to JSON bytes
func (m *EntryAppendedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// EntryAppendedMessageFromJSON creates a message from JSON bytes
func EntryAppendedMessageFromJSON(data []byte) (*EntryAppendedMessage, error) {
	var msg EntryAppendedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
