package amqp

import (
	"testing"

	"fintrack/internal/core"

	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func amqpClosed() error { return amqp091.ErrClosed }

func TestEntryAppendedMessageCarriesEntry(t *testing.T) {
	e := core.Entry{
		Date:        core.NewDate(2024, 3, 9),
		Kind:        core.Income,
		Amount:      decimal.RequireFromString("1500.123"),
		Category:    "Salary, March",
		Description: "net",
	}
	msg := NewEntryAppendedMessage(7, e)
	_, err := uuid.Parse(msg.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(7), msg.Seq)
	assert.False(t, msg.Timestamp.IsZero())

	data, err := msg.ToJSON()
	require.NoError(t, err)
	back, err := EntryAppendedMessageFromJSON(data)
	require.NoError(t, err)

	got, err := back.Entry()
	require.NoError(t, err)
	assert.True(t, e.Equal(got))
}

func TestEntryAppendedMessageInvalid(t *testing.T) {
	_, err := EntryAppendedMessageFromJSON([]byte("{not json"))
	assert.Error(t, err)

	msg := &EntryAppendedMessage{Date: "2024-01-01", Kind: "Expense", Amount: "0", Category: "Food"}
	_, err = msg.Entry()
	assert.ErrorIs(t, err, core.ErrInvalidEntry)

	msg = &EntryAppendedMessage{Date: "2024-01-01", Kind: "Expense", Amount: "ten", Category: "Food"}
	_, err = msg.Entry()
	assert.Error(t, err)
}
