package amqp

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
)

func TestExponentialBackoff(t *testing.T) {
	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{-1, 1 * time.Second},
		{0, 1 * time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
		{4, 16 * time.Second},
		{5, 30 * time.Second},  // capped at 30s
		{10, 30 * time.Second}, // capped at 30s
		{64, 30 * time.Second}, // no shift overflow
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("attempt_%d", tt.attempt), func(t *testing.T) {
			assert.Equal(t, tt.expected, exponentialBackoff(tt.attempt))
		})
	}
}

func TestIsConnectionError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"connection refused", errors.New("dial tcp: connection refused"), true},
		{"closed connection", errors.New("connection closed"), true},
		{"EOF", errors.New("unexpected EOF"), true},
		{"broken pipe", errors.New("write: broken pipe"), true},
		{"amqp closed", fmt.Errorf("publish: %w", amqpClosed()), true},
		{"other error", errors.New("some other error"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, isConnectionError(tt.err))
		})
	}
}

func TestClient_CircuitBreaker(t *testing.T) {
	client := &Client{exchangeName: "test_exchange", queueName: "test_queue"}

	t.Run("initial state is closed", func(t *testing.T) {
		assert.False(t, client.isCircuitOpen())
	})

	t.Run("failures below threshold keep circuit closed", func(t *testing.T) {
		for i := 0; i < failureThreshold-1; i++ {
			client.recordFailure()
		}
		assert.False(t, client.isCircuitOpen())
	})

	t.Run("reaching threshold opens circuit", func(t *testing.T) {
		client.recordFailure()
		assert.True(t, client.isCircuitOpen())
	})

	t.Run("circuit half-opens after timeout", func(t *testing.T) {
		atomic.StoreInt64(&client.lastFailure, time.Now().Add(-circuitTimeout-time.Second).UnixNano())
		assert.False(t, client.isCircuitOpen())
		assert.Equal(t, StateHalfOpen, atomic.LoadInt32(&client.state))
	})

	t.Run("failure while half-open reopens", func(t *testing.T) {
		client.recordFailure()
		assert.True(t, client.isCircuitOpen())
	})

	t.Run("success resets", func(t *testing.T) {
		client.recordSuccess()
		assert.False(t, client.isCircuitOpen())
		assert.Equal(t, int64(0), atomic.LoadInt64(&client.failureCount))
	})
}

func TestPublishFailsFastWhenCircuitOpen(t *testing.T) {
	client := &Client{exchangeName: "e", queueName: "q"}
	atomic.StoreInt32(&client.state, StateOpen)
	atomic.StoreInt64(&client.lastFailure, time.Now().UnixNano())

	err := client.PublishEntryAppended(t.Context(), &EntryAppendedMessage{ID: "x"})
	assert.ErrorIs(t, err, ErrCircuitOpen)
}

func TestCloseWithoutConnection(t *testing.T) {
	assert.NoError(t, (&Client{}).Close())
}

type fakeAcknowledger struct {
	acks, requeues, drops int
}

func (a *fakeAcknowledger) Ack(uint64, bool) error { a.acks++; return nil }

func (a *fakeAcknowledger) Nack(_ uint64, _ bool, requeue bool) error {
	if requeue {
		a.requeues++
	} else {
		a.drops++
	}
	return nil
}

func (a *fakeAcknowledger) Reject(_ uint64, requeue bool) error {
	return a.Nack(0, false, requeue)
}

func newDelivery(t *testing.T, ack *fakeAcknowledger, msg *EntryAppendedMessage) amqp091.Delivery {
	t.Helper()
	body, err := msg.ToJSON()
	if err != nil {
		t.Fatal(err)
	}
	return amqp091.Delivery{Acknowledger: ack, Body: body}
}

func TestDispatch_DropsAfterMaxAttempts(t *testing.T) {
	client := &Client{}
	ack := &fakeAcknowledger{}
	msg := &EntryAppendedMessage{ID: "m1", Seq: 1}
	failing := func(context.Context, *EntryAppendedMessage) error { return errors.New("sheets unavailable") }

	for i := 0; i < maxDeliveryAttempts; i++ {
		client.dispatch(t.Context(), newDelivery(t, ack, msg), failing)
	}

	assert.Equal(t, maxDeliveryAttempts-1, ack.requeues)
	assert.Equal(t, 1, ack.drops)
	assert.Zero(t, ack.acks)
	assert.Empty(t, client.failures)
}

func TestDispatch_SuccessResetsAttempts(t *testing.T) {
	client := &Client{}
	ack := &fakeAcknowledger{}
	msg := &EntryAppendedMessage{ID: "m2", Seq: 2}

	fail := true
	handler := func(context.Context, *EntryAppendedMessage) error {
		if fail {
			return errors.New("transient")
		}
		return nil
	}

	client.dispatch(t.Context(), newDelivery(t, ack, msg), handler)
	fail = false
	client.dispatch(t.Context(), newDelivery(t, ack, msg), handler)

	assert.Equal(t, 1, ack.requeues)
	assert.Equal(t, 1, ack.acks)
	assert.Empty(t, client.failures)
}

func TestDispatch_UndecodableMessageIsDropped(t *testing.T) {
	ack := &fakeAcknowledger{}
	called := false
	(&Client{}).dispatch(t.Context(), amqp091.Delivery{Acknowledger: ack, Body: []byte("{")},
		func(context.Context, *EntryAppendedMessage) error { called = true; return nil })

	assert.False(t, called)
	assert.Equal(t, 1, ack.drops)
}
