package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/cafe-pos/api/internal/enum"
	"github.com/cafe-pos/api/internal/events"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type published struct {
	exchange string
	key      string
	msg      amqp.Publishing
}

type fakeChannel struct {
	sent   []published
	acks   chan amqp.Confirmation
	ack    bool
	err    error
	closed bool
}

func (f *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, published{exchange, key, msg})
	if f.acks != nil {
		f.acks <- amqp.Confirmation{DeliveryTag: uint64(len(f.sent)), Ack: f.ack}
	}
	return nil
}

func (f *fakeChannel) Close() error {
	f.closed = true
	return nil
}

func tableEvent() events.Event {
	return events.New(events.TableStatusChanged{TableID: 3, From: enum.TableStatusAvailable, To: enum.TableStatusOccupied},
		time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
}

func TestPublishRoutesByEventType(t *testing.T) {
	ch := &fakeChannel{acks: make(chan amqp.Confirmation, 1), ack: true}
	p := newPublisher(ch, ch.acks, DefaultExchange, time.Second)

	require.NoError(t, p.Publish(context.Background(), tableEvent()))
	require.Len(t, ch.sent, 1)
	got := ch.sent[0]
	assert.Equal(t, DefaultExchange, got.exchange)
	assert.Equal(t, enum.EventTableStatusChanged, got.key)
	assert.Equal(t, amqp.Persistent, got.msg.DeliveryMode)
	assert.Equal(t, "application/json", got.msg.ContentType)

	var body struct {
		Type    string `json:"type"`
		Payload struct {
			TableID int32  `json:"table_id"`
			To      string `json:"to"`
		} `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(got.msg.Body, &body))
	assert.Equal(t, enum.EventTableStatusChanged, body.Type)
	assert.Equal(t, int32(3), body.Payload.TableID)
	assert.Equal(t, enum.TableStatusOccupied, body.Payload.To)
}

func TestPublishNack(t *testing.T) {
	ch := &fakeChannel{acks: make(chan amqp.Confirmation, 1), ack: false}
	p := newPublisher(ch, ch.acks, DefaultExchange, time.Second)
	assert.Error(t, p.Publish(context.Background(), tableEvent()))
}

func TestPublishConfirmTimeout(t *testing.T) {
	// Confirms enabled but the broker never answers.
	ch := &fakeChannel{}
	p := newPublisher(ch, make(chan amqp.Confirmation), DefaultExchange, 10*time.Millisecond)
	err := p.Publish(context.Background(), tableEvent())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestPublishChannelError(t *testing.T) {
	ch := &fakeChannel{err: errors.New("channel closed")}
	p := newPublisher(ch, nil, "custom", time.Second)
	assert.Error(t, p.Publish(context.Background(), tableEvent()))

	require.NoError(t, p.Close())
	assert.True(t, ch.closed)
}
