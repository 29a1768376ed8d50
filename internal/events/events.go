// Package events defines the domain events published by the lifecycle
// service and the publishers that carry them to other systems.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/cafe-pos/api/internal/enum"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Event is the envelope sent to every subscriber.
type Event struct {
	Type       string    `json:"type"`
	OccurredAt time.Time `json:"occurred_at"`
	Payload    any       `json:"payload"`
}

// Marshal encodes the event envelope as JSON.
func (e Event) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

type OrderCreated struct {
	OrderID   uuid.UUID       `json:"order_id"`
	TableID   int32           `json:"table_id"`
	Total     decimal.Decimal `json:"total"`
	ItemCount int             `json:"item_count"`
}

type OrderStatusChanged struct {
	OrderID uuid.UUID `json:"order_id"`
	TableID int32     `json:"table_id"`
	From    string    `json:"from"`
	To      string    `json:"to"`
}

type TableStatusChanged struct {
	TableID int32  `json:"table_id"`
	From    string `json:"from"`
	To      string `json:"to"`
}

// PaymentRecorded carries OrderID only for individual order payments.
type PaymentRecorded struct {
	TransactionID uuid.UUID       `json:"transaction_id"`
	TableID       int32           `json:"table_id"`
	OrderID       *uuid.UUID      `json:"order_id,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
	Method        string          `json:"method"`
}

// New wraps a payload in an envelope of the matching type.
func New(payload any, at time.Time) Event {
	var typ string
	switch payload.(type) {
	case OrderCreated:
		typ = enum.EventOrderCreated
	case OrderStatusChanged:
		typ = enum.EventOrderStatusChanged
	case TableStatusChanged:
		typ = enum.EventTableStatusChanged
	case PaymentRecorded:
		typ = enum.EventPaymentRecorded
	}
	return Event{Type: typ, OccurredAt: at.UTC(), Payload: payload}
}

// Publisher delivers events to a notification collaborator.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Nop discards every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }

// Multi fans an event out to several publishers. Every publisher is tried;
// the returned error joins the individual failures.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, e Event) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogPublisher writes events to a logrus logger at debug level.
type LogPublisher struct {
	Log *logrus.Logger
}

func (p LogPublisher) Publish(_ context.Context, e Event) error {
	p.Log.WithFields(logrus.Fields{
		"event":   e.Type,
		"payload": e.Payload,
	}).Debug("domain event")
	return nil
}

// Recorder keeps every published event in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Publish(_ context.Context, e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Types returns the recorded event types in publish order.
func (r *Recorder) Types() []string {
	evts := r.Events()
	out := make([]string, len(evts))
	for i, e := range evts {
		out[i] = e.Type
	}
	return out
}

// Reset drops all recorded events.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.events = nil
	r.mu.Unlock()
}
