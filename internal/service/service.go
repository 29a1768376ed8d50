package service

import (
	"context"
	"io"
	"time"

	"github.com/cafe-pos/api/internal/enum"
	"github.com/cafe-pos/api/internal/events"
	"github.com/cafe-pos/api/internal/model"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// TableStore persists tables. UpdateTableStatus is a compare-and-swap: it
// returns model.ErrStale when the stored status is not from.
type TableStore interface {
	CreateTable(ctx context.Context, t model.Table) (model.Table, error)
	GetTable(ctx context.Context, id int32) (model.Table, error)
	ListTables(ctx context.Context) ([]model.Table, error)
	UpdateTableStatus(ctx context.Context, id int32, from, to string) (model.Table, error)
}

// OrderStore persists orders together with their items.
type OrderStore interface {
	CreateOrder(ctx context.Context, o model.Order) (model.Order, error)
	GetOrder(ctx context.Context, id uuid.UUID) (model.Order, error)
	ListOrders(ctx context.Context, f model.OrderFilter) ([]model.Order, error)
	UpdateOrderStatus(ctx context.Context, id uuid.UUID, from, to string) (model.Order, error)
}

// TransactionStore is the append-only payment ledger. RecordPayment inserts
// the transaction and applies every settlement atomically; a settlement on an
// already paid order fails the whole call with model.ErrStale.
type TransactionStore interface {
	RecordPayment(ctx context.Context, tx model.Transaction, settle []model.Settlement) (model.Transaction, []model.Order, error)
	GetTransaction(ctx context.Context, id uuid.UUID) (model.Transaction, error)
	ListTransactions(ctx context.Context, f model.TransactionFilter) ([]model.Transaction, error)
}

type MenuStore interface {
	CreateMenuItem(ctx context.Context, m model.MenuItem) (model.MenuItem, error)
	GetMenuItem(ctx context.Context, id uuid.UUID) (model.MenuItem, error)
	ListMenuItems(ctx context.Context, category string) ([]model.MenuItem, error)
	UpdateMenuItem(ctx context.Context, m model.MenuItem) (model.MenuItem, error)
}

// SettingsStore returns model.ErrNotFound until the singleton is saved.
type SettingsStore interface {
	GetSettings(ctx context.Context) (model.Settings, error)
	SaveSettings(ctx context.Context, s model.Settings) (model.Settings, error)
}

// Store is everything the lifecycle service needs from a backend.
type Store interface {
	TableStore
	OrderStore
	TransactionStore
	MenuStore
	SettingsStore
}

// Policy holds the deployment-level rules the service applies uniformly.
type Policy struct {
	// BillingEligible lists the order statuses that make a table payable.
	BillingEligible []string
	// AutoBilling moves a table to billing as soon as an order becomes eligible.
	AutoBilling bool
	// AllowOverride lets callers record a payment that differs from the bill.
	AllowOverride bool
	// DefaultSettings seeds the settings singleton on first read.
	DefaultSettings model.Settings
}

// DefaultPolicy bills orders once the kitchen marks them ready.
func DefaultPolicy() Policy {
	return Policy{
		BillingEligible: []string{enum.OrderStatusReady, enum.OrderStatusCompleted},
	}
}

// Lifecycle owns the order, table and billing state machines.
type Lifecycle struct {
	store  Store
	pub    events.Publisher
	policy Policy
	log    *logrus.Logger
	now    func() time.Time

	eligible map[string]bool
}

// Option customises a Lifecycle.
type Option func(*Lifecycle)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(l *Lifecycle) { l.now = now }
}

// WithLogger sets the logger used for warnings and publisher failures.
func WithLogger(log *logrus.Logger) Option {
	return func(l *Lifecycle) { l.log = log }
}

// NewLifecycle creates the lifecycle service. A nil publisher discards events.
func NewLifecycle(store Store, pub events.Publisher, policy Policy, opts ...Option) *Lifecycle {
	if pub == nil {
		pub = events.Nop{}
	}
	if len(policy.BillingEligible) == 0 {
		policy.BillingEligible = DefaultPolicy().BillingEligible
	}
	l := &Lifecycle{
		store:    store,
		pub:      pub,
		policy:   policy,
		now:      time.Now,
		eligible: make(map[string]bool, len(policy.BillingEligible)),
	}
	for _, s := range policy.BillingEligible {
		l.eligible[s] = true
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.log == nil {
		l.log = logrus.New()
		l.log.SetOutput(io.Discard)
	}
	return l
}

// Policy returns the policy the service was built with.
func (l *Lifecycle) Policy() Policy {
	return l.policy
}

// BillingEligible reports whether the order makes its table payable.
func (l *Lifecycle) BillingEligible(o model.Order) bool {
	return l.eligible[o.Status] && !o.Paid()
}

// isOpen reports whether the order still needs the kitchen or the cashier.
// An unpaid completed order stays open so its table is never released
// without a transaction.
func isOpen(o model.Order) bool {
	if o.Paid() {
		return false
	}
	switch o.Status {
	case enum.OrderStatusPending, enum.OrderStatusPreparing, enum.OrderStatusReady, enum.OrderStatusCompleted:
		return true
	}
	return false
}

// publish hands the payload to the publisher. Failures are logged: no state
// change depends on a listener being present.
func (l *Lifecycle) publish(ctx context.Context, payload any) {
	evt := events.New(payload, l.now())
	if err := l.pub.Publish(ctx, evt); err != nil {
		l.log.WithError(err).WithField("event", evt.Type).Warn("publish event failed")
	}
}
