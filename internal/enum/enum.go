package enum

// ── Group A: State machines (CHECK constrained in DB) ──

const (
	OrderStatusPending   = "pending"
	OrderStatusPreparing = "preparing"
	OrderStatusReady     = "ready"
	OrderStatusCompleted = "completed"
	OrderStatusCancelled = "cancelled"
)

const (
	TableStatusAvailable = "available"
	TableStatusOccupied  = "occupied"
	TableStatusReserved  = "reserved"
	TableStatusDisabled  = "disabled"
	TableStatusBilling   = "billing"
)

// ── Group B: Borderline (CHECK constrained in DB) ──

const (
	PaymentMethodCash   = "cash"
	PaymentMethodOnline = "online"
)

const (
	UserRoleAdmin   = "ADMIN"
	UserRoleCashier = "CASHIER"
	UserRoleWaiter  = "WAITER"
	UserRoleKitchen = "KITCHEN"
)

// ── Group C: Event types published to notification collaborators ──

const (
	EventOrderCreated       = "order.created"
	EventOrderStatusChanged = "order.statusChanged"
	EventTableStatusChanged = "table.statusChanged"
	EventPaymentRecorded    = "payment.recorded"
)

// IsOrderStatus reports whether s is a known order status.
func IsOrderStatus(s string) bool {
	switch s {
	case OrderStatusPending, OrderStatusPreparing, OrderStatusReady,
		OrderStatusCompleted, OrderStatusCancelled:
		return true
	}
	return false
}

// IsTableStatus reports whether s is a known table status.
func IsTableStatus(s string) bool {
	switch s {
	case TableStatusAvailable, TableStatusOccupied, TableStatusReserved,
		TableStatusDisabled, TableStatusBilling:
		return true
	}
	return false
}

func IsPaymentMethod(s string) bool {
	return s == PaymentMethodCash || s == PaymentMethodOnline
}

func IsUserRole(s string) bool {
	switch s {
	case UserRoleAdmin, UserRoleCashier, UserRoleWaiter, UserRoleKitchen:
		return true
	}
	return false
}
