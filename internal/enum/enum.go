package enum

// ── Staff roles (CHECK constrained in DB) ──

const (
	StaffRoleOwner   = "OWNER"
	StaffRoleManager = "MANAGER"
	StaffRoleStaff   = "STAFF"
)

// ── Live feed events (ws hub + AMQP routing keys) ──

const (
	EventOrderCreated = "order.created"
	EventOrderUpdated = "order.updated"
)

// ── Currency ──

const DefaultCurrency = "RUB"
