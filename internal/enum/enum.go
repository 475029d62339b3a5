package enum

// ── Order state machine ──

const (
	OrderStatusPlaced             = "placed"
	OrderStatusPreparing          = "preparing"
	OrderStatusServed             = "served"
	OrderStatusPaid               = "paid"
	OrderStatusCancelled          = "cancelled"
	OrderStatusPartiallyCancelled = "partially-cancelled"
)

const (
	ItemStatusPlaced    = "placed"
	ItemStatusPreparing = "preparing"
	ItemStatusReady     = "ready"
	ItemStatusServed    = "served"
	ItemStatusCancelled = "cancelled"
)

// ── Table state machine ──

const (
	TableStatusAvailable = "available"
	TableStatusOccupied  = "occupied"
	TableStatusReserved  = "reserved"
	TableStatusCleaning  = "cleaning"
)

// ── Order types ──

const (
	OrderTypeDineIn    = "dine-in"
	OrderTypeTakeaway  = "takeaway"
	OrderTypeQuickBill = "quick-bill"
)
