// Package status holds the order and item state machines.
//
// The restaurant's order-tracking toggle selects one of two explicit
// transition tables rather than branching at call sites. With tracking
// enabled, orders and items pass through intermediate fulfillment states;
// with tracking disabled the state space collapses to placed/paid/cancelled
// (orders) and placed/cancelled (items).
package status

import "github.com/kiwari-pos/terminal/internal/enum"

// Machine validates status transitions for one tracking mode.
type Machine struct {
	orderNext map[string][]string
	itemNext  map[string][]string
}

// NewMachine builds the transition tables for the given tracking mode.
func NewMachine(trackingEnabled bool) *Machine {
	if trackingEnabled {
		return &Machine{
			orderNext: map[string][]string{
				enum.OrderStatusPlaced:    {enum.OrderStatusPreparing, enum.OrderStatusCancelled, enum.OrderStatusPartiallyCancelled},
				enum.OrderStatusPreparing: {enum.OrderStatusServed, enum.OrderStatusCancelled, enum.OrderStatusPartiallyCancelled},
				enum.OrderStatusServed:    {enum.OrderStatusPaid, enum.OrderStatusCancelled, enum.OrderStatusPartiallyCancelled},
				// Partially-cancelled orders keep moving through fulfillment.
				enum.OrderStatusPartiallyCancelled: {enum.OrderStatusPreparing, enum.OrderStatusServed, enum.OrderStatusPaid, enum.OrderStatusCancelled},
				enum.OrderStatusPaid:               {},
				enum.OrderStatusCancelled:          {},
			},
			itemNext: map[string][]string{
				enum.ItemStatusPlaced:    {enum.ItemStatusPreparing, enum.ItemStatusCancelled},
				enum.ItemStatusPreparing: {enum.ItemStatusReady, enum.ItemStatusCancelled},
				enum.ItemStatusReady:     {enum.ItemStatusServed},
				enum.ItemStatusServed:    {},
				enum.ItemStatusCancelled: {},
			},
		}
	}
	return &Machine{
		orderNext: map[string][]string{
			enum.OrderStatusPlaced:    {enum.OrderStatusPaid, enum.OrderStatusCancelled},
			enum.OrderStatusPaid:      {},
			enum.OrderStatusCancelled: {},
		},
		itemNext: map[string][]string{
			enum.ItemStatusPlaced:    {enum.ItemStatusCancelled},
			enum.ItemStatusCancelled: {},
		},
	}
}

// NextOrderStates returns the local transition set for an order status.
func (m *Machine) NextOrderStates(current string) []string {
	return m.orderNext[current]
}

// NextItemStates returns the local transition set for an item status.
func (m *Machine) NextItemStates(current string) []string {
	return m.itemNext[current]
}

// CanTransitionOrder reports whether an order may move current → next.
func (m *Machine) CanTransitionOrder(current, next string) bool {
	return contains(m.orderNext[current], next)
}

// CanTransitionItem reports whether an item may move current → next.
// allowedHint, when non-nil, is the server-advised set and is authoritative
// over the local table: the backend may apply domain rules (kitchen load,
// shift cutoffs) the terminal cannot see.
func (m *Machine) CanTransitionItem(current, next string, allowedHint []string) bool {
	if allowedHint != nil {
		return contains(allowedHint, next)
	}
	return contains(m.itemNext[current], next)
}

// CanCancelItem reports whether an item in the given status may be
// cancelled. Served items are never cancellable.
func (m *Machine) CanCancelItem(current string) bool {
	return contains(m.itemNext[current], enum.ItemStatusCancelled)
}

// CanEditItems reports whether item-level edits (quantity, notes) are still
// allowed for an order in the given status. Edits are blocked once the
// order leaves placed, in both tracking modes.
func (m *Machine) CanEditItems(orderStatus string) bool {
	return orderStatus == enum.OrderStatusPlaced
}

// IsTerminalOrder reports whether an order status accepts no further
// transitions.
func IsTerminalOrder(s string) bool {
	return s == enum.OrderStatusPaid || s == enum.OrderStatusCancelled
}

func contains(set []string, s string) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}
