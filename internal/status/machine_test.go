package status

import (
	"testing"

	"github.com/kiwari-pos/terminal/internal/enum"
)

func TestTrackingOrderTransitions(t *testing.T) {
	m := NewMachine(true)

	cases := []struct {
		from, to string
		want     bool
	}{
		{enum.OrderStatusPlaced, enum.OrderStatusPreparing, true},
		{enum.OrderStatusPreparing, enum.OrderStatusServed, true},
		{enum.OrderStatusServed, enum.OrderStatusPaid, true},
		{enum.OrderStatusPlaced, enum.OrderStatusServed, false},
		{enum.OrderStatusPlaced, enum.OrderStatusPaid, false},
		// cancellation is reachable from any non-terminal state
		{enum.OrderStatusPlaced, enum.OrderStatusCancelled, true},
		{enum.OrderStatusPreparing, enum.OrderStatusCancelled, true},
		{enum.OrderStatusServed, enum.OrderStatusCancelled, true},
		{enum.OrderStatusPreparing, enum.OrderStatusPartiallyCancelled, true},
		// terminal states accept nothing
		{enum.OrderStatusPaid, enum.OrderStatusCancelled, false},
		{enum.OrderStatusCancelled, enum.OrderStatusPlaced, false},
	}
	for _, tc := range cases {
		if got := m.CanTransitionOrder(tc.from, tc.to); got != tc.want {
			t.Errorf("tracking order %s -> %s = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestBasicModeCollapsesStateSpace(t *testing.T) {
	m := NewMachine(false)

	if !m.CanTransitionOrder(enum.OrderStatusPlaced, enum.OrderStatusPaid) {
		t.Error("basic mode: placed -> paid should be allowed")
	}
	if !m.CanTransitionOrder(enum.OrderStatusPlaced, enum.OrderStatusCancelled) {
		t.Error("basic mode: placed -> cancelled should be allowed")
	}
	if m.CanTransitionOrder(enum.OrderStatusPlaced, enum.OrderStatusPreparing) {
		t.Error("basic mode: preparing is not in the state space")
	}
	if m.CanTransitionItem(enum.ItemStatusPlaced, enum.ItemStatusPreparing, nil) {
		t.Error("basic mode: item preparing is not in the state space")
	}
	if !m.CanTransitionItem(enum.ItemStatusPlaced, enum.ItemStatusCancelled, nil) {
		t.Error("basic mode: item placed -> cancelled should be allowed")
	}
}

func TestTrackingItemTransitions(t *testing.T) {
	m := NewMachine(true)

	cases := []struct {
		from, to string
		want     bool
	}{
		{enum.ItemStatusPlaced, enum.ItemStatusPreparing, true},
		{enum.ItemStatusPreparing, enum.ItemStatusReady, true},
		{enum.ItemStatusReady, enum.ItemStatusServed, true},
		{enum.ItemStatusPlaced, enum.ItemStatusReady, false},
		{enum.ItemStatusPlaced, enum.ItemStatusCancelled, true},
		{enum.ItemStatusPreparing, enum.ItemStatusCancelled, true},
		// served items are never cancellable
		{enum.ItemStatusReady, enum.ItemStatusCancelled, false},
		{enum.ItemStatusServed, enum.ItemStatusCancelled, false},
	}
	for _, tc := range cases {
		if got := m.CanTransitionItem(tc.from, tc.to, nil); got != tc.want {
			t.Errorf("tracking item %s -> %s = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestServerHintOverridesLocalTable(t *testing.T) {
	m := NewMachine(true)

	// The local table allows placed -> preparing, but the backend says no
	// (e.g. kitchen closed). The hint wins.
	if m.CanTransitionItem(enum.ItemStatusPlaced, enum.ItemStatusPreparing, []string{enum.ItemStatusCancelled}) {
		t.Error("hint should forbid a locally-allowed transition")
	}

	// The local table forbids ready -> cancelled, but the backend allows it.
	if !m.CanTransitionItem(enum.ItemStatusReady, enum.ItemStatusCancelled, []string{enum.ItemStatusCancelled}) {
		t.Error("hint should allow a locally-forbidden transition")
	}

	// An empty (non-nil) hint means nothing is allowed.
	if m.CanTransitionItem(enum.ItemStatusPlaced, enum.ItemStatusPreparing, []string{}) {
		t.Error("empty hint should forbid everything")
	}
}

func TestCanCancelItem(t *testing.T) {
	tracking := NewMachine(true)
	if !tracking.CanCancelItem(enum.ItemStatusPlaced) || !tracking.CanCancelItem(enum.ItemStatusPreparing) {
		t.Error("tracking: placed and preparing items should be cancellable")
	}
	if tracking.CanCancelItem(enum.ItemStatusServed) {
		t.Error("tracking: served items must not be cancellable")
	}

	basic := NewMachine(false)
	if !basic.CanCancelItem(enum.ItemStatusPlaced) {
		t.Error("basic: placed items should be cancellable")
	}
}

func TestCanEditItems(t *testing.T) {
	for _, tracking := range []bool{true, false} {
		m := NewMachine(tracking)
		if !m.CanEditItems(enum.OrderStatusPlaced) {
			t.Errorf("tracking=%v: placed orders should be editable", tracking)
		}
		if m.CanEditItems(enum.OrderStatusPreparing) {
			t.Errorf("tracking=%v: edits must be blocked after preparing", tracking)
		}
		if m.CanEditItems(enum.OrderStatusPaid) {
			t.Errorf("tracking=%v: paid orders must not be editable", tracking)
		}
	}
}

func TestIsTerminalOrder(t *testing.T) {
	if !IsTerminalOrder(enum.OrderStatusPaid) || !IsTerminalOrder(enum.OrderStatusCancelled) {
		t.Error("paid and cancelled are terminal")
	}
	if IsTerminalOrder(enum.OrderStatusPartiallyCancelled) {
		t.Error("partially-cancelled is not terminal")
	}
}
