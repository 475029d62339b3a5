// Package orders coordinates order mutations against the backend while
// keeping a local cache consistent. Mutations are applied optimistically
// where the outcome is predictable (quantity edits) and confirm-then-apply
// where the backend may refuse (status changes, cancellations). Every
// failure reverts the cache and surfaces a notification; nothing is
// retried here.
package orders

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/kiwari-pos/terminal/internal/api"
	"github.com/kiwari-pos/terminal/internal/domain"
	"github.com/kiwari-pos/terminal/internal/enum"
	"github.com/kiwari-pos/terminal/internal/status"
	"github.com/kiwari-pos/terminal/internal/tax"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Errors returned by the coordinator.
var (
	ErrEmptyItems          = errors.New("order must contain at least one item")
	ErrEmptyReason         = errors.New("cancellation reason is required")
	ErrInvalidOrderType    = errors.New("invalid order_type")
	ErrTableRequired       = errors.New("table is required for dine-in orders")
	ErrInvalidQuantity     = errors.New("quantity must be >= 1")
	ErrInvalidTransition   = errors.New("status change not allowed")
	ErrImmutableState      = errors.New("order can no longer be edited")
	ErrOperationInProgress = errors.New("another change to this item is still pending")
	ErrOrderNotFound       = errors.New("order not found")
	ErrItemNotFound        = errors.New("item not found in order")
	ErrUpdateFailed        = errors.New("update failed")
)

// Backend is the slice of the API client the coordinator needs.
// Satisfied by *api.Client.
type Backend interface {
	ListOrders(ctx context.Context, q api.ListOrdersQuery) ([]domain.Order, error)
	CreateOrder(ctx context.Context, req api.CreateOrderRequest) (domain.Order, error)
	UpdateOrderItem(ctx context.Context, itemID uuid.UUID, req api.UpdateOrderItemRequest) (domain.Order, error)
	UpdateOrderItemStatus(ctx context.Context, itemID uuid.UUID, status string) (api.StatusUpdateResult, error)
	CancelOrder(ctx context.Context, orderID uuid.UUID, reason string) (domain.Order, error)
	CancelOrderItem(ctx context.Context, orderID, itemID uuid.UUID, reason string) (domain.Order, error)
}

// Notifier surfaces failed mutations to the user. Implementations must not
// block; a reverted view must never fail silently.
type Notifier interface {
	Notify(message string)
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(string)

func (f NotifierFunc) Notify(message string) { f(message) }

// Draft is an order before submission.
type Draft struct {
	OrderType string
	TableID   *uuid.UUID
	StaffID   uuid.UUID
	Items     []DraftItem
}

// DraftItem is one line of a draft. The menu item's name and price are
// snapshotted into the submitted order.
type DraftItem struct {
	MenuItem domain.MenuItem
	Quantity int32
	Notes    string
}

// inflightKey identifies one entity for the in-flight mutation guard.
// Order-level mutations use a zero itemID.
type inflightKey struct {
	orderID uuid.UUID
	itemID  uuid.UUID
}

// Coordinator bridges order intents to the backend and owns the order
// cache. The cache is the only shared mutable state and is only touched
// through these methods.
type Coordinator struct {
	backend Backend
	notify  Notifier
	log     *zap.Logger

	mu       sync.Mutex
	machine  *status.Machine
	sgstRate decimal.Decimal
	cgstRate decimal.Decimal
	orders   map[uuid.UUID]domain.Order
	inflight map[inflightKey]struct{}
}

// NewCoordinator creates a Coordinator configured from the restaurant's
// settings (GST rates, order-tracking mode). notify and log may be nil.
func NewCoordinator(backend Backend, rest domain.Restaurant, notify Notifier, log *zap.Logger) *Coordinator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Coordinator{
		backend:  backend,
		notify:   notify,
		log:      log,
		machine:  status.NewMachine(rest.OrderTrackingEnabled),
		sgstRate: rest.SGSTRate,
		cgstRate: rest.CGSTRate,
		orders:   make(map[uuid.UUID]domain.Order),
		inflight: make(map[inflightKey]struct{}),
	}
}

// ApplyRestaurant adopts updated restaurant settings: new default rates for
// future orders and, if the tracking toggle changed, new transition tables.
func (c *Coordinator) ApplyRestaurant(rest domain.Restaurant) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.machine = status.NewMachine(rest.OrderTrackingEnabled)
	c.sgstRate = rest.SGSTRate
	c.cgstRate = rest.CGSTRate
}

// CreateOrder validates the draft, computes its totals, and submits it.
// On success the authoritative order enters the cache; on failure the draft
// is discarded and nothing order-shaped exists client-side.
func (c *Coordinator) CreateOrder(ctx context.Context, draft Draft) (domain.Order, error) {
	if err := validateOrderType(draft.OrderType); err != nil {
		return domain.Order{}, err
	}
	if len(draft.Items) == 0 {
		return domain.Order{}, ErrEmptyItems
	}
	if draft.OrderType == enum.OrderTypeDineIn && draft.TableID == nil {
		return domain.Order{}, ErrTableRequired
	}

	lines := make([]tax.Line, 0, len(draft.Items))
	reqItems := make([]api.CreateOrderItem, 0, len(draft.Items))
	for i, item := range draft.Items {
		if item.Quantity < 1 {
			return domain.Order{}, fmt.Errorf("item[%d]: %w", i, ErrInvalidQuantity)
		}
		lines = append(lines, tax.Line{
			Price:        item.MenuItem.Price,
			Quantity:     item.Quantity,
			IncludeInGST: item.MenuItem.IncludeInGST,
		})
		reqItems = append(reqItems, api.CreateOrderItem{
			MenuItemID:   item.MenuItem.ID,
			Name:         item.MenuItem.Name,
			Price:        item.MenuItem.Price.String(),
			Quantity:     item.Quantity,
			Notes:        item.Notes,
			IncludeInGST: item.MenuItem.IncludeInGST,
		})
	}

	c.mu.Lock()
	sgst, cgst := c.sgstRate, c.cgstRate
	c.mu.Unlock()

	// The draft carries the same totals the backend is expected to confirm.
	totals := tax.Compute(lines, sgst, cgst)
	req := api.CreateOrderRequest{
		OrderType:   draft.OrderType,
		TableID:     draft.TableID,
		StaffID:     draft.StaffID,
		Items:       reqItems,
		SubTotal:    totals.SubTotal.String(),
		SGSTRate:    sgst.String(),
		CGSTRate:    cgst.String(),
		SGSTAmount:  totals.SGSTAmount.String(),
		CGSTAmount:  totals.CGSTAmount.String(),
		TotalAmount: totals.TotalAmount.String(),
	}

	order, err := c.backend.CreateOrder(context.WithoutCancel(ctx), req)
	if err != nil {
		c.report("could not create order", err)
		return domain.Order{}, fmt.Errorf("%w: %w", ErrUpdateFailed, err)
	}

	c.mu.Lock()
	c.applyLocked(order)
	c.mu.Unlock()
	return order.Clone(), nil
}

// ChangeQuantity adjusts an item's quantity by delta, optimistically.
// Totals are recomputed on apply; the backend's copy replaces the
// optimistic one on confirmation and the snapshot is restored on failure.
func (c *Coordinator) ChangeQuantity(ctx context.Context, orderID, itemID uuid.UUID, delta int32) (domain.Order, error) {
	// The cache must reconcile even if the caller's view is abandoned.
	ctx = context.WithoutCancel(ctx)

	release, err := c.acquire(orderID, itemID)
	if err != nil {
		return domain.Order{}, err
	}
	defer release()

	c.mu.Lock()
	order, ok := c.orders[orderID]
	if !ok {
		c.mu.Unlock()
		return domain.Order{}, ErrOrderNotFound
	}
	if !c.machine.CanEditItems(order.Status) {
		c.mu.Unlock()
		return domain.Order{}, ErrImmutableState
	}
	item := order.Item(itemID)
	if item == nil {
		c.mu.Unlock()
		return domain.Order{}, ErrItemNotFound
	}
	if item.Status != enum.ItemStatusPlaced {
		c.mu.Unlock()
		return domain.Order{}, ErrImmutableState
	}
	newQty := item.Quantity + delta
	if newQty < 1 {
		c.mu.Unlock()
		return domain.Order{}, ErrInvalidQuantity
	}

	snapshot := order.Clone()
	work := order.Clone()
	work.Item(itemID).Quantity = newQty
	recomputeTotals(&work)
	c.orders[orderID] = work
	c.mu.Unlock()

	updated, err := c.backend.UpdateOrderItem(ctx, itemID, api.UpdateOrderItemRequest{Quantity: &newQty})
	if err != nil {
		c.rollback(snapshot)
		c.report("quantity change failed, view reverted", err)
		return domain.Order{}, fmt.Errorf("%w: %w", ErrUpdateFailed, err)
	}

	c.mu.Lock()
	c.applyLocked(updated)
	out := c.orders[orderID].Clone()
	c.mu.Unlock()
	return out, nil
}

// ChangeNotes replaces an item's kitchen notes, optimistically. Notes never
// touch totals, so the apply is a plain field write; the same edit window
// as quantity changes applies.
func (c *Coordinator) ChangeNotes(ctx context.Context, orderID, itemID uuid.UUID, notes string) (domain.Order, error) {
	ctx = context.WithoutCancel(ctx)

	release, err := c.acquire(orderID, itemID)
	if err != nil {
		return domain.Order{}, err
	}
	defer release()

	c.mu.Lock()
	order, ok := c.orders[orderID]
	if !ok {
		c.mu.Unlock()
		return domain.Order{}, ErrOrderNotFound
	}
	if !c.machine.CanEditItems(order.Status) {
		c.mu.Unlock()
		return domain.Order{}, ErrImmutableState
	}
	item := order.Item(itemID)
	if item == nil {
		c.mu.Unlock()
		return domain.Order{}, ErrItemNotFound
	}
	if item.Status != enum.ItemStatusPlaced {
		c.mu.Unlock()
		return domain.Order{}, ErrImmutableState
	}

	snapshot := order.Clone()
	work := order.Clone()
	work.Item(itemID).Notes = notes
	c.orders[orderID] = work
	c.mu.Unlock()

	updated, err := c.backend.UpdateOrderItem(ctx, itemID, api.UpdateOrderItemRequest{Notes: &notes})
	if err != nil {
		c.rollback(snapshot)
		c.report("notes change failed, view reverted", err)
		return domain.Order{}, fmt.Errorf("%w: %w", ErrUpdateFailed, err)
	}

	c.mu.Lock()
	c.applyLocked(updated)
	out := c.orders[orderID].Clone()
	c.mu.Unlock()
	return out, nil
}

// UpdateItemStatus moves an item to a new fulfillment status. This is
// confirm-then-apply: the backend may refuse for reasons the terminal
// cannot see, so the cache changes only on its response. The response's
// advised transition sets are stored for the next validation.
func (c *Coordinator) UpdateItemStatus(ctx context.Context, orderID, itemID uuid.UUID, newStatus string) (domain.Order, error) {
	ctx = context.WithoutCancel(ctx)

	release, err := c.acquire(orderID, itemID)
	if err != nil {
		return domain.Order{}, err
	}
	defer release()

	c.mu.Lock()
	order, ok := c.orders[orderID]
	if !ok {
		c.mu.Unlock()
		return domain.Order{}, ErrOrderNotFound
	}
	item := order.Item(itemID)
	if item == nil {
		c.mu.Unlock()
		return domain.Order{}, ErrItemNotFound
	}
	allowed := c.machine.CanTransitionItem(item.Status, newStatus, item.AllowedNextStates)
	c.mu.Unlock()
	if !allowed {
		return domain.Order{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, item.Status, newStatus)
	}

	res, err := c.backend.UpdateOrderItemStatus(ctx, itemID, newStatus)
	if err != nil {
		c.report("status change failed", err)
		return domain.Order{}, fmt.Errorf("%w: %w", ErrUpdateFailed, err)
	}

	confirmed := res.Order.Clone()
	if it := confirmed.Item(itemID); it != nil {
		it.AllowedNextStates = res.AllowedNextItemStates
	}

	c.mu.Lock()
	c.applyLocked(confirmed)
	out := c.orders[orderID].Clone()
	c.mu.Unlock()
	return out, nil
}

// CancelItem cancels one item. The reason is mandatory and recorded for
// audit by the backend. Confirm-then-apply: cancellation may be rejected
// server-side (already served), so the cache never moves first.
func (c *Coordinator) CancelItem(ctx context.Context, orderID, itemID uuid.UUID, reason string) (domain.Order, error) {
	ctx = context.WithoutCancel(ctx)

	if reason == "" {
		return domain.Order{}, ErrEmptyReason
	}

	release, err := c.acquire(orderID, itemID)
	if err != nil {
		return domain.Order{}, err
	}
	defer release()

	c.mu.Lock()
	order, ok := c.orders[orderID]
	if !ok {
		c.mu.Unlock()
		return domain.Order{}, ErrOrderNotFound
	}
	item := order.Item(itemID)
	if item == nil {
		c.mu.Unlock()
		return domain.Order{}, ErrItemNotFound
	}
	allowed := c.machine.CanTransitionItem(item.Status, enum.ItemStatusCancelled, item.AllowedNextStates)
	c.mu.Unlock()
	if !allowed {
		return domain.Order{}, fmt.Errorf("%w: cannot cancel %s item", ErrInvalidTransition, item.Status)
	}

	updated, err := c.backend.CancelOrderItem(ctx, orderID, itemID, reason)
	if err != nil {
		c.report("item cancellation failed", err)
		return domain.Order{}, fmt.Errorf("%w: %w", ErrUpdateFailed, err)
	}

	c.mu.Lock()
	c.applyLocked(updated)
	out := c.orders[orderID].Clone()
	c.mu.Unlock()
	return out, nil
}

// CancelOrder cancels a whole order with a mandatory audit reason.
// Confirm-then-apply, same as CancelItem.
func (c *Coordinator) CancelOrder(ctx context.Context, orderID uuid.UUID, reason string) (domain.Order, error) {
	ctx = context.WithoutCancel(ctx)

	if reason == "" {
		return domain.Order{}, ErrEmptyReason
	}

	release, err := c.acquire(orderID, uuid.Nil)
	if err != nil {
		return domain.Order{}, err
	}
	defer release()

	c.mu.Lock()
	order, ok := c.orders[orderID]
	if !ok {
		c.mu.Unlock()
		return domain.Order{}, ErrOrderNotFound
	}
	allowed := c.machine.CanTransitionOrder(order.Status, enum.OrderStatusCancelled)
	c.mu.Unlock()
	if !allowed {
		return domain.Order{}, fmt.Errorf("%w: cannot cancel %s order", ErrInvalidTransition, order.Status)
	}

	updated, err := c.backend.CancelOrder(ctx, orderID, reason)
	if err != nil {
		c.report("order cancellation failed", err)
		return domain.Order{}, fmt.Errorf("%w: %w", ErrUpdateFailed, err)
	}

	c.mu.Lock()
	c.applyLocked(updated)
	out := c.orders[orderID].Clone()
	c.mu.Unlock()
	return out, nil
}

// Refresh refetches today's orders and folds them into the cache. Stale
// rows (older than a confirmed local mutation) are discarded per entity.
func (c *Coordinator) Refresh(ctx context.Context) error {
	fetched, err := c.backend.ListOrders(ctx, api.ListOrdersQuery{Period: "today"})
	if err != nil {
		return fmt.Errorf("refresh orders: %w", err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, o := range fetched {
		c.applyLocked(o)
	}
	return nil
}

// ApplyAuthoritative folds one authoritative order (poll or push result)
// into the cache, subject to the timestamp authority rule.
func (c *Coordinator) ApplyAuthoritative(o domain.Order) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.applyLocked(o)
}

// Get returns a copy of one cached order.
func (c *Coordinator) Get(orderID uuid.UUID) (domain.Order, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	o, ok := c.orders[orderID]
	if !ok {
		return domain.Order{}, false
	}
	return o.Clone(), true
}

// List returns copies of all cached orders, oldest first.
func (c *Coordinator) List() []domain.Order {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.Order, 0, len(c.orders))
	for _, o := range c.orders {
		out = append(out, o.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OrderTime.Before(out[j].OrderTime) })
	return out
}

// GSTBreakdown recomputes the full tax breakdown for a cached order from
// its non-cancelled items.
func (c *Coordinator) GSTBreakdown(orderID uuid.UUID) (tax.Totals, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	o, ok := c.orders[orderID]
	if !ok {
		return tax.Totals{}, false
	}
	return tax.Compute(taxLines(&o), o.SGSTRate, o.CGSTRate), true
}

// IsPending reports whether a mutation for the given entity is in flight.
// Order-level operations use a zero itemID.
func (c *Coordinator) IsPending(orderID, itemID uuid.UUID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, busy := c.inflight[inflightKey{orderID: orderID, itemID: itemID}]
	return busy
}

// acquire takes the in-flight slot for an entity. At most one mutation per
// (order, item) pair may be outstanding; a second is rejected, not queued.
func (c *Coordinator) acquire(orderID, itemID uuid.UUID) (func(), error) {
	key := inflightKey{orderID: orderID, itemID: itemID}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, busy := c.inflight[key]; busy {
		return nil, ErrOperationInProgress
	}
	c.inflight[key] = struct{}{}
	return func() {
		c.mu.Lock()
		delete(c.inflight, key)
		c.mu.Unlock()
	}, nil
}

// applyLocked folds an authoritative order into the cache. A row is
// discarded when the cache already holds a same-or-newer version: an
// in-flight poll result must not clobber a confirmed local mutation, and
// arrival order proves nothing.
func (c *Coordinator) applyLocked(o domain.Order) {
	if cur, ok := c.orders[o.ID]; ok && !o.UpdatedAt.After(cur.UpdatedAt) {
		return
	}
	c.orders[o.ID] = o.Clone()
}

// rollback restores a pre-mutation snapshot, unless an authoritative newer
// version arrived while the failed call was in flight.
func (c *Coordinator) rollback(snapshot domain.Order) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cur, ok := c.orders[snapshot.ID]; ok && cur.UpdatedAt.After(snapshot.UpdatedAt) {
		return
	}
	c.orders[snapshot.ID] = snapshot
}

// report logs a failed mutation and surfaces it to the user.
func (c *Coordinator) report(msg string, err error) {
	c.log.Warn(msg, zap.Error(err))
	if c.notify != nil {
		c.notify.Notify(fmt.Sprintf("%s: %v", msg, err))
	}
}

// recomputeTotals reruns the tax engine over the order's non-cancelled
// items and updates the denormalized totals in place.
func recomputeTotals(o *domain.Order) {
	totals := tax.Compute(taxLines(o), o.SGSTRate, o.CGSTRate)
	o.SubTotal = totals.SubTotal
	o.SGSTAmount = totals.SGSTAmount
	o.CGSTAmount = totals.CGSTAmount
	o.TotalAmount = totals.TotalAmount
}

// taxLines converts an order's items to tax lines, excluding cancelled
// items. The tax engine itself is status-unaware.
func taxLines(o *domain.Order) []tax.Line {
	lines := make([]tax.Line, 0, len(o.Items))
	for _, it := range o.Items {
		if it.Status == enum.ItemStatusCancelled {
			continue
		}
		lines = append(lines, tax.Line{
			Price:        it.Price,
			Quantity:     it.Quantity,
			IncludeInGST: it.IncludeInGST,
		})
	}
	return lines
}

func validateOrderType(s string) error {
	switch s {
	case enum.OrderTypeDineIn, enum.OrderTypeTakeaway, enum.OrderTypeQuickBill:
		return nil
	}
	return ErrInvalidOrderType
}
