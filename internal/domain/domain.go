package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrCategoryDepth is returned when a sub-category is parented to another
// sub-category. The category tree is two levels deep at most.
var ErrCategoryDepth = errors.New("parent must be a main category")

// MenuItem is a catalog entry. Orders reference menu items but never own
// them; the price an order charges is snapshotted onto the OrderItem.
type MenuItem struct {
	ID           uuid.UUID
	Name         string
	Price        decimal.Decimal
	CategoryID   uuid.UUID
	Available    bool
	IncludeInGST bool
}

// Category groups menu items. A nil ParentCategoryID marks a main category.
type Category struct {
	ID               uuid.UUID
	Name             string
	ParentCategoryID *uuid.UUID
	IncludeInGST     bool
}

// ValidateParent enforces the two-level category tree: a category's parent,
// if set, must itself be a main category.
func (c Category) ValidateParent(parent Category) error {
	if parent.ParentCategoryID != nil {
		return ErrCategoryDepth
	}
	return nil
}

// Restaurant carries the terminal-relevant settings: default GST rates and
// the order-tracking toggle that selects the status state space.
type Restaurant struct {
	ID                   uuid.UUID
	Name                 string
	SGSTRate             decimal.Decimal
	CGSTRate             decimal.Decimal
	OrderTrackingEnabled bool
	UpdatedAt            time.Time
}

// OrderItem is one line on an order. Name and Price are a snapshot of the
// menu item at order time and must not track later catalog changes.
type OrderItem struct {
	ID           uuid.UUID
	OrderID      uuid.UUID
	MenuItemID   uuid.UUID
	Name         string
	Price        decimal.Decimal
	Quantity     int32
	Notes        string
	IncludeInGST bool
	Status       string

	// AllowedNextStates is the server-advised transition set for this item.
	// When non-nil it overrides the local transition table.
	AllowedNextStates []string

	UpdatedAt time.Time
}

// Clone returns a deep copy of the item.
func (i OrderItem) Clone() OrderItem {
	out := i
	if i.AllowedNextStates != nil {
		out.AllowedNextStates = make([]string, len(i.AllowedNextStates))
		copy(out.AllowedNextStates, i.AllowedNextStates)
	}
	return out
}

// Order is the aggregate the coordinator caches. Totals are denormalized and
// recomputed on every accepted item mutation; the backend's copy wins on
// confirmation.
type Order struct {
	ID          uuid.UUID
	OrderType   string
	TableID     *uuid.UUID
	StaffID     uuid.UUID
	Status      string
	OrderTime   time.Time
	Items       []OrderItem
	SubTotal    decimal.Decimal
	SGSTRate    decimal.Decimal
	CGSTRate    decimal.Decimal
	SGSTAmount  decimal.Decimal
	CGSTAmount  decimal.Decimal
	TotalAmount decimal.Decimal
	UpdatedAt   time.Time
}

// Clone returns a deep copy of the order, suitable as a rollback snapshot.
func (o Order) Clone() Order {
	out := o
	if o.TableID != nil {
		id := *o.TableID
		out.TableID = &id
	}
	if o.Items != nil {
		out.Items = make([]OrderItem, len(o.Items))
		for i, it := range o.Items {
			out.Items[i] = it.Clone()
		}
	}
	return out
}

// Item returns a pointer to the item with the given id, or nil.
func (o *Order) Item(itemID uuid.UUID) *OrderItem {
	for i := range o.Items {
		if o.Items[i].ID == itemID {
			return &o.Items[i]
		}
	}
	return nil
}

// Table is one physical table. MergedWith is symmetric: if A lists B then B
// lists A (or the survivor, after a merge).
type Table struct {
	ID             uuid.UUID
	TableNumber    int32
	Capacity       int32
	Status         string
	CurrentOrderID *uuid.UUID
	MergedWith     []uuid.UUID
	SplitFrom      *uuid.UUID
	UpdatedAt      time.Time
}

// Clone returns a deep copy of the table, suitable as a rollback snapshot.
func (t Table) Clone() Table {
	out := t
	if t.CurrentOrderID != nil {
		id := *t.CurrentOrderID
		out.CurrentOrderID = &id
	}
	if t.SplitFrom != nil {
		id := *t.SplitFrom
		out.SplitFrom = &id
	}
	if t.MergedWith != nil {
		out.MergedWith = make([]uuid.UUID, len(t.MergedWith))
		copy(out.MergedWith, t.MergedWith)
	}
	return out
}
