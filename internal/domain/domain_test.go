package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func TestOrderCloneIsDeep(t *testing.T) {
	tableID := uuid.New()
	o := Order{
		ID:      uuid.New(),
		TableID: &tableID,
		Items: []OrderItem{
			{ID: uuid.New(), Quantity: 2, AllowedNextStates: []string{"preparing"}},
		},
		SubTotal: decimal.RequireFromString("100"),
	}

	c := o.Clone()
	c.Items[0].Quantity = 9
	c.Items[0].AllowedNextStates[0] = "cancelled"
	*c.TableID = uuid.New()

	if o.Items[0].Quantity != 2 {
		t.Error("clone shares item slice with original")
	}
	if o.Items[0].AllowedNextStates[0] != "preparing" {
		t.Error("clone shares allowed-states slice with original")
	}
	if *o.TableID != tableID {
		t.Error("clone shares table id pointer with original")
	}
}

func TestTableCloneIsDeep(t *testing.T) {
	orderID := uuid.New()
	other := uuid.New()
	tab := Table{
		ID:             uuid.New(),
		CurrentOrderID: &orderID,
		MergedWith:     []uuid.UUID{other},
	}

	c := tab.Clone()
	c.MergedWith[0] = uuid.New()
	*c.CurrentOrderID = uuid.New()

	if tab.MergedWith[0] != other {
		t.Error("clone shares merged-with slice with original")
	}
	if *tab.CurrentOrderID != orderID {
		t.Error("clone shares order id pointer with original")
	}
}

func TestCategoryValidateParent(t *testing.T) {
	mainID := uuid.New()
	main := Category{ID: mainID}
	sub := Category{ID: uuid.New(), ParentCategoryID: &mainID}

	child := Category{ID: uuid.New()}
	if err := child.ValidateParent(main); err != nil {
		t.Errorf("parenting to a main category should be allowed: %v", err)
	}
	if err := child.ValidateParent(sub); err != ErrCategoryDepth {
		t.Errorf("parenting to a sub-category should fail with ErrCategoryDepth, got %v", err)
	}
}
