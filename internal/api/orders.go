package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/google/uuid"
	"github.com/kiwari-pos/terminal/internal/domain"
)

// ListOrdersQuery filters the order listing. Zero-value fields are omitted.
type ListOrdersQuery struct {
	Period    string // "today", "week", "month"
	StartDate string // YYYY-MM-DD
	EndDate   string // YYYY-MM-DD
	TableID   *uuid.UUID
}

func (q ListOrdersQuery) encode() string {
	v := url.Values{}
	if q.Period != "" {
		v.Set("period", q.Period)
	}
	if q.StartDate != "" {
		v.Set("start_date", q.StartDate)
	}
	if q.EndDate != "" {
		v.Set("end_date", q.EndDate)
	}
	if q.TableID != nil {
		v.Set("table_id", q.TableID.String())
	}
	if len(v) == 0 {
		return ""
	}
	return "?" + v.Encode()
}

// CreateOrderRequest is the draft submitted to POST /orders. Totals are
// computed by the terminal before submission; the backend recomputes and
// its response is authoritative.
type CreateOrderRequest struct {
	OrderType   string            `json:"order_type"`
	TableID     *uuid.UUID        `json:"table_id,omitempty"`
	StaffID     uuid.UUID         `json:"staff_id"`
	Items       []CreateOrderItem `json:"items"`
	SubTotal    string            `json:"sub_total"`
	SGSTRate    string            `json:"sgst_rate"`
	CGSTRate    string            `json:"cgst_rate"`
	SGSTAmount  string            `json:"sgst_amount"`
	CGSTAmount  string            `json:"cgst_amount"`
	TotalAmount string            `json:"total_amount"`
}

// CreateOrderItem is one draft line. Name and price are the menu snapshot
// taken at order time.
type CreateOrderItem struct {
	MenuItemID   uuid.UUID `json:"menu_item_id"`
	Name         string    `json:"name"`
	Price        string    `json:"price"`
	Quantity     int32     `json:"quantity"`
	Notes        string    `json:"notes"`
	IncludeInGST bool      `json:"include_in_gst"`
}

// UpdateOrderRequest updates order-level fields. Nil fields are left
// unchanged.
type UpdateOrderRequest struct {
	Status  *string    `json:"status,omitempty"`
	TableID *uuid.UUID `json:"table_id,omitempty"`
}

// UpdateOrderItemRequest updates quantity and/or notes on one item.
type UpdateOrderItemRequest struct {
	Quantity *int32  `json:"quantity,omitempty"`
	Notes    *string `json:"notes,omitempty"`
}

// StatusUpdateResult is the response to an item status change: the updated
// order and item plus the server-advised transition sets.
type StatusUpdateResult struct {
	Order                  domain.Order
	Item                   domain.OrderItem
	AllowedNextItemStates  []string
	AllowedNextOrderStates []string
}

// ListOrders fetches orders matching the query.
func (c *Client) ListOrders(ctx context.Context, q ListOrdersQuery) ([]domain.Order, error) {
	var payloads []orderPayload
	if err := c.get(ctx, "/orders"+q.encode(), &payloads); err != nil {
		return nil, err
	}
	orders := make([]domain.Order, 0, len(payloads))
	for _, p := range payloads {
		o, err := p.toDomain()
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, nil
}

// CreateOrder submits a draft and returns the authoritative order.
func (c *Client) CreateOrder(ctx context.Context, req CreateOrderRequest) (domain.Order, error) {
	var p orderPayload
	if err := c.do(ctx, http.MethodPost, "/orders", req, &p); err != nil {
		return domain.Order{}, err
	}
	return p.toDomain()
}

// UpdateOrder changes order-level fields and returns the authoritative
// order.
func (c *Client) UpdateOrder(ctx context.Context, orderID uuid.UUID, req UpdateOrderRequest) (domain.Order, error) {
	var p orderPayload
	if err := c.do(ctx, http.MethodPut, "/orders/"+orderID.String(), req, &p); err != nil {
		return domain.Order{}, err
	}
	return p.toDomain()
}

// DeleteOrder removes an order.
func (c *Client) DeleteOrder(ctx context.Context, orderID uuid.UUID) error {
	return c.do(ctx, http.MethodDelete, "/orders/"+orderID.String(), nil, nil)
}

// UpdateOrderItem changes quantity/notes on an item and returns the updated
// order with recomputed totals.
func (c *Client) UpdateOrderItem(ctx context.Context, itemID uuid.UUID, req UpdateOrderItemRequest) (domain.Order, error) {
	var p orderPayload
	if err := c.do(ctx, http.MethodPut, "/order-items/"+itemID.String(), req, &p); err != nil {
		return domain.Order{}, err
	}
	return p.toDomain()
}

// UpdateOrderItemStatus moves an item to a new status. The response carries
// the server-advised next states for both the item and its order.
func (c *Client) UpdateOrderItemStatus(ctx context.Context, itemID uuid.UUID, status string) (StatusUpdateResult, error) {
	body := struct {
		Status string `json:"status"`
	}{Status: status}
	var resp struct {
		Order                  orderPayload     `json:"order"`
		Item                   orderItemPayload `json:"item"`
		AllowedNextItemStates  []string         `json:"allowed_next_item_states"`
		AllowedNextOrderStates []string         `json:"allowed_next_order_states"`
	}
	if err := c.do(ctx, http.MethodPut, "/order-items/"+itemID.String()+"/status", body, &resp); err != nil {
		return StatusUpdateResult{}, err
	}
	order, err := resp.Order.toDomain()
	if err != nil {
		return StatusUpdateResult{}, err
	}
	item, err := resp.Item.toDomain()
	if err != nil {
		return StatusUpdateResult{}, err
	}
	return StatusUpdateResult{
		Order:                  order,
		Item:                   item,
		AllowedNextItemStates:  resp.AllowedNextItemStates,
		AllowedNextOrderStates: resp.AllowedNextOrderStates,
	}, nil
}

// CancelOrder cancels a whole order. The reason is recorded for audit.
func (c *Client) CancelOrder(ctx context.Context, orderID uuid.UUID, reason string) (domain.Order, error) {
	body := struct {
		Reason string `json:"reason"`
	}{Reason: reason}
	var p orderPayload
	if err := c.do(ctx, http.MethodPost, "/orders/"+orderID.String()+"/cancel", body, &p); err != nil {
		return domain.Order{}, err
	}
	return p.toDomain()
}

// CancelOrderItem cancels one item on an order. The reason is recorded for
// audit.
func (c *Client) CancelOrderItem(ctx context.Context, orderID, itemID uuid.UUID, reason string) (domain.Order, error) {
	body := struct {
		Reason string `json:"reason"`
	}{Reason: reason}
	path := fmt.Sprintf("/order-items/%s/items/%s/cancel", orderID, itemID)
	var p orderPayload
	if err := c.do(ctx, http.MethodPost, path, body, &p); err != nil {
		return domain.Order{}, err
	}
	return p.toDomain()
}
