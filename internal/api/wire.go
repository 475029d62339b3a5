package api

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kiwari-pos/terminal/internal/domain"
	"github.com/shopspring/decimal"
)

// Wire representations. Monetary fields travel as strings so the backend
// and terminal agree on exact decimal values.

type orderPayload struct {
	ID          uuid.UUID          `json:"id"`
	OrderType   string             `json:"order_type"`
	TableID     *uuid.UUID         `json:"table_id"`
	StaffID     uuid.UUID          `json:"staff_id"`
	Status      string             `json:"status"`
	OrderTime   time.Time          `json:"order_time"`
	Items       []orderItemPayload `json:"items"`
	SubTotal    string             `json:"sub_total"`
	SGSTRate    string             `json:"sgst_rate"`
	CGSTRate    string             `json:"cgst_rate"`
	SGSTAmount  string             `json:"sgst_amount"`
	CGSTAmount  string             `json:"cgst_amount"`
	TotalAmount string             `json:"total_amount"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

type orderItemPayload struct {
	ID                uuid.UUID `json:"id"`
	OrderID           uuid.UUID `json:"order_id"`
	MenuItemID        uuid.UUID `json:"menu_item_id"`
	Name              string    `json:"name"`
	Price             string    `json:"price"`
	Quantity          int32     `json:"quantity"`
	Notes             string    `json:"notes"`
	IncludeInGST      bool      `json:"include_in_gst"`
	Status            string    `json:"status"`
	AllowedNextStates []string  `json:"allowed_next_states"`
	UpdatedAt         time.Time `json:"updated_at"`
}

type tablePayload struct {
	ID             uuid.UUID   `json:"id"`
	TableNumber    int32       `json:"table_number"`
	Capacity       int32       `json:"capacity"`
	Status         string      `json:"status"`
	CurrentOrderID *uuid.UUID  `json:"current_order_id"`
	MergedWith     []uuid.UUID `json:"merged_with"`
	SplitFrom      *uuid.UUID  `json:"split_from"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

type restaurantPayload struct {
	ID                   uuid.UUID `json:"id"`
	Name                 string    `json:"name"`
	SGSTRate             string    `json:"sgst_rate"`
	CGSTRate             string    `json:"cgst_rate"`
	OrderTrackingEnabled bool      `json:"order_tracking_enabled"`
	UpdatedAt            time.Time `json:"updated_at"`
}

func parseDecimal(field, s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse %s %q: %w", field, s, err)
	}
	return d, nil
}

func (p orderPayload) toDomain() (domain.Order, error) {
	o := domain.Order{
		ID:        p.ID,
		OrderType: p.OrderType,
		TableID:   p.TableID,
		StaffID:   p.StaffID,
		Status:    p.Status,
		OrderTime: p.OrderTime,
		UpdatedAt: p.UpdatedAt,
	}
	var err error
	if o.SubTotal, err = parseDecimal("sub_total", p.SubTotal); err != nil {
		return domain.Order{}, err
	}
	if o.SGSTRate, err = parseDecimal("sgst_rate", p.SGSTRate); err != nil {
		return domain.Order{}, err
	}
	if o.CGSTRate, err = parseDecimal("cgst_rate", p.CGSTRate); err != nil {
		return domain.Order{}, err
	}
	if o.SGSTAmount, err = parseDecimal("sgst_amount", p.SGSTAmount); err != nil {
		return domain.Order{}, err
	}
	if o.CGSTAmount, err = parseDecimal("cgst_amount", p.CGSTAmount); err != nil {
		return domain.Order{}, err
	}
	if o.TotalAmount, err = parseDecimal("total_amount", p.TotalAmount); err != nil {
		return domain.Order{}, err
	}
	for _, ip := range p.Items {
		item, err := ip.toDomain()
		if err != nil {
			return domain.Order{}, err
		}
		o.Items = append(o.Items, item)
	}
	return o, nil
}

func (p orderItemPayload) toDomain() (domain.OrderItem, error) {
	price, err := parseDecimal("price", p.Price)
	if err != nil {
		return domain.OrderItem{}, err
	}
	return domain.OrderItem{
		ID:                p.ID,
		OrderID:           p.OrderID,
		MenuItemID:        p.MenuItemID,
		Name:              p.Name,
		Price:             price,
		Quantity:          p.Quantity,
		Notes:             p.Notes,
		IncludeInGST:      p.IncludeInGST,
		Status:            p.Status,
		AllowedNextStates: p.AllowedNextStates,
		UpdatedAt:         p.UpdatedAt,
	}, nil
}

func (p tablePayload) toDomain() domain.Table {
	return domain.Table{
		ID:             p.ID,
		TableNumber:    p.TableNumber,
		Capacity:       p.Capacity,
		Status:         p.Status,
		CurrentOrderID: p.CurrentOrderID,
		MergedWith:     p.MergedWith,
		SplitFrom:      p.SplitFrom,
		UpdatedAt:      p.UpdatedAt,
	}
}

func tableToPayload(t domain.Table) tablePayload {
	return tablePayload{
		ID:             t.ID,
		TableNumber:    t.TableNumber,
		Capacity:       t.Capacity,
		Status:         t.Status,
		CurrentOrderID: t.CurrentOrderID,
		MergedWith:     t.MergedWith,
		SplitFrom:      t.SplitFrom,
		UpdatedAt:      t.UpdatedAt,
	}
}

func (p restaurantPayload) toDomain() (domain.Restaurant, error) {
	sgst, err := parseDecimal("sgst_rate", p.SGSTRate)
	if err != nil {
		return domain.Restaurant{}, err
	}
	cgst, err := parseDecimal("cgst_rate", p.CGSTRate)
	if err != nil {
		return domain.Restaurant{}, err
	}
	return domain.Restaurant{
		ID:                   p.ID,
		Name:                 p.Name,
		SGSTRate:             sgst,
		CGSTRate:             cgst,
		OrderTrackingEnabled: p.OrderTrackingEnabled,
		UpdatedAt:            p.UpdatedAt,
	}, nil
}

// DecodeOrder decodes a wire-format order. Used by the live feed, which
// receives the same payloads the REST endpoints return.
func DecodeOrder(data []byte) (domain.Order, error) {
	var p orderPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return domain.Order{}, fmt.Errorf("decode order: %w", err)
	}
	return p.toDomain()
}

// DecodeTable decodes a wire-format table.
func DecodeTable(data []byte) (domain.Table, error) {
	var p tablePayload
	if err := json.Unmarshal(data, &p); err != nil {
		return domain.Table{}, fmt.Errorf("decode table: %w", err)
	}
	return p.toDomain(), nil
}
