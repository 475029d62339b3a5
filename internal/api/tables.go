package api

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/kiwari-pos/terminal/internal/domain"
)

// CreateTableRequest adds a table (explicit add or split).
type CreateTableRequest struct {
	TableNumber int32      `json:"table_number"`
	Capacity    int32      `json:"capacity"`
	Status      string     `json:"status"`
	SplitFrom   *uuid.UUID `json:"split_from,omitempty"`
}

// ListTables fetches all tables for the restaurant.
func (c *Client) ListTables(ctx context.Context) ([]domain.Table, error) {
	var payloads []tablePayload
	if err := c.get(ctx, "/restaurant-tables", &payloads); err != nil {
		return nil, err
	}
	tables := make([]domain.Table, 0, len(payloads))
	for _, p := range payloads {
		tables = append(tables, p.toDomain())
	}
	return tables, nil
}

// CreateTable adds a table and returns it with its server-assigned id.
func (c *Client) CreateTable(ctx context.Context, req CreateTableRequest) (domain.Table, error) {
	var p tablePayload
	if err := c.do(ctx, http.MethodPost, "/restaurant-tables", req, &p); err != nil {
		return domain.Table{}, err
	}
	return p.toDomain(), nil
}

// UpdateTable replaces the full table row (PUT semantics) and returns the
// authoritative copy.
func (c *Client) UpdateTable(ctx context.Context, t domain.Table) (domain.Table, error) {
	var p tablePayload
	if err := c.do(ctx, http.MethodPut, "/restaurant-tables/"+t.ID.String(), tableToPayload(t), &p); err != nil {
		return domain.Table{}, err
	}
	return p.toDomain(), nil
}

// DeleteTable removes a table.
func (c *Client) DeleteTable(ctx context.Context, tableID uuid.UUID) error {
	return c.do(ctx, http.MethodDelete, "/restaurant-tables/"+tableID.String(), nil, nil)
}
