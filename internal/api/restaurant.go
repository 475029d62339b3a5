package api

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/kiwari-pos/terminal/internal/domain"
)

// UpdateRestaurantRequest changes the default GST rates and/or the
// order-tracking toggle. Nil fields are left unchanged.
type UpdateRestaurantRequest struct {
	SGSTRate             *string `json:"sgst_rate,omitempty"`
	CGSTRate             *string `json:"cgst_rate,omitempty"`
	OrderTrackingEnabled *bool   `json:"order_tracking_enabled,omitempty"`
}

// GetRestaurant fetches the restaurant settings.
func (c *Client) GetRestaurant(ctx context.Context, id uuid.UUID) (domain.Restaurant, error) {
	var p restaurantPayload
	if err := c.get(ctx, "/restaurants/"+id.String(), &p); err != nil {
		return domain.Restaurant{}, err
	}
	return p.toDomain()
}

// UpdateRestaurant changes restaurant settings and returns the new copy.
func (c *Client) UpdateRestaurant(ctx context.Context, id uuid.UUID, req UpdateRestaurantRequest) (domain.Restaurant, error) {
	var p restaurantPayload
	if err := c.do(ctx, http.MethodPut, "/restaurants/"+id.String(), req, &p); err != nil {
		return domain.Restaurant{}, err
	}
	return p.toDomain()
}
