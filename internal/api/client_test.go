package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// staticToken is a TokenSource returning a fixed token.
type staticToken string

func (s staticToken) Token(context.Context) (string, error) { return string(s), nil }

func newTestClient(t *testing.T, r chi.Router) *Client {
	t.Helper()
	server := httptest.NewServer(r)
	t.Cleanup(server.Close)
	c := New(server.URL, server.Client())
	c.SetTokenSource(staticToken("test-token"))
	return c
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func sampleOrderJSON(id uuid.UUID) map[string]any {
	return map[string]any{
		"id":           id,
		"order_type":   "dine-in",
		"staff_id":     uuid.New(),
		"status":       "placed",
		"order_time":   time.Now().UTC().Format(time.RFC3339),
		"sub_total":    "200",
		"sgst_rate":    "2.5",
		"cgst_rate":    "2.5",
		"sgst_amount":  "5",
		"cgst_amount":  "5",
		"total_amount": "210",
		"updated_at":   time.Now().UTC().Format(time.RFC3339),
		"items": []map[string]any{{
			"id":             uuid.New(),
			"order_id":       id,
			"menu_item_id":   uuid.New(),
			"name":           "Paneer Tikka",
			"price":          "100",
			"quantity":       2,
			"include_in_gst": true,
			"status":         "placed",
		}},
	}
}

func TestCreateOrderRoundTrip(t *testing.T) {
	orderID := uuid.New()
	var gotAuth string
	var gotBody CreateOrderRequest

	r := chi.NewRouter()
	r.Post("/orders", func(w http.ResponseWriter, req *http.Request) {
		gotAuth = req.Header.Get("Authorization")
		if err := json.NewDecoder(req.Body).Decode(&gotBody); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusCreated, sampleOrderJSON(orderID))
	})
	c := newTestClient(t, r)

	req := CreateOrderRequest{
		OrderType:   "dine-in",
		StaffID:     uuid.New(),
		SubTotal:    "200",
		SGSTRate:    "2.5",
		CGSTRate:    "2.5",
		SGSTAmount:  "5",
		CGSTAmount:  "5",
		TotalAmount: "210",
		Items: []CreateOrderItem{
			{MenuItemID: uuid.New(), Name: "Paneer Tikka", Price: "100", Quantity: 2, IncludeInGST: true},
		},
	}
	got, err := c.CreateOrder(context.Background(), req)
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}

	if gotAuth != "Bearer test-token" {
		t.Errorf("Authorization = %q, want bearer token", gotAuth)
	}
	if gotBody.TotalAmount != "210" || len(gotBody.Items) != 1 {
		t.Errorf("submitted body = %+v", gotBody)
	}
	if got.ID != orderID {
		t.Errorf("order id = %s, want %s", got.ID, orderID)
	}
	if !got.SubTotal.Equal(decimal.RequireFromString("200")) {
		t.Errorf("sub_total = %s, want 200", got.SubTotal)
	}
	if len(got.Items) != 1 || !got.Items[0].Price.Equal(decimal.RequireFromString("100")) {
		t.Errorf("items decoded wrong: %+v", got.Items)
	}
}

func TestUpdateOrderRoundTrip(t *testing.T) {
	orderID := uuid.New()
	var gotPath string
	var gotBody map[string]any

	r := chi.NewRouter()
	r.Put("/orders/{id}", func(w http.ResponseWriter, req *http.Request) {
		gotPath = req.URL.Path
		if err := json.NewDecoder(req.Body).Decode(&gotBody); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		payload := sampleOrderJSON(orderID)
		payload["status"] = "served"
		writeJSON(w, http.StatusOK, payload)
	})
	c := newTestClient(t, r)

	newStatus := "served"
	got, err := c.UpdateOrder(context.Background(), orderID, UpdateOrderRequest{Status: &newStatus})
	if err != nil {
		t.Fatalf("UpdateOrder: %v", err)
	}

	if gotPath != "/orders/"+orderID.String() {
		t.Errorf("path = %q, want /orders/%s", gotPath, orderID)
	}
	if gotBody["status"] != "served" {
		t.Errorf("submitted status = %v, want served", gotBody["status"])
	}
	if _, present := gotBody["table_id"]; present {
		t.Error("nil table_id must be omitted from the body")
	}
	if got.ID != orderID || got.Status != "served" {
		t.Errorf("order = %+v", got)
	}
}

func TestListOrdersQueryEncoding(t *testing.T) {
	tableID := uuid.New()
	var gotQuery string

	r := chi.NewRouter()
	r.Get("/orders", func(w http.ResponseWriter, req *http.Request) {
		gotQuery = req.URL.RawQuery
		writeJSON(w, http.StatusOK, []map[string]any{sampleOrderJSON(uuid.New())})
	})
	c := newTestClient(t, r)

	got, err := c.ListOrders(context.Background(), ListOrdersQuery{
		Period:  "today",
		TableID: &tableID,
	})
	if err != nil {
		t.Fatalf("ListOrders: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("orders = %d, want 1", len(got))
	}

	values, err := url.ParseQuery(gotQuery)
	if err != nil {
		t.Fatalf("parse query %q: %v", gotQuery, err)
	}
	if values.Get("period") != "today" {
		t.Errorf("period = %q, want today", values.Get("period"))
	}
	if values.Get("table_id") != tableID.String() {
		t.Errorf("table_id = %q, want %s", values.Get("table_id"), tableID)
	}
	if values.Has("start_date") || values.Has("end_date") {
		t.Errorf("zero-value date fields must be omitted, got %q", gotQuery)
	}
}

func TestUpdateOrderItemStatusDecodesHints(t *testing.T) {
	orderID := uuid.New()
	itemID := uuid.New()

	r := chi.NewRouter()
	r.Put("/order-items/{id}/status", func(w http.ResponseWriter, req *http.Request) {
		if chi.URLParam(req, "id") != itemID.String() {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "item not found"})
			return
		}
		item := map[string]any{
			"id": itemID, "order_id": orderID, "name": "Chai",
			"price": "20", "quantity": 1, "status": "preparing",
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"order":                     sampleOrderJSON(orderID),
			"item":                      item,
			"allowed_next_item_states":  []string{"ready", "cancelled"},
			"allowed_next_order_states": []string{"served"},
		})
	})
	c := newTestClient(t, r)

	res, err := c.UpdateOrderItemStatus(context.Background(), itemID, "preparing")
	if err != nil {
		t.Fatalf("UpdateOrderItemStatus: %v", err)
	}
	if res.Item.Status != "preparing" {
		t.Errorf("item status = %s, want preparing", res.Item.Status)
	}
	if len(res.AllowedNextItemStates) != 2 || res.AllowedNextItemStates[0] != "ready" {
		t.Errorf("allowed_next_item_states = %v", res.AllowedNextItemStates)
	}
	if res.Order.ID != orderID {
		t.Errorf("order id = %s, want %s", res.Order.ID, orderID)
	}
}

func TestCancelOrderItemPathAndReason(t *testing.T) {
	orderID := uuid.New()
	itemID := uuid.New()
	var gotReason string

	r := chi.NewRouter()
	r.Post("/order-items/{oid}/items/{iid}/cancel", func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			Reason string `json:"reason"`
		}
		json.NewDecoder(req.Body).Decode(&body) //nolint:errcheck
		gotReason = body.Reason
		writeJSON(w, http.StatusOK, sampleOrderJSON(orderID))
	})
	c := newTestClient(t, r)

	if _, err := c.CancelOrderItem(context.Background(), orderID, itemID, "spilled"); err != nil {
		t.Fatalf("CancelOrderItem: %v", err)
	}
	if gotReason != "spilled" {
		t.Errorf("reason = %q, want spilled", gotReason)
	}
}

func TestErrorEnvelope(t *testing.T) {
	r := chi.NewRouter()
	r.Post("/orders", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": "items are required"})
	})
	c := newTestClient(t, r)

	_, err := c.CreateOrder(context.Background(), CreateOrderRequest{})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("got %v, want *APIError", err)
	}
	if apiErr.StatusCode != http.StatusUnprocessableEntity || apiErr.Message != "items are required" {
		t.Errorf("APIError = %+v", apiErr)
	}
}

func TestGetRetriesOn5xx(t *testing.T) {
	attempts := 0
	r := chi.NewRouter()
	r.Get("/restaurant-tables", func(w http.ResponseWriter, req *http.Request) {
		attempts++
		if attempts < 3 {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "db hiccup"})
			return
		}
		writeJSON(w, http.StatusOK, []map[string]any{})
	})
	c := newTestClient(t, r)

	if _, err := c.ListTables(context.Background()); err != nil {
		t.Fatalf("ListTables should succeed after retries: %v", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestGetDoesNotRetryOn4xx(t *testing.T) {
	attempts := 0
	r := chi.NewRouter()
	r.Get("/restaurants/{id}", func(w http.ResponseWriter, req *http.Request) {
		attempts++
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no such restaurant"})
	})
	c := newTestClient(t, r)

	_, err := c.GetRestaurant(context.Background(), uuid.New())
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusNotFound {
		t.Fatalf("got %v, want 404 APIError", err)
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1 (4xx is permanent)", attempts)
	}
}

func TestMutationsAreNeverRetried(t *testing.T) {
	attempts := 0
	r := chi.NewRouter()
	r.Post("/orders", func(w http.ResponseWriter, req *http.Request) {
		attempts++
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "boom"})
	})
	c := newTestClient(t, r)

	_, err := c.CreateOrder(context.Background(), CreateOrderRequest{})
	if err == nil {
		t.Fatal("expected error")
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want exactly 1 (mutations must not be retried)", attempts)
	}
}
