// Package ws consumes the backend's order event stream. The backend pushes
// the same wire payloads its REST endpoints return, wrapped in a typed
// envelope; the feed folds them into the caches through the same timestamp
// authority rule as poll results.
package ws

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"
	"github.com/kiwari-pos/terminal/internal/api"
	"github.com/kiwari-pos/terminal/internal/domain"
	"go.uber.org/zap"
)

const (
	// Time allowed to read the next message from the peer. The backend
	// pings inside this window; a silent connection is a dead one.
	pongWait = 60 * time.Second

	// Time allowed to write a control message to the peer.
	writeWait = 10 * time.Second
)

// Event is one message from the backend's event stream.
type Event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Event types the feed understands. Unknown types are logged and skipped.
const (
	EventOrderCreated = "order.created"
	EventOrderUpdated = "order.updated"
	EventTableUpdated = "table.updated"
)

// OrderSink receives authoritative orders. Satisfied by *orders.Coordinator.
type OrderSink interface {
	ApplyAuthoritative(o domain.Order)
}

// TableSink receives authoritative tables. Satisfied by *tables.Manager.
type TableSink interface {
	ApplyAuthoritative(t domain.Table)
}

// TokenFunc supplies the token appended to the dial URL. The backend
// authenticates the socket via query param, not header.
type TokenFunc func(ctx context.Context) (string, error)

// Feed maintains the WebSocket connection and dispatches events.
type Feed struct {
	url    string
	token  TokenFunc
	orders OrderSink
	tables TableSink
	log    *zap.Logger
}

// NewFeed creates a Feed for the given ws URL
// (e.g. wss://host/ws/restaurants/{id}/orders).
func NewFeed(url string, token TokenFunc, orders OrderSink, tables TableSink, log *zap.Logger) *Feed {
	if log == nil {
		log = zap.NewNop()
	}
	return &Feed{url: url, token: token, orders: orders, tables: tables, log: log}
}

// Run connects and reads until ctx is cancelled, reconnecting with
// exponential backoff after any connection loss. The backoff resets once a
// connection delivers a message.
func (f *Feed) Run(ctx context.Context) {
	bo := backoff.NewExponentialBackOff()
	for {
		if ctx.Err() != nil {
			return
		}
		delivered, err := f.connectAndRead(ctx)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			f.log.Warn("feed disconnected", zap.Error(err))
		}
		if delivered {
			bo.Reset()
		}
		select {
		case <-time.After(bo.NextBackOff()):
		case <-ctx.Done():
			return
		}
	}
}

// connectAndRead dials once and pumps messages until the connection drops
// or ctx is cancelled. Reports whether at least one event was delivered.
func (f *Feed) connectAndRead(ctx context.Context) (bool, error) {
	tok, err := f.token(ctx)
	if err != nil {
		return false, err
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, f.url+"?token="+tok, nil)
	if err != nil {
		return false, err
	}
	defer conn.Close()

	// Close the socket when ctx is cancelled so ReadMessage unblocks.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			conn.Close()
		case <-done:
		}
	}()

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPingHandler(func(appData string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(writeWait))
	})

	delivered := false
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			return delivered, err
		}
		conn.SetReadDeadline(time.Now().Add(pongWait))
		if f.dispatch(message) {
			delivered = true
		}
	}
}

// dispatch decodes one envelope and hands it to the right sink.
func (f *Feed) dispatch(message []byte) bool {
	var ev Event
	if err := json.Unmarshal(message, &ev); err != nil {
		f.log.Warn("bad feed message", zap.Error(err))
		return false
	}
	switch ev.Type {
	case EventOrderCreated, EventOrderUpdated:
		o, err := api.DecodeOrder(ev.Payload)
		if err != nil {
			f.log.Warn("bad order payload", zap.String("type", ev.Type), zap.Error(err))
			return false
		}
		f.orders.ApplyAuthoritative(o)
	case EventTableUpdated:
		t, err := api.DecodeTable(ev.Payload)
		if err != nil {
			f.log.Warn("bad table payload", zap.Error(err))
			return false
		}
		f.tables.ApplyAuthoritative(t)
	default:
		f.log.Debug("unknown feed event", zap.String("type", ev.Type))
		return false
	}
	return true
}
