// Package stream pushes check and alert events to connected websocket clients.
package stream

import (
	"context"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

const (
	EventStockUpdated  = "stock.updated"
	EventAlertSent     = "alert.sent"
	EventCheckComplete = "check.completed"
)

type Event struct {
	Type        string    `json:"type"`
	PortfolioID uint64    `json:"portfolio_id"`
	Symbol      string    `json:"symbol,omitempty"`
	Data        any       `json:"data,omitempty"`
	At          time.Time `json:"at"`
}

// Hub fans events out per user. Slow subscribers lose events rather than
// blocking the publisher.
type Hub struct {
	mu     sync.RWMutex
	subs   map[uint64]map[chan Event]struct{}
	buffer int
}

func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = 32
	}
	return &Hub{subs: map[uint64]map[chan Event]struct{}{}, buffer: buffer}
}

func (h *Hub) Subscribe(userID uint64) (<-chan Event, func()) {
	ch := make(chan Event, h.buffer)
	h.mu.Lock()
	if h.subs[userID] == nil {
		h.subs[userID] = map[chan Event]struct{}{}
	}
	h.subs[userID][ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs[userID], ch)
			if len(h.subs[userID]) == 0 {
				delete(h.subs, userID)
			}
			h.mu.Unlock()
			close(ch)
		})
	}
}

func (h *Hub) Publish(userID uint64, ev Event) {
	if h == nil {
		return
	}
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subs[userID] {
		select {
		case ch <- ev:
		default:
		}
	}
}

func (h *Hub) Subscribers(userID uint64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[userID])
}

// Serve upgrades the request and streams the user's events until the client
// goes away or ctx ends.
func (h *Hub) Serve(ctx context.Context, w http.ResponseWriter, r *http.Request, userID uint64, logger *zap.Logger) error {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		return err
	}
	defer conn.Close(websocket.StatusInternalError, "stream closed")

	events, unsubscribe := h.Subscribe(userID)
	defer unsubscribe()

	ctx = conn.CloseRead(ctx)
	ping := time.NewTicker(30 * time.Second)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "")
			return nil
		case <-ping.C:
			pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err := conn.Ping(pctx)
			cancel()
			if err != nil {
				return nil
			}
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			wctx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err := wsjson.Write(wctx, conn, ev)
			cancel()
			if err != nil {
				if logger != nil {
					logger.Debug("stream write failed", zap.Uint64("user_id", userID), zap.Error(err))
				}
				return nil
			}
		}
	}
}
