package api

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"taskboard-api/domain"
)

const (
	subscriberBuffer = 64
	writeWait        = 5 * time.Second
	pingPeriod       = 30 * time.Second
)

// Hub broadcasts change events to websocket subscribers. It is an outbox
// sink; a subscriber that falls behind loses events rather than stalling the
// publisher.
type Hub struct {
	logger   *log.Logger
	upgrader websocket.Upgrader

	mu   sync.Mutex
	subs map[chan []byte]struct{}
}

func NewHub(logger *log.Logger) *Hub {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Hub{
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 16 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		subs: make(map[chan []byte]struct{}),
	}
}

func (h *Hub) Name() string { return "websocket" }

// Immediate reports that Deliver never blocks, so subscribers see events in
// the order they were published.
func (h *Hub) Immediate() bool { return true }

func (h *Hub) Deliver(_ context.Context, ev domain.Event) error {
	msg, err := sonic.Marshal(ev)
	if err != nil {
		return err
	}
	h.broadcast(msg)
	return nil
}

func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

func (h *Hub) subscribe() chan []byte {
	ch := make(chan []byte, subscriberBuffer)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

func (h *Hub) unsubscribe(ch chan []byte) {
	h.mu.Lock()
	delete(h.subs, ch)
	h.mu.Unlock()
}

func (h *Hub) broadcast(msg []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- msg:
		default:
			h.logger.Debug("event subscriber is slow; dropping event")
		}
	}
}

func streamEvents(h *Hub) echo.HandlerFunc {
	return func(c echo.Context) error {
		conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
		if err != nil {
			// The upgrader has already written the error response.
			metricsFrom(c).SetErrorStage("upgrade")
			return nil
		}
		defer conn.Close()
		c.Response().Status = http.StatusSwitchingProtocols

		ch := h.subscribe()
		defer h.unsubscribe(ch)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		// Inbound frames are ignored; reading surfaces the peer closing.
		go func() {
			defer cancel()
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		ping := time.NewTicker(pingPeriod)
		defer ping.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case msg := <-ch:
				_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
					return nil
				}
			case <-ping.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
					return nil
				}
			}
		}
	}
}
