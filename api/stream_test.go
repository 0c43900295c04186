package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus/hooks/test"

	"taskboard-api/domain"
	"taskboard-api/storage"
)

func waitForSubscribers(t *testing.T, hub *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for hub.Subscribers() != n {
		if time.Now().After(deadline) {
			t.Fatalf("expected %d subscribers, got %d", n, hub.Subscribers())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestEventStreamDeliversChanges(t *testing.T) {
	logger, _ := test.NewNullLogger()
	hub := NewHub(logger)
	outbox := NewOutbox(OutboxConfig{Workers: 1, BufferSize: 8}, logger, hub)
	outbox.Start()
	t.Cleanup(outbox.Shutdown)

	e := echo.New()
	Register(e, storage.New(), outbox, hub, logger)
	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/events"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	if resp.StatusCode != http.StatusSwitchingProtocols {
		t.Fatalf("expected 101, got %d", resp.StatusCode)
	}
	waitForSubscribers(t, hub, 1)

	res, err := http.Post(srv.URL+"/api/v1/boards", echo.MIMEApplicationJSON, strings.NewReader(`{"name":"live","description":"d"}`))
	if err != nil {
		t.Fatalf("post board: %v", err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", res.StatusCode)
	}

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	mt, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read event: %v", err)
	}
	if mt != websocket.TextMessage {
		t.Fatalf("expected text frame, got %d", mt)
	}
	var ev domain.Event
	if err := sonic.Unmarshal(msg, &ev); err != nil {
		t.Fatalf("decode event: %v", err)
	}
	if ev.Type != domain.BoardCreated || ev.EntityType != domain.EntityBoard || ev.EntityID != "0" {
		t.Fatalf("unexpected event: %+v", ev)
	}

	conn.Close()
	waitForSubscribers(t, hub, 0)
}

func TestHubReceivesEventsInPublishOrder(t *testing.T) {
	logger, _ := test.NewNullLogger()
	hub := NewHub(logger)
	outbox := NewOutbox(OutboxConfig{Workers: 4, BufferSize: 64}, logger, hub)
	outbox.Start()
	defer outbox.Shutdown()

	ch := hub.subscribe()
	defer hub.unsubscribe(ch)

	const n = 40
	for i := 0; i < n; i++ {
		eventType := domain.TaskCreated
		if i%2 == 1 {
			eventType = domain.TaskDeleted
		}
		outbox.Publish(newEvent(domain.EntityTask, strconv.Itoa(i/2), eventType, nil))
	}

	var last int64
	for i := 0; i < n; i++ {
		select {
		case msg := <-ch:
			var ev domain.Event
			if err := sonic.Unmarshal(msg, &ev); err != nil {
				t.Fatalf("decode event: %v", err)
			}
			if ev.EntityID != strconv.Itoa(i/2) || ev.Timestamp <= last {
				t.Fatalf("event %d out of order: %+v", i, ev)
			}
			if (i%2 == 0) != (ev.Type == domain.TaskCreated) {
				t.Fatalf("event %d: unexpected type %s", i, ev.Type)
			}
			last = ev.Timestamp
		case <-time.After(time.Second):
			t.Fatalf("expected %d events, got %d", n, i)
		}
	}
	if stats := outbox.Stats(); stats.Delivered != n || stats.Buffered != 0 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestHubDropsForSlowSubscriber(t *testing.T) {
	hub := NewHub(nil)
	ch := hub.subscribe()
	defer hub.unsubscribe(ch)

	for i := 0; i < subscriberBuffer+10; i++ {
		if err := hub.Deliver(context.Background(), newEvent(domain.EntityBoard, "0", domain.BoardUpdated, nil)); err != nil {
			t.Fatalf("deliver: %v", err)
		}
	}
	if got := len(ch); got != subscriberBuffer {
		t.Fatalf("expected buffer to hold %d events, got %d", subscriberBuffer, got)
	}
}

func TestEventStreamRejectsPlainHTTP(t *testing.T) {
	logger, _ := test.NewNullLogger()
	e := echo.New()
	Register(e, storage.New(), nil, NewHub(logger), logger)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/events", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for a non-upgrade request, got %d", rec.Code)
	}
}
