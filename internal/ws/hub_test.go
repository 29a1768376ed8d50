package ws

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cafe-pos/api/internal/auth"
	"github.com/cafe-pos/api/internal/enum"
	"github.com/cafe-pos/api/internal/events"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// mockClient creates a client without a real connection.
func mockClient(hub *Hub, screen string) *Client {
	return &Client{
		hub:    hub,
		screen: screen,
		send:   make(chan []byte, 256),
	}
}

func startHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub(quietLogger())
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)
	return hub
}

func receive(t *testing.T, c *Client) events.Event {
	t.Helper()
	select {
	case msg := <-c.send:
		var e events.Event
		if err := json.Unmarshal(msg, &e); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		return e
	case <-time.After(100 * time.Millisecond):
		t.Fatalf("%s client received nothing", c.screen)
	}
	return events.Event{}
}

func expectSilence(t *testing.T, c *Client) {
	t.Helper()
	select {
	case msg := <-c.send:
		t.Fatalf("%s client should not receive %s", c.screen, msg)
	case <-time.After(30 * time.Millisecond):
	}
}

func TestScreensFor(t *testing.T) {
	cases := map[string][]string{
		enum.EventOrderCreated:       {ScreenKitchen, ScreenFloor},
		enum.EventOrderStatusChanged: {ScreenKitchen, ScreenFloor},
		enum.EventTableStatusChanged: {ScreenFloor, ScreenBilling},
		enum.EventPaymentRecorded:    {ScreenBilling, ScreenFloor},
		"menu.updated":               nil,
	}
	for typ, want := range cases {
		got := ScreensFor(typ)
		if strings.Join(got, ",") != strings.Join(want, ",") {
			t.Errorf("%s: got %v, want %v", typ, got, want)
		}
	}
}

func TestHubRegistration(t *testing.T) {
	hub := startHub(t)
	client := mockClient(hub, ScreenKitchen)

	hub.register <- client
	time.Sleep(10 * time.Millisecond)

	if hub.ClientCount(ScreenKitchen) != 1 {
		t.Fatal("client not registered in kitchen room")
	}

	hub.unregister <- client
	time.Sleep(10 * time.Millisecond)

	hub.mu.RLock()
	defer hub.mu.RUnlock()
	if hub.rooms[ScreenKitchen] != nil {
		t.Fatal("kitchen room not cleaned up after last client unregistered")
	}
}

func TestPublishRoutesOrderEvents(t *testing.T) {
	hub := startHub(t)
	kitchen := mockClient(hub, ScreenKitchen)
	floor := mockClient(hub, ScreenFloor)
	billing := mockClient(hub, ScreenBilling)
	for _, c := range []*Client{kitchen, floor, billing} {
		hub.register <- c
	}
	time.Sleep(10 * time.Millisecond)

	e := events.New(events.OrderStatusChanged{OrderID: uuid.New(), TableID: 3, From: "pending", To: "preparing"}, time.Now())
	if err := hub.Publish(context.Background(), e); err != nil {
		t.Fatalf("publish: %v", err)
	}

	if got := receive(t, kitchen); got.Type != enum.EventOrderStatusChanged {
		t.Errorf("kitchen: got %s", got.Type)
	}
	if got := receive(t, floor); got.Type != enum.EventOrderStatusChanged {
		t.Errorf("floor: got %s", got.Type)
	}
	expectSilence(t, billing)
}

func TestPublishRoutesPaymentEvents(t *testing.T) {
	hub := startHub(t)
	kitchen := mockClient(hub, ScreenKitchen)
	billing1 := mockClient(hub, ScreenBilling)
	billing2 := mockClient(hub, ScreenBilling)
	for _, c := range []*Client{kitchen, billing1, billing2} {
		hub.register <- c
	}
	time.Sleep(10 * time.Millisecond)

	e := events.New(events.PaymentRecorded{TransactionID: uuid.New(), TableID: 3}, time.Now())
	if err := hub.Publish(context.Background(), e); err != nil {
		t.Fatalf("publish: %v", err)
	}

	receive(t, billing1)
	receive(t, billing2)
	expectSilence(t, kitchen)
}

func TestSlowClientIsDropped(t *testing.T) {
	hub := startHub(t)
	slow := &Client{hub: hub, screen: ScreenFloor, send: make(chan []byte)}
	hub.register <- slow
	time.Sleep(10 * time.Millisecond)

	_ = hub.Publish(context.Background(), events.New(events.TableStatusChanged{TableID: 1}, time.Now()))
	time.Sleep(20 * time.Millisecond)

	if hub.ClientCount(ScreenFloor) != 0 {
		t.Fatal("client with full buffer should be unregistered")
	}
	if _, ok := <-slow.send; ok {
		t.Fatal("send channel should be closed")
	}
}

func TestRunClosesClientsOnShutdown(t *testing.T) {
	hub := NewHub(quietLogger())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(done)
	}()

	c := mockClient(hub, ScreenBilling)
	hub.register <- c
	time.Sleep(10 * time.Millisecond)
	cancel()
	<-done

	if _, ok := <-c.send; ok {
		t.Fatal("send channel should be closed on shutdown")
	}
}

func TestJoinAndLeaveAfterShutdown(t *testing.T) {
	hub := NewHub(quietLogger())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(done)
	}()
	cancel()
	<-done

	c := mockClient(hub, ScreenKitchen)
	returned := make(chan bool, 1)
	go func() {
		ok := hub.join(c)
		hub.leave(c)
		returned <- ok
	}()
	select {
	case ok := <-returned:
		if ok {
			t.Fatal("join should fail once the hub has stopped")
		}
	case <-time.After(time.Second):
		t.Fatal("join/leave blocked after shutdown")
	}
}

func TestServeWSAfterShutdown(t *testing.T) {
	const secret = "test-secret"
	hub := NewHub(quietLogger())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(done)
	}()
	cancel()
	<-done

	served := make(chan struct{})
	r := chi.NewRouter()
	r.Get("/ws/{screen}", func(w http.ResponseWriter, req *http.Request) {
		ServeWS(hub, secret, w, req)
		close(served)
	})
	srv := httptest.NewServer(r)
	defer srv.Close()

	token, err := auth.GenerateToken(secret, uuid.New(), enum.UserRoleKitchen)
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	base := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(base+"/ws/floor?token="+token, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	select {
	case <-served:
	case <-time.After(time.Second):
		t.Fatal("handler hung after hub shutdown")
	}
	conn.SetReadDeadline(time.Now().Add(time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Fatal("connection should be closed by a stopped hub")
	}
}

func TestServeWSEndToEnd(t *testing.T) {
	const secret = "test-secret"
	hub := startHub(t)

	r := chi.NewRouter()
	r.Get("/ws/{screen}", func(w http.ResponseWriter, req *http.Request) {
		ServeWS(hub, secret, w, req)
	})
	srv := httptest.NewServer(r)
	defer srv.Close()

	base := "ws" + strings.TrimPrefix(srv.URL, "http")

	if _, resp, err := websocket.DefaultDialer.Dial(base+"/ws/kitchen", nil); err == nil {
		t.Fatal("expected dial without token to fail")
	} else if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("missing token: got %v", resp)
	}

	token, err := auth.GenerateToken(secret, uuid.New(), enum.UserRoleKitchen)
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	if _, resp, err := websocket.DefaultDialer.Dial(base+"/ws/bar?token="+token, nil); err == nil {
		t.Fatal("expected unknown screen to fail")
	} else if resp == nil || resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown screen: got %v", resp)
	}

	conn, _, err := websocket.DefaultDialer.Dial(base+"/ws/kitchen?token="+token, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(time.Second)
	for hub.ClientCount(ScreenKitchen) == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	_ = hub.Publish(context.Background(), events.New(events.OrderCreated{OrderID: uuid.New(), TableID: 3}, time.Now()))

	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var got events.Event
	if err := json.Unmarshal(msg, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Type != enum.EventOrderCreated {
		t.Errorf("type: got %s, want %s", got.Type, enum.EventOrderCreated)
	}
}
