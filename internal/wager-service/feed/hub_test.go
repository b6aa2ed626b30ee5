package feed

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// subscribe espera o pong para garantir que a assinatura já foi registrada
func subscribe(t *testing.T, conn *websocket.Conn, combatID string) {
	t.Helper()
	if err := conn.WriteJSON(ClientMsg{Type: "subscribe", CombatID: combatID}); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if err := conn.WriteJSON(ClientMsg{Type: "ping"}); err != nil {
		t.Fatalf("ping: %v", err)
	}
	var pong map[string]string
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if err := conn.ReadJSON(&pong); err != nil || pong["type"] != "pong" {
		t.Fatalf("pong = %v err = %v", pong, err)
	}
}

func readUpdate(t *testing.T, conn *websocket.Conn) Update {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, b, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var u Update
	if err := json.Unmarshal(b, &u); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return u
}

func TestHubDeliversToCombatAndWildcardSubscribers(t *testing.T) {
	hub := NewHub(func(*http.Request) bool { return true }, zap.NewNop())
	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWS))
	defer srv.Close()

	one := dial(t, srv)
	all := dial(t, srv)
	subscribe(t, one, "c1")
	subscribe(t, all, AllCombats)

	if err := (Local{Hub: hub}).Publish(context.Background(), Update{Type: TypeBetPlaced, CombatID: "c1"}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if u := readUpdate(t, one); u.Type != TypeBetPlaced || u.CombatID != "c1" {
		t.Fatalf("update = %+v, want bet_placed for c1", u)
	}
	if u := readUpdate(t, all); u.CombatID != "c1" {
		t.Fatalf("wildcard update = %+v, want c1", u)
	}

	hub.Broadcast(Update{Type: TypeCombatCreated, CombatID: "c2"})
	if u := readUpdate(t, all); u.Type != TypeCombatCreated || u.CombatID != "c2" {
		t.Fatalf("wildcard update = %+v, want combat_created for c2", u)
	}
}

func TestHubDropsClosedConnections(t *testing.T) {
	hub := NewHub(func(*http.Request) bool { return true }, zap.NewNop())
	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWS))
	defer srv.Close()

	conn := dial(t, srv)
	subscribe(t, conn, "c1")
	if n := hub.Subscribers("c1"); n != 1 {
		t.Fatalf("subscribers = %d, want 1", n)
	}
	_ = conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.Subscribers("c1") != 0 {
		if time.Now().After(deadline) {
			t.Fatal("connection was not dropped from subscriptions")
		}
		time.Sleep(10 * time.Millisecond)
	}
}
