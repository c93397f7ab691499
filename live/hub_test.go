package live

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func startHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)))
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(cancel)
	return hub
}

func dialRoom(t *testing.T, hub *Hub, room string) *websocket.Conn {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		client := NewClient(hub, conn, room)
		if !hub.Register(client) {
			conn.Close()
			return
		}
		go client.WritePump()
		go client.ReadPump()
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount(room) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client was not registered")
		}
		time.Sleep(5 * time.Millisecond)
	}
	return conn
}

func TestPublishTallyReachesRoom(t *testing.T) {
	hub := startHub(t)
	conn := dialRoom(t, hub, RoomForCompetition("c1"))

	hub.PublishTally("c1", "k1", 42)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var msg struct {
		Type    string       `json:"type"`
		RoomID  string       `json:"room_id"`
		Payload TallyPayload `json:"payload"`
	}
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if msg.Type != MessageVotesUpdated {
		t.Errorf("type = %q, want %q", msg.Type, MessageVotesUpdated)
	}
	want := TallyPayload{CompetitionID: "c1", ContestantID: "k1", Votes: 42}
	if msg.Payload != want {
		t.Errorf("payload = %+v, want %+v", msg.Payload, want)
	}
}

func TestPublishTallyOtherRoomIsSilent(t *testing.T) {
	hub := startHub(t)
	conn := dialRoom(t, hub, RoomForCompetition("c1"))

	hub.PublishTally("c2", "k1", 1)

	conn.SetReadDeadline(time.Now().Add(150 * time.Millisecond))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Fatal("expected no message for another competition")
	}
}

func TestPublishTallyWithoutClients(t *testing.T) {
	hub := startHub(t)
	hub.PublishTally("nobody", "k1", 3)
	if n := hub.ClientCount(RoomForCompetition("nobody")); n != 0 {
		t.Fatalf("ClientCount = %d, want 0", n)
	}
}

func TestClientRemovedOnDisconnect(t *testing.T) {
	hub := startHub(t)
	room := RoomForCompetition("c1")
	conn := dialRoom(t, hub, room)
	conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount(room) != 0 {
		if time.Now().After(deadline) {
			t.Fatal("client was not unregistered after disconnect")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
