package server

import (
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"campus-mafia/internal/config"

	"github.com/gorilla/websocket"
)

func newTestServer(t *testing.T, handler http.Handler) *httptest.Server {
	t.Helper()
	listener, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Skipf("skipping test; listen unavailable: %v", err)
	}
	ts := &httptest.Server{
		Listener: listener,
		Config:   &http.Server{Handler: handler},
	}
	ts.Start()
	return ts
}

func dialWS(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Skipf("skipping test; websocket dial unavailable: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn, timeout time.Duration) (string, map[string]any) {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(timeout))
	_, payload, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read websocket message: %v", err)
	}
	var envelope struct {
		Type string          `json:"type"`
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(payload, &envelope); err != nil {
		t.Fatalf("decode event: %v", err)
	}
	data := map[string]any{}
	if len(envelope.Data) > 0 {
		_ = json.Unmarshal(envelope.Data, &data)
	}
	return envelope.Type, data
}

func readEventOfType(t *testing.T, conn *websocket.Conn, eventType string) map[string]any {
	t.Helper()
	for i := 0; i < 20; i++ {
		gotType, data := readEvent(t, conn, 5*time.Second)
		if gotType == eventType {
			return data
		}
	}
	t.Fatalf("never received %s", eventType)
	return nil
}

func sendCommand(t *testing.T, conn *websocket.Conn, cmdType string, data any) {
	t.Helper()
	payload := map[string]any{"type": cmdType, "data": data}
	if err := conn.WriteJSON(payload); err != nil {
		t.Fatalf("send %s: %v", cmdType, err)
	}
}

func TestWebsocketConnectAssignsID(t *testing.T) {
	srv := New(nil, config.Default())
	t.Cleanup(srv.Shutdown)
	ts := newTestServer(t, srv.Handler())
	t.Cleanup(ts.Close)

	conn := dialWS(t, ts)
	data := readEventOfType(t, conn, evtConnected)
	id, _ := data["player_id"].(string)
	if id == "" {
		t.Fatalf("expected a player id, got %#v", data)
	}
}

func TestWebsocketLobbyFlow(t *testing.T) {
	srv := New(nil, config.Default())
	t.Cleanup(srv.Shutdown)
	ts := newTestServer(t, srv.Handler())
	t.Cleanup(ts.Close)

	conn := dialWS(t, ts)
	readEventOfType(t, conn, evtConnected)

	sendCommand(t, conn, "register-identity", map[string]any{"nickname": "Ada", "affiliation": "CS"})
	sendCommand(t, conn, "create-room", map[string]any{"name": "dorm lounge", "capacity": 6})

	joined := readEventOfType(t, conn, evtJoinedRoom)
	if joined["name"] != "dorm lounge" {
		t.Fatalf("unexpected room payload: %#v", joined)
	}

	sendCommand(t, conn, "create-room", map[string]any{"name": "second", "capacity": 4})
	rejected := readEventOfType(t, conn, evtCommandRejected)
	if rejected["code"] != rejectDuplicate {
		t.Fatalf("expected duplicate rejection, got %#v", rejected)
	}
}

func TestWebsocketRejectsMalformedCommand(t *testing.T) {
	srv := New(nil, config.Default())
	t.Cleanup(srv.Shutdown)
	ts := newTestServer(t, srv.Handler())
	t.Cleanup(ts.Close)

	conn := dialWS(t, ts)
	readEventOfType(t, conn, evtConnected)

	if err := conn.WriteMessage(websocket.TextMessage, []byte("not json")); err != nil {
		t.Fatalf("send raw: %v", err)
	}
	data := readEventOfType(t, conn, evtCommandRejected)
	if data["code"] != rejectValidation {
		t.Fatalf("expected validation rejection, got %#v", data)
	}
}

func TestWebsocketRejectsUnregisteredCreate(t *testing.T) {
	srv := New(nil, config.Default())
	t.Cleanup(srv.Shutdown)
	ts := newTestServer(t, srv.Handler())
	t.Cleanup(ts.Close)

	conn := dialWS(t, ts)
	readEventOfType(t, conn, evtConnected)

	sendCommand(t, conn, "create-room", map[string]any{"name": "room", "capacity": 4})
	data := readEventOfType(t, conn, evtCommandRejected)
	if data["command"] != "create-room" || data["code"] != rejectValidation {
		t.Fatalf("unexpected rejection: %#v", data)
	}
}
