package server

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// wsHub is the fan-out collaborator: it maps player ids to live connections
// and delivers events to one player or to everyone. Room-scoped delivery is
// the manager's job; it hands the hub explicit recipient lists.
type wsHub struct {
	mu    sync.Mutex
	conns map[string]*wsClient
}

type wsClient struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func newWSHub() *wsHub {
	return &wsHub{conns: make(map[string]*wsClient)}
}

func (h *wsHub) Add(playerID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[playerID] = &wsClient{conn: conn}
}

func (h *wsHub) Remove(playerID string) {
	h.mu.Lock()
	client := h.conns[playerID]
	delete(h.conns, playerID)
	h.mu.Unlock()
	if client != nil {
		_ = client.conn.Close()
	}
}

func (h *wsHub) SendTo(playerID string, event Event) {
	h.mu.Lock()
	client := h.conns[playerID]
	h.mu.Unlock()
	if client == nil {
		return
	}
	client.write(event)
}

func (h *wsHub) Broadcast(event Event) {
	h.mu.Lock()
	clients := make([]*wsClient, 0, len(h.conns))
	for _, client := range h.conns {
		clients = append(clients, client)
	}
	h.mu.Unlock()
	for _, client := range clients {
		client.write(event)
	}
}

// write serializes access to the connection; gorilla allows one concurrent
// writer per conn.
func (c *wsClient) write(event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.WriteMessage(websocket.TextMessage, data)
}

// inboundCommand is the envelope clients send; data is decoded per command.
type inboundCommand struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type registerPayload struct {
	Nickname    string `json:"nickname"`
	Affiliation string `json:"affiliation"`
}

type createRoomPayload struct {
	Name     string `json:"name"`
	Capacity int    `json:"capacity"`
}

type joinRoomPayload struct {
	RoomID string `json:"room_id"`
}

type targetPayload struct {
	TargetID string `json:"target_id"`
}

type reportBodyPayload struct {
	PlayerID string `json:"player_id"`
}

type positionPayload struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	playerID := uuid.NewString()
	s.hub.Add(playerID, conn)
	log.Printf("ws connected player_id=%s remote=%s", playerID, r.RemoteAddr)

	s.hub.SendTo(playerID, Event{Type: evtConnected, Data: map[string]string{"player_id": playerID}})
	go s.readWS(playerID, conn)
}

func (s *Server) readWS(playerID string, conn *websocket.Conn) {
	defer func() {
		s.hub.Remove(playerID)
		s.Disconnect(playerID)
	}()
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			log.Printf("ws disconnected player_id=%s error=%v", playerID, err)
			return
		}
		var cmd inboundCommand
		if err := json.Unmarshal(raw, &cmd); err != nil {
			s.hub.SendTo(playerID, rejection("", ErrMalformedCommand))
			continue
		}
		s.dispatch(playerID, cmd)
	}
}

func decodePayload(raw json.RawMessage, dest any) error {
	if len(raw) == 0 {
		return ErrMalformedCommand
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return ErrMalformedCommand
	}
	return nil
}

// dispatch routes one validated command into the session manager. Command
// errors become a rejection event for this connection only; they never
// propagate further.
func (s *Server) dispatch(playerID string, cmd inboundCommand) {
	var err error
	switch cmd.Type {
	case "register-identity":
		var p registerPayload
		if err = decodePayload(cmd.Data, &p); err == nil {
			err = s.Register(playerID, p.Nickname, p.Affiliation)
		}
	case "list-rooms":
		s.ListRooms(playerID)
	case "create-room":
		var p createRoomPayload
		if err = decodePayload(cmd.Data, &p); err == nil {
			err = s.CreateRoom(playerID, p.Name, p.Capacity)
		}
	case "join-room":
		var p joinRoomPayload
		if err = decodePayload(cmd.Data, &p); err == nil {
			err = s.JoinRoom(playerID, p.RoomID)
		}
	case "leave-room":
		err = s.LeaveRoom(playerID)
	case "toggle-ready":
		err = s.ToggleReady(playerID)
	case "start-game":
		err = s.StartGame(playerID)
	case "call-meeting":
		err = s.CallMeeting(playerID)
	case "report-body":
		var p reportBodyPayload
		if err = decodePayload(cmd.Data, &p); err == nil {
			err = s.ReportBody(playerID, p.PlayerID)
		}
	case "cast-vote":
		var p targetPayload
		if err = decodePayload(cmd.Data, &p); err == nil {
			err = s.CastVote(playerID, p.TargetID)
		}
	case "eliminate":
		var p targetPayload
		if err = decodePayload(cmd.Data, &p); err == nil {
			err = s.Eliminate(playerID, p.TargetID)
		}
	case "protect":
		var p targetPayload
		if err = decodePayload(cmd.Data, &p); err == nil {
			err = s.Protect(playerID, p.TargetID)
		}
	case "investigate":
		var p targetPayload
		if err = decodePayload(cmd.Data, &p); err == nil {
			err = s.Investigate(playerID, p.TargetID)
		}
	case "request-snapshot":
		err = s.RequestSnapshot(playerID)
	case "update-position":
		var p positionPayload
		if err = decodePayload(cmd.Data, &p); err == nil {
			s.UpdatePosition(playerID, p.X, p.Y)
		}
	default:
		log.Printf("unknown command player_id=%s type=%s", playerID, cmd.Type)
		return
	}
	if err != nil {
		s.hub.SendTo(playerID, rejection(cmd.Type, err))
	}
}
