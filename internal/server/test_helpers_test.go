package server

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"campus-mafia/internal/config"
)

// eventRecorder captures delivered events so tests can assert on routing
// without a live websocket.
type eventRecorder struct {
	mu     sync.Mutex
	sent   map[string][]Event
	global []Event
}

func newEventRecorder() *eventRecorder {
	return &eventRecorder{sent: make(map[string][]Event)}
}

func (r *eventRecorder) SendTo(playerID string, event Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent[playerID] = append(r.sent[playerID], event)
}

func (r *eventRecorder) Broadcast(event Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.global = append(r.global, event)
}

func (r *eventRecorder) lastOfType(playerID, eventType string) (Event, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.sent[playerID]) - 1; i >= 0; i-- {
		if r.sent[playerID][i].Type == eventType {
			return r.sent[playerID][i], true
		}
	}
	return Event{}, false
}

func (r *eventRecorder) countOfType(playerID, eventType string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, e := range r.sent[playerID] {
		if e.Type == eventType {
			count++
		}
	}
	return count
}

func (r *eventRecorder) broadcastCount(eventType string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, e := range r.global {
		if e.Type == eventType {
			count++
		}
	}
	return count
}

func (r *eventRecorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = make(map[string][]Event)
	r.global = nil
}

func newTestGameServer(t *testing.T) (*Server, *eventRecorder) {
	t.Helper()
	srv := New(nil, config.Default())
	rec := newEventRecorder()
	srv.sink = rec
	t.Cleanup(srv.Shutdown)
	return srv, rec
}

// setupStartedGame registers count players, puts them in one room, and starts
// the game. Player ids are p1..pN with p1 hosting.
func setupStartedGame(t *testing.T, srv *Server, count int) (roomID string, playerIDs []string) {
	t.Helper()
	playerIDs = joinedRoomPlayers(t, srv, count)
	roomID = mustRoomOf(t, srv, playerIDs[0])
	for _, id := range playerIDs[1:] {
		if err := srv.ToggleReady(id); err != nil {
			t.Fatalf("toggle ready %s: %v", id, err)
		}
	}
	if err := srv.StartGame(playerIDs[0]); err != nil {
		t.Fatalf("start game: %v", err)
	}
	return roomID, playerIDs
}

// joinedRoomPlayers registers count players and gathers them into one room
// hosted by the first.
func joinedRoomPlayers(t *testing.T, srv *Server, count int) []string {
	t.Helper()
	ids := make([]string, 0, count)
	for i := 1; i <= count; i++ {
		id := fmt.Sprintf("p%d", i)
		if err := srv.Register(id, fmt.Sprintf("Player%d", i), "CS"); err != nil {
			t.Fatalf("register %s: %v", id, err)
		}
		ids = append(ids, id)
	}
	if err := srv.CreateRoom(ids[0], "test room", 10); err != nil {
		t.Fatalf("create room: %v", err)
	}
	roomID := mustRoomOf(t, srv, ids[0])
	for _, id := range ids[1:] {
		if err := srv.JoinRoom(id, roomID); err != nil {
			t.Fatalf("join room %s: %v", id, err)
		}
	}
	return ids
}

func mustRoomOf(t *testing.T, srv *Server, playerID string) string {
	t.Helper()
	roomID, ok := srv.rooms.RoomOf(playerID)
	if !ok {
		t.Fatalf("player %s is not in a room", playerID)
	}
	return roomID
}

// waitForEvent polls the recorder until the player has received an event of
// the given type or the deadline passes. Used where a countdown, not a direct
// call, drives the transition.
func waitForEvent(t *testing.T, rec *eventRecorder, playerID, eventType string, deadline time.Duration) Event {
	t.Helper()
	timeout := time.After(deadline)
	for {
		if event, ok := rec.lastOfType(playerID, eventType); ok {
			return event
		}
		select {
		case <-timeout:
			t.Fatalf("no %s event for %s within %v", eventType, playerID, deadline)
		case <-time.After(10 * time.Millisecond):
		}
	}
}

// withSession runs fn on the live session under the room lock.
func withSession(t *testing.T, srv *Server, roomID string, fn func(g *GameSession)) {
	t.Helper()
	err := srv.rooms.WithRoom(roomID, func(room *Room) error {
		if room.Session == nil {
			t.Fatalf("room %s has no session", roomID)
		}
		fn(room.Session)
		return nil
	})
	if err != nil {
		t.Fatalf("with room %s: %v", roomID, err)
	}
}

// findByRole returns the ids of players holding role.
func findByRole(t *testing.T, srv *Server, roomID string, role Role) []string {
	t.Helper()
	var ids []string
	withSession(t, srv, roomID, func(g *GameSession) {
		for id, p := range g.Players {
			if p.Role == role {
				ids = append(ids, id)
			}
		}
	})
	return ids
}

func firstByRole(t *testing.T, srv *Server, roomID string, role Role) string {
	t.Helper()
	ids := findByRole(t, srv, roomID, role)
	if len(ids) == 0 {
		t.Fatalf("no player with role %s", role)
	}
	return ids[0]
}

// testMembers builds a roster of n lobby members m1..mN.
func testMembers(n int) []Member {
	members := make([]Member, 0, n)
	for i := 1; i <= n; i++ {
		members = append(members, Member{
			ID:       fmt.Sprintf("m%d", i),
			Nickname: fmt.Sprintf("Member%d", i),
		})
	}
	return members
}

// testSession builds a session with explicit roles, bypassing the shuffle.
func testSession(roles map[string]Role) *GameSession {
	players := make(map[string]*PlayerState, len(roles))
	for id, role := range roles {
		players[id] = &PlayerState{
			ID:       id,
			Nickname: "n-" + id,
			Role:     role,
			Alive:    true,
		}
	}
	return &GameSession{
		RoomID:             "room-1",
		Phase:              PhasePlaying,
		Players:            players,
		Votes:              make(map[string]string),
		RoundNumber:        1,
		MeetingSecondsLeft: 60,
		VotingSecondsLeft:  30,
	}
}
