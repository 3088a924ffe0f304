package server

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// RoomView is a lock-free copy of a room used in outbound payloads.
type RoomView struct {
	ID        string           `json:"id"`
	Name      string           `json:"name"`
	HostID    string           `json:"host_id"`
	Capacity  int              `json:"capacity"`
	Status    string           `json:"status"`
	CreatedAt time.Time        `json:"created_at"`
	Members   []RoomMemberView `json:"members"`
}

type RoomMemberView struct {
	ID          string `json:"id"`
	Nickname    string `json:"nickname"`
	Affiliation string `json:"affiliation"`
	Ready       bool   `json:"ready"`
}

// Directory owns the set of rooms plus the player -> room index. Its mutex
// guards only set membership; each room's mutex serializes everything
// happening inside that room, so commands for different rooms never contend.
type Directory struct {
	mu          sync.Mutex
	minPlayers  int
	maxCapacity int
	rooms       map[string]*Room
	memberRooms map[string]string
}

func NewDirectory(minPlayers, maxCapacity int) *Directory {
	return &Directory{
		minPlayers:  minPlayers,
		maxCapacity: maxCapacity,
		rooms:       make(map[string]*Room),
		memberRooms: make(map[string]string),
	}
}

func (d *Directory) CreateRoom(name string, host Member, capacity int) (RoomView, error) {
	name, err := validateRoomName(name)
	if err != nil {
		return RoomView{}, err
	}
	if capacity < 2 || capacity > d.maxCapacity {
		return RoomView{}, ErrInvalidCapacity
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if _, joined := d.memberRooms[host.ID]; joined {
		return RoomView{}, ErrAlreadyJoined
	}

	host.Ready = true
	room := &Room{
		ID:        uuid.NewString(),
		Name:      name,
		HostID:    host.ID,
		Members:   []Member{host},
		Capacity:  capacity,
		Status:    roomWaiting,
		CreatedAt: time.Now().UTC(),
	}
	d.rooms[room.ID] = room
	d.memberRooms[host.ID] = room.ID
	return room.view(), nil
}

func (d *Directory) JoinRoom(roomID string, member Member) (RoomView, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, joined := d.memberRooms[member.ID]; joined {
		return RoomView{}, ErrAlreadyJoined
	}
	room, ok := d.rooms[roomID]
	if !ok {
		return RoomView{}, ErrRoomNotFound
	}

	room.mu.Lock()
	defer room.mu.Unlock()
	if room.Status != roomWaiting {
		return RoomView{}, ErrAlreadyStarted
	}
	if len(room.Members) >= room.Capacity {
		return RoomView{}, ErrRoomFull
	}
	member.Ready = false
	room.Members = append(room.Members, member)
	d.memberRooms[member.ID] = room.ID
	return room.view(), nil
}

// LeaveResult describes what a leave did so the caller can emit the right
// events without re-inspecting the room.
type LeaveResult struct {
	RoomID    string
	Removed   Member
	Deleted   bool
	NewHostID string
	View      RoomView
}

// Leave removes the player from their room. If they hosted, the earliest
// remaining member is promoted and force-readied; an emptied room is removed
// from the directory afterwards. onRoom, when set, runs under the room lock
// after removal so session cleanup shares the same serialized section. The
// directory mutex is released before the room lock is taken, so the cleanup
// (which can reach the audit database) never stalls other rooms.
func (d *Directory) Leave(playerID string, onRoom func(room *Room, removed Member, deleted bool)) (LeaveResult, error) {
	d.mu.Lock()
	roomID, ok := d.memberRooms[playerID]
	if !ok {
		d.mu.Unlock()
		return LeaveResult{}, ErrNotInRoom
	}
	room := d.rooms[roomID]
	delete(d.memberRooms, playerID)
	d.mu.Unlock()

	room.mu.Lock()
	result := LeaveResult{RoomID: roomID}
	for i, m := range room.Members {
		if m.ID == playerID {
			result.Removed = m
			room.Members = append(room.Members[:i], room.Members[i+1:]...)
			break
		}
	}
	delete(room.positions, playerID)

	if len(room.Members) == 0 {
		result.Deleted = true
	} else if room.HostID == playerID {
		room.HostID = room.Members[0].ID
		room.Members[0].Ready = true
		result.NewHostID = room.HostID
	}

	if onRoom != nil {
		onRoom(room, result.Removed, result.Deleted)
	}
	if !result.Deleted {
		result.View = room.view()
	}
	room.mu.Unlock()

	if result.Deleted {
		d.deleteIfEmpty(roomID)
	}
	return result, nil
}

// deleteIfEmpty drops the room from the set unless a concurrent join
// repopulated it between the member removal and this cleanup.
func (d *Directory) deleteIfEmpty(roomID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	room, ok := d.rooms[roomID]
	if !ok {
		return
	}
	room.mu.Lock()
	defer room.mu.Unlock()
	if len(room.Members) == 0 {
		delete(d.rooms, roomID)
	}
}

// ToggleReady flips the player's readiness. The host is pinned ready, so for
// the host this is a no-op that still reports success.
func (d *Directory) ToggleReady(playerID string) (RoomView, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	roomID, ok := d.memberRooms[playerID]
	if !ok {
		return RoomView{}, ErrNotInRoom
	}
	room := d.rooms[roomID]

	room.mu.Lock()
	defer room.mu.Unlock()
	if room.HostID != playerID {
		for i := range room.Members {
			if room.Members[i].ID == playerID {
				room.Members[i].Ready = !room.Members[i].Ready
				break
			}
		}
	}
	return room.view(), nil
}

// StartGame transitions the room to in-game when the requester hosts it,
// enough members joined, and everyone is ready. begin runs under the room
// lock to attach the session; a begin error rolls the status back.
func (d *Directory) StartGame(requesterID string, begin func(room *Room) error) (RoomView, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	roomID, ok := d.memberRooms[requesterID]
	if !ok {
		return RoomView{}, ErrNotInRoom
	}
	room := d.rooms[roomID]

	room.mu.Lock()
	defer room.mu.Unlock()
	if room.HostID != requesterID {
		return RoomView{}, ErrNotHost
	}
	if room.Status != roomWaiting {
		return RoomView{}, ErrAlreadyStarted
	}
	if len(room.Members) < d.minPlayers {
		return RoomView{}, ErrInsufficientPlayers
	}
	for _, m := range room.Members {
		if !m.Ready {
			return RoomView{}, ErrNotAllReady
		}
	}

	room.Status = roomInGame
	if begin != nil {
		if err := begin(room); err != nil {
			room.Status = roomWaiting
			return RoomView{}, err
		}
	}
	return room.view(), nil
}

// WithRoom runs fn under the room's lock. The lookup itself holds only the
// directory mutex, so rooms stay independent of each other.
func (d *Directory) WithRoom(roomID string, fn func(room *Room) error) error {
	d.mu.Lock()
	room, ok := d.rooms[roomID]
	d.mu.Unlock()
	if !ok {
		return ErrRoomNotFound
	}
	room.mu.Lock()
	defer room.mu.Unlock()
	return fn(room)
}

// WithMemberRoom runs fn under the lock of the room the player is in.
func (d *Directory) WithMemberRoom(playerID string, fn func(room *Room) error) error {
	d.mu.Lock()
	roomID, joined := d.memberRooms[playerID]
	if !joined {
		d.mu.Unlock()
		return ErrNotInRoom
	}
	room := d.rooms[roomID]
	d.mu.Unlock()

	room.mu.Lock()
	defer room.mu.Unlock()
	return fn(room)
}

// setSessionDBID stamps the audit row id onto the live session, if the
// session still exists by the time the row is written.
func (d *Directory) setSessionDBID(roomID string, dbID uint) {
	d.mu.Lock()
	room, ok := d.rooms[roomID]
	d.mu.Unlock()
	if !ok {
		return
	}
	room.mu.Lock()
	defer room.mu.Unlock()
	if room.Session != nil {
		room.Session.DBID = dbID
	}
}

func (d *Directory) RoomOf(playerID string) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	roomID, ok := d.memberRooms[playerID]
	return roomID, ok
}

func (d *Directory) List() []RoomSummary {
	d.mu.Lock()
	defer d.mu.Unlock()
	list := make([]RoomSummary, 0, len(d.rooms))
	for _, room := range d.rooms {
		room.mu.Lock()
		list = append(list, RoomSummary{
			ID:        room.ID,
			Name:      room.Name,
			HostID:    room.HostID,
			Players:   len(room.Members),
			Capacity:  room.Capacity,
			Status:    room.Status,
			CreatedAt: room.CreatedAt,
		})
		room.mu.Unlock()
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].CreatedAt.Before(list[j].CreatedAt)
	})
	return list
}

func (r *Room) view() RoomView {
	members := make([]RoomMemberView, 0, len(r.Members))
	for _, m := range r.Members {
		members = append(members, RoomMemberView{
			ID:          m.ID,
			Nickname:    m.Nickname,
			Affiliation: m.Affiliation,
			Ready:       m.Ready,
		})
	}
	return RoomView{
		ID:        r.ID,
		Name:      r.Name,
		HostID:    r.HostID,
		Capacity:  r.Capacity,
		Status:    r.Status,
		CreatedAt: r.CreatedAt,
		Members:   members,
	}
}
