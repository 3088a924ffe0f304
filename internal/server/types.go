package server

import (
	"sync"
	"time"
)

type Phase string

const (
	PhasePlaying Phase = "playing"
	PhaseMeeting Phase = "meeting"
	PhaseVoting  Phase = "voting"
	PhaseResult  Phase = "result"
	PhaseEnded   Phase = "ended"
)

type Role string

const (
	RoleCitizen Role = "citizen"
	RoleMafia   Role = "mafia"
	RolePolice  Role = "police"
	RoleDoctor  Role = "doctor"
)

const (
	roomWaiting = "waiting"
	roomInGame  = "in-game"
)

// VoteSkip is the reserved vote target meaning "eject no one".
const VoteSkip = "skip"

const (
	WinnerMafia    = "mafia"
	WinnerCitizens = "citizen"
)

const (
	meetingEmergency = "emergency"
	meetingReport    = "report"
)

type Profile struct {
	ID          string
	Nickname    string
	Affiliation string
}

type Member struct {
	ID          string
	Nickname    string
	Affiliation string
	Ready       bool
}

// Room is a lobby grouping of players. Its mutex is the serialization
// boundary for the room and the session attached to it; every mutation goes
// through Directory.WithRoom.
type Room struct {
	mu        sync.Mutex
	ID        string
	Name      string
	HostID    string
	Members   []Member
	Capacity  int
	Status    string
	CreatedAt time.Time
	Session   *GameSession
	// Last reported position and color per member, kept across games so a
	// session starts players where they already stand.
	positions map[string]PlayerState
}

func (r *Room) notePosition(playerID string, x, y float64) {
	if r.positions == nil {
		r.positions = make(map[string]PlayerState)
	}
	p := r.positions[playerID]
	p.X = x
	p.Y = y
	r.positions[playerID] = p
}

// PlayerState is the in-game state of one roster member. Position and color
// are opaque passthroughs from the movement layer.
type PlayerState struct {
	ID          string
	Nickname    string
	Affiliation string
	Color       string
	X           float64
	Y           float64
	Role        Role
	Alive       bool
	HasVoted    bool
	VotedFor    string
	Protected   bool
}

type GameSession struct {
	RoomID             string
	Phase              Phase
	Players            map[string]*PlayerState
	Votes              map[string]string
	MeetingCallerID    string
	RoundNumber        int
	MeetingSecondsLeft int
	VotingSecondsLeft  int
	LastEliminatedID   string
	LastEjectedID      string
	LastInvestigatedID string
	DBID               uint
}

func (g *GameSession) player(id string) (*PlayerState, bool) {
	p, ok := g.Players[id]
	return p, ok
}

func (g *GameSession) aliveCount() int {
	count := 0
	for _, p := range g.Players {
		if p.Alive {
			count++
		}
	}
	return count
}

func (g *GameSession) aliveMafiaCount() int {
	count := 0
	for _, p := range g.Players {
		if p.Alive && p.Role == RoleMafia {
			count++
		}
	}
	return count
}

func (g *GameSession) allAliveVoted() bool {
	for _, p := range g.Players {
		if p.Alive && !p.HasVoted {
			return false
		}
	}
	return true
}

// checkWin applies the standing win condition: mafia eliminated means the
// citizens win, mafia at or above the non-mafia headcount means mafia win.
func (g *GameSession) checkWin() (string, bool) {
	mafia := g.aliveMafiaCount()
	if mafia == 0 {
		return WinnerCitizens, true
	}
	if mafia >= g.aliveCount()-mafia {
		return WinnerMafia, true
	}
	return "", false
}

type RoomSummary struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	HostID    string    `json:"host_id"`
	Players   int       `json:"players"`
	Capacity  int       `json:"capacity"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// VoteTally is the transient result of one voting close.
type VoteTally struct {
	EjectedID string
	Counts    map[string]int
	Tie       bool
}
