package server

// PlayerSnapshot is the viewer-safe serialization of one player's in-game
// state. Role is already masked for the viewer when it is built.
type PlayerSnapshot struct {
	ID       string  `json:"id"`
	Nickname string  `json:"nickname"`
	Color    string  `json:"color"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Role     Role    `json:"role"`
	Alive    bool    `json:"alive"`
	HasVoted bool    `json:"has_voted"`
}

type SessionSnapshot struct {
	RoomID             string                    `json:"room_id"`
	Phase              Phase                     `json:"phase"`
	RoundNumber        int                       `json:"round_number"`
	MeetingCallerID    string                    `json:"meeting_caller_id,omitempty"`
	MeetingSecondsLeft int                       `json:"meeting_seconds_left"`
	VotingSecondsLeft  int                       `json:"voting_seconds_left"`
	LastEliminatedID   string                    `json:"last_eliminated_id,omitempty"`
	LastEjectedID      string                    `json:"last_ejected_id,omitempty"`
	Players            map[string]PlayerSnapshot `json:"players"`
	Votes              map[string]string         `json:"votes"`
}

// visibleRole decides which role a viewer may see for a player: their own,
// any dead player's, and a fellow mafia's. Everything else reads citizen so a
// state snapshot can never leak hidden roles.
func visibleRole(viewer *PlayerState, target *PlayerState) Role {
	if viewer != nil && viewer.ID == target.ID {
		return target.Role
	}
	if !target.Alive {
		return target.Role
	}
	if viewer != nil && viewer.Role == RoleMafia && target.Role == RoleMafia {
		return target.Role
	}
	return RoleCitizen
}

// projectPlayer builds the viewer-safe copy of one player's state.
func projectPlayer(target *PlayerState, viewer *PlayerState) PlayerSnapshot {
	return PlayerSnapshot{
		ID:       target.ID,
		Nickname: target.Nickname,
		Color:    target.Color,
		X:        target.X,
		Y:        target.Y,
		Role:     visibleRole(viewer, target),
		Alive:    target.Alive,
		HasVoted: target.HasVoted,
	}
}

// sessionSnapshot serializes the whole session as seen by viewerID.
func sessionSnapshot(g *GameSession, viewerID string) SessionSnapshot {
	viewer := g.Players[viewerID]
	players := make(map[string]PlayerSnapshot, len(g.Players))
	for id, p := range g.Players {
		players[id] = projectPlayer(p, viewer)
	}
	votes := make(map[string]string, len(g.Votes))
	for voter, target := range g.Votes {
		votes[voter] = target
	}
	return SessionSnapshot{
		RoomID:             g.RoomID,
		Phase:              g.Phase,
		RoundNumber:        g.RoundNumber,
		MeetingCallerID:    g.MeetingCallerID,
		MeetingSecondsLeft: g.MeetingSecondsLeft,
		VotingSecondsLeft:  g.VotingSecondsLeft,
		LastEliminatedID:   g.LastEliminatedID,
		LastEjectedID:      g.LastEjectedID,
		Players:            players,
		Votes:              votes,
	}
}
