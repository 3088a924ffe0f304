package server

// Event is the outbound envelope carried over whatever transport delivers
// events to clients. The core decides the type, payload, and recipient set;
// the hub decides how bytes move.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

const (
	evtRoomListUpdated     = "room-list-updated"
	evtRoomUpdated         = "room-updated"
	evtJoinedRoom          = "joined-room"
	evtLeftRoom            = "left-room"
	evtRoleAssigned        = "role-assigned"
	evtTeammatesRevealed   = "teammates-revealed"
	evtGameStarted         = "game-started"
	evtPlayerEliminated    = "player-eliminated"
	evtBodyReported        = "body-reported"
	evtMeetingStarted      = "meeting-started"
	evtVotingStarted       = "voting-started"
	evtTimeRemaining       = "time-remaining"
	evtVoteCast            = "vote-cast"
	evtVotingResult        = "voting-result"
	evtPhaseChanged        = "phase-changed"
	evtGameEnded           = "game-ended"
	evtInvestigationResult = "investigation-result"
	evtProtectionConfirmed = "protection-confirmed"
	evtActionBlocked       = "action-blocked"
	evtCommandRejected     = "command-rejected"
	evtSessionAborted      = "session-aborted"
	evtSnapshot            = "snapshot"
	evtConnected           = "connected"
)

// VoteDetail is one row of the tally reveal, sorted by count descending.
type VoteDetail struct {
	TargetID string `json:"target_id"`
	Nickname string `json:"nickname"`
	Votes    int    `json:"votes"`
}

// EventPayload is the audit-trail payload written as JSONB; one struct with
// omitempty fields covers every event type.
type EventPayload struct {
	RoomID      string `json:"room_id,omitempty"`
	RoomName    string `json:"room_name,omitempty"`
	PlayerID    string `json:"player_id,omitempty"`
	Nickname    string `json:"nickname,omitempty"`
	TargetID    string `json:"target_id,omitempty"`
	Phase       string `json:"phase,omitempty"`
	RoundNumber int    `json:"round_number,omitempty"`
	Winner      string `json:"winner,omitempty"`
	Reason      string `json:"reason,omitempty"`
	MeetingType string `json:"meeting_type,omitempty"`
	EjectedID   string `json:"ejected_id,omitempty"`
	Tie         bool   `json:"tie,omitempty"`
	Count       int    `json:"count,omitempty"`
}

func rejection(command string, err error) Event {
	return Event{
		Type: evtCommandRejected,
		Data: map[string]any{
			"command": command,
			"code":    rejectionCode(err),
			"reason":  err.Error(),
		},
	}
}
