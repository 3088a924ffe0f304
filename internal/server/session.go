package server

// Phase state machine for one in-game room. Every function here mutates the
// session under the owning room's lock; callers in manager.go hold it.

func newGameSession(roomID string, members []Member, positions map[string]PlayerState, meetingSeconds, votingSeconds int) *GameSession {
	ids := make([]string, 0, len(members))
	for _, m := range members {
		ids = append(ids, m.ID)
	}
	roles := assignRoles(ids)

	players := make(map[string]*PlayerState, len(members))
	for i, m := range members {
		state := PlayerState{
			ID:          m.ID,
			Nickname:    m.Nickname,
			Affiliation: m.Affiliation,
			X:           400,
			Y:           300,
			Color:       pickPlayerColor(i),
			Role:        roles[m.ID],
			Alive:       true,
		}
		if pos, ok := positions[m.ID]; ok {
			state.X = pos.X
			state.Y = pos.Y
			if pos.Color != "" {
				state.Color = pos.Color
			}
		}
		players[m.ID] = &state
	}

	return &GameSession{
		RoomID:             roomID,
		Phase:              PhasePlaying,
		Players:            players,
		Votes:              make(map[string]string),
		RoundNumber:        1,
		MeetingSecondsLeft: meetingSeconds,
		VotingSecondsLeft:  votingSeconds,
	}
}

// startMeeting moves playing -> meeting. For a report meeting bodyID names
// the dead player being reported; an emergency meeting passes "".
func (g *GameSession) startMeeting(callerID, bodyID string, meetingSeconds int) error {
	if g.Phase != PhasePlaying {
		return ErrWrongPhase
	}
	caller, ok := g.player(callerID)
	if !ok {
		return ErrPlayerNotFound
	}
	if !caller.Alive {
		return ErrNotAlive
	}
	if bodyID != "" {
		body, ok := g.player(bodyID)
		if !ok {
			return ErrTargetNotFound
		}
		if body.Alive {
			return ErrBodyNotDead
		}
		g.LastEliminatedID = bodyID
	}

	g.Phase = PhaseMeeting
	g.MeetingCallerID = callerID
	g.MeetingSecondsLeft = meetingSeconds
	g.clearVotes()
	return nil
}

// startVoting moves meeting -> voting. Only the meeting timer triggers this.
func (g *GameSession) startVoting(votingSeconds int) bool {
	if g.Phase != PhaseMeeting {
		return false
	}
	g.Phase = PhaseVoting
	g.VotingSecondsLeft = votingSeconds
	return true
}

func (g *GameSession) castVote(voterID, targetID string) error {
	if g.Phase != PhaseVoting {
		return ErrWrongPhase
	}
	voter, ok := g.player(voterID)
	if !ok {
		return ErrPlayerNotFound
	}
	if !voter.Alive {
		return ErrNotAlive
	}
	if voter.HasVoted {
		return ErrAlreadyVoted
	}
	if targetID != VoteSkip {
		target, ok := g.player(targetID)
		if !ok {
			return ErrTargetNotFound
		}
		if !target.Alive {
			return ErrTargetDead
		}
	}
	voter.HasVoted = true
	voter.VotedFor = targetID
	g.Votes[voterID] = targetID
	return nil
}

// closeVoting moves voting -> result and applies the tally. The tally is
// validated against the roster first: a vote recorded for an unknown target
// means session state is corrupt and the room must be torn down (errInvariant
// path in manager.go).
func (g *GameSession) closeVoting() (VoteTally, error) {
	if g.Phase != PhaseVoting {
		return VoteTally{}, ErrWrongPhase
	}
	for voter, target := range g.Votes {
		if _, ok := g.player(voter); !ok {
			return VoteTally{}, errInvariant("vote by unknown player " + voter)
		}
		if target != VoteSkip {
			if _, ok := g.player(target); !ok {
				return VoteTally{}, errInvariant("vote for unknown player " + target)
			}
		}
	}
	g.Phase = PhaseResult
	tally := tallyVotes(g.Votes)
	if tally.EjectedID != "" {
		g.Players[tally.EjectedID].Alive = false
		g.LastEjectedID = tally.EjectedID
	}
	return tally, nil
}

// resumePlaying moves result -> playing for the next round. Protection and
// per-round targets do not carry over.
func (g *GameSession) resumePlaying() bool {
	if g.Phase != PhaseResult {
		return false
	}
	g.Phase = PhasePlaying
	g.RoundNumber++
	g.MeetingCallerID = ""
	g.clearVotes()
	for _, p := range g.Players {
		p.Protected = false
	}
	return true
}

func (g *GameSession) clearVotes() {
	g.Votes = make(map[string]string)
	for _, p := range g.Players {
		p.HasVoted = false
		p.VotedFor = ""
	}
}

func (g *GameSession) updatePosition(playerID string, x, y float64) {
	if p, ok := g.player(playerID); ok {
		p.X = x
		p.Y = y
	}
}

type invariantError struct {
	detail string
}

func (e invariantError) Error() string {
	return "session invariant violated: " + e.detail
}

func errInvariant(detail string) error {
	return invariantError{detail: detail}
}

func isInvariantError(err error) bool {
	_, ok := err.(invariantError)
	return ok
}
