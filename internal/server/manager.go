package server

import (
	"errors"
	"log"
	"sort"
	"time"
)

// Command methods for the session manager. Each one mutates state inside the
// owning room's serialized section and collects outbound events into an
// outbox that is flushed after the lock is released, so a slow client can
// never stall a room.

type addressed struct {
	to    []string
	toAll bool
	event Event
}

type outbox struct {
	events []addressed
}

func (o *outbox) send(playerID string, event Event) {
	o.events = append(o.events, addressed{to: []string{playerID}, event: event})
}

func (o *outbox) roomcast(memberIDs []string, event Event) {
	o.events = append(o.events, addressed{to: memberIDs, event: event})
}

func (o *outbox) broadcast(event Event) {
	o.events = append(o.events, addressed{toAll: true, event: event})
}

func (s *Server) flush(out *outbox) {
	if s.sink == nil {
		return
	}
	for _, a := range out.events {
		if a.toAll {
			s.sink.Broadcast(a.event)
			continue
		}
		for _, id := range a.to {
			s.sink.SendTo(id, a.event)
		}
	}
}

func (r *Room) memberIDs() []string {
	ids := make([]string, 0, len(r.Members))
	for _, m := range r.Members {
		ids = append(ids, m.ID)
	}
	return ids
}

// ---- lobby commands ----

func (s *Server) Register(playerID, nickname, affiliation string) error {
	nickname, err := validateNickname(nickname)
	if err != nil {
		return err
	}
	s.registry.Register(Profile{ID: playerID, Nickname: nickname, Affiliation: affiliation})
	log.Printf("player registered player_id=%s nickname=%s", playerID, nickname)
	return nil
}

func (s *Server) ListRooms(playerID string) {
	var out outbox
	out.send(playerID, Event{Type: evtRoomListUpdated, Data: s.rooms.List()})
	s.flush(&out)
}

func (s *Server) CreateRoom(playerID, name string, capacity int) error {
	profile, ok := s.registry.Get(playerID)
	if !ok {
		return ErrNotRegistered
	}
	view, err := s.rooms.CreateRoom(name, memberFromProfile(profile), capacity)
	if err != nil {
		return err
	}
	log.Printf("room created room_id=%s name=%s host=%s capacity=%d", view.ID, view.Name, playerID, view.Capacity)
	s.persistRoomEvent(view.ID, 0, "room_created", EventPayload{RoomID: view.ID, RoomName: view.Name, PlayerID: playerID})

	var out outbox
	out.send(playerID, Event{Type: evtJoinedRoom, Data: view})
	out.broadcast(Event{Type: evtRoomListUpdated, Data: s.rooms.List()})
	s.flush(&out)
	return nil
}

func (s *Server) JoinRoom(playerID, roomID string) error {
	profile, ok := s.registry.Get(playerID)
	if !ok {
		return ErrNotRegistered
	}
	view, err := s.rooms.JoinRoom(roomID, memberFromProfile(profile))
	if err != nil {
		return err
	}
	log.Printf("room joined room_id=%s player_id=%s players=%d", roomID, playerID, len(view.Members))

	var out outbox
	out.send(playerID, Event{Type: evtJoinedRoom, Data: view})
	out.roomcast(memberIDsFromView(view), Event{Type: evtRoomUpdated, Data: view})
	out.broadcast(Event{Type: evtRoomListUpdated, Data: s.rooms.List()})
	s.flush(&out)
	return nil
}

func (s *Server) ToggleReady(playerID string) error {
	view, err := s.rooms.ToggleReady(playerID)
	if err != nil {
		return err
	}
	var out outbox
	out.roomcast(memberIDsFromView(view), Event{Type: evtRoomUpdated, Data: view})
	out.broadcast(Event{Type: evtRoomListUpdated, Data: s.rooms.List()})
	s.flush(&out)
	return nil
}

// LeaveRoom removes the player from their room and, when a game is running,
// scrubs them out of the session inside the same serialized section. An
// emptied room is deleted and its timer cancelled.
func (s *Server) LeaveRoom(playerID string) error {
	var out outbox
	result, err := s.rooms.Leave(playerID, func(room *Room, removed Member, deleted bool) {
		if room.Session != nil {
			s.removeFromSessionLocked(room, removed.ID, &out)
		}
		if deleted {
			s.timers.Cancel(room.ID)
		}
	})
	if err != nil {
		return err
	}
	log.Printf("room left room_id=%s player_id=%s deleted=%t", result.RoomID, playerID, result.Deleted)

	out.send(playerID, Event{Type: evtLeftRoom, Data: map[string]string{"room_id": result.RoomID}})
	if !result.Deleted {
		out.roomcast(memberIDsFromView(result.View), Event{Type: evtRoomUpdated, Data: result.View})
	}
	out.broadcast(Event{Type: evtRoomListUpdated, Data: s.rooms.List()})
	s.flush(&out)
	return nil
}

// Disconnect is the connection-drop path: same cleanup as an explicit leave
// plus the registry entry.
func (s *Server) Disconnect(playerID string) {
	if err := s.LeaveRoom(playerID); err != nil && !errors.Is(err, ErrNotInRoom) {
		log.Printf("disconnect cleanup failed player_id=%s error=%v", playerID, err)
	}
	s.registry.Remove(playerID)
}

// removeFromSessionLocked scrubs a departed player from the live session:
// game-state map, vote ledger, and readiness bookkeeping are all cleared
// before anything else can observe the room. The departure can decide the
// game, so the win check runs here too.
func (s *Server) removeFromSessionLocked(room *Room, playerID string, out *outbox) {
	g := room.Session
	if g == nil {
		return
	}
	delete(g.Players, playerID)
	delete(g.Votes, playerID)
	// Ballots naming the departed player are voided and those voters freed to
	// vote again.
	for voter, target := range g.Votes {
		if target == playerID {
			delete(g.Votes, voter)
			if p, ok := g.player(voter); ok {
				p.HasVoted = false
				p.VotedFor = ""
			}
		}
	}
	if len(g.Players) == 0 {
		s.timers.Cancel(room.ID)
		room.Session = nil
		return
	}
	if g.Phase == PhaseVoting && g.allAliveVoted() {
		s.resolveVotesLocked(room, out)
		return
	}
	if winner, over := g.checkWin(); over {
		s.endSessionLocked(room, winner, out)
	}
}

// ---- game start ----

func (s *Server) StartGame(playerID string) error {
	var out outbox
	view, err := s.rooms.StartGame(playerID, func(room *Room) error {
		session := newGameSession(room.ID, room.Members, room.positions, s.cfg.MeetingSeconds, s.cfg.VotingSeconds)
		room.Session = session

		for _, p := range session.Players {
			out.send(p.ID, Event{Type: evtRoleAssigned, Data: map[string]any{
				"role":             p.Role,
				"role_name":        roleName(p.Role),
				"role_description": roleDescription(p.Role),
			}})
		}
		team := mafiaTeammates(session)
		for _, p := range session.Players {
			if p.Role != RoleMafia {
				continue
			}
			teammates := make([]map[string]string, 0, len(team))
			for _, mate := range team {
				if mate["id"] != p.ID {
					teammates = append(teammates, mate)
				}
			}
			out.send(p.ID, Event{Type: evtTeammatesRevealed, Data: map[string]any{"teammates": teammates}})
		}
		return nil
	})
	if err != nil {
		return err
	}
	log.Printf("game started room_id=%s players=%d", view.ID, len(view.Members))
	s.persistGameStart(view)

	out.roomcast(memberIDsFromView(view), Event{Type: evtGameStarted, Data: map[string]any{
		"room":  view,
		"phase": PhasePlaying,
	}})
	out.broadcast(Event{Type: evtRoomListUpdated, Data: s.rooms.List()})
	s.flush(&out)
	return nil
}

// ---- meetings and voting ----

func (s *Server) CallMeeting(playerID string) error {
	return s.startMeeting(playerID, "")
}

func (s *Server) ReportBody(playerID, bodyID string) error {
	if bodyID == "" {
		return ErrTargetNotFound
	}
	return s.startMeeting(playerID, bodyID)
}

func (s *Server) startMeeting(playerID, bodyID string) error {
	var out outbox
	err := s.rooms.WithMemberRoom(playerID, func(room *Room) error {
		g := room.Session
		if g == nil {
			return ErrNoSession
		}
		if err := g.startMeeting(playerID, bodyID, s.cfg.MeetingSeconds); err != nil {
			return err
		}

		meetingType := meetingEmergency
		data := map[string]any{
			"type":         meetingType,
			"caller_id":    playerID,
			"phase":        PhaseMeeting,
			"seconds_left": g.MeetingSecondsLeft,
		}
		if bodyID != "" {
			meetingType = meetingReport
			data["type"] = meetingType
			data["reported_body_id"] = bodyID
			body := g.Players[bodyID]
			out.roomcast(room.memberIDs(), Event{Type: evtBodyReported, Data: map[string]any{
				"player_id": bodyID,
				"nickname":  body.Nickname,
				"x":         body.X,
				"y":         body.Y,
			}})
		}
		out.roomcast(room.memberIDs(), Event{Type: evtMeetingStarted, Data: data})

		log.Printf("meeting started room_id=%s type=%s caller=%s", room.ID, meetingType, playerID)
		s.persistRoomEvent(room.ID, g.DBID, "meeting_started", EventPayload{
			RoomID: room.ID, PlayerID: playerID, MeetingType: meetingType, TargetID: bodyID,
		})
		s.startPhaseCountdown(room.ID, PhaseMeeting, s.cfg.MeetingSeconds)
		return nil
	})
	s.flush(&out)
	return err
}

func (s *Server) CastVote(playerID, targetID string) error {
	var out outbox
	err := s.rooms.WithMemberRoom(playerID, func(room *Room) error {
		g := room.Session
		if g == nil {
			return ErrNoSession
		}
		if err := g.castVote(playerID, targetID); err != nil {
			return err
		}
		out.roomcast(room.memberIDs(), Event{Type: evtVoteCast, Data: map[string]any{
			"voter_id":    playerID,
			"votes_cast":  len(g.Votes),
			"alive_count": g.aliveCount(),
		}})
		if g.allAliveVoted() {
			s.resolveVotesLocked(room, &out)
		}
		return nil
	})
	s.flush(&out)
	return err
}

// startPhaseCountdown drives the per-second tick for a timed phase. Ticks
// re-enter the room's serialized section; a tick that finds the session gone
// or the phase moved on stops the countdown silently.
func (s *Server) startPhaseCountdown(roomID string, phase Phase, seconds int) {
	s.timers.Countdown(roomID, seconds, func(left int) bool {
		live := false
		var out outbox
		_ = s.rooms.WithRoom(roomID, func(room *Room) error {
			g := room.Session
			if g == nil || g.Phase != phase {
				return nil
			}
			if phase == PhaseMeeting {
				g.MeetingSecondsLeft = left
			} else {
				g.VotingSecondsLeft = left
			}
			out.roomcast(room.memberIDs(), Event{Type: evtTimeRemaining, Data: map[string]any{
				"phase":        phase,
				"seconds_left": left,
			}})
			live = true
			return nil
		})
		s.flush(&out)
		return live
	}, func() {
		if phase == PhaseMeeting {
			s.advanceToVoting(roomID)
		} else {
			s.resolveVotes(roomID)
		}
	})
}

func (s *Server) advanceToVoting(roomID string) {
	var out outbox
	_ = s.rooms.WithRoom(roomID, func(room *Room) error {
		g := room.Session
		if g == nil || !g.startVoting(s.cfg.VotingSeconds) {
			return nil
		}
		out.roomcast(room.memberIDs(), Event{Type: evtVotingStarted, Data: map[string]any{
			"phase":        PhaseVoting,
			"seconds_left": g.VotingSecondsLeft,
		}})
		log.Printf("voting started room_id=%s round=%d", room.ID, g.RoundNumber)
		s.startPhaseCountdown(room.ID, PhaseVoting, s.cfg.VotingSeconds)
		return nil
	})
	s.flush(&out)
}

func (s *Server) resolveVotes(roomID string) {
	var out outbox
	_ = s.rooms.WithRoom(roomID, func(room *Room) error {
		s.resolveVotesLocked(room, &out)
		return nil
	})
	s.flush(&out)
}

// resolveVotesLocked closes the voting phase: tally, ejection, win check, and
// either session end or the settle delay back to playing.
func (s *Server) resolveVotesLocked(room *Room, out *outbox) {
	g := room.Session
	if g == nil || g.Phase != PhaseVoting {
		return
	}
	tally, err := g.closeVoting()
	if err != nil {
		if isInvariantError(err) {
			s.abortSessionLocked(room, err, out)
		}
		return
	}

	details := voteDetails(g, tally)
	data := map[string]any{
		"ejected_id": tally.EjectedID,
		"tie":        tally.Tie,
		"counts":     details,
	}
	if tally.EjectedID != "" {
		ejected := g.Players[tally.EjectedID]
		data["ejected_nickname"] = ejected.Nickname
		data["ejected_role"] = ejected.Role
	}
	out.roomcast(room.memberIDs(), Event{Type: evtVotingResult, Data: data})
	log.Printf("voting resolved room_id=%s ejected=%s tie=%t votes=%d", room.ID, tally.EjectedID, tally.Tie, len(g.Votes))
	s.persistRoomEvent(room.ID, g.DBID, "voting_resolved", EventPayload{
		RoomID: room.ID, EjectedID: tally.EjectedID, Tie: tally.Tie, Count: len(g.Votes), RoundNumber: g.RoundNumber,
	})

	// The roster may have changed by more than the ejection (a departure can
	// close voting), so the win check runs regardless of the tally outcome.
	if winner, over := g.checkWin(); over {
		s.endSessionLocked(room, winner, out)
		return
	}
	s.timers.After(room.ID, time.Duration(s.cfg.ResultSeconds)*time.Second, func() {
		s.finishResult(room.ID)
	})
}

func (s *Server) finishResult(roomID string) {
	var out outbox
	_ = s.rooms.WithRoom(roomID, func(room *Room) error {
		g := room.Session
		if g == nil || !g.resumePlaying() {
			return nil
		}
		out.roomcast(room.memberIDs(), Event{Type: evtPhaseChanged, Data: map[string]any{
			"phase":        PhasePlaying,
			"round_number": g.RoundNumber,
		}})
		log.Printf("round started room_id=%s round=%d", room.ID, g.RoundNumber)
		return nil
	})
	s.flush(&out)
}

func voteDetails(g *GameSession, tally VoteTally) []VoteDetail {
	details := make([]VoteDetail, 0, len(tally.Counts))
	for target, count := range tally.Counts {
		nickname := "Skip"
		if target != VoteSkip {
			if p, ok := g.Players[target]; ok {
				nickname = p.Nickname
			}
		}
		details = append(details, VoteDetail{TargetID: target, Nickname: nickname, Votes: count})
	}
	sort.Slice(details, func(i, j int) bool {
		if details[i].Votes != details[j].Votes {
			return details[i].Votes > details[j].Votes
		}
		return details[i].TargetID < details[j].TargetID
	})
	return details
}

// ---- role actions ----

func (s *Server) Eliminate(playerID, targetID string) error {
	var out outbox
	err := s.rooms.WithMemberRoom(playerID, func(room *Room) error {
		g := room.Session
		if g == nil {
			return ErrNoSession
		}
		outcome, err := eliminate(g, playerID, targetID)
		if err != nil {
			return err
		}
		if outcome == ActionBlocked {
			out.send(playerID, Event{Type: evtActionBlocked, Data: map[string]string{
				"reason": "target is protected",
			}})
			return nil
		}

		victim := g.Players[targetID]
		out.roomcast(room.memberIDs(), Event{Type: evtPlayerEliminated, Data: map[string]any{
			"killer_id": playerID,
			"victim_id": targetID,
			"nickname":  victim.Nickname,
			"x":         victim.X,
			"y":         victim.Y,
		}})
		log.Printf("player eliminated room_id=%s victim=%s", room.ID, targetID)
		s.persistRoomEvent(room.ID, g.DBID, "player_eliminated", EventPayload{
			RoomID: room.ID, PlayerID: playerID, TargetID: targetID, RoundNumber: g.RoundNumber,
		})

		// An elimination mid-round can decide the game without a meeting.
		if winner, over := g.checkWin(); over {
			s.endSessionLocked(room, winner, &out)
		}
		return nil
	})
	s.flush(&out)
	return err
}

func (s *Server) Protect(playerID, targetID string) error {
	var out outbox
	err := s.rooms.WithMemberRoom(playerID, func(room *Room) error {
		g := room.Session
		if g == nil {
			return ErrNoSession
		}
		if err := protect(g, playerID, targetID); err != nil {
			return err
		}
		out.send(playerID, Event{Type: evtProtectionConfirmed, Data: map[string]string{
			"target_id": targetID,
		}})
		return nil
	})
	s.flush(&out)
	return err
}

func (s *Server) Investigate(playerID, targetID string) error {
	var out outbox
	err := s.rooms.WithMemberRoom(playerID, func(room *Room) error {
		g := room.Session
		if g == nil {
			return ErrNoSession
		}
		isMafia, err := investigate(g, playerID, targetID)
		if err != nil {
			return err
		}
		out.send(playerID, Event{Type: evtInvestigationResult, Data: map[string]any{
			"target_id": targetID,
			"is_mafia":  isMafia,
		}})
		return nil
	})
	s.flush(&out)
	return err
}

// ---- passthrough state ----

func (s *Server) UpdatePosition(playerID string, x, y float64) {
	_ = s.rooms.WithMemberRoom(playerID, func(room *Room) error {
		if room.Session != nil {
			room.Session.updatePosition(playerID, x, y)
			return nil
		}
		room.notePosition(playerID, x, y)
		return nil
	})
}

func (s *Server) RequestSnapshot(playerID string) error {
	var out outbox
	err := s.rooms.WithMemberRoom(playerID, func(room *Room) error {
		g := room.Session
		if g == nil {
			return ErrNoSession
		}
		out.send(playerID, Event{Type: evtSnapshot, Data: sessionSnapshot(g, playerID)})
		return nil
	})
	s.flush(&out)
	return err
}

// ---- session teardown ----

// endSessionLocked finishes the game: final roster with true roles goes out,
// the timer is cancelled, and the room returns to waiting with readiness
// reset so the lobby can go again.
func (s *Server) endSessionLocked(room *Room, winner string, out *outbox) {
	g := room.Session
	if g == nil {
		return
	}
	g.Phase = PhaseEnded

	roster := make([]PlayerSnapshot, 0, len(g.Players))
	for _, p := range g.Players {
		roster = append(roster, projectPlayer(p, p))
	}
	sort.Slice(roster, func(i, j int) bool { return roster[i].ID < roster[j].ID })

	out.roomcast(room.memberIDs(), Event{Type: evtGameEnded, Data: map[string]any{
		"winner":       winner,
		"final_roster": roster,
	}})
	log.Printf("game ended room_id=%s winner=%s rounds=%d", room.ID, winner, g.RoundNumber)
	s.persistGameEnd(room.ID, g, winner)

	for id, p := range g.Players {
		room.notePosition(id, p.X, p.Y)
	}
	s.timers.Cancel(room.ID)
	room.Session = nil
	room.Status = roomWaiting
	for i := range room.Members {
		room.Members[i].Ready = room.Members[i].ID == room.HostID
	}
}

// abortSessionLocked is the fault isolation path for invariant violations:
// log it, kill this one session, tell its members, and leave every other room
// untouched.
func (s *Server) abortSessionLocked(room *Room, cause error, out *outbox) {
	log.Printf("session aborted room_id=%s error=%v", room.ID, cause)
	out.roomcast(room.memberIDs(), Event{Type: evtSessionAborted, Data: map[string]string{
		"reason": "internal error",
	}})
	var dbID uint
	if g := room.Session; g != nil {
		dbID = g.DBID
		for id, p := range g.Players {
			room.notePosition(id, p.X, p.Y)
		}
	}
	s.persistRoomEvent(room.ID, dbID, "session_aborted", EventPayload{RoomID: room.ID, Reason: cause.Error()})

	s.timers.Cancel(room.ID)
	room.Session = nil
	room.Status = roomWaiting
	for i := range room.Members {
		room.Members[i].Ready = room.Members[i].ID == room.HostID
	}
}

func memberFromProfile(p Profile) Member {
	return Member{ID: p.ID, Nickname: p.Nickname, Affiliation: p.Affiliation}
}

func memberIDsFromView(view RoomView) []string {
	ids := make([]string, 0, len(view.Members))
	for _, m := range view.Members {
		ids = append(ids, m.ID)
	}
	return ids
}
