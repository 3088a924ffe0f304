package server

import (
	"encoding/json"
	"errors"
	"log"
	"time"

	"campus-mafia/internal/db"

	"github.com/jackc/pgconn"
	"gorm.io/datatypes"
)

// Write-only audit trail. Every helper is a no-op when the server runs
// without a database, and failures are logged rather than surfaced: losing an
// audit row must never reject a player's command.

// newGameEventRecord builds the audit row for one event. gameID zero means
// the event is room-scoped and not linked to a game row.
func newGameEventRecord(roomID string, gameID uint, eventType string, payload EventPayload) (db.GameEvent, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return db.GameEvent{}, err
	}
	record := db.GameEvent{
		RoomID:  roomID,
		Type:    eventType,
		Payload: datatypes.JSON(data),
	}
	if gameID != 0 {
		id := gameID
		record.GameID = &id
	}
	return record, nil
}

func (s *Server) persistRoomEvent(roomID string, gameID uint, eventType string, payload EventPayload) {
	if s.db == nil {
		return
	}
	record, err := newGameEventRecord(roomID, gameID, eventType, payload)
	if err != nil {
		return
	}
	if err := s.db.Create(&record).Error; err != nil {
		log.Printf("audit event write failed room_id=%s type=%s error=%v", roomID, eventType, err)
	}
}

func (s *Server) persistGameStart(view RoomView) {
	if s.db == nil {
		return
	}
	record := db.Game{
		RoomID:    view.ID,
		RoomName:  view.Name,
		StartedAt: time.Now().UTC(),
	}
	if err := s.db.Create(&record).Error; err != nil {
		if !isUniqueViolation(err) {
			log.Printf("audit game write failed room_id=%s error=%v", view.ID, err)
		}
		return
	}
	s.rooms.setSessionDBID(view.ID, record.ID)
	s.persistRoomEvent(view.ID, record.ID, "game_started", EventPayload{
		RoomID: view.ID, RoomName: view.Name, Count: len(view.Members),
	})
}

func (s *Server) persistGameEnd(roomID string, g *GameSession, winner string) {
	if s.db == nil {
		return
	}
	if g.DBID != 0 {
		now := time.Now().UTC()
		update := map[string]any{
			"winner":   winner,
			"rounds":   g.RoundNumber,
			"ended_at": &now,
		}
		if err := s.db.Model(&db.Game{}).Where("id = ?", g.DBID).Updates(update).Error; err != nil {
			log.Printf("audit game update failed room_id=%s error=%v", roomID, err)
		}
		for _, p := range g.Players {
			record := db.GamePlayer{
				GameID:      g.DBID,
				PlayerID:    p.ID,
				Nickname:    p.Nickname,
				Affiliation: p.Affiliation,
				Role:        string(p.Role),
				Survived:    p.Alive,
			}
			if err := s.db.Create(&record).Error; err != nil && !isUniqueViolation(err) {
				log.Printf("audit player write failed room_id=%s player_id=%s error=%v", roomID, p.ID, err)
			}
		}
	}
	s.persistRoomEvent(roomID, g.DBID, "game_ended", EventPayload{
		RoomID: roomID, Winner: winner, RoundNumber: g.RoundNumber,
	})
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
