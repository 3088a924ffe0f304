package server

import (
	"encoding/json"
	"testing"
)

func TestGameEventRecordLinksGame(t *testing.T) {
	record, err := newGameEventRecord("room-1", 7, "voting_resolved", EventPayload{
		RoomID: "room-1", EjectedID: "p2", Count: 4, RoundNumber: 2,
	})
	if err != nil {
		t.Fatalf("newGameEventRecord: %v", err)
	}
	if record.GameID == nil || *record.GameID != 7 {
		t.Fatalf("expected game id 7, got %v", record.GameID)
	}
	if record.RoomID != "room-1" || record.Type != "voting_resolved" {
		t.Fatalf("unexpected record %+v", record)
	}

	var payload EventPayload
	if err := json.Unmarshal(record.Payload, &payload); err != nil {
		t.Fatalf("payload unmarshal: %v", err)
	}
	if payload.EjectedID != "p2" || payload.Count != 4 {
		t.Fatalf("unexpected payload %+v", payload)
	}
}

func TestGameEventRecordRoomScoped(t *testing.T) {
	record, err := newGameEventRecord("room-1", 0, "room_created", EventPayload{RoomID: "room-1"})
	if err != nil {
		t.Fatalf("newGameEventRecord: %v", err)
	}
	if record.GameID != nil {
		t.Fatalf("room-scoped event should not link a game, got %v", *record.GameID)
	}
}
