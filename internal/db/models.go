package db

import (
	"time"

	"gorm.io/datatypes"
)

// Audit schema. The server never reads these tables during play; they exist
// so finished games can be inspected after the fact.

type Game struct {
	ID        uint      `gorm:"primaryKey"`
	RoomID    string    `gorm:"size:64;index;not null"`
	RoomName  string    `gorm:"size:64;not null"`
	Winner    string    `gorm:"size:16"`
	Rounds    int       `gorm:"not null;default:1"`
	StartedAt time.Time `gorm:"not null"`
	EndedAt   *time.Time
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
	Players   []GamePlayer
	Events    []GameEvent
}

type GamePlayer struct {
	ID          uint      `gorm:"primaryKey"`
	GameID      uint      `gorm:"index;not null;uniqueIndex:idx_game_players_game_player"`
	PlayerID    string    `gorm:"size:64;not null;uniqueIndex:idx_game_players_game_player"`
	Nickname    string    `gorm:"size:64;not null"`
	Affiliation string    `gorm:"size:64"`
	Role        string    `gorm:"size:16;not null"`
	Survived    bool      `gorm:"not null;default:true"`
	CreatedAt   time.Time `gorm:"not null"`
	UpdatedAt   time.Time `gorm:"not null"`
}

type GameEvent struct {
	ID        uint           `gorm:"primaryKey"`
	GameID    *uint          `gorm:"index"`
	RoomID    string         `gorm:"size:64;index;not null"`
	Type      string         `gorm:"size:64;not null"`
	Payload   datatypes.JSON `gorm:"type:jsonb;not null"`
	CreatedAt time.Time      `gorm:"not null"`
}
