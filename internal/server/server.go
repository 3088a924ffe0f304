package server

import (
	"net/http"

	"campus-mafia/internal/config"

	"gorm.io/gorm"
)

// Server is the session manager: it owns the player registry, the room
// directory, every live game session, and the timer scheduler, and routes
// validated commands into them. conn may be nil; the audit trail is then
// skipped and gameplay is unaffected.
type Server struct {
	cfg      config.Config
	db       *gorm.DB
	registry *Registry
	rooms    *Directory
	timers   *timerScheduler
	sink     eventSink
	hub      *wsHub
}

// eventSink delivers outbound events. The websocket hub is the production
// sink; tests plug in a recorder.
type eventSink interface {
	SendTo(playerID string, event Event)
	Broadcast(event Event)
}

func New(conn *gorm.DB, cfg config.Config) *Server {
	hub := newWSHub()
	return &Server{
		cfg:      cfg,
		db:       conn,
		registry: NewRegistry(),
		rooms:    NewDirectory(cfg.MinPlayers, cfg.MaxRoomCapacity),
		timers:   newTimerScheduler(),
		sink:     hub,
		hub:      hub,
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws", s.handleWebsocket)
	return mux
}

// Shutdown stops every room timer. Connections are owned by the http server
// and close with it.
func (s *Server) Shutdown() {
	s.timers.CancelAll()
}
