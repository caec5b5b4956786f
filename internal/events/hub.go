package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/olahol/melody"
)

const clubKey = "club_id"

// Hub pushes events to websocket sessions subscribed to a club.
type Hub struct {
	m *melody.Melody
}

func NewHub() *Hub {
	m := melody.New()
	m.Config.MaxMessageSize = 4 << 10
	m.Config.PingPeriod = 30 * time.Second
	m.Config.PongWait = 60 * time.Second

	m.HandleConnect(func(s *melody.Session) {
		clubID, _ := s.Get(clubKey)
		slog.Debug("Websocket client connected", "club_id", clubID)
	})
	m.HandleDisconnect(func(s *melody.Session) {
		clubID, _ := s.Get(clubKey)
		slog.Debug("Websocket client disconnected", "club_id", clubID)
	})
	m.HandleError(func(s *melody.Session, err error) {
		slog.Warn("Websocket error", "error", err)
	})
	return &Hub{m: m}
}

// Serve upgrades the request and subscribes the session to clubID.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, clubID int64) error {
	return h.m.HandleRequestWithKeys(w, r, map[string]interface{}{clubKey: clubID})
}

func (h *Hub) Publish(_ context.Context, ev Event) error {
	msg, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", ev.Type, err)
	}
	return h.m.BroadcastFilter(msg, func(s *melody.Session) bool {
		id, ok := s.Get(clubKey)
		return ok && id == ev.ClubID
	})
}

// Sessions returns the number of connected clients.
func (h *Hub) Sessions() int {
	return h.m.Len()
}

func (h *Hub) Close() error {
	return h.m.Close()
}
