package handler

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"drowsyguard/internal/logger"
	"drowsyguard/internal/model"
	hub "drowsyguard/internal/service/websocket"
)

// Upgrader upgrades HTTP connections to WebSocket; CheckOrigin allows all origins.
var Upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// EventsWebsocketHandler streams UI events. A new connection first receives
// the current snapshot, taken once it has joined the hub, then every event
// published after it.
func EventsWebsocketHandler(ctrl SessionController, events *hub.HubService, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		connection, err := Upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Error("WebSocket upgrade error: %v", err)
			return
		}

		events.Register(connection, func() model.Event {
			snap := ctrl.Snapshot()
			return model.Event{Type: model.EventSnapshot, SessionID: snap.Session.ID, Time: time.Now(), Data: snap}
		})
		defer events.Unregister(connection)

		logger.Info("Dashboard connected")

		for {
			_, _, err := connection.ReadMessage()
			if err != nil {
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					logger.Info("Dashboard disconnected normally")
				} else {
					logger.Error("Dashboard disconnected with error: %v", err)
				}
				break
			}
		}
	}
}
