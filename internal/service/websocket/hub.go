// Package websocket pushes UI events to connected dashboards.
package websocket

import (
	"context"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"

	"drowsyguard/internal/logger"
	"drowsyguard/internal/model"
)

const (
	broadcastBuffer = 256
	writeWait       = 5 * time.Second
)

// registration carries a new connection and the event it is greeted with.
type registration struct {
	conn     *websocket.Conn
	greeting func() model.Event
}

// HubService fans events out to every registered connection.
type HubService struct {
	clients    map[*websocket.Conn]bool
	broadcast  chan []byte
	register   chan registration
	unregister chan *websocket.Conn
	done       chan struct{}
	mutex      sync.RWMutex
	logger     *logger.Logger
}

func NewHubService(logger *logger.Logger) *HubService {
	return &HubService{
		clients:    make(map[*websocket.Conn]bool),
		broadcast:  make(chan []byte, broadcastBuffer),
		register:   make(chan registration),
		unregister: make(chan *websocket.Conn),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run serves registrations and broadcasts until ctx is done, then closes
// every connection.
func (h *HubService) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mutex.Lock()
			for client := range h.clients {
				client.Close()
				delete(h.clients, client)
			}
			h.mutex.Unlock()
			return

		case reg := <-h.register:
			// klient jest już na liście, gdy powstaje powitanie
			h.mutex.Lock()
			h.clients[reg.conn] = true
			if reg.greeting != nil {
				if err := Send(reg.conn, reg.greeting()); err != nil {
					h.logger.Error("Error sending greeting: %v", err)
					delete(h.clients, reg.conn)
					reg.conn.Close()
				}
			}
			total := len(h.clients)
			h.mutex.Unlock()
			h.logger.Info("Client connected. Total: %d", total)

		case client := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.Close()
			}
			total := len(h.clients)
			h.mutex.Unlock()
			h.logger.Info("Client disconnected. Total: %d", total)

		case message := <-h.broadcast:
			h.mutex.Lock()
			for client := range h.clients {
				client.SetWriteDeadline(time.Now().Add(writeWait))
				if err := client.WriteMessage(websocket.TextMessage, message); err != nil {
					h.logger.Error("Error sending message: %v", err)
					delete(h.clients, client)
					client.Close()
				}
			}
			h.mutex.Unlock()
		}
	}
}

// Register adds a connection. When greeting is not nil, the hub builds the
// event after the connection joins and writes it before any later broadcast,
// so nothing published after the greeting is missed. Events queued before it
// may still follow the greeting. Once the hub has stopped the connection is closed.
func (h *HubService) Register(client *websocket.Conn, greeting func() model.Event) {
	select {
	case h.register <- registration{conn: client, greeting: greeting}:
	case <-h.done:
		client.Close()
	}
}

// Unregister removes and closes a connection.
func (h *HubService) Unregister(client *websocket.Conn) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Publish queues an event for every client. It never blocks; when the queue
// is full the event is dropped.
func (h *HubService) Publish(event model.Event) {
	data, err := sonic.Marshal(event)
	if err != nil {
		h.logger.Error("Error encoding %s event: %v", event.Type, err)
		return
	}
	select {
	case h.broadcast <- data:
	default:
		h.logger.Warning("Event queue full, dropping %s event", event.Type)
	}
}

// Send writes one event to a single connection. Registered connections are
// written only by the hub goroutine.
func Send(conn *websocket.Conn, event model.Event) error {
	data, err := sonic.Marshal(event)
	if err != nil {
		return err
	}
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(websocket.TextMessage, data)
}

func (h *HubService) GetClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}
