// Package websocket pushes committed document changes to connected editors.
package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/dom/doctree/internal/domain"
)

const broadcastBuffer = 256

// Authorizer reports whether credential may still receive the feed.
type Authorizer func(ctx context.Context, credential string) bool

type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan *Message
	stop       chan struct{}
	done       chan struct{} // closed when Run() exits
	stopped    bool
	seq        uint64
	authorize  Authorizer
	mu         sync.RWMutex
	logger     *slog.Logger
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *Message, broadcastBuffer),
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
		logger:     slog.Default().With("component", "websocket.hub"),
	}
}

func (h *Hub) Run() {
	defer close(h.done) // Signal that Run() has exited

	for {
		select {
		case <-h.stop:
			h.mu.Lock()
			h.stopped = true
			for client := range h.clients {
				client.Close()
			}
			h.clients = make(map[*Client]bool)
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			client.sendMessage(MessageTypeConnected, ConnectedPayload{
				ClientID: client.ID().String(),
				UserID:   client.userID,
			})
			h.logger.Debug("client registered", "client_id", client.ID(), "user_id", client.userID)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.Close()
			}
			h.mu.Unlock()

		case msg := <-h.broadcast:
			h.seq++
			msg.Seq = h.seq
			data, err := json.Marshal(msg)
			if err != nil {
				h.logger.Error("failed to marshal broadcast", "error", err)
				continue
			}

			h.mu.Lock()
			for client := range h.clients {
				if h.authorize != nil && !h.authorize(context.Background(), client.credential) {
					delete(h.clients, client)
					client.Close()
					h.logger.Info("dropped client that is no longer authorized", "client_id", client.ID(), "user_id", client.userID)
					continue
				}
				if !client.enqueue(data) {
					// Slow consumer; drop it rather than stall the feed.
					delete(h.clients, client)
					client.Close()
					h.logger.Warn("dropped slow client", "client_id", client.ID())
				}
			}
			h.mu.Unlock()
		}
	}
}

// SetAuthorizer installs the check run for every client before each
// broadcast. Clients that fail it are disconnected instead of receiving the
// event.
func (h *Hub) SetAuthorizer(a Authorizer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.authorize = a
}

// Stop closes every client connection and blocks until Run has returned.
func (h *Hub) Stop() {
	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		return
	}
	h.stopped = true
	h.mu.Unlock()

	close(h.stop)
	<-h.done
}

// Register adds a client to the feed. A client registered after Stop is
// closed immediately.
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
		client.Close()
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Publish queues a document event for every connected client. It never
// blocks the caller: when the hub is gone or its queue is full the event is
// dropped.
func (h *Hub) Publish(event domain.DocumentEvent) {
	msg, err := NewMessage(MessageType(event.Type), event)
	if err != nil {
		h.logger.Error("failed to build event message", "error", err, "type", event.Type)
		return
	}

	select {
	case h.broadcast <- msg:
	case <-h.done:
	default:
		h.logger.Warn("broadcast queue full, event dropped", "type", event.Type, "document_id", event.DocumentID)
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
