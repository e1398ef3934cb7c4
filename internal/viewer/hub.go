package viewer

import (
	"log/slog"
	"sync"
)

// PlaygroundImageID is the image id anonymous sessions may open without
// authentication; it resolves to the built-in sample image.
const PlaygroundImageID = "img_sample"

const (
	playgroundImageW = 640
	playgroundImageH = 480
)

// Hub tracks live viewer sessions. Unlike a collaboration room there is no
// cross-client traffic: every session owns a private engine, and the hub
// only registers, unregisters, and rolls sessions up for shutdown.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client // sessionID -> client

	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	provider ImageProvider
	logger   *slog.Logger
}

func NewHub(provider ImageProvider, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		provider:   provider,
		logger:     logger,
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		case <-h.done:
			return
		}
	}
}

// Stop closes every live session and halts the run loop. Clients still
// draining disconnect against the closed done channel instead of the
// departed run loop.
func (h *Hub) Stop() {
	h.mu.Lock()
	for id, c := range h.clients {
		close(c.done)
		c.session.Close()
		delete(h.clients, id)
	}
	h.mu.Unlock()
	close(h.done)
}

func (h *Hub) Register(client *Client) {
	h.register <- client
}

// SessionCount reports the number of live sessions, for the health endpoint.
func (h *Hub) SessionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	h.clients[client.SessionID] = client
	h.mu.Unlock()

	h.logger.Info("viewer connected", "session", client.SessionID, "user", client.UserID)
}

// removeClient signals the client's done channel rather than closing its
// send channel: the session's engine may still complete an image load and
// emit through Send after the disconnect.
func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	_, ok := h.clients[client.SessionID]
	if ok {
		delete(h.clients, client.SessionID)
	}
	h.mu.Unlock()

	if !ok {
		return
	}

	close(client.done)
	client.session.Close()

	h.logger.Info("viewer disconnected", "session", client.SessionID, "user", client.UserID)
}
