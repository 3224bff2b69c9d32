package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/ayusman/mudra/internal/app"
)

const (
	resultQueueSize = 32
	writeWait       = time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// ResultsHandler broadcasts recognition results via WebSocket.
type ResultsHandler struct {
	queue   chan app.Result
	clients map[*websocket.Conn]bool
	mu      sync.RWMutex
	once    sync.Once
	done    chan struct{}
}

// NewResultsHandler creates a ResultsHandler and starts its broadcaster.
func NewResultsHandler() *ResultsHandler {
	h := &ResultsHandler{
		queue:   make(chan app.Result, resultQueueSize),
		clients: make(map[*websocket.Conn]bool),
		done:    make(chan struct{}),
	}
	go h.broadcast()
	return h
}

// Publish queues r for broadcast. Results are dropped when the queue is full.
func (h *ResultsHandler) Publish(r app.Result) {
	select {
	case <-h.done:
	case h.queue <- r:
	default:
	}
}

// Clients returns the number of connected clients.
func (h *ResultsHandler) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close stops the broadcaster and disconnects all clients.
func (h *ResultsHandler) Close() {
	h.once.Do(func() {
		close(h.done)
		h.mu.Lock()
		for conn := range h.clients {
			conn.Close()
			delete(h.clients, conn)
		}
		h.mu.Unlock()
	})
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *ResultsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Debugf("websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	h.mu.Lock()
	h.clients[conn] = true
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		h.mu.Unlock()
	}()

	// Keep connection alive by reading messages
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

// broadcast sends queued results to all connected clients.
func (h *ResultsHandler) broadcast() {
	for {
		select {
		case <-h.done:
			return
		case r := <-h.queue:
			msg, err := json.Marshal(r)
			if err != nil {
				log.Debugf("encode result: %v", err)
				continue
			}

			h.mu.RLock()
			for conn := range h.clients {
				conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
					log.Debugf("websocket write: %v", err)
				}
			}
			h.mu.RUnlock()
		}
	}
}
