// Package transport streams live predictions to WebSocket clients.
package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"affect-lab/internal/domain"
	"affect-lab/internal/observability"
)

// DefaultWriteTimeout bounds a single frame write.
const DefaultWriteTimeout = 10 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // dashboards are served from other local origins
	},
}

type client struct {
	id     string
	conn   *websocket.Conn
	remote string
	mu     sync.Mutex // serialises writes
}

// Broadcaster fans prediction frames out to every connected client.
// It implements http.Handler for the upgrade endpoint.
type Broadcaster struct {
	clients      map[string]*client
	mu           sync.RWMutex
	writeTimeout time.Duration
	logger       *log.Logger
}

// NewBroadcaster creates an empty broadcaster. A nil logger discards.
func NewBroadcaster(logger *log.Logger) *Broadcaster {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Broadcaster{
		clients:      make(map[string]*client),
		writeTimeout: DefaultWriteTimeout,
		logger:       logger,
	}
}

// ServeHTTP upgrades the request and keeps the client registered until it
// disconnects.
func (b *Broadcaster) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		b.logger.Printf("Failed to upgrade connection: %v", err)
		return
	}

	c := &client{id: uuid.NewString(), conn: conn, remote: r.RemoteAddr}
	count := b.add(c)
	b.logger.Printf("Client %s connected from %s (total: %d)", c.id, c.remote, count)

	defer func() {
		count := b.remove(c.id)
		conn.Close()
		b.logger.Printf("Client %s disconnected (total: %d)", c.id, count)
	}()

	// Client frames are ignored; reading detects the disconnect.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (b *Broadcaster) add(c *client) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.clients[c.id] = c
	observability.UpdateWSClients(len(b.clients))
	return len(b.clients)
}

func (b *Broadcaster) remove(id string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.clients, id)
	observability.UpdateWSClients(len(b.clients))
	return len(b.clients)
}

// Frame is the JSON message sent to clients.
type Frame struct {
	Type       string             `json:"type"`
	Prediction *domain.Prediction `json:"prediction,omitempty"`
	Error      string             `json:"error,omitempty"`
}

// Broadcast sends a prediction to all connected clients. Failed writes are
// logged; the client is cleaned up by its read loop.
func (b *Broadcaster) Broadcast(p *domain.Prediction) error {
	return b.send(Frame{Type: "prediction", Prediction: p})
}

// BroadcastError tells clients a live prediction could not be made.
func (b *Broadcaster) BroadcastError(err error) error {
	return b.send(Frame{Type: "error", Error: err.Error()})
}

func (b *Broadcaster) send(f Frame) error {
	data, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("marshal frame: %w", err)
	}

	b.mu.RLock()
	targets := make([]*client, 0, len(b.clients))
	for _, c := range b.clients {
		targets = append(targets, c)
	}
	b.mu.RUnlock()

	for _, c := range targets {
		c.mu.Lock()
		c.conn.SetWriteDeadline(time.Now().Add(b.writeTimeout))
		err := c.conn.WriteMessage(websocket.TextMessage, data)
		c.mu.Unlock()
		if err != nil {
			b.logger.Printf("Failed to send to client %s: %v", c.id, err)
		}
	}
	return nil
}

// BroadcastFromChannel broadcasts predictions until ctx is done or the
// channel closes.
func (b *Broadcaster) BroadcastFromChannel(ctx context.Context, predictions <-chan *domain.Prediction) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case p, ok := <-predictions:
			if !ok {
				return nil
			}
			if err := b.Broadcast(p); err != nil {
				b.logger.Printf("Broadcast error: %v", err)
			}
		}
	}
}

// ClientCount returns the number of connected clients.
func (b *Broadcaster) ClientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

// Close disconnects every client.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, c := range b.clients {
		c.mu.Lock()
		c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutdown"),
			time.Now().Add(time.Second))
		c.conn.Close()
		c.mu.Unlock()
		delete(b.clients, id)
	}
	observability.UpdateWSClients(0)
}
