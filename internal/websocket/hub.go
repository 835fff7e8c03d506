// Package websocket pushes live updates to open pages: content reloads,
// load failures, and each viewer's active section.
package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/conneroisu/devlog/internal/content"
	siteerrors "github.com/conneroisu/devlog/internal/errors"
	"github.com/conneroisu/devlog/internal/logging"
	"github.com/conneroisu/devlog/internal/sections"
)

const (
	sendBuffer   = 64
	readTimeout  = 60 * time.Second
	writeTimeout = 10 * time.Second
	pingInterval = 30 * time.Second
	maxReadBytes = 4096
)

// SnapshotSource hands out the current content snapshot.
type SnapshotSource interface {
	Snapshot() (*content.Snapshot, error)
}

// Hub manages connected clients. A single goroutine owns the client map;
// everything else talks to it through channels.
type Hub struct {
	clients      map[string]*Client
	clientsMutex sync.RWMutex

	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client

	originValidator OriginValidator
	snapshots       SnapshotSource
	logger          logging.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	// closed guards wg.Add against a concurrent Shutdown.
	closed    bool
	closedMux sync.Mutex
}

// NewHub creates a hub and starts its goroutine. snapshots provides the
// section geometry each new client's tracker starts from.
func NewHub(originValidator OriginValidator, snapshots SnapshotSource, logger logging.Logger) *Hub {
	if originValidator == nil {
		panic("websocket.NewHub: originValidator cannot be nil")
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	ctx, cancel := context.WithCancel(context.Background())
	h := &Hub{
		clients:         make(map[string]*Client),
		broadcast:       make(chan []byte, 256),
		register:        make(chan *Client),
		unregister:      make(chan *Client),
		originValidator: originValidator,
		snapshots:       snapshots,
		logger:          logger.WithComponent("websocket"),
		ctx:             ctx,
		cancel:          cancel,
	}

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		h.run()
	}()

	return h
}

func (h *Hub) run() {
	for {
		select {
		case client := <-h.register:
			h.clientsMutex.Lock()
			h.clients[client.id] = client
			n := len(h.clients)
			h.clientsMutex.Unlock()
			h.logger.Debug(h.ctx, "WebSocket client connected", "client", client.id, "clients", n)

		case client := <-h.unregister:
			h.removeClient(client)

		case message := <-h.broadcast:
			h.clientsMutex.RLock()
			clients := make([]*Client, 0, len(h.clients))
			for _, c := range h.clients {
				clients = append(clients, c)
			}
			h.clientsMutex.RUnlock()

			for _, c := range clients {
				if !c.enqueue(message) {
					h.logger.Warn(h.ctx, nil, "Dropping slow WebSocket client", "client", c.id)
					h.removeClient(c)
				}
			}

		case <-h.ctx.Done():
			h.clientsMutex.Lock()
			for id, c := range h.clients {
				c.close()
				delete(h.clients, id)
			}
			h.clientsMutex.Unlock()
			return
		}
	}
}

func (h *Hub) removeClient(c *Client) {
	h.clientsMutex.Lock()
	_, exists := h.clients[c.id]
	delete(h.clients, c.id)
	n := len(h.clients)
	h.clientsMutex.Unlock()

	c.close()
	if exists {
		h.logger.Debug(h.ctx, "WebSocket client disconnected", "client", c.id, "clients", n)
	}
}

// HandleWebSocket upgrades the request and serves the client until it
// disconnects or the hub shuts down.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	if h.ctx.Err() != nil {
		http.Error(w, "Service Unavailable", http.StatusServiceUnavailable)
		return
	}

	origin := r.Header.Get("Origin")
	if !h.originValidator.IsAllowedOrigin(origin) {
		err := siteerrors.ErrInvalidOrigin(origin)
		h.logger.Warn(r.Context(), err, "WebSocket connection rejected", "origin", origin, "remote", r.RemoteAddr)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(siteerrors.HTTPStatus(err))
		_ = json.NewEncoder(w).Encode(siteerrors.NewResponse(err))
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		// Origin was checked above.
		InsecureSkipVerify: true,
		CompressionMode:    websocket.CompressionDisabled,
	})
	if err != nil {
		h.logger.Warn(r.Context(), err, "WebSocket upgrade failed", "remote", r.RemoteAddr)
		return
	}
	conn.SetReadLimit(maxReadBytes)

	client := h.newClient(conn)
	client.unsubscribe = client.tracker.Subscribe(func(change sections.Change) {
		h.sendTo(client, UpdateMessage{Type: MessageActiveSection, Target: change.Current})
	})
	defer client.unsubscribe()

	h.closedMux.Lock()
	if h.closed {
		h.closedMux.Unlock()
		_ = conn.Close(websocket.StatusGoingAway, "Server shutting down")
		return
	}
	h.wg.Add(1)
	h.closedMux.Unlock()

	select {
	case h.register <- client:
	case <-h.ctx.Done():
		h.wg.Done()
		_ = conn.Close(websocket.StatusGoingAway, "Server shutting down")
		return
	}
	h.sendTo(client, UpdateMessage{Type: MessageConnected, Target: client.id})

	go func() {
		defer h.wg.Done()
		h.writePump(client)
	}()

	h.readPump(client)

	select {
	case h.unregister <- client:
	case <-h.ctx.Done():
	}
}

func (h *Hub) newClient(conn *websocket.Conn) *Client {
	var secs []content.Section
	if h.snapshots != nil {
		if snap, err := h.snapshots.Snapshot(); err == nil {
			secs = snap.Sections
		}
	}

	return &Client{
		id:      uuid.NewString(),
		conn:    conn,
		send:    make(chan []byte, sendBuffer),
		tracker: sections.NewTracker(secs),
	}
}

func (h *Hub) readPump(client *Client) {
	defer client.conn.CloseNow()

	for {
		ctx, cancel := context.WithTimeout(h.ctx, readTimeout)
		typ, data, err := client.conn.Read(ctx)
		cancel()
		if err != nil {
			status := websocket.CloseStatus(err)
			if status != websocket.StatusNormalClosure && status != websocket.StatusGoingAway && h.ctx.Err() == nil {
				h.logger.Debug(h.ctx, "WebSocket read ended", "client", client.id, "error", err.Error())
			}
			return
		}
		if typ != websocket.MessageText {
			continue
		}
		h.handleClientMessage(client, data)
	}
}

func (h *Hub) handleClientMessage(client *Client, data []byte) {
	var msg ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		h.sendTo(client, UpdateMessage{Type: MessageError, Error: "malformed message"})
		return
	}

	switch msg.Type {
	case MessageScroll:
		if msg.Height < 0 {
			h.sendTo(client, UpdateMessage{Type: MessageError, Error: "height must not be negative"})
			return
		}
		// Subscribers reply when the active section changes.
		client.tracker.Update(sections.Viewport{Top: msg.Top, Height: msg.Height})
	default:
		h.sendTo(client, UpdateMessage{Type: MessageError, Error: "unknown message type: " + msg.Type})
	}
}

func (h *Hub) writePump(client *Client) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	defer client.conn.CloseNow()

	for {
		select {
		case message, ok := <-client.send:
			if !ok {
				_ = client.conn.Close(websocket.StatusGoingAway, "")
				return
			}

			ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
			err := client.conn.Write(ctx, websocket.MessageText, message)
			cancel()
			if err != nil {
				return
			}

		case <-ticker.C:
			ctx, cancel := context.WithTimeout(h.ctx, writeTimeout)
			err := client.conn.Ping(ctx)
			cancel()
			if err != nil {
				return
			}
		}
	}
}

func (h *Hub) sendTo(client *Client, msg UpdateMessage) {
	data, err := encode(msg)
	if err != nil {
		h.logger.Error(h.ctx, err, "Failed to marshal WebSocket message")
		return
	}
	client.enqueue(data)
}

func encode(msg UpdateMessage) ([]byte, error) {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}
	return json.Marshal(msg)
}

// BroadcastMessage sends a message to all connected WebSocket clients
func (h *Hub) BroadcastMessage(msg UpdateMessage) {
	data, err := encode(msg)
	if err != nil {
		h.logger.Error(h.ctx, err, "Failed to marshal broadcast message")
		return
	}

	select {
	case h.broadcast <- data:
	case <-h.ctx.Done():
	default:
		h.logger.Warn(h.ctx, nil, "Broadcast channel full, dropping message", "type", msg.Type)
	}
}

// Watcher is the part of content.Store that publishes reload events.
type Watcher interface {
	Watch() <-chan content.Event
	UnWatch(ch <-chan content.Event)
}

// FollowStore broadcasts store reload events until ctx is done.
func (h *Hub) FollowStore(ctx context.Context, store Watcher) {
	events := store.Watch()
	defer store.UnWatch(events)

	h.Follow(ctx, events)
}

// Follow broadcasts events until ctx is done or events is closed. On a
// successful reload every client's tracker picks up the new sections.
func (h *Hub) Follow(ctx context.Context, events <-chan content.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-h.ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			h.publish(event)
		}
	}
}

func (h *Hub) publish(event content.Event) {
	switch event.Type {
	case content.EventTypeReloaded:
		if event.Snapshot != nil {
			h.clientsMutex.RLock()
			for _, c := range h.clients {
				c.tracker.SetSections(event.Snapshot.Sections)
			}
			h.clientsMutex.RUnlock()
		}
		h.BroadcastMessage(UpdateMessage{Type: MessageContentReloaded, Timestamp: event.Timestamp})
	case content.EventTypeFailed:
		msg := UpdateMessage{Type: MessageContentError, Timestamp: event.Timestamp}
		if event.Err != nil {
			msg.Error = siteerrors.PublicMessage(event.Err)
		}
		h.BroadcastMessage(msg)
	}
}

// ConnectedClients returns the number of connected clients
func (h *Hub) ConnectedClients() int {
	h.clientsMutex.RLock()
	defer h.clientsMutex.RUnlock()
	return len(h.clients)
}

// Shutdown closes every client and waits for the hub goroutines or ctx.
func (h *Hub) Shutdown(ctx context.Context) error {
	h.closedMux.Lock()
	h.closed = true
	h.closedMux.Unlock()
	h.cancel()

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
