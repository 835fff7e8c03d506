package websocket

import (
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/conneroisu/devlog/internal/sections"
)

// Message types exchanged over /ws.
const (
	MessageConnected       = "connected"
	MessageScroll          = "scroll"
	MessageActiveSection   = "active_section"
	MessageContentReloaded = "content_reloaded"
	MessageContentError    = "content_error"
	MessageError           = "error"
)

// UpdateMessage represents a message sent to the browser
type UpdateMessage struct {
	Type      string    `json:"type"`
	Target    string    `json:"target,omitempty"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ClientMessage is a message received from the browser.
type ClientMessage struct {
	Type   string  `json:"type"`
	Top    float64 `json:"top"`
	Height float64 `json:"height"`
}

// OriginValidator interface for WebSocket origin validation
type OriginValidator interface {
	IsAllowedOrigin(origin string) bool
}

// Client represents a WebSocket client connection
type Client struct {
	id          string
	conn        *websocket.Conn
	send        chan []byte
	tracker     *sections.Tracker
	unsubscribe func()

	mutex  sync.Mutex
	closed bool
}

// ID returns the client's connection id.
func (c *Client) ID() string {
	return c.id
}

// enqueue queues data for the write pump. It returns false when the client
// is closed or its buffer is full.
func (c *Client) enqueue(data []byte) bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.closed {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (c *Client) close() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}
