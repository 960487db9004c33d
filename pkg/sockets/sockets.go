package sockets

import (
	"errors"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

var ErrClosed = errors.New("closed connection")

type Connection interface {
	Send(msg []byte) error
	io.Closer
}

// Hub accepts websocket clients and broadcasts messages to all of them.
// Clients that fall behind by more than the send buffer are dropped.
type Hub struct {
	upgrader     websocket.Upgrader
	pingInterval time.Duration
	pingMsg      []byte
	writeWait    time.Duration
	sendBuffer   int
	onError      func(err error)
	onConnected  func(Connection)

	mu      sync.Mutex
	clients map[*Conn]struct{}
}

func New(opts ...func(*Hub)) *Hub {
	h := &Hub{
		pingInterval: 30 * time.Second,
		writeWait:    10 * time.Second,
		sendBuffer:   16,
		clients:      make(map[*Conn]struct{}),
	}
	for _, o := range opts {
		o(h)
	}
	return h
}

// Conn is one connected client.
type Conn struct {
	ws   *websocket.Conn
	hub  *Hub
	send chan []byte

	once   sync.Once
	closed chan struct{}
}

func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response
		h.reportError(err)
		return
	}
	c := &Conn{
		ws:     ws,
		hub:    h,
		send:   make(chan []byte, h.sendBuffer),
		closed: make(chan struct{}),
	}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	go c.writePump()
	if h.onConnected != nil {
		h.onConnected(c)
	}
	c.readPump()
}

// Broadcast queues msg for every client without blocking.
func (h *Hub) Broadcast(msg []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			go c.Close()
		}
	}
}

// Len is the number of connected clients.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every client.
func (h *Hub) Close() error {
	h.mu.Lock()
	clients := make([]*Conn, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()
	for _, c := range clients {
		c.Close()
	}
	return nil
}

func (h *Hub) remove(c *Conn) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
}

func (h *Hub) reportError(err error) {
	if h.onError != nil {
		h.onError(err)
	}
}

func (c *Conn) Send(msg []byte) error {
	select {
	case <-c.closed:
		return ErrClosed
	default:
	}
	select {
	case c.send <- msg:
		return nil
	case <-c.closed:
		return ErrClosed
	}
}

// Closes the connection.
func (c *Conn) Close() error {
	c.once.Do(func() {
		close(c.closed)
		c.hub.remove(c)
		_ = c.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(c.hub.writeWait))
		c.ws.Close()
	})
	return nil
}

// readPump discards client messages; it only exists to process control frames and notice disconnects.
func (c *Conn) readPump() {
	defer c.Close()
	if c.hub.pingInterval > 0 {
		pongWait := 2 * c.hub.pingInterval
		_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
		c.ws.SetPongHandler(func(string) error {
			return c.ws.SetReadDeadline(time.Now().Add(pongWait))
		})
	}
	for {
		if _, _, err := c.ws.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.hub.reportError(err)
			}
			return
		}
	}
}

func (c *Conn) writePump() {
	var ping <-chan time.Time
	if c.hub.pingInterval > 0 {
		ticker := time.NewTicker(c.hub.pingInterval)
		defer ticker.Stop()
		ping = ticker.C
	}
	for {
		select {
		case <-c.closed:
			return
		case msg := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(c.hub.writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.hub.reportError(err)
				c.Close()
				return
			}
		case <-ping:
			if err := c.ws.WriteControl(websocket.PingMessage, c.hub.pingMsg, time.Now().Add(c.hub.writeWait)); err != nil {
				c.Close()
				return
			}
		}
	}
}
