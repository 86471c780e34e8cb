package push

import (
	"net/http"
	"sync"
	"time"

	"github.com/bassista/mealsync/internal/logger"
	"github.com/gorilla/websocket"
)

const (
	writeWait = 10 * time.Second
	sendQueue = 32
)

// Hub is the server end of the push channel: it authenticates sessions,
// greets them with a connected message and fans invalidations out.
type Hub struct {
	upgrader  websocket.Upgrader
	authorize func(token string) bool
	pingEvery time.Duration

	mu      sync.Mutex
	clients map[*hubClient]struct{}
	closed  bool
}

type hubClient struct {
	token string
	conn  *websocket.Conn
	send  chan Message
	done  chan struct{}
	once  sync.Once
}

func (c *hubClient) close() {
	c.once.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

// NewHub returns a hub accepting the tokens authorize approves. Connections
// are pinged every pingEvery; zero disables pings.
func NewHub(authorize func(token string) bool, pingEvery time.Duration) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		authorize: authorize,
		pingEvery: pingEvery,
		clients:   map[*hubClient]struct{}{},
	}
}

// ServeHTTP upgrades the request and serves the connection until either side
// closes it. A bad token gets a rejected message before the close.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	log := logger.WithComponent("push-hub")
	token := BearerToken(r.Header.Get("Authorization"))

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warnf("websocket upgrade failed: %v", err)
		return
	}

	if token == "" || h.authorize == nil || !h.authorize(token) {
		log.Info("rejecting push session with unknown token")
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		_ = conn.WriteJSON(Message{Type: TypeRejected})
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "unknown session"))
		_ = conn.Close()
		return
	}

	c := &hubClient{token: token, conn: conn, send: make(chan Message, sendQueue), done: make(chan struct{})}
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(Message{Type: TypeConnected}); err != nil {
		_ = conn.Close()
		return
	}
	if !h.add(c) {
		c.close()
		return
	}
	log.Debugf("push session opened (%d open)", h.Clients())

	go h.writeLoop(c)
	h.readLoop(c)

	h.remove(c)
	log.Debugf("push session closed (%d open)", h.Clients())
}

// readLoop drains client frames so control messages are processed, and
// returns when the connection goes away.
func (h *Hub) readLoop(c *hubClient) {
	defer c.close()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writeLoop(c *hubClient) {
	var tick <-chan time.Time
	if h.pingEvery > 0 {
		t := time.NewTicker(h.pingEvery)
		defer t.Stop()
		tick = t.C
	}
	for {
		select {
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(msg); err != nil {
				c.close()
				return
			}
		case <-tick:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				c.close()
				return
			}
		case <-c.done:
			return
		}
	}
}

// Broadcast queues msg for every open session. Sessions too slow to keep up
// are dropped; they catch up when they reconnect.
func (h *Hub) Broadcast(msg Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			logger.WithComponent("push-hub").Warn("dropping slow push session")
			delete(h.clients, c)
			go c.close()
		}
	}
}

// Disconnect closes every session opened with token, e.g. after logout.
func (h *Hub) Disconnect(token string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for c := range h.clients {
		if c.token == token {
			delete(h.clients, c)
			go c.close()
			n++
		}
	}
	return n
}

func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close drops every session and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		delete(h.clients, c)
		go c.close()
	}
}

func (h *Hub) add(c *hubClient) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	return true
}

func (h *Hub) remove(c *hubClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, c)
}
