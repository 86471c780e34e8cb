package push

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/bassista/mealsync/internal/logger"
	"github.com/gorilla/websocket"
)

// ErrRejected is returned when the server refused the session token.
var ErrRejected = errors.New("push channel rejected the session token")

var errTokenChanged = errors.New("session token changed while dialing")

type Status int

const (
	Disconnected Status = iota
	Connecting
	Connected
)

func (s Status) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return "disconnected"
	}
}

// Receiver keeps one websocket to the push endpoint open while a session
// token is available and hands every invalidation to its handler.
type Receiver struct {
	url         string
	dialer      *websocket.Dialer
	minBackoff  time.Duration
	maxBackoff  time.Duration
	readTimeout time.Duration
	handle      func(Message)

	mu        sync.Mutex
	token     string
	rejected  string
	status    Status
	conn      *websocket.Conn
	listeners []func(Status)
	wake      chan struct{}
}

type ReceiverOption func(*Receiver)

func WithDialer(d *websocket.Dialer) ReceiverOption {
	return func(r *Receiver) { r.dialer = d }
}

// WithBackoff bounds the delay between reconnect attempts. The delay doubles
// after every failed attempt and resets once a connection is established.
func WithBackoff(lo, hi time.Duration) ReceiverOption {
	return func(r *Receiver) {
		r.minBackoff = lo
		r.maxBackoff = hi
	}
}

// WithReadTimeout drops connections that stay silent, pings included, for
// longer than d.
func WithReadTimeout(d time.Duration) ReceiverOption {
	return func(r *Receiver) { r.readTimeout = d }
}

func NewReceiver(url string, handle func(Message), opts ...ReceiverOption) *Receiver {
	r := &Receiver{
		url:         url,
		dialer:      websocket.DefaultDialer,
		minBackoff:  500 * time.Millisecond,
		maxBackoff:  30 * time.Second,
		readTimeout: 90 * time.Second,
		handle:      handle,
		wake:        make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Receiver) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

// OnStatus registers fn for every status transition. Listeners run on the
// receiver goroutine and must not block.
func (r *Receiver) OnStatus(fn func(Status)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners = append(r.listeners, fn)
}

// SetToken makes token available. A different token replaces the live
// connection.
func (r *Receiver) SetToken(token string) {
	r.mu.Lock()
	changed := token != r.token
	r.token = token
	conn := r.conn
	r.mu.Unlock()
	if changed && conn != nil {
		_ = conn.Close()
	}
	r.signal()
}

// ClearToken drops the connection and keeps the receiver disconnected until a
// token is set again.
func (r *Receiver) ClearToken() {
	r.mu.Lock()
	r.token = ""
	conn := r.conn
	r.mu.Unlock()
	if conn != nil {
		_ = conn.Close()
	}
	r.setStatus(Disconnected)
	r.signal()
}

// Run connects and reconnects until ctx is done.
func (r *Receiver) Run(ctx context.Context) error {
	log := logger.WithComponent("push")
	backoff := r.minBackoff
	for {
		token, ok := r.usableToken()
		if !ok {
			r.setStatus(Disconnected)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-r.wake:
				continue
			}
		}

		r.setStatus(Connecting)
		established, err := r.session(ctx, token)
		r.setStatus(Disconnected)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if established {
			backoff = r.minBackoff
		}

		switch {
		case errors.Is(err, errTokenChanged):
			continue
		case errors.Is(err, ErrRejected):
			log.Warn("session token rejected, waiting for a new one")
			r.mu.Lock()
			if r.token == token {
				r.rejected = token
			}
			r.mu.Unlock()
			continue
		}

		log.Debugf("push channel down (%v), retrying in %s", err, backoff)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-r.wake:
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, r.maxBackoff)
	}
}

func (r *Receiver) session(ctx context.Context, token string) (bool, error) {
	log := logger.WithComponent("push")

	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)
	conn, resp, err := r.dialer.DialContext(ctx, r.url, header)
	if err != nil {
		if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
			return false, ErrRejected
		}
		return false, fmt.Errorf("dial push channel: %w", err)
	}

	r.mu.Lock()
	if r.token != token {
		r.mu.Unlock()
		_ = conn.Close()
		return false, errTokenChanged
	}
	r.conn = conn
	r.mu.Unlock()

	stop := make(chan struct{})
	defer func() {
		close(stop)
		r.mu.Lock()
		if r.conn == conn {
			r.conn = nil
		}
		r.mu.Unlock()
		_ = conn.Close()
	}()
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-stop:
		}
	}()

	r.extendDeadline(conn)
	conn.SetPingHandler(func(data string) error {
		r.extendDeadline(conn)
		return conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(5*time.Second))
	})

	established := false
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return established, fmt.Errorf("read push channel: %w", err)
		}
		r.extendDeadline(conn)

		msg, err := Decode(data)
		if err != nil {
			log.Warnf("ignoring push message: %v", err)
			continue
		}
		switch {
		case msg.Type == TypeConnected:
			established = true
			r.setStatus(Connected)
		case msg.Type == TypeRejected:
			return established, ErrRejected
		case msg.IsInvalidation():
			if r.handle != nil {
				r.handle(msg)
			}
		}
	}
}

func (r *Receiver) extendDeadline(conn *websocket.Conn) {
	if r.readTimeout > 0 {
		_ = conn.SetReadDeadline(time.Now().Add(r.readTimeout))
	}
}

// usableToken returns the current token unless it is empty or was rejected.
func (r *Receiver) usableToken() (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.token == "" || r.token == r.rejected {
		return "", false
	}
	return r.token, true
}

func (r *Receiver) setStatus(s Status) {
	r.mu.Lock()
	if r.status == s {
		r.mu.Unlock()
		return
	}
	r.status = s
	listeners := append([]func(Status){}, r.listeners...)
	r.mu.Unlock()

	logger.WithComponent("push").Debugf("status %s", s)
	for _, fn := range listeners {
		fn(s)
	}
}

func (r *Receiver) signal() {
	select {
	case r.wake <- struct{}{}:
	default:
	}
}
