package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	ws "github.com/gorilla/websocket"

	"github.com/tarkov-dev/site/pkg/streaming"
)

const (
	outboxSize   = 64
	maxReconnect = 10
	maxBackoff   = 30 * time.Second
	writeWait    = 10 * time.Second
	ackTimeout   = 30 * time.Second
)

var errClosed = errors.New("mirror connection closed")

// socket is one dialed connection. stop is closed when the socket is replaced, which
// retires its writer even while the connection itself still looks healthy.
type socket struct {
	conn *ws.Conn
	stop chan struct{}
}

// pending is a queued document waiting for its ack. The flags are guarded by connection.mu.
type pending struct {
	name string
	data []byte
	ack  chan struct{}

	sent      bool // written to the current socket, not yet acked
	queued    bool // in connection.retry
	abandoned bool // the caller stopped waiting
}

// connection owns one mirror socket at a time. A single writer goroutine per socket drains
// the retry list and then the outbox, and the reader resolves acknowledged documents.
// A failed socket is replaced in the background while waiters keep waiting; documents
// written to it without an ack are sent again on the next socket.
type connection struct {
	mu      sync.Mutex
	sock    *socket
	closed  bool
	waiters map[string][]*pending
	retry   []*pending

	outbox chan *pending
	kick   chan struct{}
	done   chan struct{}
	loops  sync.WaitGroup

	target    string
	retryBase time.Duration
	logger    *slog.Logger
}

func newConnection(logger *slog.Logger) *connection {
	return &connection{
		waiters:   make(map[string][]*pending),
		outbox:    make(chan *pending, outboxSize),
		kick:      make(chan struct{}, 1),
		done:      make(chan struct{}),
		retryBase: time.Second,
		logger:    logger,
	}
}

// mirrorURL adds the shared secret to the mirror URL.
func mirrorURL(rawURL, secret string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid websocket URL: %w", err)
	}
	q := u.Query()
	q.Set("secret", secret)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (c *connection) dial(rawURL, secret string) error {
	target, err := mirrorURL(rawURL, secret)
	if err != nil {
		return err
	}
	c.target = target

	conn, err := c.open()
	if err != nil {
		return err
	}
	if !c.attach(conn) {
		return errClosed
	}
	return nil
}

func (c *connection) open() (*ws.Conn, error) {
	conn, _, err := ws.DefaultDialer.Dial(c.target, nil)
	if err != nil {
		return nil, fmt.Errorf("websocket dial failed: %w", err)
	}
	return conn, nil
}

// attach makes conn the current socket and starts its loops. Documents sent on the
// previous socket that were never acked go to the retry list first.
func (c *connection) attach(conn *ws.Conn) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		_ = conn.Close()
		return false
	}

	for _, queue := range c.waiters {
		for _, p := range queue {
			if p.sent && !p.queued {
				p.sent = false
				p.queued = true
				c.retry = append(c.retry, p)
			}
		}
	}

	s := &socket{conn: conn, stop: make(chan struct{})}
	c.sock = s
	c.loops.Add(2)
	go c.write(s)
	go c.read(s)
	return true
}

// next pops the oldest document of the retry list.
func (c *connection) next() *pending {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.retry) == 0 {
		return nil
	}
	p := c.retry[0]
	c.retry = c.retry[1:]
	p.queued = false
	return p
}

// requeue puts a document whose write failed at the front of the retry list.
func (c *connection) requeue(p *pending) {
	c.mu.Lock()
	p.sent = false
	if !p.queued && !p.abandoned {
		p.queued = true
		c.retry = append([]*pending{p}, c.retry...)
	}
	c.mu.Unlock()

	select {
	case c.kick <- struct{}{}:
	default:
	}
}

func (c *connection) write(s *socket) {
	defer c.loops.Done()
	for {
		select {
		case <-s.stop:
			return
		case <-c.done:
			return
		default:
		}

		p := c.next()
		if p == nil {
			select {
			case <-s.stop:
				return
			case <-c.done:
				return
			case <-c.kick:
				continue
			case p = <-c.outbox:
			}
		}

		c.mu.Lock()
		skip := p.abandoned
		p.sent = !skip
		c.mu.Unlock()
		if skip {
			continue
		}

		err := s.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err == nil {
			err = s.conn.WriteMessage(ws.TextMessage, p.data)
		}
		if err != nil {
			c.logger.Warn("Mirror write failed", "name", p.name, "error", err)
			c.requeue(p)
			c.replace(s)
			return
		}
	}
}

func (c *connection) read(s *socket) {
	defer c.loops.Done()
	for {
		_, message, err := s.conn.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
			case <-s.stop:
			default:
				c.logger.Warn("Mirror read failed", "error", err)
				c.replace(s)
			}
			return
		}

		var ack streaming.AckMessage
		if err := json.Unmarshal(message, &ack); err != nil || ack.Type != streaming.TypeAck {
			c.logger.Debug("Ignoring mirror message", "raw", string(message))
			continue
		}
		if ack.For == streaming.TypeDocument && !c.resolve(ack.Name) {
			c.logger.Debug("Unexpected mirror ack", "name", ack.Name)
		}
	}
}

// replace retires a failed socket once. The loop that loses the race finds another
// socket in c.sock and leaves it alone.
func (c *connection) replace(failed *socket) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.sock != failed {
		return
	}
	close(failed.stop)
	_ = failed.conn.Close()
	c.sock = nil

	c.loops.Add(1)
	go c.redial()
}

func (c *connection) redial() {
	defer c.loops.Done()

	delay := c.retryBase
	for attempt := 1; attempt <= maxReconnect; attempt++ {
		c.logger.Info("Reconnecting to mirror", "attempt", attempt, "backoff", delay)
		select {
		case <-c.done:
			return
		case <-time.After(delay):
		}

		conn, err := c.open()
		if err != nil {
			c.logger.Warn("Mirror redial failed", "attempt", attempt, "error", err)
			delay = min(delay*2, maxBackoff)
			continue
		}
		if c.attach(conn) {
			c.logger.Info("Mirror reconnected", "attempt", attempt)
		}
		return
	}
	c.logger.Error("Giving up on mirror", "attempts", maxReconnect)
}

// await registers a waiter for the next ack of a document.
func (c *connection) await(name string, data []byte) *pending {
	p := &pending{name: name, data: data, ack: make(chan struct{}, 1)}
	c.mu.Lock()
	c.waiters[name] = append(c.waiters[name], p)
	c.mu.Unlock()
	return p
}

// resolve wakes the oldest waiter of name.
func (c *connection) resolve(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	queue := c.waiters[name]
	if len(queue) == 0 {
		return false
	}
	queue[0].sent = false
	queue[0].ack <- struct{}{}
	if len(queue) == 1 {
		delete(c.waiters, name)
	} else {
		c.waiters[name] = queue[1:]
	}
	return true
}

func (c *connection) forget(p *pending) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p.abandoned = true
	queue := c.waiters[p.name]
	for i, w := range queue {
		if w == p {
			queue = append(queue[:i:i], queue[i+1:]...)
			break
		}
	}
	if len(queue) == 0 {
		delete(c.waiters, p.name)
	} else {
		c.waiters[p.name] = queue
	}
}

// deliver queues data and waits until the mirror acknowledges the named document.
func (c *connection) deliver(ctx context.Context, name string, data []byte) error {
	p := c.await(name, data)

	select {
	case c.outbox <- p:
	case <-ctx.Done():
		c.forget(p)
		return fmt.Errorf("send queue full: %w", ctx.Err())
	case <-c.done:
		c.forget(p)
		return errClosed
	}

	select {
	case <-p.ack:
		return nil
	case <-ctx.Done():
		c.forget(p)
		return fmt.Errorf("timeout waiting for ack: %w", ctx.Err())
	case <-c.done:
		c.forget(p)
		return errClosed
	}
}

// close sends a close frame and stops all goroutines.
func (c *connection) close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	close(c.done)
	s := c.sock
	c.sock = nil
	c.mu.Unlock()

	var err error
	if s != nil {
		_ = s.conn.WriteControl(ws.CloseMessage,
			ws.FormatCloseMessage(ws.CloseNormalClosure, ""), time.Now().Add(writeWait))
		err = s.conn.Close()
	}
	c.loops.Wait()
	return err
}
