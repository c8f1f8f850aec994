package websocket

import (
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dota-timeslice/replay-sampler/pkg/streaming"
	json "github.com/goccy/go-json"
	ws "github.com/gorilla/websocket"
)

const (
	outboxSize   = 4_096
	ackQueueSize = 16
	maxReconnect = 10
	maxBackoff   = 30 * time.Second
	writeWait    = 10 * time.Second
	ackTimeout   = 10 * time.Second
	dialTimeout  = 5 * time.Second
)

var dialer = &ws.Dialer{
	Proxy:            ws.DefaultDialer.Proxy,
	HandshakeTimeout: dialTimeout,
}

// session is one socket and the two goroutines serving it.
type session struct {
	sock   *ws.Conn
	quit   chan struct{} // closed when the socket is given up
	pumped chan struct{} // closed when the writer has exited
}

// link is the live stream of one run. A single writer owns the socket. When
// the socket fails, one resume goroutine redials, replays start_match and any
// snapshot that failed to go out, then starts a new writer.
type link struct {
	mu      sync.Mutex
	cur     *session
	closed  bool
	start   []byte
	pending [][]byte

	outbox chan []byte
	acks   chan streaming.AckMessage
	done   chan struct{}

	target  string
	dropped atomic.Int64
	logger  *slog.Logger
}

func newLink(logger *slog.Logger) *link {
	return &link{
		outbox: make(chan []byte, outboxSize),
		acks:   make(chan streaming.AckMessage, ackQueueSize),
		done:   make(chan struct{}),
		logger: logger,
	}
}

// open resolves the target URL and connects once. There is no retry on the
// first dial; a consumer that is down at startup fails the run.
func (l *link) open(rawURL, secret string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid websocket URL: %w", err)
	}
	q := u.Query()
	q.Set("secret", secret)
	u.RawQuery = q.Encode()
	l.target = u.String()

	sock, err := l.dial()
	if err != nil {
		return err
	}
	l.mu.Lock()
	l.attach(sock)
	l.mu.Unlock()
	return nil
}

func (l *link) dial() (*ws.Conn, error) {
	sock, _, err := dialer.Dial(l.target, nil)
	if err != nil {
		return nil, fmt.Errorf("websocket dial failed: %w", err)
	}
	return sock, nil
}

// attach starts serving sock. Callers hold mu.
func (l *link) attach(sock *ws.Conn) {
	s := &session{sock: sock, quit: make(chan struct{}), pumped: make(chan struct{})}
	l.cur = s
	go l.pump(s)
	go l.listen(s)
}

func writeText(sock *ws.Conn, data []byte) error {
	if err := sock.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return sock.WriteMessage(ws.TextMessage, data)
}

// pump drains the outbox into the socket. A message whose write failed is
// kept for the next session.
func (l *link) pump(s *session) {
	defer close(s.pumped)
	for {
		select {
		case <-s.quit:
			return
		case <-l.done:
			return
		case msg := <-l.outbox:
			if err := writeText(s.sock, msg); err != nil {
				l.mu.Lock()
				l.pending = append(l.pending, msg)
				l.mu.Unlock()
				l.lost(s, "write", err)
				return
			}
		}
	}
}

// listen routes server acks to request. Anything else is ignored.
func (l *link) listen(s *session) {
	for {
		_, raw, err := s.sock.ReadMessage()
		if err != nil {
			select {
			case <-l.done:
			default:
				l.lost(s, "read", err)
			}
			return
		}

		var ack streaming.AckMessage
		if err := json.Unmarshal(raw, &ack); err != nil || ack.Type != streaming.TypeAck {
			l.logger.Debug("Ignoring server message", "raw", string(raw))
			continue
		}
		select {
		case l.acks <- ack:
		default:
			l.logger.Debug("Ack queue full, dropping", "for", ack.For)
		}
	}
}

// lost gives up s and starts resuming. Only the first failure of the
// current session has an effect.
func (l *link) lost(s *session, op string, err error) {
	l.mu.Lock()
	if l.closed || l.cur != s {
		l.mu.Unlock()
		return
	}
	l.cur = nil
	close(s.quit)
	l.mu.Unlock()

	_ = s.sock.Close()
	l.logger.Warn("WebSocket connection lost", "op", op, "error", err)
	go l.resume(s)
}

func backoff(attempt int) time.Duration {
	d := time.Second << (attempt - 1)
	if d <= 0 || d > maxBackoff {
		return maxBackoff
	}
	return d
}

func (l *link) resume(prev *session) {
	<-prev.pumped

	for attempt := 1; attempt <= maxReconnect; attempt++ {
		wait := backoff(attempt)
		l.logger.Info("Reconnecting to WebSocket", "attempt", attempt, "backoff", wait)
		select {
		case <-l.done:
			return
		case <-time.After(wait):
		}

		sock, err := l.dial()
		if err != nil {
			l.logger.Warn("Reconnect dial failed", "attempt", attempt, "error", err)
			continue
		}
		if err := l.replay(sock); err != nil {
			l.logger.Warn("Failed to replay session after reconnect", "attempt", attempt, "error", err)
			_ = sock.Close()
			continue
		}

		l.mu.Lock()
		if l.closed {
			l.mu.Unlock()
			_ = sock.Close()
			return
		}
		l.attach(sock)
		l.mu.Unlock()
		l.logger.Info("WebSocket reconnected", "attempt", attempt)
		return
	}

	l.logger.Error("WebSocket reconnect failed after max attempts", "maxAttempts", maxReconnect)
}

// replay sends start_match and the unsent snapshots on a fresh socket so the
// consumer knows which match the following samples belong to.
func (l *link) replay(sock *ws.Conn) error {
	l.mu.Lock()
	start := l.start
	pending := l.pending
	l.mu.Unlock()

	if start != nil {
		if err := writeText(sock, start); err != nil {
			return err
		}
	}
	for i, msg := range pending {
		if err := writeText(sock, msg); err != nil {
			l.mu.Lock()
			l.pending = l.pending[i:]
			l.mu.Unlock()
			return err
		}
	}
	l.mu.Lock()
	l.pending = l.pending[len(pending):]
	l.mu.Unlock()
	return nil
}

// setStart remembers the start_match message for replay; nil forgets it.
func (l *link) setStart(data []byte) {
	l.mu.Lock()
	l.start = data
	l.mu.Unlock()
}

// enqueue never blocks. A full outbox drops the message and only the first
// drop is logged.
func (l *link) enqueue(data []byte) {
	select {
	case l.outbox <- data:
	default:
		if l.dropped.Add(1) == 1 {
			l.logger.Warn("WebSocket send queue full, dropping messages")
		}
	}
}

// request enqueues data and waits for the ack of type ackFor.
func (l *link) request(data []byte, ackFor string, timeout time.Duration) error {
	l.enqueue(data)

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case ack := <-l.acks:
			if ack.For == ackFor {
				return nil
			}
		case <-timer.C:
			return fmt.Errorf("timeout waiting for ack of %q", ackFor)
		case <-l.done:
			return fmt.Errorf("connection closed while waiting for ack of %q", ackFor)
		}
	}
}

// shutdown stops the writer first so the close frame is the last write.
func (l *link) shutdown() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	close(l.done)
	s := l.cur
	l.cur = nil
	l.mu.Unlock()

	if s == nil {
		return nil
	}
	<-s.pumped
	_ = s.sock.WriteControl(ws.CloseMessage,
		ws.FormatCloseMessage(ws.CloseNormalClosure, ""),
		time.Now().Add(writeWait))
	return s.sock.Close()
}
