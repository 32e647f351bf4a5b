// Package realtime owns the duplex channel to the remote realtime peer.
//
// A Session wraps one websocket connection: configuration is sent once before
// the session is handed out, inbound events are delivered in arrival order
// with strictly increasing sequence numbers, and outbound events are written
// by a single serializing writer. The session is closed exactly once and the
// socket is released on every exit path.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// SessionState tracks the connection lifecycle.
type SessionState int32

const (
	StateClosed SessionState = iota
	StateConnecting
	StateOpen
)

func (s SessionState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	default:
		return "closed"
	}
}

const (
	defaultInboundBuffer  = 64
	defaultOutboundBuffer = 64
)

type connectOptions struct {
	header  http.Header
	dialer  *websocket.Dialer
	inbound int
}

type ConnectOption func(*connectOptions)

// WithAPIKey authenticates the dial handshake with an api-key header.
func WithAPIKey(key string) ConnectOption {
	return func(o *connectOptions) { o.header.Set("api-key", key) }
}

// WithHTTPHeader adds an arbitrary handshake header.
func WithHTTPHeader(key, value string) ConnectOption {
	return func(o *connectOptions) { o.header.Set(key, value) }
}

// WithDialer replaces the default websocket dialer.
func WithDialer(dialer *websocket.Dialer) ConnectOption {
	return func(o *connectOptions) { o.dialer = dialer }
}

// WithInboundBuffer sets the inbound event queue capacity.
func WithInboundBuffer(size int) ConnectOption {
	return func(o *connectOptions) {
		if size > 0 {
			o.inbound = size
		}
	}
}

// Session is a live duplex channel to the realtime peer. All methods are safe
// for concurrent use.
type Session struct {
	cfg Config

	conn *websocket.Conn

	inbound  chan ServerEvent
	outbound chan []byte

	seq   atomic.Int64
	state atomic.Int32

	closeOnce  sync.Once
	closeCh    chan struct{}
	writerDone chan struct{}

	closeErr error

	// readErr is written by the read loop before inbound is closed; readers
	// observe it only after seeing the channel closed.
	readErr error
}

// Connect dials the peer, sends the session configuration as the first
// outbound event, and returns a live session. Failures are reported as
// *ConnectionError and are fatal; Connect never retries internally.
func Connect(ctx context.Context, url string, cfg Config, opts ...ConnectOption) (*Session, error) {
	ctx, span := tracer.Start(ctx, "connect realtime session")
	defer span.End()

	options := connectOptions{
		header:  http.Header{},
		dialer:  websocket.DefaultDialer,
		inbound: defaultInboundBuffer,
	}
	for _, opt := range opts {
		opt(&options)
	}

	s := &Session{
		cfg:        cfg,
		inbound:    make(chan ServerEvent, options.inbound),
		outbound:   make(chan []byte, defaultOutboundBuffer),
		closeCh:    make(chan struct{}),
		writerDone: make(chan struct{}),
	}
	s.state.Store(int32(StateConnecting))

	conn, resp, err := options.dialer.DialContext(ctx, url, options.header)
	if err != nil {
		if resp != nil {
			err = fmt.Errorf("%w (status %s)", err, resp.Status)
		}
		connErr := &ConnectionError{Op: "dial", Err: err}
		span.RecordError(connErr)
		span.SetStatus(codes.Error, connErr.Error())
		s.state.Store(int32(StateClosed))
		return nil, connErr
	}
	s.conn = conn

	// Configuration goes out before anything else and before the caller can
	// enqueue events of its own.
	payload, err := marshalClientEvent(SessionUpdateEvent{Session: cfg.payload()})
	if err == nil {
		err = conn.WriteMessage(websocket.TextMessage, payload)
	}
	if err != nil {
		conn.Close()
		connErr := &ConnectionError{Op: "configure", Err: err}
		span.RecordError(connErr)
		span.SetStatus(codes.Error, connErr.Error())
		s.state.Store(int32(StateClosed))
		return nil, connErr
	}

	s.state.Store(int32(StateOpen))
	span.SetAttributes(attribute.String("session.state", s.State().String()))

	go s.readLoop()
	go s.writeLoop()

	return s, nil
}

// State returns the current connection state.
func (s *Session) State() SessionState { return SessionState(s.state.Load()) }

// Config returns the configuration the session was opened with.
func (s *Session) Config() Config { return s.cfg }

// Send enqueues an outbound event. It blocks only while the outbound queue is
// full, and fails once the session is closed or ctx is done.
func (s *Session) Send(ctx context.Context, event ClientEvent) error {
	payload, err := marshalClientEvent(event)
	if err != nil {
		return fmt.Errorf("failed to encode %s event: %w", event.eventType(), err)
	}

	select {
	case <-s.closeCh:
		return &ConnectionError{Op: "send", Err: ErrSessionClosed}
	default:
	}

	select {
	case s.outbound <- payload:
		return nil
	case <-s.closeCh:
		return &ConnectionError{Op: "send", Err: ErrSessionClosed}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Receive yields the next inbound event in arrival order. It returns
// ErrSessionClosed after a clean close, or the connection error that broke
// the stream.
func (s *Session) Receive(ctx context.Context) (ServerEvent, error) {
	select {
	case event, ok := <-s.inbound:
		if !ok {
			if s.readErr != nil {
				return ServerEvent{}, s.readErr
			}
			return ServerEvent{}, ErrSessionClosed
		}
		return event, nil
	case <-ctx.Done():
		return ServerEvent{}, ctx.Err()
	}
}

// AppendAudio enqueues a base64-encoded input audio chunk.
func (s *Session) AppendAudio(ctx context.Context, audio string) error {
	return s.Send(ctx, InputAudioAppendEvent{Audio: audio})
}

// CreateItem appends an item to the conversation history.
func (s *Session) CreateItem(ctx context.Context, item ConversationItem) error {
	return s.Send(ctx, ConversationItemCreateEvent{Item: item})
}

// CreateResponse asks the peer to generate a response.
func (s *Session) CreateResponse(ctx context.Context, opts *ResponseOptions) error {
	return s.Send(ctx, ResponseCreateEvent{Response: opts})
}

// CancelResponse cancels the in-flight response generation.
func (s *Session) CancelResponse(ctx context.Context) error {
	return s.Send(ctx, ResponseCancelEvent{})
}

// Close flushes the outbound queue, sends a close frame, and releases the
// socket. It is idempotent and safe to call from any goroutine.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.state.Store(int32(StateClosed))
		close(s.closeCh)
		<-s.writerDone
		s.closeErr = s.conn.Close()
	})
	return s.closeErr
}

func (s *Session) readLoop() {
	defer close(s.inbound)

	for {
		_, payload, err := s.conn.ReadMessage()
		if err != nil {
			select {
			case <-s.closeCh:
				// Local close tore down the socket; not a transport failure.
			default:
				s.readErr = &ConnectionError{Op: "receive", Err: err}
				logger.Error("realtime read loop ended", "error", err)
			}
			return
		}

		var event ServerEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			logger.Warn("discarding undecodable event", "error", err)
			continue
		}
		event.Seq = s.seq.Add(1)

		select {
		case s.inbound <- event:
		case <-s.closeCh:
			return
		}
	}
}

func (s *Session) writeLoop() {
	defer close(s.writerDone)

	for {
		select {
		case payload := <-s.outbound:
			if err := s.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				logger.Error("realtime write failed", "error", err)
				return
			}
		case <-s.closeCh:
			s.flushOutbound()
			closeFrame := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
			if err := s.conn.WriteMessage(websocket.CloseMessage, closeFrame); err != nil && err != websocket.ErrCloseSent {
				logger.Warn("failed to send close frame", "error", err)
			}
			return
		}
	}
}

func (s *Session) flushOutbound() {
	for {
		select {
		case payload := <-s.outbound:
			if err := s.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		default:
			return
		}
	}
}
