// Package server exposes the control and observer websocket endpoint of a
// running simulation.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/zeusync/worldstream/internal/app"
	"github.com/zeusync/worldstream/internal/config"
	"github.com/zeusync/worldstream/internal/core/events/bus"
	"github.com/zeusync/worldstream/internal/core/observability/log"
)

const clientBuffer = 256

// Envelope is every message the server sends.
type Envelope struct {
	Type   string    `json:"type"`
	Source string    `json:"source,omitempty"`
	Time   time.Time `json:"time"`
	Data   any       `json:"data,omitempty"`
	Error  string    `json:"error,omitempty"`
}

// Inbox receives control events. *app.Inbox satisfies it.
type Inbox interface {
	Push(ev app.ControlEvent) error
}

type client struct {
	id   uint64
	conn *websocket.Conn
	send chan []byte
	// dropped counts envelopes skipped because send was full.
	dropped atomic.Uint64
}

// ControlServer feeds UI control messages into the simulation inbox and
// streams world events back to every connected client.
type ControlServer struct {
	cfg    config.ControlConfig
	inbox  Inbox
	bus    bus.EventBus
	logger log.Log

	upgrader websocket.Upgrader
	nextID   atomic.Uint64

	mu       sync.Mutex
	clients  map[uint64]*client
	sub      bus.Subscription
	httpSrv  *http.Server
	listener net.Listener
}

func NewControlServer(cfg config.ControlConfig, inbox Inbox, eventBus bus.EventBus, logger log.Log) *ControlServer {
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 5 * time.Second
	}
	return &ControlServer{
		cfg:    cfg,
		inbox:  inbox,
		bus:    eventBus,
		logger: logger.With(log.Component("control.server")),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		clients: make(map[uint64]*client),
	}
}

// Handler serves the websocket endpoint at /ws.
func (s *ControlServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	return mux
}

// Attach starts forwarding bus events to clients.
func (s *ControlServer) Attach() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sub != nil {
		return nil
	}
	sub, err := s.bus.Subscribe(bus.WildcardType, func(e bus.Event) error {
		s.Broadcast(Envelope{Type: e.Type(), Source: e.Source(), Time: e.Timestamp(), Data: e.Data()})
		return nil
	})
	if err != nil {
		return fmt.Errorf("subscribe to world events: %w", err)
	}
	s.sub = sub
	return nil
}

// Start listens on the configured address and serves in the background.
func (s *ControlServer) Start(_ context.Context) error {
	s.mu.Lock()
	running := s.httpSrv != nil
	s.mu.Unlock()
	if running {
		return ErrServerAlreadyRunning
	}
	if err := s.Attach(); err != nil {
		return err
	}

	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.Addr, err)
	}
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	s.mu.Lock()
	s.httpSrv = srv
	s.listener = ln
	s.mu.Unlock()

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("control server stopped", log.Error(err))
		}
	}()
	s.logger.Info("control server listening", log.String("addr", ln.Addr().String()))
	return nil
}

// Addr is the bound address once started.
func (s *ControlServer) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop shuts the listener down and disconnects every client.
func (s *ControlServer) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv := s.httpSrv
	sub := s.sub
	s.httpSrv, s.listener, s.sub = nil, nil, nil
	clients := make([]*client, 0, len(s.clients))
	for _, c := range s.clients {
		clients = append(clients, c)
	}
	s.mu.Unlock()

	if sub != nil {
		_ = sub.Cancel()
	}
	for _, c := range clients {
		_ = c.conn.Close()
	}
	if srv == nil {
		return ErrServerNotRunning
	}
	return srv.Shutdown(ctx)
}

// Clients reports the number of connected clients.
func (s *ControlServer) Clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// Broadcast queues env for every client. Slow clients lose messages instead
// of stalling the simulation.
func (s *ControlServer) Broadcast(env Envelope) {
	b, err := json.Marshal(env)
	if err != nil {
		s.logger.Warn("envelope not encodable", log.String("type", env.Type), log.Error(err))
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.clients {
		select {
		case c.send <- b:
		default:
			c.dropped.Add(1)
		}
	}
}

func (s *ControlServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("websocket upgrade failed", log.Error(err))
		return
	}

	c := &client{
		id:   s.nextID.Add(1),
		conn: conn,
		send: make(chan []byte, clientBuffer),
	}
	s.mu.Lock()
	s.clients[c.id] = c
	s.mu.Unlock()
	s.logger.Info("control client connected",
		log.Uint64("client", c.id),
		log.String("remote", conn.RemoteAddr().String()),
	)

	ctx, cancel := context.WithCancel(r.Context())
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		s.writeLoop(ctx, c)
	}()

	s.readLoop(c)

	cancel()
	<-writerDone
	s.mu.Lock()
	delete(s.clients, c.id)
	s.mu.Unlock()
	_ = conn.Close()
	s.logger.Info("control client disconnected",
		log.Uint64("client", c.id),
		log.Uint64("dropped", c.dropped.Load()),
	)
}

func (s *ControlServer) readLoop(c *client) {
	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var ev app.ControlEvent
		if err = json.Unmarshal(msg, &ev); err != nil {
			s.reply(c, fmt.Errorf("%w: %w", ErrInvalidMessage, err))
			continue
		}
		if err = s.inbox.Push(ev); err != nil {
			if errors.Is(err, app.ErrInboxFull) {
				s.logger.Warn("control event dropped", log.String("type", string(ev.Type)))
			}
			s.reply(c, err)
		}
	}
}

func (s *ControlServer) reply(c *client, err error) {
	b, mErr := json.Marshal(Envelope{Type: "error", Time: time.Now(), Error: err.Error()})
	if mErr != nil {
		return
	}
	select {
	case c.send <- b:
	default:
		c.dropped.Add(1)
	}
}

func (s *ControlServer) writeLoop(ctx context.Context, c *client) {
	for {
		select {
		case <-ctx.Done():
			return
		case b := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, b); err != nil {
				_ = c.conn.Close()
				return
			}
		}
	}
}
