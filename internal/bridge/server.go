package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer. Board snapshots and note
	// bodies travel in a single frame.
	maxMessageSize = 32 * 1024 * 1024

	// Outgoing frames buffered per client before it is dropped.
	sendBuffer = 64

	// Path the bridge is served on.
	bridgePath = "/bridge"
)

// Request is a frame sent by the UI process.
type Request struct {
	ID      string          `json:"id"`
	Op      string          `json:"op"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Response answers one Request. Result is set when OK is true, Error
// otherwise.
type Response struct {
	ID     string          `json:"id"`
	OK     bool            `json:"ok"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// Event is a frame pushed by the server without a request.
type Event struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// client is one connected UI process.
type client struct {
	server *Server
	conn   *websocket.Conn
	send   chan []byte
}

// Server exposes a Bridge over a local WebSocket and pushes events to
// every connected client.
type Server struct {
	bridge   *Bridge
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*client]struct{}
}

// NewServer creates a Server for b. Only loopback origins may connect.
func NewServer(b *Bridge) *Server {
	return &Server{
		bridge: b,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     localOrigin,
		},
		clients: make(map[*client]struct{}),
	}
}

// Handler returns the HTTP handler serving the bridge endpoint.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET "+bridgePath, s.serveWS)
	return mux
}

// ListenAndServe serves the bridge on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("bridge: listening on ws://%s%s", addr, bridgePath)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.closeAll()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Broadcast pushes an event to every connected client. Clients whose send
// buffer is full are disconnected.
func (s *Server) Broadcast(event string, data any) {
	msg, err := json.Marshal(Event{Event: event, Data: data})
	if err != nil {
		log.Printf("bridge: encoding %s event: %v", event, err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		s.enqueueLocked(c, msg)
	}
}

// ClientCount returns the number of connected clients.
func (s *Server) ClientCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("bridge: upgrade failed: %v", err)
		return
	}

	c := &client{server: s, conn: conn, send: make(chan []byte, sendBuffer)}
	s.mu.Lock()
	s.clients[c] = struct{}{}
	s.mu.Unlock()

	go c.writePump()
	c.readPump(r.Context())
}

// enqueue queues msg for c unless c is gone.
func (s *Server) enqueue(c *client, msg []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enqueueLocked(c, msg)
}

func (s *Server) enqueueLocked(c *client, msg []byte) {
	if _, ok := s.clients[c]; !ok {
		return
	}
	select {
	case c.send <- msg:
	default:
		log.Printf("bridge: client send buffer full, disconnecting")
		s.removeLocked(c)
	}
}

func (s *Server) remove(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeLocked(c)
}

func (s *Server) removeLocked(c *client) {
	if _, ok := s.clients[c]; ok {
		delete(s.clients, c)
		close(c.send)
	}
}

func (s *Server) closeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		s.removeLocked(c)
	}
}

// readPump reads requests from the connection and answers them in order.
func (c *client) readPump(ctx context.Context) {
	defer func() {
		c.server.remove(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("bridge: read error: %v", err)
			}
			return
		}

		resp := c.server.dispatch(ctx, message)
		data, err := json.Marshal(resp)
		if err != nil {
			log.Printf("bridge: encoding response to %s: %v", resp.ID, err)
			continue
		}
		c.server.enqueue(c, data)
	}
}

// writePump writes queued frames and keeps the connection alive with pings.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// dispatch decodes one request frame and runs it through the bridge.
func (s *Server) dispatch(ctx context.Context, message []byte) Response {
	var req Request
	if err := json.Unmarshal(message, &req); err != nil {
		return Response{Error: "malformed request: " + err.Error()}
	}
	if req.Op == "" {
		return Response{ID: req.ID, Error: "op is required"}
	}

	result, err := s.bridge.Handle(ctx, req.Op, req.Payload)
	if err != nil {
		var verr *ValidationError
		if !errors.As(err, &verr) && !errors.Is(err, ErrUnknownOperation) {
			log.Printf("bridge: %s failed: %v", req.Op, err)
		}
		return Response{ID: req.ID, Error: err.Error()}
	}

	data, err := json.Marshal(result)
	if err != nil {
		return Response{ID: req.ID, Error: "encoding result: " + err.Error()}
	}
	return Response{ID: req.ID, OK: true, Result: data}
}

// localOrigin accepts requests without an Origin header (native clients)
// and browser origins on a loopback host.
func localOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	if u.Scheme == "file" {
		return true
	}
	host := u.Hostname()
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
