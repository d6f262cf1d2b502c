package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"
)

const (
	// writeWait bounds every websocket write, pings included.
	writeWait = 10 * time.Second

	// pongWait is the liveness window. A client that cannot answer a
	// ping inside it is torn down by the failed write.
	pongWait = 60 * time.Second

	// pingPeriod keeps pings comfortably inside the liveness window.
	pingPeriod = (pongWait * 9) / 10

	// maxMessageSize caps inbound frames; reload clients have nothing
	// meaningful to say.
	maxMessageSize = 512
)

// Client is one connected reload listener.
type Client struct {
	conn *websocket.Conn
	send chan []byte
}

// UpdateMessage is the payload pushed to reload clients when templates
// change on disk.
type UpdateMessage struct {
	Type      string    `json:"type"`
	Target    string    `json:"target,omitempty"`
	Content   string    `json:"content,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// handleWebSocket upgrades a reload client and pumps messages until
// the peer or the server goes away.
func (s *PreviewServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	origin := r.Header.Get("Origin")
	if origin != "" && !s.isAllowedOrigin(origin) {
		s.logger.Info(r.Context(), "websocket origin rejected", "origin", origin)
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		// Origin was validated above against the configured allow
		// list; Accept's own check only admits same-host clients.
		InsecureSkipVerify: true,
	})
	if err != nil {
		s.logger.Warn(r.Context(), err, "websocket upgrade failed")
		return
	}

	client := &Client{conn: conn, send: make(chan []byte, 16)}
	select {
	case s.register <- client:
	case <-s.done:
		conn.Close(websocket.StatusGoingAway, "server shutting down")
		return
	}

	go s.writePump(client)
	s.readPump(r.Context(), client)
}

// readPump drains inbound frames until the peer goes away. Reading is
// how close frames and pongs get processed; payloads are discarded.
func (s *PreviewServer) readPump(ctx context.Context, client *Client) {
	defer func() {
		select {
		case s.unregister <- client.conn:
		case <-s.done:
		}
		client.conn.Close(websocket.StatusNormalClosure, "")
	}()

	client.conn.SetReadLimit(maxMessageSize)
	for {
		if _, _, err := client.conn.Read(ctx); err != nil {
			status := websocket.CloseStatus(err)
			if status != websocket.StatusNormalClosure && status != websocket.StatusGoingAway && ctx.Err() == nil {
				s.logger.Debug(ctx, "reload client read ended", "reason", err.Error())
			}
			return
		}
	}
}

// writePump owns all writes on the connection: hub messages and
// keepalive pings. The hub only ever touches the send channel.
func (s *PreviewServer) writePump(client *Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		client.conn.Close(websocket.StatusNormalClosure, "")
	}()

	for {
		select {
		case message, ok := <-client.send:
			if !ok {
				return
			}
			ctx, cancel := context.WithTimeout(context.Background(), writeWait)
			err := client.conn.Write(ctx, websocket.MessageText, message)
			cancel()
			if err != nil {
				return
			}
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), writeWait)
			err := client.conn.Ping(ctx)
			cancel()
			if err != nil {
				return
			}
		case <-s.done:
			client.conn.Close(websocket.StatusGoingAway, "server shutting down")
			return
		}
	}
}

// runHub serializes client registration and broadcast fan-out.
func (s *PreviewServer) runHub(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		case client := <-s.register:
			s.clientsMutex.Lock()
			s.clients[client.conn] = client
			count := len(s.clients)
			s.clientsMutex.Unlock()
			s.logger.Debug(ctx, "reload client connected", "clients", count)
		case conn := <-s.unregister:
			s.dropClient(conn, 0, "")
		case message := <-s.broadcast:
			s.fanOut(ctx, message)
		}
	}
}

// dropClient removes a client and closes its send channel. The map
// delete guards against a double close when two paths race.
func (s *PreviewServer) dropClient(conn *websocket.Conn, status websocket.StatusCode, reason string) {
	s.clientsMutex.Lock()
	client, ok := s.clients[conn]
	if ok {
		delete(s.clients, conn)
		close(client.send)
	}
	s.clientsMutex.Unlock()

	if ok && status != 0 {
		conn.Close(status, reason)
	}
}

// fanOut delivers a message to every client without blocking the hub.
// Clients whose send buffers are full get disconnected; a reload
// listener that cannot keep up with reload messages is gone anyway.
func (s *PreviewServer) fanOut(ctx context.Context, message []byte) {
	var stalled []*websocket.Conn

	s.clientsMutex.RLock()
	for conn, client := range s.clients {
		select {
		case client.send <- message:
		default:
			stalled = append(stalled, conn)
		}
	}
	count := len(s.clients)
	s.clientsMutex.RUnlock()

	for _, conn := range stalled {
		s.dropClient(conn, websocket.StatusPolicyViolation, "send buffer full")
	}
	if count > 0 {
		s.logger.Debug(ctx, "reload broadcast", "clients", count, "stalled", len(stalled))
	}
}

// broadcastMessage serializes a message and hands it to the hub
// without blocking the caller. A full queue drops the message; clients
// reload on the next one.
func (s *PreviewServer) broadcastMessage(msg UpdateMessage) {
	msg.Timestamp = time.Now()
	payload, err := json.Marshal(msg)
	if err != nil {
		s.logger.Warn(context.Background(), err, "failed to encode reload message")
		return
	}
	select {
	case s.broadcast <- payload:
	case <-s.done:
	default:
	}
}

func (s *PreviewServer) clientCount() int {
	s.clientsMutex.RLock()
	defer s.clientsMutex.RUnlock()
	return len(s.clients)
}
