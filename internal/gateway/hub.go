package gateway

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/openoutcry/botrunner/internal/domain"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
	sendBuffer = 256
)

// hub tracks connected websocket clients and fans exchange packets out
// to them. Delivery never blocks: a client that cannot keep up has
// packets dropped, so this stream is a diagnostic feed, not replica
// transport.
type hub struct {
	mu      sync.RWMutex
	clients map[*client]struct{}
	logger  *slog.Logger
}

func newHub(logger *slog.Logger) *hub {
	return &hub{
		clients: make(map[*client]struct{}),
		logger:  logger,
	}
}

// Deliver implements the exchange's Subscriber interface.
func (h *hub) Deliver(p domain.Packet) {
	msg, err := encodePacket(p)
	if err != nil {
		h.logger.Error("encode packet", slog.Any("error", err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		c.enqueue(msg)
	}
}

func (h *hub) add(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	h.logger.Info("client connected",
		slog.String("client_id", c.id),
		slog.Uint64("trader_id", uint64(c.traderID)),
		slog.Int("clients", n),
	)
}

func (h *hub) remove(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	n := len(h.clients)
	h.mu.Unlock()
	h.logger.Info("client disconnected",
		slog.String("client_id", c.id),
		slog.Int("clients", n),
	)
}

// client is one websocket connection. Outbound messages flow through
// the send channel so the write pump is the only writer on the
// connection.
type client struct {
	id       string
	traderID domain.TraderID
	conn     *websocket.Conn
	send     chan []byte
	srv      *Server
}

// enqueue hands a message to the write pump, dropping it when the
// client's buffer is full.
func (c *client) enqueue(msg []byte) {
	select {
	case c.send <- msg:
	default:
	}
}

func (c *client) respond(f responseFrame) {
	msg, err := json.Marshal(f)
	if err != nil {
		return
	}
	c.enqueue(msg)
}

// readPump decodes request frames and forwards them to the runtime
// until the connection drops.
func (c *client) readPump() {
	defer func() {
		c.srv.hub.remove(c)
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.srv.logger.Warn("read", slog.String("client_id", c.id), slog.Any("error", err))
			}
			return
		}

		var req requestFrame
		if err := json.Unmarshal(message, &req); err != nil {
			c.respond(responseFrame{Op: "error", Message: "malformed frame"})
			continue
		}
		c.handle(req)
	}
}

// handle submits one decoded request. The trader id always comes from
// the connection, never from the frame.
func (c *client) handle(req requestFrame) {
	switch req.Op {
	case "order":
		if req.Order == nil {
			c.respond(responseFrame{Op: "error", Message: "order frame without order"})
			return
		}
		o := *req.Order
		o.TraderID = c.traderID
		id, err := c.srv.rt.PlaceOrder(o)
		if err != nil {
			c.respond(responseFrame{Op: "error", Message: err.Error()})
			return
		}
		c.respond(responseFrame{Op: "ack", OrderID: id})
	case "cancel":
		if req.Cancel == nil {
			c.respond(responseFrame{Op: "error", Message: "cancel frame without cancel"})
			return
		}
		cl := *req.Cancel
		cl.TraderID = c.traderID
		if err := c.srv.rt.PlaceCancel(cl); err != nil {
			c.respond(responseFrame{Op: "error", Message: err.Error()})
			return
		}
		c.respond(responseFrame{Op: "ack", OrderID: cl.OrderID})
	default:
		c.respond(responseFrame{Op: "error", Message: "unknown op"})
	}
}

// writePump drains the send channel onto the connection and keeps the
// connection alive with pings.
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
