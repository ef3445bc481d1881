package port

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// ClientPort is the abstract outbound capability the engine holds per
// player (spec §4.H, §9). The engine never constructs or closes a
// ClientPort directly — that is the port layer's concern — it only
// calls Send.
type ClientPort interface {
	Send(eventType string, payload any) error
}

// ErrPortClosed is returned by Send after the underlying connection has
// gone away, and also when the outbound queue is full and the frame is
// dropped. Per spec §7 a transport send failure is never fatal to the
// engine: the next tick's delta mechanism retries, because the watermark
// is only advanced after a successful enqueue.
var ErrPortClosed = errors.New("port: connection closed")

// WSConn adapts a gorilla/websocket connection to ClientPort. Grounded
// on the teacher's server/net_ws.go ClientConn: a buffered outbound
// queue drained by a dedicated writePump goroutine, with a non-blocking
// Enqueue that drops the newest frame rather than blocking the caller
// (the caller here is always the engine's tick goroutine, which must
// never stall on a slow client).
type WSConn struct {
	ws     *websocket.Conn
	send   chan []byte
	closed chan struct{}
	log    *zap.SugaredLogger
}

// NewWSConn wraps ws and starts its write pump.
func NewWSConn(ws *websocket.Conn, log *zap.SugaredLogger) *WSConn {
	c := &WSConn{
		ws:     ws,
		send:   make(chan []byte, 64),
		closed: make(chan struct{}),
		log:    log,
	}
	go c.writePump()
	return c
}

// Send marshals {type, payload} and enqueues it for the write pump.
// Non-blocking: if the outbound queue is full the frame is dropped, per
// the real-time-over-reliability policy the teacher's Enqueue follows.
func (c *WSConn) Send(eventType string, payload any) error {
	b, err := json.Marshal(Envelope{Type: eventType, Payload: payload})
	if err != nil {
		return err
	}
	select {
	case <-c.closed:
		return ErrPortClosed
	default:
	}
	select {
	case c.send <- b:
		return nil
	default:
		return ErrPortClosed
	}
}

// Close tears down the outbound queue and the underlying socket.
func (c *WSConn) Close() {
	select {
	case <-c.closed:
		return
	default:
		close(c.closed)
	}
	_ = c.ws.Close()
}

func (c *WSConn) writePump() {
	defer c.ws.Close()
	for {
		select {
		case <-c.closed:
			return
		case msg, ok := <-c.send:
			if !ok {
				return
			}
			_ = c.ws.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		}
	}
}

// ReadLoop blocks reading frames from ws and hands each validated one to
// onEvent. It returns when the connection errors or closes; the caller
// is responsible for triggering the disconnect path afterward. Malformed
// frames are logged once at debug and dropped, never reaching onEvent —
// the schema layer called for in spec §9.
func (c *WSConn) ReadLoop(onEvent func(InboundEnvelope)) {
	c.ws.SetReadLimit(1 << 16)
	_ = c.ws.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.ws.SetPongHandler(func(string) error {
		_ = c.ws.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, raw, err := c.ws.ReadMessage()
		if err != nil {
			return
		}
		var env InboundEnvelope
		if err := json.Unmarshal(raw, &env); err != nil {
			if c.log != nil {
				c.log.Debugw("dropping malformed frame", "error", err)
			}
			continue
		}
		if !validInboundType(env.Type) {
			if c.log != nil {
				c.log.Debugw("dropping unknown event type", "type", env.Type)
			}
			continue
		}
		if env.Type == InboundInput && (env.Direction == nil || *env.Direction < 0 || *env.Direction > 3) {
			if c.log != nil {
				c.log.Debugw("dropping input with invalid direction")
			}
			continue
		}
		onEvent(env)
	}
}

func validInboundType(t string) bool {
	switch t {
	case InboundJoin, InboundStart, InboundInput, InboundRedraw, InboundHeartbeat:
		return true
	default:
		return false
	}
}
