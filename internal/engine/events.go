package engine

import (
	"time"

	"cyclearena/internal/geometry"
	"cyclearena/internal/player"
	"cyclearena/internal/port"
)

// eventKind is the closed set of inbound events the engine understands,
// per spec §9's "runtime-typed event payloads from the network ->
// engine's core types are closed variants".
type eventKind int

const (
	eventJoin eventKind = iota
	eventStart
	eventInput
	eventRedraw
	eventExpire // grace-period removal fired by the session store
)

// inboundEvent is the single typed shape every external touchpoint
// funnels through before the engine's tick goroutine ever looks at it.
type inboundEvent struct {
	kind      eventKind
	userID    player.ID
	direction geometry.Direction
	at        time.Time

	// join-only fields
	name  string
	color player.Color
	port  port.ClientPort
}

// Join enqueues a join/rebind request. Safe to call from any goroutine;
// the event is applied on the engine's next tick.
func (e *Engine) Join(id player.ID, name string, color player.Color, p port.ClientPort) {
	e.enqueue(inboundEvent{kind: eventJoin, userID: id, name: name, color: color, port: p, at: time.Now()})
}

// Start enqueues a start command from client id.
func (e *Engine) Start(id player.ID) {
	e.enqueue(inboundEvent{kind: eventStart, userID: id, at: time.Now()})
}

// Input enqueues a direction input, stamped with the time the port
// received it — sub-tick admission (spec §4.F) keys off this timestamp,
// not the time the engine happens to process the event.
func (e *Engine) Input(id player.ID, dir geometry.Direction, receivedAt time.Time) {
	e.enqueue(inboundEvent{kind: eventInput, userID: id, direction: dir, at: receivedAt})
}

// Redraw enqueues a redraw (watermark reset) request.
func (e *Engine) Redraw(id player.ID) {
	e.enqueue(inboundEvent{kind: eventRedraw, userID: id, at: time.Now()})
}

// RemoveExpired enqueues the grace-period removal of a disconnected
// player. Called by the session store's one-shot timer, never by the
// port's read/write pumps directly.
func (e *Engine) RemoveExpired(id player.ID) {
	e.enqueue(inboundEvent{kind: eventExpire, userID: id, at: time.Now()})
}

func (e *Engine) enqueue(ev inboundEvent) {
	select {
	case e.inbox <- ev:
	default:
		// Inbox full: drop rather than block the caller's goroutine.
		// Mirrors the teacher's Room.OnInput drop-on-full policy.
	}
}
