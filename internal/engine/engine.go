// Package engine is the authoritative tick-driven simulation (spec §4.E,
// §4.F): the single writer of all player state, the only place a round
// transitions, and the only place a segment is ever created. Grounded
// on the teacher's server/room.go + server/tick.go (BeginTick ->
// ProcessInputs -> UpdateWorld -> BroadcastDelta on a time.Ticker,
// channel-fed input, drop-on-full enqueue) generalized to sub-ticks, a
// spatial index, and fat-line collision.
package engine

import (
	"math/rand"
	"time"

	"go.uber.org/zap"

	"cyclearena/internal/config"
	"cyclearena/internal/metrics"
	"cyclearena/internal/player"
	"cyclearena/internal/port"
	"cyclearena/internal/round"
	"cyclearena/internal/transport"
)

// Engine owns every Player, the round state machine, and the outbound
// ClientPort registry. Nothing outside the tick goroutine (started by
// Run) may read or write players, order, ports, state, or prevAlive —
// the inbox channel is the sole cross-thread boundary (spec §5).
type Engine struct {
	cfg     *config.Store
	log     *zap.SugaredLogger
	metrics *metrics.Metrics
	rng     *rand.Rand

	inbox chan inboundEvent
	stop  chan struct{}

	players map[player.ID]*player.Player
	order   []player.ID
	ports   map[player.ID]port.ClientPort

	state           round.State
	countdownEndsAt time.Time
	prevAlive       map[player.ID]struct{}
}

// New creates an Engine in the Idle state with no players.
func New(cfg *config.Store, log *zap.SugaredLogger, m *metrics.Metrics) *Engine {
	return &Engine{
		cfg:       cfg,
		log:       log,
		metrics:   m,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
		inbox:     make(chan inboundEvent, 256),
		stop:      make(chan struct{}),
		players:   make(map[player.ID]*player.Player),
		ports:     make(map[player.ID]port.ClientPort),
		state:     round.Idle,
		prevAlive: make(map[player.ID]struct{}),
	}
}

// Run drives the fixed-rate tick loop until Stop is called. Blocks the
// calling goroutine; callers start it with `go e.Run()`.
func (e *Engine) Run() {
	cfg := e.cfg.Get()
	ticker := time.NewTicker(cfg.TickDuration())
	defer ticker.Stop()
	for {
		select {
		case <-e.stop:
			return
		case <-ticker.C:
			e.tick()
		}
	}
}

// Stop halts the tick loop.
func (e *Engine) Stop() {
	close(e.stop)
}

// tick runs one fixed-rate tick: drain the inbox, advance the round
// state machine, and push deltas to every connected client. Ticks run
// at TICK_RATE regardless of round state, per spec §4.E — in Idle or
// Countdown there is simply no simulation step to run, but redraws are
// still serviced by the same Broadcast call.
func (e *Engine) tick() {
	start := time.Now()
	cfg := e.cfg.Get()

	e.drainInbox(cfg)

	switch e.state {
	case round.Countdown:
		e.checkCountdownEnd(cfg)
	case round.Playing:
		e.runPlayingTick(cfg)
	}

	transport.Broadcast(e.order, e.players, e.ports)

	for _, id := range e.order {
		p := e.players[id]
		if e.state != round.Countdown {
			// A countdown input is kept until checkCountdownEnd applies it.
			p.HasStartingDir = false
		}
		p.PendingRedraw = false
	}

	e.metrics.AddTick(time.Since(start).Nanoseconds())
	e.metrics.SetPlayersConnected(len(e.ports))
	e.metrics.SetAvgConnectedMs(avgConnectedMs(e.players, start))
}

// avgConnectedMs averages joinedAt-to-now across every known player,
// the connected-duration gauge from SPEC_FULL §4.C.
func avgConnectedMs(players map[player.ID]*player.Player, now time.Time) int64 {
	if len(players) == 0 {
		return 0
	}
	var total time.Duration
	for _, p := range players {
		total += now.Sub(p.JoinedAt)
	}
	return total.Milliseconds() / int64(len(players))
}

func (e *Engine) drainInbox(cfg config.Config) {
	for {
		select {
		case ev := <-e.inbox:
			e.apply(ev, cfg)
		default:
			return
		}
	}
}

func (e *Engine) apply(ev inboundEvent, cfg config.Config) {
	switch ev.kind {
	case eventJoin:
		e.handleJoin(ev, cfg)
	case eventStart:
		e.handleStart(cfg)
	case eventInput:
		e.handleInput(ev)
	case eventRedraw:
		e.handleRedraw(ev)
	case eventExpire:
		e.handleExpire(ev)
	}
}

func (e *Engine) handleJoin(ev inboundEvent, cfg config.Config) {
	p, exists := e.players[ev.userID]
	if !exists {
		p = player.New(ev.userID, ev.name, ev.color, cfg.NumPartitions, cfg.AspectRatio)
		e.players[ev.userID] = p
		e.order = append(e.order, ev.userID)
	}
	if ev.port != nil {
		e.ports[ev.userID] = ev.port
	}

	if ev.port != nil {
		_ = ev.port.Send(port.EventGameSettings, port.GameSettingsPayload{
			AspectRatio: cfg.AspectRatio,
			LineWidth:   cfg.LineWidth,
		})
	}
	transport.SendJoinHandshake(p, e.order, e.players, e.ports)
	e.log.Infow("player joined", "id", ev.userID, "name", p.Name)
}

func (e *Engine) handleInput(ev inboundEvent) {
	p := e.players[ev.userID]
	if p == nil {
		e.metrics.IncInputsUnknownID()
		return
	}
	if e.state == round.Countdown {
		p.StartingDirection = ev.direction
		p.HasStartingDir = true
		return
	}
	if p.Dead {
		e.metrics.IncInputsDeadPlayer()
		return
	}
	p.EnqueueInput(ev.direction, ev.at)
}

func (e *Engine) handleRedraw(ev inboundEvent) {
	if p := e.players[ev.userID]; p != nil {
		p.ResetWatermarks()
	}
}

func (e *Engine) handleExpire(ev inboundEvent) {
	id := ev.userID
	if _, ok := e.players[id]; !ok {
		return
	}
	delete(e.players, id)
	delete(e.ports, id)
	delete(e.prevAlive, id)
	for i, oid := range e.order {
		if oid == id {
			e.order = append(e.order[:i], e.order[i+1:]...)
			break
		}
	}
	for _, other := range e.players {
		other.ForgetSource(id)
	}
	for _, out := range e.ports {
		_ = out.Send(port.EventRemove, string(id))
	}
	e.log.Infow("player removed after grace period", "id", id)
}

// handleStart implements the Idle -> Countdown transition from spec
// §4.D: wipe and respawn every known player, remember prevAlive as
// everyone currently in the roster, and broadcast "starting".
func (e *Engine) handleStart(cfg config.Config) {
	if !round.CanStart(e.state, len(e.ports)) {
		return
	}
	e.state = round.Countdown
	e.prevAlive = make(map[player.ID]struct{}, len(e.order))
	for _, id := range e.order {
		e.prevAlive[id] = struct{}{}
		p := e.players[id]
		spawn := round.RandomSpawn(cfg, e.rng)
		dir := round.RandomDirection(e.rng)
		p.ResetForRound(spawn, dir, cfg.LineWidth)
		// Every other player's watermark for id now points past the end
		// of a trail that no longer exists; force it back to 0 so the
		// next delta resends the fresh single-segment trail in full.
		for _, other := range e.players {
			if other.ID != id {
				other.ForgetSource(id)
			}
		}
	}
	e.countdownEndsAt = time.Now().Add(cfg.RoundStartDelay)
	for _, out := range e.ports {
		_ = out.Send(port.EventStarting, nil)
	}
	e.log.Infow("round starting", "players", len(e.order))
}

func (e *Engine) checkCountdownEnd(cfg config.Config) {
	if time.Now().Before(e.countdownEndsAt) {
		return
	}
	for _, id := range e.order {
		p := e.players[id]
		if p.HasStartingDir {
			p.ReplaceSeedDirection(p.StartingDirection, cfg.LineWidth)
		}
	}
	e.state = round.Playing
	e.log.Infow("round playing")
}
