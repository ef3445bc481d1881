package engine

import (
	"testing"
	"time"

	"go.uber.org/zap"

	"cyclearena/internal/config"
	"cyclearena/internal/geometry"
	"cyclearena/internal/metrics"
	"cyclearena/internal/player"
	"cyclearena/internal/round"
)

type fakePort struct {
	sent []string
}

func (f *fakePort) Send(eventType string, payload any) error {
	f.sent = append(f.sent, eventType)
	return nil
}

func newTestEngine() *Engine {
	cfg := config.NewStore(config.Default())
	log := zap.NewNop().Sugar()
	return New(cfg, log, &metrics.Metrics{})
}

func TestHandleJoinCreatesPlayerAndBindsPort(t *testing.T) {
	e := newTestEngine()
	cfg := e.cfg.Get()
	fp := &fakePort{}

	e.handleJoin(inboundEvent{kind: eventJoin, userID: "p1", name: "alice", port: fp}, cfg)

	if _, ok := e.players["p1"]; !ok {
		t.Fatalf("expected player p1 to be created")
	}
	if e.ports["p1"] != fp {
		t.Fatalf("expected p1's port to be bound")
	}
	if len(fp.sent) == 0 {
		t.Fatalf("expected join handshake to send at least game_settings")
	}
}

func TestHandleJoinTwiceDoesNotDuplicatePlayer(t *testing.T) {
	e := newTestEngine()
	cfg := e.cfg.Get()
	fp1 := &fakePort{}
	fp2 := &fakePort{}

	e.handleJoin(inboundEvent{kind: eventJoin, userID: "p1", name: "alice", port: fp1}, cfg)
	e.handleJoin(inboundEvent{kind: eventJoin, userID: "p1", name: "alice", port: fp2}, cfg)

	if len(e.order) != 1 {
		t.Fatalf("expected exactly one entry in order, got %d", len(e.order))
	}
	if e.ports["p1"] != fp2 {
		t.Fatalf("expected rebind to replace the port with the newest one")
	}
}

func TestHandleStartRequiresTwoConnectedPlayers(t *testing.T) {
	e := newTestEngine()
	cfg := e.cfg.Get()
	e.handleJoin(inboundEvent{kind: eventJoin, userID: "p1", port: &fakePort{}}, cfg)

	e.handleStart(cfg)
	if e.state != round.Idle {
		t.Fatalf("expected state to remain Idle with only 1 player, got %v", e.state)
	}

	e.handleJoin(inboundEvent{kind: eventJoin, userID: "p2", port: &fakePort{}}, cfg)
	e.handleStart(cfg)
	if e.state != round.Countdown {
		t.Fatalf("expected state to transition to Countdown with 2 players, got %v", e.state)
	}
}

func TestHandleStartResetsWatermarksOfOtherPlayers(t *testing.T) {
	e := newTestEngine()
	cfg := e.cfg.Get()
	e.handleJoin(inboundEvent{kind: eventJoin, userID: "p1", port: &fakePort{}}, cfg)
	e.handleJoin(inboundEvent{kind: eventJoin, userID: "p2", port: &fakePort{}}, cfg)
	e.players["p2"].SetWatermark("p1", 9)

	e.handleStart(cfg)

	if w := e.players["p2"].WatermarkFor("p1"); w != 0 {
		t.Fatalf("expected p2's watermark for respawning p1 to reset to 0, got %d", w)
	}
}

func TestAdmitInputRejectsOppositeAndSameDirection(t *testing.T) {
	e := newTestEngine()
	cfg := e.cfg.Get()
	p := player.New("p1", "alice", player.Color{}, cfg.NumPartitions, cfg.AspectRatio)
	p.ResetForRound(geometry.Point{}, geometry.Right, cfg.LineWidth)

	now := time.Now()
	p.EnqueueInput(geometry.Right, now)           // same direction, invalid
	p.EnqueueInput(geometry.Left, now)             // opposite direction, invalid
	p.EnqueueInput(geometry.Up, now)               // first valid turn
	p.EnqueueInput(geometry.Down, now.Add(time.Hour)) // outside this window

	window := now.Add(time.Millisecond)
	e.admitInput(p, now, window, cfg)

	if p.Direction != geometry.Up {
		t.Fatalf("expected direction to become Up after the first valid turn, got %v", p.Direction)
	}
	if len(p.Segments) != 2 {
		t.Fatalf("expected one new segment from the accepted turn, got %d segments", len(p.Segments))
	}
	if len(p.PendingInputs) != 1 {
		t.Fatalf("expected the out-of-window input to remain queued, got %d", len(p.PendingInputs))
	}
}

func TestAdmitInputNoValidTurnDrainsQueue(t *testing.T) {
	e := newTestEngine()
	cfg := e.cfg.Get()
	p := player.New("p1", "alice", player.Color{}, cfg.NumPartitions, cfg.AspectRatio)
	p.ResetForRound(geometry.Point{}, geometry.Right, cfg.LineWidth)

	now := time.Now()
	p.EnqueueInput(geometry.Right, now)
	p.EnqueueInput(geometry.Left, now)

	e.admitInput(p, now, now.Add(time.Millisecond), cfg)

	if len(p.PendingInputs) != 0 {
		t.Fatalf("expected no queued entries left after only-invalid inputs, got %d", len(p.PendingInputs))
	}
	if len(p.Segments) != 1 {
		t.Fatalf("expected no new segment when no turn was valid")
	}
}

func TestEndRoundSimultaneousDeathAwardsPrevAlive(t *testing.T) {
	e := newTestEngine()
	cfg := e.cfg.Get()
	e.handleJoin(inboundEvent{kind: eventJoin, userID: "p1", port: &fakePort{}}, cfg)
	e.handleJoin(inboundEvent{kind: eventJoin, userID: "p2", port: &fakePort{}}, cfg)
	e.prevAlive = map[player.ID]struct{}{"p1": {}, "p2": {}}

	e.endRound([]player.ID{})

	if e.players["p1"].Score != 1 || e.players["p2"].Score != 1 {
		t.Fatalf("expected both players to score on simultaneous death, got p1=%d p2=%d",
			e.players["p1"].Score, e.players["p2"].Score)
	}
	if e.state != round.Idle {
		t.Fatalf("expected state to return to Idle after round end")
	}
}

func TestHandleExpireForgetsSourceOnOtherPlayers(t *testing.T) {
	e := newTestEngine()
	cfg := e.cfg.Get()
	e.handleJoin(inboundEvent{kind: eventJoin, userID: "p1", port: &fakePort{}}, cfg)
	e.handleJoin(inboundEvent{kind: eventJoin, userID: "p2", port: &fakePort{}}, cfg)
	e.players["p2"].SetWatermark("p1", 5)

	e.handleExpire(inboundEvent{kind: eventExpire, userID: "p1"})

	if _, ok := e.players["p1"]; ok {
		t.Fatalf("expected p1 to be removed")
	}
	if w := e.players["p2"].WatermarkFor("p1"); w != 0 {
		t.Fatalf("expected p2's watermark for removed p1 to be forgotten, got %d", w)
	}
}

func TestJoinEnqueueDropsOnFullInboxRatherThanBlocking(t *testing.T) {
	e := newTestEngine()
	// The inbox is bounded; pushing far past its capacity must never
	// block the calling goroutine (spec's drop-on-full enqueue policy).
	for i := 0; i < 10000; i++ {
		e.Join(player.ID("p"), "p", player.Color{}, &fakePort{})
	}
}
