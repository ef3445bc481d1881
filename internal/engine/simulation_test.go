package engine

import (
	"testing"

	"go.uber.org/zap"

	"cyclearena/internal/config"
	"cyclearena/internal/geometry"
	"cyclearena/internal/metrics"
	"cyclearena/internal/player"
	"cyclearena/internal/port"
	"cyclearena/internal/round"
)

func newTestEngineWithPlayers(ids ...player.ID) *Engine {
	e := &Engine{
		cfg:       config.NewStore(config.Default()),
		log:       zap.NewNop().Sugar(),
		metrics:   &metrics.Metrics{},
		players:   make(map[player.ID]*player.Player),
		ports:     make(map[player.ID]port.ClientPort),
		state:     round.Playing,
		prevAlive: make(map[player.ID]struct{}),
	}
	cfg := e.cfg.Get()
	for _, id := range ids {
		p := player.New(id, string(id), player.Color{}, cfg.NumPartitions, cfg.AspectRatio)
		e.players[id] = p
		e.order = append(e.order, id)
	}
	return e
}

func TestTestCollisionDetectsOtherPlayersTrail(t *testing.T) {
	e := newTestEngineWithPlayers("victim", "wall")
	cfg := e.cfg.Get()

	wall := e.players["wall"]
	wall.ResetForRound(geometry.Point{X: 0, Y: 0.5}, geometry.Right, cfg.LineWidth)
	wall.Segments[0] = geometry.Segment{Start: geometry.Point{X: -0.5, Y: 0.5}, End: geometry.Point{X: 0.5, Y: 0.5}}
	wall.Partition.Reset()
	wall.Partition.Insert(0, wall.Segments[0], cfg.LineWidth)

	victim := e.players["victim"]
	victim.ResetForRound(geometry.Point{X: 0, Y: 0}, geometry.Down, cfg.LineWidth)
	travel := geometry.Segment{Start: geometry.Point{X: 0, Y: 0}, End: geometry.Point{X: 0, Y: 1}}

	collided, _ := e.testCollision(victim, "victim", travel, cfg)
	if !collided {
		t.Fatalf("expected travel crossing another player's trail to collide")
	}
}

func TestTestCollisionIgnoresOwnRecentSegments(t *testing.T) {
	e := newTestEngineWithPlayers("solo")
	cfg := e.cfg.Get()
	p := e.players["solo"]
	p.ResetForRound(geometry.Point{X: 0, Y: 0}, geometry.Right, cfg.LineWidth)

	// The head's own trailing segment sits right behind it; travel
	// continuing forward from the head must not self-collide with it.
	travel := geometry.Segment{Start: p.Head().End, End: geometry.Translate(p.Head().End, 0.01, 0)}
	collided, _ := e.testCollision(p, "solo", travel, cfg)
	if collided {
		t.Fatalf("expected no self-collision against the player's own recent segments")
	}
}

func TestRunPlayingTickBoundaryDeathEndsRoundAtOnePlayer(t *testing.T) {
	e := newTestEngineWithPlayers("a", "b")
	cfg := e.cfg.Get()

	a := e.players["a"]
	a.ResetForRound(geometry.Point{X: cfg.AspectRatio - 0.001, Y: 0}, geometry.Right, cfg.LineWidth)
	b := e.players["b"]
	b.ResetForRound(geometry.Point{X: 0, Y: -0.9}, geometry.Up, cfg.LineWidth)

	e.prevAlive = map[player.ID]struct{}{"a": {}, "b": {}}
	e.runPlayingTick(cfg)

	if !a.Dead {
		t.Fatalf("expected player a to die crossing the right boundary")
	}
	if e.state != round.Idle {
		t.Fatalf("expected round to end once only one player remains alive, got state %v", e.state)
	}
}
