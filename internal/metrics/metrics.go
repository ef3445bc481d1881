// Package metrics holds the atomic runtime counters exposed over
// /metrics. Generalizes the teacher's server/metrics.go (RoomMetrics)
// from a single room's input-handling counters to the arena engine's
// tick/round/collision counters.
package metrics

import "sync/atomic"

// Metrics is a set of process-wide atomic counters. All fields are
// accessed only through the Inc*/Add*/Set* methods and Snapshot; never read
// or write the fields directly.
type Metrics struct {
	TickCount         int64
	TotalTickNs       int64
	RoundsPlayed      int64
	InputsAccepted    int64
	InputsInvalidTurn int64
	InputsUnknownID   int64
	InputsDeadPlayer  int64
	Collisions        int64
	PlayersConnected  int64
	AvgConnectedMs    int64
}

func (m *Metrics) IncInputsAccepted()    { atomic.AddInt64(&m.InputsAccepted, 1) }
func (m *Metrics) IncInputsInvalidTurn() { atomic.AddInt64(&m.InputsInvalidTurn, 1) }
func (m *Metrics) IncInputsUnknownID()   { atomic.AddInt64(&m.InputsUnknownID, 1) }
func (m *Metrics) IncInputsDeadPlayer()  { atomic.AddInt64(&m.InputsDeadPlayer, 1) }
func (m *Metrics) IncCollisions()        { atomic.AddInt64(&m.Collisions, 1) }
func (m *Metrics) IncRoundsPlayed()      { atomic.AddInt64(&m.RoundsPlayed, 1) }

func (m *Metrics) SetPlayersConnected(n int) {
	atomic.StoreInt64(&m.PlayersConnected, int64(n))
}

// SetAvgConnectedMs records the average connected duration (joinedAt
// to now) across every known player, per spec's connected-duration
// gauge — a read model only, never consulted by gameplay logic.
func (m *Metrics) SetAvgConnectedMs(ms int64) {
	atomic.StoreInt64(&m.AvgConnectedMs, ms)
}

// AddTick records one tick's wall-clock duration in nanoseconds.
func (m *Metrics) AddTick(ns int64) {
	atomic.AddInt64(&m.TickCount, 1)
	atomic.AddInt64(&m.TotalTickNs, ns)
}

// Snapshot is a read-only view suitable for JSON encoding.
type Snapshot struct {
	TickCount         int64   `json:"tick_count"`
	AvgTickMs         float64 `json:"avg_tick_ms"`
	RoundsPlayed      int64   `json:"rounds_played"`
	InputsAccepted    int64   `json:"inputs_accepted"`
	InputsInvalidTurn int64   `json:"inputs_invalid_turn"`
	InputsUnknownID   int64   `json:"inputs_unknown_id"`
	InputsDeadPlayer  int64   `json:"inputs_dead_player"`
	Collisions        int64   `json:"collisions"`
	PlayersConnected  int64   `json:"players_connected"`
	AvgConnectedSecs  float64 `json:"avg_connected_secs"`
}

// Snapshot returns a consistent-enough read-only copy of the counters.
// Individual fields may be read from slightly different instants under
// concurrent writers; this is acceptable for an ops dashboard and never
// consulted by game logic.
func (m *Metrics) Snapshot() Snapshot {
	tick := atomic.LoadInt64(&m.TickCount)
	total := atomic.LoadInt64(&m.TotalTickNs)
	var avgMs float64
	if tick > 0 {
		avgMs = float64(total) / float64(tick) / 1e6
	}
	return Snapshot{
		TickCount:         tick,
		AvgTickMs:         avgMs,
		RoundsPlayed:      atomic.LoadInt64(&m.RoundsPlayed),
		InputsAccepted:    atomic.LoadInt64(&m.InputsAccepted),
		InputsInvalidTurn: atomic.LoadInt64(&m.InputsInvalidTurn),
		InputsUnknownID:   atomic.LoadInt64(&m.InputsUnknownID),
		InputsDeadPlayer:  atomic.LoadInt64(&m.InputsDeadPlayer),
		Collisions:        atomic.LoadInt64(&m.Collisions),
		PlayersConnected:  atomic.LoadInt64(&m.PlayersConnected),
		AvgConnectedSecs:  float64(atomic.LoadInt64(&m.AvgConnectedMs)) / 1000,
	}
}
