// Package player holds the authoritative per-player state described in
// spec §3: identity, trail, pending input queue, and the per-peer
// transport watermarks used by the delta transport. Generalizes the
// teacher's minimal Player/Direction types (miniarena's server/player.go,
// server/input.go) into the spec's richer model.
package player

import (
	"time"

	"cyclearena/internal/geometry"
	"cyclearena/internal/partition"
)

// ID is a stable, session-derived player identity.
type ID string

// Color is an RGB triple in [0,1], as carried in the join handshake and
// echoed back in every modify_player event.
type Color struct {
	R, G, B float64
}

// PendingInput is one queued direction change, stamped with the
// wall-clock time the port received it. Sub-tick admission (spec §4.F)
// consumes at most one of these per sub-tick window.
type PendingInput struct {
	Direction geometry.Direction
	Received  time.Time
}

// Player is the authoritative state for one connected user's light
// cycle. It is owned exclusively by the engine's tick goroutine; nothing
// outside a tick may mutate it directly (spec §5).
type Player struct {
	ID    ID
	Name  string
	Color Color
	Score int

	Direction geometry.Direction
	Segments  []geometry.Segment
	Dead      bool

	PendingInputs []PendingInput

	// StartingDirection is a provisional heading chosen by an early
	// input during the pre-round countdown (spec §4.D). Kept through the
	// countdown and cleared at the end of every tick outside it.
	StartingDirection   geometry.Direction
	HasStartingDir      bool

	Partition *partition.Grid

	// LastSentSegmentIndices is this player's watermark, as a *receiver*,
	// into each peer's segment list: LastSentSegmentIndices[peer] is the
	// last index of peer's trail already delivered to this player. Per
	// spec §3 the watermark is stored on the receiver side, keyed by the
	// source player whose segments it tracks.
	LastSentSegmentIndices map[ID]int
	PendingRedraw          bool

	JoinedAt time.Time
}

// New creates a Player born dead with no trail, per the Lifecycle rule
// in spec §3: a Player is created on first join for a new user id, with
// dead=true, segments=[], score 0, pendingRedraw=false.
func New(id ID, name string, color Color, numPartitions int, aspectRatio float64) *Player {
	return &Player{
		ID:                     id,
		Name:                   name,
		Color:                  color,
		Dead:                   true,
		Partition:              partition.New(numPartitions, aspectRatio),
		LastSentSegmentIndices: make(map[ID]int),
		JoinedAt:               time.Now(),
	}
}

// Head returns the live head segment — the last segment in the trail.
// Callers must only call this on a live player (invariant 3: segments is
// non-empty while alive).
func (p *Player) Head() geometry.Segment {
	return p.Segments[len(p.Segments)-1]
}

// HeadIndex returns the index of the live head segment.
func (p *Player) HeadIndex() int {
	return len(p.Segments) - 1
}

// EnqueueInput appends a direction input to the pending queue. Only the
// engine's tick goroutine calls it, when it applies an input event taken
// from its inbox; the port reaches this queue only through that inbox.
func (p *Player) EnqueueInput(dir geometry.Direction, at time.Time) {
	p.PendingInputs = append(p.PendingInputs, PendingInput{Direction: dir, Received: at})
}

// ResetForRound wipes trail, spatial index, and pending input state and
// seeds one segment of length lineWidth in dir starting at spawn, per the
// round manager's per-round reset (spec §3 Lifecycle, §4.D).
func (p *Player) ResetForRound(spawn geometry.Point, dir geometry.Direction, lineWidth float64) {
	p.Segments = nil
	p.Partition.Reset()
	p.PendingInputs = nil
	p.Dead = false
	p.Direction = dir
	p.HasStartingDir = false
	p.StartingDirection = geometry.Up
	p.PendingRedraw = false

	dx, dy := geometry.Unit(dir)
	seed := geometry.Segment{
		Start: spawn,
		End:   geometry.Translate(spawn, dx*lineWidth, dy*lineWidth),
	}
	p.Segments = append(p.Segments, seed)
	p.Partition.Insert(0, seed, lineWidth)
}

// ReplaceSeedDirection swaps the just-seeded segment for one aimed in
// dir, used at countdown end when a StartingDirection was set (spec
// §4.D). Only valid immediately after ResetForRound, before any
// extension has happened — the trail is still the single seed segment.
func (p *Player) ReplaceSeedDirection(dir geometry.Direction, lineWidth float64) {
	if len(p.Segments) != 1 {
		return
	}
	spawn := p.Segments[0].Start
	p.Partition.Reset()
	dx, dy := geometry.Unit(dir)
	seed := geometry.Segment{
		Start: spawn,
		End:   geometry.Translate(spawn, dx*lineWidth, dy*lineWidth),
	}
	p.Segments[0] = seed
	p.Direction = dir
	p.Partition.Insert(0, seed, lineWidth)
}

// WatermarkFor returns the last index of source's segments already
// delivered to this player, defaulting to 0 per spec §4.G.
func (p *Player) WatermarkFor(source ID) int {
	if w, ok := p.LastSentSegmentIndices[source]; ok {
		return w
	}
	return 0
}

// SetWatermark records that this player has now received source's
// segments up to and including index w.
func (p *Player) SetWatermark(source ID, w int) {
	p.LastSentSegmentIndices[source] = w
}

// ResetWatermarks zeroes every watermark this player holds and marks it
// for a full resend, implementing the redraw request (spec §4.G).
func (p *Player) ResetWatermarks() {
	for source := range p.LastSentSegmentIndices {
		p.LastSentSegmentIndices[source] = 0
	}
	p.PendingRedraw = true
}

// ForgetSource zeroes this player's watermark for a single source,
// called by the round manager on every other player when source
// respawns with a fresh trail at segment index 0.
func (p *Player) ForgetSource(source ID) {
	if _, ok := p.LastSentSegmentIndices[source]; ok {
		p.LastSentSegmentIndices[source] = 0
	}
}
