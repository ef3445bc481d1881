package engine

import (
	"time"

	"cyclearena/internal/config"
	"cyclearena/internal/geometry"
	"cyclearena/internal/player"
	"cyclearena/internal/port"
	"cyclearena/internal/round"
	"cyclearena/internal/transport"
)

// runPlayingTick subdivides the tick into SubTickRate sub-ticks and runs
// the simulation step (spec §4.F) over each, stopping early if a
// sub-tick brings the alive count to <= 1.
func (e *Engine) runPlayingTick(cfg config.Config) {
	subDur := cfg.SubTickDuration()
	tickStart := time.Now()

	for k := 0; k < cfg.SubTickRate; k++ {
		begin := tickStart.Add(time.Duration(k) * subDur)
		end := tickStart.Add(time.Duration(k+1) * subDur)
		e.simulateSubTick(begin, end, subDur, cfg)

		alive := e.aliveIDs()
		if len(alive) <= 1 {
			e.endRound(alive)
			return
		}
		e.prevAlive = make(map[player.ID]struct{}, len(alive))
		for _, id := range alive {
			e.prevAlive[id] = struct{}{}
		}
	}
}

func (e *Engine) aliveIDs() []player.ID {
	alive := make([]player.ID, 0, len(e.order))
	for _, id := range e.order {
		if !e.players[id].Dead {
			alive = append(alive, id)
		}
	}
	return alive
}

// simulateSubTick runs the per-player simulation step from spec §4.F
// over one sub-tick window.
func (e *Engine) simulateSubTick(begin, end time.Time, subDur time.Duration, cfg config.Config) {
	moveDist := cfg.MoveSpeed * subDur.Seconds()

	for _, id := range e.order {
		p := e.players[id]
		if p.Dead {
			continue
		}

		e.admitInput(p, begin, end, cfg)

		head := p.Head()
		headIdx := p.HeadIndex()
		dx, dy := geometry.Unit(p.Direction)
		oldEnd := head.End
		newEnd := geometry.Translate(oldEnd, dx*moveDist, dy*moveDist)
		p.Segments[headIdx].End = newEnd

		travel := geometry.Segment{Start: oldEnd, End: newEnd}

		boundaryDead := !geometry.InBounds(newEnd, cfg.AspectRatio)

		collided, snap := e.testCollision(p, id, travel, cfg)
		finalEnd := newEnd
		if collided {
			finalEnd = snap
			p.Segments[headIdx].End = finalEnd
		}
		if boundaryDead || collided {
			p.Dead = true
			if collided {
				e.metrics.IncCollisions()
			}
		}

		finalTravel := geometry.Segment{Start: oldEnd, End: finalEnd}
		p.Partition.Insert(headIdx, finalTravel, cfg.LineWidth)
	}
}

// admitInput implements spec §4.F step 1: scan pendingDirectionInputs
// for the first entry whose timestamp is before end and whose
// direction is neither the player's current heading nor its opposite.
// begin is not consulted: entries received before begin (including
// everything that arrived before this tick started) are eligible too.
// Every entry at or before the admitted (or rejected-as-invalid) one is
// dropped from the queue; entries with a timestamp at or after end are
// left for a future sub-tick.
func (e *Engine) admitInput(p *player.Player, begin, end time.Time, cfg config.Config) {
	consumeThrough := -1
	for i, in := range p.PendingInputs {
		if !in.Received.Before(end) {
			break // not yet due
		}
		consumeThrough = i
		if in.Direction == p.Direction || in.Direction == p.Direction.Opposite() {
			e.metrics.IncInputsInvalidTurn()
			continue
		}
		e.metrics.IncInputsAccepted()
		e.addSegment(p, in.Direction, cfg)
		break
	}
	if consumeThrough >= 0 {
		p.PendingInputs = p.PendingInputs[consumeThrough+1:]
	}
}

// addSegment implements the turn in spec §4.F "Add Segment": push a new
// zero-length segment whose start is the current head's end, nudged by
// lineWidth along the new axis and lineWidth backward along the old
// axis, so consecutive perpendicular segments visually join at a corner.
func (e *Engine) addSegment(p *player.Player, dir geometry.Direction, cfg config.Config) {
	head := p.Head()
	oldDx, oldDy := geometry.Unit(p.Direction)
	newDx, newDy := geometry.Unit(dir)
	start := geometry.Translate(head.End,
		(newDx-oldDx)*cfg.LineWidth,
		(newDy-oldDy)*cfg.LineWidth,
	)
	p.Segments = append(p.Segments, geometry.Segment{Start: start, End: start})
	p.Direction = dir
}

// testCollision implements spec §4.F step 4: the travel slice
// [oldEnd,newEnd] is tested against every player's spatial index (cell
// coordinates are identical across grids since they share NumPartitions
// and AspectRatio). Returns whether self collided and, if so, the point
// to snap the head to.
func (e *Engine) testCollision(self *player.Player, selfID player.ID, travel geometry.Segment, cfg config.Config) (bool, geometry.Point) {
	cells := self.Partition.CellsForSegment(travel, cfg.LineWidth)
	headIdx := self.HeadIndex()

	for _, otherID := range e.order {
		other := e.players[otherID]
		for _, cell := range cells {
			set := other.Partition.At(cell)
			if len(set) == 0 {
				continue
			}
			for segIdx := range set {
				if otherID == selfID && headIdx-segIdx < 2 {
					continue
				}
				otherSeg := other.Segments[segIdx]
				start, _, ok := geometry.LineToLine(travel, otherSeg, cfg.LineWidth)
				if ok {
					return true, start
				}
			}
		}
	}
	return false, geometry.Point{}
}

// endRound implements the Playing -> Idle transition from spec §4.D:
// attribute the win (or wins, on a simultaneous death), increment
// scores, and broadcast round_over.
func (e *Engine) endRound(alive []player.ID) {
	winners := round.Winners(alive, e.prevAlive)
	for _, w := range winners {
		if p := e.players[w]; p != nil {
			p.Score++
		}
	}

	e.state = round.Idle
	e.metrics.IncRoundsPlayed()

	for _, out := range e.ports {
		_ = out.Send(port.EventRoundOver, nil)
	}
	for _, w := range winners {
		wp := e.players[w]
		if wp == nil {
			continue
		}
		payload := transport.ModifyPlayerPayload(wp)
		for _, out := range e.ports {
			_ = out.Send(port.EventModifyPlayer, payload)
		}
	}
	e.log.Infow("round over", "winners", winners)
}
