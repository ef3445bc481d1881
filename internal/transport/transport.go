// Package transport implements the per-client delta transport from spec
// §4.G: diffing each player's segment list against a per-receiver
// watermark, the redraw reset, and the join handshake. It never mutates
// Player state itself beyond watermarks — those are the only fields
// this component owns.
package transport

import (
	"cyclearena/internal/geometry"
	"cyclearena/internal/player"
	"cyclearena/internal/port"
)

func toSegmentPayload(s geometry.Segment) port.SegmentPayload {
	return port.SegmentPayload{
		{s.Start.X, s.Start.Y},
		{s.End.X, s.End.Y},
	}
}

func toSegmentPayloads(segs []geometry.Segment) []port.SegmentPayload {
	out := make([]port.SegmentPayload, len(segs))
	for i, s := range segs {
		out[i] = toSegmentPayload(s)
	}
	return out
}

func toColorPayload(c player.Color) port.ColorPayload {
	return port.ColorPayload{c.R, c.G, c.B}
}

// ModifyPlayerPayload builds the identity+score snapshot for p.
func ModifyPlayerPayload(p *player.Player) port.ModifyPlayerPayload {
	return port.ModifyPlayerPayload{
		ID:    string(p.ID),
		Name:  p.Name,
		Color: toColorPayload(p.Color),
		Score: p.Score,
	}
}

// pendingUpdate is a planned watermark advance, applied only once the
// enclosing send has succeeded (spec §7: a failed send must not advance
// the watermark, so the next tick retries the same missing range).
type pendingUpdate struct {
	source player.ID
	to     int
}

// BuildState computes receiver's game_state payload: for every player
// with a non-empty trail, the slice of segments starting at receiver's
// watermark for that player. The segment at the watermark is sent
// again, since a live head segment may have grown since. Returns the wire entries alongside the watermark advances
// to apply if the send succeeds.
func BuildState(order []player.ID, players map[player.ID]*player.Player, receiver *player.Player) (port.GameStatePayload, []pendingUpdate) {
	var entries []port.PlayerSegmentsPayload
	var pending []pendingUpdate

	for _, sid := range order {
		source := players[sid]
		if source == nil || len(source.Segments) == 0 {
			continue
		}
		w := receiver.WatermarkFor(sid)
		if w > len(source.Segments)-1 {
			w = len(source.Segments) - 1
		}
		missing := source.Segments[w:]
		entries = append(entries, port.PlayerSegmentsPayload{
			ID:              string(sid),
			MissingSegments: toSegmentPayloads(missing),
		})
		if w < len(source.Segments)-1 {
			pending = append(pending, pendingUpdate{source: sid, to: len(source.Segments) - 1})
		}
	}
	return port.GameStatePayload{Players: entries}, pending
}

// ApplyPending commits the watermark advances returned by BuildState.
// Call only after the corresponding Send has returned nil.
func ApplyPending(receiver *player.Player, pending []pendingUpdate) {
	for _, u := range pending {
		receiver.SetWatermark(u.source, u.to)
	}
}

// Broadcast sends every connected receiver its game_state delta for the
// current tick. ports maps a player id to its currently bound
// ClientPort; players with no bound port (disconnected, within their
// grace period) are skipped — there is nothing to retry for them until
// they reconnect and redraw.
func Broadcast(order []player.ID, players map[player.ID]*player.Player, ports map[player.ID]port.ClientPort) {
	for _, rid := range order {
		receiver := players[rid]
		out, ok := ports[rid]
		if receiver == nil || out == nil || !ok {
			continue
		}
		payload, pending := BuildState(order, players, receiver)
		if len(payload.Players) == 0 {
			continue
		}
		if err := out.Send(port.EventGameState, payload); err == nil {
			ApplyPending(receiver, pending)
		}
	}
}

// SendJoinHandshake implements the join handshake from spec §4.G: the
// newcomer receives modify_player+game_state for every existing player
// and its watermark for each is set to that player's current head index;
// every other connected player is told about the newcomer via
// modify_player.
func SendJoinHandshake(newcomer *player.Player, order []player.ID, players map[player.ID]*player.Player, ports map[player.ID]port.ClientPort) {
	newcomerPort, ok := ports[newcomer.ID]
	if ok && newcomerPort != nil {
		for _, eid := range order {
			if eid == newcomer.ID {
				continue
			}
			existing := players[eid]
			if existing == nil {
				continue
			}
			_ = newcomerPort.Send(port.EventModifyPlayer, ModifyPlayerPayload(existing))
			if len(existing.Segments) > 0 {
				_ = newcomerPort.Send(port.EventGameState, port.GameStatePayload{
					Players: []port.PlayerSegmentsPayload{{
						ID:              string(existing.ID),
						MissingSegments: toSegmentPayloads(existing.Segments),
					}},
				})
				newcomer.SetWatermark(existing.ID, len(existing.Segments)-1)
			}
		}
	}

	for _, pid := range order {
		if pid == newcomer.ID {
			continue
		}
		if out, ok := ports[pid]; ok && out != nil {
			_ = out.Send(port.EventModifyPlayer, ModifyPlayerPayload(newcomer))
		}
	}
}
