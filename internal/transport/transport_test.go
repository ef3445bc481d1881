package transport

import (
	"testing"

	"cyclearena/internal/geometry"
	"cyclearena/internal/player"
	"cyclearena/internal/port"
)

func newTestPlayer(id player.ID, segCount int) *player.Player {
	p := player.New(id, string(id), player.Color{}, 4, 1.5)
	p.Dead = false
	for i := 0; i < segCount; i++ {
		p.Segments = append(p.Segments, geometry.Segment{
			Start: geometry.Point{X: float64(i), Y: 0},
			End:   geometry.Point{X: float64(i + 1), Y: 0},
		})
	}
	return p
}

func TestBuildStateSendsOnlyMissingSegments(t *testing.T) {
	source := newTestPlayer("src", 3)
	receiver := newTestPlayer("rcv", 0)
	receiver.SetWatermark("src", 1)

	order := []player.ID{"src", "rcv"}
	players := map[player.ID]*player.Player{"src": source, "rcv": receiver}

	payload, pending := BuildState(order, players, receiver)
	if len(payload.Players) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(payload.Players))
	}
	entry := payload.Players[0]
	if entry.ID != "src" {
		t.Fatalf("expected entry for src, got %s", entry.ID)
	}
	if len(entry.MissingSegments) != 2 {
		t.Fatalf("expected 2 missing segments (indices 1,2), got %d", len(entry.MissingSegments))
	}
	if len(pending) != 1 || pending[0].to != 2 {
		t.Fatalf("expected pending watermark advance to index 2, got %+v", pending)
	}
}

func TestApplyPendingCommitsWatermark(t *testing.T) {
	receiver := newTestPlayer("rcv", 0)
	ApplyPending(receiver, []pendingUpdate{{source: "src", to: 4}})
	if w := receiver.WatermarkFor("src"); w != 4 {
		t.Fatalf("expected watermark 4 after ApplyPending, got %d", w)
	}
}

type fakePort struct {
	sent    []string
	failing bool
}

func (f *fakePort) Send(eventType string, payload any) error {
	if f.failing {
		return port.ErrPortClosed
	}
	f.sent = append(f.sent, eventType)
	return nil
}

func TestBroadcastSkipsWatermarkAdvanceOnSendFailure(t *testing.T) {
	source := newTestPlayer("src", 2)
	receiver := newTestPlayer("rcv", 0)

	order := []player.ID{"src", "rcv"}
	players := map[player.ID]*player.Player{"src": source, "rcv": receiver}
	fp := &fakePort{failing: true}
	ports := map[player.ID]port.ClientPort{"rcv": fp}

	Broadcast(order, players, ports)

	if w := receiver.WatermarkFor("src"); w != 0 {
		t.Fatalf("expected watermark to stay at 0 after a failed send, got %d", w)
	}
}

func TestBroadcastAdvancesWatermarkOnSuccess(t *testing.T) {
	source := newTestPlayer("src", 2)
	receiver := newTestPlayer("rcv", 0)

	order := []player.ID{"src", "rcv"}
	players := map[player.ID]*player.Player{"src": source, "rcv": receiver}
	fp := &fakePort{}
	ports := map[player.ID]port.ClientPort{"rcv": fp}

	Broadcast(order, players, ports)

	if w := receiver.WatermarkFor("src"); w != 1 {
		t.Fatalf("expected watermark advanced to 1 after a successful send, got %d", w)
	}
}
