// Package round implements the lobby/countdown/playing/ended state
// machine from spec §4.D: spawn placement, the random-direction seed,
// and winner attribution (including the simultaneous-death tie policy).
// The actual per-tick orchestration (when to advance state, iterating
// live players) belongs to the engine, which is the single writer of
// player state; this package holds the stateless rules the engine
// consults.
package round

import (
	"math/rand"

	"cyclearena/internal/config"
	"cyclearena/internal/geometry"
	"cyclearena/internal/player"
)

// State is a stage in the round lifecycle.
type State int

const (
	Idle State = iota
	Countdown
	Playing
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Countdown:
		return "countdown"
	case Playing:
		return "playing"
	default:
		return "unknown"
	}
}

// CanStart reports whether a start command is honored: only from Idle,
// and only with at least two connected players (spec §4.D, scenario 6).
func CanStart(current State, numPlayers int) bool {
	return current == Idle && numPlayers >= 2
}

// RandomSpawn picks a point at least cfg.MinSpawnDist from every edge of
// the field, per the Countdown entry rule in spec §4.D.
func RandomSpawn(cfg config.Config, rng *rand.Rand) geometry.Point {
	minX := -cfg.AspectRatio + cfg.MinSpawnDist
	maxX := cfg.AspectRatio - cfg.MinSpawnDist
	minY := -1 + cfg.MinSpawnDist
	maxY := 1 - cfg.MinSpawnDist
	x := minX + rng.Float64()*(maxX-minX)
	y := minY + rng.Float64()*(maxY-minY)
	return geometry.Point{X: x, Y: y}
}

// RandomDirection picks one of the four headings uniformly at random.
func RandomDirection(rng *rand.Rand) geometry.Direction {
	return geometry.Direction(rng.Intn(4))
}

// Winners implements the spec's scoring rule at round end: the sole
// survivor if exactly one remains alive, or — on a simultaneous
// death — every id that was alive at the start of the sub-tick that
// ended the round (prevAlive, which the engine refreshes after every
// sub-tick). This is spec §9's "award everyone alive last
// tick" majority-behavior decision, exercised by spec scenario 2.
func Winners(alive []player.ID, prevAlive map[player.ID]struct{}) []player.ID {
	if len(alive) == 1 {
		return []player.ID{alive[0]}
	}
	winners := make([]player.ID, 0, len(prevAlive))
	for id := range prevAlive {
		winners = append(winners, id)
	}
	return winners
}
