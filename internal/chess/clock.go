package chess

import "time"

// Player is the runtime state of one seat.
type Player struct {
	UserID        string    `json:"user_id"`
	Color         Color     `json:"color"`
	Clock         float64   `json:"clock"`
	ClockSyncedAt time.Time `json:"clock_synced_at"`
}

// ClockSnapshot is the remaining time of both sides in seconds.
type ClockSnapshot struct {
	White float64 `json:"white"`
	Black float64 `json:"black"`
}

// charge subtracts the time elapsed since the last sync. A clock is never
// credited for a timestamp earlier than its sync point.
func (p *Player) charge(now time.Time) {
	elapsed := now.Sub(p.ClockSyncedAt).Seconds()
	if elapsed > 0 {
		p.Clock -= elapsed
	}
}

func (p *Player) expired() bool { return p.Clock <= 0 }

// Timed reports whether the game runs with clocks.
func (g *Game) Timed() bool { return g.TimeControl > 0 }

func (g *Game) Clocks() ClockSnapshot {
	return ClockSnapshot{White: g.White.Clock, Black: g.Black.Clock}
}

func (g *Game) resync(now time.Time) {
	g.White.ClockSyncedAt = now
	g.Black.ClockSyncedAt = now
}

// chargeMover bills the side whose move just ended and adds the increment.
// It reports false when the mover had already run out of time.
func (g *Game) chargeMover(mover Color, now time.Time) bool {
	if !g.Timed() {
		g.resync(now)
		return true
	}
	p := g.Player(mover)
	p.charge(now)
	if p.expired() {
		p.Clock = 0
		g.resync(now)
		return false
	}
	p.Clock += g.Increment
	g.resync(now)
	return true
}

// SyncClock charges the side on turn without increment. A flagged clock
// ends the game in the opponent's favor and the outcome is returned.
func (g *Game) SyncClock(now time.Time) (ClockSnapshot, *Outcome) {
	if g.IsOver() {
		return g.Clocks(), g.Outcome
	}
	if !g.Timed() {
		g.resync(now)
		return g.Clocks(), nil
	}
	p := g.Player(g.Turn)
	p.charge(now)
	g.resync(now)
	if p.expired() {
		p.Clock = 0
		return g.Clocks(), g.finish(g.Turn.Opponent(), ReasonTimeout, now)
	}
	return g.Clocks(), nil
}
