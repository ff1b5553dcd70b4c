package chess

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func newTimedGame(t *testing.T) *Game {
	t.Helper()
	b := newTestBoard(t, map[Point]Piece{
		{X: 0, Y: 0}: {Kind: Rook, Color: White},
		{X: 9, Y: 0}: {Kind: King, Color: White},
		{X: 9, Y: 9}: {Kind: Rook, Color: Black},
		{X: 0, Y: 9}: {Kind: King, Color: Black},
	})
	return NewGame(GameOptions{ID: "g1", Board: b, WhiteID: "u1", BlackID: "u2", TimeControl: 60, Increment: 2}, t0)
}

func TestClock_MoveChargesMoverWithIncrement(t *testing.T) {
	g := newTimedGame(t)
	res, err := g.SubmitMove(t0.Add(10*time.Second), move(White, 0, 0, 0, 1))
	if err != nil {
		t.Fatalf("SubmitMove: %v", err)
	}
	if diff := cmp.Diff(ClockSnapshot{White: 52, Black: 60}, res.Clock); diff != "" {
		t.Fatalf("clock mismatch (-want +got):\n%s", diff)
	}
	if !g.Black.ClockSyncedAt.Equal(t0.Add(10 * time.Second)) {
		t.Fatalf("both clocks should resync at the move")
	}
}

func TestClock_SyncChargesSideOnTurn(t *testing.T) {
	g := newTimedGame(t)
	if _, err := g.SubmitMove(t0.Add(10*time.Second), move(White, 0, 0, 0, 1)); err != nil {
		t.Fatalf("SubmitMove: %v", err)
	}
	snap, over := g.SyncClock(t0.Add(15 * time.Second))
	if over != nil {
		t.Fatalf("unexpected game over: %+v", over)
	}
	if diff := cmp.Diff(ClockSnapshot{White: 52, Black: 55}, snap); diff != "" {
		t.Fatalf("clock mismatch (-want +got):\n%s", diff)
	}
}

func TestClock_SyncTimeout(t *testing.T) {
	g := newTimedGame(t)
	snap, over := g.SyncClock(t0.Add(61 * time.Second))
	if over == nil || over.Winner != Black || over.Reason != ReasonTimeout {
		t.Fatalf("outcome = %+v, want black wins on time", over)
	}
	if snap.White != 0 {
		t.Fatalf("flagged clock = %v, want 0", snap.White)
	}
	if !g.IsOver() {
		t.Fatalf("game should be over")
	}
}

func TestClock_LateMoveFlags(t *testing.T) {
	g := newTimedGame(t)
	res, err := g.SubmitMove(t0.Add(90*time.Second), move(White, 0, 0, 0, 1))
	if err != nil {
		t.Fatalf("SubmitMove: %v", err)
	}
	if res.Move != nil || res.GameOver == nil || res.GameOver.Reason != ReasonTimeout {
		t.Fatalf("late move result = %+v", res)
	}
	if _, ok := g.Board.Get(Point{X: 0, Y: 0}); !ok {
		t.Fatalf("flagged move must not be applied")
	}
}

func TestClock_Untimed(t *testing.T) {
	g := newTestGame(t, castleBoard(t))
	snap, over := g.SyncClock(t0.Add(time.Hour))
	if over != nil || snap != (ClockSnapshot{}) {
		t.Fatalf("untimed sync = %+v %+v", snap, over)
	}
}
