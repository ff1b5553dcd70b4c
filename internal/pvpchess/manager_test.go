package pvpchess

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/google/go-cmp/cmp"

	"github.com/park285/vaticano-chess/internal/chess"
	"github.com/park285/vaticano-chess/internal/domain"
	"github.com/park285/vaticano-chess/internal/rating"
	"github.com/park285/vaticano-chess/pkg/chessdto"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu  sync.Mutex
	cur time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cur
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.cur = c.cur.Add(d)
	c.mu.Unlock()
}

type recorder struct {
	mu     sync.Mutex
	events []chessdto.Event
}

func (r *recorder) Publish(_ context.Context, ev chessdto.Event) error {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
	return nil
}

func (r *recorder) types() []chessdto.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]chessdto.EventType, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Type)
	}
	return out
}

func (r *recorder) last(t chessdto.EventType) (chessdto.Event, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.events) - 1; i >= 0; i-- {
		if r.events[i].Type == t {
			return r.events[i], true
		}
	}
	return chessdto.Event{}, false
}

type memArchive struct {
	mu   sync.Mutex
	recs []*domain.GameRecord
}

func (a *memArchive) SaveResult(_ context.Context, rec *domain.GameRecord) error {
	a.mu.Lock()
	a.recs = append(a.recs, rec)
	a.mu.Unlock()
	return nil
}

type testEnv struct {
	m       *Manager
	clock   *fakeClock
	events  *recorder
	archive *memArchive
}

func newTestManager(t *testing.T) *testEnv {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(func() { mr.Close() })
	url := fmt.Sprintf("redis://%s/0", mr.Addr())
	m, err := NewManager(url)
	if err != nil {
		t.Fatalf("pvpchess.NewManager: %v", err)
	}
	t.Cleanup(func() { _ = m.Close() })

	env := &testEnv{m: m, clock: &fakeClock{cur: t0}, events: &recorder{}, archive: &memArchive{}}
	m.now = env.clock.Now
	m.AttachSink(env.events)
	m.AttachRepository(env.archive)
	m.AttachRatings(rating.NewService(rating.NewMemoryRepository(), nil))
	return env
}

func startBoard(t *testing.T) *chess.Board {
	t.Helper()
	b, err := chess.ParseNotation(chess.DefaultStart, chess.DefaultWidth, chess.DefaultHeight)
	if err != nil {
		t.Fatalf("ParseNotation: %v", err)
	}
	return b
}

// rookBoard lets white take the black king with one rook move.
func rookBoard(t *testing.T) *chess.Board {
	t.Helper()
	b := chess.NewBoard(10, 10)
	for p, pc := range map[chess.Point]chess.Piece{
		{X: 0, Y: 0}: {Kind: chess.Rook, Color: chess.White},
		{X: 9, Y: 0}: {Kind: chess.King, Color: chess.White},
		{X: 0, Y: 9}: {Kind: chess.King, Color: chess.Black},
	} {
		if err := b.Set(p, pc); err != nil {
			t.Fatalf("Set: %v", err)
		}
	}
	return b
}

func (e *testEnv) create(t *testing.T, b *chess.Board, tc float64) *chess.Game {
	t.Helper()
	g, err := e.m.CreateGame(context.Background(), CreateParams{
		Variant: "vaticano", Board: b, WhiteID: "u1", BlackID: "u2", TimeControl: tc, Increment: 0,
	})
	if err != nil {
		t.Fatalf("CreateGame: %v", err)
	}
	return g
}

func mv(fx, fy, tx, ty int) chessdto.MoveRequest {
	return chessdto.MoveRequest{
		Origin:      chessdto.Point{X: fx, Y: fy},
		Destination: chessdto.Point{X: tx, Y: ty},
	}
}

func TestCreateGame_LoadAndIndex(t *testing.T) {
	env := newTestManager(t)
	ctx := context.Background()
	g := env.create(t, startBoard(t), 0)

	loaded, err := env.m.LoadGame(ctx, g.ID)
	if err != nil {
		t.Fatalf("LoadGame: %v", err)
	}
	if loaded.Board.Notation() != chess.DefaultStart || loaded.Turn != chess.White {
		t.Fatalf("loaded game mismatch: %s turn=%s", loaded.Board.Notation(), loaded.Turn)
	}
	for _, u := range []string{"u1", "u2"} {
		active, err := env.m.GetActiveGameByUser(ctx, u)
		if err != nil || active == nil || active.ID != g.ID {
			t.Fatalf("active game for %s = %v, %v", u, active, err)
		}
	}
	if _, err := env.m.LoadGame(ctx, "missing"); !errors.Is(err, ErrGameNotFound) {
		t.Fatalf("LoadGame missing err = %v", err)
	}
}

func TestCreateGame_InvalidParams(t *testing.T) {
	env := newTestManager(t)
	_, err := env.m.CreateGame(context.Background(), CreateParams{Board: startBoard(t), WhiteID: "u1"})
	if err == nil {
		t.Fatalf("expected invalid participants error")
	}
}

func TestSubmitMove_AppliesAndEmits(t *testing.T) {
	env := newTestManager(t)
	ctx := context.Background()
	g := env.create(t, startBoard(t), 0)

	res, err := env.m.SubmitMove(ctx, g.ID, "u1", mv(4, 1, 4, 4))
	if err != nil {
		t.Fatalf("SubmitMove: %v", err)
	}
	if res.MoveCount != 1 || res.Turn != chess.Black || res.Move == nil {
		t.Fatalf("unexpected result: %+v", res)
	}
	if diff := cmp.Diff([]chessdto.EventType{chessdto.EventMove}, env.events.types()); diff != "" {
		t.Fatalf("events mismatch (-want +got):\n%s", diff)
	}
	ev, _ := env.events.last(chessdto.EventMove)
	var payload chessdto.MoveEvent
	if err := ev.Decode(&payload); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	want := []chessdto.MovedPiece{{Piece: "pawn", Origin: chessdto.Point{X: 4, Y: 1}, Destination: chessdto.Point{X: 4, Y: 4}}}
	if diff := cmp.Diff(want, payload.Moved); diff != "" {
		t.Fatalf("moved mismatch (-want +got):\n%s", diff)
	}

	loaded, err := env.m.LoadGame(ctx, g.ID)
	if err != nil {
		t.Fatalf("LoadGame: %v", err)
	}
	if loaded.MoveCount() != 1 || payload.Hash != loaded.PositionHash() {
		t.Fatalf("stored game not updated: count=%d", loaded.MoveCount())
	}
}

func TestSubmitMove_Rejections(t *testing.T) {
	env := newTestManager(t)
	ctx := context.Background()
	g := env.create(t, startBoard(t), 0)
	zero, one := 0, 1

	tests := []struct {
		name string
		user string
		req  chessdto.MoveRequest
		want error
	}{
		{"stranger", "u3", mv(4, 1, 4, 4), ErrNotAPlayer},
		{"wrong turn", "u2", mv(4, 8, 4, 5), chess.ErrWrongTurn},
		{"stale count", "u1", func() chessdto.MoveRequest { r := mv(4, 1, 4, 4); r.ExpectedMoveCount = &one; return r }(), ErrStaleMove},
		{"stale hash", "u1", func() chessdto.MoveRequest { r := mv(4, 1, 4, 4); r.ExpectedHash = "deadbeef"; return r }(), ErrStaleMove},
		{"illegal", "u1", mv(4, 1, 4, 6), chess.ErrInvalidMove},
		{"empty origin", "u1", func() chessdto.MoveRequest { r := mv(4, 4, 4, 5); r.ExpectedMoveCount = &zero; return r }(), chess.ErrInvalidOrigin},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := env.m.SubmitMove(ctx, g.ID, tt.user, tt.req); !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
		})
	}
	loaded, _ := env.m.LoadGame(ctx, g.ID)
	if loaded.MoveCount() != 0 || len(env.events.types()) != 0 {
		t.Fatalf("rejections changed state: count=%d events=%v", loaded.MoveCount(), env.events.types())
	}
	if _, err := env.m.SubmitMove(ctx, "missing", "u1", mv(4, 1, 4, 4)); !errors.Is(err, ErrGameNotFound) {
		t.Fatalf("missing game err = %v", err)
	}
}

func TestSubmitMove_ConcurrentDuplicate(t *testing.T) {
	env := newTestManager(t)
	g := env.create(t, startBoard(t), 0)
	zero := 0
	req := mv(4, 1, 4, 4)
	req.ExpectedMoveCount = &zero

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = env.m.SubmitMove(context.Background(), g.ID, "u1", req)
		}(i)
	}
	wg.Wait()

	ok, stale := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrStaleMove):
			stale++
		default:
			t.Fatalf("unexpected err: %v", err)
		}
	}
	if ok != 1 || stale != 1 {
		t.Fatalf("ok=%d stale=%d, want 1 and 1", ok, stale)
	}
}

func TestSubmitMove_KingCaptureFinalizes(t *testing.T) {
	env := newTestManager(t)
	ctx := context.Background()
	g := env.create(t, rookBoard(t), 0)

	env.clock.Advance(5 * time.Second)
	res, err := env.m.SubmitMove(ctx, g.ID, "u1", mv(0, 0, 0, 9))
	if err != nil {
		t.Fatalf("SubmitMove: %v", err)
	}
	if res.GameOver == nil || res.GameOver.Reason != chess.ReasonKingCaptured {
		t.Fatalf("GameOver = %+v", res.GameOver)
	}
	wantTypes := []chessdto.EventType{chessdto.EventMove, chessdto.EventGameOver}
	if diff := cmp.Diff(wantTypes, env.events.types()); diff != "" {
		t.Fatalf("events mismatch (-want +got):\n%s", diff)
	}
	ev, _ := env.events.last(chessdto.EventGameOver)
	var over chessdto.GameOverEvent
	if err := ev.Decode(&over); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	want := chessdto.GameOverEvent{WhiteResult: 1, BlackResult: 0, Reason: "king_captured", WhiteRating: 816, BlackRating: 784}
	if diff := cmp.Diff(want, over); diff != "" {
		t.Fatalf("game_over mismatch (-want +got):\n%s", diff)
	}

	if len(env.archive.recs) != 1 {
		t.Fatalf("archived %d records, want 1", len(env.archive.recs))
	}
	rec := env.archive.recs[0]
	if rec.Reason != "king_captured" || rec.MoveCount != 1 || rec.WhiteElo != 816 || !rec.EndedAt.Equal(t0.Add(5*time.Second)) {
		t.Fatalf("record = %+v", rec)
	}
	if !strings.Contains(rec.Transcript, "1. Ra1xa10 1-0") {
		t.Fatalf("transcript = %q", rec.Transcript)
	}

	if _, err := env.m.SubmitMove(ctx, g.ID, "u2", mv(9, 0, 8, 0)); !errors.Is(err, chess.ErrGameOver) {
		t.Fatalf("move after end err = %v", err)
	}
	if active, _ := env.m.GetActiveGameByUser(ctx, "u1"); active != nil {
		t.Fatalf("finished game still active")
	}
}

func TestResign(t *testing.T) {
	env := newTestManager(t)
	ctx := context.Background()
	g := env.create(t, startBoard(t), 0)

	if _, err := env.m.Resign(ctx, g.ID, "u3"); !errors.Is(err, ErrNotAPlayer) {
		t.Fatalf("stranger resign err = %v", err)
	}
	o, err := env.m.Resign(ctx, g.ID, "u1")
	if err != nil {
		t.Fatalf("Resign: %v", err)
	}
	if o.Winner != chess.Black || o.Reason != chess.ReasonResignation {
		t.Fatalf("outcome = %+v", o)
	}
	if _, err := env.m.Resign(ctx, g.ID, "u2"); !errors.Is(err, chess.ErrGameOver) {
		t.Fatalf("second resign err = %v", err)
	}
	if diff := cmp.Diff([]chessdto.EventType{chessdto.EventGameOver}, env.events.types()); diff != "" {
		t.Fatalf("events mismatch (-want +got):\n%s", diff)
	}
}

func TestSyncClock_Timeout(t *testing.T) {
	env := newTestManager(t)
	ctx := context.Background()
	g := env.create(t, startBoard(t), 60)

	env.clock.Advance(20 * time.Second)
	snap, err := env.m.SyncClock(ctx, g.ID)
	if err != nil {
		t.Fatalf("SyncClock: %v", err)
	}
	if diff := cmp.Diff(chess.ClockSnapshot{White: 40, Black: 60}, snap); diff != "" {
		t.Fatalf("snapshot mismatch (-want +got):\n%s", diff)
	}

	env.clock.Advance(41 * time.Second)
	snap, err = env.m.SyncClock(ctx, g.ID)
	if err != nil {
		t.Fatalf("SyncClock: %v", err)
	}
	if snap.White != 0 {
		t.Fatalf("white clock = %v, want 0", snap.White)
	}
	if _, err := env.m.SyncClock(ctx, g.ID); err != nil {
		t.Fatalf("SyncClock after end: %v", err)
	}
	want := []chessdto.EventType{chessdto.EventClockSync, chessdto.EventClockSync, chessdto.EventGameOver, chessdto.EventClockSync}
	if diff := cmp.Diff(want, env.events.types()); diff != "" {
		t.Fatalf("events mismatch (-want +got):\n%s", diff)
	}
	loaded, _ := env.m.LoadGame(ctx, g.ID)
	if loaded.Outcome == nil || loaded.Outcome.Reason != chess.ReasonTimeout || loaded.Outcome.Winner != chess.Black {
		t.Fatalf("outcome = %+v", loaded.Outcome)
	}
}

func TestSubmitMove_TimedEmitsClock(t *testing.T) {
	env := newTestManager(t)
	g := env.create(t, startBoard(t), 60)
	env.clock.Advance(3 * time.Second)
	res, err := env.m.SubmitMove(context.Background(), g.ID, "u1", mv(4, 1, 4, 4))
	if err != nil {
		t.Fatalf("SubmitMove: %v", err)
	}
	if res.Clock.White != 57 || res.Clock.Black != 60 {
		t.Fatalf("clock = %+v", res.Clock)
	}
	want := []chessdto.EventType{chessdto.EventMove, chessdto.EventClockSync}
	if diff := cmp.Diff(want, env.events.types()); diff != "" {
		t.Fatalf("events mismatch (-want +got):\n%s", diff)
	}
}

func TestLegalMoves(t *testing.T) {
	env := newTestManager(t)
	ctx := context.Background()
	g := env.create(t, startBoard(t), 0)

	moves, err := env.m.LegalMoves(ctx, g.ID, chess.Point{X: 4, Y: 1})
	if err != nil {
		t.Fatalf("LegalMoves: %v", err)
	}
	got := LegalMovesEvent(chess.Point{X: 4, Y: 1}, moves)
	var dests []chessdto.Point
	for _, m := range got.Moves {
		dests = append(dests, m.Destination)
	}
	want := []chessdto.Point{{X: 4, Y: 2}, {X: 4, Y: 3}, {X: 4, Y: 4}}
	if diff := cmp.Diff(want, dests); diff != "" {
		t.Fatalf("destinations mismatch (-want +got):\n%s", diff)
	}
	if _, err := env.m.LegalMoves(ctx, g.ID, chess.Point{X: 4, Y: 4}); !errors.Is(err, chess.ErrInvalidOrigin) {
		t.Fatalf("empty origin err = %v", err)
	}
}

func TestRedisSink_Publishes(t *testing.T) {
	env := newTestManager(t)
	ctx := context.Background()
	g := env.create(t, startBoard(t), 0)

	sub := env.m.Subscribe(ctx, g.ID)
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if _, err := env.m.SubmitMove(ctx, g.ID, "u1", mv(4, 1, 4, 4)); err != nil {
		t.Fatalf("SubmitMove: %v", err)
	}
	rctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	msg, err := sub.ReceiveMessage(rctx)
	if err != nil {
		t.Fatalf("ReceiveMessage: %v", err)
	}
	if msg.Channel != EventsChannel(g.ID) || !strings.Contains(msg.Payload, `"type":"move"`) {
		t.Fatalf("message = %+v", msg)
	}
}
