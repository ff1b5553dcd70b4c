package pvpchess

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/park285/vaticano-chess/internal/chess"
	"github.com/park285/vaticano-chess/internal/domain"
	"github.com/park285/vaticano-chess/internal/obslog"
	"github.com/park285/vaticano-chess/internal/rating"
	"github.com/park285/vaticano-chess/pkg/chessdto"
)

// Manager owns live games stored as JSON in redis. Writes to one game are
// serialized in-process by a keyed mutex and across processes by WATCH.
type Manager struct {
	rdb     *redis.Client
	locks   *keyedMutex
	ttl     time.Duration
	now     func() time.Time
	repo    Archive
	ratings *rating.Service
	sink    Sink
}

func NewManager(redisURL string) (*Manager, error) {
	if strings.TrimSpace(redisURL) == "" {
		return nil, fmt.Errorf("REDIS_URL required for game manager")
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewManagerWithClient(rdb), nil
}

// NewManagerWithClient wraps an existing client. Events go to RedisSink
// until AttachSink adds more.
func NewManagerWithClient(rdb *redis.Client) *Manager {
	return &Manager{
		rdb:   rdb,
		locks: newKeyedMutex(),
		ttl:   DefaultGameTTL,
		now:   time.Now,
		sink:  NewRedisSink(rdb),
	}
}

func (m *Manager) Close() error {
	if m == nil || m.rdb == nil {
		return nil
	}
	return m.rdb.Close()
}

// Client exposes the redis client for stores sharing the connection.
func (m *Manager) Client() *redis.Client { return m.rdb }

// AttachRepository wires the finished-game archive.
func (m *Manager) AttachRepository(r Archive) {
	if m != nil {
		m.repo = r
	}
}

// AttachRatings wires the rating updater run when a game ends.
func (m *Manager) AttachRatings(s *rating.Service) {
	if m != nil {
		m.ratings = s
	}
}

// AttachSink adds s next to the existing sinks.
func (m *Manager) AttachSink(s Sink) {
	if m == nil || s == nil {
		return
	}
	if m.sink == nil {
		m.sink = s
		return
	}
	m.sink = MultiSink{m.sink, s}
}

// SetGameTTL changes how long live games are kept.
func (m *Manager) SetGameTTL(d time.Duration) {
	if m != nil && d > 0 {
		m.ttl = d
	}
}

// Subscribe opens the pub/sub stream of a game's events.
func (m *Manager) Subscribe(ctx context.Context, gameID string) *redis.PubSub {
	return m.rdb.Subscribe(ctx, EventsChannel(gameID))
}

// CreateGame stores a new game and indexes both players.
func (m *Manager) CreateGame(ctx context.Context, p CreateParams) (*chess.Game, error) {
	if m == nil || m.rdb == nil {
		return nil, fmt.Errorf("game manager not initialized")
	}
	if err := p.validate(); err != nil {
		return nil, err
	}
	g := chess.NewGame(chess.GameOptions{
		ID:          uuid.NewString(),
		Variant:     p.Variant,
		Board:       p.Board,
		WhiteID:     strings.TrimSpace(p.WhiteID),
		BlackID:     strings.TrimSpace(p.BlackID),
		TimeControl: p.TimeControl,
		Increment:   p.Increment,
	}, m.now())
	if err := m.save(ctx, g); err != nil {
		return nil, err
	}
	if err := m.indexParticipants(ctx, g.ID, g.White.UserID, g.Black.UserID); err != nil {
		return nil, err
	}
	obslog.L().Info("game_create",
		zap.String("game_id", g.ID),
		zap.String("variant", g.Variant),
		zap.String("white_id", g.White.UserID),
		zap.String("black_id", g.Black.UserID),
		zap.Float64("time_control", g.TimeControl),
		zap.Float64("increment", g.Increment),
	)
	return g, nil
}

// LoadGame returns the game or ErrGameNotFound.
func (m *Manager) LoadGame(ctx context.Context, id string) (*chess.Game, error) {
	raw, err := m.rdb.Get(ctx, gameKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrGameNotFound
	}
	if err != nil {
		return nil, err
	}
	return decodeGame(raw)
}

// GetActiveGameByUser returns the user's most recent active game, or nil.
func (m *Manager) GetActiveGameByUser(ctx context.Context, userID string) (*chess.Game, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, nil
	}
	ids, err := m.rdb.SMembers(ctx, idxUserKey(userID)).Result()
	if err != nil {
		return nil, err
	}
	var list []*chess.Game
	for _, id := range ids {
		g, gerr := m.LoadGame(ctx, id)
		if gerr == nil && !g.IsOver() {
			list = append(list, g)
		}
	}
	if len(list) == 0 {
		return nil, nil
	}
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.After(list[j].CreatedAt) })
	return list[0], nil
}

// SubmitMove applies a move for userID. A request carrying the move count or
// position hash the client saw is rejected with ErrStaleMove on mismatch.
func (m *Manager) SubmitMove(ctx context.Context, gameID, userID string, req chessdto.MoveRequest) (*chess.MoveResult, error) {
	var res *chess.MoveResult
	var mover chess.Color
	g, err := m.mutate(ctx, gameID, func(g *chess.Game) error {
		c, ok := g.ColorOf(userID)
		if !ok {
			return ErrNotAPlayer
		}
		if g.IsOver() {
			return chess.ErrGameOver
		}
		if req.ExpectedMoveCount != nil && *req.ExpectedMoveCount != g.MoveCount() {
			return ErrStaleMove
		}
		if req.ExpectedHash != "" && req.ExpectedHash != g.PositionHash() {
			return ErrStaleMove
		}
		r, err := g.SubmitMove(m.now(), moveRequestFrom(c, req))
		if err != nil {
			return err
		}
		res, mover = r, c
		return nil
	})
	if err != nil {
		return nil, err
	}

	fields := []zap.Field{
		zap.String("game_id", g.ID),
		zap.String("user_id", userID),
		zap.String("color", string(mover)),
		zap.Int("move_count", res.MoveCount),
		zap.String("turn", string(res.Turn)),
	}
	if res.Move != nil {
		fields = append(fields, zap.String("tag", string(res.Move.Tag)), zap.Int("captured", len(res.Move.Captured)))
		m.emit(ctx, g.ID, chessdto.EventMove, MoveEvent(g, res))
	} else {
		fields = append(fields, zap.Bool("flagged", true))
	}
	obslog.L().Info("game_move", fields...)
	if g.Timed() {
		m.emit(ctx, g.ID, chessdto.EventClockSync, ClockEvent(res.Clock))
	}
	if res.GameOver != nil {
		m.finalize(ctx, g)
	}
	return res, nil
}

// SyncClock charges the player on turn and ends the game if their clock ran out.
func (m *Manager) SyncClock(ctx context.Context, gameID string) (chess.ClockSnapshot, error) {
	var snap chess.ClockSnapshot
	var ended bool
	g, err := m.mutate(ctx, gameID, func(g *chess.Game) error {
		wasOver := g.IsOver()
		var o *chess.Outcome
		snap, o = g.SyncClock(m.now())
		ended = !wasOver && o != nil
		return nil
	})
	if err != nil {
		return chess.ClockSnapshot{}, err
	}
	m.emit(ctx, g.ID, chessdto.EventClockSync, ClockEvent(snap))
	if ended {
		m.finalize(ctx, g)
	}
	return snap, nil
}

// LegalMoves lists the destinations for the piece on origin.
func (m *Manager) LegalMoves(ctx context.Context, gameID string, origin chess.Point) (map[chess.Point]chess.MoveMetadata, error) {
	g, err := m.LoadGame(ctx, gameID)
	if err != nil {
		return nil, err
	}
	return g.LegalMoves(origin)
}

// Resign ends the game in favor of userID's opponent.
func (m *Manager) Resign(ctx context.Context, gameID, userID string) (*chess.Outcome, error) {
	var out *chess.Outcome
	g, err := m.mutate(ctx, gameID, func(g *chess.Game) error {
		c, ok := g.ColorOf(userID)
		if !ok {
			return ErrNotAPlayer
		}
		o, err := g.Resign(c, m.now())
		if err != nil {
			return err
		}
		out = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	obslog.L().Info("game_resign",
		zap.String("game_id", g.ID),
		zap.String("resigner", userID),
		zap.String("winner", string(out.Winner)),
	)
	m.finalize(ctx, g)
	return out, nil
}

// Ratings returns the current ratings of both players, or zeros without a
// rating service.
func (m *Manager) Ratings(ctx context.Context, g *chess.Game) (int, int) {
	if m.ratings == nil || g == nil {
		return 0, 0
	}
	w, err := m.ratings.Current(ctx, g.White.UserID, g.Variant)
	if err != nil {
		obslog.L().Warn("rating_lookup_error", zap.String("game_id", g.ID), zap.Error(err))
	}
	b, err := m.ratings.Current(ctx, g.Black.UserID, g.Variant)
	if err != nil {
		obslog.L().Warn("rating_lookup_error", zap.String("game_id", g.ID), zap.Error(err))
	}
	return w, b
}

// mutate loads the game under WATCH, runs fn and stores the result. fn
// errors abort without writing.
func (m *Manager) mutate(ctx context.Context, gameID string, fn func(g *chess.Game) error) (*chess.Game, error) {
	if m == nil || m.rdb == nil {
		return nil, fmt.Errorf("game manager not initialized")
	}
	unlock := m.locks.Lock(gameID)
	defer unlock()

	key := gameKey(gameID)
	var out *chess.Game
	err := m.rdb.Watch(ctx, func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return ErrGameNotFound
		}
		if err != nil {
			return err
		}
		g, err := decodeGame(raw)
		if err != nil {
			return err
		}
		if err := fn(g); err != nil {
			return err
		}
		newRaw, err := json.Marshal(g)
		if err != nil {
			return fmt.Errorf("encode game: %w", err)
		}
		pipe := tx.TxPipeline()
		pipe.Set(ctx, key, newRaw, m.ttl)
		if _, err := pipe.Exec(ctx); err != nil {
			return err
		}
		out = g
		return nil
	}, key)
	if errors.Is(err, redis.TxFailedErr) {
		obslog.L().Warn("game_concurrent_update", zap.String("game_id", gameID))
		return nil, ErrStaleMove
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

// finalize runs the end-of-game side effects. Failures are logged; the game
// state in redis is already final.
func (m *Manager) finalize(ctx context.Context, g *chess.Game) {
	o := g.Outcome
	if o == nil {
		return
	}
	at := m.now()
	if g.EndedAt != nil {
		at = *g.EndedAt
	}
	whiteElo, blackElo := 0, 0
	if m.ratings != nil {
		wc, bc, err := m.ratings.Finish(ctx, g.Variant, g.White.UserID, g.Black.UserID,
			rating.Results{White: o.WhiteResult, Black: o.BlackResult}, at)
		if err != nil {
			obslog.L().Error("rating_update_error", zap.String("game_id", g.ID), zap.Error(err))
			whiteElo, blackElo = m.Ratings(ctx, g)
		} else {
			whiteElo, blackElo = wc.After, bc.After
		}
	}
	m.persist(ctx, g, whiteElo, blackElo, at)
	obslog.L().Info("game_over",
		zap.String("game_id", g.ID),
		zap.String("reason", string(o.Reason)),
		zap.String("winner", string(o.Winner)),
		zap.Int("white_rating", whiteElo),
		zap.Int("black_rating", blackElo),
	)
	m.emit(ctx, g.ID, chessdto.EventGameOver, GameOverEvent(o, whiteElo, blackElo))
}

func (m *Manager) persist(ctx context.Context, g *chess.Game, whiteElo, blackElo int, at time.Time) {
	if m.repo == nil {
		return
	}
	movesRaw, err := json.Marshal(g.Moves)
	if err != nil {
		obslog.L().Error("game_archive_error", zap.String("game_id", g.ID), zap.Error(err))
		return
	}
	rec := &domain.GameRecord{
		GameID:      g.ID,
		Variant:     g.Variant,
		WhiteID:     g.White.UserID,
		BlackID:     g.Black.UserID,
		WhiteResult: g.Outcome.WhiteResult,
		BlackResult: g.Outcome.BlackResult,
		Reason:      string(g.Outcome.Reason),
		MovesJSON:   movesRaw,
		MoveCount:   g.MoveCount(),
		Notation:    g.Board.Notation(),
		Transcript:  Transcript(g),
		TimeControl: g.TimeControl,
		Increment:   g.Increment,
		WhiteElo:    whiteElo,
		BlackElo:    blackElo,
		StartedAt:   g.CreatedAt,
		EndedAt:     at,
	}
	if err := m.repo.SaveResult(ctx, rec); err != nil {
		obslog.L().Error("game_archive_error", zap.String("game_id", g.ID), zap.Error(err))
		return
	}
	obslog.L().Info("game_archive", zap.String("game_id", g.ID), zap.String("reason", rec.Reason))
}

func (m *Manager) emit(ctx context.Context, gameID string, t chessdto.EventType, payload any) {
	if m.sink == nil {
		return
	}
	ev, err := chessdto.NewEvent(t, gameID, payload)
	if err != nil {
		obslog.L().Error("event_encode_error", zap.String("game_id", gameID), zap.String("type", string(t)), zap.Error(err))
		return
	}
	if err := m.sink.Publish(ctx, ev); err != nil {
		obslog.L().Warn("event_publish_error", zap.String("game_id", gameID), zap.String("type", string(t)), zap.Error(err))
	}
}

func (m *Manager) save(ctx context.Context, g *chess.Game) error {
	raw, err := json.Marshal(g)
	if err != nil {
		return err
	}
	return m.rdb.Set(ctx, gameKey(g.ID), raw, m.ttl).Err()
}

func (m *Manager) indexParticipants(ctx context.Context, id string, users ...string) error {
	for _, u := range users {
		if strings.TrimSpace(u) == "" {
			continue
		}
		key := idxUserKey(u)
		if err := m.rdb.SAdd(ctx, key, id).Err(); err != nil {
			return err
		}
		_ = m.rdb.Expire(ctx, key, m.ttl).Err()
	}
	return nil
}

func decodeGame(raw []byte) (*chess.Game, error) {
	var g chess.Game
	if err := json.Unmarshal(raw, &g); err != nil {
		return nil, fmt.Errorf("decode game: %w", err)
	}
	if g.Board == nil {
		return nil, fmt.Errorf("decode game %s: missing board", g.ID)
	}
	return &g, nil
}
