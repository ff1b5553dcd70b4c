package pvpchan

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/park285/vaticano-chess/internal/config"
	"github.com/park285/vaticano-chess/internal/obslog"
	"github.com/park285/vaticano-chess/internal/pvpchess"
)

// Manager runs invite channels: a creator opens a code for a variant and
// the first other player to join starts the game.
type Manager struct {
	rdb      *redis.Client
	store    *Store
	games    *pvpchess.Manager
	variants *config.VariantTable
	now      func() time.Time
}

func NewManager(rdb *redis.Client, games *pvpchess.Manager, variants *config.VariantTable, inviteTTL time.Duration) *Manager {
	return &Manager{rdb: rdb, store: NewStore(rdb, inviteTTL), games: games, variants: variants, now: time.Now}
}

// Make opens a channel for variant.
func (m *Manager) Make(ctx context.Context, userID, variant string, color ColorChoice) (*MakeResult, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, ErrInvalidArgs
	}
	if _, ok := m.variants.Get(variant); !ok {
		return nil, ErrUnknownVariant
	}
	if g, _ := m.games.GetActiveGameByUser(ctx, userID); g != nil {
		return nil, ErrPlayerBusy
	}
	if open, err := m.openCodeOf(ctx, userID); err != nil {
		return nil, err
	} else if open != "" {
		return nil, ErrCreatorHasLobby
	}
	if color == "" {
		color = ColorRandom
	}

	for i := 0; i < 5; i++ {
		c, err := codeGen()
		if err != nil {
			return nil, err
		}
		ok, err := m.store.Reserve(ctx, c)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		meta := &ChannelMeta{
			ID:        c,
			State:     StateLobby,
			Variant:   variant,
			Color:     color,
			CreatedAt: m.now(),
			CreatorID: userID,
		}
		if err := m.store.SaveMeta(ctx, c, meta); err != nil {
			return nil, err
		}
		// creator is the first participant so the next join starts the game
		if err := m.store.AddParticipant(ctx, c, userID); err != nil {
			return nil, err
		}
		if err := m.store.AddLobby(ctx, c); err != nil {
			return nil, err
		}
		obslog.L().Info("lobby_make", zap.String("code", c), zap.String("variant", variant), zap.String("creator_id", userID))
		return &MakeResult{Code: c, Meta: meta}, nil
	}
	return nil, fmt.Errorf("failed to allocate channel code")
}

// Join seats userID opposite the creator and starts the game.
func (m *Manager) Join(ctx context.Context, code, userID string) (*JoinResult, error) {
	code = strings.TrimSpace(code)
	userID = strings.TrimSpace(userID)
	if code == "" || userID == "" {
		return nil, ErrInvalidArgs
	}
	meta, err := m.store.LoadMeta(ctx, code)
	if err != nil {
		return nil, err
	}
	if meta == nil {
		return nil, ErrChannelGone
	}
	if meta.State != StateLobby {
		return nil, ErrChannelActive
	}
	if meta.CreatorID == userID {
		return nil, ErrSelfJoin
	}
	if g, _ := m.games.GetActiveGameByUser(ctx, userID); g != nil {
		return nil, ErrPlayerBusy
	}
	v, ok := m.variants.Get(meta.Variant)
	if !ok {
		return nil, ErrUnknownVariant
	}

	// WATCH participants so only one joiner wins the second seat
	partKey := m.store.keyParticipants(code)
	err = m.rdb.Watch(ctx, func(tx *redis.Tx) error {
		cnt, err := tx.SCard(ctx, partKey).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if cnt >= 2 {
			return ErrFull
		}
		pipe := tx.TxPipeline()
		pipe.SAdd(ctx, partKey, userID)
		pipe.Expire(ctx, partKey, m.store.ttl)
		pipe.SAdd(ctx, m.store.keyUserIdx(userID), code)
		pipe.Expire(ctx, m.store.keyUserIdx(userID), m.store.ttl)
		_, pErr := pipe.Exec(ctx)
		return pErr
	}, partKey)
	if errors.Is(err, redis.TxFailedErr) {
		err = ErrFull
	}
	if err != nil {
		obslog.L().Warn("lobby_join_error", zap.String("code", code), zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}

	whiteID, blackID := seat(meta.CreatorID, userID, meta.Color)
	board, err := v.Board()
	if err != nil {
		return nil, err
	}
	g, err := m.games.CreateGame(ctx, pvpchess.CreateParams{
		Variant:     v.Name,
		Board:       board,
		WhiteID:     whiteID,
		BlackID:     blackID,
		TimeControl: v.TimeControlSec,
		Increment:   v.IncrementSec,
	})
	if err != nil {
		return nil, err
	}

	meta.State = StateActive
	meta.WhiteID, meta.BlackID = g.White.UserID, g.Black.UserID
	meta.GameID = g.ID
	if err := m.store.SaveMeta(ctx, code, meta); err != nil {
		return nil, err
	}
	_ = m.store.RemoveLobby(ctx, code)
	obslog.L().Info("lobby_start_game",
		zap.String("code", code),
		zap.String("game_id", g.ID),
		zap.String("variant", v.Name),
		zap.String("white_id", meta.WhiteID),
		zap.String("black_id", meta.BlackID),
	)
	return &JoinResult{Started: true, GameID: g.ID, Meta: meta}, nil
}

// Cancel closes an open channel. Only its creator may cancel.
func (m *Manager) Cancel(ctx context.Context, code, userID string) error {
	meta, err := m.store.LoadMeta(ctx, code)
	if err != nil {
		return err
	}
	if meta == nil {
		return ErrChannelGone
	}
	if meta.CreatorID != strings.TrimSpace(userID) {
		return ErrNotCreator
	}
	if meta.State != StateLobby {
		return ErrChannelActive
	}
	meta.State = StateAborted
	if err := m.store.SaveMeta(ctx, code, meta); err != nil {
		return err
	}
	_ = m.store.RemoveLobby(ctx, code)
	obslog.L().Info("lobby_cancel", zap.String("code", code), zap.String("creator_id", meta.CreatorID))
	return nil
}

// Get returns the channel metadata or ErrChannelGone.
func (m *Manager) Get(ctx context.Context, code string) (*ChannelMeta, error) {
	meta, err := m.store.LoadMeta(ctx, code)
	if err != nil {
		return nil, err
	}
	if meta == nil {
		return nil, ErrChannelGone
	}
	return meta, nil
}

// ListLobby returns waiting channels, optionally filtered by variant.
func (m *Manager) ListLobby(ctx context.Context, variant string) ([]*ChannelMeta, error) {
	all, err := m.store.ListLobby(ctx)
	if err != nil {
		return nil, err
	}
	if variant == "" {
		return all, nil
	}
	out := all[:0]
	for _, c := range all {
		if c.Variant == variant {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *Manager) openCodeOf(ctx context.Context, userID string) (string, error) {
	codes, err := m.store.CodesByUser(ctx, userID)
	if err != nil {
		return "", err
	}
	for _, c := range codes {
		meta, err := m.store.LoadMeta(ctx, c)
		if err != nil {
			return "", err
		}
		if meta != nil && meta.State == StateLobby && meta.CreatorID == userID {
			return c, nil
		}
	}
	return "", nil
}

func seat(creator, joiner string, pref ColorChoice) (white, black string) {
	switch pref {
	case ColorWhite:
		return creator, joiner
	case ColorBlack:
		return joiner, creator
	}
	if n, err := rand.Int(rand.Reader, big.NewInt(2)); err == nil && n.Int64() == 0 {
		return joiner, creator
	}
	return creator, joiner
}
