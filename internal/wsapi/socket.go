package wsapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/park285/vaticano-chess/internal/obslog"
	"github.com/park285/vaticano-chess/internal/pvpchess"
	"github.com/park285/vaticano-chess/pkg/chessdto"
)

// handleSocket attaches a player to a game. Game events arrive through the
// redis channel; replies that concern only the caller are written directly.
func (s *Server) handleSocket(w http.ResponseWriter, r *http.Request) {
	gameID := r.PathValue("id")
	user := playerFrom(r.Context())
	g, err := s.games.LoadGame(r.Context(), gameID)
	if err != nil {
		s.writeError(w, err, nil)
		return
	}
	if _, ok := g.ColorOf(user); !ok {
		s.writeError(w, pvpchess.ErrNotAPlayer, nil)
		return
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		obslog.L().Warn("ws_accept_error", zap.String("game_id", gameID), zap.Error(err))
		return
	}
	defer conn.Close(websocket.StatusInternalError, "closing")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	sub := s.games.Subscribe(ctx, gameID)
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		obslog.L().Warn("ws_subscribe_error", zap.String("game_id", gameID), zap.Error(err))
		return
	}
	obslog.L().Info("ws_connect", zap.String("game_id", gameID), zap.String("user_id", user))

	wr, br := s.games.Ratings(ctx, g)
	if err := s.send(ctx, conn, chessdto.EventState, gameID, pvpchess.StateDTO(g, wr, br)); err != nil {
		return
	}
	go forward(ctx, conn, sub)

	for {
		var msg chessdto.ClientMessage
		if err := wsjson.Read(ctx, conn, &msg); err != nil {
			status := websocket.CloseStatus(err)
			if status != websocket.StatusNormalClosure && status != websocket.StatusGoingAway && !errors.Is(err, context.Canceled) {
				obslog.L().Debug("ws_read_error", zap.String("game_id", gameID), zap.Error(err))
			}
			break
		}
		if err := s.dispatch(ctx, conn, gameID, user, msg); err != nil {
			de, _ := toDomainError(s.msgs, err, nil)
			if werr := s.send(ctx, conn, chessdto.EventError, gameID, de); werr != nil {
				break
			}
		}
	}
	obslog.L().Info("ws_disconnect", zap.String("game_id", gameID), zap.String("user_id", user))
	conn.Close(websocket.StatusNormalClosure, "")
}

func (s *Server) dispatch(ctx context.Context, conn *websocket.Conn, gameID, user string, msg chessdto.ClientMessage) error {
	switch msg.Type {
	case chessdto.ClientMove:
		var req chessdto.MoveRequest
		if err := decodePayload(msg.Payload, &req); err != nil {
			return err
		}
		_, err := s.games.SubmitMove(ctx, gameID, user, req)
		return err
	case chessdto.ClientSyncClock:
		_, err := s.games.SyncClock(ctx, gameID)
		return err
	case chessdto.ClientLegalMoves:
		var req chessdto.LegalMovesRequest
		if err := decodePayload(msg.Payload, &req); err != nil {
			return err
		}
		origin := pvpchess.PointFromDTO(req.Origin)
		moves, err := s.games.LegalMoves(ctx, gameID, origin)
		if err != nil {
			return err
		}
		return s.send(ctx, conn, chessdto.EventLegalMoves, gameID, pvpchess.LegalMovesEvent(origin, moves))
	case chessdto.ClientResign:
		_, err := s.games.Resign(ctx, gameID, user)
		return err
	default:
		return badRequest{errors.New("unknown message type " + string(msg.Type))}
	}
}

func decodePayload(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return badRequest{errors.New("missing payload")}
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return badRequest{err}
	}
	return nil
}

func (s *Server) send(ctx context.Context, conn *websocket.Conn, t chessdto.EventType, gameID string, payload any) error {
	ev, err := chessdto.NewEvent(t, gameID, payload)
	if err != nil {
		return err
	}
	return wsjson.Write(ctx, conn, ev)
}

// forward relays published events until ctx ends or the stream closes.
func forward(ctx context.Context, conn *websocket.Conn, sub *redis.PubSub) {
	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if err := conn.Write(ctx, websocket.MessageText, []byte(msg.Payload)); err != nil {
				return
			}
		}
	}
}
