package wsapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/park285/vaticano-chess/internal/msgcat"
	"github.com/park285/vaticano-chess/internal/obslog"
	"github.com/park285/vaticano-chess/internal/pvpchan"
	"github.com/park285/vaticano-chess/internal/pvpchess"
	"github.com/park285/vaticano-chess/internal/render"
	"github.com/park285/vaticano-chess/pkg/chessdto"
)

// Server exposes the lobby and game REST endpoints plus the game socket.
type Server struct {
	games          *pvpchess.Manager
	lobby          *pvpchan.Manager
	msgs           *msgcat.Catalog
	defaultVariant string
}

func NewServer(games *pvpchess.Manager, lobby *pvpchan.Manager, msgs *msgcat.Catalog, defaultVariant string) *Server {
	return &Server{games: games, lobby: lobby, msgs: msgs, defaultVariant: defaultVariant}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
	mux.HandleFunc("POST /api/lobby", s.withPlayer(s.handleLobbyMake))
	mux.HandleFunc("GET /api/lobby", s.handleLobbyList)
	mux.HandleFunc("POST /api/lobby/{code}/join", s.withPlayer(s.handleLobbyJoin))
	mux.HandleFunc("DELETE /api/lobby/{code}", s.withPlayer(s.handleLobbyCancel))
	mux.HandleFunc("GET /api/games/{id}", s.handleGameState)
	mux.HandleFunc("GET /api/games/{id}/board.png", s.handleBoardPNG)
	mux.HandleFunc("GET /api/me/game", s.withPlayer(s.handleActiveGame))
	mux.HandleFunc("GET /ws/games/{id}", s.withPlayer(s.handleSocket))
	return logRequests(mux)
}

type ctxKey struct{}

// playerID reads the caller identity from X-Player-ID or the playerId query.
func playerID(r *http.Request) string {
	if v := strings.TrimSpace(r.Header.Get("X-Player-ID")); v != "" {
		return v
	}
	return strings.TrimSpace(r.URL.Query().Get("playerId"))
}

func (s *Server) withPlayer(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := playerID(r)
		if id == "" {
			s.writeError(w, errMissingPlayer, nil)
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, id)))
	}
}

func playerFrom(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		obslog.L().Debug("http_request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("elapsed", time.Since(start)),
		)
	})
}

func (s *Server) handleLobbyMake(w http.ResponseWriter, r *http.Request) {
	var req chessdto.LobbyMakeRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeError(w, badRequest{err}, nil)
			return
		}
	}
	variant := strings.TrimSpace(req.Variant)
	if variant == "" {
		variant = s.defaultVariant
	}
	res, err := s.lobby.Make(r.Context(), playerFrom(r.Context()), variant, pvpchan.ParseColorChoice(req.Color))
	if err != nil {
		s.writeError(w, err, map[string]any{"Variant": variant})
		return
	}
	msg := s.msgs.RenderOr("lobby.created", map[string]any{"Code": res.Code, "Variant": variant}, res.Code)
	writeJSON(w, http.StatusCreated, chessdto.LobbyMakeResponse{Code: res.Code, Variant: variant, Message: msg})
}

func (s *Server) handleLobbyList(w http.ResponseWriter, r *http.Request) {
	list, err := s.lobby.ListLobby(r.Context(), strings.TrimSpace(r.URL.Query().Get("variant")))
	if err != nil {
		s.writeError(w, err, nil)
		return
	}
	out := make([]chessdto.LobbyEntry, 0, len(list))
	for _, m := range list {
		out = append(out, chessdto.LobbyEntry{Code: m.ID, Variant: m.Variant, CreatorID: m.CreatorID, Color: string(m.Color)})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleLobbyJoin(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")
	res, err := s.lobby.Join(r.Context(), code, playerFrom(r.Context()))
	if err != nil {
		s.writeError(w, err, map[string]any{"Code": code})
		return
	}
	msg := s.msgs.RenderOr("lobby.started", map[string]any{
		"GameID": res.GameID, "White": res.Meta.WhiteID, "Black": res.Meta.BlackID,
	}, res.GameID)
	writeJSON(w, http.StatusOK, chessdto.LobbyJoinResponse{Started: res.Started, GameID: res.GameID, Message: msg})
}

func (s *Server) handleLobbyCancel(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")
	if err := s.lobby.Cancel(r.Context(), code, playerFrom(r.Context())); err != nil {
		s.writeError(w, err, map[string]any{"Code": code})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGameState(w http.ResponseWriter, r *http.Request) {
	g, err := s.games.LoadGame(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err, nil)
		return
	}
	wr, br := s.games.Ratings(r.Context(), g)
	writeJSON(w, http.StatusOK, pvpchess.StateDTO(g, wr, br))
}

func (s *Server) handleActiveGame(w http.ResponseWriter, r *http.Request) {
	g, err := s.games.GetActiveGameByUser(r.Context(), playerFrom(r.Context()))
	if err != nil {
		s.writeError(w, err, nil)
		return
	}
	if g == nil {
		s.writeError(w, pvpchess.ErrGameNotFound, nil)
		return
	}
	wr, br := s.games.Ratings(r.Context(), g)
	writeJSON(w, http.StatusOK, pvpchess.StateDTO(g, wr, br))
}

func (s *Server) handleBoardPNG(w http.ResponseWriter, r *http.Request) {
	g, err := s.games.LoadGame(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err, nil)
		return
	}
	opts := render.Options{
		Header: g.White.UserID + " vs " + g.Black.UserID,
		Flip:   playerID(r) != "" && playerID(r) == g.Black.UserID,
	}
	if n := len(g.Moves); n > 0 && len(g.Moves[n-1].Moved) > 0 {
		last := g.Moves[n-1].Moved[0]
		opts.Highlight = &render.Highlight{From: last.Origin, To: last.Destination}
	}
	png, err := render.PNG(r.Context(), g.Board, opts)
	if err != nil {
		s.writeError(w, err, nil)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(png)
}

func (s *Server) writeError(w http.ResponseWriter, err error, data map[string]any) {
	de, status := toDomainError(s.msgs, err, data)
	if status >= http.StatusInternalServerError {
		obslog.L().Error("http_error", zap.Error(err))
	}
	writeJSON(w, status, de)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
