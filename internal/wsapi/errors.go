package wsapi

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/park285/vaticano-chess/internal/chess"
	"github.com/park285/vaticano-chess/internal/msgcat"
	"github.com/park285/vaticano-chess/internal/pvpchan"
	"github.com/park285/vaticano-chess/internal/pvpchess"
	"github.com/park285/vaticano-chess/pkg/chessdto"
)

var errMissingPlayer = errors.New("player id required")

type errorSpec struct {
	code   string
	key    string
	status int
	retry  bool
}

var errorTable = []struct {
	err  error
	spec errorSpec
}{
	{chess.ErrWrongTurn, errorSpec{"wrong_turn", "errors.wrong_turn", http.StatusConflict, false}},
	{chess.ErrInvalidSquare, errorSpec{"invalid_square", "errors.invalid_square", http.StatusUnprocessableEntity, false}},
	{chess.ErrInvalidOrigin, errorSpec{"invalid_origin", "errors.invalid_origin", http.StatusUnprocessableEntity, false}},
	{chess.ErrInvalidDestination, errorSpec{"invalid_destination", "errors.invalid_destination", http.StatusUnprocessableEntity, false}},
	{chess.ErrForcedMoveViolation, errorSpec{"forced_move", "errors.forced_move", http.StatusUnprocessableEntity, false}},
	{chess.ErrInvalidMove, errorSpec{"invalid_move", "errors.invalid_move", http.StatusUnprocessableEntity, false}},
	{chess.ErrCollisionFailed, errorSpec{"collision_failed", "errors.collision_failed", http.StatusUnprocessableEntity, false}},
	{chess.ErrMissingPromotion, errorSpec{"missing_promotion", "errors.missing_promotion", http.StatusUnprocessableEntity, false}},
	{chess.ErrInvalidPromotion, errorSpec{"invalid_promotion", "errors.invalid_promotion", http.StatusUnprocessableEntity, false}},
	{chess.ErrGameOver, errorSpec{"game_over", "errors.game_over", http.StatusConflict, false}},
	{pvpchess.ErrStaleMove, errorSpec{"stale_move", "errors.stale_move", http.StatusConflict, true}},
	{pvpchess.ErrNotAPlayer, errorSpec{"not_a_player", "errors.not_a_player", http.StatusForbidden, false}},
	{pvpchess.ErrGameNotFound, errorSpec{"game_not_found", "errors.game_not_found", http.StatusNotFound, false}},
	{pvpchan.ErrInvalidArgs, errorSpec{"bad_request", "errors.bad_request", http.StatusBadRequest, false}},
	{pvpchan.ErrChannelGone, errorSpec{"lobby_not_found", "lobby.not_found", http.StatusNotFound, false}},
	{pvpchan.ErrChannelActive, errorSpec{"lobby_closed", "lobby.active", http.StatusConflict, false}},
	{pvpchan.ErrFull, errorSpec{"lobby_full", "lobby.full", http.StatusConflict, false}},
	{pvpchan.ErrSelfJoin, errorSpec{"self_join", "lobby.self_join", http.StatusConflict, false}},
	{pvpchan.ErrNotCreator, errorSpec{"not_creator", "lobby.not_creator", http.StatusForbidden, false}},
	{pvpchan.ErrUnknownVariant, errorSpec{"unknown_variant", "lobby.unknown_variant", http.StatusBadRequest, false}},
	{pvpchan.ErrPlayerBusy, errorSpec{"player_busy", "lobby.busy", http.StatusConflict, false}},
	{pvpchan.ErrCreatorHasLobby, errorSpec{"has_lobby", "lobby.has_lobby", http.StatusConflict, false}},
	{errMissingPlayer, errorSpec{"missing_player", "errors.missing_player", http.StatusUnauthorized, false}},
}

var internalSpec = errorSpec{"internal", "errors.internal", http.StatusInternalServerError, false}

// badRequest marks a decode failure of client input.
type badRequest struct{ err error }

func (b badRequest) Error() string { return "bad request: " + b.err.Error() }
func (b badRequest) Unwrap() error { return b.err }

func specFor(err error) errorSpec {
	var br badRequest
	if errors.As(err, &br) {
		return errorSpec{"bad_request", "errors.bad_request", http.StatusBadRequest, false}
	}
	for _, e := range errorTable {
		if errors.Is(err, e.err) {
			return e.spec
		}
	}
	return internalSpec
}

// toDomainError renders err for clients. data feeds the message template.
func toDomainError(cat *msgcat.Catalog, err error, data map[string]any) (chessdto.DomainError, int) {
	spec := specFor(err)
	if data == nil {
		data = map[string]any{}
	}
	de := chessdto.DomainError{Code: spec.code, Retryable: spec.retry}
	var fe *chess.ForcedMoveError
	if errors.As(err, &fe) {
		de.Candidates = pvpchess.StepsToDTO(fe.Candidates)
		data["Candidates"] = describeSteps(fe.Candidates)
	}
	de.Message = spec.code
	if cat != nil {
		de.Message = cat.RenderOr(spec.key, data, spec.code)
	}
	return de, spec.status
}

func describeSteps(steps []chess.Step) string {
	parts := make([]string, 0, len(steps))
	for _, s := range steps {
		parts = append(parts, fmt.Sprintf("%s-%s", pvpchess.SquareName(s.From), pvpchess.SquareName(s.To)))
	}
	return strings.Join(parts, ", ")
}
